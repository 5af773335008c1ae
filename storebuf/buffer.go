// Copyright (C) 2023 Huawei Technologies Co., Ltd. All rights reserved.
// SPDX-License-Identifier: MIT

// Package storebuf implements the TSO and PSO store-buffer engines of
// spec.md §4.D: per-thread FIFOs of pending stores, their flush and
// fence primitives, and the CAS-drain semantics that make CAS
// sequentially consistent with respect to a thread's own prior stores.
package storebuf

import "dfence/state"

// Entry is one pending store: the address it targets, the value it
// carries, and the IR label of the instruction that produced it
// (spec.md §3, "Store buffers").
type Entry struct {
	Addr  uint64
	Value interface{} // always a value.Value; readers type-assert it
	Label int
}

// tsoQueue is a per-thread FIFO of pending stores to any address.
type tsoQueue struct {
	entries []Entry
}

func (q *tsoQueue) push(e Entry) { q.entries = append(q.entries, e) }

// loadFrom walks the queue newest-to-oldest and returns the first entry
// matching addr (spec.md §4.D: "load walks the FIFO from newest to
// oldest").
func (q *tsoQueue) loadFrom(addr uint64) (Entry, bool) {
	for i := len(q.entries) - 1; i >= 0; i-- {
		if q.entries[i].Addr == addr {
			return q.entries[i], true
		}
	}
	return Entry{}, false
}

func (q *tsoQueue) flushOldest() (Entry, bool) {
	if len(q.entries) == 0 {
		return Entry{}, false
	}
	e := q.entries[0]
	q.entries = q.entries[1:]
	return e, true
}

func (q *tsoQueue) drain() []Entry {
	all := q.entries
	q.entries = nil
	return all
}

func (q *tsoQueue) empty() bool { return len(q.entries) == 0 }

// psoQueues is a per-thread map from address to its own FIFO. No
// per-address IR type table is kept, here or in PSOThread, so nothing
// checks that the pending values at one address share a type.
type psoQueues struct {
	byAddr map[uint64][]Entry
}

func newPSOQueues() *psoQueues { return &psoQueues{byAddr: make(map[uint64][]Entry)} }

func (p *psoQueues) push(addr uint64, e Entry) {
	p.byAddr[addr] = append(p.byAddr[addr], e)
}

func (p *psoQueues) loadFrom(addr uint64) (Entry, bool) {
	q := p.byAddr[addr]
	if len(q) == 0 {
		return Entry{}, false
	}
	return q[len(q)-1], true
}

func (p *psoQueues) flushOldest(addr uint64) (Entry, bool) {
	q := p.byAddr[addr]
	if len(q) == 0 {
		return Entry{}, false
	}
	e := q[0]
	if len(q) == 1 {
		delete(p.byAddr, addr)
	} else {
		p.byAddr[addr] = q[1:]
	}
	return e, true
}

func (p *psoQueues) drainAddr(addr uint64) []Entry {
	q := p.byAddr[addr]
	delete(p.byAddr, addr)
	return q
}

func (p *psoQueues) drainAll() map[uint64][]Entry {
	all := p.byAddr
	p.byAddr = make(map[uint64][]Entry)
	return all
}

func (p *psoQueues) nonEmptyAddrs() []uint64 {
	var addrs []uint64
	for a, q := range p.byAddr {
		if len(q) > 0 {
			addrs = append(addrs, a)
		}
	}
	return addrs
}

// TSOThread is one thread's TSO store buffer.
type TSOThread struct{ q tsoQueue }

// PSOThread is one thread's PSO store buffer, one FIFO per address.
type PSOThread struct{ q psoQueues }

// newPSOThread returns an empty PSO buffer for a thread.
func newPSOThread() *PSOThread { return &PSOThread{q: *newPSOQueues()} }

// Tag is re-exported so callers only need this package plus state.Tag.
type Tag = state.Tag
