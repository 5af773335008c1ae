// Copyright (C) 2023 Huawei Technologies Co., Ltd. All rights reserved.
// SPDX-License-Identifier: MIT

package storebuf

import (
	"dfence/state"
	"dfence/value"
)

// WMM identifies the weak memory model governing an Engine (spec.md §6,
// key WMM).
type WMM int

// The three memory models DFENCE can synthesize fences for.
const (
	SC WMM = iota
	TSO
	PSO
)

func (m WMM) String() string {
	switch m {
	case TSO:
		return "TSO"
	case PSO:
		return "PSO"
	default:
		return "SC"
	}
}

// Backend commits a drained store to real memory. Implemented by the
// interpreter, which knows how to encode a value.Value into the raw
// bytes memmodel.Memory expects.
type Backend interface {
	Commit(addr uint64, v value.Value) error
}

// Logger records flush/fence events into the shared-RW log (spec.md
// §4.D, "Observable ordering invariants"). WRITE and READ entries are
// logged by the interpreter itself, at the point of execution; only the
// engine-driven flush/fence events are logged here.
type Logger interface {
	FlushFence(tag state.Tag)
	FlushInstr(tag state.Tag)
	FlushCASTSO(tag state.Tag)
	FlushCASPSO(tag state.Tag, addr uint64)
	FlushRandomTSO(tag state.Tag)
	FlushRandomPSO(tag state.Tag, addr uint64)
}

// Engine is the store-buffer engine for one run: a WMM and one buffer
// per thread, lazily created.
type Engine struct {
	wmm     WMM
	backend Backend
	logger  Logger
	tso     map[state.Tag]*TSOThread
	pso     map[state.Tag]*PSOThread
}

// New returns an Engine for the given memory model.
func New(wmm WMM, backend Backend, logger Logger) *Engine {
	return &Engine{
		wmm:     wmm,
		backend: backend,
		logger:  logger,
		tso:     make(map[state.Tag]*TSOThread),
		pso:     make(map[state.Tag]*PSOThread),
	}
}

// WMM returns the engine's memory model.
func (e *Engine) WMM() WMM { return e.wmm }

func (e *Engine) tsoOf(tag state.Tag) *TSOThread {
	t, ok := e.tso[tag]
	if !ok {
		t = &TSOThread{}
		e.tso[tag] = t
	}
	return t
}

func (e *Engine) psoOf(tag state.Tag) *PSOThread {
	t, ok := e.pso[tag]
	if !ok {
		t = newPSOThread()
		e.pso[tag] = t
	}
	return t
}

// Store buffers a store to a non-stack address under TSO/PSO. Under SC
// there is no buffering: Store commits through the backend at once (spec.md §3
// invariant, "A TSO store to a non-stack address goes to the buffer,
// never to memory directly").
func (e *Engine) Store(tag state.Tag, addr uint64, v value.Value, label int) error {
	switch e.wmm {
	case TSO:
		e.tsoOf(tag).q.push(Entry{Addr: addr, Value: v, Label: label})
		return nil
	case PSO:
		e.psoOf(tag).q.push(addr, Entry{Addr: addr, Value: v, Label: label})
		return nil
	default:
		return e.backend.Commit(addr, v)
	}
}

// LoadBuffered consults the current thread's buffer for addr before
// falling back to memory (spec.md §3 invariant on load ordering).
func (e *Engine) LoadBuffered(tag state.Tag, addr uint64) (value.Value, bool) {
	switch e.wmm {
	case TSO:
		en, ok := e.tsoOf(tag).q.loadFrom(addr)
		if !ok {
			return value.Value{}, false
		}
		return en.Value.(value.Value), true
	case PSO:
		en, ok := e.psoOf(tag).q.loadFrom(addr)
		if !ok {
			return value.Value{}, false
		}
		return en.Value.(value.Value), true
	default:
		return value.Value{}, false
	}
}

// FlushRandom drains one pending entry, chosen by the scheduler: the
// oldest TSO entry, or the oldest entry of the given PSO address.
func (e *Engine) FlushRandom(tag state.Tag, addr uint64) error {
	switch e.wmm {
	case TSO:
		en, ok := e.tsoOf(tag).q.flushOldest()
		if !ok {
			return nil
		}
		e.logger.FlushRandomTSO(tag)
		return e.backend.Commit(en.Addr, en.Value.(value.Value))
	case PSO:
		en, ok := e.psoOf(tag).q.flushOldest(addr)
		if !ok {
			return nil
		}
		e.logger.FlushRandomPSO(tag, addr)
		return e.backend.Commit(en.Addr, en.Value.(value.Value))
	default:
		return nil
	}
}

// NonEmptyPSOAddrs returns the addresses with pending PSO stores for
// tag, used by the scheduler to pick a queue to flush.
func (e *Engine) NonEmptyPSOAddrs(tag state.Tag) []uint64 {
	if e.wmm != PSO {
		return nil
	}
	return e.psoOf(tag).q.nonEmptyAddrs()
}

// Enabled reports whether tag has any pending buffered store.
func (e *Engine) Enabled(tag state.Tag) bool {
	switch e.wmm {
	case TSO:
		return !e.tsoOf(tag).q.empty()
	case PSO:
		return len(e.psoOf(tag).q.nonEmptyAddrs()) > 0
	default:
		return false
	}
}

// MembarSL drains every pending store of tag (spec.md §4.D: "membar_sl
// drains fully" under TSO; "drains all queues" under PSO).
func (e *Engine) MembarSL(tag state.Tag) error {
	defer e.logger.FlushFence(tag)
	return e.drainAll(tag)
}

// MembarSS is a no-op under SC and TSO, and drains every per-address
// queue under PSO (spec.md §4.D).
func (e *Engine) MembarSS(tag state.Tag) error {
	defer e.logger.FlushFence(tag)
	if e.wmm != PSO {
		return nil
	}
	return e.drainAll(tag)
}

func (e *Engine) drainAll(tag state.Tag) error {
	switch e.wmm {
	case TSO:
		for _, en := range e.tsoOf(tag).q.drain() {
			if err := e.backend.Commit(en.Addr, en.Value.(value.Value)); err != nil {
				return err
			}
		}
	case PSO:
		for _, q := range e.psoOf(tag).q.drainAll() {
			for _, en := range q {
				if err := e.backend.Commit(en.Addr, en.Value.(value.Value)); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// DrainForCAS drains the state a CAS on addr must see before comparing:
// the thread's entire buffer under TSO, or only addr's queue under PSO
// (spec.md §4.D, "CAS semantics"). It does not log the flush event
// yet: spec.md §4.C logs the WRITE first, if the compare succeeds, and
// only then the FLUSH_CAS event, so the caller logs the flush itself
// via LogCASFlush once it knows whether a write occurred.
func (e *Engine) DrainForCAS(tag state.Tag, addr uint64) error {
	switch e.wmm {
	case TSO:
		for _, en := range e.tsoOf(tag).q.drain() {
			if err := e.backend.Commit(en.Addr, en.Value.(value.Value)); err != nil {
				return err
			}
		}
	case PSO:
		for _, en := range e.psoOf(tag).q.drainAddr(addr) {
			if err := e.backend.Commit(en.Addr, en.Value.(value.Value)); err != nil {
				return err
			}
		}
	}
	return nil
}

// LogCASFlush logs the flush event produced by a prior DrainForCAS,
// after the caller has already logged any resulting WRITE (spec.md
// §4.C, "log WRITE if store occurs, then log FLUSH_CAS").
func (e *Engine) LogCASFlush(tag state.Tag, addr uint64) {
	if e.wmm == PSO {
		e.logger.FlushCASPSO(tag, addr)
		return
	}
	e.logger.FlushCASTSO(tag)
}

// DrainAllThreads flushes every pending buffered store of every known
// thread, logging one FlushInstr per thread (spec.md §4.D invariant 3:
// "At program termination, all buffers are drained once").
func (e *Engine) DrainAllThreads(tags []state.Tag) error {
	for _, tag := range tags {
		if err := e.drainAll(tag); err != nil {
			return err
		}
		e.logger.FlushInstr(tag)
	}
	return nil
}
