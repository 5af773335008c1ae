// Copyright (C) 2023 Huawei Technologies Co., Ltd. All rights reserved.
// SPDX-License-Identifier: MIT

package storebuf

import (
	"testing"

	"dfence/state"
	"dfence/value"
)

type fakeBackend struct {
	committed map[uint64]value.Value
	order     []uint64
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{committed: make(map[uint64]value.Value)}
}

func (b *fakeBackend) Commit(addr uint64, v value.Value) error {
	b.committed[addr] = v
	b.order = append(b.order, addr)
	return nil
}

type fakeLogger struct{ events []string }

func (l *fakeLogger) FlushFence(tag state.Tag)                    { l.events = append(l.events, "fence") }
func (l *fakeLogger) FlushInstr(tag state.Tag)                    { l.events = append(l.events, "instr") }
func (l *fakeLogger) FlushCASTSO(tag state.Tag)                   { l.events = append(l.events, "cas_tso") }
func (l *fakeLogger) FlushCASPSO(tag state.Tag, addr uint64)      { l.events = append(l.events, "cas_pso") }
func (l *fakeLogger) FlushRandomTSO(tag state.Tag)                { l.events = append(l.events, "rand_tso") }
func (l *fakeLogger) FlushRandomPSO(tag state.Tag, addr uint64)   { l.events = append(l.events, "rand_pso") }

func TestSCStoreCommitsImmediately(t *testing.T) {
	backend := newFakeBackend()
	e := New(SC, backend, &fakeLogger{})
	if err := e.Store(1, 0x10, value.NewInt(5, 32), 1); err != nil {
		t.Fatalf("Store: %v", err)
	}
	if _, ok := backend.committed[0x10]; !ok {
		t.Fatal("SC store must commit immediately, not buffer")
	}
}

func TestTSOStoreBuffersUntilFlush(t *testing.T) {
	backend := newFakeBackend()
	e := New(TSO, backend, &fakeLogger{})
	if err := e.Store(1, 0x10, value.NewInt(7, 32), 1); err != nil {
		t.Fatalf("Store: %v", err)
	}
	if _, ok := backend.committed[0x10]; ok {
		t.Fatal("TSO store must not commit until flushed")
	}
	if !e.Enabled(1) {
		t.Fatal("thread with a pending TSO store must be Enabled")
	}
	if err := e.FlushRandom(1, 0); err != nil {
		t.Fatalf("FlushRandom: %v", err)
	}
	if got, ok := backend.committed[0x10]; !ok || got.Int64() != 7 {
		t.Fatalf("after flush, committed[0x10] = %v, %v, want 7, true", got, ok)
	}
	if e.Enabled(1) {
		t.Fatal("thread should have no pending stores after draining its only one")
	}
}

func TestTSOLoadBufferedSeesOwnPendingStore(t *testing.T) {
	backend := newFakeBackend()
	e := New(TSO, backend, &fakeLogger{})
	_ = e.Store(1, 0x20, value.NewInt(42, 32), 1)
	v, ok := e.LoadBuffered(1, 0x20)
	if !ok || v.Int64() != 42 {
		t.Fatalf("LoadBuffered = %v, %v, want 42, true", v, ok)
	}
	if _, ok := e.LoadBuffered(2, 0x20); ok {
		t.Fatal("another thread must not see thread 1's buffered store")
	}
}

func TestPSOFlushIsPerAddress(t *testing.T) {
	backend := newFakeBackend()
	e := New(PSO, backend, &fakeLogger{})
	_ = e.Store(1, 0x10, value.NewInt(1, 32), 1)
	_ = e.Store(1, 0x20, value.NewInt(2, 32), 2)

	addrs := e.NonEmptyPSOAddrs(1)
	if len(addrs) != 2 {
		t.Fatalf("NonEmptyPSOAddrs = %v, want 2 addresses", addrs)
	}
	if err := e.FlushRandom(1, 0x10); err != nil {
		t.Fatalf("FlushRandom: %v", err)
	}
	if _, ok := backend.committed[0x10]; !ok {
		t.Fatal("0x10's store should have committed")
	}
	if _, ok := backend.committed[0x20]; ok {
		t.Fatal("flushing 0x10's queue must not touch 0x20's queue")
	}
}

func TestMembarSLDrainsEverything(t *testing.T) {
	backend := newFakeBackend()
	logger := &fakeLogger{}
	e := New(TSO, backend, logger)
	_ = e.Store(1, 0x10, value.NewInt(1, 32), 1)
	_ = e.Store(1, 0x20, value.NewInt(2, 32), 2)
	if err := e.MembarSL(1); err != nil {
		t.Fatalf("MembarSL: %v", err)
	}
	if e.Enabled(1) {
		t.Fatal("MembarSL must drain the thread's entire buffer")
	}
	if len(logger.events) != 1 || logger.events[0] != "fence" {
		t.Fatalf("logger.events = %v, want [fence]", logger.events)
	}
}

func TestMembarSSNoOpUnderTSO(t *testing.T) {
	backend := newFakeBackend()
	e := New(TSO, backend, &fakeLogger{})
	_ = e.Store(1, 0x10, value.NewInt(1, 32), 1)
	if err := e.MembarSS(1); err != nil {
		t.Fatalf("MembarSS: %v", err)
	}
	if !e.Enabled(1) {
		t.Fatal("MembarSS must be a no-op under TSO, leaving the buffered store pending")
	}
}

func TestDrainAllThreadsLogsPerThread(t *testing.T) {
	backend := newFakeBackend()
	logger := &fakeLogger{}
	e := New(TSO, backend, logger)
	_ = e.Store(1, 0x10, value.NewInt(1, 32), 1)
	_ = e.Store(2, 0x20, value.NewInt(2, 32), 1)
	if err := e.DrainAllThreads([]state.Tag{1, 2}); err != nil {
		t.Fatalf("DrainAllThreads: %v", err)
	}
	if len(backend.committed) != 2 {
		t.Fatalf("committed = %v, want 2 entries", backend.committed)
	}
	count := 0
	for _, ev := range logger.events {
		if ev == "instr" {
			count++
		}
	}
	if count != 2 {
		t.Fatalf("expected 2 FlushInstr events, got %d", count)
	}
}
