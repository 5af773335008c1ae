// Copyright (C) 2023 Huawei Technologies Co., Ltd. All rights reserved.
// SPDX-License-Identifier: MIT

package sched

import (
	"testing"

	"dfence/state"
	"dfence/storebuf"
)

// fixedRand is a deterministic Rand stub: Float64 returns f, Intn always
// returns 0 (picks the first candidate).
type fixedRand struct{ f float64 }

func (r fixedRand) Float64() float64 { return r.f }
func (r fixedRand) Intn(n int) int   { return 0 }

func TestRandomSchedulerContinuesWhileEnabledAndPrivate(t *testing.T) {
	s := New(Random, storebuf.SC, 0.5, fixedRand{f: 0})
	act := s.Next(Query{Current: 1, CurrentEnabled: true, LastTouchedShared: false, Live: []state.Tag{1, 2}})
	if act.Kind != Continue || act.Thread != 1 {
		t.Fatalf("Next = %+v, want Continue on thread 1", act)
	}
}

func TestRandomSchedulerSwitchesWhenSharedTouched(t *testing.T) {
	s := New(Random, storebuf.SC, 0.0, fixedRand{f: 1.0})
	act := s.Next(Query{Current: 1, CurrentEnabled: true, LastTouchedShared: true, Live: []state.Tag{1, 2}})
	if act.Kind != SwitchThread {
		t.Fatalf("Next = %+v, want SwitchThread", act)
	}
}

func TestRandomSchedulerFlushesUnderTSO(t *testing.T) {
	s := New(Random, storebuf.TSO, 1.0, fixedRand{f: 0.0})
	act := s.Next(Query{Current: 1, CurrentEnabled: false, Live: []state.Tag{1}})
	if act.Kind != FlushBuffer {
		t.Fatalf("Next = %+v, want FlushBuffer", act)
	}
}

func TestRandomSchedulerNoActionUnderSCWhenFlushChosen(t *testing.T) {
	s := New(Random, storebuf.SC, 1.0, fixedRand{f: 0.0})
	act := s.Next(Query{Current: 1, CurrentEnabled: false, Live: []state.Tag{1}})
	if act.Kind != NoAction {
		t.Fatalf("Next = %+v, want NoAction under SC", act)
	}
}

func TestRandomSchedulerNoActionWhenNoThreadLive(t *testing.T) {
	s := New(Random, storebuf.SC, 0.0, fixedRand{f: 0.0})
	act := s.Next(Query{Current: 1, CurrentEnabled: false, Live: nil})
	if act.Kind != NoAction {
		t.Fatalf("Next = %+v, want NoAction with no live threads", act)
	}
}

func TestRandomSchedulerPSOFlushesChosenAddress(t *testing.T) {
	s := New(Random, storebuf.PSO, 1.0, fixedRand{f: 0.0})
	act := s.Next(Query{
		Current:         1,
		CurrentEnabled:  false,
		Live:            []state.Tag{1},
		PendingPSOAddrs: map[state.Tag][]uint64{1: {0x10, 0x20}},
	})
	if act.Kind != FlushBuffer || act.Addr != 0x10 {
		t.Fatalf("Next = %+v, want FlushBuffer at 0x10", act)
	}
}

func TestDBRRRotatesInTagOrder(t *testing.T) {
	s := New(DBRR, storebuf.TSO, 0.0, fixedRand{f: 1.0})
	act := s.Next(Query{Current: 3, CurrentEnabled: false, Live: []state.Tag{1, 2, 3}})
	if act.Kind != SwitchThread || act.Thread != 1 {
		t.Fatalf("first rotation from zero = %+v, want thread 1", act)
	}
	act2 := s.Next(Query{Current: 1, CurrentEnabled: false, Live: []state.Tag{1, 2, 3}})
	if act2.Kind != SwitchThread || act2.Thread != 2 {
		t.Fatalf("second rotation = %+v, want thread 2", act2)
	}
}

func TestDBRRPanicsUnderPSO(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("dbrr scheduler must panic under PSO to preserve determinism")
		}
	}()
	s := New(DBRR, storebuf.PSO, 0.0, fixedRand{f: 0.0})
	s.Next(Query{Live: []state.Tag{1}})
}
