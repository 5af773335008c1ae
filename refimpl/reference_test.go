// Copyright (C) 2023 Huawei Technologies Co., Ltd. All rights reserved.
// SPDX-License-Identifier: MIT

package refimpl

import "testing"

func TestParseProgramRoundTrip(t *testing.T) {
	cases := map[string]Program{
		"WSQ_CHASE": WSQChase,
		"MS2":       MS2,
		"HARRIS":    Harris,
	}
	for s, want := range cases {
		if got := ParseProgram(s); got != want {
			t.Errorf("ParseProgram(%q) = %v, want %v", s, got, want)
		}
	}
	if got := ParseProgram("nope"); got != InvalidProgram {
		t.Errorf("ParseProgram(nope) = %v, want InvalidProgram", got)
	}
}

func TestQueueReferenceIsFIFO(t *testing.T) {
	q := New(MS2)
	if _, ok := q.Apply("enqueue", []int64{1}, 0); !ok {
		t.Fatal("enqueue(1) should succeed")
	}
	if _, ok := q.Apply("enqueue", []int64{2}, 0); !ok {
		t.Fatal("enqueue(2) should succeed")
	}
	v, ok := q.Apply("dequeue", nil, 0)
	if !ok || v != 1 {
		t.Fatalf("dequeue() = %v, %v, want 1, true", v, ok)
	}
}

func TestQueueReferenceCloneIsIndependent(t *testing.T) {
	q := New(MS2)
	q.Apply("enqueue", []int64{1}, 0)
	c := q.Clone()
	q.Apply("enqueue", []int64{2}, 0)
	v, _ := c.Apply("dequeue", nil, 0)
	if v != 1 {
		t.Fatalf("clone's dequeue = %d, want 1 (clone must not see the original's later enqueue)", v)
	}
	v2, _ := c.Apply("dequeue", nil, 0)
	if v2 != emptyMarker {
		t.Fatalf("clone should only have seen the state at Clone() time, got second dequeue = %d", v2)
	}
}

func TestWSQReferencePutTakeSteal(t *testing.T) {
	w := New(WSQChase)
	w.Apply("wsq_put", []int64{1}, 0)
	w.Apply("wsq_put", []int64{2}, 0)
	v, _ := w.Apply("wsq_take", nil, 0)
	if v != 2 {
		t.Fatalf("take() = %d, want 2 (owner takes from the tail)", v)
	}
	v2, _ := w.Apply("wsq_steal", nil, 0)
	if v2 != 1 {
		t.Fatalf("steal() = %d, want 1 (thief steals from the head)", v2)
	}
}

func TestDequeReferencePushPopBothEnds(t *testing.T) {
	d := New(Snark)
	d.Apply("push_right", []int64{1}, 0)
	d.Apply("push_left", []int64{2}, 0)
	v, _ := d.Apply("pop_left", nil, 0)
	if v != 2 {
		t.Fatalf("pop_left() = %d, want 2", v)
	}
	v2, _ := d.Apply("pop_right", nil, 0)
	if v2 != 1 {
		t.Fatalf("pop_right() = %d, want 1", v2)
	}
}

func TestSetReferenceAddRemoveContains(t *testing.T) {
	s := New(LazyList)
	if v, _ := s.Apply("add", []int64{5}, 0); v != boolTrue {
		t.Fatalf("add(5) on a fresh set = %d, want boolTrue", v)
	}
	if v, _ := s.Apply("add", []int64{5}, 0); v != boolFalse {
		t.Fatalf("add(5) again = %d, want boolFalse", v)
	}
	if v, _ := s.Apply("contains", []int64{5}, 0); v != boolTrue {
		t.Fatalf("contains(5) = %d, want boolTrue", v)
	}
	if v, _ := s.Apply("remove", []int64{5}, 0); v != boolTrue {
		t.Fatalf("remove(5) = %d, want boolTrue", v)
	}
	if v, _ := s.Apply("contains", []int64{5}, 0); v != boolFalse {
		t.Fatalf("contains(5) after remove = %d, want boolFalse", v)
	}
}

func TestMallocReferenceRejectsOverlap(t *testing.T) {
	m := New(LFMalloc)
	if _, ok := m.Apply("malloc", []int64{16}, 0x1000); !ok {
		t.Fatal("first malloc should succeed")
	}
	if _, ok := m.Apply("malloc", []int64{16}, 0x1008); ok {
		t.Fatal("an overlapping allocation must be rejected")
	}
	if _, ok := m.Apply("free", []int64{0x1000}, 0); !ok {
		t.Fatal("freeing a live base should succeed")
	}
	if _, ok := m.Apply("free", []int64{0x1000}, 0); ok {
		t.Fatal("freeing an already-freed base must fail")
	}
}
