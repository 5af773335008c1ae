// Copyright (C) 2023 Huawei Technologies Co., Ltd. All rights reserved.
// SPDX-License-Identifier: MIT

package checker

import (
	"testing"

	"dfence/refimpl"
	"dfence/trace"
)

func TestCheckAcceptsSequentialFIFOHistory(t *testing.T) {
	history := []trace.HistEntry{
		{Kind: trace.Call, Thread: 1, Function: "enqueue", Args: []int64{1}},
		{Kind: trace.Return, Thread: 1, Function: "enqueue", Ret: 0},
		{Kind: trace.Call, Thread: 1, Function: "enqueue", Args: []int64{2}},
		{Kind: trace.Return, Thread: 1, Function: "enqueue", Ret: 0},
		{Kind: trace.Call, Thread: 1, Function: "dequeue", Args: nil},
		{Kind: trace.Return, Thread: 1, Function: "dequeue", Ret: 1},
	}
	result, err := Check(history, refimpl.New(refimpl.MS2), SC)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if !result.Accepted {
		t.Fatalf("Check rejected a valid FIFO history: %s", result.Reason)
	}
}

func TestCheckRejectsOutOfOrderReturn(t *testing.T) {
	history := []trace.HistEntry{
		{Kind: trace.Call, Thread: 1, Function: "enqueue", Args: []int64{1}},
		{Kind: trace.Return, Thread: 1, Function: "enqueue", Ret: 0},
		{Kind: trace.Call, Thread: 1, Function: "enqueue", Args: []int64{2}},
		{Kind: trace.Return, Thread: 1, Function: "enqueue", Ret: 0},
		{Kind: trace.Call, Thread: 1, Function: "dequeue", Args: nil},
		{Kind: trace.Return, Thread: 1, Function: "dequeue", Ret: 2},
	}
	result, err := Check(history, refimpl.New(refimpl.MS2), SC)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if result.Accepted {
		t.Fatal("Check accepted a history where dequeue returned the wrong (non-FIFO) value")
	}
}

func TestCheckAcceptsLinearizableConcurrentInterleaving(t *testing.T) {
	// thread 1 enqueues 1, thread 2 concurrently enqueues 2 and its call
	// interval overlaps thread 1's, so either order should linearize.
	history := []trace.HistEntry{
		{Kind: trace.Call, Thread: 1, Function: "enqueue", Args: []int64{1}},
		{Kind: trace.Call, Thread: 2, Function: "enqueue", Args: []int64{2}},
		{Kind: trace.Return, Thread: 2, Function: "enqueue", Ret: 0},
		{Kind: trace.Return, Thread: 1, Function: "enqueue", Ret: 0},
		{Kind: trace.Call, Thread: 1, Function: "dequeue", Args: nil},
		{Kind: trace.Return, Thread: 1, Function: "dequeue", Ret: 2},
	}
	result, err := Check(history, refimpl.New(refimpl.MS2), LIN)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if !result.Accepted {
		t.Fatalf("Check rejected a linearizable concurrent history: %s", result.Reason)
	}
}

func TestCheckErrorsOnUnmatchedCall(t *testing.T) {
	history := []trace.HistEntry{
		{Kind: trace.Call, Thread: 1, Function: "enqueue", Args: []int64{1}},
	}
	if _, err := Check(history, refimpl.New(refimpl.MS2), SC); err == nil {
		t.Fatal("Check must error on a call with no matching return")
	}
}

func TestParseProperty(t *testing.T) {
	if p, ok := ParseProperty("LIN"); !ok || p != LIN {
		t.Fatalf("ParseProperty(LIN) = %v, %v", p, ok)
	}
	if _, ok := ParseProperty("bogus"); ok {
		t.Fatal("ParseProperty must reject unknown values")
	}
}
