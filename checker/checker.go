// Copyright (C) 2023 Huawei Technologies Co., Ltd. All rights reserved.
// SPDX-License-Identifier: MIT

// Package checker implements the linearizability/SC checker of spec.md
// §4.H: it enumerates sequential permutations of a recorded call history
// consistent with real-time order (for linearizability) and validates
// each against a sequential reference implementation from
// dfence/refimpl.
package checker

import (
	"fmt"

	"dfence/refimpl"
	"dfence/state"
	"dfence/trace"
)

// Property is the correctness criterion a run is checked against
// (spec.md §6, key PROPERTY).
type Property int

// The two correctness criteria DFENCE supports.
const (
	SC Property = iota
	LIN
)

// ParseProperty parses the PROPERTY config value.
func ParseProperty(s string) (Property, bool) {
	switch s {
	case "SC":
		return SC, true
	case "LIN":
		return LIN, true
	default:
		return SC, false
	}
}

// MaxCalls bounds the length of a history the checker will attempt to
// exhaust-search. The permutation search is factorial in the number of
// recorded calls (spec.md §9, open question); beyond this bound Check
// fails loudly rather than hanging.
const MaxCalls = 9

// Call is one matched CALL/RETURN pair from the history log.
type Call struct {
	CallIdx  int
	RetIdx   int
	Thread   state.Tag
	Function string
	Args     []int64
	Ret      int64
}

// Result is the outcome of a single Check.
type Result struct {
	Accepted bool
	Reason   string
}

// Check runs the linearizability/SC algorithm of spec.md §4.H against
// history, replaying candidate permutations against ref.
func Check(history []trace.HistEntry, ref refimpl.Reference, prop Property) (Result, error) {
	calls, err := matchCalls(history)
	if err != nil {
		return Result{}, err
	}
	if len(calls) == 0 {
		return Result{Accepted: true, Reason: "empty history"}, nil
	}
	if len(calls) > MaxCalls {
		return Result{}, fmt.Errorf("history has %d calls, exceeds MaxCalls=%d: permutation search would be infeasible", len(calls), MaxCalls)
	}

	byThread := make(map[state.Tag][]Call)
	for _, c := range calls {
		byThread[c.Thread] = append(byThread[c.Thread], c)
	}

	tags := make([]int, len(calls))
	tagList := make([]state.Tag, 0, len(byThread))
	for t := range byThread {
		tagList = append(tagList, t)
	}
	// P0: ascending sequence of thread tags, one per call.
	idx := 0
	for _, t := range sortedTags(tagList) {
		for range byThread[t] {
			tags[idx] = int(t)
			idx++
		}
	}

	cursor := make(map[state.Tag]int)
	perm := append([]int(nil), tags...)
	for {
		seq := assemble(perm, byThread, cursor)
		if prop == LIN && violatesRealTime(seq) {
			if !nextPermutation(perm) {
				break
			}
			continue
		}
		if replays(seq, ref) {
			return Result{Accepted: true}, nil
		}
		if !nextPermutation(perm) {
			break
		}
	}
	return Result{Accepted: false, Reason: "no permutation of the recorded history replays against the reference"}, nil
}

func sortedTags(tags []state.Tag) []state.Tag {
	out := append([]state.Tag(nil), tags...)
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j-1] > out[j]; j-- {
			out[j-1], out[j] = out[j], out[j-1]
		}
	}
	return out
}

// assemble picks, for each position of perm, the earliest yet-unused
// call on that position's thread (spec.md §4.H step 3).
func assemble(perm []int, byThread map[state.Tag][]Call, cursor map[state.Tag]int) []Call {
	for k := range cursor {
		delete(cursor, k)
	}
	seq := make([]Call, len(perm))
	for i, t := range perm {
		tag := state.Tag(t)
		n := cursor[tag]
		seq[i] = byThread[tag][n]
		cursor[tag] = n + 1
	}
	return seq
}

// violatesRealTime rejects permutations that reorder calls whose real
// time intervals do not overlap (spec.md §4.H step 4).
func violatesRealTime(seq []Call) bool {
	for i := range seq {
		for j := i + 1; j < len(seq); j++ {
			if seq[j].RetIdx < seq[i].CallIdx {
				// seq[j] finished before seq[i] started: it must
				// precede seq[i], but it appears after it here.
				return true
			}
		}
	}
	return false
}

func replays(seq []Call, ref refimpl.Reference) bool {
	r := ref.Clone()
	for _, c := range seq {
		ret, ok := r.Apply(c.Function, c.Args, c.Ret)
		if !ok || ret != c.Ret {
			return false
		}
	}
	return true
}
