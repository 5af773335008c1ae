// Copyright (C) 2023 Huawei Technologies Co., Ltd. All rights reserved.
// SPDX-License-Identifier: MIT

package constraint

import (
	"dfence/state"
	"dfence/storebuf"
	"dfence/trace"
)

// Generator accumulates the literal assignment (spec.md §4.I,
// "Literal assignment") across every run of a synthesis round. Reset
// clears it between rounds, per spec.md §4.K, while the caller keeps
// its own IR label map untouched.
type Generator struct {
	wmm     storebuf.WMM
	nextLit int
	litOf   map[Pair]int
	pairOf  map[int]Pair
}

// NewGenerator returns a Generator for the given memory model, with an
// empty literal assignment.
func NewGenerator(wmm storebuf.WMM) *Generator {
	g := &Generator{wmm: wmm}
	g.Reset()
	return g
}

// Reset clears the literal counter and both pair maps.
func (g *Generator) Reset() {
	g.nextLit = 1
	g.litOf = make(map[Pair]int)
	g.pairOf = make(map[int]Pair)
}

func (g *Generator) literalFor(p Pair) int {
	if l, ok := g.litOf[p]; ok {
		return l
	}
	l := g.nextLit
	g.nextLit++
	g.litOf[p] = l
	g.pairOf[l] = p
	return l
}

// PairOf resolves a literal id back to the pair it represents.
func (g *Generator) PairOf(lit int) (Pair, bool) {
	p, ok := g.pairOf[lit]
	return p, ok
}

// NumVars returns how many distinct literals have been assigned so far.
func (g *Generator) NumVars() int { return g.nextLit - 1 }

// FromTrace derives one clause (a deduplicated set of literals) per
// per-thread segment of the filtered trace that produced any constraint
// (spec.md §4.I). Segments with no constraint contribute nothing.
func (g *Generator) FromTrace(entries []trace.RWEntry) [][]int {
	var clauses [][]int
	for _, seg := range segmentByThread(entries) {
		var lits []int
		switch g.wmm {
		case storebuf.PSO:
			lits = g.pso(seg)
		default:
			lits = g.tso(seg)
		}
		if len(lits) == 0 {
			continue
		}
		clauses = append(clauses, dedup(lits))
	}
	return clauses
}

// segmentByThread partitions entries by thread, then cuts each thread's
// sequence into maximal runs terminated by any label-0 entry (spec.md
// §4.I, "Segmentation"; Constraints.cpp:50-63,169-185 cuts on every
// label-0 log entry, not just fences). Under TSO a CAS drains the
// thread's entire buffer, so FlushCASTSO is one such boundary, and so
// is the label-0 CAS write itself that immediately precedes it: neither
// can ever be a source label a fence gets inserted after
// (module.InsertFenceAfterLabel(0) has no instruction to attach to), so
// both must be kept out of every segment rather than lingering in it as
// a stale store that a later read in the same segment would spuriously
// pair with.
func segmentByThread(entries []trace.RWEntry) [][]trace.RWEntry {
	byThread := make(map[state.Tag][]trace.RWEntry)
	var order []state.Tag
	for _, e := range entries {
		if _, ok := byThread[e.Thread]; !ok {
			order = append(order, e.Thread)
		}
		byThread[e.Thread] = append(byThread[e.Thread], e)
	}

	var segs [][]trace.RWEntry
	for _, tag := range order {
		var cur []trace.RWEntry
		for _, e := range byThread[tag] {
			if e.Op == trace.FlushFence || e.Op == trace.FlushCASTSO || (e.Op == trace.Write && e.Label == 0) {
				if len(cur) > 0 {
					segs = append(segs, cur)
				}
				cur = nil
				continue
			}
			cur = append(cur, e)
		}
		if len(cur) > 0 {
			segs = append(segs, cur)
		}
	}
	return segs
}

func dedup(lits []int) []int {
	seen := make(map[int]bool, len(lits))
	var out []int
	for _, l := range lits {
		if seen[l] {
			continue
		}
		seen[l] = true
		out = append(out, l)
	}
	return out
}
