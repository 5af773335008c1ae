// Copyright (C) 2023 Huawei Technologies Co., Ltd. All rights reserved.
// SPDX-License-Identifier: MIT

package synth

import (
	"github.com/irifrance/gini"
	"github.com/irifrance/gini/z"
)

// Solve resolves the accumulated fence-constraint clauses (spec.md
// §4.I/§4.J) to a minimal set of literals to satisfy: every clause is a
// disjunction of candidate-fence literals, at least one of which must
// be chosen. gini first checks satisfiability of the whole formula,
// then a greedy pass tries dropping each chosen literal and re-checking
// coverage directly against the clause list, arriving at a fence set no
// clause's coverage can spare a member of (spec.md §4.J, "the smallest
// fence set that forbids every recorded violation").
func Solve(clauses [][]int, numVars int) (selected map[int]bool, sat bool) {
	if numVars == 0 {
		return map[int]bool{}, true
	}

	s := gini.New()
	for _, cls := range clauses {
		for _, lit := range cls {
			s.Add(z.Dimacs2Lit(lit))
		}
		s.Add(z.Dimacs2Lit(0))
	}
	if s.Solve() != 1 {
		return nil, false
	}

	selected = make(map[int]bool, numVars)
	for v := 1; v <= numVars; v++ {
		selected[v] = s.Value(z.Dimacs2Lit(v))
	}

	for v := 1; v <= numVars; v++ {
		if !selected[v] {
			continue
		}
		selected[v] = false
		if !satisfiesAll(clauses, selected) {
			selected[v] = true
		}
	}
	return selected, true
}

func satisfiesAll(clauses [][]int, chosen map[int]bool) bool {
	for _, cls := range clauses {
		hit := false
		for _, lit := range cls {
			if chosen[lit] {
				hit = true
				break
			}
		}
		if !hit {
			return false
		}
	}
	return true
}
