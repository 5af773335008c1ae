// Copyright (C) 2023 Huawei Technologies Co., Ltd. All rights reserved.
// SPDX-License-Identifier: MIT

package constraint

import "dfence/trace"

// pso derives the store->load and store->store literals of one PSO
// segment (spec.md §4.I, "PSO per segment").
func (g *Generator) pso(seg []trace.RWEntry) []int {
	vsb := make(map[uint64][]trace.RWEntry)
	var lits []int
	for _, e := range seg {
		switch e.Op {
		case trace.Read:
			for addr, q := range vsb {
				if addr == e.Location || len(q) == 0 {
					continue
				}
				for _, w := range q {
					lits = append(lits, g.literalFor(Pair{Kind: StoreLoad, First: w.Label, Second: e.Label}))
				}
			}
		case trace.Write:
			for addr, q := range vsb {
				if addr == e.Location || len(q) == 0 {
					continue
				}
				for _, w := range q {
					lits = append(lits, g.literalFor(Pair{Kind: StoreStore, First: w.Label, Second: e.Label}))
				}
			}
			vsb[e.Location] = append(vsb[e.Location], e)
		case trace.FlushRandomPSO:
			if q := vsb[e.Location]; len(q) > 0 {
				vsb[e.Location] = q[1:]
			}
		case trace.FlushCASPSO:
			delete(vsb, e.Location)
		}
	}
	return lits
}
