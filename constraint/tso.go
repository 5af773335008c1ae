// Copyright (C) 2023 Huawei Technologies Co., Ltd. All rights reserved.
// SPDX-License-Identifier: MIT

package constraint

import "dfence/trace"

// tso derives the store->load literals of one TSO segment (spec.md
// §4.I, "TSO per segment").
func (g *Generator) tso(seg []trace.RWEntry) []int {
	var sb []trace.RWEntry
	var lits []int
	for _, e := range seg {
		switch e.Op {
		case trace.Write:
			sb = append(sb, e)
		case trace.Read:
			for _, w := range sb {
				if w.Location == e.Location {
					continue
				}
				lits = append(lits, g.literalFor(Pair{Kind: StoreLoad, First: w.Label, Second: e.Label}))
			}
		case trace.FlushRandomTSO:
			if len(sb) > 0 {
				sb = sb[1:]
			}
		}
	}
	return lits
}
