// Copyright (C) 2023 Huawei Technologies Co., Ltd. All rights reserved.
// SPDX-License-Identifier: MIT

package synth

import (
	"sort"

	"dfence/constraint"
	"dfence/module"
)

// ApplyFences resolves every literal Solve selected back to its
// constraint.Pair, keeps a single fence per originating store when more
// than one selected pair shares one (spec.md §4.J, "dedup by
// source-store label" — a membar_ss at a store also forbids any
// store->load reorder from it, so StoreStore wins ties), and patches the
// module in ascending label order for a deterministic diff.
func ApplyFences(mod *module.Module, gen *constraint.Generator, selected map[int]bool) ([]module.FenceSite, error) {
	bySource := make(map[int]constraint.Pair)
	for lit, chosen := range selected {
		if !chosen {
			continue
		}
		p, ok := gen.PairOf(lit)
		if !ok {
			continue
		}
		existing, seen := bySource[p.First]
		if !seen || p.Kind == constraint.StoreStore {
			if !seen || existing.Kind != constraint.StoreStore {
				bySource[p.First] = p
			}
		}
	}

	labels := make([]int, 0, len(bySource))
	for label := range bySource {
		labels = append(labels, label)
	}
	sort.Ints(labels)

	sites := make([]module.FenceSite, 0, len(labels))
	for _, label := range labels {
		p := bySource[label]
		kind, name := module.MembarSL, "membar_sl"
		if p.Kind == constraint.StoreStore {
			kind, name = module.MembarSS, "membar_ss"
		}
		if err := mod.InsertFenceAfterLabel(p.First, kind); err != nil {
			return nil, err
		}
		sites = append(sites, module.FenceSite{AfterLabel: p.First, Kind: name})
	}
	return sites, nil
}
