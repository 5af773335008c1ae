// Copyright (C) 2023 Huawei Technologies Co., Ltd. All rights reserved.
// SPDX-License-Identifier: MIT

package module

import "github.com/llir/llvm/ir"

// FenceSite names one inserted fence, for the golden diff tests that
// compare a patched module against the fence placement a round should
// have produced.
type FenceSite struct {
	AfterLabel int
	Kind       string
}

// Fences lists every membar_sl/membar_ss call currently present in the
// module, in load order, for use with github.com/google/go-cmp against a
// hand-written expectation.
func (m *Module) Fences() []FenceSite {
	var sites []FenceSite
	for _, f := range m.IR.Funcs {
		for _, block := range f.Blocks {
			for i, in := range block.Insts {
				call, ok := in.(*ir.InstCall)
				if !ok {
					continue
				}
				name := call.Callee.Ident()
				if name != "@membar_sl" && name != "@membar_ss" {
					continue
				}
				after := 0
				if i > 0 {
					after = m.LabelOf(block.Insts[i-1])
				}
				kind := "membar_sl"
				if name == "@membar_ss" {
					kind = "membar_ss"
				}
				sites = append(sites, FenceSite{AfterLabel: after, Kind: kind})
			}
		}
	}
	return sites
}
