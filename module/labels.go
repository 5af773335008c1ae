// Copyright (C) 2023 Huawei Technologies Co., Ltd. All rights reserved.
// SPDX-License-Identifier: MIT

package module

import "github.com/llir/llvm/ir"

// assignLabels walks every function in load order, block by block,
// instruction by instruction, handing out sequential ids starting at 1.
// Grounded on the teacher's module/visitor.go recursive walk, simplified
// to a flat pass since label assignment needs no call-graph traversal.
func assignLabels(m *Module) {
	for _, f := range m.IR.Funcs {
		for _, block := range f.Blocks {
			for _, in := range block.Insts {
				m.label(in)
			}
		}
	}
}

func (m *Module) label(in ir.Instruction) int {
	if id, ok := m.labelOf[in]; ok {
		return id
	}
	id := m.nextID
	m.nextID++
	m.byLabel[id] = in
	m.labelOf[in] = id
	return id
}
