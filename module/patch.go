// Copyright (C) 2023 Huawei Technologies Co., Ltd. All rights reserved.
// SPDX-License-Identifier: MIT

package module

import (
	"fmt"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/types"

	"dfence/logger"
)

// FenceKind is the intrinsic a patch inserts (spec.md §4.J, "membar_sl
// for TSO pairs, membar_ss for PSO pairs").
type FenceKind int

const (
	// MembarSL is the store->load fence.
	MembarSL FenceKind = iota
	// MembarSS is the store->store fence.
	MembarSS
)

func (k FenceKind) name() string {
	if k == MembarSS {
		return "membar_ss"
	}
	return "membar_sl"
}

func (m *Module) fenceFunc(k FenceKind) *ir.Func {
	name := k.name()
	if f, ok := m.funcs[name]; ok {
		return f
	}
	f := ir.NewFunc(name, types.Void)
	m.IR.Funcs = append(m.IR.Funcs, f)
	m.funcs["@"+name] = f
	return f
}

// InsertFenceAfterLabel resolves storeLabel to its instruction, and
// inserts a call to the given fence intrinsic immediately after it in
// its basic block (spec.md §4.J, "Patching"). The inserted call is never
// given a label, so LabelOf reports 0 for it (spec.md: "carry label 0").
func (m *Module) InsertFenceAfterLabel(storeLabel int, k FenceKind) error {
	in, ok := m.byLabel[storeLabel]
	if !ok {
		return fmt.Errorf("no instruction with label %d", storeLabel)
	}
	store, ok := in.(*ir.InstStore)
	if !ok {
		return fmt.Errorf("label %d is not a store (%T)", storeLabel, in)
	}
	block, idx, ok := m.findInst(store)
	if !ok {
		return fmt.Errorf("store with label %d is not in any live block", storeLabel)
	}
	call := ir.NewCall(m.fenceFunc(k))
	logger.Debugf("patch: inserting %s after label %d", k.name(), storeLabel)
	block.Insts = append(block.Insts, nil)
	copy(block.Insts[idx+2:], block.Insts[idx+1:])
	block.Insts[idx+1] = call
	return nil
}

func (m *Module) findInst(target ir.Instruction) (*ir.Block, int, bool) {
	for _, f := range m.IR.Funcs {
		for _, block := range f.Blocks {
			for i, in := range block.Insts {
				if in == target {
					return block, i, true
				}
			}
		}
	}
	return nil, 0, false
}
