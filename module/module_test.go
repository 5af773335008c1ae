// Copyright (C) 2023 Huawei Technologies Co., Ltd. All rights reserved.
// SPDX-License-Identifier: MIT

package module

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/types"
	"github.com/stretchr/testify/require"
)

func newTestModule(t *testing.T) (*Module, *ir.Block, *ir.InstStore) {
	t.Helper()
	mod := ir.NewModule()
	fn := mod.NewFunc("main", types.I32)
	block := fn.NewBlock("entry")
	ptr := block.NewAlloca(types.I32)
	store := block.NewStore(constant.NewInt(types.I32, 1), ptr)
	block.NewRet(constant.NewInt(types.I32, 0))

	m := &Module{
		IR:      mod,
		byLabel: make(map[int]ir.Instruction),
		labelOf: make(map[ir.Instruction]int),
		nextID:  1,
		funcs:   map[string]*ir.Func{"@main": fn},
		globals: make(map[string]*ir.Global),
	}
	assignLabels(m)
	return m, block, store
}

func TestAssignLabelsSequential(t *testing.T) {
	m, _, store := newTestModule(t)
	require.Equal(t, 2, m.LabelOf(store))
}

func TestInsertFenceAfterLabel(t *testing.T) {
	m, block, store := newTestModule(t)
	label := m.LabelOf(store)

	require.NoError(t, m.InsertFenceAfterLabel(label, MembarSL))
	require.Len(t, block.Insts, 3)

	call, ok := block.Insts[2].(*ir.InstCall)
	require.True(t, ok)
	require.Equal(t, "@membar_sl", call.Callee.Ident())
	require.Zero(t, m.LabelOf(call))

	want := []FenceSite{{AfterLabel: label, Kind: "membar_sl"}}
	if diff := cmp.Diff(want, m.Fences()); diff != "" {
		t.Fatalf("fences mismatch (-want +got):\n%s", diff)
	}
}

func TestInsertFenceUnknownLabel(t *testing.T) {
	m, _, _ := newTestModule(t)
	require.Error(t, m.InsertFenceAfterLabel(999, MembarSL))
}
