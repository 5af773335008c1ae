// Copyright (C) 2023 Huawei Technologies Co., Ltd. All rights reserved.
// SPDX-License-Identifier: MIT

package synth

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"dfence/constraint"
	"dfence/module"
	"dfence/state"
	"dfence/storebuf"
	"dfence/trace"
)

const testIR = `
define void @main() {
entry:
  %p = alloca i32
  store i32 1, i32* %p
  store i32 2, i32* %p
  ret void
}
`

func loadTestModule(t *testing.T) *module.Module {
	t.Helper()
	path := filepath.Join(t.TempDir(), "prog.ll")
	require.NoError(t, os.WriteFile(path, []byte(testIR), 0o644))
	m, err := module.Load(path, module.DefaultConfig())
	require.NoError(t, err)
	return m
}

func TestSolveKeepsOnlyNecessaryLiterals(t *testing.T) {
	// Clause 1 is satisfied only by literal 1; clause 2 is satisfied by
	// either literal 2 or 3, so the minimizer must drop one of them.
	clauses := [][]int{{1}, {2, 3}}
	selected, sat := Solve(clauses, 3)
	require.True(t, sat)
	require.True(t, selected[1])
	require.True(t, selected[2] || selected[3])
	require.False(t, selected[2] && selected[3])
}

func TestApplyFencesInsertsMembarSLAfterSourceStore(t *testing.T) {
	m := loadTestModule(t)

	_, ok := m.InstByLabel(2)
	require.True(t, ok, "label 2 must resolve to the first store")

	gen := constraint.NewGenerator(storebuf.SC)
	entries := []trace.RWEntry{
		{Thread: state.Tag(1), Op: trace.Write, Location: 0x100, HasLoc: true, Label: 2},
		{Thread: state.Tag(1), Op: trace.Read, Location: 0x200, HasLoc: true, Label: 0},
	}
	clauses := gen.FromTrace(entries)
	require.Len(t, clauses, 1)

	selected, sat := Solve(clauses, gen.NumVars())
	require.True(t, sat)

	sites, err := ApplyFences(m, gen, selected)
	require.NoError(t, err)
	require.Equal(t, []module.FenceSite{{AfterLabel: 2, Kind: "membar_sl"}}, m.Fences())
	require.Equal(t, sites, m.Fences())
}
