// Copyright (C) 2023 Huawei Technologies Co., Ltd. All rights reserved.
// SPDX-License-Identifier: MIT

package state

import (
	"testing"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/types"
)

func newTestFrame() *Frame {
	return NewFrame(ir.NewFunc("f", types.Void), nil)
}

func TestNewThreadsStartsWithOnlyBootstrapLive(t *testing.T) {
	th := NewThreads()
	th.Stack(BootstrapTag).Push(newTestFrame())
	live := th.Live()
	if len(live) != 1 || live[0] != BootstrapTag {
		t.Fatalf("Live() = %v, want [BootstrapTag]", live)
	}
}

func TestSpawnAllocatesIncreasingTags(t *testing.T) {
	th := NewThreads()
	a := th.Spawn()
	b := th.Spawn()
	if a == b || b != a+1 {
		t.Fatalf("Spawn() returned %d then %d, want strictly increasing tags", a, b)
	}
}

func TestStackPopFreesEveryAlloca(t *testing.T) {
	var freed []uint64
	free := func(addr uint64) error { freed = append(freed, addr); return nil }

	var s Stack
	f := newTestFrame()
	f.AddAlloca(0x10, 4)
	f.AddAlloca(0x20, 8)
	s.Push(f)
	s.Pop(free)

	if len(freed) != 2 || freed[0] != 0x10 || freed[1] != 0x20 {
		t.Fatalf("freed = %v, want [0x10 0x20]", freed)
	}
	if !s.Empty() {
		t.Fatal("stack should be empty after popping its only frame")
	}
}

func TestLiveExcludesFinishedThreads(t *testing.T) {
	th := NewThreads()
	th.Stack(BootstrapTag).Push(newTestFrame())
	other := th.Spawn()
	th.Stack(other).Push(newTestFrame())

	th.Stack(other).Pop(func(uint64) error { return nil })

	live := th.Live()
	if len(live) != 1 || live[0] != BootstrapTag {
		t.Fatalf("Live() = %v, want only the bootstrap thread", live)
	}
	all := th.All()
	if len(all) != 2 {
		t.Fatalf("All() = %v, want 2 tags (live or finished)", all)
	}
}
