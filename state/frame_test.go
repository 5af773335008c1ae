// Copyright (C) 2023 Huawei Technologies Co., Ltd. All rights reserved.
// SPDX-License-Identifier: MIT

package state

import (
	"testing"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/types"

	"dfence/value"
)

func TestFrameLocalsGetSet(t *testing.T) {
	f := newTestFrame()
	if _, ok := f.Get("%x"); ok {
		t.Fatal("unset local should not be found")
	}
	f.Set("%x", value.NewInt(5, 32))
	got, ok := f.Get("%x")
	if !ok || got.Int64() != 5 {
		t.Fatalf("Get(%%x) = %v, %v, want 5, true", got, ok)
	}
}

func TestFrameJumpResetsCursor(t *testing.T) {
	fn := ir.NewFunc("f", types.Void)
	entry := fn.NewBlock("entry")
	entry.NewAlloca(types.I32)
	entry.NewRet(nil)
	other := fn.NewBlock("other")
	other.NewRet(nil)

	f := NewFrame(fn, nil)
	f.Advance()
	if f.Cursor != 1 {
		t.Fatalf("Cursor after Advance = %d, want 1", f.Cursor)
	}
	f.Jump(other)
	if f.Cursor != 0 || f.Block != other {
		t.Fatalf("Jump did not reset cursor/block: cursor=%d block=%v", f.Cursor, f.Block)
	}
}

func TestFrameCurInstNilPastEnd(t *testing.T) {
	fn := ir.NewFunc("f", types.Void)
	entry := fn.NewBlock("entry")
	entry.NewAlloca(types.I32)
	entry.NewRet(nil)
	f := NewFrame(fn, nil)
	if f.CurInst() == nil {
		t.Fatal("CurInst should return the alloca before the cursor advances past it")
	}
	f.Advance()
	if f.CurInst() != nil {
		t.Fatal("CurInst should be nil once the cursor passes the block's non-terminator instructions")
	}
}
