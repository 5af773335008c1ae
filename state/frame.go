// Copyright (C) 2023 Huawei Technologies Co., Ltd. All rights reserved.
// SPDX-License-Identifier: MIT

// Package state implements the per-thread execution state of spec.md §3:
// activation frames, thread stacks, and thread-local storage keys.
package state

import (
	"github.com/llir/llvm/ir"
	irvalue "github.com/llir/llvm/ir/value"

	"dfence/value"
)

// Alloca is a stack-allocated object tracked by the frame that created
// it, so it can be released when the frame pops (spec.md §3 invariant:
// "A frame pop frees every alloca it tracks").
type Alloca struct {
	Addr uint64
	Size int
}

// CallSite records where control returns to when a frame's function
// returns, and how the invoking instruction (call or invoke) is
// reachable so a return value can be routed into it.
type CallSite struct {
	Caller *Frame
	Inst   irvalue.Named
	Invoke *ir.TermInvoke // non-nil when the call site is an invoke
}

// Frame is one function activation (spec.md §3, "Execution frame").
type Frame struct {
	Func    *ir.Func
	Block   *ir.Block
	Cursor  int // index of the next instruction in Block.Insts to run
	Locals  map[string]value.Value
	VarArgs []value.Value
	Site    *CallSite
	Allocas []Alloca
}

// NewFrame returns a fresh frame at the entry block of fn.
func NewFrame(fn *ir.Func, site *CallSite) *Frame {
	f := &Frame{
		Func:   fn,
		Locals: make(map[string]value.Value),
		Site:   site,
	}
	if len(fn.Blocks) > 0 {
		f.Block = fn.Blocks[0]
	}
	return f
}

// Get reads a local binding by its IR identifier.
func (f *Frame) Get(ident string) (value.Value, bool) {
	v, ok := f.Locals[ident]
	return v, ok
}

// Set writes a local binding.
func (f *Frame) Set(ident string, v value.Value) {
	f.Locals[ident] = v
}

// Jump moves control to the start of block, resetting the cursor. Used
// by branch/switch/indirectbr (spec.md §4.C, "Control flow").
func (f *Frame) Jump(block *ir.Block) {
	f.Block = block
	f.Cursor = 0
}

// CurInst returns the instruction under the cursor, or nil once the
// cursor has passed every instruction in Block.Insts. The terminator is
// in Block.Term, not Block.Insts, so it is never returned here.
func (f *Frame) CurInst() ir.Instruction {
	if f.Block == nil || f.Cursor >= len(f.Block.Insts) {
		return nil
	}
	return f.Block.Insts[f.Cursor]
}

// Advance moves the cursor to the next instruction in the block.
func (f *Frame) Advance() {
	f.Cursor++
}

// AddAlloca records a stack allocation owned by this frame.
func (f *Frame) AddAlloca(addr uint64, size int) {
	f.Allocas = append(f.Allocas, Alloca{Addr: addr, Size: size})
}
