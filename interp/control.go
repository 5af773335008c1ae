// Copyright (C) 2023 Huawei Technologies Co., Ltd. All rights reserved.
// SPDX-License-Identifier: MIT

package interp

import (
	"github.com/llir/llvm/ir"
	irconstant "github.com/llir/llvm/ir/constant"

	"dfence/state"
	"dfence/value"
)

const blockAddrBase = uint64(1) << 49

func (it *Interp) blockAddrOf(b *ir.Block) uint64 {
	if a, ok := it.addrOfBlock[b]; ok {
		return a
	}
	a := it.nextBlockAddr
	it.nextBlockAddr++
	it.addrOfBlock[b] = a
	it.blockAddr[a] = b
	return a
}

// jump moves fr to block, evaluating any PHI nodes at its head with
// simultaneous-update semantics: every incoming value is read against
// the frame's *pre-jump* bindings before any is written (spec.md §4.C,
// "PHI nodes").
func (it *Interp) jump(fr *state.Frame, block *ir.Block) {
	from := fr.Block
	incoming := make(map[string]value.Value)
	for _, in := range block.Insts {
		phi, ok := in.(*ir.InstPhi)
		if !ok {
			break
		}
		for _, inc := range phi.Incs {
			if inc.Pred == from {
				incoming[phi.Ident()] = it.eval(fr, inc.X)
				break
			}
		}
	}
	fr.Jump(block)
	for ident, v := range incoming {
		fr.Set(ident, v)
	}
	for fr.CurInst() != nil {
		if _, ok := fr.CurInst().(*ir.InstPhi); !ok {
			break
		}
		fr.Advance()
	}
}

func (it *Interp) stepTerminator(tag state.Tag, fr *state.Frame) Status {
	if fr.Block == nil {
		it.halt("thread %d has no current block", tag)
		return Halted
	}
	switch t := fr.Block.Term.(type) {
	case *ir.TermRet:
		return it.execRet(tag, fr, t)
	case *ir.TermBr:
		it.jump(fr, t.Target.(*ir.Block))
		return Running
	case *ir.TermCondBr:
		cond := it.eval(fr, t.Cond)
		if !cond.IsZero() {
			it.jump(fr, t.TargetTrue.(*ir.Block))
		} else {
			it.jump(fr, t.TargetFalse.(*ir.Block))
		}
		return Running
	case *ir.TermSwitch:
		x := it.eval(fr, t.X)
		for _, c := range t.Cases {
			if x.Equal(it.eval(fr, c.X)) {
				it.jump(fr, c.Target.(*ir.Block))
				return Running
			}
		}
		it.jump(fr, t.TargetDefault.(*ir.Block))
		return Running
	case *ir.TermIndirectBr:
		addr := it.eval(fr, t.Addr)
		blk, ok := it.blockAddr[addr.Ptr]
		if !ok {
			it.halt("indirectbr to unknown target 0x%x", addr.Ptr)
			return Halted
		}
		it.jump(fr, blk)
		return Running
	case *ir.TermInvoke:
		return it.execInvoke(tag, fr, t)
	case *ir.TermResume:
		return it.execUnwind(tag, fr)
	case *ir.TermUnreachable:
		it.fatalFault("unreachable instruction executed")
		return Fault
	default:
		it.halt("unrecognized terminator %T", t)
		return Halted
	}
}

// execRet pops the current frame; if the caller's call site is an
// invoke, control transitions to its normal-destination block (spec.md
// §4.C, "return: pops frame; if caller's call site is an invoke,
// transitions to its normal-destination block").
func (it *Interp) execRet(tag state.Tag, fr *state.Frame, t *ir.TermRet) Status {
	var retVal value.Value
	if t.X != nil {
		retVal = it.eval(fr, t.X)
	}
	stack := it.Threads.Stack(tag)
	stack.Pop(func(addr uint64) error { return it.Mem.Free(addr) })
	caller := stack.Top()
	if caller == nil {
		return Finished
	}
	if fr.Site != nil && t.X != nil {
		if named, ok := fr.Site.Inst.(interface{ Ident() string }); ok {
			caller.Set(named.Ident(), retVal)
		}
	}
	if fr.Site != nil && fr.Site.Invoke != nil {
		it.jump(caller, fr.Site.Invoke.NormalRetTarget.(*ir.Block))
	}
	return Running
}

// execUnwind pops frames until an invoke call site is on top, then
// transitions to its unwind-destination block (spec.md §4.C, "unwind:
// pops frames until an invoke is on top").
func (it *Interp) execUnwind(tag state.Tag, fr *state.Frame) Status {
	stack := it.Threads.Stack(tag)
	for {
		top := stack.Top()
		if top == nil {
			return Finished
		}
		if top.Site != nil && top.Site.Invoke != nil {
			it.jump(top, top.Site.Invoke.ExceptionRetTarget.(*ir.Block))
			return Running
		}
		stack.Pop(func(addr uint64) error { return it.Mem.Free(addr) })
	}
}

func (it *Interp) execInvoke(tag state.Tag, fr *state.Frame, t *ir.TermInvoke) Status {
	callee, ok := t.Invokee.(*ir.Func)
	if !ok {
		if bc, ok := t.Invokee.(*irconstant.ExprBitCast); ok {
			callee, ok = bc.From.(*ir.Func)
			if !ok {
				it.halt("invoke of non-function callee %T", t.Invokee)
				return Halted
			}
		} else {
			it.halt("invoke of non-function callee %T", t.Invokee)
			return Halted
		}
	}
	args := it.evalArgs(fr, t.Args)
	site := &state.CallSite{Caller: fr, Inst: t, Invoke: t}
	calleeFr := state.NewFrame(callee, site)
	bindParams(calleeFr, callee, args)
	it.Threads.Stack(tag).Push(calleeFr)
	return Running
}
