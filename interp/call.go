// Copyright (C) 2023 Huawei Technologies Co., Ltd. All rights reserved.
// SPDX-License-Identifier: MIT

package interp

import (
	"strings"

	"github.com/llir/llvm/ir"
	irconstant "github.com/llir/llvm/ir/constant"

	"dfence/state"
	"dfence/value"
)

func calleeName(ident string) string {
	return strings.TrimPrefix(ident, "@")
}

// resolveCallee evaluates a call's arguments and resolves its callee to
// a bare function name, following bitcasts and function-pointer loads
// (spec.md §4.C, "Call/invoke: external intrinsics first ... else push
// frame and continue").
func (it *Interp) resolveCallee(fr *state.Frame, callee interface{}, argVals []value.Value) (string, bool) {
	switch c := callee.(type) {
	case *ir.Func:
		return calleeName(c.Ident()), true
	case *irconstant.ExprBitCast:
		if f, ok := c.From.(*ir.Func); ok {
			return calleeName(f.Ident()), true
		}
	}
	if v, ok := callee.(interface{ Ident() string }); ok {
		if val, ok := fr.Get(v.Ident()); ok && val.Kind == value.Pointer {
			if f, ok := it.FuncAt(val.Ptr); ok {
				return calleeName(f.Ident()), true
			}
		}
	}
	return "", false
}

// stepCall dispatches an *ir.InstCall: intrinsics first, otherwise a new
// frame is pushed for the callee (spec.md §4.C).
func (it *Interp) stepCall(tag state.Tag, fr *state.Frame, call *ir.InstCall) bool {
	args := it.evalArgs(fr, call.Args)
	name, ok := it.resolveCallee(fr, call.Callee, args)
	if !ok {
		it.halt("cannot resolve callee %v", call.Callee)
		return false
	}

	if handler, isIntrinsic := intrinsicTable[name]; isIntrinsic {
		it.curLabel = it.Mod.LabelOf(call)
		it.Log.EnterCall(tag, name, args)
		ret, err := handler(it, tag, fr, args)
		it.Log.ExitCall(tag, name, ret)
		if err != nil {
			return false
		}
		if ret.IsValid() {
			fr.Set(call.Ident(), ret)
		}
		return true
	}

	target, ok := it.Mod.Func(name)
	if !ok {
		it.halt("call to unknown function %q", name)
		return false
	}
	it.Log.EnterCall(tag, name, args)
	site := &state.CallSite{Caller: fr, Inst: call}
	calleeFr := state.NewFrame(target, site)
	bindParams(calleeFr, target, args)
	it.Threads.Stack(tag).Push(calleeFr)
	return true
}

func bindParams(fr *state.Frame, target *ir.Func, args []value.Value) {
	for i, p := range target.Params {
		if i >= len(args) {
			break
		}
		fr.Set(p.Ident(), args[i])
	}
	if len(args) > len(target.Params) {
		fr.VarArgs = append(fr.VarArgs, args[len(target.Params):]...)
	}
}
