// Copyright (C) 2023 Huawei Technologies Co., Ltd. All rights reserved.
// SPDX-License-Identifier: MIT

package interp

import (
	"github.com/llir/llvm/ir"
	irconstant "github.com/llir/llvm/ir/constant"
	irtypes "github.com/llir/llvm/ir/types"
	irvalue "github.com/llir/llvm/ir/value"

	"dfence/state"
	"dfence/value"
)

// widthOf returns the bit width the interpreter's value.Value uses for
// the given IR type: the declared width for integers, the pointer width
// for pointers, and 64 for every other type, floats included (callers
// that need a float's own width use floatWidth).
func widthOf(t irtypes.Type) int {
	switch t := t.(type) {
	case *irtypes.IntType:
		return int(t.BitSize)
	case *irtypes.PointerType:
		return 64
	default:
		return 64
	}
}

func floatWidth(t *irtypes.FloatType) int {
	switch t.Kind {
	case irtypes.FloatKindFloat:
		return 32
	default:
		return 64
	}
}

// eval resolves an IR operand to a runtime value.Value, consulting the
// current frame's locals for identifiers and evaluating literal
// constants directly.
func (it *Interp) eval(fr *state.Frame, v irvalue.Value) value.Value {
	switch v := v.(type) {
	case *irconstant.Int:
		return value.NewBigInt(v.X, widthOf(v.Typ), true)
	case *irconstant.Float:
		f, _ := v.X.Float64()
		if floatWidth(v.Typ) == 32 {
			return value.NewFloat32(float32(f))
		}
		return value.NewFloat64(f)
	case *irconstant.Null:
		return value.NewPointer(0, 64)
	case *irconstant.ZeroInitializer:
		return value.Zero(value.Int, widthOf(v.Typ))
	case *irconstant.BlockAddress:
		return value.NewPointer(it.blockAddrOf(v.Block.(*ir.Block)), 64)
	case *ir.Global:
		if addr, ok := it.globalAddr[v]; ok {
			return value.NewPointer(addr, 64)
		}
		return value.NewPointer(0, 64)
	case *ir.Func:
		return value.NewPointer(it.FuncAddr(v), 64)
	default:
		ident, ok := v.(interface{ Ident() string })
		if !ok {
			return value.Value{}
		}
		val, ok := fr.Get(ident.Ident())
		if ok {
			return val
		}
		return value.Value{}
	}
}

// evalArgs evaluates every call/invoke argument in order.
func (it *Interp) evalArgs(fr *state.Frame, args []irvalue.Value) []value.Value {
	out := make([]value.Value, len(args))
	for i, a := range args {
		out[i] = it.eval(fr, a)
	}
	return out
}
