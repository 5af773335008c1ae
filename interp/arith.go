// Copyright (C) 2023 Huawei Technologies Co., Ltd. All rights reserved.
// SPDX-License-Identifier: MIT

package interp

import (
	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/enum"
	irtypes "github.com/llir/llvm/ir/types"
	irvalue "github.com/llir/llvm/ir/value"

	"dfence/state"
	"dfence/value"
)

// evalNonCall executes every instruction family of spec.md §4.C other
// than call/invoke and the block terminators, returning the value to
// bind to the instruction's identifier (invalid for instructions with no
// result, such as store).
func (it *Interp) evalNonCall(tag state.Tag, fr *state.Frame, in ir.Instruction) (value.Value, bool) {
	switch in := in.(type) {
	case *ir.InstAdd:
		return it.intBinOp(fr, value.Add, in.X, in.Y), true
	case *ir.InstSub:
		return it.intBinOp(fr, value.Sub, in.X, in.Y), true
	case *ir.InstMul:
		return it.intBinOp(fr, value.Mul, in.X, in.Y), true
	case *ir.InstSDiv:
		return it.intBinOpOrFault(fr, value.SDiv, in.X, in.Y), true
	case *ir.InstUDiv:
		return it.intBinOpOrFault(fr, value.UDiv, in.X, in.Y), true
	case *ir.InstSRem:
		return it.intBinOpOrFault(fr, value.SRem, in.X, in.Y), true
	case *ir.InstURem:
		return it.intBinOpOrFault(fr, value.URem, in.X, in.Y), true
	case *ir.InstAnd:
		return it.intBinOp(fr, value.And, in.X, in.Y), true
	case *ir.InstOr:
		return it.intBinOp(fr, value.Or, in.X, in.Y), true
	case *ir.InstXor:
		return it.intBinOp(fr, value.Xor, in.X, in.Y), true
	case *ir.InstShl:
		return it.intBinOp(fr, value.Shl, in.X, in.Y), true
	case *ir.InstLShr:
		return it.intBinOp(fr, value.LShr, in.X, in.Y), true
	case *ir.InstAShr:
		return it.intBinOp(fr, value.AShr, in.X, in.Y), true

	case *ir.InstFAdd:
		return it.floatBinOp(fr, value.FAdd, in.X, in.Y), true
	case *ir.InstFSub:
		return it.floatBinOp(fr, value.FSub, in.X, in.Y), true
	case *ir.InstFMul:
		return it.floatBinOp(fr, value.FMul, in.X, in.Y), true
	case *ir.InstFDiv:
		return it.floatBinOp(fr, value.FDiv, in.X, in.Y), true
	case *ir.InstFRem:
		return it.floatBinOp(fr, value.FRem, in.X, in.Y), true

	case *ir.InstICmp:
		x, y := it.eval(fr, in.X), it.eval(fr, in.Y)
		if x.Kind == value.Pointer {
			return boolValue(intPtrCompare(in.Pred, x.Ptr, y.Ptr)), true
		}
		return boolValue(value.IntCompare(intPred(in.Pred), x, y)), true
	case *ir.InstFCmp:
		x, y := it.eval(fr, in.X), it.eval(fr, in.Y)
		return boolValue(value.FloatCompare64(floatPred(in.Pred), toF64(x), toF64(y))), true

	case *ir.InstTrunc:
		return value.Trunc(it.eval(fr, in.From), widthOf(in.To)), true
	case *ir.InstZExt:
		return value.ZExt(it.eval(fr, in.From), widthOf(in.To)), true
	case *ir.InstSExt:
		return value.SExt(it.eval(fr, in.From), widthOf(in.To)), true
	case *ir.InstFPTrunc:
		return value.NewFloat32(value.FPTrunc(toF64(it.eval(fr, in.From)))), true
	case *ir.InstFPExt:
		return value.NewFloat64(value.FPExt(float32(toF64(it.eval(fr, in.From))))), true
	case *ir.InstFPToSI:
		return value.FPToSI(toF64(it.eval(fr, in.From)), widthOf(in.To)), true
	case *ir.InstFPToUI:
		return value.FPToUI(toF64(it.eval(fr, in.From)), widthOf(in.To)), true
	case *ir.InstSIToFP:
		return floatOfWidth(value.SIToFP(it.eval(fr, in.From)), widthOf(in.To)), true
	case *ir.InstUIToFP:
		return floatOfWidth(value.UIToFP(it.eval(fr, in.From)), widthOf(in.To)), true
	case *ir.InstPtrToInt:
		return value.PtrToInt(it.eval(fr, in.From), widthOf(in.To)), true
	case *ir.InstIntToPtr:
		return value.IntToPtr(it.eval(fr, in.From), widthOf(in.To)), true
	case *ir.InstBitCast:
		return value.BitCast(it.eval(fr, in.From), kindOf(in.To), widthOf(in.To)), true

	case *ir.InstAlloca:
		return it.execAlloca(fr, in), true
	case *ir.InstGetElementPtr:
		return it.execGEP(fr, in), true
	case *ir.InstLoad:
		return it.execLoad(tag, fr, in)
	case *ir.InstStore:
		return value.Value{}, it.execStore(tag, fr, in) == nil
	case *ir.InstSelect:
		cond := it.eval(fr, in.Cond)
		if !cond.IsZero() {
			return it.eval(fr, in.ValueTrue), true
		}
		return it.eval(fr, in.ValueFalse), true
	case *ir.InstPhi:
		// Handled in bulk by execPhis when entering a block, so that
		// every incoming value is read before any is written (spec.md
		// §4.C, "simultaneous-update semantics"). Reaching one here
		// means it was already evaluated; just re-read it.
		v, _ := fr.Get(in.Ident())
		return v, true

	default:
		return value.Value{}, false
	}
}

func (it *Interp) intBinOp(fr *state.Frame, op value.IntBinOp, xo, yo irvalue.Value) value.Value {
	x, y := it.eval(fr, xo), it.eval(fr, yo)
	v, ok := value.IntBinary(op, x, y)
	if !ok {
		it.fatalFault("integer division or remainder by zero")
		return value.Zero(value.Int, x.Width)
	}
	return v
}

// intBinOpOrFault is intBinOp under a name that documents, at call
// sites, that the operator can legitimately raise a fault (division and
// remainder).
func (it *Interp) intBinOpOrFault(fr *state.Frame, op value.IntBinOp, xo, yo irvalue.Value) value.Value {
	return it.intBinOp(fr, op, xo, yo)
}

func (it *Interp) floatBinOp(fr *state.Frame, op value.FloatBinOp, xo, yo irvalue.Value) value.Value {
	x, y := it.eval(fr, xo), it.eval(fr, yo)
	if x.Kind == value.Float32 {
		return value.NewFloat32(value.FloatBinary32(op, x.F32, y.F32))
	}
	return value.NewFloat64(value.FloatBinary64(op, toF64(x), toF64(y)))
}

func boolValue(b bool) value.Value {
	if b {
		return value.NewUint(1, 1)
	}
	return value.NewUint(0, 1)
}

func toF64(v value.Value) float64 {
	switch v.Kind {
	case value.Float32:
		return float64(v.F32)
	case value.Float64:
		return v.F64
	default:
		return 0
	}
}

func floatOfWidth(f float64, width int) value.Value {
	if width == 32 {
		return value.NewFloat32(float32(f))
	}
	return value.NewFloat64(f)
}

func kindOf(t irtypes.Type) value.Kind {
	switch t := t.(type) {
	case *irtypes.PointerType:
		return value.Pointer
	case *irtypes.FloatType:
		if floatWidth(t) == 32 {
			return value.Float32
		}
		return value.Float64
	default:
		return value.Int
	}
}

func intPred(p enum.IPred) value.IntPred {
	switch p {
	case enum.IPredEQ:
		return value.IEq
	case enum.IPredNE:
		return value.INe
	case enum.IPredUGT:
		return value.IUgt
	case enum.IPredUGE:
		return value.IUge
	case enum.IPredULT:
		return value.IUlt
	case enum.IPredULE:
		return value.IUle
	case enum.IPredSGT:
		return value.ISgt
	case enum.IPredSGE:
		return value.ISge
	case enum.IPredSLT:
		return value.ISlt
	case enum.IPredSLE:
		return value.ISle
	default:
		return value.IEq
	}
}

func intPtrCompare(p enum.IPred, x, y uint64) bool {
	switch p {
	case enum.IPredEQ:
		return x == y
	case enum.IPredNE:
		return x != y
	case enum.IPredUGT:
		return x > y
	case enum.IPredUGE:
		return x >= y
	case enum.IPredULT:
		return x < y
	case enum.IPredULE:
		return x <= y
	default:
		return x == y
	}
}

func floatPred(p enum.FPred) value.FloatPred {
	switch p {
	case enum.FPredOEQ:
		return value.FOEq
	case enum.FPredONE:
		return value.FONe
	case enum.FPredOLT:
		return value.FOLt
	case enum.FPredOLE:
		return value.FOLe
	case enum.FPredOGT:
		return value.FOGt
	case enum.FPredOGE:
		return value.FOGe
	case enum.FPredUEQ:
		return value.FUEq
	case enum.FPredUNE:
		return value.FUNe
	case enum.FPredULT:
		return value.FULt
	case enum.FPredULE:
		return value.FULe
	case enum.FPredUGT:
		return value.FUGt
	case enum.FPredUGE:
		return value.FUGe
	default:
		return value.FOEq
	}
}
