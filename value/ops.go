// Copyright (C) 2023 Huawei Technologies Co., Ltd. All rights reserved.
// SPDX-License-Identifier: MIT

package value

import (
	"math"
	"math/big"
)

// IntBinOp is an integer arithmetic or logical operator (spec.md §4.C).
type IntBinOp int

// The integer binary operators supported by the interpreter.
const (
	Add IntBinOp = iota
	Sub
	Mul
	SDiv
	UDiv
	SRem
	URem
	And
	Or
	Xor
	Shl
	LShr
	AShr
)

// IntBinary evaluates an integer binary operator, truncating the result
// to the operand width. Division/remainder by zero returns ok=false so
// the caller can raise the interpreter's undefined-behavior diagnostic.
func IntBinary(op IntBinOp, a, b Value) (Value, bool) {
	width := a.Width
	zero := b.I.Sign() == 0
	switch op {
	case Add:
		return NewBigInt(new(big.Int).Add(a.I, b.I), width, true), true
	case Sub:
		return NewBigInt(new(big.Int).Sub(a.I, b.I), width, true), true
	case Mul:
		return NewBigInt(new(big.Int).Mul(a.I, b.I), width, true), true
	case SDiv:
		if zero {
			return Value{}, false
		}
		return NewBigInt(new(big.Int).Quo(a.I, b.I), width, true), true
	case UDiv:
		if zero {
			return Value{}, false
		}
		ua, ub := unsigned(a), unsigned(b)
		return NewBigInt(new(big.Int).Quo(ua, ub), width, false), true
	case SRem:
		if zero {
			return Value{}, false
		}
		return NewBigInt(new(big.Int).Rem(a.I, b.I), width, true), true
	case URem:
		if zero {
			return Value{}, false
		}
		ua, ub := unsigned(a), unsigned(b)
		return NewBigInt(new(big.Int).Rem(ua, ub), width, false), true
	case And:
		return NewBigInt(new(big.Int).And(unsigned(a), unsigned(b)), width, false), true
	case Or:
		return NewBigInt(new(big.Int).Or(unsigned(a), unsigned(b)), width, false), true
	case Xor:
		return NewBigInt(new(big.Int).Xor(unsigned(a), unsigned(b)), width, false), true
	case Shl:
		return NewBigInt(new(big.Int).Lsh(a.I, uint(b.Uint64())), width, true), true
	case LShr:
		return NewBigInt(new(big.Int).Rsh(unsigned(a), uint(b.Uint64())), width, false), true
	case AShr:
		return NewBigInt(arithShift(a.I, width, uint(b.Uint64())), width, true), true
	default:
		return Value{}, false
	}
}

func unsigned(v Value) *big.Int {
	if v.I.Sign() >= 0 {
		return v.I
	}
	mod := new(big.Int).Lsh(big.NewInt(1), uint(v.Width))
	return new(big.Int).Add(v.I, mod)
}

func arithShift(v *big.Int, width int, n uint) *big.Int {
	if v.Sign() >= 0 {
		return new(big.Int).Rsh(v, n)
	}
	// sign-extend by working in unsigned space then re-signing.
	mod := new(big.Int).Lsh(big.NewInt(1), uint(width))
	u := new(big.Int).Add(v, mod)
	shifted := new(big.Int).Rsh(u, n)
	// fill the top n bits with 1s
	fill := new(big.Int).Lsh(big.NewInt(1), uint(width))
	fill.Sub(fill, new(big.Int).Lsh(big.NewInt(1), uint(width)-n))
	return new(big.Int).Or(shifted, fill)
}

// IntPred is an integer comparison predicate (spec.md §4.C).
type IntPred int

// The integer comparison predicates supported by the interpreter.
const (
	IEq IntPred = iota
	INe
	IUlt
	IUle
	IUgt
	IUge
	ISlt
	ISle
	ISgt
	ISge
)

// IntCompare evaluates an integer comparison predicate.
func IntCompare(p IntPred, a, b Value) bool {
	switch p {
	case IEq:
		return a.I.Cmp(b.I) == 0
	case INe:
		return a.I.Cmp(b.I) != 0
	case IUlt:
		return unsigned(a).Cmp(unsigned(b)) < 0
	case IUle:
		return unsigned(a).Cmp(unsigned(b)) <= 0
	case IUgt:
		return unsigned(a).Cmp(unsigned(b)) > 0
	case IUge:
		return unsigned(a).Cmp(unsigned(b)) >= 0
	case ISlt:
		return a.I.Cmp(b.I) < 0
	case ISle:
		return a.I.Cmp(b.I) <= 0
	case ISgt:
		return a.I.Cmp(b.I) > 0
	case ISge:
		return a.I.Cmp(b.I) >= 0
	default:
		return false
	}
}

// FloatBinOp is a floating point arithmetic operator.
type FloatBinOp int

// The floating point binary operators supported by the interpreter.
const (
	FAdd FloatBinOp = iota
	FSub
	FMul
	FDiv
	FRem
)

// FloatBinary64 evaluates a double-precision floating point operator.
func FloatBinary64(op FloatBinOp, a, b float64) float64 {
	switch op {
	case FAdd:
		return a + b
	case FSub:
		return a - b
	case FMul:
		return a * b
	case FDiv:
		return a / b
	case FRem:
		return math.Mod(a, b)
	default:
		return math.NaN()
	}
}

// FloatBinary32 evaluates a single-precision floating point operator.
func FloatBinary32(op FloatBinOp, a, b float32) float32 {
	return float32(FloatBinary64(op, float64(a), float64(b)))
}

// FloatPred is a floating point comparison predicate. Unordered variants
// return true when either operand is NaN (spec.md §4.C).
type FloatPred int

// The floating point comparison predicates supported by the interpreter.
const (
	FOEq FloatPred = iota
	FONe
	FOLt
	FOLe
	FOGt
	FOGe
	FUEq
	FUNe
	FULt
	FULe
	FUGt
	FUGe
)

// FloatCompare64 evaluates a floating point comparison predicate.
func FloatCompare64(p FloatPred, a, b float64) bool {
	nan := math.IsNaN(a) || math.IsNaN(b)
	switch p {
	case FOEq:
		return !nan && a == b
	case FONe:
		return !nan && a != b
	case FOLt:
		return !nan && a < b
	case FOLe:
		return !nan && a <= b
	case FOGt:
		return !nan && a > b
	case FOGe:
		return !nan && a >= b
	case FUEq:
		return nan || a == b
	case FUNe:
		return nan || a != b
	case FULt:
		return nan || a < b
	case FULe:
		return nan || a <= b
	case FUGt:
		return nan || a > b
	case FUGe:
		return nan || a >= b
	default:
		return false
	}
}
