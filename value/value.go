// Copyright (C) 2023 Huawei Technologies Co., Ltd. All rights reserved.
// SPDX-License-Identifier: MIT

// Package value implements the generic, typed value union that flows
// through the interpreter: fixed-width integers, single/double/extended
// precision floats, and pointers, each tagged with the IR type used to
// interpret its bytes (spec.md §3, "Generic value").
package value

import (
	"fmt"
	"math"
	"math/big"
)

// Kind tags the alternative held by a Value.
type Kind int

const (
	// Invalid marks a zero Value.
	Invalid Kind = iota
	// Int is an arbitrary-width integer.
	Int
	// Float32 is an IEEE-754 single precision float.
	Float32
	// Float64 is an IEEE-754 double precision float.
	Float64
	// Float80 is an x87 80-bit extended float, carried as a wide integer.
	Float80
	// Pointer is a virtual (or native) address.
	Pointer
)

func (k Kind) String() string {
	switch k {
	case Int:
		return "int"
	case Float32:
		return "float32"
	case Float64:
		return "float64"
	case Float80:
		return "float80"
	case Pointer:
		return "pointer"
	default:
		return "invalid"
	}
}

// Value is the tagged union of every runtime value the interpreter can
// hold in a register, memory cell, or store-buffer entry.
type Value struct {
	Kind  Kind
	Width int      // bit width for Int and Pointer
	I     *big.Int // Int and Float80 (as a wide integer) payload
	F32   float32
	F64   float64
	Ptr   uint64 // Pointer payload
}

// Zero returns the zero value of the given kind/width.
func Zero(k Kind, width int) Value {
	switch k {
	case Int, Float80:
		return Value{Kind: k, Width: width, I: big.NewInt(0)}
	case Float32:
		return Value{Kind: Float32}
	case Float64:
		return Value{Kind: Float64}
	case Pointer:
		return Value{Kind: Pointer, Width: width}
	default:
		return Value{}
	}
}

// NewInt builds a signed Int value truncated to width bits.
func NewInt(v int64, width int) Value {
	bi := big.NewInt(v)
	return Value{Kind: Int, Width: width, I: truncate(bi, width, true)}
}

// NewUint builds an unsigned Int value truncated to width bits.
func NewUint(v uint64, width int) Value {
	bi := new(big.Int).SetUint64(v)
	return Value{Kind: Int, Width: width, I: truncate(bi, width, false)}
}

// NewBigInt builds an Int value from an arbitrary-precision integer,
// truncated to width bits and interpreted as signed if signed is true.
func NewBigInt(v *big.Int, width int, signed bool) Value {
	return Value{Kind: Int, Width: width, I: truncate(v, width, signed)}
}

// NewPointer builds a Pointer value.
func NewPointer(addr uint64, width int) Value {
	return Value{Kind: Pointer, Width: width, Ptr: addr}
}

// NewFloat32 builds a single-precision float value.
func NewFloat32(f float32) Value { return Value{Kind: Float32, F32: f} }

// NewFloat64 builds a double-precision float value.
func NewFloat64(f float64) Value { return Value{Kind: Float64, F64: f} }

// IsValid reports whether v holds one of the known kinds.
func (v Value) IsValid() bool { return v.Kind != Invalid }

// Int64 returns the value as a signed 64-bit integer, sign-extending or
// truncating as needed. Used by the trace recorder to log call arguments
// (spec.md §4.G: "captures the integer representation").
func (v Value) Int64() int64 {
	switch v.Kind {
	case Int:
		return truncate(v.I, 64, true).Int64()
	case Pointer:
		return int64(v.Ptr)
	case Float32:
		return int64(v.F32)
	case Float64:
		return int64(v.F64)
	case Float80:
		return truncate(v.I, 64, true).Int64()
	default:
		return 0
	}
}

// Uint64 returns the value as an unsigned 64-bit integer. An Int narrower
// than 64 bits is zero-extended from its own width.
func (v Value) Uint64() uint64 {
	switch v.Kind {
	case Int:
		if v.Width > 0 && v.Width < 64 {
			return unsigned(v).Uint64()
		}
		return truncate(v.I, 64, false).Uint64()
	case Float80:
		return truncate(v.I, 64, false).Uint64()
	case Pointer:
		return v.Ptr
	default:
		return uint64(v.Int64())
	}
}

// IsZero reports whether the value is numerically zero.
func (v Value) IsZero() bool {
	switch v.Kind {
	case Int, Float80:
		return v.I == nil || v.I.Sign() == 0
	case Float32:
		return v.F32 == 0
	case Float64:
		return v.F64 == 0
	case Pointer:
		return v.Ptr == 0
	default:
		return true
	}
}

// Equal reports whether v and o have the same kind and the same numeric
// value. Width is not compared; any two NaNs of the same float kind are
// equal, and so are +0 and -0.
func (v Value) Equal(o Value) bool {
	if v.Kind != o.Kind {
		return false
	}
	switch v.Kind {
	case Int, Float80:
		return v.I.Cmp(o.I) == 0
	case Float32:
		return v.F32 == o.F32 || (math.IsNaN(float64(v.F32)) && math.IsNaN(float64(o.F32)))
	case Float64:
		return v.F64 == o.F64 || (math.IsNaN(v.F64) && math.IsNaN(o.F64))
	case Pointer:
		return v.Ptr == o.Ptr
	default:
		return true
	}
}

func (v Value) String() string {
	switch v.Kind {
	case Int:
		return fmt.Sprintf("i%d %v", v.Width, v.I)
	case Float32:
		return fmt.Sprintf("f32 %v", v.F32)
	case Float64:
		return fmt.Sprintf("f64 %v", v.F64)
	case Float80:
		return fmt.Sprintf("f80 0x%x", v.I)
	case Pointer:
		return fmt.Sprintf("ptr%d 0x%x", v.Width, v.Ptr)
	default:
		return "<invalid>"
	}
}

// truncate reduces bi to width bits, interpreting the result as signed
// two's-complement when signed is true.
func truncate(bi *big.Int, width int, signed bool) *big.Int {
	if width <= 0 {
		return new(big.Int).Set(bi)
	}
	mask := new(big.Int).Lsh(big.NewInt(1), uint(width))
	mask.Sub(mask, big.NewInt(1))
	r := new(big.Int).And(bi, mask)
	if signed {
		top := new(big.Int).Lsh(big.NewInt(1), uint(width-1))
		if r.Cmp(top) >= 0 {
			r.Sub(r, new(big.Int).Lsh(big.NewInt(1), uint(width)))
		}
	}
	return r
}
