// Copyright (C) 2023 Huawei Technologies Co., Ltd. All rights reserved.
// SPDX-License-Identifier: MIT

package value

import "math/big"

// Trunc truncates an integer to a narrower width.
func Trunc(v Value, width int) Value {
	return NewBigInt(v.I, width, true)
}

// ZExt zero-extends an integer to a wider width.
func ZExt(v Value, width int) Value {
	return NewBigInt(unsigned(v), width, false)
}

// SExt sign-extends an integer to a wider width.
func SExt(v Value, width int) Value {
	return NewBigInt(v.I, width, true)
}

// FPTrunc narrows a double to a single precision float.
func FPTrunc(v float64) float32 { return float32(v) }

// FPExt widens a single precision float to double.
func FPExt(v float32) float64 { return float64(v) }

// FPToSI converts a float to a signed integer of the given width.
func FPToSI(f float64, width int) Value {
	bi, _ := big.NewFloat(f).Int(nil)
	return NewBigInt(bi, width, true)
}

// FPToUI converts a float to an unsigned integer of the given width.
func FPToUI(f float64, width int) Value {
	bi, _ := big.NewFloat(f).Int(nil)
	return NewBigInt(bi, width, false)
}

// SIToFP converts a signed integer to a double.
func SIToFP(v Value) float64 {
	f := new(big.Float).SetInt(v.I)
	r, _ := f.Float64()
	return r
}

// UIToFP converts an unsigned integer to a double.
func UIToFP(v Value) float64 {
	f := new(big.Float).SetInt(unsigned(v))
	r, _ := f.Float64()
	return r
}

// PtrToInt reinterprets a pointer as an integer of the given width.
func PtrToInt(v Value, width int) Value {
	return NewUint(v.Ptr, width)
}

// IntToPtr reinterprets an integer as a pointer of the given width.
func IntToPtr(v Value, width int) Value {
	return NewPointer(unsigned(v).Uint64(), width)
}

// BitCast reinterprets the bit pattern of v as kind k without changing
// its size; used for pointer<->pointer and same-width integer casts.
func BitCast(v Value, k Kind, width int) Value {
	switch k {
	case Pointer:
		if v.Kind == Pointer {
			return v
		}
		return NewPointer(v.Uint64(), width)
	case Int:
		if v.Kind == Pointer {
			return NewUint(v.Ptr, width)
		}
		return NewBigInt(v.I, width, true)
	default:
		return v
	}
}
