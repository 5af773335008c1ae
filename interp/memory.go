// Copyright (C) 2023 Huawei Technologies Co., Ltd. All rights reserved.
// SPDX-License-Identifier: MIT

package interp

import (
	"encoding/binary"
	"math"
	"math/big"

	irtypes "github.com/llir/llvm/ir/types"

	"dfence/state"
	"dfence/value"
)

// sizeOfType returns the byte size of t under a flat, unpadded layout.
// DFENCE's guest programs are small concurrency benchmarks operating on
// scalars, arrays of scalars, and simple structs; this layout is
// sufficient for getelementptr offset arithmetic without reproducing a
// full target data layout (spec.md §4.C, "getelementptr: symbolic offset
// accumulation using type layout").
func sizeOfType(t irtypes.Type) int {
	switch t := t.(type) {
	case *irtypes.IntType:
		return int(t.BitSize+7) / 8
	case *irtypes.PointerType:
		return 8
	case *irtypes.FloatType:
		if floatWidth(t) == 32 {
			return 4
		}
		return 8
	case *irtypes.ArrayType:
		return int(t.Len) * sizeOfType(t.ElemType)
	case *irtypes.StructType:
		total := 0
		for _, f := range t.Fields {
			total += sizeOfType(f)
		}
		return total
	default:
		return 8
	}
}

// encode serializes v into its byte representation for the arena, little
// endian, matching a typical target's in-memory layout.
func encode(v value.Value) []byte {
	switch v.Kind {
	case value.Int:
		n := (v.Width + 7) / 8
		buf := make([]byte, n)
		// truncate() leaves a signed v.I negative; offset it by 2^(8n) so
		// that its low n bytes are the two's complement form.
		u := v.I
		if u.Sign() < 0 {
			u = new(big.Int).Add(u, new(big.Int).Lsh(big.NewInt(1), uint(n*8)))
		}
		bs := u.Bytes()
		for i := 0; i < n && i < len(bs); i++ {
			buf[i] = bs[len(bs)-1-i]
		}
		return buf
	case value.Float32:
		buf := make([]byte, 4)
		binary.LittleEndian.PutUint32(buf, math.Float32bits(v.F32))
		return buf
	case value.Float64:
		buf := make([]byte, 8)
		binary.LittleEndian.PutUint64(buf, math.Float64bits(v.F64))
		return buf
	case value.Float80:
		n := (v.Width + 7) / 8
		if n == 0 {
			n = 10
		}
		buf := make([]byte, n)
		bs := v.I.Bytes()
		for i := 0; i < n && i < len(bs); i++ {
			buf[i] = bs[len(bs)-1-i]
		}
		return buf
	case value.Pointer:
		buf := make([]byte, 8)
		binary.LittleEndian.PutUint64(buf, v.Ptr)
		return buf
	default:
		return nil
	}
}

// decode rebuilds a value.Value of the given kind/width from bytes read
// out of the arena.
func decode(data []byte, kind value.Kind, width int) value.Value {
	switch kind {
	case value.Int:
		buf := make([]byte, len(data))
		for i, b := range data {
			buf[len(data)-1-i] = b
		}
		return value.NewBigInt(new(big.Int).SetBytes(buf), width, true)
	case value.Float32:
		return value.NewFloat32(math.Float32frombits(binary.LittleEndian.Uint32(data)))
	case value.Float64:
		return value.NewFloat64(math.Float64frombits(binary.LittleEndian.Uint64(data)))
	case value.Pointer:
		return value.NewPointer(binary.LittleEndian.Uint64(data), width)
	default:
		return value.Value{}
	}
}

func (it *Interp) writeRaw(addr uint64, v value.Value) error {
	return it.Mem.Write(addr, encode(v))
}

func (it *Interp) readRaw(addr uint64, kind value.Kind, width int) (value.Value, error) {
	n := (width + 7) / 8
	if n == 0 {
		n = 8
	}
	data, err := it.Mem.Read(addr, n)
	if err != nil {
		return value.Value{}, err
	}
	return decode(data, kind, width), nil
}

// isStackAddr reports whether addr belongs to the current frame's alloca
// set, used to route stack stores around the store buffer (spec.md §3
// invariant, "stack stores bypass the buffer").
func isStackAddr(fr *state.Frame, addr uint64) bool {
	for _, a := range fr.Allocas {
		if addr >= a.Addr && addr < a.Addr+uint64(a.Size) {
			return true
		}
	}
	return false
}

// load performs a memory read, consulting the store buffer first under
// TSO/PSO (spec.md §3 invariant on load ordering), and logs a READ entry
// when the address is non-stack.
func (it *Interp) load(tag state.Tag, fr *state.Frame, addr uint64, kind value.Kind, width int, label int) (value.Value, error) {
	stack := isStackAddr(fr, addr)
	if !stack {
		if v, ok := it.Engine.LoadBuffered(tag, addr); ok {
			it.Log.LogRead(tag, addr, v, label)
			it.lastShared = true
			return v, nil
		}
	}
	v, err := it.readRaw(addr, kind, width)
	if err != nil {
		it.fatalFault("%v", err)
		return value.Value{}, err
	}
	if !stack {
		it.Log.LogRead(tag, addr, v, label)
		it.lastShared = true
	}
	return v, nil
}

// store performs a memory write, buffering non-stack addresses under
// TSO/PSO (spec.md §3 invariant), and always logs a WRITE for non-stack
// addresses.
func (it *Interp) store(tag state.Tag, fr *state.Frame, addr uint64, v value.Value, label int) error {
	if isStackAddr(fr, addr) {
		return it.writeRaw(addr, v)
	}
	it.Log.LogWrite(tag, addr, v, label)
	it.lastShared = true
	return it.Engine.Store(tag, addr, v, label)
}
