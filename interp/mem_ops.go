// Copyright (C) 2023 Huawei Technologies Co., Ltd. All rights reserved.
// SPDX-License-Identifier: MIT

package interp

import (
	"github.com/llir/llvm/ir"
	irtypes "github.com/llir/llvm/ir/types"

	"dfence/state"
	"dfence/value"
)

// execAlloca allocates a stack object and records it in the frame's
// alloca set (spec.md §3, "Execution frame"; §4.C "alloca (allocate,
// record in frame's alloca set with its byte size)").
func (it *Interp) execAlloca(fr *state.Frame, in *ir.InstAlloca) value.Value {
	n := 1
	if in.NElems != nil {
		n = int(it.eval(fr, in.NElems).Int64())
		if n < 1 {
			n = 1
		}
	}
	size := sizeOfType(in.ElemType) * n
	addr := it.Mem.Alloc(size)
	fr.AddAlloca(addr, size)
	return value.NewPointer(addr, 64)
}

// execGEP performs symbolic offset accumulation over Src's pointee type
// (spec.md §4.C, "getelementptr: symbolic offset accumulation using type
// layout").
func (it *Interp) execGEP(fr *state.Frame, in *ir.InstGetElementPtr) value.Value {
	base := it.eval(fr, in.Src)
	addr := base.Ptr
	if len(in.Indices) == 0 {
		return value.NewPointer(addr, 64)
	}
	cur := in.ElemType
	first := it.eval(fr, in.Indices[0])
	addr += uint64(first.Int64()) * uint64(sizeOfType(cur))

	for _, idxOperand := range in.Indices[1:] {
		idx := it.eval(fr, idxOperand)
		switch t := cur.(type) {
		case *irtypes.ArrayType:
			cur = t.ElemType
			addr += uint64(idx.Int64()) * uint64(sizeOfType(cur))
		case *irtypes.StructType:
			n := int(idx.Int64())
			for i := 0; i < n && i < len(t.Fields); i++ {
				addr += uint64(sizeOfType(t.Fields[i]))
			}
			if n >= 0 && n < len(t.Fields) {
				cur = t.Fields[n]
			}
		default:
			// scalar pointee, no further nesting possible.
		}
	}
	return value.NewPointer(addr, 64)
}

func (it *Interp) execLoad(tag state.Tag, fr *state.Frame, in *ir.InstLoad) (value.Value, bool) {
	ptr := it.eval(fr, in.Src)
	label := it.Mod.LabelOf(in)
	v, err := it.load(tag, fr, ptr.Ptr, kindOf(in.ElemType), widthOf(in.ElemType), label)
	if err != nil {
		return value.Value{}, false
	}
	return v, true
}

func (it *Interp) execStore(tag state.Tag, fr *state.Frame, in *ir.InstStore) error {
	ptr := it.eval(fr, in.Dst)
	v := it.eval(fr, in.Src)
	label := it.Mod.LabelOf(in)
	return it.store(tag, fr, ptr.Ptr, v, label)
}
