// Copyright (C) 2023 Huawei Technologies Co., Ltd. All rights reserved.
// SPDX-License-Identifier: MIT

package interp

import (
	"bytes"
	"fmt"
)

// readCString reads a NUL-terminated string out of the arena, bounded by
// the live allocation addr falls within (used by getenv/nprint_string
// intrinsics, spec.md §4.C).
func (it *Interp) readCString(addr uint64) (string, error) {
	base, ok := it.Mem.Base(addr)
	if !ok {
		return "", fmt.Errorf("invalid string pointer 0x%x", addr)
	}
	size, _ := it.Mem.SizeOf(base)
	n := size - int(addr-base)
	if n <= 0 {
		return "", nil
	}
	data, err := it.Mem.Read(addr, n)
	if err != nil {
		return "", err
	}
	if i := bytes.IndexByte(data, 0); i >= 0 {
		data = data[:i]
	}
	return string(data), nil
}

// allocCString allocates a fresh NUL-terminated copy of s and returns its
// address.
func (it *Interp) allocCString(s string) uint64 {
	addr := it.Mem.Alloc(len(s) + 1)
	buf := append([]byte(s), 0)
	_ = it.Mem.Write(addr, buf)
	return addr
}
