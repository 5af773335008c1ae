// Copyright (C) 2023 Huawei Technologies Co., Ltd. All rights reserved.
// SPDX-License-Identifier: MIT

// Package memmodel implements the address model of spec.md §3: a flat
// byte-addressable memory arena plus one of the two equivalent
// addressing configurations (native-only or virtualized). The active
// configuration is selected once, at construction, and the rest of the
// interpreter never distinguishes between them (spec.md §9, open
// question on virtualized/physical address modes).
package memmodel

import (
	"fmt"
)

const (
	// virtualBase is the first address handed out by virtualized
	// allocation, matching spec.md's "starts at 2^12".
	virtualBase = uint64(1) << 12
	// pageAlign is the alignment/gap granularity for virtualized
	// allocations ("aligned to 2^12", "padded by a fixed gap").
	pageAlign = uint64(1) << 12
)

// Memory is the process-wide byte arena backing every allocation, global
// variable, and stack frame. Addresses are always uint64; whether they
// are "native" or "virtual" is purely a matter of which Addressing was
// selected when the Memory was built.
type Memory struct {
	virtual   bool
	arena     []byte
	nextNat   uint64
	nextVirt  uint64
	sizeAtNat map[uint64]int
	v2n       map[uint64]uint64
	n2v       map[uint64]uint64
	sizeAtVrt map[uint64]int
}

// New returns a Memory using native addressing when virtual is false, or
// virtualized addressing (synthetic addresses translated to arena
// offsets) when true.
func New(virtual bool) *Memory {
	return &Memory{
		virtual:   virtual,
		nextNat:   1, // reserve 0 as the null pointer
		nextVirt:  virtualBase,
		sizeAtNat: make(map[uint64]int),
		v2n:       make(map[uint64]uint64),
		n2v:       make(map[uint64]uint64),
		sizeAtVrt: make(map[uint64]int),
	}
}

// IsVirtual reports whether this Memory hands out synthetic addresses.
func (m *Memory) IsVirtual() bool { return m.virtual }

// Alloc reserves size bytes and returns the address user code should see
// (a native offset, or a synthetic virtual address).
func (m *Memory) Alloc(size int) uint64 {
	if size < 0 {
		size = 0
	}
	native := m.nextNat
	m.arena = append(m.arena, make([]byte, size)...)
	m.nextNat += uint64(size)
	m.sizeAtNat[native] = size

	if !m.virtual {
		return native
	}
	virt := m.nextVirt
	gap := pageAlign
	if extra := uint64(size) % pageAlign; extra != 0 {
		gap += pageAlign - extra
	}
	m.nextVirt += uint64(size) + gap
	m.v2n[virt] = native
	m.n2v[native] = virt
	m.sizeAtVrt[virt] = size
	return virt
}

// Free releases the allocation whose base is addr. It is an error to
// free anything but a previously returned allocation base.
func (m *Memory) Free(addr uint64) error {
	if m.virtual {
		native, ok := m.v2n[addr]
		if !ok {
			return fmt.Errorf("free of non-base or stale pointer 0x%x", addr)
		}
		delete(m.v2n, addr)
		delete(m.n2v, native)
		delete(m.sizeAtVrt, addr)
		delete(m.sizeAtNat, native)
		return nil
	}
	if _, ok := m.sizeAtNat[addr]; !ok {
		return fmt.Errorf("free of non-base or stale pointer 0x%x", addr)
	}
	delete(m.sizeAtNat, addr)
	return nil
}

// SizeOf returns the size of the allocation with the given base address.
func (m *Memory) SizeOf(addr uint64) (int, bool) {
	if m.virtual {
		sz, ok := m.sizeAtVrt[addr]
		return sz, ok
	}
	sz, ok := m.sizeAtNat[addr]
	return sz, ok
}

// resolve finds the (base, offset) pair the given address falls within,
// walking every live allocation. It is used both to translate virtual
// addresses to native ones and to validate arbitrary in-bounds pointers
// (spec.md: "any pointer can be resolved back to its base").
func (m *Memory) resolve(addr uint64) (base, native uint64, size int, ok bool) {
	if m.virtual {
		for vbase, sz := range m.sizeAtVrt {
			if addr >= vbase && addr < vbase+uint64(sz) {
				return vbase, m.v2n[vbase] + (addr - vbase), sz, true
			}
		}
		return 0, 0, 0, false
	}
	for nbase, sz := range m.sizeAtNat {
		if addr >= nbase && addr < nbase+uint64(sz) {
			return nbase, addr, sz, true
		}
	}
	return 0, 0, 0, false
}

// Base returns the allocation base address containing addr.
func (m *Memory) Base(addr uint64) (uint64, bool) {
	base, _, _, ok := m.resolve(addr)
	return base, ok
}

// Read copies n bytes starting at addr into a fresh slice. Reads that
// fall outside any live allocation return an error, surfaced by the
// interpreter as a segmentation fault (spec.md §4.C, "Failure
// semantics").
func (m *Memory) Read(addr uint64, n int) ([]byte, error) {
	_, native, size, ok := m.resolveRange(addr, n)
	if !ok {
		return nil, fmt.Errorf("out-of-bounds read at 0x%x (len %d, alloc size %d)", addr, n, size)
	}
	out := make([]byte, n)
	copy(out, m.arena[native:native+uint64(n)])
	return out, nil
}

// Write copies data into the arena at addr.
func (m *Memory) Write(addr uint64, data []byte) error {
	_, native, size, ok := m.resolveRange(addr, len(data))
	if !ok {
		return fmt.Errorf("out-of-bounds write at 0x%x (len %d, alloc size %d)", addr, len(data), size)
	}
	copy(m.arena[native:native+uint64(len(data))], data)
	return nil
}

func (m *Memory) resolveRange(addr uint64, n int) (base, native uint64, size int, ok bool) {
	base, native, size, ok = m.resolve(addr)
	if !ok {
		return
	}
	end := (addr - base) + uint64(n)
	if end > uint64(size) {
		return base, native, size, false
	}
	return
}
