// Copyright (C) 2023 Huawei Technologies Co., Ltd. All rights reserved.
// SPDX-License-Identifier: MIT

package memmodel

import "testing"

func TestNativeAllocWriteRead(t *testing.T) {
	m := New(false)
	addr := m.Alloc(8)
	if addr == 0 {
		t.Fatal("Alloc must never return the null address")
	}
	if err := m.Write(addr, []byte{1, 2, 3, 4}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := m.Read(addr, 4)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != "\x01\x02\x03\x04" {
		t.Fatalf("Read = %v, want [1 2 3 4]", got)
	}
}

func TestVirtualAddressesAreNotNative(t *testing.T) {
	m := New(true)
	addr := m.Alloc(4)
	if addr < virtualBase {
		t.Fatalf("virtual alloc returned 0x%x, want >= 0x%x", addr, virtualBase)
	}
	if err := m.Write(addr, []byte{9, 9, 9, 9}); err != nil {
		t.Fatalf("Write through virtual address: %v", err)
	}
	got, err := m.Read(addr, 4)
	if err != nil || got[0] != 9 {
		t.Fatalf("Read through virtual address = %v, %v", got, err)
	}
}

func TestOutOfBoundsReadFails(t *testing.T) {
	m := New(false)
	addr := m.Alloc(4)
	if _, err := m.Read(addr, 8); err == nil {
		t.Fatal("reading past the end of a 4-byte allocation must fail")
	}
}

func TestFreeThenReadFails(t *testing.T) {
	m := New(false)
	addr := m.Alloc(4)
	if err := m.Free(addr); err != nil {
		t.Fatalf("Free: %v", err)
	}
	if _, err := m.Read(addr, 1); err == nil {
		t.Fatal("reading a freed allocation must fail")
	}
}

func TestFreeOfNonBasePointerFails(t *testing.T) {
	m := New(false)
	addr := m.Alloc(8)
	if err := m.Free(addr + 4); err == nil {
		t.Fatal("free of a non-base pointer must fail")
	}
}

func TestBaseResolvesInteriorPointer(t *testing.T) {
	m := New(false)
	addr := m.Alloc(16)
	base, ok := m.Base(addr + 4)
	if !ok || base != addr {
		t.Fatalf("Base(addr+4) = (0x%x, %v), want (0x%x, true)", base, ok, addr)
	}
}

func TestSizeOfReportsAllocationSize(t *testing.T) {
	m := New(true)
	addr := m.Alloc(24)
	sz, ok := m.SizeOf(addr)
	if !ok || sz != 24 {
		t.Fatalf("SizeOf = (%d, %v), want (24, true)", sz, ok)
	}
}
