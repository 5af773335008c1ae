// Copyright (C) 2023 Huawei Technologies Co., Ltd. All rights reserved.
// SPDX-License-Identifier: MIT

package state

import (
	"testing"

	"dfence/value"
)

func TestKeyCreateSeedsNullForLiveThreads(t *testing.T) {
	tls := NewTLS()
	tls.KeyCreate("k0", 0, []Tag{1, 2})

	v := tls.GetSpecific(1, "k0")
	if v.Kind != value.Pointer || v.Ptr != 0 {
		t.Fatalf("GetSpecific(1, k0) = %+v, want NULL pointer", v)
	}
}

func TestSetSpecificOverridesSeededValue(t *testing.T) {
	tls := NewTLS()
	tls.KeyCreate("k0", 0, []Tag{1})
	tls.SetSpecific(1, "k0", value.NewPointer(0x42, 64))

	v := tls.GetSpecific(1, "k0")
	if v.Ptr != 0x42 {
		t.Fatalf("GetSpecific after SetSpecific = 0x%x, want 0x42", v.Ptr)
	}
}

func TestTLSIsPerThread(t *testing.T) {
	tls := NewTLS()
	tls.KeyCreate("k0", 0, []Tag{1, 2})
	tls.SetSpecific(1, "k0", value.NewPointer(0x1, 64))

	if got := tls.GetSpecific(2, "k0"); got.Ptr != 0 {
		t.Fatalf("thread 2's k0 = 0x%x, want unaffected by thread 1's SetSpecific", got.Ptr)
	}
}

func TestDestructorsListsRegisteredKeys(t *testing.T) {
	tls := NewTLS()
	tls.KeyCreate("k0", 0xdead, nil)
	tls.KeyCreate("k1", 0, nil)

	ds := tls.Destructors()
	if len(ds) != 2 || ds[0].Destructor != 0xdead {
		t.Fatalf("Destructors() = %+v", ds)
	}
}
