// Copyright (C) 2023 Huawei Technologies Co., Ltd. All rights reserved.
// SPDX-License-Identifier: MIT

package trace

import (
	"testing"

	"dfence/value"
)

func TestFilteredDropsSingleThreadLocations(t *testing.T) {
	l := NewLog(nil)
	l.LogSpawn(2)
	l.LogWrite(1, 0x10, value.NewInt(1, 32), 1) // private to thread 1
	l.LogWrite(2, 0x20, value.NewInt(2, 32), 2) // shared: both threads touch 0x20
	l.LogRead(1, 0x20, value.NewInt(2, 32), 3)
	l.LogJoin(2)

	out := l.Filtered()
	for _, e := range out {
		if e.HasLoc && e.Location == 0x10 {
			t.Fatalf("Filtered() kept a location touched by only one thread: %+v", e)
		}
	}
	sawShared := false
	for _, e := range out {
		if e.HasLoc && e.Location == 0x20 {
			sawShared = true
		}
	}
	if !sawShared {
		t.Fatal("Filtered() dropped a location touched by two threads")
	}
}

func TestFilteredWithNoSpawnJoinFiltersWholeLog(t *testing.T) {
	l := NewLog(nil)
	l.LogWrite(1, 0x10, value.NewInt(1, 32), 1)
	out := l.Filtered()
	if len(out) != 0 {
		t.Fatalf("Filtered() = %v, want empty: the single location is touched by only one thread", out)
	}
}

func TestFilteredEmptyLog(t *testing.T) {
	l := NewLog(nil)
	if out := l.Filtered(); out != nil {
		t.Fatalf("Filtered() on an empty log = %v, want nil", out)
	}
}
