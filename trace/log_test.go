// Copyright (C) 2023 Huawei Technologies Co., Ltd. All rights reserved.
// SPDX-License-Identifier: MIT

package trace

import (
	"testing"

	"dfence/value"
)

func TestLogReadWriteAppendsEntries(t *testing.T) {
	l := NewLog(nil)
	l.LogWrite(1, 0x10, value.NewInt(1, 32), 5)
	l.LogRead(1, 0x10, value.NewInt(1, 32), 6)
	if len(l.RW) != 2 {
		t.Fatalf("len(l.RW) = %d, want 2", len(l.RW))
	}
	if l.RW[0].Op != Write || l.RW[1].Op != Read {
		t.Fatalf("RW ops = %v, %v, want Write, Read", l.RW[0].Op, l.RW[1].Op)
	}
}

func TestEnterExitCallOnlyRecordsOuterFrame(t *testing.T) {
	l := NewLog([]string{"enqueue"})
	l.EnterCall(1, "enqueue", []value.Value{value.NewInt(1, 32)})
	l.EnterCall(1, "enqueue", nil) // reentrant call, should not double-log
	l.ExitCall(1, "enqueue", value.NewInt(0, 32))
	l.ExitCall(1, "enqueue", value.NewInt(0, 32))
	if len(l.History) != 2 {
		t.Fatalf("len(l.History) = %d, want 2 (one CALL, one RETURN)", len(l.History))
	}
	if l.History[0].Kind != Call || l.History[1].Kind != Return {
		t.Fatalf("History kinds = %v, %v", l.History[0].Kind, l.History[1].Kind)
	}
}

func TestEnterCallIgnoresUnrecordedFunctions(t *testing.T) {
	l := NewLog([]string{"enqueue"})
	l.EnterCall(1, "malloc", nil)
	l.ExitCall(1, "malloc", value.Value{})
	if len(l.History) != 0 {
		t.Fatalf("len(l.History) = %d, want 0 for an unrecorded function", len(l.History))
	}
}

func TestIntArgsZeroesFloatArguments(t *testing.T) {
	l := NewLog([]string{"f"})
	l.EnterCall(1, "f", []value.Value{value.NewInt(3, 32), value.NewFloat64(1.5)})
	if got := l.History[0].Args; len(got) != 2 || got[0] != 3 || got[1] != 0 {
		t.Fatalf("Args = %v, want [3 0]", got)
	}
}
