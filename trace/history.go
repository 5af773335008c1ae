// Copyright (C) 2023 Huawei Technologies Co., Ltd. All rights reserved.
// SPDX-License-Identifier: MIT

package trace

import (
	"dfence/logger"
	"dfence/state"
	"dfence/value"
)

// CallKind distinguishes a CALL entry from its RETURN (spec.md §3,
// "Invocation log").
type CallKind int

// The two kinds of history log entries.
const (
	Call CallKind = iota
	Return
)

// HistEntry is one invocation-log entry.
type HistEntry struct {
	Kind     CallKind
	Function string
	Thread   state.Tag
	Args     []int64
	Ret      int64
}

// EnterCall records entry into fn if it is a recorded function, writing
// a CALL entry only on the 0->1 transition of the thread's recursion
// depth counter (spec.md §4.G).
func (l *Log) EnterCall(tag state.Tag, fn string, args []value.Value) {
	if !l.recorded[fn] {
		return
	}
	d := l.depth[tag]
	l.depth[tag] = d + 1
	if d != 0 {
		return
	}
	l.History = append(l.History, HistEntry{
		Kind:     Call,
		Function: fn,
		Thread:   tag,
		Args:     intArgs(args),
	})
}

// ExitCall records return from fn, writing a RETURN entry only on the
// 1->0 transition.
func (l *Log) ExitCall(tag state.Tag, fn string, ret value.Value) {
	if !l.recorded[fn] {
		return
	}
	d := l.depth[tag]
	if d == 0 {
		return
	}
	d--
	l.depth[tag] = d
	if d != 0 {
		return
	}
	l.History = append(l.History, HistEntry{
		Kind:     Return,
		Function: fn,
		Thread:   tag,
		Ret:      ret.Int64(),
	})
}

// intArgs captures the integer representation of every integer and
// pointer argument; float arguments are zeroed with a warning (spec.md
// §4.G).
func intArgs(args []value.Value) []int64 {
	out := make([]int64, len(args))
	for i, a := range args {
		switch a.Kind {
		case value.Int, value.Pointer:
			out[i] = a.Int64()
		case value.Float32, value.Float64, value.Float80:
			logger.Warnf("recorded call has a float argument at position %d, zeroing it", i)
			out[i] = 0
		}
	}
	return out
}
