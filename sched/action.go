// Copyright (C) 2023 Huawei Technologies Co., Ltd. All rights reserved.
// SPDX-License-Identifier: MIT

// Package sched implements the non-deterministic scheduler of spec.md
// §4.E: at every interpreter step it decides whether to keep running the
// current thread, switch to another enabled thread, or flush a pending
// store buffer entry.
package sched

import "dfence/state"

// Kind is the taxonomy of scheduling actions (grounded on the original
// implementation's Action.h, spec.md SPEC_FULL supplement).
type Kind int

const (
	// Continue keeps running the current thread.
	Continue Kind = iota
	// SwitchThread hands control to another enabled thread.
	SwitchThread
	// FlushBuffer commits one pending store of some thread.
	FlushBuffer
	// NoAction is emitted when a flush was chosen but nothing is
	// pending to flush (e.g. under SC, or a thread with an empty
	// buffer).
	NoAction
)

// Action is the scheduler's decision for one interpreter step.
type Action struct {
	Kind   Kind
	Thread state.Tag // thread to run, or whose buffer to flush
	Addr   uint64    // PSO address to flush, when applicable
}

// Query is the interpreter-provided state the scheduler decides from.
type Query struct {
	// Current is the thread that ran the last instruction.
	Current state.Tag
	// LastTouchedShared reports whether the last instruction accessed
	// shared (non-stack) memory.
	LastTouchedShared bool
	// CurrentEnabled reports whether Current can still make progress.
	CurrentEnabled bool
	// Live lists every thread able to run next.
	Live []state.Tag
	// PendingFlush reports, for each live thread, whether it has any
	// pending buffered store (TSO). Neither scheduler reads it: a TSO
	// flush target is picked from Live.
	PendingFlush map[state.Tag]bool
	// PendingPSOAddrs lists, for each live thread with a PSO buffer,
	// the addresses with a non-empty per-address queue.
	PendingPSOAddrs map[state.Tag][]uint64
}
