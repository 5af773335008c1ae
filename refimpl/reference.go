// Copyright (C) 2023 Huawei Technologies Co., Ltd. All rights reserved.
// SPDX-License-Identifier: MIT

// Package refimpl provides the idempotent, thread-unsafe sequential
// reference implementations spec.md §4.F requires: one per data
// structure family named by the PROGRAM configuration key. Each
// reference is replayed by the checker (dfence/checker) against a
// candidate permutation of the recorded call history.
package refimpl

// Reference is a sequential specification the checker can replay a call
// history against. Apply executes one recorded call and returns the
// value the reference implementation would have returned, or ok=false
// if the call is not applicable in the reference's current state (e.g.
// a malloc reference asked to free an unknown base).
// recordedRet is the return value actually observed in the trace; every
// reference except the malloc one ignores it and computes its own
// return value for the checker to compare. The malloc reference cannot
// invent addresses, so it instead validates recordedRet against its
// bookkeeping (spec.md §4.H, "the reference checks that allocated
// regions do not overlap").
type Reference interface {
	Apply(method string, args []int64, recordedRet int64) (ret int64, ok bool)
	Clone() Reference
}

// Program identifies which reference implementation and recorded-method
// file to use (spec.md §6, key PROGRAM).
type Program int

// The data-structure families DFENCE ships a sequential reference for.
const (
	InvalidProgram Program = iota
	WSQChase
	WSQLifo
	WSQFifo
	WSQThe
	WSQAnchor
	LFMalloc
	SkipList
	MS2
	MSN
	Snark
	LazyList
	Harris
)

// ParseProgram parses the PROGRAM config value.
func ParseProgram(s string) Program {
	switch s {
	case "WSQ_CHASE":
		return WSQChase
	case "WSQ_LIFO":
		return WSQLifo
	case "WSQ_FIFO":
		return WSQFifo
	case "WSQ_THE":
		return WSQThe
	case "WSQ_ANCHOR":
		return WSQAnchor
	case "LF_MALLOC":
		return LFMalloc
	case "SKIP_LIST":
		return SkipList
	case "MS2":
		return MS2
	case "MSN":
		return MSN
	case "SNARK":
		return Snark
	case "LAZYLIST":
		return LazyList
	case "HARRIS":
		return Harris
	default:
		return InvalidProgram
	}
}

// New builds the sequential reference for a Program. The five WSQ
// flavors (chase-lev, lifo, fifo, "the", anchor) and the two queue
// flavors (MS2 two-lock, MSN Michael-Scott) differ only in their
// concurrent implementation, not in their sequential contract, so they
// share wsqReference/queueReference (documented in DESIGN.md).
func New(p Program) Reference {
	switch p {
	case WSQChase, WSQLifo, WSQFifo, WSQThe, WSQAnchor:
		return newWSQReference()
	case MS2, MSN:
		return newQueueReference()
	case Snark:
		return newDequeReference()
	case LazyList, Harris, SkipList:
		return newSetReference()
	case LFMalloc:
		return newMallocReference()
	default:
		return nil
	}
}
