// Copyright (C) 2023 Huawei Technologies Co., Ltd. All rights reserved.
// SPDX-License-Identifier: MIT

// Package trace implements the trace recorder of spec.md §4.G: the
// invocation/return history log used by the linearizability checker, and
// the shared-memory read/write/flush log used by the constraint
// generator.
package trace

import (
	"dfence/state"
	"dfence/value"
)

// Op is one kind of shared-RW log entry (spec.md §3, "Shared read/write
// log").
type Op int

// The event kinds recorded in the shared-RW log.
const (
	Read Op = iota
	Write
	FlushFence
	FlushInstr
	FlushCASTSO
	FlushCASPSO
	FlushRandomTSO
	FlushRandomPSO
	Spawn
	Join
)

func (o Op) String() string {
	switch o {
	case Read:
		return "READ"
	case Write:
		return "WRITE"
	case FlushFence:
		return "FLUSH_FENCE"
	case FlushInstr:
		return "FLUSH_INSTR"
	case FlushCASTSO:
		return "FLUSH_CAS_TSO"
	case FlushCASPSO:
		return "FLUSH_CAS_PSO"
	case FlushRandomTSO:
		return "FLUSH_RANDOM_TSO"
	case FlushRandomPSO:
		return "FLUSH_RANDOM_PSO"
	case Spawn:
		return "SPAWN"
	case Join:
		return "JOIN"
	default:
		return "?"
	}
}

// RWEntry is one shared-RW log entry. Label is the stable IR label of
// the instruction that produced it, or 0 for entries with no source
// instruction (spawn/join/flush triggered by the scheduler).
type RWEntry struct {
	Thread   state.Tag
	Op       Op
	Location uint64
	HasLoc   bool
	Value    value.Value
	Label    int
}

// Log owns both logs of a single interpreter run.
type Log struct {
	RW      []RWEntry
	History []HistEntry

	recorded map[string]bool
	depth    map[state.Tag]int
}

// NewLog returns an empty log that records calls to the given function
// names (spec.md §6, recorded-method files).
func NewLog(recorded []string) *Log {
	rec := make(map[string]bool, len(recorded))
	for _, f := range recorded {
		rec[f] = true
	}
	return &Log{recorded: rec, depth: make(map[state.Tag]int)}
}

func (l *Log) append(e RWEntry) { l.RW = append(l.RW, e) }

// LogRead appends a READ entry.
func (l *Log) LogRead(tag state.Tag, addr uint64, v value.Value, label int) {
	l.append(RWEntry{Thread: tag, Op: Read, Location: addr, HasLoc: true, Value: v, Label: label})
}

// LogWrite appends a WRITE entry.
func (l *Log) LogWrite(tag state.Tag, addr uint64, v value.Value, label int) {
	l.append(RWEntry{Thread: tag, Op: Write, Location: addr, HasLoc: true, Value: v, Label: label})
}

// FlushFence implements storebuf.Logger.
func (l *Log) FlushFence(tag state.Tag) { l.append(RWEntry{Thread: tag, Op: FlushFence}) }

// FlushInstr implements storebuf.Logger.
func (l *Log) FlushInstr(tag state.Tag) { l.append(RWEntry{Thread: tag, Op: FlushInstr}) }

// FlushCASTSO implements storebuf.Logger.
func (l *Log) FlushCASTSO(tag state.Tag) { l.append(RWEntry{Thread: tag, Op: FlushCASTSO}) }

// FlushCASPSO implements storebuf.Logger.
func (l *Log) FlushCASPSO(tag state.Tag, addr uint64) {
	l.append(RWEntry{Thread: tag, Op: FlushCASPSO, Location: addr, HasLoc: true})
}

// FlushRandomTSO implements storebuf.Logger.
func (l *Log) FlushRandomTSO(tag state.Tag) { l.append(RWEntry{Thread: tag, Op: FlushRandomTSO}) }

// FlushRandomPSO implements storebuf.Logger.
func (l *Log) FlushRandomPSO(tag state.Tag, addr uint64) {
	l.append(RWEntry{Thread: tag, Op: FlushRandomPSO, Location: addr, HasLoc: true})
}

// LogSpawn appends a SPAWN entry.
func (l *Log) LogSpawn(tag state.Tag) { l.append(RWEntry{Thread: tag, Op: Spawn}) }

// LogJoin appends a JOIN entry.
func (l *Log) LogJoin(tag state.Tag) { l.append(RWEntry{Thread: tag, Op: Join}) }
