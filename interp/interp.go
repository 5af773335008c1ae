// Copyright (C) 2023 Huawei Technologies Co., Ltd. All rights reserved.
// SPDX-License-Identifier: MIT

// Package interp implements the instruction interpreter of spec.md §4.C:
// it dispatches on the IR opcode under a thread's current instruction,
// evaluates the arithmetic/logical/comparison/conversion families,
// threads memory operations through the store-buffer engine, and
// intercepts the named intrinsic functions that never execute as IR.
package interp

import (
	"fmt"

	"github.com/llir/llvm/ir"

	"dfence/logger"
	"dfence/memmodel"
	"dfence/module"
	"dfence/state"
	"dfence/storebuf"
	"dfence/trace"
	"dfence/value"
)

// Status reports how execution of the current thread left off after a
// call to Step.
type Status int

const (
	// Running means the thread executed an instruction and can continue.
	Running Status = iota
	// Blocked means the thread is waiting inside join_all.
	Blocked
	// Finished means the thread's stack emptied (it returned from its
	// entry function).
	Finished
	// Fault means the segmentation-fault flag is now set (spec.md §4.C,
	// "Failure semantics").
	Fault
	// Halted means an unrecognized opcode or intrinsic was hit; the
	// round must abort (spec.md §7).
	Halted
)

// Interp is the mutable state of one interpreter run (spec.md §3),
// plus the collaborators it drives: the byte arena, the store-buffer
// engine, and the trace recorder.
type Interp struct {
	Mod     *module.Module
	Mem     *memmodel.Memory
	Threads *state.Threads
	TLS     *state.TLS
	Engine  *storebuf.Engine
	Log     *trace.Log

	virtual  bool
	fault    bool
	faultMsg string
	halted   error

	joinWaiter state.Tag
	hasWaiter  bool

	funcAddr   map[*ir.Func]uint64
	addrFunc   map[uint64]*ir.Func
	nextFn     uint64
	globalAddr map[*ir.Global]uint64

	blockAddr     map[uint64]*ir.Block
	addrOfBlock   map[*ir.Block]uint64
	nextBlockAddr uint64

	nextTLSKey int

	lastShared bool

	// curLabel is the IR label of the call instruction currently being
	// dispatched, set by stepCall before invoking an intrinsic handler.
	// The CAS/FAS family needs it to log a PSO CAS write under its
	// call-site label rather than the TSO segment-boundary label 0
	// (spec.md §4.C; Execution.cpp logs FLUSH_CAS_TSO with label 0 but a
	// PSO CAS write with I->label_instr).
	curLabel int
}

const funcAddrBase = uint64(1) << 48

// New builds an Interp for one run against mod under the given memory
// model and recorded-method set (spec.md §6, recorded-method files).
func New(mod *module.Module, wmm storebuf.WMM, virtual bool, recorded []string) *Interp {
	it := &Interp{
		Mod:      mod,
		Mem:      memmodel.New(virtual),
		Threads:  state.NewThreads(),
		TLS:      state.NewTLS(),
		Log:      trace.NewLog(recorded),
		virtual:  virtual,
		funcAddr:   make(map[*ir.Func]uint64),
		addrFunc:   make(map[uint64]*ir.Func),
		nextFn:     funcAddrBase,
		globalAddr: make(map[*ir.Global]uint64),

		blockAddr:     make(map[uint64]*ir.Block),
		addrOfBlock:   make(map[*ir.Block]uint64),
		nextBlockAddr: blockAddrBase,
	}
	it.Engine = storebuf.New(wmm, it, it.Log)
	it.allocGlobals()
	return it
}

// allocGlobals gives every global variable a live allocation in the byte
// arena before the bootstrap thread starts, zero-initialized (spec.md is
// silent on non-zero global initializers; DFENCE's guest programs are
// concurrency micro-benchmarks whose globals are almost always
// zero-initialized locks/counters, so this covers the modeled surface —
// see DESIGN.md).
func (it *Interp) allocGlobals() {
	for _, g := range it.Mod.IR.Globals {
		size := sizeOfType(g.ContentType)
		addr := it.Mem.Alloc(size)
		it.globalAddr[g] = addr
	}
}

// Commit implements storebuf.Backend: a drained store is written straight
// to the byte arena.
func (it *Interp) Commit(addr uint64, v value.Value) error {
	return it.writeRaw(addr, v)
}

// Start pushes the bootstrap thread's initial frame at entry, called
// with no arguments (spec.md §3, bootstrap thread == tag 1).
func (it *Interp) Start(entry *ir.Func) {
	fr := state.NewFrame(entry, nil)
	it.Threads.Stack(state.BootstrapTag).Push(fr)
}

// FuncAddr returns a stable synthetic address for a function value,
// minted on first use, so function pointers (spawn_thread targets,
// pthread_create callees) can be represented as ordinary value.Pointer
// values (spec.md §3, "pointer (a virtual address)").
func (it *Interp) FuncAddr(f *ir.Func) uint64 {
	if a, ok := it.funcAddr[f]; ok {
		return a
	}
	a := it.nextFn
	it.nextFn++
	it.funcAddr[f] = a
	it.addrFunc[a] = f
	return a
}

// FuncAt resolves a synthetic function address back to its *ir.Func.
func (it *Interp) FuncAt(addr uint64) (*ir.Func, bool) {
	f, ok := it.addrFunc[addr]
	return f, ok
}

// Faulted reports whether the segmentation-fault flag is set.
func (it *Interp) Faulted() (bool, string) { return it.fault, it.faultMsg }

func (it *Interp) fatalFault(format string, args ...interface{}) {
	it.fault = true
	it.faultMsg = fmt.Sprintf(format, args...)
	logger.Warnf("segmentation fault: %s", it.faultMsg)
}

// HaltedErr reports whether an unrecoverable interpreter error occurred
// (spec.md §7, "Unrecognized IR opcode or intrinsic").
func (it *Interp) HaltedErr() error { return it.halted }

func (it *Interp) halt(format string, args ...interface{}) {
	if it.halted == nil {
		it.halted = fmt.Errorf(format, args...)
	}
}

// Enabled reports whether tag can still make progress: it has live
// frames and is not blocked inside join_all.
func (it *Interp) Enabled(tag state.Tag) bool {
	if it.hasWaiter && it.joinWaiter == tag {
		return len(it.Threads.Live()) <= 1
	}
	return !it.Threads.Stack(tag).Empty()
}

// LastTouchedShared reports whether the instruction executed by the most
// recent Step call read or wrote a non-stack address (spec.md §4.E,
// scheduler state).
func (it *Interp) LastTouchedShared() bool { return it.lastShared }

// Step executes the single instruction under tag's current cursor and
// advances it (spec.md §4.C). The caller (sched) picked tag as the
// action's target before this call.
func (it *Interp) Step(tag state.Tag) Status {
	it.lastShared = false
	stack := it.Threads.Stack(tag)
	fr := stack.Top()
	if fr == nil {
		return Finished
	}

	in := fr.CurInst()
	if in == nil {
		return it.stepTerminator(tag, fr)
	}
	fr.Advance()

	if ok := it.stepInstruction(tag, fr, in); !ok {
		if it.fault {
			return Fault
		}
		if it.halted != nil {
			return Halted
		}
	}
	if stack.Empty() {
		return Finished
	}
	return Running
}

func (it *Interp) stepInstruction(tag state.Tag, fr *state.Frame, in ir.Instruction) bool {
	if call, ok := in.(*ir.InstCall); ok {
		return it.stepCall(tag, fr, call)
	}
	if v, ok := it.evalNonCall(tag, fr, in); ok {
		if v.IsValid() {
			if named, ok := in.(interface{ Ident() string }); ok {
				fr.Set(named.Ident(), v)
			}
		}
		return true
	}
	if it.fault || it.halted != nil {
		return false
	}
	it.halt("unrecognized instruction %T", in)
	return false
}
