// Copyright (C) 2023 Huawei Technologies Co., Ltd. All rights reserved.
// SPDX-License-Identifier: MIT

package interp

import (
	"errors"
	"fmt"
	"math/rand"
	"os"

	"dfence/logger"
	"dfence/state"
	"dfence/storebuf"
	"dfence/value"
)

// errFault and errHalted are sentinel errors returned by intrinsic
// handlers to tell stepCall the call did not complete normally; the
// actual fault/halt state was already recorded on it via fatalFault or
// halt.
var (
	errFault  = errors.New("interp: fault")
	errHalted = errors.New("interp: halted")
)

func lookupEnv(name string) (string, bool) { return os.LookupEnv(name) }

// intrinsicHandler implements one of the named functions spec.md §4.C
// intercepts instead of resolving to an *ir.Func body.
type intrinsicHandler func(it *Interp, tag state.Tag, fr *state.Frame, args []value.Value) (value.Value, error)

// intrinsicTable is consulted by stepCall before falling back to a
// user-defined function of the same name.
var intrinsicTable = map[string]intrinsicHandler{
	"spawn_thread":       iSpawnThread,
	"pthread_create":     iSpawnThread,
	"join_all":           iJoinAll,
	"pthread_join":       iJoinAll,
	"assert":             iAssert,
	"assert_exist":       iAssertExist,
	"cas32":              iCas32,
	"casio":              iCasio,
	"caspo":              iCaspo,
	"faspo":              iFaspo,
	"fasio":              iFasio,
	"membar_sl":          iMembarSL,
	"membar_ss":          iMembarSS,
	"malloc":             iMalloc,
	"free":               iFree,
	"memset":             iMemset,
	"memcpy32":           iMemcpy32,
	"mmap":               iMmap,
	"munmap":             iMunmap,
	"getenv":             iGetenv,
	"rand":               iRand,
	"sysconf":            iSysconf,
	"pthread_self":       iPthreadSelf,
	"nprint_string":      iNprintString,
	"nprint_int":         iNprintInt,
	"key_create":         iKeyCreate,
	"pthread_key_create": iKeyCreate,
	"key_getspecific":    iKeyGetSpecific,
	"key_setspecific":    iKeySetSpecific,
}

// iSpawnThread implements spawn_thread(fp): allocates a new thread tag,
// pushes an initial frame at the function the pointer argument names,
// and logs SPAWN (spec.md §4.C, "spawn_thread").
func iSpawnThread(it *Interp, tag state.Tag, fr *state.Frame, args []value.Value) (value.Value, error) {
	if len(args) == 0 || args[0].Kind != value.Pointer {
		it.halt("spawn_thread: missing function-pointer argument")
		return value.Value{}, errHalted
	}
	f, ok := it.FuncAt(args[0].Ptr)
	if !ok {
		it.halt("spawn_thread: 0x%x is not a known function", args[0].Ptr)
		return value.Value{}, errHalted
	}
	newTag := it.Threads.Spawn()
	callArgs := args[1:]
	callee := state.NewFrame(f, nil)
	bindParams(callee, f, callArgs)
	it.Threads.Stack(newTag).Push(callee)
	it.Log.LogSpawn(newTag)
	return value.NewUint(uint64(newTag), 64), nil
}

// iJoinAll implements join_all(): blocks the calling thread (by rewinding
// its instruction cursor so it re-executes this call) until it is the
// only thread with a live stack, then logs JOIN (spec.md §4.C,
// "join_all blocks until every other thread has finished").
func iJoinAll(it *Interp, tag state.Tag, fr *state.Frame, args []value.Value) (value.Value, error) {
	if len(it.Threads.Live()) > 1 {
		fr.Cursor--
		it.joinWaiter = tag
		it.hasWaiter = true
		return value.Value{}, nil
	}
	it.hasWaiter = false
	it.Log.LogJoin(tag)
	return value.Value{}, nil
}

// iAssert implements assert(cond[, msg]): a false condition only logs a
// diagnostic and lets the run continue to its natural end (spec.md §7,
// "Guest assert(0): Log message; run continues until natural end;
// Recovered? Yes"). It is not a fault: a guest program using assert for
// its own internal invariant checks must not be misclassified as a bad
// trace. Only assert_exist's existential check reaches fatalFault.
func iAssert(it *Interp, tag state.Tag, fr *state.Frame, args []value.Value) (value.Value, error) {
	if len(args) == 0 {
		it.halt("assert: missing condition")
		return value.Value{}, errHalted
	}
	if !args[0].IsZero() {
		return value.Value{}, nil
	}
	msg := "assert failed"
	if len(args) > 1 && args[1].Kind == value.Pointer && args[1].Ptr != 0 {
		if s, err := it.readCString(args[1].Ptr); err == nil {
			msg = s
		}
	}
	logger.Warnf("assert failed: %s", msg)
	return value.Value{}, nil
}

// iAssertExist implements assert_exist(ptr, len, val): val must appear
// among the len elements starting at ptr, sized to val's own width
// (spec.md §4.C, "assert_exist: existential membership check over an
// array").
func iAssertExist(it *Interp, tag state.Tag, fr *state.Frame, args []value.Value) (value.Value, error) {
	if len(args) < 3 {
		it.halt("assert_exist: expected 3 arguments")
		return value.Value{}, errHalted
	}
	ptr, count, want := args[0], args[1], args[2]
	elemWidth := want.Width
	if elemWidth <= 0 {
		elemWidth = 32
	}
	elemSize := (elemWidth + 7) / 8
	n := int(count.Int64())
	for i := 0; i < n; i++ {
		addr := ptr.Ptr + uint64(i*elemSize)
		v, err := it.readRaw(addr, want.Kind, elemWidth)
		if err != nil {
			it.fatalFault("%v", err)
			return value.Value{}, errFault
		}
		if v.Equal(want) {
			return value.Value{}, nil
		}
	}
	it.fatalFault("assert_exist: value not found in [0x%x, +%d)", ptr.Ptr, n*elemSize)
	return value.Value{}, errFault
}

// casWriteLabel is the label doCAS/doFAS record their write under.
// Under TSO the CAS/FAS write is itself the buffer's flush point (the
// original logs FLUSH_CAS_TSO with label 0, Execution.cpp:1645, and
// never treats the write as a store->load source); under PSO there is
// no such segment boundary, so the write keeps its call-site label
// (Execution.cpp:1633, I->label_instr) and can participate in
// constraint generation like any other write.
func casWriteLabel(it *Interp) int {
	if it.Engine.WMM() == storebuf.TSO {
		return 0
	}
	return it.curLabel
}

// doCAS implements the shared body of the cas32/casio/caspo family:
// drain what the WMM requires a compare to see, compare, and — on
// success — write directly to memory, bypassing the store buffer
// (spec.md §4.D, "CAS semantics: drains, compares, conditionally
// writes, and is itself an ordering point").
func doCAS(it *Interp, tag state.Tag, addr uint64, want, newv value.Value) (old value.Value, success bool, err error) {
	if err := it.Engine.DrainForCAS(tag, addr); err != nil {
		return value.Value{}, false, err
	}
	old, err = it.readRaw(addr, want.Kind, want.Width)
	if err != nil {
		return value.Value{}, false, err
	}
	if !old.Equal(want) {
		it.Engine.LogCASFlush(tag, addr)
		return old, false, nil
	}
	if err := it.writeRaw(addr, newv); err != nil {
		return old, false, err
	}
	it.Log.LogWrite(tag, addr, newv, casWriteLabel(it))
	it.Engine.LogCASFlush(tag, addr)
	it.lastShared = true
	return old, true, nil
}

func iCas32(it *Interp, tag state.Tag, fr *state.Frame, args []value.Value) (value.Value, error) {
	if len(args) < 3 {
		it.halt("cas32: expected 3 arguments")
		return value.Value{}, errHalted
	}
	ptr, expect, newv := args[0], args[1], args[2]
	want := value.NewUint(expect.Uint64()&0xffffffff, 32)
	repl := value.NewUint(newv.Uint64()&0xffffffff, 32)
	_, ok, err := doCAS(it, tag, ptr.Ptr, want, repl)
	if err != nil {
		it.fatalFault("%v", err)
		return value.Value{}, errFault
	}
	if ok {
		return value.NewUint(1, 32), nil
	}
	return value.NewUint(0, 32), nil
}

func iCasio(it *Interp, tag state.Tag, fr *state.Frame, args []value.Value) (value.Value, error) {
	if len(args) < 3 {
		it.halt("casio: expected 3 arguments")
		return value.Value{}, errHalted
	}
	ptr, expect, newv := args[0], args[1], args[2]
	old, _, err := doCAS(it, tag, ptr.Ptr, expect, newv)
	if err != nil {
		it.fatalFault("%v", err)
		return value.Value{}, errFault
	}
	return old, nil
}

func iCaspo(it *Interp, tag state.Tag, fr *state.Frame, args []value.Value) (value.Value, error) {
	if len(args) < 3 {
		it.halt("caspo: expected 3 arguments")
		return value.Value{}, errHalted
	}
	ptr, expect, newv := args[0], args[1], args[2]
	old, _, err := doCAS(it, tag, ptr.Ptr, expect, newv)
	if err != nil {
		it.fatalFault("%v", err)
		return value.Value{}, errFault
	}
	return old, nil
}

// doFAS implements fetch-and-store: drain, read the old value, write the
// new one unconditionally, and return the old value (spec.md §4.C,
// "faspo/fasio").
func doFAS(it *Interp, tag state.Tag, addr uint64, newv value.Value) (value.Value, error) {
	if err := it.Engine.DrainForCAS(tag, addr); err != nil {
		return value.Value{}, err
	}
	old, err := it.readRaw(addr, newv.Kind, newv.Width)
	if err != nil {
		return value.Value{}, err
	}
	if err := it.writeRaw(addr, newv); err != nil {
		return value.Value{}, err
	}
	it.Log.LogWrite(tag, addr, newv, casWriteLabel(it))
	it.Engine.LogCASFlush(tag, addr)
	it.lastShared = true
	return old, nil
}

// iFaspo implements faspo: under TSO it additionally requires a prior
// full drain (spec.md §4.C, "faspo requires a prior membar_sl under
// TSO"); this handler performs that drain itself rather than trusting
// the guest program issued one.
func iFaspo(it *Interp, tag state.Tag, fr *state.Frame, args []value.Value) (value.Value, error) {
	if len(args) < 2 {
		it.halt("faspo: expected 2 arguments")
		return value.Value{}, errHalted
	}
	if it.Engine.WMM() == storebuf.TSO {
		if err := it.Engine.MembarSL(tag); err != nil {
			it.fatalFault("%v", err)
			return value.Value{}, errFault
		}
	}
	old, err := doFAS(it, tag, args[0].Ptr, args[1])
	if err != nil {
		it.fatalFault("%v", err)
		return value.Value{}, errFault
	}
	return old, nil
}

func iFasio(it *Interp, tag state.Tag, fr *state.Frame, args []value.Value) (value.Value, error) {
	if len(args) < 2 {
		it.halt("fasio: expected 2 arguments")
		return value.Value{}, errHalted
	}
	old, err := doFAS(it, tag, args[0].Ptr, args[1])
	if err != nil {
		it.fatalFault("%v", err)
		return value.Value{}, errFault
	}
	return old, nil
}

// iMembarSL implements membar_sl(t): drains the calling thread's buffer
// fully (spec.md §4.D).
func iMembarSL(it *Interp, tag state.Tag, fr *state.Frame, args []value.Value) (value.Value, error) {
	if err := it.Engine.MembarSL(tag); err != nil {
		it.fatalFault("%v", err)
		return value.Value{}, errFault
	}
	return value.Value{}, nil
}

// iMembarSS implements membar_ss(t): a no-op under SC/TSO, drains every
// per-address queue under PSO (spec.md §4.D).
func iMembarSS(it *Interp, tag state.Tag, fr *state.Frame, args []value.Value) (value.Value, error) {
	if err := it.Engine.MembarSS(tag); err != nil {
		it.fatalFault("%v", err)
		return value.Value{}, errFault
	}
	return value.Value{}, nil
}

func iMalloc(it *Interp, tag state.Tag, fr *state.Frame, args []value.Value) (value.Value, error) {
	n := 0
	if len(args) > 0 {
		n = int(args[0].Int64())
	}
	if n < 1 {
		n = 1
	}
	return value.NewPointer(it.Mem.Alloc(n), 64), nil
}

func iFree(it *Interp, tag state.Tag, fr *state.Frame, args []value.Value) (value.Value, error) {
	if len(args) == 0 || args[0].Ptr == 0 {
		return value.Value{}, nil
	}
	if err := it.Mem.Free(args[0].Ptr); err != nil {
		it.fatalFault("%v", err)
		return value.Value{}, errFault
	}
	return value.Value{}, nil
}

// iMemset writes n copies of the low byte of val at ptr, direct to
// memory (spec.md §4.C notes memset as a thin host shim, not a shared-RW
// event by itself).
func iMemset(it *Interp, tag state.Tag, fr *state.Frame, args []value.Value) (value.Value, error) {
	if len(args) < 3 {
		it.halt("memset: expected 3 arguments")
		return value.Value{}, errHalted
	}
	ptr, val, n := args[0].Ptr, byte(args[1].Uint64()), int(args[2].Int64())
	if n < 0 {
		n = 0
	}
	buf := make([]byte, n)
	for i := range buf {
		buf[i] = val
	}
	if err := it.Mem.Write(ptr, buf); err != nil {
		it.fatalFault("%v", err)
		return value.Value{}, errFault
	}
	return value.NewPointer(ptr, 64), nil
}

// iMemcpy32 implements memcpy32(dst, src, n): on a stack destination it
// copies directly; otherwise it moves the data one 32-bit word at a
// time through load/store, so each word produces its own READ and WRITE
// log entries and is subject to the store buffer like any other access
// (spec.md §4.C, "memcpy32: word-granular copy through the store
// buffer").
func iMemcpy32(it *Interp, tag state.Tag, fr *state.Frame, args []value.Value) (value.Value, error) {
	if len(args) < 3 {
		it.halt("memcpy32: expected 3 arguments")
		return value.Value{}, errHalted
	}
	dst, src, n := args[0].Ptr, args[1].Ptr, int(args[2].Int64())
	if n < 0 {
		n = 0
	}
	if isStackAddr(fr, dst) {
		data, err := it.Mem.Read(src, n)
		if err != nil {
			it.fatalFault("%v", err)
			return value.Value{}, errFault
		}
		if err := it.Mem.Write(dst, data); err != nil {
			it.fatalFault("%v", err)
			return value.Value{}, errFault
		}
		return value.NewPointer(dst, 64), nil
	}
	if n%4 != 0 {
		it.halt("memcpy32: length %d is not a multiple of 4 bytes through the store buffer", n)
		return value.Value{}, errHalted
	}
	words := n / 4
	for i := 0; i < words; i++ {
		off := uint64(i * 4)
		v, err := it.load(tag, fr, src+off, value.Int, 32, 0)
		if err != nil {
			return value.Value{}, errFault
		}
		if err := it.store(tag, fr, dst+off, v, 0); err != nil {
			it.fatalFault("%v", err)
			return value.Value{}, errFault
		}
	}
	return value.NewPointer(dst, 64), nil
}

// iMmap and iMunmap are thin shims onto the arena allocator: DFENCE's
// guest programs use mmap only to obtain anonymous, page-sized-ish
// scratch regions, never file-backed mappings (spec.md §4.C, "mmap,
// munmap: thin shims to the host's equivalents").
func iMmap(it *Interp, tag state.Tag, fr *state.Frame, args []value.Value) (value.Value, error) {
	n := 4096
	if len(args) > 0 {
		if l := int(args[0].Int64()); l > 0 {
			n = l
		}
	}
	return value.NewPointer(it.Mem.Alloc(n), 64), nil
}

func iMunmap(it *Interp, tag state.Tag, fr *state.Frame, args []value.Value) (value.Value, error) {
	if len(args) == 0 || args[0].Ptr == 0 {
		return value.NewInt(0, 32), nil
	}
	_ = it.Mem.Free(args[0].Ptr)
	return value.NewInt(0, 32), nil
}

// iGetenv reads the argument as a NUL-terminated name and returns a
// freshly allocated copy of its value, or a NULL pointer if unset.
func iGetenv(it *Interp, tag state.Tag, fr *state.Frame, args []value.Value) (value.Value, error) {
	if len(args) == 0 {
		return value.NewPointer(0, 64), nil
	}
	name, err := it.readCString(args[0].Ptr)
	if err != nil {
		return value.NewPointer(0, 64), nil
	}
	val, ok := lookupEnv(name)
	if !ok {
		return value.NewPointer(0, 64), nil
	}
	return value.NewPointer(it.allocCString(val), 64), nil
}

func iRand(it *Interp, tag state.Tag, fr *state.Frame, args []value.Value) (value.Value, error) {
	return value.NewInt(int64(rand.Int31()), 32), nil
}

// iSysconf answers the handful of _SC_* queries DFENCE's guest programs
// are known to use; anything else reads back -1, matching a host that
// does not support the query.
func iSysconf(it *Interp, tag state.Tag, fr *state.Frame, args []value.Value) (value.Value, error) {
	const scNprocessorsOnln = 84
	const scPagesize = 30
	if len(args) > 0 {
		switch args[0].Int64() {
		case scNprocessorsOnln:
			return value.NewInt(4, 64), nil
		case scPagesize:
			return value.NewInt(4096, 64), nil
		}
	}
	return value.NewInt(-1, 64), nil
}

func iPthreadSelf(it *Interp, tag state.Tag, fr *state.Frame, args []value.Value) (value.Value, error) {
	return value.NewUint(uint64(tag), 64), nil
}

func iNprintString(it *Interp, tag state.Tag, fr *state.Frame, args []value.Value) (value.Value, error) {
	if len(args) == 0 {
		return value.Value{}, nil
	}
	s, err := it.readCString(args[0].Ptr)
	if err != nil {
		return value.Value{}, nil
	}
	logger.Printf("[thread %d] %s", tag, s)
	return value.Value{}, nil
}

func iNprintInt(it *Interp, tag state.Tag, fr *state.Frame, args []value.Value) (value.Value, error) {
	if len(args) == 0 {
		return value.Value{}, nil
	}
	logger.Printf("[thread %d] %d", tag, args[0].Int64())
	return value.Value{}, nil
}

// iKeyCreate implements key_create(destructor): mints the next
// thread-local key id, registers its destructor, and seeds a NULL value
// for every currently live thread (spec.md §4.C, "key_create").
func iKeyCreate(it *Interp, tag state.Tag, fr *state.Frame, args []value.Value) (value.Value, error) {
	var destructor uint64
	if len(args) > 0 {
		destructor = args[0].Uint64()
	}
	it.nextTLSKey++
	id := it.nextTLSKey
	it.TLS.KeyCreate(tlsKeyName(id), destructor, it.Threads.Live())
	return value.NewUint(uint64(id), 64), nil
}

func iKeyGetSpecific(it *Interp, tag state.Tag, fr *state.Frame, args []value.Value) (value.Value, error) {
	if len(args) == 0 {
		return value.NewPointer(0, 64), nil
	}
	return it.TLS.GetSpecific(tag, tlsKeyName(int(args[0].Uint64()))), nil
}

func iKeySetSpecific(it *Interp, tag state.Tag, fr *state.Frame, args []value.Value) (value.Value, error) {
	if len(args) < 2 {
		it.halt("key_setspecific: expected 2 arguments")
		return value.Value{}, errHalted
	}
	it.TLS.SetSpecific(tag, tlsKeyName(int(args[0].Uint64())), args[1])
	return value.Value{}, nil
}

func tlsKeyName(id int) string { return fmt.Sprintf("k%d", id) }
