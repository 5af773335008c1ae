// Copyright (C) 2023 Huawei Technologies Co., Ltd. All rights reserved.
// SPDX-License-Identifier: MIT

package interp

import (
	"testing"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/types"
	"github.com/stretchr/testify/require"

	"dfence/state"
	"dfence/storebuf"
	"dfence/trace"
	"dfence/memmodel"
	"dfence/value"
)

func newTestInterp(t *testing.T) *Interp {
	t.Helper()
	it := &Interp{
		Mem:           memmodel.New(false),
		Threads:       state.NewThreads(),
		TLS:           state.NewTLS(),
		Log:           trace.NewLog(nil),
		funcAddr:      make(map[*ir.Func]uint64),
		addrFunc:      make(map[uint64]*ir.Func),
		nextFn:        funcAddrBase,
		globalAddr:    make(map[*ir.Global]uint64),
		blockAddr:     make(map[uint64]*ir.Block),
		addrOfBlock:   make(map[*ir.Block]uint64),
		nextBlockAddr: blockAddrBase,
	}
	it.Engine = storebuf.New(storebuf.SC, it, it.Log)
	return it
}

func TestEncodeDecodeIntRoundTrip(t *testing.T) {
	v := value.NewInt(-7, 32)
	got := decode(encode(v), value.Int, 32)
	require.True(t, got.Equal(v))
}

func TestEncodeDecodeFloat64RoundTrip(t *testing.T) {
	v := value.NewFloat64(3.5)
	got := decode(encode(v), value.Float64, 64)
	require.Equal(t, v.F64, got.F64)
}

func TestSizeOfTypeArrayAndStruct(t *testing.T) {
	require.Equal(t, 4, sizeOfType(types.I32))
	require.Equal(t, 12, sizeOfType(types.NewArray(3, types.I32)))
	st := types.NewStruct(types.I32, types.I64)
	require.Equal(t, 12, sizeOfType(st))
}

func TestAllocaStoreLoadBypassesBuffer(t *testing.T) {
	it := newTestInterp(t)
	fn := ir.NewFunc("f", types.Void)
	fr := state.NewFrame(fn, nil)

	alloca := ir.NewAlloca(types.I32)
	ptr := it.execAlloca(fr, alloca)
	require.Equal(t, value.Pointer, ptr.Kind)

	require.NoError(t, it.store(state.BootstrapTag, fr, ptr.Ptr, value.NewInt(42, 32), 0))
	got, err := it.load(state.BootstrapTag, fr, ptr.Ptr, value.Int, 32, 0)
	require.NoError(t, err)
	require.Equal(t, int64(42), got.Int64())
	require.Empty(t, it.Log.RW, "stack accesses must not be logged")
}

func TestCas32SuccessAndFailure(t *testing.T) {
	it := newTestInterp(t)
	addr := it.Mem.Alloc(4)
	require.NoError(t, it.writeRaw(addr, value.NewUint(1, 32)))

	fn := ir.NewFunc("f", types.Void)
	fr := state.NewFrame(fn, nil)

	ret, err := iCas32(it, state.BootstrapTag, fr, []value.Value{
		value.NewPointer(addr, 64), value.NewUint(1, 32), value.NewUint(2, 32),
	})
	require.NoError(t, err)
	require.Equal(t, int64(1), ret.Int64())

	ret, err = iCas32(it, state.BootstrapTag, fr, []value.Value{
		value.NewPointer(addr, 64), value.NewUint(1, 32), value.NewUint(3, 32),
	})
	require.NoError(t, err)
	require.Equal(t, int64(0), ret.Int64())
}

func TestJoinAllBlocksUntilLastThread(t *testing.T) {
	it := newTestInterp(t)
	other := it.Threads.Spawn()
	it.Threads.Stack(other).Push(state.NewFrame(ir.NewFunc("worker", types.Void), nil))

	fn := ir.NewFunc("main", types.Void)
	fr := state.NewFrame(fn, nil)
	fr.Cursor = 5
	it.Threads.Stack(state.BootstrapTag).Push(fr)

	_, err := iJoinAll(it, state.BootstrapTag, fr, nil)
	require.NoError(t, err)
	require.Equal(t, 4, fr.Cursor, "join_all must rewind the cursor while other threads are live")
	require.True(t, it.hasWaiter)

	it.Threads.Stack(other).Pop(func(uint64) error { return nil })
	_, err = iJoinAll(it, state.BootstrapTag, fr, nil)
	require.NoError(t, err)
	require.False(t, it.hasWaiter)
	require.Len(t, it.Log.RW, 1)
	require.Equal(t, trace.Join, it.Log.RW[0].Op)
}

func TestKeyCreateSeedsNullForLiveThreads(t *testing.T) {
	it := newTestInterp(t)
	fn := ir.NewFunc("main", types.Void)
	fr := state.NewFrame(fn, nil)
	it.Threads.Stack(state.BootstrapTag).Push(fr)

	id, err := iKeyCreate(it, state.BootstrapTag, fr, []value.Value{value.NewPointer(0, 64)})
	require.NoError(t, err)

	got, err := iKeyGetSpecific(it, state.BootstrapTag, fr, []value.Value{id})
	require.NoError(t, err)
	require.Zero(t, got.Ptr)

	require.NoError(t, err)
	set := value.NewPointer(0x1000, 64)
	_, err = iKeySetSpecific(it, state.BootstrapTag, fr, []value.Value{id, set})
	require.NoError(t, err)
	got, err = iKeyGetSpecific(it, state.BootstrapTag, fr, []value.Value{id})
	require.NoError(t, err)
	require.Equal(t, set.Ptr, got.Ptr)
}
