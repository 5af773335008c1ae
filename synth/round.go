// Copyright (C) 2023 Huawei Technologies Co., Ltd. All rights reserved.
// SPDX-License-Identifier: MIT

// Package synth implements the outer synthesis loop of spec.md §4.K: it
// drives repeated interpreter runs against a module, feeds failing runs
// to the constraint generator, resolves the accumulated clauses with a
// SAT solver, and patches the module with the resulting fences until a
// round produces no violation.
package synth

import (
	"fmt"

	"dfence/interp"
	"dfence/module"
	"dfence/sched"
	"dfence/state"
	"dfence/storebuf"
	"dfence/trace"
)

// RunConfig parameterizes a single interpreter run (spec.md §4.E/§4.C).
type RunConfig struct {
	WMM       storebuf.WMM
	Policy    sched.Policy
	FlushProb float64
	Rng       sched.Rand
	Recorded  []string
	Virtual   bool
	MaxSteps  int
	EntryFunc string
}

// RunResult is the outcome of one RunOnce call.
type RunResult struct {
	Log      *trace.Log
	Faulted  bool
	FaultMsg string
	Halted   error
	Steps    int
}

// RunOnce drives one interpreter run to completion: the scheduler picks
// an action every step until every thread has finished, at which point
// every thread's remaining store buffer is drained once (spec.md §4.D
// invariant 3).
func RunOnce(mod *module.Module, cfg RunConfig) (*RunResult, error) {
	entry, err := mod.EntryFunc(cfg.EntryFunc)
	if err != nil {
		return nil, err
	}

	it := interp.New(mod, cfg.WMM, cfg.Virtual, cfg.Recorded)
	it.Start(entry)
	scheduler := sched.New(cfg.Policy, cfg.WMM, cfg.FlushProb, cfg.Rng)

	current := state.BootstrapTag
	lastTouchedShared := false
	steps := 0

	for len(it.Threads.Live()) > 0 {
		steps++
		if cfg.MaxSteps > 0 && steps > cfg.MaxSteps {
			return &RunResult{Log: it.Log, Halted: fmt.Errorf("exceeded step budget of %d", cfg.MaxSteps), Steps: steps}, nil
		}

		live := it.Threads.Live()
		enabled := make([]state.Tag, 0, len(live))
		for _, t := range live {
			if it.Enabled(t) {
				enabled = append(enabled, t)
			}
		}
		if len(enabled) == 0 {
			return &RunResult{Log: it.Log, Halted: fmt.Errorf("deadlock: no enabled thread among %v", live), Steps: steps}, nil
		}

		q := sched.Query{
			Current:           current,
			LastTouchedShared: lastTouchedShared,
			CurrentEnabled:    it.Enabled(current),
			Live:              enabled,
			PendingFlush:      pendingFlush(it, enabled),
			PendingPSOAddrs:   pendingPSOAddrs(it, enabled),
		}
		act := scheduler.Next(q)

		switch act.Kind {
		case sched.Continue, sched.SwitchThread:
			current = act.Thread
			status := it.Step(current)
			lastTouchedShared = it.LastTouchedShared()
			switch status {
			case interp.Fault:
				_, msg := it.Faulted()
				return &RunResult{Log: it.Log, Faulted: true, FaultMsg: msg, Steps: steps}, nil
			case interp.Halted:
				return &RunResult{Log: it.Log, Halted: it.HaltedErr(), Steps: steps}, nil
			}
		case sched.FlushBuffer:
			if err := it.Engine.FlushRandom(act.Thread, act.Addr); err != nil {
				return &RunResult{Log: it.Log, Faulted: true, FaultMsg: err.Error(), Steps: steps}, nil
			}
			lastTouchedShared = false
		case sched.NoAction:
			lastTouchedShared = false
		}
	}

	if err := it.Engine.DrainAllThreads(it.Threads.All()); err != nil {
		return &RunResult{Log: it.Log, Faulted: true, FaultMsg: err.Error(), Steps: steps}, nil
	}
	return &RunResult{Log: it.Log, Steps: steps}, nil
}

func pendingFlush(it *interp.Interp, tags []state.Tag) map[state.Tag]bool {
	out := make(map[state.Tag]bool, len(tags))
	for _, t := range tags {
		out[t] = it.Engine.Enabled(t)
	}
	return out
}

func pendingPSOAddrs(it *interp.Interp, tags []state.Tag) map[state.Tag][]uint64 {
	if it.Engine.WMM() != storebuf.PSO {
		return nil
	}
	out := make(map[state.Tag][]uint64, len(tags))
	for _, t := range tags {
		out[t] = it.Engine.NonEmptyPSOAddrs(t)
	}
	return out
}
