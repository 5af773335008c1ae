// Copyright (C) 2023 Huawei Technologies Co., Ltd. All rights reserved.
// SPDX-License-Identifier: MIT

package sched

import (
	"dfence/state"
	"dfence/storebuf"
)

// randomScheduler implements the "random" policy of spec.md §4.E: keep
// running the current thread while it stays enabled and doesn't touch
// shared memory; otherwise flip a flush-probability coin to either
// switch threads or flush a buffer.
type randomScheduler struct {
	wmm       storebuf.WMM
	flushProb float64
	rng       Rand
}

func (s *randomScheduler) Next(q Query) Action {
	if q.CurrentEnabled && !q.LastTouchedShared {
		return Action{Kind: Continue, Thread: q.Current}
	}
	if len(q.Live) == 0 {
		return Action{Kind: NoAction}
	}
	if s.rng.Float64() >= s.flushProb {
		return Action{Kind: SwitchThread, Thread: pickUniform(q.Live, s.rng)}
	}
	switch s.wmm {
	case storebuf.SC:
		return Action{Kind: NoAction}
	case storebuf.TSO:
		return Action{Kind: FlushBuffer, Thread: pickUniform(q.Live, s.rng)}
	case storebuf.PSO:
		tag := pickUniform(q.Live, s.rng)
		addrs := q.PendingPSOAddrs[tag]
		if len(addrs) == 0 {
			return Action{Kind: NoAction}
		}
		return Action{Kind: FlushBuffer, Thread: tag, Addr: addrs[s.rng.Intn(len(addrs))]}
	default:
		return Action{Kind: NoAction}
	}
}

func pickUniform(live []state.Tag, rng Rand) state.Tag {
	return live[rng.Intn(len(live))]
}
