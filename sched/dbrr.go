// Copyright (C) 2023 Huawei Technologies Co., Ltd. All rights reserved.
// SPDX-License-Identifier: MIT

package sched

import (
	"sort"

	"dfence/state"
	"dfence/storebuf"
)

// dbrrScheduler implements the deterministic round-robin policy of
// spec.md §4.E: threads are rotated in increasing tag order, wrapping at
// the end. It runs under SC and TSO; under PSO Next panics.
type dbrrScheduler struct {
	wmm       storebuf.WMM
	flushProb float64
	rng       Rand
	last      state.Tag
}

func (s *dbrrScheduler) Next(q Query) Action {
	if s.wmm == storebuf.PSO {
		panic("dbrr scheduler does not support PSO: determinism would be lost")
	}
	if q.CurrentEnabled && !q.LastTouchedShared {
		return Action{Kind: Continue, Thread: q.Current}
	}
	if len(q.Live) == 0 {
		return Action{Kind: NoAction}
	}
	live := append([]state.Tag(nil), q.Live...)
	sort.Slice(live, func(i, j int) bool { return live[i] < live[j] })

	if s.rng.Float64() >= s.flushProb {
		next := nextInRing(live, s.last)
		s.last = next
		return Action{Kind: SwitchThread, Thread: next}
	}
	if s.wmm == storebuf.SC {
		return Action{Kind: NoAction}
	}
	next := nextInRing(live, s.last)
	return Action{Kind: FlushBuffer, Thread: next}
}

func nextInRing(live []state.Tag, last state.Tag) state.Tag {
	for _, t := range live {
		if t > last {
			return t
		}
	}
	return live[0]
}
