// Copyright (C) 2023 Huawei Technologies Co., Ltd. All rights reserved.
// SPDX-License-Identifier: MIT

package trace

import "dfence/state"

// Filtered returns the subset of the shared-RW log that lies between the
// first SPAWN and the last JOIN, restricted to locations touched by more
// than one thread within that span; entries with no location (flushes,
// fences, SPAWN/JOIN) are kept (spec.md §3, "Filtered shared-RW trace").
// It works in two passes: slice the multi-threaded region, then mark the
// addresses touched by more than one thread inside it.
func (l *Log) Filtered() []RWEntry {
	start, end, ok := l.multiThreadRegion()
	if !ok {
		return nil
	}
	region := l.RW[start:end]

	touchedBy := make(map[uint64]map[state.Tag]bool)
	for _, e := range region {
		if !e.HasLoc {
			continue
		}
		set, ok := touchedBy[e.Location]
		if !ok {
			set = make(map[state.Tag]bool)
			touchedBy[e.Location] = set
		}
		set[e.Thread] = true
	}

	var out []RWEntry
	for _, e := range region {
		if e.HasLoc && len(touchedBy[e.Location]) <= 1 {
			continue
		}
		out = append(out, e)
	}
	return out
}

// multiThreadRegion finds the span [firstSpawn, lastJoin+1) of the log.
// Conservatively, the whole log is used if it has no SPAWN or no JOIN;
// Filtered still drops single-thread locations from it. ok is false only
// for an empty log.
func (l *Log) multiThreadRegion() (int, int, bool) {
	start, end := -1, -1
	for i, e := range l.RW {
		switch e.Op {
		case Spawn:
			if start == -1 {
				start = i
			}
		case Join:
			end = i + 1
		}
	}
	if start == -1 || end == -1 {
		return 0, len(l.RW), len(l.RW) > 0
	}
	return start, end, true
}
