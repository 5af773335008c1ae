// Copyright (C) 2023 Huawei Technologies Co., Ltd. All rights reserved.
// SPDX-License-Identifier: MIT

package sched

import "dfence/storebuf"

// Scheduler picks the next action given the interpreter's state
// (spec.md §4.E).
type Scheduler interface {
	Next(q Query) Action
}

// Policy identifies a scheduler implementation (spec.md §6, key
// SCHEDULER).
type Policy int

// The scheduler policies recognized by the configuration intake.
const (
	Random Policy = iota
	DBRR
	Predictive
)

// ParsePolicy parses the SCHEDULER config value.
func ParsePolicy(s string) (Policy, bool) {
	switch s {
	case "RANDOM":
		return Random, true
	case "DBRR":
		return DBRR, true
	case "PREDICTIVE":
		return Predictive, true
	default:
		return Random, false
	}
}

// New builds a Scheduler for the given policy, WMM, flush probability
// and random source. DBRR under PSO is rejected by the caller before
// reaching here (spec.md §4.E: "PSO must error out to preserve
// determinism").
func New(p Policy, wmm storebuf.WMM, flushProb float64, rng Rand) Scheduler {
	switch p {
	case DBRR:
		return &dbrrScheduler{wmm: wmm, flushProb: flushProb, rng: rng}
	default:
		return &randomScheduler{wmm: wmm, flushProb: flushProb, rng: rng}
	}
}

// Rand is the minimal randomness surface the schedulers need, so tests
// can inject a deterministic source.
type Rand interface {
	Float64() float64
	Intn(n int) int
}
