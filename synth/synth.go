// Copyright (C) 2023 Huawei Technologies Co., Ltd. All rights reserved.
// SPDX-License-Identifier: MIT

package synth

import (
	"errors"
	"fmt"
	"time"

	"dfence/checker"
	"dfence/constraint"
	"dfence/logger"
	"dfence/module"
	"dfence/refimpl"
	"dfence/sched"
	"dfence/storebuf"
)

// ErrEmptyConstraint marks the terminal case of spec.md §6/§7: a
// violated round whose filtered traces produced no clauses at all, so
// no fence placement could ever repair it. cmd/dfence maps this to its
// own exit code, distinct from every other way synthesis can fail to
// converge (SAT-unsatisfiable, round budget exceeded).
var ErrEmptyConstraint = errors.New("bad trace with empty constraint, synthesis impossible")

// Timing accumulates wall-clock time spent in each phase of the
// synthesis loop, reported at the end of a run (spec.md's SUPPLEMENTED
// FEATURES: per-phase timing breakdown, grounded on the original
// implementation's own end-of-run report).
type Timing struct {
	Interp time.Duration
	Check  time.Duration
	Solve  time.Duration
	Verify time.Duration
}

// Config parameterizes one synthesis attempt.
type Config struct {
	WMM          storebuf.WMM
	Policy       sched.Policy
	FlushProb    float64
	Property     checker.Property
	Program      refimpl.Program
	Recorded     []string
	Virtual      bool
	MaxSteps     int
	EntryFunc    string
	RunsPerRound int // default 20, spec.md §4.K
	MaxRounds    int // 0 means unbounded
}

// defaultRunsPerRound matches the original implementation's fixed
// sample size per round (spec.md §4.K, "N runs per round").
const defaultRunsPerRound = 20

// Outcome is the result of a full synthesis attempt.
type Outcome struct {
	Fixed  bool
	Fences []module.FenceSite
	Rounds int
	Timing Timing
}

// Synthesize repeatedly interprets mod under cfg's memory model,
// checking every run against the correctness property, until a full
// round of RunsPerRound runs produces zero violations (spec.md §4.K).
// Every violating run's filtered trace contributes clauses to the
// round's constraint set; when a round ends with at least one
// violation, the accumulated clauses are resolved by Solve and the
// winning fences are patched into mod before the next round begins. The
// literal assignment resets every round; mod's IR labels do not
// (spec.md §4.K, "round-restart"). A round that violates but whose
// filtered traces yield no clauses at all (e.g. a fault with no shared
// memory access) cannot be repaired by any fence placement and is
// reported immediately rather than retried (spec.md §7, "bad trace
// with empty constraint (synthesis impossible)").
func Synthesize(mod *module.Module, cfg Config, rng sched.Rand) (Outcome, error) {
	runsPerRound := cfg.RunsPerRound
	if runsPerRound <= 0 {
		runsPerRound = defaultRunsPerRound
	}

	var timing Timing
	var allFences []module.FenceSite

	for round := 0; cfg.MaxRounds <= 0 || round < cfg.MaxRounds; round++ {
		logger.SetContext(fmt.Sprintf("round %d", round+1))
		gen := constraint.NewGenerator(cfg.WMM)
		var clauses [][]int
		violated := false
		var checkTime time.Duration

		for i := 0; i < runsPerRound; i++ {
			t0 := time.Now()
			res, err := RunOnce(mod, RunConfig{
				WMM:       cfg.WMM,
				Policy:    cfg.Policy,
				FlushProb: cfg.FlushProb,
				Rng:       rng,
				Recorded:  cfg.Recorded,
				Virtual:   cfg.Virtual,
				MaxSteps:  cfg.MaxSteps,
				EntryFunc: cfg.EntryFunc,
			})
			timing.Interp += time.Since(t0)
			if err != nil {
				return Outcome{}, err
			}
			if res.Halted != nil {
				return Outcome{}, fmt.Errorf("round %d, run %d: %w", round+1, i+1, res.Halted)
			}
			if res.Faulted {
				violated = true
				clauses = append(clauses, gen.FromTrace(res.Log.Filtered())...)
				continue
			}

			t1 := time.Now()
			result, err := checker.Check(res.Log.History, refimpl.New(cfg.Program), cfg.Property)
			checkTime += time.Since(t1)
			if err != nil {
				return Outcome{}, fmt.Errorf("round %d, run %d: %w", round+1, i+1, err)
			}
			if !result.Accepted {
				violated = true
				clauses = append(clauses, gen.FromTrace(res.Log.Filtered())...)
			}
		}

		if !violated {
			timing.Verify += checkTime
			logger.Infof("%d runs, no violation, synthesis converged", runsPerRound)
			return Outcome{Fixed: true, Fences: allFences, Rounds: round + 1, Timing: timing}, nil
		}
		timing.Check += checkTime

		if len(clauses) == 0 {
			return Outcome{Fixed: false, Fences: allFences, Rounds: round + 1, Timing: timing},
				fmt.Errorf("round %d: %w", round+1, ErrEmptyConstraint)
		}

		t2 := time.Now()
		selected, sat := Solve(clauses, gen.NumVars())
		timing.Solve += time.Since(t2)
		if !sat {
			return Outcome{Fixed: false, Fences: allFences, Rounds: round + 1, Timing: timing},
				fmt.Errorf("round %d: no fence placement forbids every observed violation", round+1)
		}

		sites, err := ApplyFences(mod, gen, selected)
		if err != nil {
			return Outcome{}, fmt.Errorf("round %d: %w", round+1, err)
		}
		logger.Infof("%d violation(s), inserted %d fence(s)", len(clauses), len(sites))
		allFences = append(allFences, sites...)
	}

	return Outcome{Fixed: false, Fences: allFences, Rounds: cfg.MaxRounds, Timing: timing},
		fmt.Errorf("exceeded %d rounds without converging", cfg.MaxRounds)
}
