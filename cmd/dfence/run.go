// Copyright (C) 2023 Huawei Technologies Co., Ltd. All rights reserved.
// SPDX-License-Identifier: MIT

package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"dfence/logger"
	"dfence/module"
	"dfence/synth"
)

func init() {
	var runCmd = cobra.Command{
		Use:   "run <input.ll>",
		Short: "Synthesize a minimal set of memory fences that fix every observed property violation",
		Args:  cobra.ExactArgs(1),

		DisableFlagsInUseLine: true,

		RunE: func(cmd *cobra.Command, args []string) error {
			return runSynthesize(args[0])
		},
	}
	rootCmd.AddCommand(&runCmd)
}

// outputPathFor derives the patched output path from an input path,
// following --output when set (spec.md §6, "run mode").
func outputPathFor(input string) string {
	if rootFlags.outputFn != "" {
		return rootFlags.outputFn
	}
	if strings.HasSuffix(input, ".ll") {
		return strings.TrimSuffix(input, ".ll") + ".fixed.ll"
	}
	return input + ".fixed.ll"
}

func runSynthesize(path string) error {
	cfg, err := loadConf()
	if err != nil {
		return newError(exitInternal, err)
	}

	m, err := module.Load(path, moduleConfig())
	if err != nil {
		return newError(exitInternal, err)
	}

	rng := newSeededRand(rootFlags.seed)

	outcome, err := synth.Synthesize(m, synth.Config{
		WMM:          cfg.WMM,
		Policy:       cfg.Scheduler,
		FlushProb:    cfg.FlushProb,
		Property:     cfg.Property,
		Program:      cfg.Program,
		Recorded:     cfg.Recorded,
		MaxSteps:     rootFlags.maxSteps,
		EntryFunc:    rootFlags.entryFunc,
		RunsPerRound: rootFlags.runsPerRound,
		MaxRounds:    rootFlags.maxRounds,
	}, rng)

	logger.Printf("interp: %s, check: %s, solve: %s, verify: %s\n",
		outcome.Timing.Interp, outcome.Timing.Check, outcome.Timing.Solve, outcome.Timing.Verify)

	if err != nil {
		if errors.Is(err, synth.ErrEmptyConstraint) {
			return newError(exitEmptyConstraint, err)
		}
		return newError(exitInternal, err)
	}

	out := outputPathFor(path)
	if err := m.WriteLL(out); err != nil {
		return newError(exitInternal, err)
	}

	for _, s := range outcome.Fences {
		logger.Printf("fence: %s after label %d\n", s.Kind, s.AfterLabel)
	}
	fmt.Printf("fixed in %d round(s), %d fence(s), written to %s\n", outcome.Rounds, len(outcome.Fences), out)
	return nil
}
