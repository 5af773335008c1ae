// Copyright (C) 2023 Huawei Technologies Co., Ltd. All rights reserved.
// SPDX-License-Identifier: MIT

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"dfence/checker"
	"dfence/logger"
	"dfence/module"
	"dfence/refimpl"
	"dfence/synth"
)

func init() {
	var checkCmd = cobra.Command{
		Use:   "check <input.ll>",
		Short: "Sample interpreter runs against the configured property, without synthesizing fences",
		Args:  cobra.ExactArgs(1),

		DisableFlagsInUseLine: true,

		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(args[0])
		},
	}
	rootCmd.AddCommand(&checkCmd)
}

// runCheck drives runsPerRound interpreter runs and reports the first
// property violation it finds, without attempting to fix the module
// (spec.md §6, "check mode": the sampling half of the synthesis loop
// with the SAT-solving half removed).
func runCheck(path string) error {
	cfg, err := loadConf()
	if err != nil {
		return newError(exitInternal, err)
	}

	m, err := module.Load(path, moduleConfig())
	if err != nil {
		return newError(exitInternal, err)
	}

	rng := newSeededRand(rootFlags.seed)

	for i := 0; i < rootFlags.runsPerRound; i++ {
		res, err := synth.RunOnce(m, synth.RunConfig{
			WMM:       cfg.WMM,
			Policy:    cfg.Scheduler,
			FlushProb: cfg.FlushProb,
			Rng:       rng,
			Recorded:  cfg.Recorded,
			MaxSteps:  rootFlags.maxSteps,
			EntryFunc: rootFlags.entryFunc,
		})
		if err != nil {
			return newError(exitInternal, err)
		}
		if res.Halted != nil {
			return newError(exitInternal, fmt.Errorf("run %d: %w", i+1, res.Halted))
		}
		if res.Faulted {
			logger.Printf("run %d: assertion failure: %s\n", i+1, res.FaultMsg)
			fmt.Println("violation found")
			return newError(exitViolation, fmt.Errorf("assertion failure: %s", res.FaultMsg))
		}

		result, err := checker.Check(res.Log.History, refimpl.New(cfg.Program), cfg.Property)
		if err != nil {
			return newError(exitInternal, err)
		}
		if !result.Accepted {
			logger.Printf("run %d: rejected by checker\n", i+1)
			fmt.Println("violation found")
			return newError(exitViolation, fmt.Errorf("run %d: history does not linearize", i+1))
		}
	}

	logger.Printf("%d runs, no violation\n", rootFlags.runsPerRound)
	fmt.Println("ok")
	return nil
}
