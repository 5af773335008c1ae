// Copyright (C) 2023 Huawei Technologies Co., Ltd. All rights reserved.
// SPDX-License-Identifier: MIT

// Package main is the dfence command-line tool: it drives the module
// loader, interpreter, checker and SAT-based fence synthesizer over an
// LLVM IR input program (spec.md §6, "Command-line interface").
package main

import (
	"fmt"
	"os"
	"regexp"

	"github.com/spf13/cobra"

	"dfence/logger"
)

var rootCmd = cobra.Command{
	Use:           "dfence",
	Short:         "",
	Long:          "",
	SilenceUsage:  true,
	SilenceErrors: true,

	TraverseChildren: true,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("run 'dfence -h' for help")
	},
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		switch rootFlags.log {
		case "INFO":
			logger.SetLevel(logger.INFO)
		case "WARN":
			logger.SetLevel(logger.WARN)
		default:
			logger.SetLevel(logger.ERROR)
		}
		if rootFlags.debug {
			logger.SetLevel(logger.DEBUG)
		}
		if rootFlags.quiet {
			logger.SetFileDescriptor(nil)
		}
	},
}

var rootFlags struct {
	log          string
	debug        bool
	quiet        bool
	conf         string
	entryFunc    string
	runsPerRound int
	maxRounds    int
	maxSteps     int
	seed         int64
	outputFn     string
}

func init() {
	helpMessage := `dfence -- dynamic synthesis of minimal memory fences for concurrent IR programs`
	rootCmd.Long = helpMessage

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&rootFlags.log, "log", "ERROR", "log level (ERROR|INFO|WARN)")
	flags.BoolVarP(&rootFlags.debug, "debug", "d", false, "set debug mode")
	flags.BoolVarP(&rootFlags.quiet, "quiet", "q", false, "do not produce output")
	flags.StringVarP(&rootFlags.conf, "conf", "c", "conf.txt", "path to the run configuration file")
	flags.StringVar(&rootFlags.entryFunc, "entry-function", "main", "entry function DFENCE starts the bootstrap thread on")
	flags.IntVar(&rootFlags.runsPerRound, "runs-per-round", 20, "interpreter runs sampled per synthesis round")
	flags.IntVar(&rootFlags.maxRounds, "max-rounds", 0, "synthesis round budget, 0 for unbounded")
	flags.IntVar(&rootFlags.maxSteps, "max-steps", 1000000, "interpreter step budget per run, 0 for unbounded")
	flags.Int64Var(&rootFlags.seed, "seed", 1, "scheduler random seed")
	flags.StringVarP(&rootFlags.outputFn, "output", "o", "", "patched output LLVM file, default <input>.fixed.ll")

	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})
}

var reExitStatus = regexp.MustCompile("^exit status [0-9]+$")

func handlePanic() {
	e := recover()
	if e == nil {
		return
	}
	code, ok := e.(errCode)
	if !ok {
		panic(e)
	}
	if code.err != nil {
		logger.Printf("panic: %v\n", code.err)
	}
	os.Exit(int(code.code))
}

func main() {
	if !rootFlags.debug {
		defer handlePanic()
	}
	if err := rootCmd.Execute(); err != nil {
		var (
			code = getErrorCode(err)
			msg  = getErrorMessage(err)
		)
		if match := reExitStatus.MatchString(msg); !match && msg != "" {
			logger.Println(msg)
		}
		os.Exit(code)
	}
}
