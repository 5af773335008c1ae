// Copyright (C) 2023 Huawei Technologies Co., Ltd. All rights reserved.
// SPDX-License-Identifier: MIT

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"dfence/logger"
	"dfence/module"
)

func init() {
	var infoCmd = cobra.Command{
		Use:   "info <input.ll>",
		Short: "Print the entry function, function and global counts, and existing fence count of the input module",
		Args:  cobra.ExactArgs(1),

		DisableFlagsInUseLine: true,

		RunE: func(cmd *cobra.Command, args []string) error {
			return runInfo(args[0])
		},
	}
	rootCmd.AddCommand(&infoCmd)
}

func moduleConfig() module.Config {
	return module.Config{EntryFunc: rootFlags.entryFunc}
}

func runInfo(path string) error {
	m, err := module.Load(path, moduleConfig())
	if err != nil {
		return newError(exitInternal, err)
	}
	entry, err := m.EntryFunc(rootFlags.entryFunc)
	if err != nil {
		return newError(exitInternal, err)
	}
	logger.Printf("entry function: %s\n", entry.Ident())
	logger.Printf("functions: %d\n", len(m.IR.Funcs))
	logger.Printf("globals: %d\n", len(m.IR.Globals))
	logger.Printf("existing fences: %d\n", len(m.Fences()))
	fmt.Println("ok")
	return nil
}
