// Copyright (C) 2023 Huawei Technologies Co., Ltd. All rights reserved.
// SPDX-License-Identifier: MIT

// Package synthconf loads the line-oriented conf.txt configuration file
// that names a run's memory model, correctness property, target data
// structure, and scheduler (spec.md §6, "Configuration intake"; keys
// grounded on the original implementation's Params.cpp).
package synthconf

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"dfence/checker"
	"dfence/refimpl"
	"dfence/sched"
	"dfence/storebuf"
)

// Config is the parsed content of a conf.txt file.
type Config struct {
	FlushProb   float64
	WMM         storebuf.WMM
	Property    checker.Property
	Program     refimpl.Program
	ProgramName string
	LogPath     string
	Scheduler   sched.Policy
	Recorded    []string
}

// ParseWMM parses the WMM config value.
func ParseWMM(s string) (storebuf.WMM, bool) {
	switch s {
	case "SC":
		return storebuf.SC, true
	case "TSO":
		return storebuf.TSO, true
	case "PSO":
		return storebuf.PSO, true
	default:
		return storebuf.SC, false
	}
}

// Load parses the conf.txt at path. Blank lines and lines starting with
// '#' are ignored; every other line must be "KEY = VALUE". FLUSHPROB
// defaults to 0.0 when absent (spec.md's SUPPLEMENTED FEATURES). Once
// PROGRAM is known, Load also reads the matching recorded-method file
// out of path's directory.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	cfg := &Config{
		FlushProb: 0.0,
		WMM:       storebuf.SC,
		Property:  checker.SC,
		Program:   refimpl.InvalidProgram,
		Scheduler: sched.Random,
	}

	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, val, ok := splitKV(line)
		if !ok {
			return nil, fmt.Errorf("%s:%d: malformed line %q, expected KEY = VALUE", path, lineNo, line)
		}
		if err := cfg.apply(key, val); err != nil {
			return nil, fmt.Errorf("%s:%d: %w", path, lineNo, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	if cfg.Scheduler == sched.DBRR && cfg.WMM == storebuf.PSO {
		return nil, fmt.Errorf("%s: SCHEDULER=DBRR does not support WMM=PSO: determinism would be lost", path)
	}

	if cfg.Program != refimpl.InvalidProgram {
		recorded, err := loadRecordedMethods(filepath.Dir(path), cfg.Program)
		if err != nil {
			return nil, err
		}
		cfg.Recorded = recorded
	}
	return cfg, nil
}

func (cfg *Config) apply(key, val string) error {
	switch key {
	case "FLUSHPROB":
		p, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return fmt.Errorf("FLUSHPROB: %w", err)
		}
		cfg.FlushProb = p
	case "WMM":
		wmm, ok := ParseWMM(val)
		if !ok {
			return fmt.Errorf("unrecognized WMM %q", val)
		}
		cfg.WMM = wmm
	case "PROPERTY":
		prop, ok := checker.ParseProperty(val)
		if !ok {
			return fmt.Errorf("unrecognized PROPERTY %q", val)
		}
		cfg.Property = prop
	case "PROGRAM":
		prog := refimpl.ParseProgram(val)
		if prog == refimpl.InvalidProgram {
			return fmt.Errorf("unrecognized PROGRAM %q", val)
		}
		cfg.Program = prog
		cfg.ProgramName = val
	case "LOG":
		cfg.LogPath = val
	case "SCHEDULER":
		pol, ok := sched.ParsePolicy(val)
		if !ok {
			return fmt.Errorf("unrecognized SCHEDULER %q", val)
		}
		if pol == sched.Predictive {
			return fmt.Errorf("SCHEDULER=PREDICTIVE is not implemented")
		}
		cfg.Scheduler = pol
	default:
		return fmt.Errorf("unrecognized key %q", key)
	}
	return nil
}

func splitKV(line string) (key, val string, ok bool) {
	i := strings.Index(line, "=")
	if i < 0 {
		return "", "", false
	}
	return strings.TrimSpace(line[:i]), strings.TrimSpace(line[i+1:]), true
}

// recordedFileFor maps a parsed PROGRAM to the recorded-method file
// carrying its externally observable methods (spec.md §6,
// "recorded-method files").
func recordedFileFor(p refimpl.Program) string {
	switch p {
	case refimpl.WSQChase:
		return "deque.txt"
	case refimpl.WSQLifo, refimpl.WSQFifo, refimpl.WSQThe, refimpl.WSQAnchor:
		return "wsq.txt"
	case refimpl.LFMalloc:
		return "malloc.txt"
	case refimpl.MS2, refimpl.MSN:
		return "queue.txt"
	default:
		return "linkset.txt"
	}
}

func loadRecordedMethods(dir string, p refimpl.Program) ([]string, error) {
	name := recordedFileFor(p)
	data, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		return nil, fmt.Errorf("recorded-method file %q: %w", name, err)
	}
	var methods []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		methods = append(methods, line)
	}
	return methods, nil
}
