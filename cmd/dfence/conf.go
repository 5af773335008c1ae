// Copyright (C) 2023 Huawei Technologies Co., Ltd. All rights reserved.
// SPDX-License-Identifier: MIT

package main

import (
	"math/rand"

	"dfence/synthconf"
)

// seededRand adapts math/rand to sched.Rand, so a run's scheduling
// decisions are reproducible from --seed (spec.md §6, "Determinism").
type seededRand struct{ r *rand.Rand }

func newSeededRand(seed int64) *seededRand { return &seededRand{r: rand.New(rand.NewSource(seed))} }

func (s *seededRand) Float64() float64 { return s.r.Float64() }
func (s *seededRand) Intn(n int) int   { return s.r.Intn(n) }

func loadConf() (*synthconf.Config, error) {
	return synthconf.Load(rootFlags.conf)
}
