// Copyright (C) 2023 Huawei Technologies Co., Ltd. All rights reserved.
// SPDX-License-Identifier: MIT

package synthconf

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"dfence/checker"
	"dfence/sched"
	"dfence/storebuf"
)

func writeConf(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "conf.txt")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadDefaultsFlushProbToZero(t *testing.T) {
	dir := t.TempDir()
	path := writeConf(t, dir, "WMM = TSO\nPROPERTY = SC\n")
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 0.0, cfg.FlushProb)
	require.Equal(t, storebuf.TSO, cfg.WMM)
	require.Equal(t, checker.SC, cfg.Property)
}

func TestLoadReadsRecordedMethodFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "queue.txt"), []byte("enqueue\ndequeue\n# comment\n"), 0o644))
	path := writeConf(t, dir, "WMM = SC\nPROPERTY = LIN\nPROGRAM = MS2\n")
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, []string{"enqueue", "dequeue"}, cfg.Recorded)
}

func TestLoadRejectsPredictiveScheduler(t *testing.T) {
	dir := t.TempDir()
	path := writeConf(t, dir, "SCHEDULER = PREDICTIVE\n")
	_, err := Load(path)
	require.Error(t, err)
}

func TestLoadRejectsMalformedLine(t *testing.T) {
	dir := t.TempDir()
	path := writeConf(t, dir, "not-a-key-value-line\n")
	_, err := Load(path)
	require.Error(t, err)
}

func TestLoadAcceptsRandomScheduler(t *testing.T) {
	dir := t.TempDir()
	path := writeConf(t, dir, "SCHEDULER = RANDOM\n")
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, sched.Random, cfg.Scheduler)
}
