// Copyright (C) 2023 Huawei Technologies Co., Ltd. All rights reserved.
// SPDX-License-Identifier: MIT

package module

import (
	"os"

	"dfence/logger"
)

// WriteLL pretty-prints the module to path. `dfence run` uses it to
// persist the patched output (`<input>.fixed.ll` unless --output is
// set); the printed IR does not carry the instruction labels.
func (m *Module) WriteLL(path string) error {
	logger.Infof("writing %q", path)
	return os.WriteFile(path, []byte(m.IR.String()), 0o644)
}
