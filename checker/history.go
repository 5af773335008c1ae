// Copyright (C) 2023 Huawei Technologies Co., Ltd. All rights reserved.
// SPDX-License-Identifier: MIT

package checker

import (
	"fmt"

	"dfence/state"
	"dfence/trace"
)

// matchCalls pairs each RETURN to its preceding CALL on the same thread
// (spec.md §4.H step 1). Each thread may have at most one outstanding
// call at a time, since a single thread executes sequentially.
func matchCalls(history []trace.HistEntry) ([]Call, error) {
	open := make(map[state.Tag]*Call)
	var calls []Call
	for i, e := range history {
		switch e.Kind {
		case trace.Call:
			if _, has := open[e.Thread]; has {
				return nil, fmt.Errorf("thread %d has two outstanding recorded calls", e.Thread)
			}
			open[e.Thread] = &Call{
				CallIdx:  i,
				Thread:   e.Thread,
				Function: e.Function,
				Args:     e.Args,
			}
		case trace.Return:
			c, has := open[e.Thread]
			if !has {
				return nil, fmt.Errorf("thread %d has a RETURN with no matching CALL", e.Thread)
			}
			c.RetIdx = i
			c.Ret = e.Ret
			calls = append(calls, *c)
			delete(open, e.Thread)
		}
	}
	if len(open) > 0 {
		return nil, fmt.Errorf("%d recorded call(s) never returned", len(open))
	}
	return calls, nil
}
