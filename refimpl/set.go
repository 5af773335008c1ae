// Copyright (C) 2023 Huawei Technologies Co., Ltd. All rights reserved.
// SPDX-License-Identifier: MIT

package refimpl

// setReference is the sequential specification shared by the lazy
// linked set, the Harris linked set, and the skip list: add/remove
// return whether the element's membership changed; contains reports
// current membership.
type setReference struct {
	members map[int64]bool
}

func newSetReference() *setReference {
	return &setReference{members: make(map[int64]bool)}
}

const (
	boolFalse = 0
	boolTrue  = 1
)

func (s *setReference) Apply(method string, args []int64, _ int64) (int64, bool) {
	if len(args) < 1 {
		return 0, false
	}
	v := args[0]
	switch method {
	case "add":
		if s.members[v] {
			return boolFalse, true
		}
		s.members[v] = true
		return boolTrue, true
	case "remove":
		if !s.members[v] {
			return boolFalse, true
		}
		delete(s.members, v)
		return boolTrue, true
	case "contains":
		if s.members[v] {
			return boolTrue, true
		}
		return boolFalse, true
	default:
		return 0, false
	}
}

func (s *setReference) Clone() Reference {
	c := &setReference{members: make(map[int64]bool, len(s.members))}
	for k, v := range s.members {
		c.members[k] = v
	}
	return c
}
