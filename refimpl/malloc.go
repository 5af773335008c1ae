// Copyright (C) 2023 Huawei Technologies Co., Ltd. All rights reserved.
// SPDX-License-Identifier: MIT

package refimpl

// mallocReference tracks live (base, size) allocations and validates
// that malloc never hands out an overlapping region and free always
// targets a known base (spec.md §4.F).
type mallocReference struct {
	live map[int64]int64 // base -> size
}

func newMallocReference() *mallocReference {
	return &mallocReference{live: make(map[int64]int64)}
}

func (m *mallocReference) Apply(method string, args []int64, recordedRet int64) (int64, bool) {
	switch method {
	case "malloc":
		if len(args) < 1 {
			return 0, false
		}
		size := args[0]
		base := recordedRet
		if base == 0 {
			// out-of-memory is a valid outcome, nothing to validate.
			return 0, true
		}
		for b, sz := range m.live {
			if overlaps(base, size, b, sz) {
				return 0, false
			}
		}
		m.live[base] = size
		return base, true
	case "free":
		if len(args) < 1 {
			return 0, false
		}
		base := args[0]
		if base == 0 {
			return 0, true
		}
		if _, ok := m.live[base]; !ok {
			return 0, false
		}
		delete(m.live, base)
		return 0, true
	default:
		return 0, false
	}
}

func overlaps(baseA, sizeA, baseB, sizeB int64) bool {
	return baseA < baseB+sizeB && baseB < baseA+sizeA
}

func (m *mallocReference) Clone() Reference {
	c := &mallocReference{live: make(map[int64]int64, len(m.live))}
	for k, v := range m.live {
		c.live[k] = v
	}
	return c
}
