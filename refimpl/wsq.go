// Copyright (C) 2023 Huawei Technologies Co., Ltd. All rights reserved.
// SPDX-License-Identifier: MIT

package refimpl

// wsqReference is the sequential specification of a work-stealing deque:
// the owner pushes and pops at the tail (put/take), thieves pop at the
// head (steal). Grounded on the original wsq.h's five flavors, which all
// present this same owner/thief contract sequentially.
type wsqReference struct {
	items []int64
}

func newWSQReference() *wsqReference { return &wsqReference{} }

const emptyMarker = -1

func (w *wsqReference) Apply(method string, args []int64, _ int64) (int64, bool) {
	switch method {
	case "wsq_put", "put":
		if len(args) < 1 {
			return 0, false
		}
		w.items = append(w.items, args[0])
		return 0, true
	case "wsq_take", "take":
		if len(w.items) == 0 {
			return emptyMarker, true
		}
		v := w.items[len(w.items)-1]
		w.items = w.items[:len(w.items)-1]
		return v, true
	case "wsq_steal", "steal":
		if len(w.items) == 0 {
			return emptyMarker, true
		}
		v := w.items[0]
		w.items = w.items[1:]
		return v, true
	default:
		return 0, false
	}
}

func (w *wsqReference) Clone() Reference {
	c := &wsqReference{items: append([]int64(nil), w.items...)}
	return c
}
