// Copyright (C) 2023 Huawei Technologies Co., Ltd. All rights reserved.
// SPDX-License-Identifier: MIT

// Package constraint implements the fence-constraint generator of
// spec.md §4.I: it walks the filtered shared-RW trace of a bad run,
// segment by segment, and derives store->load (TSO, PSO) and
// store->store (PSO) orderings whose corresponding fence would have
// forbidden the observed interleaving.
package constraint

// Kind distinguishes the two shapes of fence constraint (spec.md §3,
// "Fence constraint").
type Kind int

const (
	// StoreLoad is an ordered (store, load) pair in the same thread at
	// distinct locations: a membar_sl there would have prevented the
	// reorder.
	StoreLoad Kind = iota
	// StoreStore is an ordered (store, store) pair: a membar_ss there
	// would have prevented the reorder. PSO only.
	StoreStore
)

// Pair is one candidate fence site, keyed by the two IR labels involved.
type Pair struct {
	Kind   Kind
	First  int // the originating store's label
	Second int
}
