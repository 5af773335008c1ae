// Copyright (C) 2023 Huawei Technologies Co., Ltd. All rights reserved.
// SPDX-License-Identifier: MIT

package state

import (
	"dfence/value"
)

// TLSKey is a POSIX-like thread-specific data key (spec.md §3,
// "Thread-local keys").
type TLSKey struct {
	Name       string
	Destructor uint64 // native/virtual address of the destructor function, 0 if none
}

// TLS maps (thread, key) to a stored value, and remembers every key ever
// created so key_create can seed a NULL entry for live threads.
type TLS struct {
	keys  []TLSKey
	cells map[Tag]map[string]value.Value
}

// NewTLS returns an empty thread-local storage table.
func NewTLS() *TLS {
	return &TLS{cells: make(map[Tag]map[string]value.Value)}
}

// KeyCreate registers a destructor for name and seeds a NULL value for
// every tag in live (spec.md §3: "registers a destructor and a NULL
// value for every currently live thread").
func (t *TLS) KeyCreate(name string, destructor uint64, live []Tag) {
	t.keys = append(t.keys, TLSKey{Name: name, Destructor: destructor})
	for _, tag := range live {
		t.ensure(tag)[name] = value.NewPointer(0, 64)
	}
}

func (t *TLS) ensure(tag Tag) map[string]value.Value {
	m, ok := t.cells[tag]
	if !ok {
		m = make(map[string]value.Value)
		t.cells[tag] = m
	}
	return m
}

// GetSpecific returns the value stored for (tag, name).
func (t *TLS) GetSpecific(tag Tag, name string) value.Value {
	return t.ensure(tag)[name]
}

// SetSpecific stores v for (tag, name).
func (t *TLS) SetSpecific(tag Tag, name string, v value.Value) {
	t.ensure(tag)[name] = v
}

// Destructors returns every registered key, for running destructors when
// a thread finishes.
func (t *TLS) Destructors() []TLSKey { return t.keys }
