// Copyright 2026 The Khora Authors
// SPDX-License-Identifier: Apache-2.0

package oplog

import (
	"encoding/json"
	"slices"

	"github.com/clovenbradshaw-ctrl/khora/lib/fieldpath"
)

// Derived key suffixes, appended to the field key with
// fieldpath.Derived.
const (
	SuffixDesignation = fieldpath.DesignationSuffix
	SuffixSegment     = "segment"
	SuffixConnections = "connections"
)

// FieldState is the projected state of one key.
type FieldState struct {
	// Value is the current value. Nil after NUL.
	Value any `json:"value"`

	// NullifiedBy is the operand of the NUL that nullified the field,
	// or nil if the field is not nullified.
	NullifiedBy Operand `json:"nullified_by,omitempty"`

	// Superposition is true while the field holds several candidate
	// values (Values) instead of one.
	Superposition bool `json:"superposition,omitempty"`

	// Values holds the superposed candidates, or the accumulated
	// connections for a "<field>.connections" key.
	Values []any `json:"values,omitempty"`

	// UpdatedAt is the timestamp of the last operation applied to
	// this key.
	UpdatedAt int64 `json:"updated_at"`

	// LastOp is the ID of the last operation applied to this key.
	LastOp string `json:"last_op,omitempty"`

	// restorable is the value a field held before it was nullified.
	restorable any
}

// Nullified reports whether a NUL is the latest word on this field.
func (f FieldState) Nullified() bool {
	return f.NullifiedBy != nil
}

// MarshalJSON always writes nullified_by for a nullified field, even
// when the NUL carried no operand, so a nullified field never reads as
// an inserted null.
func (f FieldState) MarshalJSON() ([]byte, error) {
	type plain FieldState
	if !f.Nullified() {
		return json.Marshal(plain(f))
	}
	return json.Marshal(struct {
		plain
		NullifiedBy Operand `json:"nullified_by"`
	}{plain(f), f.NullifiedBy})
}

// State maps field keys (and derived keys) to their projected state.
type State map[string]FieldState

// Get returns the state for key.
func (s State) Get(key string) (FieldState, bool) {
	field, ok := s[key]
	return field, ok
}

// Value returns the value for key, or nil when the key is absent.
func (s State) Value(key string) any {
	return s[key].Value
}

// Designation returns the designation recorded for field by DES.
func (s State) Designation(field string) (any, bool) {
	entry, ok := s[fieldpath.DesignationKey(field)]
	return entry.Value, ok
}

// Keys returns all keys in sorted order.
func (s State) Keys() []string {
	keys := make([]string, 0, len(s))
	for key := range s {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	return keys
}
