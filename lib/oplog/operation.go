// Copyright 2026 The Khora Authors
// SPDX-License-Identifier: Apache-2.0

package oplog

import (
	"fmt"

	"github.com/clovenbradshaw-ctrl/khora/lib/fieldpath"
	"github.com/clovenbradshaw-ctrl/khora/lib/ref"
)

// Operation is one immutable entry in a vault log. Struct tags give the
// wire names used in both JSON and CBOR (lib/codec honors json tags).
type Operation struct {
	// ID is unique per operation. Generated by ident.GenerateOperationID.
	ID string `json:"id"`

	// Op is the operator.
	Op Operator `json:"op"`

	// Target is the dot path of the field ("vault.fields.name").
	Target string `json:"target"`

	// Operand carries operator-specific attributes. Handlers read it
	// and never write to it.
	Operand Operand `json:"operand"`

	// TS is the operation timestamp in Unix milliseconds, the primary
	// replay ordering key.
	TS int64 `json:"ts"`

	// Frame partitions the state space. Only operations with the same
	// frame type are projected together.
	Frame Frame `json:"frame"`

	// Actor is the Matrix user ID of the author, when known.
	Actor string `json:"actor,omitempty"`
}

// Frame identifies the partition an operation belongs to.
type Frame struct {
	// Type is the partition discriminator.
	Type string `json:"type"`

	// Room is the vault room the operation was published to, when the
	// caller tracks it.
	Room string `json:"room,omitempty"`
}

// Operand attribute names read by the built-in handlers.
const (
	OperandValue       = "value"
	OperandTo          = "to"
	OperandStates      = "states"
	OperandDesignation = "designation"
	OperandSegment     = "segment"
)

// Operand is an operator-specific payload.
type Operand map[string]any

// Get returns the named attribute, or nil if the operand is nil or the
// attribute is absent.
func (o Operand) Get(name string) any {
	if o == nil {
		return nil
	}
	return o[name]
}

// Has reports whether the named attribute is present.
func (o Operand) Has(name string) bool {
	_, ok := o[name]
	return ok
}

// Field returns the state key the operation addresses: the last
// segment of Target.
func (op *Operation) Field() (string, bool) {
	field, ok := fieldpath.TargetField(op.Target)
	if !ok || field == "" {
		return "", false
	}
	return field, true
}

// Validate checks the structural requirements a producer must meet
// before publishing: non-empty ID, known operator, non-empty target,
// frame type, and (when set) a well-formed actor. Project does not call
// Validate; it tolerates records that fail it.
func (op *Operation) Validate() error {
	if op.ID == "" {
		return fmt.Errorf("operation has empty id")
	}
	if !op.Op.Known() {
		return fmt.Errorf("operation %s: unknown operator", op.ID)
	}
	if _, ok := op.Field(); !ok {
		return fmt.Errorf("operation %s: target %q does not name a field", op.ID, op.Target)
	}
	if op.Frame.Type == "" {
		return fmt.Errorf("operation %s: frame type is empty", op.ID)
	}
	if op.Actor != "" && !ref.IsValidActorID(op.Actor) {
		return fmt.Errorf("operation %s: invalid actor %q", op.ID, op.Actor)
	}
	return nil
}
