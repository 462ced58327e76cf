// Copyright 2026 The Khora Authors
// SPDX-License-Identifier: Apache-2.0

package oplog

import "fmt"

// Operator is the kind of change an operation makes.
type Operator uint8

// The zero Operator is OperatorUnknown: records carrying an operator
// name this build does not recognize decode to it and are skipped
// during replay.
const (
	OperatorUnknown Operator = iota

	// NUL nullifies a field: value becomes nil and the operand is kept
	// as provenance in NullifiedBy.
	NUL
	// DES designates a role or status for a field, stored under the
	// derived "<field>.designation" key.
	DES
	// INS inserts or overwrites a field's value.
	INS
	// SEG records a segment label for a field under "<field>.segment".
	SEG
	// CON connects a field to another target; connections accumulate
	// under "<field>.connections".
	CON
	// SYN synthesizes a single value for a field, resolving any
	// superposition.
	SYN
	// ALT alters the value of a field that already exists.
	ALT
	// SUP puts a field into superposition over several candidate
	// values.
	SUP
	// REC recovers a nullified field.
	REC

	operatorLimit
)

// Operators lists every known operator in canonical order.
var Operators = []Operator{NUL, DES, INS, SEG, CON, SYN, ALT, SUP, REC}

var operatorNames = [operatorLimit]string{
	OperatorUnknown: "unknown",
	NUL:             "NUL",
	DES:             "DES",
	INS:             "INS",
	SEG:             "SEG",
	CON:             "CON",
	SYN:             "SYN",
	ALT:             "ALT",
	SUP:             "SUP",
	REC:             "REC",
}

// String returns the canonical three-letter name.
func (o Operator) String() string {
	if o < operatorLimit {
		return operatorNames[o]
	}
	return fmt.Sprintf("Operator(%d)", uint8(o))
}

// Known reports whether o is one of Operators.
func (o Operator) Known() bool {
	return o > OperatorUnknown && o < operatorLimit
}

// ParseOperator returns the operator with the given canonical name.
func ParseOperator(name string) (Operator, error) {
	for _, operator := range Operators {
		if operatorNames[operator] == name {
			return operator, nil
		}
	}
	return OperatorUnknown, fmt.Errorf("unknown operator %q", name)
}

// MarshalText implements encoding.TextMarshaler.
func (o Operator) MarshalText() ([]byte, error) {
	if !o.Known() {
		return nil, fmt.Errorf("cannot marshal %s", o)
	}
	return []byte(operatorNames[o]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. Unrecognized names
// decode to OperatorUnknown without error so that a single record from
// a newer producer does not fail decoding of a whole batch.
func (o *Operator) UnmarshalText(data []byte) error {
	operator, err := ParseOperator(string(data))
	if err != nil {
		*o = OperatorUnknown
		return nil
	}
	*o = operator
	return nil
}
