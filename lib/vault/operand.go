// Copyright 2026 The Khora Authors
// SPDX-License-Identifier: Apache-2.0

package vault

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"

	"github.com/clovenbradshaw-ctrl/khora/lib/fieldcrypt"
	"github.com/clovenbradshaw-ctrl/khora/lib/oplog"
)

// OperandSealed is the operand attribute holding sealed attributes.
const OperandSealed = "sealed"

// Undecryptable stands in for an operand attribute whose ciphertext
// could not be opened.
type Undecryptable struct{}

// String renders the placeholder for display.
func (Undecryptable) String() string { return "<undecryptable>" }

// MarshalText renders the placeholder in JSON and YAML output.
func (u Undecryptable) MarshalText() ([]byte, error) { return []byte(u.String()), nil }

// SealOperand returns a copy of operand with each named attribute moved
// under OperandSealed. Attributes not present in operand are skipped.
// The input operand is not modified.
func SealOperand(keyring *fieldcrypt.Keyring, target string, operand oplog.Operand, attributes ...string) (oplog.Operand, error) {
	sealedAttributes := make(map[string]any)
	sealedOperand := make(oplog.Operand, len(operand)+1)
	maps.Copy(sealedOperand, operand)

	for _, attribute := range attributes {
		value, ok := operand[attribute]
		if !ok {
			continue
		}
		plaintext, err := json.Marshal(value)
		if err != nil {
			return nil, fmt.Errorf("vault: encoding %s.%s: %w", target, attribute, err)
		}
		sealed, err := keyring.Seal(target, string(plaintext))
		if err != nil {
			return nil, fmt.Errorf("vault: sealing %s.%s: %w", target, attribute, err)
		}
		sealedAttributes[attribute] = map[string]any{
			"ciphertext": sealed.Ciphertext,
			"iv":         sealed.IV,
		}
		delete(sealedOperand, attribute)
	}
	if len(sealedAttributes) > 0 {
		sealedOperand[OperandSealed] = sealedAttributes
	}
	return sealedOperand, nil
}

// OpenOperations returns copies of operations whose sealed operands
// are opened with keyring. A nil keyring opens nothing: every sealed
// attribute becomes Undecryptable. Operations without sealed
// attributes are returned as they are, sharing their operand.
func OpenOperations(keyring *fieldcrypt.Keyring, operations []oplog.Operation) []oplog.Operation {
	opened := slices.Clone(operations)
	for i := range opened {
		opened[i].Operand = openOperand(keyring, opened[i].Target, opened[i].Operand)
	}
	return opened
}

func openOperand(keyring *fieldcrypt.Keyring, target string, operand oplog.Operand) oplog.Operand {
	raw, ok := operand[OperandSealed]
	if !ok {
		return operand
	}
	result := make(oplog.Operand, len(operand))
	for name, value := range operand {
		if name != OperandSealed {
			result[name] = value
		}
	}

	sealedAttributes, ok := raw.(map[string]any)
	if !ok {
		return result
	}
	for attribute, value := range sealedAttributes {
		result[attribute] = openAttribute(keyring, target, value)
	}
	return result
}

func openAttribute(keyring *fieldcrypt.Keyring, target string, raw any) any {
	if keyring == nil {
		return Undecryptable{}
	}
	sealed, ok := parseSealed(raw)
	if !ok {
		return Undecryptable{}
	}
	opened := keyring.Open(target, sealed)
	if !opened.OK {
		return Undecryptable{}
	}
	var value any
	if err := json.Unmarshal([]byte(opened.Plaintext), &value); err != nil {
		return Undecryptable{}
	}
	return value
}

func parseSealed(raw any) (fieldcrypt.Sealed, bool) {
	fields, ok := raw.(map[string]any)
	if !ok {
		return fieldcrypt.Sealed{}, false
	}
	ciphertext, ciphertextOK := fields["ciphertext"].(string)
	iv, ivOK := fields["iv"].(string)
	if !ciphertextOK || !ivOK {
		return fieldcrypt.Sealed{}, false
	}
	return fieldcrypt.Sealed{Ciphertext: ciphertext, IV: iv}, true
}
