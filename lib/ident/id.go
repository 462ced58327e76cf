// Copyright 2026 The Khora Authors
// SPDX-License-Identifier: Apache-2.0

package ident

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// OperationIDPrefix begins every generated operation ID.
const OperationIDPrefix = "op_"

// GenerateOperationID returns a new process-wide unique operation ID.
// It only fails if the system random source fails.
func GenerateOperationID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generating operation ID: %w", err)
	}
	return OperationIDPrefix + hex.EncodeToString(id[:]), nil
}

// MustGenerateOperationID is like GenerateOperationID but panics if the
// random source fails.
func MustGenerateOperationID() string {
	id, err := GenerateOperationID()
	if err != nil {
		panic(err)
	}
	return id
}

// IsOperationID reports whether id has the shape produced by
// GenerateOperationID. Records from other producers may use other
// shapes; the projection engine does not require this one.
func IsOperationID(id string) bool {
	rest, found := strings.CutPrefix(id, OperationIDPrefix)
	if !found || len(rest) != 32 {
		return false
	}
	_, err := hex.DecodeString(rest)
	return err == nil
}
