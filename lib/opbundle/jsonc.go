// Copyright 2026 The Khora Authors
// SPDX-License-Identifier: Apache-2.0

package opbundle

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/tidwall/jsonc"

	"github.com/clovenbradshaw-ctrl/khora/lib/oplog"
)

// operationFile is the object form of a hand-written operation file.
type operationFile struct {
	Operations []oplog.Operation `json:"operations"`
}

// ParseJSON parses hand-written operations. Comments and trailing
// commas are allowed. The document is either an array of operations
// or an object with an "operations" array. Operator names the reader
// does not know decode as oplog.OperatorUnknown and are kept.
func ParseJSON(data []byte) ([]oplog.Operation, error) {
	stripped := bytes.TrimSpace(jsonc.ToJSON(data))
	if len(stripped) == 0 {
		return nil, fmt.Errorf("opbundle: empty operation file")
	}

	if stripped[0] == '[' {
		var operations []oplog.Operation
		if err := json.Unmarshal(stripped, &operations); err != nil {
			return nil, fmt.Errorf("opbundle: parsing operations: %w", err)
		}
		return operations, nil
	}

	var file operationFile
	if err := json.Unmarshal(stripped, &file); err != nil {
		return nil, fmt.Errorf("opbundle: parsing operations: %w", err)
	}
	return file.Operations, nil
}

// Load parses data as a bundle when it carries the bundle magic and as
// a JSONC operation file otherwise.
func Load(data []byte) ([]oplog.Operation, error) {
	if len(data) >= len(magic) && string(data[:len(magic)]) == magic {
		return Decode(data)
	}
	return ParseJSON(data)
}
