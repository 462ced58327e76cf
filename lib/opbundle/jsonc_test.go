// Copyright 2026 The Khora Authors
// SPDX-License-Identifier: Apache-2.0

package opbundle

import (
	"testing"

	"github.com/clovenbradshaw-ctrl/khora/lib/oplog"
)

const handWritten = `{
	// Profile edits, out of order on purpose.
	"operations": [
		{"id": "op_b", "op": "ALT", "target": "vault.fields.name", "operand": {"to": "Bob"}, "ts": 2000, "frame": {"type": "test"}},
		{"id": "op_a", "op": "INS", "target": "vault.fields.name", "operand": {"value": "Alice"}, "ts": 1000, "frame": {"type": "test"}},
		/* from a newer client */
		{"id": "op_c", "op": "MRG", "target": "vault.fields.name", "operand": {}, "ts": 3000, "frame": {"type": "test"}},
	],
}`

func TestParseJSONObject(t *testing.T) {
	operations, err := ParseJSON([]byte(handWritten))
	if err != nil {
		t.Fatalf("ParseJSON: %v", err)
	}
	if len(operations) != 3 {
		t.Fatalf("parsed %d operations, want 3", len(operations))
	}
	if operations[0].Op != oplog.ALT || operations[0].Operand.Get("to") != "Bob" {
		t.Errorf("operations[0] = %+v", operations[0])
	}
	if operations[2].Op != oplog.OperatorUnknown {
		t.Errorf("unknown operator parsed as %s, want OperatorUnknown", operations[2].Op)
	}

	state := oplog.Project(operations, "test")
	if got := state.Value("name"); got != "Bob" {
		t.Errorf("projected name = %v, want Bob", got)
	}
}

func TestParseJSONArray(t *testing.T) {
	operations, err := ParseJSON([]byte(`[
		{"id": "op_1", "op": "SUP", "target": "status", "operand": {"states": ["employed", "student"]}, "ts": 1, "frame": {"type": "test"}}, // trailing comma next
	]`))
	if err != nil {
		t.Fatalf("ParseJSON: %v", err)
	}
	if len(operations) != 1 || operations[0].Op != oplog.SUP {
		t.Fatalf("ParseJSON = %+v", operations)
	}
}

func TestParseJSONErrors(t *testing.T) {
	for _, input := range []string{"", "   // only a comment\n", `{"operations": 7}`, `[{"ts": "soon"}]`} {
		if _, err := ParseJSON([]byte(input)); err == nil {
			t.Errorf("ParseJSON(%q) succeeded", input)
		}
	}
}

func TestLoadDetectsFormat(t *testing.T) {
	operations := sampleOperations(3)
	bundle, err := Encode(operations, CompressionLZ4)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	fromBundle, err := Load(bundle)
	if err != nil {
		t.Fatalf("Load(bundle): %v", err)
	}
	if len(fromBundle) != 3 {
		t.Errorf("Load(bundle) = %d operations, want 3", len(fromBundle))
	}

	fromJSON, err := Load([]byte(handWritten))
	if err != nil {
		t.Fatalf("Load(json): %v", err)
	}
	if len(fromJSON) != 3 {
		t.Errorf("Load(json) = %d operations, want 3", len(fromJSON))
	}
}
