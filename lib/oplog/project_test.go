// Copyright 2026 The Khora Authors
// SPDX-License-Identifier: Apache-2.0

package oplog

import (
	"encoding/json"
	"reflect"
	"testing"
)

const testFrame = "test"

func op(id string, operator Operator, target string, ts int64, operand Operand) Operation {
	return Operation{
		ID:      id,
		Op:      operator,
		Target:  target,
		Operand: operand,
		TS:      ts,
		Frame:   Frame{Type: testFrame},
	}
}

// permutations returns every ordering of operations.
func permutations(operations []Operation) [][]Operation {
	if len(operations) <= 1 {
		return [][]Operation{append([]Operation(nil), operations...)}
	}
	var result [][]Operation
	for index := range operations {
		rest := make([]Operation, 0, len(operations)-1)
		rest = append(rest, operations[:index]...)
		rest = append(rest, operations[index+1:]...)
		for _, tail := range permutations(rest) {
			result = append(result, append([]Operation{operations[index]}, tail...))
		}
	}
	return result
}

func TestProjectOrderIndependent(t *testing.T) {
	operations := []Operation{
		op("op_1", INS, "vault.fields.name", 1000, Operand{"value": "Alice"}),
		op("op_2", ALT, "vault.fields.name", 2000, Operand{"to": "Bob"}),
		op("op_3", ALT, "vault.fields.name", 3000, Operand{"to": "Charlie"}),
	}
	for _, ordering := range permutations(operations) {
		state := Project(ordering, testFrame)
		if got := state.Value("name"); got != "Charlie" {
			t.Errorf("ordering %v: name = %v, want Charlie", ids(ordering), got)
		}
	}
}

func ids(operations []Operation) []string {
	result := make([]string, len(operations))
	for index := range operations {
		result[index] = operations[index].ID
	}
	return result
}

func TestAlterWithoutInsertIsNoOp(t *testing.T) {
	state := Project([]Operation{
		op("op_1", ALT, "vault.fields.name", 1000, Operand{"to": "Bob"}),
	}, testFrame)
	if _, exists := state.Get("name"); exists {
		t.Errorf("ALT without INS created a field: %+v", state)
	}
	if len(state) != 0 {
		t.Errorf("state has %d entries, want 0", len(state))
	}
}

func TestAlterBeforeInsertIsNoOp(t *testing.T) {
	state := Project([]Operation{
		op("op_2", INS, "vault.fields.name", 2000, Operand{"value": "Alice"}),
		op("op_1", ALT, "vault.fields.name", 1000, Operand{"to": "Bob"}),
	}, testFrame)
	if got := state.Value("name"); got != "Alice" {
		t.Errorf("name = %v, want Alice (ALT predates INS)", got)
	}
}

func TestNullifyAfterInsert(t *testing.T) {
	state := Project([]Operation{
		op("op_1", INS, "vault.fields.name", 1000, Operand{"value": "Alice"}),
		op("op_2", NUL, "vault.fields.name", 2000, Operand{"reason": "gdpr", "by": "@alice:matrix.org"}),
	}, testFrame)
	field, exists := state.Get("name")
	if !exists {
		t.Fatal("nullified field missing from state")
	}
	if field.Value != nil {
		t.Errorf("value = %v, want nil", field.Value)
	}
	if !field.Nullified() {
		t.Fatal("Nullified() = false")
	}
	if field.NullifiedBy["reason"] != "gdpr" {
		t.Errorf("nullified_by = %v", field.NullifiedBy)
	}
	if field.LastOp != "op_2" || field.UpdatedAt != 2000 {
		t.Errorf("stamp = (%q, %d), want (op_2, 2000)", field.LastOp, field.UpdatedAt)
	}
}

func TestNullifyDoesNotAliasOperand(t *testing.T) {
	operand := Operand{"reason": "gdpr"}
	state := Project([]Operation{
		op("op_1", NUL, "vault.fields.name", 1000, operand),
	}, testFrame)
	field := state["name"]
	field.NullifiedBy["reason"] = "changed"
	if operand["reason"] != "gdpr" {
		t.Error("mutating projected provenance changed the input record")
	}
}

func TestSuperpose(t *testing.T) {
	state := Project([]Operation{
		op("op_1", SUP, "vault.fields.status", 1000, Operand{"states": []any{"employed", "student"}}),
	}, testFrame)
	field := state["status"]
	if !field.Superposition {
		t.Error("superposition = false")
	}
	if !reflect.DeepEqual(field.Values, []any{"employed", "student"}) {
		t.Errorf("values = %v", field.Values)
	}
}

func TestSuperposeTypedSlice(t *testing.T) {
	state := Project([]Operation{
		op("op_1", SUP, "status", 1000, Operand{"states": []string{"employed", "student"}}),
	}, testFrame)
	if !reflect.DeepEqual(state["status"].Values, []any{"employed", "student"}) {
		t.Errorf("values = %v", state["status"].Values)
	}
}

func TestDesignateWritesDerivedKey(t *testing.T) {
	state := Project([]Operation{
		op("op_1", INS, "vault.fields.name", 1000, Operand{"value": "Alice"}),
		op("op_2", DES, "vault.fields.name", 2000, Operand{"designation": "legal_name"}),
	}, testFrame)
	if got := state.Value("name"); got != "Alice" {
		t.Errorf("base field changed to %v", got)
	}
	designation, ok := state.Designation("name")
	if !ok || designation != "legal_name" {
		t.Errorf("Designation(name) = (%v, %v)", designation, ok)
	}
	if _, ok := state.Get("name.designation"); !ok {
		t.Error("derived key name.designation missing")
	}
}

func TestDesignateWithoutBaseField(t *testing.T) {
	state := Project([]Operation{
		op("op_1", DES, "vault.fields.name", 1000, Operand{"designation": "primary"}),
	}, testFrame)
	if _, ok := state.Get("name"); ok {
		t.Error("DES created the base field")
	}
	if state.Value("name.designation") != "primary" {
		t.Errorf("state = %+v", state)
	}
}

func TestSegment(t *testing.T) {
	state := Project([]Operation{
		op("op_1", SEG, "vault.fields.address", 1000, Operand{"segment": "postal"}),
	}, testFrame)
	if state.Value("address.segment") != "postal" {
		t.Errorf("state = %+v", state)
	}
}

func TestConnectAccumulatesWithoutDuplicates(t *testing.T) {
	state := Project([]Operation{
		op("op_1", CON, "vault.fields.employer", 1000, Operand{"to": "vault.fields.address"}),
		op("op_2", CON, "vault.fields.employer", 2000, Operand{"to": "vault.fields.phone"}),
		op("op_3", CON, "vault.fields.employer", 3000, Operand{"to": "vault.fields.address"}),
	}, testFrame)
	field := state["employer.connections"]
	want := []any{"vault.fields.address", "vault.fields.phone"}
	if !reflect.DeepEqual(field.Values, want) {
		t.Errorf("connections = %v, want %v", field.Values, want)
	}
	if field.LastOp != "op_3" {
		t.Errorf("last_op = %q, want op_3", field.LastOp)
	}
}

func TestSynthesizeResolvesSuperposition(t *testing.T) {
	state := Project([]Operation{
		op("op_1", SUP, "status", 1000, Operand{"states": []any{"employed", "student"}}),
		op("op_2", SYN, "status", 2000, Operand{"value": "student"}),
	}, testFrame)
	field := state["status"]
	if field.Superposition || field.Values != nil {
		t.Errorf("superposition not resolved: %+v", field)
	}
	if field.Value != "student" {
		t.Errorf("value = %v, want student", field.Value)
	}
}

func TestRecoverRestoresPreviousValue(t *testing.T) {
	state := Project([]Operation{
		op("op_1", INS, "name", 1000, Operand{"value": "Alice"}),
		op("op_2", NUL, "name", 2000, Operand{"reason": "mistake"}),
		op("op_3", REC, "name", 3000, Operand{}),
	}, testFrame)
	field := state["name"]
	if field.Nullified() {
		t.Error("field still nullified after REC")
	}
	if field.Value != "Alice" {
		t.Errorf("value = %v, want Alice", field.Value)
	}
}

func TestRecoverAfterRepeatedNullify(t *testing.T) {
	state := Project([]Operation{
		op("op_1", INS, "name", 1000, Operand{"value": "Alice"}),
		op("op_2", NUL, "name", 2000, nil),
		op("op_3", NUL, "name", 3000, nil),
		op("op_4", REC, "name", 4000, nil),
	}, testFrame)
	if got := state.Value("name"); got != "Alice" {
		t.Errorf("value = %v, want Alice", got)
	}
}

func TestRecoverWithExplicitValue(t *testing.T) {
	state := Project([]Operation{
		op("op_1", INS, "name", 1000, Operand{"value": "Alice"}),
		op("op_2", NUL, "name", 2000, nil),
		op("op_3", REC, "name", 3000, Operand{"value": "Alicia"}),
	}, testFrame)
	if got := state.Value("name"); got != "Alicia" {
		t.Errorf("value = %v, want Alicia", got)
	}
}

func TestRecoverWithoutNullifyIsNoOp(t *testing.T) {
	state := Project([]Operation{
		op("op_1", INS, "name", 1000, Operand{"value": "Alice"}),
		op("op_2", REC, "name", 2000, Operand{"value": "Mallory"}),
		op("op_3", REC, "dob", 2000, Operand{"value": "1990"}),
	}, testFrame)
	if got := state.Value("name"); got != "Alice" {
		t.Errorf("name = %v, want Alice", got)
	}
	if _, ok := state.Get("dob"); ok {
		t.Error("REC created an absent field")
	}
}

func TestAlterClearsNullification(t *testing.T) {
	state := Project([]Operation{
		op("op_1", INS, "name", 1000, Operand{"value": "Alice"}),
		op("op_2", NUL, "name", 2000, nil),
		op("op_3", ALT, "name", 3000, Operand{"to": "Bob"}),
	}, testFrame)
	field := state["name"]
	if field.Nullified() || field.Value != "Bob" {
		t.Errorf("field = %+v", field)
	}
}

func TestProjectFiltersByFrame(t *testing.T) {
	other := op("op_2", INS, "vault.fields.secret", 2000, Operand{"value": "hidden"})
	other.Frame.Type = "other"
	state := Project([]Operation{
		op("op_1", INS, "vault.fields.name", 1000, Operand{"value": "Alice"}),
		other,
	}, testFrame)
	if _, ok := state.Get("secret"); ok {
		t.Error("operation from frame 'other' leaked into 'test'")
	}
	if state.Value("name") != "Alice" {
		t.Error("operation from the requested frame missing")
	}

	otherState := Project([]Operation{other}, "other")
	if otherState.Value("secret") != "hidden" {
		t.Error("projection of frame 'other' missing its own operation")
	}
}

func TestUnknownOperatorSkipped(t *testing.T) {
	state := Project([]Operation{
		op("op_1", INS, "name", 1000, Operand{"value": "Alice"}),
		op("op_2", OperatorUnknown, "name", 2000, Operand{"value": "Mallory"}),
		op("op_3", Operator(200), "name", 3000, Operand{"value": "Mallory"}),
		op("op_4", INS, "dob", 4000, Operand{"value": "1990-01-01"}),
	}, testFrame)
	if state.Value("name") != "Alice" {
		t.Errorf("unknown operator changed state: %+v", state)
	}
	if state.Value("dob") != "1990-01-01" {
		t.Error("records after an unknown operator were not projected")
	}
}

func TestEveryOperatorToleratesEmptyRecord(t *testing.T) {
	for _, operator := range Operators {
		operations := []Operation{
			op("op_1", INS, "name", 1000, Operand{"value": "Alice"}),
			op("op_2", operator, "name", 2000, nil),
			op("op_3", operator, "", 3000, nil),
		}
		Project(operations, testFrame)
	}
}

func TestEqualTimestampTieBreakByID(t *testing.T) {
	operations := []Operation{
		op("op_b", INS, "name", 1000, Operand{"value": "second"}),
		op("op_a", INS, "name", 1000, Operand{"value": "first"}),
	}
	for _, ordering := range permutations(operations) {
		if got := Project(ordering, testFrame).Value("name"); got != "second" {
			t.Errorf("ordering %v: name = %v, want second (op_b sorts after op_a)", ids(ordering), got)
		}
	}
}

func TestEqualTimestampAndEmptyIDUsesInputOrder(t *testing.T) {
	operations := []Operation{
		op("", INS, "name", 1000, Operand{"value": "first"}),
		op("", INS, "name", 1000, Operand{"value": "second"}),
	}
	if got := Project(operations, testFrame).Value("name"); got != "second" {
		t.Errorf("name = %v, want second", got)
	}
	operations[0], operations[1] = operations[1], operations[0]
	if got := Project(operations, testFrame).Value("name"); got != "first" {
		t.Errorf("reversed: name = %v, want first", got)
	}
}

func TestDuplicateDeliveryReplayedOnce(t *testing.T) {
	connect := op("op_2", CON, "employer", 2000, Operand{"to": "address"})
	operations := []Operation{
		op("op_1", INS, "name", 1000, Operand{"value": "Alice"}),
		connect,
		connect,
		op("op_1", INS, "name", 1000, Operand{"value": "Alice"}),
	}
	state := Project(operations, testFrame)
	if len(state["employer.connections"].Values) != 1 {
		t.Errorf("connections = %v", state["employer.connections"].Values)
	}
}

func TestProjectDoesNotMutateInput(t *testing.T) {
	operations := []Operation{
		op("op_3", ALT, "name", 3000, Operand{"to": "Charlie"}),
		op("op_1", INS, "name", 1000, Operand{"value": "Alice"}),
	}
	snapshot, err := json.Marshal(operations)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	Project(operations, testFrame)
	after, err := json.Marshal(operations)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if string(snapshot) != string(after) {
		t.Errorf("input changed:\nbefore %s\nafter  %s", snapshot, after)
	}
}

func TestProjectAllAndFrameTypes(t *testing.T) {
	other := op("op_2", INS, "color", 1000, Operand{"value": "blue"})
	other.Frame.Type = "other"
	operations := []Operation{
		op("op_1", INS, "name", 1000, Operand{"value": "Alice"}),
		other,
	}
	if got := FrameTypes(operations); !reflect.DeepEqual(got, []string{"other", "test"}) {
		t.Errorf("FrameTypes = %v", got)
	}
	all := ProjectAll(operations)
	if all["test"].Value("name") != "Alice" || all["other"].Value("color") != "blue" {
		t.Errorf("ProjectAll = %+v", all)
	}
	if _, leaked := all["test"].Get("color"); leaked {
		t.Error("ProjectAll mixed frames")
	}
}

func TestOperationJSONShape(t *testing.T) {
	raw := `{"id":"op_1","op":"INS","target":"vault.fields.name","operand":{"value":"Alice"},"ts":1000,"frame":{"type":"test"}}`
	var decoded Operation
	if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if decoded.Op != INS || decoded.TS != 1000 || decoded.Frame.Type != "test" {
		t.Errorf("decoded = %+v", decoded)
	}
	if got := Project([]Operation{decoded}, "test").Value("name"); got != "Alice" {
		t.Errorf("name = %v", got)
	}
}

func TestNullifiedFieldJSONKeepsProvenance(t *testing.T) {
	state := Project([]Operation{
		op("a", INS, "vault.fields.name", 1, Operand{"value": "Alice"}),
		op("b", NUL, "vault.fields.name", 2, nil),
		op("c", INS, "vault.fields.note", 3, Operand{"value": nil}),
	}, testFrame)

	data, err := json.Marshal(state)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var raw map[string]map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if _, ok := raw["name"]["nullified_by"]; !ok {
		t.Errorf("nullified field lost nullified_by: %s", data)
	}
	if _, ok := raw["note"]["nullified_by"]; ok {
		t.Errorf("inserted null carries nullified_by: %s", data)
	}

	var decoded State
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal into State: %v", err)
	}
	if !decoded["name"].Nullified() || decoded["note"].Nullified() {
		t.Errorf("decoded nullification = name:%v note:%v",
			decoded["name"].Nullified(), decoded["note"].Nullified())
	}
}

func TestValidate(t *testing.T) {
	valid := op("op_1", INS, "vault.fields.name", 1000, Operand{"value": "Alice"})
	valid.Actor = "@alice:matrix.org"
	if err := valid.Validate(); err != nil {
		t.Errorf("Validate(valid): %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Operation)
	}{
		{"empty id", func(o *Operation) { o.ID = "" }},
		{"unknown operator", func(o *Operation) { o.Op = OperatorUnknown }},
		{"empty target", func(o *Operation) { o.Target = "" }},
		{"trailing dot", func(o *Operation) { o.Target = "vault." }},
		{"empty frame", func(o *Operation) { o.Frame.Type = "" }},
		{"bad actor", func(o *Operation) { o.Actor = "alice" }},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			candidate := valid
			test.mutate(&candidate)
			if err := candidate.Validate(); err == nil {
				t.Error("Validate succeeded")
			}
		})
	}
}
