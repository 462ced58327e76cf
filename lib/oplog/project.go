// Copyright 2026 The Khora Authors
// SPDX-License-Identifier: Apache-2.0

package oplog

import (
	"cmp"
	"maps"
	"reflect"
	"slices"
	"strings"

	"github.com/clovenbradshaw-ctrl/khora/lib/fieldpath"
)

// handler applies one operation to state. field is the already-resolved
// key for op.Target. Handlers must not retain or modify op.Operand.
type handler func(state State, op *Operation, field string)

// handlers is the dispatch table. Indexing by Operator means a new
// operator without a handler is a nil entry, which TestEveryOperatorHasHandler
// catches.
var handlers = [operatorLimit]handler{
	NUL: applyNullify,
	DES: applyDesignate,
	INS: applyInsert,
	SEG: applySegment,
	CON: applyConnect,
	SYN: applySynthesize,
	ALT: applyAlter,
	SUP: applySuperpose,
	REC: applyRecover,
}

// Project replays every operation whose frame type equals frameType and
// returns the resulting state. The input slice and its records are not
// modified. See the package documentation for ordering rules.
func Project(operations []Operation, frameType string) State {
	return project(selectFrame(operations, frameType))
}

// ProjectAll projects every frame type present in operations.
func ProjectAll(operations []Operation) map[string]State {
	byFrame := make(map[string][]*Operation)
	for index := range operations {
		frameType := operations[index].Frame.Type
		byFrame[frameType] = append(byFrame[frameType], &operations[index])
	}
	result := make(map[string]State, len(byFrame))
	for frameType, selected := range byFrame {
		result[frameType] = project(selected)
	}
	return result
}

// FrameTypes returns the distinct frame types present, sorted.
func FrameTypes(operations []Operation) []string {
	seen := make(map[string]bool)
	var frameTypes []string
	for index := range operations {
		frameType := operations[index].Frame.Type
		if !seen[frameType] {
			seen[frameType] = true
			frameTypes = append(frameTypes, frameType)
		}
	}
	slices.Sort(frameTypes)
	return frameTypes
}

func selectFrame(operations []Operation, frameType string) []*Operation {
	var selected []*Operation
	for index := range operations {
		if operations[index].Frame.Type == frameType {
			selected = append(selected, &operations[index])
		}
	}
	return selected
}

func project(selected []*Operation) State {
	// Stable sort keeps input position as the final tie-breaker.
	slices.SortStableFunc(selected, compareReplayOrder)

	state := make(State)
	replayed := make(map[string]bool, len(selected))
	for _, op := range selected {
		if op.ID != "" {
			if replayed[op.ID] {
				continue
			}
			replayed[op.ID] = true
		}
		apply(state, op)
	}
	return state
}

func compareReplayOrder(a, b *Operation) int {
	if order := cmp.Compare(a.TS, b.TS); order != 0 {
		return order
	}
	return strings.Compare(a.ID, b.ID)
}

func apply(state State, op *Operation) {
	if !op.Op.Known() {
		return
	}
	field, ok := op.Field()
	if !ok {
		return
	}
	handlers[op.Op](state, op, field)
}

func stamp(entry FieldState, op *Operation) FieldState {
	entry.UpdatedAt = op.TS
	entry.LastOp = op.ID
	return entry
}

func applyInsert(state State, op *Operation, field string) {
	state[field] = stamp(FieldState{Value: op.Operand.Get(OperandValue)}, op)
}

// applyAlter changes an existing field. A field that was never
// inserted cannot be altered; the operation is a no-op.
func applyAlter(state State, op *Operation, field string) {
	entry, exists := state[field]
	if !exists {
		return
	}
	entry.Value = op.Operand.Get(OperandTo)
	entry.NullifiedBy = nil
	entry.restorable = nil
	entry.Superposition = false
	entry.Values = nil
	state[field] = stamp(entry, op)
}

func applyNullify(state State, op *Operation, field string) {
	previous, exists := state[field]
	restorable := previous.restorable
	if exists && !previous.Nullified() {
		restorable = previous.Value
	}
	provenance := maps.Clone(op.Operand)
	if provenance == nil {
		provenance = Operand{}
	}
	state[field] = stamp(FieldState{NullifiedBy: provenance, restorable: restorable}, op)
}

func applySuperpose(state State, op *Operation, field string) {
	state[field] = stamp(FieldState{
		Superposition: true,
		Values:        toSlice(op.Operand.Get(OperandStates)),
	}, op)
}

func applyDesignate(state State, op *Operation, field string) {
	key := fieldpath.DesignationKey(field)
	state[key] = stamp(FieldState{Value: op.Operand.Get(OperandDesignation)}, op)
}

func applySegment(state State, op *Operation, field string) {
	key := fieldpath.Derived(field, SuffixSegment)
	state[key] = stamp(FieldState{Value: op.Operand.Get(OperandSegment)}, op)
}

// applyConnect adds operand.to to the field's connection set. Adding a
// connection that already exists changes nothing but the stamp.
func applyConnect(state State, op *Operation, field string) {
	key := fieldpath.Derived(field, SuffixConnections)
	entry := state[key]
	connection := op.Operand.Get(OperandTo)
	values := slices.Clone(entry.Values)
	if !slices.ContainsFunc(values, func(existing any) bool {
		return reflect.DeepEqual(existing, connection)
	}) {
		values = append(values, connection)
	}
	entry.Values = values
	entry.Value = nil
	state[key] = stamp(entry, op)
}

// applySynthesize collapses the field to a single value, ending any
// superposition.
func applySynthesize(state State, op *Operation, field string) {
	state[field] = stamp(FieldState{Value: op.Operand.Get(OperandValue)}, op)
}

// applyRecover restores a nullified field, either to operand.value or,
// if the operand has none, to the value it held before nullification.
// Recovering a field that is absent or not nullified is a no-op.
func applyRecover(state State, op *Operation, field string) {
	entry, exists := state[field]
	if !exists || !entry.Nullified() {
		return
	}
	value := entry.restorable
	if op.Operand.Has(OperandValue) {
		value = op.Operand.Get(OperandValue)
	}
	state[field] = stamp(FieldState{Value: value}, op)
}

// toSlice normalizes a decoded operand attribute into []any. JSON and
// CBOR decoding produce []any; records built in Go may carry typed
// slices. A scalar becomes a one-element slice and nil an empty one.
func toSlice(value any) []any {
	switch typed := value.(type) {
	case nil:
		return []any{}
	case []any:
		return slices.Clone(typed)
	}
	reflected := reflect.ValueOf(value)
	if reflected.Kind() != reflect.Slice && reflected.Kind() != reflect.Array {
		return []any{value}
	}
	result := make([]any, reflected.Len())
	for index := range result {
		result[index] = reflected.Index(index).Interface()
	}
	return result
}
