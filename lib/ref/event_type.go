// Copyright 2026 The Khora Authors
// SPDX-License-Identifier: Apache-2.0

package ref

// EventType identifies a Matrix state event type. Khora's own types
// use the m.khora.* namespace; constants live in lib/schema.
//
// It is a named string rather than a struct: event types need no
// validation, only compile-time separation from state keys.
type EventType string

// String returns the event type string.
func (t EventType) String() string { return string(t) }
