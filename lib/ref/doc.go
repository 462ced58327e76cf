// Copyright 2026 The Khora Authors
// SPDX-License-Identifier: Apache-2.0

// Package ref provides validated, immutable references to the Matrix
// identifiers Khora handles: actor (user) IDs, room IDs, server names,
// and state event types.
//
// Operations in the vault log are authored by actors ("@alice:matrix.org")
// and scoped to rooms ("!vault:matrix.org"). Values are parsed once at
// the boundary into [UserID] and [RoomID]; code past the boundary never
// re-validates raw strings.
//
// For loosely typed inputs (operation records decoded from the log,
// cohort analytics) [IsValidActorID] and [ParseHomeserver] work on raw
// strings without allocating a ref.
//
// JSON marshaling uses the canonical string form via
// encoding.TextMarshaler.
package ref
