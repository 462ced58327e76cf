// Copyright 2026 The Khora Authors
// SPDX-License-Identifier: Apache-2.0

// Package store is the local replica of a vault: the operation log as
// received from the replicated transport, and the small set of state
// records (recovery verifiers, sealed vault keys) published alongside
// it.
//
// Operations are stored as deterministic CBOR and deduplicated by ID on
// insert, so redelivery from the transport is harmless. They are
// returned in arrival order; ordering for replay is the projection
// engine's job, not the store's. State records are keyed by (room,
// event type, state key) with last-write-wins semantics and JSON
// content, mirroring Matrix room state.
package store
