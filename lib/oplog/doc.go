// Copyright 2026 The Khora Authors
// SPDX-License-Identifier: Apache-2.0

// Package oplog reconstructs vault state from an unordered collection
// of operation records.
//
// A vault never stores its current state directly. Every change is an
// immutable [Operation] appended to a replicated log, and the state a
// client renders is whatever [Project] derives from the operations it
// has received. The log may deliver records in any order and may
// deliver a record more than once; Project is responsible for a
// deterministic result.
//
// # Replay order
//
// Project keeps only records whose frame type matches, then orders them
// by timestamp ascending. Equal timestamps are ordered by operation ID
// (byte-wise), then by position in the input. Operation IDs from
// lib/ident are UUIDv7-based, so for a single producer ID order is
// generation order. After ordering, records whose ID was already
// replayed are dropped. For inputs with distinct IDs the result is
// independent of the input order.
//
// # Operators
//
// Nine operators exist ([Operators]). Each has a handler in a dispatch
// table; a record with an operator this build does not know is skipped,
// so older clients keep projecting logs written by newer ones. No
// handler fails or panics on a structurally valid record.
//
// Projected state is a flat [State] map. Most operators write the key
// named by the last segment of the target path; DES, SEG and CON write
// derived keys ("name.designation", "name.segment",
// "name.connections") so annotations can be read and tested
// independently of the base value.
//
// Operand values reach Project already decrypted. This package never
// touches key material; see lib/vault for the caller that opens sealed
// operands first.
package oplog
