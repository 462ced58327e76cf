// Copyright 2026 The Khora Authors
// SPDX-License-Identifier: Apache-2.0

// Package ident generates operation identifiers and computes cohort
// pseudonyms.
//
// [GenerateOperationID] returns "op_" followed by a UUIDv7 in compact
// hex. UUIDv7 embeds a millisecond timestamp and a per-process counter,
// so IDs from one producer sort in generation order. The projection
// engine relies on that only as a tie-breaker for equal timestamps.
//
// [CohortHash] derives a salted, one-way pseudonym from an actor ID for
// aggregate analysis. Consumers must treat it as opaque.
package ident
