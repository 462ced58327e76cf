// Copyright 2026 The Khora Authors
// SPDX-License-Identifier: Apache-2.0

// Package schema defines the Matrix state event types Khora publishes
// to vault rooms and the Go types of their content.
//
// State records here are the only data Khora writes outside the
// operation log itself. They hold verifiers and wrapped keys, never
// plaintext secrets: a recovery record carries a salted phrase hash,
// and a vault key record carries the vault key sealed to one member's
// age public key.
package schema
