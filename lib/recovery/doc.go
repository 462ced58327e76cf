// Copyright 2026 The Khora Authors
// SPDX-License-Identifier: Apache-2.0

// Package recovery implements social recovery of a vault: a member
// who lost their account proves knowledge of a phrase enrolled in
// advance, and the vault's recovery room lets a new account take over
// the old one's place.
//
// Enrollment stores only a salted argon2id hash of the normalized
// phrase, published as an m.khora.recovery state record with attribute
// phrase_hash. A recovery attempt is two steps: [Manager.Begin] opens
// a time-boxed pending record for the requesting account, and
// [Manager.Submit] consumes that record with exactly one phrase
// submission. Pending records live in a bounded in-memory
// [PendingCache] whose deadlines are checked at lookup; losing them on
// restart only forces the requester to begin again.
package recovery
