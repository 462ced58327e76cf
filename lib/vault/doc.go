// Copyright 2026 The Khora Authors
// SPDX-License-Identifier: Apache-2.0

// Package vault is the caller side of the projection engine. It
// records operations with field values sealed under the vault key,
// stores them in the local replica, and produces current state by
// opening sealed operands before handing the log to oplog.Project,
// which never touches key material.
//
// A sealed operand carries its protected attributes under "sealed":
//
//	{"sealed": {"value": {"ciphertext": "...", "iv": "..."}}}
//
// Each attribute is the JSON encoding of the original value, sealed by
// a fieldcrypt.Keyring under the key derived for the operation's
// target. Opening replaces the "sealed" entry with the plaintext
// attributes. An attribute that cannot be opened (wrong key, tampered
// ciphertext, no key held) becomes [Undecryptable] and projection
// proceeds with it.
//
// The vault key itself travels as m.khora.vault_key state, sealed to
// each member's age public key.
package vault
