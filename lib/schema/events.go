// Copyright 2026 The Khora Authors
// SPDX-License-Identifier: Apache-2.0

package schema

import "github.com/clovenbradshaw-ctrl/khora/lib/ref"

const (
	// EventTypeRecovery holds the verifier for a vault's social
	// recovery phrase. The recovery flow writes it at enrollment and
	// reads it when a phrase is submitted.
	//
	// State key: "" (one per recovery room)
	// Room: the vault's recovery room
	EventTypeRecovery ref.EventType = "m.khora.recovery"

	// EventTypeVaultKey holds the vault key sealed to one member.
	//
	// State key: the member's user ID
	// Room: the vault room
	EventTypeVaultKey ref.EventType = "m.khora.vault_key"
)

// RecoveryContent is the content of an EventTypeRecovery state event.
type RecoveryContent struct {
	// Version is the hashing scheme. Currently RecoveryVersion.
	Version int `json:"version"`

	// PhraseHash is the base64 argon2id digest of the normalized
	// recovery phrase.
	PhraseHash string `json:"phrase_hash"`

	// Salt is the base64 salt mixed into PhraseHash.
	Salt string `json:"salt"`

	// EnrolledBy is the user ID that enrolled the phrase.
	EnrolledBy ref.UserID `json:"enrolled_by"`

	// EnrolledAt is the enrollment time in Unix milliseconds.
	EnrolledAt int64 `json:"enrolled_at"`
}

// RecoveryVersion is the current RecoveryContent.Version.
const RecoveryVersion = 1

// VaultKeyContent is the content of an EventTypeVaultKey state event.
type VaultKeyContent struct {
	// Recipient is the age public key the vault key was sealed to.
	Recipient string `json:"recipient"`

	// Ciphertext is the base64 age ciphertext of the vault key.
	Ciphertext string `json:"ciphertext"`

	// SharedBy is the member who sealed the key.
	SharedBy ref.UserID `json:"shared_by"`
}
