// Copyright 2026 The Khora Authors
// SPDX-License-Identifier: Apache-2.0

// Package sealed wraps filippo.io/age for sharing vault keys between
// members. Each member publishes an age X25519 public key; a member
// who holds the vault key seals it to another member's public key and
// publishes the ciphertext as m.khora.vault_key state. The recipient
// opens it with their private key.
//
// Ciphertext is base64 for embedding in JSON state content. Private
// keys and opened plaintext are held in [secret.Buffer] values and
// must be closed by the caller.
package sealed
