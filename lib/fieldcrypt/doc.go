// Copyright 2026 The Khora Authors
// SPDX-License-Identifier: Apache-2.0

// Package fieldcrypt encrypts individual vault field values with
// AES-256-GCM.
//
// Keys are 32 random bytes carried as standard base64 ([Key]). Every
// [Encrypt] call draws a fresh 12-byte nonce, returned base64-encoded
// alongside the ciphertext in [Sealed], so identical plaintexts under
// one key never produce the same output.
//
// [Decrypt] fails soft: wrong key, tampered ciphertext, truncated
// input, or malformed base64 all return an [Opened] whose OK field is
// false. There is no error return. Callers treat "undecryptable" as an
// ordinary state to render or skip, not as a failure to propagate.
//
// [DeriveKey] derives subordinate keys with HKDF-SHA256, and [Keyring]
// keeps a vault key in a secret.Buffer and derives one key per field
// target path.
//
// All functions are safe for concurrent use. None retries internally.
package fieldcrypt
