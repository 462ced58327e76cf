// Copyright 2026 The Khora Authors
// SPDX-License-Identifier: Apache-2.0

package fieldcrypt

import (
	"encoding/base64"
	"fmt"

	"github.com/clovenbradshaw-ctrl/khora/lib/secret"
)

// fieldInfoPrefix is the HKDF info prefix for per-field keys. Changing
// it makes every existing field ciphertext undecryptable.
const fieldInfoPrefix = "khora.field.v1:"

// Keyring holds a vault key in protected memory and seals field values
// under per-target keys derived from it. Each target path gets its own
// key, so a leaked field key exposes one field, not the vault.
//
// The caller must call Close when done.
type Keyring struct {
	vaultKey *secret.Buffer
}

// NewKeyring moves the decoded vault key into a secret.Buffer.
func NewKeyring(vaultKey Key) (*Keyring, error) {
	raw, err := vaultKey.Bytes()
	if err != nil {
		return nil, fmt.Errorf("vault key: %w", err)
	}
	buffer, err := secret.NewFromBytes(raw)
	if err != nil {
		clear(raw)
		return nil, fmt.Errorf("protecting vault key: %w", err)
	}
	return &Keyring{vaultKey: buffer}, nil
}

// Close releases the vault key memory. Idempotent.
func (k *Keyring) Close() error {
	return k.vaultKey.Close()
}

// Seal encrypts plaintext under the key derived for target.
func (k *Keyring) Seal(target, plaintext string) (Sealed, error) {
	fieldKey, err := deriveRaw(k.vaultKey.Bytes(), fieldInfoPrefix+target)
	if err != nil {
		return Sealed{}, err
	}
	defer clear(fieldKey)
	return encryptRaw([]byte(plaintext), fieldKey)
}

// Open decrypts sealed with the key derived for target. A value sealed
// for a different target is Undecryptable.
func (k *Keyring) Open(target string, sealed Sealed) Opened {
	fieldKey, err := deriveRaw(k.vaultKey.Bytes(), fieldInfoPrefix+target)
	if err != nil {
		return Undecryptable
	}
	defer clear(fieldKey)
	return decryptRaw(sealed, fieldKey)
}

// FieldKey returns the derived key for target in transportable form,
// for handing a single field's key to another party.
func (k *Keyring) FieldKey(target string) (Key, error) {
	derived, err := deriveRaw(k.vaultKey.Bytes(), fieldInfoPrefix+target)
	if err != nil {
		return "", err
	}
	defer clear(derived)
	return Key(base64.StdEncoding.EncodeToString(derived)), nil
}
