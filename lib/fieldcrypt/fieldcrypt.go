// Copyright 2026 The Khora Authors
// SPDX-License-Identifier: Apache-2.0

package fieldcrypt

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

// KeySize is the length in bytes of every field and vault key.
const KeySize = 32

// NonceSize is the AES-GCM nonce length.
const NonceSize = 12

// Key is a base64-encoded (standard alphabet, padded) 256-bit key.
type Key string

// GenerateKey returns a new random key. Only fails if the system
// random source fails.
func GenerateKey() (Key, error) {
	raw := make([]byte, KeySize)
	if _, err := io.ReadFull(rand.Reader, raw); err != nil {
		return "", fmt.Errorf("generating field key: %w", err)
	}
	defer clear(raw)
	return Key(base64.StdEncoding.EncodeToString(raw)), nil
}

// ParseKey validates that encoded is base64 for exactly KeySize bytes.
func ParseKey(encoded string) (Key, error) {
	key := Key(encoded)
	raw, err := key.Bytes()
	if err != nil {
		return "", err
	}
	clear(raw)
	return key, nil
}

// Bytes decodes the key. The caller owns the returned slice and should
// clear it when done.
func (k Key) Bytes() ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(string(k))
	if err != nil {
		return nil, fmt.Errorf("decoding key: %w", err)
	}
	if len(raw) != KeySize {
		clear(raw)
		return nil, fmt.Errorf("key is %d bytes, want %d", len(raw), KeySize)
	}
	return raw, nil
}

// Sealed is an encrypted field value. Both fields are standard base64.
// The JSON form is what appears inside operation operands.
type Sealed struct {
	Ciphertext string `json:"ciphertext"`
	IV         string `json:"iv"`
}

// Opened is the result of Decrypt. When OK is false the value could not
// be authenticated and Plaintext is empty.
type Opened struct {
	Plaintext string
	OK        bool
}

// Undecryptable is the Opened value for any decryption failure.
var Undecryptable = Opened{}

// Encrypt seals plaintext under key with a fresh random nonce.
func Encrypt(plaintext string, key Key) (Sealed, error) {
	raw, err := key.Bytes()
	if err != nil {
		return Sealed{}, err
	}
	defer clear(raw)
	return encryptRaw([]byte(plaintext), raw)
}

func encryptRaw(plaintext, rawKey []byte) (Sealed, error) {
	aead, err := newGCM(rawKey)
	if err != nil {
		return Sealed{}, err
	}
	nonce := make([]byte, NonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return Sealed{}, fmt.Errorf("generating nonce: %w", err)
	}
	ciphertext := aead.Seal(nil, nonce, plaintext, nil)
	return Sealed{
		Ciphertext: base64.StdEncoding.EncodeToString(ciphertext),
		IV:         base64.StdEncoding.EncodeToString(nonce),
	}, nil
}

// Decrypt opens sealed with key. Any failure yields Undecryptable.
func Decrypt(sealed Sealed, key Key) Opened {
	raw, err := key.Bytes()
	if err != nil {
		return Undecryptable
	}
	defer clear(raw)
	return decryptRaw(sealed, raw)
}

func decryptRaw(sealed Sealed, rawKey []byte) Opened {
	nonce, err := base64.StdEncoding.DecodeString(sealed.IV)
	if err != nil || len(nonce) != NonceSize {
		return Undecryptable
	}
	ciphertext, err := base64.StdEncoding.DecodeString(sealed.Ciphertext)
	if err != nil {
		return Undecryptable
	}
	aead, err := newGCM(rawKey)
	if err != nil {
		return Undecryptable
	}
	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return Undecryptable
	}
	return Opened{Plaintext: string(plaintext), OK: true}
}

func newGCM(rawKey []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(rawKey)
	if err != nil {
		return nil, fmt.Errorf("creating AES cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("creating GCM: %w", err)
	}
	return aead, nil
}

// DeriveKey derives a subordinate key from parent with HKDF-SHA256.
// Different info strings give independent keys; the same parent and
// info always give the same key.
func DeriveKey(parent Key, info string) (Key, error) {
	raw, err := parent.Bytes()
	if err != nil {
		return "", err
	}
	defer clear(raw)
	derived, err := deriveRaw(raw, info)
	if err != nil {
		return "", err
	}
	defer clear(derived)
	return Key(base64.StdEncoding.EncodeToString(derived)), nil
}

func deriveRaw(rawParent []byte, info string) ([]byte, error) {
	derived := make([]byte, KeySize)
	reader := hkdf.New(sha256.New, rawParent, nil, []byte(info))
	if _, err := io.ReadFull(reader, derived); err != nil {
		return nil, fmt.Errorf("deriving key: %w", err)
	}
	return derived, nil
}
