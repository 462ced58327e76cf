// Copyright 2026 The Khora Authors
// SPDX-License-Identifier: Apache-2.0

package sealed

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"

	"filippo.io/age"

	"github.com/clovenbradshaw-ctrl/khora/lib/secret"
)

// Keypair is a member's age X25519 identity. Close releases the
// private key.
type Keypair struct {
	// PrivateKey is the AGE-SECRET-KEY-1... encoding. Never log it.
	PrivateKey *secret.Buffer

	// PublicKey is the age1... recipient string, safe to publish.
	PublicKey string
}

// Close zeroes and releases the private key. Idempotent.
func (k *Keypair) Close() error {
	if k.PrivateKey == nil {
		return nil
	}
	return k.PrivateKey.Close()
}

// GenerateKeypair creates a new member identity.
func GenerateKeypair() (*Keypair, error) {
	identity, err := age.GenerateX25519Identity()
	if err != nil {
		return nil, fmt.Errorf("sealed: generating identity: %w", err)
	}
	privateKey, err := secret.NewFromBytes([]byte(identity.String()))
	if err != nil {
		return nil, fmt.Errorf("sealed: protecting private key: %w", err)
	}
	return &Keypair{
		PrivateKey: privateKey,
		PublicKey:  identity.Recipient().String(),
	}, nil
}

// Seal encrypts plaintext to every recipient and returns base64
// ciphertext. Any one recipient's private key opens it.
func Seal(plaintext []byte, recipientKeys ...string) (string, error) {
	if len(recipientKeys) == 0 {
		return "", fmt.Errorf("sealed: at least one recipient is required")
	}
	recipients := make([]age.Recipient, 0, len(recipientKeys))
	for _, key := range recipientKeys {
		recipient, err := age.ParseX25519Recipient(key)
		if err != nil {
			return "", fmt.Errorf("sealed: recipient %q: %w", key, err)
		}
		recipients = append(recipients, recipient)
	}

	var ciphertext bytes.Buffer
	writer, err := age.Encrypt(&ciphertext, recipients...)
	if err != nil {
		return "", fmt.Errorf("sealed: creating encryptor: %w", err)
	}
	if _, err := writer.Write(plaintext); err != nil {
		return "", fmt.Errorf("sealed: encrypting: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("sealed: finalizing: %w", err)
	}
	return base64.StdEncoding.EncodeToString(ciphertext.Bytes()), nil
}

// Open decrypts base64 ciphertext with privateKey, which is borrowed
// and not closed. The caller must close the returned buffer.
func Open(ciphertext string, privateKey *secret.Buffer) (*secret.Buffer, error) {
	identity, err := parseIdentity(privateKey)
	if err != nil {
		return nil, err
	}
	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return nil, fmt.Errorf("sealed: decoding ciphertext: %w", err)
	}
	reader, err := age.Decrypt(bytes.NewReader(raw), identity)
	if err != nil {
		return nil, fmt.Errorf("sealed: decrypting: %w", err)
	}
	plaintext, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("sealed: reading plaintext: %w", err)
	}
	if len(plaintext) == 0 {
		return nil, fmt.Errorf("sealed: ciphertext holds no key material")
	}
	buffer, err := secret.NewFromBytes(plaintext)
	if err != nil {
		clear(plaintext)
		return nil, fmt.Errorf("sealed: protecting plaintext: %w", err)
	}
	return buffer, nil
}

// PublicKey returns the recipient string for privateKey.
func PublicKey(privateKey *secret.Buffer) (string, error) {
	identity, err := parseIdentity(privateKey)
	if err != nil {
		return "", err
	}
	return identity.Recipient().String(), nil
}

// ParsePublicKey validates an age X25519 recipient string.
func ParsePublicKey(publicKey string) error {
	if _, err := age.ParseX25519Recipient(publicKey); err != nil {
		return fmt.Errorf("sealed: invalid public key: %w", err)
	}
	return nil
}

func parseIdentity(privateKey *secret.Buffer) (*age.X25519Identity, error) {
	identity, err := age.ParseX25519Identity(string(privateKey.Bytes()))
	if err != nil {
		return nil, fmt.Errorf("sealed: invalid private key: %w", err)
	}
	return identity, nil
}
