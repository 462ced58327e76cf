// Copyright 2026 The Khora Authors
// SPDX-License-Identifier: Apache-2.0

package recovery

import (
	"crypto/subtle"
	"strings"

	"golang.org/x/crypto/argon2"
	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// Argon2id parameters for phrase hashing.
const (
	hashTime    = 1
	hashMemory  = 64 * 1024
	hashThreads = 4

	// HashSize is the length of a phrase hash in bytes.
	HashSize = 32

	// SaltSize is the length of a freshly generated phrase salt.
	SaltSize = 16
)

// NormalizePhrase canonicalizes a recovery phrase so that the same
// words typed on different devices compare equal: NFKC normalization,
// Unicode case folding, and every run of whitespace collapsed to a
// single space with none leading or trailing.
func NormalizePhrase(phrase string) string {
	folded := cases.Fold().String(norm.NFKC.String(phrase))
	return strings.Join(strings.Fields(folded), " ")
}

// HashPhrase returns the argon2id hash of the normalized phrase.
func HashPhrase(phrase string, salt []byte) []byte {
	return argon2.IDKey([]byte(NormalizePhrase(phrase)), salt, hashTime, hashMemory, hashThreads, HashSize)
}

// VerifyPhrase reports whether phrase hashes to want under salt. The
// comparison is constant time.
func VerifyPhrase(phrase string, salt, want []byte) bool {
	if len(want) != HashSize {
		return false
	}
	return subtle.ConstantTimeCompare(HashPhrase(phrase, salt), want) == 1
}
