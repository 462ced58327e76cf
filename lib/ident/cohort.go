// Copyright 2026 The Khora Authors
// SPDX-License-Identifier: Apache-2.0

package ident

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"io"
)

// cohortDomain separates cohort hashes from any other SHA-256 use of
// the same inputs.
const cohortDomain = "khora.cohort.v1"

// CohortHash returns base64(SHA-256(domain, actorID, salt)). Each input
// is length-prefixed so ("ab", "c") and ("a", "bc") hash differently.
// The output is deterministic for identical inputs and changes when
// either the actor or the salt changes.
func CohortHash(actorID, salt string) string {
	hash := sha256.New()
	writeField(hash, cohortDomain)
	writeField(hash, actorID)
	writeField(hash, salt)
	return base64.StdEncoding.EncodeToString(hash.Sum(nil))
}

func writeField(hash io.Writer, value string) {
	var length [8]byte
	binary.BigEndian.PutUint64(length[:], uint64(len(value)))
	hash.Write(length[:])
	io.WriteString(hash, value)
}
