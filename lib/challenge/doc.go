// Copyright 2026 The Khora Authors
// SPDX-License-Identifier: Apache-2.0

// Package challenge implements time-boxed verification challenges that
// gate privileged vault transitions: proving ownership of an email
// address or of a Matrix account.
//
// An [Engine] issues a [Challenge] together with a six-digit plaintext
// code. The caller delivers the code out of band; the challenge itself
// carries only a random salt and a keyed BLAKE3 verifier of the code,
// so a stored or replicated challenge never reveals it.
//
// [Engine.Validate] applies the checks in a fixed order: a consumed
// challenge is rejected, then the attempt budget, then expiry, and only
// then is the supplied code compared. A wrong code increments the
// attempt counter. Expiry is evaluated against the engine's clock at
// validation time; there is no background timer.
//
// Validate mutates the challenge it is given and is not safe for
// concurrent use on the same challenge. [Registry] holds challenges by
// ID and serializes validation so that concurrent wrong guesses
// accumulate instead of overwriting each other.
package challenge
