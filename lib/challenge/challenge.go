// Copyright 2026 The Khora Authors
// SPDX-License-Identifier: Apache-2.0

package challenge

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/zeebo/blake3"

	"github.com/clovenbradshaw-ctrl/khora/lib/clock"
	"github.com/clovenbradshaw-ctrl/khora/lib/ref"
)

const (
	// DefaultValidity is how long a challenge accepts its code.
	DefaultValidity = 10 * time.Minute

	// DefaultMaxAttempts is the number of wrong codes a challenge
	// tolerates before it is exhausted.
	DefaultMaxAttempts = 3

	// CodeLength is the number of decimal digits in a plaintext code.
	CodeLength = 6

	// SaltSize is the size of the per-challenge verifier key.
	SaltSize = 32

	// IDPrefix prefixes every challenge ID.
	IDPrefix = "ch_"
)

// codeSpace is 10^CodeLength.
var codeSpace = big.NewInt(1_000_000)

// verifierDomain separates challenge verifiers from any other keyed
// BLAKE3 use of the same salt.
const verifierDomain = "khora.challenge.v1"

// Kind is what a challenge proves ownership of.
type Kind string

const (
	KindEmail   Kind = "email"
	KindAccount Kind = "account"
)

// Status is the lifecycle state of a challenge.
type Status string

const (
	StatusPending   Status = "pending"
	StatusValid     Status = "valid"
	StatusExpired   Status = "expired"
	StatusExhausted Status = "exhausted"
)

// Terminal reports whether no further code can succeed.
func (s Status) Terminal() bool {
	return s == StatusValid || s == StatusExpired || s == StatusExhausted
}

// Reason explains why Validate rejected a code.
type Reason string

const (
	ReasonAlreadyUsed   Reason = "already_used"
	ReasonMaxAttempts   Reason = "max_attempts"
	ReasonExpired       Reason = "expired"
	ReasonIncorrectCode Reason = "incorrect_code"
	ReasonUnknown       Reason = "unknown_challenge"
)

// ErrInvalidSubject is returned when a challenge is requested for a
// malformed email address or actor ID.
var ErrInvalidSubject = errors.New("challenge: invalid subject")

// Challenge is one outstanding verification. It is safe to store and
// replicate: it holds a verifier of the code, never the code.
type Challenge struct {
	ID       string    `json:"id"`
	Kind     Kind      `json:"kind"`
	Subject  string    `json:"subject"`
	Status   Status    `json:"status"`
	Created  time.Time `json:"created"`
	Expires  time.Time `json:"expires"`
	Attempts int       `json:"attempts"`
	Salt     []byte    `json:"salt"`
	Verifier []byte    `json:"verifier"`
}

// Result is the outcome of a validation. Reason is empty when Valid.
type Result struct {
	Valid  bool   `json:"valid"`
	Reason Reason `json:"reason,omitempty"`
}

func reject(reason Reason) Result { return Result{Reason: reason} }

// Engine issues and validates challenges. The zero value is usable:
// it reads the real clock and applies DefaultValidity and
// DefaultMaxAttempts.
type Engine struct {
	// Clock supplies the time for creation and expiry checks.
	Clock clock.Clock

	// Validity is how long a new challenge accepts its code.
	Validity time.Duration

	// MaxAttempts is the wrong-code budget per challenge.
	MaxAttempts int

	// Logger receives one record per issued and per rejected
	// challenge. Codes are never logged. Nil discards.
	Logger *slog.Logger
}

func (e *Engine) now() time.Time {
	if e.Clock == nil {
		return time.Now()
	}
	return e.Clock.Now()
}

func (e *Engine) validity() time.Duration {
	if e.Validity <= 0 {
		return DefaultValidity
	}
	return e.Validity
}

func (e *Engine) maxAttempts() int {
	if e.MaxAttempts <= 0 {
		return DefaultMaxAttempts
	}
	return e.MaxAttempts
}

func (e *Engine) logger() *slog.Logger {
	if e.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return e.Logger
}

// CreateEmail issues a challenge proving ownership of an email
// address. The address is trimmed and lowercased before it becomes
// the subject.
func (e *Engine) CreateEmail(address string) (*Challenge, string, error) {
	address = strings.ToLower(strings.TrimSpace(address))
	if !IsValidEmailFormat(address) {
		return nil, "", fmt.Errorf("%w: email %q", ErrInvalidSubject, address)
	}
	return e.create(KindEmail, address)
}

// CreateAccount issues a challenge proving control of a Matrix account.
func (e *Engine) CreateAccount(actorID string) (*Challenge, string, error) {
	if !ref.IsValidActorID(actorID) {
		return nil, "", fmt.Errorf("%w: actor %q", ErrInvalidSubject, actorID)
	}
	return e.create(KindAccount, actorID)
}

func (e *Engine) create(kind Kind, subject string) (*Challenge, string, error) {
	id, err := newID()
	if err != nil {
		return nil, "", err
	}
	code, err := generateCode()
	if err != nil {
		return nil, "", err
	}
	salt := make([]byte, SaltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, "", fmt.Errorf("generating challenge salt: %w", err)
	}
	verifier, err := computeVerifier(salt, id, code)
	if err != nil {
		return nil, "", err
	}

	now := e.now()
	challenge := &Challenge{
		ID:       id,
		Kind:     kind,
		Subject:  subject,
		Status:   StatusPending,
		Created:  now,
		Expires:  now.Add(e.validity()),
		Attempts: 0,
		Salt:     salt,
		Verifier: verifier,
	}
	e.logger().Info("challenge issued",
		"id", id,
		"kind", kind,
		"expires", challenge.Expires,
	)
	return challenge, code, nil
}

// Validate checks a supplied code against the challenge and updates its
// Status and Attempts. Rejections are recomputed on every call, so an
// expired or exhausted challenge stays rejected even if its Status was
// edited.
func (e *Engine) Validate(challenge *Challenge, code string) Result {
	result := e.validate(challenge, code)
	if !result.Valid {
		e.logger().Info("challenge rejected",
			"id", challenge.ID,
			"reason", result.Reason,
			"attempts", challenge.Attempts,
		)
	}
	return result
}

func (e *Engine) validate(challenge *Challenge, code string) Result {
	if challenge.Status == StatusValid {
		return reject(ReasonAlreadyUsed)
	}

	limit := e.maxAttempts()
	if challenge.Attempts >= limit {
		challenge.Status = StatusExhausted
		return reject(ReasonMaxAttempts)
	}

	if e.now().After(challenge.Expires) {
		challenge.Status = StatusExpired
		return reject(ReasonExpired)
	}

	if !challenge.matches(strings.TrimSpace(code)) {
		challenge.Attempts++
		if challenge.Attempts >= limit {
			challenge.Status = StatusExhausted
		}
		return reject(ReasonIncorrectCode)
	}

	challenge.Status = StatusValid
	return Result{Valid: true}
}

func (c *Challenge) matches(code string) bool {
	if len(code) != CodeLength {
		return false
	}
	candidate, err := computeVerifier(c.Salt, c.ID, code)
	if err != nil {
		return false
	}
	return subtle.ConstantTimeCompare(candidate, c.Verifier) == 1
}

// computeVerifier is BLAKE3 keyed by the salt over the domain, the
// challenge ID, and the code, each NUL-terminated.
func computeVerifier(salt []byte, id, code string) ([]byte, error) {
	hasher, err := blake3.NewKeyed(salt)
	if err != nil {
		return nil, fmt.Errorf("keying challenge verifier: %w", err)
	}
	for _, part := range []string{verifierDomain, id, code} {
		hasher.Write([]byte(part))
		hasher.Write([]byte{0})
	}
	return hasher.Sum(nil), nil
}

func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, codeSpace)
	if err != nil {
		return "", fmt.Errorf("generating challenge code: %w", err)
	}
	return fmt.Sprintf("%0*d", CodeLength, n.Int64()), nil
}

func newID() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("generating challenge id: %w", err)
	}
	return IDPrefix + hex.EncodeToString(id[:]), nil
}
