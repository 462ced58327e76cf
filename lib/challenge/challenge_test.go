// Copyright 2026 The Khora Authors
// SPDX-License-Identifier: Apache-2.0

package challenge

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/clovenbradshaw-ctrl/khora/lib/clock"
)

var epoch = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

func newTestEngine(t *testing.T) (*Engine, *clock.FakeClock) {
	t.Helper()
	fake := clock.Fake(epoch)
	return &Engine{Clock: fake}, fake
}

// wrongCode returns a six-digit code different from code.
func wrongCode(code string) string {
	if code == "000000" {
		return "111111"
	}
	return "000000"
}

func TestCreateEmail(t *testing.T) {
	engine, _ := newTestEngine(t)

	challenge, code, err := engine.CreateEmail("  Alice@Example.COM ")
	if err != nil {
		t.Fatalf("CreateEmail: %v", err)
	}
	if len(code) != CodeLength {
		t.Errorf("code %q has length %d, want %d", code, len(code), CodeLength)
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			t.Fatalf("code %q contains non-digit %q", code, r)
		}
	}
	if challenge.Kind != KindEmail {
		t.Errorf("Kind = %q, want %q", challenge.Kind, KindEmail)
	}
	if challenge.Subject != "alice@example.com" {
		t.Errorf("Subject = %q, want alice@example.com", challenge.Subject)
	}
	if challenge.Status != StatusPending {
		t.Errorf("Status = %q, want pending", challenge.Status)
	}
	if challenge.Attempts != 0 {
		t.Errorf("Attempts = %d, want 0", challenge.Attempts)
	}
	if !challenge.Expires.Equal(epoch.Add(DefaultValidity)) {
		t.Errorf("Expires = %v, want %v", challenge.Expires, epoch.Add(DefaultValidity))
	}
	if !strings.HasPrefix(challenge.ID, IDPrefix) {
		t.Errorf("ID %q missing prefix %q", challenge.ID, IDPrefix)
	}
	if len(challenge.Salt) != SaltSize {
		t.Errorf("salt length = %d, want %d", len(challenge.Salt), SaltSize)
	}
}

func TestChallengeDoesNotCarryCode(t *testing.T) {
	engine, _ := newTestEngine(t)
	challenge, code, err := engine.CreateAccount("@alice:matrix.org")
	if err != nil {
		t.Fatalf("CreateAccount: %v", err)
	}
	data, err := json.Marshal(challenge)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if bytes.Contains(data, []byte(code)) {
		t.Errorf("serialized challenge contains plaintext code %q: %s", code, data)
	}
}

func TestCreateRejectsInvalidSubject(t *testing.T) {
	engine, _ := newTestEngine(t)
	if _, _, err := engine.CreateEmail("not-an-email"); !errors.Is(err, ErrInvalidSubject) {
		t.Errorf("CreateEmail(malformed) error = %v, want ErrInvalidSubject", err)
	}
	if _, _, err := engine.CreateAccount("alice:matrix.org"); !errors.Is(err, ErrInvalidSubject) {
		t.Errorf("CreateAccount(malformed) error = %v, want ErrInvalidSubject", err)
	}
}

func TestValidateCorrectCode(t *testing.T) {
	engine, _ := newTestEngine(t)
	challenge, code, err := engine.CreateEmail("alice@example.com")
	if err != nil {
		t.Fatalf("CreateEmail: %v", err)
	}

	result := engine.Validate(challenge, code)
	if !result.Valid || result.Reason != "" {
		t.Fatalf("Validate(correct) = %+v, want valid", result)
	}
	if challenge.Status != StatusValid {
		t.Errorf("Status = %q, want valid", challenge.Status)
	}

	again := engine.Validate(challenge, code)
	if again.Valid || again.Reason != ReasonAlreadyUsed {
		t.Errorf("second Validate = %+v, want already_used", again)
	}
}

func TestValidateIncorrectCode(t *testing.T) {
	engine, _ := newTestEngine(t)
	challenge, code, err := engine.CreateEmail("alice@example.com")
	if err != nil {
		t.Fatalf("CreateEmail: %v", err)
	}

	result := engine.Validate(challenge, wrongCode(code))
	if result.Valid || result.Reason != ReasonIncorrectCode {
		t.Fatalf("Validate(wrong) = %+v, want incorrect_code", result)
	}
	if challenge.Attempts != 1 {
		t.Errorf("Attempts = %d, want 1", challenge.Attempts)
	}
	if challenge.Status != StatusPending {
		t.Errorf("Status = %q, want pending", challenge.Status)
	}

	if result := engine.Validate(challenge, code); !result.Valid {
		t.Errorf("Validate(correct) after one miss = %+v, want valid", result)
	}
}

func TestValidateExpired(t *testing.T) {
	engine, fake := newTestEngine(t)
	challenge, code, err := engine.CreateEmail("alice@example.com")
	if err != nil {
		t.Fatalf("CreateEmail: %v", err)
	}

	// Exactly at the deadline the code is still accepted.
	fake.Advance(DefaultValidity)
	atDeadline := *challenge
	if result := engine.Validate(&atDeadline, code); !result.Valid {
		t.Fatalf("Validate at deadline = %+v, want valid", result)
	}

	fake.Advance(time.Millisecond)
	result := engine.Validate(challenge, code)
	if result.Valid || result.Reason != ReasonExpired {
		t.Fatalf("Validate after deadline = %+v, want expired", result)
	}
	if challenge.Status != StatusExpired {
		t.Errorf("Status = %q, want expired", challenge.Status)
	}
	if challenge.Attempts != 0 {
		t.Errorf("expired validation touched Attempts = %d", challenge.Attempts)
	}

	// Later calls stay rejected, even with the right code.
	for call := 2; call <= 3; call++ {
		fake.Advance(time.Minute)
		result := engine.Validate(challenge, code)
		if result.Valid || result.Reason != ReasonExpired {
			t.Errorf("call %d after deadline = %+v, want expired", call, result)
		}
		if challenge.Status != StatusExpired || challenge.Attempts != 0 {
			t.Errorf("call %d: Status = %q, Attempts = %d", call, challenge.Status, challenge.Attempts)
		}
	}
}

func TestValidateForciblyExpired(t *testing.T) {
	engine, _ := newTestEngine(t)
	challenge, code, err := engine.CreateAccount("@alice:matrix.org")
	if err != nil {
		t.Fatalf("CreateAccount: %v", err)
	}
	challenge.Expires = epoch.Add(-time.Second)

	result := engine.Validate(challenge, code)
	if result.Valid || result.Reason != ReasonExpired {
		t.Errorf("Validate = %+v, want expired", result)
	}
}

func TestValidateMaxAttemptsWithCorrectCode(t *testing.T) {
	engine, _ := newTestEngine(t)
	challenge, code, err := engine.CreateEmail("alice@example.com")
	if err != nil {
		t.Fatalf("CreateEmail: %v", err)
	}
	challenge.Attempts = 3

	result := engine.Validate(challenge, code)
	if result.Valid || result.Reason != ReasonMaxAttempts {
		t.Fatalf("Validate = %+v, want max_attempts", result)
	}
	if challenge.Status != StatusExhausted {
		t.Errorf("Status = %q, want exhausted", challenge.Status)
	}
}

func TestValidateCheckOrder(t *testing.T) {
	// An exhausted and expired challenge reports max_attempts: the
	// attempt budget is checked before expiry.
	engine, fake := newTestEngine(t)
	challenge, code, err := engine.CreateEmail("alice@example.com")
	if err != nil {
		t.Fatalf("CreateEmail: %v", err)
	}
	challenge.Attempts = 3
	fake.Advance(time.Hour)

	if result := engine.Validate(challenge, code); result.Reason != ReasonMaxAttempts {
		t.Errorf("Reason = %q, want max_attempts", result.Reason)
	}
}

func TestValidateExhaustsAfterBudget(t *testing.T) {
	engine, _ := newTestEngine(t)
	challenge, code, err := engine.CreateEmail("alice@example.com")
	if err != nil {
		t.Fatalf("CreateEmail: %v", err)
	}
	wrong := wrongCode(code)

	wantReasons := []Reason{ReasonIncorrectCode, ReasonIncorrectCode, ReasonIncorrectCode, ReasonMaxAttempts}
	for i, want := range wantReasons {
		result := engine.Validate(challenge, wrong)
		if result.Reason != want {
			t.Errorf("attempt %d: Reason = %q, want %q", i+1, result.Reason, want)
		}
	}
	if challenge.Attempts != DefaultMaxAttempts {
		t.Errorf("Attempts = %d, want %d", challenge.Attempts, DefaultMaxAttempts)
	}
	if result := engine.Validate(challenge, code); result.Reason != ReasonMaxAttempts {
		t.Errorf("correct code after exhaustion: Reason = %q, want max_attempts", result.Reason)
	}
}

func TestValidateConfiguredLimits(t *testing.T) {
	fake := clock.Fake(epoch)
	engine := &Engine{Clock: fake, Validity: time.Minute, MaxAttempts: 1}
	challenge, code, err := engine.CreateEmail("alice@example.com")
	if err != nil {
		t.Fatalf("CreateEmail: %v", err)
	}
	if !challenge.Expires.Equal(epoch.Add(time.Minute)) {
		t.Errorf("Expires = %v, want one minute after creation", challenge.Expires)
	}
	engine.Validate(challenge, wrongCode(code))
	if result := engine.Validate(challenge, code); result.Reason != ReasonMaxAttempts {
		t.Errorf("Reason = %q, want max_attempts with MaxAttempts=1", result.Reason)
	}
}

func TestValidateMalformedCode(t *testing.T) {
	engine, _ := newTestEngine(t)
	challenge, code, err := engine.CreateEmail("alice@example.com")
	if err != nil {
		t.Fatalf("CreateEmail: %v", err)
	}
	for _, supplied := range []string{"", "12345", code + "0", "abcdef"} {
		attempt := *challenge
		if result := engine.Validate(&attempt, supplied); result.Reason != ReasonIncorrectCode {
			t.Errorf("Validate(%q) Reason = %q, want incorrect_code", supplied, result.Reason)
		}
	}
	if result := engine.Validate(challenge, " "+code+"\n"); !result.Valid {
		t.Errorf("Validate with surrounding whitespace = %+v, want valid", result)
	}
}

func TestCodesVary(t *testing.T) {
	engine, _ := newTestEngine(t)
	seen := make(map[string]bool)
	for range 20 {
		_, code, err := engine.CreateAccount("@alice:matrix.org")
		if err != nil {
			t.Fatalf("CreateAccount: %v", err)
		}
		seen[code] = true
	}
	if len(seen) < 2 {
		t.Errorf("20 challenges produced %d distinct codes", len(seen))
	}
}
