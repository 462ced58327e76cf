// Copyright 2026 The Khora Authors
// SPDX-License-Identifier: Apache-2.0

package recovery

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/clovenbradshaw-ctrl/khora/lib/clock"
	"github.com/clovenbradshaw-ctrl/khora/lib/ref"
	"github.com/clovenbradshaw-ctrl/khora/lib/schema"
	"github.com/clovenbradshaw-ctrl/khora/lib/store"
)

// Reason explains why a phrase submission was not accepted.
type Reason string

const (
	ReasonNoPending      Reason = "no_pending"
	ReasonExpired        Reason = "expired"
	ReasonNotEnrolled    Reason = "not_enrolled"
	ReasonPhraseMismatch Reason = "phrase_mismatch"
)

// Outcome is the result of Submit. Pending is the consumed recovery
// and is set whenever one existed and had not expired.
type Outcome struct {
	Accepted bool
	Reason   Reason
	Pending  Pending
}

// ErrEmptyPhrase is returned by Enroll for a phrase that normalizes to
// nothing.
var ErrEmptyPhrase = errors.New("recovery: phrase is empty")

// StateStore reads and writes state records. GetState must return an
// error wrapping store.ErrNotFound when the record is absent.
// *store.Store satisfies it.
type StateStore interface {
	PutState(ctx context.Context, room ref.RoomID, eventType ref.EventType, stateKey string, content any) error
	GetState(ctx context.Context, room ref.RoomID, eventType ref.EventType, stateKey string, content any) error
}

// Config holds the Manager's dependencies.
type Config struct {
	// Store persists recovery verifiers. Required.
	Store StateStore

	// Clock drives pending deadlines and enrollment timestamps.
	Clock clock.Clock

	// Window is how long a pending recovery accepts a phrase.
	Window time.Duration

	// MaxPending bounds concurrent pending recoveries.
	MaxPending int

	// Logger receives one record per enrollment and per submission.
	// Phrases are never logged. Nil discards.
	Logger *slog.Logger
}

// Manager runs the enrollment and recovery protocol. Safe for
// concurrent use.
type Manager struct {
	store   StateStore
	clock   clock.Clock
	pending *PendingCache
	logger  *slog.Logger
}

// NewManager creates a Manager.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("recovery: Store is required")
	}
	c := cfg.Clock
	if c == nil {
		c = clock.Real()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Manager{
		store:   cfg.Store,
		clock:   c,
		pending: NewPendingCache(c, cfg.Window, cfg.MaxPending),
		logger:  logger,
	}, nil
}

// Enroll hashes phrase under a fresh salt and publishes the verifier as
// the recovery room's m.khora.recovery state, replacing any previous
// enrollment.
func (m *Manager) Enroll(ctx context.Context, room ref.RoomID, enrolledBy ref.UserID, phrase string) error {
	if NormalizePhrase(phrase) == "" {
		return ErrEmptyPhrase
	}
	salt := make([]byte, SaltSize)
	if _, err := rand.Read(salt); err != nil {
		return fmt.Errorf("recovery: generating salt: %w", err)
	}

	content := schema.RecoveryContent{
		Version:    schema.RecoveryVersion,
		PhraseHash: base64.StdEncoding.EncodeToString(HashPhrase(phrase, salt)),
		Salt:       base64.StdEncoding.EncodeToString(salt),
		EnrolledBy: enrolledBy,
		EnrolledAt: m.clock.Now().UnixMilli(),
	}
	if err := m.store.PutState(ctx, room, schema.EventTypeRecovery, "", content); err != nil {
		return fmt.Errorf("recovery: enrolling in %s: %w", room, err)
	}
	m.logger.Info("recovery phrase enrolled", "room", room, "enrolled_by", enrolledBy)
	return nil
}

// Begin opens a pending recovery for requester, who claims to be the
// holder of oldActor's membership guarded by targetRoom's enrollment.
// Calling Begin again restarts the window.
func (m *Manager) Begin(requester, oldActor ref.UserID, targetRoom ref.RoomID) Pending {
	pending := m.pending.Put(requester, oldActor, targetRoom)
	m.logger.Info("recovery begun",
		"requester", requester,
		"old_actor", oldActor,
		"room", targetRoom,
		"deadline", pending.Deadline,
	)
	return pending
}

// Submit checks phrase against the enrollment for requester's pending
// recovery. The pending record is consumed whatever the outcome, so a
// window admits one submission. The error is non-nil only for store
// failures or a corrupt enrollment record.
func (m *Manager) Submit(ctx context.Context, requester ref.UserID, phrase string) (Outcome, error) {
	pending, reason := m.pending.Take(requester)
	if reason != "" {
		m.logger.Info("recovery rejected", "requester", requester, "reason", reason)
		return Outcome{Reason: reason}, nil
	}

	var content schema.RecoveryContent
	err := m.store.GetState(ctx, pending.TargetRoom, schema.EventTypeRecovery, "", &content)
	if errors.Is(err, store.ErrNotFound) {
		m.logger.Info("recovery rejected", "requester", requester, "reason", ReasonNotEnrolled)
		return Outcome{Reason: ReasonNotEnrolled, Pending: pending}, nil
	}
	if err != nil {
		return Outcome{}, fmt.Errorf("recovery: reading enrollment: %w", err)
	}

	salt, err := base64.StdEncoding.DecodeString(content.Salt)
	if err != nil {
		return Outcome{}, fmt.Errorf("recovery: enrollment salt: %w", err)
	}
	want, err := base64.StdEncoding.DecodeString(content.PhraseHash)
	if err != nil {
		return Outcome{}, fmt.Errorf("recovery: enrollment phrase_hash: %w", err)
	}

	if !VerifyPhrase(phrase, salt, want) {
		m.logger.Info("recovery rejected", "requester", requester, "reason", ReasonPhraseMismatch)
		return Outcome{Reason: ReasonPhraseMismatch, Pending: pending}, nil
	}

	m.logger.Info("recovery accepted",
		"requester", requester,
		"old_actor", pending.OldActor,
		"room", pending.TargetRoom,
	)
	return Outcome{Accepted: true, Pending: pending}, nil
}

// Pending returns requester's live pending recovery, if any.
func (m *Manager) Pending(requester ref.UserID) (Pending, bool) {
	return m.pending.Peek(requester)
}
