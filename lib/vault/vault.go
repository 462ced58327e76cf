// Copyright 2026 The Khora Authors
// SPDX-License-Identifier: Apache-2.0

package vault

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/clovenbradshaw-ctrl/khora/lib/clock"
	"github.com/clovenbradshaw-ctrl/khora/lib/fieldcrypt"
	"github.com/clovenbradshaw-ctrl/khora/lib/ident"
	"github.com/clovenbradshaw-ctrl/khora/lib/oplog"
	"github.com/clovenbradshaw-ctrl/khora/lib/ref"
	"github.com/clovenbradshaw-ctrl/khora/lib/schema"
	"github.com/clovenbradshaw-ctrl/khora/lib/sealed"
	"github.com/clovenbradshaw-ctrl/khora/lib/secret"
	"github.com/clovenbradshaw-ctrl/khora/lib/store"
)

// ErrLocked is returned by Record when sealing is requested and the
// vault holds no key.
var ErrLocked = errors.New("vault: locked")

// Config holds a Vault's dependencies.
type Config struct {
	// Store is the local replica. Required.
	Store *store.Store

	// Room is the vault room. Required.
	Room ref.RoomID

	// Actor is recorded as the author of new operations.
	Actor ref.UserID

	// Clock stamps new operations.
	Clock clock.Clock

	// Logger receives record and key messages. Nil discards.
	Logger *slog.Logger
}

// Draft is an operation before it has an ID, timestamp, or author.
type Draft struct {
	Op        oplog.Operator
	Target    string
	Operand   oplog.Operand
	FrameType string

	// Seal names the operand attributes to encrypt.
	Seal []string
}

// Vault records and projects one vault room. Safe for concurrent use.
type Vault struct {
	store  *store.Store
	room   ref.RoomID
	actor  ref.UserID
	clock  clock.Clock
	logger *slog.Logger

	mu      sync.RWMutex
	keyring *fieldcrypt.Keyring
}

// New creates a locked Vault. Call Unlock or UseKey before recording
// sealed values or reading them back.
func New(cfg Config) (*Vault, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("vault: Store is required")
	}
	if cfg.Room.IsZero() {
		return nil, fmt.Errorf("vault: Room is required")
	}
	c := cfg.Clock
	if c == nil {
		c = clock.Real()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Vault{
		store:  cfg.Store,
		room:   cfg.Room,
		actor:  cfg.Actor,
		clock:  c,
		logger: logger.With("room", cfg.Room),
	}, nil
}

// Close releases the vault key, if held. The store is not closed.
func (v *Vault) Close() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.keyring == nil {
		return nil
	}
	err := v.keyring.Close()
	v.keyring = nil
	return err
}

// UseKey replaces the held vault key.
func (v *Vault) UseKey(key fieldcrypt.Key) error {
	keyring, err := fieldcrypt.NewKeyring(key)
	if err != nil {
		return fmt.Errorf("vault: %w", err)
	}
	v.mu.Lock()
	previous := v.keyring
	v.keyring = keyring
	v.mu.Unlock()
	if previous != nil {
		previous.Close()
	}
	return nil
}

// Unlock opens member's sealed copy of the vault key with privateKey
// and holds it.
func (v *Vault) Unlock(ctx context.Context, member ref.UserID, privateKey *secret.Buffer) error {
	key, err := v.OpenKey(ctx, member, privateKey)
	if err != nil {
		return err
	}
	return v.UseKey(key)
}

// Unlocked reports whether the vault holds a key.
func (v *Vault) Unlocked() bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.keyring != nil
}

// Record completes draft, seals the requested attributes, and appends
// it to the replica.
func (v *Vault) Record(ctx context.Context, draft Draft) (oplog.Operation, error) {
	id, err := ident.GenerateOperationID()
	if err != nil {
		return oplog.Operation{}, fmt.Errorf("vault: %w", err)
	}
	operation := oplog.Operation{
		ID:      id,
		Op:      draft.Op,
		Target:  draft.Target,
		Operand: draft.Operand,
		TS:      v.clock.Now().UnixMilli(),
		Frame:   oplog.Frame{Type: draft.FrameType, Room: v.room.String()},
	}
	if !v.actor.IsZero() {
		operation.Actor = v.actor.String()
	}

	if len(draft.Seal) > 0 {
		v.mu.RLock()
		keyring := v.keyring
		if keyring == nil {
			v.mu.RUnlock()
			return oplog.Operation{}, ErrLocked
		}
		operation.Operand, err = SealOperand(keyring, draft.Target, draft.Operand, draft.Seal...)
		v.mu.RUnlock()
		if err != nil {
			return oplog.Operation{}, err
		}
	}

	if _, err := v.store.AppendOperations(ctx, operation); err != nil {
		return oplog.Operation{}, fmt.Errorf("vault: recording: %w", err)
	}
	v.logger.Debug("operation recorded",
		"id", operation.ID,
		"op", operation.Op,
		"target", operation.Target,
		"sealed", len(draft.Seal) > 0,
	)
	return operation, nil
}

// Ingest appends operations received from elsewhere (another replica,
// a bundle) and returns how many were new.
func (v *Vault) Ingest(ctx context.Context, operations ...oplog.Operation) (int, error) {
	return v.store.AppendOperations(ctx, operations...)
}

// Current projects the frame with sealed operands opened.
func (v *Vault) Current(ctx context.Context, frameType string) (oplog.State, error) {
	operations, err := v.store.Operations(ctx, frameType)
	if err != nil {
		return nil, fmt.Errorf("vault: %w", err)
	}
	v.mu.RLock()
	opened := OpenOperations(v.keyring, operations)
	v.mu.RUnlock()
	return oplog.Project(opened, frameType), nil
}

// ShareKey seals key to publicKey and publishes it as member's
// m.khora.vault_key state.
func (v *Vault) ShareKey(ctx context.Context, key fieldcrypt.Key, member ref.UserID, publicKey string) error {
	raw, err := key.Bytes()
	if err != nil {
		return fmt.Errorf("vault: %w", err)
	}
	defer clear(raw)
	ciphertext, err := sealed.Seal(raw, publicKey)
	if err != nil {
		return fmt.Errorf("vault: sharing key with %s: %w", member, err)
	}
	content := schema.VaultKeyContent{
		Recipient:  publicKey,
		Ciphertext: ciphertext,
		SharedBy:   v.actor,
	}
	if err := v.store.PutState(ctx, v.room, schema.EventTypeVaultKey, member.String(), content); err != nil {
		return fmt.Errorf("vault: %w", err)
	}
	v.logger.Info("vault key shared", "member", member)
	return nil
}

// OpenKey reads member's sealed vault key and opens it with
// privateKey.
func (v *Vault) OpenKey(ctx context.Context, member ref.UserID, privateKey *secret.Buffer) (fieldcrypt.Key, error) {
	var content schema.VaultKeyContent
	if err := v.store.GetState(ctx, v.room, schema.EventTypeVaultKey, member.String(), &content); err != nil {
		return "", fmt.Errorf("vault: reading key for %s: %w", member, err)
	}
	opened, err := sealed.Open(content.Ciphertext, privateKey)
	if err != nil {
		return "", fmt.Errorf("vault: opening key for %s: %w", member, err)
	}
	defer opened.Close()
	key := fieldcrypt.Key(base64.StdEncoding.EncodeToString(opened.Bytes()))
	if _, err := fieldcrypt.ParseKey(string(key)); err != nil {
		return "", fmt.Errorf("vault: key for %s: %w", member, err)
	}
	return key, nil
}

// Members returns the user IDs holding a sealed copy of the vault key.
func (v *Vault) Members(ctx context.Context) ([]string, error) {
	members, err := v.store.StateKeys(ctx, v.room, schema.EventTypeVaultKey)
	if err != nil {
		return nil, fmt.Errorf("vault: %w", err)
	}
	return members, nil
}
