// Copyright 2026 The Khora Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"github.com/clovenbradshaw-ctrl/khora/lib/oplog"
	"github.com/clovenbradshaw-ctrl/khora/lib/ref"
	"github.com/clovenbradshaw-ctrl/khora/lib/secret"
	"github.com/clovenbradshaw-ctrl/khora/lib/store"
	"github.com/clovenbradshaw-ctrl/khora/lib/vault"
)

// runVault dispatches "khora vault record|current|share|members".
func (a *app) runVault(ctx context.Context, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: khora vault <record|current|share|members> [flags]")
	}
	switch args[0] {
	case "record":
		return a.runVaultRecord(ctx, args[1:])
	case "current":
		return a.runVaultCurrent(ctx, args[1:])
	case "share":
		return a.runVaultShare(ctx, args[1:])
	case "members":
		return a.runVaultMembers(ctx, args[1:])
	default:
		return fmt.Errorf("unknown vault subcommand: %q", args[0])
	}
}

// vaultFlags are shared by every vault subcommand. The vault is
// unlocked with --key/--key-file, or with --identity and --member to
// open the member's shared copy of the key.
type vaultFlags struct {
	configPath   string
	databasePath string
	room         string
	actor        string
	identityPath string
	member       string
	keys         keyFlags
}

func (v *vaultFlags) register(flags *pflag.FlagSet) {
	flags.StringVar(&v.configPath, "config", "", "path to khora.yaml")
	flags.StringVar(&v.databasePath, "database", "", "replica database (overrides config)")
	flags.StringVar(&v.room, "room", "", "vault room ID (required)")
	flags.StringVar(&v.actor, "actor", "", "author recorded on new operations")
	flags.StringVar(&v.identityPath, "identity", "", "member age identity file, used with --member")
	flags.StringVar(&v.member, "member", "", "member whose shared key --identity opens")
	v.keys.register(flags)
}

// open returns the vault and its replica. The vault is unlocked when
// key flags were given and locked otherwise.
func (v *vaultFlags) open(ctx context.Context, a *app) (*vault.Vault, *store.Store, error) {
	room, err := ref.ParseRoomID(v.room)
	if err != nil {
		return nil, nil, fmt.Errorf("--room: %w", err)
	}
	var actor ref.UserID
	if v.actor != "" {
		if actor, err = ref.ParseUserID(v.actor); err != nil {
			return nil, nil, fmt.Errorf("--actor: %w", err)
		}
	}
	cfg, err := loadConfig(v.configPath)
	if err != nil {
		return nil, nil, err
	}
	replica, err := a.openReplica(cfg, v.databasePath)
	if err != nil {
		return nil, nil, err
	}
	opened, err := vault.New(vault.Config{
		Store:  replica,
		Room:   room,
		Actor:  actor,
		Logger: a.configLogger(cfg),
	})
	if err != nil {
		replica.Close()
		return nil, nil, err
	}
	if err := v.unlock(ctx, opened); err != nil {
		opened.Close()
		replica.Close()
		return nil, nil, err
	}
	return opened, replica, nil
}

func (v *vaultFlags) unlock(ctx context.Context, target *vault.Vault) error {
	if v.keys.set() {
		key, err := v.keys.load()
		if err != nil {
			return err
		}
		return target.UseKey(key)
	}
	if v.identityPath == "" {
		return nil
	}
	member, err := ref.ParseUserID(v.member)
	if err != nil {
		return fmt.Errorf("--member: %w", err)
	}
	privateKey, err := readIdentity(v.identityPath)
	if err != nil {
		return err
	}
	defer privateKey.Close()
	return target.Unlock(ctx, member, privateKey)
}

// readIdentity loads an age identity file into a secret buffer.
func readIdentity(path string) (*secret.Buffer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading identity: %w", err)
	}
	defer clear(data)
	buffer, err := secret.NewFromBytes(bytes.TrimSpace(data))
	if err != nil {
		return nil, fmt.Errorf("loading identity: %w", err)
	}
	return buffer, nil
}

// runVaultRecord appends one operation authored through the vault,
// sealing the attributes named by --seal.
func (a *app) runVaultRecord(ctx context.Context, args []string) error {
	var common vaultFlags
	var operatorName, target, frameType, operandJSON string
	var sealAttributes []string
	flags := a.newFlagSet("vault record")
	common.register(flags)
	flags.StringVar(&operatorName, "op", "", "operator, e.g. INS (required)")
	flags.StringVar(&target, "target", "", "field path (required)")
	flags.StringVar(&frameType, "frame", "", "frame type (required)")
	flags.StringVar(&operandJSON, "operand", "{}", "operand as a JSON object")
	flags.StringSliceVar(&sealAttributes, "seal", nil, "operand attributes to encrypt")
	if help, err := parseFlags(flags, args); help || err != nil {
		return err
	}
	operator, err := oplog.ParseOperator(operatorName)
	if err != nil {
		return fmt.Errorf("--op: %w", err)
	}
	var operand oplog.Operand
	if err := json.Unmarshal([]byte(operandJSON), &operand); err != nil {
		return fmt.Errorf("--operand: %w", err)
	}

	opened, replica, err := common.open(ctx, a)
	if err != nil {
		return err
	}
	defer replica.Close()
	defer opened.Close()

	operation, err := opened.Record(ctx, vault.Draft{
		Op:        operator,
		Target:    target,
		Operand:   operand,
		FrameType: frameType,
		Seal:      sealAttributes,
	})
	if err != nil {
		return err
	}
	return a.writeJSON(operation)
}

// runVaultCurrent prints a frame's current state with sealed values
// opened, or shown as undecryptable when the vault stays locked.
func (a *app) runVaultCurrent(ctx context.Context, args []string) error {
	var common vaultFlags
	var frameType string
	flags := a.newFlagSet("vault current")
	common.register(flags)
	flags.StringVar(&frameType, "frame", "", "frame type (required)")
	if help, err := parseFlags(flags, args); help || err != nil {
		return err
	}
	if frameType == "" {
		return fmt.Errorf("--frame is required")
	}

	opened, replica, err := common.open(ctx, a)
	if err != nil {
		return err
	}
	defer replica.Close()
	defer opened.Close()

	state, err := opened.Current(ctx, frameType)
	if err != nil {
		return err
	}
	return a.writeJSON(state)
}

// runVaultShare seals the vault key to a new member's age recipient.
func (a *app) runVaultShare(ctx context.Context, args []string) error {
	var common vaultFlags
	var recipient, shareWith string
	flags := a.newFlagSet("vault share")
	common.register(flags)
	flags.StringVar(&shareWith, "with", "", "member receiving the key (required)")
	flags.StringVar(&recipient, "recipient", "", "the member's age1 public key (required)")
	if help, err := parseFlags(flags, args); help || err != nil {
		return err
	}
	member, err := ref.ParseUserID(shareWith)
	if err != nil {
		return fmt.Errorf("--with: %w", err)
	}
	if !common.keys.set() {
		return fmt.Errorf("--key or --key-file is required to share the vault key")
	}
	key, err := common.keys.load()
	if err != nil {
		return err
	}

	opened, replica, err := common.open(ctx, a)
	if err != nil {
		return err
	}
	defer replica.Close()
	defer opened.Close()

	if err := opened.ShareKey(ctx, key, member, recipient); err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "shared vault key with %s\n", member)
	return nil
}

// runVaultMembers lists the members holding a copy of the vault key.
func (a *app) runVaultMembers(ctx context.Context, args []string) error {
	var common vaultFlags
	flags := a.newFlagSet("vault members")
	common.register(flags)
	if help, err := parseFlags(flags, args); help || err != nil {
		return err
	}

	opened, replica, err := common.open(ctx, a)
	if err != nil {
		return err
	}
	defer replica.Close()
	defer opened.Close()

	members, err := opened.Members(ctx)
	if err != nil {
		return err
	}
	for _, member := range members {
		fmt.Fprintln(a.stdout, member)
	}
	return nil
}
