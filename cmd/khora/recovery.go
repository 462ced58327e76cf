// Copyright 2026 The Khora Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/clovenbradshaw-ctrl/khora/lib/recovery"
	"github.com/clovenbradshaw-ctrl/khora/lib/ref"
	"github.com/clovenbradshaw-ctrl/khora/lib/store"
)

// runRecovery dispatches "khora recovery enroll|check".
func (a *app) runRecovery(ctx context.Context, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: khora recovery <enroll|check> [flags]")
	}
	switch args[0] {
	case "enroll":
		return a.runRecoveryEnroll(ctx, args[1:])
	case "check":
		return a.runRecoveryCheck(ctx, args[1:])
	default:
		return fmt.Errorf("unknown recovery subcommand: %q", args[0])
	}
}

type recoveryFlags struct {
	configPath   string
	databasePath string
	room         string
}

func (r *recoveryFlags) manager(a *app) (*recovery.Manager, *store.Store, ref.RoomID, error) {
	room, err := ref.ParseRoomID(r.room)
	if err != nil {
		return nil, nil, ref.RoomID{}, fmt.Errorf("--room: %w", err)
	}
	cfg, err := loadConfig(r.configPath)
	if err != nil {
		return nil, nil, ref.RoomID{}, err
	}
	replica, err := a.openReplica(cfg, r.databasePath)
	if err != nil {
		return nil, nil, ref.RoomID{}, err
	}
	manager, err := recovery.NewManager(recovery.Config{
		Store:      replica,
		Window:     cfg.Recovery.Window,
		MaxPending: cfg.Recovery.MaxPending,
		Logger:     a.configLogger(cfg),
	})
	if err != nil {
		replica.Close()
		return nil, nil, ref.RoomID{}, err
	}
	return manager, replica, room, nil
}

// runRecoveryEnroll stores a recovery phrase verifier for a vault room.
func (a *app) runRecoveryEnroll(ctx context.Context, args []string) error {
	var common recoveryFlags
	var enrolledBy string
	flags := a.newFlagSet("recovery enroll")
	flags.StringVar(&common.configPath, "config", "", "path to khora.yaml")
	flags.StringVar(&common.databasePath, "database", "", "replica database (overrides config)")
	flags.StringVar(&common.room, "room", "", "vault room ID (required)")
	flags.StringVar(&enrolledBy, "by", "", "actor enrolling the phrase (required)")
	if help, err := parseFlags(flags, args); help || err != nil {
		return err
	}
	by, err := ref.ParseUserID(enrolledBy)
	if err != nil {
		return fmt.Errorf("--by: %w", err)
	}

	manager, replica, room, err := common.manager(a)
	if err != nil {
		return err
	}
	defer replica.Close()

	phrase, err := a.readPhrase("Recovery phrase: ")
	if err != nil {
		return err
	}
	if err := manager.Enroll(ctx, room, by, phrase); err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "enrolled recovery phrase for %s\n", room)
	return nil
}

// recoveryReport is the JSON printed by "recovery check".
type recoveryReport struct {
	Accepted  bool   `json:"accepted"`
	Reason    string `json:"reason,omitempty"`
	Requester string `json:"requester"`
	OldActor  string `json:"old_actor"`
	Room      string `json:"room"`
}

// runRecoveryCheck opens a recovery for --requester against --room's
// enrollment and submits the phrase read from stdin.
func (a *app) runRecoveryCheck(ctx context.Context, args []string) error {
	var common recoveryFlags
	var requesterID, oldActorID string
	flags := a.newFlagSet("recovery check")
	flags.StringVar(&common.configPath, "config", "", "path to khora.yaml")
	flags.StringVar(&common.databasePath, "database", "", "replica database (overrides config)")
	flags.StringVar(&common.room, "room", "", "vault room ID (required)")
	flags.StringVar(&requesterID, "requester", "", "new actor asking to recover (required)")
	flags.StringVar(&oldActorID, "old-actor", "", "actor whose membership is being recovered (required)")
	if help, err := parseFlags(flags, args); help || err != nil {
		return err
	}
	requester, err := ref.ParseUserID(requesterID)
	if err != nil {
		return fmt.Errorf("--requester: %w", err)
	}
	oldActor, err := ref.ParseUserID(oldActorID)
	if err != nil {
		return fmt.Errorf("--old-actor: %w", err)
	}

	manager, replica, room, err := common.manager(a)
	if err != nil {
		return err
	}
	defer replica.Close()

	manager.Begin(requester, oldActor, room)
	phrase, err := a.readPhrase("Recovery phrase: ")
	if err != nil {
		return err
	}
	outcome, err := manager.Submit(ctx, requester, phrase)
	if err != nil {
		return err
	}
	return a.writeJSON(recoveryReport{
		Accepted:  outcome.Accepted,
		Reason:    string(outcome.Reason),
		Requester: requester.String(),
		OldActor:  oldActor.String(),
		Room:      room.String(),
	})
}

// readPhrase prompts without echo when stdin is a terminal and
// otherwise reads one line.
func (a *app) readPhrase(prompt string) (string, error) {
	if file, ok := a.stdin.(*os.File); ok && term.IsTerminal(int(file.Fd())) {
		fmt.Fprint(a.stderr, prompt)
		phrase, err := term.ReadPassword(int(file.Fd()))
		fmt.Fprintln(a.stderr)
		if err != nil {
			return "", fmt.Errorf("reading phrase: %w", err)
		}
		return string(phrase), nil
	}

	line, err := bufio.NewReader(a.stdin).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("reading phrase: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
