// Copyright 2026 The Khora Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/clovenbradshaw-ctrl/khora/lib/config"
	"github.com/clovenbradshaw-ctrl/khora/lib/fieldcrypt"
	"github.com/clovenbradshaw-ctrl/khora/lib/ident"
	"github.com/clovenbradshaw-ctrl/khora/lib/opbundle"
	"github.com/clovenbradshaw-ctrl/khora/lib/oplog"
	"github.com/clovenbradshaw-ctrl/khora/lib/ref"
	"github.com/clovenbradshaw-ctrl/khora/lib/store"
	"github.com/clovenbradshaw-ctrl/khora/lib/vault"
)

func loadOperations(path string) ([]oplog.Operation, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	operations, err := opbundle.Load(data)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}
	return operations, nil
}

// runProject replays an operation file (JSONC or bundle). With --frame
// it prints that frame's state, otherwise every frame's state keyed by
// frame type. Sealed operands are opened when a key is given and shown
// as undecryptable otherwise.
func (a *app) runProject(args []string) error {
	var keys keyFlags
	var frameType string
	flags := a.newFlagSet("project")
	keys.register(flags)
	flags.StringVar(&frameType, "frame", "", "project only this frame type")
	if help, err := parseFlags(flags, args); help || err != nil {
		return err
	}
	if flags.NArg() != 1 {
		return fmt.Errorf("usage: khora project [flags] <operations-file>")
	}

	operations, err := loadOperations(flags.Arg(0))
	if err != nil {
		return err
	}

	var keyring *fieldcrypt.Keyring
	if keys.set() {
		key, err := keys.load()
		if err != nil {
			return err
		}
		keyring, err = fieldcrypt.NewKeyring(key)
		if err != nil {
			return err
		}
		defer keyring.Close()
	}
	operations = vault.OpenOperations(keyring, operations)

	if frameType != "" {
		return a.writeJSON(oplog.Project(operations, frameType))
	}
	return a.writeJSON(oplog.ProjectAll(operations))
}

// runBundle converts an operation file into a bundle.
func (a *app) runBundle(args []string) error {
	var compressionName string
	flags := a.newFlagSet("bundle")
	flags.StringVarP(&compressionName, "compression", "c", "zstd", "payload compression: none, lz4, or zstd")
	if help, err := parseFlags(flags, args); help || err != nil {
		return err
	}
	if flags.NArg() != 2 {
		return fmt.Errorf("usage: khora bundle [flags] <input> <output>")
	}
	compression, err := opbundle.ParseCompression(compressionName)
	if err != nil {
		return err
	}

	operations, err := loadOperations(flags.Arg(0))
	if err != nil {
		return err
	}
	return a.writeBundle(flags.Arg(1), operations, compression)
}

func (a *app) writeBundle(path string, operations []oplog.Operation, compression opbundle.Compression) error {
	data, err := opbundle.Encode(operations, compression)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	header, err := opbundle.ReadHeader(data)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "wrote %d operations to %s (%s, %d bytes)\n",
		header.Count, path, header.Compression, len(data))
	return nil
}

// openReplica opens the configured replica database.
func (a *app) openReplica(cfg *config.Config, databasePath string) (*store.Store, error) {
	if databasePath == "" {
		if err := cfg.EnsurePaths(); err != nil {
			return nil, err
		}
		databasePath = cfg.Paths.Database
	}
	return store.Open(store.Config{
		Path:   databasePath,
		Logger: a.configLogger(cfg),
	})
}

// runImport appends the operations in a file to the replica. Operations
// already present are skipped.
func (a *app) runImport(ctx context.Context, args []string) error {
	var configPath, databasePath string
	flags := a.newFlagSet("import")
	flags.StringVar(&configPath, "config", "", "path to khora.yaml")
	flags.StringVar(&databasePath, "database", "", "replica database (overrides config)")
	if help, err := parseFlags(flags, args); help || err != nil {
		return err
	}
	if flags.NArg() != 1 {
		return fmt.Errorf("usage: khora import [flags] <operations-file>")
	}

	operations, err := loadOperations(flags.Arg(0))
	if err != nil {
		return err
	}
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	replica, err := a.openReplica(cfg, databasePath)
	if err != nil {
		return err
	}
	defer replica.Close()

	added, err := replica.AppendOperations(ctx, operations...)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "imported %d of %d operations\n", added, len(operations))
	return nil
}

// runExport writes the replica's operations, in arrival order, to a
// bundle.
func (a *app) runExport(ctx context.Context, args []string) error {
	var configPath, databasePath, frameType, compressionName string
	flags := a.newFlagSet("export")
	flags.StringVar(&configPath, "config", "", "path to khora.yaml")
	flags.StringVar(&databasePath, "database", "", "replica database (overrides config)")
	flags.StringVar(&frameType, "frame", "", "export only this frame type")
	flags.StringVarP(&compressionName, "compression", "c", "zstd", "payload compression: none, lz4, or zstd")
	if help, err := parseFlags(flags, args); help || err != nil {
		return err
	}
	if flags.NArg() != 1 {
		return fmt.Errorf("usage: khora export [flags] <output>")
	}
	compression, err := opbundle.ParseCompression(compressionName)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	replica, err := a.openReplica(cfg, databasePath)
	if err != nil {
		return err
	}
	defer replica.Close()

	operations, err := replica.Operations(ctx, frameType)
	if err != nil {
		return err
	}
	return a.writeBundle(flags.Arg(0), operations, compression)
}

// runOperationID prints fresh operation IDs, one per line.
func (a *app) runOperationID(args []string) error {
	var count int
	flags := a.newFlagSet("opid")
	flags.IntVarP(&count, "count", "n", 1, "number of IDs to generate")
	if help, err := parseFlags(flags, args); help || err != nil {
		return err
	}
	if count < 1 {
		return fmt.Errorf("--count must be positive, got %d", count)
	}
	for range count {
		id, err := ident.GenerateOperationID()
		if err != nil {
			return err
		}
		fmt.Fprintln(a.stdout, id)
	}
	return nil
}

// runCohortHash prints the cohort pseudonym for an actor. The salt
// comes from --salt or the configuration's cohort.salt.
func (a *app) runCohortHash(args []string) error {
	var configPath, salt string
	flags := a.newFlagSet("cohort-hash")
	flags.StringVar(&configPath, "config", "", "path to khora.yaml")
	flags.StringVar(&salt, "salt", "", "cohort salt (overrides config)")
	if help, err := parseFlags(flags, args); help || err != nil {
		return err
	}
	if flags.NArg() != 1 {
		return fmt.Errorf("usage: khora cohort-hash [flags] <actor-id>")
	}
	if !flags.Changed("salt") {
		cfg, err := loadConfig(configPath)
		if err != nil {
			return err
		}
		salt = cfg.Cohort.Salt
	}
	fmt.Fprintln(a.stdout, ident.CohortHash(flags.Arg(0), salt))
	return nil
}

// runHomeserver prints the homeserver of each actor ID argument.
func (a *app) runHomeserver(args []string) error {
	flags := a.newFlagSet("homeserver")
	if help, err := parseFlags(flags, args); help || err != nil {
		return err
	}
	if flags.NArg() == 0 {
		return fmt.Errorf("usage: khora homeserver <actor-id>...")
	}
	for _, actorID := range flags.Args() {
		fmt.Fprintln(a.stdout, ref.ParseHomeserver(actorID))
	}
	return nil
}
