// Copyright 2026 The Khora Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/chroma/v2/quick"
	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/clovenbradshaw-ctrl/khora/lib/config"
	"github.com/clovenbradshaw-ctrl/khora/lib/version"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cli := &app{stdin: os.Stdin, stdout: os.Stdout, stderr: os.Stderr}
	if err := cli.run(ctx, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// app carries the process streams so subcommands can be driven from
// tests.
type app struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

func (a *app) run(ctx context.Context, args []string) error {
	if len(args) < 1 {
		a.printUsage()
		return fmt.Errorf("subcommand required")
	}

	subcommand, rest := args[0], args[1:]
	switch subcommand {
	case "keygen":
		return a.runKeygen(rest)
	case "identity":
		return a.runIdentity(rest)
	case "encrypt":
		return a.runEncrypt(rest)
	case "decrypt":
		return a.runDecrypt(rest)
	case "project":
		return a.runProject(rest)
	case "bundle":
		return a.runBundle(rest)
	case "import":
		return a.runImport(ctx, rest)
	case "export":
		return a.runExport(ctx, rest)
	case "opid":
		return a.runOperationID(rest)
	case "cohort-hash":
		return a.runCohortHash(rest)
	case "homeserver":
		return a.runHomeserver(rest)
	case "challenge":
		return a.runChallenge(rest)
	case "recovery":
		return a.runRecovery(ctx, rest)
	case "vault":
		return a.runVault(ctx, rest)
	case "version":
		fmt.Fprintf(a.stdout, "khora %s\n", version.Info())
		return nil
	case "-h", "--help", "help":
		a.printUsage()
		return nil
	default:
		a.printUsage()
		return fmt.Errorf("unknown subcommand: %q", subcommand)
	}
}

func (a *app) printUsage() {
	fmt.Fprintf(a.stderr, `Usage: khora <subcommand> [flags]

Subcommands:
  keygen       Generate a vault key
  identity     Generate a member age keypair
  encrypt      Seal stdin as a field value
  decrypt      Open a sealed field value read from stdin
  project      Replay an operation file and print current state
  bundle       Convert a JSONC operation file to a compressed bundle
  import       Append operations from a file to the replica
  export       Write the replica's operations as a bundle
  opid         Generate operation IDs
  cohort-hash  Compute an actor's cohort pseudonym
  homeserver   Print the homeserver part of an actor ID
  challenge    Issue or verify a verification challenge
  recovery     Enroll or check a recovery phrase
  vault        Record, read, and share a vault in the replica
  version      Print version information

Run 'khora <subcommand> --help' for subcommand flags.
`)
}

// newFlagSet returns a flag set that reports errors instead of exiting
// and prints its defaults to the app's stderr.
func (a *app) newFlagSet(name string) *pflag.FlagSet {
	flags := pflag.NewFlagSet(name, pflag.ContinueOnError)
	flags.SetOutput(a.stderr)
	return flags
}

// loadConfig reads the file named by path, then KHORA_CONFIG, and
// otherwise returns the defaults.
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		path = os.Getenv(config.EnvVar)
	}
	if path == "" {
		return config.Default(), nil
	}
	return config.LoadFile(path)
}

// configLogger builds the process logger. Logs go to stderr so stdout
// stays machine-readable.
func (a *app) configLogger(cfg *config.Config) *slog.Logger {
	return cfg.NewLogger(a.stderr)
}

// writeJSON prints value as indented JSON, highlighted when stdout is
// a terminal.
func (a *app) writeJSON(value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding output: %w", err)
	}
	data = append(data, '\n')
	if file, ok := a.stdout.(*os.File); ok && term.IsTerminal(int(file.Fd())) {
		return quick.Highlight(a.stdout, string(data), "json", "terminal256", "monokai")
	}
	_, err = a.stdout.Write(data)
	return err
}

// parseFlags parses args, treating --help as a successful no-op.
func parseFlags(flags *pflag.FlagSet, args []string) (help bool, err error) {
	if err := flags.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return true, nil
		}
		return false, err
	}
	return false, nil
}
