// Copyright 2026 The Khora Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"golang.org/x/sys/unix"

	"github.com/clovenbradshaw-ctrl/khora/lib/challenge"
	"github.com/clovenbradshaw-ctrl/khora/lib/config"
)

// runChallenge dispatches "khora challenge issue|verify". The challenge
// record lives in a JSON file between the two steps; it holds only the
// salted verifier, never the code.
func (a *app) runChallenge(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: khora challenge <issue|verify> [flags]")
	}
	switch args[0] {
	case "issue":
		return a.runChallengeIssue(args[1:])
	case "verify":
		return a.runChallengeVerify(args[1:])
	default:
		return fmt.Errorf("unknown challenge subcommand: %q", args[0])
	}
}

func challengeEngine(cfg *config.Config, a *app) *challenge.Engine {
	return &challenge.Engine{
		Validity:    cfg.Challenge.Validity,
		MaxAttempts: cfg.Challenge.MaxAttempts,
		Logger:      a.configLogger(cfg),
	}
}

func (a *app) runChallengeIssue(args []string) error {
	var configPath, email, account, statePath string
	flags := a.newFlagSet("challenge issue")
	flags.StringVar(&configPath, "config", "", "path to khora.yaml")
	flags.StringVar(&email, "email", "", "issue an email challenge to this address")
	flags.StringVar(&account, "account", "", "issue an account challenge to this actor ID")
	flags.StringVar(&statePath, "state", "", "file to write the challenge record to (required)")
	if help, err := parseFlags(flags, args); help || err != nil {
		return err
	}
	if statePath == "" {
		return fmt.Errorf("--state is required")
	}
	if (email == "") == (account == "") {
		return fmt.Errorf("exactly one of --email or --account is required")
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	engine := challengeEngine(cfg, a)

	var issued *challenge.Challenge
	var code string
	if email != "" {
		if !challenge.DomainMatches(email, cfg.Challenge.AllowedDomains) {
			return fmt.Errorf("email domain is not in challenge.allowed_domains")
		}
		issued, code, err = engine.CreateEmail(email)
	} else {
		issued, code, err = engine.CreateAccount(account)
	}
	if err != nil {
		return err
	}
	if err := writeChallenge(statePath, issued); err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "%s %s\n", issued.ID, code)
	return nil
}

func (a *app) runChallengeVerify(args []string) error {
	var configPath, statePath, code string
	flags := a.newFlagSet("challenge verify")
	flags.StringVar(&configPath, "config", "", "path to khora.yaml")
	flags.StringVar(&statePath, "state", "", "challenge record written by issue (required)")
	flags.StringVar(&code, "code", "", "code to check (required)")
	if help, err := parseFlags(flags, args); help || err != nil {
		return err
	}
	if statePath == "" || code == "" {
		return fmt.Errorf("--state and --code are required")
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	result, err := verifyChallengeFile(statePath, challengeEngine(cfg, a), code)
	if err != nil {
		return err
	}
	return a.writeJSON(result)
}

// verifyChallengeFile validates code against the record at path and
// writes the updated record back. The file is held under an exclusive
// flock for the whole read-validate-write so concurrent verifies each
// see the previous one's attempt count.
func verifyChallengeFile(path string, engine *challenge.Engine, code string) (challenge.Result, error) {
	file, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return challenge.Result{}, fmt.Errorf("opening challenge: %w", err)
	}
	defer file.Close()

	if err := unix.Flock(int(file.Fd()), unix.LOCK_EX); err != nil {
		return challenge.Result{}, fmt.Errorf("locking challenge: %w", err)
	}
	defer unix.Flock(int(file.Fd()), unix.LOCK_UN)

	data, err := io.ReadAll(file)
	if err != nil {
		return challenge.Result{}, fmt.Errorf("reading challenge: %w", err)
	}
	var pending challenge.Challenge
	if err := json.Unmarshal(data, &pending); err != nil {
		return challenge.Result{}, fmt.Errorf("parsing challenge: %w", err)
	}

	result := engine.Validate(&pending, code)

	data, err = encodeChallenge(&pending)
	if err != nil {
		return challenge.Result{}, err
	}
	if err := file.Truncate(0); err != nil {
		return challenge.Result{}, fmt.Errorf("writing challenge: %w", err)
	}
	if _, err := file.WriteAt(data, 0); err != nil {
		return challenge.Result{}, fmt.Errorf("writing challenge: %w", err)
	}
	return result, nil
}

func encodeChallenge(record *challenge.Challenge) ([]byte, error) {
	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding challenge: %w", err)
	}
	return append(data, '\n'), nil
}

func writeChallenge(path string, record *challenge.Challenge) error {
	data, err := encodeChallenge(record)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing challenge: %w", err)
	}
	return nil
}
