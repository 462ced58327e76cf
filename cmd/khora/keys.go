// Copyright 2026 The Khora Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/pflag"

	"github.com/clovenbradshaw-ctrl/khora/lib/fieldcrypt"
	"github.com/clovenbradshaw-ctrl/khora/lib/sealed"
)

// runKeygen prints a fresh vault key.
func (a *app) runKeygen(args []string) error {
	flags := a.newFlagSet("keygen")
	if help, err := parseFlags(flags, args); help || err != nil {
		return err
	}

	key, err := fieldcrypt.GenerateKey()
	if err != nil {
		return fmt.Errorf("generating key: %w", err)
	}
	fmt.Fprintln(a.stdout, string(key))
	return nil
}

// runIdentity generates a member keypair. The public key goes to
// stdout for sharing. The private key goes to --out, or to stderr when
// no file is named.
func (a *app) runIdentity(args []string) error {
	var outPath string
	flags := a.newFlagSet("identity")
	flags.StringVarP(&outPath, "out", "o", "", "write the private key to this file (mode 0600)")
	if help, err := parseFlags(flags, args); help || err != nil {
		return err
	}

	keypair, err := sealed.GenerateKeypair()
	if err != nil {
		return fmt.Errorf("generating keypair: %w", err)
	}
	defer keypair.Close()

	if outPath != "" {
		if err := os.WriteFile(outPath, []byte(string(keypair.PrivateKey.Bytes())+"\n"), 0o600); err != nil {
			return fmt.Errorf("writing identity: %w", err)
		}
	} else {
		fmt.Fprintf(a.stderr, "# Private key (store securely):\n%s\n", keypair.PrivateKey.Bytes())
	}
	fmt.Fprintln(a.stdout, keypair.PublicKey)
	return nil
}

type keyFlags struct {
	key     string
	keyFile string
}

func (k *keyFlags) register(flags *pflag.FlagSet) {
	flags.StringVar(&k.key, "key", "", "vault key (base64)")
	flags.StringVar(&k.keyFile, "key-file", "", "file holding the vault key")
}

func (k *keyFlags) set() bool { return k.key != "" || k.keyFile != "" }

func (k *keyFlags) load() (fieldcrypt.Key, error) {
	encoded := k.key
	if k.keyFile != "" {
		if k.key != "" {
			return "", fmt.Errorf("--key and --key-file are mutually exclusive")
		}
		data, err := os.ReadFile(k.keyFile)
		if err != nil {
			return "", fmt.Errorf("reading key file: %w", err)
		}
		encoded = strings.TrimSpace(string(data))
	}
	if encoded == "" {
		return "", fmt.Errorf("--key or --key-file is required")
	}
	return fieldcrypt.ParseKey(encoded)
}

// runEncrypt seals stdin. With --target the value is sealed under the
// field key derived for that path, as the vault does.
func (a *app) runEncrypt(args []string) error {
	var keys keyFlags
	var target string
	flags := a.newFlagSet("encrypt")
	keys.register(flags)
	flags.StringVar(&target, "target", "", "seal under the field key derived for this target path")
	if help, err := parseFlags(flags, args); help || err != nil {
		return err
	}

	key, err := keys.load()
	if err != nil {
		return err
	}
	plaintext, err := io.ReadAll(a.stdin)
	if err != nil {
		return fmt.Errorf("reading stdin: %w", err)
	}

	var result fieldcrypt.Sealed
	if target != "" {
		keyring, err := fieldcrypt.NewKeyring(key)
		if err != nil {
			return err
		}
		defer keyring.Close()
		result, err = keyring.Seal(target, string(plaintext))
		if err != nil {
			return err
		}
	} else {
		result, err = fieldcrypt.Encrypt(string(plaintext), key)
		if err != nil {
			return err
		}
	}
	return a.writeJSON(result)
}

// runDecrypt opens a sealed value read from stdin as JSON.
func (a *app) runDecrypt(args []string) error {
	var keys keyFlags
	var target string
	flags := a.newFlagSet("decrypt")
	keys.register(flags)
	flags.StringVar(&target, "target", "", "open with the field key derived for this target path")
	if help, err := parseFlags(flags, args); help || err != nil {
		return err
	}

	key, err := keys.load()
	if err != nil {
		return err
	}
	var value fieldcrypt.Sealed
	if err := json.NewDecoder(a.stdin).Decode(&value); err != nil {
		return fmt.Errorf("parsing sealed value: %w", err)
	}

	var opened fieldcrypt.Opened
	if target != "" {
		keyring, err := fieldcrypt.NewKeyring(key)
		if err != nil {
			return err
		}
		defer keyring.Close()
		opened = keyring.Open(target, value)
	} else {
		opened = fieldcrypt.Decrypt(value, key)
	}
	if !opened.OK {
		return fmt.Errorf("value is undecryptable with this key")
	}
	fmt.Fprint(a.stdout, opened.Plaintext)
	return nil
}
