// Copyright 2026 The Khora Authors
// SPDX-License-Identifier: Apache-2.0

// Khora is the command-line front end to a local vault replica. It
// generates field and member keys, seals and opens field values,
// replays operation files into current state, moves operations between
// JSONC files, bundles, and the replica database, and drives the
// verification challenge and recovery phrase flows.
//
// Subcommands that touch the replica read the YAML configuration named
// by --config or KHORA_CONFIG, falling back to built-in defaults when
// neither is set.
package main
