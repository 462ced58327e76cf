// Copyright 2026 The Khora Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides YAML configuration loading for Khora.
//
// Configuration is loaded from a single file named by either the
// KHORA_CONFIG environment variable (via [Load]) or a --config flag
// (via [LoadFile]). There is no discovery and no fallback search.
//
// The file may carry development, staging, and production sections
// that override base values when [Config].Environment matches.
// Production without an explicit section logs JSON and keeps the
// default challenge limits.
//
// Path fields support ${HOME}, ${KHORA_ROOT}, and ${VAR:-default}
// expansion after loading. No other environment variables override
// configuration values.
//
// This package depends on no other Khora packages.
package config
