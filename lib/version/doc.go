// Copyright 2026 The Khora Authors
// SPDX-License-Identifier: Apache-2.0

// Package version reports build version information for Khora
// binaries. Values are injected at build time via -ldflags:
//
//	go build -ldflags "-X github.com/clovenbradshaw-ctrl/khora/lib/version.GitCommit=$(git rev-parse --short HEAD)"
package version
