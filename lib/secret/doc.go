// Copyright 2026 The Khora Authors
// SPDX-License-Identifier: Apache-2.0

// Package secret holds vault keys and other key material in memory
// outside the Go heap.
//
// [Buffer] allocates with mmap(MAP_ANONYMOUS), mlocks the region so it
// cannot be swapped, and marks it MADV_DONTDUMP so it never lands in a
// core dump. Close zeroes, unlocks, and unmaps it. The garbage
// collector never sees the region, so it cannot leave copies behind.
//
// [Buffer.Equal] compares in constant time. Access after Close panics.
//
// Depends on golang.org/x/sys/unix. Used by lib/fieldcrypt (Keyring)
// and lib/sealed.
package secret
