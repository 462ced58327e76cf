// Copyright 2026 The Khora Authors
// SPDX-License-Identifier: Apache-2.0

// Package sqlitepool provides a fixed-size pool of SQLite connections
// with Khora's standard pragmas and an idempotent schema applied to
// every connection.
//
// It wraps zombiezen.com/go/sqlite/sqlitex.Pool. Each connection gets
// WAL journaling, NORMAL synchronous mode, and a busy timeout so that
// a writer waiting on another writer retries inside SQLite rather than
// failing with SQLITE_BUSY. The Schema statements in [Config] run on
// each connection after the pragmas; they must be safe to repeat
// (CREATE TABLE IF NOT EXISTS and similar).
//
// Usage:
//
//	pool, err := sqlitepool.Open(sqlitepool.Config{
//	    Path:   "/var/lib/khora/replica.db",
//	    Schema: []string{"CREATE TABLE IF NOT EXISTS ..."},
//	})
//	if err != nil {
//	    return err
//	}
//	defer pool.Close()
//
//	err = pool.WithTransaction(ctx, func(conn *sqlite.Conn) error {
//	    return sqlitex.Execute(conn, "INSERT ...", &sqlitex.ExecOptions{...})
//	})
//
// The pool does not hide SQL. Callers write statements with sqlitex
// and manage their own result scanning.
package sqlitepool
