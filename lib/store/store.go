// Copyright 2026 The Khora Authors
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/clovenbradshaw-ctrl/khora/lib/codec"
	"github.com/clovenbradshaw-ctrl/khora/lib/oplog"
	"github.com/clovenbradshaw-ctrl/khora/lib/ref"
	"github.com/clovenbradshaw-ctrl/khora/lib/sqlitepool"
)

// ErrNotFound is returned by GetState when no record exists.
var ErrNotFound = errors.New("store: state record not found")

var schema = []string{
	`CREATE TABLE IF NOT EXISTS operations (
		seq        INTEGER PRIMARY KEY AUTOINCREMENT,
		id         TEXT NOT NULL UNIQUE,
		frame_type TEXT NOT NULL,
		ts         INTEGER NOT NULL,
		body       BLOB NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_operations_frame ON operations(frame_type, seq);`,

	`CREATE TABLE IF NOT EXISTS state (
		room       TEXT NOT NULL,
		event_type TEXT NOT NULL,
		state_key  TEXT NOT NULL,
		content    TEXT NOT NULL,
		PRIMARY KEY (room, event_type, state_key)
	);`,
}

// Config holds the parameters for opening a store.
type Config struct {
	// Path is the database file, or sqlitepool.MemoryPath.
	Path string

	// PoolSize is passed to sqlitepool.
	PoolSize int

	// Logger receives store messages. Nil discards.
	Logger *slog.Logger
}

// Store is a local vault replica. Safe for concurrent use.
type Store struct {
	pool   *sqlitepool.Pool
	logger *slog.Logger
}

// Open opens or creates the replica database.
func Open(cfg Config) (*Store, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	pool, err := sqlitepool.Open(sqlitepool.Config{
		Path:     cfg.Path,
		PoolSize: cfg.PoolSize,
		Schema:   schema,
		Logger:   logger,
	})
	if err != nil {
		return nil, fmt.Errorf("store: %w", err)
	}
	return &Store{pool: pool, logger: logger}, nil
}

// Close closes the underlying pool.
func (s *Store) Close() error {
	return s.pool.Close()
}

// AppendOperations stores operations that are not already present and
// returns how many were new. Every operation must pass
// oplog.Operation.Validate; the batch is rejected as a whole otherwise.
func (s *Store) AppendOperations(ctx context.Context, operations ...oplog.Operation) (int, error) {
	bodies := make([][]byte, len(operations))
	for i := range operations {
		if err := operations[i].Validate(); err != nil {
			return 0, fmt.Errorf("store: append: %w", err)
		}
		body, err := codec.Marshal(&operations[i])
		if err != nil {
			return 0, fmt.Errorf("store: encoding operation %s: %w", operations[i].ID, err)
		}
		bodies[i] = body
	}

	inserted := 0
	err := s.pool.WithTransaction(ctx, func(conn *sqlite.Conn) error {
		for i := range operations {
			operation := &operations[i]
			err := sqlitex.Execute(conn,
				`INSERT OR IGNORE INTO operations (id, frame_type, ts, body) VALUES (?, ?, ?, ?)`,
				&sqlitex.ExecOptions{
					Args: []any{operation.ID, operation.Frame.Type, operation.TS, bodies[i]},
				})
			if err != nil {
				return fmt.Errorf("store: inserting operation %s: %w", operation.ID, err)
			}
			inserted += conn.Changes()
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	if duplicates := len(operations) - inserted; duplicates > 0 {
		s.logger.Debug("duplicate operations ignored", "count", duplicates)
	}
	return inserted, nil
}

// Operations returns the stored operations of one frame type in
// arrival order. An empty frameType returns every operation.
func (s *Store) Operations(ctx context.Context, frameType string) ([]oplog.Operation, error) {
	query := `SELECT body FROM operations ORDER BY seq`
	var args []any
	if frameType != "" {
		query = `SELECT body FROM operations WHERE frame_type = ? ORDER BY seq`
		args = []any{frameType}
	}

	var operations []oplog.Operation
	err := s.pool.WithConn(ctx, func(conn *sqlite.Conn) error {
		return sqlitex.Execute(conn, query, &sqlitex.ExecOptions{
			Args: args,
			ResultFunc: func(stmt *sqlite.Stmt) error {
				body := make([]byte, stmt.ColumnLen(0))
				stmt.ColumnBytes(0, body)
				var operation oplog.Operation
				if err := codec.Unmarshal(body, &operation); err != nil {
					return fmt.Errorf("decoding operation: %w", err)
				}
				operations = append(operations, operation)
				return nil
			},
		})
	})
	if err != nil {
		return nil, fmt.Errorf("store: reading operations: %w", err)
	}
	return operations, nil
}

// FrameTypes returns the distinct frame types present, sorted.
func (s *Store) FrameTypes(ctx context.Context) ([]string, error) {
	var frameTypes []string
	err := s.pool.WithConn(ctx, func(conn *sqlite.Conn) error {
		return sqlitex.Execute(conn, `SELECT DISTINCT frame_type FROM operations ORDER BY frame_type`,
			&sqlitex.ExecOptions{
				ResultFunc: func(stmt *sqlite.Stmt) error {
					frameTypes = append(frameTypes, stmt.ColumnText(0))
					return nil
				},
			})
	})
	if err != nil {
		return nil, fmt.Errorf("store: reading frame types: %w", err)
	}
	return frameTypes, nil
}

// PutState writes a state record, replacing any previous content for
// the same (room, eventType, stateKey).
func (s *Store) PutState(ctx context.Context, room ref.RoomID, eventType ref.EventType, stateKey string, content any) error {
	data, err := json.Marshal(content)
	if err != nil {
		return fmt.Errorf("store: encoding %s state: %w", eventType, err)
	}
	err = s.pool.WithTransaction(ctx, func(conn *sqlite.Conn) error {
		return sqlitex.Execute(conn,
			`INSERT INTO state (room, event_type, state_key, content) VALUES (?, ?, ?, ?)
			 ON CONFLICT (room, event_type, state_key) DO UPDATE SET content = excluded.content`,
			&sqlitex.ExecOptions{
				Args: []any{room.String(), eventType.String(), stateKey, string(data)},
			})
	})
	if err != nil {
		return fmt.Errorf("store: writing %s state in %s: %w", eventType, room, err)
	}
	s.logger.Info("state record written",
		"room", room,
		"event_type", eventType,
		"state_key", stateKey,
	)
	return nil
}

// GetState decodes a state record's content into content. It returns
// an error wrapping ErrNotFound when no record exists.
func (s *Store) GetState(ctx context.Context, room ref.RoomID, eventType ref.EventType, stateKey string, content any) error {
	var (
		data  string
		found bool
	)
	err := s.pool.WithConn(ctx, func(conn *sqlite.Conn) error {
		return sqlitex.Execute(conn,
			`SELECT content FROM state WHERE room = ? AND event_type = ? AND state_key = ?`,
			&sqlitex.ExecOptions{
				Args: []any{room.String(), eventType.String(), stateKey},
				ResultFunc: func(stmt *sqlite.Stmt) error {
					data = stmt.ColumnText(0)
					found = true
					return nil
				},
			})
	})
	if err != nil {
		return fmt.Errorf("store: reading %s state in %s: %w", eventType, room, err)
	}
	if !found {
		return fmt.Errorf("%w: %s %q in %s", ErrNotFound, eventType, stateKey, room)
	}
	if err := json.Unmarshal([]byte(data), content); err != nil {
		return fmt.Errorf("store: decoding %s state: %w", eventType, err)
	}
	return nil
}

// StateKeys returns the state keys present for (room, eventType),
// sorted.
func (s *Store) StateKeys(ctx context.Context, room ref.RoomID, eventType ref.EventType) ([]string, error) {
	var keys []string
	err := s.pool.WithConn(ctx, func(conn *sqlite.Conn) error {
		return sqlitex.Execute(conn,
			`SELECT state_key FROM state WHERE room = ? AND event_type = ? ORDER BY state_key`,
			&sqlitex.ExecOptions{
				Args: []any{room.String(), eventType.String()},
				ResultFunc: func(stmt *sqlite.Stmt) error {
					keys = append(keys, stmt.ColumnText(0))
					return nil
				},
			})
	})
	if err != nil {
		return nil, fmt.Errorf("store: listing %s state in %s: %w", eventType, room, err)
	}
	return keys, nil
}
