// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// =============================================================================
// SQLITE STORE
// =============================================================================

// SQLiteStore keeps all keys in a single SQLite table.
// Default: ~/.parley/parley.db
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// DefaultSQLitePath returns ~/.parley/parley.db.
func DefaultSQLitePath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".parley", "parley.db"), nil
}

// NewSQLiteStore opens or creates the database at path.
// An empty path selects DefaultSQLitePath.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if path == "" {
		p, err := DefaultSQLitePath()
		if err != nil {
			return nil, err
		}
		path = p
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, &StorageError{Op: "open", Err: err}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, &StorageError{Op: "open", Err: err}
	}

	// SQLite allows one writer at a time.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=FULL",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, &StorageError{Op: "open", Err: fmt.Errorf("failed to set pragma %q: %w", p, err)}
		}
	}

	s := &SQLiteStore{db: db, path: path}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) initSchema() error {
	const schema = `
	CREATE TABLE IF NOT EXISTS kv (
		key        TEXT PRIMARY KEY,
		value      TEXT NOT NULL,
		updated_at INTEGER NOT NULL
	);`
	if _, err := s.db.Exec(schema); err != nil {
		return &StorageError{Op: "init", Err: err}
	}
	return nil
}

// Path returns the database file path.
func (s *SQLiteStore) Path() string {
	return s.path
}

// Get returns the value stored under key.
func (s *SQLiteStore) Get(key string) (string, error) {
	if err := ValidateKey(key); err != nil {
		return "", &StorageError{Op: "get", Key: key, Err: err}
	}

	var value string
	err := s.db.QueryRow(`SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", &StorageError{Op: "get", Key: key, Err: ErrNotFound}
	}
	if err != nil {
		return "", &StorageError{Op: "get", Key: key, Err: err}
	}
	return value, nil
}

// Set upserts value under key.
func (s *SQLiteStore) Set(key, value string) error {
	if err := ValidateKey(key); err != nil {
		return &StorageError{Op: "set", Key: key, Err: err}
	}

	_, err := s.db.Exec(`
		INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().Unix())
	if err != nil {
		return &StorageError{Op: "set", Key: key, Err: err}
	}
	return nil
}

// Delete removes key.
func (s *SQLiteStore) Delete(key string) error {
	if err := ValidateKey(key); err != nil {
		return &StorageError{Op: "delete", Key: key, Err: err}
	}
	if _, err := s.db.Exec(`DELETE FROM kv WHERE key = ?`, key); err != nil {
		return &StorageError{Op: "delete", Key: key, Err: err}
	}
	return nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
