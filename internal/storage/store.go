// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage provides the durable key-value store behind parley's
// identity, preferences and conversation history.
package storage

import (
	"errors"
	"fmt"
	"strings"
)

// =============================================================================
// STORE INTERFACE
// =============================================================================

// Store is a string key-value store. Values are opaque to the store; callers
// persist JSON text in them.
type Store interface {
	// Get returns the value for key, or ErrNotFound when the key is absent.
	Get(key string) (string, error)

	// Set writes value under key, replacing any previous value.
	Set(key, value string) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(key string) error

	// Close releases any resources held by the store.
	Close() error
}

// Driver names accepted by Open.
const (
	DriverFile   = "file"
	DriverSQLite = "sqlite"
	DriverMemory = "memory"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrNotFound is returned by Get when a key has no value.
	ErrNotFound = errors.New("key not found")

	// ErrInvalidKey is returned for empty keys or keys with path characters.
	ErrInvalidKey = errors.New("invalid storage key")

	// ErrUnknownDriver is returned by Open for unsupported driver names.
	ErrUnknownDriver = errors.New("unknown storage driver")
)

// StorageError records a failed store operation and the key involved.
type StorageError struct {
	Op  string
	Key string
	Err error
}

func (e *StorageError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("storage %s %q: %v", e.Op, e.Key, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// IsNotFound reports whether err indicates a missing key.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// =============================================================================
// OPEN
// =============================================================================

// Open creates a store for the given driver. For the file driver path is a
// directory; for sqlite it is the database file. The memory driver ignores path.
func Open(driver, path string) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case DriverFile, "":
		return NewFileStore(path)
	case DriverSQLite:
		return NewSQLiteStore(path)
	case DriverMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
	}
}

// ValidateKey checks that key is non-empty and limited to [A-Za-z0-9_.-],
// so it can double as a file name.
func ValidateKey(key string) error {
	if key == "" || key == "." || key == ".." {
		return ErrInvalidKey
	}
	for _, r := range key {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '_', r == '-', r == '.':
		default:
			return ErrInvalidKey
		}
	}
	return nil
}
