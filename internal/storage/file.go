// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/jeranaias/parley/internal/util"
)

// =============================================================================
// FILE STORE
// =============================================================================

// FileStore keeps one file per key under a base directory.
// Default: ~/.parley/store/
type FileStore struct {
	// BaseDir is the directory holding <key>.json files.
	BaseDir string

	mu sync.Mutex
}

// DefaultFileDir returns ~/.parley/store.
func DefaultFileDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".parley", "store"), nil
}

// NewFileStore creates a file store rooted at dir, creating it with 0700.
// An empty dir selects DefaultFileDir.
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		d, err := DefaultFileDir()
		if err != nil {
			return nil, err
		}
		dir = d
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, &StorageError{Op: "open", Err: err}
	}
	return &FileStore{BaseDir: dir}, nil
}

func (s *FileStore) path(key string) string {
	return filepath.Join(s.BaseDir, key+".json")
}

// Get reads the value stored under key.
func (s *FileStore) Get(key string) (string, error) {
	if err := ValidateKey(key); err != nil {
		return "", &StorageError{Op: "get", Key: key, Err: err}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", &StorageError{Op: "get", Key: key, Err: ErrNotFound}
		}
		return "", &StorageError{Op: "get", Key: key, Err: err}
	}
	return string(data), nil
}

// Set writes value under key atomically with owner-only permissions.
func (s *FileStore) Set(key, value string) error {
	if err := ValidateKey(key); err != nil {
		return &StorageError{Op: "set", Key: key, Err: err}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := util.AtomicWriteFile(s.path(key), []byte(value), 0600); err != nil {
		return &StorageError{Op: "set", Key: key, Err: err}
	}
	return nil
}

// Delete removes the file for key.
func (s *FileStore) Delete(key string) error {
	if err := ValidateKey(key); err != nil {
		return &StorageError{Op: "delete", Key: key, Err: err}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path(key)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return &StorageError{Op: "delete", Key: key, Err: err}
	}
	return nil
}

// Close is a no-op for the file store.
func (s *FileStore) Close() error {
	return nil
}
