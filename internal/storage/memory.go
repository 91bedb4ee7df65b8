// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import "sync"

// MemoryStore is a map-backed Store. It is used for --store-driver=memory
// and throughout the tests.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]string

	// FailWrites makes Set and Delete fail with the given error.
	FailWrites error
	// FailReads makes Get fail with the given error.
	FailReads error
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string]string)}
}

func (m *MemoryStore) Get(key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.FailReads != nil {
		return "", &StorageError{Op: "get", Key: key, Err: m.FailReads}
	}
	v, ok := m.data[key]
	if !ok {
		return "", &StorageError{Op: "get", Key: key, Err: ErrNotFound}
	}
	return v, nil
}

func (m *MemoryStore) Set(key, value string) error {
	if err := ValidateKey(key); err != nil {
		return &StorageError{Op: "set", Key: key, Err: err}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailWrites != nil {
		return &StorageError{Op: "set", Key: key, Err: m.FailWrites}
	}
	m.data[key] = value
	return nil
}

func (m *MemoryStore) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailWrites != nil {
		return &StorageError{Op: "delete", Key: key, Err: m.FailWrites}
	}
	delete(m.data, key)
	return nil
}

func (m *MemoryStore) Close() error {
	return nil
}

// Len returns the number of stored keys.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data)
}
