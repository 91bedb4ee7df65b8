// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package identity provides the stable per-installation client identifier
// that keys conversation history.
package identity

import (
	"encoding/json"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/jeranaias/parley/internal/storage"
)

// Key is the storage key holding the identifier.
const Key = "identity"

// Store obtains and persists the client identifier.
type Store struct {
	kv     storage.Store
	logger *log.Logger

	mu sync.Mutex
	id string
}

// New creates an identity store over kv. A nil logger uses log.Default().
func New(kv storage.Store, logger *log.Logger) *Store {
	if logger == nil {
		logger = log.Default()
	}
	return &Store{kv: kv, logger: logger}
}

// GetOrCreate returns the stored identifier, creating and persisting a new
// random one on first use. An existing identifier is never overwritten.
//
// If storage cannot be read or written, the identifier lives in memory for
// the lifetime of this Store only.
func (s *Store) GetOrCreate() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.id != "" {
		return s.id
	}

	raw, err := s.kv.Get(Key)
	switch {
	case err == nil:
		if id := decode(raw); id != "" {
			s.id = id
			return s.id
		}
		s.logger.Warn("stored identity is unreadable, using a session-only identity", "key", Key)
		s.id = uuid.New().String()
		return s.id

	case !storage.IsNotFound(err):
		// Unknown read failure: writing could clobber a real identity.
		s.logger.Warn("identity storage unavailable, using a session-only identity", "err", err)
		s.id = uuid.New().String()
		return s.id
	}

	s.id = uuid.New().String()
	data, _ := json.Marshal(s.id)
	if err := s.kv.Set(Key, string(data)); err != nil {
		s.logger.Warn("failed to persist identity, continuing in memory", "err", err)
	} else {
		s.logger.Debug("created identity")
	}
	return s.id
}

// decode accepts a JSON string or, for values written by older clients,
// the bare token.
func decode(raw string) string {
	raw = strings.TrimSpace(raw)
	var id string
	if err := json.Unmarshal([]byte(raw), &id); err == nil {
		return strings.TrimSpace(id)
	}
	if raw != "" && !strings.ContainsAny(raw, "\"{}[] \t\n") {
		return raw
	}
	return ""
}
