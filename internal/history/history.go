// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package history persists the append-only message log of each identity.
package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/jeranaias/parley/internal/export"
	"github.com/jeranaias/parley/internal/model"
	"github.com/jeranaias/parley/internal/storage"
)

// KeyPrefix precedes the identity in the storage key of a log.
const KeyPrefix = "history_"

// Key returns the storage key for identity's log.
func Key(identity string) string {
	return KeyPrefix + identity
}

// ErrUnavailable is returned by Append when the stored log could not be read,
// so the message is kept in memory instead of overwriting it.
var ErrUnavailable = errors.New("history unavailable")

// =============================================================================
// HISTORY STORE
// =============================================================================

// Store reads and writes history logs.
//
// Every log is mirrored in memory once loaded. When persistence fails the
// mirror keeps growing, so the log the session sees stays consistent with
// the transcript for the rest of the process.
//
// A log whose read failed is degraded: appends stay in the mirror and
// nothing is written until a later read succeeds, at which point the
// mirrored messages are appended to the stored log.
type Store struct {
	kv     storage.Store
	logger *log.Logger

	mu       sync.Mutex
	logs     map[string][]model.Message
	degraded map[string]bool
}

// New creates a history store over kv. A nil logger uses log.Default().
func New(kv storage.Store, logger *log.Logger) *Store {
	if logger == nil {
		logger = log.Default()
	}
	return &Store{
		kv:       kv,
		logger:   logger,
		logs:     make(map[string][]model.Message),
		degraded: make(map[string]bool),
	}
}

// Load returns identity's log. Nothing stored, unreadable storage, or data
// that does not match the message schema all yield an empty log.
func (s *Store) Load(identity string) []model.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return model.Clone(s.loadLocked(identity))
}

func (s *Store) loadLocked(identity string) []model.Message {
	if msgs, ok := s.logs[identity]; ok {
		return msgs
	}

	msgs, err := s.read(identity)
	if err != nil {
		s.logger.Warn("history unavailable, starting empty", "key", Key(identity), "err", err)
		s.degraded[identity] = true
	}
	s.logs[identity] = msgs
	return msgs
}

// read decodes the stored log. Only a storage error other than not-found is
// returned; missing or corrupt data yields an empty log.
func (s *Store) read(identity string) ([]model.Message, error) {
	key := Key(identity)
	raw, err := s.kv.Get(key)
	if err != nil {
		if storage.IsNotFound(err) {
			return []model.Message{}, nil
		}
		return []model.Message{}, err
	}

	var msgs []model.Message
	if err := json.Unmarshal([]byte(raw), &msgs); err != nil {
		s.logger.Warn("history is corrupt, starting empty", "key", key, "err", err)
		return []model.Message{}, nil
	}
	if err := model.ValidateAll(msgs); err != nil {
		s.logger.Warn("history does not match schema, starting empty", "key", key, "err", err)
		return []model.Message{}, nil
	}
	if msgs == nil {
		msgs = []model.Message{}
	}
	return msgs, nil
}

// recoverLocked retries the read of a degraded log. On success the stored
// messages are placed before the ones mirrored in the meantime.
func (s *Store) recoverLocked(identity string) bool {
	stored, err := s.read(identity)
	if err != nil {
		return false
	}
	s.logs[identity] = append(stored, s.logs[identity]...)
	delete(s.degraded, identity)
	return true
}

// Append adds msg to the end of identity's log and writes the whole log
// before returning. On a write error the message is still kept in memory
// and the error is returned. While the stored log cannot be read the
// message is kept in memory and ErrUnavailable is returned.
func (s *Store) Append(identity string, msg model.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	msgs := append(s.loadLocked(identity), model.Clone([]model.Message{msg})...)
	s.logs[identity] = msgs

	if s.degraded[identity] && !s.recoverLocked(identity) {
		s.logger.Warn("history unreadable, keeping message in memory", "key", Key(identity))
		return ErrUnavailable
	}
	return s.write(identity, s.logs[identity])
}

// Clear empties identity's log.
func (s *Store) Clear(identity string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.logs[identity] = []model.Message{}
	if err := s.kv.Delete(Key(identity)); err != nil {
		s.logger.Warn("failed to clear history", "key", Key(identity), "err", err)
		return err
	}
	delete(s.degraded, identity)
	return nil
}

// Len returns the number of messages in identity's log.
func (s *Store) Len(identity string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.loadLocked(identity))
}

// Export renders identity's log in format without modifying it.
func (s *Store) Export(identity string, format export.Format, opts *export.Options) ([]byte, error) {
	msgs := s.Load(identity)
	data, err := export.Render(msgs, format, opts)
	if err != nil {
		return nil, fmt.Errorf("export history: %w", err)
	}
	return data, nil
}

func (s *Store) write(identity string, msgs []model.Message) error {
	data, err := json.Marshal(msgs)
	if err != nil {
		return fmt.Errorf("encode history: %w", err)
	}
	if err := s.kv.Set(Key(identity), string(data)); err != nil {
		s.logger.Warn("failed to persist history, keeping it in memory", "key", Key(identity), "err", err)
		return err
	}
	return nil
}
