// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for chat messages.
package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// =============================================================================
// AUTHOR TYPE
// =============================================================================

// Author identifies who wrote a message.
type Author string

const (
	AuthorUser      Author = "user"
	AuthorAssistant Author = "assistant"

	// legacyAssistant is the author value written by older front ends.
	legacyAssistant = "bot"
)

// String returns the string representation of the author.
func (a Author) String() string {
	return string(a)
}

// Valid reports whether a is one of the known authors.
func (a Author) Valid() bool {
	return a == AuthorUser || a == AuthorAssistant
}

// ParseAuthor converts a stored author value into an Author.
// The legacy value "bot" maps to AuthorAssistant.
func ParseAuthor(s string) (Author, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case string(AuthorUser):
		return AuthorUser, nil
	case string(AuthorAssistant), legacyAssistant:
		return AuthorAssistant, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidAuthor, s)
	}
}

// UnmarshalJSON decodes an author, rejecting unknown values.
func (a *Author) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidAuthor, string(data))
	}
	parsed, err := ParseAuthor(s)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// =============================================================================
// MESSAGE TYPE
// =============================================================================

// Message is a single entry in a conversation. Messages are values and are
// never edited after creation; use Clone when handing slices across owners.
type Message struct {
	Author  Author   `json:"author" yaml:"author"`
	Text    string   `json:"text" yaml:"text"`
	Sources []string `json:"sources,omitempty" yaml:"sources,omitempty"`
}

var (
	// ErrInvalidAuthor is returned for author values outside {user, assistant}.
	ErrInvalidAuthor = errors.New("invalid message author")

	// ErrEmptyText is returned when a user message has no visible text.
	ErrEmptyText = errors.New("user message text is empty")
)

// NewUserMessage creates a message authored by the user.
func NewUserMessage(text string) Message {
	return Message{Author: AuthorUser, Text: text}
}

// NewAssistantMessage creates an assistant message. The sources slice is
// copied; an empty slice is stored as nil.
func NewAssistantMessage(text string, sources []string) Message {
	return Message{Author: AuthorAssistant, Text: text, Sources: copySources(sources)}
}

// HasSources reports whether the message carries citation labels.
func (m Message) HasSources() bool {
	return len(m.Sources) > 0
}

// Validate checks the message against the stored schema.
func (m Message) Validate() error {
	if !m.Author.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidAuthor, string(m.Author))
	}
	if m.Author == AuthorUser && strings.TrimSpace(m.Text) == "" {
		return ErrEmptyText
	}
	return nil
}

// Equal reports whether two messages have the same author, text and sources.
func (m Message) Equal(other Message) bool {
	if m.Author != other.Author || m.Text != other.Text || len(m.Sources) != len(other.Sources) {
		return false
	}
	for i := range m.Sources {
		if m.Sources[i] != other.Sources[i] {
			return false
		}
	}
	return true
}

// Clone returns a deep copy of msgs. The result is never nil.
func Clone(msgs []Message) []Message {
	out := make([]Message, len(msgs))
	for i, m := range msgs {
		out[i] = Message{Author: m.Author, Text: m.Text, Sources: copySources(m.Sources)}
	}
	return out
}

// ValidateAll validates every message and reports the first failure with its index.
func ValidateAll(msgs []Message) error {
	for i, m := range msgs {
		if err := m.Validate(); err != nil {
			return fmt.Errorf("message %d: %w", i, err)
		}
	}
	return nil
}

func copySources(sources []string) []string {
	if len(sources) == 0 {
		return nil
	}
	out := make([]string, len(sources))
	copy(out, sources)
	return out
}
