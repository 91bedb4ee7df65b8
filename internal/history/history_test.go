// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package history

import (
	"errors"
	"io"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/parley/internal/export"
	"github.com/jeranaias/parley/internal/model"
	"github.com/jeranaias/parley/internal/storage"
)

const id = "3f1c0c2e-0000-4000-8000-000000000001"

func newStore(kv storage.Store) *Store {
	return New(kv, log.New(io.Discard))
}

func TestLoad_EmptyWhenNothingStored(t *testing.T) {
	msgs := newStore(storage.NewMemoryStore()).Load(id)
	assert.NotNil(t, msgs)
	assert.Empty(t, msgs)
}

func TestAppend_PersistsInOrder(t *testing.T) {
	kv := storage.NewMemoryStore()
	s := newStore(kv)

	require.NoError(t, s.Append(id, model.NewUserMessage("hello")))
	require.NoError(t, s.Append(id, model.NewAssistantMessage("hi there", []string{"doc1"})))

	// A fresh store reads what was written.
	got := newStore(kv).Load(id)
	require.Len(t, got, 2)
	assert.True(t, got[0].Equal(model.NewUserMessage("hello")))
	assert.True(t, got[1].Equal(model.NewAssistantMessage("hi there", []string{"doc1"})))

	raw, err := kv.Get(Key(id))
	require.NoError(t, err)
	assert.JSONEq(t, `[{"author":"user","text":"hello"},{"author":"assistant","text":"hi there","sources":["doc1"]}]`, raw)
}

func TestLoad_IsolatedPerIdentity(t *testing.T) {
	s := newStore(storage.NewMemoryStore())
	require.NoError(t, s.Append("a", model.NewUserMessage("one")))

	assert.Empty(t, s.Load("b"))
	assert.Equal(t, 1, s.Len("a"))
}

func TestLoad_CorruptDataIsEmpty(t *testing.T) {
	tests := []struct {
		name   string
		stored string
	}{
		{"not json", `{{{`},
		{"object instead of array", `{"author":"user","text":"x"}`},
		{"unknown author", `[{"author":"system","text":"x"}]`},
		{"blank user text", `[{"author":"user","text":""}]`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			kv := storage.NewMemoryStore()
			kv.Set(Key(id), tc.stored)
			assert.Empty(t, newStore(kv).Load(id))
		})
	}
}

func TestLoad_LegacyBotAuthor(t *testing.T) {
	kv := storage.NewMemoryStore()
	kv.Set(Key(id), `[{"author":"user","text":"q"},{"author":"bot","text":"a"}]`)

	got := newStore(kv).Load(id)
	require.Len(t, got, 2)
	assert.Equal(t, model.AuthorAssistant, got[1].Author)
}

func TestClear_ThenLoadIsEmpty(t *testing.T) {
	kv := storage.NewMemoryStore()
	s := newStore(kv)
	require.NoError(t, s.Append(id, model.NewUserMessage("hello")))

	require.NoError(t, s.Clear(id))
	assert.Empty(t, s.Load(id))
	assert.Empty(t, newStore(kv).Load(id))
}

func TestAppend_WriteFailureKeepsMirror(t *testing.T) {
	kv := storage.NewMemoryStore()
	s := newStore(kv)
	kv.FailWrites = errors.New("quota exceeded")

	err := s.Append(id, model.NewUserMessage("hello"))
	assert.Error(t, err)
	assert.Equal(t, 1, s.Len(id))

	kv.FailWrites = nil
	require.NoError(t, s.Append(id, model.NewAssistantMessage("hi", nil)))

	// The next successful write carries the whole log.
	assert.Len(t, newStore(kv).Load(id), 2)
}

func TestAppend_AfterFailedReadKeepsStoredLog(t *testing.T) {
	kv := storage.NewMemoryStore()
	seed := newStore(kv)
	for _, text := range []string{"one", "two", "three"} {
		require.NoError(t, seed.Append(id, model.NewUserMessage(text)))
	}

	s := newStore(kv)
	kv.FailReads = errors.New("input/output error")
	assert.Empty(t, s.Load(id))

	// Still unreadable: the message stays in memory only.
	err := s.Append(id, model.NewUserMessage("held"))
	assert.ErrorIs(t, err, ErrUnavailable)
	kv.FailReads = nil
	raw, err := kv.Get(Key(id))
	require.NoError(t, err)
	assert.JSONEq(t, `[{"author":"user","text":"one"},{"author":"user","text":"two"},{"author":"user","text":"three"}]`, raw)

	// Readable again: the stored log is extended, never replaced.
	require.NoError(t, s.Append(id, model.NewUserMessage("new")))
	raw, err = kv.Get(Key(id))
	require.NoError(t, err)
	assert.JSONEq(t, `[{"author":"user","text":"one"},{"author":"user","text":"two"},{"author":"user","text":"three"},{"author":"user","text":"held"},{"author":"user","text":"new"}]`, raw)
	assert.Equal(t, 5, s.Len(id))
}

func TestClear_EndsDegradedLog(t *testing.T) {
	kv := storage.NewMemoryStore()
	require.NoError(t, newStore(kv).Append(id, model.NewUserMessage("old")))

	s := newStore(kv)
	kv.FailReads = errors.New("input/output error")
	s.Load(id)
	require.NoError(t, s.Clear(id))

	require.NoError(t, s.Append(id, model.NewUserMessage("fresh")))
	kv.FailReads = nil
	raw, err := kv.Get(Key(id))
	require.NoError(t, err)
	assert.JSONEq(t, `[{"author":"user","text":"fresh"}]`, raw)
}

func TestLoad_ReturnsCopy(t *testing.T) {
	s := newStore(storage.NewMemoryStore())
	require.NoError(t, s.Append(id, model.NewAssistantMessage("a", []string{"s"})))

	got := s.Load(id)
	got[0].Sources[0] = "mutated"
	assert.Equal(t, "s", s.Load(id)[0].Sources[0])
}

func TestExport_RoundTrip(t *testing.T) {
	s := newStore(storage.NewMemoryStore())
	require.NoError(t, s.Append(id, model.NewUserMessage("hello")))
	require.NoError(t, s.Append(id, model.NewAssistantMessage("hi there", []string{"doc1", "doc2"})))

	data, err := s.Export(id, export.FormatJSON, nil)
	require.NoError(t, err)

	back, err := export.Parse(data)
	require.NoError(t, err)
	want := s.Load(id)
	require.Len(t, back, len(want))
	for i := range want {
		assert.True(t, back[i].Equal(want[i]), "message %d", i)
	}
	assert.Equal(t, 2, s.Len(id), "export must not mutate the log")
}

func TestExport_UnsupportedFormat(t *testing.T) {
	_, err := newStore(storage.NewMemoryStore()).Export(id, "pdf", nil)
	assert.ErrorIs(t, err, export.ErrUnsupportedFormat)
}
