// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package tui

import (
	"context"
	"io"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/parley/internal/backend"
	"github.com/jeranaias/parley/internal/chat"
	"github.com/jeranaias/parley/internal/history"
	"github.com/jeranaias/parley/internal/i18n"
	"github.com/jeranaias/parley/internal/identity"
	"github.com/jeranaias/parley/internal/prefs"
	"github.com/jeranaias/parley/internal/storage"
)

type echoBackend struct {
	mu    sync.Mutex
	calls int
}

func (b *echoBackend) Complete(ctx context.Context, req backend.Request) (backend.Reply, error) {
	b.mu.Lock()
	b.calls++
	b.mu.Unlock()
	return backend.Reply{Response: "echo: " + req.Message, Sources: []string{"notes.md"}}, nil
}

func newTestModel(t *testing.T) (*Model, *chat.Controller, *echoBackend) {
	t.Helper()
	logger := log.New(io.Discard)
	kv := storage.NewMemoryStore()

	p, err := prefs.New(kv, prefs.Catalog{
		Models: []string{"llama3-8b-8192", "gemma-7b-it"},
		Roles:  []string{"default", "teacher"},
	}, logger)
	require.NoError(t, err)

	be := &echoBackend{}
	ctrl, err := chat.New(chat.Options{
		Identity:   identity.New(kv, logger),
		History:    history.New(kv, logger),
		Prefs:      p,
		Backend:    be,
		Translator: i18n.New("fr"),
		Logger:     logger,
	})
	require.NoError(t, err)

	m := New(context.Background(), ctrl, Options{Logger: logger})
	m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	return m, ctrl, be
}

// drain applies any pending controller notification.
func drain(m *Model) {
	select {
	case <-m.changes:
		m.Update(changedMsg{})
	default:
	}
}

func pressEnter(m *Model) tea.Cmd {
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	return cmd
}

func TestModel_InitialView(t *testing.T) {
	m, _, _ := newTestModel(t)

	out := m.View()
	assert.Contains(t, out, "parley")
	assert.Contains(t, out, "llama3-8b-8192")
	assert.Contains(t, out, "default")
}

func TestModel_SubmitTurn(t *testing.T) {
	m, ctrl, be := newTestModel(t)

	m.input.SetValue("bonjour")
	cmd := pressEnter(m)
	require.NotNil(t, cmd)
	assert.Empty(t, m.input.Value())

	msg := cmd()
	done, ok := msg.(submitDoneMsg)
	require.True(t, ok)
	assert.NoError(t, done.err)
	m.Update(done)

	drain(m)
	assert.Len(t, ctrl.Transcript(), 2)
	assert.Equal(t, 1, be.calls)

	content := m.renderContent()
	assert.Contains(t, content, "Vous")
	assert.Contains(t, content, "bonjour")
	assert.Contains(t, content, "echo: bonjour")
	assert.Contains(t, content, "Sources: notes.md")
}

func TestModel_WhitespaceIgnored(t *testing.T) {
	m, ctrl, be := newTestModel(t)

	m.input.SetValue("   ")
	cmd := pressEnter(m)
	assert.Nil(t, cmd)
	assert.Empty(t, ctrl.Transcript())
	assert.Equal(t, 0, be.calls)
}

func TestModel_RejectsWhileSending(t *testing.T) {
	m, _, be := newTestModel(t)
	m.view.State = chat.StateSending

	m.input.SetValue("second")
	cmd := pressEnter(m)
	assert.Nil(t, cmd)
	assert.Equal(t, "second", m.input.Value())
	assert.Equal(t, chat.ErrTurnInFlight.Error(), m.status)
	assert.Equal(t, 0, be.calls)
}

func TestModel_DoubleEnterKeepsInput(t *testing.T) {
	m, ctrl, be := newTestModel(t)

	m.input.SetValue("first")
	first := pressEnter(m)
	require.NotNil(t, first)

	// The first turn has not run yet, so the view still reads idle.
	m.input.SetValue("second")
	assert.Nil(t, pressEnter(m))
	assert.Equal(t, "second", m.input.Value())
	assert.Equal(t, chat.ErrTurnInFlight.Error(), m.status)

	m.Update(first())
	drain(m)
	assert.Len(t, ctrl.Transcript(), 2)
	assert.Equal(t, 1, be.calls)

	cmd := pressEnter(m)
	require.NotNil(t, cmd)
	m.Update(cmd())
	drain(m)
	assert.Len(t, ctrl.Transcript(), 4)
	assert.Equal(t, "second", ctrl.Transcript()[2].Text)
}

func TestModel_RejectedSubmitRestoresInput(t *testing.T) {
	m, _, _ := newTestModel(t)

	m.Update(submitDoneMsg{text: "lost", err: chat.ErrTurnInFlight})
	assert.Equal(t, "lost", m.input.Value())
	assert.Equal(t, chat.ErrTurnInFlight.Error(), m.status)
	assert.False(t, m.pending)

	// Text typed since is not overwritten.
	m.input.SetValue("newer")
	m.Update(submitDoneMsg{text: "lost", err: chat.ErrNoIdentity})
	assert.Equal(t, "newer", m.input.Value())
}

func TestModel_SlashCommands(t *testing.T) {
	m, ctrl, be := newTestModel(t)

	m.input.SetValue("/model gemma-7b-it")
	pressEnter(m)
	assert.Equal(t, "gemma-7b-it", ctrl.Settings().Model)
	assert.Contains(t, m.notice, "gemma-7b-it")

	drain(m)
	assert.Contains(t, m.View(), "gemma-7b-it")

	m.input.SetValue("/role pirate")
	pressEnter(m)
	assert.Contains(t, m.status, "pirate")

	m.input.SetValue("/unknown")
	pressEnter(m)
	assert.Contains(t, m.status, "unknown command")

	assert.Equal(t, 0, be.calls)
}

func TestModel_QuitCommand(t *testing.T) {
	m, _, _ := newTestModel(t)

	m.input.SetValue("/quit")
	cmd := pressEnter(m)
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
	assert.Empty(t, m.View())
}

func TestModel_HistoryPanel(t *testing.T) {
	m, _, _ := newTestModel(t)

	m.Update(tea.KeyMsg{Type: tea.KeyCtrlO})
	drain(m)
	require.True(t, m.view.ShowHistory)

	content := m.renderContent()
	assert.Contains(t, content, "Historique du chat")
	assert.Contains(t, content, "Aucun historique.")

	m.input.SetValue("/history")
	pressEnter(m)
	drain(m)
	assert.False(t, m.view.ShowHistory)
	assert.Empty(t, m.notice)
}

func TestModel_ClearKey(t *testing.T) {
	m, ctrl, _ := newTestModel(t)

	m.input.SetValue("hello")
	cmd := pressEnter(m)
	m.Update(cmd())
	drain(m)
	require.Len(t, ctrl.Transcript(), 2)

	m.Update(tea.KeyMsg{Type: tea.KeyCtrlL})
	drain(m)
	assert.Empty(t, ctrl.Transcript())
	assert.Empty(t, m.view.Transcript)
	assert.Contains(t, m.notice, "Historique effacé.")
}

func TestSignal_Coalesces(t *testing.T) {
	m, _, _ := newTestModel(t)
	drain(m)

	m.signal()
	m.signal()
	m.signal()
	assert.Len(t, m.changes, 1)
}
