// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat implements the chat session controller: it owns the
// transcript, the typing flag and the turn state machine, and relays user
// intents to the history, preferences and backend collaborators.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/jeranaias/parley/internal/backend"
	"github.com/jeranaias/parley/internal/export"
	"github.com/jeranaias/parley/internal/history"
	"github.com/jeranaias/parley/internal/i18n"
	"github.com/jeranaias/parley/internal/model"
	"github.com/jeranaias/parley/internal/prefs"
)

// =============================================================================
// STATE
// =============================================================================

// State is the turn state of the controller.
type State int

const (
	// StateIdle accepts a new submission.
	StateIdle State = iota
	// StateSending has a request in flight.
	StateSending
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateSending:
		return "Sending"
	default:
		return "Unknown"
	}
}

// Input rejection errors. None of them change controller state.
var (
	ErrEmptyMessage     = errors.New("message is empty")
	ErrNoIdentity       = errors.New("session identity unavailable")
	ErrTurnInFlight     = errors.New("a turn is already in flight")
	ErrNothingToExport  = errors.New("nothing to export")
	ErrMissingComponent = errors.New("controller is missing a required component")
)

// =============================================================================
// COLLABORATORS
// =============================================================================

// Completer sends one turn to the backend.
type Completer interface {
	Complete(ctx context.Context, req backend.Request) (backend.Reply, error)
}

// IdentitySource provides the session identity.
type IdentitySource interface {
	GetOrCreate() string
}

// View is a read-only snapshot for the presentation layer.
type View struct {
	Transcript  []model.Message
	History     []model.Message // set only when ShowHistory
	Typing      bool
	State       State
	Settings    prefs.Settings
	ShowHistory bool
	Identity    string
}

// Options configures a Controller.
type Options struct {
	Identity   IdentitySource
	History    *history.Store
	Prefs      *prefs.Prefs
	Backend    Completer
	Translator *i18n.Translator
	Logger     *log.Logger

	// OnChange is called after every state change, outside the lock.
	OnChange func(View)

	// ExportDir receives downloaded histories.
	// Default: current working directory
	ExportDir string
}

// =============================================================================
// CONTROLLER
// =============================================================================

// Controller is the chat session controller. One is created per running
// client; all methods are safe for concurrent use, and turns are serialized.
type Controller struct {
	history   *history.Store
	prefs     *prefs.Prefs
	backend   Completer
	tr        *i18n.Translator
	logger    *log.Logger
	onChange  func(View)
	exportDir string

	mu          sync.Mutex
	identity    string
	transcript  []model.Message
	state       State
	typing      bool
	showHistory bool
}

// New creates a controller and seeds the transcript from the stored history.
func New(opts Options) (*Controller, error) {
	if opts.History == nil || opts.Prefs == nil || opts.Backend == nil {
		return nil, ErrMissingComponent
	}

	c := &Controller{
		history:   opts.History,
		prefs:     opts.Prefs,
		backend:   opts.Backend,
		tr:        opts.Translator,
		logger:    opts.Logger,
		onChange:  opts.OnChange,
		exportDir: opts.ExportDir,
	}
	if c.tr == nil {
		c.tr = i18n.New("")
	}
	if c.logger == nil {
		c.logger = log.Default()
	}
	if c.exportDir == "" {
		c.exportDir = "."
	}

	if opts.Identity != nil {
		c.identity = opts.Identity.GetOrCreate()
	}
	if c.identity == "" {
		c.logger.Warn("no session identity; sending and history are disabled")
		c.transcript = []model.Message{}
	} else {
		c.transcript = c.history.Load(c.identity)
	}
	c.prefs.Load()

	return c, nil
}

// SetOnChange replaces the change callback. Adapters that are built after the
// controller use it to subscribe.
func (c *Controller) SetOnChange(fn func(View)) {
	c.mu.Lock()
	c.onChange = fn
	c.mu.Unlock()
}

// Submit runs one turn: it records text as a user message, asks the backend,
// and records the reply or a localized error notice. It blocks until the
// turn settles.
//
// Only input rejections are returned: ErrEmptyMessage, ErrNoIdentity and
// ErrTurnInFlight. Backend failures become an assistant message.
func (c *Controller) Submit(ctx context.Context, text string) error {
	if strings.TrimSpace(text) == "" {
		return ErrEmptyMessage
	}

	c.mu.Lock()
	if c.identity == "" {
		c.mu.Unlock()
		return ErrNoIdentity
	}
	if c.state == StateSending {
		c.mu.Unlock()
		return ErrTurnInFlight
	}

	c.appendLocked(model.NewUserMessage(text))
	c.state = StateSending
	c.typing = true
	identity := c.identity
	view := c.viewLocked()
	c.mu.Unlock()

	// RELIABILITY: the typing flag is released on every exit path.
	defer c.release()

	c.notify(view)

	settings := c.prefs.Current()
	reply, err := c.complete(ctx, backend.Request{
		Message: text,
		UserID:  identity,
		Model:   settings.Model,
		Role:    settings.Role,
	})

	var answer model.Message
	if err != nil {
		c.logger.Warn("turn failed", "model", settings.Model, "err", err)
		answer = model.NewAssistantMessage(c.tr.ErrorNotice(c.failureDetail(err)), nil)
	} else {
		answer = model.NewAssistantMessage(reply.Response, reply.Sources)
	}

	c.mu.Lock()
	c.appendLocked(answer)
	c.state = StateIdle
	c.typing = false
	view = c.viewLocked()
	c.mu.Unlock()

	c.notify(view)
	return nil
}

// complete calls the backend, converting a panic into an error so the turn
// still settles.
func (c *Controller) complete(ctx context.Context, req backend.Request) (reply backend.Reply, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("backend panic: %v", r)
		}
	}()
	return c.backend.Complete(ctx, req)
}

// release returns a turn that did not settle normally to Idle.
func (c *Controller) release() {
	c.mu.Lock()
	if c.state != StateSending && !c.typing {
		c.mu.Unlock()
		return
	}
	c.state = StateIdle
	c.typing = false
	view := c.viewLocked()
	c.mu.Unlock()
	c.notify(view)
}

// failureDetail maps a turn error to the text shown after "Server error: ".
func (c *Controller) failureDetail(err error) string {
	var se *backend.StatusError
	switch {
	case errors.As(err, &se):
		return fmt.Sprintf("HTTP %d", se.Status)
	case errors.Is(err, backend.ErrMalformedReply):
		return c.tr.InvalidReply()
	default:
		return c.tr.TryLater()
	}
}

// appendLocked records msg in the transcript and then the history log.
// A persistence failure is logged by the history store and the message
// stays in its in-memory log.
func (c *Controller) appendLocked(msg model.Message) {
	c.transcript = append(c.transcript, msg)
	if err := c.history.Append(c.identity, msg); err != nil {
		c.logger.Debug("history append not persisted", "err", err)
	}
}

// Clear empties the history log and the transcript together.
func (c *Controller) Clear() error {
	c.mu.Lock()
	if c.identity == "" {
		c.mu.Unlock()
		return ErrNoIdentity
	}
	if c.state == StateSending {
		c.mu.Unlock()
		return ErrTurnInFlight
	}

	if err := c.history.Clear(c.identity); err != nil {
		c.logger.Debug("history clear not persisted", "err", err)
	}
	c.transcript = []model.Message{}
	view := c.viewLocked()
	c.mu.Unlock()

	c.notify(view)
	return nil
}

// Export renders the current history log without changing state.
func (c *Controller) Export(format export.Format) ([]byte, error) {
	identity := c.Identity()
	if identity == "" {
		return nil, ErrNoIdentity
	}
	return c.history.Export(identity, format, c.exportOptions())
}

// Download writes the text export to the localized history file in the
// export directory and returns its path.
func (c *Controller) Download() (string, error) {
	identity := c.Identity()
	if identity == "" || c.history.Len(identity) == 0 {
		return "", ErrNothingToExport
	}

	opts := c.exportOptions()
	opts.FileName = c.tr.DownloadFileName()

	path, err := export.ExportToFile(c.history.Load(identity), export.NewTextExporter(opts), opts)
	if err != nil {
		return "", err
	}
	c.logger.Info("history downloaded", "path", path)
	return path, nil
}

func (c *Controller) exportOptions() *export.Options {
	opts := export.DefaultOptions()
	opts.Labels = c.tr.Labels()
	opts.Title = c.tr.HistoryTitle()
	opts.OutputDir = c.exportDir
	return opts
}

// SelectModel changes the model used by the next turn. Unknown models are
// rejected; a persistence failure keeps the selection for this session.
func (c *Controller) SelectModel(id string) error {
	if err := c.prefs.SetModel(id); errors.Is(err, prefs.ErrUnknownModel) {
		return err
	}
	c.notify(c.View())
	return nil
}

// SelectRole changes the persona role used by the next turn.
func (c *Controller) SelectRole(id string) error {
	if err := c.prefs.SetRole(id); errors.Is(err, prefs.ErrUnknownRole) {
		return err
	}
	c.notify(c.View())
	return nil
}

// ToggleHistoryView flips the history panel and returns the new setting.
func (c *Controller) ToggleHistoryView() bool {
	c.mu.Lock()
	c.showHistory = !c.showHistory
	shown := c.showHistory
	view := c.viewLocked()
	c.mu.Unlock()

	c.notify(view)
	return shown
}

// =============================================================================
// ACCESSORS
// =============================================================================

// View returns a snapshot of everything the presentation layer renders.
func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewLocked()
}

func (c *Controller) viewLocked() View {
	v := View{
		Transcript:  model.Clone(c.transcript),
		Typing:      c.typing,
		State:       c.state,
		Settings:    c.prefs.Current(),
		ShowHistory: c.showHistory,
		Identity:    c.identity,
	}
	if c.showHistory && c.identity != "" {
		v.History = c.history.Load(c.identity)
	}
	return v
}

// Transcript returns a copy of the displayed messages.
func (c *Controller) Transcript() []model.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return model.Clone(c.transcript)
}

// Typing reports whether a turn is in flight.
func (c *Controller) Typing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.typing
}

// State returns the turn state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Identity returns the session identity, or "" when unavailable.
func (c *Controller) Identity() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.identity
}

// Settings returns the current model and role.
func (c *Controller) Settings() prefs.Settings {
	return c.prefs.Current()
}

// Catalog returns the selectable models and roles.
func (c *Controller) Catalog() prefs.Catalog {
	return c.prefs.Catalog()
}

// Translator returns the controller's translator.
func (c *Controller) Translator() *i18n.Translator {
	return c.tr
}

// notify calls OnChange outside the lock.
func (c *Controller) notify(v View) {
	c.mu.Lock()
	fn := c.onChange
	c.mu.Unlock()
	if fn != nil {
		fn(v)
	}
}
