// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package tui

import (
	"context"
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/log"

	"github.com/jeranaias/parley/internal/chat"
	"github.com/jeranaias/parley/internal/commands"
)

// =============================================================================
// MESSAGES
// =============================================================================

// changedMsg tells the model to re-read the controller view.
type changedMsg struct{}

// submitDoneMsg reports the end of a turn. Err is an input rejection, in
// which case text goes back into the input.
type submitDoneMsg struct {
	text string
	err  error
}

// =============================================================================
// MODEL
// =============================================================================

// Options configures the chat screen.
type Options struct {
	Logger *log.Logger

	// Markdown renders assistant replies with glamour.
	Markdown bool
}

// Model is the Bubble Tea model of the chat screen.
type Model struct {
	ctx    context.Context
	ctrl   *chat.Controller
	cmdCtx *commands.Context
	logger *log.Logger

	// changes carries controller notifications; capacity 1 coalesces bursts.
	changes chan struct{}

	view chat.View

	viewport viewport.Model
	input    textarea.Model
	spinner  spinner.Model
	help     help.Model
	keys     KeyMap

	markdown bool
	renderer *glamour.TermRenderer

	width  int
	height int
	ready  bool

	notice   string // command output shown under the transcript
	status   string // one-line status, e.g. a rejected send
	pending  bool   // a submitted turn has not reported back yet
	showHelp bool
	quitting bool
}

// New creates the model and subscribes it to the controller.
func New(ctx context.Context, ctrl *chat.Controller, opts Options) *Model {
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}

	keys := DefaultKeyMap()

	ta := textarea.New()
	ta.Placeholder = ctrl.Translator().Placeholder()
	ta.ShowLineNumbers = false
	ta.Prompt = "> "
	ta.CharLimit = 0
	ta.SetHeight(inputHeight)
	ta.KeyMap.InsertNewline = keys.Newline
	ta.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = typingStyle

	m := &Model{
		ctx:      ctx,
		ctrl:     ctrl,
		cmdCtx:   &commands.Context{Controller: ctrl, Registry: commands.NewRegistry()},
		logger:   opts.Logger,
		changes:  make(chan struct{}, 1),
		view:     ctrl.View(),
		viewport: viewport.New(0, 0),
		input:    ta,
		spinner:  sp,
		help:     help.New(),
		keys:     keys,
		markdown: opts.Markdown,
	}
	ctrl.SetOnChange(func(chat.View) { m.signal() })
	return m
}

// signal records a pending change without blocking the caller.
func (m *Model) signal() {
	select {
	case m.changes <- struct{}{}:
	default:
	}
}

// waitForChange delivers the next controller notification.
func (m *Model) waitForChange() tea.Cmd {
	return func() tea.Msg {
		select {
		case <-m.changes:
			return changedMsg{}
		case <-m.ctx.Done():
			return nil
		}
	}
}

// Init starts the change listener and the cursor blink.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, m.waitForChange())
}

// Update handles messages and updates the model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.handleResize(msg)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case changedMsg:
		wasTyping := m.view.Typing
		m.view = m.ctrl.View()
		m.refresh()
		cmds := []tea.Cmd{m.waitForChange()}
		if m.view.Typing && !wasTyping {
			cmds = append(cmds, m.spinner.Tick)
		}
		return m, tea.Batch(cmds...)

	case submitDoneMsg:
		m.pending = false
		if msg.err != nil {
			m.status = msg.err.Error()
			if isRejection(msg.err) && m.input.Value() == "" {
				m.input.SetValue(msg.text)
			}
		}
		return m, nil

	case spinner.TickMsg:
		if !m.view.Typing {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		m.refresh()
		return m, cmd
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		m.ctrl.SetOnChange(nil)
		return m, tea.Quit

	case key.Matches(msg, m.keys.Submit):
		return m.handleSubmit()

	case key.Matches(msg, m.keys.History):
		m.ctrl.ToggleHistoryView()
		return m, nil

	case key.Matches(msg, m.keys.Clear):
		return m.runCommand("/clear")

	case key.Matches(msg, m.keys.Help):
		m.showHelp = !m.showHelp
		m.help.ShowAll = m.showHelp
		m.layout()
		return m, nil

	case key.Matches(msg, m.keys.PageUp):
		m.viewport.HalfViewUp()
		return m, nil

	case key.Matches(msg, m.keys.PageDown):
		m.viewport.HalfViewDown()
		return m, nil

	case key.Matches(msg, m.keys.Top):
		m.viewport.GotoTop()
		return m, nil

	case key.Matches(msg, m.keys.Bottom):
		m.viewport.GotoBottom()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// handleSubmit sends the input or runs it as a slash command. The input is
// kept when the send would be rejected.
func (m *Model) handleSubmit() (tea.Model, tea.Cmd) {
	text := m.input.Value()
	if strings.TrimSpace(text) == "" {
		return m, nil
	}

	if commands.IsCommand(strings.TrimSpace(text)) {
		m.input.Reset()
		return m.runCommand(strings.TrimSpace(text))
	}

	switch {
	case m.pending || m.view.State == chat.StateSending:
		m.status = chat.ErrTurnInFlight.Error()
		return m, nil
	case m.view.Identity == "":
		m.status = chat.ErrNoIdentity.Error()
		return m, nil
	}

	m.input.Reset()
	m.pending = true
	m.status = ""
	m.notice = ""
	return m, m.submitCmd(text)
}

// submitCmd runs one turn off the event loop.
func (m *Model) submitCmd(text string) tea.Cmd {
	ctrl, ctx := m.ctrl, m.ctx
	return func() tea.Msg {
		return submitDoneMsg{text: text, err: ctrl.Submit(ctx, text)}
	}
}

// isRejection reports whether err means the text was never sent.
func isRejection(err error) bool {
	return errors.Is(err, chat.ErrTurnInFlight) || errors.Is(err, chat.ErrNoIdentity)
}

// runCommand executes a slash command and shows its output.
func (m *Model) runCommand(input string) (tea.Model, tea.Cmd) {
	res, _ := commands.Execute(m.cmdCtx, input)
	if res.Quit {
		m.quitting = true
		m.ctrl.SetOnChange(nil)
		return m, tea.Quit
	}

	m.status = ""
	switch {
	case res.Err != nil:
		m.status = res.Err.Error()
	case isHistoryCommand(m.cmdCtx.Registry, input):
		// The history panel replaces the transcript instead.
		m.notice = ""
	default:
		m.notice = res.Output
	}
	m.refresh()
	return m, nil
}

func isHistoryCommand(r *commands.Registry, input string) bool {
	cmd := r.Match(input)
	return cmd != nil && cmd.Name == "/history"
}

// handleResize lays out the screen for a new terminal size.
func (m *Model) handleResize(msg tea.WindowSizeMsg) {
	m.width = msg.Width
	m.height = msg.Height
	m.ready = true

	m.renderer = nil
	if m.markdown {
		r, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(max(m.width-4, 20)),
		)
		if err != nil {
			m.logger.Debug("markdown renderer unavailable", "err", err)
		} else {
			m.renderer = r
		}
	}

	m.layout()
	m.refresh()
}

// layout sizes the viewport and input from the current dimensions.
func (m *Model) layout() {
	footer := 1 + strings.Count(m.helpView(), "\n") + 1
	reserved := headerHeight + inputHeight + 1 + footer

	m.viewport.Width = max(m.width, 1)
	m.viewport.Height = max(m.height-reserved, 1)
	m.input.SetWidth(max(m.width-2, 10))
}
