// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/parley/internal/model"
	"github.com/jeranaias/parley/internal/util"
)

const (
	headerHeight = 2
	inputHeight  = 3
)

// =============================================================================
// STYLES
// =============================================================================

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39")) // Cyan

	metaStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")) // Light gray

	userLabelStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("75")) // Blue

	assistantLabelStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("213")) // Pink

	sourcesStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("242")).
			Italic(true)

	typingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")) // Yellow/Orange

	noticeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252")).
			BorderStyle(lipgloss.NormalBorder()).
			BorderLeft(true).
			BorderForeground(lipgloss.Color("240")).
			PaddingLeft(1)

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")) // Red

	separatorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))
)

// =============================================================================
// VIEW
// =============================================================================

// View renders the screen.
func (m *Model) View() string {
	if m.quitting {
		return ""
	}
	if !m.ready {
		return "\n  " + m.ctrl.Translator().Placeholder()
	}

	var sb strings.Builder
	sb.WriteString(m.renderHeader())
	sb.WriteString("\n")
	sb.WriteString(m.viewport.View())
	sb.WriteString("\n")
	sb.WriteString(separatorStyle.Render(strings.Repeat("─", max(m.width, 1))))
	sb.WriteString("\n")
	sb.WriteString(m.input.View())
	sb.WriteString("\n")
	sb.WriteString(m.renderStatus())
	sb.WriteString("\n")
	sb.WriteString(m.helpView())
	return sb.String()
}

func (m *Model) renderHeader() string {
	title := headerStyle.Render("parley")
	meta := metaStyle.Render("  " + m.view.Settings.Model + " · " + m.view.Settings.Role)
	if m.view.ShowHistory {
		meta += metaStyle.Render(" · " + m.ctrl.Translator().HistoryTitle())
	}
	line := util.TruncateWidth(title+meta, max(m.width, 1))
	return line + "\n" + separatorStyle.Render(strings.Repeat("─", max(m.width, 1)))
}

func (m *Model) renderStatus() string {
	if m.status == "" {
		return ""
	}
	return statusStyle.Render(util.TruncateWidth(util.SingleLine(m.status), max(m.width, 1)))
}

func (m *Model) helpView() string {
	m.help.Width = m.width
	return m.help.View(m.keys)
}

// refresh rebuilds the viewport content from the current view.
func (m *Model) refresh() {
	if !m.ready {
		return
	}
	atBottom := m.viewport.AtBottom()
	m.viewport.SetContent(m.renderContent())
	if atBottom || m.view.Typing {
		m.viewport.GotoBottom()
	}
}

// renderContent renders the transcript, or the history panel when shown.
func (m *Model) renderContent() string {
	tr := m.ctrl.Translator()
	var blocks []string

	if m.view.ShowHistory {
		blocks = append(blocks, headerStyle.Render(tr.HistoryTitle()))
		if len(m.view.History) == 0 {
			blocks = append(blocks, metaStyle.Render(tr.EmptyHistory()))
		}
		for _, msg := range m.view.History {
			blocks = append(blocks, m.renderMessage(msg))
		}
		return strings.Join(blocks, "\n\n")
	}

	for _, msg := range m.view.Transcript {
		blocks = append(blocks, m.renderMessage(msg))
	}
	if m.view.Typing {
		blocks = append(blocks, m.spinner.View()+typingStyle.Render(tr.TypingNotice()))
	}
	if m.notice != "" {
		blocks = append(blocks, noticeStyle.Render(m.notice))
	}
	return strings.Join(blocks, "\n\n")
}

// renderMessage renders one message with its author label and sources.
func (m *Model) renderMessage(msg model.Message) string {
	tr := m.ctrl.Translator()

	var sb strings.Builder
	if msg.Author == model.AuthorUser {
		sb.WriteString(userLabelStyle.Render(tr.AuthorLabel(msg.Author)))
	} else {
		sb.WriteString(assistantLabelStyle.Render(tr.AuthorLabel(msg.Author)))
	}
	sb.WriteString("\n")
	sb.WriteString(m.renderText(msg))

	if len(msg.Sources) > 0 {
		sb.WriteString("\n")
		sb.WriteString(sourcesStyle.Render(tr.Labels().Sources + ": " + strings.Join(msg.Sources, ", ")))
	}
	return sb.String()
}

func (m *Model) renderText(msg model.Message) string {
	if msg.Author == model.AuthorAssistant && m.renderer != nil {
		if out, err := m.renderer.Render(msg.Text); err == nil {
			return strings.Trim(out, "\n")
		}
	}
	return lipgloss.NewStyle().Width(max(m.width-2, 10)).Render(msg.Text)
}
