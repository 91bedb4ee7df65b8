// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// styles.go - Shared styles for the parley CLI.
//
// Colors are disabled for non-TTY output and when NO_COLOR is set.

package cli

import (
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/parley/internal/model"
)

func init() {
	lipgloss.SetColorProfile(GetColorProfile())
}

// =============================================================================
// SHARED STYLES
// =============================================================================

var (
	// TitleStyle is used for headers
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39")) // Cyan

	// LabelStyle is used for field labels
	LabelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")). // Light gray
			Width(14)

	// ValueStyle is used for field values
	ValueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252")) // Off-white

	// SuccessStyle is used for confirmations
	SuccessStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")) // Green

	// ErrorStyle is used for errors
	ErrorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")). // Red
			Bold(true)

	// WarningStyle is used for warnings
	WarningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")) // Yellow/Orange

	// DimStyle is used for hints and secondary information
	DimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("242")) // Dim gray

	// SeparatorStyle is used for dividers
	SeparatorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")) // Dark gray

	// HighlightStyle marks the current selection
	HighlightStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("82")) // Bright green

	// UserStyle labels user messages
	UserStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("75")) // Blue

	// AssistantStyle labels assistant messages
	AssistantStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("213")) // Pink

	// PromptStyle is the REPL prompt
	PromptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")).
			Bold(true)
)

// =============================================================================
// HELPERS
// =============================================================================

// RenderSeparator renders a horizontal rule of the given width (default 60).
func RenderSeparator(width ...int) string {
	w := 60
	if len(width) > 0 && width[0] > 0 {
		w = width[0]
	}
	return SeparatorStyle.Render(strings.Repeat("-", w))
}

// RenderConditional renders text with style only if colors are enabled.
func RenderConditional(style lipgloss.Style, text string) string {
	if !ColorsEnabled() {
		return text
	}
	return style.Render(text)
}

// RenderField renders "label  value" with consistent alignment.
func RenderField(label, value string) string {
	return LabelStyle.Render(label) + ValueStyle.Render(value)
}

// =============================================================================
// MESSAGE RENDERING
// =============================================================================

// messageRenderer formats transcript entries for the terminal.
type messageRenderer struct {
	label    func(model.Author) string
	sources  string
	markdown *glamour.TermRenderer
}

// newMessageRenderer builds a renderer. Markdown rendering of assistant
// text is enabled only when markdown is true and glamour initializes.
func newMessageRenderer(label func(model.Author) string, sources string, markdown bool, width int) *messageRenderer {
	r := &messageRenderer{label: label, sources: sources}
	if markdown {
		tr, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(width),
		)
		if err == nil {
			r.markdown = tr
		}
	}
	return r
}

// Render returns one message as a labeled block.
func (r *messageRenderer) Render(msg model.Message) string {
	var sb strings.Builder

	label := r.label(msg.Author) + ":"
	if msg.Author == model.AuthorUser {
		sb.WriteString(RenderConditional(UserStyle, label))
	} else {
		sb.WriteString(RenderConditional(AssistantStyle, label))
	}
	sb.WriteString("\n")
	sb.WriteString(r.body(msg))

	if len(msg.Sources) > 0 {
		sb.WriteString("\n")
		sb.WriteString(RenderConditional(DimStyle, r.sources+": "+strings.Join(msg.Sources, ", ")))
	}
	return sb.String()
}

func (r *messageRenderer) body(msg model.Message) string {
	if msg.Author != model.AuthorAssistant || r.markdown == nil {
		return msg.Text
	}
	out, err := r.markdown.Render(msg.Text)
	if err != nil {
		return msg.Text
	}
	return strings.Trim(out, "\n")
}
