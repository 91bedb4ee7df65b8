// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"fmt"
	"strings"

	"github.com/jeranaias/parley/internal/model"
)

// =============================================================================
// MARKDOWN EXPORTER
// =============================================================================

// MarkdownExporter exports the history to Markdown.
type MarkdownExporter struct {
	options *Options
}

// NewMarkdownExporter creates a new Markdown exporter.
func NewMarkdownExporter(opts *Options) *MarkdownExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &MarkdownExporter{options: opts}
}

// Export converts msgs to Markdown.
func (e *MarkdownExporter) Export(msgs []model.Message) ([]byte, error) {
	var sb strings.Builder

	title := e.options.Title
	if title == "" {
		title = "Chat history"
	}
	sb.WriteString(fmt.Sprintf("# %s\n\n", escapeMarkdown(title)))

	for i, msg := range msgs {
		sb.WriteString(fmt.Sprintf("### %s\n\n", escapeMarkdown(e.options.Labels.For(msg.Author))))

		// Replies are already markdown from the backend.
		sb.WriteString(strings.TrimSpace(msg.Text))
		sb.WriteString("\n\n")

		if msg.HasSources() {
			escaped := make([]string, len(msg.Sources))
			for j, s := range msg.Sources {
				escaped[j] = escapeMarkdown(s)
			}
			sb.WriteString(fmt.Sprintf("<sub>%s: %s</sub>\n\n",
				escapeMarkdown(e.options.Labels.Sources), strings.Join(escaped, ", ")))
		}

		// Add separator between messages (except last)
		if i < len(msgs)-1 {
			sb.WriteString("---\n\n")
		}
	}

	return []byte(sb.String()), nil
}

// FileExtension returns the file extension for Markdown.
func (e *MarkdownExporter) FileExtension() string {
	return ".md"
}

// MimeType returns the MIME type for Markdown.
func (e *MarkdownExporter) MimeType() string {
	return "text/markdown"
}

// escapeMarkdown escapes special Markdown characters in plain text.
func escapeMarkdown(s string) string {
	// Only escape characters that would break formatting in titles/headings
	s = strings.ReplaceAll(s, "#", "\\#")
	s = strings.ReplaceAll(s, "*", "\\*")
	s = strings.ReplaceAll(s, "_", "\\_")
	s = strings.ReplaceAll(s, "[", "\\[")
	s = strings.ReplaceAll(s, "]", "\\]")
	return s
}
