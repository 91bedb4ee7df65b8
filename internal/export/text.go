// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"strings"

	"github.com/jeranaias/parley/internal/model"
)

// =============================================================================
// TEXT EXPORTER
// =============================================================================

// TextExporter writes one "<Label>: <text>" block per message, followed by a
// "Sources: a, b" line when the message cites sources. Blocks are separated
// by a blank line, in log order.
type TextExporter struct {
	labels Labels
}

// NewTextExporter creates a new plain text exporter.
func NewTextExporter(opts *Options) *TextExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &TextExporter{labels: opts.Labels}
}

// Export converts msgs to plain text.
func (e *TextExporter) Export(msgs []model.Message) ([]byte, error) {
	blocks := make([]string, 0, len(msgs))
	for _, msg := range msgs {
		var sb strings.Builder
		sb.WriteString(e.labels.For(msg.Author))
		sb.WriteString(": ")
		sb.WriteString(msg.Text)
		if msg.HasSources() {
			sb.WriteString("\n")
			sb.WriteString(e.labels.Sources)
			sb.WriteString(": ")
			sb.WriteString(strings.Join(msg.Sources, ", "))
		}
		sb.WriteString("\n")
		blocks = append(blocks, sb.String())
	}
	return []byte(strings.Join(blocks, "\n")), nil
}

// FileExtension returns the file extension for plain text.
func (e *TextExporter) FileExtension() string {
	return ".txt"
}

// MimeType returns the MIME type for plain text.
func (e *TextExporter) MimeType() string {
	return "text/plain; charset=utf-8"
}
