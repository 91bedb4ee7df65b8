// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package export renders a conversation history into downloadable formats.
package export

import (
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/jeranaias/parley/internal/model"
	"github.com/jeranaias/parley/internal/util"
)

// =============================================================================
// FORMATS
// =============================================================================

// Format names an export format.
type Format string

const (
	// FormatJSON is the structured, lossless form; Parse reads it back.
	FormatJSON Format = "json"

	// FormatText is the human-readable "<Label>: <text>" form.
	FormatText Format = "text"

	FormatMarkdown Format = "markdown"
	FormatYAML     Format = "yaml"
)

// ErrUnsupportedFormat is returned for unknown format names.
var ErrUnsupportedFormat = errors.New("unsupported export format")

// Formats lists the supported formats.
func Formats() []Format {
	return []Format{FormatJSON, FormatText, FormatMarkdown, FormatYAML}
}

// ParseFormat resolves a format name or common file extension.
func ParseFormat(s string) (Format, error) {
	switch strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), ".") {
	case "json":
		return FormatJSON, nil
	case "text", "txt", "":
		return FormatText, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
	}
}

// =============================================================================
// EXPORT INTERFACE
// =============================================================================

// Exporter defines the interface for history exporters.
type Exporter interface {
	// Export converts the message sequence to the target format.
	Export(msgs []model.Message) ([]byte, error)

	// FileExtension returns the appropriate file extension (e.g., ".md", ".txt").
	FileExtension() string

	// MimeType returns the MIME type for the exported format.
	MimeType() string
}

// =============================================================================
// EXPORT OPTIONS
// =============================================================================

// Labels are the display names used by the human-readable formats.
type Labels struct {
	User      string
	Assistant string
	Sources   string
}

// DefaultLabels returns English labels.
func DefaultLabels() Labels {
	return Labels{User: "You", Assistant: "Assistant", Sources: "Sources"}
}

// For returns the label for an author.
func (l Labels) For(a model.Author) string {
	if a == model.AuthorUser {
		return l.User
	}
	return l.Assistant
}

// Options configures export behavior.
type Options struct {
	// Labels used by the text and markdown formats.
	Labels Labels

	// OutputDir is the directory where files will be saved.
	// Default: current working directory
	OutputDir string

	// FileName overrides the generated file name in ExportToFile.
	FileName string

	// Title heads the markdown export.
	Title string
}

// DefaultOptions returns default export options.
func DefaultOptions() *Options {
	return &Options{
		Labels:    DefaultLabels(),
		OutputDir: ".",
		Title:     "Chat history",
	}
}

// NewExporter returns the exporter for format.
func NewExporter(format Format, opts *Options) (Exporter, error) {
	switch format {
	case FormatJSON:
		return NewJSONExporter(), nil
	case FormatText:
		return NewTextExporter(opts), nil
	case FormatMarkdown:
		return NewMarkdownExporter(opts), nil
	case FormatYAML:
		return NewYAMLExporter(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}

// Render exports msgs in format.
func Render(msgs []model.Message, format Format, opts *Options) ([]byte, error) {
	exporter, err := NewExporter(format, opts)
	if err != nil {
		return nil, err
	}
	return exporter.Export(msgs)
}

// Parse reads a JSON export back into messages.
func Parse(data []byte) ([]model.Message, error) {
	var msgs []model.Message
	if err := json.Unmarshal(data, &msgs); err != nil {
		return nil, fmt.Errorf("parse export: %w", err)
	}
	if err := model.ValidateAll(msgs); err != nil {
		return nil, fmt.Errorf("parse export: %w", err)
	}
	if msgs == nil {
		msgs = []model.Message{}
	}
	return msgs, nil
}

// =============================================================================
// EXPORT FUNCTIONS
// =============================================================================

// ExportToFile exports msgs to a file using the specified exporter.
// Returns the output file path or an error.
func ExportToFile(msgs []model.Message, exporter Exporter, opts *Options) (string, error) {
	if opts == nil {
		opts = DefaultOptions()
	}

	content, err := exporter.Export(msgs)
	if err != nil {
		return "", fmt.Errorf("export failed: %w", err)
	}

	filename := opts.FileName
	if filename == "" {
		filename = fmt.Sprintf("conversation_%s%s",
			time.Now().Format("20060102_150405"),
			exporter.FileExtension(),
		)
	}
	filename = sanitizeFilename(filename)

	dir := opts.OutputDir
	if dir == "" {
		dir = "."
	}

	outputPath := filepath.Join(dir, filename)
	if err := util.AtomicWriteFile(outputPath, content, 0644); err != nil {
		return "", fmt.Errorf("write file: %w", err)
	}

	return outputPath, nil
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// sanitizeFilename removes or replaces characters that are invalid in filenames.
func sanitizeFilename(s string) string {
	maxLen := 80
	runes := []rune(s)
	if len(runes) > maxLen {
		s = string(runes[:maxLen])
	}

	// Replace problematic characters (Windows and Unix)
	replacer := map[rune]rune{
		'/':  '-',
		'\\': '-',
		':':  '-',
		'*':  '-',
		'?':  '-',
		'"':  '-',
		'<':  '-',
		'>':  '-',
		'|':  '-',
		' ':  '_',
		'\t': '_',
		'\n': '_',
		'\r': '_',
	}

	result := []rune{}
	for _, r := range s {
		if replacement, found := replacer[r]; found {
			result = append(result, replacement)
		} else if r < 32 || r == 127 {
			result = append(result, '-')
		} else {
			result = append(result, r)
		}
	}

	if len(result) == 0 || string(result) == "." || string(result) == ".." {
		return "conversation"
	}

	return string(result)
}
