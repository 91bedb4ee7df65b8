// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package export renders a conversation history into downloadable formats.
//
// # Key Types
//
//   - Format: Export format enumeration (JSON, text, Markdown, YAML)
//   - Exporter: Main export interface
//   - Options: Labels, output directory and file name
//
// # Supported Formats
//
//   - JSON: lossless, re-readable with Parse
//   - Text: "<Label>: <text>" blocks separated by blank lines
//   - Markdown: headed sections per message
//   - YAML: message list with a count
//
// # Usage
//
//	data, err := export.Render(msgs, export.FormatText, opts)
//
//	exporter, _ := export.NewExporter(export.FormatJSON, nil)
//	path, err := export.ExportToFile(msgs, exporter, opts)
package export
