// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"encoding/json"

	"github.com/jeranaias/parley/internal/model"
)

// =============================================================================
// JSON EXPORTER
// =============================================================================

// JSONExporter exports the history as an indented JSON array of messages.
// The output is the same schema the history store persists, so Parse
// reproduces the exact sequence.
type JSONExporter struct{}

// NewJSONExporter creates a new JSON exporter.
func NewJSONExporter() *JSONExporter {
	return &JSONExporter{}
}

// Export converts msgs to JSON. An empty history exports as [].
func (e *JSONExporter) Export(msgs []model.Message) ([]byte, error) {
	if msgs == nil {
		msgs = []model.Message{}
	}
	return json.MarshalIndent(msgs, "", "  ")
}

// FileExtension returns the file extension for JSON.
func (e *JSONExporter) FileExtension() string {
	return ".json"
}

// MimeType returns the MIME type for JSON.
func (e *JSONExporter) MimeType() string {
	return "application/json"
}
