// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"encoding/json"
	"time"

	"github.com/jeranaias/filechat/internal/model"
)

// JSONExporter exports the messages and attachments as stored.
type JSONExporter struct{}

// NewJSONExporter creates a JSON exporter.
func NewJSONExporter() *JSONExporter {
	return &JSONExporter{}
}

type jsonDocument struct {
	Title       string             `json:"title,omitempty"`
	Model       string             `json:"model,omitempty"`
	ExportedAt  time.Time          `json:"exported_at"`
	Messages    []model.Message    `json:"messages"`
	Attachments []model.Attachment `json:"attachments"`
}

// Export converts a document to indented JSON.
func (e *JSONExporter) Export(doc Document) ([]byte, error) {
	if doc.Conversation.IsEmpty() {
		return nil, ErrEmpty
	}
	atts := doc.Attachments
	if atts == nil {
		atts = []model.Attachment{}
	}
	return json.MarshalIndent(jsonDocument{
		Title:       doc.Title,
		Model:       doc.Model,
		ExportedAt:  doc.ExportedAt,
		Messages:    doc.Conversation.Messages(),
		Attachments: atts,
	}, "", "  ")
}

// FileExtension returns the file extension for JSON.
func (e *JSONExporter) FileExtension() string {
	return ".json"
}

// MimeType returns the MIME type for JSON.
func (e *JSONExporter) MimeType() string {
	return "application/json"
}
