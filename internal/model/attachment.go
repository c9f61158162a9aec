// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"strings"
	"time"
)

// MaxAttachmentBytes is the largest file accepted into a conversation (10 MiB).
const MaxAttachmentBytes int64 = 10 * 1024 * 1024

// UnknownMIMEType is used when the picker could not report a type.
const UnknownMIMEType = "unknown"

// Attachment describes a file the user picked. The engine only ever sees
// metadata; ContentLocator is resolved by the picker/share collaborators.
type Attachment struct {
	ID             string    `json:"id"`
	DisplayName    string    `json:"display_name"`
	ByteSize       int64     `json:"byte_size"`
	MIMEType       string    `json:"mime_type"`
	ContentLocator string    `json:"content_locator"`
	PickedAt       time.Time `json:"picked_at"`
}

// Validate checks the structural invariants of an attachment.
// The size bound is enforced by the attachment bridge, not here, so that
// previously accepted history always hydrates.
func (a Attachment) Validate() error {
	if a.ID == "" {
		return ErrAttachmentNoID
	}
	if strings.TrimSpace(a.DisplayName) == "" {
		return ErrUnnamedFile
	}
	if a.ByteSize < 0 {
		return ErrNegativeSize
	}
	if a.PickedAt.IsZero() {
		return ErrMissingTime
	}
	return nil
}

// TypeOrUnknown returns the MIME type, or "unknown" when none was reported.
func (a Attachment) TypeOrUnknown() string {
	if strings.TrimSpace(a.MIMEType) == "" {
		return UnknownMIMEType
	}
	return a.MIMEType
}

// SizeKB returns the size in kilobytes (1024 bytes).
func (a Attachment) SizeKB() float64 {
	return float64(a.ByteSize) / 1024
}
