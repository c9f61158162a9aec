// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package attachment turns picked files into conversation messages and keeps
// the registry of files the user has shared.
//
// Only metadata crosses this boundary. File bytes are never opened here; the
// content locator is carried through untouched for the picker and share
// collaborators.
package attachment

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"

	"github.com/jeranaias/filechat/internal/model"
)

// Descriptor is what the file picker reports for a chosen file.
type Descriptor struct {
	Name           string
	ByteSize       int64
	MIMEType       string
	ContentLocator string
}

// Errors returned by Bridge.ToMessage.
var (
	ErrTooLarge    = errors.New("file exceeds the size limit")
	ErrNoName      = errors.New("file has no name")
	ErrInvalidSize = errors.New("file size is negative")
)

// Bridge converts descriptors into attachments and messages.
type Bridge struct {
	MaxBytes int64
	now      func() time.Time
}

// NewBridge creates a bridge enforcing maxBytes. A non-positive value uses
// model.MaxAttachmentBytes.
func NewBridge(maxBytes int64) *Bridge {
	if maxBytes <= 0 {
		maxBytes = model.MaxAttachmentBytes
	}
	return &Bridge{MaxBytes: maxBytes, now: model.Now}
}

// Check validates d without building anything.
func (b *Bridge) Check(d Descriptor) error {
	if DisplayName(d.Name) == "" {
		return ErrNoName
	}
	if d.ByteSize < 0 {
		return ErrInvalidSize
	}
	if d.ByteSize > b.MaxBytes {
		return fmt.Errorf("%w: %s is %s, limit is %s",
			ErrTooLarge, DisplayName(d.Name), FormatFileSize(d.ByteSize), FormatFileSize(b.MaxBytes))
	}
	return nil
}

// ToAttachment builds the attachment record for d after checking it.
func (b *Bridge) ToAttachment(d Descriptor) (model.Attachment, error) {
	if err := b.Check(d); err != nil {
		return model.Attachment{}, err
	}
	mime := strings.TrimSpace(d.MIMEType)
	if mime == "" {
		mime = model.UnknownMIMEType
	}
	return model.Attachment{
		ID:             model.NewID("att"),
		DisplayName:    DisplayName(d.Name),
		ByteSize:       d.ByteSize,
		MIMEType:       mime,
		ContentLocator: d.ContentLocator,
		PickedAt:       b.now(),
	}, nil
}

// ToMessage builds a file-kind user message for d. Oversized or unnamed
// files produce an error and no message.
func (b *Bridge) ToMessage(d Descriptor) (model.Message, error) {
	att, err := b.ToAttachment(d)
	if err != nil {
		return model.Message{}, err
	}
	return model.NewFileMessage(att, att.PickedAt), nil
}

// ToPromptText builds the user turn that asks the assistant to acknowledge a
// new upload.
func ToPromptText(d Descriptor) string {
	mime := strings.TrimSpace(d.MIMEType)
	if mime == "" {
		mime = model.UnknownMIMEType
	}
	return fmt.Sprintf("I just uploaded a file: %s (%s). Can you tell me what you could help me with regarding this file?",
		DisplayName(d.Name), mime)
}

// ToPromptText is the method form of the package function.
func (b *Bridge) ToPromptText(d Descriptor) string {
	return ToPromptText(d)
}

// DisplayName trims a picked name and normalizes it to NFC so the same file
// name typed on different platforms compares equal.
func DisplayName(name string) string {
	return norm.NFC.String(strings.TrimSpace(name))
}
