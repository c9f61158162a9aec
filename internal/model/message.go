// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations and messages.
package model

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// ROLE TYPE
// =============================================================================

// Role represents the sender of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// DisplayName returns a human-readable name for the role.
func (r Role) DisplayName() string {
	switch r {
	case RoleUser:
		return "You"
	case RoleAssistant:
		return "Assistant"
	default:
		return string(r)
	}
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAssistant
}

// =============================================================================
// KIND TYPE
// =============================================================================

// Kind is the payload type of a message.
type Kind string

const (
	KindText Kind = "text"
	KindFile Kind = "file"
)

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	return k == KindText || k == KindFile
}

// =============================================================================
// MESSAGE TYPE
// =============================================================================

// Message is a single entry in the conversation log.
//
// Exactly one of Text or Attachment is set, depending on Kind. Messages are
// values and are never edited after creation.
type Message struct {
	ID         string      `json:"id"`
	Role       Role        `json:"role"`
	Kind       Kind        `json:"kind"`
	Text       string      `json:"text,omitempty"`
	Attachment *Attachment `json:"attachment,omitempty"`
	CreatedAt  time.Time   `json:"created_at"`
}

// Errors returned by Message.Validate.
var (
	ErrMissingID      = errors.New("message has no id")
	ErrInvalidRole    = errors.New("invalid message role")
	ErrInvalidKind    = errors.New("invalid message kind")
	ErrEmptyText      = errors.New("text message is empty")
	ErrMissingFile    = errors.New("file message has no attachment")
	ErrMixedPayload   = errors.New("message carries both text and attachment")
	ErrMissingTime    = errors.New("message has no timestamp")
	ErrNegativeSize   = errors.New("attachment size is negative")
	ErrUnnamedFile    = errors.New("attachment has no display name")
	ErrAttachmentNoID = errors.New("attachment has no id")
)

// NewTextMessage creates a text message with a fresh ID. The text is trimmed.
func NewTextMessage(role Role, text string, now time.Time) Message {
	return Message{
		ID:        NewID("msg"),
		Role:      role,
		Kind:      KindText,
		Text:      strings.TrimSpace(text),
		CreatedAt: now,
	}
}

// NewUserMessage creates a user text message stamped with the current time.
func NewUserMessage(text string) Message {
	return NewTextMessage(RoleUser, text, Now())
}

// NewAssistantMessage creates an assistant text message stamped with the current time.
func NewAssistantMessage(text string) Message {
	return NewTextMessage(RoleAssistant, text, Now())
}

// NewFileMessage creates a user message carrying an attachment.
func NewFileMessage(att Attachment, now time.Time) Message {
	a := att
	return Message{
		ID:         NewID("msg"),
		Role:       RoleUser,
		Kind:       KindFile,
		Attachment: &a,
		CreatedAt:  now,
	}
}

// Validate checks the structural invariants of a message.
func (m Message) Validate() error {
	if m.ID == "" {
		return ErrMissingID
	}
	if !m.Role.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidRole, m.Role)
	}
	if m.CreatedAt.IsZero() {
		return ErrMissingTime
	}

	switch m.Kind {
	case KindText:
		if m.Attachment != nil {
			return ErrMixedPayload
		}
		if strings.TrimSpace(m.Text) == "" {
			return ErrEmptyText
		}
	case KindFile:
		if m.Text != "" {
			return ErrMixedPayload
		}
		if m.Attachment == nil {
			return ErrMissingFile
		}
		if err := m.Attachment.Validate(); err != nil {
			return err
		}
	default:
		return fmt.Errorf("%w: %q", ErrInvalidKind, m.Kind)
	}
	return nil
}

// IsFile reports whether the message carries an attachment.
func (m Message) IsFile() bool {
	return m.Kind == KindFile && m.Attachment != nil
}

// Content returns the text sent to the completion endpoint for this message.
// File messages are rendered as a placeholder since the endpoint only accepts text.
func (m Message) Content() string {
	if m.IsFile() {
		return "[File uploaded: " + m.Attachment.DisplayName + "]"
	}
	return m.Text
}

// Preview returns a truncated preview of the message content.
// Uses rune-based truncation to handle Unicode correctly.
func (m Message) Preview(maxLen int) string {
	runes := []rune(m.Content())
	if len(runes) <= maxLen {
		return string(runes)
	}
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// Now returns the current time in UTC with the monotonic reading stripped,
// so timestamps compare equal after a JSON round trip.
func Now() time.Time {
	return time.Now().UTC()
}

// NewID returns a time-ordered unique identifier with the given prefix.
// UUIDv7 carries a millisecond timestamp plus a per-process sequence, so IDs
// sort by creation order and do not collide within a session.
func NewID(prefix string) string {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return prefix + "_" + id.String()
}
