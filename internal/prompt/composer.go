// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package prompt builds the outbound completion payload for a chat turn.
//
// Compose is a pure function of its inputs: it performs no I/O and never
// modifies the conversation or attachment slices it is given.
package prompt

import (
	"strings"

	"github.com/jeranaias/filechat/internal/model"
	"github.com/jeranaias/filechat/internal/util"
)

// Role names understood by the completion endpoint.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// DefaultHistoryWindow is the number of prior messages included with each turn.
const DefaultHistoryWindow = 10

// DefaultSystemPrompt describes the assistant's role and capabilities.
const DefaultSystemPrompt = "You are SmartFileChat, an expert AI assistant specialized in file analysis and general conversation. " +
	"You help users with any file type (PDF, CSV, DOC, images, etc.), provide accurate file conversions, " +
	"answer questions about file content, and assist with data analysis. " +
	"You're also great at general conversation. Always be helpful, clear, and concise."

// attachmentFooter tells the model it only sees metadata.
const attachmentFooter = "When they ask about these files, provide helpful insights about what you could analyze " +
	"if you had access to their content. Mention specific capabilities like data extraction, " +
	"format conversion, content analysis, etc."

// =============================================================================
// PAYLOAD TYPES
// =============================================================================

// Turn is one role-tagged message sent to the endpoint.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Payload is the ordered list of turns for one completion request.
type Payload struct {
	Messages []Turn `json:"messages"`
}

// Last returns the final turn, or an empty Turn for an empty payload.
func (p Payload) Last() Turn {
	if len(p.Messages) == 0 {
		return Turn{}
	}
	return p.Messages[len(p.Messages)-1]
}

// =============================================================================
// COMPOSER
// =============================================================================

// Composer holds the fixed parts of every prompt.
type Composer struct {
	SystemPrompt  string
	HistoryWindow int
}

// NewComposer returns a composer using the default system prompt and window.
func NewComposer() Composer {
	return Composer{
		SystemPrompt:  DefaultSystemPrompt,
		HistoryWindow: DefaultHistoryWindow,
	}
}

// WithHistoryWindow returns a copy using n trailing history messages.
// Values below zero are treated as zero.
func (c Composer) WithHistoryWindow(n int) Composer {
	if n < 0 {
		n = 0
	}
	c.HistoryWindow = n
	return c
}

// Compose builds the payload for newUserText.
//
// history must not yet contain the new user turn. The payload is, in order:
// one system message (with the attachment block appended when attachments
// are known), the trailing HistoryWindow messages of history, and the new
// user turn.
func (c Composer) Compose(history model.Conversation, attachments []model.Attachment, newUserText string) Payload {
	window := history.Tail(c.HistoryWindow)
	turns := make([]Turn, 0, len(window)+2)

	turns = append(turns, Turn{Role: RoleSystem, Content: c.systemContent(attachments)})
	for _, msg := range window {
		turns = append(turns, Turn{Role: msg.Role.String(), Content: msg.Content()})
	}
	turns = append(turns, Turn{Role: RoleUser, Content: newUserText})

	return Payload{Messages: turns}
}

func (c Composer) systemContent(attachments []model.Attachment) string {
	system := c.SystemPrompt
	if system == "" {
		system = DefaultSystemPrompt
	}
	block := AttachmentBlock(attachments)
	if block == "" {
		return system
	}
	return system + "\n\n" + block
}

// AttachmentBlock lists the attachments the model should know about, or
// returns "" when there are none. Attachments repeated by ID are listed once.
func AttachmentBlock(attachments []model.Attachment) string {
	if len(attachments) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("The user has uploaded these files:\n")

	seen := make(map[string]bool, len(attachments))
	for _, att := range attachments {
		if att.ID != "" {
			if seen[att.ID] {
				continue
			}
			seen[att.ID] = true
		}
		sb.WriteString("- ")
		sb.WriteString(att.DisplayName)
		sb.WriteString(" (")
		sb.WriteString(att.TypeOrUnknown())
		sb.WriteString(", ")
		sb.WriteString(util.FormatFixed(att.SizeKB(), 1))
		sb.WriteString("KB)\n")
	}

	sb.WriteString("\n")
	sb.WriteString(attachmentFooter)
	return sb.String()
}
