// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package commands

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/jeranaias/filechat/internal/attachment"
	"github.com/jeranaias/filechat/internal/engine"
	"github.com/jeranaias/filechat/internal/model"
)

// Empty conversation copy.
const (
	EmptyTitle    = "What can I help with?"
	EmptySubtitle = "Ask me anything or upload files for AI-powered analysis"
)

// FilesAvailable renders "1 file available" / "N files available".
func FilesAvailable(n int) string {
	if n == 1 {
		return "1 file available"
	}
	return fmt.Sprintf("%d files available", n)
}

// FormatFileList renders the registry as a numbered list matching /rm indexes.
func FormatFileList(atts []model.Attachment) string {
	if len(atts) == 0 {
		return "No files attached yet. Use /file <path> to add one."
	}

	var b strings.Builder
	b.WriteString(FilesAvailable(len(atts)))
	b.WriteString(":\n")
	for i, a := range atts {
		cat := attachment.CategoryOf(a.MIMEType)
		fmt.Fprintf(&b, "%2d. %s %s  %s  %s\n",
			i+1, cat.Icon(), a.DisplayName, attachment.FormatFileSize(a.ByteSize), cat)
	}
	return strings.TrimRight(b.String(), "\n")
}

// HelpText lists the visible commands.
func (r *Registry) HelpText() string {
	var b strings.Builder
	b.WriteString("Commands:\n")
	for _, cmd := range r.All() {
		usage := cmd.Usage
		if usage == "" {
			usage = cmd.Name
		}
		fmt.Fprintf(&b, "  %-14s %s\n", usage, cmd.Description)
	}
	b.WriteString("\nAnything else is sent to the assistant.")
	return b.String()
}

// DescribeError turns a command or submit error into a sentence for the user.
func DescribeError(err error) string {
	var verr *engine.ValidationError
	switch {
	case err == nil:
		return ""
	case errors.Is(err, engine.ErrBusy):
		return "Please wait for the current reply to finish."
	case errors.Is(err, engine.ErrClosed):
		return "The session has ended."
	case errors.Is(err, engine.ErrEmptyText):
		return "Type a message first."
	case errors.As(err, &verr):
		return capitalize(verr.Err.Error()) + "."
	default:
		return capitalize(err.Error())
	}
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
