// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/filechat/internal/attachment"
	"github.com/jeranaias/filechat/internal/commands"
	"github.com/jeranaias/filechat/internal/model"
	"github.com/jeranaias/filechat/internal/ui/styles"
)

// MessageRenderer draws conversation messages.
type MessageRenderer struct {
	Theme    *styles.Theme
	Markdown *Markdown
}

// Render draws msg for a screen of width cells. User messages align right,
// assistant messages left.
func (r MessageRenderer) Render(msg model.Message, width int) string {
	bubbleWidth := r.Theme.BubbleWidth()
	if bubbleWidth > width {
		bubbleWidth = width
	}
	// Border plus horizontal padding take four cells.
	inner := bubbleWidth - 4
	if inner < 1 {
		inner = 1
	}

	var box string
	switch {
	case msg.IsFile():
		box = r.fileCard(*msg.Attachment, inner)
	case msg.Role == model.RoleAssistant:
		box = r.Theme.AssistantBubble.Render(r.Markdown.Render(msg.Text, inner))
	default:
		box = r.Theme.UserBubble.Render(Wrap(msg.Text, inner))
	}

	stamp := r.Theme.Timestamp.Render(msg.CreatedAt.Local().Format("15:04"))
	align := lipgloss.Left
	if msg.Role == model.RoleUser {
		align = lipgloss.Right
	}
	block := lipgloss.JoinVertical(align, box, stamp)
	return lipgloss.PlaceHorizontal(width, align, block)
}

func (r MessageRenderer) fileCard(att model.Attachment, inner int) string {
	cat := attachment.CategoryOf(att.MIMEType)
	name := Truncate(att.DisplayName, inner-2)
	meta := fmt.Sprintf("%s · %s", attachment.FormatFileSize(att.ByteSize), cat)
	body := cat.Icon() + " " + name + "\n" + r.Theme.FileMeta.Render(Truncate(meta, inner))
	return r.Theme.FileCard.Render(body)
}

// EmptyState renders the centered copy shown before the first message.
func EmptyState(theme *styles.Theme, fileCount, width, height int) string {
	lines := []string{
		theme.EmptyTitle.Render(commands.EmptyTitle),
		theme.EmptySubtitle.Render(Truncate(commands.EmptySubtitle, width)),
	}
	if fileCount > 0 {
		lines = append(lines, "", theme.EmptyMeta.Render(commands.FilesAvailable(fileCount)))
	}
	lines = append(lines, "", theme.Notice.Render("Type a message, or /file <path> to attach a file. /help lists commands."))
	block := lipgloss.JoinVertical(lipgloss.Center, lines...)
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, block)
}

// Notice renders a one-line system notice (command output, errors).
func Notice(theme *styles.Theme, text string, width int) string {
	return theme.Notice.Render(Wrap(strings.TrimSpace(text), width))
}
