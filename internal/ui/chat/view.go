// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/filechat/internal/commands"
	"github.com/jeranaias/filechat/internal/ui/components"
)

// Status output taller than this is cut with an ellipsis line.
const maxStatusLines = 12

// View renders the screen.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if !m.ready {
		return "Loading..."
	}

	sections := []string{m.headerView(), m.bodyView()}
	if m.typing.Active() {
		sections = append(sections, m.typing.View())
	} else {
		sections = append(sections, "")
	}
	sections = append(sections, m.statusView(), m.inputView(), m.footerView())
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) headerView() string {
	title := m.theme.HeaderTitle.Render("filechat")
	meta := commands.FilesAvailable(len(m.snap.Attachments))
	if m.modelName != "" {
		meta = m.modelName + "  " + meta
	}
	right := m.theme.HeaderMeta.Render(meta)

	gap := m.width - lipgloss.Width(title) - lipgloss.Width(right) - 2
	if gap < 1 {
		gap = 1
	}
	return m.theme.Header.Render(title + strings.Repeat(" ", gap) + right)
}

func (m Model) bodyView() string {
	if m.confirm != nil {
		return lipgloss.Place(m.width, m.viewport.Height, lipgloss.Center, lipgloss.Center, m.confirmView())
	}
	if m.snap.Conversation.IsEmpty() {
		return components.EmptyState(m.theme, len(m.snap.Attachments), m.width, m.viewport.Height)
	}
	return m.viewport.View()
}

func (m Model) confirmView() string {
	buttons := m.theme.ConfirmButton.Render("[y] Yes") + "  " + m.theme.ConfirmButton.Render("[n] No")
	body := lipgloss.JoinVertical(lipgloss.Center,
		m.theme.ConfirmTitle.Render(m.confirm.Message),
		"",
		buttons,
	)
	return m.theme.ConfirmBox.Render(body)
}

// statusView renders command output or the last error; empty when neither.
func (m Model) statusView() string {
	if m.status == "" {
		return ""
	}
	lines := strings.Split(m.status, "\n")
	if len(lines) > maxStatusLines {
		lines = append(lines[:maxStatusLines-1], "...")
	}
	text := strings.Join(lines, "\n")
	if m.statusErr {
		return components.Notice(m.theme, "⚠ "+text, m.width)
	}
	return components.Notice(m.theme, text, m.width)
}

func (m Model) inputView() string {
	used := utf8.RuneCountInString(m.input.Value())
	count := m.theme.CharCountStyle(used, m.maxInput).Render(fmt.Sprintf("%d/%d", used, m.maxInput))
	return m.theme.InputContainer.Render(m.input.View() + " " + count)
}

func (m Model) footerView() string {
	var parts []string
	for _, b := range m.keys.ShortHelp() {
		h := b.Help()
		parts = append(parts, m.theme.ShortcutKey.Render(h.Key)+" "+m.theme.ShortcutDesc.Render(h.Desc))
	}
	parts = append(parts, m.theme.ShortcutDesc.Render("/help commands"))
	return m.theme.StatusBar.MaxWidth(m.width).Render(strings.Join(parts, "  "))
}
