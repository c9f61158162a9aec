// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/filechat/internal/ui/styles"
)

// =============================================================================
// LINE MODE STYLES
// =============================================================================

var (
	promptStyle = lipgloss.NewStyle().
			Foreground(styles.Cyan).
			Bold(true)

	welcomeStyle = lipgloss.NewStyle().
			Foreground(styles.Purple).
			Bold(true)

	infoStyle = lipgloss.NewStyle().
			Foreground(styles.TextSecondary)

	fileStyle = lipgloss.NewStyle().
			Foreground(styles.Emerald)

	errorStyle = lipgloss.NewStyle().
			Foreground(styles.Rose).
			Bold(true)

	typingStyle = lipgloss.NewStyle().
			Foreground(styles.TextMuted).
			Italic(true)

	labelStyle = lipgloss.NewStyle().
			Foreground(styles.TextSecondary).
			Width(28)
)

// configureColors applies the terminal's color decision to lipgloss.
func configureColors() {
	lipgloss.SetColorProfile(GetColorProfile())
}
