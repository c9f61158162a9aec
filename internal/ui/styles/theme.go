// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Bubble width bounds, in cells.
const (
	MinBubbleWidth = 20
	MaxBubbleWidth = 100
)

// Theme holds all the styled components for the chat screen.
type Theme struct {
	// Terminal capabilities
	IsDark       bool
	ColorProfile termenv.Profile

	// Layout dimensions
	Width  int
	Height int

	// Header
	Header      lipgloss.Style
	HeaderTitle lipgloss.Style
	HeaderMeta  lipgloss.Style

	// Messages
	UserBubble      lipgloss.Style
	AssistantBubble lipgloss.Style
	FileCard        lipgloss.Style
	FileMeta        lipgloss.Style
	Timestamp       lipgloss.Style
	Notice          lipgloss.Style

	// Empty state
	EmptyTitle    lipgloss.Style
	EmptySubtitle lipgloss.Style
	EmptyMeta     lipgloss.Style

	// Input area
	InputContainer   lipgloss.Style
	InputPrompt      lipgloss.Style
	CharCount        lipgloss.Style
	CharCountWarning lipgloss.Style
	CharCountDanger  lipgloss.Style

	// Typing indicator
	Spinner      lipgloss.Style
	ThinkingText lipgloss.Style

	// Confirmation overlay
	ConfirmBox    lipgloss.Style
	ConfirmTitle  lipgloss.Style
	ConfirmButton lipgloss.Style

	// Status bar
	StatusBar    lipgloss.Style
	ShortcutKey  lipgloss.Style
	ShortcutDesc lipgloss.Style
}

// NewTheme creates a theme. mode is "dark", "light", or anything else to
// follow the terminal background.
func NewTheme(mode string) *Theme {
	profile := termenv.ColorProfile()

	var isDark bool
	switch strings.ToLower(mode) {
	case "dark":
		isDark = true
	case "light":
		isDark = false
	default:
		isDark = termenv.HasDarkBackground()
	}
	lipgloss.SetHasDarkBackground(isDark)

	t := &Theme{
		IsDark:       isDark,
		ColorProfile: profile,
	}
	t.initStyles()
	return t
}

// initStyles initializes all the lip gloss styles.
func (t *Theme) initStyles() {
	t.Header = lipgloss.NewStyle().
		Background(SurfaceDim).
		Padding(0, 1)

	t.HeaderTitle = lipgloss.NewStyle().
		Bold(true).
		Foreground(Cyan)

	t.HeaderMeta = lipgloss.NewStyle().
		Foreground(TextSecondary)

	t.UserBubble = lipgloss.NewStyle().
		Foreground(UserBubbleFg).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(UserBubbleBorder).
		Padding(0, 1)

	t.AssistantBubble = lipgloss.NewStyle().
		Foreground(AssistantBubbleFg).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(AssistantBubbleBorder).
		Padding(0, 1)

	t.FileCard = lipgloss.NewStyle().
		Foreground(FileCardFg).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(FileCardBorder).
		Padding(0, 1)

	t.FileMeta = lipgloss.NewStyle().
		Foreground(TextSecondary)

	t.Timestamp = lipgloss.NewStyle().
		Foreground(TextMuted)

	t.Notice = lipgloss.NewStyle().
		Foreground(TextSecondary).
		Italic(true)

	t.EmptyTitle = lipgloss.NewStyle().
		Bold(true).
		Foreground(TextPrimary)

	t.EmptySubtitle = lipgloss.NewStyle().
		Foreground(TextSecondary)

	t.EmptyMeta = lipgloss.NewStyle().
		Foreground(Emerald)

	t.InputContainer = lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderTop(true).
		BorderForeground(Overlay).
		Padding(0, 1)

	t.InputPrompt = lipgloss.NewStyle().
		Foreground(Cyan).
		Bold(true)

	t.CharCount = lipgloss.NewStyle().
		Foreground(TextMuted)

	t.CharCountWarning = lipgloss.NewStyle().
		Foreground(Amber)

	t.CharCountDanger = lipgloss.NewStyle().
		Foreground(Rose).
		Bold(true)

	t.Spinner = lipgloss.NewStyle().
		Foreground(Amber)

	t.ThinkingText = lipgloss.NewStyle().
		Foreground(TextSecondary).
		Italic(true)

	t.ConfirmBox = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Rose).
		Padding(1, 2)

	t.ConfirmTitle = lipgloss.NewStyle().
		Bold(true).
		Foreground(TextPrimary)

	t.ConfirmButton = lipgloss.NewStyle().
		Foreground(Rose).
		Bold(true)

	t.StatusBar = lipgloss.NewStyle().
		Background(SurfaceDim).
		Foreground(TextSecondary).
		Padding(0, 1)

	t.ShortcutKey = lipgloss.NewStyle().
		Foreground(Cyan).
		Bold(true)

	t.ShortcutDesc = lipgloss.NewStyle().
		Foreground(TextMuted)
}

// SetSize records the terminal size.
func (t *Theme) SetSize(width, height int) {
	t.Width = width
	t.Height = height
}

// BubbleWidth is the outer width for a message bubble: 80% of the screen,
// clamped to [MinBubbleWidth, MaxBubbleWidth].
func (t *Theme) BubbleWidth() int {
	w := t.Width * 4 / 5
	if w < MinBubbleWidth {
		w = MinBubbleWidth
	}
	if w > MaxBubbleWidth {
		w = MaxBubbleWidth
	}
	return w
}

// CharCountStyle picks the counter color for used of limit characters.
func (t *Theme) CharCountStyle(used, limit int) lipgloss.Style {
	switch {
	case limit <= 0:
		return t.CharCount
	case used >= limit:
		return t.CharCountDanger
	case used*10 >= limit*9:
		return t.CharCountWarning
	default:
		return t.CharCount
	}
}
