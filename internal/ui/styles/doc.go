// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package styles provides the visual styling system for the filechat terminal
interface.

All colors use Lip Gloss AdaptiveColor so they follow the terminal's light or
dark background. The config file's ui.theme may pin one side.

# Color System (colors.go)

  - Purple - Assistant messages and the brand mark
  - Cyan - User highlights, prompts, and commands
  - Emerald - Confirmations and success notices
  - Amber - Warnings and the typing indicator
  - Rose - Errors

# Theme (theme.go)

Theme bundles every lipgloss.Style the chat screen renders with:

	theme := styles.NewTheme("dark")
	theme.SetSize(width, height)
	bubble := theme.AssistantBubble.Width(theme.BubbleWidth()).Render(text)

Status helpers (RenderSuccess, RenderError, RenderWarning, RenderInfo) pair
each color with an ASCII marker so state is readable without color.
*/
package styles
