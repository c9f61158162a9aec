// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/filechat/internal/ui/styles"
)

// TypingIndicator is the spinner shown while the assistant is replying.
type TypingIndicator struct {
	spinner   spinner.Model
	theme     *styles.Theme
	message   string
	startTime time.Time
	active    bool
}

// NewTypingIndicator creates an inactive indicator with ASCII-safe frames.
func NewTypingIndicator(theme *styles.Theme) TypingIndicator {
	s := spinner.New()
	s.Spinner = spinner.Spinner{
		Frames: []string{".  ", ".. ", "...", " ..", "  .", "   "},
		FPS:    time.Second / 6,
	}
	s.Style = theme.Spinner
	return TypingIndicator{spinner: s, theme: theme, message: "Assistant is typing"}
}

// Start activates the indicator and returns the first tick.
func (t *TypingIndicator) Start() tea.Cmd {
	if t.active {
		return nil
	}
	t.active = true
	t.startTime = time.Now()
	return t.spinner.Tick
}

// Stop deactivates the indicator. Pending ticks are ignored.
func (t *TypingIndicator) Stop() {
	t.active = false
}

// Active reports whether the indicator is running.
func (t TypingIndicator) Active() bool {
	return t.active
}

// Update advances the animation.
func (t TypingIndicator) Update(msg tea.Msg) (TypingIndicator, tea.Cmd) {
	if !t.active {
		return t, nil
	}
	var cmd tea.Cmd
	t.spinner, cmd = t.spinner.Update(msg)
	return t, cmd
}

// View renders the indicator, or "" when inactive.
func (t TypingIndicator) View() string {
	if !t.active {
		return ""
	}
	out := t.theme.ThinkingText.Render(t.message) + " " + t.spinner.View()
	if elapsed := time.Since(t.startTime); elapsed >= 3*time.Second {
		out += t.theme.Timestamp.Render(fmt.Sprintf(" (%ds)", int(elapsed.Seconds())))
	}
	return out
}
