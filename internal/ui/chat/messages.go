// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/filechat/internal/commands"
	"github.com/jeranaias/filechat/internal/engine"
)

// snapshotMsg carries a controller update.
type snapshotMsg engine.Snapshot

// subscriptionClosedMsg is sent when the controller shuts down.
type subscriptionClosedMsg struct{}

// submitDoneMsg reports the end of a text exchange.
type submitDoneMsg struct {
	Err error
}

// commandDoneMsg reports a finished slash command.
type commandDoneMsg struct {
	Result commands.Result
	Err    error
}

// waitForSnapshot receives the next controller update.
func waitForSnapshot(updates <-chan engine.Snapshot) tea.Cmd {
	return func() tea.Msg {
		snap, ok := <-updates
		if !ok {
			return subscriptionClosedMsg{}
		}
		return snapshotMsg(snap)
	}
}

func submitText(ctx context.Context, s Session, text string) tea.Cmd {
	return func() tea.Msg {
		return submitDoneMsg{Err: s.SubmitText(ctx, text)}
	}
}

func runCommand(ctx context.Context, reg *commands.Registry, env *commands.Env, parsed commands.ParseResult) tea.Cmd {
	return func() tea.Msg {
		res, err := reg.Execute(ctx, env, parsed)
		return commandDoneMsg{Result: res, Err: err}
	}
}
