// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the full-screen chat view.
//
// The view never owns conversation state. It subscribes to controller
// snapshots and re-renders from each one, so the typing indicator and
// scroll position follow the controller's Idle/Sending state.
//
// # Key Types
//
//   - Model: Bubble Tea model (viewport, text input, typing indicator)
//   - Session: What the view needs from the controller
//   - ConfirmBridge: Turns a blocking yes/no question into an overlay
//   - KeyMap: Keyboard shortcuts
//
// # Usage
//
//	bridge := chat.NewConfirmBridge()
//	ctrl, _ := engine.New(engine.Options{Confirmer: bridge, ...})
//	err := chat.Run(ctx, chat.Options{Session: ctrl, Theme: theme}, bridge)
package chat
