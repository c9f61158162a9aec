// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli is the filechat command line: argument parsing, the config
// subcommand, and the line-mode chat used when the full-screen view is not
// available.
//
// Usage:
//
//	filechat                      Full-screen chat (line mode when piped)
//	filechat chat --plain         Line-mode chat
//	filechat config list          Show every setting
//	filechat config set chat.history_window 20
//	filechat version
package cli
