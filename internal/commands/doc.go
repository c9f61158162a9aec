// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package commands provides the slash command system shared by the full-screen
// interface and line mode.
//
// # Key Types
//
//   - Registry: Command registry with all available commands
//   - Parser / ParseResult: Splits input into a command and its arguments
//   - Env: What a handler may touch (the chat session, a picker, the clipboard)
//   - Result: Text to show, and whether to exit
//   - Completer: Tab completion for command names
//
// # Built-in Commands
//
//   - /file <path>: Attach a file and ask the assistant about it
//   - /files: List attached files, newest first
//   - /rm <n>: Remove the n-th file from the list
//   - /clear: Clear chat history (asks first)
//   - /copy: Copy the last reply to the clipboard
//   - /help, /quit
//
// # Usage
//
//	registry := commands.NewRegistry()
//	parsed := commands.NewParser(registry).Parse(input)
//	if parsed.IsCommand {
//	    res, err := registry.Execute(ctx, env, parsed)
//	}
package commands
