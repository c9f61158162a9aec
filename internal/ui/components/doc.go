// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package components provides the building blocks of the chat screen.
//
// # Components
//
//   - TypingIndicator: Spinner shown while a reply is pending
//   - MessageRenderer: Bubbles for text messages and cards for files
//   - Markdown: Cached glamour renderer with a plain-text fallback
//   - EmptyState: Copy shown before the first message
//   - Wrap / Truncate: Width-aware text helpers built on go-runewidth
package components
