// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package export writes the current conversation to a file the user can share.
//
// # Supported Formats
//
//   - Markdown: human-readable, with YAML frontmatter and a file list
//   - JSON: the messages and attachments as stored
//
// # Usage
//
//	doc := export.Document{Title: "Quarterly numbers", Conversation: snap.Conversation}
//	path, err := export.ExportToFile(doc, export.NewMarkdownExporter(), ".")
//
// Attachments are listed by name, size and type only. File contents are never
// read or embedded.
package export
