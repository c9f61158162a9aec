// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations and messages.
//
// This package defines the core domain types shared by the storage, prompt,
// attachment, and chat packages.
//
// # Key Types
//
//   - Conversation: Immutable snapshot of the ordered message log
//   - Message: One text or file entry with role, kind, and timestamp
//   - Attachment: Metadata for a picked file (never its content)
//   - Role: user or assistant
//   - Kind: text or file
//
// # Usage
//
//	conv := model.NewConversation()
//	conv = conv.Append(model.NewUserMessage("Hello!"))
//	last, _ := conv.Last()
//	fmt.Println(last.Content())
package model
