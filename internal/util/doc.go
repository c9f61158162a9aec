// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small helpers shared across filechat.
//
// # Key Functions
//
//   - AtomicWriteFile: Crash-safe file writing with fsync and rename
//   - TruncateRunes: UTF-8 safe string truncation with ellipsis
//   - FormatFixed, FormatTrimmed: Decimal formatting for sizes
//
// # Usage
//
//	err := util.AtomicWriteFile(path, data, 0600)
//	label := util.FormatFixed(kb, 1) + "KB"
package util
