// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage provides persistence for the chat history and the
// attachment registry.
//
// Persistence goes through a small key/value contract so the engine does not
// care where bytes end up. Three backends are provided.
//
// # Key Types
//
//   - KV: Get/Set/Remove contract used by the chat controller
//   - MemoryKV: In-process map, used in tests and as a fallback
//   - FileKV: One JSON file per key, written atomically
//   - SQLiteKV: Single-table key/value store on modernc.org/sqlite
//   - PersistenceError: Wraps any backend failure with the operation and key
//
// # Codecs
//
// Serialize and Hydrate convert a model.Conversation to and from its stored
// form. Hydrate drops malformed records one by one, so a single corrupt entry
// never loses the rest of the history.
//
//	kv, err := storage.Open(storage.BackendSQLite, dir)
//	raw, ok, err := kv.Get(storage.KeyChatHistory)
//	conv, dropped, err := storage.Hydrate([]byte(raw))
//
// # Storage Location
//
// By default data lives in ~/.filechat/ (history.db for SQLite, one .json
// file per key for the file backend).
package storage
