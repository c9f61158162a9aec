// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"fmt"
	"path/filepath"
	"sync"
)

// Fixed keys used by the chat controller.
const (
	KeyChatHistory   = "@chat_history"
	KeyUploadedFiles = "@uploaded_files"
)

// Backend names accepted by Open.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// =============================================================================
// KV INTERFACE
// =============================================================================

// KV is the key/value persistence contract.
// Get reports ok=false for a key that was never set or has been removed.
type KV interface {
	Get(key string) (value string, ok bool, err error)
	Set(key, value string) error
	Remove(key string) error
	Close() error
}

// Open creates the backend named by kind rooted at dir.
func Open(kind, dir string) (KV, error) {
	switch kind {
	case BackendSQLite, "":
		return OpenSQLite(filepath.Join(dir, "history.db"))
	case BackendFile:
		return NewFileKV(dir)
	case BackendMemory:
		return NewMemoryKV(), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", kind)
	}
}

// =============================================================================
// MEMORY BACKEND
// =============================================================================

// MemoryKV keeps values in a map. It is safe for concurrent use.
type MemoryKV struct {
	mu     sync.Mutex
	data   map[string]string
	writes int
}

// NewMemoryKV creates an empty in-memory store.
func NewMemoryKV() *MemoryKV {
	return &MemoryKV{data: make(map[string]string)}
}

// Get returns the value stored under key.
func (m *MemoryKV) Get(key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	return v, ok, nil
}

// Set stores value under key.
func (m *MemoryKV) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	m.writes++
	return nil
}

// Remove deletes key. Removing a missing key is not an error.
func (m *MemoryKV) Remove(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	m.writes++
	return nil
}

// Close is a no-op.
func (m *MemoryKV) Close() error { return nil }

// Writes returns the number of Set and Remove calls served so far.
func (m *MemoryKV) Writes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}

// =============================================================================
// ERRORS
// =============================================================================

// PersistenceError reports a failed read or write against a KV backend.
// The chat controller logs these and keeps running from memory.
type PersistenceError struct {
	Op  string // "get", "set", "remove", "decode"
	Key string
	Err error
}

// Error implements the error interface.
func (e *PersistenceError) Error() string {
	return fmt.Sprintf("storage %s %s: %v", e.Op, e.Key, e.Err)
}

// Unwrap returns the underlying error.
func (e *PersistenceError) Unwrap() error {
	return e.Err
}

func wrapErr(op, key string, err error) error {
	if err == nil {
		return nil
	}
	return &PersistenceError{Op: op, Key: key, Err: err}
}
