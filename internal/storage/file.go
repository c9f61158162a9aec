// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/jeranaias/filechat/internal/util"
)

// FileKV stores each key as a JSON file inside BaseDir.
type FileKV struct {
	// BaseDir is the directory holding one file per key
	// Default: ~/.filechat/
	BaseDir string

	mu sync.Mutex
}

// NewFileKV creates a file store rooted at baseDir, creating it if needed.
func NewFileKV(baseDir string) (*FileKV, error) {
	// SECURITY: Owner-only directory, history may contain private text
	if err := os.MkdirAll(baseDir, 0700); err != nil {
		return nil, err
	}
	return &FileKV{BaseDir: baseDir}, nil
}

// Get reads the file for key.
func (f *FileKV) Get(key string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := os.ReadFile(f.filePath(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", false, nil
		}
		return "", false, wrapErr("get", key, err)
	}
	return string(data), true, nil
}

// Set replaces the file for key.
func (f *FileKV) Set(key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	// RELIABILITY: Atomic write with fsync prevents data loss on crash
	return wrapErr("set", key, util.AtomicWriteFile(f.filePath(key), []byte(value), 0600))
}

// Remove deletes the file for key.
func (f *FileKV) Remove(key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	err := os.Remove(f.filePath(key))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return wrapErr("remove", key, err)
	}
	return nil
}

// Close is a no-op; every Set is already durable.
func (f *FileKV) Close() error { return nil }

// filePath maps a key such as "@chat_history" to "<dir>/chat_history.json".
func (f *FileKV) filePath(key string) string {
	return filepath.Join(f.BaseDir, fileName(key)+".json")
}

// fileName keeps only characters that are safe in a file name on every platform.
func fileName(key string) string {
	key = strings.TrimLeft(key, "@")
	var b strings.Builder
	for _, r := range key {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	if b.Len() == 0 {
		return "_"
	}
	return b.String()
}
