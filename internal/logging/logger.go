// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package logging sets up the structured logger. The terminal belongs to the
// UI, so logs go to a file as JSON lines.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
)

type ctxKey string

const ctxKeyExchangeID ctxKey = "exchange_id"

var global atomic.Pointer[slog.Logger]

func init() {
	global.Store(Discard())
}

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

// ParseLevel maps "debug", "info", "warn"/"warning", "error" to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}

// New builds a JSON logger writing to w at the given level.
func New(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})).
		With("app", "filechat")
}

// Open opens (or creates) the log file at path and returns a logger on it.
// A path of "-" logs to stderr. The returned closer is always non-nil.
func Open(path, level string) (*slog.Logger, io.Closer, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, nil, err
	}
	if path == "-" {
		return New(os.Stderr, lvl), io.NopCloser(nil), nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, nil, fmt.Errorf("create log dir: %w", err)
	}
	// SECURITY: log files may carry file names, keep them private
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	return New(f, lvl), f, nil
}

// SetDefault replaces the process-wide logger.
func SetDefault(l *slog.Logger) {
	if l == nil {
		l = Discard()
	}
	global.Store(l)
}

// Logger returns the process-wide logger.
func Logger() *slog.Logger {
	return global.Load()
}

// WithExchangeID stores an exchange id in the context.
func WithExchangeID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKeyExchangeID, id)
}

// FromContext returns l annotated with the exchange id, if ctx carries one.
func FromContext(ctx context.Context, l *slog.Logger) *slog.Logger {
	if l == nil {
		l = Logger()
	}
	id, _ := ctx.Value(ctxKeyExchangeID).(string)
	if id == "" {
		return l
	}
	return l.With("exchange_id", id)
}
