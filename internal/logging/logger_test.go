// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"":        slog.LevelInfo,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
	}
	for in, want := range tests {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseLevel("loud")
	assert.Error(t, err)
}

func TestNew_WritesJSONAndFiltersLevel(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, slog.LevelWarn)

	l.Info("hidden")
	l.Warn("shown", "count", 2)

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "shown", rec["msg"])
	assert.Equal(t, "filechat", rec["app"])
	assert.Equal(t, float64(2), rec["count"])
}

func TestOpen_CreatesPrivateFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "filechat.log")

	l, closer, err := Open(path, "info")
	require.NoError(t, err)
	l.Info("hello")
	require.NoError(t, closer.Close())

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"hello"`)
}

func TestOpen_BadLevel(t *testing.T) {
	_, _, err := Open(filepath.Join(t.TempDir(), "x.log"), "verbose")
	assert.Error(t, err)
}

func TestFromContext(t *testing.T) {
	var buf bytes.Buffer
	base := New(&buf, slog.LevelInfo)

	ctx := WithExchangeID(context.Background(), "ex-1")
	FromContext(ctx, base).Info("sent")
	assert.Contains(t, buf.String(), `"exchange_id":"ex-1"`)

	buf.Reset()
	FromContext(context.Background(), base).Info("plain")
	assert.NotContains(t, buf.String(), "exchange_id")
}

func TestSetDefault(t *testing.T) {
	prev := Logger()
	defer SetDefault(prev)

	var buf bytes.Buffer
	SetDefault(New(&buf, slog.LevelInfo))
	Logger().Info("global")
	assert.Contains(t, buf.String(), "global")

	SetDefault(nil)
	assert.NotNil(t, Logger())
}
