// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/filechat/internal/model"
)

// =============================================================================
// KV BACKEND TESTS
// =============================================================================

func backends(t *testing.T) map[string]KV {
	t.Helper()

	fileKV, err := NewFileKV(t.TempDir())
	require.NoError(t, err)

	sqliteKV, err := OpenSQLite(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { sqliteKV.Close() })

	return map[string]KV{
		"memory": NewMemoryKV(),
		"file":   fileKV,
		"sqlite": sqliteKV,
	}
}

func TestKV_Contract(t *testing.T) {
	for name, kv := range backends(t) {
		t.Run(name, func(t *testing.T) {
			_, ok, err := kv.Get(KeyChatHistory)
			require.NoError(t, err)
			assert.False(t, ok, "unset key should be absent")

			require.NoError(t, kv.Set(KeyChatHistory, `[1]`))
			require.NoError(t, kv.Set(KeyChatHistory, `[1,2]`))

			v, ok, err := kv.Get(KeyChatHistory)
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, `[1,2]`, v)

			require.NoError(t, kv.Set(KeyUploadedFiles, `[]`))
			require.NoError(t, kv.Remove(KeyChatHistory))
			require.NoError(t, kv.Remove(KeyChatHistory), "removing a missing key is not an error")

			_, ok, err = kv.Get(KeyChatHistory)
			require.NoError(t, err)
			assert.False(t, ok)

			v, ok, _ = kv.Get(KeyUploadedFiles)
			assert.True(t, ok, "other keys must survive Remove")
			assert.Equal(t, `[]`, v)
		})
	}
}

func TestFileKV_FileNames(t *testing.T) {
	dir := t.TempDir()
	kv, err := NewFileKV(dir)
	require.NoError(t, err)

	require.NoError(t, kv.Set(KeyChatHistory, "[]"))
	_, err = os.Stat(filepath.Join(dir, "chat_history.json"))
	assert.NoError(t, err)

	assert.Equal(t, "a_b_c", fileName("@a/b\\c"))
	assert.Equal(t, "_", fileName("@@"))
}

func TestSQLiteKV_PersistsAcrossOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")

	kv, err := OpenSQLite(path)
	require.NoError(t, err)
	require.NoError(t, kv.Set(KeyChatHistory, "saved"))
	require.NoError(t, kv.Close())

	kv, err = OpenSQLite(path)
	require.NoError(t, err)
	defer kv.Close()

	v, ok, err := kv.Get(KeyChatHistory)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "saved", v)
}

func TestOpen_Backends(t *testing.T) {
	dir := t.TempDir()

	kv, err := Open(BackendFile, dir)
	require.NoError(t, err)
	assert.IsType(t, &FileKV{}, kv)

	kv, err = Open(BackendSQLite, dir)
	require.NoError(t, err)
	assert.IsType(t, &SQLiteKV{}, kv)
	kv.Close()

	_, err = Open("redis", dir)
	assert.Error(t, err)
}

func TestMemoryKV_CountsWrites(t *testing.T) {
	kv := NewMemoryKV()
	kv.Set("a", "1")
	kv.Get("a")
	kv.Remove("a")
	assert.Equal(t, 2, kv.Writes())
}

// =============================================================================
// CODEC TESTS
// =============================================================================

func sampleConversation() model.Conversation {
	picked := time.Date(2025, 3, 1, 12, 0, 0, 123456789, time.UTC)
	att := model.Attachment{
		ID:             "att_1",
		DisplayName:    "report.pdf",
		ByteSize:       500000,
		MIMEType:       "application/pdf",
		ContentLocator: "file:///tmp/report.pdf",
		PickedAt:       picked,
	}
	return model.NewConversation(
		model.NewUserMessage("hello"),
		model.NewAssistantMessage("hi there"),
		model.NewFileMessage(att, model.Now()),
		model.NewAssistantMessage("I can help with that PDF."),
	)
}

func TestSerialize_RoundTrip(t *testing.T) {
	conv := sampleConversation()

	data, err := Serialize(conv)
	require.NoError(t, err)

	got, dropped, err := Hydrate(data)
	require.NoError(t, err)
	assert.Zero(t, dropped)
	assert.Equal(t, conv.Messages(), got.Messages())

	again, err := Serialize(got)
	require.NoError(t, err)
	assert.Equal(t, string(data), string(again), "serialization must be deterministic")
}

func TestSerialize_Empty(t *testing.T) {
	data, err := Serialize(model.NewConversation())
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))

	conv, _, err := Hydrate(data)
	require.NoError(t, err)
	assert.True(t, conv.IsEmpty())
}

func TestHydrate_DropsCorruptRecord(t *testing.T) {
	good := model.NewUserMessage("keep me")
	goodData, err := Serialize(model.NewConversation(good))
	require.NoError(t, err)

	// Append a record with a bad role and a record that is not an object.
	raw := string(goodData[:len(goodData)-1]) +
		`,{"id":"x","role":"robot","kind":"text","text":"?","created_at":"2025-01-01T00:00:00Z"}` +
		`,"garbage"]`

	conv, dropped, err := Hydrate([]byte(raw))
	require.NoError(t, err)
	assert.Equal(t, 2, dropped)
	require.Equal(t, 1, conv.Len())
	assert.Equal(t, good, conv.At(0))
}

func TestHydrate_DuplicateIDs(t *testing.T) {
	msg := model.NewUserMessage("once")
	data, err := Serialize(model.NewConversation(msg, msg))
	require.NoError(t, err)

	conv, dropped, err := Hydrate(data)
	require.NoError(t, err)
	assert.Equal(t, 1, conv.Len())
	assert.Equal(t, 1, dropped)
}

func TestHydrate_NotAnArray(t *testing.T) {
	conv, _, err := Hydrate([]byte(`{"oops":true}`))
	require.Error(t, err)
	assert.True(t, conv.IsEmpty())

	var perr *PersistenceError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, "decode", perr.Op)
	assert.Equal(t, KeyChatHistory, perr.Key)
}

func TestHydrate_Blank(t *testing.T) {
	conv, dropped, err := Hydrate(nil)
	require.NoError(t, err)
	assert.Zero(t, dropped)
	assert.True(t, conv.IsEmpty())
}

func TestAttachments_RoundTripAndDrop(t *testing.T) {
	atts := []model.Attachment{
		{ID: "b", DisplayName: "new.csv", ByteSize: 10, MIMEType: "text/csv", PickedAt: model.Now()},
		{ID: "a", DisplayName: "old.png", ByteSize: 20, MIMEType: "image/png", PickedAt: model.Now()},
	}
	data, err := SerializeAttachments(atts)
	require.NoError(t, err)

	got, dropped, err := HydrateAttachments(data)
	require.NoError(t, err)
	assert.Zero(t, dropped)
	assert.Equal(t, atts, got)

	bad := string(data[:len(data)-1]) + `,{"id":"c","display_name":"","byte_size":1,"picked_at":"2025-01-01T00:00:00Z"}]`
	got, dropped, err = HydrateAttachments([]byte(bad))
	require.NoError(t, err)
	assert.Equal(t, 1, dropped)
	assert.Len(t, got, 2)
}

func TestPersistenceError_Unwrap(t *testing.T) {
	base := errors.New("disk full")
	err := wrapErr("set", KeyChatHistory, base)
	assert.ErrorIs(t, err, base)
	assert.Contains(t, err.Error(), "set @chat_history")
	assert.Nil(t, wrapErr("set", "k", nil))
}
