// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package engine

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/filechat/internal/attachment"
	"github.com/jeranaias/filechat/internal/cloud"
	"github.com/jeranaias/filechat/internal/model"
	"github.com/jeranaias/filechat/internal/prompt"
	"github.com/jeranaias/filechat/internal/storage"
)

// =============================================================================
// TEST DOUBLES
// =============================================================================

// stubCompleter returns a fixed reply and records every payload.
type stubCompleter struct {
	mu       sync.Mutex
	reply    string
	err      error
	payloads []prompt.Payload
	onCall   func(prompt.Payload)
}

func (s *stubCompleter) Complete(ctx context.Context, p prompt.Payload) (string, error) {
	s.mu.Lock()
	s.payloads = append(s.payloads, p)
	onCall := s.onCall
	s.mu.Unlock()
	if onCall != nil {
		onCall(p)
	}
	return s.reply, s.err
}

func (s *stubCompleter) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.payloads)
}

func (s *stubCompleter) last() prompt.Payload {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.payloads[len(s.payloads)-1]
}

// gatedCompleter blocks each call until release is closed.
type gatedCompleter struct {
	entered chan struct{}
	release chan struct{}
	reply   string
}

func newGated(reply string) *gatedCompleter {
	return &gatedCompleter{entered: make(chan struct{}, 4), release: make(chan struct{}), reply: reply}
}

func (g *gatedCompleter) Complete(ctx context.Context, p prompt.Payload) (string, error) {
	g.entered <- struct{}{}
	<-g.release
	return g.reply, nil
}

// failingKV rejects every write.
type failingKV struct{ *storage.MemoryKV }

func (f failingKV) Set(key, value string) error { return errors.New("disk full") }
func (f failingKV) Remove(key string) error     { return errors.New("disk full") }

func newController(t *testing.T, kv storage.KV, completer Completer) *Controller {
	t.Helper()
	c, err := New(Options{Store: kv, Completer: completer})
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func waitEntered(t *testing.T, g *gatedCompleter) {
	t.Helper()
	select {
	case <-g.entered:
	case <-time.After(2 * time.Second):
		t.Fatal("completer was never called")
	}
}

func storedConversation(t *testing.T, kv storage.KV) (model.Conversation, bool) {
	t.Helper()
	raw, ok, err := kv.Get(storage.KeyChatHistory)
	require.NoError(t, err)
	if !ok {
		return model.NewConversation(), false
	}
	conv, dropped, err := storage.Hydrate([]byte(raw))
	require.NoError(t, err)
	require.Zero(t, dropped)
	return conv, true
}

// =============================================================================
// TEXT EXCHANGE
// =============================================================================

func TestSubmitText_Success(t *testing.T) {
	kv := storage.NewMemoryKV()
	stub := &stubCompleter{reply: "hi there"}
	c := newController(t, kv, stub)

	require.NoError(t, c.SubmitText(context.Background(), "hello"))

	snap := c.Snapshot()
	assert.Equal(t, StateIdle, snap.State)
	require.Equal(t, 2, snap.Conversation.Len())
	assert.Equal(t, model.RoleUser, snap.Conversation.At(0).Role)
	assert.Equal(t, "hello", snap.Conversation.At(0).Text)
	assert.Equal(t, model.RoleAssistant, snap.Conversation.At(1).Role)
	assert.Equal(t, "hi there", snap.Conversation.At(1).Text)

	stored, ok := storedConversation(t, kv)
	require.True(t, ok)
	assert.Equal(t, snap.Conversation.Messages(), stored.Messages())
}

func TestSubmitText_TrimsBeforeNetworkCall(t *testing.T) {
	stub := &stubCompleter{reply: "ok"}
	c := newController(t, storage.NewMemoryKV(), stub)

	var seen Snapshot
	stub.onCall = func(prompt.Payload) { seen = c.Snapshot() }

	require.NoError(t, c.SubmitText(context.Background(), "  spaced out \n"))

	require.Equal(t, 1, seen.Conversation.Len(), "user message must be appended before the request")
	assert.Equal(t, "spaced out", seen.Conversation.At(0).Text)
	assert.Equal(t, StateSending, seen.State)
	assert.Equal(t, "spaced out", stub.last().Last().Content)
}

func TestSubmitText_HistoryExcludesNewTurn(t *testing.T) {
	stub := &stubCompleter{reply: "ok"}
	c := newController(t, storage.NewMemoryKV(), stub)

	require.NoError(t, c.SubmitText(context.Background(), "first"))
	require.NoError(t, c.SubmitText(context.Background(), "second"))

	turns := stub.last().Messages
	// system, first, ok, second
	require.Len(t, turns, 4)
	assert.Equal(t, prompt.RoleSystem, turns[0].Role)
	assert.Equal(t, "first", turns[1].Content)
	assert.Equal(t, "ok", turns[2].Content)
	assert.Equal(t, "second", turns[3].Content)
}

func TestSubmitText_EmptyIsRejected(t *testing.T) {
	kv := storage.NewMemoryKV()
	stub := &stubCompleter{reply: "never"}
	c := newController(t, kv, stub)

	for _, text := range []string{"", "   ", "\n\t"} {
		err := c.SubmitText(context.Background(), text)

		var verr *ValidationError
		require.True(t, errors.As(err, &verr), "text %q", text)
		assert.Equal(t, "text", verr.Field)
		assert.ErrorIs(t, err, ErrEmptyText)
	}

	require.NoError(t, c.Flush())
	assert.True(t, c.Snapshot().Conversation.IsEmpty())
	assert.Zero(t, kv.Writes(), "rejected input must not touch storage")
	assert.Zero(t, stub.calls())
}

func TestSubmitText_TooLong(t *testing.T) {
	kv := storage.NewMemoryKV()
	c, err := New(Options{Store: kv, Completer: &stubCompleter{reply: "x"}, MaxInputChars: 5})
	require.NoError(t, err)
	defer c.Close()

	err = c.SubmitText(context.Background(), "123456")
	assert.ErrorIs(t, err, ErrTextTooLong)
	assert.NoError(t, c.SubmitText(context.Background(), "  12345  "))
}

func TestSubmitText_FailureCopy(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"rate limited", &cloud.GatewayError{Kind: cloud.KindRateLimited, Status: 429}, RateLimitedText},
		{"network", &cloud.GatewayError{Kind: cloud.KindNetwork}, NetworkText},
		{"server", &cloud.GatewayError{Kind: cloud.KindServer, Status: 500}, ServerText},
		{"malformed", &cloud.GatewayError{Kind: cloud.KindMalformed}, MalformedText},
		{"other error", errors.New("boom"), ServerText},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := newController(t, storage.NewMemoryKV(), &stubCompleter{err: tc.err})

			require.NoError(t, c.SubmitText(context.Background(), "hello"))

			snap := c.Snapshot()
			assert.Equal(t, StateIdle, snap.State)
			last, ok := snap.Conversation.Last()
			require.True(t, ok)
			assert.Equal(t, model.RoleAssistant, last.Role)
			assert.Equal(t, tc.want, last.Text)
		})
	}
}

func TestSubmitText_BlankReplyIsMalformed(t *testing.T) {
	c := newController(t, storage.NewMemoryKV(), &stubCompleter{reply: "   "})
	require.NoError(t, c.SubmitText(context.Background(), "hello"))

	last, _ := c.Snapshot().Conversation.Last()
	assert.Equal(t, MalformedText, last.Text)
}

type panicCompleter struct{}

func (panicCompleter) Complete(context.Context, prompt.Payload) (string, error) {
	panic("unexpected")
}

func TestSubmitText_CompleterPanicSettles(t *testing.T) {
	c := newController(t, storage.NewMemoryKV(), panicCompleter{})
	require.NoError(t, c.SubmitText(context.Background(), "hello"))

	snap := c.Snapshot()
	assert.Equal(t, StateIdle, snap.State)
	last, _ := snap.Conversation.Last()
	assert.Equal(t, ServerText, last.Text)
}

func TestSubmitText_RateLimitedByEndpoint(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"message":"rate limit reached, please retry"}}`))
	}))
	defer server.Close()

	gw := cloud.NewGateway("test-key").WithBaseURL(server.URL)
	c := newController(t, storage.NewMemoryKV(), gw)

	require.NoError(t, c.SubmitText(context.Background(), "hello"))

	msgs := c.Snapshot().Conversation.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "hello", msgs[0].Text)
	assert.Equal(t, RateLimitedText, msgs[1].Text)
}

// =============================================================================
// FILE EXCHANGE
// =============================================================================

func TestSubmitFile_Acknowledged(t *testing.T) {
	kv := storage.NewMemoryKV()
	stub := &stubCompleter{reply: "I can summarize report.pdf for you."}
	c := newController(t, kv, stub)

	var during Snapshot
	stub.onCall = func(prompt.Payload) { during = c.Snapshot() }

	d := attachment.Descriptor{Name: "report.pdf", ByteSize: 500000, MIMEType: "application/pdf", ContentLocator: "x"}
	require.NoError(t, c.SubmitFile(context.Background(), d))

	require.Equal(t, 1, during.Conversation.Len(), "file message is appended before the request")
	assert.Equal(t, model.KindFile, during.Conversation.At(0).Kind)

	snap := c.Snapshot()
	require.Equal(t, 2, snap.Conversation.Len())
	file := snap.Conversation.At(0)
	require.True(t, file.IsFile())
	assert.Equal(t, "report.pdf", file.Attachment.DisplayName)
	assert.Equal(t, "x", file.Attachment.ContentLocator)
	assert.Contains(t, snap.Conversation.At(1).Text, "report.pdf")

	require.Len(t, snap.Attachments, 1)
	assert.Equal(t, file.Attachment.ID, snap.Attachments[0].ID)

	payload := stub.last()
	assert.Equal(t, attachment.ToPromptText(d), payload.Last().Content)
	assert.Contains(t, payload.Messages[0].Content, "- report.pdf (application/pdf, 488.3KB)")

	raw, ok, err := kv.Get(storage.KeyUploadedFiles)
	require.NoError(t, err)
	require.True(t, ok)
	atts, _, err := storage.HydrateAttachments([]byte(raw))
	require.NoError(t, err)
	assert.Equal(t, snap.Attachments, atts)
}

func TestSubmitFile_HistoryExcludesFileTurn(t *testing.T) {
	stub := &stubCompleter{reply: "ok"}
	c := newController(t, storage.NewMemoryKV(), stub)

	require.NoError(t, c.SubmitText(context.Background(), "hello"))
	d := attachment.Descriptor{Name: "notes.txt", ByteSize: 12, MIMEType: "text/plain"}
	require.NoError(t, c.SubmitFile(context.Background(), d))

	turns := stub.last().Messages
	// system, hello, ok, acknowledgment prompt
	require.Len(t, turns, 4)
	assert.Equal(t, "hello", turns[1].Content)
	assert.Equal(t, "ok", turns[2].Content)
	assert.Equal(t, attachment.ToPromptText(d), turns[3].Content)
	for _, turn := range turns {
		assert.NotContains(t, turn.Content, "[File uploaded:")
	}
	assert.Equal(t, 4, c.Snapshot().Conversation.Len())
}

func TestSubmitFile_Oversize(t *testing.T) {
	kv := storage.NewMemoryKV()
	stub := &stubCompleter{reply: "never"}
	c := newController(t, kv, stub)

	err := c.SubmitFile(context.Background(), attachment.Descriptor{
		Name:     "huge.iso",
		ByteSize: 10*1024*1024 + 1,
		MIMEType: "application/octet-stream",
	})

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "file", verr.Field)
	assert.ErrorIs(t, err, attachment.ErrTooLarge)

	require.NoError(t, c.Flush())
	snap := c.Snapshot()
	assert.True(t, snap.Conversation.IsEmpty())
	assert.Empty(t, snap.Attachments)
	assert.Zero(t, kv.Writes())
	assert.Zero(t, stub.calls())
}

func TestSubmitFile_RegistryNewestFirst(t *testing.T) {
	c := newController(t, storage.NewMemoryKV(), &stubCompleter{reply: "ok"})

	for _, name := range []string{"a.txt", "b.csv"} {
		require.NoError(t, c.SubmitFile(context.Background(), attachment.Descriptor{Name: name, ByteSize: 10, MIMEType: "text/plain"}))
	}

	atts := c.Snapshot().Attachments
	require.Len(t, atts, 2)
	assert.Equal(t, "b.csv", atts[0].DisplayName)
	assert.Equal(t, "a.txt", atts[1].DisplayName)
}

// =============================================================================
// SINGLE FLIGHT
// =============================================================================

func TestSubmit_SingleFlight(t *testing.T) {
	gate := newGated("done")
	c := newController(t, storage.NewMemoryKV(), gate)

	errCh := make(chan error, 1)
	go func() { errCh <- c.SubmitText(context.Background(), "first") }()
	waitEntered(t, gate)

	assert.Equal(t, StateSending, c.State())
	assert.ErrorIs(t, c.SubmitText(context.Background(), "second"), ErrBusy)
	assert.ErrorIs(t, c.SubmitFile(context.Background(), attachment.Descriptor{Name: "a", ByteSize: 1}), ErrBusy)

	snap := c.Snapshot()
	assert.Equal(t, 1, snap.Conversation.Len())
	assert.Empty(t, snap.Attachments)

	close(gate.release)
	require.NoError(t, <-errCh)

	msgs := c.Snapshot().Conversation.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "first", msgs[0].Text)
	assert.Equal(t, "done", msgs[1].Text)
	assert.Equal(t, StateIdle, c.State())
}

// =============================================================================
// CLEAR
// =============================================================================

func TestClear(t *testing.T) {
	kv := storage.NewMemoryKV()
	c := newController(t, kv, &stubCompleter{reply: "ok"})

	require.NoError(t, c.SubmitFile(context.Background(), attachment.Descriptor{Name: "a.txt", ByteSize: 1}))
	require.NoError(t, c.SubmitText(context.Background(), "hello"))
	require.Equal(t, 4, c.Snapshot().Conversation.Len())

	require.NoError(t, c.Clear())

	snap := c.Snapshot()
	assert.True(t, snap.Conversation.IsEmpty())
	assert.Equal(t, StateIdle, snap.State)
	assert.Len(t, snap.Attachments, 1, "the attachment registry survives a history clear")

	_, ok := storedConversation(t, kv)
	assert.False(t, ok, "persisted history must be removed")

	require.NoError(t, c.Clear(), "clearing an empty conversation is fine")
}

func TestClear_DuringSendingDiscardsLateReply(t *testing.T) {
	kv := storage.NewMemoryKV()
	gate := newGated("late")
	c := newController(t, kv, gate)

	errCh := make(chan error, 1)
	go func() { errCh <- c.SubmitText(context.Background(), "hello") }()
	waitEntered(t, gate)

	require.NoError(t, c.Clear())
	assert.Equal(t, StateIdle, c.State())

	close(gate.release)
	require.NoError(t, <-errCh)

	assert.True(t, c.Snapshot().Conversation.IsEmpty())
	_, ok := storedConversation(t, kv)
	assert.False(t, ok)
}

func TestRequestClear_Confirmation(t *testing.T) {
	var asked []string
	answer := false
	kv := storage.NewMemoryKV()
	c, err := New(Options{
		Store:     kv,
		Completer: &stubCompleter{reply: "ok"},
		Confirmer: ConfirmFunc(func(msg string) bool {
			asked = append(asked, msg)
			return answer
		}),
	})
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.SubmitText(context.Background(), "keep"))

	cleared, err := c.RequestClear()
	require.NoError(t, err)
	assert.False(t, cleared)
	assert.Equal(t, 2, c.Snapshot().Conversation.Len())

	answer = true
	cleared, err = c.RequestClear()
	require.NoError(t, err)
	assert.True(t, cleared)
	assert.True(t, c.Snapshot().Conversation.IsEmpty())

	assert.Equal(t, []string{ClearPrompt, ClearPrompt}, asked)
}

func TestRemoveAttachment(t *testing.T) {
	var asked string
	kv := storage.NewMemoryKV()
	c, err := New(Options{
		Store:     kv,
		Completer: &stubCompleter{reply: "ok"},
		Confirmer: ConfirmFunc(func(msg string) bool { asked = msg; return true }),
	})
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.SubmitFile(context.Background(), attachment.Descriptor{Name: "notes.md", ByteSize: 3}))
	id := c.Snapshot().Attachments[0].ID

	removed, err := c.RemoveAttachment(id)
	require.NoError(t, err)
	assert.True(t, removed)
	assert.Equal(t, `Are you sure you want to delete "notes.md"?`, asked)

	snap := c.Snapshot()
	assert.Empty(t, snap.Attachments)
	assert.Equal(t, 2, snap.Conversation.Len(), "history keeps the file message")

	raw, _, _ := kv.Get(storage.KeyUploadedFiles)
	assert.Equal(t, "[]", raw)

	_, err = c.RemoveAttachment("missing")
	assert.Error(t, err)
}

// =============================================================================
// PERSISTENCE
// =============================================================================

func TestNew_HydratesAndDropsCorruptRecords(t *testing.T) {
	kv := storage.NewMemoryKV()
	good := model.NewUserMessage("survivor")
	data, err := storage.Serialize(model.NewConversation(good))
	require.NoError(t, err)

	corrupt := strings.TrimSuffix(string(data), "]") + `,{"id":"bad","role":"user","kind":"text","text":"","created_at":"nope"}]`
	require.NoError(t, kv.Set(storage.KeyChatHistory, corrupt))
	require.NoError(t, kv.Set(storage.KeyUploadedFiles, "not json"))

	c := newController(t, kv, &stubCompleter{reply: "ok"})

	snap := c.Snapshot()
	require.Equal(t, 1, snap.Conversation.Len())
	assert.Equal(t, good, snap.Conversation.At(0))
	assert.Empty(t, snap.Attachments)
}

func TestPersistence_SurvivesRestart(t *testing.T) {
	kv, err := storage.OpenSQLite(t.TempDir() + "/history.db")
	require.NoError(t, err)
	defer kv.Close()

	c, err := New(Options{Store: kv, Completer: &stubCompleter{reply: "ok"}})
	require.NoError(t, err)
	for _, text := range []string{"one", "two", "three"} {
		require.NoError(t, c.SubmitText(context.Background(), text))
	}
	require.NoError(t, c.SubmitFile(context.Background(), attachment.Descriptor{Name: "f.txt", ByteSize: 1}))
	before := c.Snapshot()
	require.NoError(t, c.Close())

	reopened := newController(t, kv, &stubCompleter{reply: "ok"})
	after := reopened.Snapshot()
	assert.Equal(t, before.Conversation.Messages(), after.Conversation.Messages())
	assert.Equal(t, before.Attachments, after.Attachments)
}

func TestPersistence_FailureIsNonFatal(t *testing.T) {
	c := newController(t, failingKV{storage.NewMemoryKV()}, &stubCompleter{reply: "still here"})

	require.NoError(t, c.SubmitText(context.Background(), "hello"))

	assert.Equal(t, 2, c.Snapshot().Conversation.Len())
	assert.Equal(t, int64(2), c.PersistenceFailures())
}

// =============================================================================
// OBSERVERS
// =============================================================================

func TestSubscribe(t *testing.T) {
	gate := newGated("reply")
	c := newController(t, storage.NewMemoryKV(), gate)

	updates, cancel := c.Subscribe()
	defer cancel()

	initial := <-updates
	assert.Equal(t, StateIdle, initial.State)

	errCh := make(chan error, 1)
	go func() { errCh <- c.SubmitText(context.Background(), "hi") }()
	waitEntered(t, gate)

	sending := <-updates
	assert.Equal(t, StateSending, sending.State)
	assert.Equal(t, 1, sending.Conversation.Len())

	close(gate.release)
	require.NoError(t, <-errCh)

	idle := <-updates
	assert.Equal(t, StateIdle, idle.State)
	assert.Equal(t, 2, idle.Conversation.Len())
}

func TestClose(t *testing.T) {
	c, err := New(Options{Store: storage.NewMemoryKV(), Completer: &stubCompleter{reply: "ok"}})
	require.NoError(t, err)

	updates, _ := c.Subscribe()
	<-updates

	require.NoError(t, c.Close())
	require.NoError(t, c.Close())

	_, open := <-updates
	assert.False(t, open, "Close ends subscriptions")
	assert.ErrorIs(t, c.SubmitText(context.Background(), "late"), ErrClosed)
	assert.ErrorIs(t, c.Clear(), ErrClosed)
}

func TestNew_RequiresCollaborators(t *testing.T) {
	_, err := New(Options{Completer: &stubCompleter{}})
	assert.Error(t, err)
	_, err = New(Options{Store: storage.NewMemoryKV()})
	assert.Error(t, err)
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "idle", StateIdle.String())
	assert.Equal(t, "sending", StateSending.String())
}
