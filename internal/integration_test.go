// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package internal holds end-to-end tests that wire the real controller,
// gateway, storage and command layer together against a local HTTP server.
package internal

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/filechat/internal/attachment"
	"github.com/jeranaias/filechat/internal/cloud"
	"github.com/jeranaias/filechat/internal/commands"
	"github.com/jeranaias/filechat/internal/engine"
	"github.com/jeranaias/filechat/internal/model"
	"github.com/jeranaias/filechat/internal/prompt"
	"github.com/jeranaias/filechat/internal/storage"
)

// =============================================================================
// FIXTURES
// =============================================================================

type chatRequest struct {
	Model    string `json:"model"`
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

// completionServer answers every request with reply(req) and records requests.
type completionServer struct {
	mu       sync.Mutex
	requests []chatRequest
	status   int
	reply    func(chatRequest) string
	gate     chan struct{}
	calls    atomic.Int32
}

func newCompletionServer(t *testing.T) (*completionServer, *httptest.Server) {
	t.Helper()
	cs := &completionServer{status: http.StatusOK}
	cs.reply = func(req chatRequest) string {
		return "echo: " + req.Messages[len(req.Messages)-1].Content
	}
	srv := httptest.NewServer(http.HandlerFunc(cs.handle))
	t.Cleanup(srv.Close)
	return cs, srv
}

func (cs *completionServer) handle(w http.ResponseWriter, r *http.Request) {
	cs.calls.Add(1)
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	cs.mu.Lock()
	cs.requests = append(cs.requests, req)
	status, reply, gate := cs.status, cs.reply, cs.gate
	cs.mu.Unlock()

	if gate != nil {
		<-gate
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if status != http.StatusOK {
		w.Write([]byte(`{"error":{"message":"rate limit exceeded"}}`))
		return
	}
	body, _ := json.Marshal(map[string]interface{}{
		"choices": []map[string]interface{}{
			{"message": map[string]string{"role": "assistant", "content": reply(req)}},
		},
	})
	w.Write(body)
}

func (cs *completionServer) lastRequest(t *testing.T) chatRequest {
	t.Helper()
	cs.mu.Lock()
	defer cs.mu.Unlock()
	require.NotEmpty(t, cs.requests)
	return cs.requests[len(cs.requests)-1]
}

type stack struct {
	once sync.Once
	ctrl *engine.Controller
	kv   storage.KV
	env  *commands.Env
	reg  *commands.Registry
}

func newStack(t *testing.T, dir, baseURL string, confirm engine.ConfirmFunc) *stack {
	t.Helper()
	kv, err := storage.Open(storage.BackendSQLite, dir)
	require.NoError(t, err)

	composer := prompt.NewComposer().WithHistoryWindow(10)
	ctrl, err := engine.New(engine.Options{
		Store:     kv,
		Completer: cloud.NewGateway("gsk_test").WithBaseURL(baseURL).WithTimeout(5 * time.Second),
		Composer:  &composer,
		Bridge:    attachment.NewBridge(0),
		Confirmer: confirm,
	})
	require.NoError(t, err)

	s := &stack{
		ctrl: ctrl,
		kv:   kv,
		env:  &commands.Env{Session: ctrl, ExportDir: filepath.Join(dir, "exports"), CopyText: func(string) error { return nil }},
		reg:  commands.NewRegistry(),
	}
	t.Cleanup(s.close)
	return s
}

func (s *stack) close() {
	s.once.Do(func() {
		s.ctrl.Flush()
		s.ctrl.Close()
		s.kv.Close()
	})
}

func (s *stack) run(t *testing.T, line string) commands.Result {
	t.Helper()
	res, err := s.reg.Execute(context.Background(), s.env, commands.NewParser(s.reg).Parse(line))
	require.NoError(t, err, line)
	return res
}

func always(answer bool) engine.ConfirmFunc {
	return func(string) bool { return answer }
}

// =============================================================================
// END TO END
// =============================================================================

func TestEndToEnd_FileConversationSurvivesRestart(t *testing.T) {
	cs, srv := newCompletionServer(t)
	dir := t.TempDir()
	file := filepath.Join(dir, "report.csv")
	require.NoError(t, os.WriteFile(file, []byte("a,b\n1,2\n"), 0600))

	s := newStack(t, dir, srv.URL, always(true))

	s.run(t, "/file "+file)
	req := cs.lastRequest(t)
	assert.Equal(t, "system", req.Messages[0].Role)
	assert.Contains(t, req.Messages[0].Content, "report.csv")
	assert.Contains(t, req.Messages[len(req.Messages)-1].Content, "I just uploaded a file: report.csv")

	require.NoError(t, s.ctrl.SubmitText(context.Background(), "  what columns are there?  "))
	req = cs.lastRequest(t)
	assert.Equal(t, "what columns are there?", req.Messages[len(req.Messages)-1].Content)
	assert.Contains(t, req.Messages[0].Content, "report.csv", "attachments are sent on every turn")

	snap := s.ctrl.Snapshot()
	require.Equal(t, 4, snap.Conversation.Len())
	assert.True(t, snap.Conversation.At(0).IsFile())
	assert.Equal(t, "echo: what columns are there?", snap.Conversation.At(3).Text)
	assert.Equal(t, engine.StateIdle, snap.State)

	res := s.run(t, "/export md")
	assert.Contains(t, res.Output, "Exported 4 messages")

	s.close()

	restarted := newStack(t, dir, srv.URL, always(true))
	restored := restarted.ctrl.Snapshot()
	assert.Equal(t, 4, restored.Conversation.Len())
	require.Len(t, restored.Attachments, 1)
	assert.Equal(t, "report.csv", restored.Attachments[0].DisplayName)
	assert.Contains(t, restarted.run(t, "/files").Output, "report.csv")
}

func TestEndToEnd_FailureBecomesAssistantReply(t *testing.T) {
	cs, srv := newCompletionServer(t)
	cs.status = http.StatusTooManyRequests
	s := newStack(t, t.TempDir(), srv.URL, always(true))

	require.NoError(t, s.ctrl.SubmitText(context.Background(), "hello"))

	last, ok := s.ctrl.Snapshot().Conversation.Last()
	require.True(t, ok)
	assert.Equal(t, model.RoleAssistant, last.Role)
	assert.Equal(t, engine.RateLimitedText, last.Text)
	assert.Equal(t, engine.StateIdle, s.ctrl.State())
}

func TestEndToEnd_ClearKeepsFiles(t *testing.T) {
	_, srv := newCompletionServer(t)
	dir := t.TempDir()
	file := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(file, []byte("notes"), 0600))

	s := newStack(t, dir, srv.URL, always(true))
	s.run(t, "/file "+file)
	assert.Equal(t, "Chat history cleared.", s.run(t, "/clear").Output)

	snap := s.ctrl.Snapshot()
	assert.True(t, snap.Conversation.IsEmpty())
	assert.Len(t, snap.Attachments, 1)

	assert.Equal(t, "Removed notes.txt.", s.run(t, "/rm 1").Output)
	assert.Empty(t, s.ctrl.Snapshot().Attachments)
}

func TestEndToEnd_DeclinedConfirmation(t *testing.T) {
	_, srv := newCompletionServer(t)
	s := newStack(t, t.TempDir(), srv.URL, always(false))

	require.NoError(t, s.ctrl.SubmitText(context.Background(), "keep this"))
	assert.Equal(t, "History kept.", s.run(t, "/clear").Output)
	assert.Equal(t, 2, s.ctrl.Snapshot().Conversation.Len())
}

func TestEndToEnd_MissingKey(t *testing.T) {
	cs, srv := newCompletionServer(t)
	kv := storage.NewMemoryKV()
	ctrl, err := engine.New(engine.Options{
		Store:     kv,
		Completer: cloud.NewGateway("").WithBaseURL(srv.URL),
	})
	require.NoError(t, err)
	defer ctrl.Close()

	require.NoError(t, ctrl.SubmitText(context.Background(), "hi"))
	last, _ := ctrl.Snapshot().Conversation.Last()
	assert.Equal(t, engine.ServerText, last.Text)
	assert.Zero(t, cs.calls.Load(), "no request without a key")
}

// =============================================================================
// CONCURRENCY
// =============================================================================

func TestConcurrency_SingleFlightAgainstRealGateway(t *testing.T) {
	cs, srv := newCompletionServer(t)
	cs.gate = make(chan struct{})
	s := newStack(t, t.TempDir(), srv.URL, always(true))

	first := make(chan error, 1)
	go func() { first <- s.ctrl.SubmitText(context.Background(), "first") }()

	require.Eventually(t, func() bool { return s.ctrl.State() == engine.StateSending }, 5*time.Second, 5*time.Millisecond)

	const racers = 20
	var wg sync.WaitGroup
	var busy atomic.Int32
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.ctrl.SubmitText(context.Background(), "racer"); errors.Is(err, engine.ErrBusy) {
				busy.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(racers), busy.Load())

	close(cs.gate)
	require.NoError(t, <-first)
	assert.Equal(t, int32(1), cs.calls.Load())
	assert.Equal(t, 2, s.ctrl.Snapshot().Conversation.Len())
}

func TestConcurrency_SubscribersSeeFinalState(t *testing.T) {
	_, srv := newCompletionServer(t)
	s := newStack(t, t.TempDir(), srv.URL, always(true))

	const subscribers = 10
	var wg sync.WaitGroup
	for i := 0; i < subscribers; i++ {
		updates, cancel := s.ctrl.Subscribe()
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer cancel()
			deadline := time.After(5 * time.Second)
			for {
				select {
				case snap := <-updates:
					if snap.State == engine.StateIdle && snap.Conversation.Len() == 6 {
						return
					}
				case <-deadline:
					t.Error("subscriber never saw the final snapshot")
					return
				}
			}
		}()
	}

	for _, text := range []string{"one", "two", "three"} {
		require.NoError(t, s.ctrl.SubmitText(context.Background(), text))
	}
	wg.Wait()

	for i, msg := range s.ctrl.Snapshot().Conversation.Messages() {
		if i%2 == 1 {
			assert.True(t, strings.HasPrefix(msg.Text, "echo: "))
		}
	}
}
