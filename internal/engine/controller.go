// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/jeranaias/filechat/internal/attachment"
	"github.com/jeranaias/filechat/internal/cloud"
	"github.com/jeranaias/filechat/internal/logging"
	"github.com/jeranaias/filechat/internal/model"
	"github.com/jeranaias/filechat/internal/prompt"
	"github.com/jeranaias/filechat/internal/storage"
)

// DefaultMaxInputChars is the longest text message accepted, in runes.
const DefaultMaxInputChars = 2000

// Confirmation prompts.
const (
	ClearPrompt        = "Are you sure you want to clear all chat history? This cannot be undone."
	removePromptFormat = "Are you sure you want to delete \"%s\"?"
)

// =============================================================================
// COLLABORATORS
// =============================================================================

// Completer sends a composed payload and returns the assistant text.
// *cloud.Gateway implements it.
type Completer interface {
	Complete(ctx context.Context, payload prompt.Payload) (string, error)
}

// Confirmer asks the user a yes/no question before a destructive action.
type Confirmer interface {
	Confirm(message string) bool
}

// ConfirmFunc adapts a function to the Confirmer interface.
type ConfirmFunc func(message string) bool

// Confirm calls f.
func (f ConfirmFunc) Confirm(message string) bool { return f(message) }

// =============================================================================
// STATE
// =============================================================================

// State is the controller's exchange state.
type State int

const (
	StateIdle State = iota
	StateSending
)

// String returns the state name.
func (s State) String() string {
	if s == StateSending {
		return "sending"
	}
	return "idle"
}

// Snapshot is a read-only view of the controller at one point in time.
type Snapshot struct {
	State        State
	Conversation model.Conversation
	Attachments  []model.Attachment
}

// Options configures a Controller. Store and Completer are required.
type Options struct {
	Store         storage.KV
	Completer     Completer
	Composer      *prompt.Composer
	Bridge        *attachment.Bridge
	Confirmer     Confirmer // nil answers yes to every question
	Logger        *slog.Logger
	MaxInputChars int // 0 uses DefaultMaxInputChars, negative disables the check
}

// =============================================================================
// CONTROLLER
// =============================================================================

// Controller owns the conversation and attachment registry and runs the
// request/response cycle. All methods are safe for concurrent use.
type Controller struct {
	completer Completer
	composer  prompt.Composer
	bridge    *attachment.Bridge
	confirmer Confirmer
	logger    *slog.Logger
	maxInput  int
	persist   *persister

	mu       sync.Mutex
	conv     model.Conversation
	registry *attachment.Registry
	state    State
	gen      uint64 // bumped by Clear so late replies are discarded
	closed   bool
	subs     map[int]chan Snapshot
	nextSub  int
}

// New creates a controller and hydrates it from opts.Store.
// Unreadable stored data is logged and skipped; it never fails New.
func New(opts Options) (*Controller, error) {
	if opts.Store == nil {
		return nil, errors.New("engine: Store is required")
	}
	if opts.Completer == nil {
		return nil, errors.New("engine: Completer is required")
	}

	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	composer := prompt.NewComposer()
	if opts.Composer != nil {
		composer = *opts.Composer
	}
	bridge := opts.Bridge
	if bridge == nil {
		bridge = attachment.NewBridge(model.MaxAttachmentBytes)
	}
	maxInput := opts.MaxInputChars
	if maxInput == 0 {
		maxInput = DefaultMaxInputChars
	}

	c := &Controller{
		completer: opts.Completer,
		composer:  composer,
		bridge:    bridge,
		confirmer: opts.Confirmer,
		logger:    logger,
		maxInput:  maxInput,
		persist:   newPersister(opts.Store, logger),
		registry:  attachment.NewRegistry(),
		subs:      make(map[int]chan Snapshot),
	}
	c.hydrate(opts.Store)
	return c, nil
}

// hydrate loads history and the registry. Corrupt records are dropped.
func (c *Controller) hydrate(kv storage.KV) {
	if raw, ok, err := kv.Get(storage.KeyChatHistory); err != nil {
		c.logger.Error("load history failed", "error", err)
	} else if ok {
		conv, dropped, err := storage.Hydrate([]byte(raw))
		if err != nil {
			c.logger.Error("decode history failed", "error", err)
		}
		if dropped > 0 {
			c.logger.Warn("dropped malformed history records", "count", dropped)
		}
		c.conv = conv
	}

	if raw, ok, err := kv.Get(storage.KeyUploadedFiles); err != nil {
		c.logger.Error("load attachments failed", "error", err)
	} else if ok {
		atts, dropped, err := storage.HydrateAttachments([]byte(raw))
		if err != nil {
			c.logger.Error("decode attachments failed", "error", err)
		}
		if dropped > 0 {
			c.logger.Warn("dropped malformed attachment records", "count", dropped)
		}
		c.registry = attachment.NewRegistry(atts...)
	}

	c.logger.Info("conversation loaded", "messages", c.conv.Len(), "attachments", c.registry.Len())
}

// Snapshot returns the current state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller) snapshotLocked() Snapshot {
	return Snapshot{
		State:        c.state,
		Conversation: c.conv,
		Attachments:  c.registry.List(),
	}
}

// State returns the current exchange state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// =============================================================================
// COMMANDS
// =============================================================================

// SubmitText sends a user message and waits for the exchange to settle.
//
// Blank or over-long text returns a *ValidationError with no side effect. A
// call made while another exchange is in flight returns ErrBusy. Gateway
// failures are not returned: they become the assistant reply.
func (c *Controller) SubmitText(ctx context.Context, text string) error {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return &ValidationError{Field: "text", Err: ErrEmptyText}
	}
	if c.maxInput > 0 && utf8.RuneCountInString(trimmed) > c.maxInput {
		return &ValidationError{
			Field: "text",
			Err:   fmt.Errorf("%w: %d characters, limit is %d", ErrTextTooLong, utf8.RuneCountInString(trimmed), c.maxInput),
		}
	}

	c.mu.Lock()
	if err := c.checkReadyLocked(); err != nil {
		c.mu.Unlock()
		return err
	}
	history := c.conv
	c.conv = c.conv.Append(model.NewUserMessage(trimmed))
	gen := c.beginLocked()
	c.persistHistoryLocked()
	payload := c.composer.Compose(history, c.registry.List(), trimmed)
	c.notifyLocked()
	c.mu.Unlock()

	ctx = logging.WithExchangeID(ctx, model.NewID("ex"))
	logging.FromContext(ctx, c.logger).Info("exchange started", "kind", "text", "history", history.Len())
	return c.finish(ctx, gen, payload)
}

// SubmitFile adds a picked file to the conversation and asks the assistant to
// acknowledge it. The file is also added to the attachment registry. The
// request carries the history from before the file message; the
// acknowledgment prompt stands in for it as the final turn.
//
// Files over the size bound return a *ValidationError wrapping
// attachment.ErrTooLarge with no side effect.
func (c *Controller) SubmitFile(ctx context.Context, d attachment.Descriptor) error {
	msg, err := c.bridge.ToMessage(d)
	if err != nil {
		return &ValidationError{Field: "file", Err: err}
	}
	promptText := c.bridge.ToPromptText(d)

	c.mu.Lock()
	if err := c.checkReadyLocked(); err != nil {
		c.mu.Unlock()
		return err
	}
	history := c.conv
	c.conv = c.conv.Append(msg)
	c.registry.Add(*msg.Attachment)
	gen := c.beginLocked()
	c.persistHistoryLocked()
	c.persistRegistryLocked()
	payload := c.composer.Compose(history, c.registry.List(), promptText)
	c.notifyLocked()
	c.mu.Unlock()

	ctx = logging.WithExchangeID(ctx, model.NewID("ex"))
	logging.FromContext(ctx, c.logger).Info("exchange started", "kind", "file", "mime", msg.Attachment.MIMEType, "bytes", msg.Attachment.ByteSize)
	return c.finish(ctx, gen, payload)
}

// Clear empties the conversation and removes the stored history. It is legal
// in any state and always leaves the controller Idle; a reply still in flight
// is discarded when it arrives. The attachment registry is kept.
//
// A submit made right after a Clear may start while the abandoned request is
// still outstanding. Only the current generation's reply is applied.
func (c *Controller) Clear() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	c.conv = c.conv.Clear()
	c.state = StateIdle
	c.gen++
	c.persist.remove(storage.KeyChatHistory)
	c.notifyLocked()
	c.mu.Unlock()

	c.logger.Info("conversation cleared")
	return c.Flush()
}

// RequestClear asks for confirmation, then clears. It reports whether the
// history was cleared.
func (c *Controller) RequestClear() (bool, error) {
	if !c.confirm(ClearPrompt) {
		return false, nil
	}
	return true, c.Clear()
}

// RemoveAttachment asks for confirmation, then drops the attachment with id
// from the registry. Messages already in the conversation are not touched.
func (c *Controller) RemoveAttachment(id string) (bool, error) {
	c.mu.Lock()
	att, ok := c.registry.Get(id)
	c.mu.Unlock()
	if !ok {
		return false, fmt.Errorf("attachment %q not found", id)
	}

	if !c.confirm(fmt.Sprintf(removePromptFormat, att.DisplayName)) {
		return false, nil
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return false, ErrClosed
	}
	_, removed := c.registry.Remove(id)
	if removed {
		c.persistRegistryLocked()
		c.notifyLocked()
	}
	c.mu.Unlock()

	if removed {
		c.logger.Info("attachment removed", "id", id)
	}
	return removed, c.Flush()
}

func (c *Controller) confirm(message string) bool {
	if c.confirmer == nil {
		return true
	}
	return c.confirmer.Confirm(message)
}

// =============================================================================
// EXCHANGE
// =============================================================================

func (c *Controller) checkReadyLocked() error {
	if c.closed {
		return ErrClosed
	}
	if c.state == StateSending {
		return ErrBusy
	}
	return nil
}

// beginLocked moves to Sending and returns the generation of this exchange.
func (c *Controller) beginLocked() uint64 {
	c.state = StateSending
	return c.gen
}

// finish runs the exchange, appends the reply, and waits for persistence.
func (c *Controller) finish(ctx context.Context, gen uint64, payload prompt.Payload) error {
	reply := c.exchange(ctx, payload)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if gen != c.gen {
		c.mu.Unlock()
		logging.FromContext(ctx, c.logger).Info("discarding reply for cleared conversation")
		return c.Flush()
	}
	c.conv = c.conv.Append(model.NewAssistantMessage(reply))
	c.state = StateIdle
	c.persistHistoryLocked()
	c.notifyLocked()
	c.mu.Unlock()

	return c.Flush()
}

// exchange calls the completer and always returns displayable text.
func (c *Controller) exchange(ctx context.Context, payload prompt.Payload) (reply string) {
	logger := logging.FromContext(ctx, c.logger)
	defer func() {
		if r := recover(); r != nil {
			logger.Error("completer panicked", "panic", r)
			reply = ServerText
		}
	}()

	text, err := c.completer.Complete(ctx, payload)
	if err != nil {
		kind, _ := cloud.KindOf(err)
		logger.Warn("exchange failed", "kind", kind.String(), "error", err)
		return FailureText(err)
	}
	if strings.TrimSpace(text) == "" {
		logger.Warn("exchange returned empty reply")
		return MalformedText
	}
	logger.Info("exchange completed", "reply_chars", utf8.RuneCountInString(text))
	return text
}

// =============================================================================
// PERSISTENCE
// =============================================================================

func (c *Controller) persistHistoryLocked() {
	data, err := storage.Serialize(c.conv)
	if err != nil {
		c.logger.Error("serialize history failed", "error", err)
		return
	}
	c.persist.set(storage.KeyChatHistory, string(data))
}

func (c *Controller) persistRegistryLocked() {
	data, err := storage.SerializeAttachments(c.registry.List())
	if err != nil {
		c.logger.Error("serialize attachments failed", "error", err)
		return
	}
	c.persist.set(storage.KeyUploadedFiles, string(data))
}

// Flush waits until every write queued so far has been applied.
func (c *Controller) Flush() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	done := c.persist.barrier()
	c.mu.Unlock()
	<-done
	return nil
}

// PersistenceFailures returns the number of writes that failed so far.
func (c *Controller) PersistenceFailures() int64 {
	return c.persist.failures.Load()
}

// Close drains pending writes and closes every subscription. The store
// itself is not closed.
func (c *Controller) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	for id, ch := range c.subs {
		close(ch)
		delete(c.subs, id)
	}
	c.mu.Unlock()

	c.persist.close()
	return nil
}

// =============================================================================
// OBSERVERS
// =============================================================================

// Subscribe returns a channel that receives a snapshot after every change.
// The channel holds only the newest snapshot; a slow reader skips
// intermediate ones. The returned func unsubscribes.
func (c *Controller) Subscribe() (<-chan Snapshot, func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ch := make(chan Snapshot, 1)
	if c.closed {
		close(ch)
		return ch, func() {}
	}

	id := c.nextSub
	c.nextSub++
	c.subs[id] = ch
	ch <- c.snapshotLocked()

	return ch, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if sub, ok := c.subs[id]; ok {
			close(sub)
			delete(c.subs, id)
		}
	}
}

func (c *Controller) notifyLocked() {
	if len(c.subs) == 0 {
		return
	}
	snap := c.snapshotLocked()
	for _, ch := range c.subs {
		// Replace any unread snapshot with the newest one
		select {
		case <-ch:
		default:
		}
		ch <- snap
	}
}
