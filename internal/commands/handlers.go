// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package commands

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/atotto/clipboard"

	"github.com/jeranaias/filechat/internal/attachment"
	"github.com/jeranaias/filechat/internal/engine"
	"github.com/jeranaias/filechat/internal/export"
	"github.com/jeranaias/filechat/internal/picker"
)

// =============================================================================
// ENVIRONMENT
// =============================================================================

// Session is the part of the chat controller commands drive.
// *engine.Controller implements it.
type Session interface {
	SubmitFile(ctx context.Context, d attachment.Descriptor) error
	RequestClear() (bool, error)
	RemoveAttachment(id string) (bool, error)
	Snapshot() engine.Snapshot
}

// Env is what handlers may touch.
type Env struct {
	Session Session

	// Picker is used by /file when no path is given. Nil means a path is required.
	Picker picker.Picker

	// CopyText writes to the system clipboard. Nil uses the clipboard package.
	CopyText func(string) error

	// ExportDir receives /export files. Empty means the working directory.
	ExportDir string

	// ModelName is recorded in exports.
	ModelName string
}

func (e *Env) copyText(s string) error {
	if e.CopyText != nil {
		return e.CopyText(s)
	}
	return clipboard.WriteAll(s)
}

// =============================================================================
// ERRORS
// =============================================================================

// ErrNothingToCopy is returned by /copy before the first reply.
var ErrNothingToCopy = errors.New("no reply to copy yet")

// ErrNothingToExport is returned by /export before the first message.
var ErrNothingToExport = errors.New("nothing to export yet")

// UnknownCommandError is returned for an unregistered command name.
type UnknownCommandError struct {
	Name string
}

func (e *UnknownCommandError) Error() string {
	return fmt.Sprintf("unknown command %s (try /help)", e.Name)
}

// UsageError is returned when required arguments are missing or malformed.
type UsageError struct {
	Command string
	Usage   string
	Reason  string
}

func (e *UsageError) Error() string {
	msg := "usage: " + e.Usage
	if e.Reason != "" {
		msg = e.Reason + ", " + msg
	}
	return msg
}

// =============================================================================
// HANDLERS
// =============================================================================

func handleQuit(ctx context.Context, env *Env, args []string) (Result, error) {
	return Result{Quit: true}, nil
}

func handleFile(ctx context.Context, env *Env, args []string) (Result, error) {
	var p picker.Picker
	switch {
	case len(args) > 0:
		p = picker.Static(args[0])
	case env.Picker != nil:
		p = env.Picker
	default:
		return Result{}, &UsageError{Command: "/file", Usage: "/file <path>"}
	}

	d, err := p.Pick(ctx)
	if errors.Is(err, picker.ErrPickCancelled) {
		return Result{Output: "Cancelled."}, nil
	}
	if err != nil {
		return Result{}, err
	}
	if err := env.Session.SubmitFile(ctx, d); err != nil {
		return Result{}, err
	}
	return Result{}, nil
}

func handleFiles(ctx context.Context, env *Env, args []string) (Result, error) {
	return Result{Output: FormatFileList(env.Session.Snapshot().Attachments)}, nil
}

func handleRemove(ctx context.Context, env *Env, args []string) (Result, error) {
	atts := env.Session.Snapshot().Attachments
	n, err := strconv.Atoi(strings.TrimSpace(args[0]))
	if err != nil || n < 1 || n > len(atts) {
		reason := fmt.Sprintf("no file number %q", args[0])
		if len(atts) == 0 {
			reason = "no files attached"
		}
		return Result{}, &UsageError{Command: "/rm", Usage: "/rm <n>", Reason: reason}
	}

	target := atts[n-1]
	removed, err := env.Session.RemoveAttachment(target.ID)
	if err != nil {
		return Result{}, err
	}
	if !removed {
		return Result{Output: "Kept " + target.DisplayName + "."}, nil
	}
	return Result{Output: "Removed " + target.DisplayName + "."}, nil
}

func handleClear(ctx context.Context, env *Env, args []string) (Result, error) {
	cleared, err := env.Session.RequestClear()
	if err != nil {
		return Result{}, err
	}
	if !cleared {
		return Result{Output: "History kept."}, nil
	}
	return Result{Output: "Chat history cleared."}, nil
}

func handleCopy(ctx context.Context, env *Env, args []string) (Result, error) {
	reply, ok := env.Session.Snapshot().Conversation.LastAssistantMessage()
	if !ok {
		return Result{}, ErrNothingToCopy
	}
	if err := env.copyText(reply.Text); err != nil {
		return Result{}, fmt.Errorf("copy to clipboard: %w", err)
	}
	return Result{Output: "Copied last reply to clipboard."}, nil
}

func handleExport(ctx context.Context, env *Env, args []string) (Result, error) {
	format := ""
	if len(args) > 0 {
		format = args[0]
	}
	exporter, err := export.ForFormat(format)
	if err != nil {
		return Result{}, &UsageError{Command: "/export", Usage: "/export [md|json]", Reason: err.Error()}
	}

	snap := env.Session.Snapshot()
	doc := export.Document{
		Title:        export.DefaultTitle(snap.Conversation),
		Model:        env.ModelName,
		Conversation: snap.Conversation,
		Attachments:  snap.Attachments,
	}
	path, err := export.ExportToFile(doc, exporter, env.ExportDir)
	if errors.Is(err, export.ErrEmpty) {
		return Result{}, ErrNothingToExport
	}
	if err != nil {
		return Result{}, err
	}
	return Result{Output: fmt.Sprintf("Exported %d messages to %s.", snap.Conversation.Len(), path)}, nil
}
