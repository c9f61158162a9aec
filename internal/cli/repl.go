// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"

	"github.com/jeranaias/filechat/internal/attachment"
	"github.com/jeranaias/filechat/internal/commands"
	"github.com/jeranaias/filechat/internal/engine"
	"github.com/jeranaias/filechat/internal/logging"
	"github.com/jeranaias/filechat/internal/model"
	"github.com/jeranaias/filechat/internal/picker"
	"github.com/jeranaias/filechat/internal/ui/components"
	"github.com/jeranaias/filechat/internal/util"
)

// LineReader is a line editor. *liner.State implements it.
type LineReader interface {
	Prompt(prompt string) (string, error)
	AppendHistory(item string)
}

// Session is what line mode drives. *engine.Controller implements it.
type Session interface {
	commands.Session
	SubmitText(ctx context.Context, text string) error
}

// =============================================================================
// INPUT HISTORY
// =============================================================================

// historyFileName lives in the config directory.
const historyFileName = "chat_history"

// LineEditor wraps liner with history persisted to disk.
type LineEditor struct {
	*liner.State
	historyFile string
}

// NewLineEditor opens a liner session and loads history from historyFile.
// An empty historyFile disables persistence.
func NewLineEditor(historyFile string, complete func(string) []string) *LineEditor {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)
	if complete != nil {
		line.SetCompleter(complete)
	}
	e := &LineEditor{State: line, historyFile: historyFile}
	e.LoadHistory()
	return e
}

// LoadHistory reads saved input history. A missing file is not an error.
func (e *LineEditor) LoadHistory() {
	if e.historyFile == "" {
		return
	}
	f, err := os.Open(e.historyFile)
	if err != nil {
		return
	}
	defer f.Close()
	e.ReadHistory(f)
}

// SaveHistory writes input history.
// SECURITY: History may contain pasted content; written 0600.
func (e *LineEditor) SaveHistory() error {
	if e.historyFile == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(e.historyFile), 0700); err != nil {
		return err
	}
	var buf bytes.Buffer
	if _, err := e.WriteHistory(&buf); err != nil {
		return err
	}
	return util.AtomicWriteFile(e.historyFile, buf.Bytes(), 0600)
}

// Close saves history and restores the terminal.
func (e *LineEditor) Close() error {
	saveErr := e.SaveHistory()
	if err := e.State.Close(); err != nil {
		return err
	}
	return saveErr
}

// =============================================================================
// REPL
// =============================================================================

// REPLOptions configures line mode.
type REPLOptions struct {
	// Markdown renders replies with glamour (colors on)
	Markdown bool
	Dark     bool

	// Width wraps output; 0 uses DefaultTerminalWidth
	Width int

	// ModelName is shown in the banner
	ModelName string

	// CopyText overrides the clipboard writer (tests)
	CopyText func(string) error
}

// REPL is the line-mode chat loop.
type REPL struct {
	session  Session
	reader   LineReader
	out      io.Writer
	registry *commands.Registry
	parser   *commands.Parser
	env      *commands.Env
	md       *components.Markdown
	width    int
	model    string

	// interrupts swallows SIGINT for the duration of one line
	interrupts func() (<-chan os.Signal, func())
}

func watchInterrupts() (<-chan os.Signal, func()) {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt)
	return ch, func() { signal.Stop(ch) }
}

// NewREPL creates a line-mode chat over session. /file without a path asks
// for one on reader.
func NewREPL(session Session, reader LineReader, out io.Writer, opts REPLOptions) *REPL {
	registry := commands.NewRegistry()
	width := opts.Width
	if width <= 0 {
		width = DefaultTerminalWidth
	}
	return &REPL{
		session:  session,
		reader:   reader,
		out:      out,
		registry: registry,
		parser:   commands.NewParser(registry),
		env: &commands.Env{
			Session:   session,
			Picker:    picker.NewLinePicker(reader.Prompt),
			CopyText:  opts.CopyText,
			ModelName: opts.ModelName,
		},
		md:         components.NewMarkdown(opts.Markdown, opts.Dark),
		width:      width,
		model:      opts.ModelName,
		interrupts: watchInterrupts,
	}
}

// Run reads lines until /quit, Ctrl+D, or Ctrl+C at the prompt.
// Ctrl+C while a reply is pending is ignored; exchanges are never cancelled
// mid-flight.
func (r *REPL) Run(ctx context.Context) error {
	r.printWelcome()

	for {
		if err := ctx.Err(); err != nil {
			return nil
		}

		line, err := r.reader.Prompt(promptStyle.Render("you") + " > ")
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
				fmt.Fprintln(r.out)
				return nil
			}
			return fmt.Errorf("read input: %w", err)
		}

		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}
		r.reader.AppendHistory(input)

		if quit := r.handle(ctx, input); quit {
			return nil
		}
	}
}

// handle runs one line and reports whether the loop should stop.
func (r *REPL) handle(ctx context.Context, input string) bool {
	before := r.session.Snapshot().Conversation.Len()

	sigs, release := r.interrupts()
	done := make(chan struct{})
	defer release()
	defer close(done)
	go func() {
		for {
			select {
			case <-sigs:
				logging.Logger().Debug("interrupt ignored while a reply is pending")
			case <-done:
				return
			}
		}
	}()

	if commands.IsCommand(input) {
		res, err := r.registry.Execute(ctx, r.env, r.parser.Parse(input))
		if err != nil {
			r.printError(err)
			return false
		}
		if res.Output != "" {
			fmt.Fprintln(r.out, res.Output)
		}
		r.printNew(before)
		return res.Quit
	}

	fmt.Fprintln(r.out, typingStyle.Render("Assistant is typing..."))
	if err := r.session.SubmitText(ctx, input); err != nil {
		r.printError(err)
		return false
	}
	r.printNew(before)
	return false
}

// printNew prints file cards and replies appended since index from.
func (r *REPL) printNew(from int) {
	conv := r.session.Snapshot().Conversation
	for i := from; i < conv.Len(); i++ {
		msg := conv.At(i)
		switch {
		case msg.IsFile():
			r.printFile(*msg.Attachment)
		case msg.Role == model.RoleAssistant:
			r.printReply(msg.Text)
		}
	}
}

func (r *REPL) printReply(text string) {
	fmt.Fprintln(r.out, welcomeStyle.Render("assistant")+":")
	fmt.Fprintln(r.out, strings.TrimRight(r.md.Render(text, r.width), "\n"))
	fmt.Fprintln(r.out)
}

func (r *REPL) printFile(att model.Attachment) {
	cat := attachment.CategoryOf(att.MIMEType)
	fmt.Fprintf(r.out, "%s %s  %s\n",
		cat.Icon(),
		fileStyle.Render(att.DisplayName),
		infoStyle.Render(attachment.FormatFileSize(att.ByteSize)+" · "+string(cat)))
}

func (r *REPL) printError(err error) {
	fmt.Fprintln(r.out, errorStyle.Render(commands.DescribeError(err)))
}

func (r *REPL) printWelcome() {
	snap := r.session.Snapshot()
	title := "filechat"
	if r.model != "" {
		title += " (" + r.model + ")"
	}
	fmt.Fprintln(r.out, welcomeStyle.Render(title))

	if snap.Conversation.IsEmpty() {
		fmt.Fprintln(r.out, commands.EmptyTitle)
		fmt.Fprintln(r.out, infoStyle.Render(commands.EmptySubtitle))
	} else {
		fmt.Fprintln(r.out, infoStyle.Render(fmt.Sprintf("Restored %d messages.", snap.Conversation.Len())))
		if last, ok := snap.Conversation.LastAssistantMessage(); ok {
			r.printReply(last.Text)
		}
	}
	if n := len(snap.Attachments); n > 0 {
		fmt.Fprintln(r.out, infoStyle.Render(commands.FilesAvailable(n)))
	}
	fmt.Fprintln(r.out, infoStyle.Render("Type /help for commands, /quit to leave."))
	fmt.Fprintln(r.out)
}

// Verify interface compliance.
var (
	_ LineReader       = (*liner.State)(nil)
	_ Session          = (*engine.Controller)(nil)
	_ engine.Confirmer = (*LineConfirmer)(nil)
)

// newLineCompleter completes command names and /file paths on Tab.
func newLineCompleter() func(string) []string {
	return commands.NewCompleter(commands.NewRegistry()).Complete
}
