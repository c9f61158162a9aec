// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/filechat/internal/commands"
	"github.com/jeranaias/filechat/internal/engine"
	"github.com/jeranaias/filechat/internal/ui/components"
	"github.com/jeranaias/filechat/internal/ui/styles"
)

// Session is what the view needs from the controller.
// *engine.Controller implements it.
type Session interface {
	commands.Session
	SubmitText(ctx context.Context, text string) error
	Subscribe() (<-chan engine.Snapshot, func())
}

// Options configures a Model.
type Options struct {
	Session Session
	Theme   *styles.Theme

	// Markdown renders assistant replies with glamour
	Markdown bool

	// MaxInputChars limits the text input (0 = engine.DefaultMaxInputChars)
	MaxInputChars int

	// ModelName is shown in the header
	ModelName string

	// Context bounds every exchange started from the view
	Context context.Context

	// CopyText overrides the clipboard writer (tests)
	CopyText func(string) error
}

// Fixed rows outside the viewport: header, typing line, status line,
// input border and input line, footer.
const chromeHeight = 6

// =============================================================================
// CHAT MODEL
// =============================================================================

// Model is the Bubble Tea model for the chat view.
type Model struct {
	ctx     context.Context
	session Session
	updates <-chan engine.Snapshot
	cancel  func()

	theme    *styles.Theme
	keys     KeyMap
	renderer components.MessageRenderer

	registry  *commands.Registry
	parser    *commands.Parser
	completer *commands.Completer
	env       *commands.Env

	viewport viewport.Model
	input    textinput.Model
	typing   components.TypingIndicator

	snap      engine.Snapshot
	status    string
	statusErr bool
	confirm   *confirmRequestMsg

	modelName string
	maxInput  int
	width     int
	height    int
	ready     bool
	quitting  bool
}

// New creates a chat model subscribed to opts.Session.
func New(opts Options) Model {
	theme := opts.Theme
	if theme == nil {
		theme = styles.NewTheme("")
	}
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}
	maxInput := opts.MaxInputChars
	if maxInput <= 0 {
		maxInput = engine.DefaultMaxInputChars
	}

	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask me anything..."
	ti.CharLimit = maxInput
	ti.PromptStyle = theme.InputPrompt
	ti.Focus()

	registry := commands.NewRegistry()
	updates, cancel := opts.Session.Subscribe()

	return Model{
		ctx:       ctx,
		session:   opts.Session,
		updates:   updates,
		cancel:    cancel,
		theme:     theme,
		keys:      DefaultKeyMap(),
		renderer:  components.MessageRenderer{Theme: theme, Markdown: components.NewMarkdown(opts.Markdown, theme.IsDark)},
		registry:  registry,
		parser:    commands.NewParser(registry),
		completer: commands.NewCompleter(registry),
		env:       &commands.Env{Session: opts.Session, CopyText: opts.CopyText, ModelName: opts.ModelName},
		viewport:  viewport.New(80, 20),
		input:     ti,
		typing:    components.NewTypingIndicator(theme),
		snap:      opts.Session.Snapshot(),
		modelName: opts.ModelName,
		maxInput:  maxInput,
	}
}

// Init starts listening for controller updates.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, waitForSnapshot(m.updates))
}

// =============================================================================
// UPDATE
// =============================================================================

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case snapshotMsg:
		cmd := m.applySnapshot(engine.Snapshot(msg))
		return m, tea.Batch(cmd, waitForSnapshot(m.updates))

	case subscriptionClosedMsg:
		m.quitting = true
		return m, tea.Quit

	case submitDoneMsg:
		if msg.Err != nil {
			m.setStatus(commands.DescribeError(msg.Err), true)
		}
		return m, nil

	case commandDoneMsg:
		if msg.Err != nil {
			m.setStatus(commands.DescribeError(msg.Err), true)
			return m, nil
		}
		m.setStatus(msg.Result.Output, false)
		if msg.Result.Quit {
			return m.quit()
		}
		return m, nil

	case confirmRequestMsg:
		if m.confirm != nil {
			// One question at a time; a second asker is told no.
			msg.reply <- false
			return m, nil
		}
		m.confirm = &msg
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	var cmd tea.Cmd
	m.typing, cmd = m.typing.Update(msg)
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.confirm != nil {
		switch {
		case key.Matches(msg, m.keys.Yes):
			m.answer(true)
		case key.Matches(msg, m.keys.No), key.Matches(msg, m.keys.Quit):
			m.answer(false)
		}
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m.quit()

	case key.Matches(msg, m.keys.Submit):
		return m.submit()

	case key.Matches(msg, m.keys.Complete):
		m.complete()
		return m, nil

	case key.Matches(msg, m.keys.Copy):
		return m, m.run("/copy")

	case key.Matches(msg, m.keys.Clear):
		return m, m.run("/clear")

	case key.Matches(msg, m.keys.PageUp):
		m.viewport.HalfViewUp()
		return m, nil

	case key.Matches(msg, m.keys.PageDown):
		m.viewport.HalfViewDown()
		return m, nil

	case key.Matches(msg, m.keys.Top):
		m.viewport.GotoTop()
		return m, nil

	case key.Matches(msg, m.keys.Bottom):
		m.viewport.GotoBottom()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// submit sends the input line as a command or a chat message.
func (m Model) submit() (tea.Model, tea.Cmd) {
	value := m.input.Value()
	if strings.TrimSpace(value) == "" {
		return m, nil
	}

	if commands.IsCommand(value) {
		m.input.Reset()
		m.setStatus("", false)
		return m, m.run(value)
	}

	if m.snap.State == engine.StateSending {
		m.setStatus(commands.DescribeError(engine.ErrBusy), true)
		return m, nil
	}
	m.input.Reset()
	m.setStatus("", false)
	return m, submitText(m.ctx, m.session, value)
}

func (m Model) run(line string) tea.Cmd {
	return runCommand(m.ctx, m.registry, m.env, m.parser.Parse(line))
}

// complete fills in the single candidate, or the common prefix of several.
func (m *Model) complete() {
	candidates := m.completer.Complete(m.input.Value())
	switch len(candidates) {
	case 0:
		return
	case 1:
		m.input.SetValue(candidates[0])
	default:
		m.input.SetValue(commonPrefix(candidates))
		m.setStatus(strings.Join(candidates, "  "), false)
	}
	m.input.CursorEnd()
}

func (m *Model) answer(yes bool) {
	if m.confirm == nil {
		return
	}
	m.confirm.reply <- yes
	m.confirm = nil
}

func (m Model) quit() (tea.Model, tea.Cmd) {
	m.answer(false)
	m.quitting = true
	if m.cancel != nil {
		m.cancel()
	}
	return m, tea.Quit
}

func (m *Model) setStatus(text string, isErr bool) {
	m.status = strings.TrimSpace(text)
	m.statusErr = isErr
	if m.ready {
		m.layout()
	}
}

// =============================================================================
// SNAPSHOT AND LAYOUT
// =============================================================================

func (m *Model) applySnapshot(snap engine.Snapshot) tea.Cmd {
	grew := snap.Conversation.Len() != m.snap.Conversation.Len()
	follow := m.viewport.AtBottom() || grew
	m.snap = snap
	m.refreshContent()
	if follow {
		m.viewport.GotoBottom()
	}

	if snap.State == engine.StateSending {
		return m.typing.Start()
	}
	m.typing.Stop()
	return nil
}

func (m *Model) resize(width, height int) {
	m.width, m.height = width, height
	m.theme.SetSize(width, height)
	m.viewport.Width = width
	m.input.Width = width - 4 - len(m.input.Prompt)
	m.ready = true
	m.layout()
	m.refreshContent()
	m.viewport.GotoBottom()
}

// layout gives the viewport whatever the chrome and status block leave.
func (m *Model) layout() {
	extra := lipgloss.Height(m.statusView()) - 1
	if extra < 0 {
		extra = 0
	}
	vh := m.height - chromeHeight - extra
	if vh < 1 {
		vh = 1
	}
	m.viewport.Height = vh
}

// refreshContent re-renders every message into the viewport.
func (m *Model) refreshContent() {
	msgs := m.snap.Conversation.Messages()
	parts := make([]string, 0, len(msgs))
	for _, msg := range msgs {
		parts = append(parts, m.renderer.Render(msg, m.viewport.Width))
	}
	m.viewport.SetContent(strings.Join(parts, "\n\n"))
}

func commonPrefix(items []string) string {
	if len(items) == 0 {
		return ""
	}
	prefix := items[0]
	for _, s := range items[1:] {
		for !strings.HasPrefix(s, prefix) {
			prefix = prefix[:len(prefix)-1]
		}
	}
	return prefix
}

// =============================================================================
// RUN
// =============================================================================

// Run starts the full-screen program and blocks until the user quits or ctx
// is cancelled.
func Run(ctx context.Context, opts Options, bridge *ConfirmBridge) error {
	opts.Context = ctx
	p := tea.NewProgram(New(opts), tea.WithAltScreen(), tea.WithMouseCellMotion())

	if bridge != nil {
		bridge.Attach(p.Send)
		defer bridge.Attach(nil)
	}

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			p.Quit()
		case <-done:
		}
	}()

	_, err := p.Run()
	return err
}
