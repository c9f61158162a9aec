// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package commands

import (
	"context"
	"fmt"
	"sort"
)

// =============================================================================
// COMMAND DEFINITION
// =============================================================================

// Handler executes a command.
type Handler func(ctx context.Context, env *Env, args []string) (Result, error)

// Command represents a slash command that can be executed.
type Command struct {
	// Name is the primary command name (e.g., "/help")
	Name string

	// Aliases are alternative names (e.g., "/h", "/?")
	Aliases []string

	// Description is shown in help and completion
	Description string

	// Usage shows argument syntax (e.g., "/rm <n>")
	Usage string

	// MinArgs is the number of required arguments
	MinArgs int

	// RestOfLine passes everything after the name as a single argument, so
	// unquoted paths with spaces survive
	RestOfLine bool

	Handler Handler

	// Hidden commands don't appear in help
	Hidden bool
}

// Result is what a command produced.
type Result struct {
	// Output is shown to the user as-is (may be empty)
	Output string

	// Quit asks the host to exit
	Quit bool
}

// =============================================================================
// COMMAND REGISTRY
// =============================================================================

// Registry holds all registered commands.
type Registry struct {
	commands map[string]*Command
	aliases  map[string]*Command
}

// NewRegistry creates a new command registry with all built-in commands.
func NewRegistry() *Registry {
	r := &Registry{
		commands: make(map[string]*Command),
		aliases:  make(map[string]*Command),
	}
	r.registerBuiltins()
	return r
}

// Register adds a command to the registry.
func (r *Registry) Register(cmd *Command) {
	r.commands[cmd.Name] = cmd
	for _, alias := range cmd.Aliases {
		r.aliases[alias] = cmd
	}
}

// Get retrieves a command by name or alias.
func (r *Registry) Get(name string) *Command {
	if cmd, ok := r.commands[name]; ok {
		return cmd
	}
	if cmd, ok := r.aliases[name]; ok {
		return cmd
	}
	return nil
}

// All returns the visible commands sorted by name.
func (r *Registry) All() []*Command {
	cmds := make([]*Command, 0, len(r.commands))
	for _, cmd := range r.commands {
		if !cmd.Hidden {
			cmds = append(cmds, cmd)
		}
	}
	sort.Slice(cmds, func(i, j int) bool { return cmds[i].Name < cmds[j].Name })
	return cmds
}

// Execute runs a parsed command.
func (r *Registry) Execute(ctx context.Context, env *Env, parsed ParseResult) (Result, error) {
	if !parsed.IsCommand {
		return Result{}, fmt.Errorf("not a command: %q", parsed.RawInput)
	}
	if parsed.Command == nil {
		return Result{}, &UnknownCommandError{Name: parsed.CommandName}
	}
	args := parsed.Args
	if parsed.Command.RestOfLine {
		args = nil
		if parsed.RawArgs != "" {
			args = []string{parsed.RawArgs}
		}
	}
	if len(args) < parsed.Command.MinArgs {
		return Result{}, &UsageError{Command: parsed.Command.Name, Usage: parsed.Command.Usage}
	}
	return parsed.Command.Handler(ctx, env, args)
}

// =============================================================================
// BUILT-IN COMMANDS
// =============================================================================

func (r *Registry) registerBuiltins() {
	r.Register(&Command{
		Name:        "/help",
		Aliases:     []string{"/h", "/?"},
		Description: "Show available commands",
		Handler: func(ctx context.Context, env *Env, args []string) (Result, error) {
			return Result{Output: r.HelpText()}, nil
		},
	})

	r.Register(&Command{
		Name:        "/quit",
		Aliases:     []string{"/q", "/exit"},
		Description: "Exit filechat",
		Handler:     handleQuit,
	})

	r.Register(&Command{
		Name:        "/file",
		Aliases:     []string{"/f", "/upload"},
		Description: "Attach a file and ask about it",
		Usage:       "/file <path>",
		RestOfLine:  true,
		Handler:     handleFile,
	})

	r.Register(&Command{
		Name:        "/files",
		Aliases:     []string{"/ls"},
		Description: "List attached files",
		Handler:     handleFiles,
	})

	r.Register(&Command{
		Name:        "/rm",
		Aliases:     []string{"/remove"},
		Description: "Remove a file from the list",
		Usage:       "/rm <n>",
		MinArgs:     1,
		Handler:     handleRemove,
	})

	r.Register(&Command{
		Name:        "/clear",
		Aliases:     []string{"/c"},
		Description: "Clear chat history",
		Handler:     handleClear,
	})

	r.Register(&Command{
		Name:        "/copy",
		Description: "Copy the last reply to the clipboard",
		Handler:     handleCopy,
	})

	r.Register(&Command{
		Name:        "/export",
		Aliases:     []string{"/save"},
		Description: "Save the conversation as Markdown or JSON",
		Usage:       "/export [md|json]",
		Handler:     handleExport,
	})
}
