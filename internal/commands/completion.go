// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package commands

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Completer handles tab completion for command names and /file paths.
type Completer struct {
	registry *Registry
}

// NewCompleter creates a new completer with the given registry.
func NewCompleter(registry *Registry) *Completer {
	return &Completer{registry: registry}
}

// Complete returns full-line candidates for input. Only slash commands complete.
func (c *Completer) Complete(input string) []string {
	trimmed := strings.TrimLeft(input, " ")
	if !strings.HasPrefix(trimmed, "/") {
		return nil
	}

	name := ExtractCommandName(trimmed)
	if len(name) == len(trimmed) {
		return c.completeNames(strings.ToLower(name))
	}

	cmd := c.registry.Get(strings.ToLower(name))
	if cmd == nil || cmd.Name != "/file" {
		return nil
	}
	partial := strings.TrimLeft(trimmed[len(name):], " ")
	var out []string
	for _, p := range completePath(partial) {
		out = append(out, cmd.Name+" "+p)
	}
	return out
}

func (c *Completer) completeNames(prefix string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, cmd := range c.registry.All() {
		if strings.HasPrefix(cmd.Name, prefix) && !seen[cmd.Name] {
			seen[cmd.Name] = true
			out = append(out, cmd.Name)
		}
	}
	sort.Strings(out)
	return out
}

// completePath lists entries in the directory of partial that start with its
// base name. Directories get a trailing separator. Hidden files are skipped
// unless the base starts with a dot.
func completePath(partial string) []string {
	dir, base := filepath.Split(partial)
	readDir := dir
	if readDir == "" {
		readDir = "."
	}
	entries, err := os.ReadDir(readDir)
	if err != nil {
		return nil
	}

	var out []string
	for _, e := range entries {
		name := e.Name()
		if !strings.HasPrefix(name, base) {
			continue
		}
		if strings.HasPrefix(name, ".") && !strings.HasPrefix(base, ".") {
			continue
		}
		candidate := dir + name
		if e.IsDir() {
			candidate += string(filepath.Separator)
		}
		out = append(out, candidate)
	}
	sort.Strings(out)
	return out
}
