// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"io"
	"strings"
)

// LineConfirmer asks yes/no questions on the line reader. It implements the
// controller's Confirmer. Anything but y or yes is a no, as is a read error.
type LineConfirmer struct {
	reader LineReader
	out    io.Writer
}

// NewLineConfirmer creates a confirmer that prompts through reader.
func NewLineConfirmer(reader LineReader, out io.Writer) *LineConfirmer {
	return &LineConfirmer{reader: reader, out: out}
}

// Confirm shows message and waits for an answer.
func (c *LineConfirmer) Confirm(message string) bool {
	answer, err := c.reader.Prompt(message + " [y/N]: ")
	if err != nil {
		fmt.Fprintln(c.out)
		return false
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}
