// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"strings"
)

// =============================================================================
// ARG PARSER
// =============================================================================

// ArgParser splits raw arguments into flags and positionals.
//
// Supported flag formats:
//
//	--flag value     Long flag with space-separated value
//	--flag=value     Long flag with equals sign
//	-f value         Short flag with space-separated value
//	--flag           Boolean flag (no value)
//
// Names listed in boolNames never consume the following argument.
type ArgParser struct {
	flags      map[string]string
	boolFlags  map[string]bool
	positional []string
}

// NewArgParser parses raw. boolNames lists flags that take no value.
func NewArgParser(raw []string, boolNames ...string) *ArgParser {
	isBool := make(map[string]bool, len(boolNames))
	for _, n := range boolNames {
		isBool[n] = true
	}

	p := &ArgParser{
		flags:     make(map[string]string),
		boolFlags: make(map[string]bool),
	}

	for i := 0; i < len(raw); i++ {
		arg := raw[i]
		if arg == "--" {
			p.positional = append(p.positional, raw[i+1:]...)
			break
		}
		if !strings.HasPrefix(arg, "-") || arg == "-" {
			p.positional = append(p.positional, arg)
			continue
		}

		name := strings.TrimLeft(arg, "-")
		if eq := strings.Index(name, "="); eq >= 0 {
			key, value := name[:eq], name[eq+1:]
			if isBool[key] {
				p.boolFlags[key] = value == "true" || value == "1"
			} else {
				p.flags[key] = value
			}
			continue
		}

		if !isBool[name] && i+1 < len(raw) && !strings.HasPrefix(raw[i+1], "-") {
			p.flags[name] = raw[i+1]
			i++
			continue
		}
		p.boolFlags[name] = true
	}
	return p
}

// Flag returns the first non-empty value among names.
func (p *ArgParser) Flag(names ...string) string {
	for _, n := range names {
		if v, ok := p.flags[n]; ok {
			return v
		}
	}
	return ""
}

// BoolFlag reports whether any of names was given.
func (p *ArgParser) BoolFlag(names ...string) bool {
	for _, n := range names {
		if p.boolFlags[n] {
			return true
		}
	}
	return false
}

// Positional returns the positional argument at index, or "".
func (p *ArgParser) Positional(index int) string {
	if index < 0 || index >= len(p.positional) {
		return ""
	}
	return p.positional[index]
}

// PositionalArgs returns every positional argument.
func (p *ArgParser) PositionalArgs() []string {
	return p.positional
}

// =============================================================================
// COMMANDS
// =============================================================================

// Command is the top-level action selected on the command line.
type Command int

const (
	CmdChat Command = iota
	CmdConfig
	CmdVersion
	CmdHelp
)

// Args holds parsed command line arguments.
type Args struct {
	Command Command

	// Global flags
	Plain      bool   // line mode even on a terminal
	ConfigPath string // explicit config file
	Model      string // completion model override
	Storage    string // storage backend override
	LogLevel   string // log level override

	// Subcommand and its operands, e.g. "set" ["ui.theme", "light"]
	Subcommand string
	Operands   []string
}

// boolFlagNames are the flags that never take a value.
var boolFlagNames = []string{"plain", "help", "h", "version", "v"}

// ParseArgs parses the arguments after the program name.
func ParseArgs(raw []string) (Args, error) {
	p := NewArgParser(raw, boolFlagNames...)
	args := Args{
		Plain:      p.BoolFlag("plain"),
		ConfigPath: p.Flag("config", "c"),
		Model:      p.Flag("model", "m"),
		Storage:    p.Flag("storage"),
		LogLevel:   p.Flag("log-level"),
	}

	if p.BoolFlag("help", "h") {
		args.Command = CmdHelp
		return args, nil
	}
	if p.BoolFlag("version", "v") {
		args.Command = CmdVersion
		return args, nil
	}

	pos := p.PositionalArgs()
	if len(pos) == 0 {
		args.Command = CmdChat
		return args, nil
	}

	switch strings.ToLower(pos[0]) {
	case "chat":
		args.Command = CmdChat
	case "config":
		args.Command = CmdConfig
		if len(pos) > 1 {
			args.Subcommand = strings.ToLower(pos[1])
			args.Operands = pos[2:]
		}
	case "version":
		args.Command = CmdVersion
	case "help":
		args.Command = CmdHelp
	default:
		return args, fmt.Errorf("unknown command %q (run 'filechat help')", pos[0])
	}
	return args, nil
}

const usageText = `filechat - chat with an assistant about the files you share

Usage:
  filechat [chat] [flags]         Start a chat (full screen on a terminal)
  filechat config list            Show every setting
  filechat config get <key>       Show one setting
  filechat config set <key> <v>   Change a setting and save it
  filechat config path            Print the config file location
  filechat version                Print version information
  filechat help                   Show this help

Flags:
  --plain             Line mode even on a terminal
  -c, --config PATH   Read configuration from PATH
  -m, --model NAME    Use a different completion model
  --storage KIND      History backend: sqlite, file, memory
  --log-level LEVEL   debug, info, warn, error

In the chat, type /help for commands. Set FILECHAT_API_KEY (or GROQ_API_KEY)
to your API key before starting.
`
