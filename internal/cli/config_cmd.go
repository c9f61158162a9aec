// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jeranaias/filechat/internal/config"
)

const apiKeyField = "completion.api_key"

// HandleConfig runs "filechat config <list|get|set|path>".
func HandleConfig(args Args, out io.Writer) error {
	switch args.Subcommand {
	case "", "list", "show":
		cfg, err := loadConfig(args)
		if err != nil {
			return err
		}
		return listConfig(cfg, out)

	case "get":
		if len(args.Operands) != 1 {
			return errors.New("usage: filechat config get <key>")
		}
		cfg, err := loadConfig(args)
		if err != nil {
			return err
		}
		v, err := cfg.Get(args.Operands[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(out, displayValue(args.Operands[0], v))
		return nil

	case "set":
		if len(args.Operands) != 2 {
			return errors.New("usage: filechat config set <key> <value>")
		}
		return setConfig(args, args.Operands[0], args.Operands[1], out)

	case "path":
		path, err := editPath(args)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, path)
		return nil

	default:
		return fmt.Errorf("unknown config subcommand %q (list, get, set, path)", args.Subcommand)
	}
}

func listConfig(cfg *config.Config, out io.Writer) error {
	for _, key := range config.GetAllKeys() {
		v, err := cfg.Get(key)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%s %s\n", labelStyle.Render(key), displayValue(key, v))
	}
	return nil
}

// setConfig edits the file on disk only. Environment overrides are not
// applied, so a key from FILECHAT_API_KEY is never written back.
func setConfig(args Args, key, value string, out io.Writer) error {
	path, err := editPath(args)
	if err != nil {
		return err
	}

	cfg := config.Default()
	if _, statErr := os.Stat(path); statErr == nil {
		if strings.HasSuffix(path, ".json") {
			err = config.LoadJSON(cfg, path)
		} else {
			err = config.LoadTOML(cfg, path)
		}
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
	}

	if err := cfg.Set(key, value); err != nil {
		return err
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return err
	}
	if args.ConfigPath == "" {
		if err := config.EnsureConfigDir(); err != nil {
			return err
		}
	}
	if err := config.SaveTOML(cfg, path); err != nil {
		return err
	}
	v, _ := cfg.Get(key)
	fmt.Fprintf(out, "%s = %s\n", key, displayValue(key, v))
	return nil
}

// editPath is the file config set writes to.
func editPath(args Args) (string, error) {
	if args.ConfigPath != "" {
		return args.ConfigPath, nil
	}
	return config.ConfigPathTOML()
}

// loadConfig loads the effective configuration and applies flag overrides.
func loadConfig(args Args) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if args.ConfigPath != "" {
		cfg, err = config.LoadFromPath(args.ConfigPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}

	if args.Model != "" {
		cfg.Completion.Model = args.Model
	}
	if args.Storage != "" {
		cfg.Storage.Backend = args.Storage
	}
	if args.LogLevel != "" {
		cfg.Log.Level = args.LogLevel
	}
	if args.Plain {
		cfg.UI.Plain = true
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func displayValue(key string, v interface{}) string {
	if strings.EqualFold(key, apiKeyField) {
		s, _ := v.(string)
		if s == "" {
			return "(not set)"
		}
		return "[REDACTED]"
	}
	return fmt.Sprint(v)
}
