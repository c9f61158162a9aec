// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"
	"time"

	"github.com/jeranaias/filechat/internal/attachment"
	"github.com/jeranaias/filechat/internal/cloud"
	"github.com/jeranaias/filechat/internal/config"
	"github.com/jeranaias/filechat/internal/engine"
	"github.com/jeranaias/filechat/internal/logging"
	"github.com/jeranaias/filechat/internal/prompt"
	"github.com/jeranaias/filechat/internal/storage"
	"github.com/jeranaias/filechat/internal/ui/chat"
	"github.com/jeranaias/filechat/internal/ui/styles"
)

// Version information (can be overridden at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Run is the program entry point. args excludes the program name.
func Run(args []string) error {
	parsed, err := ParseArgs(args)
	if err != nil {
		return err
	}

	switch parsed.Command {
	case CmdHelp:
		fmt.Print(usageText)
		return nil
	case CmdVersion:
		PrintVersion(os.Stdout)
		return nil
	case CmdConfig:
		configureColors()
		return HandleConfig(parsed, os.Stdout)
	default:
		return runChat(parsed)
	}
}

// PrintVersion writes version and build information.
func PrintVersion(w io.Writer) {
	fmt.Fprintf(w, "filechat %s\n", Version)
	fmt.Fprintf(w, "  commit: %s\n", GitCommit)
	fmt.Fprintf(w, "  built:  %s\n", BuildDate)
	fmt.Fprintf(w, "  go:     %s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
}

// =============================================================================
// CHAT
// =============================================================================

func runChat(args Args) error {
	cfg, err := loadConfig(args)
	if err != nil {
		return err
	}
	configureColors()

	logPath, err := cfg.LogPath()
	if err != nil {
		return err
	}
	logger, logCloser, err := logging.Open(logPath, cfg.Log.Level)
	if err != nil {
		return fmt.Errorf("open log: %w", err)
	}
	defer logCloser.Close()
	logging.SetDefault(logger)

	if cfg.Completion.APIKey == "" {
		fmt.Fprintln(os.Stderr, errorStyle.Render("No API key configured.")+" "+
			infoStyle.Render("Set "+config.EnvAPIKey+" or run: filechat config set completion.api_key <key>"))
	}

	dataDir, err := cfg.DataDir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	kv, err := storage.Open(cfg.Storage.Backend, dataDir)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}

	gateway := newGateway(cfg, logger)
	composer := prompt.NewComposer().WithHistoryWindow(cfg.Chat.HistoryWindow)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM)
	defer stop()

	opts := engine.Options{
		Store:         kv,
		Completer:     gateway,
		Composer:      &composer,
		Bridge:        attachment.NewBridge(cfg.Chat.MaxAttachmentBytes),
		Logger:        logger,
		MaxInputChars: cfg.Chat.MaxInputChars,
	}

	logger.Info("starting", "version", Version, "model", gateway.Model(),
		"storage", cfg.Storage.Backend, "key", gateway.APIKeyMasked())

	if !cfg.UI.Plain && Interactive() {
		return runFullScreen(ctx, cfg, opts)
	}
	return runLineMode(ctx, cfg, opts)
}

func newGateway(cfg *config.Config, logger *slog.Logger) *cloud.Gateway {
	c := cfg.Completion
	return cloud.NewGateway(c.APIKey).
		WithBaseURL(c.BaseURL).
		WithModel(c.Model).
		WithTemperature(c.Temperature).
		WithMaxTokens(c.MaxTokens).
		WithTimeout(time.Duration(c.TimeoutSecs) * time.Second).
		WithRateLimit(c.RequestsPerMinute).
		WithLogger(logger)
}

// runFullScreen hosts the controller in the Bubble Tea view. Confirmations
// are answered in an overlay.
func runFullScreen(ctx context.Context, cfg *config.Config, opts engine.Options) error {
	bridge := chat.NewConfirmBridge()
	opts.Confirmer = bridge

	ctrl, err := engine.New(opts)
	if err != nil {
		return err
	}
	defer closeController(ctrl, opts)

	theme := styles.NewTheme(cfg.UI.Theme)
	return chat.Run(ctx, chat.Options{
		Session:       ctrl,
		Theme:         theme,
		Markdown:      cfg.UI.Markdown,
		MaxInputChars: cfg.Chat.MaxInputChars,
		ModelName:     cfg.Completion.Model,
	}, bridge)
}

// runLineMode hosts the controller in the liner REPL.
func runLineMode(ctx context.Context, cfg *config.Config, opts engine.Options) error {
	registryCompleter := newLineCompleter()

	historyFile := ""
	if dir, err := config.ConfigDir(); err == nil && config.EnsureConfigDir() == nil {
		historyFile = filepath.Join(dir, historyFileName)
	}
	editor := NewLineEditor(historyFile, registryCompleter)
	defer editor.Close()

	opts.Confirmer = NewLineConfirmer(editor, os.Stdout)
	ctrl, err := engine.New(opts)
	if err != nil {
		return err
	}
	defer closeController(ctrl, opts)

	theme := styles.NewTheme(cfg.UI.Theme)
	repl := NewREPL(ctrl, editor, os.Stdout, REPLOptions{
		Markdown:  cfg.UI.Markdown && ColorsEnabled(),
		Dark:      theme.IsDark,
		Width:     GetTerminalWidth(),
		ModelName: cfg.Completion.Model,
	})
	return repl.Run(ctx)
}

// closeController drains pending writes, then closes the store.
func closeController(ctrl *engine.Controller, opts engine.Options) {
	if err := ctrl.Flush(); err != nil {
		opts.Logger.Warn("flush on exit failed", "error", err)
	}
	ctrl.Close()
	if err := opts.Store.Close(); err != nil {
		opts.Logger.Warn("close storage failed", "error", err)
	}
	if n := ctrl.PersistenceFailures(); n > 0 {
		opts.Logger.Warn("session ended with persistence failures", "count", n)
	}
}
