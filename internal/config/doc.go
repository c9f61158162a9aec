// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for filechat.
//
// Supports both TOML and JSON configuration formats, with sensible defaults,
// environment variable overrides, and validation.
//
// # Key Types
//
//   - Config: Main configuration structure with all settings
//   - CompletionConfig: Endpoint, credential, model, and request budget
//   - StorageConfig: Persistence backend and data directory
//   - ChatConfig: History window and input limits
//   - UIConfig / LogConfig: Presentation and log output
//
// # Configuration Precedence
//
// Configuration is loaded from (in order of precedence):
//   - Environment variables (FILECHAT_*, GROQ_API_KEY)
//   - ~/.filechat/config.toml
//   - ~/.filechat/config.json
//   - Built-in defaults
//
// The API key is never compiled in. Supply it in the config file or through
// FILECHAT_API_KEY.
//
// # Usage
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	gw := cloud.NewGateway(cfg.Completion.APIKey).WithModel(cfg.Completion.Model)
package config
