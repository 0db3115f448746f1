// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for gwen.
//
// Configuration is TOML with built-in defaults, environment variable
// overrides, and validation.
//
// # Key Types
//
//   - Config: main configuration structure
//   - CompletionConfig: language-model provider, model and credential
//   - StoreConfig: conversation store driver and location
//   - ChatConfig: persona, default names and dispatch limits
//
// # Configuration Precedence
//
// Configuration is loaded from (in order of precedence):
//   - Environment variables (GWEN_*)
//   - ~/.gwen/config.toml (or $GWEN_HOME/config.toml)
//   - Built-in defaults
//
// # Usage
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal().Err(err).Msg("invalid configuration")
//	}
//	if err := cfg.RequireCredential(); err != nil {
//	    ...
//	}
package config
