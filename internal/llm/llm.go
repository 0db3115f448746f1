// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package llm

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/MarceTxt/gwen-ai-chat/internal/config"
)

// Error variables for completion failures.
var (
	// ErrNotConfigured indicates the API key is not set.
	ErrNotConfigured = errors.New("completion API key not configured")

	// ErrEmptyResponse indicates the provider returned no text.
	ErrEmptyResponse = errors.New("empty completion response")
)

// Completer generates text for a prompt.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// New builds the completer selected by cfg, wrapped with the configured
// rate limit.
func New(ctx context.Context, cfg config.CompletionConfig) (Completer, error) {
	if cfg.APIKey == "" {
		return nil, ErrNotConfigured
	}
	timeout := time.Duration(cfg.TimeoutSecs) * time.Second

	var (
		c   Completer
		err error
	)
	switch cfg.Provider {
	case config.ProviderGemini:
		c, err = NewGemini(ctx, cfg.APIKey, cfg.Model, cfg.BaseURL, timeout)
	case config.ProviderOpenAI:
		c = NewOpenAI(cfg.APIKey, cfg.Model, cfg.BaseURL, timeout)
	default:
		err = errors.Errorf("unknown completion provider %q", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}

	if cfg.RequestsPerMinute > 0 {
		c = NewLimited(c, cfg.RequestsPerMinute)
	}
	return c, nil
}

// withTimeout bounds ctx by d when d is positive.
func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
