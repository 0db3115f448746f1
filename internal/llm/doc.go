// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package llm provides completion clients for gwen.
//
// A completion turns one prompt string into generated text. Two providers
// are supported: Google Gemini and any OpenAI-compatible endpoint. Calls
// are throttled by a token-bucket limiter and bounded by a timeout. Failed
// calls are not retried.
//
// # Key Types
//
//   - Completer: the completion interface
//   - Gemini: Gemini API client
//   - OpenAI: OpenAI-compatible chat completions client
//   - Limited: rate-limiting wrapper
//
// # Usage
//
//	c, err := llm.New(ctx, cfg.Completion)
//	if err != nil {
//	    return err
//	}
//	text, err := c.Complete(ctx, prompt)
package llm
