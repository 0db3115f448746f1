// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package llm

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/time/rate"
)

// Limited throttles an inner Completer to a fixed number of requests per
// minute, allowing a burst of one.
type Limited struct {
	inner   Completer
	limiter *rate.Limiter
}

// NewLimited wraps inner with a limit of perMinute calls.
func NewLimited(inner Completer, perMinute int) *Limited {
	return &Limited{
		inner:   inner,
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), 1),
	}
}

// Complete waits for a token, then delegates.
func (l *Limited) Complete(ctx context.Context, prompt string) (string, error) {
	if err := l.limiter.Wait(ctx); err != nil {
		return "", errors.Wrap(err, "rate limit wait aborted")
	}
	return l.inner.Complete(ctx, prompt)
}
