// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package auth

import (
	"sync"
	"time"
)

// =============================================================================
// LOCKOUT CONSTANTS
// =============================================================================

const (
	// DefaultMaxAttempts is the number of consecutive failures before lockout.
	DefaultMaxAttempts = 5

	// DefaultLockoutDuration is how long an email stays locked.
	DefaultLockoutDuration = time.Minute
)

// =============================================================================
// ATTEMPT TRACKING
// =============================================================================

// attemptRecord tracks consecutive failures for one email.
type attemptRecord struct {
	count       int
	lockedUntil time.Time
}

// lockout counts failed sign-ins per email. State lives in memory only.
type lockout struct {
	mu          sync.Mutex
	records     map[string]*attemptRecord
	maxAttempts int
	duration    time.Duration
	now         func() time.Time
}

func newLockout(maxAttempts int, duration time.Duration) *lockout {
	return &lockout{
		records:     make(map[string]*attemptRecord),
		maxAttempts: maxAttempts,
		duration:    duration,
		now:         time.Now,
	}
}

// locked reports whether email is currently locked out.
func (l *lockout) locked(email string) bool {
	if l.maxAttempts <= 0 {
		return false
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	rec, ok := l.records[email]
	if !ok || rec.lockedUntil.IsZero() {
		return false
	}
	if l.now().After(rec.lockedUntil) {
		delete(l.records, email)
		return false
	}
	return true
}

// record notes the outcome of an attempt. A success clears the record.
func (l *lockout) record(email string, success bool) {
	if l.maxAttempts <= 0 {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	if success {
		delete(l.records, email)
		return
	}
	rec, ok := l.records[email]
	if !ok {
		rec = &attemptRecord{}
		l.records[email] = rec
	}
	rec.count++
	if rec.count >= l.maxAttempts {
		rec.lockedUntil = l.now().Add(l.duration)
	}
}
