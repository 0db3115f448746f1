// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import (
	"sync"
	"time"

	"github.com/MarceTxt/gwen-ai-chat/internal/model"
)

// =============================================================================
// ERRORS
// =============================================================================

// ErrNotFound is returned when a conversation does not exist or belongs to
// another user. Use errors.Is(err, ErrNotFound) to check for this error.
var ErrNotFound = &StoreError{Message: "conversation not found"}

// ErrBatchAborted is returned when a batch delete names a conversation that
// cannot be deleted. Nothing is deleted in that case.
var ErrBatchAborted = &StoreError{Message: "batch delete aborted"}

// StoreError represents a store-level error.
// It implements the error interface and can be compared using errors.Is.
type StoreError struct {
	Message string
}

// Error implements the error interface.
func (e *StoreError) Error() string {
	return e.Message
}

// Is implements errors.Is support for comparing store errors.
func (e *StoreError) Is(target error) bool {
	t, ok := target.(*StoreError)
	if !ok {
		return false
	}
	return e.Message == t.Message
}

// =============================================================================
// PARTIAL UPDATES
// =============================================================================

// Fields is a partial conversation update. Nil fields are left alone.
// UpdatedAt defaults to now.
type Fields struct {
	Name      *string
	UpdatedAt time.Time
}

func (f Fields) updatedAt() time.Time {
	if f.UpdatedAt.IsZero() {
		return time.Now().UTC()
	}
	return f.UpdatedAt.UTC()
}

// =============================================================================
// SUBSCRIPTION HANDLE
// =============================================================================

// Subscription is a live subscription handle. Cancel stops delivery.
type Subscription struct {
	once   sync.Once
	cancel func()
	done   <-chan struct{}
}

var closedDone = func() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}()

// NewSubscription wraps a cancel function that stops delivery synchronously.
func NewSubscription(cancel func()) *Subscription {
	return &Subscription{cancel: cancel, done: closedDone}
}

func newSubscription(cancel func(), done <-chan struct{}) *Subscription {
	return &Subscription{cancel: cancel, done: done}
}

// Cancel stops the subscription and waits until no further callback can
// run. It is safe to call more than once and on a nil handle. Cancel must
// not be called from inside the subscription's own callback.
func (s *Subscription) Cancel() {
	if s == nil {
		return
	}
	s.once.Do(func() {
		if s.cancel != nil {
			s.cancel()
		}
	})
	<-s.done
}

// =============================================================================
// SNAPSHOT DEDUPLICATION
// =============================================================================

// snapshotKey identifies the observable state of a conversation. Equal keys
// mean a redelivery would show nothing new.
type snapshotKey struct {
	name      string
	updatedAt int64
	count     int
}

func keyOf(c model.Conversation) snapshotKey {
	return snapshotKey{name: c.Name, updatedAt: c.UpdatedAt.UnixNano(), count: len(c.Messages)}
}
