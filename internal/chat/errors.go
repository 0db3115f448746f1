// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import "fmt"

// Kind classifies chat failures.
type Kind int

const (
	// KindStoreUnavailable: the conversation list or a conversation could
	// not be loaded or created.
	KindStoreUnavailable Kind = iota + 1

	// KindPersistenceFailure: a write failed after the local state was
	// already updated. It is logged, not rolled back.
	KindPersistenceFailure

	// KindCompletionFailure: the completion service failed. It becomes a
	// system message in the conversation.
	KindCompletionFailure
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindStoreUnavailable:
		return "store unavailable"
	case KindPersistenceFailure:
		return "persistence failure"
	case KindCompletionFailure:
		return "completion failure"
	default:
		return "unknown"
	}
}

// Sentinels for errors.Is checks against a Kind.
var (
	ErrStoreUnavailable   = &Error{Kind: KindStoreUnavailable}
	ErrPersistenceFailure = &Error{Kind: KindPersistenceFailure}
	ErrCompletionFailure  = &Error{Kind: KindCompletionFailure}
)

// Error is a chat failure with its kind, the operation and the cause.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func newError(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Error implements the error interface.
func (e *Error) Error() string {
	switch {
	case e.Op != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	case e.Op != "":
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	default:
		return e.Kind.String()
	}
}

// Unwrap returns the cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// UserMessage returns text suitable for the inline error banner.
func (e *Error) UserMessage() string {
	switch e.Kind {
	case KindStoreUnavailable:
		return "Could not reach your conversations. Try again later."
	case KindPersistenceFailure:
		return "Your change could not be saved."
	default:
		return "Something went wrong."
	}
}
