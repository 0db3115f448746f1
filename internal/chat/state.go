// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"sort"

	"github.com/MarceTxt/gwen-ai-chat/internal/model"
)

// =============================================================================
// DISPATCH STATE
// =============================================================================

// DispatchState is the message pipeline phase.
type DispatchState int

const (
	// Idle accepts a new message.
	Idle DispatchState = iota
	// Sending is persisting the user's message.
	Sending
	// AwaitingCompletion is waiting for the completion service.
	AwaitingCompletion
)

// String returns the phase name.
func (d DispatchState) String() string {
	switch d {
	case Idle:
		return "idle"
	case Sending:
		return "sending"
	case AwaitingCompletion:
		return "awaiting completion"
	default:
		return "unknown"
	}
}

// =============================================================================
// STATE
// =============================================================================

// State is an immutable snapshot of the chat core. Transitions build a new
// State; slices and maps held by a State are never modified afterwards.
type State struct {
	// Conversations is the sidebar list, newest first as loaded.
	Conversations []model.Conversation

	// ActiveID is the active conversation, empty only during a switch.
	ActiveID string

	// Messages is the active conversation's buffer.
	Messages []model.Message

	// Pending holds messages appended locally that no snapshot has
	// confirmed yet. A message whose write failed stays here until the
	// conversation is switched away from.
	Pending []model.Message

	// Selecting is true while multi-select mode is on.
	Selecting bool

	// Selected holds the selected conversation ids.
	Selected map[string]bool

	// Dispatch is the message pipeline phase.
	Dispatch DispatchState

	// Loading is true until the first list load succeeds.
	Loading bool

	// Err is a dismissible error for the UI.
	Err error

	// generation of the active subscription
	gen uint64

	// synced is set once a snapshot for gen has arrived
	synced bool
}

// Active returns the active conversation's list entry.
func (s State) Active() (model.Conversation, bool) {
	return s.Find(s.ActiveID)
}

// ActiveName returns the name shown in the header.
func (s State) ActiveName() string {
	if c, ok := s.Active(); ok {
		return c.Name
	}
	return ""
}

// Find returns the list entry with id.
func (s State) Find(id string) (model.Conversation, bool) {
	if id == "" {
		return model.Conversation{}, false
	}
	for _, c := range s.Conversations {
		if c.ID == id {
			return c, true
		}
	}
	return model.Conversation{}, false
}

// IsSelected reports whether id is in the selection.
func (s State) IsSelected(id string) bool {
	return s.Selected[id]
}

// SelectedIDs returns the selection in list order.
func (s State) SelectedIDs() []string {
	ids := make([]string, 0, len(s.Selected))
	for _, c := range s.Conversations {
		if s.Selected[c.ID] {
			ids = append(ids, c.ID)
		}
	}
	// Ids no longer listed still count
	if len(ids) < len(s.Selected) {
		var extra []string
		for id := range s.Selected {
			if _, ok := s.Find(id); !ok {
				extra = append(extra, id)
			}
		}
		sort.Strings(extra)
		ids = append(ids, extra...)
	}
	return ids
}

// AllSelected reports whether every listed conversation is selected.
func (s State) AllSelected() bool {
	if len(s.Conversations) == 0 || len(s.Selected) != len(s.Conversations) {
		return false
	}
	for _, c := range s.Conversations {
		if !s.Selected[c.ID] {
			return false
		}
	}
	return true
}

// Busy reports whether a message is in flight.
func (s State) Busy() bool {
	return s.Dispatch != Idle
}

// Typing reports whether the assistant reply is being generated.
func (s State) Typing() bool {
	return s.Dispatch == AwaitingCompletion
}

// history returns the active conversation's messages. Before the first
// snapshot of an activation it falls back to the list entry.
func (s State) history() []model.Message {
	if !s.synced {
		if c, ok := s.Active(); ok && len(c.Messages) > len(s.Messages) {
			return append([]model.Message(nil), c.Messages...)
		}
	}
	return append([]model.Message(nil), s.Messages...)
}

func (s State) indexOf(id string) int {
	for i, c := range s.Conversations {
		if c.ID == id {
			return i
		}
	}
	return -1
}
