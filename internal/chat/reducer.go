// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"time"

	"github.com/MarceTxt/gwen-ai-chat/internal/model"
)

// Action is a state transition.
type Action interface {
	apply(State) State
}

// Reduce returns the state after a. It never modifies s.
func Reduce(s State, a Action) State {
	if a == nil {
		return s
	}
	return a.apply(s)
}

// =============================================================================
// LOADING
// =============================================================================

type loadStarted struct{}

func (loadStarted) apply(s State) State {
	s.Loading = true
	s.Err = nil
	return s
}

// loadFailed keeps the loading flag set: the list stays unrendered rather
// than partial.
type loadFailed struct{ err error }

func (a loadFailed) apply(s State) State {
	s.Loading = true
	s.Err = a.err
	return s
}

type listLoaded struct{ convs []model.Conversation }

func (a listLoaded) apply(s State) State {
	convs := make([]model.Conversation, len(a.convs))
	for i, c := range a.convs {
		convs[i] = c.Clone()
	}
	model.SortByUpdated(convs)
	s.Conversations = convs
	s.Loading = false
	s.Err = nil
	return s
}

// =============================================================================
// CONVERSATION LIFECYCLE
// =============================================================================

type conversationCreated struct{ conv model.Conversation }

func (a conversationCreated) apply(s State) State {
	convs := make([]model.Conversation, 0, len(s.Conversations)+1)
	convs = append(convs, a.conv.Clone())
	for _, c := range s.Conversations {
		if c.ID != a.conv.ID {
			convs = append(convs, c)
		}
	}
	s.Conversations = convs
	s.Selecting = false
	s.Selected = nil
	return s
}

// activated points the buffer at id for subscription generation gen. An
// older generation never replaces a newer one.
type activated struct {
	id  string
	gen uint64
}

func (a activated) apply(s State) State {
	if a.gen < s.gen {
		return s
	}
	s.ActiveID = a.id
	s.gen = a.gen
	s.synced = false
	s.Messages = nil
	s.Pending = nil
	return s
}

// snapshotReceived replaces the buffer with a store snapshot, keeping local
// messages the snapshot does not contain yet.
type snapshotReceived struct {
	conv model.Conversation
	gen  uint64
}

func (a snapshotReceived) apply(s State) State {
	if a.conv.ID != s.ActiveID || a.gen != s.gen {
		return s
	}

	msgs := append([]model.Message(nil), a.conv.Messages...)
	var pending []model.Message
	for _, m := range s.Pending {
		if !a.conv.HasMessage(m.ID) {
			msgs = append(msgs, m)
			pending = append(pending, m)
		}
	}
	s.Messages = msgs
	s.Pending = pending
	s.synced = true

	if i := s.indexOf(a.conv.ID); i >= 0 {
		convs := append([]model.Conversation(nil), s.Conversations...)
		entry := a.conv.Clone()
		entry.Messages = msgs
		convs[i] = entry
		s.Conversations = convs
	}
	return s
}

type messageAppended struct {
	convID string
	msg    model.Message
}

func (a messageAppended) apply(s State) State {
	if i := s.indexOf(a.convID); i >= 0 {
		convs := append([]model.Conversation(nil), s.Conversations...)
		entry := convs[i].Clone()
		if !entry.HasMessage(a.msg.ID) {
			entry.Messages = append(entry.Messages, a.msg)
		}
		convs[i] = entry
		s.Conversations = convs
	}

	if a.convID != s.ActiveID {
		return s
	}
	for _, m := range s.Messages {
		if m.ID == a.msg.ID {
			return s
		}
	}
	s.Messages = append(append([]model.Message(nil), s.Messages...), a.msg)
	s.Pending = append(append([]model.Message(nil), s.Pending...), a.msg)
	return s
}

type renamed struct {
	id        string
	name      string
	updatedAt time.Time
}

func (a renamed) apply(s State) State {
	i := s.indexOf(a.id)
	if i < 0 {
		return s
	}
	convs := append([]model.Conversation(nil), s.Conversations...)
	entry := convs[i].Clone()
	entry.Name = a.name
	entry.UpdatedAt = a.updatedAt
	convs[i] = entry
	s.Conversations = convs
	return s
}

// deleted removes conversations. Removing the active one clears the
// buffer; the manager activates a replacement.
type deleted struct{ ids []string }

func (a deleted) apply(s State) State {
	gone := make(map[string]bool, len(a.ids))
	for _, id := range a.ids {
		gone[id] = true
	}

	convs := make([]model.Conversation, 0, len(s.Conversations))
	for _, c := range s.Conversations {
		if !gone[c.ID] {
			convs = append(convs, c)
		}
	}
	s.Conversations = convs

	if len(s.Selected) > 0 {
		sel := make(map[string]bool, len(s.Selected))
		for id := range s.Selected {
			if !gone[id] {
				sel[id] = true
			}
		}
		s.Selected = sel
	}

	if gone[s.ActiveID] {
		s.ActiveID = ""
		s.Messages = nil
		s.Pending = nil
	}
	return s
}

// batchDeleted is a successful bulk delete: the ids are removed and
// selection mode ends.
type batchDeleted struct{ ids []string }

func (a batchDeleted) apply(s State) State {
	s = deleted{ids: a.ids}.apply(s)
	s.Selecting = false
	s.Selected = nil
	return s
}

// =============================================================================
// SELECTION
// =============================================================================

type selectingToggled struct{}

func (selectingToggled) apply(s State) State {
	if s.Selecting {
		s.Selecting = false
		s.Selected = nil
		return s
	}
	if len(s.Conversations) == 0 {
		return s
	}
	s.Selecting = true
	s.Selected = map[string]bool{}
	return s
}

type selectionToggled struct{ id string }

func (a selectionToggled) apply(s State) State {
	if !s.Selecting || s.indexOf(a.id) < 0 {
		return s
	}
	sel := make(map[string]bool, len(s.Selected)+1)
	for id := range s.Selected {
		sel[id] = true
	}
	if sel[a.id] {
		delete(sel, a.id)
	} else {
		sel[a.id] = true
	}
	s.Selected = sel
	return s
}

// allToggled selects every conversation, or clears the selection when it
// already covers every conversation.
type allToggled struct{}

func (allToggled) apply(s State) State {
	if !s.Selecting {
		return s
	}
	if s.AllSelected() {
		s.Selected = map[string]bool{}
		return s
	}
	sel := make(map[string]bool, len(s.Conversations))
	for _, c := range s.Conversations {
		sel[c.ID] = true
	}
	s.Selected = sel
	return s
}

type selectionCancelled struct{}

func (selectionCancelled) apply(s State) State {
	s.Selecting = false
	s.Selected = nil
	return s
}

// =============================================================================
// DISPATCH AND ERRORS
// =============================================================================

type dispatchChanged struct{ to DispatchState }

func (a dispatchChanged) apply(s State) State {
	s.Dispatch = a.to
	return s
}

type errorRaised struct{ err error }

func (a errorRaised) apply(s State) State {
	s.Err = a.err
	return s
}

type errorDismissed struct{}

func (errorDismissed) apply(s State) State {
	s.Err = nil
	return s
}
