// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"

	"github.com/rs/zerolog/log"
)

// =============================================================================
// SELECTION MODE
// =============================================================================

// ToggleSelecting enters or leaves selection mode. Entering needs at least
// one conversation; leaving clears the selection.
func (m *Manager) ToggleSelecting() {
	m.dispatch(selectingToggled{})
}

// Click handles a click on a list entry: in selection mode it toggles the
// entry, otherwise it activates it.
func (m *Manager) Click(ctx context.Context, id string) error {
	if m.Snapshot().Selecting {
		m.ToggleSelected(id)
		return nil
	}
	return m.Select(ctx, id)
}

// ToggleSelected adds id to or removes it from the selection.
func (m *Manager) ToggleSelected(id string) {
	m.dispatch(selectionToggled{id: id})
}

// SelectAll selects every conversation, or clears the selection when all
// are already selected.
func (m *Manager) SelectAll() {
	m.dispatch(allToggled{})
}

// CancelSelection leaves selection mode without deleting anything.
func (m *Manager) CancelSelection() {
	m.dispatch(selectionCancelled{})
}

// DeleteSelected deletes the selection as one atomic batch. On success the
// conversations disappear, selection mode ends, and a new conversation is
// activated if the active one was deleted. On failure nothing changes
// locally. Callers are expected to have confirmed with the user.
func (m *Manager) DeleteSelected(ctx context.Context) error {
	s := m.Snapshot()
	if !s.Selecting {
		return nil
	}
	ids := s.SelectedIDs()
	if len(ids) == 0 {
		return nil
	}

	if err := m.store.BatchDelete(ctx, m.user.ID, ids); err != nil {
		log.Error().Err(err).Int("count", len(ids)).Msg("failed to delete selected conversations")
		e := newError(KindPersistenceFailure, "delete selected", err)
		m.dispatch(errorRaised{err: e})
		return e
	}

	activeGone := false
	for _, id := range ids {
		if id == s.ActiveID {
			activeGone = true
			break
		}
	}

	after := m.dispatch(batchDeleted{ids: ids})
	log.Info().Int("count", len(ids)).Msg("deleted selected conversations")

	if activeGone || after.ActiveID == "" {
		_, err := m.Create(ctx)
		return err
	}
	return nil
}
