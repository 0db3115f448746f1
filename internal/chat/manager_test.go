// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MarceTxt/gwen-ai-chat/internal/model"
)

var testUser = model.User{ID: "user-1", Email: "ada@example.com"}

func newTestManager(t *testing.T, st *fakeStore, c Completer) *Manager {
	t.Helper()
	if c == nil {
		c = &fakeCompleter{reply: "Hi! How can I help?"}
	}
	m := NewManager(st, c, testUser, DefaultOptions())
	t.Cleanup(m.Close)
	return m
}

func messageIDs(msgs []model.Message) []string {
	ids := make([]string, 0, len(msgs))
	for _, m := range msgs {
		ids = append(ids, m.ID)
	}
	return ids
}

// =============================================================================
// LOAD TESTS
// =============================================================================

func TestLoad_EmptyListBootstrapsOneConversation(t *testing.T) {
	st := newFakeStore()
	m := newTestManager(t, st, nil)

	require.NoError(t, m.Load(context.Background()))

	s := m.Snapshot()
	assert.False(t, s.Loading)
	require.Len(t, s.Conversations, 1)
	assert.Equal(t, s.Conversations[0].ID, s.ActiveID)
	assert.Equal(t, "Untitled Conversation", s.ActiveName())
	assert.Equal(t, 1, st.creates)
	assert.Equal(t, 1, st.liveSubs(s.ActiveID))
}

func TestLoad_ActivatesNewest(t *testing.T) {
	st := newFakeStore()
	st.seed(testUser.ID, "older", "one")
	newest := st.seed(testUser.ID, "newer", "two", "three")
	st.seed("someone-else", "not mine")
	m := newTestManager(t, st, nil)

	require.NoError(t, m.Load(context.Background()))

	s := m.Snapshot()
	require.Len(t, s.Conversations, 2)
	assert.Equal(t, newest, s.Conversations[0].ID)
	assert.Equal(t, newest, s.ActiveID)
	assert.Len(t, s.Messages, 2)
	assert.Equal(t, 0, st.creates)
}

func TestLoad_StoreUnavailable(t *testing.T) {
	st := newFakeStore()
	st.seed(testUser.ID, "exists")
	st.listErr = errInjected
	m := newTestManager(t, st, nil)

	err := m.Load(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrStoreUnavailable)
	assert.ErrorIs(t, err, errInjected)

	s := m.Snapshot()
	assert.True(t, s.Loading)
	assert.Empty(t, s.Conversations)
	assert.ErrorIs(t, s.Err, ErrStoreUnavailable)
	assert.Equal(t, 0, st.creates)
}

// =============================================================================
// CONVERSATION OPERATION TESTS
// =============================================================================

func TestCreate_PrependsActivatesAndLeavesSelection(t *testing.T) {
	st := newFakeStore()
	st.seed(testUser.ID, "existing")
	m := newTestManager(t, st, nil)
	ctx := context.Background()
	require.NoError(t, m.Load(ctx))

	m.ToggleSelecting()
	require.True(t, m.Snapshot().Selecting)

	id, err := m.Create(ctx)
	require.NoError(t, err)

	s := m.Snapshot()
	require.Len(t, s.Conversations, 2)
	assert.Equal(t, id, s.Conversations[0].ID)
	assert.Equal(t, id, s.ActiveID)
	assert.Empty(t, s.Messages)
	assert.False(t, s.Selecting)
	assert.Empty(t, s.Selected)
}

func TestCreate_Failure(t *testing.T) {
	st := newFakeStore()
	st.createErr = errInjected
	m := newTestManager(t, st, nil)

	err := m.Load(context.Background())
	assert.ErrorIs(t, err, ErrStoreUnavailable)
	assert.Empty(t, m.Snapshot().ActiveID)
}

func TestSelect_SwitchesBufferAndCancelsPrevious(t *testing.T) {
	st := newFakeStore()
	x := st.seed(testUser.ID, "X", "x1")
	y := st.seed(testUser.ID, "Y", "y1", "y2")
	m := newTestManager(t, st, nil)
	ctx := context.Background()
	require.NoError(t, m.Load(ctx))
	require.Equal(t, y, m.Snapshot().ActiveID)

	require.NoError(t, m.Select(ctx, x))

	s := m.Snapshot()
	assert.Equal(t, x, s.ActiveID)
	require.Len(t, s.Messages, 1)
	assert.Equal(t, "x1", s.Messages[0].Text)
	assert.Equal(t, 0, st.liveSubs(y))
	assert.Equal(t, 1, st.liveSubs(x))

	// Unknown ids and the active id are ignored
	require.NoError(t, m.Select(ctx, "missing"))
	require.NoError(t, m.Select(ctx, x))
	assert.Equal(t, 1, st.liveSubs(x))
}

func TestSelect_StaleSnapshotDiscarded(t *testing.T) {
	st := newFakeStore()
	x := st.seed(testUser.ID, "X", "x1")
	y := st.seed(testUser.ID, "Y", "y1")
	m := newTestManager(t, st, nil)
	ctx := context.Background()
	require.NoError(t, m.Load(ctx))
	require.NoError(t, m.Select(ctx, x))
	staleX := st.lastCallback(x)
	require.NotNil(t, staleX)

	require.NoError(t, m.Select(ctx, y))
	before := m.Snapshot()

	// X's update arrives after the switch
	late := st.stored(x)
	late.Messages = append(late.Messages, model.NewMessage(model.SenderUser, "late for X"))
	staleX(late)

	after := m.Snapshot()
	assert.Equal(t, y, after.ActiveID)
	assert.Equal(t, messageIDs(before.Messages), messageIDs(after.Messages))
	for _, msg := range after.Messages {
		assert.NotEqual(t, "late for X", msg.Text)
	}
}

func TestSelect_StaleSnapshotOfSameConversationDiscarded(t *testing.T) {
	st := newFakeStore()
	x := st.seed(testUser.ID, "X", "x1")
	y := st.seed(testUser.ID, "Y")
	m := newTestManager(t, st, nil)
	ctx := context.Background()
	require.NoError(t, m.Load(ctx))

	require.NoError(t, m.Select(ctx, x))
	firstX := st.lastCallback(x)
	require.NoError(t, m.Select(ctx, y))
	require.NoError(t, m.Select(ctx, x))

	// A delivery from the first X subscription carries an old generation
	old := st.stored(x)
	old.Messages = nil
	firstX(old)

	assert.Len(t, m.Snapshot().Messages, 1)
}

func TestRename(t *testing.T) {
	st := newFakeStore()
	id := st.seed(testUser.ID, "Original")
	m := newTestManager(t, st, nil)
	ctx := context.Background()
	require.NoError(t, m.Load(ctx))

	require.NoError(t, m.Rename(ctx, id, "   "))
	require.NoError(t, m.Rename(ctx, id, "Original"))
	assert.Empty(t, st.updates, "blank or unchanged names must not reach the store")

	require.NoError(t, m.Rename(ctx, id, "  Trip planning  "))
	s := m.Snapshot()
	assert.Equal(t, "Trip planning", s.Conversations[0].Name)
	assert.Equal(t, "Trip planning", s.ActiveName())
	assert.Equal(t, "Trip planning", st.stored(id).Name)
}

func TestRename_FailureKeepsName(t *testing.T) {
	st := newFakeStore()
	id := st.seed(testUser.ID, "Original")
	m := newTestManager(t, st, nil)
	ctx := context.Background()
	require.NoError(t, m.Load(ctx))

	st.updateErr = errInjected
	err := m.Rename(ctx, id, "New")
	assert.ErrorIs(t, err, ErrPersistenceFailure)
	assert.Equal(t, "Original", m.Snapshot().ActiveName())
}

func TestDelete_ActiveCreatesReplacement(t *testing.T) {
	st := newFakeStore()
	other := st.seed(testUser.ID, "other")
	active := st.seed(testUser.ID, "active")
	m := newTestManager(t, st, nil)
	ctx := context.Background()
	require.NoError(t, m.Load(ctx))
	require.Equal(t, active, m.Snapshot().ActiveID)

	require.NoError(t, m.Delete(ctx, active))

	s := m.Snapshot()
	assert.NotEmpty(t, s.ActiveID)
	assert.NotEqual(t, active, s.ActiveID)
	_, listed := s.Find(active)
	assert.False(t, listed)
	assert.True(t, st.has(s.ActiveID))
	assert.False(t, st.has(active))
	assert.Len(t, s.Conversations, 2)
	assert.Equal(t, s.ActiveID, s.Conversations[0].ID)
	_, ok := s.Find(other)
	assert.True(t, ok)
}

func TestDelete_InactiveKeepsActive(t *testing.T) {
	st := newFakeStore()
	other := st.seed(testUser.ID, "other")
	active := st.seed(testUser.ID, "active")
	m := newTestManager(t, st, nil)
	ctx := context.Background()
	require.NoError(t, m.Load(ctx))

	require.NoError(t, m.Delete(ctx, other))

	s := m.Snapshot()
	assert.Equal(t, active, s.ActiveID)
	assert.Len(t, s.Conversations, 1)
	assert.Equal(t, 0, st.creates)
}

func TestDelete_FailureLeavesStateAlone(t *testing.T) {
	st := newFakeStore()
	id := st.seed(testUser.ID, "keep")
	m := newTestManager(t, st, nil)
	ctx := context.Background()
	require.NoError(t, m.Load(ctx))

	st.deleteErr = errInjected
	err := m.Delete(ctx, id)
	assert.ErrorIs(t, err, ErrPersistenceFailure)

	s := m.Snapshot()
	assert.Equal(t, id, s.ActiveID)
	assert.Len(t, s.Conversations, 1)
	assert.Error(t, s.Err)

	m.DismissError()
	assert.NoError(t, m.Snapshot().Err)
}

// =============================================================================
// APPEND TESTS
// =============================================================================

func TestAppendMessage_OrderMatchesAppendOrder(t *testing.T) {
	st := newFakeStore()
	m := newTestManager(t, st, nil)
	ctx := context.Background()
	require.NoError(t, m.Load(ctx))
	id := m.Snapshot().ActiveID

	var want []string
	for i := 0; i < 8; i++ {
		msg := model.NewMessage(model.SenderUser, fmt.Sprintf("m%d", i))
		want = append(want, msg.ID)
		require.NoError(t, m.AppendMessage(ctx, id, msg))
	}

	assert.Equal(t, want, messageIDs(m.Snapshot().Messages))
	assert.Equal(t, want, messageIDs(st.stored(id).Messages))
	assert.Empty(t, m.Snapshot().Pending)
}

func TestAppendMessage_ConcurrentNoneLost(t *testing.T) {
	st := newFakeStore()
	m := newTestManager(t, st, nil)
	ctx := context.Background()
	require.NoError(t, m.Load(ctx))
	id := m.Snapshot().ActiveID

	const n = 25
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = m.AppendMessage(ctx, id, model.NewMessage(model.SenderUser, fmt.Sprintf("c%d", i)))
		}(i)
	}
	wg.Wait()

	assert.Len(t, st.stored(id).Messages, n)
	assert.Len(t, m.Snapshot().Messages, n)
}

func TestAppendMessage_PendingSurvivesOlderSnapshot(t *testing.T) {
	st := newFakeStore()
	id := st.seed(testUser.ID, "conv", "first")
	m := newTestManager(t, st, nil)
	ctx := context.Background()
	require.NoError(t, m.Load(ctx))

	// Hold deliveries so the local append outruns the store's snapshot
	st.hold = true
	older := st.stored(id)
	msg := model.NewMessage(model.SenderUser, "second")
	require.NoError(t, m.AppendMessage(ctx, id, msg))

	st.lastCallback(id)(older)
	s := m.Snapshot()
	require.Len(t, s.Messages, 2)
	assert.Equal(t, msg.ID, s.Messages[1].ID)
	assert.Len(t, s.Pending, 1)

	st.deliver(id)
	s = m.Snapshot()
	assert.Len(t, s.Messages, 2)
	assert.Empty(t, s.Pending)
}

func TestAppendMessage_PersistenceFailureIsNotRolledBack(t *testing.T) {
	st := newFakeStore()
	m := newTestManager(t, st, nil)
	ctx := context.Background()
	require.NoError(t, m.Load(ctx))
	id := m.Snapshot().ActiveID

	st.appendErr = errInjected
	msg := model.NewMessage(model.SenderUser, "offline")
	err := m.AppendMessage(ctx, id, msg)
	assert.ErrorIs(t, err, ErrPersistenceFailure)

	s := m.Snapshot()
	require.Len(t, s.Messages, 1)
	assert.Equal(t, msg.ID, s.Messages[0].ID)
	assert.Len(t, s.Pending, 1)
	assert.NoError(t, s.Err, "persistence failures are not surfaced")

	// A later store change pushes a snapshot without the message
	st.appendErr = nil
	require.NoError(t, m.Rename(ctx, id, "Still here"))
	s = m.Snapshot()
	require.Len(t, s.Messages, 1)
	assert.Equal(t, msg.ID, s.Messages[0].ID)
}

// =============================================================================
// NOTIFICATION TESTS
// =============================================================================

func TestOnChange_ReceivesEveryTransition(t *testing.T) {
	st := newFakeStore()
	m := newTestManager(t, st, nil)

	var (
		mu     sync.Mutex
		states []State
	)
	m.OnChange(func(s State) {
		mu.Lock()
		states = append(states, s)
		mu.Unlock()
	})
	require.NoError(t, m.Load(context.Background()))

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, states)
	assert.True(t, states[0].Loading)
	last := states[len(states)-1]
	assert.Equal(t, m.Snapshot().ActiveID, last.ActiveID)
}

func TestClose_CancelsSubscription(t *testing.T) {
	st := newFakeStore()
	m := NewManager(st, &fakeCompleter{}, testUser, DefaultOptions())
	require.NoError(t, m.Load(context.Background()))
	id := m.Snapshot().ActiveID

	m.Close()
	m.Close()
	assert.Equal(t, 0, st.liveSubs(id))
	assert.False(t, m.Send(context.Background(), "after close"))
}

func TestErrorKinds(t *testing.T) {
	err := newError(KindCompletionFailure, "send", errInjected)
	assert.ErrorIs(t, err, ErrCompletionFailure)
	assert.NotErrorIs(t, err, ErrStoreUnavailable)
	assert.ErrorIs(t, err, errInjected)
	assert.True(t, strings.Contains(err.Error(), "completion failure"))
}
