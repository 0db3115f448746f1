// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MarceTxt/gwen-ai-chat/internal/model"
)

// =============================================================================
// HELPERS
// =============================================================================

func openTestStore(t *testing.T) *SQLite {
	t.Helper()
	s, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "gwen.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func createConv(t *testing.T, s *SQLite, userID, name string, at time.Time) string {
	t.Helper()
	id, err := s.Create(context.Background(), userID, model.NewConversation(userID, name, at))
	require.NoError(t, err)
	return id
}

func userMsg(text string) model.Message {
	return model.NewUserMessage(text, model.User{ID: "u1", Email: "u1@example.com"})
}

// snapshots collects subscription deliveries for assertions.
type snapshots struct {
	mu    sync.Mutex
	convs []model.Conversation
	ch    chan struct{}
}

func newSnapshots() *snapshots {
	return &snapshots{ch: make(chan struct{}, 64)}
}

func (s *snapshots) add(c model.Conversation) {
	s.mu.Lock()
	s.convs = append(s.convs, c)
	s.mu.Unlock()
	s.ch <- struct{}{}
}

func (s *snapshots) waitFor(t *testing.T, pred func(model.Conversation) bool) model.Conversation {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		s.mu.Lock()
		if n := len(s.convs); n > 0 && pred(s.convs[n-1]) {
			c := s.convs[n-1]
			s.mu.Unlock()
			return c
		}
		s.mu.Unlock()
		select {
		case <-s.ch:
		case <-deadline:
			t.Fatal("timed out waiting for snapshot")
			return model.Conversation{}
		}
	}
}

func (s *snapshots) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.convs)
}

// =============================================================================
// CRUD TESTS
// =============================================================================

func TestSQLite_CreateAndGet(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	id := createConv(t, s, "u1", "", now)
	require.NotEmpty(t, id)

	conv, err := s.Get(ctx, "u1", id)
	require.NoError(t, err)
	assert.Equal(t, model.DefaultName, conv.Name)
	assert.Equal(t, "u1", conv.OwnerID)
	assert.Empty(t, conv.Messages)
	assert.Equal(t, now.UnixNano(), conv.CreatedAt.UnixNano())
	assert.Equal(t, conv.CreatedAt, conv.UpdatedAt)
}

func TestSQLite_GetOtherUser(t *testing.T) {
	s := openTestStore(t)
	id := createConv(t, s, "u1", "mine", time.Now())

	_, err := s.Get(context.Background(), "u2", id)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.Get(context.Background(), "u1", "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLite_ListNewestFirst(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	base := time.Now().UTC().Add(-time.Hour)

	oldest := createConv(t, s, "u1", "oldest", base)
	middle := createConv(t, s, "u1", "middle", base.Add(time.Minute))
	newest := createConv(t, s, "u1", "newest", base.Add(2*time.Minute))
	createConv(t, s, "u2", "someone else", base.Add(3*time.Minute))

	convs, err := s.List(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, convs, 3)
	assert.Equal(t, []string{newest, middle, oldest}, []string{convs[0].ID, convs[1].ID, convs[2].ID})

	// Appending moves a conversation to the top
	require.NoError(t, s.AppendMessage(ctx, "u1", oldest, userMsg("bump")))
	convs, err = s.List(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, oldest, convs[0].ID)
	assert.Len(t, convs[0].Messages, 1)
}

func TestSQLite_Update(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	id := createConv(t, s, "u1", "", time.Now().Add(-time.Minute))

	name := "Renamed"
	at := time.Now().UTC()
	require.NoError(t, s.Update(ctx, "u1", id, Fields{Name: &name, UpdatedAt: at}))

	conv, err := s.Get(ctx, "u1", id)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", conv.Name)
	assert.Equal(t, at.UnixNano(), conv.UpdatedAt.UnixNano())

	assert.ErrorIs(t, s.Update(ctx, "u2", id, Fields{Name: &name}), ErrNotFound)
}

// =============================================================================
// APPEND TESTS
// =============================================================================

func TestSQLite_AppendKeepsOrder(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	id := createConv(t, s, "u1", "", time.Now())

	var want []string
	for i := 0; i < 10; i++ {
		m := userMsg(fmt.Sprintf("message %d", i))
		want = append(want, m.ID)
		require.NoError(t, s.AppendMessage(ctx, "u1", id, m))
	}

	conv, err := s.Get(ctx, "u1", id)
	require.NoError(t, err)
	var got []string
	for _, m := range conv.Messages {
		got = append(got, m.ID)
	}
	assert.Equal(t, want, got)
}

func TestSQLite_AppendIsIdempotent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	id := createConv(t, s, "u1", "", time.Now())

	m := userMsg("once")
	require.NoError(t, s.AppendMessage(ctx, "u1", id, m))
	before, err := s.Get(ctx, "u1", id)
	require.NoError(t, err)

	require.NoError(t, s.AppendMessage(ctx, "u1", id, m))
	after, err := s.Get(ctx, "u1", id)
	require.NoError(t, err)

	assert.Len(t, after.Messages, 1)
	assert.Equal(t, before.UpdatedAt, after.UpdatedAt)
}

func TestSQLite_AppendConcurrent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	id := createConv(t, s, "u1", "", time.Now())

	const n = 20
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs <- s.AppendMessage(ctx, "u1", id, userMsg(fmt.Sprintf("m%d", i)))
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	conv, err := s.Get(ctx, "u1", id)
	require.NoError(t, err)
	assert.Len(t, conv.Messages, n)
}

func TestSQLite_AppendMissingConversation(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	id := createConv(t, s, "u1", "", time.Now())

	assert.ErrorIs(t, s.AppendMessage(ctx, "u1", "missing", userMsg("x")), ErrNotFound)
	assert.ErrorIs(t, s.AppendMessage(ctx, "u2", id, userMsg("x")), ErrNotFound)
	assert.Error(t, s.AppendMessage(ctx, "u1", id, model.Message{Text: "no id"}))
}

// =============================================================================
// DELETE TESTS
// =============================================================================

func TestSQLite_Delete(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	id := createConv(t, s, "u1", "", time.Now())
	require.NoError(t, s.AppendMessage(ctx, "u1", id, userMsg("bye")))

	require.NoError(t, s.Delete(ctx, "u1", id))
	_, err := s.Get(ctx, "u1", id)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.Delete(ctx, "u1", id), ErrNotFound)
}

func TestSQLite_BatchDelete(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	a := createConv(t, s, "u1", "a", time.Now())
	b := createConv(t, s, "u1", "b", time.Now())
	c := createConv(t, s, "u1", "c", time.Now())

	require.NoError(t, s.BatchDelete(ctx, "u1", []string{a, b, a}))

	convs, err := s.List(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, convs, 1)
	assert.Equal(t, c, convs[0].ID)
}

func TestSQLite_BatchDeleteAllOrNothing(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	a := createConv(t, s, "u1", "a", time.Now())
	other := createConv(t, s, "u2", "not mine", time.Now())

	tests := []struct {
		name string
		ids  []string
	}{
		{"missing id", []string{a, "missing"}},
		{"foreign id", []string{a, other}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := s.BatchDelete(ctx, "u1", tt.ids)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrBatchAborted))

			_, err = s.Get(ctx, "u1", a)
			assert.NoError(t, err, "batch must not partially apply")
		})
	}
}

// =============================================================================
// SUBSCRIPTION TESTS
// =============================================================================

func TestSQLite_SubscribeDeliversInitialAndUpdates(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	id := createConv(t, s, "u1", "", time.Now())

	got := newSnapshots()
	sub, err := s.Subscribe(ctx, "u1", id, got.add)
	require.NoError(t, err)
	defer sub.Cancel()

	got.waitFor(t, func(c model.Conversation) bool { return c.ID == id && len(c.Messages) == 0 })

	require.NoError(t, s.AppendMessage(ctx, "u1", id, userMsg("hi")))
	got.waitFor(t, func(c model.Conversation) bool { return len(c.Messages) == 1 })

	name := "Hi"
	require.NoError(t, s.Update(ctx, "u1", id, Fields{Name: &name}))
	got.waitFor(t, func(c model.Conversation) bool { return c.Name == "Hi" })
}

func TestSQLite_SubscribeMissing(t *testing.T) {
	s := openTestStore(t)
	_, err := s.Subscribe(context.Background(), "u1", "missing", func(model.Conversation) {})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Empty(t, s.feed.active())
}

func TestSQLite_CancelStopsDelivery(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	id := createConv(t, s, "u1", "", time.Now())

	got := newSnapshots()
	sub, err := s.Subscribe(ctx, "u1", id, got.add)
	require.NoError(t, err)
	got.waitFor(t, func(model.Conversation) bool { return true })

	sub.Cancel()
	sub.Cancel()
	assert.Empty(t, s.feed.active())

	n := got.count()
	require.NoError(t, s.AppendMessage(ctx, "u1", id, userMsg("after cancel")))
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, n, got.count())
}

func TestSubscription_NilAndFake(t *testing.T) {
	var nilSub *Subscription
	nilSub.Cancel()

	calls := 0
	sub := NewSubscription(func() { calls++ })
	sub.Cancel()
	sub.Cancel()
	assert.Equal(t, 1, calls)
}

func TestStoreError_Is(t *testing.T) {
	wrapped := fmt.Errorf("loading: %w", ErrNotFound)
	assert.ErrorIs(t, wrapped, ErrNotFound)
	assert.NotErrorIs(t, wrapped, ErrBatchAborted)
}
