// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/MarceTxt/gwen-ai-chat/internal/model"
	"github.com/MarceTxt/gwen-ai-chat/internal/store"
)

// =============================================================================
// FAKE STORE
// =============================================================================

var errInjected = errors.New("injected failure")

type fakeSub struct {
	convID    string
	fn        func(model.Conversation)
	cancelled bool
}

// fakeStore is an in-memory Store. Subscriptions are delivered
// synchronously, on the caller's goroutine, unless hold is set.
type fakeStore struct {
	// deliverMu keeps deliveries in store order, like a real subscription
	// goroutine
	deliverMu sync.Mutex

	mu    sync.Mutex
	convs map[string]model.Conversation
	subs  []*fakeSub
	clock time.Time

	hold bool
	// skipInitial drops the snapshot Subscribe normally delivers at once
	skipInitial bool

	listErr   error
	createErr error
	updateErr error
	appendErr error
	deleteErr error
	batchErr  error

	creates int
	updates []store.Fields
	appends []model.Message
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		convs: make(map[string]model.Conversation),
		clock: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC),
	}
}

func (f *fakeStore) tick() time.Time {
	f.clock = f.clock.Add(time.Second)
	return f.clock
}

// seed inserts a conversation directly, bypassing counters.
func (f *fakeStore) seed(ownerID, name string, msgs ...string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	now := f.tick()
	c := model.NewConversation(ownerID, name, now)
	c.ID = uuid.NewString()
	for _, text := range msgs {
		m := model.NewMessage(model.SenderUser, text)
		c.Messages = append(c.Messages, m)
	}
	f.convs[c.ID] = c
	return c.ID
}

func (f *fakeStore) has(id string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.convs[id]
	return ok
}

func (f *fakeStore) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.convs)
}

func (f *fakeStore) stored(id string) model.Conversation {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.convs[id].Clone()
}

func (f *fakeStore) liveSubs(convID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, s := range f.subs {
		if s.convID == convID && !s.cancelled {
			n++
		}
	}
	return n
}

// lastCallback returns the most recent subscription callback for convID,
// cancelled or not, to simulate a late delivery.
func (f *fakeStore) lastCallback(convID string) func(model.Conversation) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.subs) - 1; i >= 0; i-- {
		if f.subs[i].convID == convID {
			return f.subs[i].fn
		}
	}
	return nil
}

// deliver pushes the stored conversation to live subscribers.
func (f *fakeStore) deliver(convID string) {
	f.deliverMu.Lock()
	defer f.deliverMu.Unlock()

	f.mu.Lock()
	c, ok := f.convs[convID]
	var fns []func(model.Conversation)
	for _, s := range f.subs {
		if s.convID == convID && !s.cancelled {
			fns = append(fns, s.fn)
		}
	}
	f.mu.Unlock()
	if !ok {
		return
	}
	for _, fn := range fns {
		fn(c.Clone())
	}
}

func (f *fakeStore) changed(convID string) {
	f.mu.Lock()
	hold := f.hold
	f.mu.Unlock()
	if !hold {
		f.deliver(convID)
	}
}

func (f *fakeStore) List(ctx context.Context, userID string) ([]model.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []model.Conversation
	for _, c := range f.convs {
		if c.OwnerID == userID {
			out = append(out, c.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

func (f *fakeStore) Get(ctx context.Context, userID, convID string) (model.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.convs[convID]
	if !ok || c.OwnerID != userID {
		return model.Conversation{}, store.ErrNotFound
	}
	return c.Clone(), nil
}

func (f *fakeStore) Subscribe(ctx context.Context, userID, convID string, fn func(model.Conversation)) (*store.Subscription, error) {
	c, err := f.Get(ctx, userID, convID)
	if err != nil {
		return nil, err
	}
	sub := &fakeSub{convID: convID, fn: fn}
	f.deliverMu.Lock()
	f.mu.Lock()
	f.subs = append(f.subs, sub)
	skip := f.skipInitial
	f.mu.Unlock()
	if !skip {
		fn(c)
	}
	f.deliverMu.Unlock()

	return store.NewSubscription(func() {
		f.mu.Lock()
		sub.cancelled = true
		f.mu.Unlock()
	}), nil
}

func (f *fakeStore) Create(ctx context.Context, userID string, conv model.Conversation) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return "", f.createErr
	}
	f.creates++
	conv.ID = uuid.NewString()
	conv.OwnerID = userID
	f.convs[conv.ID] = conv.Clone()
	return conv.ID, nil
}

func (f *fakeStore) Update(ctx context.Context, userID, convID string, fields store.Fields) error {
	f.mu.Lock()
	if f.updateErr != nil {
		f.mu.Unlock()
		return f.updateErr
	}
	c, ok := f.convs[convID]
	if !ok || c.OwnerID != userID {
		f.mu.Unlock()
		return store.ErrNotFound
	}
	if fields.Name != nil {
		c.Name = *fields.Name
	}
	c.UpdatedAt = fields.UpdatedAt
	f.convs[convID] = c
	f.updates = append(f.updates, fields)
	f.mu.Unlock()

	f.changed(convID)
	return nil
}

func (f *fakeStore) AppendMessage(ctx context.Context, userID, convID string, msg model.Message) error {
	f.mu.Lock()
	if f.appendErr != nil {
		f.mu.Unlock()
		return f.appendErr
	}
	c, ok := f.convs[convID]
	if !ok || c.OwnerID != userID {
		f.mu.Unlock()
		return store.ErrNotFound
	}
	if !c.HasMessage(msg.ID) {
		c = c.Clone()
		c.Messages = append(c.Messages, msg)
		c.UpdatedAt = f.tick()
		f.convs[convID] = c
		f.appends = append(f.appends, msg)
	}
	f.mu.Unlock()

	f.changed(convID)
	return nil
}

func (f *fakeStore) Delete(ctx context.Context, userID, convID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	c, ok := f.convs[convID]
	if !ok || c.OwnerID != userID {
		return store.ErrNotFound
	}
	delete(f.convs, convID)
	return nil
}

func (f *fakeStore) BatchDelete(ctx context.Context, userID string, ids []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.batchErr != nil {
		return f.batchErr
	}
	for _, id := range ids {
		if c, ok := f.convs[id]; !ok || c.OwnerID != userID {
			return store.ErrBatchAborted
		}
	}
	for _, id := range ids {
		delete(f.convs, id)
	}
	return nil
}

// =============================================================================
// FAKE COMPLETERS
// =============================================================================

type fakeCompleter struct {
	mu      sync.Mutex
	reply   string
	err     error
	prompts []string
}

func (c *fakeCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.prompts = append(c.prompts, prompt)
	if c.err != nil {
		return "", c.err
	}
	return c.reply, nil
}

func (c *fakeCompleter) lastPrompt() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.prompts) == 0 {
		return ""
	}
	return c.prompts[len(c.prompts)-1]
}

// blockingCompleter parks each call until release is closed. started
// signals each call without blocking once its buffer is full.
type blockingCompleter struct {
	started chan struct{}
	release chan struct{}
}

func newBlockingCompleter() *blockingCompleter {
	return &blockingCompleter{started: make(chan struct{}, 8), release: make(chan struct{})}
}

func (c *blockingCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	select {
	case c.started <- struct{}{}:
	default:
	}
	select {
	case <-c.release:
		return "done", nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}
