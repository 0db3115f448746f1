// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/MarceTxt/gwen-ai-chat/internal/config"
	"github.com/MarceTxt/gwen-ai-chat/internal/model"
	"github.com/MarceTxt/gwen-ai-chat/internal/store"
)

// =============================================================================
// OPTIONS
// =============================================================================

// Options holds conversation and dispatch settings.
type Options struct {
	DefaultName    string
	Persona        string
	AssistantName  string
	HistoryWindow  int
	AutoNameLength int
	ApologyText    string

	// Now is the clock; nil means time.Now in UTC.
	Now func() time.Time
}

// DefaultOptions returns the built-in settings.
func DefaultOptions() Options {
	return OptionsFromConfig(config.Default().Chat)
}

// OptionsFromConfig converts the [chat] config section.
func OptionsFromConfig(c config.ChatConfig) Options {
	return Options{
		DefaultName:    c.DefaultName,
		Persona:        c.Persona,
		AssistantName:  c.AssistantName,
		HistoryWindow:  c.HistoryWindow,
		AutoNameLength: c.AutoNameLength,
		ApologyText:    c.ApologyText,
	}
}

func (o Options) withDefaults() Options {
	d := OptionsFromConfig(config.Default().Chat)
	if o.DefaultName == "" {
		o.DefaultName = d.DefaultName
	}
	if o.Persona == "" {
		o.Persona = d.Persona
	}
	if o.AssistantName == "" {
		o.AssistantName = d.AssistantName
	}
	if o.HistoryWindow <= 0 {
		o.HistoryWindow = d.HistoryWindow
	}
	if o.AutoNameLength <= 0 {
		o.AutoNameLength = d.AutoNameLength
	}
	if o.ApologyText == "" {
		o.ApologyText = d.ApologyText
	}
	if o.Now == nil {
		o.Now = func() time.Time { return time.Now().UTC() }
	}
	return o
}

// =============================================================================
// MANAGER
// =============================================================================

// Manager owns one signed-in user's chat state and mediates every store
// and completion call. All methods are safe for concurrent use.
type Manager struct {
	store     Store
	completer Completer
	user      model.User
	opts      Options

	// notifyMu orders transitions with their notifications
	notifyMu sync.Mutex

	mu        sync.Mutex
	state     State
	sub       *store.Subscription
	gen       uint64
	listeners []func(State)
	closed    bool
}

// NewManager creates a manager for user.
func NewManager(st Store, completer Completer, user model.User, opts Options) *Manager {
	return &Manager{
		store:     st,
		completer: completer,
		user:      user,
		opts:      opts.withDefaults(),
		state:     State{Loading: true},
	}
}

// User returns the user the manager works for.
func (m *Manager) User() model.User {
	return m.user
}

// Snapshot returns the current state.
func (m *Manager) Snapshot() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// OnChange registers fn to receive every new state, in order. fn runs on
// the goroutine that caused the change and must not call Manager methods
// other than Snapshot synchronously.
func (m *Manager) OnChange(fn func(State)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, fn)
}

// Close cancels the live subscription. Later calls are no-ops.
func (m *Manager) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	m.gen++
	sub := m.sub
	m.sub = nil
	m.mu.Unlock()

	sub.Cancel()
}

// dispatch applies a and notifies listeners.
func (m *Manager) dispatch(a Action) State {
	return m.update(func(s State) State { return Reduce(s, a) })
}

// update applies fn atomically and notifies listeners. Notifications are
// delivered in transition order.
func (m *Manager) update(fn func(State) State) State {
	m.notifyMu.Lock()
	defer m.notifyMu.Unlock()

	m.mu.Lock()
	next := fn(m.state)
	m.state = next
	listeners := append([]func(State){}, m.listeners...)
	m.mu.Unlock()

	for _, l := range listeners {
		l(next)
	}
	return next
}

// DismissError clears the inline error.
func (m *Manager) DismissError() {
	m.dispatch(errorDismissed{})
}

func (m *Manager) now() time.Time {
	return m.opts.Now()
}

// =============================================================================
// LOADING
// =============================================================================

// Load lists the user's conversations and activates the newest one,
// creating a conversation when there are none. On failure the state stays
// loading with the error set.
func (m *Manager) Load(ctx context.Context) error {
	m.dispatch(loadStarted{})

	convs, err := m.store.List(ctx, m.user.ID)
	if err != nil {
		log.Error().Err(err).Str("user_id", m.user.ID).Msg("failed to list conversations")
		e := newError(KindStoreUnavailable, "load", err)
		m.dispatch(loadFailed{err: e})
		return e
	}
	s := m.dispatch(listLoaded{convs: convs})

	if len(s.Conversations) == 0 {
		_, err := m.Create(ctx)
		return err
	}
	return m.activate(ctx, s.Conversations[0].ID)
}

// =============================================================================
// CONVERSATION OPERATIONS
// =============================================================================

// Create inserts an empty conversation, puts it at the top of the list,
// activates it and leaves selection mode.
func (m *Manager) Create(ctx context.Context) (string, error) {
	conv := model.NewConversation(m.user.ID, m.opts.DefaultName, m.now())
	id, err := m.store.Create(ctx, m.user.ID, conv)
	if err != nil {
		log.Error().Err(err).Str("user_id", m.user.ID).Msg("failed to create conversation")
		e := newError(KindStoreUnavailable, "create", err)
		m.dispatch(errorRaised{err: e})
		return "", e
	}
	conv.ID = id

	m.dispatch(conversationCreated{conv: conv})
	if err := m.activate(ctx, id); err != nil {
		return id, err
	}
	return id, nil
}

// Select makes id the active conversation. Selecting the active
// conversation again is a no-op.
func (m *Manager) Select(ctx context.Context, id string) error {
	m.mu.Lock()
	_, listed := m.state.Find(id)
	same := id == m.state.ActiveID && m.sub != nil
	m.mu.Unlock()

	if !listed || same {
		return nil
	}
	return m.activate(ctx, id)
}

// activate cancels the current subscription and subscribes to id. A newer
// activation supersedes an older one still in progress.
func (m *Manager) activate(ctx context.Context, id string) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.gen++
	gen := m.gen
	old := m.sub
	m.sub = nil
	m.mu.Unlock()

	// Cancel outside the lock: it waits for an in-flight callback
	old.Cancel()

	m.dispatch(activated{id: id, gen: gen})

	sub, err := m.store.Subscribe(ctx, m.user.ID, id, func(c model.Conversation) {
		m.dispatch(snapshotReceived{conv: c, gen: gen})
	})
	if err != nil {
		log.Error().Err(err).Str("conversation_id", id).Msg("failed to subscribe to conversation")
		e := newError(KindStoreUnavailable, "select", err)
		m.dispatch(errorRaised{err: e})
		return e
	}

	m.mu.Lock()
	if m.closed || m.gen != gen {
		m.mu.Unlock()
		sub.Cancel()
		return nil
	}
	m.sub = sub
	m.mu.Unlock()

	log.Debug().Str("conversation_id", id).Uint64("generation", gen).Msg("conversation activated")
	return nil
}

// Rename sets a new name. Blank or unchanged names are ignored. The list
// entry changes once the store acknowledges.
func (m *Manager) Rename(ctx context.Context, id, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil
	}
	m.mu.Lock()
	conv, ok := m.state.Find(id)
	m.mu.Unlock()
	if !ok || conv.Name == name {
		return nil
	}

	at := m.now()
	if err := m.store.Update(ctx, m.user.ID, id, store.Fields{Name: &name, UpdatedAt: at}); err != nil {
		log.Error().Err(err).Str("conversation_id", id).Msg("failed to rename conversation")
		return newError(KindPersistenceFailure, "rename", err)
	}

	m.dispatch(renamed{id: id, name: name, updatedAt: at})
	return nil
}

// Delete removes a conversation after the store confirms. Deleting the
// active conversation activates a new empty one. Callers are expected to
// have confirmed with the user.
func (m *Manager) Delete(ctx context.Context, id string) error {
	err := m.store.Delete(ctx, m.user.ID, id)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		log.Error().Err(err).Str("conversation_id", id).Msg("failed to delete conversation")
		e := newError(KindPersistenceFailure, "delete", err)
		m.dispatch(errorRaised{err: e})
		return e
	}

	wasActive := m.Snapshot().ActiveID == id
	m.dispatch(deleted{ids: []string{id}})

	if wasActive {
		_, err := m.Create(ctx)
		return err
	}
	return nil
}

// AppendMessage adds msg to the local buffer at once and then persists
// it. A persistence failure is logged and returned but not rolled back.
func (m *Manager) AppendMessage(ctx context.Context, convID string, msg model.Message) error {
	m.dispatch(messageAppended{convID: convID, msg: msg})

	if err := m.store.AppendMessage(ctx, m.user.ID, convID, msg); err != nil {
		log.Error().
			Err(err).
			Str("conversation_id", convID).
			Str("message_id", msg.ID).
			Msg("failed to persist message")
		return newError(KindPersistenceFailure, "append", err)
	}
	return nil
}
