// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog/log"

	core "github.com/MarceTxt/gwen-ai-chat/internal/chat"
	"github.com/MarceTxt/gwen-ai-chat/internal/model"
)

// =============================================================================
// MESSAGES
// =============================================================================

// authChangedMsg signals a sign-in or sign-out.
type authChangedMsg struct{}

// authResultMsg is the outcome of a login form submission.
type authResultMsg struct {
	err error
}

// stateChangedMsg signals a new chat core state for a session.
type stateChangedMsg struct {
	session int
}

// opDoneMsg reports a finished Manager operation.
type opDoneMsg struct {
	op  string
	err error
}

// sendDoneMsg reports a finished dispatch.
type sendDoneMsg struct {
	accepted bool
}

// =============================================================================
// SESSION
// =============================================================================

// session is the chat core of one signed-in user. Change notifications are
// coalesced into a one-slot channel so the Manager never blocks on the UI.
type session struct {
	id      int
	user    model.User
	manager *core.Manager
	changes chan struct{}
	done    chan struct{}
}

func newSession(id int, user model.User, manager *core.Manager) *session {
	s := &session{
		id:      id,
		user:    user,
		manager: manager,
		changes: make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	manager.OnChange(func(core.State) {
		select {
		case s.changes <- struct{}{}:
		default:
		}
	})
	return s
}

// wait blocks until the next change or until the session closes.
func (s *session) wait() tea.Cmd {
	return func() tea.Msg {
		select {
		case <-s.changes:
			return stateChangedMsg{session: s.id}
		case <-s.done:
			return nil
		}
	}
}

func (s *session) close() {
	close(s.done)
	s.manager.Close()
}

// =============================================================================
// COMMAND CREATORS
// =============================================================================

// waitForAuth blocks until the identity provider reports a change.
func waitForAuth(signal <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		if _, ok := <-signal; !ok {
			return nil
		}
		return authChangedMsg{}
	}
}

// submitLogin runs a registration or sign-in.
func submitLogin(ctx context.Context, auth Authenticator, email, password string, register bool) tea.Cmd {
	return func() tea.Msg {
		var err error
		if register {
			_, err = auth.Register(ctx, email, password)
		} else {
			_, err = auth.SignIn(ctx, email, password)
		}
		return authResultMsg{err: err}
	}
}

// managerOp runs fn against the manager off the UI goroutine.
func managerOp(op string, fn func() error) tea.Cmd {
	return func() tea.Msg {
		err := fn()
		if err != nil {
			log.Debug().Err(err).Str("op", op).Msg("chat operation failed")
		}
		return opDoneMsg{op: op, err: err}
	}
}

// sendMessage runs the dispatch pipeline.
func sendMessage(ctx context.Context, m *core.Manager, text string) tea.Cmd {
	return func() tea.Msg {
		return sendDoneMsg{accepted: m.Send(ctx, text)}
	}
}
