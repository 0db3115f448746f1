// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/MarceTxt/gwen-ai-chat/internal/auth"
	core "github.com/MarceTxt/gwen-ai-chat/internal/chat"
	"github.com/MarceTxt/gwen-ai-chat/internal/model"
	"github.com/MarceTxt/gwen-ai-chat/internal/ui/components"
	"github.com/MarceTxt/gwen-ai-chat/internal/ui/styles"
)

// =============================================================================
// COLLABORATORS
// =============================================================================

// Authenticator is the identity provider behind the login screen.
type Authenticator interface {
	Register(ctx context.Context, email, password string) (model.User, error)
	SignIn(ctx context.Context, email, password string) (model.User, error)
	SignOut()
	CurrentUser() (model.User, bool)
	Subscribe(fn func(*model.User)) (cancel func())
}

// ManagerFactory builds the chat core for a signed-in user.
type ManagerFactory func(user model.User) *core.Manager

// Options configures the view.
type Options struct {
	AssistantName string
	Markdown      bool
	GlamourStyle  string
}

// =============================================================================
// SCREEN AND FOCUS
// =============================================================================

// Screen is the top-level screen.
type Screen int

const (
	ScreenLogin Screen = iota
	ScreenChat
)

type focusArea int

const (
	focusInput focusArea = iota
	focusSidebar
)

// confirmAction is the destructive action awaiting a y/n answer.
type confirmAction int

const (
	confirmNone confirmAction = iota
	confirmDelete
	confirmDeleteSelected
)

// =============================================================================
// MODEL
// =============================================================================

// Model is the Bubble Tea model for the whole application.
type Model struct {
	ctx        context.Context
	auth       Authenticator
	newManager ManagerFactory
	opts       Options

	// Styling and components
	theme    *styles.Theme
	keys     KeyMap
	header   *components.Header
	sidebar  *components.Sidebar
	renderer *components.MessageRenderer
	login    components.Login
	typing   components.Typing
	confirm  components.Confirm
	viewport viewport.Model
	input    textinput.Model

	// Dimensions
	width  int
	height int

	// Session state
	screen      Screen
	authSignal  chan struct{}
	unsubscribe func()
	session     *session
	sessions    int
	state       core.State

	// Interaction state
	focus    focusArea
	renaming bool
	pending  confirmAction
	deleteID string
	flash    error
	typingOn bool
}

// New creates the application model. The auth subscription starts here so
// no sign-in between New and Init is missed.
func New(ctx context.Context, theme *styles.Theme, authn Authenticator, factory ManagerFactory, opts Options) Model {
	if opts.AssistantName == "" {
		opts.AssistantName = core.DefaultOptions().AssistantName
	}

	input := textinput.New()
	input.Placeholder = "Type a message..."
	input.Prompt = "> "
	input.PromptStyle = theme.InputPrompt
	input.CharLimit = 4000

	m := Model{
		ctx:        ctx,
		auth:       authn,
		newManager: factory,
		opts:       opts,
		theme:      theme,
		keys:       DefaultKeyMap(),
		header:     components.NewHeader(theme),
		sidebar:    components.NewSidebar(theme),
		renderer:   components.NewMessageRenderer(theme, opts.Markdown, opts.GlamourStyle),
		login:      components.NewLogin(theme),
		typing:     components.NewTyping(theme, opts.AssistantName),
		viewport:   viewport.New(80, 20),
		input:      input,
		width:      80,
		height:     24,
		authSignal: make(chan struct{}, 1),
	}

	signal := m.authSignal
	m.unsubscribe = authn.Subscribe(func(*model.User) {
		select {
		case signal <- struct{}{}:
		default:
		}
	})
	return m
}

// Init starts listening for auth changes.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, waitForAuth(m.authSignal))
}

// Close tears down the auth subscription and the active session. Call it
// on the model returned by the program once it exits.
func (m Model) Close() {
	if m.unsubscribe != nil {
		m.unsubscribe()
	}
	if m.session != nil {
		m.session.close()
	}
}

// Screen returns the current screen.
func (m Model) Screen() Screen {
	return m.screen
}

// State returns the last rendered chat core snapshot.
func (m Model) State() core.State {
	return m.state
}

// =============================================================================
// UPDATE
// =============================================================================

// Update handles all messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.layout()
		return m, nil

	case authChangedMsg:
		return m.handleAuthChanged()

	case authResultMsg:
		if msg.err != nil {
			m.login.SetError(loginErrorText(msg.err))
		} else {
			m.login.SetBusy(false)
		}
		return m, nil

	case components.LoginSubmitMsg:
		return m, submitLogin(m.ctx, m.auth, msg.Email, msg.Password, msg.Register)

	case stateChangedMsg:
		if m.session == nil || msg.session != m.session.id {
			return m, nil
		}
		cmd := m.refresh()
		return m, tea.Batch(cmd, m.session.wait())

	case opDoneMsg:
		if msg.err != nil && m.session != nil && m.session.manager.Snapshot().Err == nil {
			m.flash = msg.err
			m.layout()
		}
		return m, nil

	case sendDoneMsg:
		return m, nil

	case spinner.TickMsg:
		if !m.typingOn {
			return m, nil
		}
		var cmd tea.Cmd
		m.typing, cmd = m.typing.Update(msg)
		m.renderContent()
		return m, cmd

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		if m.screen == ScreenLogin {
			var cmd tea.Cmd
			m.login, cmd = m.login.Update(msg)
			return m, cmd
		}
		return m.handleKey(msg)
	}

	if m.screen == ScreenLogin {
		var cmd tea.Cmd
		m.login, cmd = m.login.Update(msg)
		return m, cmd
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// handleAuthChanged starts or ends the chat session to match the signed-in
// user.
func (m Model) handleAuthChanged() (tea.Model, tea.Cmd) {
	cmds := []tea.Cmd{waitForAuth(m.authSignal)}

	user, ok := m.auth.CurrentUser()
	switch {
	case ok && (m.session == nil || m.session.user.ID != user.ID):
		cmds = append(cmds, m.startSession(user))
	case !ok && m.session != nil:
		m.endSession()
	}
	return m, tea.Batch(cmds...)
}

func (m *Model) startSession(user model.User) tea.Cmd {
	if m.session != nil {
		m.endSession()
	}
	m.sessions++
	s := newSession(m.sessions, user, m.newManager(user))
	m.session = s
	m.state = s.manager.Snapshot()
	m.screen = ScreenChat
	m.focus = focusInput
	m.header.User = user.Email
	m.input.SetValue("")
	m.input.Focus()
	m.layout()

	log.Info().Str("user_id", user.ID).Msg("session started")

	ctx := m.ctx
	load := managerOp("load", func() error { return s.manager.Load(ctx) })
	return tea.Batch(s.wait(), load)
}

func (m *Model) endSession() {
	if m.session == nil {
		return
	}
	log.Info().Str("user_id", m.session.user.ID).Msg("session ended")
	m.session.close()
	m.session = nil
	m.state = core.State{}
	m.screen = ScreenLogin
	m.renaming = false
	m.pending = confirmNone
	m.confirm.Close()
	m.flash = nil
	m.typingOn = false
	m.header.User = ""
	m.input.Blur()
	m.login.Reset()
}

// refresh pulls the latest snapshot and re-renders.
func (m *Model) refresh() tea.Cmd {
	prevActive := m.state.ActiveID
	m.state = m.session.manager.Snapshot()
	if m.state.ActiveID != prevActive && m.state.ActiveID != "" {
		m.sidebar.FocusID(m.state.Conversations, m.state.ActiveID)
	}

	var cmd tea.Cmd
	typing := m.state.Typing()
	if typing && !m.typingOn {
		cmd = m.typing.Tick()
	}
	m.typingOn = typing

	m.layout()
	return cmd
}

// =============================================================================
// KEY HANDLING
// =============================================================================

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.session == nil {
		return m, nil
	}
	mgr := m.session.manager
	ctx := m.ctx

	if m.confirm.Active {
		return m.handleConfirmKey(msg)
	}
	if m.renaming {
		return m.handleRenameKey(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Cancel):
		switch {
		case m.flash != nil:
			m.flash = nil
		case m.state.Err != nil:
			mgr.DismissError()
		case m.state.Selecting:
			mgr.CancelSelection()
		case m.focus == focusSidebar:
			m.setFocus(focusInput)
		}
		m.sync()
		return m, nil

	case key.Matches(msg, m.keys.Focus):
		if m.focus == focusInput {
			m.setFocus(focusSidebar)
		} else {
			m.setFocus(focusInput)
		}
		return m, nil

	case key.Matches(msg, m.keys.New):
		return m, managerOp("create", func() error {
			_, err := mgr.Create(ctx)
			return err
		})

	case key.Matches(msg, m.keys.Rename):
		if conv, ok := m.state.Active(); ok {
			m.renaming = true
			m.input.SetValue(conv.Name)
			m.input.CursorEnd()
			m.setFocus(focusInput)
			m.layout()
		}
		return m, nil

	case key.Matches(msg, m.keys.Delete):
		id := m.state.ActiveID
		if m.focus == focusSidebar {
			id = m.sidebar.CursorID(m.state.Conversations)
		}
		if conv, ok := m.state.Find(id); ok {
			m.deleteID = id
			m.pending = confirmDelete
			m.confirm.Ask(fmt.Sprintf("Delete %q?", conv.Name))
			m.layout()
		}
		return m, nil

	case key.Matches(msg, m.keys.Select):
		mgr.ToggleSelecting()
		m.sync()
		if m.state.Selecting {
			m.setFocus(focusSidebar)
		}
		return m, nil

	case key.Matches(msg, m.keys.SelectAll) && m.state.Selecting:
		mgr.SelectAll()
		m.sync()
		return m, nil

	case key.Matches(msg, m.keys.DeleteChosen) && m.state.Selecting:
		if n := len(m.state.Selected); n > 0 {
			m.pending = confirmDeleteSelected
			m.confirm.Ask(fmt.Sprintf("Delete %s?", countConversations(n)))
			m.layout()
		}
		return m, nil

	case key.Matches(msg, m.keys.SignOut):
		m.auth.SignOut()
		return m, nil

	case key.Matches(msg, m.keys.PageUp):
		m.viewport.HalfViewUp()
		return m, nil

	case key.Matches(msg, m.keys.PageDown):
		m.viewport.HalfViewDown()
		return m, nil
	}

	if m.focus == focusSidebar {
		return m.handleSidebarKey(msg)
	}
	return m.handleInputKey(msg)
}

func (m Model) handleSidebarKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	mgr := m.session.manager
	ctx := m.ctx
	n := len(m.state.Conversations)

	switch {
	case key.Matches(msg, m.keys.Up):
		m.sidebar.MoveCursor(-1, n)
	case key.Matches(msg, m.keys.Down):
		m.sidebar.MoveCursor(1, n)
	case key.Matches(msg, m.keys.Toggle) && m.state.Selecting:
		if id := m.sidebar.CursorID(m.state.Conversations); id != "" {
			mgr.ToggleSelected(id)
			m.sync()
		}
	case key.Matches(msg, m.keys.Submit):
		id := m.sidebar.CursorID(m.state.Conversations)
		if id == "" {
			return m, nil
		}
		if !m.state.Selecting {
			m.setFocus(focusInput)
		}
		return m, managerOp("select", func() error { return mgr.Click(ctx, id) })
	}
	return m, nil
}

func (m Model) handleInputKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Submit) {
		text := m.input.Value()
		if m.state.Busy() || m.state.ActiveID == "" || isBlank(text) {
			return m, nil
		}
		m.input.SetValue("")
		return m, sendMessage(m.ctx, m.session.manager, text)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleRenameKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Cancel):
		m.renaming = false
		m.input.SetValue("")
		m.layout()
		return m, nil
	case key.Matches(msg, m.keys.Submit):
		name := m.input.Value()
		id := m.state.ActiveID
		mgr := m.session.manager
		ctx := m.ctx
		m.renaming = false
		m.input.SetValue("")
		m.layout()
		return m, managerOp("rename", func() error { return mgr.Rename(ctx, id, name) })
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleConfirmKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	mgr := m.session.manager
	ctx := m.ctx

	switch {
	case key.Matches(msg, m.keys.Yes):
		action, id := m.pending, m.deleteID
		m.pending = confirmNone
		m.deleteID = ""
		m.confirm.Close()
		m.layout()
		switch action {
		case confirmDelete:
			return m, managerOp("delete", func() error { return mgr.Delete(ctx, id) })
		case confirmDeleteSelected:
			return m, managerOp("delete selected", func() error { return mgr.DeleteSelected(ctx) })
		}
	case key.Matches(msg, m.keys.No):
		m.pending = confirmNone
		m.deleteID = ""
		m.confirm.Close()
		m.layout()
	}
	return m, nil
}

// sync applies a synchronous Manager change right away instead of waiting
// for the change notification.
func (m *Model) sync() {
	if m.session == nil {
		return
	}
	m.state = m.session.manager.Snapshot()
	m.layout()
}

func (m *Model) setFocus(f focusArea) {
	m.focus = f
	if f == focusInput {
		m.input.Focus()
	} else {
		m.input.Blur()
		m.sidebar.FocusID(m.state.Conversations, m.state.ActiveID)
	}
}

// =============================================================================
// HELPERS
// =============================================================================

// loginErrorText keeps auth failures generic and hides internal errors.
func loginErrorText(err error) string {
	var authErr *auth.AuthError
	if errors.As(err, &authErr) {
		return authErr.Message
	}
	return "Something went wrong. Please try again."
}

func countConversations(n int) string {
	if n == 1 {
		return "1 conversation"
	}
	return fmt.Sprintf("%d conversations", n)
}

func isBlank(s string) bool {
	for _, r := range s {
		if r != ' ' && r != '\t' && r != '\n' && r != '\r' {
			return false
		}
	}
	return true
}
