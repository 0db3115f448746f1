// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/MarceTxt/gwen-ai-chat/internal/ui/styles"
)

// =============================================================================
// LOGIN FORM
// =============================================================================

// LoginSubmitMsg is emitted when the form is submitted.
type LoginSubmitMsg struct {
	Email    string
	Password string
	Register bool
}

// Login is the email/password form shown while nobody is signed in.
type Login struct {
	email    textinput.Model
	password textinput.Model
	focus    int
	register bool
	busy     bool
	err      string
	theme    *styles.Theme
}

// NewLogin creates the form with the email field focused.
func NewLogin(theme *styles.Theme) Login {
	email := textinput.New()
	email.Placeholder = "you@example.com"
	email.Prompt = ""
	email.CharLimit = 254
	email.Width = 36
	email.Focus()

	password := textinput.New()
	password.Placeholder = "at least 6 characters"
	password.Prompt = ""
	password.EchoMode = textinput.EchoPassword
	password.EchoCharacter = '*'
	password.CharLimit = 128
	password.Width = 36

	return Login{email: email, password: password, theme: theme}
}

// Registering reports whether the form creates an account.
func (l Login) Registering() bool {
	return l.register
}

// SetBusy disables submission while a request runs.
func (l *Login) SetBusy(busy bool) {
	l.busy = busy
}

// SetError shows err below the fields and clears the password.
func (l *Login) SetError(err string) {
	l.err = err
	l.busy = false
	l.password.SetValue("")
}

// Reset clears the form for the next sign-in.
func (l *Login) Reset() {
	l.password.SetValue("")
	l.err = ""
	l.busy = false
	l.focusField(0)
}

func (l *Login) focusField(i int) {
	l.focus = i
	if i == 0 {
		l.email.Focus()
		l.password.Blur()
		return
	}
	l.email.Blur()
	l.password.Focus()
}

// Update handles form keys.
func (l Login) Update(msg tea.Msg) (Login, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "tab", "shift+tab", "up", "down":
			l.focusField(1 - l.focus)
			return l, nil
		case "ctrl+t":
			l.register = !l.register
			l.err = ""
			return l, nil
		case "enter":
			if l.focus == 0 {
				l.focusField(1)
				return l, nil
			}
			if l.busy {
				return l, nil
			}
			l.busy = true
			l.err = ""
			submit := LoginSubmitMsg{
				Email:    strings.TrimSpace(l.email.Value()),
				Password: l.password.Value(),
				Register: l.register,
			}
			return l, func() tea.Msg { return submit }
		}
	}

	var cmd tea.Cmd
	if l.focus == 0 {
		l.email, cmd = l.email.Update(msg)
	} else {
		l.password, cmd = l.password.Update(msg)
	}
	return l, cmd
}

// View renders the form centered in width x height.
func (l Login) View(width, height int) string {
	title := "Sign in to Gwen"
	toggle := "ctrl+t: create an account"
	if l.register {
		title = "Create a Gwen account"
		toggle = "ctrl+t: sign in instead"
	}

	lines := []string{
		l.theme.LoginTitle.Render(title),
		l.theme.LoginLabel.Render("Email"),
		l.email.View(),
		"",
		l.theme.LoginLabel.Render("Password"),
		l.password.View(),
		"",
	}
	switch {
	case l.err != "":
		lines = append(lines, styles.RenderError(l.err))
	case l.busy:
		lines = append(lines, l.theme.ShortcutDesc.Render("Working..."))
	default:
		lines = append(lines, "")
	}
	lines = append(lines,
		l.theme.ShortcutDesc.Render("tab: switch field  enter: submit"),
		l.theme.ShortcutDesc.Render(toggle),
	)

	box := l.theme.LoginBox.Render(strings.Join(lines, "\n"))
	return lipgloss.Place(maxInt(width, 1), maxInt(height, 1), lipgloss.Center, lipgloss.Center, box)
}
