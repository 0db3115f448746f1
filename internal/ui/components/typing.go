// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/MarceTxt/gwen-ai-chat/internal/ui/styles"
)

// =============================================================================
// TYPING INDICATOR
// =============================================================================

// Typing shows "<name> is typing" with a spinner while a reply is pending.
type Typing struct {
	spinner spinner.Model
	name    string
	theme   *styles.Theme
}

// NewTyping creates an ASCII-compatible typing indicator for name.
func NewTyping(theme *styles.Theme, name string) Typing {
	s := spinner.New()
	s.Spinner = spinner.Spinner{
		Frames: []string{".  ", ".. ", "...", " ..", "  .", "   "},
		FPS:    time.Second / 6,
	}
	s.Style = theme.Typing
	return Typing{spinner: s, name: name, theme: theme}
}

// Tick starts the animation.
func (t Typing) Tick() tea.Cmd {
	return t.spinner.Tick
}

// Update advances the animation.
func (t Typing) Update(msg tea.Msg) (Typing, tea.Cmd) {
	var cmd tea.Cmd
	t.spinner, cmd = t.spinner.Update(msg)
	return t, cmd
}

// View renders the indicator.
func (t Typing) View() string {
	return t.theme.Typing.Render(t.name+" is typing") + t.spinner.View()
}
