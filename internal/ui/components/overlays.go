// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/MarceTxt/gwen-ai-chat/internal/ui/styles"
)

// =============================================================================
// ERROR TOAST
// =============================================================================

// ErrorToast renders a dismissible error line.
func ErrorToast(theme *styles.Theme, message string, width int) string {
	body := theme.ErrorTitle.Render(styles.StatusIndicators.Error+" Error") + "  " +
		theme.ErrorMessage.Render(message) + "  " +
		theme.ShortcutDesc.Render("(esc to dismiss)")
	return theme.ErrorBox.Width(maxInt(width-2, 20)).Render(body)
}

// =============================================================================
// CONFIRMATION PROMPT
// =============================================================================

// Confirm is a yes/no question shown above the input.
type Confirm struct {
	Prompt string
	Active bool
}

// Ask activates the prompt.
func (c *Confirm) Ask(prompt string) {
	c.Prompt = prompt
	c.Active = true
}

// Close deactivates the prompt.
func (c *Confirm) Close() {
	c.Prompt = ""
	c.Active = false
}

// View renders the prompt.
func (c Confirm) View(theme *styles.Theme) string {
	if !c.Active {
		return ""
	}
	return theme.ConfirmBox.Render(c.Prompt + "  " +
		theme.ShortcutKey.Render("y") + theme.ShortcutDesc.Render("/") +
		theme.ShortcutKey.Render("n"))
}

// =============================================================================
// WELCOME
// =============================================================================

// Welcome renders the empty-conversation greeting centered in width x height.
func Welcome(theme *styles.Theme, assistant string, width, height int) string {
	lines := []string{
		theme.WelcomeTitle.Render("Welcome to " + assistant),
		"",
		theme.WelcomeInfo.Render("Type a message below to start the conversation."),
		theme.WelcomeInfo.Render("Your first message names the conversation."),
	}
	box := theme.WelcomeBox.Render(strings.Join(lines, "\n"))
	return lipgloss.Place(maxInt(width, 1), maxInt(height, 1), lipgloss.Center, lipgloss.Center, box)
}

// =============================================================================
// SHORTCUT BAR
// =============================================================================

// Shortcut is a key hint.
type Shortcut struct {
	Key  string
	Desc string
}

// ShortcutBar renders hints on one line, dropping those that do not fit.
func ShortcutBar(theme *styles.Theme, hints []Shortcut, width int) string {
	var parts []string
	used := 2
	for _, h := range hints {
		part := theme.ShortcutKey.Render(h.Key) + " " + theme.ShortcutDesc.Render(h.Desc)
		w := lipgloss.Width(part) + 3
		if used+w > width {
			break
		}
		used += w
		parts = append(parts, part)
	}
	return theme.StatusBar.Width(maxInt(width, 1)).Render(strings.Join(parts, "   "))
}
