// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"github.com/charmbracelet/bubbles/key"

	"github.com/MarceTxt/gwen-ai-chat/internal/ui/components"
)

// =============================================================================
// KEY MAP DEFINITION
// =============================================================================

// KeyMap defines all keyboard bindings for the chat screen.
type KeyMap struct {
	Up           key.Binding
	Down         key.Binding
	PageUp       key.Binding
	PageDown     key.Binding
	Submit       key.Binding
	Focus        key.Binding
	New          key.Binding
	Rename       key.Binding
	Delete       key.Binding
	Select       key.Binding
	Toggle       key.Binding
	SelectAll    key.Binding
	DeleteChosen key.Binding
	Cancel       key.Binding
	SignOut      key.Binding
	Quit         key.Binding
	Yes          key.Binding
	No           key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("up/k", "previous"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("down/j", "next"),
		),
		PageUp: key.NewBinding(
			key.WithKeys("pgup"),
			key.WithHelp("PgUp", "scroll up"),
		),
		PageDown: key.NewBinding(
			key.WithKeys("pgdown"),
			key.WithHelp("PgDn", "scroll down"),
		),
		Submit: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "send"),
		),
		Focus: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "sidebar"),
		),
		New: key.NewBinding(
			key.WithKeys("ctrl+n"),
			key.WithHelp("C-n", "new"),
		),
		Rename: key.NewBinding(
			key.WithKeys("ctrl+r"),
			key.WithHelp("C-r", "rename"),
		),
		Delete: key.NewBinding(
			key.WithKeys("ctrl+d"),
			key.WithHelp("C-d", "delete"),
		),
		Select: key.NewBinding(
			key.WithKeys("ctrl+s"),
			key.WithHelp("C-s", "select"),
		),
		Toggle: key.NewBinding(
			key.WithKeys(" "),
			key.WithHelp("space", "toggle"),
		),
		SelectAll: key.NewBinding(
			key.WithKeys("ctrl+a"),
			key.WithHelp("C-a", "all"),
		),
		DeleteChosen: key.NewBinding(
			key.WithKeys("ctrl+x"),
			key.WithHelp("C-x", "delete selected"),
		),
		Cancel: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "cancel"),
		),
		SignOut: key.NewBinding(
			key.WithKeys("ctrl+l"),
			key.WithHelp("C-l", "sign out"),
		),
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c"),
			key.WithHelp("C-c", "quit"),
		),
		Yes: key.NewBinding(
			key.WithKeys("y", "Y", "enter"),
			key.WithHelp("y", "confirm"),
		),
		No: key.NewBinding(
			key.WithKeys("n", "N", "esc"),
			key.WithHelp("n", "cancel"),
		),
	}
}

// HelpContext selects which hints the shortcut bar shows.
type HelpContext int

const (
	ContextInput HelpContext = iota
	ContextSidebar
	ContextSelecting
	ContextRenaming
)

// Hints returns the shortcut bar entries for ctx.
func (k KeyMap) Hints(ctx HelpContext) []components.Shortcut {
	var bindings []key.Binding
	switch ctx {
	case ContextSelecting:
		bindings = []key.Binding{k.Toggle, k.SelectAll, k.DeleteChosen, k.Cancel, k.Focus}
	case ContextRenaming:
		bindings = []key.Binding{k.Submit, k.Cancel}
	case ContextSidebar:
		bindings = []key.Binding{k.Submit, k.Up, k.Down, k.Focus, k.New, k.Select, k.Delete, k.SignOut, k.Quit}
	default:
		bindings = []key.Binding{k.Submit, k.Focus, k.New, k.Rename, k.Delete, k.Select, k.SignOut, k.Quit}
	}

	hints := make([]components.Shortcut, 0, len(bindings))
	for _, b := range bindings {
		h := b.Help()
		desc := h.Desc
		if ctx == ContextSidebar {
			switch h.Key {
			case k.Submit.Help().Key:
				desc = "open"
			case k.Focus.Help().Key:
				desc = "input"
			}
		}
		hints = append(hints, components.Shortcut{Key: h.Key, Desc: desc})
	}
	return hints
}
