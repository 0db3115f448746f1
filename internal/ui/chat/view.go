// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/pkg/errors"

	core "github.com/MarceTxt/gwen-ai-chat/internal/chat"
	"github.com/MarceTxt/gwen-ai-chat/internal/ui/components"
	"github.com/MarceTxt/gwen-ai-chat/internal/ui/styles"
)

// =============================================================================
// LAYOUT CONSTANTS
// =============================================================================

const (
	headerHeight    = 3
	inputHeight     = 2
	statusBarHeight = 1
	minSidebarWidth = 20
	maxSidebarWidth = 34
)

// =============================================================================
// LAYOUT
// =============================================================================

func (m Model) sidebarWidth() int {
	w := m.width / 3
	if w > maxSidebarWidth {
		w = maxSidebarWidth
	}
	if w < minSidebarWidth {
		w = minSidebarWidth
	}
	return w
}

// overlayHeight is the height taken by the error and confirmation lines.
func (m Model) overlayHeight() int {
	h := 0
	if m.errorText() != "" {
		h += lipgloss.Height(components.ErrorToast(m.theme, m.errorText(), m.width-m.sidebarWidth()))
	}
	if m.confirm.Active {
		h += lipgloss.Height(m.confirm.View(m.theme))
	}
	return h
}

// layout sizes every component and re-renders the message pane.
func (m *Model) layout() {
	sw := m.sidebarWidth()
	paneWidth := m.width - sw
	bodyHeight := m.height - headerHeight - statusBarHeight
	if bodyHeight < 4 {
		bodyHeight = 4
	}

	m.header.SetWidth(m.width)
	if conv, ok := m.state.Active(); ok {
		m.header.SetConversation(conv.Name, len(m.state.Messages))
	} else {
		m.header.SetConversation("", 0)
	}

	m.sidebar.SetSize(sw, bodyHeight)
	m.input.Width = paneWidth - 6

	vpHeight := bodyHeight - inputHeight - m.overlayHeight()
	if vpHeight < 1 {
		vpHeight = 1
	}
	m.viewport.Width = paneWidth
	m.viewport.Height = vpHeight
	m.renderer.SetWidth(paneWidth)
	m.renderContent()
}

// renderContent fills the message pane and keeps it pinned to the bottom.
func (m *Model) renderContent() {
	var content string
	switch {
	case m.state.Loading && len(m.state.Conversations) == 0:
		content = m.theme.WelcomeInfo.Render("Loading conversations...")
	case len(m.state.Messages) == 0 && !m.typingOn:
		content = components.Welcome(m.theme, m.opts.AssistantName, m.viewport.Width, m.viewport.Height)
	default:
		content = m.renderer.RenderAll(m.state.Messages)
		if m.typingOn {
			content += "\n" + m.typing.View()
		}
	}

	atBottom := m.viewport.AtBottom() || m.viewport.TotalLineCount() == 0
	m.viewport.SetContent(content)
	if atBottom {
		m.viewport.GotoBottom()
	}
}

func (m Model) errorText() string {
	switch {
	case m.flash != nil:
		return userMessage(m.flash)
	case m.state.Err != nil:
		return userMessage(m.state.Err)
	}
	return ""
}

// userMessage prefers the chat core's short user-facing text.
func userMessage(err error) string {
	var ce *core.Error
	if errors.As(err, &ce) {
		return ce.UserMessage()
	}
	return err.Error()
}

func (m Model) helpContext() HelpContext {
	switch {
	case m.renaming:
		return ContextRenaming
	case m.state.Selecting:
		return ContextSelecting
	case m.focus == focusSidebar:
		return ContextSidebar
	default:
		return ContextInput
	}
}

// =============================================================================
// VIEW
// =============================================================================

// View renders the current screen.
func (m Model) View() string {
	if m.screen == ScreenLogin {
		return m.login.View(m.width, m.height)
	}

	sw := m.sidebarWidth()
	paneWidth := m.width - sw

	sidebar := m.sidebar.View(components.SidebarView{
		Conversations: m.state.Conversations,
		ActiveID:      m.state.ActiveID,
		Selecting:     m.state.Selecting,
		Selected:      m.state.Selected,
		Loading:       m.state.Loading && len(m.state.Conversations) == 0,
		Focused:       m.focus == focusSidebar,
	})

	var pane []string
	pane = append(pane, m.viewport.View())
	if text := m.errorText(); text != "" {
		pane = append(pane, components.ErrorToast(m.theme, text, paneWidth))
	}
	if m.confirm.Active {
		pane = append(pane, m.confirm.View(m.theme))
	}
	pane = append(pane, m.theme.InputContainer.Width(paneWidth).Render(m.inputView()))

	body := lipgloss.JoinHorizontal(lipgloss.Top,
		sidebar,
		lipgloss.JoinVertical(lipgloss.Left, pane...),
	)

	return lipgloss.JoinVertical(lipgloss.Left,
		m.header.View(),
		body,
		components.ShortcutBar(m.theme, m.keys.Hints(m.helpContext()), m.width),
	)
}

func (m Model) inputView() string {
	switch {
	case m.renaming:
		return m.theme.ShortcutDesc.Render("Rename: ") + m.input.View()
	case m.state.Typing():
		return m.typing.View()
	case m.state.Busy():
		return m.theme.ShortcutDesc.Render("Sending...")
	case m.state.Loading:
		return styles.RenderInfo("Loading...")
	}
	return strings.TrimRight(m.input.View(), " ")
}
