// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/MarceTxt/gwen-ai-chat/internal/ui/styles"
	"github.com/MarceTxt/gwen-ai-chat/internal/util"
)

// =============================================================================
// HEADER COMPONENT
// =============================================================================

// Header is the title bar above the chat pane: brand, active conversation
// name and its message count.
type Header struct {
	Brand string
	Title string
	Count int
	User  string
	Width int
	theme *styles.Theme
}

// NewHeader creates a header with default values.
func NewHeader(theme *styles.Theme) *Header {
	return &Header{
		Brand: "Gwen",
		Width: 80,
		theme: theme,
	}
}

// SetWidth updates the header width.
func (h *Header) SetWidth(width int) {
	h.Width = width
}

// SetConversation updates the displayed conversation.
func (h *Header) SetConversation(name string, count int) {
	h.Title = name
	h.Count = count
}

// View renders the header.
func (h *Header) View() string {
	width := maxInt(h.Width, 30)
	// Border and padding
	inner := width - 4

	brand := h.theme.HeaderBrand.Render(h.Brand)
	user := ""
	if h.User != "" {
		user = h.theme.HeaderSubtitle.Render(h.User)
	}

	left := brand
	if h.Title != "" {
		titleWidth := inner - lipgloss.Width(brand) - lipgloss.Width(user) - 4
		title := util.TruncateWidth(h.Title, maxInt(titleWidth-len(FormatCount(h.Count))-3, 8))
		left += "  " + h.theme.HeaderTitle.Render(title) +
			h.theme.HeaderSubtitle.Render(" - "+FormatCount(h.Count))
	}

	gap := inner - lipgloss.Width(left) - lipgloss.Width(user)
	if gap < 1 {
		gap = 1
	}
	line := left + lipgloss.NewStyle().Width(gap).Render("") + user

	return h.theme.Header.Width(width - 2).Render(line)
}
