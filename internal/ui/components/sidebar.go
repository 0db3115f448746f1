// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/MarceTxt/gwen-ai-chat/internal/model"
	"github.com/MarceTxt/gwen-ai-chat/internal/ui/styles"
	"github.com/MarceTxt/gwen-ai-chat/internal/util"
)

// =============================================================================
// SIDEBAR COMPONENT
// =============================================================================

// SidebarView is what the sidebar renders from.
type SidebarView struct {
	Conversations []model.Conversation
	ActiveID      string
	Selecting     bool
	Selected      map[string]bool
	Loading       bool
	Focused       bool
}

// Sidebar lists conversations with their date and message count. It owns
// only the cursor and scroll offset.
type Sidebar struct {
	Width  int
	Height int
	Cursor int
	offset int
	now    func() time.Time
	theme  *styles.Theme
}

// Lines per conversation entry
const sidebarEntryHeight = 2

// NewSidebar creates a sidebar.
func NewSidebar(theme *styles.Theme) *Sidebar {
	return &Sidebar{
		Width:  28,
		Height: 20,
		now:    time.Now,
		theme:  theme,
	}
}

// SetSize updates the sidebar dimensions.
func (s *Sidebar) SetSize(width, height int) {
	s.Width = width
	s.Height = height
}

// MoveCursor moves the cursor by delta, clamped to n entries.
func (s *Sidebar) MoveCursor(delta, n int) {
	s.Cursor += delta
	s.Clamp(n)
}

// Clamp keeps the cursor inside n entries.
func (s *Sidebar) Clamp(n int) {
	if s.Cursor >= n {
		s.Cursor = n - 1
	}
	if s.Cursor < 0 {
		s.Cursor = 0
	}
}

// FocusID puts the cursor on the conversation with id, if listed.
func (s *Sidebar) FocusID(convs []model.Conversation, id string) {
	for i, c := range convs {
		if c.ID == id {
			s.Cursor = i
			return
		}
	}
}

// CursorID returns the id under the cursor.
func (s *Sidebar) CursorID(convs []model.Conversation) string {
	if s.Cursor < 0 || s.Cursor >= len(convs) {
		return ""
	}
	return convs[s.Cursor].ID
}

// visible returns how many entries fit below the title.
func (s *Sidebar) visible() int {
	n := (s.Height - 2) / sidebarEntryHeight
	if n < 1 {
		n = 1
	}
	return n
}

func (s *Sidebar) scroll(n int) {
	rows := s.visible()
	if s.Cursor < s.offset {
		s.offset = s.Cursor
	}
	if s.Cursor >= s.offset+rows {
		s.offset = s.Cursor - rows + 1
	}
	if s.offset > n-rows {
		s.offset = maxInt(n-rows, 0)
	}
}

// View renders the conversation list.
func (s *Sidebar) View(v SidebarView) string {
	inner := maxInt(s.Width-2, 10)

	title := "Conversations"
	if v.Selecting {
		title = "Selected: " + strconv.Itoa(len(v.Selected))
	}

	var b strings.Builder
	b.WriteString(s.theme.SidebarTitle.Render(title))
	b.WriteString("\n")

	switch {
	case v.Loading:
		b.WriteString(s.theme.SidebarMeta.Render("Loading..."))
	case len(v.Conversations) == 0:
		b.WriteString(s.theme.SidebarMeta.Render("No conversations"))
	default:
		s.Clamp(len(v.Conversations))
		s.scroll(len(v.Conversations))
		end := s.offset + s.visible()
		if end > len(v.Conversations) {
			end = len(v.Conversations)
		}
		for i := s.offset; i < end; i++ {
			if i > s.offset {
				b.WriteString("\n")
			}
			b.WriteString(s.entry(v, i, inner))
		}
	}

	return s.theme.Sidebar.
		Width(s.Width - 1).
		Height(s.Height).
		Render(b.String())
}

func (s *Sidebar) entry(v SidebarView, i, width int) string {
	c := v.Conversations[i]

	prefix := "  "
	switch {
	case v.Selecting && v.Selected[c.ID]:
		prefix = s.theme.SidebarMarkSelected.Render(styles.StatusIndicators.Selected) + " "
	case v.Selecting:
		prefix = s.theme.SidebarMark.Render(styles.StatusIndicators.Empty) + " "
	case c.ID == v.ActiveID:
		prefix = s.theme.SidebarItemActive.Render(styles.StatusIndicators.Active) + " "
	}

	nameStyle := s.theme.SidebarItem
	if c.ID == v.ActiveID {
		nameStyle = s.theme.SidebarItemActive
	}
	nameWidth := width - lipgloss.Width(prefix)
	name := prefix + nameStyle.Render(util.TruncateWidth(util.SingleLine(c.Name), nameWidth))

	meta := FormatDate(c.UpdatedAt, s.now()) + " - " + FormatCount(c.MessageCount())
	meta = "    " + s.theme.SidebarMeta.Render(util.TruncateWidth(meta, width-4))

	row := name + "\n" + meta
	if v.Focused && i == s.Cursor {
		row = s.theme.SidebarItemCursor.Width(width).Render(row)
	}
	return row
}
