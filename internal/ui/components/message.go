// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/rs/zerolog/log"

	"github.com/MarceTxt/gwen-ai-chat/internal/model"
	"github.com/MarceTxt/gwen-ai-chat/internal/ui/styles"
)

// =============================================================================
// MESSAGE RENDERER
// =============================================================================

// MessageRenderer turns messages into styled bubbles. Assistant replies are
// rendered as markdown with glamour when enabled. Rendered bubbles are
// cached per message id for the current width.
type MessageRenderer struct {
	theme    *styles.Theme
	markdown bool
	style    string
	width    int
	md       *glamour.TermRenderer
	cache    map[string]string
}

// NewMessageRenderer creates a renderer. style is a glamour style name.
func NewMessageRenderer(theme *styles.Theme, markdown bool, style string) *MessageRenderer {
	return &MessageRenderer{
		theme:    theme,
		markdown: markdown,
		style:    theme.GlamourStyle(style),
		width:    80,
		cache:    make(map[string]string),
	}
}

// SetWidth changes the wrap width, dropping cached output.
func (r *MessageRenderer) SetWidth(width int) {
	if width == r.width {
		return
	}
	r.width = width
	r.md = nil
	r.cache = make(map[string]string)
}

// bubbleWidth is the text width inside a bubble's border, padding and margin.
func (r *MessageRenderer) bubbleWidth() int {
	return maxInt(r.width-8, 20)
}

func (r *MessageRenderer) renderer() *glamour.TermRenderer {
	if r.md != nil || !r.markdown {
		return r.md
	}
	md, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(r.style),
		glamour.WithWordWrap(r.bubbleWidth()),
	)
	if err != nil {
		log.Warn().Err(err).Str("style", r.style).Msg("markdown renderer unavailable")
		r.markdown = false
		return nil
	}
	r.md = md
	return md
}

// Markdown renders text as markdown, or returns it unchanged when markdown
// is off or fails.
func (r *MessageRenderer) Markdown(text string) string {
	md := r.renderer()
	if md == nil {
		return text
	}
	out, err := md.Render(text)
	if err != nil {
		return text
	}
	return strings.Trim(out, "\n")
}

// Render returns the bubble for msg.
func (r *MessageRenderer) Render(msg model.Message) string {
	if out, ok := r.cache[msg.ID]; ok && msg.ID != "" {
		return out
	}

	header := r.theme.MessageAuthor.Render(msg.Author())
	if clock := FormatClock(msg.Timestamp); clock != "" {
		header += " " + r.theme.MessageTime.Render(clock)
	}

	width := r.bubbleWidth()
	var out string
	switch msg.Sender {
	case model.SenderUser:
		out = r.theme.UserBubble.Width(width).Render(header + "\n" + msg.Text)
	case model.SenderAssistant:
		out = r.theme.AssistantBubble.Width(width).Render(header + "\n" + r.Markdown(msg.Text))
	default:
		out = r.theme.SystemBubble.Width(width).Render(header + "\n" + msg.Text)
	}

	if msg.ID != "" {
		r.cache[msg.ID] = out
	}
	return out
}

// RenderAll joins the bubbles of msgs.
func (r *MessageRenderer) RenderAll(msgs []model.Message) string {
	parts := make([]string, 0, len(msgs))
	for _, m := range msgs {
		parts = append(parts, r.Render(m))
	}
	return strings.Join(parts, "\n")
}
