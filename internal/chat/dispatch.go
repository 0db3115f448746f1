// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/MarceTxt/gwen-ai-chat/internal/model"
)

// =============================================================================
// MESSAGE DISPATCH
// =============================================================================

// Send runs the message pipeline for input on the active conversation:
// persist the user message, auto-name a fresh conversation, ask the
// completion service and append its reply (or an apology). It reports
// false without doing anything when input is blank, nobody is signed in,
// a message is already in flight, or no conversation is active. The state
// always returns to Idle.
func (m *Manager) Send(ctx context.Context, input string) bool {
	text := strings.TrimSpace(input)
	if text == "" || m.user.ID == "" {
		return false
	}

	var (
		accepted bool
		convID   string
		history  []model.Message
		autoName bool
	)
	m.update(func(s State) State {
		if m.closed || s.ActiveID == "" || s.Dispatch != Idle {
			return s
		}
		conv, ok := s.Active()
		if !ok {
			return s
		}
		accepted = true
		convID = s.ActiveID
		history = s.history()
		autoName = len(history) == 0 && conv.Name == m.opts.DefaultName
		return Reduce(s, dispatchChanged{to: Sending})
	})
	if !accepted {
		return false
	}
	defer m.dispatch(dispatchChanged{to: Idle})

	logger := log.With().Str("conversation_id", convID).Logger()

	// The user message is durable before the completion call starts
	userMsg := model.NewUserMessage(text, m.user)
	_ = m.AppendMessage(ctx, convID, userMsg)
	history = append(history, userMsg)

	if autoName {
		_ = m.Rename(ctx, convID, model.AutoName(text, m.opts.AutoNameLength))
	}

	prompt := BuildPrompt(m.opts.Persona, history, m.opts.HistoryWindow, text)

	m.dispatch(dispatchChanged{to: AwaitingCompletion})
	reply, err := m.completer.Complete(ctx, prompt)

	var out model.Message
	if err != nil {
		logger.Error().Err(newError(KindCompletionFailure, "send", err)).Msg("completion failed")
		out = model.NewSystemMessage(m.opts.ApologyText)
	} else {
		out = model.NewAssistantMessage(reply, m.opts.AssistantName)
	}
	_ = m.AppendMessage(ctx, convID, out)

	logger.Debug().Bool("completed", err == nil).Msg("message dispatched")
	return true
}

// BuildPrompt assembles the completion prompt: the persona, the last
// window messages of history as "sender: text" lines, and the user's text.
func BuildPrompt(persona string, history []model.Message, window int, text string) string {
	if window > 0 && len(history) > window {
		history = history[len(history)-window:]
	}

	var sb strings.Builder
	sb.WriteString(strings.TrimSpace(persona))
	sb.WriteString("\nHistory:\n")
	for i, msg := range history {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(msg.PromptLine())
	}
	sb.WriteString("\n\nRespond helpfully and pleasantly to the user: \"")
	sb.WriteString(text)
	sb.WriteString("\"")
	return sb.String()
}
