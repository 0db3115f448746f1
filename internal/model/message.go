// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"time"

	"github.com/google/uuid"

	"github.com/MarceTxt/gwen-ai-chat/internal/util"
)

// =============================================================================
// SENDER TYPE
// =============================================================================

// Sender identifies who produced a message. It drives rendering and the
// prompt role but never affects identity or ordering.
type Sender string

const (
	SenderUser      Sender = "user"
	SenderAssistant Sender = "assistant"
	SenderSystem    Sender = "system"
)

// String returns the string representation of the sender.
func (s Sender) String() string {
	return string(s)
}

// Valid reports whether s is one of the known senders.
func (s Sender) Valid() bool {
	switch s {
	case SenderUser, SenderAssistant, SenderSystem:
		return true
	}
	return false
}

// DisplayName returns a human-readable label for the sender.
func (s Sender) DisplayName() string {
	switch s {
	case SenderUser:
		return "You"
	case SenderAssistant:
		return "Assistant"
	case SenderSystem:
		return "System"
	default:
		return string(s)
	}
}

// =============================================================================
// MESSAGE TYPE
// =============================================================================

// Message is a single entry in a conversation. Once appended it is never
// edited, reordered or removed on its own.
type Message struct {
	ID          string    `json:"id" bson:"id"`
	Text        string    `json:"text" bson:"text"`
	Sender      Sender    `json:"sender" bson:"sender"`
	SenderEmail string    `json:"senderEmail,omitempty" bson:"senderEmail,omitempty"`
	SenderName  string    `json:"senderName,omitempty" bson:"senderName,omitempty"`
	Timestamp   time.Time `json:"timestamp" bson:"timestamp"`
}

// NewMessage creates a message with a fresh id and the current time.
func NewMessage(sender Sender, text string) Message {
	return Message{
		ID:        NewMessageID(),
		Text:      text,
		Sender:    sender,
		Timestamp: time.Now().UTC(),
	}
}

// NewUserMessage creates a message authored by user.
func NewUserMessage(text string, user User) Message {
	msg := NewMessage(SenderUser, text)
	msg.SenderEmail = user.Email
	return msg
}

// NewAssistantMessage creates a completion message signed with name.
func NewAssistantMessage(text, name string) Message {
	msg := NewMessage(SenderAssistant, text)
	msg.SenderName = name
	return msg
}

// NewSystemMessage creates a message produced by the application itself.
func NewSystemMessage(text string) Message {
	return NewMessage(SenderSystem, text)
}

// NewMessageID returns an id that is unique across sessions and devices,
// so appends keyed by id never collide under clock skew.
func NewMessageID() string {
	return uuid.NewString()
}

// PromptLine renders the message as a "sender: text" history line.
func (m Message) PromptLine() string {
	return string(m.Sender) + ": " + m.Text
}

// Preview returns a single-line preview of at most maxLen characters.
func (m Message) Preview(maxLen int) string {
	return util.TruncateRunes(util.SingleLine(m.Text), maxLen)
}

// Author returns the label shown above the message.
func (m Message) Author() string {
	switch {
	case m.SenderName != "":
		return m.SenderName
	case m.SenderEmail != "":
		return m.SenderEmail
	default:
		return m.Sender.DisplayName()
	}
}
