// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"encoding/json"
	"sort"
	"strings"
	"time"

	"github.com/MarceTxt/gwen-ai-chat/internal/util"
)

const (
	// DefaultName is given to every new conversation until it is renamed.
	DefaultName = "Untitled Conversation"

	// AutoNameLength bounds the name derived from a first message.
	AutoNameLength = 30
)

// =============================================================================
// CONVERSATION TYPE
// =============================================================================

// Conversation is a named thread of messages owned by one user. Messages are
// kept in append order.
type Conversation struct {
	ID        string    `json:"id" bson:"_id"`
	Name      string    `json:"name" bson:"name"`
	Messages  []Message `json:"messages" bson:"messages"`
	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt" bson:"updatedAt"`
	OwnerID   string    `json:"ownerId" bson:"ownerId"`
}

// NewConversation returns an empty conversation stamped with now. The id is
// left for the store to assign.
func NewConversation(ownerID, name string, now time.Time) Conversation {
	if name == "" {
		name = DefaultName
	}
	return Conversation{
		Name:      name,
		Messages:  []Message{},
		CreatedAt: now,
		UpdatedAt: now,
		OwnerID:   ownerID,
	}
}

// MessageCount returns the number of messages.
func (c Conversation) MessageCount() int {
	return len(c.Messages)
}

// IsEmpty returns true if there are no messages.
func (c Conversation) IsEmpty() bool {
	return len(c.Messages) == 0
}

// HasMessage reports whether a message with id is already present.
func (c Conversation) HasMessage(id string) bool {
	for _, m := range c.Messages {
		if m.ID == id {
			return true
		}
	}
	return false
}

// Clone returns a copy that shares no slice storage with c.
func (c Conversation) Clone() Conversation {
	clone := c
	clone.Messages = append([]Message(nil), c.Messages...)
	return clone
}

// Summary returns c without its messages, for list entries.
func (c Conversation) Summary() Conversation {
	s := c
	s.Messages = nil
	return s
}

// =============================================================================
// NAMING
// =============================================================================

// AutoName derives a conversation name from the first user message: the
// trimmed single-line text, cut to maxLen characters with an ellipsis.
func AutoName(text string, maxLen int) string {
	return util.TruncateRunes(strings.TrimSpace(util.SingleLine(text)), maxLen)
}

// =============================================================================
// ORDERING
// =============================================================================

// SortByUpdated orders conversations newest updatedAt first. Ties keep their
// relative order.
func SortByUpdated(convs []Conversation) {
	sort.SliceStable(convs, func(i, j int) bool {
		return convs[i].UpdatedAt.After(convs[j].UpdatedAt)
	})
}

// =============================================================================
// EXPORT
// =============================================================================

// ExportMarkdown renders the conversation as Markdown with sender labels and
// timestamps.
func (c Conversation) ExportMarkdown() string {
	var sb strings.Builder
	sb.WriteString("# " + c.Name + "\n\n")
	sb.WriteString("Created: " + c.CreatedAt.Format(time.RFC3339) + "\n\n")
	sb.WriteString("---\n\n")

	for _, msg := range c.Messages {
		sb.WriteString("**" + msg.Author() + "** (" + msg.Timestamp.Format("2006-01-02 15:04") + "):\n\n")
		sb.WriteString(msg.Text)
		sb.WriteString("\n\n---\n\n")
	}

	return sb.String()
}

// ExportJSON renders the conversation as indented JSON.
func (c Conversation) ExportJSON() ([]byte, error) {
	return json.MarshalIndent(c, "", "  ")
}
