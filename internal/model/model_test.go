// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// MESSAGE TESTS
// =============================================================================

func TestNewMessage_UniqueIDs(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		msg := NewMessage(SenderUser, "hi")
		require.False(t, seen[msg.ID], "duplicate id %s", msg.ID)
		seen[msg.ID] = true
	}
}

func TestNewUserMessage(t *testing.T) {
	user := User{ID: "u1", Email: "ana@example.com"}
	msg := NewUserMessage("Hello", user)

	assert.Equal(t, SenderUser, msg.Sender)
	assert.Equal(t, "Hello", msg.Text)
	assert.Equal(t, "ana@example.com", msg.SenderEmail)
	assert.False(t, msg.Timestamp.IsZero())
	assert.Equal(t, "ana@example.com", msg.Author())
}

func TestNewAssistantMessage(t *testing.T) {
	msg := NewAssistantMessage("Hi!", "Gwen AI")
	assert.Equal(t, SenderAssistant, msg.Sender)
	assert.Equal(t, "Gwen AI", msg.Author())
	assert.Equal(t, "assistant: Hi!", msg.PromptLine())
}

func TestSender_Valid(t *testing.T) {
	assert.True(t, SenderUser.Valid())
	assert.True(t, SenderAssistant.Valid())
	assert.True(t, SenderSystem.Valid())
	assert.False(t, Sender("tool").Valid())
	assert.Equal(t, "System", NewSystemMessage("x").Author())
}

// =============================================================================
// CONVERSATION TESTS
// =============================================================================

func TestNewConversation(t *testing.T) {
	now := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	conv := NewConversation("u1", "", now)

	assert.Equal(t, DefaultName, conv.Name)
	assert.Equal(t, "u1", conv.OwnerID)
	assert.Equal(t, now, conv.CreatedAt)
	assert.Equal(t, now, conv.UpdatedAt)
	assert.NotNil(t, conv.Messages)
	assert.True(t, conv.IsEmpty())
}

func TestConversation_CloneDoesNotShareMessages(t *testing.T) {
	conv := NewConversation("u1", "x", time.Now())
	conv.Messages = append(conv.Messages, NewMessage(SenderUser, "a"))

	clone := conv.Clone()
	clone.Messages[0].Text = "changed"

	assert.Equal(t, "a", conv.Messages[0].Text)
	assert.True(t, conv.HasMessage(conv.Messages[0].ID))
	assert.Nil(t, conv.Summary().Messages)
}

func TestAutoName(t *testing.T) {
	assert.Equal(t, "Hello", AutoName("  Hello  ", AutoNameLength))
	long := strings.Repeat("x", 45)
	assert.Equal(t, strings.Repeat("x", 30)+"...", AutoName(long, AutoNameLength))
	assert.Equal(t, "line one line two", AutoName("line one\nline two", AutoNameLength))
}

func TestSortByUpdated(t *testing.T) {
	base := time.Now()
	convs := []Conversation{
		{ID: "old", UpdatedAt: base.Add(-2 * time.Hour)},
		{ID: "new", UpdatedAt: base},
		{ID: "mid", UpdatedAt: base.Add(-time.Hour)},
	}
	SortByUpdated(convs)

	assert.Equal(t, []string{"new", "mid", "old"}, []string{convs[0].ID, convs[1].ID, convs[2].ID})
}

// =============================================================================
// EXPORT TESTS
// =============================================================================

func TestConversation_ExportMarkdown(t *testing.T) {
	conv := NewConversation("u1", "Trip plans", time.Now())
	conv.Messages = []Message{
		NewUserMessage("Where to?", User{Email: "ana@example.com"}),
		NewAssistantMessage("**Lisbon**", "Gwen AI"),
	}

	md := conv.ExportMarkdown()
	assert.Contains(t, md, "# Trip plans")
	assert.Contains(t, md, "**ana@example.com**")
	assert.Contains(t, md, "**Gwen AI**")
	assert.Contains(t, md, "**Lisbon**")
}

func TestConversation_ExportJSON(t *testing.T) {
	conv := NewConversation("u1", "Trip plans", time.Now())
	conv.ID = "c1"
	conv.Messages = []Message{NewSystemMessage("note")}

	data, err := conv.ExportJSON()
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "c1", decoded["id"])
	assert.Equal(t, "Trip plans", decoded["name"])
	assert.Len(t, decoded["messages"], 1)
}
