// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for users, conversations and
// messages.
//
// # Key Types
//
//   - User: identity handle supplied by the auth provider (id, email)
//   - Conversation: named, ordered thread of messages owned by one user
//   - Message: immutable, append-only entry with sender, text and timestamp
//   - Sender: message origin (user, assistant, system)
//
// # Usage
//
// Create a conversation and a first message:
//
//	conv := model.NewConversation(user.ID, model.DefaultName, time.Now())
//	msg := model.NewUserMessage("Hello!", user)
//
// Derive the display name from the first message:
//
//	name := model.AutoName(msg.Text, model.AutoNameLength)
package model
