// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package store provides durable, per-user conversation storage for gwen.
//
// Two backends implement the same operations: an embedded SQLite database
// (the default) and a MongoDB collection. Both support live subscriptions
// that deliver a conversation snapshot on subscribe and after every
// mutation, including the subscriber's own writes.
//
// # Key Types
//
//   - SQLite: embedded store, notifies subscribers through a watermill feed
//   - Mongo: document store, notifies subscribers through change streams
//   - Subscription: cancellable handle for a live subscription
//   - Watcher: republishes changes made to the database by other processes
//   - Fields: partial conversation update
//
// # Usage
//
//	s, err := store.OpenSQLite(ctx, path)
//	if err != nil {
//	    return err
//	}
//	defer s.Close()
//
//	sub, err := s.Subscribe(ctx, userID, convID, func(c model.Conversation) {
//	    render(c)
//	})
//	defer sub.Cancel()
//
// # Semantics
//
// AppendMessage is keyed by message id: re-appending the same message is a
// no-op, and concurrent appends of different messages are all kept.
// BatchDelete is all or nothing.
package store
