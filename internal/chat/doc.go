// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat is the conversation core of gwen.
//
// It owns the in-memory view of one user's conversations: the list, the
// single active conversation and its message buffer, multi-select state,
// and the message dispatch pipeline. The durable store is the source of
// truth; local state is updated optimistically and reconciled with every
// snapshot the store pushes for the active conversation.
//
// # Key Types
//
//   - State: immutable snapshot of everything the UI renders
//   - Action: a state transition, applied by the pure Reduce function
//   - Manager: mediates store and completion calls and publishes State
//   - Error: typed failure (StoreUnavailable, PersistenceFailure,
//     CompletionFailure)
//
// # Usage
//
//	m := chat.NewManager(st, completer, user, chat.OptionsFromConfig(cfg.Chat))
//	defer m.Close()
//	m.OnChange(func(s chat.State) { program.Send(s) })
//	if err := m.Load(ctx); err != nil {
//	    // the UI stays in its loading state
//	}
//	m.Send(ctx, "Hello")
//
// # Consistency
//
// State is replaced as a whole on every transition, so listeners always see
// a consistent value. Snapshots from a subscription are applied only while
// that subscription's conversation is still active; late deliveries from a
// previous conversation are dropped.
package chat
