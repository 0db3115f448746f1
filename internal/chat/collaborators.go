// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"

	"github.com/MarceTxt/gwen-ai-chat/internal/model"
	"github.com/MarceTxt/gwen-ai-chat/internal/store"
)

// Store is the durable, per-user conversation store.
type Store interface {
	// List returns the user's conversations, newest updatedAt first.
	List(ctx context.Context, userID string) ([]model.Conversation, error)
	Get(ctx context.Context, userID, convID string) (model.Conversation, error)
	// Subscribe delivers the conversation now and after every mutation.
	Subscribe(ctx context.Context, userID, convID string, fn func(model.Conversation)) (*store.Subscription, error)
	Create(ctx context.Context, userID string, conv model.Conversation) (string, error)
	Update(ctx context.Context, userID, convID string, fields store.Fields) error
	// AppendMessage is idempotent per message id and safe under concurrency.
	AppendMessage(ctx context.Context, userID, convID string, msg model.Message) error
	Delete(ctx context.Context, userID, convID string) error
	// BatchDelete deletes all ids or none.
	BatchDelete(ctx context.Context, userID string, ids []string) error
}

// Completer turns a prompt into generated text.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

var (
	_ Store = (*store.SQLite)(nil)
	_ Store = (*store.Mongo)(nil)
)
