// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/MarceTxt/gwen-ai-chat/internal/model"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// =============================================================================
// SCHEMA
// =============================================================================

// Schema is the conversation store schema. Timestamps are unix nanoseconds.
const Schema = `
CREATE TABLE IF NOT EXISTS conversations (
    id          TEXT PRIMARY KEY,
    owner_id    TEXT NOT NULL,
    name        TEXT NOT NULL,
    created_at  INTEGER NOT NULL,
    updated_at  INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_conversations_owner
    ON conversations(owner_id, updated_at DESC);

CREATE TABLE IF NOT EXISTS messages (
    seq             INTEGER PRIMARY KEY AUTOINCREMENT,
    conversation_id TEXT NOT NULL REFERENCES conversations(id) ON DELETE CASCADE,
    id              TEXT NOT NULL,
    text            TEXT NOT NULL,
    sender          TEXT NOT NULL,
    sender_email    TEXT NOT NULL DEFAULT '',
    sender_name     TEXT NOT NULL DEFAULT '',
    timestamp       INTEGER NOT NULL,
    UNIQUE(conversation_id, id)
);

CREATE INDEX IF NOT EXISTS idx_messages_conversation
    ON messages(conversation_id, seq);
`

// =============================================================================
// DATABASE SETUP
// =============================================================================

// OpenDB opens a SQLite database at path with the pragmas gwen relies on.
// The auth provider shares this helper.
func OpenDB(path string) (*sql.DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, errors.Wrap(err, "failed to create database directory")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open database")
	}

	// SQLite serializes writers; one connection avoids SQLITE_BUSY
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, errors.Wrapf(err, "failed to set %s", pragma)
		}
	}

	return db, nil
}

// =============================================================================
// SQLITE STORE
// =============================================================================

// SQLite is the embedded conversation store.
type SQLite struct {
	db   *sql.DB
	path string
	feed *feed
	now  func() time.Time
}

// OpenSQLite opens (creating if needed) the store at path.
func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	db, err := OpenDB(path)
	if err != nil {
		return nil, err
	}
	if _, err := db.ExecContext(ctx, Schema); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to initialize schema")
	}

	return &SQLite{
		db:   db,
		path: path,
		feed: newFeed(),
		now:  func() time.Time { return time.Now().UTC() },
	}, nil
}

// DB exposes the underlying database for components sharing the file.
func (s *SQLite) DB() *sql.DB {
	return s.db
}

// Path returns the database file path.
func (s *SQLite) Path() string {
	return s.path
}

// Close releases the change feed and the database.
func (s *SQLite) Close() error {
	feedErr := s.feed.close()
	if err := s.db.Close(); err != nil {
		return errors.Wrap(err, "failed to close database")
	}
	return feedErr
}

// =============================================================================
// READ OPERATIONS
// =============================================================================

// List returns the user's conversations, most recently updated first.
func (s *SQLite) List(ctx context.Context, userID string) ([]model.Conversation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, owner_id, name, created_at, updated_at
		FROM conversations
		WHERE owner_id = ?
		ORDER BY updated_at DESC, created_at DESC, id`, userID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list conversations")
	}

	var convs []model.Conversation
	for rows.Next() {
		conv, err := scanConversation(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		convs = append(convs, conv)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, errors.Wrap(err, "failed to list conversations")
	}
	rows.Close()

	// The single connection is free again once rows are closed
	for i := range convs {
		msgs, err := s.loadMessages(ctx, convs[i].ID)
		if err != nil {
			return nil, err
		}
		convs[i].Messages = msgs
	}

	return convs, nil
}

// Get returns one conversation with its messages.
func (s *SQLite) Get(ctx context.Context, userID, convID string) (model.Conversation, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, owner_id, name, created_at, updated_at
		FROM conversations
		WHERE id = ? AND owner_id = ?`, convID, userID)

	conv, err := scanConversation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Conversation{}, ErrNotFound
	}
	if err != nil {
		return model.Conversation{}, err
	}

	conv.Messages, err = s.loadMessages(ctx, convID)
	if err != nil {
		return model.Conversation{}, err
	}
	return conv, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanConversation(row scanner) (model.Conversation, error) {
	var (
		conv             model.Conversation
		created, updated int64
	)
	if err := row.Scan(&conv.ID, &conv.OwnerID, &conv.Name, &created, &updated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return conv, err
		}
		return conv, errors.Wrap(err, "failed to scan conversation")
	}
	conv.CreatedAt = time.Unix(0, created).UTC()
	conv.UpdatedAt = time.Unix(0, updated).UTC()
	conv.Messages = []model.Message{}
	return conv, nil
}

func (s *SQLite) loadMessages(ctx context.Context, convID string) ([]model.Message, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, text, sender, sender_email, sender_name, timestamp
		FROM messages
		WHERE conversation_id = ?
		ORDER BY seq`, convID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load messages")
	}
	defer rows.Close()

	msgs := []model.Message{}
	for rows.Next() {
		var (
			m      model.Message
			sender string
			ts     int64
		)
		if err := rows.Scan(&m.ID, &m.Text, &sender, &m.SenderEmail, &m.SenderName, &ts); err != nil {
			return nil, errors.Wrap(err, "failed to scan message")
		}
		m.Sender = model.Sender(sender)
		m.Timestamp = time.Unix(0, ts).UTC()
		msgs = append(msgs, m)
	}
	return msgs, errors.Wrap(rows.Err(), "failed to load messages")
}

// =============================================================================
// WRITE OPERATIONS
// =============================================================================

// Create inserts conv for userID and returns its id. An empty id is
// assigned; zero timestamps become now.
func (s *SQLite) Create(ctx context.Context, userID string, conv model.Conversation) (string, error) {
	if conv.ID == "" {
		conv.ID = uuid.NewString()
	}
	if conv.Name == "" {
		conv.Name = model.DefaultName
	}
	now := s.now()
	if conv.CreatedAt.IsZero() {
		conv.CreatedAt = now
	}
	if conv.UpdatedAt.IsZero() {
		conv.UpdatedAt = conv.CreatedAt
	}

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO conversations (id, owner_id, name, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?)`,
			conv.ID, userID, conv.Name, conv.CreatedAt.UnixNano(), conv.UpdatedAt.UnixNano()); err != nil {
			return errors.Wrap(err, "failed to insert conversation")
		}
		for _, m := range conv.Messages {
			if _, err := insertMessage(ctx, tx, conv.ID, m); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	log.Debug().Str("conversation_id", conv.ID).Str("user_id", userID).Msg("conversation created")
	return conv.ID, nil
}

// Update merges fields into the conversation.
func (s *SQLite) Update(ctx context.Context, userID, convID string, fields Fields) error {
	sets := []string{"updated_at = ?"}
	args := []any{fields.updatedAt().UnixNano()}
	if fields.Name != nil {
		sets = append(sets, "name = ?")
		args = append(args, *fields.Name)
	}
	args = append(args, convID, userID)

	res, err := s.db.ExecContext(ctx,
		"UPDATE conversations SET "+strings.Join(sets, ", ")+" WHERE id = ? AND owner_id = ?", args...)
	if err != nil {
		return errors.Wrap(err, "failed to update conversation")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}

	s.feed.notify(convID)
	return nil
}

// AppendMessage adds msg to the end of the conversation and refreshes
// updatedAt. A message whose id is already present is left as is.
func (s *SQLite) AppendMessage(ctx context.Context, userID, convID string, msg model.Message) error {
	if msg.ID == "" {
		return errors.New("message id is required")
	}

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var owner string
		err := tx.QueryRowContext(ctx,
			"SELECT owner_id FROM conversations WHERE id = ?", convID).Scan(&owner)
		if errors.Is(err, sql.ErrNoRows) || (err == nil && owner != userID) {
			return ErrNotFound
		}
		if err != nil {
			return errors.Wrap(err, "failed to look up conversation")
		}

		inserted, err := insertMessage(ctx, tx, convID, msg)
		if err != nil || !inserted {
			return err
		}

		_, err = tx.ExecContext(ctx,
			"UPDATE conversations SET updated_at = ? WHERE id = ?", s.now().UnixNano(), convID)
		return errors.Wrap(err, "failed to touch conversation")
	})
	if err != nil {
		return err
	}

	s.feed.notify(convID)
	return nil
}

func insertMessage(ctx context.Context, tx *sql.Tx, convID string, m model.Message) (bool, error) {
	ts := m.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	res, err := tx.ExecContext(ctx, `
		INSERT INTO messages (conversation_id, id, text, sender, sender_email, sender_name, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(conversation_id, id) DO NOTHING`,
		convID, m.ID, m.Text, string(m.Sender), m.SenderEmail, m.SenderName, ts.UnixNano())
	if err != nil {
		return false, errors.Wrap(err, "failed to insert message")
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// Delete removes one conversation and its messages.
func (s *SQLite) Delete(ctx context.Context, userID, convID string) error {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		return deleteOwned(ctx, tx, userID, convID)
	})
	if err != nil {
		return err
	}

	s.feed.notify(convID)
	return nil
}

// BatchDelete removes every listed conversation or none of them.
func (s *SQLite) BatchDelete(ctx context.Context, userID string, ids []string) error {
	ids = dedupe(ids)
	if len(ids) == 0 {
		return nil
	}

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		for _, id := range ids {
			if err := deleteOwned(ctx, tx, userID, id); err != nil {
				if errors.Is(err, ErrNotFound) {
					return errors.Wrapf(ErrBatchAborted, "conversation %s", id)
				}
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	for _, id := range ids {
		s.feed.notify(id)
	}
	log.Debug().Int("count", len(ids)).Str("user_id", userID).Msg("conversations deleted")
	return nil
}

func deleteOwned(ctx context.Context, tx *sql.Tx, userID, convID string) error {
	res, err := tx.ExecContext(ctx,
		"DELETE FROM conversations WHERE id = ? AND owner_id = ?", convID, userID)
	if err != nil {
		return errors.Wrap(err, "failed to delete conversation")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM messages WHERE conversation_id = ?", convID); err != nil {
		return errors.Wrap(err, "failed to delete messages")
	}
	return nil
}

func (s *SQLite) withTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return errors.Wrap(tx.Commit(), "failed to commit transaction")
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

// =============================================================================
// SUBSCRIPTIONS
// =============================================================================

// Subscribe delivers the conversation to fn now and after every change,
// on a single goroutine, until the subscription is cancelled. Changes that
// land while fn is running are coalesced into the next delivery.
func (s *SQLite) Subscribe(ctx context.Context, userID, convID string, fn func(model.Conversation)) (*Subscription, error) {
	subCtx, cancel := context.WithCancel(context.Background())

	// Register before the first read so no change slips between them
	changes, err := s.feed.subscribe(subCtx, convID)
	if err != nil {
		cancel()
		return nil, err
	}

	conv, err := s.Get(ctx, userID, convID)
	if err != nil {
		cancel()
		s.feed.release(convID)
		return nil, err
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		defer s.feed.release(convID)

		last := keyOf(conv)
		fn(conv)

		for {
			select {
			case <-subCtx.Done():
				return
			case msg, ok := <-changes:
				if !ok {
					return
				}
				msg.Ack()

				latest, err := s.Get(subCtx, userID, convID)
				if errors.Is(err, ErrNotFound) {
					continue
				}
				if err != nil {
					if subCtx.Err() == nil {
						log.Warn().Err(err).Str("conversation_id", convID).Msg("failed to reload conversation")
					}
					continue
				}
				if key := keyOf(latest); key != last && subCtx.Err() == nil {
					last = key
					fn(latest)
				}
			}
		}
	}()

	return newSubscription(cancel, done), nil
}

// Refresh republishes a change for every live subscription. The watcher
// calls it when another process writes to the database.
func (s *SQLite) Refresh() {
	for _, id := range s.feed.active() {
		s.feed.notify(id)
	}
}
