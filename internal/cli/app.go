// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"database/sql"
	"io"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/MarceTxt/gwen-ai-chat/internal/auth"
	"github.com/MarceTxt/gwen-ai-chat/internal/chat"
	"github.com/MarceTxt/gwen-ai-chat/internal/config"
	"github.com/MarceTxt/gwen-ai-chat/internal/model"
	"github.com/MarceTxt/gwen-ai-chat/internal/store"
)

// app bundles the stores and identity provider a command works with.
type app struct {
	store   chat.Store
	auth    *auth.Local
	sqlite  *store.SQLite
	closers []io.Closer
}

// openApp opens the configured conversation store. Accounts always live in
// the local SQLite database; with the mongo driver only conversations are
// shared.
func openApp(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{}
	var db *sql.DB

	switch cfg.Store.Driver {
	case config.DriverMongo:
		m, err := store.OpenMongo(ctx, cfg.Store.MongoURI, cfg.Store.MongoDatabase)
		if err != nil {
			return nil, errors.Wrap(err, "failed to open mongo store")
		}
		a.store = m
		a.closers = append(a.closers, m)

		db, err = store.OpenDB(cfg.Store.Path)
		if err != nil {
			a.Close()
			return nil, errors.Wrap(err, "failed to open account database")
		}
		a.closers = append(a.closers, db)

	default:
		s, err := store.OpenSQLite(ctx, cfg.Store.Path)
		if err != nil {
			return nil, errors.Wrap(err, "failed to open conversation store")
		}
		a.store = s
		a.sqlite = s
		a.closers = append(a.closers, s)
		db = s.DB()
	}

	local, err := auth.New(db)
	if err != nil {
		a.Close()
		return nil, errors.Wrap(err, "failed to open accounts")
	}
	a.auth = local

	log.Debug().Str("driver", cfg.Store.Driver).Msg("stores opened")
	return a, nil
}

// Close releases the stores in reverse order.
func (a *app) Close() error {
	var first error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil && first == nil {
			first = err
		}
	}
	a.closers = nil
	return first
}

// signIn authenticates a command-line user.
func (a *app) signIn(ctx context.Context, email, password string) (model.User, error) {
	user, err := a.auth.SignIn(ctx, email, password)
	if err != nil {
		return model.User{}, err
	}
	return user, nil
}
