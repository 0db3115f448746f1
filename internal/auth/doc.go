// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package auth provides the local identity provider for gwen.
//
// Accounts are email and bcrypt password pairs in SQLite. Every failure a
// user can see is the generic ErrAuth, so a wrong password and an unknown
// account look the same. Repeated failures lock an email out for a while.
//
// # Key Types
//
//   - Local: the provider (Register, SignIn, SignOut, CurrentUser, Subscribe)
//   - AuthError: user-facing authentication error
//
// # Usage
//
//	provider, err := auth.New(db)
//	cancel := provider.Subscribe(func(u *model.User) {
//	    if u == nil {
//	        showLogin()
//	    }
//	})
//	defer cancel()
//
//	user, err := provider.SignIn(ctx, email, password)
//	if errors.Is(err, auth.ErrAuth) {
//	    showError(err.Error())
//	}
package auth
