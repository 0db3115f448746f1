// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

// User is the identity handle supplied by the auth provider. The chat core
// never mutates it.
type User struct {
	ID    string `json:"id" bson:"id"`
	Email string `json:"email" bson:"email"`
}
