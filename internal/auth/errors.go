// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package auth

// MinPasswordLength is enforced before an account is created.
const MinPasswordLength = 6

// ErrAuth is the generic sign-in failure. Every AuthError matches it with
// errors.Is.
var ErrAuth = &AuthError{Message: "invalid email or password"}

// ErrWeakPassword is returned by Register for short passwords.
var ErrWeakPassword = &AuthError{Message: "password must be at least 6 characters"}

// ErrRegistration is returned when an account cannot be created.
var ErrRegistration = &AuthError{Message: "could not create account, check the email and a password of at least 6 characters"}

// AuthError is a user-facing authentication error. Its message is safe to
// show and never says which credential was wrong.
type AuthError struct {
	Message string
}

// Error implements the error interface.
func (e *AuthError) Error() string {
	return e.Message
}

// Is matches any AuthError, so errors.Is(err, ErrAuth) covers every
// authentication failure.
func (e *AuthError) Is(target error) bool {
	_, ok := target.(*AuthError)
	return ok
}
