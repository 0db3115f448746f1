// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package auth

import (
	"context"
	"database/sql"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	"github.com/MarceTxt/gwen-ai-chat/internal/model"
)

// Schema is the account table.
const Schema = `
CREATE TABLE IF NOT EXISTS users (
    id            TEXT PRIMARY KEY,
    email         TEXT NOT NULL UNIQUE,
    password_hash BLOB NOT NULL,
    created_at    INTEGER NOT NULL
);
`

// credentials is validated before any account operation.
type credentials struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required,min=6"`
}

// =============================================================================
// LOCAL PROVIDER
// =============================================================================

// Local is an identity provider backed by a SQLite users table. It tracks
// one signed-in user per process.
type Local struct {
	db       *sql.DB
	validate *validator.Validate
	lockout  *lockout
	cost     int

	mu        sync.Mutex
	current   *model.User
	listeners map[int]func(*model.User)
	nextID    int
}

// Option configures a Local provider.
type Option func(*Local)

// WithBcryptCost sets the password hashing cost.
func WithBcryptCost(cost int) Option {
	return func(l *Local) {
		l.cost = cost
	}
}

// WithLockout sets the failure limit and lockout duration. A limit of zero
// disables lockout.
func WithLockout(maxAttempts int, d time.Duration) Option {
	return func(l *Local) {
		l.lockout = newLockout(maxAttempts, d)
	}
}

// New creates the provider, creating the users table if needed.
func New(db *sql.DB, opts ...Option) (*Local, error) {
	if _, err := db.Exec(Schema); err != nil {
		return nil, errors.Wrap(err, "failed to initialize users table")
	}

	l := &Local{
		db:        db,
		validate:  validator.New(validator.WithRequiredStructEnabled()),
		lockout:   newLockout(DefaultMaxAttempts, DefaultLockoutDuration),
		cost:      bcrypt.DefaultCost,
		listeners: make(map[int]func(*model.User)),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// =============================================================================
// ACCOUNT OPERATIONS
// =============================================================================

// Register creates an account and signs it in.
func (l *Local) Register(ctx context.Context, email, password string) (model.User, error) {
	creds := credentials{Email: normalizeEmail(email), Password: password}
	if len([]rune(password)) < MinPasswordLength {
		return model.User{}, ErrWeakPassword
	}
	if err := l.validate.Struct(creds); err != nil {
		return model.User{}, ErrRegistration
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), l.cost)
	if err != nil {
		log.Error().Err(err).Msg("failed to hash password")
		return model.User{}, ErrRegistration
	}

	user := model.User{ID: uuid.NewString(), Email: creds.Email}
	_, err = l.db.ExecContext(ctx,
		"INSERT INTO users (id, email, password_hash, created_at) VALUES (?, ?, ?, ?)",
		user.ID, user.Email, hash, time.Now().UnixNano())
	if err != nil {
		// Most likely the email is taken; the caller only sees the generic error
		log.Info().Err(err).Str("email", creds.Email).Msg("registration rejected")
		return model.User{}, ErrRegistration
	}

	log.Info().Str("user_id", user.ID).Msg("account registered")
	l.setCurrent(&user)
	return user, nil
}

// SignIn checks the credentials and makes the account current.
func (l *Local) SignIn(ctx context.Context, email, password string) (model.User, error) {
	email = normalizeEmail(email)
	if l.lockout.locked(email) {
		log.Warn().Str("email", email).Msg("sign-in refused while locked out")
		return model.User{}, ErrAuth
	}
	if err := l.validate.Var(email, "required,email"); err != nil || password == "" {
		return model.User{}, ErrAuth
	}

	var (
		user model.User
		hash []byte
	)
	err := l.db.QueryRowContext(ctx,
		"SELECT id, email, password_hash FROM users WHERE email = ?", email).
		Scan(&user.ID, &user.Email, &hash)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			log.Error().Err(err).Msg("failed to look up account")
		}
		l.lockout.record(email, false)
		return model.User{}, ErrAuth
	}

	if err := bcrypt.CompareHashAndPassword(hash, []byte(password)); err != nil {
		l.lockout.record(email, false)
		return model.User{}, ErrAuth
	}

	l.lockout.record(email, true)
	log.Info().Str("user_id", user.ID).Msg("signed in")
	l.setCurrent(&user)
	return user, nil
}

// SignOut clears the current user.
func (l *Local) SignOut() {
	l.setCurrent(nil)
}

// CurrentUser returns the signed-in user, if any.
func (l *Local) CurrentUser() (model.User, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.current == nil {
		return model.User{}, false
	}
	return *l.current, true
}

// =============================================================================
// CHANGE NOTIFICATION
// =============================================================================

// Subscribe calls fn with the current user now and on every sign-in or
// sign-out. A nil user means signed out. The returned func unsubscribes.
func (l *Local) Subscribe(fn func(*model.User)) (cancel func()) {
	l.mu.Lock()
	id := l.nextID
	l.nextID++
	l.listeners[id] = fn
	current := copyUser(l.current)
	l.mu.Unlock()

	fn(current)

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.listeners, id)
			l.mu.Unlock()
		})
	}
}

func (l *Local) setCurrent(u *model.User) {
	l.mu.Lock()
	l.current = copyUser(u)
	fns := make([]func(*model.User), 0, len(l.listeners))
	for _, fn := range l.listeners {
		fns = append(fns, fn)
	}
	l.mu.Unlock()

	for _, fn := range fns {
		fn(copyUser(u))
	}
}

func copyUser(u *model.User) *model.User {
	if u == nil {
		return nil
	}
	c := *u
	return &c
}
