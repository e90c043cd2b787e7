// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package auth implements accounts, opaque session tokens and role-based
// authorization for the risk service.
//
// # Description
//
// Passwords are stored as bcrypt hashes. A successful signup or login opens
// a session: a random UUID token persisted with the user's role and an
// expiry. The Manager validates tokens for the auth middleware; RBAC maps
// roles to (resource, action) permissions with casbin; Sweeper deletes
// expired sessions on a cron schedule.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/AleutianAI/FlightRisk/pkg/extensions"
	"github.com/AleutianAI/FlightRisk/services/store"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// DefaultSessionTTL is how long a session stays valid after login.
const DefaultSessionTTL = time.Hour

var (
	// ErrInvalidCredentials is returned for an unknown email or wrong password.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrUserExists is returned by Signup when the email is taken.
	ErrUserExists = errors.New("user already exists")
)

// Manager owns accounts and sessions.
//
// # Thread Safety
//
// Safe for concurrent use; state lives in the repositories.
type Manager struct {
	users    store.UserRepository
	sessions store.SessionRepository
	ttl      time.Duration
	cost     int
	now      func() time.Time
	newToken func() string
	logger   *slog.Logger
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithSessionTTL overrides DefaultSessionTTL.
func WithSessionTTL(ttl time.Duration) ManagerOption {
	return func(m *Manager) {
		if ttl > 0 {
			m.ttl = ttl
		}
	}
}

// WithBcryptCost overrides bcrypt.DefaultCost. Tests use bcrypt.MinCost.
func WithBcryptCost(cost int) ManagerOption {
	return func(m *Manager) { m.cost = cost }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) ManagerOption {
	return func(m *Manager) { m.now = now }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) ManagerOption {
	return func(m *Manager) { m.logger = l }
}

// NewManager creates a Manager over the given repositories.
func NewManager(users store.UserRepository, sessions store.SessionRepository, opts ...ManagerOption) *Manager {
	m := &Manager{
		users:    users,
		sessions: sessions,
		ttl:      DefaultSessionTTL,
		cost:     bcrypt.DefaultCost,
		now:      time.Now,
		newToken: uuid.NewString,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// SessionTTL reports the session lifetime, used for the cookie max age.
func (m *Manager) SessionTTL() time.Duration {
	return m.ttl
}

// Signup creates an account and opens a session for it.
//
// # Outputs
//
//   - store.User: The created user.
//   - store.Session: The new session; Token goes into the cookie.
//   - error: ErrUserExists, bcrypt.ErrPasswordTooLong, or a store failure.
func (m *Manager) Signup(ctx context.Context, email, password string, role extensions.Role) (store.User, store.Session, error) {
	if _, err := m.users.FindUserByEmail(ctx, email); err == nil {
		return store.User{}, store.Session{}, ErrUserExists
	} else if !errors.Is(err, store.ErrNotFound) {
		return store.User{}, store.Session{}, fmt.Errorf("lookup user: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), m.cost)
	if err != nil {
		return store.User{}, store.Session{}, fmt.Errorf("hash password: %w", err)
	}

	user, err := m.users.CreateUser(ctx, store.User{
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
	})
	if err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return store.User{}, store.Session{}, ErrUserExists
		}
		return store.User{}, store.Session{}, fmt.Errorf("create user: %w", err)
	}

	sess, err := m.open(ctx, user)
	if err != nil {
		return store.User{}, store.Session{}, err
	}
	m.logger.Info("user signed up", "user_id", user.ID, "role", user.Role)
	return user, sess, nil
}

// Login verifies credentials and opens a session.
func (m *Manager) Login(ctx context.Context, email, password string) (store.User, store.Session, error) {
	user, err := m.users.FindUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return store.User{}, store.Session{}, ErrInvalidCredentials
		}
		return store.User{}, store.Session{}, fmt.Errorf("lookup user: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return store.User{}, store.Session{}, ErrInvalidCredentials
	}

	sess, err := m.open(ctx, user)
	if err != nil {
		return store.User{}, store.Session{}, err
	}
	return user, sess, nil
}

func (m *Manager) open(ctx context.Context, user store.User) (store.Session, error) {
	now := m.now().UTC()
	sess := store.Session{
		Token:     m.newToken(),
		UserID:    user.ID,
		Email:     user.Email,
		Role:      user.Role,
		ExpiresAt: now.Add(m.ttl),
		CreatedAt: now,
	}
	if err := m.sessions.CreateSession(ctx, sess); err != nil {
		return store.Session{}, fmt.Errorf("create session: %w", err)
	}
	return sess, nil
}

// Logout deletes the session for token.
func (m *Manager) Logout(ctx context.Context, token string) error {
	if err := m.sessions.DeleteSession(ctx, token); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	return nil
}

// Validate implements extensions.AuthProvider for session tokens.
//
// Unknown, empty and expired tokens yield extensions.ErrUnauthorized.
// An expired session is deleted on sight.
func (m *Manager) Validate(ctx context.Context, token string) (*extensions.AuthInfo, error) {
	if token == "" {
		return nil, fmt.Errorf("no token: %w", extensions.ErrUnauthorized)
	}

	sess, err := m.sessions.FindSession(ctx, token)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("unknown session: %w", extensions.ErrUnauthorized)
		}
		return nil, fmt.Errorf("find session: %w", err)
	}
	if sess.Expired(m.now()) {
		if err := m.sessions.DeleteSession(ctx, token); err != nil {
			m.logger.Warn("failed to delete expired session", "error", err)
		}
		return nil, fmt.Errorf("session expired: %w", extensions.ErrUnauthorized)
	}

	return &extensions.AuthInfo{
		UserID:    sess.UserID,
		Email:     sess.Email,
		Roles:     []extensions.Role{sess.Role},
		SessionID: sess.Token,
	}, nil
}

// ChangeRole updates a user's role and every open session of that user, so
// the change applies without a new login.
func (m *Manager) ChangeRole(ctx context.Context, userID string, role extensions.Role) (store.User, error) {
	user, err := m.users.UpdateUserRole(ctx, userID, role)
	if err != nil {
		return store.User{}, err
	}
	if err := m.sessions.UpdateSessionRoles(ctx, userID, role); err != nil {
		return store.User{}, fmt.Errorf("propagate role to sessions: %w", err)
	}
	return user, nil
}

// EnsureAdmin creates an admin account for email unless one already exists.
// An existing account keeps its role and password. It reports whether an
// account was created.
func (m *Manager) EnsureAdmin(ctx context.Context, email, password string) (bool, error) {
	existing, err := m.users.FindUserByEmail(ctx, email)
	if err == nil {
		if existing.Role != extensions.RoleAdmin {
			m.logger.Warn("bootstrap admin email belongs to a non-admin account", "user_id", existing.ID, "role", existing.Role)
		}
		return false, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return false, fmt.Errorf("lookup user: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), m.cost)
	if err != nil {
		return false, fmt.Errorf("hash password: %w", err)
	}
	user, err := m.users.CreateUser(ctx, store.User{
		Email:        email,
		PasswordHash: string(hash),
		Role:         extensions.RoleAdmin,
	})
	if err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return false, nil
		}
		return false, fmt.Errorf("create admin: %w", err)
	}
	m.logger.Info("bootstrap admin created", "user_id", user.ID)
	return true, nil
}

var _ extensions.AuthProvider = (*Manager)(nil)
