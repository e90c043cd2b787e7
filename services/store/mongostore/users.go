// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package mongostore

import (
	"context"
	"fmt"
	"time"

	"github.com/AleutianAI/FlightRisk/pkg/extensions"
	"github.com/AleutianAI/FlightRisk/services/store"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// CreateUser inserts a user. Returns store.ErrDuplicate if the email exists.
func (s *Store) CreateUser(ctx context.Context, u store.User) (store.User, error) {
	if u.ID == "" {
		u.ID = NewID()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = s.now().UTC()
	}
	if _, err := s.users.InsertOne(ctx, u); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return store.User{}, fmt.Errorf("user %s: %w", u.Email, store.ErrDuplicate)
		}
		return store.User{}, fmt.Errorf("insert user: %w", err)
	}
	return u, nil
}

// FindUserByEmail looks up a user by login email.
func (s *Store) FindUserByEmail(ctx context.Context, email string) (store.User, error) {
	var u store.User
	if err := s.users.FindOne(ctx, bson.D{{Key: "email", Value: email}}).Decode(&u); err != nil {
		return store.User{}, notFound(err, "find user")
	}
	return u, nil
}

// FindUserByID looks up a user by ID.
func (s *Store) FindUserByID(ctx context.Context, id string) (store.User, error) {
	var u store.User
	if err := s.users.FindOne(ctx, bson.D{{Key: "_id", Value: id}}).Decode(&u); err != nil {
		return store.User{}, notFound(err, "find user")
	}
	return u, nil
}

// ListUsers returns all users ordered by email.
func (s *Store) ListUsers(ctx context.Context) ([]store.User, error) {
	cur, err := s.users.Find(ctx, bson.D{}, options.Find().SetSort(bson.D{{Key: "email", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("find users: %w", err)
	}
	users := []store.User{}
	if err := cur.All(ctx, &users); err != nil {
		return nil, fmt.Errorf("decode users: %w", err)
	}
	return users, nil
}

// UpdateUserRole changes a user's role and returns the updated user.
func (s *Store) UpdateUserRole(ctx context.Context, id string, role extensions.Role) (store.User, error) {
	var u store.User
	err := s.users.FindOneAndUpdate(ctx,
		bson.D{{Key: "_id", Value: id}},
		bson.D{{Key: "$set", Value: bson.D{{Key: "role", Value: role}}}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&u)
	if err != nil {
		return store.User{}, notFound(err, "update user "+id)
	}
	return u, nil
}

// =============================================================================
// Sessions
// =============================================================================

// CreateSession stores a new session.
func (s *Store) CreateSession(ctx context.Context, sess store.Session) error {
	if sess.CreatedAt.IsZero() {
		sess.CreatedAt = s.now().UTC()
	}
	if _, err := s.sessions.InsertOne(ctx, sess); err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

// FindSession looks up a session by token. Expiry is checked by the caller.
func (s *Store) FindSession(ctx context.Context, token string) (store.Session, error) {
	var sess store.Session
	if err := s.sessions.FindOne(ctx, bson.D{{Key: "token", Value: token}}).Decode(&sess); err != nil {
		return store.Session{}, notFound(err, "find session")
	}
	return sess, nil
}

// DeleteSession removes a session. Deleting an unknown token is not an error.
func (s *Store) DeleteSession(ctx context.Context, token string) error {
	if _, err := s.sessions.DeleteOne(ctx, bson.D{{Key: "token", Value: token}}); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// DeleteExpiredSessions removes sessions whose expiry is at or before now.
func (s *Store) DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.sessions.DeleteMany(ctx, bson.D{{Key: "expiresAt", Value: bson.D{{Key: "$lte", Value: now}}}})
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	return res.DeletedCount, nil
}

// UpdateSessionRoles propagates a role change to the user's open sessions.
func (s *Store) UpdateSessionRoles(ctx context.Context, userID string, role extensions.Role) error {
	_, err := s.sessions.UpdateMany(ctx,
		bson.D{{Key: "userId", Value: userID}},
		bson.D{{Key: "$set", Value: bson.D{{Key: "role", Value: role}}}},
	)
	if err != nil {
		return fmt.Errorf("update session roles: %w", err)
	}
	return nil
}

var (
	_ store.UserRepository    = (*Store)(nil)
	_ store.SessionRepository = (*Store)(nil)
)
