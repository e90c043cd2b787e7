// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package memstore is a process-local store for development and tests.
//
// It implements the same interfaces as mongostore with the same error
// semantics (store.ErrNotFound, store.ErrDuplicate). Nothing is persisted.
package memstore

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/AleutianAI/FlightRisk/pkg/extensions"
	"github.com/AleutianAI/FlightRisk/services/risk"
	"github.com/AleutianAI/FlightRisk/services/store"
	"github.com/google/uuid"
)

// Store holds everything in maps guarded by one RWMutex.
//
// # Thread Safety
//
// Safe for concurrent use. Returned values are copies.
type Store struct {
	mu        sync.RWMutex
	incidents []store.Incident
	users     map[string]store.User
	sessions  map[string]store.Session
	now       func() time.Time
}

// New returns an empty store.
func New() *Store {
	return &Store{
		users:    make(map[string]store.User),
		sessions: make(map[string]store.Session),
		now:      time.Now,
	}
}

func newID() string {
	return uuid.NewString()
}

// =============================================================================
// Aggregation
// =============================================================================

// DailyCounts implements risk.IncidentAggregator.
func (s *Store) DailyCounts(ctx context.Context, f risk.Filter) ([]risk.DailyCount, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	byDay := make(map[time.Time]int)
	for _, inc := range s.incidents {
		if inc.FlightNumber != f.FlightNumber || inc.IncidentType != f.IncidentType {
			continue
		}
		if !slices.Contains(f.AirportCodes, inc.Location.AirportCode) {
			continue
		}
		t := inc.DateTime.UTC()
		byDay[time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)]++
	}

	counts := make([]risk.DailyCount, 0, len(byDay))
	for day, n := range byDay {
		counts = append(counts, risk.DailyCount{Date: day, Count: n})
	}
	sort.Slice(counts, func(i, j int) bool { return counts[i].Date.Before(counts[j].Date) })
	return counts, nil
}

// =============================================================================
// Incidents
// =============================================================================

// CreateIncident stores an incident with generated fields filled in.
func (s *Store) CreateIncident(_ context.Context, inc store.Incident) (store.Incident, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	inc = s.prepare(inc)
	s.incidents = append(s.incidents, inc)
	return cloneIncident(inc), nil
}

// InsertIncidents bulk-loads incidents.
func (s *Store) InsertIncidents(_ context.Context, incs []store.Incident) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, inc := range incs {
		s.incidents = append(s.incidents, s.prepare(inc))
	}
	return len(incs), nil
}

func (s *Store) prepare(inc store.Incident) store.Incident {
	if inc.ID == "" {
		inc.ID = newID()
	}
	if inc.CreatedAt.IsZero() {
		inc.CreatedAt = s.now().UTC()
	}
	if inc.ActionStatus == "" {
		inc.ActionStatus = store.ActionPending
	}
	if inc.Comments == nil {
		inc.Comments = []store.Comment{}
	}
	return inc
}

// ListIncidents returns matching incidents newest first.
func (s *Store) ListIncidents(_ context.Context, q store.IncidentQuery) ([]store.Incident, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []store.Incident{}
	for _, inc := range s.incidents {
		if q.CreatedBy != "" && inc.CreatedBy != q.CreatedBy {
			continue
		}
		out = append(out, cloneIncident(inc))
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// AddComment appends a comment.
func (s *Store) AddComment(_ context.Context, incidentID string, c store.Comment) (store.Incident, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(incidentID)
	if i < 0 {
		return store.Incident{}, fmt.Errorf("incident %s: %w", incidentID, store.ErrNotFound)
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = s.now().UTC()
	}
	s.incidents[i].Comments = append(s.incidents[i].Comments, c)
	return cloneIncident(s.incidents[i]), nil
}

// SetIncidentField sets one workflow field.
func (s *Store) SetIncidentField(_ context.Context, incidentID string, field store.IncidentField, value string) (store.Incident, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(incidentID)
	if i < 0 {
		return store.Incident{}, fmt.Errorf("incident %s: %w", incidentID, store.ErrNotFound)
	}
	switch field {
	case store.FieldSuggestedAction:
		s.incidents[i].SuggestedAction = value
	case store.FieldAssignedAction:
		s.incidents[i].AssignedAction = value
	case store.FieldActionStatus:
		s.incidents[i].ActionStatus = store.ActionStatus(value)
	default:
		return store.Incident{}, fmt.Errorf("field %q is not updatable", field)
	}
	return cloneIncident(s.incidents[i]), nil
}

func (s *Store) indexOf(id string) int {
	return slices.IndexFunc(s.incidents, func(inc store.Incident) bool { return inc.ID == id })
}

func cloneIncident(inc store.Incident) store.Incident {
	inc.Comments = slices.Clone(inc.Comments)
	return inc
}

// =============================================================================
// Users
// =============================================================================

// CreateUser stores a user; emails are unique.
func (s *Store) CreateUser(_ context.Context, u store.User) (store.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.users {
		if existing.Email == u.Email {
			return store.User{}, fmt.Errorf("user %s: %w", u.Email, store.ErrDuplicate)
		}
	}
	if u.ID == "" {
		u.ID = newID()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = s.now().UTC()
	}
	s.users[u.ID] = u
	return u, nil
}

// FindUserByEmail looks up a user by email.
func (s *Store) FindUserByEmail(_ context.Context, email string) (store.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.Email == email {
			return u, nil
		}
	}
	return store.User{}, fmt.Errorf("user %s: %w", email, store.ErrNotFound)
}

// FindUserByID looks up a user by ID.
func (s *Store) FindUserByID(_ context.Context, id string) (store.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return store.User{}, fmt.Errorf("user %s: %w", id, store.ErrNotFound)
	}
	return u, nil
}

// ListUsers returns users ordered by email.
func (s *Store) ListUsers(_ context.Context) ([]store.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]store.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out, nil
}

// UpdateUserRole changes a user's role.
func (s *Store) UpdateUserRole(_ context.Context, id string, role extensions.Role) (store.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return store.User{}, fmt.Errorf("user %s: %w", id, store.ErrNotFound)
	}
	u.Role = role
	s.users[id] = u
	return u, nil
}

// =============================================================================
// Sessions
// =============================================================================

// CreateSession stores a session keyed by token.
func (s *Store) CreateSession(_ context.Context, sess store.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.sessions[sess.Token]; exists {
		return fmt.Errorf("session: %w", store.ErrDuplicate)
	}
	if sess.CreatedAt.IsZero() {
		sess.CreatedAt = s.now().UTC()
	}
	s.sessions[sess.Token] = sess
	return nil
}

// FindSession looks up a session by token.
func (s *Store) FindSession(_ context.Context, token string) (store.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[token]
	if !ok {
		return store.Session{}, fmt.Errorf("session: %w", store.ErrNotFound)
	}
	return sess, nil
}

// DeleteSession removes a session if present.
func (s *Store) DeleteSession(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, token)
	return nil
}

// DeleteExpiredSessions removes sessions expired at now.
func (s *Store) DeleteExpiredSessions(_ context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for token, sess := range s.sessions {
		if sess.Expired(now) {
			delete(s.sessions, token)
			n++
		}
	}
	return n, nil
}

// UpdateSessionRoles sets role on all of a user's sessions.
func (s *Store) UpdateSessionRoles(_ context.Context, userID string, role extensions.Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for token, sess := range s.sessions {
		if sess.UserID == userID {
			sess.Role = role
			s.sessions[token] = sess
		}
	}
	return nil
}

var (
	_ risk.IncidentAggregator  = (*Store)(nil)
	_ store.IncidentRepository = (*Store)(nil)
	_ store.UserRepository     = (*Store)(nil)
	_ store.SessionRepository  = (*Store)(nil)
)
