// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package store defines the persistent records of the FlightRisk service and
// the repository interfaces the HTTP layer depends on.
//
// Backends live in subpackages:
//
//   - mongostore: incidents, users and sessions in MongoDB (primary store).
//   - influxstore: incident counts as an InfluxDB time series.
//   - kvstore: Badger-backed cache for scored predictions.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/AleutianAI/FlightRisk/pkg/extensions"
)

var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicate is returned when a unique key (user email) already exists.
	ErrDuplicate = errors.New("already exists")
)

// =============================================================================
// Records
// =============================================================================

// Location is where an incident happened.
type Location struct {
	Lat         float64 `bson:"lat"         json:"lat"`
	Lon         float64 `bson:"lon"         json:"lon"`
	AirportCode string  `bson:"airportCode" json:"airportCode"`
}

// ActionStatus tracks the remediation of an incident.
type ActionStatus string

const (
	ActionPending    ActionStatus = "Pending"
	ActionInProgress ActionStatus = "In Progress"
	ActionCompleted  ActionStatus = "Completed"
)

// ParseActionStatus validates a status string.
func ParseActionStatus(s string) (ActionStatus, error) {
	switch st := ActionStatus(s); st {
	case ActionPending, ActionInProgress, ActionCompleted:
		return st, nil
	default:
		return "", fmt.Errorf("invalid action status %q (allowed: Pending, In Progress, Completed)", s)
	}
}

// Comment is a note attached to an incident.
type Comment struct {
	Text      string    `bson:"text"      json:"text"`
	UserID    string    `bson:"user"      json:"user"`
	UserEmail string    `bson:"userEmail" json:"userEmail"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
}

// Incident is one reported aviation incident.
type Incident struct {
	ID              string       `bson:"_id"             json:"_id"`
	FlightNumber    string       `bson:"flightNumber"    json:"flightNumber"`
	DateTime        time.Time    `bson:"dateTime"        json:"dateTime"`
	Location        Location     `bson:"location"        json:"location"`
	Description     string       `bson:"description"     json:"description"`
	Severity        string       `bson:"severity"        json:"severity"`
	IncidentType    string       `bson:"incidentType"    json:"incidentType"`
	CreatedBy       string       `bson:"createdBy"       json:"createdBy"`
	CreatedByEmail  string       `bson:"createdByEmail"  json:"createdByEmail"`
	Comments        []Comment    `bson:"comments"        json:"comments"`
	SuggestedAction string       `bson:"suggestedAction" json:"suggestedAction"`
	AssignedAction  string       `bson:"assignedAction"  json:"assignedAction"`
	ActionStatus    ActionStatus `bson:"actionStatus"    json:"actionStatus"`
	CreatedAt       time.Time    `bson:"createdAt"       json:"createdAt"`
}

// User is an account. PasswordHash is never serialized to JSON.
type User struct {
	ID           string          `bson:"_id"       json:"_id"`
	Email        string          `bson:"email"     json:"email"`
	PasswordHash string          `bson:"password"  json:"-"`
	Role         extensions.Role `bson:"role"      json:"role"`
	CreatedAt    time.Time       `bson:"createdAt" json:"createdAt"`
}

// Session is an opaque login token.
type Session struct {
	Token     string          `bson:"token"     json:"-"`
	UserID    string          `bson:"userId"    json:"userId"`
	Email     string          `bson:"email"     json:"email"`
	Role      extensions.Role `bson:"role"      json:"role"`
	ExpiresAt time.Time       `bson:"expiresAt" json:"expiresAt"`
	CreatedAt time.Time       `bson:"createdAt" json:"createdAt"`
}

// Expired reports whether the session is no longer valid at now.
func (s Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// IncidentField names the free-text workflow fields that can be set directly.
type IncidentField string

const (
	FieldSuggestedAction IncidentField = "suggestedAction"
	FieldAssignedAction  IncidentField = "assignedAction"
	FieldActionStatus    IncidentField = "actionStatus"
)

// IncidentQuery filters incident listings. Zero values match everything.
type IncidentQuery struct {
	CreatedBy string
}

// =============================================================================
// Repositories
// =============================================================================

// IncidentRepository persists incidents.
type IncidentRepository interface {
	CreateIncident(ctx context.Context, inc Incident) (Incident, error)
	ListIncidents(ctx context.Context, q IncidentQuery) ([]Incident, error)
	AddComment(ctx context.Context, incidentID string, c Comment) (Incident, error)
	SetIncidentField(ctx context.Context, incidentID string, field IncidentField, value string) (Incident, error)
}

// UserRepository persists accounts.
type UserRepository interface {
	CreateUser(ctx context.Context, u User) (User, error)
	FindUserByEmail(ctx context.Context, email string) (User, error)
	FindUserByID(ctx context.Context, id string) (User, error)
	ListUsers(ctx context.Context) ([]User, error)
	UpdateUserRole(ctx context.Context, id string, role extensions.Role) (User, error)
}

// SessionRepository persists login sessions.
type SessionRepository interface {
	CreateSession(ctx context.Context, s Session) error
	FindSession(ctx context.Context, token string) (Session, error)
	DeleteSession(ctx context.Context, token string) error
	DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error)
	UpdateSessionRoles(ctx context.Context, userID string, role extensions.Role) error
}
