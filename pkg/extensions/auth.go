// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package extensions

import (
	"context"
	"errors"
	"fmt"
	"slices"
)

// ErrUnauthorized is returned when a token is missing, unknown or expired.
//
// Example:
//
//	if session.Expired(now) {
//	    return nil, fmt.Errorf("session expired: %w", extensions.ErrUnauthorized)
//	}
var ErrUnauthorized = errors.New("unauthorized")

// ErrForbidden is returned when an authenticated user lacks the role required
// for an action.
var ErrForbidden = errors.New("access denied")

// Role is an operational role held by a FlightRisk user.
type Role string

const (
	RoleCrew        Role = "crew"
	RolePilot       Role = "pilot"
	RoleAdmin       Role = "admin"
	RoleGroundStaff Role = "ground_staff"
	RoleAuditor     Role = "auditor"
)

// DefaultRole is assigned to users who sign up without requesting a role.
const DefaultRole = RoleCrew

// AllRoles lists every role in display order.
var AllRoles = []Role{RoleCrew, RolePilot, RoleAdmin, RoleGroundStaff, RoleAuditor}

// ParseRole converts user input to a Role.
//
// # Inputs
//
//   - s: Role name, e.g. "ground_staff". Empty input yields DefaultRole.
//
// # Outputs
//
//   - Role: The parsed role.
//   - error: Non-nil if s names no known role.
func ParseRole(s string) (Role, error) {
	if s == "" {
		return DefaultRole, nil
	}
	r := Role(s)
	if !slices.Contains(AllRoles, r) {
		return "", fmt.Errorf("unknown role %q", s)
	}
	return r, nil
}

// AuthInfo contains identity information returned after successful authentication.
//
// Required fields (always populated):
//   - UserID: Store identifier of the user
//   - Email: Login email
//
// Optional fields:
//   - Roles: Role memberships used for authorization decisions
//   - SessionID: The session token that authenticated the request
type AuthInfo struct {
	UserID    string
	Email     string
	Roles     []Role
	SessionID string
}

// HasRole checks if the user has a specific role.
func (a *AuthInfo) HasRole(role Role) bool {
	return slices.Contains(a.Roles, role)
}

// PrimaryRole returns the first role, or DefaultRole when none is set.
func (a *AuthInfo) PrimaryRole() Role {
	if len(a.Roles) == 0 {
		return DefaultRole
	}
	return a.Roles[0]
}

// AuthProvider validates authentication tokens and returns user identity.
//
// Implementations must be safe for concurrent use by multiple goroutines.
// The session store implementation resolves opaque session tokens; the
// NopAuthProvider is used by the CLI and by tests that bypass login.
type AuthProvider interface {
	// Validate checks if the token is valid and returns the user's identity.
	//
	// Returns ErrUnauthorized (possibly wrapped) for unknown or expired
	// tokens and other errors for store failures.
	Validate(ctx context.Context, token string) (*AuthInfo, error)
}

// AuthzRequest describes an authorization check as (subject, action, resource).
//
// Example:
//
//	req := AuthzRequest{
//	    User:         authInfo,
//	    Action:       "update",
//	    ResourceType: "incident_action_status",
//	    ResourceID:   incidentID,
//	}
type AuthzRequest struct {
	User         *AuthInfo
	Action       string
	ResourceType string
	ResourceID   string
}

// AuthzProvider checks if a user is authorized to perform an action.
//
// Implementations must be safe for concurrent use by multiple goroutines.
// Authorize returns nil when allowed and ErrForbidden (possibly wrapped)
// when denied.
type AuthzProvider interface {
	Authorize(ctx context.Context, req AuthzRequest) error
}

// NopAuthProvider accepts every token and returns a local admin identity.
type NopAuthProvider struct{}

// Validate always succeeds with the "local-user" admin identity.
func (p *NopAuthProvider) Validate(_ context.Context, token string) (*AuthInfo, error) {
	return &AuthInfo{
		UserID:    "local-user",
		Email:     "local@flightrisk.local",
		Roles:     []Role{RoleAdmin},
		SessionID: token,
	}, nil
}

// NopAuthzProvider allows all actions.
type NopAuthzProvider struct{}

// Authorize always returns nil.
func (p *NopAuthzProvider) Authorize(_ context.Context, _ AuthzRequest) error {
	return nil
}

var (
	_ AuthProvider  = (*NopAuthProvider)(nil)
	_ AuthzProvider = (*NopAuthzProvider)(nil)
)
