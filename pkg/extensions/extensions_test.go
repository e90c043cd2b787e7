// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package extensions

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockAuthProvider struct {
	userID string
}

func (m *mockAuthProvider) Validate(_ context.Context, _ string) (*AuthInfo, error) {
	return &AuthInfo{UserID: m.userID}, nil
}

// ============================================================================
// ServiceOptions Tests
// ============================================================================

func TestDefaultOptions(t *testing.T) {
	opts := DefaultOptions()

	assert.IsType(t, &NopAuthProvider{}, opts.AuthProvider)
	assert.IsType(t, &NopAuthzProvider{}, opts.AuthzProvider)
	assert.IsType(t, &NopAuditLogger{}, opts.AuditLogger)
}

func TestServiceOptions_WithAuth(t *testing.T) {
	original := DefaultOptions()
	custom := &mockAuthProvider{userID: "custom-user"}

	updated := original.WithAuth(custom)

	assert.Same(t, custom, updated.AuthProvider)
	assert.IsType(t, &NopAuthProvider{}, original.AuthProvider, "original must be unchanged")
	assert.NotNil(t, updated.AuthzProvider)
	assert.NotNil(t, updated.AuditLogger)
}

func TestServiceOptions_Normalize(t *testing.T) {
	opts := ServiceOptions{}.Normalize()

	assert.NotNil(t, opts.AuthProvider)
	assert.NotNil(t, opts.AuthzProvider)
	assert.NotNil(t, opts.AuditLogger)

	custom := &mockAuthProvider{userID: "x"}
	kept := ServiceOptions{AuthProvider: custom}.Normalize()
	assert.Same(t, custom, kept.AuthProvider)
}

// ============================================================================
// Auth Tests
// ============================================================================

func TestParseRole(t *testing.T) {
	tests := []struct {
		in      string
		want    Role
		wantErr bool
	}{
		{"", RoleCrew, false},
		{"crew", RoleCrew, false},
		{"pilot", RolePilot, false},
		{"admin", RoleAdmin, false},
		{"ground_staff", RoleGroundStaff, false},
		{"auditor", RoleAuditor, false},
		{"Admin", "", true},
		{"captain", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseRole(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAuthInfo_HasRole(t *testing.T) {
	info := &AuthInfo{UserID: "u1", Roles: []Role{RolePilot, RoleAuditor}}

	assert.True(t, info.HasRole(RolePilot))
	assert.True(t, info.HasRole(RoleAuditor))
	assert.False(t, info.HasRole(RoleAdmin))
	assert.Equal(t, RolePilot, info.PrimaryRole())
	assert.Equal(t, DefaultRole, (&AuthInfo{}).PrimaryRole())
}

func TestNopProviders(t *testing.T) {
	ctx := context.Background()

	info, err := (&NopAuthProvider{}).Validate(ctx, "anything")
	require.NoError(t, err)
	assert.Equal(t, "local-user", info.UserID)
	assert.True(t, info.HasRole(RoleAdmin))

	assert.NoError(t, (&NopAuthzProvider{}).Authorize(ctx, AuthzRequest{User: info, Action: "delete"}))
}

// ============================================================================
// Audit Tests
// ============================================================================

func TestSlogAuditLogger_Log(t *testing.T) {
	var buf bytes.Buffer
	logger := NewSlogAuditLogger(slog.New(slog.NewJSONHandler(&buf, nil)))
	logger.now = func() time.Time { return time.Date(2024, 4, 1, 12, 0, 0, 0, time.UTC) }

	err := logger.Log(context.Background(), AuditEvent{
		EventType:    "incident.create",
		UserID:       "u1",
		Action:       "create",
		ResourceType: "incident",
		ResourceID:   "abc",
		Outcome:      "success",
		Metadata:     map[string]any{"incident_type": "Turbulence"},
	})
	require.NoError(t, err)

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "audit", record["msg"])

	audit, ok := record["audit"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "incident.create", audit["event_type"])
	assert.Equal(t, "abc", audit["resource_id"])
	assert.Equal(t, "Turbulence", audit["incident_type"])
	assert.Equal(t, "2024-04-01T12:00:00Z", audit["timestamp"])
}

func TestNopAuditLogger(t *testing.T) {
	l := &NopAuditLogger{}
	assert.NoError(t, l.Log(context.Background(), AuditEvent{EventType: "x"}))
	assert.NoError(t, l.Flush(context.Background()))
}
