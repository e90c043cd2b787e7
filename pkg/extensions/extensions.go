// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package extensions defines the identity, authorization and audit seams of
// the FlightRisk service.
//
// The HTTP layer only talks to these interfaces. The production wiring
// supplies a session-backed AuthProvider, a casbin-backed AuthzProvider and a
// slog-backed AuditLogger; tests and the offline CLI use the no-op defaults.
//
//   - auth.go: Roles, AuthInfo, AuthProvider, AuthzProvider
//   - audit.go: AuditEvent, AuditLogger
//
// # Thread Safety
//
// All interface implementations must be safe for concurrent use.
package extensions

// ServiceOptions groups all extension points for service configuration.
//
// Nil fields are replaced with no-op defaults by Normalize.
//
// Example:
//
//	opts := extensions.DefaultOptions().
//	    WithAuth(sessionProvider).
//	    WithAuthz(rbac).
//	    WithAudit(extensions.NewSlogAuditLogger(logger))
type ServiceOptions struct {
	AuthProvider  AuthProvider
	AuthzProvider AuthzProvider
	AuditLogger   AuditLogger
}

// DefaultOptions returns options with all no-op implementations.
func DefaultOptions() ServiceOptions {
	return ServiceOptions{
		AuthProvider:  &NopAuthProvider{},
		AuthzProvider: &NopAuthzProvider{},
		AuditLogger:   &NopAuditLogger{},
	}
}

// WithAuth returns a copy with the given AuthProvider.
func (opts ServiceOptions) WithAuth(provider AuthProvider) ServiceOptions {
	opts.AuthProvider = provider
	return opts
}

// WithAuthz returns a copy with the given AuthzProvider.
func (opts ServiceOptions) WithAuthz(provider AuthzProvider) ServiceOptions {
	opts.AuthzProvider = provider
	return opts
}

// WithAudit returns a copy with the given AuditLogger.
func (opts ServiceOptions) WithAudit(logger AuditLogger) ServiceOptions {
	opts.AuditLogger = logger
	return opts
}

// Normalize returns a copy where every nil extension is replaced by its no-op.
func (opts ServiceOptions) Normalize() ServiceOptions {
	if opts.AuthProvider == nil {
		opts.AuthProvider = &NopAuthProvider{}
	}
	if opts.AuthzProvider == nil {
		opts.AuthzProvider = &NopAuthzProvider{}
	}
	if opts.AuditLogger == nil {
		opts.AuditLogger = &NopAuditLogger{}
	}
	return opts
}
