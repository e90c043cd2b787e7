// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package extensions

import (
	"context"
	"log/slog"
	"time"
)

// AuditEvent represents a security-relevant event for the audit trail.
//
// Example:
//
//	event := AuditEvent{
//	    EventType:    "incident.assign_action",
//	    UserID:       authInfo.UserID,
//	    Action:       "update",
//	    ResourceType: "incident",
//	    ResourceID:   incidentID,
//	    Outcome:      "success",
//	}
type AuditEvent struct {
	// EventType is a dotted event name, e.g. "user.login", "incident.create".
	EventType string

	// Timestamp defaults to time.Now().UTC() when zero.
	Timestamp time.Time

	UserID       string
	Action       string
	ResourceType string
	ResourceID   string

	// Outcome is "success", "failure" or "denied".
	Outcome string

	// Metadata carries event-specific key/value pairs. Never put passwords
	// or session tokens here.
	Metadata map[string]any
}

// AuditLogger records security-relevant events.
//
// Implementations must be safe for concurrent use. Log should return quickly;
// a failed audit write is reported to the caller but must not be fatal for the
// request that produced it.
type AuditLogger interface {
	Log(ctx context.Context, event AuditEvent) error
	Flush(ctx context.Context) error
}

// NopAuditLogger discards all events.
type NopAuditLogger struct{}

// Log discards the event.
func (l *NopAuditLogger) Log(_ context.Context, _ AuditEvent) error { return nil }

// Flush is a no-op.
func (l *NopAuditLogger) Flush(_ context.Context) error { return nil }

// SlogAuditLogger writes audit events as structured log records.
//
// # Description
//
// Each event becomes one INFO record with message "audit" and an "audit"
// group holding the event fields, so audit lines can be filtered out of the
// JSON service log by a log shipper.
//
// # Thread Safety
//
// Safe for concurrent use; slog handlers serialize writes.
type SlogAuditLogger struct {
	logger *slog.Logger
	now    func() time.Time
}

// NewSlogAuditLogger creates an audit logger on top of logger.
// A nil logger falls back to slog.Default().
func NewSlogAuditLogger(logger *slog.Logger) *SlogAuditLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogAuditLogger{logger: logger, now: time.Now}
}

// Log writes the event.
func (l *SlogAuditLogger) Log(ctx context.Context, event AuditEvent) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = l.now().UTC()
	}
	attrs := []any{
		slog.String("event_type", event.EventType),
		slog.Time("timestamp", event.Timestamp),
		slog.String("user_id", event.UserID),
		slog.String("action", event.Action),
		slog.String("resource_type", event.ResourceType),
		slog.String("resource_id", event.ResourceID),
		slog.String("outcome", event.Outcome),
	}
	for k, v := range event.Metadata {
		attrs = append(attrs, slog.Any(k, v))
	}
	l.logger.InfoContext(ctx, "audit", slog.Group("audit", attrs...))
	return nil
}

// Flush is a no-op; records are written synchronously.
func (l *SlogAuditLogger) Flush(_ context.Context) error { return nil }

var (
	_ AuditLogger = (*NopAuditLogger)(nil)
	_ AuditLogger = (*SlogAuditLogger)(nil)
)
