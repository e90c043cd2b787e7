// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package middleware

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/AleutianAI/FlightRisk/pkg/extensions"
	"github.com/gin-gonic/gin"
)

// RequirePermission aborts with 403 {"error": "Access denied"} unless the
// authenticated user may perform action on resource. Denials are audited.
// Must run after AuthMiddleware.
func RequirePermission(authz extensions.AuthzProvider, audit extensions.AuditLogger, resource, action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		info := GetAuthInfo(c)
		if info == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "No token provided"})
			return
		}

		err := authz.Authorize(c.Request.Context(), extensions.AuthzRequest{
			User:         info,
			Action:       action,
			ResourceType: resource,
			ResourceID:   c.Param("id"),
		})
		if err == nil {
			c.Next()
			return
		}

		if errors.Is(err, extensions.ErrForbidden) || errors.Is(err, extensions.ErrUnauthorized) {
			if auditErr := audit.Log(c.Request.Context(), extensions.AuditEvent{
				EventType:    "authz.denied",
				UserID:       info.UserID,
				Action:       action,
				ResourceType: resource,
				ResourceID:   c.Param("id"),
				Outcome:      "denied",
				Metadata:     map[string]any{"role": string(info.PrimaryRole())},
			}); auditErr != nil {
				slog.Warn("audit log failed", "error", auditErr)
			}
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Access denied"})
			return
		}

		slog.Error("authorization check failed", "resource", resource, "action", action, "error", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "authorization failed"})
	}
}
