// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package middleware provides HTTP middleware for the risk service.
//
// # Description
//
// Authentication resolves the session token from the "token" cookie or an
// "Authorization: Bearer" header through an extensions.AuthProvider and
// stores the identity in the gin context. RequirePermission then asks an
// extensions.AuthzProvider whether that identity may act on a resource.
//
// # Usage
//
//	api := router.Group("/api")
//	api.Use(middleware.AuthMiddleware(opts.AuthProvider))
//	api.GET("/users",
//	    middleware.RequirePermission(opts.AuthzProvider, opts.AuditLogger, auth.ResourceUsers, auth.ActionList),
//	    handlers.HandleListUsers(users))
//
// # Thread Safety
//
// All middleware functions are safe for concurrent use.
package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/AleutianAI/FlightRisk/pkg/extensions"
	"github.com/gin-gonic/gin"
)

// =============================================================================
// Context Keys
// =============================================================================

const authInfoKey = "flightrisk_auth_info"

// SessionCookie is the cookie that carries the session token.
const SessionCookie = "token"

// =============================================================================
// Context Helpers
// =============================================================================

// SetAuthInfo stores authentication info in the Gin context.
func SetAuthInfo(c *gin.Context, info *extensions.AuthInfo) {
	c.Set(authInfoKey, info)
}

// GetAuthInfo retrieves authentication info from the Gin context.
//
// Returns nil when the request did not pass AuthMiddleware.
func GetAuthInfo(c *gin.Context) *extensions.AuthInfo {
	if info, exists := c.Get(authInfoKey); exists {
		if authInfo, ok := info.(*extensions.AuthInfo); ok {
			return authInfo
		}
	}
	return nil
}

// =============================================================================
// Auth Middleware
// =============================================================================

// AuthMiddleware validates the request's session token.
//
// # Description
//
// Extracts the token (cookie first, then Bearer header) and validates it
// with provider. Failures abort with 401:
//   - no token: {"error": "No token provided"}
//   - unknown or expired token: {"error": "Invalid or expired session"}
//   - provider failure: {"error": "authentication failed"}
//
// On success the AuthInfo is available via GetAuthInfo.
func AuthMiddleware(provider extensions.AuthProvider) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := ExtractToken(c)

		authInfo, err := provider.Validate(c.Request.Context(), token)
		if err != nil {
			if errors.Is(err, extensions.ErrUnauthorized) {
				msg := "Invalid or expired session"
				if token == "" {
					msg = "No token provided"
				}
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": msg})
				return
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "authentication failed",
			})
			return
		}

		SetAuthInfo(c, authInfo)
		c.Next()
	}
}

// ExtractToken returns the session token from the cookie or the
// Authorization header, or "" when neither carries one.
func ExtractToken(c *gin.Context) string {
	if cookie, err := c.Cookie(SessionCookie); err == nil && cookie != "" {
		return cookie
	}
	return extractBearerToken(c)
}

// extractBearerToken parses "Bearer <token>" case-insensitively.
func extractBearerToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return ""
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}

	return strings.TrimSpace(parts[1])
}
