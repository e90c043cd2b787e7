// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/AleutianAI/FlightRisk/pkg/extensions"
	"github.com/AleutianAI/FlightRisk/services/riskservice/auth"
	"github.com/AleutianAI/FlightRisk/services/riskservice/datatypes"
	"github.com/AleutianAI/FlightRisk/services/riskservice/middleware"
	"github.com/AleutianAI/FlightRisk/services/store"
	"github.com/gin-gonic/gin"
)

// Accounts is the account and session surface used by the handlers.
// *auth.Manager implements it.
type Accounts interface {
	Signup(ctx context.Context, email, password string, role extensions.Role) (store.User, store.Session, error)
	Login(ctx context.Context, email, password string) (store.User, store.Session, error)
	Logout(ctx context.Context, token string) error
	ChangeRole(ctx context.Context, userID string, role extensions.Role) (store.User, error)
	SessionTTL() time.Duration
}

// AccountConfig controls signup and the session cookie.
type AccountConfig struct {
	// SecureCookie marks the cookie HTTPS-only. Enable behind TLS.
	SecureCookie bool

	// AllowRoleSelection lets signup pick any role. When false every new
	// account is crew and only an admin can promote it.
	AllowRoleSelection bool
}

func setSessionCookie(c *gin.Context, cfg AccountConfig, token string, ttl time.Duration) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(middleware.SessionCookie, token, int(ttl.Seconds()), "/", "", cfg.SecureCookie, true)
}

func clearSessionCookie(c *gin.Context, cfg AccountConfig) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(middleware.SessionCookie, "", -1, "/", "", cfg.SecureCookie, true)
}

func audit(c *gin.Context, logger extensions.AuditLogger, event extensions.AuditEvent) {
	if logger == nil {
		return
	}
	if err := logger.Log(c.Request.Context(), event); err != nil {
		slog.Warn("audit log failed", "event", event.EventType, "error", err)
	}
}

// HandleSignup serves POST /api/signup.
//
// # Description
//
// Creates the account (role defaults to crew; other roles need
// AllowRoleSelection), opens a session and sets the
// httpOnly SameSite=Strict "token" cookie. Responds 201
// {"message": "Signup successful"}; an existing email is 400
// {"error": "User already exists"}.
func HandleSignup(accounts Accounts, cfg AccountConfig, auditLog extensions.AuditLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req datatypes.SignupRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "a valid email and password are required"})
			return
		}
		role, err := extensions.ParseRole(req.Role)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if role != extensions.DefaultRole && !cfg.AllowRoleSelection {
			c.JSON(http.StatusForbidden, gin.H{"error": "role selection is disabled; ask an admin"})
			return
		}

		user, sess, err := accounts.Signup(c.Request.Context(), req.Email, req.Password, role)
		if err != nil {
			if errors.Is(err, auth.ErrUserExists) {
				c.JSON(http.StatusBadRequest, gin.H{"error": "User already exists"})
				return
			}
			slog.Error("signup failed", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "signup failed"})
			return
		}

		audit(c, auditLog, extensions.AuditEvent{
			EventType:    "user.signup",
			UserID:       user.ID,
			Action:       "create",
			ResourceType: "user",
			ResourceID:   user.ID,
			Outcome:      "success",
			Metadata:     map[string]any{"role": string(user.Role)},
		})
		setSessionCookie(c, cfg, sess.Token, accounts.SessionTTL())
		c.JSON(http.StatusCreated, datatypes.MessageResponse{Message: "Signup successful"})
	}
}

// HandleLogin serves POST /api/login. Bad credentials are 400
// {"error": "Invalid credentials"} whether the email or the password is wrong.
func HandleLogin(accounts Accounts, cfg AccountConfig, auditLog extensions.AuditLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req datatypes.LoginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid credentials"})
			return
		}

		user, sess, err := accounts.Login(c.Request.Context(), req.Email, req.Password)
		if err != nil {
			if errors.Is(err, auth.ErrInvalidCredentials) {
				audit(c, auditLog, extensions.AuditEvent{
					EventType: "user.login",
					Action:    "login",
					Outcome:   "failure",
				})
				c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid credentials"})
				return
			}
			slog.Error("login failed", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "login failed"})
			return
		}

		audit(c, auditLog, extensions.AuditEvent{
			EventType: "user.login",
			UserID:    user.ID,
			Action:    "login",
			Outcome:   "success",
		})
		setSessionCookie(c, cfg, sess.Token, accounts.SessionTTL())
		c.JSON(http.StatusOK, datatypes.MessageResponse{Message: "Login successful"})
	}
}

// HandleLogout serves POST /api/logout.
func HandleLogout(accounts Accounts, cfg AccountConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		info := middleware.GetAuthInfo(c)
		if info != nil && info.SessionID != "" {
			if err := accounts.Logout(c.Request.Context(), info.SessionID); err != nil {
				slog.Error("logout failed", "error", err)
				c.JSON(http.StatusInternalServerError, gin.H{"error": "logout failed"})
				return
			}
		}
		clearSessionCookie(c, cfg)
		c.JSON(http.StatusOK, datatypes.MessageResponse{Message: "Logout successful"})
	}
}

// HandleCurrentUser serves GET /api/user.
func HandleCurrentUser(users store.UserRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		info := middleware.GetAuthInfo(c)
		if info == nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "No token provided"})
			return
		}

		user, err := users.FindUserByID(c.Request.Context(), info.UserID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
				return
			}
			slog.Error("user lookup failed", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "user lookup failed"})
			return
		}

		c.JSON(http.StatusOK, datatypes.CurrentUserResponse{
			ID:    user.ID,
			Email: user.Email,
			Role:  string(user.Role),
		})
	}
}

// HandleListUsers serves GET /api/users. Password hashes never serialize.
func HandleListUsers(users store.UserRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		list, err := users.ListUsers(c.Request.Context())
		if err != nil {
			slog.Error("list users failed", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "list users failed"})
			return
		}
		c.JSON(http.StatusOK, list)
	}
}

// HandleUpdateUserRole serves PUT /api/users/:id.
func HandleUpdateUserRole(accounts Accounts, auditLog extensions.AuditLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req datatypes.UpdateRoleRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "role is required"})
			return
		}
		role, err := extensions.ParseRole(req.Role)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		id := c.Param("id")
		user, err := accounts.ChangeRole(c.Request.Context(), id, role)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
				return
			}
			slog.Error("role update failed", "user_id", id, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "role update failed"})
			return
		}

		actor := ""
		if info := middleware.GetAuthInfo(c); info != nil {
			actor = info.UserID
		}
		audit(c, auditLog, extensions.AuditEvent{
			EventType:    "user.role_change",
			UserID:       actor,
			Action:       "update",
			ResourceType: "user",
			ResourceID:   id,
			Outcome:      "success",
			Metadata:     map[string]any{"role": string(role)},
		})
		c.JSON(http.StatusOK, user)
	}
}
