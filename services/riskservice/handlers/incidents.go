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
	"errors"
	"log/slog"
	"net/http"

	"github.com/AleutianAI/FlightRisk/pkg/extensions"
	"github.com/AleutianAI/FlightRisk/services/riskservice/datatypes"
	"github.com/AleutianAI/FlightRisk/services/riskservice/middleware"
	"github.com/AleutianAI/FlightRisk/services/riskservice/observability"
	"github.com/AleutianAI/FlightRisk/services/store"
	"github.com/gin-gonic/gin"
)

func currentUser(c *gin.Context) (*extensions.AuthInfo, bool) {
	info := middleware.GetAuthInfo(c)
	if info == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "No token provided"})
		return nil, false
	}
	return info, true
}

func incidentError(c *gin.Context, id string, err error) {
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Incident not found"})
		return
	}
	slog.Error("incident update failed", "incident_id", id, "error", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "incident update failed"})
}

// HandleCreateIncident serves POST /api/incidents.
//
// # Description
//
// The incident type is computed from the description with the keyword
// classifier; a client-supplied type is ignored. The creator is the
// authenticated user. Responds 201 with the stored incident.
func HandleCreateIncident(repo store.IncidentRepository, cls IncidentClassifier, metrics *observability.Metrics, auditLog extensions.AuditLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		info, ok := currentUser(c)
		if !ok {
			return
		}
		var req datatypes.CreateIncidentRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		category := cls.Explain(req.Description).Category
		metrics.RecordClassification(category)

		inc, err := repo.CreateIncident(c.Request.Context(), req.Incident(category, info.UserID, info.Email))
		if err != nil {
			slog.Error("create incident failed", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "create incident failed"})
			return
		}

		audit(c, auditLog, extensions.AuditEvent{
			EventType:    "incident.create",
			UserID:       info.UserID,
			Action:       "create",
			ResourceType: "incident",
			ResourceID:   inc.ID,
			Outcome:      "success",
			Metadata:     map[string]any{"incident_type": category, "flight_number": inc.FlightNumber},
		})
		c.JSON(http.StatusCreated, inc)
	}
}

// HandleListIncidents serves GET /api/incidents. Crew members see only the
// incidents they reported; every other role sees all incidents.
func HandleListIncidents(repo store.IncidentRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		info, ok := currentUser(c)
		if !ok {
			return
		}

		var q store.IncidentQuery
		if info.PrimaryRole() == extensions.RoleCrew {
			q.CreatedBy = info.UserID
		}
		incidents, err := repo.ListIncidents(c.Request.Context(), q)
		if err != nil {
			slog.Error("list incidents failed", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "list incidents failed"})
			return
		}
		if incidents == nil {
			incidents = []store.Incident{}
		}
		c.JSON(http.StatusOK, incidents)
	}
}

// HandleAddComment serves POST /api/incidents/:id/comments.
func HandleAddComment(repo store.IncidentRepository, auditLog extensions.AuditLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		info, ok := currentUser(c)
		if !ok {
			return
		}
		var req datatypes.CommentRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "text is required"})
			return
		}

		id := c.Param("id")
		inc, err := repo.AddComment(c.Request.Context(), id, store.Comment{
			Text:      req.Text,
			UserID:    info.UserID,
			UserEmail: info.Email,
		})
		if err != nil {
			incidentError(c, id, err)
			return
		}

		audit(c, auditLog, extensions.AuditEvent{
			EventType:    "incident.comment",
			UserID:       info.UserID,
			Action:       "create",
			ResourceType: "incident_comment",
			ResourceID:   id,
			Outcome:      "success",
		})
		c.JSON(http.StatusOK, inc)
	}
}

// HandleSuggestAction serves PUT /api/incidents/:id/suggest-action.
func HandleSuggestAction(repo store.IncidentRepository, auditLog extensions.AuditLogger) gin.HandlerFunc {
	return handleAction(repo, store.FieldSuggestedAction, auditLog)
}

// HandleAssignAction serves PUT /api/incidents/:id/assign-action.
func HandleAssignAction(repo store.IncidentRepository, auditLog extensions.AuditLogger) gin.HandlerFunc {
	return handleAction(repo, store.FieldAssignedAction, auditLog)
}

func handleAction(repo store.IncidentRepository, field store.IncidentField, auditLog extensions.AuditLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req datatypes.ActionRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "action is required"})
			return
		}
		setIncidentField(c, repo, field, *req.Action, auditLog)
	}
}

// HandleSetActionStatus serves PUT /api/incidents/:id/action-status. The
// status must be Pending, In Progress or Completed.
func HandleSetActionStatus(repo store.IncidentRepository, auditLog extensions.AuditLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req datatypes.StatusRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "status is required"})
			return
		}
		status, err := store.ParseActionStatus(req.Status)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		setIncidentField(c, repo, store.FieldActionStatus, string(status), auditLog)
	}
}

func setIncidentField(c *gin.Context, repo store.IncidentRepository, field store.IncidentField, value string, auditLog extensions.AuditLogger) {
	info, ok := currentUser(c)
	if !ok {
		return
	}

	id := c.Param("id")
	inc, err := repo.SetIncidentField(c.Request.Context(), id, field, value)
	if err != nil {
		incidentError(c, id, err)
		return
	}

	audit(c, auditLog, extensions.AuditEvent{
		EventType:    "incident.update",
		UserID:       info.UserID,
		Action:       "update",
		ResourceType: "incident",
		ResourceID:   id,
		Outcome:      "success",
		Metadata:     map[string]any{"field": string(field), "value": value},
	})
	c.JSON(http.StatusOK, inc)
}
