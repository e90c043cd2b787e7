// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package datatypes holds the JSON request and response bodies of the risk
// service. Binding tags are enforced by gin's validator.
package datatypes

import (
	"time"

	"github.com/AleutianAI/FlightRisk/services/risk"
	"github.com/AleutianAI/FlightRisk/services/store"
)

// =============================================================================
// Prediction and classification
// =============================================================================

// PredictRiskRequest is the body of POST /predict_risk.
//
// Fields are pointers so that a missing field fails binding while an empty
// string is still accepted.
type PredictRiskRequest struct {
	FlightNumber *string `json:"flight_number" binding:"required"`
	Route        *string `json:"route"         binding:"required"`
	IncidentType *string `json:"incident_type" binding:"required"`
}

// Query converts the request to a risk query. Call only after binding.
func (r PredictRiskRequest) Query() risk.Query {
	return risk.Query{
		FlightNumber: *r.FlightNumber,
		Route:        *r.Route,
		IncidentType: *r.IncidentType,
	}
}

// ClassifyRequest is the body of POST /classify.
type ClassifyRequest struct {
	Text *string `json:"text" binding:"required"`
}

// ClassifyResponse names the category and the keyword that selected it.
type ClassifyResponse struct {
	IncidentType string `json:"incidentType"`
	Keyword      string `json:"keyword,omitempty"`
}

// =============================================================================
// Accounts
// =============================================================================

// SignupRequest is the body of POST /api/signup. Role defaults to crew.
type SignupRequest struct {
	Email    string `json:"email"    binding:"required,email,max=254"`
	Password string `json:"password" binding:"required,max=72"`
	Role     string `json:"role"`
}

// LoginRequest is the body of POST /api/login.
type LoginRequest struct {
	Email    string `json:"email"    binding:"required"`
	Password string `json:"password" binding:"required"`
}

// MessageResponse is a plain acknowledgement.
type MessageResponse struct {
	Message string `json:"message"`
}

// CurrentUserResponse is returned by GET /api/user.
type CurrentUserResponse struct {
	ID    string `json:"_id"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// UpdateRoleRequest is the body of PUT /api/users/:id.
type UpdateRoleRequest struct {
	Role string `json:"role" binding:"required"`
}

// =============================================================================
// Incidents
// =============================================================================

// LocationRequest is the incident location as submitted.
type LocationRequest struct {
	Lat         float64 `json:"lat"`
	Lon         float64 `json:"lon"`
	AirportCode string  `json:"airportCode" binding:"required,max=8"`
}

// CreateIncidentRequest is the body of POST /api/incidents. The incident
// type is never taken from the client; it is derived from Description.
type CreateIncidentRequest struct {
	FlightNumber string          `json:"flightNumber" binding:"required,max=16"`
	DateTime     time.Time       `json:"dateTime"     binding:"required"`
	Location     LocationRequest `json:"location"`
	Description  string          `json:"description"  binding:"required"`
	Severity     string          `json:"severity"     binding:"omitempty,oneof=Low Medium High"`
}

// Incident builds the store record for an authenticated creator.
func (r CreateIncidentRequest) Incident(incidentType, userID, email string) store.Incident {
	return store.Incident{
		FlightNumber: r.FlightNumber,
		DateTime:     r.DateTime.UTC(),
		Location: store.Location{
			Lat:         r.Location.Lat,
			Lon:         r.Location.Lon,
			AirportCode: r.Location.AirportCode,
		},
		Description:    r.Description,
		Severity:       r.Severity,
		IncidentType:   incidentType,
		CreatedBy:      userID,
		CreatedByEmail: email,
	}
}

// CommentRequest is the body of POST /api/incidents/:id/comments.
type CommentRequest struct {
	Text string `json:"text" binding:"required"`
}

// ActionRequest is the body of the suggest-action and assign-action
// endpoints. An empty action clears the field.
type ActionRequest struct {
	Action *string `json:"action" binding:"required"`
}

// StatusRequest is the body of PUT /api/incidents/:id/action-status.
type StatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// =============================================================================
// Health
// =============================================================================

// HealthResponse reports per-dependency status.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}
