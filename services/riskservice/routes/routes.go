// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package routes mounts the risk service's HTTP surface on a gin engine.
package routes

import (
	"github.com/AleutianAI/FlightRisk/pkg/extensions"
	"github.com/AleutianAI/FlightRisk/services/riskservice/auth"
	"github.com/AleutianAI/FlightRisk/services/riskservice/handlers"
	"github.com/AleutianAI/FlightRisk/services/riskservice/middleware"
	"github.com/AleutianAI/FlightRisk/services/riskservice/observability"
	"github.com/AleutianAI/FlightRisk/services/store"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"
)

// Dependencies are the collaborators the routes close over.
//
// # Description
//
// Predictor and Classifier are required for the public endpoints. The
// /api group is mounted only when Accounts, Users, Incidents, AuthN and
// AuthZ are all set, so a prediction-only deployment can leave them nil.
type Dependencies struct {
	Predictor  handlers.RiskPredictor
	Classifier handlers.IncidentClassifier

	Accounts  handlers.Accounts
	Users     store.UserRepository
	Incidents store.IncidentRepository
	AuthN     extensions.AuthProvider
	AuthZ     extensions.AuthzProvider
	Audit     extensions.AuditLogger

	AccountConfig handlers.AccountConfig

	Metrics  *observability.Metrics
	Gatherer prometheus.Gatherer

	// PredictLimiter throttles both prediction endpoints. Nil disables it.
	PredictLimiter *rate.Limiter

	HealthChecks map[string]handlers.HealthCheck
}

func (d Dependencies) hasAPI() bool {
	return d.Accounts != nil && d.Users != nil && d.Incidents != nil && d.AuthN != nil && d.AuthZ != nil
}

// SetupRoutes registers every endpoint on router.
func SetupRoutes(router *gin.Engine, deps Dependencies) {
	if deps.Audit == nil {
		deps.Audit = &extensions.NopAuditLogger{}
	}
	if deps.Gatherer == nil {
		deps.Gatherer = prometheus.DefaultGatherer
	}

	router.GET("/health", handlers.HandleHealth(deps.HealthChecks))
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))

	predict := handlers.HandlePredictRisk(deps.Predictor, deps.Metrics)
	throttle := middleware.RateLimit(deps.PredictLimiter)

	router.POST("/predict_risk", throttle, predict)
	router.POST("/classify", handlers.HandleClassify(deps.Classifier, deps.Metrics))

	if !deps.hasAPI() {
		return
	}

	allow := func(resource, action string) gin.HandlerFunc {
		return middleware.RequirePermission(deps.AuthZ, deps.Audit, resource, action)
	}

	api := router.Group("/api")
	{
		api.POST("/signup", handlers.HandleSignup(deps.Accounts, deps.AccountConfig, deps.Audit))
		api.POST("/login", handlers.HandleLogin(deps.Accounts, deps.AccountConfig, deps.Audit))

		authed := api.Group("", middleware.AuthMiddleware(deps.AuthN))
		{
			authed.POST("/logout", handlers.HandleLogout(deps.Accounts, deps.AccountConfig))
			authed.GET("/user", handlers.HandleCurrentUser(deps.Users))
			authed.GET("/users", allow(auth.ResourceUsers, auth.ActionList), handlers.HandleListUsers(deps.Users))
			authed.PUT("/users/:id", allow(auth.ResourceUsers, auth.ActionUpdate), handlers.HandleUpdateUserRole(deps.Accounts, deps.Audit))

			authed.POST("/predict_risk", allow(auth.ResourcePredictRisk, auth.ActionInvoke), throttle, predict)

			incidents := authed.Group("/incidents")
			{
				incidents.POST("", handlers.HandleCreateIncident(deps.Incidents, deps.Classifier, deps.Metrics, deps.Audit))
				incidents.GET("", handlers.HandleListIncidents(deps.Incidents))
				incidents.GET("/export", allow(auth.ResourceIncidents, auth.ActionExport), handlers.HandleExportIncidents(deps.Incidents))
				incidents.POST("/:id/comments", allow(auth.ResourceIncidentComments, auth.ActionCreate), handlers.HandleAddComment(deps.Incidents, deps.Audit))
				incidents.PUT("/:id/suggest-action", allow(auth.ResourceSuggestedAction, auth.ActionUpdate), handlers.HandleSuggestAction(deps.Incidents, deps.Audit))
				incidents.PUT("/:id/assign-action", allow(auth.ResourceAssignedAction, auth.ActionUpdate), handlers.HandleAssignAction(deps.Incidents, deps.Audit))
				incidents.PUT("/:id/action-status", allow(auth.ResourceActionStatus, auth.ActionUpdate), handlers.HandleSetActionStatus(deps.Incidents, deps.Audit))
			}
		}
	}
}
