// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package handlers implements the HTTP handlers of the risk service.
//
// Each exported HandleX function returns a gin.HandlerFunc closed over its
// dependencies. Error bodies are always {"error": "..."}.
package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/AleutianAI/FlightRisk/services/riskservice/datatypes"
	"github.com/AleutianAI/FlightRisk/services/riskservice/observability"
	"github.com/AleutianAI/FlightRisk/services/risk"
	"github.com/gin-gonic/gin"
)

// RiskPredictor runs the prediction pipeline.
type RiskPredictor interface {
	Predict(ctx context.Context, q risk.Query) (risk.Result, error)
}

// HandlePredictRisk serves POST /predict_risk and POST /api/predict_risk.
//
// # Description
//
// Binds {flight_number, route, incident_type}, runs the pipeline and
// returns {risk, message}. A missing field is 400. Any pipeline failure
// (store error, degenerate fit, too little history) is logged and
// returned as 500 {"error": "risk prediction failed"}.
func HandlePredictRisk(predictor RiskPredictor, metrics *observability.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req datatypes.PredictRiskRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "flight_number, route and incident_type are required"})
			return
		}
		q := req.Query()

		start := time.Now()
		res, err := predictor.Predict(c.Request.Context(), q)
		elapsed := time.Since(start).Seconds()
		if err != nil {
			metrics.RecordPrediction(observability.OutcomeError, 0, elapsed)
			slog.Error("risk prediction failed",
				"flight_number", q.FlightNumber,
				"route", q.Route,
				"incident_type", q.IncidentType,
				"error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "risk prediction failed"})
			return
		}

		outcome := observability.OutcomeSuccess
		if res == risk.InsufficientData() {
			outcome = observability.OutcomeInsufficientData
		}
		metrics.RecordPrediction(outcome, res.Risk, elapsed)
		c.JSON(http.StatusOK, res)
	}
}
