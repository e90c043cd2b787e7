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
	"net/http"

	"github.com/AleutianAI/FlightRisk/services/classifier"
	"github.com/AleutianAI/FlightRisk/services/riskservice/datatypes"
	"github.com/AleutianAI/FlightRisk/services/riskservice/observability"
	"github.com/gin-gonic/gin"
)

// IncidentClassifier assigns a category to free text.
type IncidentClassifier interface {
	Explain(text string) classifier.Match
}

// HandleClassify serves POST /classify.
func HandleClassify(cls IncidentClassifier, metrics *observability.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req datatypes.ClassifyRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "text is required"})
			return
		}

		m := cls.Explain(*req.Text)
		metrics.RecordClassification(m.Category)
		c.JSON(http.StatusOK, datatypes.ClassifyResponse{
			IncidentType: m.Category,
			Keyword:      m.Keyword,
		})
	}
}
