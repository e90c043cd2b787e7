// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package risk

import (
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/stat"
)

// Score turns forecast points into a risk result.
//
// # Description
//
// Only points dated strictly after now contribute. Their mean predicted
// daily count is divided by NormalizationScale, clamped to [0, 1] and rounded
// to two decimals. The message percentage is the clamped risk times 100,
// truncated toward zero before rounding is applied. With no future points
// the risk is 0.
//
// # Examples
//
//	// predictions 2.5, 3.0, 3.5 after now
//	Score(points, now, "Turbulence")
//	// Result{Risk: 0.6, Message: "60% chance of Turbulence in next 7 days"}
func Score(points []ForecastPoint, now time.Time, incidentType string) Result {
	var upcoming []float64
	for _, p := range points {
		if p.Date.After(now) {
			upcoming = append(upcoming, p.Predicted)
		}
	}

	mean := 0.0
	if len(upcoming) > 0 {
		mean = stat.Mean(upcoming, nil)
	}

	risk := clamp(mean / NormalizationScale)
	return Result{
		Risk:    math.Round(risk*100) / 100,
		Message: fmt.Sprintf("%d%% chance of %s in next %d days", int(risk*100), incidentType, HorizonDays),
	}
}

func clamp(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Min(1, math.Max(0, v))
}
