// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package risk implements the incident risk prediction pipeline.
//
// # Description
//
// A prediction runs five stages in a fixed order:
//
//  1. Aggregate: count matching incidents per UTC calendar day (IncidentAggregator).
//  2. Assemble: attach weather and maintenance regressors to each day (Assembler).
//  3. Fit: fit an additive seasonal regression to the daily counts (Forecaster).
//  4. Predict: extend the series HorizonDays past the last observed day.
//  5. Score: average the predictions dated after now and normalize to [0, 1] (Score).
//
// An empty aggregation short-circuits to a fixed low-risk result.
//
// # Thread Safety
//
// Predictor holds no per-request state and is safe for concurrent use.
package risk

import (
	"context"
	"errors"
	"time"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// HorizonDays is the number of days forecast past the last observed day.
	HorizonDays = 7

	// NormalizationScale divides the mean predicted daily count into a risk.
	NormalizationScale = 5.0

	// InsufficientDataRisk is returned when no historical incidents match.
	InsufficientDataRisk = 0.05

	// InsufficientDataMessage accompanies InsufficientDataRisk.
	InsufficientDataMessage = "Insufficient data, assuming low risk"
)

// Regressor defaults used when a reference lookup misses.
const (
	DefaultTemperature   = 25.0
	DefaultWindSpeed     = 10.0
	DefaultPrecipitation = 0.0
	DefaultAircraftAge   = 5.0
)

// =============================================================================
// Errors
// =============================================================================

var (
	// ErrInsufficientHistory is returned by a Forecaster given fewer than two days.
	ErrInsufficientHistory = errors.New("forecast needs at least two days of history")

	// ErrDegenerateFit is returned when the regression cannot be solved.
	ErrDegenerateFit = errors.New("degenerate forecast fit")
)

// =============================================================================
// Types
// =============================================================================

// Query identifies one prediction request.
type Query struct {
	FlightNumber string
	Route        string
	IncidentType string
}

// Filter selects incidents for aggregation.
type Filter struct {
	FlightNumber string
	IncidentType string
	AirportCodes []string
}

// Filter derives the aggregation filter for the query.
func (q Query) Filter() Filter {
	return Filter{
		FlightNumber: q.FlightNumber,
		IncidentType: q.IncidentType,
		AirportCodes: ParseRoute(q.Route),
	}
}

// DailyCount is the number of matching incidents on one UTC calendar day.
type DailyCount struct {
	Date  time.Time
	Count int
}

// Regressors are the exogenous inputs of the forecast for one day.
type Regressors struct {
	Temperature   float64
	WindSpeed     float64
	Precipitation float64
	AircraftAge   float64
}

// Values returns the regressors in a fixed column order.
func (r Regressors) Values() [4]float64 {
	return [4]float64{r.Temperature, r.WindSpeed, r.Precipitation, r.AircraftAge}
}

// FeatureRow is one day of forecast input. Count is ignored for future rows.
type FeatureRow struct {
	Date  time.Time
	Count float64
	Regressors
}

// ForecastPoint is the model output for one day.
type ForecastPoint struct {
	Date      time.Time
	Predicted float64
}

// Result is the scored prediction returned to callers.
type Result struct {
	Risk    float64 `json:"risk"`
	Message string  `json:"message"`
}

// InsufficientData is the fixed result for queries without history.
func InsufficientData() Result {
	return Result{Risk: InsufficientDataRisk, Message: InsufficientDataMessage}
}

// =============================================================================
// Interfaces
// =============================================================================

// IncidentAggregator counts historical incidents per day.
//
// Implementations return counts sorted by ascending date with one entry per
// day that has at least one match. An empty result is not an error.
type IncidentAggregator interface {
	DailyCounts(ctx context.Context, filter Filter) ([]DailyCount, error)
}

// Forecaster fits history and predicts every history and future date.
//
// The returned points cover history followed by future, in input order.
type Forecaster interface {
	Forecast(ctx context.Context, history, future []FeatureRow) ([]ForecastPoint, error)
}

// ResultCache stores scored results between requests.
type ResultCache interface {
	Get(ctx context.Context, key string) (Result, bool, error)
	Set(ctx context.Context, key string, result Result) error
}
