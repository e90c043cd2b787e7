// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package observability provides Prometheus metrics for the risk service.
//
// # Description
//
// Metrics cover:
//   - HTTP requests (by method, route, status) and latency
//   - Risk predictions (by outcome), latency and score distribution
//   - Classifications (by category)
//   - Expired session sweeps
//
// Metrics are registered on an injected registry so tests can use a fresh
// prometheus.NewRegistry() per case.
//
// # Thread Safety
//
// All metric operations are thread-safe via Prometheus's internal locking.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// =============================================================================
// Metric Definitions
// =============================================================================

const metricsNamespace = "flightrisk"

const (
	httpSubsystem     = "http"
	riskSubsystem     = "risk"
	classifySubsystem = "classifier"
	authSubsystem     = "auth"
)

// PredictionOutcome labels a finished prediction.
type PredictionOutcome string

const (
	OutcomeSuccess          PredictionOutcome = "success"
	OutcomeInsufficientData PredictionOutcome = "insufficient_data"
	OutcomeError            PredictionOutcome = "error"
)

// Metrics holds the service's collectors. A nil *Metrics records nothing.
type Metrics struct {
	// HTTPRequestsTotal counts requests. Labels: method, route, status.
	HTTPRequestsTotal *prometheus.CounterVec

	// HTTPRequestDuration observes handler latency. Labels: method, route.
	HTTPRequestDuration *prometheus.HistogramVec

	// PredictionsTotal counts predictions. Labels: outcome.
	PredictionsTotal *prometheus.CounterVec

	PredictionDuration prometheus.Histogram

	// RiskScore observes returned risk values in [0, 1].
	RiskScore prometheus.Histogram

	// ClassificationsTotal counts classifier results. Labels: category.
	ClassificationsTotal *prometheus.CounterVec

	SessionsExpiredTotal prometheus.Counter
}

// NewMetrics creates and registers all collectors on reg.
//
// # Limitations
//
//   - Panics if called twice with the same registry (duplicate registration).
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		HTTPRequestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: httpSubsystem,
				Name:      "requests_total",
				Help:      "Total HTTP requests by method, route and status",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: httpSubsystem,
				Name:      "request_duration_seconds",
				Help:      "HTTP request latency in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		PredictionsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: riskSubsystem,
				Name:      "predictions_total",
				Help:      "Total risk predictions by outcome",
			},
			[]string{"outcome"},
		),
		PredictionDuration: f.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: riskSubsystem,
				Name:      "prediction_duration_seconds",
				Help:      "Time to aggregate, fit and score one prediction",
				Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
		),
		RiskScore: f.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: riskSubsystem,
				Name:      "score",
				Help:      "Distribution of returned risk scores",
				Buckets:   prometheus.LinearBuckets(0.1, 0.1, 10),
			},
		),
		ClassificationsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: classifySubsystem,
				Name:      "classifications_total",
				Help:      "Total incident classifications by category",
			},
			[]string{"category"},
		),
		SessionsExpiredTotal: f.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: authSubsystem,
				Name:      "sessions_expired_total",
				Help:      "Expired sessions removed by the sweeper",
			},
		),
	}
}

// =============================================================================
// Helper Methods
// =============================================================================

// RecordPrediction records one prediction's outcome and latency. The score
// is observed only for non-error outcomes.
func (m *Metrics) RecordPrediction(outcome PredictionOutcome, risk float64, seconds float64) {
	if m == nil {
		return
	}
	m.PredictionsTotal.WithLabelValues(string(outcome)).Inc()
	m.PredictionDuration.Observe(seconds)
	if outcome != OutcomeError {
		m.RiskScore.Observe(risk)
	}
}

// RecordClassification counts one classified text.
func (m *Metrics) RecordClassification(category string) {
	if m == nil {
		return
	}
	m.ClassificationsTotal.WithLabelValues(category).Inc()
}

// RecordHTTP records one finished request.
func (m *Metrics) RecordHTTP(method, route, status string, seconds float64) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, route, status).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(seconds)
}

// RecordSessionsExpired adds n swept sessions.
func (m *Metrics) RecordSessionsExpired(n int64) {
	if m == nil {
		return
	}
	m.SessionsExpiredTotal.Add(float64(n))
}
