// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package observability

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestNewMetrics_RegistersOnRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	m.RecordClassification("Other")
	m.RecordPrediction(OutcomeSuccess, 0.3, 0.01)
	m.RecordHTTP("POST", "/predict_risk", "200", 0.01)
	m.RecordSessionsExpired(0)

	families, err := reg.Gather()
	assert.NoError(t, err)
	names := map[string]bool{}
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["flightrisk_http_requests_total"])
	assert.True(t, names["flightrisk_risk_predictions_total"])
	assert.True(t, names["flightrisk_risk_score"])
	assert.True(t, names["flightrisk_classifier_classifications_total"])
	assert.True(t, names["flightrisk_auth_sessions_expired_total"])
}

func TestNewMetrics_DuplicateRegistrationPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewMetrics(reg)
	assert.Panics(t, func() { NewMetrics(reg) })
}

func TestRecordPrediction_ErrorSkipsScore(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.RecordPrediction(OutcomeError, 0, 0.2)
	m.RecordPrediction(OutcomeInsufficientData, 0.05, 0.1)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.PredictionsTotal.WithLabelValues("error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PredictionsTotal.WithLabelValues("insufficient_data")))

	families, err := reg.Gather()
	assert.NoError(t, err)
	for _, f := range families {
		if f.GetName() == "flightrisk_risk_score" {
			assert.Equal(t, uint64(1), f.GetMetric()[0].GetHistogram().GetSampleCount())
			return
		}
	}
	t.Fatal("risk score histogram not gathered")
}

func TestRecordClassification_ByCategory(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.RecordClassification("Turbulence")
	m.RecordClassification("Turbulence")
	m.RecordClassification("Other")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.ClassificationsTotal.WithLabelValues("Turbulence")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ClassificationsTotal.WithLabelValues("Other")))
}

func TestRecordSessionsExpired(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	m.RecordSessionsExpired(3)
	assert.Equal(t, 3.0, testutil.ToFloat64(m.SessionsExpiredTotal))
}
