// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package influxstore keeps incidents as an InfluxDB time series and
// answers the daily count aggregation with Flux.
//
// Each incident is one point in the incidents measurement, tagged with
// flight_number, incident_type, airport_code and severity, carrying a
// count field of 1.
package influxstore

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/AleutianAI/FlightRisk/pkg/validation"
	"github.com/AleutianAI/FlightRisk/services/risk"
	"github.com/AleutianAI/FlightRisk/services/store"
	"github.com/google/uuid"
	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

const (
	// DefaultMeasurement holds one point per incident. Points are told apart
	// by the incident_id tag.
	DefaultMeasurement = "incidents"

	writeBatchSize = 500
)

// Config locates the bucket.
type Config struct {
	URL         string
	Token       string
	Org         string
	Bucket      string
	Measurement string
}

// Store reads and writes incident points.
type Store struct {
	client      influxdb2.Client
	writeAPI    api.WriteAPIBlocking
	queryAPI    api.QueryAPI
	bucket      string
	measurement string
	logger      *slog.Logger
}

// New creates a client for cfg. The connection is lazy; use Ping to check it.
func New(cfg Config, logger *slog.Logger) (*Store, error) {
	if cfg.URL == "" || cfg.Token == "" || cfg.Org == "" || cfg.Bucket == "" {
		return nil, fmt.Errorf("influx configuration incomplete: url, token, org and bucket are required")
	}
	client := influxdb2.NewClient(cfg.URL, cfg.Token)
	s := NewWithAPIs(client.WriteAPIBlocking(cfg.Org, cfg.Bucket), client.QueryAPI(cfg.Org), cfg.Bucket, cfg.Measurement, logger)
	s.client = client
	return s, nil
}

// NewWithAPIs wires a store from existing write and query APIs.
func NewWithAPIs(w api.WriteAPIBlocking, q api.QueryAPI, bucket, measurement string, logger *slog.Logger) *Store {
	if measurement == "" {
		measurement = DefaultMeasurement
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		writeAPI:    w,
		queryAPI:    q,
		bucket:      bucket,
		measurement: measurement,
		logger:      logger,
	}
}

// Ping checks that the server is reachable.
func (s *Store) Ping(ctx context.Context) error {
	if s.client == nil {
		return nil
	}
	ok, err := s.client.Ping(ctx)
	if err != nil {
		return fmt.Errorf("ping influx: %w", err)
	}
	if !ok {
		return fmt.Errorf("ping influx: server not ready")
	}
	return nil
}

// Close releases the client.
func (s *Store) Close() {
	if s.client != nil {
		s.client.Close()
	}
}

// =============================================================================
// Query
// =============================================================================

// DailyCountsQuery renders the Flux query for a filter. All user values are
// emitted as escaped string literals.
func DailyCountsQuery(bucket, measurement string, f risk.Filter) string {
	return fmt.Sprintf(`from(bucket: %s)
  |> range(start: 0)
  |> filter(fn: (r) => r._measurement == %s and r._field == "count")
  |> filter(fn: (r) => r.flight_number == %s and r.incident_type == %s)
  |> filter(fn: (r) => contains(value: r.airport_code, set: %s))
  |> group()
  |> aggregateWindow(every: 1d, fn: sum, createEmpty: false, timeSrc: "_start")
  |> sort(columns: ["_time"])`,
		validation.FluxString(bucket),
		validation.FluxString(measurement),
		validation.FluxString(f.FlightNumber),
		validation.FluxString(f.IncidentType),
		validation.FluxStringSet(f.AirportCodes),
	)
}

// DailyCounts implements risk.IncidentAggregator.
func (s *Store) DailyCounts(ctx context.Context, f risk.Filter) ([]risk.DailyCount, error) {
	if len(f.AirportCodes) == 0 {
		return nil, nil
	}

	result, err := s.queryAPI.Query(ctx, DailyCountsQuery(s.bucket, s.measurement, f))
	if err != nil {
		return nil, fmt.Errorf("influx query failed: %w", err)
	}
	defer result.Close()

	var counts []risk.DailyCount
	for result.Next() {
		record := result.Record()
		n, ok := asCount(record.Value())
		if !ok || n == 0 {
			continue
		}
		t := record.Time().UTC()
		counts = append(counts, risk.DailyCount{
			Date:  time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC),
			Count: n,
		})
	}
	if err := result.Err(); err != nil {
		return nil, fmt.Errorf("influx result: %w", err)
	}
	return counts, nil
}

func asCount(v any) (int, bool) {
	switch n := v.(type) {
	case int64:
		return int(n), true
	case uint64:
		return int(n), true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}

// =============================================================================
// Write
// =============================================================================

// IncidentPoint converts an incident to a point timestamped at its dateTime.
//
// InfluxDB keeps one point per series and timestamp, and incidents are often
// stamped at midnight, so every point carries an incident_id tag: the
// incident's ID, or a fresh UUID for incidents that have none. Flight numbers
// are stored as given, matching the exact comparison of the other backends.
func (s *Store) IncidentPoint(inc store.Incident) *write.Point {
	id := inc.ID
	if id == "" {
		id = uuid.NewString()
	}
	tags := map[string]string{
		"incident_id":   id,
		"flight_number": inc.FlightNumber,
		"incident_type": inc.IncidentType,
		"airport_code":  inc.Location.AirportCode,
	}
	if inc.Severity != "" {
		tags["severity"] = inc.Severity
	}
	fields := map[string]any{
		"count": int64(1),
		"lat":   inc.Location.Lat,
		"lon":   inc.Location.Lon,
	}
	if inc.Description != "" {
		fields["description"] = inc.Description
	}
	return influxdb2.NewPoint(s.measurement, tags, fields, inc.DateTime.UTC())
}

// WriteIncidents writes incidents in batches and returns how many were written.
func (s *Store) WriteIncidents(ctx context.Context, incs []store.Incident) (int, error) {
	written := 0
	for start := 0; start < len(incs); start += writeBatchSize {
		end := min(start+writeBatchSize, len(incs))
		points := make([]*write.Point, 0, end-start)
		for _, inc := range incs[start:end] {
			points = append(points, s.IncidentPoint(inc))
		}
		if err := s.writeAPI.WritePoint(ctx, points...); err != nil {
			return written, fmt.Errorf("influx write failed: %w", err)
		}
		written += len(points)
		s.logger.Debug("wrote incident batch", "points", len(points), "total", written)
	}
	return written, nil
}

var _ risk.IncidentAggregator = (*Store)(nil)
