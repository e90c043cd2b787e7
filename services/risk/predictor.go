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
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"
)

var tracer = otel.Tracer("flightrisk.risk")

// Predictor runs the aggregate, assemble, fit, predict and score stages.
type Predictor struct {
	store      IncidentAggregator
	assembler  *Assembler
	forecaster Forecaster
	now        func() time.Time
	logger     *slog.Logger
	tracer     trace.Tracer

	cache ResultCache
	group singleflight.Group
}

// Option configures a Predictor.
type Option func(*Predictor)

// WithForecaster replaces the default SeasonalForecaster.
func WithForecaster(f Forecaster) Option {
	return func(p *Predictor) { p.forecaster = f }
}

// WithClock sets the time source used to split history from future.
func WithClock(now func() time.Time) Option {
	return func(p *Predictor) { p.now = now }
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(p *Predictor) { p.logger = l }
}

// WithTracer sets the tracer used for stage spans.
func WithTracer(t trace.Tracer) Option {
	return func(p *Predictor) { p.tracer = t }
}

// WithCache enables result caching. Identical queries on the same UTC day
// are served from the cache, and concurrent identical misses share one fit.
func WithCache(c ResultCache) Option {
	return func(p *Predictor) { p.cache = c }
}

// NewPredictor wires a predictor over an incident store and reference data.
func NewPredictor(store IncidentAggregator, ref ReferenceData, opts ...Option) *Predictor {
	p := &Predictor{
		store:      store,
		assembler:  NewAssembler(ref),
		forecaster: NewSeasonalForecaster(DefaultSeasonalConfig()),
		now:        time.Now,
		logger:     slog.Default(),
		tracer:     tracer,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Predict computes the incident risk for q.
//
// # Description
//
// Returns InsufficientData() when no incident matches. Store, fit and
// context errors are returned wrapped; callers should treat any error as a
// failed request.
//
// # Examples
//
//	res, err := predictor.Predict(ctx, risk.Query{
//	    FlightNumber: "AA123",
//	    Route:        "LAX-JFK",
//	    IncidentType: "Turbulence",
//	})
func (p *Predictor) Predict(ctx context.Context, q Query) (Result, error) {
	if p.cache == nil {
		return p.predict(ctx, q)
	}

	key := CacheKey(q, p.now())
	if res, ok, err := p.cache.Get(ctx, key); err != nil {
		p.logger.WarnContext(ctx, "risk cache read failed", "error", err)
	} else if ok {
		return res, nil
	}

	// The shared fit must not die with whichever caller started it; each
	// caller still stops waiting when its own context ends.
	shared := context.WithoutCancel(ctx)
	ch := p.group.DoChan(key, func() (any, error) {
		res, err := p.predict(shared, q)
		if err != nil {
			return Result{}, err
		}
		if err := p.cache.Set(shared, key, res); err != nil {
			p.logger.WarnContext(shared, "risk cache write failed", "error", err)
		}
		return res, nil
	})

	select {
	case <-ctx.Done():
		return Result{}, ctx.Err()
	case r := <-ch:
		if r.Err != nil {
			return Result{}, r.Err
		}
		return r.Val.(Result), nil
	}
}

func (p *Predictor) predict(ctx context.Context, q Query) (Result, error) {
	ctx, span := p.tracer.Start(ctx, "risk.Predict", trace.WithAttributes(
		attribute.String("flight.number", q.FlightNumber),
		attribute.String("flight.route", q.Route),
		attribute.String("incident.type", q.IncidentType),
	))
	defer span.End()

	counts, err := p.aggregate(ctx, q)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "aggregate failed")
		return Result{}, err
	}
	if len(counts) == 0 {
		span.SetAttributes(attribute.Bool("risk.insufficient_data", true))
		return InsufficientData(), nil
	}

	_, asmSpan := p.tracer.Start(ctx, "risk.assemble")
	history := p.assembler.History(q.FlightNumber, counts)
	future := p.assembler.Future(q.FlightNumber, counts[len(counts)-1].Date, HorizonDays)
	asmSpan.SetAttributes(attribute.Int("rows.history", len(history)), attribute.Int("rows.future", len(future)))
	asmSpan.End()

	fctx, fitSpan := p.tracer.Start(ctx, "risk.forecast")
	points, err := p.forecaster.Forecast(fctx, history, future)
	if err != nil {
		fitSpan.RecordError(err)
		fitSpan.SetStatus(codes.Error, "forecast failed")
		fitSpan.End()
		span.SetStatus(codes.Error, "forecast failed")
		return Result{}, fmt.Errorf("forecast %s: %w", q.FlightNumber, err)
	}
	fitSpan.End()

	_, scoreSpan := p.tracer.Start(ctx, "risk.score")
	res := Score(points, p.now(), q.IncidentType)
	scoreSpan.SetAttributes(attribute.Float64("risk.score", res.Risk))
	scoreSpan.End()

	p.logger.DebugContext(ctx, "risk predicted",
		"flight_number", q.FlightNumber,
		"incident_type", q.IncidentType,
		"history_days", len(history),
		"risk", res.Risk,
	)
	return res, nil
}

func (p *Predictor) aggregate(ctx context.Context, q Query) ([]DailyCount, error) {
	ctx, span := p.tracer.Start(ctx, "risk.aggregate")
	defer span.End()

	counts, err := p.store.DailyCounts(ctx, q.Filter())
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("aggregate incidents: %w", err)
	}
	span.SetAttributes(attribute.Int("days", len(counts)))
	return counts, nil
}

// CacheKey identifies a query within a UTC day bucket.
func CacheKey(q Query, now time.Time) string {
	return strings.Join([]string{
		"risk",
		now.UTC().Format(time.DateOnly),
		q.FlightNumber,
		q.IncidentType,
		q.Route,
	}, "\x1f")
}
