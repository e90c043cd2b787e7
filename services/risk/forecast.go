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
	"math"
	"time"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Seasonal periods in days.
const (
	yearlyPeriod = 365.25
	weeklyPeriod = 7.0
	dailyPeriod  = 1.0
)

// trendPenalty keeps the normal equations positive definite when the
// intercept and slope are otherwise unpenalized.
const trendPenalty = 1e-9

// SeasonalConfig tunes the seasonal regression.
type SeasonalConfig struct {
	// YearlyOrder, WeeklyOrder and DailyOrder are the Fourier orders of each
	// seasonal component. Zero disables a component.
	YearlyOrder int
	WeeklyOrder int
	DailyOrder  int

	// SeasonalityPenalty is the ridge penalty on Fourier coefficients.
	SeasonalityPenalty float64

	// RegressorPenalty is the ridge penalty on the standardized regressors.
	RegressorPenalty float64
}

// DefaultSeasonalConfig returns yearly order 10, weekly order 3, daily order 4
// and unit ridge penalties.
func DefaultSeasonalConfig() SeasonalConfig {
	return SeasonalConfig{
		YearlyOrder:        10,
		WeeklyOrder:        3,
		DailyOrder:         4,
		SeasonalityPenalty: 1.0,
		RegressorPenalty:   1.0,
	}
}

// SeasonalForecaster fits an additive model
//
//	y(t) = a + b*t + yearly(t) + weekly(t) + daily(t) + sum_i beta_i * z_i(t)
//
// where t is time scaled so the history spans [0, 1], each seasonal term is a
// Fourier series over days since the Unix epoch, and z_i are the regressors
// standardized with the history mean and sample standard deviation. The
// target is scaled by its maximum absolute value. Coefficients are found by
// ridge-penalized least squares with gonum's Cholesky solver.
//
// A model is fitted on every call; nothing is retained between calls.
type SeasonalForecaster struct {
	cfg SeasonalConfig
}

// NewSeasonalForecaster creates a forecaster. Negative orders are treated as zero.
func NewSeasonalForecaster(cfg SeasonalConfig) *SeasonalForecaster {
	cfg.YearlyOrder = max(cfg.YearlyOrder, 0)
	cfg.WeeklyOrder = max(cfg.WeeklyOrder, 0)
	cfg.DailyOrder = max(cfg.DailyOrder, 0)
	return &SeasonalForecaster{cfg: cfg}
}

// Forecast fits history and returns predictions for history then future.
//
// # Outputs
//
//   - []ForecastPoint: len(history)+len(future) points in input order.
//   - error: ErrInsufficientHistory for fewer than two rows, ErrDegenerateFit
//     for non-finite inputs, a zero-length time span or a singular system,
//     or the context error if ctx is done.
func (f *SeasonalForecaster) Forecast(ctx context.Context, history, future []FeatureRow) ([]ForecastPoint, error) {
	if len(history) < 2 {
		return nil, fmt.Errorf("%w: got %d", ErrInsufficientHistory, len(history))
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := checkFinite(history); err != nil {
		return nil, err
	}
	if err := checkFinite(future); err != nil {
		return nil, err
	}

	start := history[0].Date
	span := daysBetween(start, history[len(history)-1].Date)
	if span <= 0 {
		return nil, fmt.Errorf("%w: history spans no time", ErrDegenerateFit)
	}

	d := f.newDesign(history, start, span)

	n, p := len(history), d.columns()
	x := mat.NewDense(n, p, nil)
	y := mat.NewVecDense(n, nil)
	for i, row := range history {
		x.SetRow(i, d.features(row))
		y.SetVec(i, row.Count/d.yScale)
	}

	var normal mat.SymDense
	normal.SymOuterK(1, x.T())
	for i, pen := range d.penalties() {
		normal.SetSym(i, i, normal.At(i, i)+pen)
	}

	var rhs mat.VecDense
	rhs.MulVec(x.T(), y)

	var chol mat.Cholesky
	if ok := chol.Factorize(&normal); !ok {
		return nil, fmt.Errorf("%w: normal equations not positive definite", ErrDegenerateFit)
	}
	var beta mat.VecDense
	if err := chol.SolveVecTo(&beta, &rhs); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDegenerateFit, err)
	}
	for i := 0; i < beta.Len(); i++ {
		if v := beta.AtVec(i); math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("%w: non-finite coefficient", ErrDegenerateFit)
		}
	}

	points := make([]ForecastPoint, 0, len(history)+len(future))
	for _, rows := range [][]FeatureRow{history, future} {
		for _, row := range rows {
			yhat := mat.Dot(mat.NewVecDense(p, d.features(row)), &beta) * d.yScale
			points = append(points, ForecastPoint{Date: row.Date, Predicted: yhat})
		}
	}
	return points, nil
}

// =============================================================================
// Design matrix
// =============================================================================

type design struct {
	cfg    SeasonalConfig
	start  time.Time
	span   float64
	yScale float64
	mean   [4]float64
	std    [4]float64
}

func (f *SeasonalForecaster) newDesign(history []FeatureRow, start time.Time, span float64) *design {
	d := &design{cfg: f.cfg, start: start, span: span, yScale: 1}

	maxAbs := 0.0
	for _, row := range history {
		maxAbs = math.Max(maxAbs, math.Abs(row.Count))
	}
	if maxAbs > 0 {
		d.yScale = maxAbs
	}

	col := make([]float64, len(history))
	for j := range d.mean {
		for i, row := range history {
			col[i] = row.Values()[j]
		}
		mean, std := stat.MeanStdDev(col, nil)
		if std == 0 || math.IsNaN(std) {
			std = 1
		}
		d.mean[j], d.std[j] = mean, std
	}
	return d
}

func (d *design) columns() int {
	return 2 + 2*(d.cfg.YearlyOrder+d.cfg.WeeklyOrder+d.cfg.DailyOrder) + 4
}

func (d *design) penalties() []float64 {
	pen := make([]float64, 0, d.columns())
	pen = append(pen, trendPenalty, trendPenalty)
	for i := 0; i < 2*(d.cfg.YearlyOrder+d.cfg.WeeklyOrder+d.cfg.DailyOrder); i++ {
		pen = append(pen, d.cfg.SeasonalityPenalty)
	}
	for i := 0; i < 4; i++ {
		pen = append(pen, d.cfg.RegressorPenalty)
	}
	return pen
}

func (d *design) features(row FeatureRow) []float64 {
	out := make([]float64, 0, d.columns())
	out = append(out, 1, daysBetween(d.start, row.Date)/d.span)

	epochDays := float64(row.Date.Unix()) / 86400
	out = appendFourier(out, epochDays, yearlyPeriod, d.cfg.YearlyOrder)
	out = appendFourier(out, epochDays, weeklyPeriod, d.cfg.WeeklyOrder)
	out = appendFourier(out, epochDays, dailyPeriod, d.cfg.DailyOrder)

	for j, v := range row.Values() {
		out = append(out, (v-d.mean[j])/d.std[j])
	}
	return out
}

func appendFourier(dst []float64, t, period float64, order int) []float64 {
	for k := 1; k <= order; k++ {
		angle := 2 * math.Pi * float64(k) * t / period
		dst = append(dst, math.Sin(angle), math.Cos(angle))
	}
	return dst
}

func daysBetween(from, to time.Time) float64 {
	return to.Sub(from).Hours() / 24
}

func checkFinite(rows []FeatureRow) error {
	for _, row := range rows {
		if bad(row.Count) {
			return fmt.Errorf("%w: non-finite count on %s", ErrDegenerateFit, row.Date.Format(time.DateOnly))
		}
		for _, v := range row.Values() {
			if bad(v) {
				return fmt.Errorf("%w: non-finite regressor on %s", ErrDegenerateFit, row.Date.Format(time.DateOnly))
			}
		}
	}
	return nil
}

func bad(v float64) bool {
	return math.IsNaN(v) || math.IsInf(v, 0)
}
