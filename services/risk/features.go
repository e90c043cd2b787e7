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
	"time"

	"github.com/AleutianAI/FlightRisk/services/reference"
)

// ReferenceData is the read-only lookup surface of reference.Tables.
type ReferenceData interface {
	Weather(date time.Time) (reference.Weather, bool)
	Maintenance(flightNumber string) (reference.Maintenance, bool)
}

// Assembler joins daily counts with regressors.
type Assembler struct {
	ref ReferenceData
}

// NewAssembler creates an assembler over the given tables.
// A nil ref behaves as empty tables, so every regressor takes its default.
func NewAssembler(ref ReferenceData) *Assembler {
	if ref == nil {
		ref = reference.Empty()
	}
	return &Assembler{ref: ref}
}

// Regressors resolves the regressors for one flight and day.
//
// Weather joins on the calendar date and maintenance on the exact flight
// number. Each field falls back to its default independently.
func (a *Assembler) Regressors(flightNumber string, date time.Time) Regressors {
	r := Regressors{
		Temperature:   DefaultTemperature,
		WindSpeed:     DefaultWindSpeed,
		Precipitation: DefaultPrecipitation,
		AircraftAge:   DefaultAircraftAge,
	}
	if w, ok := a.ref.Weather(date); ok {
		r.Temperature = w.Temperature.Or(DefaultTemperature)
		r.WindSpeed = w.WindSpeed.Or(DefaultWindSpeed)
		r.Precipitation = w.Precipitation.Or(DefaultPrecipitation)
	}
	if m, ok := a.ref.Maintenance(flightNumber); ok {
		r.AircraftAge = m.AircraftAge.Or(DefaultAircraftAge)
	}
	return r
}

// History converts daily counts into feature rows, preserving order.
func (a *Assembler) History(flightNumber string, counts []DailyCount) []FeatureRow {
	rows := make([]FeatureRow, len(counts))
	for i, c := range counts {
		rows[i] = FeatureRow{
			Date:       c.Date,
			Count:      float64(c.Count),
			Regressors: a.Regressors(flightNumber, c.Date),
		}
	}
	return rows
}

// Future builds the rows for the days days following last.
func (a *Assembler) Future(flightNumber string, last time.Time, days int) []FeatureRow {
	rows := make([]FeatureRow, 0, days)
	for i := 1; i <= days; i++ {
		d := last.AddDate(0, 0, i)
		rows = append(rows, FeatureRow{
			Date:       d,
			Regressors: a.Regressors(flightNumber, d),
		})
	}
	return rows
}
