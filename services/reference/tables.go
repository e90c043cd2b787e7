// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package reference holds the static weather and maintenance lookup tables
// used as forecast regressors.
//
// # Description
//
// Both tables are read from CSV once at service start and never modified
// afterwards, so a *Tables value can be shared by every request without
// locking. Each numeric cell is individually optional: an empty or
// unparsable cell is recorded as missing and the caller substitutes its
// default for that field only.
//
// # Limitations
//
//   - Tables are not reloaded; restart the service to pick up new files.
//   - When a key repeats, the first row wins.
package reference

import (
	"time"
)

// DateLayout is the calendar-date format of the weather table's date column.
const DateLayout = "2006-01-02"

// Reading is an optional numeric cell.
type Reading struct {
	Value float64
	Valid bool
}

// Known returns a valid reading.
func Known(v float64) Reading {
	return Reading{Value: v, Valid: true}
}

// Or returns the value, or def when the reading is missing.
func (r Reading) Or(def float64) float64 {
	if !r.Valid {
		return def
	}
	return r.Value
}

// Weather is one row of the weather table.
type Weather struct {
	Date          time.Time
	Temperature   Reading
	WindSpeed     Reading
	Precipitation Reading
}

// Maintenance is one row of the maintenance table.
type Maintenance struct {
	FlightNumber string
	AircraftAge  Reading
}

// Tables is the immutable pair of lookup tables.
type Tables struct {
	weather     map[string]Weather
	maintenance map[string]Maintenance
}

// NewTables indexes the given rows. Duplicate keys keep the first row.
func NewTables(weather []Weather, maintenance []Maintenance) *Tables {
	t := &Tables{
		weather:     make(map[string]Weather, len(weather)),
		maintenance: make(map[string]Maintenance, len(maintenance)),
	}
	for _, w := range weather {
		key := dateKey(w.Date)
		if _, ok := t.weather[key]; !ok {
			t.weather[key] = w
		}
	}
	for _, m := range maintenance {
		if _, ok := t.maintenance[m.FlightNumber]; !ok {
			t.maintenance[m.FlightNumber] = m
		}
	}
	return t
}

// Empty returns tables with no rows; every lookup misses.
func Empty() *Tables {
	return NewTables(nil, nil)
}

// Weather looks up the row for the UTC calendar day of date.
func (t *Tables) Weather(date time.Time) (Weather, bool) {
	w, ok := t.weather[dateKey(date)]
	return w, ok
}

// Maintenance looks up the row for an exact flight number.
func (t *Tables) Maintenance(flightNumber string) (Maintenance, bool) {
	m, ok := t.maintenance[flightNumber]
	return m, ok
}

// Size reports the number of distinct weather dates and flight numbers.
func (t *Tables) Size() (weatherDays, flights int) {
	return len(t.weather), len(t.maintenance)
}

func dateKey(d time.Time) string {
	return d.UTC().Format(DateLayout)
}
