// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package dataset synthesizes a seeded, reproducible incident dataset for
// demos and local seeding.
//
// Output depends only on Options: the same seed always yields the same
// records. Records carry no incident type; the seeding command classifies
// each description before storing it.
package dataset

import (
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"gonum.org/v1/gonum/stat/distuv"
)

// Airport is a reference airport with its nominal coordinates.
type Airport struct {
	Code      string
	Latitude  float64
	Longitude float64
}

// Airports are the airports incidents are placed at.
var Airports = []Airport{
	{"LAX", 33.9416, -118.4085},
	{"JFK", 40.6413, -73.7781},
	{"ORD", 41.9786, -87.9049},
	{"ATL", 33.6367, -84.4281},
	{"DFW", 32.8969, -97.0380},
	{"DEN", 39.8561, -104.6722},
}

// airlines is sampled uniformly; repeats weight the draw toward UA.
var airlines = []string{"AA", "UA", "DL", "WN", "UA", "AS", "UA", "UA", "UA", "UA"}

// Descriptions are the incident report texts.
var Descriptions = []string{
	"Engine vibration reported during takeoff",
	"Bird strike during climb",
	"Cabin pressure fluctuation",
	"Landing gear warning light",
	"Electrical failure in cockpit",
	"Hydraulic system warning",
	"Fuel imbalance alert",
	"Brake temperature warning",
	"Air traffic control miscommunication",
	"Runway incursion reported",
	"Autopilot disengagement",
	"Wind shear encountered",
	"Ice accumulation warning",
	"Cargo door warning",
	"Evacuation slide deployed in-flight",
	"Cabin depressurization",
	"In-flight turbulence incident",
	"Engine oil pressure low",
	"Tyre blowout during landing",
	"Security threat reported onboard",
}

// Severities and their sampling weights.
var (
	Severities      = []string{"Low", "Medium", "High"}
	severityWeights = []float64{0.7, 0.2, 0.1}
)

const coordinateJitter = 0.1

// Record is one synthesized incident.
type Record struct {
	FlightNumber string
	DateTime     time.Time
	Latitude     float64
	Longitude    float64
	AirportCode  string
	Description  string
	Severity     string
}

// Options controls generation.
type Options struct {
	Rows  int
	Seed  uint64
	Start time.Time
	End   time.Time
}

// DefaultOptions returns 1000 rows, seed 42, dates from 2023-01-01 up to
// (excluding) 2024-04-19.
func DefaultOptions() Options {
	return Options{
		Rows:  1000,
		Seed:  42,
		Start: time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2024, 4, 19, 0, 0, 0, 0, time.UTC),
	}
}

// Generate synthesizes opts.Rows records.
//
// # Description
//
// Flight numbers are an airline prefix plus a number in [100, 999]. Dates are
// midnight UTC of a uniformly drawn whole day in [Start, End). Coordinates
// are the airport's plus N(0, 0.1) noise rounded to five decimals. Severity
// is Low, Medium or High with probability 0.7, 0.2 and 0.1.
//
// # Outputs
//
//   - []Record: The records in generation order.
//   - error: Rows is negative or End is not at least one day after Start.
func Generate(opts Options) ([]Record, error) {
	if opts.Rows < 0 {
		return nil, fmt.Errorf("rows must be non-negative, got %d", opts.Rows)
	}
	days := int(opts.End.Sub(opts.Start).Hours() / 24)
	if days < 1 {
		return nil, fmt.Errorf("end %s must be at least one day after start %s",
			opts.End.Format(time.DateOnly), opts.Start.Format(time.DateOnly))
	}

	src := rand.NewPCG(opts.Seed, opts.Seed^0x9e3779b97f4a7c15)
	rng := rand.New(src)
	noise := distuv.Normal{Mu: 0, Sigma: coordinateJitter, Src: src}
	severity := distuv.NewCategorical(severityWeights, src)

	start := opts.Start.UTC().Truncate(24 * time.Hour)
	out := make([]Record, 0, opts.Rows)
	for range opts.Rows {
		airline := airlines[rng.IntN(len(airlines))]
		flight := fmt.Sprintf("%s%d", airline, 100+rng.IntN(900))

		date := start.AddDate(0, 0, rng.IntN(days))
		ap := Airports[rng.IntN(len(Airports))]

		out = append(out, Record{
			FlightNumber: flight,
			DateTime:     date,
			Latitude:     round5(ap.Latitude + noise.Rand()),
			Longitude:    round5(ap.Longitude + noise.Rand()),
			AirportCode:  ap.Code,
			Description:  Descriptions[rng.IntN(len(Descriptions))],
			Severity:     Severities[int(severity.Rand())],
		})
	}
	return out, nil
}

func round5(v float64) float64 {
	return math.Round(v*1e5) / 1e5
}
