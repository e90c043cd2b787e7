// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package reference

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
)

// Column names expected in the CSV headers.
const (
	ColumnDate          = "date"
	ColumnTemperature   = "temperature"
	ColumnWindSpeed     = "wind_speed"
	ColumnPrecipitation = "precipitation"
	ColumnFlightNumber  = "flight_number"
	ColumnAircraftAge   = "aircraft_age"
)

// ErrMissingColumn is returned when a required key column is absent.
var ErrMissingColumn = errors.New("missing required column")

// Paths locates the two CSV files. An empty path loads an empty table.
type Paths struct {
	Weather     string
	Maintenance string
}

// LoadStats summarizes a CSV read.
type LoadStats struct {
	Rows        int
	SkippedRows int
	MissingCell int
}

// Load reads both tables concurrently.
//
// # Inputs
//
//   - ctx: Cancels the load; the files are read synchronously otherwise.
//   - paths: CSV locations. Empty paths are skipped.
//   - logger: Receives one summary line per table. Nil uses slog.Default().
//
// # Outputs
//
//   - *Tables: Immutable lookup tables.
//   - error: A configured file could not be opened or has no key column.
func Load(ctx context.Context, paths Paths, logger *slog.Logger) (*Tables, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var (
		weather     []Weather
		maintenance []Maintenance
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if paths.Weather == "" {
			return nil
		}
		rows, stats, err := loadFile(gctx, paths.Weather, ReadWeatherCSV)
		if err != nil {
			return fmt.Errorf("weather table %s: %w", paths.Weather, err)
		}
		weather = rows
		logger.Info("weather table loaded", "path", paths.Weather,
			"rows", stats.Rows, "skipped", stats.SkippedRows, "missing_cells", stats.MissingCell)
		return nil
	})
	g.Go(func() error {
		if paths.Maintenance == "" {
			return nil
		}
		rows, stats, err := loadFile(gctx, paths.Maintenance, ReadMaintenanceCSV)
		if err != nil {
			return fmt.Errorf("maintenance table %s: %w", paths.Maintenance, err)
		}
		maintenance = rows
		logger.Info("maintenance table loaded", "path", paths.Maintenance,
			"rows", stats.Rows, "skipped", stats.SkippedRows, "missing_cells", stats.MissingCell)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return NewTables(weather, maintenance), nil
}

func loadFile[T any](ctx context.Context, path string, read func(io.Reader) ([]T, LoadStats, error)) ([]T, LoadStats, error) {
	if err := ctx.Err(); err != nil {
		return nil, LoadStats{}, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, LoadStats{}, err
	}
	defer f.Close()
	return read(f)
}

// ReadWeatherCSV parses a weather table with a header row.
//
// The date column is required; rows whose date does not parse are skipped.
// Numeric columns may be absent entirely or blank per row.
func ReadWeatherCSV(r io.Reader) ([]Weather, LoadStats, error) {
	var stats LoadStats
	rows, header, err := readAll(r)
	if err != nil {
		return nil, stats, err
	}
	dateIdx, ok := header[ColumnDate]
	if !ok {
		return nil, stats, fmt.Errorf("%w: %s", ErrMissingColumn, ColumnDate)
	}

	out := make([]Weather, 0, len(rows))
	for _, rec := range rows {
		date, err := parseDate(cell(rec, dateIdx))
		if err != nil {
			stats.SkippedRows++
			continue
		}
		w := Weather{
			Date:          date,
			Temperature:   parseReading(rec, header, ColumnTemperature, &stats),
			WindSpeed:     parseReading(rec, header, ColumnWindSpeed, &stats),
			Precipitation: parseReading(rec, header, ColumnPrecipitation, &stats),
		}
		out = append(out, w)
		stats.Rows++
	}
	return out, stats, nil
}

// ReadMaintenanceCSV parses a maintenance table with a header row.
// Rows with an empty flight number are skipped.
func ReadMaintenanceCSV(r io.Reader) ([]Maintenance, LoadStats, error) {
	var stats LoadStats
	rows, header, err := readAll(r)
	if err != nil {
		return nil, stats, err
	}
	flightIdx, ok := header[ColumnFlightNumber]
	if !ok {
		return nil, stats, fmt.Errorf("%w: %s", ErrMissingColumn, ColumnFlightNumber)
	}

	out := make([]Maintenance, 0, len(rows))
	for _, rec := range rows {
		flight := strings.TrimSpace(cell(rec, flightIdx))
		if flight == "" {
			stats.SkippedRows++
			continue
		}
		out = append(out, Maintenance{
			FlightNumber: flight,
			AircraftAge:  parseReading(rec, header, ColumnAircraftAge, &stats),
		})
		stats.Rows++
	}
	return out, stats, nil
}

func readAll(r io.Reader) ([][]string, map[string]int, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	head, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil, fmt.Errorf("empty file: %w", ErrMissingColumn)
		}
		return nil, nil, fmt.Errorf("read header: %w", err)
	}
	header := make(map[string]int, len(head))
	for i, name := range head {
		name = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
		if _, dup := header[name]; !dup {
			header[name] = i
		}
	}

	rows, err := cr.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("read rows: %w", err)
	}
	return rows, header, nil
}

func cell(rec []string, idx int) string {
	if idx < 0 || idx >= len(rec) {
		return ""
	}
	return rec[idx]
}

func parseReading(rec []string, header map[string]int, column string, stats *LoadStats) Reading {
	idx, ok := header[column]
	if !ok {
		stats.MissingCell++
		return Reading{}
	}
	raw := strings.TrimSpace(cell(rec, idx))
	if raw == "" {
		stats.MissingCell++
		return Reading{}
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		stats.MissingCell++
		return Reading{}
	}
	return Known(v)
}

// parseDate accepts a calendar date or an RFC 3339 / "YYYY-MM-DD HH:MM:SS"
// timestamp, and returns UTC midnight of that date.
func parseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range []string{DateLayout, time.RFC3339, time.DateTime} {
		if t, err := time.Parse(layout, raw); err == nil {
			y, m, d := t.Date()
			return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
		}
	}
	return time.Time{}, fmt.Errorf("unparsable date %q", raw)
}
