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
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestReadWeatherCSV(t *testing.T) {
	input := `date,temperature,wind_speed,precipitation
2024-03-01,18.5,12,0.4
2024-03-02,,7.5,
not-a-date,1,2,3
2024-03-03 14:00:00,21,abc,0
`
	rows, stats, err := ReadWeatherCSV(strings.NewReader(input))
	require.NoError(t, err)

	require.Len(t, rows, 3)
	assert.Equal(t, 3, stats.Rows)
	assert.Equal(t, 1, stats.SkippedRows)
	assert.Equal(t, 3, stats.MissingCell)

	assert.Equal(t, day(2024, 3, 1), rows[0].Date)
	assert.Equal(t, Known(18.5), rows[0].Temperature)
	assert.Equal(t, Known(0.4), rows[0].Precipitation)

	assert.False(t, rows[1].Temperature.Valid)
	assert.Equal(t, Known(7.5), rows[1].WindSpeed)
	assert.False(t, rows[1].Precipitation.Valid)

	assert.Equal(t, day(2024, 3, 3), rows[2].Date)
	assert.False(t, rows[2].WindSpeed.Valid)
}

func TestReadWeatherCSV_MissingColumns(t *testing.T) {
	_, _, err := ReadWeatherCSV(strings.NewReader("temperature\n20\n"))
	assert.ErrorIs(t, err, ErrMissingColumn)

	_, _, err = ReadWeatherCSV(strings.NewReader(""))
	assert.ErrorIs(t, err, ErrMissingColumn)

	rows, stats, err := ReadWeatherCSV(strings.NewReader("Date\n2024-01-05\n"))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.False(t, rows[0].Temperature.Valid)
	assert.Equal(t, 3, stats.MissingCell)
}

func TestReadMaintenanceCSV(t *testing.T) {
	input := "flight_number,aircraft_age\nAA123,12\n,4\nUA456,\n"

	rows, stats, err := ReadMaintenanceCSV(strings.NewReader(input))
	require.NoError(t, err)

	require.Len(t, rows, 2)
	assert.Equal(t, 1, stats.SkippedRows)
	assert.Equal(t, "AA123", rows[0].FlightNumber)
	assert.Equal(t, Known(12), rows[0].AircraftAge)
	assert.False(t, rows[1].AircraftAge.Valid)

	_, _, err = ReadMaintenanceCSV(strings.NewReader("tail,aircraft_age\nN1,3\n"))
	assert.ErrorIs(t, err, ErrMissingColumn)
}

func TestTables_Lookups(t *testing.T) {
	tables := NewTables(
		[]Weather{
			{Date: day(2024, 1, 1), Temperature: Known(5)},
			{Date: day(2024, 1, 1), Temperature: Known(99)},
		},
		[]Maintenance{
			{FlightNumber: "AA123", AircraftAge: Known(7)},
			{FlightNumber: "AA123", AircraftAge: Known(30)},
		},
	)

	w, ok := tables.Weather(time.Date(2024, 1, 1, 23, 59, 0, 0, time.UTC))
	require.True(t, ok)
	assert.Equal(t, 5.0, w.Temperature.Value, "first row wins")

	_, ok = tables.Weather(day(2024, 1, 2))
	assert.False(t, ok)

	m, ok := tables.Maintenance("AA123")
	require.True(t, ok)
	assert.Equal(t, 7.0, m.AircraftAge.Or(5))

	_, ok = tables.Maintenance("aa123")
	assert.False(t, ok, "flight lookup is exact")

	days, flights := tables.Size()
	assert.Equal(t, 1, days)
	assert.Equal(t, 1, flights)
}

func TestReading_Or(t *testing.T) {
	assert.Equal(t, 25.0, Reading{}.Or(25))
	assert.Equal(t, 0.0, Known(0).Or(25))
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	weatherPath := filepath.Join(dir, "weather.csv")
	maintPath := filepath.Join(dir, "maintenance.csv")
	require.NoError(t, os.WriteFile(weatherPath, []byte("date,temperature,wind_speed,precipitation\n2024-02-10,3,40,12\n"), 0o600))
	require.NoError(t, os.WriteFile(maintPath, []byte("flight_number,aircraft_age\nDL42,21\n"), 0o600))

	tables, err := Load(context.Background(), Paths{Weather: weatherPath, Maintenance: maintPath}, nil)
	require.NoError(t, err)

	w, ok := tables.Weather(day(2024, 2, 10))
	require.True(t, ok)
	assert.Equal(t, 40.0, w.WindSpeed.Value)

	m, ok := tables.Maintenance("DL42")
	require.True(t, ok)
	assert.Equal(t, 21.0, m.AircraftAge.Value)
}

func TestLoad_EmptyPathsAndErrors(t *testing.T) {
	tables, err := Load(context.Background(), Paths{}, nil)
	require.NoError(t, err)
	days, flights := tables.Size()
	assert.Zero(t, days)
	assert.Zero(t, flights)

	_, err = Load(context.Background(), Paths{Weather: filepath.Join(t.TempDir(), "nope.csv")}, nil)
	assert.Error(t, err)
}

func TestLoad_RepositoryData(t *testing.T) {
	tables, err := Load(context.Background(), Paths{
		Weather:     filepath.Join("..", "..", "data", "weather_data.csv"),
		Maintenance: filepath.Join("..", "..", "data", "maintenance_data.csv"),
	}, nil)
	require.NoError(t, err)

	days, flights := tables.Size()
	assert.Positive(t, days)
	assert.Positive(t, flights)
}
