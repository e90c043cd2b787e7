// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/AleutianAI/FlightRisk/services/dataset"
	"github.com/AleutianAI/FlightRisk/services/store"
	"github.com/AleutianAI/FlightRisk/services/store/memstore"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// execute runs the CLI with args and returns stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

// =============================================================================
// generate
// =============================================================================

func TestGenerate_ToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "incidents.csv")

	out, err := execute(t, "-o", "machine", "generate", "--rows", "25", "--seed", "7", "--out", path)
	require.NoError(t, err)
	assert.Contains(t, out, "OK\twrote 25 incidents")
	assert.Contains(t, out, "seed\t7")

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	records, err := dataset.ReadCSV(f)
	require.NoError(t, err)
	assert.Len(t, records, 25)
}

func TestGenerate_Stdout(t *testing.T) {
	out, err := execute(t, "generate", "--rows", "3")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "Flight Number,datetime,Latitude,Longitude,Airport Code,Description,Severity", lines[0])
}

func TestGenerate_BadDate(t *testing.T) {
	_, err := execute(t, "generate", "--start", "01/02/2023")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--start")
}

// =============================================================================
// classify
// =============================================================================

func TestClassify(t *testing.T) {
	tests := []struct {
		args []string
		want string
	}{
		{[]string{"engine", "failure", "during", "turbulence"}, "incident_type\tEngine Failure\nkeyword\tengine\n"},
		{[]string{"routine flight, no issues"}, "incident_type\tOther\nkeyword\t(none)\n"},
		{[]string{"Heavy rain on final approach"}, "incident_type\tWeather Issue\nkeyword\train\n"},
	}
	for _, tt := range tests {
		t.Run(strings.Join(tt.args, " "), func(t *testing.T) {
			out, err := execute(t, append([]string{"-o", "machine", "classify"}, tt.args...)...)
			require.NoError(t, err)
			assert.Equal(t, tt.want, out)
		})
	}

	t.Run("requires text", func(t *testing.T) {
		_, err := execute(t, "classify")
		assert.Error(t, err)
	})
}

// =============================================================================
// predict
// =============================================================================

func TestPredict(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/predict_risk" || r.Method != http.MethodPost {
			http.NotFound(w, r)
			return
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"risk":0.72,"message":"Risk computed"}`))
	}))
	defer srv.Close()

	out, err := execute(t, "-o", "machine", "predict",
		"--flight", "AA100", "--route", "JFK-LAX", "--type", "Turbulence", "--server", srv.URL+"/")
	require.NoError(t, err)

	assert.Equal(t, map[string]string{"flight_number": "AA100", "route": "JFK-LAX", "incident_type": "Turbulence"}, got)
	assert.Contains(t, out, "score\t0.7200\n")
	assert.Contains(t, out, "band\tHIGH\n")
	assert.Contains(t, out, "message\tRisk computed\n")
	assert.NotContains(t, out, "WARN")
}

func TestPredict_InsufficientData(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"risk":0.05,"message":"Insufficient data, assuming low risk"}`))
	}))
	defer srv.Close()

	out, err := execute(t, "-o", "machine", "predict",
		"--flight", "ZZ1", "--route", "AAA-BBB", "--type", "Other", "--server", srv.URL)
	require.NoError(t, err)
	assert.Contains(t, out, "band\tLOW\n")
	assert.Contains(t, out, "WARN\t")
}

func TestPredict_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"risk prediction failed"}`))
	}))
	defer srv.Close()

	_, err := execute(t, "predict", "--flight", "AA1", "--route", "JFK-LAX", "--type", "Other", "--server", srv.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")
	assert.Contains(t, err.Error(), "risk prediction failed")
}

func TestPredict_RequiresFlags(t *testing.T) {
	_, err := execute(t, "predict", "--flight", "AA1")
	assert.Error(t, err)
}

// =============================================================================
// seed
// =============================================================================

type memSink struct{ s *memstore.Store }

func (m memSink) store(ctx context.Context, incs []store.Incident) (int, error) {
	return m.s.InsertIncidents(ctx, incs)
}

func (memSink) close(context.Context) {}

func TestRunSeed(t *testing.T) {
	records, err := dataset.Generate(dataset.Options{
		Rows:  40,
		Seed:  3,
		Start: dataset.DefaultOptions().Start,
		End:   dataset.DefaultOptions().End,
	})
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "incidents.csv")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, dataset.WriteCSV(f, records))
	require.NoError(t, f.Close())

	mem := memstore.New()
	var out bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&out)

	err = runSeed(context.Background(), cmd, &rootOptions{output: "machine"},
		&seedOptions{csvPath: path, backend: "memory"}, memSink{mem})
	require.NoError(t, err)
	assert.Contains(t, out.String(), "OK\tseeded 40 incidents")

	stored, err := mem.ListIncidents(context.Background(), store.IncidentQuery{})
	require.NoError(t, err)
	require.Len(t, stored, 40)
	for _, inc := range stored {
		assert.NotEmpty(t, inc.IncidentType)
		assert.NotEmpty(t, inc.Location.AirportCode)
	}
}

func TestSeed_UnknownBackend(t *testing.T) {
	_, err := execute(t, "seed", "--backend", "sqlite")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown backend")
}

func TestSeed_MissingCSV(t *testing.T) {
	mem := memstore.New()
	cmd := &cobra.Command{}
	err := runSeed(context.Background(), cmd, &rootOptions{},
		&seedOptions{csvPath: filepath.Join(t.TempDir(), "absent.csv")}, memSink{mem})
	assert.Error(t, err)
}
