// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package ux

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseMode(t *testing.T) {
	assert.Equal(t, ModeMachine, ParseMode("machine"))
	assert.Equal(t, ModeMachine, ParseMode(" MACHINE "))
	assert.Equal(t, ModePretty, ParseMode("pretty"))
	assert.Equal(t, ModePretty, ParseMode(""))
	assert.Equal(t, ModePretty, ParseMode("fancy"))
}

func TestBandFor(t *testing.T) {
	tests := []struct {
		risk float64
		want RiskBand
	}{
		{0, BandLow},
		{0.05, BandLow},
		{0.29, BandLow},
		{0.3, BandMedium},
		{0.59, BandMedium},
		{0.6, BandHigh},
		{1, BandHigh},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, BandFor(tt.risk), "risk %v", tt.risk)
	}
}

func TestPrinter_MachineMode(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, ModeMachine)

	p.Title("ignored")
	p.Success("seeded 10 incidents")
	p.Warning("cache disabled")
	p.Error("server unreachable")
	p.Box("Risk", Field{"Flight", "AA100"}, Field{"Risk band", p.RenderBand(BandHigh)})

	assert.Equal(t, strings.Join([]string{
		"OK\tseeded 10 incidents",
		"WARN\tcache disabled",
		"ERROR\tserver unreachable",
		"flight\tAA100",
		"risk_band\tHIGH",
		"",
	}, "\n"), buf.String())
}

func TestPrinter_PrettyMode(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, ModePretty)

	p.Title("FlightRisk")
	p.Box("Prediction", Field{"Flight", "AA100"}, Field{"Route", "JFK-LAX"})
	p.Success("done")

	out := buf.String()
	assert.Contains(t, out, "FlightRisk")
	assert.Contains(t, out, "Prediction")
	assert.Contains(t, out, "AA100")
	assert.Contains(t, out, "JFK-LAX")
	assert.Contains(t, out, "╭")
	assert.Contains(t, out, string(IconSuccess)+" done")
}

func TestPrinter_Bar(t *testing.T) {
	var buf bytes.Buffer
	pretty := NewPrinter(&buf, ModePretty)
	machine := NewPrinter(&buf, ModeMachine)

	assert.Equal(t, " 60%", machine.Bar(0.6, 10))
	assert.Equal(t, "100%", machine.Bar(1.7, 10))

	bar := pretty.Bar(0.3, 10)
	assert.Equal(t, 3, strings.Count(bar, "█"))
	assert.Equal(t, 7, strings.Count(bar, "░"))
	assert.True(t, strings.HasSuffix(bar, " 30%"))
}
