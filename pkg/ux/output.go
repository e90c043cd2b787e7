// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package ux renders FlightRisk CLI output with lipgloss.
//
// # Description
//
// A Printer writes either styled output for terminals (ModePretty) or
// tab-separated lines for scripts (ModeMachine). Colors are chosen by the
// lipgloss renderer bound to the Printer's writer, so output redirected to
// a file or pipe carries no escape codes.
package ux

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Flight deck palette.
var (
	ColorSky     = lipgloss.Color("#4FC3F7")
	ColorHorizon = lipgloss.Color("#0288D1")
	ColorSlate   = lipgloss.Color("#546E7A")

	ColorLow    = lipgloss.Color("#2ECC71")
	ColorMedium = lipgloss.Color("#F4D03F")
	ColorHigh   = lipgloss.Color("#E74C3C")
)

// Mode selects how a Printer formats output.
type Mode string

const (
	// ModePretty renders boxes and colors.
	ModePretty Mode = "pretty"
	// ModeMachine renders plain KEY<TAB>VALUE lines.
	ModeMachine Mode = "machine"
)

// ParseMode maps a flag value to a Mode. Unknown values are pretty.
func ParseMode(s string) Mode {
	if strings.EqualFold(strings.TrimSpace(s), string(ModeMachine)) {
		return ModeMachine
	}
	return ModePretty
}

// Icon is a status glyph.
type Icon string

const (
	IconSuccess Icon = "✓"
	IconWarning Icon = "⚠"
	IconError   Icon = "✗"
	IconPlane   Icon = "✈"
)

// styles is bound to one renderer so color detection follows the writer.
type styles struct {
	title   lipgloss.Style
	muted   lipgloss.Style
	bold    lipgloss.Style
	success lipgloss.Style
	warning lipgloss.Style
	error   lipgloss.Style
	box     lipgloss.Style
}

func newStyles(r *lipgloss.Renderer) styles {
	return styles{
		title:   r.NewStyle().Bold(true).Foreground(ColorSky),
		muted:   r.NewStyle().Foreground(ColorSlate),
		bold:    r.NewStyle().Bold(true),
		success: r.NewStyle().Foreground(ColorLow),
		warning: r.NewStyle().Foreground(ColorMedium),
		error:   r.NewStyle().Foreground(ColorHigh),
		box: r.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorHorizon).
			Padding(0, 1),
	}
}

// Printer writes CLI output.
//
// # Thread Safety
//
// Not safe for concurrent use.
type Printer struct {
	w      io.Writer
	mode   Mode
	styles styles
}

// NewPrinter creates a Printer writing to w.
func NewPrinter(w io.Writer, mode Mode) *Printer {
	return &Printer{
		w:      w,
		mode:   mode,
		styles: newStyles(lipgloss.NewRenderer(w)),
	}
}

// Mode reports the output mode.
func (p *Printer) Mode() Mode {
	return p.mode
}

// Title prints a heading. Suppressed in machine mode.
func (p *Printer) Title(text string) {
	if p.mode == ModeMachine {
		return
	}
	fmt.Fprintln(p.w, p.styles.title.Render(text))
}

// Success prints a confirmation line.
func (p *Printer) Success(text string) {
	if p.mode == ModeMachine {
		fmt.Fprintf(p.w, "OK\t%s\n", text)
		return
	}
	fmt.Fprintf(p.w, "%s %s\n", p.styles.success.Render(string(IconSuccess)), text)
}

// Warning prints a warning line.
func (p *Printer) Warning(text string) {
	if p.mode == ModeMachine {
		fmt.Fprintf(p.w, "WARN\t%s\n", text)
		return
	}
	fmt.Fprintf(p.w, "%s %s\n", p.styles.warning.Render(string(IconWarning)), p.styles.warning.Render(text))
}

// Error prints an error line.
func (p *Printer) Error(text string) {
	if p.mode == ModeMachine {
		fmt.Fprintf(p.w, "ERROR\t%s\n", text)
		return
	}
	fmt.Fprintf(p.w, "%s %s\n", p.styles.error.Render(string(IconError)), p.styles.error.Render(text))
}

// Field is one labelled value in a Box.
type Field struct {
	Label string
	Value string
}

// Box prints fields in a rounded box under a title. In machine mode each
// field is a "label<TAB>value" line.
func (p *Printer) Box(title string, fields ...Field) {
	if p.mode == ModeMachine {
		for _, f := range fields {
			fmt.Fprintf(p.w, "%s\t%s\n", machineKey(f.Label), f.Value)
		}
		return
	}

	width := 0
	for _, f := range fields {
		width = max(width, len(f.Label))
	}
	lines := []string{p.styles.title.Render(title)}
	for _, f := range fields {
		label := p.styles.muted.Render(fmt.Sprintf("%-*s", width, f.Label))
		lines = append(lines, label+"  "+f.Value)
	}
	fmt.Fprintln(p.w, p.styles.box.Render(strings.Join(lines, "\n")))
}

func machineKey(label string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(label), " ", "_"))
}

// =============================================================================
// Risk rendering
// =============================================================================

// RiskBand buckets a risk score for display.
type RiskBand string

const (
	BandLow    RiskBand = "LOW"
	BandMedium RiskBand = "MEDIUM"
	BandHigh   RiskBand = "HIGH"
)

// BandFor maps a score in [0, 1] to a band. Below 0.3 is low and 0.6 or
// above is high.
func BandFor(risk float64) RiskBand {
	switch {
	case risk >= 0.6:
		return BandHigh
	case risk >= 0.3:
		return BandMedium
	default:
		return BandLow
	}
}

// RenderBand returns the band label colored for its severity.
func (p *Printer) RenderBand(b RiskBand) string {
	if p.mode == ModeMachine {
		return string(b)
	}
	switch b {
	case BandHigh:
		return p.styles.error.Bold(true).Render(string(b))
	case BandMedium:
		return p.styles.warning.Bold(true).Render(string(b))
	default:
		return p.styles.success.Bold(true).Render(string(b))
	}
}

// Bar renders score as a fixed-width gauge, e.g. "███░░░░░░░ 30%".
func (p *Printer) Bar(score float64, width int) string {
	score = min(max(score, 0), 1)
	filled := int(score*float64(width) + 0.5)
	pct := fmt.Sprintf("%3.0f%%", score*100)
	if p.mode == ModeMachine {
		return pct
	}
	return p.styles.bold.Render(strings.Repeat("█", filled)) +
		p.styles.muted.Render(strings.Repeat("░", width-filled)) + " " + pct
}
