// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package handlers

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/AleutianAI/FlightRisk/services/store"
	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"
)

const (
	// XLSXContentType is the MIME type of the export.
	XLSXContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	// ExportSheet is the worksheet holding the incident rows.
	ExportSheet = "Incidents"

	exportTimeLayout = "2006-01-02 15:04:05"
)

type exportColumn struct {
	header string
	width  float64
	value  func(store.Incident) any
}

var exportColumns = []exportColumn{
	{"Flight Number", 15, func(i store.Incident) any { return i.FlightNumber }},
	{"Date", 20, func(i store.Incident) any { return i.DateTime.UTC().Format(exportTimeLayout) }},
	{"Location", 20, func(i store.Incident) any { return formatLocation(i.Location) }},
	{"Type", 15, func(i store.Incident) any { return i.IncidentType }},
	{"Severity", 10, func(i store.Incident) any { return i.Severity }},
	{"Description", 30, func(i store.Incident) any { return i.Description }},
	{"Created By", 20, func(i store.Incident) any {
		if i.CreatedByEmail == "" {
			return "Unknown"
		}
		return i.CreatedByEmail
	}},
	{"Suggested Action", 20, func(i store.Incident) any { return i.SuggestedAction }},
	{"Assigned Action", 20, func(i store.Incident) any { return i.AssignedAction }},
	{"Action Status", 15, func(i store.Incident) any { return string(i.ActionStatus) }},
}

func formatLocation(l store.Location) string {
	return fmt.Sprintf("%s (%s, %s)", l.AirportCode,
		strconv.FormatFloat(l.Lat, 'f', -1, 64),
		strconv.FormatFloat(l.Lon, 'f', -1, 64))
}

// BuildIncidentWorkbook renders incidents into a single-sheet workbook.
// The caller must Close the returned file.
func BuildIncidentWorkbook(incidents []store.Incident) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", ExportSheet); err != nil {
		f.Close()
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	header := make([]any, len(exportColumns))
	for i, col := range exportColumns {
		header[i] = col.header
		name, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			f.Close()
			return nil, err
		}
		if err := f.SetColWidth(ExportSheet, name, name, col.width); err != nil {
			f.Close()
			return nil, fmt.Errorf("set column width: %w", err)
		}
	}
	if err := f.SetSheetRow(ExportSheet, "A1", &header); err != nil {
		f.Close()
		return nil, fmt.Errorf("write header: %w", err)
	}

	for r, inc := range incidents {
		row := make([]any, len(exportColumns))
		for i, col := range exportColumns {
			row[i] = col.value(inc)
		}
		cell, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			f.Close()
			return nil, err
		}
		if err := f.SetSheetRow(ExportSheet, cell, &row); err != nil {
			f.Close()
			return nil, fmt.Errorf("write row %d: %w", r+2, err)
		}
	}
	return f, nil
}

// HandleExportIncidents serves GET /api/incidents/export as an xlsx download.
func HandleExportIncidents(repo store.IncidentRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		incidents, err := repo.ListIncidents(c.Request.Context(), store.IncidentQuery{})
		if err != nil {
			slog.Error("export: list incidents failed", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "export failed"})
			return
		}

		f, err := BuildIncidentWorkbook(incidents)
		if err != nil {
			slog.Error("export: build workbook failed", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "export failed"})
			return
		}
		defer f.Close()

		buf, err := f.WriteToBuffer()
		if err != nil {
			slog.Error("export: encode workbook failed", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "export failed"})
			return
		}

		c.Header("Content-Disposition", "attachment; filename=incidents.xlsx")
		c.Data(http.StatusOK, XLSXContentType, buf.Bytes())
	}
}
