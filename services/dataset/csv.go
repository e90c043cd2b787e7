// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// Header is the CSV column order.
var Header = []string{"Flight Number", "datetime", "Latitude", "Longitude", "Airport Code", "Description", "Severity"}

// TimestampLayout formats the datetime column.
const TimestampLayout = time.DateTime

// WriteCSV writes records with a header row.
func WriteCSV(w io.Writer, records []Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return err
	}
	for _, r := range records {
		row := []string{
			r.FlightNumber,
			r.DateTime.UTC().Format(TimestampLayout),
			strconv.FormatFloat(r.Latitude, 'f', -1, 64),
			strconv.FormatFloat(r.Longitude, 'f', -1, 64),
			r.AirportCode,
			r.Description,
			r.Severity,
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadCSV parses a file written by WriteCSV. Columns are located by header
// name, so extra columns are ignored.
func ReadCSV(r io.Reader) ([]Record, error) {
	cr := csv.NewReader(r)
	head, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	idx := make(map[string]int, len(head))
	for i, h := range head {
		idx[strings.TrimSpace(h)] = i
	}
	for _, col := range Header {
		if _, ok := idx[col]; !ok {
			return nil, fmt.Errorf("missing column %q", col)
		}
	}

	var out []Record
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		ts, err := time.ParseInLocation(TimestampLayout, rec[idx["datetime"]], time.UTC)
		if err != nil {
			return nil, fmt.Errorf("line %d: datetime: %w", line, err)
		}
		lat, err := strconv.ParseFloat(rec[idx["Latitude"]], 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: latitude: %w", line, err)
		}
		lon, err := strconv.ParseFloat(rec[idx["Longitude"]], 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: longitude: %w", line, err)
		}

		out = append(out, Record{
			FlightNumber: rec[idx["Flight Number"]],
			DateTime:     ts,
			Latitude:     lat,
			Longitude:    lon,
			AirportCode:  rec[idx["Airport Code"]],
			Description:  rec[idx["Description"]],
			Severity:     rec[idx["Severity"]],
		})
	}
}
