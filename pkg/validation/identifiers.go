// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package validation provides input validation utilities for identifiers that
// end up inside store queries.
//
// Flight numbers and airport codes are normalized before they are persisted so
// that later exact-match lookups (Mongo filters, Flux tag predicates) see one
// canonical spelling. Free-form strings that must be embedded in Flux source
// go through FluxString instead of being validated.
package validation

import (
	"fmt"
	"regexp"
	"strings"
)

// flightNumberPattern matches IATA/ICAO style flight designators.
// Airline prefix of 2-3 alphanumerics, 1-4 digit number, optional suffix letter.
var flightNumberPattern = regexp.MustCompile(`^[A-Z0-9]{2,3}[0-9]{1,4}[A-Z]?$`)

// airportCodePattern matches 3-letter IATA and 4-letter ICAO codes.
var airportCodePattern = regexp.MustCompile(`^[A-Z]{3,4}$`)

// ValidateFlightNumber checks a flight number such as "AA123" or "UA1549".
//
// Returns an error if the value is empty or does not look like a flight
// designator. The value must already be uppercase.
func ValidateFlightNumber(flight string) error {
	if flight == "" {
		return fmt.Errorf("flight number cannot be empty")
	}
	if !flightNumberPattern.MatchString(flight) {
		return fmt.Errorf("invalid flight number format: %q (expected airline prefix followed by 1-4 digits)", flight)
	}
	return nil
}

// ValidateAirportCode checks a 3 or 4 letter uppercase airport code.
func ValidateAirportCode(code string) error {
	if code == "" {
		return fmt.Errorf("airport code cannot be empty")
	}
	if !airportCodePattern.MatchString(code) {
		return fmt.Errorf("invalid airport code: %q (must be 3-4 uppercase letters)", code)
	}
	return nil
}

// ValidateAirportCodes validates multiple airport codes.
// Returns an error listing all invalid codes if any fail validation.
func ValidateAirportCodes(codes []string) error {
	var invalid []string
	for _, c := range codes {
		if err := ValidateAirportCode(c); err != nil {
			invalid = append(invalid, c)
		}
	}

	if len(invalid) > 0 {
		return fmt.Errorf("invalid airport codes: %v", invalid)
	}
	return nil
}

// SanitizeFlightNumber upper-cases, trims and validates a flight number.
//
//	flight, err := validation.SanitizeFlightNumber(" aa123 ")
//	// flight == "AA123"
func SanitizeFlightNumber(flight string) (string, error) {
	normalized := strings.ToUpper(strings.TrimSpace(flight))
	if err := ValidateFlightNumber(normalized); err != nil {
		return "", err
	}
	return normalized, nil
}

// SanitizeAirportCode upper-cases, trims and validates an airport code.
func SanitizeAirportCode(code string) (string, error) {
	normalized := strings.ToUpper(strings.TrimSpace(code))
	if err := ValidateAirportCode(normalized); err != nil {
		return "", err
	}
	return normalized, nil
}

var fluxEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`, `${`, `\${`)

// FluxString renders s as a double-quoted Flux string literal.
//
// Backslashes, double quotes and the interpolation opener "${" are escaped so
// that arbitrary request input can be compared against tag values without
// altering the surrounding query.
//
//	FluxString(`DEL") |> drop()`) // "DEL\") |> drop()"
func FluxString(s string) string {
	return `"` + fluxEscaper.Replace(s) + `"`
}

// FluxStringSet renders values as a Flux array of string literals.
func FluxStringSet(values []string) string {
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = FluxString(v)
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}
