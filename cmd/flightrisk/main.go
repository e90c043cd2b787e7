// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command flightrisk is the FlightRisk command-line tool.
//
// # Usage
//
//	flightrisk generate --rows 1000 --seed 42 --out incidents.csv
//	flightrisk seed --csv incidents.csv --backend mongo
//	flightrisk classify "Engine fire after takeoff"
//	flightrisk predict --flight AA100 --route JFK-LAX --type Turbulence
//
// The HTTP service itself is started by cmd/riskservice.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
