// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package risk

import "strings"

// RouteSeparator joins airport codes in a route string.
const RouteSeparator = "-"

// ParseRoute splits a route such as "DEL-MUM" into its airport codes.
//
// The split is literal: no trimming, no case folding, and empty segments are
// kept. A route without the separator yields a single code and the empty
// route yields one empty code. Every code is used as a filter alternative,
// so "A-B-C" matches incidents at any of the three airports.
//
//	ParseRoute("DEL-MUM") // ["DEL", "MUM"]
//	ParseRoute("DEL")     // ["DEL"]
func ParseRoute(route string) []string {
	return strings.Split(route, RouteSeparator)
}
