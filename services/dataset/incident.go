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

import "github.com/AleutianAI/FlightRisk/services/store"

// Incident converts r into a store record with the given incident type.
// The record is attributed to no user, so exports show its creator as
// unknown.
func (r Record) Incident(incidentType string) store.Incident {
	return store.Incident{
		FlightNumber: r.FlightNumber,
		DateTime:     r.DateTime.UTC(),
		Location: store.Location{
			Lat:         r.Latitude,
			Lon:         r.Longitude,
			AirportCode: r.AirportCode,
		},
		Description:  r.Description,
		Severity:     r.Severity,
		IncidentType: incidentType,
		ActionStatus: store.ActionPending,
	}
}

// Classifier names the incident type of a description.
type Classifier interface {
	Classify(text string) string
}

// Incidents converts records, classifying each description.
func Incidents(records []Record, cls Classifier) []store.Incident {
	out := make([]store.Incident, len(records))
	for i, r := range records {
		out[i] = r.Incident(cls.Classify(r.Description))
	}
	return out
}
