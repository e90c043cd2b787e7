// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package mongostore

import (
	"context"
	"fmt"
	"time"

	"github.com/AleutianAI/FlightRisk/services/risk"
	"github.com/AleutianAI/FlightRisk/services/store"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// =============================================================================
// Aggregation
// =============================================================================

// DailyCountsPipeline builds the aggregation for risk.IncidentAggregator.
//
// Incidents are matched on exact flight number and incident type with the
// airport code in the route's codes, grouped by the UTC calendar day of
// dateTime, and sorted ascending.
func DailyCountsPipeline(f risk.Filter) mongo.Pipeline {
	codes := f.AirportCodes
	if codes == nil {
		codes = []string{}
	}
	return mongo.Pipeline{
		{{Key: "$match", Value: bson.D{
			{Key: "flightNumber", Value: f.FlightNumber},
			{Key: "incidentType", Value: f.IncidentType},
			{Key: "location.airportCode", Value: bson.D{{Key: "$in", Value: codes}}},
		}}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: bson.D{
				{Key: "year", Value: bson.D{{Key: "$year", Value: "$dateTime"}}},
				{Key: "month", Value: bson.D{{Key: "$month", Value: "$dateTime"}}},
				{Key: "day", Value: bson.D{{Key: "$dayOfMonth", Value: "$dateTime"}}},
			}},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
		{{Key: "$sort", Value: bson.D{
			{Key: "_id.year", Value: 1},
			{Key: "_id.month", Value: 1},
			{Key: "_id.day", Value: 1},
		}}},
	}
}

type dailyBucket struct {
	ID struct {
		Year  int `bson:"year"`
		Month int `bson:"month"`
		Day   int `bson:"day"`
	} `bson:"_id"`
	Count int `bson:"count"`
}

func (b dailyBucket) toDailyCount() risk.DailyCount {
	return risk.DailyCount{
		Date:  time.Date(b.ID.Year, time.Month(b.ID.Month), b.ID.Day, 0, 0, 0, 0, time.UTC),
		Count: b.Count,
	}
}

// DailyCounts implements risk.IncidentAggregator.
func (s *Store) DailyCounts(ctx context.Context, f risk.Filter) ([]risk.DailyCount, error) {
	cur, err := s.incidents.Aggregate(ctx, DailyCountsPipeline(f))
	if err != nil {
		return nil, fmt.Errorf("aggregate incidents: %w", err)
	}
	defer cur.Close(ctx)

	var counts []risk.DailyCount
	for cur.Next(ctx) {
		var b dailyBucket
		if err := cur.Decode(&b); err != nil {
			return nil, fmt.Errorf("decode daily bucket: %w", err)
		}
		counts = append(counts, b.toDailyCount())
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("iterate daily buckets: %w", err)
	}
	return counts, nil
}

// =============================================================================
// Incident repository
// =============================================================================

// prepareIncident fills generated fields on a new incident.
func prepareIncident(inc store.Incident, now time.Time) store.Incident {
	if inc.ID == "" {
		inc.ID = NewID()
	}
	if inc.CreatedAt.IsZero() {
		inc.CreatedAt = now.UTC()
	}
	if inc.ActionStatus == "" {
		inc.ActionStatus = store.ActionPending
	}
	if inc.Comments == nil {
		inc.Comments = []store.Comment{}
	}
	return inc
}

// CreateIncident inserts an incident and returns it with generated fields set.
func (s *Store) CreateIncident(ctx context.Context, inc store.Incident) (store.Incident, error) {
	inc = prepareIncident(inc, s.now())
	if _, err := s.incidents.InsertOne(ctx, inc); err != nil {
		return store.Incident{}, fmt.Errorf("insert incident: %w", err)
	}
	return inc, nil
}

// InsertIncidents bulk-loads incidents, used by dataset seeding.
func (s *Store) InsertIncidents(ctx context.Context, incs []store.Incident) (int, error) {
	if len(incs) == 0 {
		return 0, nil
	}
	docs := make([]any, len(incs))
	now := s.now()
	for i, inc := range incs {
		docs[i] = prepareIncident(inc, now)
	}
	res, err := s.incidents.InsertMany(ctx, docs, options.InsertMany().SetOrdered(false))
	if err != nil {
		inserted := 0
		if res != nil {
			inserted = len(res.InsertedIDs)
		}
		return inserted, fmt.Errorf("insert incidents: %w", err)
	}
	return len(res.InsertedIDs), nil
}

// ListIncidents returns incidents newest first.
func (s *Store) ListIncidents(ctx context.Context, q store.IncidentQuery) ([]store.Incident, error) {
	filter := bson.D{}
	if q.CreatedBy != "" {
		filter = append(filter, bson.E{Key: "createdBy", Value: q.CreatedBy})
	}

	cur, err := s.incidents.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("find incidents: %w", err)
	}
	incidents := []store.Incident{}
	if err := cur.All(ctx, &incidents); err != nil {
		return nil, fmt.Errorf("decode incidents: %w", err)
	}
	return incidents, nil
}

// AddComment appends a comment and returns the updated incident.
func (s *Store) AddComment(ctx context.Context, incidentID string, c store.Comment) (store.Incident, error) {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = s.now().UTC()
	}
	return s.updateIncident(ctx, incidentID, bson.D{{Key: "$push", Value: bson.D{{Key: "comments", Value: c}}}})
}

// SetIncidentField sets one workflow field and returns the updated incident.
func (s *Store) SetIncidentField(ctx context.Context, incidentID string, field store.IncidentField, value string) (store.Incident, error) {
	switch field {
	case store.FieldSuggestedAction, store.FieldAssignedAction, store.FieldActionStatus:
	default:
		return store.Incident{}, fmt.Errorf("field %q is not updatable", field)
	}
	return s.updateIncident(ctx, incidentID, bson.D{{Key: "$set", Value: bson.D{{Key: string(field), Value: value}}}})
}

func (s *Store) updateIncident(ctx context.Context, id string, update bson.D) (store.Incident, error) {
	var inc store.Incident
	err := s.incidents.FindOneAndUpdate(ctx,
		bson.D{{Key: "_id", Value: id}},
		update,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&inc)
	if err != nil {
		return store.Incident{}, notFound(err, "update incident "+id)
	}
	return inc, nil
}

var (
	_ risk.IncidentAggregator  = (*Store)(nil)
	_ store.IncidentRepository = (*Store)(nil)
)
