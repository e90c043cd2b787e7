// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package mongostore is the MongoDB backend for incidents, users and sessions.
//
// Record IDs are ObjectID hex strings stored as string _id values, so the
// HTTP layer never handles driver types.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/AleutianAI/FlightRisk/services/store"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Config locates the database and collections.
type Config struct {
	URI                 string
	Database            string
	IncidentsCollection string
	UsersCollection     string
	SessionsCollection  string
	ConnectTimeout      time.Duration
}

// DefaultConfig returns the local development settings.
func DefaultConfig() Config {
	return Config{
		URI:                 "mongodb://localhost:27017",
		Database:            "flight_incidents",
		IncidentsCollection: "incidents",
		UsersCollection:     "users",
		SessionsCollection:  "sessions",
		ConnectTimeout:      10 * time.Second,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.URI == "" {
		c.URI = def.URI
	}
	if c.Database == "" {
		c.Database = def.Database
	}
	if c.IncidentsCollection == "" {
		c.IncidentsCollection = def.IncidentsCollection
	}
	if c.UsersCollection == "" {
		c.UsersCollection = def.UsersCollection
	}
	if c.SessionsCollection == "" {
		c.SessionsCollection = def.SessionsCollection
	}
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = def.ConnectTimeout
	}
	return c
}

// Store implements the incident aggregation and the user, session and
// incident repositories on one client.
type Store struct {
	client    *mongo.Client
	incidents *mongo.Collection
	users     *mongo.Collection
	sessions  *mongo.Collection
	now       func() time.Time
	logger    *slog.Logger
}

// Connect dials MongoDB, pings it and ensures indexes.
//
// # Outputs
//
//   - *Store: Connected store; call Close on shutdown.
//   - error: Connection, ping or index creation failed.
func Connect(ctx context.Context, cfg Config, logger *slog.Logger) (*Store, error) {
	cfg = cfg.withDefaults()
	if logger == nil {
		logger = slog.Default()
	}

	connectCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	db := client.Database(cfg.Database)
	s := &Store{
		client:    client,
		incidents: db.Collection(cfg.IncidentsCollection),
		users:     db.Collection(cfg.UsersCollection),
		sessions:  db.Collection(cfg.SessionsCollection),
		now:       time.Now,
		logger:    logger,
	}
	if err := s.ensureIndexes(connectCtx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}

	logger.Info("mongo store connected", "database", cfg.Database)
	return s, nil
}

// Ping checks that the server is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

// Close disconnects the client.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *Store) ensureIndexes(ctx context.Context) error {
	specs := []struct {
		coll  *mongo.Collection
		model mongo.IndexModel
	}{
		{s.users, mongo.IndexModel{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true),
		}},
		{s.sessions, mongo.IndexModel{
			Keys:    bson.D{{Key: "token", Value: 1}},
			Options: options.Index().SetUnique(true),
		}},
		{s.sessions, mongo.IndexModel{
			Keys:    bson.D{{Key: "expiresAt", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0),
		}},
		{s.incidents, mongo.IndexModel{
			Keys: bson.D{
				{Key: "flightNumber", Value: 1},
				{Key: "incidentType", Value: 1},
				{Key: "location.airportCode", Value: 1},
				{Key: "dateTime", Value: 1},
			},
		}},
		{s.incidents, mongo.IndexModel{
			Keys: bson.D{{Key: "createdBy", Value: 1}, {Key: "createdAt", Value: -1}},
		}},
	}
	for _, spec := range specs {
		if _, err := spec.coll.Indexes().CreateOne(ctx, spec.model); err != nil {
			return fmt.Errorf("create index on %s: %w", spec.coll.Name(), err)
		}
	}
	return nil
}

// NewID returns a fresh ObjectID hex string.
func NewID() string {
	return primitive.NewObjectID().Hex()
}

func notFound(err error, what string) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return fmt.Errorf("%s: %w", what, store.ErrNotFound)
	}
	return fmt.Errorf("%s: %w", what, err)
}
