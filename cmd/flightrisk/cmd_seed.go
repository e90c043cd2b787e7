// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/AleutianAI/FlightRisk/pkg/ux"
	"github.com/AleutianAI/FlightRisk/services/classifier"
	"github.com/AleutianAI/FlightRisk/services/dataset"
	"github.com/AleutianAI/FlightRisk/services/store"
	"github.com/AleutianAI/FlightRisk/services/store/influxstore"
	"github.com/AleutianAI/FlightRisk/services/store/mongostore"
	"github.com/spf13/cobra"
)

type seedOptions struct {
	csvPath string
	backend string
	timeout time.Duration

	mongoURI      string
	mongoDatabase string

	influxURL    string
	influxToken  string
	influxOrg    string
	influxBucket string
}

// incidentSink stores a batch of incidents and reports how many were written.
type incidentSink interface {
	store(ctx context.Context, incs []store.Incident) (int, error)
	close(ctx context.Context)
}

type mongoSink struct{ s *mongostore.Store }

func (m mongoSink) store(ctx context.Context, incs []store.Incident) (int, error) {
	return m.s.InsertIncidents(ctx, incs)
}

func (m mongoSink) close(ctx context.Context) {
	if err := m.s.Close(ctx); err != nil {
		slog.Warn("mongo disconnect error", "error", err)
	}
}

type influxSink struct{ s *influxstore.Store }

func (i influxSink) store(ctx context.Context, incs []store.Incident) (int, error) {
	return i.s.WriteIncidents(ctx, incs)
}

func (i influxSink) close(context.Context) { i.s.Close() }

func newSeedCmd(root *rootOptions) *cobra.Command {
	opts := &seedOptions{}

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Classify a generated incident CSV and load it into a store",
		Long: `seed reads a CSV written by "flightrisk generate", classifies every
description with the keyword classifier and stores the incidents in
MongoDB (the incidents collection) or InfluxDB (one point per incident).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
			defer cancel()

			sink, err := openSink(ctx, opts)
			if err != nil {
				return err
			}
			defer sink.close(context.Background())
			return runSeed(ctx, cmd, root, opts, sink)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.csvPath, "csv", "incidents.csv", "input CSV from flightrisk generate")
	f.StringVar(&opts.backend, "backend", "mongo", "target store: mongo or influx")
	f.DurationVar(&opts.timeout, "timeout", 2*time.Minute, "overall deadline")
	f.StringVar(&opts.mongoURI, "mongo-uri", envOr("FLIGHTRISK_STORE_MONGO_URI", mongostore.DefaultConfig().URI), "MongoDB connection URI")
	f.StringVar(&opts.mongoDatabase, "mongo-db", envOr("FLIGHTRISK_STORE_MONGO_DATABASE", mongostore.DefaultConfig().Database), "MongoDB database")
	f.StringVar(&opts.influxURL, "influx-url", envOr("FLIGHTRISK_STORE_INFLUX_URL", "http://localhost:8086"), "InfluxDB URL")
	f.StringVar(&opts.influxToken, "influx-token", os.Getenv("FLIGHTRISK_STORE_INFLUX_TOKEN"), "InfluxDB API token")
	f.StringVar(&opts.influxOrg, "influx-org", os.Getenv("FLIGHTRISK_STORE_INFLUX_ORG"), "InfluxDB organization")
	f.StringVar(&opts.influxBucket, "influx-bucket", os.Getenv("FLIGHTRISK_STORE_INFLUX_BUCKET"), "InfluxDB bucket")
	return cmd
}

func openSink(ctx context.Context, opts *seedOptions) (incidentSink, error) {
	switch opts.backend {
	case "mongo":
		cfg := mongostore.DefaultConfig()
		cfg.URI = opts.mongoURI
		cfg.Database = opts.mongoDatabase
		s, err := mongostore.Connect(ctx, cfg, slog.Default())
		if err != nil {
			return nil, err
		}
		return mongoSink{s}, nil
	case "influx":
		s, err := influxstore.New(influxstore.Config{
			URL:    opts.influxURL,
			Token:  opts.influxToken,
			Org:    opts.influxOrg,
			Bucket: opts.influxBucket,
		}, slog.Default())
		if err != nil {
			return nil, err
		}
		return influxSink{s}, nil
	default:
		return nil, fmt.Errorf("unknown backend %q (allowed: mongo, influx)", opts.backend)
	}
}

func runSeed(ctx context.Context, cmd *cobra.Command, root *rootOptions, opts *seedOptions, sink incidentSink) error {
	f, err := os.Open(opts.csvPath)
	if err != nil {
		return err
	}
	defer f.Close()

	records, err := dataset.ReadCSV(f)
	if err != nil {
		return fmt.Errorf("read %s: %w", opts.csvPath, err)
	}

	engine, err := classifier.NewEngine()
	if err != nil {
		return err
	}
	incidents := dataset.Incidents(records, engine)

	n, err := sink.store(ctx, incidents)
	if err != nil {
		return fmt.Errorf("seed %s: %w", opts.backend, err)
	}

	byType := map[string]int{}
	for _, inc := range incidents {
		byType[inc.IncidentType]++
	}
	fields := []ux.Field{{Label: "Backend", Value: opts.backend}}
	for _, category := range engine.Categories() {
		fields = append(fields, ux.Field{Label: category, Value: strconv.Itoa(byType[category])})
	}

	p := root.printer(cmd)
	p.Success(fmt.Sprintf("seeded %d incidents", n))
	p.Box("Incidents by type", fields...)
	return nil
}
