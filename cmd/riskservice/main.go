// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command riskservice starts the FlightRisk HTTP service.
//
// Configuration is read from the YAML file named by FLIGHTRISK_CONFIG (if
// set) and FLIGHTRISK_* environment variables.
//
// # Environment Variables
//
//   - FLIGHTRISK_SERVER_PORT: HTTP port (default: 8080)
//   - FLIGHTRISK_STORE_BACKEND: mongo, influx or memory (default: mongo)
//   - FLIGHTRISK_STORE_MONGO_URI: MongoDB URI (default: mongodb://localhost:27017)
//   - FLIGHTRISK_TELEMETRY_EXPORTER: none, stdout or otlp (default: none)
//   - FLIGHTRISK_LOG_LEVEL: debug, info, warn or error (default: info)
//
// # Usage
//
//	go build -o riskservice ./cmd/riskservice
//	FLIGHTRISK_STORE_BACKEND=memory ./riskservice
package main

import (
	"log"
	"log/slog"

	"github.com/AleutianAI/FlightRisk/pkg/logging"
	"github.com/AleutianAI/FlightRisk/services/riskservice"
)

func main() {
	cfg, err := riskservice.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := logging.New(logging.Config{
		Level:   cfg.Logging.Level,
		Format:  logging.Format(cfg.Logging.Format),
		Service: "riskservice",
		LogDir:  cfg.Logging.Dir,
	})
	if err != nil {
		log.Fatalf("Failed to set up logging: %v", err)
	}
	defer logger.Close()
	slog.SetDefault(logger.Slog())

	slog.Info("Starting riskservice",
		"port", cfg.Server.Port,
		"backend", cfg.Store.Backend,
		"auth", cfg.Auth.Enabled,
		"cache", cfg.Cache.Enabled,
	)

	svc, err := riskservice.New(cfg, nil)
	if err != nil {
		slog.Error("Failed to create risk service", "error", err)
		logger.Close()
		log.Fatalf("risk service: %v", err)
	}

	if err := svc.Run(); err != nil {
		slog.Error("Risk service stopped with error", "error", err)
		logger.Close()
		log.Fatalf("risk service: %v", err)
	}
}
