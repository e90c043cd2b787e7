// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package riskservice

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/ilyakaznacheev/cleanenv"
)

// ConfigPathEnv names the optional YAML file read by LoadConfig.
const ConfigPathEnv = "FLIGHTRISK_CONFIG"

// Store backends for incident aggregation.
const (
	BackendMongo  = "mongo"
	BackendInflux = "influx"
	BackendMemory = "memory"
)

// Trace exporters.
const (
	ExporterNone   = "none"
	ExporterStdout = "stdout"
	ExporterOTLP   = "otlp"
)

// =============================================================================
// Configuration
// =============================================================================

// Config holds risk service configuration.
//
// # Description
//
// Values come from an optional YAML file (FLIGHTRISK_CONFIG), then
// FLIGHTRISK_* environment variables, then env-default tags. The zero
// Config is not valid; use LoadConfig.
//
// # Examples
//
//	server:
//	  port: 8080
//	store:
//	  backend: influx
//	  influx:
//	    url: http://localhost:8086
//	    token: dev-token
//	    org: flightrisk
//	    bucket: incidents
type Config struct {
	Server    ServerConfig    `yaml:"server"    env-prefix:"FLIGHTRISK_SERVER_"`
	Store     StoreConfig     `yaml:"store"     env-prefix:"FLIGHTRISK_STORE_"`
	Reference ReferenceConfig `yaml:"reference" env-prefix:"FLIGHTRISK_REFERENCE_"`
	Cache     CacheConfig     `yaml:"cache"     env-prefix:"FLIGHTRISK_CACHE_"`
	Auth      AuthConfig      `yaml:"auth"      env-prefix:"FLIGHTRISK_AUTH_"`
	Telemetry TelemetryConfig `yaml:"telemetry" env-prefix:"FLIGHTRISK_TELEMETRY_"`
	Logging   LoggingConfig   `yaml:"logging"   env-prefix:"FLIGHTRISK_LOG_"`
	RateLimit RateLimitConfig `yaml:"rate_limit" env-prefix:"FLIGHTRISK_RATE_LIMIT_"`
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Port            int           `yaml:"port"             env:"PORT"             env-default:"8080" validate:"min=1,max=65535"`
	GinMode         string        `yaml:"gin_mode"         env:"GIN_MODE"         env-default:"release" validate:"oneof=debug release test"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT" env-default:"10s" validate:"gt=0"`
	ReadTimeout     time.Duration `yaml:"read_timeout"     env:"READ_TIMEOUT"     env-default:"15s" validate:"gt=0"`
}

// StoreConfig selects and configures the incident stores.
//
// With the mongo and influx backends, users, sessions and incidents live in
// MongoDB and Backend only picks the source of daily incident counts. The
// memory backend keeps everything in process and loses it on restart.
type StoreConfig struct {
	Backend string       `yaml:"backend" env:"BACKEND" env-default:"mongo" validate:"oneof=mongo influx memory"`
	Mongo   MongoConfig  `yaml:"mongo"   env-prefix:"MONGO_"`
	Influx  InfluxConfig `yaml:"influx"  env-prefix:"INFLUX_"`
}

// MongoConfig locates the MongoDB database.
type MongoConfig struct {
	URI            string        `yaml:"uri"             env:"URI"             env-default:"mongodb://localhost:27017"`
	Database       string        `yaml:"database"        env:"DATABASE"        env-default:"flight_incidents"`
	ConnectTimeout time.Duration `yaml:"connect_timeout" env:"CONNECT_TIMEOUT" env-default:"10s"`
}

// InfluxConfig locates the InfluxDB bucket. Required when Backend is influx.
type InfluxConfig struct {
	URL         string `yaml:"url"         env:"URL"`
	Token       string `yaml:"token"       env:"TOKEN"`
	Org         string `yaml:"org"         env:"ORG"`
	Bucket      string `yaml:"bucket"      env:"BUCKET"`
	Measurement string `yaml:"measurement" env:"MEASUREMENT" env-default:"incidents"`
}

// ReferenceConfig locates the weather and maintenance CSV tables. An empty
// path leaves that table empty, so every lookup falls back to defaults.
type ReferenceConfig struct {
	WeatherPath     string `yaml:"weather_path"     env:"WEATHER_PATH"     env-default:"data/weather_data.csv"`
	MaintenancePath string `yaml:"maintenance_path" env:"MAINTENANCE_PATH" env-default:"data/maintenance_data.csv"`
}

// CacheConfig enables the Badger result cache. Off by default.
type CacheConfig struct {
	Enabled bool          `yaml:"enabled"  env:"ENABLED"  env-default:"false"`
	Path    string        `yaml:"path"     env:"PATH"     env-default:"./data/cache"`
	TTL     time.Duration `yaml:"ttl"      env:"TTL"      env-default:"1h" validate:"gt=0"`
}

// AuthConfig controls sessions and the application API.
type AuthConfig struct {
	// Enabled mounts /api. It requires the Mongo connection.
	Enabled            bool          `yaml:"enabled"              env:"ENABLED"              env-default:"true"`
	SessionTTL         time.Duration `yaml:"session_ttl"          env:"SESSION_TTL"          env-default:"1h" validate:"gt=0"`
	SweepSchedule      string        `yaml:"sweep_schedule"       env:"SWEEP_SCHEDULE"       env-default:"@every 10m"`
	SecureCookie       bool          `yaml:"secure_cookie"        env:"SECURE_COOKIE"        env-default:"false"`
	AllowRoleSelection bool          `yaml:"allow_role_selection" env:"ALLOW_ROLE_SELECTION" env-default:"false"`

	// AdminEmail and AdminPassword create an admin account at startup when
	// no account with that email exists.
	AdminEmail    string `yaml:"admin_email"    env:"ADMIN_EMAIL"    validate:"omitempty,email"`
	AdminPassword string `yaml:"admin_password" env:"ADMIN_PASSWORD"`
}

// TelemetryConfig selects the trace exporter.
type TelemetryConfig struct {
	Exporter     string `yaml:"exporter"      env:"EXPORTER"      env-default:"none" validate:"oneof=none stdout otlp"`
	OTLPEndpoint string `yaml:"otlp_endpoint" env:"OTLP_ENDPOINT" env-default:"localhost:4317"`
	ServiceName  string `yaml:"service_name"  env:"SERVICE_NAME"  env-default:"flightrisk-riskservice"`
}

// LoggingConfig is passed to pkg/logging.
type LoggingConfig struct {
	Level  string `yaml:"level"  env:"LEVEL"  env-default:"info" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" env:"FORMAT" env-default:"json" validate:"oneof=json text pretty"`
	Dir    string `yaml:"dir"    env:"DIR"`
}

// RateLimitConfig throttles the prediction endpoints. Zero RPS disables it.
type RateLimitConfig struct {
	PredictRPS   float64 `yaml:"predict_rps"   env:"PREDICT_RPS"   env-default:"0" validate:"gte=0"`
	PredictBurst int     `yaml:"predict_burst" env:"PREDICT_BURST" env-default:"10" validate:"gte=1"`
}

// =============================================================================
// Loading
// =============================================================================

// LoadConfig reads configuration from FLIGHTRISK_CONFIG (if set) and the
// environment, then validates it.
func LoadConfig() (Config, error) {
	var cfg Config
	if path := os.Getenv(ConfigPathEnv); path != "" {
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	} else if err := cleanenv.ReadEnv(&cfg); err != nil {
		return Config{}, fmt.Errorf("read environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks field constraints and cross-field requirements.
func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	var errs []error
	if c.Store.Backend == BackendInflux {
		in := c.Store.Influx
		if in.URL == "" || in.Token == "" || in.Org == "" || in.Bucket == "" {
			errs = append(errs, errors.New("store.influx url, token, org and bucket are required for the influx backend"))
		}
	}
	if (c.Auth.AdminEmail == "") != (c.Auth.AdminPassword == "") {
		errs = append(errs, errors.New("auth.admin_email and auth.admin_password must be set together"))
	}
	if c.Cache.Enabled && c.Cache.Path == "" {
		errs = append(errs, errors.New("cache.path is required when the cache is enabled"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}
