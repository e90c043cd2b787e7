// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package riskservice assembles the FlightRisk HTTP service.
//
// # Description
//
// New wires configuration into running components:
//
//  1. OpenTelemetry tracing (none, stdout or OTLP over gRPC)
//  2. Prometheus metrics on a private registry
//  3. Incident stores (MongoDB, InfluxDB or in-memory)
//  4. Reference tables and the optional Badger result cache
//  5. Keyword classifier and risk predictor
//  6. Accounts, sessions, RBAC and the expired-session sweeper
//  7. Gin router with middleware and routes
//
// # Thread Safety
//
// The Service is read-only after New returns; Run may be called once.
package riskservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/AleutianAI/FlightRisk/pkg/extensions"
	"github.com/AleutianAI/FlightRisk/services/classifier"
	"github.com/AleutianAI/FlightRisk/services/reference"
	"github.com/AleutianAI/FlightRisk/services/riskservice/auth"
	"github.com/AleutianAI/FlightRisk/services/riskservice/handlers"
	"github.com/AleutianAI/FlightRisk/services/riskservice/middleware"
	"github.com/AleutianAI/FlightRisk/services/riskservice/observability"
	"github.com/AleutianAI/FlightRisk/services/riskservice/routes"
	"github.com/AleutianAI/FlightRisk/services/risk"
	"github.com/AleutianAI/FlightRisk/services/store"
	"github.com/AleutianAI/FlightRisk/services/store/influxstore"
	"github.com/AleutianAI/FlightRisk/services/store/kvstore"
	"github.com/AleutianAI/FlightRisk/services/store/memstore"
	"github.com/AleutianAI/FlightRisk/services/store/mongostore"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"golang.org/x/time/rate"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// Service is the risk service.
type Service interface {
	// Run serves HTTP until SIGINT or SIGTERM, then drains in-flight
	// requests for Server.ShutdownTimeout and releases resources.
	Run() error

	// Router returns the configured engine, for tests.
	Router() *gin.Engine
}

// service implements Service.
//
// # Fields
//
//   - closers: Release functions run in reverse order by cleanup.
type service struct {
	config   Config
	opts     extensions.ServiceOptions
	router   *gin.Engine
	registry *prometheus.Registry
	metrics  *observability.Metrics
	logger   *slog.Logger

	aggregator risk.IncidentAggregator
	incidents  store.IncidentRepository
	users      store.UserRepository
	sessions   store.SessionRepository
	checks     map[string]handlers.HealthCheck

	predictor  *risk.Predictor
	classifier *classifier.Engine
	manager    *auth.Manager
	rbac       *auth.RBAC
	sweeper    *auth.Sweeper

	closers []func(context.Context)
}

// =============================================================================
// Constructor
// =============================================================================

// New builds a Service from validated configuration.
//
// # Inputs
//
//   - cfg: Usually from LoadConfig.
//   - opts: Extension overrides. Nil fields keep the built-in session
//     authentication, casbin RBAC and slog audit logger.
//
// # Outputs
//
//   - Service: Ready to Run.
//   - error: A store is unreachable, a reference file is unreadable, or a
//     component failed to initialize. Anything already opened is closed.
func New(cfg Config, opts *extensions.ServiceOptions) (Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := &service{
		config:   cfg,
		registry: prometheus.NewRegistry(),
		logger:   slog.Default(),
		checks:   map[string]handlers.HealthCheck{},
	}
	if opts != nil {
		s.opts = *opts
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Store.Mongo.ConnectTimeout+30*time.Second)
	defer cancel()

	steps := []struct {
		name string
		run  func(context.Context) error
	}{
		{"tracer", s.initTracer},
		{"metrics", s.initMetrics},
		{"stores", s.initStores},
		{"predictor", s.initPredictor},
		{"auth", s.initAuth},
	}
	for _, step := range steps {
		if err := step.run(ctx); err != nil {
			s.cleanup()
			return nil, fmt.Errorf("failed to initialize %s: %w", step.name, err)
		}
	}

	s.initRouter()
	return s, nil
}

// =============================================================================
// Service Interface Methods
// =============================================================================

// Run serves until a termination signal, then shuts down gracefully.
func (s *service) Run() error {
	defer s.cleanup()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if s.sweeper != nil {
		s.sweeper.Start()
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.config.Server.Port),
		Handler:           s.router,
		ReadHeaderTimeout: s.config.Server.ReadTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Starting risk service", "port", s.config.Server.Port, "backend", s.config.Store.Backend)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	slog.Info("Shutting down risk service", "timeout", s.config.Server.ShutdownTimeout)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// Router returns the underlying Gin engine for testing.
func (s *service) Router() *gin.Engine {
	return s.router
}

// =============================================================================
// Private Initialization Methods
// =============================================================================

func (s *service) onClose(fn func(context.Context)) {
	s.closers = append(s.closers, fn)
}

// initTracer installs the global tracer provider for the configured
// exporter. With "none" the otel no-op provider stays in place.
func (s *service) initTracer(ctx context.Context) error {
	var exporter sdktrace.SpanExporter
	switch s.config.Telemetry.Exporter {
	case ExporterNone:
		return nil
	case ExporterStdout:
		exp, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
		if err != nil {
			return fmt.Errorf("failed to create stdout exporter: %w", err)
		}
		exporter = exp
	case ExporterOTLP:
		conn, err := grpc.NewClient(s.config.Telemetry.OTLPEndpoint,
			grpc.WithTransportCredentials(insecure.NewCredentials()))
		if err != nil {
			return fmt.Errorf("failed to create gRPC connection: %w", err)
		}
		exp, err := otlptracegrpc.New(ctx, otlptracegrpc.WithGRPCConn(conn))
		if err != nil {
			conn.Close()
			return fmt.Errorf("failed to create trace exporter: %w", err)
		}
		exporter = exp
		s.onClose(func(context.Context) { conn.Close() })
	default:
		return fmt.Errorf("unknown trace exporter %q", s.config.Telemetry.Exporter)
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceNameKey.String(s.config.Telemetry.ServiceName)))
	if err != nil {
		return fmt.Errorf("failed to create resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithResource(res),
		sdktrace.WithSpanProcessor(sdktrace.NewBatchSpanProcessor(exporter)))

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{}, propagation.Baggage{}))

	s.onClose(func(ctx context.Context) {
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			slog.Error("failed to shutdown tracer provider", "error", err)
		}
	})
	slog.Info("Tracing enabled", "exporter", s.config.Telemetry.Exporter)
	return nil
}

func (s *service) initMetrics(context.Context) error {
	if err := s.registry.Register(collectors.NewGoCollector()); err != nil {
		return err
	}
	if err := s.registry.Register(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{})); err != nil {
		return err
	}
	s.metrics = observability.NewMetrics(s.registry)
	return nil
}

// initStores connects the configured backends.
//
// # Limitations
//
//   - MongoDB is only dialed when something needs it: the mongo backend,
//     or the application API on the influx backend.
func (s *service) initStores(ctx context.Context) error {
	cfg := s.config.Store

	if cfg.Backend == BackendMemory {
		mem := memstore.New()
		s.aggregator, s.incidents, s.users, s.sessions = mem, mem, mem, mem
		slog.Warn("Using in-memory store; data is lost on restart")
		return nil
	}

	if cfg.Backend == BackendMongo || s.config.Auth.Enabled {
		mcfg := mongostore.DefaultConfig()
		mcfg.URI = cfg.Mongo.URI
		mcfg.Database = cfg.Mongo.Database
		mcfg.ConnectTimeout = cfg.Mongo.ConnectTimeout

		mongo, err := mongostore.Connect(ctx, mcfg, s.logger)
		if err != nil {
			return err
		}
		s.onClose(func(ctx context.Context) {
			if err := mongo.Close(ctx); err != nil {
				slog.Warn("mongo disconnect error", "error", err)
			}
		})
		s.incidents, s.users, s.sessions = mongo, mongo, mongo
		s.aggregator = mongo
		s.checks["mongo"] = mongo.Ping
	}

	if cfg.Backend == BackendInflux {
		influx, err := influxstore.New(influxstore.Config{
			URL:         cfg.Influx.URL,
			Token:       cfg.Influx.Token,
			Org:         cfg.Influx.Org,
			Bucket:      cfg.Influx.Bucket,
			Measurement: cfg.Influx.Measurement,
		}, s.logger)
		if err != nil {
			return err
		}
		s.onClose(func(context.Context) { influx.Close() })
		s.aggregator = influx
		s.checks["influx"] = influx.Ping
	}

	slog.Info("Incident stores ready", "backend", cfg.Backend)
	return nil
}

func (s *service) initPredictor(ctx context.Context) error {
	tables, err := reference.Load(ctx, reference.Paths{
		Weather:     s.config.Reference.WeatherPath,
		Maintenance: s.config.Reference.MaintenancePath,
	}, s.logger)
	if err != nil {
		return err
	}

	s.classifier, err = classifier.NewEngine()
	if err != nil {
		return err
	}

	opts := []risk.Option{
		risk.WithLogger(s.logger),
		risk.WithTracer(otel.Tracer("github.com/AleutianAI/FlightRisk/services/risk")),
	}
	if s.config.Cache.Enabled {
		ccfg := kvstore.DefaultConfig(s.config.Cache.Path)
		ccfg.TTL = s.config.Cache.TTL
		ccfg.Logger = s.logger
		cache, err := kvstore.Open(ccfg)
		if err != nil {
			return err
		}
		s.onClose(func(context.Context) {
			if err := cache.Close(); err != nil {
				slog.Warn("cache close error", "error", err)
			}
		})
		opts = append(opts, risk.WithCache(cache))
		slog.Info("Result cache enabled", "path", s.config.Cache.Path, "ttl", s.config.Cache.TTL)
	}

	s.predictor = risk.NewPredictor(s.aggregator, tables, opts...)
	return nil
}

// initAuth builds accounts, RBAC and the sweeper, and bootstraps the admin.
func (s *service) initAuth(ctx context.Context) error {
	if !s.config.Auth.Enabled {
		return nil
	}

	s.manager = auth.NewManager(s.users, s.sessions,
		auth.WithSessionTTL(s.config.Auth.SessionTTL),
		auth.WithLogger(s.logger))

	var err error
	s.rbac, err = auth.NewRBAC(auth.DefaultPolicy())
	if err != nil {
		return err
	}

	s.sweeper, err = auth.NewSweeper(s.sessions, s.config.Auth.SweepSchedule, s.metrics.RecordSessionsExpired, s.logger)
	if err != nil {
		return err
	}
	s.onClose(func(context.Context) { s.sweeper.Stop() })

	if s.config.Auth.AdminEmail != "" {
		if _, err := s.manager.EnsureAdmin(ctx, s.config.Auth.AdminEmail, s.config.Auth.AdminPassword); err != nil {
			return fmt.Errorf("bootstrap admin: %w", err)
		}
	}
	return nil
}

// initRouter sets up the Gin engine, middleware and routes.
func (s *service) initRouter() {
	gin.SetMode(s.config.Server.GinMode)
	s.router = gin.New()
	s.router.Use(
		gin.Recovery(),
		otelgin.Middleware(s.config.Telemetry.ServiceName),
		middleware.RequestID(),
		middleware.RequestLogger(s.logger),
		middleware.Metrics(s.metrics),
	)

	deps := routes.Dependencies{
		Predictor:    s.predictor,
		Classifier:   s.classifier,
		Metrics:      s.metrics,
		Gatherer:     s.registry,
		HealthChecks: s.checks,
		AccountConfig: handlers.AccountConfig{
			SecureCookie:       s.config.Auth.SecureCookie,
			AllowRoleSelection: s.config.Auth.AllowRoleSelection,
		},
	}
	if rps := s.config.RateLimit.PredictRPS; rps > 0 {
		deps.PredictLimiter = rate.NewLimiter(rate.Limit(rps), s.config.RateLimit.PredictBurst)
	}
	if s.manager != nil {
		deps.Accounts = s.manager
		deps.Users = s.users
		deps.Incidents = s.incidents
		deps.AuthN = s.manager
		deps.AuthZ = s.rbac
		deps.Audit = extensions.NewSlogAuditLogger(s.logger)
	}
	if s.opts.AuthProvider != nil {
		deps.AuthN = s.opts.AuthProvider
	}
	if s.opts.AuthzProvider != nil {
		deps.AuthZ = s.opts.AuthzProvider
	}
	if s.opts.AuditLogger != nil {
		deps.Audit = s.opts.AuditLogger
	}

	routes.SetupRoutes(s.router, deps)
}

// cleanup releases resources in reverse order of acquisition.
func (s *service) cleanup() {
	ctx := context.Background()
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i](ctx)
	}
	s.closers = nil
}
