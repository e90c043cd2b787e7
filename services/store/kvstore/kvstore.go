// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package kvstore is an embedded BadgerDB cache for risk results.
//
// Entries expire through Badger's per-key TTL. A background runner reclaims
// value log space for on-disk databases.
//
// License: BadgerDB is Apache 2.0 licensed (github.com/dgraph-io/badger).
package kvstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/AleutianAI/FlightRisk/services/risk"
	"github.com/dgraph-io/badger/v4"
)

const keyPrefix = "risk/"

// Config holds cache settings.
type Config struct {
	// Path is the database directory. Ignored when InMemory is true.
	Path string

	InMemory bool

	// TTL bounds how long a cached result is served. Default: 1 hour.
	TTL time.Duration

	// GCInterval is how often value log GC runs. Zero disables it.
	GCInterval time.Duration

	// GCDiscardRatio is the garbage ratio that triggers a rewrite.
	GCDiscardRatio float64

	Logger *slog.Logger
}

// DefaultConfig returns on-disk defaults.
func DefaultConfig(path string) Config {
	return Config{
		Path:           path,
		TTL:            time.Hour,
		GCInterval:     5 * time.Minute,
		GCDiscardRatio: 0.5,
	}
}

// InMemoryConfig returns a cache with no disk I/O, used in tests.
func InMemoryConfig() Config {
	return Config{InMemory: true, TTL: time.Hour}
}

// slogAdapter routes Badger's internal logging to slog.
type slogAdapter struct {
	logger *slog.Logger
}

func (l slogAdapter) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l slogAdapter) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l slogAdapter) Infof(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

func (l slogAdapter) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

// Cache implements risk.ResultCache on BadgerDB.
//
// # Thread Safety
//
// Safe for concurrent use.
type Cache struct {
	db     *badger.DB
	ttl    time.Duration
	stopGC chan struct{}
	gcDone chan struct{}
	logger *slog.Logger
}

// Open opens the cache database and starts value log GC when configured.
//
// # Outputs
//
//   - *Cache: Open cache; call Close when done.
//   - error: Path missing for a persistent cache, or Badger failed to open.
func Open(cfg Config) (*Cache, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("path is required for persistent cache")
	}
	if cfg.GCDiscardRatio < 0 || cfg.GCDiscardRatio > 1 {
		return nil, errors.New("gc discard ratio must be between 0 and 1")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0750); err != nil {
			return nil, fmt.Errorf("create cache directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithNumVersionsToKeep(1)
	if cfg.Logger != nil {
		opts = opts.WithLogger(slogAdapter{logger: cfg.Logger})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger cache: %w", err)
	}

	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	c := &Cache{db: db, ttl: ttl, logger: logger}

	if cfg.GCInterval > 0 && !cfg.InMemory {
		c.stopGC = make(chan struct{})
		c.gcDone = make(chan struct{})
		go c.runGC(cfg.GCInterval, cfg.GCDiscardRatio)
	}
	return c, nil
}

func (c *Cache) runGC(interval time.Duration, ratio float64) {
	defer close(c.gcDone)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopGC:
			return
		case <-ticker.C:
			// ErrNoRewrite means nothing was worth collecting.
			if err := c.db.RunValueLogGC(ratio); err != nil && !errors.Is(err, badger.ErrNoRewrite) {
				c.logger.Warn("badger value log GC error", slog.String("error", err.Error()))
			}
		}
	}
}

// Get returns the cached result for key. A miss is (Result{}, false, nil).
func (c *Cache) Get(ctx context.Context, key string) (risk.Result, bool, error) {
	if err := ctx.Err(); err != nil {
		return risk.Result{}, false, err
	}

	var res risk.Result
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(keyPrefix + key))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &res)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return risk.Result{}, false, nil
	}
	if err != nil {
		return risk.Result{}, false, fmt.Errorf("cache get: %w", err)
	}
	return res, true, nil
}

// Set stores a result under key for the configured TTL.
func (c *Cache) Set(ctx context.Context, key string, res risk.Result) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	val, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("cache encode: %w", err)
	}
	err = c.db.Update(func(txn *badger.Txn) error {
		return txn.SetEntry(badger.NewEntry([]byte(keyPrefix+key), val).WithTTL(c.ttl))
	})
	if err != nil {
		return fmt.Errorf("cache set: %w", err)
	}
	return nil
}

// Purge drops every cached result, used after reseeding incidents.
func (c *Cache) Purge() error {
	return c.db.DropPrefix([]byte(keyPrefix))
}

// Close stops GC and closes the database.
func (c *Cache) Close() error {
	if c.stopGC != nil {
		close(c.stopGC)
		<-c.gcDone
		c.stopGC = nil
	}
	return c.db.Close()
}

var _ risk.ResultCache = (*Cache)(nil)
