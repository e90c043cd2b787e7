// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package auth

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/AleutianAI/FlightRisk/services/store"
	"github.com/robfig/cron/v3"
)

// DefaultSweepSchedule runs the sweeper every ten minutes.
const DefaultSweepSchedule = "@every 10m"

const sweepTimeout = 30 * time.Second

// Sweeper periodically deletes expired sessions.
type Sweeper struct {
	cron     *cron.Cron
	sessions store.SessionRepository
	now      func() time.Time
	onSwept  func(int64)
	logger   *slog.Logger
}

// NewSweeper schedules sweeps. onSwept, when non-nil, receives the number of
// sessions deleted by each successful run.
func NewSweeper(sessions store.SessionRepository, schedule string, onSwept func(int64), logger *slog.Logger) (*Sweeper, error) {
	if schedule == "" {
		schedule = DefaultSweepSchedule
	}
	if logger == nil {
		logger = slog.Default()
	}
	s := &Sweeper{
		cron:     cron.New(),
		sessions: sessions,
		now:      time.Now,
		onSwept:  onSwept,
		logger:   logger,
	}
	if _, err := s.cron.AddFunc(schedule, s.run); err != nil {
		return nil, fmt.Errorf("invalid sweep schedule %q: %w", schedule, err)
	}
	return s, nil
}

// Start begins the schedule in its own goroutine.
func (s *Sweeper) Start() {
	s.cron.Start()
}

// Stop halts the schedule and waits for a running sweep to finish.
func (s *Sweeper) Stop() {
	<-s.cron.Stop().Done()
}

// SweepOnce deletes sessions expired as of now.
func (s *Sweeper) SweepOnce(ctx context.Context) (int64, error) {
	n, err := s.sessions.DeleteExpiredSessions(ctx, s.now())
	if err != nil {
		return 0, err
	}
	if s.onSwept != nil {
		s.onSwept(n)
	}
	return n, nil
}

func (s *Sweeper) run() {
	ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
	defer cancel()

	n, err := s.SweepOnce(ctx)
	if err != nil {
		s.logger.Error("session sweep failed", "error", err)
		return
	}
	if n > 0 {
		s.logger.Info("expired sessions removed", "count", n)
	}
}
