// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package kvstore

import (
	"context"
	"testing"
	"time"

	"github.com/AleutianAI/FlightRisk/services/risk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openInMemory(t *testing.T) *Cache {
	t.Helper()
	c, err := Open(InMemoryConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestCache_MissThenHit(t *testing.T) {
	c := openInMemory(t)
	ctx := context.Background()

	_, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	want := risk.Result{Risk: 0.42, Message: "42% chance of Turbulence in next 7 days"}
	require.NoError(t, c.Set(ctx, "k", want))

	got, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, want, got)
}

func TestCache_Purge(t *testing.T) {
	c := openInMemory(t)
	ctx := context.Background()
	require.NoError(t, c.Set(ctx, "a", risk.Result{Risk: 0.1}))

	require.NoError(t, c.Purge())

	_, ok, err := c.Get(ctx, "a")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCache_CancelledContext(t *testing.T) {
	c := openInMemory(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.Error(t, c.Set(ctx, "a", risk.Result{}))
	_, _, err := c.Get(ctx, "a")
	assert.Error(t, err)
}

func TestOpen_PersistentRequiresPath(t *testing.T) {
	_, err := Open(Config{})
	assert.Error(t, err)
}

func TestOpen_RejectsBadRatio(t *testing.T) {
	_, err := Open(Config{InMemory: true, GCDiscardRatio: 2})
	assert.Error(t, err)
}

func TestOpen_PersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfig(dir)
	cfg.GCInterval = time.Hour

	c, err := Open(cfg)
	require.NoError(t, err)
	require.NoError(t, c.Set(context.Background(), "k", risk.Result{Risk: 0.3, Message: "m"}))
	require.NoError(t, c.Close())

	c2, err := Open(cfg)
	require.NoError(t, err)
	defer c2.Close()

	got, ok, err := c2.Get(context.Background(), "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 0.3, got.Risk)
}
