// Copyright (c) 2025, the sqlitex contributors.
// SPDX-License-Identifier: MIT

package cache

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wyre-dev/sqlitex/internal/driver"
)

func openMemoryHandle(t *testing.T) *driver.Handle {
	t.Helper()
	h, err := driver.Open(context.Background(), "file::memory:", nil)
	require.NoError(t, err)
	t.Cleanup(h.Close)
	return h
}

func TestStatementCacheHitResetsAndMisses(t *testing.T) {
	h := openMemoryHandle(t)
	sc, err := New(h, 4)
	require.NoError(t, err)
	ctx := context.Background()

	_, err = sc.Get(ctx, "SELECT 1")
	require.NoError(t, err)
	hits, misses := sc.Stats()
	assert.Equal(t, uint64(0), hits)
	assert.Equal(t, uint64(1), misses)

	_, err = sc.Get(ctx, "SELECT 1")
	require.NoError(t, err)
	hits, misses = sc.Stats()
	assert.Equal(t, uint64(1), hits)
	assert.Equal(t, uint64(1), misses)
}

func TestStatementCacheEvictsLRU(t *testing.T) {
	h := openMemoryHandle(t)
	sc, err := New(h, 2)
	require.NoError(t, err)
	ctx := context.Background()

	_, err = sc.Get(ctx, "SELECT 1")
	require.NoError(t, err)
	_, err = sc.Get(ctx, "SELECT 2")
	require.NoError(t, err)
	assert.Equal(t, 2, sc.Len())

	_, err = sc.Get(ctx, "SELECT 3")
	require.NoError(t, err)
	assert.Equal(t, 2, sc.Len(), "cache should stay at capacity, evicting LRU entry")
}

func TestStatementCacheClear(t *testing.T) {
	h := openMemoryHandle(t)
	sc, err := New(h, 4)
	require.NoError(t, err)
	_, err = sc.Get(context.Background(), "SELECT 1")
	require.NoError(t, err)
	sc.Clear()
	assert.Equal(t, 0, sc.Len())
}

func TestFingerprintIsStableAndBoundedCardinality(t *testing.T) {
	a := Fingerprint("SELECT 1")
	b := Fingerprint("SELECT 1")
	c := Fingerprint("SELECT 2")
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}
