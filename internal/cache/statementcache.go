// Copyright (c) 2025, the sqlitex contributors.
// SPDX-License-Identifier: MIT

// Package cache holds the per-connection prepared-statement LRU.
package cache

import (
	"context"
	"sync"

	"github.com/cespare/xxhash/v2"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog/log"

	"github.com/wyre-dev/sqlitex/internal/driver"
)

// DefaultCapacity is the per-connection statement cache size.
const DefaultCapacity = 1024

// StatementCache is an LRU keyed by SQL text, caching prepared
// CompoundStatements per connection. Eviction finalizes the evicted
// statement's inner prepared handles; a hit resets the statement before
// handing it back so leftover bindings from a prior execution never
// leak into the next one.
type StatementCache struct {
	mu       sync.Mutex
	handle   *driver.Handle
	inner    *lru.Cache[string, *driver.CompoundStatement]
	hits     uint64
	misses   uint64
}

// New builds a cache bound to handle with the given capacity (0 uses
// DefaultCapacity). Eviction callbacks close the evicted statement;
// eviction-time close errors are logged, not returned, since the
// caller that triggered the eviction (an unrelated Get/Insert for a
// different key) has no reasonable way to act on a finalize failure for
// a statement it never asked to touch.
func New(handle *driver.Handle, capacity int) (*StatementCache, error) {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	c := &StatementCache{handle: handle}
	inner, err := lru.NewWithEvict[string, *driver.CompoundStatement](capacity, c.onEvict)
	if err != nil {
		return nil, err
	}
	c.inner = inner
	return c, nil
}

func (c *StatementCache) onEvict(key string, stmt *driver.CompoundStatement) {
	if err := stmt.Close(); err != nil {
		log.Warn().Err(err).Uint64("fingerprint", Fingerprint(key)).Msg("sqlitex: error finalizing evicted statement")
	}
}

// Fingerprint hashes SQL text into a bounded-cardinality label suitable
// for a metrics dimension, since the raw SQL text itself would blow up
// Prometheus label cardinality.
func Fingerprint(sql string) uint64 {
	return xxhash.Sum64String(sql)
}

// Get returns a ready-to-bind CompoundStatement for sql: on a cache
// hit the existing statement is reset and returned; on a miss a new one
// is prepared (lazily, via driver.NewCompoundStatement, which does not
// itself touch the engine until its first inner statement is prepared)
// and inserted, evicting the least-recently-used entry first if the
// cache is at capacity.
func (c *StatementCache) Get(ctx context.Context, sql string) (*driver.CompoundStatement, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if stmt, ok := c.inner.Get(sql); ok {
		c.hits++
		if err := stmt.Reset(ctx); err != nil {
			return nil, err
		}
		return stmt, nil
	}

	c.misses++
	stmt, err := driver.NewCompoundStatement(c.handle, sql)
	if err != nil {
		return nil, err
	}
	c.inner.Add(sql, stmt)
	return stmt, nil
}

// Len reports the number of cached statements.
func (c *StatementCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inner.Len()
}

// Stats returns cumulative hit/miss counters.
func (c *StatementCache) Stats() (hits, misses uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}

// Clear evicts every cached statement, finalizing each one.
func (c *StatementCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.inner.Purge()
}
