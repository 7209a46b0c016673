// Copyright (c) 2025, the sqlitex contributors.
// SPDX-License-Identifier: MIT

package pool

import (
	"context"
	"sync"

	"github.com/wyre-dev/sqlitex"
)

// PoolConnection is a borrowed Connection. Release returns it to the
// pool's idle queue (or closes it, if it has been marked broken);
// callers that only ever call Release (typically via defer) never need
// to reason about the underlying semaphore permit directly.
type PoolConnection struct {
	pool *Pool
	pc   *pooledConn

	mu       sync.Mutex
	released bool
	broken   bool
}

// Conn exposes the underlying Connection for Execute/Fetch/Begin calls.
func (c *PoolConnection) Conn() *sqlitex.Connection {
	return c.pc.conn
}

// MarkBroken flags the connection as unfit for reuse; Release will
// close it instead of returning it to the idle queue. Call this after
// an operation surfaces an error that indicates the connection itself
// is wedged (SQLITE_IOERR, a context deadline mid-statement, a
// crashed-worker error) rather than an ordinary query-level failure.
func (c *PoolConnection) MarkBroken() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.broken = true
}

// Release returns the connection to the pool. Calling Release more
// than once is a no-op, so `defer conn.Release()` is always safe even
// if a caller also releases early on an error path.
func (c *PoolConnection) Release() {
	c.mu.Lock()
	if c.released {
		c.mu.Unlock()
		return
	}
	c.released = true
	broken := c.broken
	c.mu.Unlock()
	c.pool.release(c.pc, broken)
}

// Close marks the connection broken and releases it immediately,
// forcing the pool to close rather than reuse it. Use this when a
// caller wants to guarantee the underlying physical connection goes
// away now instead of waiting for the next reaper pass.
func (c *PoolConnection) Close(_ context.Context) {
	c.MarkBroken()
	c.Release()
}
