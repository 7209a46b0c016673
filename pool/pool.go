// Copyright (c) 2025, the sqlitex contributors.
// SPDX-License-Identifier: MIT

package pool

import (
	"container/list"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"github.com/wyre-dev/sqlitex"
)

// Pool is a bounded pool of Connections against a single database path:
// a weighted semaphore caps live connections, an idle queue hands back
// warm connections FIFO-oldest-first so max-lifetime reaping has a
// chance to catch them, and a background reaper evicts connections that
// have sat idle too long or lived too long regardless of idle time.
type Pool struct {
	path string
	opts Options

	sem *semaphore.Weighted

	mu      sync.Mutex
	idle    *list.List // of *pooledConn, front = most recently returned
	closed  bool
	closedC chan struct{} // closed exactly once, alongside closed := true
	metrics *Metrics

	reapStop chan struct{}
	reapDone chan struct{}
}

type pooledConn struct {
	conn      *sqlitex.Connection
	createdAt time.Time
	idleSince time.Time
}

// New builds a pool against path. No connections are opened eagerly;
// Acquire opens them lazily up to MaxConnections.
func New(path string, options ...Option) *Pool {
	opts := DefaultOptions()
	for _, opt := range options {
		opt(&opts)
	}
	if opts.MaxConnections < 1 {
		opts.MaxConnections = 1
	}
	p := &Pool{
		path:     path,
		opts:     opts,
		sem:      semaphore.NewWeighted(int64(opts.MaxConnections)),
		idle:     list.New(),
		closedC:  make(chan struct{}),
		metrics:  newMetrics(path),
		reapStop: make(chan struct{}),
		reapDone: make(chan struct{}),
	}
	go p.reapLoop()
	return p
}

// Acquire waits for a permit (bounded by Options.AcquireTimeout) and
// returns a PoolConnection, reusing a warm idle connection when one
// passes its health check, or dialing a fresh one otherwise. A
// concurrent Close wakes every blocked Acquire with ErrPoolClosed
// rather than letting it time out or, worse, dial a fresh connection
// against an already-closed pool.
func (p *Pool) Acquire(ctx context.Context) (*PoolConnection, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, sqlitex.ErrPoolClosed
	}
	p.mu.Unlock()

	acquireCtx := ctx
	var cancel context.CancelFunc
	if p.opts.AcquireTimeout > 0 {
		acquireCtx, cancel = context.WithTimeout(ctx, p.opts.AcquireTimeout)
		defer cancel()
	}

	// waitCtx is cancelled either when acquireCtx itself ends or when
	// Close fires closedC, so a blocked sem.Acquire below never outlives
	// a concurrent Close.
	waitCtx, waitCancel := context.WithCancel(acquireCtx)
	defer waitCancel()
	go func() {
		select {
		case <-p.closedC:
			waitCancel()
		case <-waitCtx.Done():
		}
	}()

	start := time.Now()
	if err := p.sem.Acquire(waitCtx, 1); err != nil {
		select {
		case <-p.closedC:
			return nil, sqlitex.ErrPoolClosed
		default:
		}
		if ctx.Err() == nil {
			p.metrics.acquireTimeouts.Inc()
			return nil, sqlitex.ErrPoolTimedOut
		}
		return nil, ctx.Err()
	}
	p.metrics.acquireWaitSeconds.Observe(time.Since(start).Seconds())

	// The semaphore permit may have come from a release racing a
	// concurrent Close; re-check before touching the idle queue or
	// dialing, so a closed pool never hands out a live connection.
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		p.sem.Release(1)
		return nil, sqlitex.ErrPoolClosed
	}
	p.mu.Unlock()

	pc, err := p.takeOrDial(ctx)
	if err != nil {
		p.sem.Release(1)
		return nil, err
	}
	p.metrics.connectionsInUse.Inc()
	return &PoolConnection{pool: p, pc: pc}, nil
}

func (p *Pool) takeOrDial(ctx context.Context) (*pooledConn, error) {
	for {
		p.mu.Lock()
		oldest := p.idle.Back()
		if oldest == nil {
			p.mu.Unlock()
			break
		}
		p.idle.Remove(oldest)
		p.metrics.connectionsIdle.Dec()
		p.mu.Unlock()

		pc := oldest.Value.(*pooledConn)
		if p.opts.MaxLifetime > 0 && time.Since(pc.createdAt) > p.opts.MaxLifetime {
			p.closeReaped(pc)
			continue
		}
		if err := pc.conn.Ping(ctx); err != nil {
			p.closeReaped(pc)
			continue
		}
		return pc, nil
	}

	conn, err := sqlitex.Connect(ctx, p.path, p.opts.ConnectOptions...)
	if err != nil {
		return nil, err
	}
	p.metrics.connectionsOpened.Inc()
	return &pooledConn{conn: conn, createdAt: time.Now()}, nil
}

// release returns pc to the idle queue, or closes it outright if the
// pool has since been closed or pc was marked broken by its borrower.
func (p *Pool) release(pc *pooledConn, broken bool) {
	p.metrics.connectionsInUse.Dec()
	p.mu.Lock()
	if p.closed || broken {
		p.mu.Unlock()
		p.closeReaped(pc)
		p.sem.Release(1)
		return
	}
	pc.idleSince = time.Now()
	p.idle.PushFront(pc)
	p.metrics.connectionsIdle.Inc()
	p.mu.Unlock()
	p.sem.Release(1)
}

func (p *Pool) closeReaped(pc *pooledConn) {
	if err := pc.conn.Close(context.Background()); err != nil {
		log.Warn().Err(err).Msg("sqlitex: error closing reaped pool connection")
	}
	p.metrics.connectionsClosed.Inc()
}

func (p *Pool) reapLoop() {
	defer close(p.reapDone)
	interval := p.reapInterval()
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			p.reapOnce()
		case <-p.reapStop:
			return
		}
	}
}

func (p *Pool) reapInterval() time.Duration {
	switch {
	case p.opts.IdleTimeout > 0 && p.opts.MaxLifetime > 0:
		if p.opts.IdleTimeout < p.opts.MaxLifetime {
			return p.opts.IdleTimeout / 2
		}
		return p.opts.MaxLifetime / 2
	case p.opts.IdleTimeout > 0:
		return p.opts.IdleTimeout / 2
	case p.opts.MaxLifetime > 0:
		return p.opts.MaxLifetime / 2
	default:
		return 0
	}
}

func (p *Pool) reapOnce() {
	now := time.Now()
	var expired []*pooledConn

	p.mu.Lock()
	for e := p.idle.Back(); e != nil; {
		prev := e.Prev()
		pc := e.Value.(*pooledConn)
		expireIdle := p.opts.IdleTimeout > 0 && now.Sub(pc.idleSince) > p.opts.IdleTimeout
		expireLife := p.opts.MaxLifetime > 0 && now.Sub(pc.createdAt) > p.opts.MaxLifetime
		if expireIdle || expireLife {
			p.idle.Remove(e)
			p.metrics.connectionsIdle.Dec()
			expired = append(expired, pc)
		}
		e = prev
	}
	p.mu.Unlock()

	for _, pc := range expired {
		p.closeReaped(pc)
		p.metrics.reapedTotal.Inc()
	}
}

// Close stops the reaper and closes every idle connection. In-flight
// borrowed connections are closed as they're released rather than
// forcibly interrupted.
func (p *Pool) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.closedC)
	var toClose []*pooledConn
	for e := p.idle.Front(); e != nil; e = e.Next() {
		toClose = append(toClose, e.Value.(*pooledConn))
	}
	p.idle.Init()
	p.mu.Unlock()

	close(p.reapStop)
	<-p.reapDone

	var firstErr error
	for _, pc := range toClose {
		if err := pc.conn.Close(context.Background()); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("closing idle pool connection: %w", err)
		}
	}
	return firstErr
}

// Stats reports a point-in-time snapshot for diagnostics.
type Stats struct {
	Idle int
}

func (p *Pool) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Stats{Idle: p.idle.Len()}
}
