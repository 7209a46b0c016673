// Copyright (c) 2025, the sqlitex contributors.
// SPDX-License-Identifier: MIT

// Package pool implements a bounded SQLite connection pool: a weighted
// semaphore caps live connections, an idle queue hands back warm
// connections, and a background reaper evicts connections that have
// sat idle too long or lived too long.
package pool

import (
	"time"

	"github.com/wyre-dev/sqlitex"
)

// Options configures a Pool.
type Options struct {
	MaxConnections int
	AcquireTimeout time.Duration
	IdleTimeout    time.Duration
	MaxLifetime    time.Duration
	ConnectOptions []sqlitex.ConnectOption
}

// DefaultOptions returns conservative defaults: 10 max connections, a
// 30s acquire timeout, a 10-minute idle reap, and a 30-minute hard
// connection lifetime.
func DefaultOptions() Options {
	return Options{
		MaxConnections: 10,
		AcquireTimeout: 30 * time.Second,
		IdleTimeout:    10 * time.Minute,
		MaxLifetime:    30 * time.Minute,
	}
}

type Option func(*Options)

func WithMaxConnections(n int) Option {
	return func(o *Options) { o.MaxConnections = n }
}

func WithAcquireTimeout(d time.Duration) Option {
	return func(o *Options) { o.AcquireTimeout = d }
}

// WithIdleTimeout sets the idle reap threshold. A zero duration
// disables idle reaping entirely.
func WithIdleTimeout(d time.Duration) Option {
	return func(o *Options) { o.IdleTimeout = d }
}

// WithMaxLifetime sets the hard per-connection lifetime cap. A zero
// duration disables lifetime reaping.
func WithMaxLifetime(d time.Duration) Option {
	return func(o *Options) { o.MaxLifetime = d }
}

func WithConnectOptions(opts ...sqlitex.ConnectOption) Option {
	return func(o *Options) { o.ConnectOptions = append(o.ConnectOptions, opts...) }
}
