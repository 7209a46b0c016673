// Copyright (c) 2025, the sqlitex contributors.
// SPDX-License-Identifier: MIT

package pool

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds the Prometheus instruments one Pool updates as
// connections are acquired, released, opened and reaped. Each instrument
// carries a constant "path" label identifying which pool it belongs to.
type Metrics struct {
	connectionsInUse   prometheus.Gauge
	connectionsIdle    prometheus.Gauge
	connectionsOpened  prometheus.Counter
	connectionsClosed  prometheus.Counter
	reapedTotal        prometheus.Counter
	acquireTimeouts    prometheus.Counter
	acquireWaitSeconds prometheus.Histogram
}

func newMetrics(path string) *Metrics {
	labels := prometheus.Labels{"path": path}
	return &Metrics{
		connectionsInUse: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "sqlitex", Subsystem: "pool", Name: "connections_in_use",
			Help: "Connections currently checked out of the pool.", ConstLabels: labels,
		}),
		connectionsIdle: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "sqlitex", Subsystem: "pool", Name: "connections_idle",
			Help: "Connections sitting warm in the idle queue.", ConstLabels: labels,
		}),
		connectionsOpened: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "sqlitex", Subsystem: "pool", Name: "connections_opened_total",
			Help: "Physical connections dialed since pool creation.", ConstLabels: labels,
		}),
		connectionsClosed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "sqlitex", Subsystem: "pool", Name: "connections_closed_total",
			Help: "Physical connections closed since pool creation.", ConstLabels: labels,
		}),
		reapedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "sqlitex", Subsystem: "pool", Name: "connections_reaped_total",
			Help: "Connections closed by the idle/lifetime reaper.", ConstLabels: labels,
		}),
		acquireTimeouts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "sqlitex", Subsystem: "pool", Name: "acquire_timeouts_total",
			Help: "Acquire calls that gave up waiting for a permit.", ConstLabels: labels,
		}),
		acquireWaitSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "sqlitex", Subsystem: "pool", Name: "acquire_wait_seconds",
			Help: "Time spent waiting for a connection permit.", ConstLabels: labels,
			Buckets: prometheus.DefBuckets,
		}),
	}
}

// Collectors returns every instrument, for callers that want to
// registry.MustRegister(pool.Metrics().Collectors()...) themselves
// instead of this package reaching into a global registry.
func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.connectionsInUse,
		m.connectionsIdle,
		m.connectionsOpened,
		m.connectionsClosed,
		m.reapedTotal,
		m.acquireTimeouts,
		m.acquireWaitSeconds,
	}
}

// Metrics exposes the pool's Prometheus instruments for registration.
func (p *Pool) Metrics() *Metrics {
	return p.metrics
}
