package authgate

import "sync/atomic"

// MetricID identifies one in-process counter.
type MetricID uint16

const (
	// MetricSignInSuccess counts completed sign-ins.
	MetricSignInSuccess MetricID = iota
	// MetricSignInFailure counts rejected or failed sign-ins.
	MetricSignInFailure
	// MetricSignInRateLimited counts sign-ins refused by the throttle.
	MetricSignInRateLimited
	// MetricCSRFIssued counts anti-forgery tokens handed out.
	MetricCSRFIssued
	// MetricCSRFRejected counts failed double-submit checks.
	MetricCSRFRejected
	// MetricSessionCreated counts sessions materialized at sign-in.
	MetricSessionCreated
	// MetricSessionRefreshed counts sliding renewals.
	MetricSessionRefreshed
	// MetricSessionExpired counts sessions found expired at read time.
	MetricSessionExpired
	// MetricSignOut counts sign-outs.
	MetricSignOut
	// MetricProvidersListed counts provider listing requests.
	MetricProvidersListed
	// MetricOAuthRedirect counts authorization redirects issued.
	MetricOAuthRedirect
	// MetricOAuthCallbackFailure counts failed OAuth return legs.
	MetricOAuthCallbackFailure

	metricIDCount
)

// Metrics holds atomic counters. When disabled, all operations are no-ops.
type Metrics struct {
	enabled  bool
	counters [metricIDCount]atomic.Uint64
}

// MetricsSnapshot is a point-in-time deep copy of all counters.
type MetricsSnapshot struct {
	Counters map[MetricID]uint64
}

// NewMetrics creates a [Metrics] instance configured by cfg.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{enabled: cfg.Enabled}
}

// Inc increments the counter for id.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	m.counters[id].Add(1)
}

// Get returns the current value of one counter.
func (m *Metrics) Get(id MetricID) uint64 {
	if m == nil || !m.enabled || id >= metricIDCount {
		return 0
	}
	return m.counters[id].Load()
}

// Snapshot copies every counter. Disabled metrics yield an empty map.
func (m *Metrics) Snapshot() MetricsSnapshot {
	snap := MetricsSnapshot{Counters: map[MetricID]uint64{}}
	if m == nil || !m.enabled {
		return snap
	}
	for id := MetricID(0); id < metricIDCount; id++ {
		snap.Counters[id] = m.counters[id].Load()
	}
	return snap
}
