package goContacts

import (
	"sync/atomic"
	"time"
)

// MetricID names one Engine counter or histogram.
type MetricID uint16

const (
	MetricRegisterSuccess MetricID = iota
	MetricRegisterDuplicate
	MetricConfirmSuccess
	MetricConfirmAlreadyVerified
	MetricConfirmFailure
	MetricVerificationResend
	MetricLoginSuccess
	MetricLoginFailure
	MetricLoginNotVerified
	MetricLoginRateLimited
	MetricPasswordRehash
	MetricLogout
	MetricRefreshSuccess
	MetricRefreshFailure
	MetricPasswordResetRequest
	MetricPasswordResetConfirmSuccess
	MetricPasswordResetConfirmFailure
	MetricAuthorizeSuccess
	MetricAuthorizeUnauthenticated
	MetricAuthorizeForbidden
	MetricCacheHit
	MetricCacheMiss
	MetricCacheError
	MetricLimiterError
	MetricDeliveryFailure
	MetricAvatarUpdated
	MetricRoleChanged
	// MetricAuthorizeLatency is the only histogram.
	MetricAuthorizeLatency
	metricIDCount
)

// latencyBounds are the inclusive upper bounds of the Authorize latency
// buckets. One overflow bucket follows the last bound.
var latencyBounds = [...]time.Duration{
	5 * time.Millisecond,
	10 * time.Millisecond,
	25 * time.Millisecond,
	50 * time.Millisecond,
	100 * time.Millisecond,
	250 * time.Millisecond,
	500 * time.Millisecond,
}

// counter sits alone on a cache line so hot counters do not share one.
type counter struct {
	atomic.Uint64
	_ [56]byte
}

// Metrics is a fixed set of lock-free counters. A nil or disabled Metrics
// ignores every update.
type Metrics struct {
	enabled       bool
	enableLatency bool
	counters      [metricIDCount]counter
	latency       [len(latencyBounds) + 1]atomic.Uint64
}

// MetricsSnapshot is a point-in-time copy of every counter. Histogram
// buckets are non-cumulative with upper bounds 5, 10, 25, 50, 100, 250 and
// 500 ms plus overflow.
type MetricsSnapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
}

func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{
		enabled:       cfg.Enabled,
		enableLatency: cfg.Enabled && cfg.EnableLatencyHistograms,
	}
}

func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= MetricAuthorizeLatency {
		return
	}
	m.counters[id].Add(1)
}

// Observe records a latency sample. Only MetricAuthorizeLatency has buckets.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if m == nil || !m.enableLatency || id != MetricAuthorizeLatency {
		return
	}
	m.latency[latencyBucket(d)].Add(1)
}

func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= MetricAuthorizeLatency {
		return 0
	}
	return m.counters[id].Load()
}

func (m *Metrics) Snapshot() MetricsSnapshot {
	s := MetricsSnapshot{
		Counters:   map[MetricID]uint64{},
		Histograms: map[MetricID][]uint64{},
	}
	if !m.Enabled() {
		return s
	}
	for id := MetricID(0); id < MetricAuthorizeLatency; id++ {
		s.Counters[id] = m.counters[id].Load()
	}
	if m.enableLatency {
		buckets := make([]uint64, len(m.latency))
		for i := range m.latency {
			buckets[i] = m.latency[i].Load()
		}
		s.Histograms[MetricAuthorizeLatency] = buckets
	}
	return s
}

func latencyBucket(d time.Duration) int {
	d = d.Truncate(time.Millisecond)
	for i, bound := range latencyBounds {
		if d <= bound {
			return i
		}
	}
	return len(latencyBounds)
}
