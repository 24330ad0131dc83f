package goOTP

import (
	"sync/atomic"
	"time"
)

// MetricID identifies a specific counter or histogram bucket in the
// in-process metrics system.
type MetricID uint16

const (
	// MetricChallengeRequested counts accepted challenge-create requests.
	MetricChallengeRequested MetricID = iota
	// MetricChallengeCooldown counts requests rejected by the resend cooldown.
	MetricChallengeCooldown
	// MetricChallengeRateLimited counts rate-limited challenge requests.
	MetricChallengeRateLimited
	// MetricQuotaExceeded counts requests rejected by the delivery budget.
	MetricQuotaExceeded
	// MetricDeliverySent counts provider-acknowledged deliveries.
	MetricDeliverySent
	// MetricDeliveryFallback counts sends served by a non-primary provider.
	MetricDeliveryFallback
	// MetricDeliveryDegraded counts soft delivery failures.
	MetricDeliveryDegraded
	// MetricChallengeVerified counts successful verifications.
	MetricChallengeVerified
	// MetricChallengeInvalid counts wrong-code submissions.
	MetricChallengeInvalid
	// MetricChallengeExpired counts submissions against expired challenges.
	MetricChallengeExpired
	// MetricChallengeExhausted counts challenges deleted by attempt exhaustion.
	MetricChallengeExhausted
	// MetricVerifyRateLimited counts rate-limited verify attempts.
	MetricVerifyRateLimited
	// MetricBypassUsed counts bypassed verification flows.
	MetricBypassUsed
	// MetricBypassIssued counts issued emergency bypass tokens.
	MetricBypassIssued
	// MetricTokenPairIssued counts minted access+refresh token pairs.
	MetricTokenPairIssued
	// MetricRefreshSuccess counts successful access-token refreshes.
	MetricRefreshSuccess
	// MetricRefreshFailure counts rejected refresh attempts.
	MetricRefreshFailure
	// MetricRefreshRateLimited counts throttled refresh attempts.
	MetricRefreshRateLimited
	// MetricTokenRevoked counts single-token revocations.
	MetricTokenRevoked
	// MetricRevokeAll counts logout-everywhere operations.
	MetricRevokeAll
	// MetricVerifyLatency is the end-to-end SubmitChallenge latency histogram.
	MetricVerifyLatency

	metricIDCount
)

const (
	histBucketCount = 8
	cacheLineSize   = 64
)

type metricHistogram struct {
	buckets [histBucketCount]uint64
}

type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Metrics holds atomic counters and an optional latency histogram.
// All operations are no-ops when disabled or on a nil receiver.
type Metrics struct {
	enabled       bool
	enableLatency bool
	counters      [metricIDCount]paddedCounter
	histograms    [metricIDCount]metricHistogram
}

// MetricsSnapshot is a point-in-time deep copy of all metrics.
type MetricsSnapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
}

// NewMetrics creates a [Metrics] instance configured by the given
// [MetricsConfig]. When Enabled is false, all operations are no-ops.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{
		enabled:       cfg.Enabled,
		enableLatency: cfg.Enabled && cfg.EnableLatencyHistograms,
	}
}

func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

func (m *Metrics) LatencyEnabled() bool {
	return m != nil && m.enableLatency
}

// Inc atomically increments the counter for id.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// Observe records a latency sample into the verify histogram.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if m == nil || !m.enabled || !m.enableLatency || id >= metricIDCount {
		return
	}
	if id != MetricVerifyLatency {
		return
	}

	b := bucketIndex(d)
	atomic.AddUint64(&m.histograms[id].buckets[b], 1)
}

// Value returns the current counter value for id.
func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

// Snapshot returns a deep copy of all counters and histograms.
func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil || !m.enabled {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}

	s := MetricsSnapshot{
		Counters:   make(map[MetricID]uint64, int(metricIDCount)),
		Histograms: make(map[MetricID][]uint64, 1),
	}

	for id := MetricID(0); id < metricIDCount; id++ {
		s.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}

	if m.enableLatency {
		buckets := make([]uint64, histBucketCount)
		for i := 0; i < histBucketCount; i++ {
			buckets[i] = atomic.LoadUint64(&m.histograms[MetricVerifyLatency].buckets[i])
		}
		s.Histograms[MetricVerifyLatency] = buckets
	}

	return s
}

func bucketIndex(d time.Duration) int {
	ms := d.Milliseconds()

	switch {
	case ms <= 5:
		return 0
	case ms <= 10:
		return 1
	case ms <= 25:
		return 2
	case ms <= 50:
		return 3
	case ms <= 100:
		return 4
	case ms <= 250:
		return 5
	case ms <= 500:
		return 6
	default:
		return 7
	}
}
