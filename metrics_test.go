package goOTP

import (
	"sync"
	"testing"
	"time"
)

func TestMetricsIncAndValue(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})

	for i := 0; i < 3; i++ {
		m.Inc(MetricChallengeRequested)
	}
	m.Inc(MetricChallengeVerified)

	if got := m.Value(MetricChallengeRequested); got != 3 {
		t.Fatalf("expected 3, got %d", got)
	}
	if got := m.Value(MetricChallengeVerified); got != 1 {
		t.Fatalf("expected 1, got %d", got)
	}
	if got := m.Value(MetricTokenRevoked); got != 0 {
		t.Fatalf("expected untouched counter at 0, got %d", got)
	}
}

func TestMetricsDisabledIsNoOp(t *testing.T) {
	m := NewMetrics(MetricsConfig{})

	m.Inc(MetricChallengeRequested)
	m.Observe(MetricVerifyLatency, time.Millisecond)

	if m.Enabled() {
		t.Fatal("expected disabled metrics")
	}
	if got := m.Value(MetricChallengeRequested); got != 0 {
		t.Fatalf("expected 0 on disabled metrics, got %d", got)
	}

	snapshot := m.Snapshot()
	if len(snapshot.Counters) != 0 || len(snapshot.Histograms) != 0 {
		t.Fatalf("expected empty snapshot, got %+v", snapshot)
	}

	var nilMetrics *Metrics
	nilMetrics.Inc(MetricChallengeRequested)
	if nilMetrics.Value(MetricChallengeRequested) != 0 {
		t.Fatal("nil metrics must be safe")
	}
}

func TestMetricsObserveBuckets(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true, EnableLatencyHistograms: true})

	samples := map[time.Duration]int{
		2 * time.Millisecond:   0,
		8 * time.Millisecond:   1,
		90 * time.Millisecond:  4,
		400 * time.Millisecond: 6,
		2 * time.Second:        7,
	}
	for d := range samples {
		m.Observe(MetricVerifyLatency, d)
	}

	buckets := m.Snapshot().Histograms[MetricVerifyLatency]
	if len(buckets) != histBucketCount {
		t.Fatalf("expected %d buckets, got %d", histBucketCount, len(buckets))
	}
	for _, want := range samples {
		if buckets[want] != 1 {
			t.Fatalf("expected one sample in bucket %d, got %d", want, buckets[want])
		}
	}
}

func TestMetricsLatencyRequiresOptIn(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})

	m.Observe(MetricVerifyLatency, 10*time.Millisecond)

	if m.LatencyEnabled() {
		t.Fatal("expected latency histograms off by default")
	}
	if _, ok := m.Snapshot().Histograms[MetricVerifyLatency]; ok {
		t.Fatal("expected no histogram without opt-in")
	}
}

func TestMetricsConcurrentInc(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})

	const workers = 8
	const perWorker = 1000

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				m.Inc(MetricRefreshSuccess)
			}
		}()
	}
	wg.Wait()

	if got := m.Value(MetricRefreshSuccess); got != workers*perWorker {
		t.Fatalf("expected %d, got %d", workers*perWorker, got)
	}
}
