package prometheus

import (
	"net/http/httptest"
	"strings"
	"testing"

	goOTP "github.com/MrEthical07/goOTP"
)

type fakeSource struct {
	snapshot goOTP.MetricsSnapshot
	dropped  uint64
}

func (f *fakeSource) MetricsSnapshot() goOTP.MetricsSnapshot { return f.snapshot }
func (f *fakeSource) AuditDropped() uint64                   { return f.dropped }

func TestRenderEmptyWhenIdle(t *testing.T) {
	exporter := NewPrometheusExporterFromSource(&fakeSource{
		snapshot: goOTP.MetricsSnapshot{
			Counters:   map[goOTP.MetricID]uint64{},
			Histograms: map[goOTP.MetricID][]uint64{},
		},
	})

	if got := exporter.Render(); got != "" {
		t.Fatalf("expected empty render for idle source, got %q", got)
	}

	var nilExporter *PrometheusExporter
	if got := nilExporter.Render(); got != "" {
		t.Fatalf("expected empty render on nil exporter, got %q", got)
	}
}

func TestRenderCounters(t *testing.T) {
	exporter := NewPrometheusExporterFromSource(&fakeSource{
		snapshot: goOTP.MetricsSnapshot{
			Counters: map[goOTP.MetricID]uint64{
				goOTP.MetricChallengeRequested: 7,
				goOTP.MetricChallengeVerified:  3,
			},
			Histograms: map[goOTP.MetricID][]uint64{},
		},
		dropped: 2,
	})

	out := exporter.Render()
	for _, want := range []string{
		"# TYPE gootp_challenge_requested_total counter",
		"gootp_challenge_requested_total 7",
		"gootp_challenge_verified_total 3",
		"gootp_token_pair_issued_total 0",
		"gootp_audit_dropped_total 2",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("render missing %q:\n%s", want, out)
		}
	}
}

func TestRenderHistogramIsCumulative(t *testing.T) {
	exporter := NewPrometheusExporterFromSource(&fakeSource{
		snapshot: goOTP.MetricsSnapshot{
			Counters: map[goOTP.MetricID]uint64{
				goOTP.MetricChallengeVerified: 1,
			},
			Histograms: map[goOTP.MetricID][]uint64{
				goOTP.MetricVerifyLatency: {2, 1, 0, 0, 1, 0, 0, 1},
			},
		},
	})

	out := exporter.Render()
	for _, want := range []string{
		"# TYPE gootp_verify_latency_seconds histogram",
		`gootp_verify_latency_seconds_bucket{le="0.005"} 2`,
		`gootp_verify_latency_seconds_bucket{le="0.01"} 3`,
		`gootp_verify_latency_seconds_bucket{le="0.1"} 4`,
		`gootp_verify_latency_seconds_bucket{le="+Inf"} 5`,
		"gootp_verify_latency_seconds_count 5",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("render missing %q:\n%s", want, out)
		}
	}
}

func TestHandlerServesTextFormat(t *testing.T) {
	exporter := NewPrometheusExporterFromSource(&fakeSource{
		snapshot: goOTP.MetricsSnapshot{
			Counters: map[goOTP.MetricID]uint64{
				goOTP.MetricChallengeRequested: 1,
			},
			Histograms: map[goOTP.MetricID][]uint64{},
		},
	})

	rec := httptest.NewRecorder()
	exporter.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	if got := rec.Header().Get("Content-Type"); !strings.HasPrefix(got, "text/plain") {
		t.Fatalf("unexpected content type %q", got)
	}
	if !strings.Contains(rec.Body.String(), "gootp_challenge_requested_total 1") {
		t.Fatalf("handler body missing counter:\n%s", rec.Body.String())
	}
}
