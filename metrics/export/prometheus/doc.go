// Package prometheus provides Prometheus rendering for goOTP metrics.
//
// [NewPrometheusExporter] accepts a [goOTP.Engine] and exposes an [net/http.Handler]
// that renders all core counters and histograms in Prometheus text exposition format.
// Counter names are prefixed gootp_*_total; the single histogram is
// gootp_verify_latency_seconds.
//
// # What this package must NOT do
//
//   - Register metrics in a global Prometheus registry — callers mount the Handler.
//   - Mutate engine state.
package prometheus
