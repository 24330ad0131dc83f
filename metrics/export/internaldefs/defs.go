package internaldefs

import (
	goOTP "github.com/MrEthical07/goOTP"
)

// CounterDef binds a core metric id to its stable exported name.
type CounterDef struct {
	ID   goOTP.MetricID
	Name string
	Help string
}

// HistogramDef binds a core histogram id to its stable exported name.
type HistogramDef struct {
	ID   goOTP.MetricID
	Name string
	Help string
}

// CounterDefs is the shared counter definition list. Both exporters render
// from it, so names never diverge between Prometheus and OTel.
var CounterDefs = []CounterDef{
	{ID: goOTP.MetricChallengeRequested, Name: "gootp_challenge_requested_total", Help: "Accepted challenge-create requests."},
	{ID: goOTP.MetricChallengeCooldown, Name: "gootp_challenge_cooldown_total", Help: "Requests rejected by the resend cooldown."},
	{ID: goOTP.MetricChallengeRateLimited, Name: "gootp_challenge_rate_limited_total", Help: "Rate-limited challenge requests."},
	{ID: goOTP.MetricQuotaExceeded, Name: "gootp_quota_exceeded_total", Help: "Requests rejected by the delivery budget."},
	{ID: goOTP.MetricDeliverySent, Name: "gootp_delivery_sent_total", Help: "Provider-acknowledged deliveries."},
	{ID: goOTP.MetricDeliveryFallback, Name: "gootp_delivery_fallback_total", Help: "Sends served by a non-primary provider."},
	{ID: goOTP.MetricDeliveryDegraded, Name: "gootp_delivery_degraded_total", Help: "Soft delivery failures."},
	{ID: goOTP.MetricChallengeVerified, Name: "gootp_challenge_verified_total", Help: "Successful verifications."},
	{ID: goOTP.MetricChallengeInvalid, Name: "gootp_challenge_invalid_total", Help: "Wrong-code submissions."},
	{ID: goOTP.MetricChallengeExpired, Name: "gootp_challenge_expired_total", Help: "Submissions against expired challenges."},
	{ID: goOTP.MetricChallengeExhausted, Name: "gootp_challenge_exhausted_total", Help: "Challenges deleted by attempt exhaustion."},
	{ID: goOTP.MetricVerifyRateLimited, Name: "gootp_verify_rate_limited_total", Help: "Rate-limited verify attempts."},
	{ID: goOTP.MetricBypassUsed, Name: "gootp_bypass_used_total", Help: "Bypassed verification flows."},
	{ID: goOTP.MetricBypassIssued, Name: "gootp_bypass_issued_total", Help: "Issued emergency bypass tokens."},
	{ID: goOTP.MetricTokenPairIssued, Name: "gootp_token_pair_issued_total", Help: "Minted access+refresh token pairs."},
	{ID: goOTP.MetricRefreshSuccess, Name: "gootp_refresh_success_total", Help: "Successful access-token refreshes."},
	{ID: goOTP.MetricRefreshFailure, Name: "gootp_refresh_failure_total", Help: "Rejected refresh attempts."},
	{ID: goOTP.MetricRefreshRateLimited, Name: "gootp_refresh_rate_limited_total", Help: "Throttled refresh attempts."},
	{ID: goOTP.MetricTokenRevoked, Name: "gootp_token_revoked_total", Help: "Single-token revocations."},
	{ID: goOTP.MetricRevokeAll, Name: "gootp_revoke_all_total", Help: "Logout-everywhere operations."},
}

// HistogramDefs is the shared histogram definition list.
var HistogramDefs = []HistogramDef{
	{ID: goOTP.MetricVerifyLatency, Name: "gootp_verify_latency_seconds", Help: "SubmitChallenge latency histogram."},
}

// HistogramBounds are the upper bounds, in seconds, of the core latency
// buckets, rendered as Prometheus le label values.
var HistogramBounds = []string{
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"+Inf",
}

// HistogramBoundSuffix are the same bounds as instrument-name-safe suffixes.
var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets pads or truncates a raw snapshot slice to the fixed
// bucket width.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets converts per-bucket counts into the cumulative form
// both exposition formats expect.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
