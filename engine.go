package goOTP

import (
	"time"

	"github.com/MrEthical07/goOTP/delivery"
	internalaudit "github.com/MrEthical07/goOTP/internal/audit"
	"github.com/MrEthical07/goOTP/internal/rate"
	"github.com/MrEthical07/goOTP/jwt"
	"github.com/MrEthical07/goOTP/session"
)

// Engine is the verification and session-issuance core. Build one through
// [Builder]; all methods are safe for concurrent use.
type Engine struct {
	config       Config
	challenges   *challengeStore
	limiter      *challengeLimiter
	quota        *quotaMonitor
	bypass       *bypassStore
	orchestrator *delivery.Orchestrator
	sessions     *session.Store
	refreshRate  *rate.Limiter
	jwtManager   *jwt.Manager
	subjects     SubjectDirectory
	audit        *internalaudit.Dispatcher
	metrics      *Metrics
}

// Close drains and stops the async audit dispatcher. Safe to call on a nil
// engine or more than once.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped reports how many audit events were dropped because the
// dispatcher buffer was full.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot returns a point-in-time copy of all engine metrics.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) metricObserve(id MetricID, d time.Duration) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Observe(id, d)
}

// EngineLimits is a read-only view of the effective throttle and budget
// configuration, for clients that render retry hints up front.
type EngineLimits struct {
	Challenge ChallengeConfig
	RateLimit RateLimitConfig
	Quota     QuotaConfig
}

// Limits returns the engine's effective limit configuration.
func (e *Engine) Limits() EngineLimits {
	if e == nil {
		return EngineLimits{}
	}
	return EngineLimits{
		Challenge: e.config.Challenge,
		RateLimit: e.config.RateLimit,
		Quota:     e.config.Quota,
	}
}
