package goOTP

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// QuotaPeriod is one granularity of the delivery budget.
type QuotaPeriod string

const (
	// QuotaHour is the hourly budget bucket.
	QuotaHour QuotaPeriod = "hour"
	// QuotaDay is the daily budget bucket.
	QuotaDay QuotaPeriod = "day"
	// QuotaMonth is the monthly budget bucket.
	QuotaMonth QuotaPeriod = "month"
)

const quotaGlobalScope = "_global"

var errQuotaUnavailable = errors.New("quota redis unavailable")

// quotaHit reports which bucket rejected the reservation. Unwraps to
// ErrQuotaExceeded via the public QuotaError the engine builds from it.
type quotaHit struct {
	scope  string
	period QuotaPeriod
	limit  int64
	used   int64
}

func (h *quotaHit) Error() string {
	return fmt.Sprintf("quota bucket exhausted (%s/%s)", h.scope, h.period)
}

func (h *quotaHit) Unwrap() error { return ErrQuotaExceeded }

// QuotaUsage is one bucket's position against its limit, for reporting.
// Reporting never blocks a send by itself; only CheckAndReserve does.
type QuotaUsage struct {
	Scope       string
	Period      QuotaPeriod
	PeriodStart time.Time
	Used        int64
	Limit       int64
	PercentUsed float64
}

// quotaMonitor tracks delivery counts at three granularities and two
// scopes, independent of abuse rate limiting: the quota protects the
// provider budget.
//
// Each counter key embeds its period start, so a fresh period starts at
// zero simply because it is a fresh key — windows roll forward lazily on
// access and never need a reset sweep.
type quotaMonitor struct {
	redis  redis.UniversalClient
	config QuotaConfig
	// now is swappable in tests.
	now func() time.Time
}

func newQuotaMonitor(redisClient redis.UniversalClient, cfg QuotaConfig) *quotaMonitor {
	return &quotaMonitor{
		redis:  redisClient,
		config: cfg,
		now:    time.Now,
	}
}

type quotaBucket struct {
	scope  string
	period QuotaPeriod
	limit  int64
}

func (q *quotaMonitor) buckets(identifier string) []quotaBucket {
	return []quotaBucket{
		{scope: identifier, period: QuotaHour, limit: q.config.PerIdentifierHourly},
		{scope: identifier, period: QuotaDay, limit: q.config.PerIdentifierDaily},
		{scope: identifier, period: QuotaMonth, limit: q.config.PerIdentifierMonthly},
		{scope: quotaGlobalScope, period: QuotaHour, limit: q.config.GlobalHourly},
		{scope: quotaGlobalScope, period: QuotaDay, limit: q.config.GlobalDaily},
		{scope: quotaGlobalScope, period: QuotaMonth, limit: q.config.GlobalMonthly},
	}
}

// CheckAndReserve consumes one unit of every applicable budget bucket and
// reports the first exhausted one. A reservation that trips a limit still
// counts: an attempted send consumes budget once accepted by the flow.
func (q *quotaMonitor) CheckAndReserve(ctx context.Context, identifier string) error {
	if !q.config.Enabled {
		return nil
	}

	now := q.now()
	for _, b := range q.buckets(identifier) {
		if b.limit <= 0 {
			continue
		}

		key := q.key(b.scope, b.period, now)
		used, err := q.redis.Incr(ctx, key).Result()
		if err != nil {
			return fmt.Errorf("%w: %v", errQuotaUnavailable, err)
		}
		if used == 1 {
			if err := q.redis.Expire(ctx, key, quotaKeyTTL(b.period)).Err(); err != nil {
				return fmt.Errorf("%w: %v", errQuotaUnavailable, err)
			}
		}

		if used > b.limit {
			scope := "identifier"
			if b.scope == quotaGlobalScope {
				scope = "global"
			}
			return &quotaHit{scope: scope, period: b.period, limit: b.limit, used: used}
		}
	}

	return nil
}

// RecordOutcome tracks delivery outcomes for reporting. Budget was already
// consumed by CheckAndReserve; outcome counters only feed Usage metadata.
func (q *quotaMonitor) RecordOutcome(ctx context.Context, identifier string, success bool) error {
	if !q.config.Enabled {
		return nil
	}

	suffix := ":ok"
	if !success {
		suffix = ":fail"
	}

	now := q.now()
	pipe := q.redis.Pipeline()
	for _, scope := range []string{identifier, quotaGlobalScope} {
		key := q.key(scope, QuotaDay, now) + suffix
		pipe.Incr(ctx, key)
		pipe.Expire(ctx, key, quotaKeyTTL(QuotaDay))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("%w: %v", errQuotaUnavailable, err)
	}

	return nil
}

// Usage answers "how close to exhaustion am I" for every bucket. It never
// rejects anything; alerting reads it, the send path does not.
func (q *quotaMonitor) Usage(ctx context.Context, identifier string) ([]QuotaUsage, error) {
	if !q.config.Enabled {
		return nil, nil
	}

	now := q.now()
	out := make([]QuotaUsage, 0, 6)
	for _, b := range q.buckets(identifier) {
		if b.limit <= 0 {
			continue
		}

		used, err := q.redis.Get(ctx, q.key(b.scope, b.period, now)).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("%w: %v", errQuotaUnavailable, err)
		}

		scope := "identifier"
		if b.scope == quotaGlobalScope {
			scope = "global"
		}

		out = append(out, QuotaUsage{
			Scope:       scope,
			Period:      b.period,
			PeriodStart: periodStart(b.period, now),
			Used:        used,
			Limit:       b.limit,
			PercentUsed: float64(used) / float64(b.limit) * 100,
		})
	}

	return out, nil
}

func (q *quotaMonitor) key(scope string, period QuotaPeriod, now time.Time) string {
	start := periodStart(period, now).Unix()
	return "oq:" + string(period[0]) + ":" + strconv.FormatInt(start, 10) + ":" + scope
}

func periodStart(period QuotaPeriod, now time.Time) time.Time {
	utc := now.UTC()
	switch period {
	case QuotaHour:
		return utc.Truncate(time.Hour)
	case QuotaDay:
		return time.Date(utc.Year(), utc.Month(), utc.Day(), 0, 0, 0, 0, time.UTC)
	default:
		return time.Date(utc.Year(), utc.Month(), 1, 0, 0, 0, 0, time.UTC)
	}
}

func quotaKeyTTL(period QuotaPeriod) time.Duration {
	switch period {
	case QuotaHour:
		return 2 * time.Hour
	case QuotaDay:
		return 48 * time.Hour
	default:
		return 32 * 24 * time.Hour
	}
}
