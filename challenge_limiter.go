package goOTP

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	errLimiterExceeded    = errors.New("challenge limiter window exhausted")
	errLimiterUnavailable = errors.New("challenge limiter unavailable")
)

// limiterHit carries the scope and retry hint of an exhausted window.
// It unwraps to errLimiterExceeded for errors.Is matching.
type limiterHit struct {
	scope      string
	retryAfter time.Duration
}

func (h *limiterHit) Error() string {
	return fmt.Sprintf("challenge limiter window exhausted (%s)", h.scope)
}

func (h *limiterHit) Unwrap() error { return errLimiterExceeded }

// challengeLimiter bounds challenge-request and verify-attempt frequency in
// two independent fixed windows: per source address and per identifier.
// Windows reset lazily through key TTLs; no background sweeper exists.
type challengeLimiter struct {
	redis  redis.UniversalClient
	config RateLimitConfig
}

func newChallengeLimiter(redisClient redis.UniversalClient, cfg RateLimitConfig) *challengeLimiter {
	return &challengeLimiter{
		redis:  redisClient,
		config: cfg,
	}
}

// CheckRequest consumes one challenge-request slot for the identifier and,
// when provided, the source address.
func (l *challengeLimiter) CheckRequest(ctx context.Context, identifier, ip string) error {
	if l.config.EnableIdentifierThrottle {
		if err := l.enforceFixedWindow(ctx,
			requestIdentifierKey(identifier),
			"identifier",
			l.config.MaxRequestsPerIdentifier,
			l.config.RequestWindow,
		); err != nil {
			return err
		}
	}
	if l.config.EnableIPThrottle && ip != "" {
		if err := l.enforceFixedWindow(ctx,
			requestIPKey(ip),
			"ip",
			l.config.MaxRequestsPerIP,
			l.config.RequestWindow,
		); err != nil {
			return err
		}
	}
	return nil
}

// CheckVerify consumes one verify-attempt slot.
func (l *challengeLimiter) CheckVerify(ctx context.Context, identifier, ip string) error {
	if l.config.EnableIdentifierThrottle {
		if err := l.enforceFixedWindow(ctx,
			verifyIdentifierKey(identifier),
			"identifier",
			l.config.MaxVerifiesPerIdentifier,
			l.config.VerifyWindow,
		); err != nil {
			return err
		}
	}
	if l.config.EnableIPThrottle && ip != "" {
		if err := l.enforceFixedWindow(ctx,
			verifyIPKey(ip),
			"ip",
			l.config.MaxVerifiesPerIP,
			l.config.VerifyWindow,
		); err != nil {
			return err
		}
	}
	return nil
}

func (l *challengeLimiter) enforceFixedWindow(ctx context.Context, key, scope string, max int, window time.Duration) error {
	count, err := l.redis.Incr(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", errLimiterUnavailable, err)
	}

	if count == 1 {
		if err := l.redis.Expire(ctx, key, window).Err(); err != nil {
			return fmt.Errorf("%w: %v", errLimiterUnavailable, err)
		}
	}

	if count > int64(max) {
		retryAfter, err := l.redis.PTTL(ctx, key).Result()
		if err != nil || retryAfter < 0 {
			retryAfter = window
		}
		return &limiterHit{scope: scope, retryAfter: retryAfter}
	}

	return nil
}

func requestIdentifierKey(identifier string) string {
	return "ocri:" + identifier
}

func requestIPKey(ip string) string {
	return "ocrip:" + ip
}

func verifyIdentifierKey(identifier string) string {
	return "ocvi:" + identifier
}

func verifyIPKey(ip string) string {
	return "ocvip:" + ip
}
