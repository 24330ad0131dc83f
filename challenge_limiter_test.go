package goOTP

import (
	"context"
	"errors"
	"testing"
	"time"
)

func testLimiterConfig() RateLimitConfig {
	return RateLimitConfig{
		EnableIPThrottle:         true,
		EnableIdentifierThrottle: true,
		MaxRequestsPerIdentifier: 2,
		MaxRequestsPerIP:         3,
		RequestWindow:            time.Minute,
		MaxVerifiesPerIdentifier: 2,
		MaxVerifiesPerIP:         3,
		VerifyWindow:             time.Minute,
	}
}

func TestLimiterBlocksIdentifierAfterBudget(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()
	ctx := context.Background()

	limiter := newChallengeLimiter(rdb, testLimiterConfig())

	for i := 0; i < 2; i++ {
		if err := limiter.CheckRequest(ctx, "+919876543210", ""); err != nil {
			t.Fatalf("request %d should pass: %v", i+1, err)
		}
	}

	err := limiter.CheckRequest(ctx, "+919876543210", "")
	var hit *limiterHit
	if !errors.As(err, &hit) {
		t.Fatalf("expected limiter hit, got %v", err)
	}
	if hit.scope != "identifier" {
		t.Fatalf("expected identifier scope, got %q", hit.scope)
	}
	if hit.retryAfter <= 0 || hit.retryAfter > time.Minute {
		t.Fatalf("unexpected retryAfter: %s", hit.retryAfter)
	}
}

func TestLimiterBlocksIPAcrossIdentifiers(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()
	ctx := context.Background()

	limiter := newChallengeLimiter(rdb, testLimiterConfig())

	identifiers := []string{"+919876543210", "+919876543211", "+919876543212"}
	for i, id := range identifiers {
		if err := limiter.CheckRequest(ctx, id, "203.0.113.7"); err != nil {
			t.Fatalf("request %d should pass: %v", i+1, err)
		}
	}

	err := limiter.CheckRequest(ctx, "+919876543213", "203.0.113.7")
	var hit *limiterHit
	if !errors.As(err, &hit) || hit.scope != "ip" {
		t.Fatalf("expected ip-scope limiter hit, got %v", err)
	}
}

func TestLimiterVerifyAndRequestWindowsAreIndependent(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()
	ctx := context.Background()

	limiter := newChallengeLimiter(rdb, testLimiterConfig())

	for i := 0; i < 2; i++ {
		if err := limiter.CheckRequest(ctx, "+919876543210", ""); err != nil {
			t.Fatalf("request %d should pass: %v", i+1, err)
		}
	}
	if err := limiter.CheckRequest(ctx, "+919876543210", ""); !errors.Is(err, errLimiterExceeded) {
		t.Fatalf("expected request window exhausted, got %v", err)
	}

	// Verify attempts draw from their own window.
	for i := 0; i < 2; i++ {
		if err := limiter.CheckVerify(ctx, "+919876543210", ""); err != nil {
			t.Fatalf("verify %d should pass: %v", i+1, err)
		}
	}
}

func TestLimiterWindowResetsLazily(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()
	ctx := context.Background()

	limiter := newChallengeLimiter(rdb, testLimiterConfig())

	for i := 0; i < 2; i++ {
		if err := limiter.CheckRequest(ctx, "+919876543210", ""); err != nil {
			t.Fatalf("request %d should pass: %v", i+1, err)
		}
	}
	if err := limiter.CheckRequest(ctx, "+919876543210", ""); !errors.Is(err, errLimiterExceeded) {
		t.Fatalf("expected exhausted window, got %v", err)
	}

	mr.FastForward(61 * time.Second)

	if err := limiter.CheckRequest(ctx, "+919876543210", ""); err != nil {
		t.Fatalf("expected fresh window after expiry, got %v", err)
	}
}

func TestLimiterDisabledThrottlesPassEverything(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()
	ctx := context.Background()

	limiter := newChallengeLimiter(rdb, RateLimitConfig{})

	for i := 0; i < 50; i++ {
		if err := limiter.CheckRequest(ctx, "+919876543210", "203.0.113.7"); err != nil {
			t.Fatalf("disabled limiter rejected request: %v", err)
		}
		if err := limiter.CheckVerify(ctx, "+919876543210", "203.0.113.7"); err != nil {
			t.Fatalf("disabled limiter rejected verify: %v", err)
		}
	}
}
