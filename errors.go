package goOTP

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInvalidIdentifier is returned when an identifier matches no accepted
	// phone or email pattern.
	ErrInvalidIdentifier = errors.New("invalid identifier")
	// ErrCooldownActive is returned when a challenge is requested before the
	// minimum resend interval for the identifier has elapsed.
	ErrCooldownActive = errors.New("challenge resend cooldown active")
	// ErrChallengeRateLimited is returned when the per-IP or per-identifier
	// request window is exhausted.
	ErrChallengeRateLimited = errors.New("challenge rate limited")
	// ErrQuotaExceeded is returned when a delivery-budget counter is at its
	// configured limit.
	ErrQuotaExceeded = errors.New("delivery quota exceeded")
	// ErrDeliveryDegraded marks a soft failure: the challenge was stored but
	// no provider acknowledged delivery.
	ErrDeliveryDegraded = errors.New("challenge delivery degraded")
	// ErrChallengeNotFound is returned when no pending challenge exists for
	// the identifier.
	ErrChallengeNotFound = errors.New("challenge not found")
	// ErrChallengeExpired is returned when the pending challenge has passed
	// its expiry. The challenge is deleted.
	ErrChallengeExpired = errors.New("challenge expired")
	// ErrAttemptsExhausted is returned when the attempt budget is spent.
	// The challenge is deleted.
	ErrAttemptsExhausted = errors.New("challenge attempts exhausted")
	// ErrCodeInvalid is returned when the submitted code does not match the
	// stored secret hash.
	ErrCodeInvalid = errors.New("invalid verification code")
	// ErrBypassInvalid is returned when an emergency bypass token fails
	// validation.
	ErrBypassInvalid = errors.New("invalid bypass token")
	// ErrTokenInvalid is returned for malformed or unknown tokens.
	ErrTokenInvalid = errors.New("invalid token")
	// ErrTokenRevoked is returned when a refresh token record is marked
	// revoked, regardless of its remaining TTL.
	ErrTokenRevoked = errors.New("token revoked")
	// ErrTokenExpired is returned when a token is past its TTL.
	ErrTokenExpired = errors.New("token expired")
	// ErrRefreshRateLimited is returned when refresh attempts for a token
	// exceed the configured throttle.
	ErrRefreshRateLimited = errors.New("refresh rate limited")
	// ErrSubjectUnavailable is returned when the subject directory cannot
	// resolve or create the verified identity.
	ErrSubjectUnavailable = errors.New("subject directory unavailable")
	// ErrStoreUnavailable wraps backend (redis) failures.
	ErrStoreUnavailable = errors.New("backend store unavailable")
	// ErrEngineNotReady is returned when the engine is used before Build.
	ErrEngineNotReady = errors.New("engine not initialized")
)

// RateLimitError carries the retry hint for a rate-limited request.
// It unwraps to [ErrChallengeRateLimited] so callers can match with errors.Is.
type RateLimitError struct {
	Scope      string // "ip" or "identifier"
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("challenge rate limited (%s scope, retry after %s)", e.Scope, e.RetryAfter)
}

func (e *RateLimitError) Unwrap() error { return ErrChallengeRateLimited }

// CooldownError carries the remaining resend cooldown for an identifier.
// It unwraps to [ErrCooldownActive].
type CooldownError struct {
	RetryAfter time.Duration
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("challenge resend cooldown active (retry after %s)", e.RetryAfter)
}

func (e *CooldownError) Unwrap() error { return ErrCooldownActive }

// InvalidCodeError reports a wrong-code submission together with the
// remaining attempt budget. It unwraps to [ErrCodeInvalid].
type InvalidCodeError struct {
	Remaining int
}

func (e *InvalidCodeError) Error() string {
	return fmt.Sprintf("invalid verification code (%d attempts remaining)", e.Remaining)
}

func (e *InvalidCodeError) Unwrap() error { return ErrCodeInvalid }

// QuotaError reports which delivery-budget bucket is exhausted.
// It unwraps to [ErrQuotaExceeded].
type QuotaError struct {
	Scope  string // "identifier" or "global"
	Period QuotaPeriod
	Limit  int64
	Used   int64
}

func (e *QuotaError) Error() string {
	return fmt.Sprintf("delivery quota exceeded (%s/%s: %d of %d used)", e.Scope, e.Period, e.Used, e.Limit)
}

func (e *QuotaError) Unwrap() error { return ErrQuotaExceeded }
