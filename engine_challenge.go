package goOTP

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/MrEthical07/goOTP/delivery"
	"github.com/MrEthical07/goOTP/internal"
)

// RequestChallenge creates and delivers a one-time code for the raw
// identifier. The identifier is normalized first; rate limits and the
// delivery budget gate the request; the bypass registry short-circuits it.
//
// A delivery failure is soft: the challenge stays stored and the result
// carries Degraded=true, because the code may still reach the channel
// asynchronously.
func (e *Engine) RequestChallenge(ctx context.Context, rawIdentifier string, purpose ChallengePurpose) (*ChallengeResult, error) {
	if e == nil || e.challenges == nil {
		return nil, ErrEngineNotReady
	}
	if purpose != PurposeLogin && purpose != PurposeRegistration {
		return nil, errors.New("invalid challenge purpose")
	}

	identifier, err := NormalizeIdentifier(rawIdentifier)
	if err != nil {
		e.emitAudit(ctx, auditEventChallengeRequested, false, rawIdentifier, "", "", err, nil)
		return nil, err
	}

	if err := e.limiter.CheckRequest(ctx, identifier, clientIPFromContext(ctx)); err != nil {
		mapped := mapLimiterError(err)
		if errors.Is(mapped, ErrChallengeRateLimited) {
			e.metricInc(MetricChallengeRateLimited)
			e.emitAudit(ctx, auditEventChallengeRateLimited, false, identifier, "", "", mapped, nil)
		}
		return nil, mapped
	}

	bypassed, err := e.bypass.IsBypassed(ctx, identifier)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if bypassed {
		e.metricInc(MetricBypassUsed)
		e.emitAudit(ctx, auditEventChallengeBypassed, true, identifier, "", "", nil, func() map[string]string {
			return map[string]string{"purpose": purpose.String()}
		})
		return &ChallengeResult{Accepted: true, Bypassed: true}, nil
	}

	if remaining, err := e.challenges.CooldownRemaining(ctx, identifier); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	} else if remaining > 0 {
		e.metricInc(MetricChallengeCooldown)
		e.emitAudit(ctx, auditEventChallengeCooldown, false, identifier, "", "", ErrCooldownActive, nil)
		return nil, &CooldownError{RetryAfter: remaining}
	}

	if err := e.quota.CheckAndReserve(ctx, identifier); err != nil {
		mapped := mapQuotaError(err)
		if errors.Is(mapped, ErrQuotaExceeded) {
			e.metricInc(MetricQuotaExceeded)
			e.emitAudit(ctx, auditEventQuotaExceeded, false, identifier, "", "", mapped, nil)
		}
		return nil, mapped
	}

	code, err := internal.NewOTP(e.config.Challenge.OTPDigits)
	if err != nil {
		return nil, err
	}

	msg := delivery.Message{
		Code: code,
		Body: fmt.Sprintf(e.config.Challenge.MessageTemplate, code),
	}

	deliveryResult, fellBack, deliveryErr := e.orchestrator.Deliver(ctx, identifier, msg)
	delivered := deliveryErr == nil && deliveryResult.Accepted

	// Outcome bookkeeping is best effort; the reservation already held.
	_ = e.quota.RecordOutcome(ctx, identifier, delivered)

	now := time.Now()
	record := &challengeRecord{
		Purpose:     purpose,
		Channel:     deliveryResult.Channel,
		Attempts:    0,
		MaxAttempts: uint16(e.config.Challenge.MaxAttempts),
		CreatedAt:   now.Unix(),
		ExpiresAt:   now.Add(e.config.Challenge.TTL).Unix(),
		SecretHash:  internal.HashCode([]byte(code)),
	}

	err = e.challenges.Create(ctx, identifier, record, e.config.Challenge.TTL, e.config.Challenge.ResendCooldown)
	if err != nil {
		if errors.Is(err, errChallengeCooldown) {
			remaining, _ := e.challenges.CooldownRemaining(ctx, identifier)
			e.metricInc(MetricChallengeCooldown)
			e.emitAudit(ctx, auditEventChallengeCooldown, false, identifier, "", "", ErrCooldownActive, nil)
			return nil, &CooldownError{RetryAfter: remaining}
		}
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	result := &ChallengeResult{
		Accepted: true,
		FellBack: fellBack,
		Channel:  deliveryResult.Channel,
		Cooldown: e.config.Challenge.ResendCooldown,
		DemoCode: deliveryResult.DemoCode,
	}

	e.metricInc(MetricChallengeRequested)
	if delivered {
		e.metricInc(MetricDeliverySent)
		if fellBack {
			e.metricInc(MetricDeliveryFallback)
		}
		e.emitAudit(ctx, auditEventChallengeSent, true, identifier, "", deliveryResult.Channel, nil, func() map[string]string {
			return map[string]string{
				"purpose":  purpose.String(),
				"fallback": strconv.FormatBool(fellBack),
			}
		})
	} else {
		result.Degraded = true
		e.metricInc(MetricDeliveryDegraded)
		e.emitAudit(ctx, auditEventChallengeSendFailed, false, identifier, "", "", ErrDeliveryDegraded, func() map[string]string {
			return map[string]string{"purpose": purpose.String()}
		})
	}

	return result, nil
}

// SubmitChallenge matches a candidate code against the pending challenge
// and, on success, resolves the subject and mints a token pair. Bypassed
// identifiers succeed with any code; the bypass is audited.
func (e *Engine) SubmitChallenge(ctx context.Context, rawIdentifier, code string) (*VerifyResult, error) {
	if e == nil || e.challenges == nil {
		return nil, ErrEngineNotReady
	}

	started := time.Now()

	identifier, err := NormalizeIdentifier(rawIdentifier)
	if err != nil {
		return nil, err
	}

	if err := e.limiter.CheckVerify(ctx, identifier, clientIPFromContext(ctx)); err != nil {
		mapped := mapLimiterError(err)
		if errors.Is(mapped, ErrChallengeRateLimited) {
			e.metricInc(MetricVerifyRateLimited)
			e.emitAudit(ctx, auditEventChallengeRateLimited, false, identifier, "", "", mapped, nil)
		}
		return nil, mapped
	}

	bypassed, err := e.bypass.IsBypassed(ctx, identifier)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if bypassed {
		result, err := e.completeVerification(ctx, identifier, PurposeLogin, "", true)
		if err != nil {
			return nil, err
		}
		// The pending challenge, if any, is dead once bypass succeeds.
		_ = e.challenges.Delete(ctx, identifier)
		e.metricObserve(MetricVerifyLatency, time.Since(started))
		return result, nil
	}

	record, remaining, err := e.challenges.Consume(ctx, identifier, internal.HashCode([]byte(code)))
	if err != nil {
		switch {
		case errors.Is(err, errChallengeNotFound):
			e.emitAudit(ctx, auditEventChallengeInvalid, false, identifier, "", "", ErrChallengeNotFound, nil)
			return nil, ErrChallengeNotFound
		case errors.Is(err, errChallengeExpired):
			e.metricInc(MetricChallengeExpired)
			e.emitAudit(ctx, auditEventChallengeExpired, false, identifier, "", "", ErrChallengeExpired, nil)
			return nil, ErrChallengeExpired
		case errors.Is(err, errChallengeExhausted):
			e.metricInc(MetricChallengeExhausted)
			e.emitAudit(ctx, auditEventChallengeExhausted, false, identifier, "", "", ErrAttemptsExhausted, nil)
			return nil, ErrAttemptsExhausted
		case errors.Is(err, errChallengeMismatch):
			e.metricInc(MetricChallengeInvalid)
			if remaining <= 0 {
				e.metricInc(MetricChallengeExhausted)
			}
			e.emitAudit(ctx, auditEventChallengeInvalid, false, identifier, "", "", ErrCodeInvalid, func() map[string]string {
				return map[string]string{"remaining": strconv.Itoa(remaining)}
			})
			return nil, &InvalidCodeError{Remaining: remaining}
		default:
			return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
	}

	result, err := e.completeVerification(ctx, identifier, record.Purpose, record.Channel, false)
	if err != nil {
		return nil, err
	}

	e.metricObserve(MetricVerifyLatency, time.Since(started))
	return result, nil
}

// completeVerification is the shared tail of the verify and bypass paths:
// subject resolution followed by token issuance.
func (e *Engine) completeVerification(
	ctx context.Context,
	identifier string,
	purpose ChallengePurpose,
	channel string,
	bypassed bool,
) (*VerifyResult, error) {
	if e.subjects == nil {
		return nil, ErrSubjectUnavailable
	}

	subject, err := e.subjects.FindOrCreateSubject(ctx, identifier, purpose)
	if err != nil {
		e.emitAudit(ctx, auditEventChallengeVerified, false, identifier, "", channel, ErrSubjectUnavailable, nil)
		return nil, fmt.Errorf("%w: %v", ErrSubjectUnavailable, err)
	}

	pair, err := e.issueTokenPair(ctx, subject, identifier)
	if err != nil {
		return nil, err
	}

	if bypassed {
		e.metricInc(MetricBypassUsed)
		e.emitAudit(ctx, auditEventChallengeBypassed, true, identifier, subject.ID, channel, nil, nil)
	} else {
		e.metricInc(MetricChallengeVerified)
	}
	e.emitAudit(ctx, auditEventChallengeVerified, true, identifier, subject.ID, channel, nil, func() map[string]string {
		return map[string]string{
			"purpose":  purpose.String(),
			"bypassed": strconv.FormatBool(bypassed),
		}
	})

	return &VerifyResult{
		Bypassed:  bypassed,
		SubjectID: subject.ID,
		Tokens:    pair,
	}, nil
}

// QuotaUsage reports the delivery-budget position for an identifier across
// every configured bucket.
func (e *Engine) QuotaUsage(ctx context.Context, rawIdentifier string) ([]QuotaUsage, error) {
	if e == nil || e.quota == nil {
		return nil, ErrEngineNotReady
	}

	identifier, err := NormalizeIdentifier(rawIdentifier)
	if err != nil {
		return nil, err
	}

	usage, err := e.quota.Usage(ctx, identifier)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return usage, nil
}

func mapLimiterError(err error) error {
	var hit *limiterHit
	if errors.As(err, &hit) {
		return &RateLimitError{Scope: hit.scope, RetryAfter: hit.retryAfter}
	}
	return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
}

func mapQuotaError(err error) error {
	var hit *quotaHit
	if errors.As(err, &hit) {
		return &QuotaError{Scope: hit.scope, Period: hit.period, Limit: hit.limit, Used: hit.used}
	}
	return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
}
