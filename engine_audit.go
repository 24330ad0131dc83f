package goOTP

import (
	"context"
	"errors"
	"time"
)

const (
	auditEventChallengeRequested   = "challenge_requested"
	auditEventChallengeSent        = "challenge_sent"
	auditEventChallengeSendFailed  = "challenge_send_failed"
	auditEventChallengeCooldown    = "challenge_cooldown"
	auditEventChallengeRateLimited = "challenge_rate_limited"
	auditEventChallengeBypassed    = "challenge_bypassed"
	auditEventChallengeVerified    = "challenge_verified"
	auditEventChallengeInvalid     = "challenge_invalid"
	auditEventChallengeExpired     = "challenge_expired"
	auditEventChallengeExhausted   = "challenge_attempts_exhausted"
	auditEventQuotaExceeded        = "quota_exceeded"
	auditEventBypassIssued         = "bypass_issued"
	auditEventBypassValidated      = "bypass_validated"
	auditEventTokenPairIssued      = "token_pair_issued"
	auditEventRefreshSuccess       = "refresh_success"
	auditEventRefreshInvalid       = "refresh_invalid"
	auditEventRefreshRateLimited   = "refresh_rate_limited"
	auditEventTokenRevoked         = "token_revoked"
	auditEventLogoutAll            = "logout_all"
)

// AuditErrorCode is the stable short code carried in audit events in place
// of raw error text.
type AuditErrorCode string

const (
	auditErrInvalidIdentifier AuditErrorCode = "invalid_identifier"
	auditErrCooldown          AuditErrorCode = "cooldown_active"
	auditErrRateLimited       AuditErrorCode = "rate_limited"
	auditErrQuotaExceeded     AuditErrorCode = "quota_exceeded"
	auditErrDeliveryDegraded  AuditErrorCode = "delivery_degraded"
	auditErrNotFound          AuditErrorCode = "challenge_not_found"
	auditErrExpired           AuditErrorCode = "challenge_expired"
	auditErrExhausted         AuditErrorCode = "attempts_exhausted"
	auditErrInvalidCode       AuditErrorCode = "invalid_code"
	auditErrBypassInvalid     AuditErrorCode = "bypass_invalid"
	auditErrTokenInvalid      AuditErrorCode = "token_invalid"
	auditErrTokenRevoked      AuditErrorCode = "token_revoked"
	auditErrTokenExpired      AuditErrorCode = "token_expired"
	auditErrSubject           AuditErrorCode = "subject_unavailable"
	auditErrUnavailable       AuditErrorCode = "backend_unavailable"
	auditErrInternal          AuditErrorCode = "internal_error"
)

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}
	switch {
	case errors.Is(err, ErrInvalidIdentifier):
		return auditErrInvalidIdentifier
	case errors.Is(err, ErrCooldownActive):
		return auditErrCooldown
	case errors.Is(err, ErrChallengeRateLimited), errors.Is(err, ErrRefreshRateLimited):
		return auditErrRateLimited
	case errors.Is(err, ErrQuotaExceeded):
		return auditErrQuotaExceeded
	case errors.Is(err, ErrDeliveryDegraded):
		return auditErrDeliveryDegraded
	case errors.Is(err, ErrChallengeNotFound):
		return auditErrNotFound
	case errors.Is(err, ErrChallengeExpired):
		return auditErrExpired
	case errors.Is(err, ErrAttemptsExhausted):
		return auditErrExhausted
	case errors.Is(err, ErrCodeInvalid):
		return auditErrInvalidCode
	case errors.Is(err, ErrBypassInvalid):
		return auditErrBypassInvalid
	case errors.Is(err, ErrTokenRevoked):
		return auditErrTokenRevoked
	case errors.Is(err, ErrTokenExpired):
		return auditErrTokenExpired
	case errors.Is(err, ErrTokenInvalid):
		return auditErrTokenInvalid
	case errors.Is(err, ErrSubjectUnavailable):
		return auditErrSubject
	case errors.Is(err, ErrStoreUnavailable):
		return auditErrUnavailable
	default:
		return auditErrInternal
	}
}

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	identifier string,
	subjectID string,
	channel string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := AuditEvent{
		Timestamp:  time.Now().UTC(),
		EventType:  eventType,
		Identifier: identifier,
		SubjectID:  subjectID,
		Channel:    channel,
		IP:         clientIPFromContext(ctx),
		Success:    success,
		Metadata:   metadata,
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	e.audit.Emit(ctx, event)
}
