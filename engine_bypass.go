package goOTP

import (
	"context"
	"errors"
	"fmt"
)

// IssueEmergencyBypass mints a time-boxed bypass token for one identifier.
// Issuance is always audited.
func (e *Engine) IssueEmergencyBypass(ctx context.Context, rawIdentifier, reason string) (string, error) {
	if e == nil || e.bypass == nil {
		return "", ErrEngineNotReady
	}
	if !e.config.Bypass.EnableEmergencyTokens {
		return "", errors.New("emergency bypass tokens are disabled")
	}

	identifier, err := NormalizeIdentifier(rawIdentifier)
	if err != nil {
		return "", err
	}

	token, err := e.bypass.IssueEmergencyBypass(ctx, identifier, reason)
	if err != nil {
		e.emitAudit(ctx, auditEventBypassIssued, false, identifier, "", "", ErrStoreUnavailable, nil)
		return "", fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	e.metricInc(MetricBypassIssued)
	e.emitAudit(ctx, auditEventBypassIssued, true, identifier, "", "", nil, func() map[string]string {
		return map[string]string{"reason": reason}
	})

	return token, nil
}

// ValidateEmergencyBypass checks a bypass token against the identifier it
// was issued for. Validation is audited regardless of outcome.
func (e *Engine) ValidateEmergencyBypass(ctx context.Context, token, rawIdentifier string) error {
	if e == nil || e.bypass == nil {
		return ErrEngineNotReady
	}

	identifier, err := NormalizeIdentifier(rawIdentifier)
	if err != nil {
		return err
	}

	err = e.bypass.ValidateEmergencyBypass(ctx, token, identifier)
	switch {
	case err == nil:
		e.emitAudit(ctx, auditEventBypassValidated, true, identifier, "", "", nil, nil)
		return nil
	case errors.Is(err, errBypassNotFound), errors.Is(err, errBypassMismatch), errors.Is(err, errBypassCorrupt):
		e.emitAudit(ctx, auditEventBypassValidated, false, identifier, "", "", ErrBypassInvalid, nil)
		return ErrBypassInvalid
	default:
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
}
