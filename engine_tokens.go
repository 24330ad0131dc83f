package goOTP

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/MrEthical07/goOTP/internal"
	"github.com/MrEthical07/goOTP/session"
)

// issueTokenPair mints a stateless access token and a stateful refresh
// token for a resolved subject, persisting one session record per refresh
// token so it can be revoked individually or en masse.
func (e *Engine) issueTokenPair(ctx context.Context, subject Subject, identifier string) (TokenPair, error) {
	sid, err := internal.NewSessionID()
	if err != nil {
		return TokenPair{}, err
	}
	secret, err := internal.NewRefreshSecret()
	if err != nil {
		return TokenPair{}, err
	}

	now := time.Now()
	rec := &session.Record{
		SessionID:  sid.String(),
		SubjectID:  subject.ID,
		Identifier: identifier,
		Kind:       subject.Kind,
		SecretHash: internal.HashRefreshSecret(secret),
		IssuedAt:   now.Unix(),
		ExpiresAt:  now.Add(e.config.JWT.RefreshTTL).Unix(),
	}

	if err := e.sessions.Save(ctx, rec, e.config.JWT.RefreshTTL); err != nil {
		return TokenPair{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	accessToken, err := e.jwtManager.CreateAccess(subject.ID, sid.String(), identifier, subject.Kind, subject.Claims)
	if err != nil {
		return TokenPair{}, err
	}

	refreshToken, err := internal.EncodeRefreshToken(sid.String(), secret)
	if err != nil {
		return TokenPair{}, err
	}

	e.metricInc(MetricTokenPairIssued)
	e.emitAudit(ctx, auditEventTokenPairIssued, true, identifier, subject.ID, "", nil, nil)

	return TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		IssuedAt:     now,
		AccessTTL:    e.config.JWT.AccessTTL,
		RefreshTTL:   e.config.JWT.RefreshTTL,
	}, nil
}

// RefreshAccessToken mints a new access token against a live refresh
// token. The refresh token itself is not rotated; a revoked or expired
// record fails regardless of the token's own TTL claim.
func (e *Engine) RefreshAccessToken(ctx context.Context, refreshToken string) (string, error) {
	if e == nil || e.sessions == nil {
		return "", ErrEngineNotReady
	}

	sid, secret, err := internal.DecodeRefreshToken(refreshToken)
	if err != nil {
		e.metricInc(MetricRefreshFailure)
		e.emitAudit(ctx, auditEventRefreshInvalid, false, "", "", "", ErrTokenInvalid, nil)
		return "", ErrTokenInvalid
	}

	if err := e.refreshRate.CheckRefresh(ctx, sid); err != nil {
		e.metricInc(MetricRefreshRateLimited)
		e.emitAudit(ctx, auditEventRefreshRateLimited, false, "", "", "", ErrRefreshRateLimited, nil)
		return "", ErrRefreshRateLimited
	}

	rec, err := e.sessions.Authorize(ctx, sid, internal.HashRefreshSecret(secret))
	if err != nil {
		mapped := mapSessionError(err)
		e.metricInc(MetricRefreshFailure)
		e.emitAudit(ctx, auditEventRefreshInvalid, false, "", "", "", mapped, nil)
		return "", mapped
	}

	accessToken, err := e.jwtManager.CreateAccess(rec.SubjectID, rec.SessionID, rec.Identifier, rec.Kind, nil)
	if err != nil {
		return "", err
	}

	e.metricInc(MetricRefreshSuccess)
	e.emitAudit(ctx, auditEventRefreshSuccess, true, rec.Identifier, rec.SubjectID, "", nil, nil)

	return accessToken, nil
}

// Logout revokes the presented refresh token. With allDevices set, every
// live session for the same subject is revoked too. Returns how many
// sessions were revoked.
func (e *Engine) Logout(ctx context.Context, refreshToken string, allDevices bool) (int, error) {
	if e == nil || e.sessions == nil {
		return 0, ErrEngineNotReady
	}

	sid, secret, err := internal.DecodeRefreshToken(refreshToken)
	if err != nil {
		return 0, ErrTokenInvalid
	}

	rec, err := e.sessions.Revoke(ctx, sid, internal.HashRefreshSecret(secret))
	if err != nil {
		return 0, mapSessionError(err)
	}

	_ = e.refreshRate.ResetRefresh(ctx, sid)

	revoked := 1
	if allDevices {
		count, err := e.sessions.RevokeAllForSubject(ctx, rec.SubjectID)
		if err != nil {
			return revoked, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
		revoked = count
		e.metricInc(MetricRevokeAll)
		e.emitAudit(ctx, auditEventLogoutAll, true, rec.Identifier, rec.SubjectID, "", nil, func() map[string]string {
			return map[string]string{"revoked": strconv.Itoa(count)}
		})
		return revoked, nil
	}

	e.metricInc(MetricTokenRevoked)
	e.emitAudit(ctx, auditEventTokenRevoked, true, rec.Identifier, rec.SubjectID, "", nil, nil)

	return revoked, nil
}

func mapSessionError(err error) error {
	switch {
	case errors.Is(err, session.ErrSessionRevoked):
		return ErrTokenRevoked
	case errors.Is(err, session.ErrSessionExpired):
		return ErrTokenExpired
	case errors.Is(err, session.ErrSessionNotFound), errors.Is(err, session.ErrSecretMismatch):
		return ErrTokenInvalid
	default:
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
}
