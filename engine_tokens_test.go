package goOTP

import (
	"context"
	"errors"
	"testing"
)

func verifiedTokens(t *testing.T, engine *Engine, identifier string) TokenPair {
	t.Helper()
	ctx := context.Background()

	result, err := engine.RequestChallenge(ctx, identifier, PurposeLogin)
	if err != nil {
		t.Fatalf("RequestChallenge failed: %v", err)
	}
	verify, err := engine.SubmitChallenge(ctx, identifier, result.DemoCode)
	if err != nil {
		t.Fatalf("SubmitChallenge failed: %v", err)
	}
	return verify.Tokens
}

func TestRefreshMintsParseableAccessToken(t *testing.T) {
	engine, _, done := buildTestEngine(t)
	defer done()
	ctx := context.Background()

	pair := verifiedTokens(t, engine, "+919876543210")

	access, err := engine.RefreshAccessToken(ctx, pair.RefreshToken)
	if err != nil {
		t.Fatalf("RefreshAccessToken failed: %v", err)
	}

	claims, err := engine.jwtManager.ParseAccess(access)
	if err != nil {
		t.Fatalf("refreshed access token does not parse: %v", err)
	}
	if claims.Identifier != "+919876543210" {
		t.Fatalf("expected identifier claim, got %q", claims.Identifier)
	}
	if claims.Subject == "" || claims.SID == "" {
		t.Fatalf("expected subject and session claims, got %+v", claims)
	}
}

func TestRefreshTokenIsNotRotated(t *testing.T) {
	engine, _, done := buildTestEngine(t)
	defer done()
	ctx := context.Background()

	pair := verifiedTokens(t, engine, "+919876543210")

	// The same refresh token stays valid across refreshes.
	for i := 0; i < 3; i++ {
		if _, err := engine.RefreshAccessToken(ctx, pair.RefreshToken); err != nil {
			t.Fatalf("refresh %d failed: %v", i+1, err)
		}
	}
}

func TestRefreshRejectsGarbageToken(t *testing.T) {
	engine, _, done := buildTestEngine(t)
	defer done()
	ctx := context.Background()

	for _, token := range []string{"", "garbage", "AAAA****", "dG9vLXNob3J0"} {
		if _, err := engine.RefreshAccessToken(ctx, token); !errors.Is(err, ErrTokenInvalid) {
			t.Fatalf("token %q: expected ErrTokenInvalid, got %v", token, err)
		}
	}
}

func TestRefreshRejectsTamperedSecret(t *testing.T) {
	engine, _, done := buildTestEngine(t)
	defer done()
	ctx := context.Background()

	pair := verifiedTokens(t, engine, "+919876543210")

	// Flip one character of the encoded token; the session id may still
	// resolve, but the secret hash cannot match.
	raw := []byte(pair.RefreshToken)
	last := len(raw) - 1
	if raw[last] == 'A' {
		raw[last] = 'B'
	} else {
		raw[last] = 'A'
	}

	if _, err := engine.RefreshAccessToken(ctx, string(raw)); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid for tampered token, got %v", err)
	}
}

func TestLogoutRevokesRefreshToken(t *testing.T) {
	engine, _, done := buildTestEngine(t)
	defer done()
	ctx := context.Background()

	pair := verifiedTokens(t, engine, "+919876543210")

	revoked, err := engine.Logout(ctx, pair.RefreshToken, false)
	if err != nil {
		t.Fatalf("Logout failed: %v", err)
	}
	if revoked != 1 {
		t.Fatalf("expected 1 revoked session, got %d", revoked)
	}

	// The tombstone rejects reuse before the TTL would have.
	if _, err := engine.RefreshAccessToken(ctx, pair.RefreshToken); !errors.Is(err, ErrTokenRevoked) {
		t.Fatalf("expected ErrTokenRevoked after logout, got %v", err)
	}
	if _, err := engine.Logout(ctx, pair.RefreshToken, false); !errors.Is(err, ErrTokenRevoked) {
		t.Fatalf("expected ErrTokenRevoked on repeated logout, got %v", err)
	}
}

func TestLogoutAllDevicesRevokesEverySession(t *testing.T) {
	engine, mr, done := buildTestEngine(t)
	defer done()
	ctx := context.Background()
	_ = mr

	first := verifiedTokens(t, engine, "+919876543210")
	second := verifiedTokens(t, engine, "+919876543210")

	revoked, err := engine.Logout(ctx, first.RefreshToken, true)
	if err != nil {
		t.Fatalf("Logout failed: %v", err)
	}
	if revoked < 1 {
		t.Fatalf("expected at least one session revoked, got %d", revoked)
	}

	// The other device's refresh token is dead too.
	if _, err := engine.RefreshAccessToken(ctx, second.RefreshToken); !errors.Is(err, ErrTokenRevoked) {
		t.Fatalf("expected ErrTokenRevoked for sibling session, got %v", err)
	}
}

func TestRefreshThrottle(t *testing.T) {
	engine, _, done := buildTestEngine(t, func(cfg *Config) {
		cfg.Security.EnableRefreshThrottle = true
		cfg.Security.MaxRefreshAttempts = 2
	})
	defer done()
	ctx := context.Background()

	pair := verifiedTokens(t, engine, "+919876543210")

	for i := 0; i < 2; i++ {
		if _, err := engine.RefreshAccessToken(ctx, pair.RefreshToken); err != nil {
			t.Fatalf("refresh %d failed: %v", i+1, err)
		}
	}

	if _, err := engine.RefreshAccessToken(ctx, pair.RefreshToken); !errors.Is(err, ErrRefreshRateLimited) {
		t.Fatalf("expected ErrRefreshRateLimited, got %v", err)
	}
}
