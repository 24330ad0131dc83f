package goOTP

import (
	"context"
	"errors"
	"testing"
)

func TestIssueEmergencyBypassRequiresOptIn(t *testing.T) {
	engine, _, done := buildTestEngine(t)
	defer done()

	if _, err := engine.IssueEmergencyBypass(context.Background(), "+919876543210", "outage"); err == nil {
		t.Fatal("expected issuance to fail when emergency tokens are disabled")
	}
}

func TestEmergencyBypassEndToEnd(t *testing.T) {
	engine, _, done := buildTestEngine(t, func(cfg *Config) {
		cfg.Bypass.EnableEmergencyTokens = true
	})
	defer done()
	ctx := context.Background()

	token, err := engine.IssueEmergencyBypass(ctx, "9876543210", "hospital outage")
	if err != nil {
		t.Fatalf("IssueEmergencyBypass failed: %v", err)
	}

	if err := engine.ValidateEmergencyBypass(ctx, token, "+919876543210"); err != nil {
		t.Fatalf("ValidateEmergencyBypass failed: %v", err)
	}
	if err := engine.ValidateEmergencyBypass(ctx, token, "+919876543211"); !errors.Is(err, ErrBypassInvalid) {
		t.Fatalf("expected ErrBypassInvalid for wrong identifier, got %v", err)
	}
	if err := engine.ValidateEmergencyBypass(ctx, "unknown-token", "+919876543210"); !errors.Is(err, ErrBypassInvalid) {
		t.Fatalf("expected ErrBypassInvalid for unknown token, got %v", err)
	}

	// A live emergency token routes the whole challenge flow around
	// verification, exactly like an allow-list entry.
	result, err := engine.RequestChallenge(ctx, "+919876543210", PurposeLogin)
	if err != nil {
		t.Fatalf("RequestChallenge failed: %v", err)
	}
	if !result.Bypassed {
		t.Fatalf("expected bypassed challenge result, got %+v", result)
	}

	verify, err := engine.SubmitChallenge(ctx, "+919876543210", "anything")
	if err != nil {
		t.Fatalf("SubmitChallenge failed: %v", err)
	}
	if !verify.Bypassed || verify.Tokens.AccessToken == "" {
		t.Fatalf("expected bypassed verification with tokens, got %+v", verify)
	}
}
