package goOTP

import (
	"testing"
	"time"
)

func TestDefaultConfigValidates(t *testing.T) {
	cfg := DefaultConfig()
	cfg.JWT.SigningMethod = "hs256"
	cfg.JWT.PrivateKey = []byte("0123456789abcdef0123456789abcdef")

	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config with signing key must validate: %v", err)
	}
}

func TestValidateRejectsBadConfig(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero access ttl", func(c *Config) { c.JWT.AccessTTL = 0 }},
		{"refresh shorter than access", func(c *Config) { c.JWT.RefreshTTL = time.Minute; c.JWT.AccessTTL = time.Hour }},
		{"unknown signing method", func(c *Config) { c.JWT.SigningMethod = "rs256" }},
		{"ed25519 without key", func(c *Config) { c.JWT.SigningMethod = "ed25519"; c.JWT.PrivateKey = nil }},
		{"zero challenge ttl", func(c *Config) { c.Challenge.TTL = 0 }},
		{"cooldown longer than ttl", func(c *Config) { c.Challenge.ResendCooldown = 11 * time.Minute }},
		{"zero attempts", func(c *Config) { c.Challenge.MaxAttempts = 0 }},
		{"too many attempts", func(c *Config) { c.Challenge.MaxAttempts = 11 }},
		{"short otp", func(c *Config) { c.Challenge.OTPDigits = 3 }},
		{"long otp", func(c *Config) { c.Challenge.OTPDigits = 11 }},
		{"zero request window", func(c *Config) { c.RateLimit.RequestWindow = 0 }},
		{"zero request budget", func(c *Config) { c.RateLimit.MaxRequestsPerIdentifier = 0 }},
		{"negative quota limit", func(c *Config) { c.Quota.Enabled = true; c.Quota.GlobalDaily = -1 }},
		{"negative bypass ttl", func(c *Config) { c.Bypass.EmergencyTokenTTL = -time.Hour }},
		{"zero refresh attempts", func(c *Config) { c.Security.MaxRefreshAttempts = 0 }},
		{"audit without buffer", func(c *Config) { c.Audit.Enabled = true; c.Audit.BufferSize = 0 }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.JWT.SigningMethod = "hs256"
			cfg.JWT.PrivateKey = []byte("0123456789abcdef0123456789abcdef")
			tc.mutate(&cfg)

			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation to fail")
			}
		})
	}
}

func TestCloneConfigIsDeep(t *testing.T) {
	cfg := DefaultConfig()
	cfg.JWT.PrivateKey = []byte("private")
	cfg.JWT.PublicKey = []byte("public")
	cfg.JWT.VerifyKeys = map[string][]byte{"k1": []byte("verify")}
	cfg.Bypass.AllowList = []string{"+919876543210"}

	clone := cloneConfig(cfg)

	cfg.JWT.PrivateKey[0] = 'X'
	cfg.JWT.VerifyKeys["k1"][0] = 'X'
	cfg.Bypass.AllowList[0] = "changed"

	if clone.JWT.PrivateKey[0] == 'X' {
		t.Fatal("private key not deep copied")
	}
	if clone.JWT.VerifyKeys["k1"][0] == 'X' {
		t.Fatal("verify keys not deep copied")
	}
	if clone.Bypass.AllowList[0] == "changed" {
		t.Fatal("allow list not deep copied")
	}
}
