package goOTP

import (
	"errors"
	"time"

	"github.com/MrEthical07/goOTP/delivery"
)

// Config is the full engine configuration tree. Instances are set up once
// before Build and treated as immutable afterwards; the engine keeps its
// own clone.
type Config struct {
	Challenge ChallengeConfig
	RateLimit RateLimitConfig
	Quota     QuotaConfig
	Bypass    BypassConfig
	Delivery  DeliveryConfig
	JWT       JWTConfig
	Security  SecurityConfig
	Audit     AuditConfig
	Metrics   MetricsConfig
}

/*
====================================
CHALLENGE CONFIG
====================================
*/

// ChallengeConfig tunes challenge lifecycle: code shape, attempt budget,
// expiry, and the minimum resend interval.
type ChallengeConfig struct {
	// TTL is how long a pending challenge stays verifiable.
	TTL time.Duration
	// ResendCooldown is the minimum interval between challenge creations
	// for one identifier. It holds even after the prior challenge was
	// consumed or expired.
	ResendCooldown time.Duration
	// MaxAttempts is the wrong-code budget before the challenge is deleted.
	MaxAttempts int
	// OTPDigits is the code width, 4 to 10.
	OTPDigits int
	// MessageTemplate is the delivery body; the code replaces the first %s.
	MessageTemplate string
}

/*
====================================
RATE LIMIT CONFIG
====================================
*/

// RateLimitConfig tunes the abuse throttles on challenge requests and
// verify attempts. These protect against brute force and flooding; the
// delivery budget is QuotaConfig's concern.
type RateLimitConfig struct {
	EnableIPThrottle         bool
	EnableIdentifierThrottle bool

	MaxRequestsPerIdentifier int
	MaxRequestsPerIP         int
	RequestWindow            time.Duration

	MaxVerifiesPerIdentifier int
	MaxVerifiesPerIP         int
	VerifyWindow             time.Duration
}

/*
====================================
QUOTA CONFIG
====================================
*/

// QuotaConfig is the delivery-provider budget at three granularities and
// two scopes. A zero limit disables that bucket.
type QuotaConfig struct {
	Enabled bool

	PerIdentifierHourly  int64
	PerIdentifierDaily   int64
	PerIdentifierMonthly int64

	GlobalHourly  int64
	GlobalDaily   int64
	GlobalMonthly int64
}

/*
====================================
BYPASS CONFIG
====================================
*/

// BypassConfig controls which identifiers may skip verification.
type BypassConfig struct {
	// AllowList holds identifiers (any accepted raw form) that permanently
	// skip challenge delivery and verification. Entries are normalized at
	// Build time; a malformed entry fails Build.
	AllowList []string
	// EnableEmergencyTokens turns on time-boxed single-identifier bypass
	// tokens.
	EnableEmergencyTokens bool
	// EmergencyTokenTTL bounds emergency token validity. Zero means 24h.
	EmergencyTokenTTL time.Duration
}

/*
====================================
DELIVERY CONFIG
====================================
*/

// DeliveryConfig wires the provider priority list. An unconfigured
// provider is skipped; with EnableLocalDemo set, LocalDemo terminates the
// list and absorbs sends no network provider accepted.
type DeliveryConfig struct {
	Gateway         delivery.GatewayConfig
	Federated       delivery.FederatedConfig
	EnableLocalDemo bool
	// AttemptTimeout bounds each provider attempt. Zero means 10s.
	AttemptTimeout time.Duration
}

/*
====================================
JWT CONFIG
====================================
*/

// JWTConfig holds token TTLs and signing material.
type JWTConfig struct {
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	SigningMethod string // "ed25519" (default), "hs256" optional
	PrivateKey    []byte
	PublicKey     []byte
	Issuer        string
	Audience      string
	KeyID         string
	VerifyKeys    map[string][]byte
}

/*
====================================
SECURITY CONFIG
====================================
*/

// SecurityConfig holds the refresh throttle settings.
type SecurityConfig struct {
	EnableRefreshThrottle   bool
	MaxRefreshAttempts      int
	RefreshCooldownDuration time.Duration
}

/*
====================================
AUDIT CONFIG
====================================
*/

// AuditConfig controls the async audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

/*
====================================
METRICS CONFIG
====================================
*/

// MetricsConfig controls the in-process metrics system.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

/*
====================================
DEFAULT CONFIG
====================================
*/

// DefaultConfig returns the configuration tree a fresh [Builder] starts
// from.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		Challenge: ChallengeConfig{
			TTL:             10 * time.Minute,
			ResendCooldown:  60 * time.Second,
			MaxAttempts:     3,
			OTPDigits:       6,
			MessageTemplate: "Your verification code is %s",
		},
		RateLimit: RateLimitConfig{
			EnableIPThrottle:         true,
			EnableIdentifierThrottle: true,
			MaxRequestsPerIdentifier: 5,
			MaxRequestsPerIP:         5,
			RequestWindow:            15 * time.Minute,
			MaxVerifiesPerIdentifier: 10,
			MaxVerifiesPerIP:         20,
			VerifyWindow:             15 * time.Minute,
		},
		Quota: QuotaConfig{
			Enabled:              false,
			PerIdentifierHourly:  5,
			PerIdentifierDaily:   10,
			PerIdentifierMonthly: 50,
			GlobalHourly:         1000,
			GlobalDaily:          10000,
			GlobalMonthly:        100000,
		},
		Bypass: BypassConfig{
			EnableEmergencyTokens: false,
			EmergencyTokenTTL:     24 * time.Hour,
		},
		Delivery: DeliveryConfig{
			EnableLocalDemo: true,
			AttemptTimeout:  10 * time.Second,
		},
		JWT: JWTConfig{
			AccessTTL:     5 * time.Minute,
			RefreshTTL:    7 * 24 * time.Hour,
			SigningMethod: "ed25519",
		},
		Security: SecurityConfig{
			EnableRefreshThrottle:   true,
			MaxRefreshAttempts:      20,
			RefreshCooldownDuration: 1 * time.Minute,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.JWT.PrivateKey = cloneBytes(cfg.JWT.PrivateKey)
	out.JWT.PublicKey = cloneBytes(cfg.JWT.PublicKey)
	if len(cfg.JWT.VerifyKeys) > 0 {
		out.JWT.VerifyKeys = make(map[string][]byte, len(cfg.JWT.VerifyKeys))
		for kid, key := range cfg.JWT.VerifyKeys {
			out.JWT.VerifyKeys[kid] = cloneBytes(key)
		}
	}
	if len(cfg.Bypass.AllowList) > 0 {
		out.Bypass.AllowList = append([]string(nil), cfg.Bypass.AllowList...)
	}
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

/*
====================================
VALIDATION
====================================
*/

// Validate checks the configuration for internal consistency. Build calls
// it; direct callers may use it to fail fast.
func (c *Config) Validate() error {
	// JWT
	if c.JWT.AccessTTL <= 0 {
		return errors.New("JWT AccessTTL must be > 0")
	}
	if c.JWT.RefreshTTL <= 0 {
		return errors.New("JWT RefreshTTL must be > 0")
	}
	if c.JWT.RefreshTTL < c.JWT.AccessTTL {
		return errors.New("JWT RefreshTTL must be >= AccessTTL")
	}

	if c.JWT.SigningMethod != "ed25519" && c.JWT.SigningMethod != "hs256" {
		return errors.New("unsupported JWT signing method")
	}
	if c.JWT.SigningMethod == "ed25519" && len(c.JWT.PrivateKey) == 0 {
		return errors.New("ed25519 requires PrivateKey")
	}
	if c.JWT.SigningMethod == "ed25519" && len(c.JWT.PublicKey) == 0 && len(c.JWT.VerifyKeys) == 0 {
		return errors.New("ed25519 requires PublicKey or VerifyKeys")
	}
	if c.JWT.SigningMethod == "hs256" && len(c.JWT.PrivateKey) == 0 {
		return errors.New("hs256 requires PrivateKey")
	}

	// Challenge
	if c.Challenge.TTL <= 0 {
		return errors.New("Challenge TTL must be > 0")
	}
	if c.Challenge.ResendCooldown < 0 {
		return errors.New("Challenge ResendCooldown must be >= 0")
	}
	if c.Challenge.ResendCooldown > c.Challenge.TTL {
		return errors.New("Challenge ResendCooldown must be <= TTL")
	}
	if c.Challenge.MaxAttempts <= 0 || c.Challenge.MaxAttempts > 10 {
		return errors.New("Challenge MaxAttempts must be between 1 and 10")
	}
	if c.Challenge.OTPDigits < 4 || c.Challenge.OTPDigits > 10 {
		return errors.New("Challenge OTPDigits must be between 4 and 10")
	}

	// Rate limits
	if c.RateLimit.EnableIdentifierThrottle || c.RateLimit.EnableIPThrottle {
		if c.RateLimit.RequestWindow <= 0 {
			return errors.New("RateLimit RequestWindow must be > 0")
		}
		if c.RateLimit.VerifyWindow <= 0 {
			return errors.New("RateLimit VerifyWindow must be > 0")
		}
	}
	if c.RateLimit.EnableIdentifierThrottle {
		if c.RateLimit.MaxRequestsPerIdentifier <= 0 {
			return errors.New("RateLimit MaxRequestsPerIdentifier must be > 0")
		}
		if c.RateLimit.MaxVerifiesPerIdentifier <= 0 {
			return errors.New("RateLimit MaxVerifiesPerIdentifier must be > 0")
		}
	}
	if c.RateLimit.EnableIPThrottle {
		if c.RateLimit.MaxRequestsPerIP <= 0 {
			return errors.New("RateLimit MaxRequestsPerIP must be > 0")
		}
		if c.RateLimit.MaxVerifiesPerIP <= 0 {
			return errors.New("RateLimit MaxVerifiesPerIP must be > 0")
		}
	}

	// Quota
	if c.Quota.Enabled {
		for _, limit := range []int64{
			c.Quota.PerIdentifierHourly, c.Quota.PerIdentifierDaily, c.Quota.PerIdentifierMonthly,
			c.Quota.GlobalHourly, c.Quota.GlobalDaily, c.Quota.GlobalMonthly,
		} {
			if limit < 0 {
				return errors.New("Quota limits must be >= 0")
			}
		}
	}

	// Bypass
	if c.Bypass.EmergencyTokenTTL < 0 {
		return errors.New("Bypass EmergencyTokenTTL must be >= 0")
	}

	// Delivery
	if c.Delivery.AttemptTimeout < 0 {
		return errors.New("Delivery AttemptTimeout must be >= 0")
	}

	// Security
	if c.Security.EnableRefreshThrottle {
		if c.Security.MaxRefreshAttempts <= 0 {
			return errors.New("Security MaxRefreshAttempts must be > 0")
		}
		if c.Security.RefreshCooldownDuration <= 0 {
			return errors.New("Security RefreshCooldownDuration must be > 0")
		}
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0")
	}

	return nil
}
