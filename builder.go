package goOTP

import (
	"errors"

	"github.com/redis/go-redis/v9"

	"github.com/MrEthical07/goOTP/delivery"
	internalaudit "github.com/MrEthical07/goOTP/internal/audit"
	"github.com/MrEthical07/goOTP/internal/rate"
	"github.com/MrEthical07/goOTP/jwt"
	"github.com/MrEthical07/goOTP/session"
)

// Builder assembles an [Engine]. Configure it with the With* methods and
// call Build exactly once.
type Builder struct {
	config Config
	redis  redis.UniversalClient

	subjects  SubjectDirectory
	auditSink AuditSink
	providers []delivery.Provider

	built bool
}

// New returns a Builder seeded with the default configuration.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the whole configuration tree.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis sets the backing store client. Required.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithSubjectDirectory sets the identity resolver called after successful
// verification. Required.
func (b *Builder) WithSubjectDirectory(dir SubjectDirectory) *Builder {
	b.subjects = dir
	return b
}

// WithAuditSink sets the sink receiving audit events. Enabling audit
// without a sink drops every event.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithProviders overrides the delivery priority list built from
// DeliveryConfig. The first provider is primary; order matters.
func (b *Builder) WithProviders(providers ...delivery.Provider) *Builder {
	b.providers = providers
	return b
}

// WithMetricsEnabled toggles the in-process metrics system.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms toggles the verify-latency histogram.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration, wires every component, and returns
// the ready engine.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)

	if b.redis == nil {
		return nil, errors.New("redis client required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if b.subjects == nil {
		return nil, errors.New("subject directory required")
	}

	// -------- DELIVERY --------
	providers := b.providers
	if len(providers) == 0 {
		providers = append(providers,
			delivery.NewGateway(cfg.Delivery.Gateway),
			delivery.NewFederated(cfg.Delivery.Federated),
		)
		if cfg.Delivery.EnableLocalDemo {
			providers = append(providers, delivery.NewLocalDemo())
		}
	}

	orchestrator := delivery.NewOrchestrator(delivery.OrchestratorConfig{
		AttemptTimeout: cfg.Delivery.AttemptTimeout,
	}, providers...)

	// -------- BYPASS --------
	bypass, err := newBypassStore(b.redis, cfg.Bypass)
	if err != nil {
		return nil, err
	}

	// -------- JWT --------
	jwtManager, err := jwt.NewManager(jwt.Config{
		AccessTTL:     cfg.JWT.AccessTTL,
		SigningMethod: jwt.SigningMethod(cfg.JWT.SigningMethod),
		PrivateKey:    cfg.JWT.PrivateKey,
		PublicKey:     cfg.JWT.PublicKey,
		Issuer:        cfg.JWT.Issuer,
		Audience:      cfg.JWT.Audience,
		KeyID:         cfg.JWT.KeyID,
		VerifyKeys:    cfg.JWT.VerifyKeys,
	})
	if err != nil {
		return nil, err
	}

	// -------- AUDIT --------
	dispatcher := internalaudit.NewDispatcher(internalaudit.Config{
		Enabled:    cfg.Audit.Enabled,
		BufferSize: cfg.Audit.BufferSize,
		DropIfFull: cfg.Audit.DropIfFull,
	}, b.auditSink)

	engine := &Engine{
		config:       cfg,
		challenges:   newChallengeStore(b.redis),
		limiter:      newChallengeLimiter(b.redis, cfg.RateLimit),
		quota:        newQuotaMonitor(b.redis, cfg.Quota),
		bypass:       bypass,
		orchestrator: orchestrator,
		sessions:     session.NewStore(b.redis, ""),
		refreshRate: rate.New(b.redis, rate.Config{
			EnableRefreshThrottle:   cfg.Security.EnableRefreshThrottle,
			MaxRefreshAttempts:      cfg.Security.MaxRefreshAttempts,
			RefreshCooldownDuration: cfg.Security.RefreshCooldownDuration,
		}),
		jwtManager: jwtManager,
		subjects:   b.subjects,
		audit:      dispatcher,
		metrics:    NewMetrics(cfg.Metrics),
	}

	b.built = true
	return engine, nil
}
