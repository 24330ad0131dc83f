package delivery

import (
	"context"
	"errors"
	"time"
)

// OrchestratorConfig tunes provider selection and attempt bounds.
type OrchestratorConfig struct {
	// AttemptTimeout bounds each provider attempt. Zero means 10 seconds.
	AttemptTimeout time.Duration
	// MaxFallbacks caps how many non-primary network providers may be tried
	// after the first failure. Zero means one; LocalDemo never counts
	// against it.
	MaxFallbacks int
}

// Orchestrator walks an explicit priority list of providers. Unconfigured
// providers are skipped; a failing provider is never retried within one
// request; at most one network fallback happens before a terminal
// LocalDemo (when present) absorbs the send.
type Orchestrator struct {
	providers []Provider
	config    OrchestratorConfig
}

func NewOrchestrator(cfg OrchestratorConfig, providers ...Provider) *Orchestrator {
	if cfg.AttemptTimeout <= 0 {
		cfg.AttemptTimeout = 10 * time.Second
	}
	if cfg.MaxFallbacks <= 0 {
		cfg.MaxFallbacks = 1
	}
	return &Orchestrator{
		providers: providers,
		config:    cfg,
	}
}

// Providers returns the priority list, for diagnostics.
func (o *Orchestrator) Providers() []string {
	names := make([]string, 0, len(o.providers))
	for _, p := range o.providers {
		names = append(names, p.Name())
	}
	return names
}

// Deliver attempts the priority list in order and returns the first
// accepted result. The error is non-nil only when every provider failed or
// none was configured; callers are expected to downgrade that to a soft
// failure rather than rejecting the request.
func (o *Orchestrator) Deliver(ctx context.Context, identifier string, msg Message) (Result, bool, error) {
	var lastErr error
	networkFailures := 0
	attempted := 0

	for _, p := range o.providers {
		if !p.Configured() {
			continue
		}

		if _, isDemo := p.(*LocalDemo); !isDemo && networkFailures > o.config.MaxFallbacks {
			break
		}

		attemptCtx, cancel := context.WithTimeout(ctx, o.config.AttemptTimeout)
		result, err := p.Send(attemptCtx, identifier, msg)
		cancel()

		if err == nil && result.Accepted {
			return result, attempted > 0, nil
		}

		attempted++
		networkFailures++
		if err == nil {
			err = ErrSendFailed
		}
		lastErr = err

		if errors.Is(ctx.Err(), context.Canceled) {
			break
		}
	}

	if lastErr == nil {
		lastErr = ErrNoProviderAvailable
	}
	return Result{}, attempted > 0, lastErr
}
