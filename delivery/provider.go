package delivery

import (
	"context"
	"errors"
)

// Message is the payload handed to a provider. Body is the rendered text;
// Code is carried separately so non-delivering providers can surface it.
type Message struct {
	Code string
	Body string
}

// Result reports the outcome of one delivery attempt.
type Result struct {
	Accepted    bool
	Channel     string
	ProviderRef string
	// DemoCode is populated only by LocalDemo: the code is handed back to
	// the caller for console/log display instead of being delivered.
	DemoCode string
}

// Provider is the uniform capability every delivery channel implements.
type Provider interface {
	// Name identifies the channel in results and audit metadata.
	Name() string
	// Configured is the pre-flight check: a provider that is not fully
	// configured is skipped without counting as a failure.
	Configured() bool
	// Send delivers the message to the identifier. Implementations must
	// honor ctx cancellation; network providers are bounded by the
	// orchestrator's per-attempt timeout.
	Send(ctx context.Context, identifier string, msg Message) (Result, error)
}

var (
	// ErrNotConfigured is returned by Send when the provider's pre-flight
	// check fails.
	ErrNotConfigured = errors.New("delivery provider not configured")
	// ErrSendFailed wraps provider transport failures.
	ErrSendFailed = errors.New("delivery send failed")
	// ErrNoProviderAvailable is returned when every configured provider in
	// the priority list failed.
	ErrNoProviderAvailable = errors.New("no delivery provider available")
)
