package goOTP

import (
	"context"
	"io"
	"time"

	"github.com/rs/zerolog"

	internalaudit "github.com/MrEthical07/goOTP/internal/audit"
)

// ChallengePurpose states why a challenge was requested. It is persisted
// with the challenge and echoed into the minted token claims.
type ChallengePurpose uint8

const (
	// PurposeLogin verifies an identifier that should already have a subject.
	PurposeLogin ChallengePurpose = iota + 1
	// PurposeRegistration verifies an identifier that is enrolling.
	PurposeRegistration
)

func (p ChallengePurpose) String() string {
	switch p {
	case PurposeLogin:
		return "login"
	case PurposeRegistration:
		return "registration"
	default:
		return "unknown"
	}
}

// ChallengeResult reports the outcome of [Engine.RequestChallenge].
type ChallengeResult struct {
	// Accepted is true when a challenge was stored; it stays true on a
	// degraded delivery.
	Accepted bool
	// Bypassed is true when the identifier skips verification entirely; no
	// challenge was stored and no code was sent.
	Bypassed bool
	// Degraded is true when no provider acknowledged delivery but the
	// challenge remains valid.
	Degraded bool
	// FellBack is true when a non-primary provider served the send.
	FellBack bool
	// Channel names the provider that accepted the send.
	Channel string
	// Cooldown is how long the caller must wait before the next request for
	// this identifier.
	Cooldown time.Duration
	// DemoCode carries the raw code when the local/demo channel absorbed
	// the send. Empty for network deliveries.
	DemoCode string
}

// VerifyResult reports the outcome of a successful [Engine.SubmitChallenge].
type VerifyResult struct {
	// Bypassed is true when verification was skipped by the bypass registry.
	Bypassed bool
	// SubjectID is the resolved subject for the verified identifier.
	SubjectID string
	// Tokens is the minted credential pair.
	Tokens TokenPair
}

// TokenPair is a minted access + refresh credential pair.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	IssuedAt     time.Time
	AccessTTL    time.Duration
	RefreshTTL   time.Duration
}

// Subject is a resolved identity from the [SubjectDirectory].
type Subject struct {
	ID string
	// Kind is the directory's classification of the subject (for example
	// "patient" or "staff"); it is carried into access-token claims.
	Kind string
	// Claims are extra key/value pairs copied into the access token.
	Claims map[string]string
}

// SubjectDirectory resolves a verified identifier to a subject. It is
// called only after successful verification or bypass, never before.
type SubjectDirectory interface {
	FindOrCreateSubject(ctx context.Context, identifier string, purpose ChallengePurpose) (Subject, error)
}

/*
====================================
AUDIT RE-EXPORTS
====================================
*/

// AuditEvent is the event model delivered to audit sinks.
type AuditEvent = internalaudit.Event

// AuditSink receives audit events. Implementations must never block the
// caller's primary operation for long; the engine already dispatches
// asynchronously.
type AuditSink = internalaudit.Sink

// NoOpAuditSink drops all audit events.
type NoOpAuditSink = internalaudit.NoOpSink

// NewChannelAuditSink returns a sink that forwards events into a buffered
// channel, readable via Events().
func NewChannelAuditSink(buffer int) *internalaudit.ChannelSink {
	return internalaudit.NewChannelSink(buffer)
}

// NewJSONAuditSink returns a sink that writes one JSON object per line.
func NewJSONAuditSink(w io.Writer) *internalaudit.JSONWriterSink {
	return internalaudit.NewJSONWriterSink(w)
}

// NewRingAuditSink returns a sink retaining the last capacity events in
// memory, readable via Snapshot().
func NewRingAuditSink(capacity int) *internalaudit.RingSink {
	return internalaudit.NewRingSink(capacity)
}

// NewZerologAuditSink returns a sink that logs events through zerolog,
// warn level for failures and info otherwise.
func NewZerologAuditSink(logger zerolog.Logger) *internalaudit.ZerologSink {
	return internalaudit.NewZerologSink(logger)
}
