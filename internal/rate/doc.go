// Package rate provides the Redis-backed fixed-window primitive used to
// throttle refresh-token replay against the token issuer.
//
// # Window semantics
//
// Fixed-window counters: INCR + conditional EXPIRE on first hit. Key prefix:
//   - otrl: — refresh per-session
//
// Challenge-request and verify-attempt windows are domain policy and live in
// the root package (challenge_limiter.go), not here.
//
// # What this package must NOT do
//
//   - Implement domain-specific policies.
//   - Be imported outside the goOTP module.
package rate
