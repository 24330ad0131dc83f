// Package goOTP provides an OTP-based identity verification and session-issuance
// engine: challenge creation and delivery with provider failover, constant-time
// code verification with attempt budgets, abuse rate limiting, a provider
// delivery quota, an audited bypass registry, and JWT access tokens paired with
// revocable opaque refresh tokens — all backed by Redis.
//
// The package is designed for concurrent server workloads: Engine methods are
// safe to call from multiple goroutines after initialization through
// [Builder.Build]. Per-identifier challenge operations are linearized through
// optimistic Redis transactions, so racing verify attempts cannot both consume
// one challenge.
//
// # Architecture boundaries
//
// goOTP is the public surface. It exposes [Engine], [Builder], [Config], and
// value types (ChallengeResult, VerifyResult, TokenPair, MetricsSnapshot).
// Internal coordination — record encoding, rate limiting, audit dispatch —
// lives under internal/ and is never exported. Delivery providers and token
// primitives live in their own sub-packages.
//
// # What this package must NOT do
//
//   - Persist a raw one-time code or refresh secret; only one-way hashes are
//     stored.
//   - Expose Redis clients, internal stores, or encoding details in its public
//     API.
//   - Block a request path on audit delivery; audit is dispatched
//     asynchronously and dropped under backpressure when configured to.
//
// # Performance contract
//
// SubmitChallenge is the hot path. It is bounded by a fixed number of Redis
// round-trips; only delivery to an external provider may block on network I/O,
// and that is bounded by a per-attempt timeout.
package goOTP
