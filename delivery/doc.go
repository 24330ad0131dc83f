// Package delivery sends one-time codes through a priority list of
// channels: the primary telephony gateway, a federated phone-identity
// provider, and a non-delivering local/demo channel.
//
// # Selection policy
//
// Providers are tried strictly in priority order. An unconfigured provider
// is skipped silently. A failed network provider is never retried within
// one request, and at most one network fallback is attempted before
// LocalDemo (when configured into the list) absorbs the send.
//
// # What this package must NOT do
//
//   - Persist anything. Challenge state belongs to the engine's stores.
//   - Retry beyond the single-fallback budget (no unbounded retry loops).
//   - Leak provider identities into caller-facing errors; the engine
//     surfaces only the soft DeliveryDegraded signal.
package delivery
