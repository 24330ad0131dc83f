// Package session persists the stateful half of the token pair: one Record
// per issued refresh token, revocable individually (single-device logout) or
// per subject (logout everywhere).
//
// Access tokens are deliberately absent here — they are stateless and live
// in the jwt package.
//
// # What this package must NOT do
//
//   - Store a raw refresh token or OTP secret (hashes only).
//   - Mint tokens; that is the Engine's job.
package session
