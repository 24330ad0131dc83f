// Package internal contains helper utilities that are intentionally private
// to goOTP, including secure random generation, code hashing, and the opaque
// refresh-token codec.
//
// # Sub-packages
//
//   - audit — async event dispatch (Dispatcher + Sink implementations)
//   - rate — core Redis-backed rate limit primitive for refresh throttling
//
// # What this package must NOT do
//
//   - Export types that appear in the public goOTP API.
//   - Be imported by any package outside the goOTP module.
package internal
