// Package jwt wraps github.com/golang-jwt/jwt/v5 behind the narrow surface
// the engine needs: mint and parse stateless access tokens bound to a
// verified subject.
//
// # What this package must NOT do
//
//   - Touch Redis or any store — access tokens are verifiable by signature
//     and expiry alone.
//   - Accept tokens signed with an algorithm other than the configured one.
package jwt
