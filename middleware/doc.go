// Package middleware exposes server-side HTTP guards that verify bearer access tokens.
//
// # Guards
//
//   - [Guard] verifies the Authorization header and injects the claims into the request context.
//   - [RequireRole] additionally restricts a route to a set of roles.
//
// The guards answer 401 for missing, malformed, expired or revoked tokens, which is exactly
// the signal the goAuthClient dispatcher reacts to, and 403 for a valid token with the
// wrong role, which it does not.
//
// # What this package must NOT do
//
//   - Parse or create JWTs directly (delegates to the [Verifier]).
//   - Access Redis.
package middleware
