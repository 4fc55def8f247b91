// Package refresh implements encoding and decoding of opaque rotating refresh tokens.
//
// # Token format
//
// Opaque base64url-encoded tokens containing a 16-byte session ID followed by a 32-byte
// random secret. Issuers never store the token itself, only [HashSecret] of the secret.
//
// # Architecture boundaries
//
// This package owns token encoding/decoding and structural validation. Rotation policy
// and reuse detection belong to the issuing server (see the authtest package).
//
// # What this package must NOT do
//
//   - Access Redis or any I/O.
//   - Import goAuthClient, jwt, or session.
package refresh
