// Package session persists the client side of an authenticated session: the current
// access/refresh token pair and the cached user/organization profile.
//
// # Binary encoding
//
// Records are stored in Redis in a compact binary format. The first byte is the schema
// version (1 is the first released format) and every string carries a uint16 byte length,
// so profile fields hold multi-byte names well past 255 bytes. Decode rejects unknown
// versions; a new version must add fields and never reinterpret old ones.
//
// # Architecture boundaries
//
// This package owns the [Record] model, its codec, and the [MemoryStore] and [RedisStore]
// implementations. It does NOT decide when tokens are refreshed or cleared; that belongs
// to the goAuthClient dispatcher.
//
// # What this package must NOT do
//
//   - Import goAuthClient or jwt (no upward imports).
//   - Log or otherwise expose token values.
package session
