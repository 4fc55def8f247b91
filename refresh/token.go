package refresh

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
)

// SecretSize is the length of the random part of a refresh token.
const SecretSize = 32

const tokenRawSize = 16 + SecretSize

// ErrMalformed is returned by [Decode] and [ParseSessionID] for structurally invalid input.
var ErrMalformed = errors.New("malformed refresh token")

// SessionID identifies the server-side session a refresh token belongs to.
type SessionID [16]byte

// Secret is the random part of a refresh token.
type Secret [SecretSize]byte

// NewSessionID returns a random session ID.
func NewSessionID() (SessionID, error) {
	var sid SessionID
	_, err := rand.Read(sid[:])
	return sid, err
}

func (s SessionID) String() string {
	// base64url, no padding, compact
	return base64.RawURLEncoding.EncodeToString(s[:])
}

// ParseSessionID decodes the string form produced by [SessionID.String].
func ParseSessionID(sessionID string) (SessionID, error) {
	var sid SessionID

	raw, err := base64.RawURLEncoding.DecodeString(sessionID)
	if err != nil {
		return sid, ErrMalformed
	}
	if len(raw) != len(sid) {
		return sid, ErrMalformed
	}

	copy(sid[:], raw)
	return sid, nil
}

// NewSecret returns a random refresh secret.
func NewSecret() (Secret, error) {
	var secret Secret
	_, err := rand.Read(secret[:])
	return secret, err
}

// HashSecret returns the value an issuer should persist in place of the secret.
func HashSecret(secret Secret) [32]byte {
	return sha256.Sum256(secret[:])
}

// Matches reports whether secret hashes to want in constant time.
func Matches(secret Secret, want [32]byte) bool {
	got := HashSecret(secret)
	return subtle.ConstantTimeCompare(got[:], want[:]) == 1
}

// Encode packs a session ID and secret into an opaque token string.
func Encode(sessionID string, secret Secret) (string, error) {
	sid, err := ParseSessionID(sessionID)
	if err != nil {
		return "", err
	}

	var raw [tokenRawSize]byte
	copy(raw[:len(sid)], sid[:])
	copy(raw[len(sid):], secret[:])

	return base64.RawURLEncoding.EncodeToString(raw[:]), nil
}

// Decode splits a token produced by [Encode] back into its session ID and secret.
func Decode(token string) (string, Secret, error) {
	var secret Secret

	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return "", secret, ErrMalformed
	}
	if len(raw) != tokenRawSize {
		return "", secret, ErrMalformed
	}

	var sid SessionID
	copy(sid[:], raw[:len(sid)])
	copy(secret[:], raw[len(sid):])

	return sid.String(), secret, nil
}
