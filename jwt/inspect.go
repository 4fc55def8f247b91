package jwt

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrNoExpiry is returned by [Inspect] when the token carries no exp claim.
var ErrNoExpiry = errors.New("token has no exp claim")

// Inspection is what a client may learn from an access token without its verification key.
type Inspection struct {
	Subject   string
	ExpiresAt time.Time
	IssuedAt  time.Time
}

// ExpiresWithin reports whether the token expires at or before now+window.
func (i Inspection) ExpiresWithin(now time.Time, window time.Duration) bool {
	return !i.ExpiresAt.After(now.Add(window))
}

// Inspect decodes the registered claims of tokenStr WITHOUT verifying its signature.
//
// The result is only suitable for scheduling a refresh ahead of expiry. Servers must use
// [Manager.ParseAccess].
func Inspect(tokenStr string) (Inspection, error) {
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(tokenStr, &claims); err != nil {
		return Inspection{}, err
	}
	if claims.ExpiresAt == nil {
		return Inspection{}, ErrNoExpiry
	}

	out := Inspection{
		Subject:   claims.Subject,
		ExpiresAt: claims.ExpiresAt.Time,
	}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Time
	}
	return out, nil
}
