package goAuthClient

import (
	"errors"
	"fmt"
)

var (
	// ErrUnauthorized is the final failure for a request that was already replayed with a
	// refreshed token and was still rejected.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrSessionExpired is returned to every caller waiting on a refresh that failed. The
	// session store has been cleared and the sign-out trigger invoked.
	ErrSessionExpired = errors.New("session expired")
	// ErrNotAuthenticated reports that no refresh token is stored.
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrRefreshTimeout is the cause wrapped by ErrSessionExpired when the refresh endpoint
	// does not answer within Config.Refresh.Timeout.
	ErrRefreshTimeout = errors.New("refresh timed out")
	// ErrClientNotReady is returned by methods called on a nil or closed Client.
	ErrClientNotReady = errors.New("client not initialized")
	// ErrInvalidRequest is returned for requests without a method or path.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrBodyNotReplayable is returned by Transport when a request body cannot be re-read for
	// the replay after a refresh.
	ErrBodyNotReplayable = errors.New("request body not replayable")
	// ErrInvalidCredentials is returned by Authenticator implementations for rejected logins.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccountExists is returned by Authenticator implementations for duplicate registrations.
	ErrAccountExists = errors.New("account already exists")
	// ErrRefreshRejected is returned by Refresher implementations when the refresh token
	// itself is invalid or expired.
	ErrRefreshRejected = errors.New("refresh token rejected")
)

// AuthError is the final authentication failure of a request. errors.Is(err, ErrUnauthorized)
// holds for every AuthError.
type AuthError struct {
	StatusCode int
	Body       []byte
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("unauthorized: status %d", e.StatusCode)
}

func (e *AuthError) Unwrap() error {
	return ErrUnauthorized
}

func sessionExpired(cause error) error {
	if cause == nil {
		return ErrSessionExpired
	}
	return fmt.Errorf("%w: %w", ErrSessionExpired, cause)
}
