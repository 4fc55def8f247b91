package session

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by [Store.Load] when no session is stored.
var ErrNotFound = errors.New("session not found")

// Record is the persisted client session.
type Record struct {
	AccessToken  string
	RefreshToken string

	UserID string
	OrgID  string
	Role   string
	Email  string
	Name   string

	// AccessExpiresAt is the access token expiry in unix seconds, 0 when unknown.
	AccessExpiresAt int64
	UpdatedAt       int64
}

// Clone returns a copy of r, or nil for a nil receiver.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	out := *r
	return &out
}

// WithTokens returns a copy of r carrying a new token pair. The profile is preserved.
func (r *Record) WithTokens(access, refresh string, accessExpiresAt time.Time) *Record {
	out := r.Clone()
	if out == nil {
		out = &Record{}
	}
	out.AccessToken = access
	out.RefreshToken = refresh
	out.AccessExpiresAt = 0
	if !accessExpiresAt.IsZero() {
		out.AccessExpiresAt = accessExpiresAt.Unix()
	}
	out.UpdatedAt = time.Now().Unix()
	return out
}

// Store persists one client session.
type Store interface {
	Load(ctx context.Context) (*Record, error)
	Save(ctx context.Context, rec *Record) error
	Clear(ctx context.Context) error
}
