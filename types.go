package goAuthClient

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// TokenPair is an access/refresh token pair as returned by the auth backend.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	// AccessExpiresAt is optional. When zero the client reads the exp claim of the access token.
	AccessExpiresAt time.Time
}

// Profile is the cached identity of the signed-in user.
type Profile struct {
	UserID string
	OrgID  string
	Role   string
	Email  string
	Name   string
}

// Credentials identify a user at login.
type Credentials struct {
	Email    string
	Password string
	// OrgID selects the organization for users that belong to several. Optional.
	OrgID string
}

// Registration describes a new account.
type Registration struct {
	Email    string
	Password string
	Name     string
	OrgName  string
	Role     string
}

// AuthResult is what a successful login or registration yields.
type AuthResult struct {
	Tokens  TokenPair
	Profile Profile
}

// Refresher exchanges a refresh token for a new pair. Any error is terminal for the session.
type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (TokenPair, error)
}

// Authenticator performs the session-creating and session-ending calls.
type Authenticator interface {
	Login(ctx context.Context, creds Credentials) (AuthResult, error)
	Register(ctx context.Context, reg Registration) (AuthResult, error)
	Logout(ctx context.Context, refreshToken string) error
}

// Doer sends HTTP requests. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// SignOutFunc is invoked once per terminal refresh failure, after the session store has been
// cleared and every waiting request rejected.
type SignOutFunc func(ctx context.Context, cause error)

// Request is an API call issued through [Client.Do]. Body is kept as bytes so the request can
// be replayed after a refresh.
type Request struct {
	Method string
	// Path is joined onto Config.Request.BaseURL unless it is an absolute URL.
	Path   string
	Header http.Header
	Body   []byte
}

// Response is a fully read API response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// DecodeJSON unmarshals the response body into v.
func (r *Response) DecodeJSON(v any) error {
	return json.Unmarshal(r.Body, v)
}

// OK reports a 2xx status.
func (r *Response) OK() bool {
	return r != nil && r.StatusCode >= 200 && r.StatusCode < 300
}
