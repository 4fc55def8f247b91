package authhttp

import (
	"time"

	goAuthClient "github.com/MrEthical07/goAuthClient"
)

// Wire shapes shared with the backend.

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	OrgID    string `json:"org_id,omitempty"`
}

type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name,omitempty"`
	OrgName  string `json:"org_name,omitempty"`
	Role     string `json:"role,omitempty"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type User struct {
	ID    string `json:"id"`
	OrgID string `json:"org_id,omitempty"`
	Role  string `json:"role,omitempty"`
	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
}

// TokenResponse is returned by login, register and refresh. User may be omitted by refresh.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	// ExpiresAt is the access token expiry in unix seconds. Optional.
	ExpiresAt int64 `json:"expires_at,omitempty"`
	User      *User `json:"user,omitempty"`
}

func (r TokenResponse) pair() goAuthClient.TokenPair {
	pair := goAuthClient.TokenPair{
		AccessToken:  r.AccessToken,
		RefreshToken: r.RefreshToken,
	}
	if r.ExpiresAt > 0 {
		pair.AccessExpiresAt = time.Unix(r.ExpiresAt, 0)
	}
	return pair
}

func (r TokenResponse) result() goAuthClient.AuthResult {
	out := goAuthClient.AuthResult{Tokens: r.pair()}
	if r.User != nil {
		out.Profile = goAuthClient.Profile{
			UserID: r.User.ID,
			OrgID:  r.User.OrgID,
			Role:   r.User.Role,
			Email:  r.User.Email,
			Name:   r.User.Name,
		}
	}
	return out
}

// ErrorResponse is the body of a non-2xx answer.
type ErrorResponse struct {
	Error string `json:"error"`
}
