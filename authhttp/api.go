package authhttp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	goAuthClient "github.com/MrEthical07/goAuthClient"
)

const maxBodyBytes = 1 << 20

// Paths are the endpoint paths under the base URL.
type Paths struct {
	Login    string
	Register string
	Refresh  string
	Logout   string
}

// DefaultPaths returns the /auth/* layout.
func DefaultPaths() Paths {
	return Paths{
		Login:    "/auth/login",
		Register: "/auth/register",
		Refresh:  "/auth/refresh",
		Logout:   "/auth/logout",
	}
}

// API is a JSON client for the auth endpoints.
type API struct {
	base  string
	doer  goAuthClient.Doer
	paths Paths
}

type Option func(*API)

// WithDoer replaces the HTTP client. It must not be the authenticated client's transport.
func WithDoer(d goAuthClient.Doer) Option {
	return func(a *API) {
		if d != nil {
			a.doer = d
		}
	}
}

func WithPaths(p Paths) Option {
	return func(a *API) {
		a.paths = p
	}
}

// New returns an API rooted at baseURL.
func New(baseURL string, opts ...Option) *API {
	a := &API{
		base:  strings.TrimRight(baseURL, "/"),
		doer:  &http.Client{Timeout: 15 * time.Second},
		paths: DefaultPaths(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Refresh exchanges refreshToken for a new pair. 401 and 403 map to ErrRefreshRejected.
func (a *API) Refresh(ctx context.Context, refreshToken string) (goAuthClient.TokenPair, error) {
	var out TokenResponse
	if err := a.post(ctx, "refresh", a.paths.Refresh, RefreshRequest{RefreshToken: refreshToken}, &out); err != nil {
		return goAuthClient.TokenPair{}, err
	}
	return out.pair(), nil
}

// Login maps 401 to ErrInvalidCredentials.
func (a *API) Login(ctx context.Context, creds goAuthClient.Credentials) (goAuthClient.AuthResult, error) {
	var out TokenResponse
	err := a.post(ctx, "login", a.paths.Login, LoginRequest{
		Email:    creds.Email,
		Password: creds.Password,
		OrgID:    creds.OrgID,
	}, &out)
	if err != nil {
		return goAuthClient.AuthResult{}, err
	}
	return out.result(), nil
}

// Register maps 409 to ErrAccountExists.
func (a *API) Register(ctx context.Context, reg goAuthClient.Registration) (goAuthClient.AuthResult, error) {
	var out TokenResponse
	err := a.post(ctx, "register", a.paths.Register, RegisterRequest{
		Email:    reg.Email,
		Password: reg.Password,
		Name:     reg.Name,
		OrgName:  reg.OrgName,
		Role:     reg.Role,
	}, &out)
	if err != nil {
		return goAuthClient.AuthResult{}, err
	}
	return out.result(), nil
}

func (a *API) Logout(ctx context.Context, refreshToken string) error {
	return a.post(ctx, "logout", a.paths.Logout, RefreshRequest{RefreshToken: refreshToken}, nil)
}

func (a *API) post(ctx context.Context, op, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("%s: encode request: %w", op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.base+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := a.doer.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("%s: read response: %w", op, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return newStatusError(op, resp.StatusCode, data)
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%s: decode response: %w", op, err)
	}
	return nil
}
