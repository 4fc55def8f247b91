package goAuthClient

import (
	"context"
	"errors"
	"fmt"

	"github.com/MrEthical07/goAuthClient/session"
	"go.uber.org/zap"
)

var errNoAuthenticator = fmt.Errorf("%w: no authenticator configured", ErrClientNotReady)

// Login authenticates with the backend and stores the resulting session, replacing any
// previous one.
func (c *Client) Login(ctx context.Context, creds Credentials) (*Profile, error) {
	if !c.ready() {
		return nil, ErrClientNotReady
	}
	if c.auth == nil {
		return nil, errNoAuthenticator
	}

	res, err := c.auth.Login(ctx, creds)
	if err != nil {
		c.metrics.Inc(MetricLoginFailure)
		c.emit(ctx, EventLogin, nil, err)
		return nil, err
	}

	rec, err := c.startSession(ctx, res)
	if err != nil {
		c.metrics.Inc(MetricLoginFailure)
		return nil, err
	}

	c.metrics.Inc(MetricLoginSuccess)
	c.logger.Info("logged in", zap.String("user_id", rec.UserID), zap.String("org_id", rec.OrgID))
	c.emit(ctx, EventLogin, rec, nil)

	profile := res.Profile
	return &profile, nil
}

// Register creates an account and stores the session the backend returns for it.
func (c *Client) Register(ctx context.Context, reg Registration) (*Profile, error) {
	if !c.ready() {
		return nil, ErrClientNotReady
	}
	if c.auth == nil {
		return nil, errNoAuthenticator
	}

	res, err := c.auth.Register(ctx, reg)
	if err != nil {
		c.metrics.Inc(MetricRegisterFailure)
		c.emit(ctx, EventRegister, nil, err)
		return nil, err
	}

	rec, err := c.startSession(ctx, res)
	if err != nil {
		c.metrics.Inc(MetricRegisterFailure)
		return nil, err
	}

	c.metrics.Inc(MetricRegisterSuccess)
	c.logger.Info("registered", zap.String("user_id", rec.UserID), zap.String("org_id", rec.OrgID))
	c.emit(ctx, EventRegister, rec, nil)

	profile := res.Profile
	return &profile, nil
}

// Logout revokes the refresh token at the backend, best effort, and clears the stored
// session whatever the backend answered. The sign-out callback is not invoked.
func (c *Client) Logout(ctx context.Context) error {
	if !c.ready() {
		return ErrClientNotReady
	}

	rec, err := c.store.Load(ctx)
	if err != nil && !errors.Is(err, session.ErrNotFound) {
		return fmt.Errorf("load session: %w", err)
	}

	if rec != nil && rec.RefreshToken != "" && c.auth != nil {
		if err := c.auth.Logout(ctx, rec.RefreshToken); err != nil {
			c.logger.Warn("backend logout failed", zap.Error(err))
		}
	}

	if err := c.replaceSession(ctx, nil); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}

	c.metrics.Inc(MetricLogout)
	c.emit(ctx, EventLogout, rec, nil)
	return nil
}

// Profile returns the cached identity of the signed-in user.
func (c *Client) Profile(ctx context.Context) (*Profile, error) {
	if !c.ready() {
		return nil, ErrClientNotReady
	}
	rec, err := c.store.Load(ctx)
	if errors.Is(err, session.ErrNotFound) {
		return nil, ErrNotAuthenticated
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	return &Profile{
		UserID: rec.UserID,
		OrgID:  rec.OrgID,
		Role:   rec.Role,
		Email:  rec.Email,
		Name:   rec.Name,
	}, nil
}

// Authenticated reports whether an access token is stored. It says nothing about whether the
// backend still accepts it.
func (c *Client) Authenticated(ctx context.Context) bool {
	if !c.ready() {
		return false
	}
	rec, err := c.store.Load(ctx)
	return err == nil && rec.AccessToken != ""
}

func (c *Client) startSession(ctx context.Context, res AuthResult) (*session.Record, error) {
	if res.Tokens.AccessToken == "" || res.Tokens.RefreshToken == "" {
		return nil, errors.New("backend returned an incomplete token pair")
	}

	rec := &session.Record{
		UserID: res.Profile.UserID,
		OrgID:  res.Profile.OrgID,
		Role:   res.Profile.Role,
		Email:  res.Profile.Email,
		Name:   res.Profile.Name,
	}
	rec = rec.WithTokens(res.Tokens.AccessToken, res.Tokens.RefreshToken, accessExpiry(res.Tokens))

	if err := c.replaceSession(ctx, rec); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	return rec, nil
}
