package goAuthClient

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/MrEthical07/goAuthClient/jwt"
	"github.com/MrEthical07/goAuthClient/session"
	"go.uber.org/zap"
)

type refreshResult struct {
	accessToken string
	err         error
}

// refreshFlight is the single-flight state of one Client. waiters is non-empty only while
// inFlight is true and is drained under mu in the same critical section that clears it.
type refreshFlight struct {
	mu       sync.Mutex
	inFlight bool
	waiters  []chan refreshResult
	// generation changes whenever the session is replaced or cleared outside a refresh, so a
	// refresh that started on an older session does not overwrite a newer one.
	generation uint64
	// endedToken is the access token whose refresh ended the session. Auth failures that
	// still carry it get endedErr instead of a new flight.
	endedToken string
	endedErr   error
	// shortLived is an access token that was already inside the proactive window when a
	// refresh returned it. It is sent as-is until the server rejects it.
	shortLived       string
	shortLivedWarned bool
	closed           bool
	wg               sync.WaitGroup
}

func (f *refreshFlight) drainLocked() []chan refreshResult {
	waiters := f.waiters
	f.waiters = nil
	f.inFlight = false
	return waiters
}

// renewAccess returns the access token to use after used was rejected. It joins the refresh in
// flight or starts one. A caller whose ctx ends stops waiting; the refresh itself carries on
// for the others.
func (c *Client) renewAccess(ctx context.Context, used string, proactive bool) (string, error) {
	f := &c.flight
	w := make(chan refreshResult, 1)

	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return "", ErrClientNotReady
	}
	if used != "" && used == f.endedToken {
		err := f.endedErr
		f.mu.Unlock()
		return "", err
	}
	f.waiters = append(f.waiters, w)
	if f.inFlight {
		f.mu.Unlock()
		c.metrics.Inc(MetricRefreshJoined)
		return awaitRefresh(ctx, w)
	}
	f.inFlight = true
	gen := f.generation
	f.wg.Add(1)
	f.mu.Unlock()

	if proactive {
		c.metrics.Inc(MetricProactiveRefresh)
	}
	go c.runRefresh(gen, used)

	return awaitRefresh(ctx, w)
}

func awaitRefresh(ctx context.Context, w <-chan refreshResult) (string, error) {
	select {
	case res := <-w:
		return res.accessToken, res.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (c *Client) runRefresh(gen uint64, used string) {
	defer c.flight.wg.Done()

	ctx, cancel := context.WithTimeout(context.Background(), c.config.Refresh.Timeout)
	defer cancel()

	rec, err := c.store.Load(ctx)
	switch {
	case errors.Is(err, session.ErrNotFound):
		c.failSession(gen, used, nil, ErrNotAuthenticated)
		return
	case err != nil:
		// The session may still be valid; report without signing out.
		c.logger.Error("load session for refresh failed", zap.Error(err))
		c.settle(refreshResult{err: fmt.Errorf("load session: %w", err)})
		return
	case rec.AccessToken != "" && rec.AccessToken != used:
		// Rotated while the failed request was on the wire.
		c.metrics.Inc(MetricRefreshSkipped)
		c.settle(refreshResult{accessToken: rec.AccessToken})
		return
	case rec.RefreshToken == "":
		c.failSession(gen, used, rec, ErrNotAuthenticated)
		return
	}

	c.metrics.Inc(MetricRefreshStarted)
	c.logger.Info("refreshing access token", zap.String("user_id", rec.UserID))

	start := time.Now()
	pair, err := c.refresher.Refresh(ctx, rec.RefreshToken)
	elapsed := time.Since(start)
	c.metrics.Observe(MetricRefreshLatency, elapsed)

	if err == nil && pair.AccessToken == "" {
		err = errors.New("refresh returned no access token")
	}
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			err = fmt.Errorf("%w: %v", ErrRefreshTimeout, err)
		}
		c.failSession(gen, used, rec, err)
		return
	}

	refreshToken := pair.RefreshToken
	if refreshToken == "" {
		refreshToken = rec.RefreshToken
	}
	next := rec.WithTokens(pair.AccessToken, refreshToken, accessExpiry(pair))

	c.completeRefresh(gen, used, next, elapsed)
}

func (c *Client) completeRefresh(gen uint64, used string, next *session.Record, elapsed time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), c.config.Refresh.Timeout)
	defer cancel()

	insideWindow := c.accessExpiresSoon(next, time.Now())

	f := &c.flight
	f.mu.Lock()
	if f.generation != gen {
		f.mu.Unlock()
		c.settleCurrent(ctx)
		return
	}
	if err := c.store.Save(ctx, next); err != nil {
		f.mu.Unlock()
		c.failSession(gen, used, next, fmt.Errorf("save refreshed session: %w", err))
		return
	}
	f.shortLived = ""
	warn := false
	if insideWindow {
		f.shortLived = next.AccessToken
		warn = !f.shortLivedWarned
		f.shortLivedWarned = true
	}
	waiters := f.drainLocked()
	f.mu.Unlock()

	if warn {
		c.logger.Warn("refreshed access token already expires within the proactive window; proactive refresh skipped until it is rejected",
			zap.Duration("proactive_window", c.config.Refresh.ProactiveWindow),
			zap.Time("access_expires_at", time.Unix(next.AccessExpiresAt, 0)),
		)
	}

	res := refreshResult{accessToken: next.AccessToken}
	for _, w := range waiters {
		w <- res
	}

	c.metrics.Inc(MetricRefreshSuccess)
	c.logger.Info("access token refreshed",
		zap.String("user_id", next.UserID),
		zap.Duration("elapsed", elapsed),
		zap.Int("waiters", len(waiters)),
	)
	c.emit(ctx, EventRefresh, next, nil)
}

// failSession ends the session: the store is cleared, every waiter gets ErrSessionExpired
// and the sign-out callback runs once. Later failures carrying used get the same error.
func (c *Client) failSession(gen uint64, used string, rec *session.Record, cause error) {
	ctx, cancel := context.WithTimeout(context.Background(), c.config.Refresh.Timeout)
	defer cancel()

	f := &c.flight
	f.mu.Lock()
	if f.generation != gen {
		f.mu.Unlock()
		c.settleCurrent(ctx)
		return
	}
	res := refreshResult{err: sessionExpired(cause)}
	clearErr := c.store.Clear(ctx)
	f.generation++
	if used != "" {
		f.endedToken = used
		f.endedErr = res.err
	}
	waiters := f.drainLocked()
	f.mu.Unlock()

	for _, w := range waiters {
		w <- res
	}

	c.metrics.Inc(MetricRefreshFailure)
	c.metrics.Inc(MetricSignOut)
	c.logger.Warn("refresh failed, signing out",
		zap.Error(cause),
		zap.Int("waiters", len(waiters)),
	)
	if clearErr != nil {
		c.logger.Error("clear session failed", zap.Error(clearErr))
	}
	c.emit(ctx, EventSessionExpired, rec, cause)

	if c.signOut != nil {
		c.signOut(ctx, cause)
	}
	c.emit(ctx, EventSignOut, rec, nil)
}

// settleCurrent releases waiters with whatever session is stored now. It is used when a login
// or logout replaced the session while the refresh was running.
func (c *Client) settleCurrent(ctx context.Context) {
	rec, err := c.store.Load(ctx)
	switch {
	case err == nil && rec.AccessToken != "":
		c.settle(refreshResult{accessToken: rec.AccessToken})
	case err == nil || errors.Is(err, session.ErrNotFound):
		c.settle(refreshResult{err: ErrNotAuthenticated})
	default:
		c.settle(refreshResult{err: fmt.Errorf("load session: %w", err)})
	}
}

func (c *Client) settle(res refreshResult) {
	c.flight.mu.Lock()
	waiters := c.flight.drainLocked()
	c.flight.mu.Unlock()

	for _, w := range waiters {
		w <- res
	}
}

// replaceSession stores rec (or clears the store when rec is nil) and invalidates any
// refresh still running against the previous session.
func (c *Client) replaceSession(ctx context.Context, rec *session.Record) error {
	f := &c.flight
	f.mu.Lock()
	defer f.mu.Unlock()

	f.generation++
	if rec == nil {
		return c.store.Clear(ctx)
	}
	return c.store.Save(ctx, rec)
}

func accessExpiry(pair TokenPair) time.Time {
	if !pair.AccessExpiresAt.IsZero() {
		return pair.AccessExpiresAt
	}
	info, err := jwt.Inspect(pair.AccessToken)
	if err != nil {
		return time.Time{}
	}
	return info.ExpiresAt
}

// refreshAhead reports whether rec's access token should be refreshed before sending. A
// token that a refresh issued already inside the window is never refreshed ahead.
func (c *Client) refreshAhead(rec *session.Record, now time.Time) bool {
	if !c.accessExpiresSoon(rec, now) {
		return false
	}
	c.flight.mu.Lock()
	defer c.flight.mu.Unlock()
	return rec.AccessToken != c.flight.shortLived
}

// accessExpiresSoon reports whether rec's access token expires within the proactive window.
func (c *Client) accessExpiresSoon(rec *session.Record, now time.Time) bool {
	window := c.config.Refresh.ProactiveWindow
	if window <= 0 || rec.AccessToken == "" {
		return false
	}
	if rec.AccessExpiresAt > 0 {
		return !time.Unix(rec.AccessExpiresAt, 0).After(now.Add(window))
	}
	info, err := jwt.Inspect(rec.AccessToken)
	if err != nil {
		return false
	}
	return info.ExpiresWithin(now, window)
}
