package goAuthClient

import (
	"context"
	"net/http"
	"net/url"
	"sync/atomic"
	"time"

	"github.com/MrEthical07/goAuthClient/session"
	"go.uber.org/zap"
)

// TokenStore persists the client session. [session.MemoryStore] and [session.RedisStore]
// implement it.
type TokenStore = session.Store

// Client sends authenticated API requests and keeps the session's tokens fresh. It is safe
// for concurrent use. Build one with New().Build().
type Client struct {
	config  Config
	baseURL *url.URL

	store     TokenStore
	refresher Refresher
	auth      Authenticator
	signOut   SignOutFunc

	doer         Doer
	roundTripper http.RoundTripper

	logger  *zap.Logger
	metrics *Metrics
	events  *eventDispatcher

	flight refreshFlight
	closed atomic.Bool
}

// Config returns a copy of the client's configuration.
func (c *Client) Config() Config {
	return cloneConfig(c.config)
}

// MetricsSnapshot returns the current client counters.
func (c *Client) MetricsSnapshot() MetricsSnapshot {
	if c == nil {
		return (*Metrics)(nil).Snapshot()
	}
	return c.metrics.Snapshot()
}

// EventsDropped reports session events dropped because the event buffer was full.
func (c *Client) EventsDropped() uint64 {
	if c == nil {
		return 0
	}
	return c.events.Dropped()
}

// Close waits for an in-flight refresh to settle and flushes pending events. Requests made
// after Close fail with ErrClientNotReady.
func (c *Client) Close() {
	if c == nil {
		return
	}
	c.flight.mu.Lock()
	c.flight.closed = true
	c.flight.mu.Unlock()
	c.closed.Store(true)

	c.flight.wg.Wait()
	c.events.Close()
}

func (c *Client) ready() bool {
	return c != nil && !c.closed.Load()
}

func (c *Client) emit(ctx context.Context, eventType string, rec *session.Record, err error) {
	if c.events == nil {
		return
	}
	event := SessionEvent{
		Timestamp: time.Now(),
		EventType: eventType,
		Success:   err == nil,
	}
	if rec != nil {
		event.UserID = rec.UserID
		event.OrgID = rec.OrgID
	}
	if err != nil {
		event.Error = err.Error()
	}
	c.events.Emit(ctx, event)
}
