package goAuthClient

import (
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"
)

// Transport is an http.RoundTripper that applies the Client's token handling to plain
// net/http requests.
//
// Unlike Client.Do, a replayed request that is rejected again is returned as the response
// itself, as net/http callers expect. Requests whose body cannot be re-read (no GetBody) are
// never replayed; their first auth failure is returned as is.
type Transport struct {
	client *Client
	base   http.RoundTripper
}

// Transport returns a RoundTripper sharing this client's session and refresh coordinator.
func (c *Client) Transport() *Transport {
	return &Transport{client: c, base: c.roundTripper}
}

// HTTPClient returns an *http.Client using Transport.
func (c *Client) HTTPClient() *http.Client {
	return &http.Client{
		Transport: c.Transport(),
		Timeout:   c.config.Request.Timeout,
	}
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	c := t.client
	if !c.ready() {
		closeRequestBody(req)
		return nil, ErrClientNotReady
	}

	ctx := req.Context()
	requestID := c.requestID(ctx)

	if skipAuthFromContext(ctx) {
		out := req.Clone(ctx)
		c.decorate(out, requestID, "")
		return t.base.RoundTrip(out)
	}

	token, err := c.accessToken(ctx)
	if err != nil {
		closeRequestBody(req)
		return nil, err
	}

	out := req.Clone(ctx)
	c.decorate(out, requestID, token)
	resp, err := t.base.RoundTrip(out)
	if err != nil || !c.config.isAuthFailure(resp.StatusCode) {
		return resp, err
	}

	hasBody := req.Body != nil && req.Body != http.NoBody
	if hasBody && req.GetBody == nil {
		c.logger.Debug("request body not replayable, returning auth failure",
			zap.String("request_id", requestID),
		)
		return resp, nil
	}

	renewed, err := c.renewAccess(ctx, token, false)
	drainBody(resp.Body)
	if err != nil {
		return nil, err
	}

	replay := req.Clone(ctx)
	if hasBody {
		body, err := req.GetBody()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBodyNotReplayable, err)
		}
		replay.Body = body
	}
	c.decorate(replay, requestID, renewed)

	c.metrics.Inc(MetricRequestReplayed)
	resp, err = t.base.RoundTrip(replay)
	if err == nil && c.config.isAuthFailure(resp.StatusCode) {
		c.metrics.Inc(MetricRequestUnauthorized)
	}
	return resp, err
}

func closeRequestBody(req *http.Request) {
	if req != nil && req.Body != nil {
		_ = req.Body.Close()
	}
}

func drainBody(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, io.LimitReader(body, 64<<10))
	_ = body.Close()
}
