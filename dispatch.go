package goAuthClient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/MrEthical07/goAuthClient/session"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Do sends req with the stored access token. On an auth failure the token is renewed once,
// sharing a single refresh with every other request that failed at the same time, and req is
// replayed. A replayed request that fails authentication again returns *AuthError.
//
// Other statuses are returned as a Response with a nil error.
func (c *Client) Do(ctx context.Context, req *Request) (*Response, error) {
	if !c.ready() {
		return nil, ErrClientNotReady
	}
	if req == nil || req.Method == "" || req.Path == "" {
		return nil, ErrInvalidRequest
	}
	if ctx == nil {
		ctx = context.Background()
	}

	target, err := c.resolve(req.Path)
	if err != nil {
		return nil, err
	}
	requestID := c.requestID(ctx)

	if skipAuthFromContext(ctx) {
		return c.send(ctx, req, target, requestID, "")
	}

	token, err := c.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	resp, err := c.send(ctx, req, target, requestID, token)
	if err != nil {
		return nil, err
	}
	if !c.config.isAuthFailure(resp.StatusCode) {
		return resp, nil
	}

	c.logger.Debug("request rejected, renewing access token",
		zap.String("request_id", requestID),
		zap.String("method", req.Method),
		zap.Int("status", resp.StatusCode),
	)

	renewed, err := c.renewAccess(ctx, token, false)
	if err != nil {
		return nil, err
	}

	c.metrics.Inc(MetricRequestReplayed)
	resp, err = c.send(ctx, req, target, requestID, renewed)
	if err != nil {
		return nil, err
	}
	if c.config.isAuthFailure(resp.StatusCode) {
		c.metrics.Inc(MetricRequestUnauthorized)
		c.logger.Debug("replayed request rejected",
			zap.String("request_id", requestID),
			zap.Int("status", resp.StatusCode),
		)
		return nil, &AuthError{StatusCode: resp.StatusCode, Body: resp.Body}
	}
	return resp, nil
}

// Get is shorthand for Do with a GET request.
func (c *Client) Get(ctx context.Context, path string) (*Response, error) {
	return c.Do(ctx, &Request{Method: http.MethodGet, Path: path})
}

// DoJSON marshals in (when not nil) as the request body, sends it through Do and unmarshals a
// 2xx body into out (when not nil). A non-2xx status is returned as *StatusError.
func (c *Client) DoJSON(ctx context.Context, method, path string, in, out any) error {
	req := &Request{Method: method, Path: path, Header: http.Header{}}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		body, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
		}
		req.Body = body
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.Do(ctx, req)
	if err != nil {
		return err
	}
	if !resp.OK() {
		return &StatusError{StatusCode: resp.StatusCode, Body: resp.Body}
	}
	if out == nil || len(resp.Body) == 0 {
		return nil
	}
	return resp.DecodeJSON(out)
}

// StatusError is a non-2xx response surfaced by DoJSON.
type StatusError struct {
	StatusCode int
	Body       []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d", e.StatusCode)
}

func (c *Client) accessToken(ctx context.Context) (string, error) {
	rec, err := c.store.Load(ctx)
	if errors.Is(err, session.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("load session: %w", err)
	}
	if c.refreshAhead(rec, time.Now()) {
		return c.renewAccess(ctx, rec.AccessToken, true)
	}
	return rec.AccessToken, nil
}

func (c *Client) send(ctx context.Context, req *Request, target, requestID, token string) (*Response, error) {
	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target, body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	for key, values := range req.Header {
		for _, v := range values {
			httpReq.Header.Add(key, v)
		}
	}
	c.decorate(httpReq, requestID, token)

	resp, err := c.doer.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	limit := c.config.Request.MaxResponseBytes
	data, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("response body exceeds %d bytes", limit)
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       data,
	}, nil
}

// decorate sets the bearer token when there is one. An empty token leaves Authorization
// untouched so no "Bearer " header with an empty credential is ever sent.
func (c *Client) decorate(req *http.Request, requestID, token string) {
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if h := c.config.Request.RequestIDHeader; h != "" && requestID != "" && req.Header.Get(h) == "" {
		req.Header.Set(h, requestID)
	}
	if ua := c.config.Request.UserAgent; ua != "" && req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", ua)
	}
}

func (c *Client) requestID(ctx context.Context) string {
	if c.config.Request.RequestIDHeader == "" {
		return ""
	}
	if id := requestIDFromContext(ctx); id != "" {
		return id
	}
	return uuid.NewString()
}

func (c *Client) resolve(path string) (string, error) {
	u, err := url.Parse(path)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	if u.IsAbs() {
		return path, nil
	}
	if c.baseURL == nil {
		return "", fmt.Errorf("%w: relative path %q without a base URL", ErrInvalidRequest, path)
	}
	return strings.TrimRight(c.baseURL.String(), "/") + "/" + strings.TrimLeft(path, "/"), nil
}
