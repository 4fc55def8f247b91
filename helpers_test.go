package goAuthClient

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/MrEthical07/goAuthClient/session"
)

// stubRefresher counts calls and optionally blocks on gate until the test releases it.
type stubRefresher struct {
	mu    sync.Mutex
	calls int
	seen  []string
	gate  chan struct{}
	pair  TokenPair
	err   error
}

func (s *stubRefresher) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	s.mu.Lock()
	s.calls++
	s.seen = append(s.seen, refreshToken)
	gate := s.gate
	pair, err := s.pair, s.err
	s.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return TokenPair{}, ctx.Err()
		}
	}
	return pair, err
}

func (s *stubRefresher) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// apiServer accepts exactly one bearer token and echoes it back.
type apiServer struct {
	srv       *httptest.Server
	valid     atomic.Value
	calls     atomic.Int64
	noAuthHdr atomic.Int64

	mu sync.Mutex
	// onReject runs before a 401 is written.
	onReject func(token string)
	override http.HandlerFunc
}

func (a *apiServer) setOnReject(fn func(token string)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.onReject = fn
}

func (a *apiServer) setHandler(fn http.HandlerFunc) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.override = fn
}

func newAPIServer(t *testing.T, valid string) *apiServer {
	t.Helper()
	a := &apiServer{}
	a.valid.Store(valid)
	a.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		a.calls.Add(1)
		a.mu.Lock()
		override, onReject := a.override, a.onReject
		a.mu.Unlock()
		if override != nil {
			override(w, r)
			return
		}

		header, ok := r.Header["Authorization"]
		if !ok {
			a.noAuthHdr.Add(1)
		}
		token := ""
		if len(header) > 0 {
			token = strings.TrimPrefix(header[0], "Bearer ")
		}
		if token == "" || token != a.valid.Load().(string) {
			if onReject != nil {
				onReject(token)
			}
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"unauthorized"}`))
			return
		}
		body, _ := io.ReadAll(r.Body)
		w.Header().Set("X-Seen-Token", token)
		w.Header().Set("X-Seen-Request-ID", r.Header.Get("X-Request-ID"))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(token + "|" + string(body)))
	}))
	t.Cleanup(a.srv.Close)
	return a
}

type clientFixture struct {
	client    *Client
	api       *apiServer
	refresher *stubRefresher
	store     *session.MemoryStore
	signOuts  atomic.Int64
	causes    chan error
}

func newFixture(t *testing.T, mutate func(*Config)) *clientFixture {
	t.Helper()

	f := &clientFixture{
		api:       newAPIServer(t, "a1"),
		refresher: &stubRefresher{pair: TokenPair{AccessToken: "a2", RefreshToken: "r2"}},
		store:     session.NewMemoryStore(),
		causes:    make(chan error, 16),
	}

	cfg := DefaultConfig()
	cfg.Request.BaseURL = f.api.srv.URL
	cfg.Refresh.Timeout = 2 * time.Second
	if mutate != nil {
		mutate(&cfg)
	}

	client, err := New().
		WithConfig(cfg).
		WithTokenStore(f.store).
		WithRefresher(f.refresher).
		WithSignOut(func(_ context.Context, cause error) {
			f.signOuts.Add(1)
			f.causes <- cause
		}).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(client.Close)
	f.client = client
	return f
}

func (f *clientFixture) seed(t *testing.T, access, refresh string) {
	t.Helper()
	rec := (&session.Record{UserID: "u1", OrgID: "o1", Role: "owner"}).WithTokens(access, refresh, time.Time{})
	if err := f.store.Save(context.Background(), rec); err != nil {
		t.Fatalf("seed failed: %v", err)
	}
}

func (f *clientFixture) stored(t *testing.T) *session.Record {
	t.Helper()
	rec, err := f.store.Load(context.Background())
	if errors.Is(err, session.ErrNotFound) {
		return nil
	}
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	return rec
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(2 * time.Millisecond)
	}
}
