package goAuthClient

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/MrEthical07/goAuthClient/session"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type stubAuth struct {
	mu          sync.Mutex
	loginErr    error
	logoutErr   error
	logoutCalls []string
	result      AuthResult
}

func (s *stubAuth) Login(_ context.Context, creds Credentials) (AuthResult, error) {
	if s.loginErr != nil {
		return AuthResult{}, s.loginErr
	}
	res := s.result
	res.Profile.Email = creds.Email
	return res, nil
}

func (s *stubAuth) Register(_ context.Context, reg Registration) (AuthResult, error) {
	if reg.Email == "taken@example.com" {
		return AuthResult{}, ErrAccountExists
	}
	res := s.result
	res.Profile.Email = reg.Email
	res.Profile.Name = reg.Name
	return res, nil
}

func (s *stubAuth) Logout(_ context.Context, refreshToken string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logoutCalls = append(s.logoutCalls, refreshToken)
	return s.logoutErr
}

func newLifecycleClient(t *testing.T, auth *stubAuth, store TokenStore, sink EventSink) *Client {
	t.Helper()
	b := New().
		WithRefresher(&stubRefresher{pair: TokenPair{AccessToken: "a2", RefreshToken: "r2"}}).
		WithAuthenticator(auth).
		WithTokenStore(store)
	if sink != nil {
		b = b.WithEventSink(sink)
	}
	client, err := b.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(client.Close)
	return client
}

func defaultAuth() *stubAuth {
	return &stubAuth{result: AuthResult{
		Tokens:  TokenPair{AccessToken: "a1", RefreshToken: "r1", AccessExpiresAt: time.Unix(2000000000, 0)},
		Profile: Profile{UserID: "u1", OrgID: "o1", Role: "manager", Name: "Alice"},
	}}
}

func TestLoginStoresSession(t *testing.T) {
	store := session.NewMemoryStore()
	client := newLifecycleClient(t, defaultAuth(), store, nil)
	ctx := context.Background()

	if client.Authenticated(ctx) {
		t.Fatal("expected unauthenticated client before login")
	}
	profile, err := client.Login(ctx, Credentials{Email: "alice@example.com", Password: "pw"})
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if profile.UserID != "u1" || profile.Email != "alice@example.com" {
		t.Fatalf("unexpected profile %+v", profile)
	}

	rec, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if rec.AccessToken != "a1" || rec.RefreshToken != "r1" || rec.AccessExpiresAt != 2000000000 {
		t.Fatalf("unexpected record %+v", rec)
	}
	if !client.Authenticated(ctx) {
		t.Fatal("expected authenticated client after login")
	}

	cached, err := client.Profile(ctx)
	if err != nil || cached.Role != "manager" || cached.Name != "Alice" {
		t.Fatalf("unexpected cached profile %+v err=%v", cached, err)
	}
	if client.MetricsSnapshot().Counters[MetricLoginSuccess] != 1 {
		t.Fatal("expected login to be counted")
	}
}

func TestLoginFailureLeavesStoreUntouched(t *testing.T) {
	auth := defaultAuth()
	auth.loginErr = ErrInvalidCredentials
	store := session.NewMemoryStore()
	client := newLifecycleClient(t, auth, store, nil)

	if _, err := client.Login(context.Background(), Credentials{Email: "a", Password: "b"}); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := store.Load(context.Background()); !errors.Is(err, session.ErrNotFound) {
		t.Fatalf("expected empty store, got %v", err)
	}
	if client.MetricsSnapshot().Counters[MetricLoginFailure] != 1 {
		t.Fatal("expected login failure to be counted")
	}
}

func TestLoginRejectsIncompletePair(t *testing.T) {
	auth := defaultAuth()
	auth.result.Tokens.RefreshToken = ""
	client := newLifecycleClient(t, auth, session.NewMemoryStore(), nil)

	if _, err := client.Login(context.Background(), Credentials{}); err == nil {
		t.Fatal("expected incomplete token pair to fail")
	}
}

func TestRegister(t *testing.T) {
	client := newLifecycleClient(t, defaultAuth(), session.NewMemoryStore(), nil)
	ctx := context.Background()

	profile, err := client.Register(ctx, Registration{Email: "bob@example.com", Password: "pw", Name: "Bob"})
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if profile.Name != "Bob" || !client.Authenticated(ctx) {
		t.Fatalf("unexpected registration result %+v", profile)
	}

	if _, err := client.Register(ctx, Registration{Email: "taken@example.com"}); !errors.Is(err, ErrAccountExists) {
		t.Fatalf("expected ErrAccountExists, got %v", err)
	}
}

func TestLogoutClearsEvenWhenBackendFails(t *testing.T) {
	auth := defaultAuth()
	auth.logoutErr = errors.New("backend down")
	store := session.NewMemoryStore()
	client := newLifecycleClient(t, auth, store, nil)
	ctx := context.Background()

	if _, err := client.Login(ctx, Credentials{Email: "a@example.com"}); err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if err := client.Logout(ctx); err != nil {
		t.Fatalf("Logout failed: %v", err)
	}
	if client.Authenticated(ctx) {
		t.Fatal("expected session cleared")
	}
	if len(auth.logoutCalls) != 1 || auth.logoutCalls[0] != "r1" {
		t.Fatalf("expected backend logout with r1, got %v", auth.logoutCalls)
	}
	if _, err := client.Profile(ctx); !errors.Is(err, ErrNotAuthenticated) {
		t.Fatalf("expected ErrNotAuthenticated, got %v", err)
	}
}

func TestLogoutWithoutSession(t *testing.T) {
	auth := defaultAuth()
	client := newLifecycleClient(t, auth, session.NewMemoryStore(), nil)

	if err := client.Logout(context.Background()); err != nil {
		t.Fatalf("Logout failed: %v", err)
	}
	if len(auth.logoutCalls) != 0 {
		t.Fatal("backend logout must be skipped without a refresh token")
	}
}

func TestLifecycleWithoutAuthenticator(t *testing.T) {
	client, err := New().WithRefresher(&stubRefresher{}).Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer client.Close()

	if _, err := client.Login(context.Background(), Credentials{}); !errors.Is(err, ErrClientNotReady) {
		t.Fatalf("expected ErrClientNotReady, got %v", err)
	}
}

func TestLifecycleEvents(t *testing.T) {
	sink := NewChannelSink(8)
	client := newLifecycleClient(t, defaultAuth(), session.NewMemoryStore(), sink)
	ctx := context.Background()

	if _, err := client.Login(ctx, Credentials{Email: "a@example.com"}); err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if err := client.Logout(ctx); err != nil {
		t.Fatalf("Logout failed: %v", err)
	}

	for _, want := range []string{EventLogin, EventLogout} {
		select {
		case ev := <-sink.Events():
			if ev.EventType != want || ev.UserID != "u1" || !ev.Success {
				t.Fatalf("expected %s event for u1, got %+v", want, ev)
			}
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for %s event", want)
		}
	}
}

func TestBuilderWithRedisStore(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	cfg := DefaultConfig()
	cfg.Store.RedisPrefix = "pm"
	cfg.Store.SessionName = "alice"
	cfg.Store.TTL = time.Hour

	client, err := New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithRefresher(&stubRefresher{}).
		WithAuthenticator(defaultAuth()).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer client.Close()

	if _, err := client.Login(context.Background(), Credentials{Email: "a@example.com"}); err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if !mr.Exists("pm:alice") {
		t.Fatal("expected session key pm:alice in redis")
	}
	if ttl := mr.TTL("pm:alice"); ttl <= 0 || ttl > time.Hour {
		t.Fatalf("unexpected ttl %s", ttl)
	}
}

func TestBuilderRequiresRefresher(t *testing.T) {
	if _, err := New().Build(); err == nil {
		t.Fatal("expected Build without refresher to fail")
	}
}

func TestBuilderSingleUse(t *testing.T) {
	b := New().WithRefresher(&stubRefresher{})
	client, err := b.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer client.Close()

	if _, err := b.Build(); err == nil {
		t.Fatal("expected second Build to fail")
	}
}

type refresherAuth struct {
	*stubRefresher
	*stubAuth
}

func TestBuilderUsesRefresherAsAuthenticator(t *testing.T) {
	ra := &refresherAuth{stubRefresher: &stubRefresher{}, stubAuth: defaultAuth()}
	client, err := New().WithRefresher(ra).Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer client.Close()

	if _, err := client.Login(context.Background(), Credentials{Email: "a@example.com"}); err != nil {
		t.Fatalf("expected refresher to double as authenticator: %v", err)
	}
}
