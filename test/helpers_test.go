//go:build integration
// +build integration

package test

import (
	"context"
	"os"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	goAuthClient "github.com/MrEthical07/goAuthClient"
	"github.com/MrEthical07/goAuthClient/authhttp"
	"github.com/MrEthical07/goAuthClient/authtest"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

const (
	testEmail    = "alice@example.com"
	testPassword = "correct-horse"
)

// redisMode describes which Redis backend the suite is running against.
type redisMode struct {
	name  string
	setup func(t *testing.T) redis.UniversalClient
}

// redisModes returns the Redis backends to test. miniredis is always present;
// REDIS_ADDR, REDIS_CLUSTER_ADDRS and REDIS_SENTINEL_ADDRS add real servers.
func redisModes(t *testing.T) []redisMode {
	t.Helper()
	modes := []redisMode{{name: "miniredis", setup: newMiniredis}}

	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		modes = append(modes, redisMode{
			name: "standalone:" + addr,
			setup: func(t *testing.T) redis.UniversalClient {
				return pingOrSkip(t, redis.NewClient(&redis.Options{Addr: addr}), true)
			},
		})
	}

	if addrs := os.Getenv("REDIS_CLUSTER_ADDRS"); addrs != "" {
		modes = append(modes, redisMode{
			name: "cluster",
			setup: func(t *testing.T) redis.UniversalClient {
				return pingOrSkip(t, redis.NewClusterClient(&redis.ClusterOptions{Addrs: splitAddrs(addrs)}), false)
			},
		})
	}

	if addrs := os.Getenv("REDIS_SENTINEL_ADDRS"); addrs != "" {
		master := os.Getenv("REDIS_SENTINEL_MASTER")
		if master == "" {
			master = "mymaster"
		}
		modes = append(modes, redisMode{
			name: "sentinel",
			setup: func(t *testing.T) redis.UniversalClient {
				return pingOrSkip(t, redis.NewFailoverClient(&redis.FailoverOptions{
					MasterName:    master,
					SentinelAddrs: splitAddrs(addrs),
				}), true)
			},
		})
	}

	return modes
}

func newMiniredis(t *testing.T) redis.UniversalClient {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}

func pingOrSkip(t *testing.T, rdb redis.UniversalClient, flush bool) redis.UniversalClient {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		t.Skipf("cannot connect to redis: %v", err)
	}
	if flush {
		rdb.FlushDB(context.Background())
	}
	t.Cleanup(func() {
		if flush {
			rdb.FlushDB(context.Background())
		}
		_ = rdb.Close()
	})
	return rdb
}

func splitAddrs(s string) []string {
	var addrs []string
	for _, a := range strings.Split(s, ",") {
		if a = strings.TrimSpace(a); a != "" {
			addrs = append(addrs, a)
		}
	}
	return addrs
}

// backend is an auth server plus a Redis-backed session several clients can share.
type backend struct {
	srv      *authtest.Server
	rdb      redis.UniversalClient
	prefix   string
	signOuts atomic.Int64
}

func newBackend(t *testing.T, rdb redis.UniversalClient, opts authtest.Options) *backend {
	t.Helper()
	srv, err := authtest.NewServer(t, opts)
	require.NoError(t, err)
	srv.AddUser(authtest.User{Email: testEmail, Password: testPassword, Name: "Alice"})
	return &backend{srv: srv, rdb: rdb, prefix: "gac-it-" + strings.ReplaceAll(t.Name(), "/", "-")}
}

// newClient builds a client on the shared session. Each call models a separate process.
func (b *backend) newClient(t *testing.T) *goAuthClient.Client {
	t.Helper()
	cfg := goAuthClient.DefaultConfig()
	cfg.Request.BaseURL = b.srv.URL()
	cfg.Store.RedisPrefix = b.prefix

	client, err := goAuthClient.New().
		WithConfig(cfg).
		WithRedis(b.rdb).
		WithRefresher(authhttp.New(b.srv.URL(), authhttp.WithDoer(b.srv.Client()))).
		WithSignOut(func(context.Context, error) { b.signOuts.Add(1) }).
		Build()
	require.NoError(t, err)
	t.Cleanup(client.Close)
	return client
}

func (b *backend) login(t *testing.T, client *goAuthClient.Client) {
	t.Helper()
	_, err := client.Login(context.Background(), goAuthClient.Credentials{Email: testEmail, Password: testPassword})
	require.NoError(t, err)
}
