// Command goauthclient-loadtest measures how the client behaves when many
// requests hit an expired access token at once.
//
// Every round expires all access tokens on an in-process auth backend and then
// fires -concurrency parallel requests. A healthy client sends exactly one
// refresh per round and replays every request.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	goAuthClient "github.com/MrEthical07/goAuthClient"
	"github.com/MrEthical07/goAuthClient/authhttp"
	"github.com/MrEthical07/goAuthClient/authtest"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// cleanups collects teardown funcs registered by the auth backend.
type cleanups []func()

func (c *cleanups) Cleanup(fn func()) { *c = append(*c, fn) }

func (c *cleanups) run() {
	for i := len(*c) - 1; i >= 0; i-- {
		(*c)[i]()
	}
}

func main() {
	var (
		rounds       = flag.Int("rounds", 50, "number of token expiry rounds")
		concurrency  = flag.Int("concurrency", 64, "parallel requests per round")
		refreshDelay = flag.Duration("refresh-delay", 20*time.Millisecond, "artificial latency added to every refresh")
		redisAddr    = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
		prefix       = flag.String("prefix", "gac-loadtest", "session key prefix")
		logLevel     = flag.String("log-level", "warn", "client log level")
		development  = flag.Bool("dev", false, "human-readable logs")
	)
	flag.Parse()

	if *rounds <= 0 || *concurrency <= 0 {
		fmt.Fprintln(os.Stderr, "rounds and concurrency must be > 0")
		os.Exit(2)
	}

	logger, err := goAuthClient.NewLogger(goAuthClient.LogConfig{Level: *logLevel, Development: *development})
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	var teardown cleanups
	defer teardown.run()

	rdb, err := openRedis(*redisAddr, &teardown)
	if err != nil {
		fmt.Fprintf(os.Stderr, "redis: %v\n", err)
		os.Exit(1)
	}

	srv, err := authtest.NewServer(&teardown, authtest.Options{RefreshDelay: *refreshDelay})
	if err != nil {
		fmt.Fprintf(os.Stderr, "auth backend: %v\n", err)
		os.Exit(1)
	}
	srv.AddUser(authtest.User{Email: "load@example.com", Password: "load-test", Name: "Load"})

	cfg := goAuthClient.DefaultConfig()
	cfg.Request.BaseURL = srv.URL()
	cfg.Store.RedisPrefix = *prefix

	var signOuts atomic.Int64
	client, err := goAuthClient.New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithRefresher(authhttp.New(srv.URL(), authhttp.WithDoer(srv.Client()))).
		WithLogger(logger).
		WithLatencyHistograms(true).
		WithSignOut(func(_ context.Context, cause error) {
			signOuts.Add(1)
			logger.Error("signed out", zap.Error(cause))
		}).
		Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "client: %v\n", err)
		os.Exit(1)
	}
	defer client.Close()

	ctx := context.Background()
	if _, err := client.Login(ctx, goAuthClient.Credentials{Email: "load@example.com", Password: "load-test"}); err != nil {
		fmt.Fprintf(os.Stderr, "login: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("running %d rounds x %d requests\n", *rounds, *concurrency)
	stats := runRounds(ctx, client, srv, *rounds, *concurrency)

	snap := client.MetricsSnapshot()
	fmt.Println("---- results ----")
	printStats("requests", stats)
	fmt.Printf("refresh calls: %d over %d expiry rounds (%.2f per round)\n",
		stats.refreshes, *rounds, float64(stats.refreshes)/float64(*rounds))
	fmt.Printf("rounds with more than one refresh: %d\n", stats.duplicateRounds)
	fmt.Printf("joined=%d replayed=%d unauthorized=%d sign-outs=%d\n",
		snap.Counters[goAuthClient.MetricRefreshJoined],
		snap.Counters[goAuthClient.MetricRequestReplayed],
		snap.Counters[goAuthClient.MetricRequestUnauthorized],
		signOuts.Load(),
	)
	if stats.duplicateRounds > 0 || signOuts.Load() > 0 {
		os.Exit(1)
	}
}

func openRedis(addr string, teardown *cleanups) (redis.UniversalClient, error) {
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			return nil, fmt.Errorf("start miniredis: %w", err)
		}
		teardown.Cleanup(mr.Close)
		addr = mr.Addr()
		fmt.Printf("using miniredis at %s\n", addr)
	} else {
		fmt.Printf("using redis at %s\n", addr)
	}

	client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
	teardown.Cleanup(func() { _ = client.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping %s: %w", addr, err)
	}
	return client, nil
}

type runStats struct {
	total           time.Duration
	ops             int
	failures        int64
	refreshes       int64
	duplicateRounds int
	p50             time.Duration
	p95             time.Duration
	p99             time.Duration
	opsPerS         float64
}

func runRounds(ctx context.Context, client *goAuthClient.Client, srv *authtest.Server, rounds, concurrency int) runStats {
	var (
		failures  int64
		latencies = make([]time.Duration, 0, rounds*concurrency)
		mu        sync.Mutex
		dupes     int
	)

	start := time.Now()
	for r := 0; r < rounds; r++ {
		before := srv.RefreshCalls()
		srv.ExpireAccessTokens()

		var wg sync.WaitGroup
		ready := make(chan struct{})
		for w := 0; w < concurrency; w++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				<-ready
				t0 := time.Now()
				resp, err := client.Get(ctx, "/api/load")
				d := time.Since(t0)
				if err != nil || !resp.OK() {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}()
		}
		close(ready)
		wg.Wait()

		if srv.RefreshCalls()-before > 1 {
			dupes++
		}
	}
	total := time.Since(start)

	stats := computeStats(total, latencies, failures)
	stats.refreshes = srv.RefreshCalls()
	stats.duplicateRounds = dupes
	return stats
}

func computeStats(total time.Duration, samples []time.Duration, failures int64) runStats {
	if len(samples) == 0 {
		return runStats{total: total}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return runStats{
		total:    total,
		ops:      len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
		opsPerS:  float64(len(samples)) / total.Seconds(),
	}
}

func percentile(samples []time.Duration, p int) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	if p <= 0 {
		return samples[0]
	}
	if p >= 100 {
		return samples[len(samples)-1]
	}
	idx := (len(samples) - 1) * p / 100
	return samples[idx]
}

func printStats(name string, s runStats) {
	fmt.Printf("%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.failures,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}
