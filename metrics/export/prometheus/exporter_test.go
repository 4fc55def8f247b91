package prometheus

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	goAuthClient "github.com/MrEthical07/goAuthClient"
	"github.com/MrEthical07/goAuthClient/authhttp"
	"github.com/MrEthical07/goAuthClient/authtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	snapshot goAuthClient.MetricsSnapshot
	dropped  uint64
}

func (f fakeSource) MetricsSnapshot() goAuthClient.MetricsSnapshot { return f.snapshot }
func (f fakeSource) EventsDropped() uint64                         { return f.dropped }

func TestRenderEmptyWhenMetricsDisabled(t *testing.T) {
	exp := NewPrometheusExporterFromSource(fakeSource{
		snapshot: goAuthClient.MetricsSnapshot{
			Counters:   map[goAuthClient.MetricID]uint64{},
			Histograms: map[goAuthClient.MetricID][]uint64{},
		},
	})

	assert.Empty(t, exp.Render())
}

func TestRenderIncludesCounterAndHistogram(t *testing.T) {
	exp := NewPrometheusExporterFromSource(fakeSource{
		snapshot: goAuthClient.MetricsSnapshot{
			Counters: map[goAuthClient.MetricID]uint64{
				goAuthClient.MetricRefreshStarted: 7,
				goAuthClient.MetricRefreshJoined:  41,
			},
			Histograms: map[goAuthClient.MetricID][]uint64{
				goAuthClient.MetricRefreshLatency: {1, 2, 3, 4, 5, 6, 7, 8},
			},
		},
		dropped: 2,
	})

	out := exp.Render()
	assert.Contains(t, out, "goauthclient_refresh_started_total 7")
	assert.Contains(t, out, "goauthclient_refresh_joined_total 41")
	assert.Contains(t, out, `goauthclient_refresh_latency_seconds_bucket{le="0.01"} 1`)
	assert.Contains(t, out, `goauthclient_refresh_latency_seconds_bucket{le="+Inf"} 36`)
	assert.Contains(t, out, "goauthclient_refresh_latency_seconds_count 36")
	assert.Contains(t, out, "goauthclient_events_dropped_total 2")
}

func TestHandlerWritesPrometheusContentType(t *testing.T) {
	exp := NewPrometheusExporterFromSource(fakeSource{
		snapshot: goAuthClient.MetricsSnapshot{
			Counters:   map[goAuthClient.MetricID]uint64{goAuthClient.MetricLoginSuccess: 1},
			Histograms: map[goAuthClient.MetricID][]uint64{},
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	exp.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/plain")
}

func TestExporterReadsLiveClient(t *testing.T) {
	srv, err := authtest.NewServer(t, authtest.Options{})
	require.NoError(t, err)
	srv.AddUser(authtest.User{Email: "ada@example.com", Password: "pw"})

	cfg := goAuthClient.DefaultConfig()
	cfg.Request.BaseURL = srv.URL()
	client, err := goAuthClient.New().
		WithConfig(cfg).
		WithRefresher(authhttp.New(srv.URL(), authhttp.WithDoer(srv.Client()))).
		Build()
	require.NoError(t, err)
	t.Cleanup(client.Close)

	_, err = client.Login(context.Background(), goAuthClient.Credentials{Email: "ada@example.com", Password: "pw"})
	require.NoError(t, err)

	out := NewPrometheusExporter(client).Render()
	assert.Contains(t, out, "goauthclient_login_success_total 1")
	assert.Contains(t, out, "goauthclient_refresh_started_total 0")
}

func BenchmarkRender(b *testing.B) {
	exp := NewPrometheusExporterFromSource(fakeSource{
		snapshot: goAuthClient.MetricsSnapshot{
			Counters: map[goAuthClient.MetricID]uint64{
				goAuthClient.MetricRefreshStarted:  100,
				goAuthClient.MetricRefreshSuccess:  98,
				goAuthClient.MetricRefreshFailure:  2,
				goAuthClient.MetricRefreshJoined:   4000,
				goAuthClient.MetricRequestReplayed: 4100,
				goAuthClient.MetricLoginSuccess:    10,
			},
			Histograms: map[goAuthClient.MetricID][]uint64{
				goAuthClient.MetricRefreshLatency: {10, 20, 30, 40, 50, 60, 70, 80},
			},
		},
	})

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = exp.Render()
	}
}
