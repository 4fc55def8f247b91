// Package prometheus renders goAuthClient metrics in Prometheus text
// exposition format.
//
// [NewPrometheusExporter] reads [goAuthClient.Client.MetricsSnapshot] on every
// scrape and serves it through [PrometheusExporter.Handler]. Counters are named
// goauthclient_*_total and the one histogram is
// goauthclient_refresh_latency_seconds. Nothing is registered globally; callers
// mount the handler themselves.
package prometheus
