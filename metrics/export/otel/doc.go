// Package otel publishes goAuthClient counters and histograms as
// OpenTelemetry observable instruments.
//
// [NewOTelExporter] registers one Int64ObservableCounter per client counter
// and one Int64ObservableGauge per histogram bucket. A single callback reads
// [goAuthClient.Client.MetricsSnapshot] on each collection cycle. Callers own
// the MeterProvider.
package otel
