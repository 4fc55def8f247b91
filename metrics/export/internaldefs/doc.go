// Package internaldefs holds the metric names and bucket bounds shared by the
// exporters.
//
// Both the Prometheus and OTel exporters render from these definitions, so a
// rename here changes every exporter at once.
package internaldefs
