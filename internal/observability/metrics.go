// Package observability provides the metrics registry for a bwpull run and
// writes it out in the Prometheus text format.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/tphakala/bwpull/internal/errors"
	"github.com/tphakala/bwpull/internal/observability/metrics"
)

// Metrics holds all the metric collectors for the application.
type Metrics struct {
	registry *prometheus.Registry
	Station  *metrics.StationMetrics
}

// NewMetrics creates a private registry and the station collectors.
func NewMetrics() (*Metrics, error) {
	registry := prometheus.NewRegistry()

	stationMetrics, err := metrics.NewStationMetrics(registry)
	if err != nil {
		return nil, errors.Newf("failed to create station metrics: %w", err).
			Component("observability").
			Category(errors.CategoryGeneric).
			Build()
	}

	return &Metrics{
		registry: registry,
		Station:  stationMetrics,
	}, nil
}

// Registry returns the underlying registry, mainly for gathering in tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// WriteTextfile writes all metrics to path in the text exposition format,
// suitable for the node_exporter textfile collector. The file is replaced
// atomically.
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return errors.New(err).
			Component("observability").
			Category(errors.CategoryFileIO).
			Context("operation", "write_metrics_textfile").
			Build()
	}
	return nil
}
