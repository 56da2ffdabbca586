package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// StationMetrics contains Prometheus metrics for station API usage and the
// detection summaries built from it.
type StationMetrics struct {
	registry *prometheus.Registry

	requestsTotal      *prometheus.CounterVec
	requestErrorsTotal *prometheus.CounterVec
	requestDuration    *prometheus.HistogramVec
	statusCodesTotal   *prometheus.CounterVec

	detectionsFetched *prometheus.GaugeVec
	uniqueSpecies     prometheus.Gauge
	repeatedSpecies   prometheus.Gauge
	sectionFailures   *prometheus.CounterVec
}

// NewStationMetrics creates and registers station metrics
func NewStationMetrics(registry *prometheus.Registry) (*StationMetrics, error) {
	m := &StationMetrics{registry: registry}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *StationMetrics) initMetrics() {
	m.requestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bwpull_api_requests_total",
			Help: "Total number of station API requests",
		},
		[]string{"endpoint", "status"}, // status: success, error
	)

	m.requestErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bwpull_api_request_errors_total",
			Help: "Total number of failed station API requests by error category",
		},
		[]string{"endpoint", "error_type"},
	)

	m.requestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "bwpull_api_request_duration_seconds",
			Help: "Time taken by station API requests",
			// 10ms .. ~20s
			Buckets: prometheus.ExponentialBuckets(BucketStart10ms, BucketFactor2, BucketCount12),
		},
		[]string{"endpoint"},
	)

	m.statusCodesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bwpull_api_responses_total",
			Help: "Station API responses by HTTP status code",
		},
		[]string{"endpoint", "status_code"},
	)

	m.detectionsFetched = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "bwpull_detections_fetched",
			Help: "Number of detections in the last fetched window",
		},
		[]string{"mode"}, // mode: all, unique
	)

	m.uniqueSpecies = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "bwpull_unique_species",
		Help: "Distinct species in the last unique-species window",
	})

	m.repeatedSpecies = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "bwpull_repeated_species",
		Help: "Species detected more than once in the last unique-species window",
	})

	m.sectionFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bwpull_report_section_failures_total",
			Help: "Report sections that could not be filled",
		},
		[]string{"section"},
	)
}

// Describe implements the Collector interface
func (m *StationMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.requestsTotal.Describe(ch)
	m.requestErrorsTotal.Describe(ch)
	m.requestDuration.Describe(ch)
	m.statusCodesTotal.Describe(ch)
	m.detectionsFetched.Describe(ch)
	m.uniqueSpecies.Describe(ch)
	m.repeatedSpecies.Describe(ch)
	m.sectionFailures.Describe(ch)
}

// Collect implements the Collector interface
func (m *StationMetrics) Collect(ch chan<- prometheus.Metric) {
	m.requestsTotal.Collect(ch)
	m.requestErrorsTotal.Collect(ch)
	m.requestDuration.Collect(ch)
	m.statusCodesTotal.Collect(ch)
	m.detectionsFetched.Collect(ch)
	m.uniqueSpecies.Collect(ch)
	m.repeatedSpecies.Collect(ch)
	m.sectionFailures.Collect(ch)
}

// RecordOperation implements Recorder
func (m *StationMetrics) RecordOperation(operation, status string) {
	m.requestsTotal.WithLabelValues(operation, status).Inc()
}

// RecordDuration implements Recorder
func (m *StationMetrics) RecordDuration(operation string, seconds float64) {
	m.requestDuration.WithLabelValues(operation).Observe(seconds)
}

// RecordError implements Recorder
func (m *StationMetrics) RecordError(operation, errorType string) {
	m.requestErrorsTotal.WithLabelValues(operation, errorType).Inc()
}

// RecordStatusCode records the HTTP status code of a response
func (m *StationMetrics) RecordStatusCode(operation, statusCode string) {
	m.statusCodesTotal.WithLabelValues(operation, statusCode).Inc()
}

// SetDetectionsFetched records the size of a fetched detections window
func (m *StationMetrics) SetDetectionsFetched(mode string, n int) {
	m.detectionsFetched.WithLabelValues(mode).Set(float64(n))
}

// SetSpeciesSummary records the outcome of the unique-species aggregation
func (m *StationMetrics) SetSpeciesSummary(unique, repeated int) {
	m.uniqueSpecies.Set(float64(unique))
	m.repeatedSpecies.Set(float64(repeated))
}

// RecordSectionFailure counts a report section whose fetch failed
func (m *StationMetrics) RecordSectionFailure(section string) {
	m.sectionFailures.WithLabelValues(section).Inc()
}

var _ Recorder = (*StationMetrics)(nil)
