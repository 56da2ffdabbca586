package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gatherFamilies(t *testing.T, reg *prometheus.Registry) map[string]*dto.MetricFamily {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)

	out := make(map[string]*dto.MetricFamily, len(families))
	for _, f := range families {
		out[f.GetName()] = f
	}
	return out
}

func labelValue(m *dto.Metric, name string) string {
	for _, lp := range m.GetLabel() {
		if lp.GetName() == name {
			return lp.GetValue()
		}
	}
	return ""
}

func TestStationMetrics_Requests(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	m, err := NewStationMetrics(reg)
	require.NoError(t, err)

	m.RecordOperation(OpStats, StatusSuccess)
	m.RecordOperation(OpStats, StatusSuccess)
	m.RecordOperation(OpDetections, StatusError)
	m.RecordError(OpDetections, "response-shape")
	m.RecordDuration(OpStats, 0.25)
	m.RecordStatusCode(OpStats, "200")

	families := gatherFamilies(t, reg)

	requests := families["bwpull_api_requests_total"]
	require.NotNil(t, requests)
	require.Len(t, requests.GetMetric(), 2)
	for _, metric := range requests.GetMetric() {
		switch labelValue(metric, "endpoint") {
		case OpStats:
			assert.InDelta(t, 2, metric.GetCounter().GetValue(), 0)
		case OpDetections:
			assert.Equal(t, StatusError, labelValue(metric, "status"))
		}
	}

	hist := families["bwpull_api_request_duration_seconds"]
	require.NotNil(t, hist)
	assert.Equal(t, uint64(1), hist.GetMetric()[0].GetHistogram().GetSampleCount())

	errs := families["bwpull_api_request_errors_total"]
	require.NotNil(t, errs)
	assert.Equal(t, "response-shape", labelValue(errs.GetMetric()[0], "error_type"))
}

func TestStationMetrics_Summary(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	m, err := NewStationMetrics(reg)
	require.NoError(t, err)

	m.SetDetectionsFetched("unique", 100)
	m.SetSpeciesSummary(12, 5)
	m.RecordSectionFailure("detections")

	families := gatherFamilies(t, reg)
	assert.InDelta(t, 100, families["bwpull_detections_fetched"].GetMetric()[0].GetGauge().GetValue(), 0)
	assert.InDelta(t, 12, families["bwpull_unique_species"].GetMetric()[0].GetGauge().GetValue(), 0)
	assert.InDelta(t, 5, families["bwpull_repeated_species"].GetMetric()[0].GetGauge().GetValue(), 0)
	assert.InDelta(t, 1, families["bwpull_report_section_failures_total"].GetMetric()[0].GetCounter().GetValue(), 0)
}

func TestStationMetrics_DoubleRegister(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	_, err := NewStationMetrics(reg)
	require.NoError(t, err)

	_, err = NewStationMetrics(reg)
	require.Error(t, err)
}

func TestNopRecorder(t *testing.T) {
	t.Parallel()

	var r Recorder = NopRecorder{}
	r.RecordOperation(OpSpecies, StatusSuccess)
	r.RecordDuration(OpSpecies, 1)
	r.RecordError(OpSpecies, "x")
}
