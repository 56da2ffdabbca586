package errors

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingReporter struct {
	reported []*EnhancedError
}

func (r *recordingReporter) ReportError(ee *EnhancedError) {
	r.reported = append(r.reported, ee)
	ee.MarkReported()
}

func (r *recordingReporter) IsEnabled() bool { return true }

func TestFastPathNoTelemetry(t *testing.T) {
	SetTelemetryReporter(nil)

	ee := New(fmt.Errorf("test error")).Build()

	assert.Equal(t, "test error", ee.Error())
	assert.Equal(t, ComponentUnknown, ee.GetComponent())
	assert.Equal(t, CategoryGeneric, ee.Category)
	assert.False(t, ee.IsReported())
}

func TestBuildReportsWhenReporterInstalled(t *testing.T) {
	reporter := &recordingReporter{}
	SetTelemetryReporter(reporter)
	t.Cleanup(func() { SetTelemetryReporter(nil) })

	ee := Newf("station %s unreachable", "abc").
		Component("birdweather").
		Category(CategoryNetwork).
		Build()

	require.Len(t, reporter.reported, 1)
	assert.Same(t, ee, reporter.reported[0])
	assert.True(t, ee.IsReported())
}

func TestDisabledReporterIsSkipped(t *testing.T) {
	SetTelemetryReporter(NewSentryReporter(false))
	t.Cleanup(func() { SetTelemetryReporter(nil) })

	ee := New(NewStd("boom")).Build()
	assert.False(t, ee.IsReported())
}

func TestIsCategory(t *testing.T) {
	t.Parallel()

	inner := Newf("missing field %q", "species").
		Component("birdweather").
		Category(CategoryResponseShape).
		Build()
	wrapped := fmt.Errorf("species section: %w", inner)

	assert.True(t, IsCategory(wrapped, CategoryResponseShape))
	assert.False(t, IsCategory(wrapped, CategoryHTTP))
	assert.False(t, IsCategory(NewStd("plain"), CategoryResponseShape))
	assert.False(t, IsNotFound(wrapped))
}

func TestDetectCategory(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want ErrorCategory
	}{
		{"timeout", NewStd("context deadline exceeded"), CategoryTimeout},
		{"cancel", NewStd("context canceled"), CategoryCancellation},
		{"network", NewStd("dial tcp: connection refused"), CategoryNetwork},
		{"file", NewStd("open config.json: permission denied"), CategoryFileIO},
		{"validation", NewStd("invalid limit"), CategoryValidation},
		{"generic", NewStd("something odd"), CategoryGeneric},
		{"nested", New(NewStd("x")).Category(CategoryHTTP).Build(), CategoryHTTP},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, New(tt.err).Build().Category)
		})
	}
}

func TestPriorityNormalization(t *testing.T) {
	t.Parallel()

	assert.Equal(t, PriorityHigh, New(NewStd("x")).Priority(PriorityHigh).Build().GetPriority())
	assert.Equal(t, PriorityMedium, New(NewStd("x")).Priority("urgent").Build().GetPriority())
	assert.Empty(t, New(NewStd("x")).Build().GetPriority())
}

func TestGetContextReturnsCopy(t *testing.T) {
	t.Parallel()

	ee := New(NewStd("x")).Context("period", "day").Build()
	ctx := ee.GetContext()
	ctx["period"] = "week"

	assert.Equal(t, "day", ee.GetContext()["period"])
}

func TestGenerateErrorTitle(t *testing.T) {
	t.Parallel()

	ee := New(NewStd("x")).
		Component("birdweather").
		Category(CategoryHTTP).
		Context("operation", "fetch_period_stats").
		Build()

	assert.Equal(t, "Birdweather HTTP Error Fetch Period Stats", generateErrorTitle(ee))
}

func TestScrubMessage(t *testing.T) {
	t.Parallel()

	scrubbed := ScrubMessage("Error at https://api.example.com?api_key=secret123&token=abc")
	assert.Equal(t, "Error at https://api.example.com?[REDACTED]", scrubbed)

	scrubbed = ScrubMessage("Config error: api_key=secret123 is invalid")
	assert.Contains(t, scrubbed, "[API_KEY_REDACTED]")

	scrubbed = ScrubMessage("Auth failed with token=abc123 and auth=xyz789")
	assert.NotContains(t, scrubbed, "abc123")
	assert.NotContains(t, scrubbed, "xyz789")

	scrubbed = ScrubMessage("GET https://app.birdweather.com/api/v1/stations/s3cr3t/species failed")
	assert.False(t, strings.Contains(scrubbed, "s3cr3t"), scrubbed)

	scrubbed = ScrubMessage("header Authorization: Bearer abcdef")
	assert.NotContains(t, scrubbed, "abcdef")
}
