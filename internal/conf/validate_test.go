package conf

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/bwpull/internal/errors"
)

func validSettings() *Settings {
	return &Settings{
		BaseURL:   DefaultBaseURL,
		Timeout:   30 * time.Second,
		Hours:     6,
		Recent:    5,
		Unique:    100,
		Stats:     true,
		Periods:   []string{"day", "week"},
		Format:    FormatText,
		Timezone:  "UTC",
		RateLimit: 5,
		LogLevel:  "warn",
	}
}

func TestValidateSettings(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*Settings)
		wantErr string
	}{
		{"valid", func(*Settings) {}, ""},
		{"zero windows allowed", func(s *Settings) { s.Recent, s.Unique = 0, 0 }, ""},
		{"stats disabled ignores periods", func(s *Settings) { s.Stats, s.Periods = false, nil }, ""},
		{"hours below one", func(s *Settings) { s.Hours = 0 }, "hours must be at least 1"},
		{"negative recent", func(s *Settings) { s.Recent = -1 }, "recent must be between 0 and 100"},
		{"unique above max", func(s *Settings) { s.Unique = 101 }, "unique must be between 0 and 100"},
		{"unknown period", func(s *Settings) { s.Periods = []string{"year"} }, `unknown period "year"`},
		{"no periods", func(s *Settings) { s.Periods = nil }, "at least one period"},
		{"unknown format", func(s *Settings) { s.Format = "xml" }, `unknown format "xml"`},
		{"bad timezone", func(s *Settings) { s.Timezone = "Mars/Base" }, "invalid timezone"},
		{"bad log level", func(s *Settings) { s.LogLevel = "loud" }, "unknown log level"},
		{"relative base url", func(s *Settings) { s.BaseURL = "/api/v1" }, "base URL must be an absolute"},
		{"zero timeout", func(s *Settings) { s.Timeout = 0 }, "timeout must be positive"},
		{"zero rate limit", func(s *Settings) { s.RateLimit = 0 }, "rate limit must be positive"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			s := validSettings()
			tt.mutate(s)
			err := ValidateSettings(s)

			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
			assert.True(t, errors.IsCategory(err, errors.CategoryValidation))

			var ve ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Len(t, ve.Errors, 1)
		})
	}
}
