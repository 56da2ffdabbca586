package conf

import (
	"fmt"
	"net/url"
	"slices"
	"strings"

	"github.com/tphakala/bwpull/internal/errors"
	"github.com/tphakala/bwpull/internal/logger"
)

// ValidationError represents a collection of validation errors
type ValidationError struct {
	Errors []string
}

// Error returns a string representation of the validation errors
func (ve ValidationError) Error() string {
	return fmt.Sprintf("validation errors: %s", strings.Join(ve.Errors, "; "))
}

// ValidateSettings checks limits, periods, format, timezone and transport options.
func ValidateSettings(settings *Settings) error {
	ve := ValidationError{}

	ve.Errors = append(ve.Errors, validateWindows(settings)...)
	ve.Errors = append(ve.Errors, validateOutput(settings)...)
	ve.Errors = append(ve.Errors, validateTransport(settings)...)

	if len(ve.Errors) > 0 {
		return errors.New(ve).
			Component("conf").
			Category(errors.CategoryValidation).
			Context("error_count", len(ve.Errors)).
			Build()
	}
	return nil
}

func validateWindows(s *Settings) []string {
	var errs []string

	if s.Hours < 1 {
		errs = append(errs, fmt.Sprintf("hours must be at least 1, got %d", s.Hours))
	}
	if s.Recent < 0 || s.Recent > MaxDetectionsLimit {
		errs = append(errs, fmt.Sprintf("recent must be between 0 and %d, got %d", MaxDetectionsLimit, s.Recent))
	}
	if s.Unique < 0 || s.Unique > MaxDetectionsLimit {
		errs = append(errs, fmt.Sprintf("unique must be between 0 and %d, got %d", MaxDetectionsLimit, s.Unique))
	}

	if s.Stats {
		if len(s.Periods) == 0 {
			errs = append(errs, "at least one period is required when stats are enabled")
		}
		for _, p := range s.Periods {
			if !slices.Contains(ValidPeriods, p) {
				errs = append(errs, fmt.Sprintf("unknown period %q, expected one of %s", p, strings.Join(ValidPeriods, ", ")))
			}
		}
	}
	return errs
}

func validateOutput(s *Settings) []string {
	var errs []string

	switch s.Format {
	case FormatText, FormatJSON, FormatYAML:
	default:
		errs = append(errs, fmt.Sprintf("unknown format %q, expected text, json or yaml", s.Format))
	}
	if _, err := s.Location(); err != nil {
		errs = append(errs, fmt.Sprintf("invalid timezone %q: %v", s.Timezone, err))
	}
	if s.LogLevel != "" && !logger.ValidLevel(s.LogLevel) {
		errs = append(errs, fmt.Sprintf("unknown log level %q", s.LogLevel))
	}
	return errs
}

func validateTransport(s *Settings) []string {
	var errs []string

	u, err := url.Parse(s.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, fmt.Sprintf("base URL must be an absolute http(s) URL, got %q", s.BaseURL))
	}
	if s.Timeout <= 0 {
		errs = append(errs, "timeout must be positive")
	}
	if s.RateLimit <= 0 {
		errs = append(errs, fmt.Sprintf("rate limit must be positive, got %g", s.RateLimit))
	}
	return errs
}
