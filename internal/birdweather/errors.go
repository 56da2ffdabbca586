package birdweather

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"time"

	"github.com/tphakala/bwpull/internal/errors"
	"github.com/tphakala/bwpull/internal/logger"
)

const componentName = "birdweather"

// Error type labels used for metrics.
const (
	errTypeTimeout   = "timeout"
	errTypeNetwork   = "network"
	errTypeDNS       = "dns"
	errTypeStatus    = "http_status"
	errTypeShape     = "response_shape"
	errTypeCancelled = "cancelled"
	errTypeRateLimit = "rate_limit"
)

// StatusError is returned when the station API answers with a non-2xx status.
type StatusError struct {
	Endpoint   string
	StatusCode int
	Status     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s request failed with status %d", e.Endpoint, e.StatusCode)
}

// ShapeError describes a 2xx response that lacks a field the client needs or
// carries a value of the wrong type.
type ShapeError struct {
	Endpoint string
	// Field is the dotted path of the offending field, empty when the body
	// was not a JSON object at all.
	Field   string
	Missing bool
	Err     error
}

func (e *ShapeError) Error() string {
	switch {
	case e.Field == "":
		return fmt.Sprintf("%s response is not a JSON object: %v", e.Endpoint, e.Err)
	case e.Missing:
		return fmt.Sprintf("key '%s' not found in %s response", e.Field, e.Endpoint)
	default:
		return fmt.Sprintf("invalid '%s' in %s response: %v", e.Field, e.Endpoint, e.Err)
	}
}

func (e *ShapeError) Unwrap() error { return e.Err }

// IsUnexpectedShape reports whether err was caused by a response missing an
// expected field.
func IsUnexpectedShape(err error) bool {
	return errors.IsCategory(err, errors.CategoryResponseShape)
}

// IsUpstreamUnavailable reports whether err is a transport failure, a
// timeout or a non-2xx answer from the station API.
func IsUpstreamUnavailable(err error) bool {
	if err == nil {
		return false
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return true
	}
	return errors.IsCategory(err, errors.CategoryNetwork) ||
		errors.IsCategory(err, errors.CategoryTimeout) ||
		errors.IsCategory(err, errors.CategoryHTTP)
}

// MissingField returns the field name when err reports a missing response key.
func MissingField(err error) (string, bool) {
	var shapeErr *ShapeError
	if errors.As(err, &shapeErr) && shapeErr.Missing {
		return shapeErr.Field, true
	}
	return "", false
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode
	}
	return 0
}

// handleNetworkError classifies a failed request and returns the categorised
// error together with its metrics label.
func handleNetworkError(err error, endpoint, maskedURL string, elapsed time.Duration) (*errors.EnhancedError, string) {
	log := GetLogger()

	if errors.Is(err, context.Canceled) {
		return errors.New(err).
			Component(componentName).
			Category(errors.CategoryCancellation).
			Context("endpoint", endpoint).
			Build(), errTypeCancelled
	}

	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		log.Warn("station API request timed out", logger.String("endpoint", endpoint), logger.String("url", maskedURL))
		return errors.Newf("request timed out: %w", err).
			Component(componentName).
			Category(errors.CategoryTimeout).
			Context("endpoint", endpoint).
			NetworkContext(maskedURL, 0).
			Timing(endpoint, elapsed).
			Build(), errTypeTimeout
	}

	var dnsErr *net.DNSError
	var urlErr *url.Error
	if errors.As(err, &urlErr) && errors.As(urlErr.Err, &dnsErr) {
		log.Error("DNS resolution failed", logger.String("endpoint", endpoint), logger.String("host", dnsErr.Name))
		return errors.Newf("DNS resolution failed: %w", err).
			Component(componentName).
			Category(errors.CategoryNetwork).
			Context("endpoint", endpoint).
			Context("network_error", errTypeDNS).
			NetworkContext(maskedURL, 0).
			Build(), errTypeDNS
	}

	log.Error("station API request failed", logger.String("endpoint", endpoint), logger.String("url", maskedURL), logger.Error(err))
	return errors.Newf("network error: %w", err).
		Component(componentName).
		Category(errors.CategoryNetwork).
		Context("endpoint", endpoint).
		NetworkContext(maskedURL, 0).
		Timing(endpoint, elapsed).
		Build(), errTypeNetwork
}

func statusError(endpoint string, code int, status string) *errors.EnhancedError {
	return errors.New(&StatusError{Endpoint: endpoint, StatusCode: code, Status: status}).
		Component(componentName).
		Category(errors.CategoryHTTP).
		Context("endpoint", endpoint).
		Context("status_code", code).
		Build()
}

func shapeError(endpoint, field string, missing bool, cause error) *errors.EnhancedError {
	return errors.New(&ShapeError{Endpoint: endpoint, Field: field, Missing: missing, Err: cause}).
		Component(componentName).
		Category(errors.CategoryResponseShape).
		Context("endpoint", endpoint).
		Context("field", field).
		Build()
}
