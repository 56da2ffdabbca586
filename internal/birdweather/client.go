// Package birdweather is a read-only client for the BirdWeather station API.
//
// It covers the three endpoints bwpull reports on: species seen since an
// instant, the most recent detections, and per-period station statistics.
// Responses are inspected field by field so that a missing top-level key is
// reported as an unexpected shape rather than an empty result.
package birdweather

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/antonholmquist/jason"
	"golang.org/x/time/rate"

	"github.com/tphakala/bwpull/internal/detection"
	"github.com/tphakala/bwpull/internal/errors"
	"github.com/tphakala/bwpull/internal/httpclient"
	"github.com/tphakala/bwpull/internal/logger"
	"github.com/tphakala/bwpull/internal/observability/metrics"
)

const (
	// DefaultBaseURL is the public BirdWeather API root.
	DefaultBaseURL = "https://app.birdweather.com/api/v1"

	// MaxDetectionsLimit is the largest page size the detections endpoint accepts.
	MaxDetectionsLimit = 100

	defaultRequestsPerSecond = 5
	defaultBurst             = 1

	// maxErrorBodyBytes bounds how much of a failed response is drained.
	maxErrorBodyBytes = 4096

	statsDateLayout = "2006-01-02"
)

// Period is a stats aggregation window.
type Period string

const (
	PeriodDay   Period = "day"
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
	PeriodAll   Period = "all"
)

// Periods lists every period the stats endpoint accepts, in report order.
func Periods() []Period {
	return []Period{PeriodDay, PeriodWeek, PeriodMonth, PeriodAll}
}

// ParsePeriod converts a user supplied period name.
func ParsePeriod(s string) (Period, error) {
	p := Period(strings.ToLower(strings.TrimSpace(s)))
	for _, valid := range Periods() {
		if p == valid {
			return p, nil
		}
	}
	return "", errors.Newf("unknown stats period %q", s).
		Component(componentName).
		Category(errors.CategoryValidation).
		Build()
}

// SpeciesCount is one row of the species endpoint.
type SpeciesCount struct {
	CommonName string `json:"commonName" yaml:"common_name"`
	Total      int64  `json:"total" yaml:"total"`
}

// PeriodStats is the answer of the stats endpoint for one period. Nil
// counts mean the field was absent from the response.
type PeriodStats struct {
	Period     Period   `json:"period" yaml:"period"`
	Since      string   `json:"since" yaml:"since"`
	Detections *float64 `json:"detections" yaml:"detections"`
	Species    *float64 `json:"species" yaml:"species"`
}

// Config identifies the station and its credentials.
type Config struct {
	BaseURL string
	Token   string
	Station string
}

// Client talks to one station. Safe for concurrent use.
type Client struct {
	baseURL string
	token   string
	station string

	http    *httpclient.Client
	limiter *rate.Limiter
	metrics metrics.Recorder
	log     logger.Logger
}

// Option customises a Client.
type Option func(*Client)

// WithLogger replaces the package logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

// WithRecorder sets the metrics recorder for API calls.
func WithRecorder(r metrics.Recorder) Option {
	return func(c *Client) {
		if r != nil {
			c.metrics = r
		}
	}
}

// WithLimiter sets the limiter every request waits on.
func WithLimiter(l *rate.Limiter) Option {
	return func(c *Client) {
		if l != nil {
			c.limiter = l
		}
	}
}

// NewClient creates a station API client. A nil httpClient gets a default one.
func NewClient(cfg Config, httpClient *httpclient.Client, opts ...Option) (*Client, error) {
	if cfg.Token == "" || cfg.Station == "" {
		return nil, errors.Newf("station token and station ID are required").
			Component(componentName).
			Category(errors.CategoryConfiguration).
			Build()
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if u, err := url.Parse(baseURL); err != nil || u.Scheme == "" || u.Host == "" {
		return nil, errors.Newf("invalid station API base URL %q", baseURL).
			Component(componentName).
			Category(errors.CategoryConfiguration).
			Build()
	}

	if httpClient == nil {
		httpClient = httpclient.New(nil)
	}

	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   cfg.Token,
		station: cfg.Station,
		http:    httpClient,
		limiter: rate.NewLimiter(rate.Limit(defaultRequestsPerSecond), defaultBurst),
		metrics: metrics.NopRecorder{},
		log:     GetLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Station returns the station ID the client queries.
func (c *Client) Station() string {
	return c.station
}

// SpeciesSince lists the species detected since the given instant.
func (c *Client) SpeciesSince(ctx context.Context, since time.Time) ([]SpeciesCount, error) {
	query := url.Values{}
	query.Set("period", "day")
	query.Set("since", since.UTC().Format(time.RFC3339))

	obj, err := c.get(ctx, metrics.OpSpecies, "species", query, c.token)
	if err != nil {
		return nil, err
	}

	species, err := parseSpecies(obj)
	c.finish(metrics.OpSpecies, err)
	return species, err
}

// RecentDetections returns up to limit detections, newest first.
func (c *Client) RecentDetections(ctx context.Context, limit int) ([]detection.Record, error) {
	if limit < 1 || limit > MaxDetectionsLimit {
		return nil, errors.Newf("detections limit %d outside 1..%d", limit, MaxDetectionsLimit).
			Component(componentName).
			Category(errors.CategoryValidation).
			Context("limit", limit).
			Build()
	}

	query := url.Values{}
	query.Set("limit", strconv.Itoa(limit))
	query.Set("order", "desc")

	obj, err := c.get(ctx, metrics.OpDetections, "detections", query, c.token)
	if err != nil {
		return nil, err
	}

	records, err := parseDetections(obj)
	c.finish(metrics.OpDetections, err)
	return records, err
}

// PeriodStats fetches aggregate counts for period starting at the calendar
// date of since, in since's location.
func (c *Client) PeriodStats(ctx context.Context, period Period, since time.Time) (*PeriodStats, error) {
	if _, err := ParsePeriod(string(period)); err != nil {
		return nil, err
	}

	sinceDate := since.Format(statsDateLayout)
	query := url.Values{}
	query.Set("period", string(period))
	query.Set("since", sinceDate)

	obj, err := c.get(ctx, metrics.OpStats, "stats", query, "Bearer "+c.token)
	if err != nil {
		return nil, err
	}

	stats, err := parseStats(obj, period, sinceDate)
	c.finish(metrics.OpStats, err)
	return stats, err
}

// get performs one rate limited request and decodes the body as a JSON
// object. Failures are counted here; a successful decode is counted by
// finish once the payload has been inspected.
func (c *Client) get(ctx context.Context, op, resource string, query url.Values, authorization string) (*jason.Object, error) {
	requestURL := c.baseURL + "/stations/" + url.PathEscape(c.station) + "/" + resource + "?" + query.Encode()
	masked := maskURLForLogging(requestURL, c.station)

	if err := c.limiter.Wait(ctx); err != nil {
		category := errors.CategoryLimit
		if ctx.Err() != nil {
			category = errors.CategoryCancellation
		}
		c.fail(op, errTypeRateLimit)
		return nil, errors.New(err).
			Component(componentName).
			Category(category).
			Context("endpoint", op).
			Context("operation", "rate_limiter_wait").
			Build()
	}

	header := http.Header{}
	header.Set("Authorization", authorization)
	header.Set("Accept", "application/json")

	c.log.Debug("sending station API request",
		logger.String("endpoint", op),
		logger.String("url", masked))

	start := time.Now()
	resp, err := c.http.Get(ctx, requestURL, header)
	elapsed := time.Since(start)
	c.metrics.RecordDuration(op, elapsed.Seconds())

	if err != nil {
		netErr, errType := handleNetworkError(err, op, masked, elapsed)
		c.fail(op, errType)
		return nil, netErr
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			c.log.Debug("failed to close response body", logger.String("endpoint", op), logger.Error(cerr))
		}
	}()

	if sr, ok := c.metrics.(statusRecorder); ok {
		sr.RecordStatusCode(op, strconv.Itoa(resp.StatusCode))
	}

	c.log.Debug("station API response received",
		logger.String("endpoint", op),
		logger.String("url", masked),
		logger.Int("status_code", resp.StatusCode),
		logger.Duration("duration", elapsed))

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBodyBytes))
		c.log.Warn("station API returned non-success status",
			logger.String("endpoint", op),
			logger.Int("status_code", resp.StatusCode))
		c.fail(op, errTypeStatus)
		return nil, statusError(op, resp.StatusCode, resp.Status)
	}

	obj, err := jason.NewObjectFromReader(resp.Body)
	if err != nil {
		if ctx.Err() != nil {
			e, errType := handleNetworkError(err, op, masked, elapsed)
			c.fail(op, errType)
			return nil, e
		}
		c.fail(op, errTypeShape)
		return nil, shapeError(op, "", false, err)
	}
	return obj, nil
}

// finish records the outcome of payload inspection.
func (c *Client) finish(op string, err error) {
	if err != nil {
		c.log.Warn("unexpected station API response", logger.String("endpoint", op), logger.Error(err))
		c.fail(op, errTypeShape)
		return
	}
	c.metrics.RecordOperation(op, metrics.StatusSuccess)
}

func (c *Client) fail(op, errType string) {
	c.metrics.RecordOperation(op, metrics.StatusError)
	c.metrics.RecordError(op, errType)
}

// statusRecorder is implemented by recorders that also count status codes.
type statusRecorder interface {
	RecordStatusCode(operation, statusCode string)
}

// maskURLForLogging hides the station ID in URLs written to logs.
func maskURLForLogging(urlStr, station string) string {
	if station == "" {
		return urlStr
	}
	return strings.ReplaceAll(urlStr, url.PathEscape(station), "***")
}
