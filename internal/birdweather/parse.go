package birdweather

import (
	"fmt"
	"strings"
	"time"

	"github.com/antonholmquist/jason"

	"github.com/tphakala/bwpull/internal/detection"
	"github.com/tphakala/bwpull/internal/errors"
	"github.com/tphakala/bwpull/internal/observability/metrics"
)

// timestampLayouts are tried in order; the API normally sends RFC 3339 with
// a zone offset.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
}

// has reports whether keys resolve to a value, null included.
func has(obj *jason.Object, keys ...string) bool {
	_, err := obj.GetValue(keys...)
	return err == nil
}

// fieldError builds the shape error for a failed lookup of path in obj.
func fieldError(endpoint, path string, obj *jason.Object, keys []string, cause error) *errors.EnhancedError {
	return shapeError(endpoint, path, !has(obj, keys...), cause)
}

func parseSpecies(obj *jason.Object) ([]SpeciesCount, error) {
	const endpoint = metrics.OpSpecies

	entries, err := obj.GetObjectArray("species")
	if err != nil {
		return nil, fieldError(endpoint, "species", obj, []string{"species"}, err)
	}

	out := make([]SpeciesCount, 0, len(entries))
	for i, entry := range entries {
		name, err := entry.GetString("commonName")
		if err != nil {
			return nil, fieldError(endpoint, fmt.Sprintf("species[%d].commonName", i), entry, []string{"commonName"}, err)
		}
		total, err := entry.GetInt64("detections", "total")
		if err != nil {
			return nil, fieldError(endpoint, fmt.Sprintf("species[%d].detections.total", i), entry, []string{"detections", "total"}, err)
		}
		out = append(out, SpeciesCount{CommonName: name, Total: total})
	}
	return out, nil
}

func parseDetections(obj *jason.Object) ([]detection.Record, error) {
	const endpoint = metrics.OpDetections

	entries, err := obj.GetObjectArray("detections")
	if err != nil {
		return nil, fieldError(endpoint, "detections", obj, []string{"detections"}, err)
	}

	out := make([]detection.Record, 0, len(entries))
	for i, entry := range entries {
		name, err := entry.GetString("species", "commonName")
		if err != nil {
			return nil, fieldError(endpoint, fmt.Sprintf("detections[%d].species.commonName", i), entry, []string{"species", "commonName"}, err)
		}
		raw, err := entry.GetString("timestamp")
		if err != nil {
			return nil, fieldError(endpoint, fmt.Sprintf("detections[%d].timestamp", i), entry, []string{"timestamp"}, err)
		}
		ts, err := parseTimestamp(raw)
		if err != nil {
			return nil, shapeError(endpoint, fmt.Sprintf("detections[%d].timestamp", i), false, err)
		}
		out = append(out, detection.Record{SpeciesCommonName: name, Timestamp: ts})
	}
	return out, nil
}

func parseStats(obj *jason.Object, period Period, since string) (*PeriodStats, error) {
	stats := &PeriodStats{Period: period, Since: since}

	var err error
	if stats.Detections, err = optionalNumber(obj, "detections"); err != nil {
		return nil, err
	}
	if stats.Species, err = optionalNumber(obj, "species"); err != nil {
		return nil, err
	}
	return stats, nil
}

// optionalNumber returns nil for an absent or null field.
func optionalNumber(obj *jason.Object, key string) (*float64, error) {
	v, err := obj.GetValue(key)
	if err != nil {
		return nil, nil //nolint:nilnil // absence is a valid answer
	}
	if v.Null() == nil {
		return nil, nil //nolint:nilnil // null is treated as absent
	}
	f, err := v.Float64()
	if err != nil {
		return nil, shapeError(metrics.OpStats, key, false, err)
	}
	return &f, nil
}

// parseTimestamp accepts RFC 3339 timestamps; a timestamp without an offset
// is read as UTC.
func parseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	var firstErr error
	for _, layout := range timestampLayouts {
		ts, err := time.Parse(layout, s)
		if err == nil {
			return ts, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return time.Time{}, firstErr
}
