// Package report runs the fixed bwpull fetch plan against a station and
// renders the results as text, JSON or YAML.
package report

import (
	"time"

	"github.com/tphakala/bwpull/internal/birdweather"
	"github.com/tphakala/bwpull/internal/detection"
	"github.com/tphakala/bwpull/internal/logger"
)

// Section names used in logs and metrics.
const (
	SectionSpecies          = "species"
	SectionRecentDetections = "detections_recent"
	SectionUniqueSpecies    = "detections_unique"
	SectionStats            = "stats"
)

// Report is the outcome of one run. Sections that were not requested are
// nil; a requested section always carries either data or Err.
type Report struct {
	Station     string
	GeneratedAt time.Time
	Location    *time.Location

	Species *SpeciesSection
	Recent  *DetectionsSection
	Unique  *DetectionsSection
	Stats   []StatsSection
}

// SpeciesSection lists species detected within the lookback window.
type SpeciesSection struct {
	Hours   int
	Since   time.Time
	Species []birdweather.SpeciesCount
	Err     error
}

// DetectionsSection holds one detections window. Records is set in
// detection.ModeAll, Summary in detection.ModeUnique.
type DetectionsSection struct {
	Mode    detection.Mode
	Limit   int
	Records []detection.Record
	Summary []detection.SummaryEntry
	Err     error
}

// StatsSection holds the station stats for one period.
type StatsSection struct {
	Period birdweather.Period
	Stats  *birdweather.PeriodStats
	Err    error
}

// Failed returns the number of sections that carry an error.
func (r *Report) Failed() int {
	n := 0
	if r.Species != nil && r.Species.Err != nil {
		n++
	}
	if r.Recent != nil && r.Recent.Err != nil {
		n++
	}
	if r.Unique != nil && r.Unique.Err != nil {
		n++
	}
	for i := range r.Stats {
		if r.Stats[i].Err != nil {
			n++
		}
	}
	return n
}

// GetLogger returns the report package logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("report")
}
