// Package detection holds the station detection model and the aggregation
// that reduces a window of recent detections to one entry per species.
package detection

import (
	"fmt"
	"time"
)

// Record is one detection as returned by the station API, newest-first when
// fetched with order=desc.
type Record struct {
	SpeciesCommonName string    `json:"species" yaml:"species"`
	Timestamp         time.Time `json:"timestamp" yaml:"timestamp"`
}

// SummaryEntry describes one distinct species within a detection window.
// FirstSeen is the timestamp of the species' earliest-indexed record, which
// for newest-first input is its most recent detection.
type SummaryEntry struct {
	SpeciesCommonName string    `json:"species" yaml:"species"`
	FirstSeen         time.Time `json:"first_seen" yaml:"first_seen"`
	Repeated          bool      `json:"repeated" yaml:"repeated"`
	Count             int       `json:"count" yaml:"count"`
}

// Mode selects how a detections window is presented.
type Mode int

const (
	// ModeAll lists every record in fetch order.
	ModeAll Mode = iota
	// ModeUnique collapses the window to one entry per species.
	ModeUnique
)

// String implements fmt.Stringer
func (m Mode) String() string {
	switch m {
	case ModeAll:
		return "all"
	case ModeUnique:
		return "unique"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}
