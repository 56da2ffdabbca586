package report

import (
	"encoding/json"
	"io"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/tphakala/bwpull/internal/birdweather"
	"github.com/tphakala/bwpull/internal/detection"
	"github.com/tphakala/bwpull/internal/errors"
)

// reportView is the serialised form shared by the JSON and YAML renderers.
type reportView struct {
	Station     string       `json:"station" yaml:"station"`
	GeneratedAt string       `json:"generated_at" yaml:"generated_at"`
	Species     *speciesView `json:"species,omitempty" yaml:"species,omitempty"`
	Recent      *recentView  `json:"recent_detections,omitempty" yaml:"recent_detections,omitempty"`
	Unique      *uniqueView  `json:"unique_species,omitempty" yaml:"unique_species,omitempty"`
	Stats       []statsView  `json:"stats,omitempty" yaml:"stats,omitempty"`
}

type sectionError struct {
	Message      string `json:"message" yaml:"message"`
	MissingField string `json:"missing_field,omitempty" yaml:"missing_field,omitempty"`
	StatusCode   int    `json:"status_code,omitempty" yaml:"status_code,omitempty"`
}

type speciesView struct {
	Hours   int                        `json:"hours" yaml:"hours"`
	Since   string                     `json:"since" yaml:"since"`
	Species []birdweather.SpeciesCount `json:"species" yaml:"species"`
	Error   *sectionError              `json:"error,omitempty" yaml:"error,omitempty"`
}

type recordView struct {
	Species   string `json:"species" yaml:"species"`
	Timestamp string `json:"timestamp" yaml:"timestamp"`
}

type recentView struct {
	Limit      int           `json:"limit" yaml:"limit"`
	Detections []recordView  `json:"detections" yaml:"detections"`
	Error      *sectionError `json:"error,omitempty" yaml:"error,omitempty"`
}

type summaryView struct {
	Species   string `json:"species" yaml:"species"`
	FirstSeen string `json:"first_seen" yaml:"first_seen"`
	Repeated  bool   `json:"repeated" yaml:"repeated"`
	Count     int    `json:"count" yaml:"count"`
}

type uniqueView struct {
	Limit   int           `json:"limit" yaml:"limit"`
	Species []summaryView `json:"species" yaml:"species"`
	Error   *sectionError `json:"error,omitempty" yaml:"error,omitempty"`
}

type statsView struct {
	Period     birdweather.Period `json:"period" yaml:"period"`
	Since      string             `json:"since,omitempty" yaml:"since,omitempty"`
	Detections *float64           `json:"detections" yaml:"detections"`
	Species    *float64           `json:"species" yaml:"species"`
	Error      *sectionError      `json:"error,omitempty" yaml:"error,omitempty"`
}

func newSectionError(err error) *sectionError {
	if err == nil {
		return nil
	}
	se := &sectionError{Message: err.Error(), StatusCode: birdweather.StatusCode(err)}
	if field, ok := birdweather.MissingField(err); ok {
		se.MissingField = field
	}
	return se
}

func newReportView(rep *Report) *reportView {
	loc := rep.Location
	if loc == nil {
		loc = time.Local
	}

	v := &reportView{
		Station:     rep.Station,
		GeneratedAt: rep.GeneratedAt.In(loc).Format(time.RFC3339),
	}

	if s := rep.Species; s != nil {
		v.Species = &speciesView{
			Hours:   s.Hours,
			Since:   s.Since.UTC().Format(time.RFC3339),
			Species: s.Species,
			Error:   newSectionError(s.Err),
		}
		if v.Species.Species == nil {
			v.Species.Species = []birdweather.SpeciesCount{}
		}
	}

	if s := rep.Recent; s != nil {
		v.Recent = &recentView{Limit: s.Limit, Detections: recordViews(s.Records), Error: newSectionError(s.Err)}
	}

	if s := rep.Unique; s != nil {
		v.Unique = &uniqueView{Limit: s.Limit, Species: summaryViews(s.Summary, loc), Error: newSectionError(s.Err)}
	}

	for i := range rep.Stats {
		s := &rep.Stats[i]
		sv := statsView{Period: s.Period, Error: newSectionError(s.Err)}
		if s.Stats != nil {
			sv.Since = s.Stats.Since
			sv.Detections = s.Stats.Detections
			sv.Species = s.Stats.Species
		}
		v.Stats = append(v.Stats, sv)
	}
	return v
}

func recordViews(records []detection.Record) []recordView {
	out := make([]recordView, 0, len(records))
	for _, r := range records {
		out = append(out, recordView{Species: r.SpeciesCommonName, Timestamp: r.Timestamp.Format(time.RFC3339)})
	}
	return out
}

func summaryViews(entries []detection.SummaryEntry, loc *time.Location) []summaryView {
	out := make([]summaryView, 0, len(entries))
	for _, e := range entries {
		out = append(out, summaryView{
			Species:   e.SpeciesCommonName,
			FirstSeen: e.FirstSeen.In(loc).Format(time.RFC3339),
			Repeated:  e.Repeated,
			Count:     e.Count,
		})
	}
	return out
}

// JSONRenderer writes the report as indented JSON.
type JSONRenderer struct{}

// Render implements Renderer
func (JSONRenderer) Render(w io.Writer, rep *Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(newReportView(rep)); err != nil {
		return errors.New(err).
			Component("report").
			Category(errors.CategoryProcessing).
			Context("format", "json").
			Build()
	}
	return nil
}

// YAMLRenderer writes the report as YAML.
type YAMLRenderer struct{}

// Render implements Renderer
func (YAMLRenderer) Render(w io.Writer, rep *Report) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(newReportView(rep)); err != nil {
		return errors.New(err).
			Component("report").
			Category(errors.CategoryProcessing).
			Context("format", "yaml").
			Build()
	}
	if err := enc.Close(); err != nil {
		return errors.New(err).
			Component("report").
			Category(errors.CategoryProcessing).
			Context("format", "yaml").
			Build()
	}
	return nil
}

// NewRenderer returns the renderer for format: "text", "json" or "yaml".
func NewRenderer(format string) (Renderer, error) {
	switch format {
	case "", "text":
		return TextRenderer{}, nil
	case "json":
		return JSONRenderer{}, nil
	case "yaml":
		return YAMLRenderer{}, nil
	default:
		return nil, errors.Newf("unknown output format %q", format).
			Component("report").
			Category(errors.CategoryValidation).
			Build()
	}
}
