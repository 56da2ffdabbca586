package report

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/tphakala/bwpull/internal/birdweather"
)

// Time layouts of the text output.
const (
	firstSeenLayout = "15:04:05 MST"
	notAvailable    = "n/a"
)

// Renderer writes a Report in one output format.
type Renderer interface {
	Render(w io.Writer, rep *Report) error
}

// TextRenderer writes the line-oriented console report.
type TextRenderer struct{}

// Render implements Renderer
func (TextRenderer) Render(w io.Writer, rep *Report) error {
	bw := bufio.NewWriter(w)
	tw := &textWriter{w: bw}

	if rep.Species != nil {
		tw.species(rep.Station, rep.Species)
	}
	if rep.Recent != nil {
		tw.recent(rep.Recent)
	}
	if rep.Unique != nil {
		tw.unique(rep.Unique, rep.Location)
	}
	if rep.Stats != nil {
		tw.stats(rep.Stats)
	}

	if tw.err != nil {
		return tw.err
	}
	return bw.Flush()
}

// textWriter keeps the first write error and separates sections with a
// blank line.
type textWriter struct {
	w        io.Writer
	err      error
	sections int
}

func (t *textWriter) printf(format string, args ...any) {
	if t.err != nil {
		return
	}
	_, t.err = fmt.Fprintf(t.w, format, args...)
}

func (t *textWriter) begin() {
	if t.sections > 0 {
		t.printf("\n")
	}
	t.sections++
}

func (t *textWriter) species(station string, s *SpeciesSection) {
	t.begin()
	t.printf("Bird count at station %s looking back %d hours - since (UTC): %s\n",
		station, s.Hours, s.Since.UTC().Format(time.RFC3339))
	if s.Err != nil {
		t.printf("%s\n", failureLine(s.Err))
		return
	}
	for _, sp := range s.Species {
		t.printf("%s %d\n", sp.CommonName, sp.Total)
	}
}

func (t *textWriter) recent(s *DetectionsSection) {
	t.begin()
	t.printf("Species detected in the last %d detections:\n", s.Limit)
	if s.Err != nil {
		t.printf("%s\n", failureLine(s.Err))
		return
	}
	for _, rec := range s.Records {
		t.printf("%s %s\n", rec.SpeciesCommonName, rec.Timestamp.Format(time.RFC3339))
	}
}

func (t *textWriter) unique(s *DetectionsSection, loc *time.Location) {
	if loc == nil {
		loc = time.Local
	}
	t.begin()
	t.printf("Unique species detected in the last %d detections:\n", s.Limit)
	t.printf("Birds marked with a * were detected more than once.\n")
	if s.Err != nil {
		t.printf("%s\n", failureLine(s.Err))
		return
	}
	for _, e := range s.Summary {
		line := e.SpeciesCommonName + " " + e.FirstSeen.In(loc).Format(firstSeenLayout)
		if e.Repeated {
			line += " *"
		}
		t.printf("%s\n", line)
	}
}

func (t *textWriter) stats(sections []StatsSection) {
	t.begin()
	since := ""
	for i := range sections {
		if sections[i].Stats != nil {
			since = sections[i].Stats.Since
			break
		}
	}
	if since != "" {
		t.printf("Station stats since %s:\n", since)
	} else {
		t.printf("Station stats:\n")
	}
	for i := range sections {
		s := &sections[i]
		if s.Err != nil {
			t.printf("%s: %s\n", s.Period, failureLine(s.Err))
			continue
		}
		t.printf("%s: %s detections, %s species\n",
			s.Period, formatCount(s.Stats.Detections), formatCount(s.Stats.Species))
	}
}

// failureLine describes a section error for the console.
func failureLine(err error) string {
	if field, ok := birdweather.MissingField(err); ok {
		return fmt.Sprintf("Key '%s' not found in the response data.", field)
	}
	if code := birdweather.StatusCode(err); code != 0 {
		return fmt.Sprintf("Request failed with status %d.", code)
	}
	return fmt.Sprintf("Request failed: %v", err)
}

func formatCount(v *float64) string {
	if v == nil {
		return notAvailable
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}
