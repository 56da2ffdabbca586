package report

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tphakala/bwpull/internal/birdweather"
	"github.com/tphakala/bwpull/internal/detection"
	"github.com/tphakala/bwpull/internal/logger"
)

// maxConcurrentFetches bounds the workers used in concurrent mode.
const maxConcurrentFetches = 4

// StationClient is the subset of birdweather.Client the runner needs.
type StationClient interface {
	SpeciesSince(ctx context.Context, since time.Time) ([]birdweather.SpeciesCount, error)
	RecentDetections(ctx context.Context, limit int) ([]detection.Record, error)
	PeriodStats(ctx context.Context, period birdweather.Period, since time.Time) (*birdweather.PeriodStats, error)
}

// ResultRecorder receives aggregation results. StationMetrics implements it.
type ResultRecorder interface {
	SetDetectionsFetched(mode string, n int)
	SetSpeciesSummary(unique, repeated int)
	RecordSectionFailure(section string)
}

// Options selects which sections a run produces.
type Options struct {
	Station string
	// Hours is the species lookback window.
	Hours int
	// Recent is the raw detections window, 0 disables the section.
	Recent int
	// Unique is the unique species window, 0 disables the section.
	Unique     int
	Stats      bool
	Periods    []birdweather.Period
	Concurrent bool
	Location   *time.Location
	// Now overrides the clock, for tests.
	Now func() time.Time
}

// Runner executes the fetch plan.
type Runner struct {
	client  StationClient
	opts    Options
	results ResultRecorder
	log     logger.Logger
}

// RunnerOption customises a Runner.
type RunnerOption func(*Runner)

// WithResultRecorder records aggregation results in r.
func WithResultRecorder(r ResultRecorder) RunnerOption {
	return func(rn *Runner) { rn.results = r }
}

// WithLogger replaces the package logger.
func WithLogger(l logger.Logger) RunnerOption {
	return func(rn *Runner) {
		if l != nil {
			rn.log = l
		}
	}
}

// NewRunner creates a Runner for client.
func NewRunner(client StationClient, opts Options, ro ...RunnerOption) *Runner {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	r := &Runner{client: client, opts: opts, log: GetLogger()}
	for _, o := range ro {
		o(r)
	}
	return r
}

// detectionsFetch is one detections request, shared by every window of the
// same size.
type detectionsFetch struct {
	limit   int
	records []detection.Record
	err     error
}

// Run executes the plan and returns the report. Fetch failures are stored
// in their section; Run itself never fails. Section order is fixed
// regardless of completion order.
func (r *Runner) Run(ctx context.Context) *Report {
	now := r.opts.Now()
	rep := &Report{
		Station:     r.opts.Station,
		GeneratedAt: now,
		Location:    r.opts.Location,
	}

	var tasks []func(context.Context)

	if r.opts.Hours > 0 {
		rep.Species = &SpeciesSection{Hours: r.opts.Hours, Since: now.Add(-time.Duration(r.opts.Hours) * time.Hour).UTC()}
		tasks = append(tasks, func(ctx context.Context) {
			rep.Species.Species, rep.Species.Err = r.client.SpeciesSince(ctx, rep.Species.Since)
		})
	}

	fetches := r.planDetections()
	for _, f := range fetches {
		tasks = append(tasks, func(ctx context.Context) {
			f.records, f.err = r.client.RecentDetections(ctx, f.limit)
		})
	}

	if r.opts.Stats {
		since := now.In(r.opts.Location)
		rep.Stats = make([]StatsSection, len(r.opts.Periods))
		for i, p := range r.opts.Periods {
			rep.Stats[i].Period = p
			tasks = append(tasks, func(ctx context.Context) {
				rep.Stats[i].Stats, rep.Stats[i].Err = r.client.PeriodStats(ctx, p, since)
			})
		}
	}

	r.log.Debug("running report plan",
		logger.Int("requests", len(tasks)),
		logger.Bool("concurrent", r.opts.Concurrent))

	start := time.Now()
	r.execute(ctx, tasks)

	r.assembleDetections(rep, fetches)
	r.recordFailures(rep)

	r.log.Debug("report plan finished",
		logger.Duration("elapsed", time.Since(start)),
		logger.Int("failed_sections", rep.Failed()))
	return rep
}

// execute runs tasks in order, or through a bounded errgroup when
// concurrent. Every task writes only to its own slot.
func (r *Runner) execute(ctx context.Context, tasks []func(context.Context)) {
	if !r.opts.Concurrent {
		for _, task := range tasks {
			task(ctx)
		}
		return
	}

	var g errgroup.Group
	g.SetLimit(maxConcurrentFetches)
	for _, task := range tasks {
		g.Go(func() error {
			task(ctx)
			return nil
		})
	}
	_ = g.Wait()
}

// planDetections returns one fetch per distinct window size.
func (r *Runner) planDetections() []*detectionsFetch {
	var fetches []*detectionsFetch
	for _, limit := range []int{r.opts.Recent, r.opts.Unique} {
		if limit <= 0 {
			continue
		}
		if len(fetches) > 0 && fetches[0].limit == limit {
			continue
		}
		fetches = append(fetches, &detectionsFetch{limit: limit})
	}
	return fetches
}

func findFetch(fetches []*detectionsFetch, limit int) *detectionsFetch {
	for _, f := range fetches {
		if f.limit == limit {
			return f
		}
	}
	return nil
}

// assembleDetections builds the detections sections from the fetched windows.
func (r *Runner) assembleDetections(rep *Report, fetches []*detectionsFetch) {
	if r.opts.Recent > 0 {
		f := findFetch(fetches, r.opts.Recent)
		rep.Recent = &DetectionsSection{Mode: detection.ModeAll, Limit: f.limit, Err: f.err}
		if f.err == nil {
			rep.Recent.Records = detection.Project(f.records)
			r.setFetched(detection.ModeAll, len(f.records))
		}
	}

	if r.opts.Unique > 0 {
		f := findFetch(fetches, r.opts.Unique)
		rep.Unique = &DetectionsSection{Mode: detection.ModeUnique, Limit: f.limit, Err: f.err}
		if f.err == nil {
			rep.Unique.Summary = detection.Summarize(f.records)
			r.setFetched(detection.ModeUnique, len(f.records))
			if r.results != nil {
				r.results.SetSpeciesSummary(len(rep.Unique.Summary), detection.RepeatedCount(rep.Unique.Summary))
			}
			r.log.Debug("summarized detections window",
				logger.Int("window", f.limit),
				logger.Int("records", len(f.records)),
				logger.Int("unique_species", len(rep.Unique.Summary)))
		}
	}
}

func (r *Runner) setFetched(mode detection.Mode, n int) {
	if r.results != nil {
		r.results.SetDetectionsFetched(mode.String(), n)
	}
}

// recordFailures logs and counts the failed sections.
func (r *Runner) recordFailures(rep *Report) {
	fail := func(section string, err error, fields ...logger.Field) {
		if err == nil {
			return
		}
		if r.results != nil {
			r.results.RecordSectionFailure(section)
		}
		fields = append(fields, logger.String("section", section), logger.Error(err))
		r.log.Warn("report section failed", fields...)
	}

	if rep.Species != nil {
		fail(SectionSpecies, rep.Species.Err)
	}
	if rep.Recent != nil {
		fail(SectionRecentDetections, rep.Recent.Err)
	}
	if rep.Unique != nil {
		fail(SectionUniqueSpecies, rep.Unique.Err)
	}
	for i := range rep.Stats {
		fail(SectionStats, rep.Stats[i].Err, logger.String("period", string(rep.Stats[i].Period)))
	}
}
