// Package cmd wires the bwpull command line: flags, settings, logging,
// telemetry and the report run.
package cmd

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/tphakala/bwpull/internal/birdweather"
	"github.com/tphakala/bwpull/internal/buildinfo"
	"github.com/tphakala/bwpull/internal/conf"
	"github.com/tphakala/bwpull/internal/errors"
	"github.com/tphakala/bwpull/internal/httpclient"
	"github.com/tphakala/bwpull/internal/logger"
	"github.com/tphakala/bwpull/internal/observability"
	"github.com/tphakala/bwpull/internal/report"
)

const sentryFlushTimeout = 2 * time.Second

// Deps are the process resources the command uses. Zero values fall back
// to the real process: stdin/stdout/stderr, the OS filesystem, os.Getenv,
// the default HTTP transport and time.Now.
type Deps struct {
	Stdin     io.Reader
	Stdout    io.Writer
	Stderr    io.Writer
	Fs        afero.Fs
	Getenv    func(string) string
	Transport http.RoundTripper
	Now       func() time.Time
}

func (d *Deps) setDefaults() {
	if d.Stdin == nil {
		d.Stdin = os.Stdin
	}
	if d.Stdout == nil {
		d.Stdout = os.Stdout
	}
	if d.Stderr == nil {
		d.Stderr = os.Stderr
	}
	if d.Fs == nil {
		d.Fs = afero.NewOsFs()
	}
	if d.Getenv == nil {
		d.Getenv = os.Getenv
	}
	if d.Now == nil {
		d.Now = time.Now
	}
}

// RootCommand creates the bwpull command.
func RootCommand(info *buildinfo.Context, deps Deps) *cobra.Command {
	deps.setDefaults()

	rootCmd := &cobra.Command{
		Use:   "bwpull",
		Short: "Summarise recent activity of a BirdWeather station",
		Long: "bwpull fetches species counts, the most recent detections and station\n" +
			"statistics from the BirdWeather API and prints a short report.\n" +
			"On first run it asks for the station token and ID and stores them in\n" +
			"the config file.",
		Version:       info.GetVersion(),
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := conf.NewViper(cmd.Flags())
			if err != nil {
				return err
			}
			settings, err := conf.LoadSettings(v)
			if err != nil {
				return err
			}
			return run(cmd.Context(), info, settings, deps)
		},
	}

	rootCmd.SetIn(deps.Stdin)
	rootCmd.SetOut(deps.Stdout)
	rootCmd.SetErr(deps.Stderr)

	setupFlags(rootCmd)
	return rootCmd
}

// setupFlags defines the command line flags; defaults mirror conf.SetDefaults.
func setupFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringP("file", "f", conf.DefaultConfigPath, "Path to the credentials config file")
	f.String("base-url", conf.DefaultBaseURL, "BirdWeather API root URL")
	f.Duration("timeout", httpclient.DefaultTimeout, "Timeout for each API request")
	f.Int("hours", 6, "Species lookback window in hours")
	f.Int("recent", 5, "Number of most recent detections to list (0 disables)")
	f.Int("unique", conf.MaxDetectionsLimit, "Detections window for the unique species summary (0 disables, max 100)")
	f.Bool("stats", true, "Fetch per-period station statistics")
	f.StringSlice("periods", conf.ValidPeriods, "Statistics periods: day, week, month, all")
	f.Bool("concurrent", false, "Dispatch the API requests concurrently")
	f.String("format", conf.FormatText, "Output format: text, json or yaml")
	f.String("timezone", "Local", "Display timezone for detection times")
	f.Float64("rate-limit", 5, "Maximum API requests per second")
	f.BoolP("debug", "d", false, "Enable debug logging")
	f.String("log-level", logger.DefaultLogLevel, "Console log level: trace, debug, info, warn, error")
	f.String("log-file", "", "Also write JSON logs to this file")
	f.String("metrics-file", "", "Write Prometheus metrics to this textfile after the run")
	f.String("sentry-dsn", "", "Report errors to this Sentry DSN")
}

// run performs one report run with validated settings.
func run(ctx context.Context, info *buildinfo.Context, settings *conf.Settings, deps Deps) error {
	if ctx == nil {
		ctx = context.Background()
	}

	central, err := setupLogging(settings, deps.Stderr)
	if err != nil {
		return err
	}
	logger.SetGlobal(central)
	defer func() {
		logger.SetGlobal(nil)
		_ = central.Close()
	}()

	ctx = logger.WithTraceID(ctx, info.GetRunID())
	log := central.Module("main").WithContext(ctx)
	log.Debug("starting bwpull",
		logger.String("version", info.GetVersion()),
		logger.String("build_date", info.GetBuildDate()),
		logger.String("config_file", settings.ConfigFile))

	if settings.SentryDSN != "" {
		if err := setupSentry(settings.SentryDSN, info); err != nil {
			log.Warn("error telemetry disabled", logger.Error(err))
		} else {
			defer func() {
				errors.SetTelemetryReporter(nil)
				sentry.Flush(sentryFlushTimeout)
			}()
		}
	}

	loc, err := settings.Location()
	if err != nil {
		return errors.Newf("invalid timezone %q: %w", settings.Timezone, err).
			Component("main").
			Category(errors.CategoryValidation).
			Build()
	}

	store := conf.NewStore(settings.ConfigFile,
		conf.WithFs(deps.Fs),
		conf.WithPrompter(conf.NewConsolePrompter(deps.Stdin, deps.Stdout)),
		conf.WithEnvLookup(deps.Getenv))
	creds, err := store.Ensure()
	if err != nil {
		log.Error("cannot load station credentials", logger.String("path", store.Path()), logger.Error(err))
		return err
	}

	m, err := observability.NewMetrics()
	if err != nil {
		return err
	}

	hc := httpclient.New(&httpclient.Config{
		DefaultTimeout: settings.Timeout,
		UserAgent:      info.UserAgent(),
		Transport:      deps.Transport,
	})
	defer hc.Close()

	client, err := birdweather.NewClient(
		birdweather.Config{BaseURL: settings.BaseURL, Token: creds.Token, Station: creds.Station},
		hc,
		birdweather.WithLogger(birdweather.GetLogger().WithContext(ctx)),
		birdweather.WithRecorder(m.Station),
		birdweather.WithLimiter(rate.NewLimiter(rate.Limit(settings.RateLimit), 1)),
	)
	if err != nil {
		return err
	}

	periods := make([]birdweather.Period, 0, len(settings.Periods))
	for _, p := range settings.Periods {
		period, err := birdweather.ParsePeriod(p)
		if err != nil {
			return err
		}
		periods = append(periods, period)
	}

	renderer, err := report.NewRenderer(settings.Format)
	if err != nil {
		return err
	}

	runner := report.NewRunner(client, report.Options{
		Station:    creds.Station,
		Hours:      settings.Hours,
		Recent:     settings.Recent,
		Unique:     settings.Unique,
		Stats:      settings.Stats,
		Periods:    periods,
		Concurrent: settings.Concurrent,
		Location:   loc,
		Now:        deps.Now,
	},
		report.WithResultRecorder(m.Station),
		report.WithLogger(report.GetLogger().WithContext(ctx)))

	rep := runner.Run(ctx)
	if failed := rep.Failed(); failed > 0 {
		log.Info("report finished with failed sections", logger.Int("failed_sections", failed))
	}

	if err := renderer.Render(deps.Stdout, rep); err != nil {
		return err
	}

	if settings.MetricsFile != "" {
		if err := m.WriteTextfile(settings.MetricsFile); err != nil {
			log.Warn("failed to write metrics textfile",
				logger.String("path", settings.MetricsFile),
				logger.Error(err))
		}
	}

	return nil
}

// setupLogging builds the run logger: text on stderr, optionally JSON to a file.
func setupLogging(settings *conf.Settings, stderr io.Writer) (*logger.CentralLogger, error) {
	cfg := &logger.LoggingConfig{
		DefaultLevel: settings.LogLevel,
		Timezone:     settings.Timezone,
		Console: &logger.ConsoleOutput{
			Enabled: true,
			Level:   settings.LogLevel,
			Writer:  stderr,
		},
	}
	if settings.LogFile != "" {
		cfg.FileOutput = &logger.FileOutput{
			Enabled: true,
			Path:    settings.LogFile,
			Level:   settings.LogLevel,
		}
	}

	central, err := logger.NewCentralLogger(cfg)
	if err != nil {
		return nil, errors.Newf("failed to initialise logging: %w", err).
			Component("main").
			Category(errors.CategoryConfiguration).
			Build()
	}
	return central, nil
}

// setupSentry initialises the Sentry SDK and installs the error reporter.
func setupSentry(dsn string, info *buildinfo.Context) error {
	err := sentry.Init(sentry.ClientOptions{
		Dsn:              dsn,
		SampleRate:       1.0,
		AttachStacktrace: false,
		Environment:      "production",
		ServerName:       "",
		Release:          fmt.Sprintf("bwpull@%s", info.GetVersion()),
		BeforeSend: func(event *sentry.Event, _ *sentry.EventHint) *sentry.Event {
			event.User = sentry.User{}
			event.ServerName = ""
			event.Message = errors.ScrubMessage(event.Message)
			for i := range event.Exception {
				event.Exception[i].Value = errors.ScrubMessage(event.Exception[i].Value)
			}
			return event
		},
	})
	if err != nil {
		return fmt.Errorf("sentry initialization failed: %w", err)
	}

	sentry.ConfigureScope(func(scope *sentry.Scope) {
		scope.SetTag("run_id", info.GetRunID())
	})
	errors.SetTelemetryReporter(errors.NewSentryReporter(true))
	return nil
}
