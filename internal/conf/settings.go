package conf

import (
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/tphakala/bwpull/internal/errors"
)

// Output formats
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// Limits enforced by ValidateSettings
const (
	MaxDetectionsLimit = 100
	DefaultBaseURL     = "https://app.birdweather.com/api/v1"
)

// ValidPeriods lists the stats periods accepted by the station API.
var ValidPeriods = []string{"day", "week", "month", "all"}

// Settings holds the runtime options of one invocation.
type Settings struct {
	ConfigFile  string        `mapstructure:"file"`
	BaseURL     string        `mapstructure:"base-url"`
	Timeout     time.Duration `mapstructure:"timeout"`
	Hours       int           `mapstructure:"hours"`
	Recent      int           `mapstructure:"recent"`
	Unique      int           `mapstructure:"unique"`
	Stats       bool          `mapstructure:"stats"`
	Periods     []string      `mapstructure:"periods"`
	Concurrent  bool          `mapstructure:"concurrent"`
	Format      string        `mapstructure:"format"`
	Timezone    string        `mapstructure:"timezone"`
	RateLimit   float64       `mapstructure:"rate-limit"`
	Debug       bool          `mapstructure:"debug"`
	LogLevel    string        `mapstructure:"log-level"`
	LogFile     string        `mapstructure:"log-file"`
	MetricsFile string        `mapstructure:"metrics-file"`
	SentryDSN   string        `mapstructure:"sentry-dsn"`
}

// SetDefaults registers the default value of every setting on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("file", DefaultConfigPath)
	v.SetDefault("base-url", DefaultBaseURL)
	v.SetDefault("timeout", 30*time.Second)
	v.SetDefault("hours", 6)
	v.SetDefault("recent", 5)
	v.SetDefault("unique", MaxDetectionsLimit)
	v.SetDefault("stats", true)
	v.SetDefault("periods", ValidPeriods)
	v.SetDefault("concurrent", false)
	v.SetDefault("format", FormatText)
	v.SetDefault("timezone", "Local")
	v.SetDefault("rate-limit", 5.0)
	v.SetDefault("debug", false)
	v.SetDefault("log-level", "warn")
	v.SetDefault("log-file", "")
	v.SetDefault("metrics-file", "")
	v.SetDefault("sentry-dsn", "")
}

// NewViper returns a viper instance with defaults, the given flags bound and
// BWPULL_* environment variables enabled (dashes become underscores).
func NewViper(flags *pflag.FlagSet) (*viper.Viper, error) {
	v := viper.New()
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, errors.Newf("error binding flags: %w", err).
				Component("conf").
				Category(errors.CategoryConfiguration).
				Build()
		}
	}
	return v, nil
}

// LoadSettings decodes v into Settings and validates the result.
func LoadSettings(v *viper.Viper) (*Settings, error) {
	settings := &Settings{}
	if err := v.Unmarshal(settings); err != nil {
		return nil, errors.Newf("error unmarshaling settings: %w", err).
			Component("conf").
			Category(errors.CategoryConfiguration).
			Build()
	}

	settings.Periods = normalizePeriods(settings.Periods)
	settings.Format = strings.ToLower(strings.TrimSpace(settings.Format))
	if settings.Debug {
		settings.LogLevel = "debug"
	}

	if err := ValidateSettings(settings); err != nil {
		return nil, err
	}
	return settings, nil
}

// normalizePeriods splits comma-joined values, as delivered by an environment
// variable, and lowercases each period.
func normalizePeriods(in []string) []string {
	out := make([]string, 0, len(in))
	for _, item := range in {
		for p := range strings.SplitSeq(item, ",") {
			if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}

// Location resolves the display timezone. "Local" and "" mean time.Local.
func (s *Settings) Location() (*time.Location, error) {
	switch s.Timezone {
	case "", "Local":
		return time.Local, nil
	default:
		return time.LoadLocation(s.Timezone)
	}
}
