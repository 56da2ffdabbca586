package conf

import (
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/bwpull/internal/errors"
)

func newFlagSet() *pflag.FlagSet {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.StringP("file", "f", DefaultConfigPath, "")
	fs.Int("hours", 6, "")
	fs.Int("unique", MaxDetectionsLimit, "")
	fs.StringSlice("periods", ValidPeriods, "")
	fs.Duration("timeout", 30*time.Second, "")
	fs.BoolP("debug", "d", false, "")
	return fs
}

func TestLoadSettings_Defaults(t *testing.T) {
	t.Parallel()

	v, err := NewViper(nil)
	require.NoError(t, err)

	s, err := LoadSettings(v)
	require.NoError(t, err)

	assert.Equal(t, DefaultConfigPath, s.ConfigFile)
	assert.Equal(t, DefaultBaseURL, s.BaseURL)
	assert.Equal(t, 30*time.Second, s.Timeout)
	assert.Equal(t, 6, s.Hours)
	assert.Equal(t, 5, s.Recent)
	assert.Equal(t, 100, s.Unique)
	assert.True(t, s.Stats)
	assert.Equal(t, []string{"day", "week", "month", "all"}, s.Periods)
	assert.Equal(t, FormatText, s.Format)
	assert.InDelta(t, 5.0, s.RateLimit, 0)
	assert.Equal(t, "warn", s.LogLevel)
}

func TestLoadSettings_Flags(t *testing.T) {
	t.Parallel()

	fs := newFlagSet()
	require.NoError(t, fs.Parse([]string{"-f", "other.json", "--hours", "12", "--periods", "day,all", "--timeout", "5s", "-d"}))

	v, err := NewViper(fs)
	require.NoError(t, err)

	s, err := LoadSettings(v)
	require.NoError(t, err)

	assert.Equal(t, "other.json", s.ConfigFile)
	assert.Equal(t, 12, s.Hours)
	assert.Equal(t, []string{"day", "all"}, s.Periods)
	assert.Equal(t, 5*time.Second, s.Timeout)
	assert.Equal(t, "debug", s.LogLevel, "--debug raises the log level")
}

func TestLoadSettings_Env(t *testing.T) {
	t.Setenv("BWPULL_HOURS", "24")
	t.Setenv("BWPULL_RATE_LIMIT", "2.5")
	t.Setenv("BWPULL_PERIODS", "week,month")

	v, err := NewViper(newFlagSet())
	require.NoError(t, err)

	s, err := LoadSettings(v)
	require.NoError(t, err)

	assert.Equal(t, 24, s.Hours)
	assert.InDelta(t, 2.5, s.RateLimit, 0.001)
	assert.Equal(t, []string{"week", "month"}, s.Periods)
}

func TestLoadSettings_InvalidIsValidationError(t *testing.T) {
	t.Parallel()

	fs := newFlagSet()
	require.NoError(t, fs.Parse([]string{"--unique", "101"}))

	v, err := NewViper(fs)
	require.NoError(t, err)

	_, err = LoadSettings(v)
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryValidation))
	assert.Contains(t, err.Error(), "unique must be between 0 and 100")
}

func TestNormalizePeriods(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []string{"day", "week", "all"}, normalizePeriods([]string{"Day, week", "", " ALL "}))
	assert.Empty(t, normalizePeriods(nil))
}

func TestLocation(t *testing.T) {
	t.Parallel()

	loc, err := (&Settings{Timezone: "Local"}).Location()
	require.NoError(t, err)
	assert.Equal(t, time.Local, loc)

	loc, err = (&Settings{Timezone: "Europe/Helsinki"}).Location()
	require.NoError(t, err)
	assert.Equal(t, "Europe/Helsinki", loc.String())

	_, err = (&Settings{Timezone: "Nowhere/Special"}).Location()
	require.Error(t, err)
}
