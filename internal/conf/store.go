package conf

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/viper"

	"github.com/tphakala/bwpull/internal/errors"
	"github.com/tphakala/bwpull/internal/logger"
)

const (
	// DefaultConfigPath is used when no --file flag is given
	DefaultConfigPath = "config.json"

	// ConfigFilePermissions keeps the device token private to the owner
	ConfigFilePermissions = 0o600

	configIndent = "    "
)

// ErrConfigMissing reports that the credentials file does not exist yet.
var ErrConfigMissing = errors.NewStd("config file not found")

// Config is the durable credentials file: {"token": "...", "station": "..."}.
type Config struct {
	Token   string `json:"token" mapstructure:"token"`
	Station string `json:"station" mapstructure:"station"`
}

// Validate reports a configuration error when a credential is empty.
func (c *Config) Validate() error {
	var missing []string
	if strings.TrimSpace(c.Token) == "" {
		missing = append(missing, "token")
	}
	if strings.TrimSpace(c.Station) == "" {
		missing = append(missing, "station")
	}
	if len(missing) > 0 {
		return errors.Newf("config is missing required fields: %s", strings.Join(missing, ", ")).
			Component("conf").
			Category(errors.CategoryConfiguration).
			Context("missing_fields", strings.Join(missing, ",")).
			Build()
	}
	return nil
}

// Store reads and bootstraps the credentials file.
type Store struct {
	fs       afero.Fs
	path     string
	prompter Prompter
	getenv   func(string) string
	log      logger.Logger
}

// StoreOption configures a Store
type StoreOption func(*Store)

// WithFs replaces the OS filesystem, typically with afero.NewMemMapFs in tests.
func WithFs(fs afero.Fs) StoreOption {
	return func(s *Store) { s.fs = fs }
}

// WithPrompter sets the strategy used to ask for missing credentials.
func WithPrompter(p Prompter) StoreOption {
	return func(s *Store) { s.prompter = p }
}

// WithEnvLookup replaces os.Getenv for credential overrides.
func WithEnvLookup(getenv func(string) string) StoreOption {
	return func(s *Store) { s.getenv = getenv }
}

// WithLogger sets the store logger.
func WithLogger(l logger.Logger) StoreOption {
	return func(s *Store) { s.log = l }
}

// NewStore creates a Store for path. Defaults: OS filesystem, console
// prompter on stdin/stdout, os.Getenv.
func NewStore(path string, opts ...StoreOption) *Store {
	if path == "" {
		path = DefaultConfigPath
	}
	s := &Store{
		fs:       afero.NewOsFs(),
		path:     path,
		prompter: NewConsolePrompter(os.Stdin, os.Stdout),
		getenv:   os.Getenv,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = GetLogger()
	}
	return s
}

// Path returns the credentials file path.
func (s *Store) Path() string {
	return s.path
}

// Ensure returns the stored credentials, bootstrapping the file through the
// prompter when it does not exist. Environment overrides that supply both
// credentials make the prompt unnecessary and nothing is written.
func (s *Store) Ensure() (*Config, error) {
	cfg, err := s.Load()
	if err == nil {
		return cfg, nil
	}
	if !errors.Is(err, ErrConfigMissing) {
		return nil, err
	}

	if envCfg := s.envConfig(); envCfg.Validate() == nil {
		s.log.Debug("config file missing, using environment credentials",
			logger.String("path", s.path))
		return envCfg, nil
	}

	s.log.Info("config file not found, starting bootstrap", logger.String("path", s.path))
	return s.bootstrap()
}

// Load reads the credentials file through a viper instance bound to the
// store's filesystem and applies environment overrides. A missing file
// returns an error wrapping ErrConfigMissing; anything unreadable or
// incomplete is a configuration error.
func (s *Store) Load() (*Config, error) {
	exists, err := afero.Exists(s.fs, s.path)
	if err != nil {
		return nil, errors.New(err).
			Component("conf").
			Category(errors.CategoryFileIO).
			Context("operation", "stat_config").
			Build()
	}
	if !exists {
		return nil, fmt.Errorf("%s: %w", s.path, ErrConfigMissing)
	}

	v := viper.New()
	v.SetFs(s.fs)
	v.SetConfigFile(s.path)
	v.SetConfigType("json")

	if err := v.ReadInConfig(); err != nil {
		return nil, errors.Newf("failed to read config file %s: %w", s.path, err).
			Component("conf").
			Category(errors.CategoryConfiguration).
			Context("operation", "read_config").
			Build()
	}

	if err := applyEnvOverrides(v, s.getenv); err != nil {
		return nil, err
	}

	cfg := &Config{
		Token:   strings.TrimSpace(v.GetString(keyToken)),
		Station: strings.TrimSpace(v.GetString(keyStation)),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s.log.Debug("loaded config", logger.String("path", s.path))
	return cfg, nil
}

// Save writes cfg as JSON with a 4-space indent and owner-only permissions.
// The file is written to a temporary sibling first and renamed into place.
func (s *Store) Save(cfg *Config) error {
	if cfg == nil {
		return errors.NewStd("config cannot be nil")
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", configIndent)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(cfg); err != nil {
		return errors.New(err).Component("conf").Category(errors.CategoryConfiguration).Build()
	}
	data := bytes.TrimRight(buf.Bytes(), "\n")

	if err := s.writeAtomic(data); err != nil {
		return errors.FileError(err, s.path, int64(len(data)))
	}

	s.log.Info("saved config", logger.String("path", s.path))
	return nil
}

func (s *Store) writeAtomic(data []byte) error {
	dir := filepath.Dir(s.path)
	if err := s.fs.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	tempFile, err := afero.TempFile(s.fs, dir, "config-*.json")
	if err != nil {
		return fmt.Errorf("error creating temporary file: %w", err)
	}
	tempName := tempFile.Name()
	defer func() { _ = s.fs.Remove(tempName) }()

	if _, err := tempFile.Write(data); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("error writing to temporary file: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("error closing temporary file: %w", err)
	}
	if err := s.fs.Chmod(tempName, ConfigFilePermissions); err != nil {
		return fmt.Errorf("error setting config permissions: %w", err)
	}
	if err := s.fs.Rename(tempName, s.path); err != nil {
		return fmt.Errorf("error replacing config file: %w", err)
	}
	return nil
}

// bootstrap asks for the token then the station, saves and returns them.
func (s *Store) bootstrap() (*Config, error) {
	if s.prompter == nil {
		return nil, bootstrapError(errors.NewStd("no prompter configured"), "")
	}

	token, err := s.prompter.Prompt(PromptToken)
	if err != nil {
		return nil, bootstrapError(err, keyToken)
	}
	station, err := s.prompter.Prompt(PromptStation)
	if err != nil {
		return nil, bootstrapError(err, keyStation)
	}

	cfg := &Config{Token: strings.TrimSpace(token), Station: strings.TrimSpace(station)}
	if err := cfg.Validate(); err != nil {
		return nil, bootstrapError(err, "")
	}
	if err := s.Save(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func bootstrapError(err error, field string) error {
	b := errors.Newf("config bootstrap failed: %w", err).
		Component("conf").
		Category(errors.CategoryBootstrap)
	if field != "" {
		b = b.Context("field", field)
	}
	return b.Build()
}

func (s *Store) envConfig() *Config {
	return &Config{
		Token:   strings.TrimSpace(s.getenv(EnvToken)),
		Station: strings.TrimSpace(s.getenv(EnvStation)),
	}
}
