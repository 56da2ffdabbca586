package conf

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/spf13/viper"

	"github.com/tphakala/bwpull/internal/errors"
)

const (
	keyToken   = "token"
	keyStation = "station"

	// EnvToken overrides the stored device token
	EnvToken = "BIRDWEATHER_TOKEN"
	// EnvStation overrides the stored station ID
	EnvStation = "BIRDWEATHER_STATION"

	// EnvPrefix is the prefix for runtime settings, e.g. BWPULL_HOURS
	EnvPrefix = "BWPULL"
)

// envBinding holds metadata for a credential environment override
type envBinding struct {
	ConfigKey string
	EnvVar    string
	Validate  func(string) error
}

func getEnvBindings() []envBinding {
	return []envBinding{
		{keyToken, EnvToken, validateEnvNoWhitespace},
		{keyStation, EnvStation, validateEnvNoWhitespace},
	}
}

// applyEnvOverrides copies set credential variables into v. Invalid values are
// a configuration error rather than silently ignored.
func applyEnvOverrides(v *viper.Viper, getenv func(string) string) error {
	if getenv == nil {
		return nil
	}

	var problems []string
	for _, binding := range getEnvBindings() {
		value := strings.TrimSpace(getenv(binding.EnvVar))
		if value == "" {
			continue
		}
		if binding.Validate != nil {
			if err := binding.Validate(value); err != nil {
				problems = append(problems, fmt.Sprintf("%s: %v", binding.EnvVar, err))
				continue
			}
		}
		v.Set(binding.ConfigKey, value)
	}

	if len(problems) > 0 {
		return errors.Newf("environment variable issues: %s", strings.Join(problems, "; ")).
			Component("conf").
			Category(errors.CategoryConfiguration).
			Build()
	}
	return nil
}

// validateEnvNoWhitespace rejects values with embedded whitespace, which
// would corrupt the Authorization header or the request path.
func validateEnvNoWhitespace(value string) error {
	if strings.IndexFunc(value, unicode.IsSpace) >= 0 {
		return errors.NewStd("value must not contain whitespace")
	}
	return nil
}
