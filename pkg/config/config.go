// Package config loads the FHIR endpoint settings from the environment and an optional .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Environment keys
const (
	KeyURL      = "FHIR_URL"
	KeyUser     = "FHIR_USER"
	KeyPassword = "FHIR_PWD"
	KeyTimeout  = "FHIR_TIMEOUT"
)

// DefaultTimeout bounds a single submission
const DefaultTimeout = 30 * time.Second

// ErrMissingConfig is wrapped by Validate when required keys are unset
var ErrMissingConfig = errors.New("missing configuration")

// Config is the FHIR server the transaction bundles are posted to
type Config struct {
	URL      string        `mapstructure:"FHIR_URL" validate:"required,url"`
	User     string        `mapstructure:"FHIR_USER" validate:"required"`
	Password string        `mapstructure:"FHIR_PWD" validate:"required"`
	Timeout  time.Duration `mapstructure:"FHIR_TIMEOUT" validate:"gt=0"`
}

// Load reads envFile when it exists, then the process environment, which takes precedence.
// The result is not validated.
func Load(envFile string) (*Config, error) {
	v := viper.New()
	v.SetDefault(KeyTimeout, DefaultTimeout)
	for _, k := range []string{KeyURL, KeyUser, KeyPassword, KeyTimeout} {
		if err := v.BindEnv(k); err != nil {
			return nil, err
		}
	}
	v.AutomaticEnv()

	if envFile != "" {
		v.SetConfigFile(envFile)
		v.SetConfigType("env")
		if err := v.ReadInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("reading %s: %w", envFile, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return cfg, nil
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// report env keys instead of struct field names
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		return f.Tag.Get("mapstructure")
	})
	return v
}

// Validate checks every key; missing ones are reported together
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	var missing, invalid []string
	for _, fe := range verrs {
		if fe.Tag() == "required" {
			missing = append(missing, fe.Field())
			continue
		}
		invalid = append(invalid, fmt.Sprintf("%s (%s)", fe.Field(), fe.Tag()))
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingConfig, strings.Join(missing, ", "))
	}
	return fmt.Errorf("invalid configuration: %s", strings.Join(invalid, ", "))
}
