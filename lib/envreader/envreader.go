package envreader

import (
	"fmt"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/gobuffalo/envy"
	"github.com/spf13/viper"
)

// EnvReader reads configuration from an environment snapshot and remembers
// every required key it could not find, so callers can report them together.
type EnvReader struct {
	MissingKeys []string
	Errors      bool
	environment map[string]string
	settingsErr error
}

type Option func(*EnvReader)

// WithEnvironment replaces the environment snapshot.
func WithEnvironment(environment map[string]string) Option {
	return func(r *EnvReader) {
		r.environment = make(map[string]string, len(environment))
		for k, v := range environment {
			r.environment[k] = v
		}
	}
}

// WithSettingsFile merges the "Values" section of an Azure Functions
// local.settings.json into the snapshot. Variables already present win.
// Keys are upper-cased.
func WithSettingsFile(path string) Option {
	return func(r *EnvReader) {
		values, err := readSettingsFile(path)
		if err != nil {
			r.settingsErr = err
			return
		}
		for k, v := range values {
			if _, ok := r.environment[k]; !ok {
				r.environment[k] = v
			}
		}
	}
}

// NewEnvReader snapshots the process environment through envy, which also
// loads a .env file when one exists.
func NewEnvReader(opts ...Option) *EnvReader {
	r := &EnvReader{environment: envy.Map()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func readSettingsFile(path string) (map[string]string, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("could not read settings file %s: %w", path, err)
	}
	values := make(map[string]string)
	for k, val := range v.GetStringMapString("values") {
		values[strings.ToUpper(k)] = val
	}
	return values, nil
}

// SettingsError returns the error from WithSettingsFile, if any.
func (r *EnvReader) SettingsError() error {
	return r.settingsErr
}

func (r *EnvReader) LookupEnv(key string) (string, bool) {
	value, ok := r.environment[key]
	return value, ok
}

func (r *EnvReader) GetEnv(key string) string {
	if value, ok := r.LookupEnv(key); ok && value != "" {
		return value
	}
	r.missing(key)
	return ""
}

func (r *EnvReader) GetEnvOpt(key string) string {
	if value, ok := r.LookupEnv(key); ok {
		return value
	}
	return ""
}

// Parse fills v from its `env` struct tags. Required variables that are
// absent are recorded in MissingKeys.
func (r *EnvReader) Parse(v interface{}) error {
	err := env.ParseWithOptions(v, env.Options{Environment: r.environment})
	if err == nil {
		return nil
	}
	keys := missingKeys(err)
	for _, k := range keys {
		r.missing(k)
	}
	return err
}

func (r *EnvReader) missing(key string) {
	r.Errors = true
	for _, k := range r.MissingKeys {
		if k == key {
			return
		}
	}
	r.MissingKeys = append(r.MissingKeys, key)
}

func missingKeys(err error) []string {
	errs := []error{err}
	if agg, ok := err.(env.AggregateError); ok {
		errs = agg.Errors
	}
	var keys []string
	for _, e := range errs {
		switch e := e.(type) {
		case env.EnvVarIsNotSetError:
			keys = append(keys, e.Key)
		case env.EmptyEnvVarError:
			keys = append(keys, e.Key)
		}
	}
	return keys
}
