package config

import (
	"errors"
	"maps"
	"os"
	"reflect"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Option configures a single Load call.
type Option func(*options)

type options struct {
	prefix   string
	environ  map[string]string
	dotenv   []string
	required bool
}

// WithPrefix prepends prefix to every env tag, e.g. "APP_" turns
// `env:"BASE_URL"` into APP_BASE_URL.
func WithPrefix(prefix string) Option {
	return func(o *options) { o.prefix = prefix }
}

// WithEnvironment replaces the process environment with vars.
// Useful for tests and for embedding hosts that keep configuration elsewhere.
func WithEnvironment(vars map[string]string) Option {
	return func(o *options) { o.environ = maps.Clone(vars) }
}

// WithDotEnv reads the given .env files before parsing. Values already present
// in the environment win over file values, and earlier files win over later ones,
// matching godotenv.Load. Missing files are an error.
func WithDotEnv(files ...string) Option {
	return func(o *options) {
		if len(files) == 0 {
			files = []string{".env"}
		}
		o.dotenv = append(o.dotenv, files...)
	}
}

// WithRequiredIfNoDefault marks every field without envDefault as required.
func WithRequiredIfNoDefault() Option {
	return func(o *options) { o.required = true }
}

// Load parses environment variables into v according to its struct tags.
// Fields keep their current value when the variable is absent and no envDefault is set,
// so callers can pre-populate defaults in code.
//
// Example:
//
//	type ClientConfig struct {
//		BaseURL string        `env:"BASE_URL" envDefault:"https://edge.api.flagsmith.com/api/v1/"`
//		Timeout time.Duration `env:"TIMEOUT" envDefault:"5s"`
//		Key     string        `env:"ENVIRONMENT_KEY,required"`
//	}
//
//	var cfg ClientConfig
//	err := config.Load(&cfg, config.WithPrefix("FLAGSMITH_"))
func Load[T any](v *T, opts ...Option) error {
	if v == nil {
		return ErrNilPointer
	}
	if t := reflect.TypeFor[T](); t.Kind() != reflect.Struct {
		return ErrInvalidConfigType
	}

	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	environ := o.environ
	if environ == nil {
		environ = env.ToMap(os.Environ())
	}

	if len(o.dotenv) > 0 {
		fileVars, err := readDotEnv(o.dotenv)
		if err != nil {
			return err
		}
		merged := make(map[string]string, len(fileVars)+len(environ))
		maps.Copy(merged, fileVars)
		maps.Copy(merged, environ)
		environ = merged
	}

	if err := env.ParseWithOptions(v, env.Options{
		Environment:           environ,
		Prefix:                o.prefix,
		RequiredIfNoDef:       o.required,
		UseFieldNameByDefault: false,
	}); err != nil {
		return errors.Join(ErrParsingConfig, err)
	}
	return nil
}

// MustLoad works like Load but panics if configuration loading fails.
func MustLoad[T any](v *T, opts ...Option) {
	if err := Load(v, opts...); err != nil {
		panic(err)
	}
}

// readDotEnv merges files so that the first file defining a key wins.
func readDotEnv(files []string) (map[string]string, error) {
	out := make(map[string]string)
	for i := len(files) - 1; i >= 0; i-- {
		vars, err := godotenv.Read(files[i])
		if err != nil {
			return nil, errors.Join(ErrDotEnv, err)
		}
		maps.Copy(out, vars)
	}
	return out, nil
}
