package flagsmith

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dmitrymomot/flagsmith/pkg/analytics"
	"github.com/dmitrymomot/flagsmith/pkg/config"
	"github.com/dmitrymomot/flagsmith/pkg/logger"
	"github.com/dmitrymomot/flagsmith/pkg/remote"
)

// EnvPrefix prefixes every variable read by LoadConfig.
const EnvPrefix = "FLAGSMITH_"

// Config is the construction-time configuration of a Client.
// Zero durations and sizes fall back to the documented defaults.
type Config struct {
	// EnvironmentKey is the client-side key of a Flagsmith environment.
	EnvironmentKey string `env:"ENVIRONMENT_KEY,required"`
	// BaseURL of the API; self-hosted installations point this at their own server.
	BaseURL string `env:"BASE_URL" envDefault:"https://edge.api.flagsmith.com/api/v1/"`

	// EnableAnalytics counts flag evaluations and reports them periodically.
	// Requires a storage, see WithStorage.
	EnableAnalytics      bool          `env:"ENABLE_ANALYTICS" envDefault:"false"`
	AnalyticsFlushPeriod time.Duration `env:"ANALYTICS_FLUSH_PERIOD" envDefault:"10s"`

	ConnectTimeout time.Duration `env:"CONNECT_TIMEOUT" envDefault:"4s"`
	ReadTimeout    time.Duration `env:"READ_TIMEOUT" envDefault:"6s"`
	WriteTimeout   time.Duration `env:"WRITE_TIMEOUT" envDefault:"6s"`

	Cache          CacheConfig          `envPrefix:"CACHE_"`
	Retry          RetryConfig          `envPrefix:"RETRY_"`
	CircuitBreaker CircuitBreakerConfig `envPrefix:"CIRCUIT_"`

	// LogLevel and LogFormat configure the logger built when WithLogger is not used.
	LogLevel  string        `env:"LOG_LEVEL" envDefault:"WARN"`
	LogFormat logger.Format `env:"LOG_FORMAT" envDefault:"text"`

	// DefaultFlags are served when flags cannot be fetched.
	DefaultFlags []DefaultFlag `env:"-"`
	// DefaultFlagsFile is a YAML or JSON list of default flags appended to DefaultFlags.
	DefaultFlagsFile string `env:"DEFAULT_FLAGS_FILE"`
}

// CacheConfig controls the HTTP response cache. Requires a storage.
type CacheConfig struct {
	Enabled bool          `env:"ENABLED" envDefault:"false"`
	TTL     time.Duration `env:"TTL" envDefault:"60s"`
	Size    int           `env:"SIZE" envDefault:"128"`
}

// RetryConfig controls retries of failed requests. Zero MaxRetries disables them.
type RetryConfig struct {
	MaxRetries      int           `env:"MAX_RETRIES" envDefault:"0"`
	InitialInterval time.Duration `env:"INITIAL_INTERVAL" envDefault:"500ms"`
	MaxInterval     time.Duration `env:"MAX_INTERVAL" envDefault:"5s"`
}

// CircuitBreakerConfig controls fail-fast behavior against an unhealthy API.
type CircuitBreakerConfig struct {
	Enabled          bool          `env:"ENABLED" envDefault:"false"`
	FailureThreshold int           `env:"FAILURE_THRESHOLD" envDefault:"5"`
	SuccessThreshold int           `env:"SUCCESS_THRESHOLD" envDefault:"2"`
	RecoveryTimeout  time.Duration `env:"RECOVERY_TIMEOUT" envDefault:"30s"`
}

// DefaultConfig returns a Config with every default applied and no environment key.
func DefaultConfig() Config {
	t := remote.DefaultTimeouts()
	return Config{
		BaseURL:              remote.DefaultBaseURL,
		AnalyticsFlushPeriod: analytics.DefaultFlushPeriod,
		ConnectTimeout:       t.Connect,
		ReadTimeout:          t.Read,
		WriteTimeout:         t.Write,
		Cache:                CacheConfig{TTL: 60 * time.Second, Size: 128},
		Retry:                RetryConfig{InitialInterval: 500 * time.Millisecond, MaxInterval: 5 * time.Second},
		CircuitBreaker:       CircuitBreakerConfig{FailureThreshold: 5, SuccessThreshold: 2, RecoveryTimeout: 30 * time.Second},
		LogLevel:             "WARN",
		LogFormat:            logger.FormatText,
	}
}

// LoadConfig reads a Config from FLAGSMITH_* environment variables.
// Extra options are applied after the prefix, e.g. config.WithDotEnv(".env").
func LoadConfig(opts ...config.Option) (Config, error) {
	cfg := DefaultConfig()
	opts = append([]config.Option{config.WithPrefix(EnvPrefix)}, opts...)
	if err := config.Load(&cfg, opts...); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Timeouts returns the remote call timeouts.
func (c Config) Timeouts() remote.Timeouts {
	return remote.Timeouts{Connect: c.ConnectTimeout, Read: c.ReadTimeout, Write: c.WriteTimeout}
}

// withDefaults fills zero values, the same way DefaultConfig would.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.BaseURL == "" {
		c.BaseURL = d.BaseURL
	}
	if c.AnalyticsFlushPeriod <= 0 {
		c.AnalyticsFlushPeriod = d.AnalyticsFlushPeriod
	}
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = d.ConnectTimeout
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = d.ReadTimeout
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = d.WriteTimeout
	}
	if c.Cache.TTL <= 0 {
		c.Cache.TTL = d.Cache.TTL
	}
	if c.Cache.Size <= 0 {
		c.Cache.Size = d.Cache.Size
	}
	if c.Retry.InitialInterval <= 0 {
		c.Retry.InitialInterval = d.Retry.InitialInterval
	}
	if c.Retry.MaxInterval <= 0 {
		c.Retry.MaxInterval = d.Retry.MaxInterval
	}
	if c.LogLevel == "" {
		c.LogLevel = d.LogLevel
	}
	if c.LogFormat == "" {
		c.LogFormat = d.LogFormat
	}
	return c
}

// validate enforces the construction invariants. hasStorage reports whether a
// storage was supplied through WithStorage.
func (c Config) validate(hasStorage bool) error {
	if strings.TrimSpace(c.EnvironmentKey) == "" {
		return fmt.Errorf("%w: environment key is required", ErrInvalidArgument)
	}
	if c.EnableAnalytics && !hasStorage {
		return fmt.Errorf("%w: analytics requires a storage", ErrInvalidArgument)
	}
	if c.Cache.Enabled && !hasStorage {
		return fmt.Errorf("%w: cache requires a storage", ErrInvalidArgument)
	}
	if c.Retry.MaxRetries < 0 {
		return fmt.Errorf("%w: retry max retries must not be negative", ErrInvalidArgument)
	}
	if _, err := c.logLevel(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}
	if _, err := logger.ParseFormat(string(c.LogFormat)); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}
	return nil
}

func (c Config) logLevel() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("log level %q: %w", c.LogLevel, err)
	}
	return lvl, nil
}
