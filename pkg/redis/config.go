package redis

import "time"

// Config describes how to reach the Redis server backing a Storage.
// Load it with pkg/config, e.g. config.Load(&cfg, config.WithPrefix("FLAGSMITH_")).
type Config struct {
	// URL in go-redis form: redis://:password@localhost:6379/0.
	URL string `env:"REDIS_URL,required"`
	// Attempts is how many pings Connect tries before giving up.
	Attempts int `env:"REDIS_ATTEMPTS" envDefault:"3"`
	// Backoff is the pause between attempts.
	Backoff time.Duration `env:"REDIS_BACKOFF" envDefault:"2s"`
	// Timeout bounds Connect as a whole, retries included. Zero means no bound.
	Timeout time.Duration `env:"REDIS_TIMEOUT" envDefault:"15s"`
	// KeyPrefix namespaces every key written by Storage.
	KeyPrefix string `env:"REDIS_KEY_PREFIX" envDefault:"flagsmith:"`
}
