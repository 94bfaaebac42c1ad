package flagsmith

import (
	"log/slog"
	"net/http"

	"github.com/coder/quartz"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/dmitrymomot/flagsmith/pkg/remote"
)

// Option configures the collaborators of a Client.
type Option func(*options)

type options struct {
	storage      Storage
	logger       *slog.Logger
	httpClient   *http.Client
	transport    http.RoundTripper
	clock        quartz.Clock
	registerer   prometheus.Registerer
	errorHandler remote.ErrorHandler
	dataSource   DataSource
}

// WithStorage supplies the durable storage analytics and the response cache
// depend on. See pkg/storage and pkg/redis for implementations.
func WithStorage(s Storage) Option {
	return func(o *options) { o.storage = s }
}

// WithLogger replaces the logger built from Config.LogLevel and Config.LogFormat.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithHTTPClient uses c for remote calls. Configured retry, circuit breaker and
// cache decorators wrap its transport; Config timeouts are not applied.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) {
		if c != nil {
			o.httpClient = c
		}
	}
}

// WithTransport replaces the base round tripper the decorators wrap.
func WithTransport(rt http.RoundTripper) Option {
	return func(o *options) {
		if rt != nil {
			o.transport = rt
		}
	}
}

// WithClock replaces the clock driving the flush cycle, retries, the circuit
// breaker and cache expiry. Intended for tests.
func WithClock(c quartz.Clock) Option {
	return func(o *options) {
		if c != nil {
			o.clock = c
		}
	}
}

// WithMetricsRegisterer registers the analytics metrics with reg.
func WithMetricsRegisterer(reg prometheus.Registerer) Option {
	return func(o *options) { o.registerer = reg }
}

// WithErrorHandler replaces the handler that classifies remote failures.
func WithErrorHandler(h remote.ErrorHandler) Option {
	return func(o *options) {
		if h != nil {
			o.errorHandler = h
		}
	}
}

// WithDataSource bypasses HTTP entirely. Transport options are ignored.
func WithDataSource(ds DataSource) Option {
	return func(o *options) {
		if ds != nil {
			o.dataSource = ds
		}
	}
}
