package flagsmith

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/coder/quartz"

	"github.com/dmitrymomot/flagsmith/pkg/analytics"
	"github.com/dmitrymomot/flagsmith/pkg/logger"
	"github.com/dmitrymomot/flagsmith/pkg/remote"
	"github.com/dmitrymomot/flagsmith/pkg/requestid"
	"github.com/dmitrymomot/flagsmith/pkg/transport"
)

// DataSource is the remote side of the client. *remote.DataSource implements it.
type DataSource interface {
	GetIdentityFlagsAndTraits(ctx context.Context, identity string) (*IdentityFlagsAndTraits, error)
	GetFlags(ctx context.Context) ([]Flag, error)
	PostTraits(ctx context.Context, trait TraitWithIdentity) (*TraitWithIdentity, error)
	PostAnalytics(ctx context.Context, counts map[string]int) error
}

// Client evaluates flags and reads and writes traits for one environment.
// Safe for concurrent use. Call Close to stop the analytics flush loop.
type Client struct {
	cfg      Config
	source   DataSource
	defaults []Flag
	logger   *slog.Logger

	store     *analytics.Store
	scheduler *analytics.Scheduler
	cancel    context.CancelFunc
	done      chan struct{}
	closeOnce sync.Once
}

// New validates cfg, wires the collaborators and, with analytics enabled,
// starts the flush loop. Validation happens before any network activity.
func New(cfg Config, opts ...Option) (*Client, error) {
	o := &options{clock: quartz.NewReal()}
	for _, opt := range opts {
		opt(o)
	}

	cfg = cfg.withDefaults()
	if err := cfg.validate(o.storage != nil); err != nil {
		return nil, err
	}

	log := o.logger
	if log == nil {
		lvl, _ := cfg.logLevel()
		format, _ := logger.ParseFormat(string(cfg.LogFormat))
		log = logger.New(
			logger.WithLevel(lvl),
			logger.WithFormat(format),
			logger.WithAttr(logger.Component("flagsmith")),
			logger.WithContextExtractors(requestid.LoggerExtractor()),
		)
	}

	defaults, err := resolveDefaults(cfg)
	if err != nil {
		return nil, err
	}

	source := o.dataSource
	if source == nil {
		ds, err := remote.NewDataSource(
			remote.Config{BaseURL: cfg.BaseURL, EnvironmentKey: cfg.EnvironmentKey},
			remote.WithHTTPClient(newHTTPClient(cfg, o, log)),
			remote.WithErrorHandler(o.errorHandler),
			remote.WithLogger(log),
		)
		if err != nil {
			return nil, err
		}
		source = ds
	}

	c := &Client{
		cfg:      cfg,
		source:   source,
		defaults: defaults,
		logger:   log,
	}

	if cfg.EnableAnalytics {
		if err := c.startAnalytics(o); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// newHTTPClient composes cache, retry and circuit breaker around the base transport.
// Cache hits never reach the breaker; every retry attempt consults it.
func newHTTPClient(cfg Config, o *options, log *slog.Logger) *http.Client {
	var client http.Client
	if o.httpClient != nil {
		client = *o.httpClient
	} else {
		client = *remote.NewHTTPClient(cfg.Timeouts(), nil)
	}

	rt := client.Transport
	if o.transport != nil {
		rt = o.transport
	}
	if rt == nil {
		rt = http.DefaultTransport
	}

	if cfg.CircuitBreaker.Enabled {
		cb := transport.NewCircuitBreaker(
			cfg.CircuitBreaker.FailureThreshold,
			cfg.CircuitBreaker.SuccessThreshold,
			cfg.CircuitBreaker.RecoveryTimeout,
			o.clock,
		)
		rt = transport.NewBreakerTransport(rt, cb)
	}
	if cfg.Retry.MaxRetries > 0 {
		rt = transport.NewRetryTransport(rt,
			transport.WithMaxRetries(cfg.Retry.MaxRetries),
			transport.WithBackoff(transport.ExponentialBackoff{
				InitialInterval: cfg.Retry.InitialInterval,
				MaxInterval:     cfg.Retry.MaxInterval,
				Multiplier:      2,
				JitterFactor:    0.1,
			}),
			transport.WithRetryClock(o.clock),
			transport.WithRetryLogger(log),
		)
	}
	if cfg.Cache.Enabled {
		rt = transport.NewCacheTransport(rt, o.storage,
			transport.WithCacheTTL(cfg.Cache.TTL),
			transport.WithCacheSize(cfg.Cache.Size),
			transport.WithCacheClock(o.clock),
			transport.WithCacheLogger(log),
		)
	}

	client.Transport = rt
	return &client
}

func (c *Client) startAnalytics(o *options) error {
	store, err := analytics.NewStore(context.Background(), o.storage, analytics.WithStoreLogger(c.logger))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}

	metrics := analytics.NewMetrics()
	if err := metrics.Register(o.registerer); err != nil {
		return fmt.Errorf("register analytics metrics: %w", err)
	}

	scheduler, err := analytics.NewScheduler(store, c.source,
		analytics.WithFlushPeriod(c.cfg.AnalyticsFlushPeriod),
		analytics.WithClock(o.clock),
		analytics.WithLogger(c.logger),
		analytics.WithMetrics(metrics),
	)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	c.store = store
	c.scheduler = scheduler
	c.cancel = cancel
	c.done = make(chan struct{})

	go func() {
		defer close(c.done)
		_ = scheduler.Start(ctx)
	}()
	return nil
}

// GetFlags fetches the environment flags. Failures are returned as-is.
func (c *Client) GetFlags(ctx context.Context) ([]Flag, error) {
	return c.source.GetFlags(ctx)
}

// GetFeatureFlags fetches the flags and traits of identity, which is required;
// use GetFlags for environment flags.
func (c *Client) GetFeatureFlags(ctx context.Context, identity string) (*IdentityFlagsAndTraits, error) {
	if identity == "" {
		return nil, fmt.Errorf("%w: identity is required, use GetFlags without one", ErrInvalidArgument)
	}
	return c.source.GetIdentityFlagsAndTraits(ctx, identity)
}

// GetFeatureFlag reports whether featureID is enabled for identity. If the flags
// cannot be fetched the default flags are used instead and no error is returned.
// Only ErrInvalidArgument is ever returned.
func (c *Client) GetFeatureFlag(ctx context.Context, featureID, identity string) (bool, error) {
	flags, err := c.resolve(ctx, featureID, identity)
	if err != nil {
		return false, err
	}
	for _, f := range flags {
		if f.Name() == featureID && f.Enabled {
			return true, nil
		}
	}
	return false, nil
}

// HasFeatureFlag is an alias of GetFeatureFlag.
func (c *Client) HasFeatureFlag(ctx context.Context, featureID, identity string) (bool, error) {
	return c.GetFeatureFlag(ctx, featureID, identity)
}

// GetValueForFeature returns the remote-config value of featureID for identity,
// or nil when the flag is absent or carries no value. Resolution and fallback
// follow GetFeatureFlag.
func (c *Client) GetValueForFeature(ctx context.Context, featureID, identity string) (*string, error) {
	flags, err := c.resolve(ctx, featureID, identity)
	if err != nil {
		return nil, err
	}
	for _, f := range flags {
		if f.Name() == featureID {
			if f.Value == nil {
				return nil, nil
			}
			v := *f.Value
			return &v, nil
		}
	}
	return nil, nil
}

// resolve fetches identity flags, falling back to the default flags on API and
// generic failures, and records one evaluation of featureID either way.
func (c *Client) resolve(ctx context.Context, featureID, identity string) ([]Flag, error) {
	res, err := c.GetFeatureFlags(ctx, identity)

	var flags []Flag
	switch KindOf(err) {
	case KindNone:
		// A data source may answer nil for an identity without flags.
		if res != nil {
			flags = res.Flags
		}
	case KindAPI, KindGeneric:
		c.logger.WarnContext(ctx, "flag fetch failed, serving default flags",
			logger.Feature(featureID),
			logger.Identity(identity),
			logger.Error(err),
		)
		flags = c.defaults
	case KindInvalidArgument:
		return nil, err
	}

	if c.store != nil {
		c.store.Track(ctx, featureID)
	}
	return flags, nil
}

// SetTrait upserts trait on identity and returns the service's echo.
func (c *Client) SetTrait(ctx context.Context, trait Trait, identity string) (*TraitWithIdentity, error) {
	if identity == "" {
		return nil, fmt.Errorf("%w: identity is required", ErrInvalidArgument)
	}
	return c.source.PostTraits(ctx, TraitWithIdentity{
		Key:      trait.Key,
		Value:    trait.Value,
		Identity: Identity{Identifier: identity},
	})
}

// GetTraits returns every trait of identity.
func (c *Client) GetTraits(ctx context.Context, identity string) ([]Trait, error) {
	res, err := c.GetFeatureFlags(ctx, identity)
	if err != nil || res == nil {
		return nil, err
	}
	return res.Traits, nil
}

// GetTrait returns the trait named key, or ErrTraitNotFound.
func (c *Client) GetTrait(ctx context.Context, key, identity string) (*Trait, error) {
	traits, err := c.GetTraits(ctx, identity)
	if err != nil {
		return nil, err
	}
	for i := range traits {
		if traits[i].Key == key {
			t := traits[i]
			return &t, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrTraitNotFound, key)
}

// GetIdentity returns the flags and traits of identity.
func (c *Client) GetIdentity(ctx context.Context, identity string) (*IdentityFlagsAndTraits, error) {
	return c.GetFeatureFlags(ctx, identity)
}

// FlushAnalytics runs one flush cycle now. The periodic loop keeps running.
func (c *Client) FlushAnalytics(ctx context.Context) error {
	if c.scheduler == nil {
		return ErrAnalyticsDisabled
	}
	return c.scheduler.Flush(ctx)
}

// PendingAnalytics returns the evaluation counts not yet flushed,
// or nil when analytics is disabled.
func (c *Client) PendingAnalytics() analytics.Counters {
	if c.store == nil {
		return nil
	}
	return c.store.Snapshot()
}

// Config returns the effective configuration, defaults applied.
func (c *Client) Config() Config { return c.cfg }

// Close stops the analytics loop and waits for it to exit. Pending counts stay
// in storage and are merged by the next client. Safe to call more than once.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		if c.cancel != nil {
			c.cancel()
			<-c.done
		}
	})
	return nil
}

var _ DataSource = (*remote.DataSource)(nil)

