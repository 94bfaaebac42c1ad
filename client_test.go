package flagsmith_test

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/coder/quartz"
	"github.com/prometheus/client_golang/prometheus"
	prom_testutil "github.com/prometheus/client_golang/prometheus/testutil"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/flagsmith"
	"github.com/dmitrymomot/flagsmith/internal/fakeapi"
	"github.com/dmitrymomot/flagsmith/pkg/logger"
	"github.com/dmitrymomot/flagsmith/pkg/redis"
	"github.com/dmitrymomot/flagsmith/pkg/remote"
	"github.com/dmitrymomot/flagsmith/pkg/storage"
)

const envKey = "ser.test-environment"

func testConfig(srv *fakeapi.Server) flagsmith.Config {
	return flagsmith.Config{
		EnvironmentKey: envKey,
		BaseURL:        srv.URL(),
	}
}

func newClient(t *testing.T, srv *fakeapi.Server, cfg flagsmith.Config, opts ...flagsmith.Option) *flagsmith.Client {
	t.Helper()
	opts = append([]flagsmith.Option{
		flagsmith.WithHTTPClient(srv.Client()),
		flagsmith.WithLogger(logger.Discard()),
	}, opts...)
	c, err := flagsmith.New(cfg, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

// newAnalyticsClient returns a client whose flush loop has completed its first
// cycle and is parked on the mock clock.
func newAnalyticsClient(t *testing.T, srv *fakeapi.Server, st flagsmith.Storage, opts ...flagsmith.Option) (*flagsmith.Client, *quartz.Mock) {
	t.Helper()
	ctx := context.Background()

	mClock := quartz.NewMock(t)
	trap := mClock.Trap().NewTimer("analyticsScheduler", "wait")
	defer trap.Close()

	cfg := testConfig(srv)
	cfg.EnableAnalytics = true
	opts = append([]flagsmith.Option{flagsmith.WithStorage(st), flagsmith.WithClock(mClock)}, opts...)
	c := newClient(t, srv, cfg, opts...)

	trap.MustWait(ctx).MustRelease(ctx)
	return c, mClock
}

func TestNew_Validation(t *testing.T) {
	t.Parallel()

	srv := fakeapi.New(t, envKey)

	tests := []struct {
		name string
		cfg  flagsmith.Config
		opts []flagsmith.Option
	}{
		{name: "missing environment key", cfg: flagsmith.Config{BaseURL: srv.URL()}},
		{
			name: "analytics without storage",
			cfg:  flagsmith.Config{EnvironmentKey: envKey, BaseURL: srv.URL(), EnableAnalytics: true},
		},
		{
			name: "cache without storage",
			cfg: flagsmith.Config{
				EnvironmentKey: envKey,
				BaseURL:        srv.URL(),
				Cache:          flagsmith.CacheConfig{Enabled: true},
			},
		},
		{
			name: "negative retries",
			cfg: flagsmith.Config{
				EnvironmentKey: envKey,
				BaseURL:        srv.URL(),
				Retry:          flagsmith.RetryConfig{MaxRetries: -1},
			},
		},
		{name: "bad log level", cfg: flagsmith.Config{EnvironmentKey: envKey, LogLevel: "LOUD"}},
		{name: "bad base url", cfg: flagsmith.Config{EnvironmentKey: envKey, BaseURL: "ftp://example.com"}},
		{
			name: "bad default flags",
			cfg: flagsmith.Config{
				EnvironmentKey:   envKey,
				DefaultFlagsFile: "testdata/does-not-exist.yaml",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := append([]flagsmith.Option{flagsmith.WithHTTPClient(srv.Client())}, tt.opts...)
			c, err := flagsmith.New(tt.cfg, opts...)
			require.ErrorIs(t, err, flagsmith.ErrInvalidArgument)
			assert.Nil(t, c)
		})
	}

	for _, ep := range []fakeapi.Endpoint{fakeapi.Identities, fakeapi.Flags, fakeapi.Traits, fakeapi.Analytics} {
		assert.Zero(t, srv.Hits(ep), "no network activity expected on %s", ep)
	}
}

func TestNew_AppliesDefaults(t *testing.T) {
	t.Parallel()

	srv := fakeapi.New(t, envKey)
	c := newClient(t, srv, flagsmith.Config{EnvironmentKey: envKey, AnalyticsFlushPeriod: -time.Second})

	cfg := c.Config()
	assert.Equal(t, 10*time.Second, cfg.AnalyticsFlushPeriod)
	assert.Equal(t, remote.DefaultBaseURL, cfg.BaseURL)
	assert.Equal(t, 4*time.Second, cfg.ConnectTimeout)
	assert.Equal(t, 60*time.Second, cfg.Cache.TTL)
	assert.Equal(t, 128, cfg.Cache.Size)
}

func TestClient_GetFeatureFlag(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	srv := fakeapi.New(t, envKey)
	srv.SetFlags(fakeapi.Flag("env_only", true))
	srv.SetIdentity("user123",
		[]flagsmith.Flag{
			fakeapi.Flag("beta", true),
			fakeapi.Flag("legacy", false),
			fakeapi.Flag("color", true, "blue"),
		},
		nil,
	)
	c := newClient(t, srv, testConfig(srv))

	tests := []struct {
		feature string
		want    bool
	}{
		{"beta", true},
		{"legacy", false},
		{"color", true},
		{"missing", false},
		{"BETA", false},
		{"env_only", false},
	}
	for _, tt := range tests {
		got, err := c.GetFeatureFlag(ctx, tt.feature, "user123")
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, tt.feature)

		has, err := c.HasFeatureFlag(ctx, tt.feature, "user123")
		require.NoError(t, err)
		assert.Equal(t, got, has, tt.feature)
	}

	on, err := c.GetFeatureFlag(ctx, "env_only", "stranger")
	require.NoError(t, err)
	assert.True(t, on, "unknown identities get environment flags")

	assert.Equal(t, envKey, srv.LastHeader(fakeapi.Identities).Get(remote.HeaderEnvironmentKey))
}

func TestClient_GetValueForFeature(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	srv := fakeapi.New(t, envKey)
	srv.SetIdentity("user123",
		[]flagsmith.Flag{fakeapi.Flag("color", false, "blue"), fakeapi.Flag("beta", true)},
		nil,
	)
	c := newClient(t, srv, testConfig(srv))

	v, err := c.GetValueForFeature(ctx, "color", "user123")
	require.NoError(t, err)
	require.NotNil(t, v)
	assert.Equal(t, "blue", *v, "value is returned for disabled flags too")

	v, err = c.GetValueForFeature(ctx, "beta", "user123")
	require.NoError(t, err)
	assert.Nil(t, v)

	v, err = c.GetValueForFeature(ctx, "missing", "user123")
	require.NoError(t, err)
	assert.Nil(t, v)

	_, err = c.GetValueForFeature(ctx, "color", "")
	require.ErrorIs(t, err, flagsmith.ErrInvalidArgument)
}

func TestClient_FallsBackToDefaultFlags(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	blue := "blue"
	cfgFor := func(srv *fakeapi.Server) flagsmith.Config {
		cfg := testConfig(srv)
		cfg.DefaultFlags = []flagsmith.DefaultFlag{
			{Name: "beta", Enabled: true},
			{Name: "color", Enabled: true, Value: &blue},
		}
		return cfg
	}

	t.Run("generic failure", func(t *testing.T) {
		t.Parallel()
		srv := fakeapi.New(t, envKey)
		srv.SetIdentity("user123", []flagsmith.Flag{fakeapi.Flag("beta", false)}, nil)
		c := newClient(t, srv, cfgFor(srv))
		srv.Close()

		_, err := c.GetFeatureFlags(ctx, "user123")
		require.ErrorIs(t, err, flagsmith.ErrGeneric)

		on, err := c.GetFeatureFlag(ctx, "beta", "user123")
		require.NoError(t, err)
		assert.True(t, on)

		v, err := c.GetValueForFeature(ctx, "color", "user123")
		require.NoError(t, err)
		require.NotNil(t, v)
		assert.Equal(t, "blue", *v)
	})

	t.Run("api failure", func(t *testing.T) {
		t.Parallel()
		srv := fakeapi.New(t, envKey)
		srv.Fail(fakeapi.Identities, http.StatusInternalServerError)
		c := newClient(t, srv, cfgFor(srv))

		_, err := c.GetFeatureFlags(ctx, "user123")
		var apiErr *flagsmith.APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, http.StatusInternalServerError, apiErr.StatusCode)

		on, err := c.GetFeatureFlag(ctx, "beta", "user123")
		require.NoError(t, err)
		assert.True(t, on)

		on, err = c.GetFeatureFlag(ctx, "unknown", "user123")
		require.NoError(t, err)
		assert.False(t, on)
	})

	t.Run("wrong environment key", func(t *testing.T) {
		t.Parallel()
		srv := fakeapi.New(t, "another-key")
		c := newClient(t, srv, cfgFor(srv))

		on, err := c.GetFeatureFlag(ctx, "beta", "user123")
		require.NoError(t, err)
		assert.True(t, on)
	})
}

func TestClient_InvalidIdentity(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	srv := fakeapi.New(t, envKey)
	c := newClient(t, srv, flagsmith.Config{
		EnvironmentKey: envKey,
		BaseURL:        srv.URL(),
		DefaultFlags:   []flagsmith.DefaultFlag{{Name: "beta", Enabled: true}},
	})

	_, err := c.GetFeatureFlags(ctx, "")
	require.ErrorIs(t, err, flagsmith.ErrInvalidArgument)
	assert.Equal(t, flagsmith.KindInvalidArgument, flagsmith.KindOf(err))

	_, err = c.GetFeatureFlag(ctx, "beta", "")
	require.ErrorIs(t, err, flagsmith.ErrInvalidArgument, "invalid arguments are never recovered with defaults")

	_, err = c.SetTrait(ctx, flagsmith.Trait{Key: "plan", Value: "pro"}, "")
	require.ErrorIs(t, err, flagsmith.ErrInvalidArgument)

	_, err = c.GetTraits(ctx, "")
	require.ErrorIs(t, err, flagsmith.ErrInvalidArgument)

	assert.Zero(t, srv.Hits(fakeapi.Identities))
	assert.Zero(t, srv.Hits(fakeapi.Traits))
}

func TestClient_GetFlags(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	srv := fakeapi.New(t, envKey)
	srv.SetFlags(fakeapi.Flag("beta", true), fakeapi.Flag("color", true, "blue"))
	c := newClient(t, srv, testConfig(srv))

	flags, err := c.GetFlags(ctx)
	require.NoError(t, err)
	require.Len(t, flags, 2)
	assert.Equal(t, "beta", flags[0].Name())
	assert.Equal(t, "blue", *flags[1].Value)

	srv.Fail(fakeapi.Flags, http.StatusServiceUnavailable)
	_, err = c.GetFlags(ctx)
	require.ErrorIs(t, err, flagsmith.ErrAPI, "passthrough calls surface failures")
}

func TestClient_Traits(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	srv := fakeapi.New(t, envKey)
	srv.SetIdentity("user123", nil, []flagsmith.Trait{{Key: "plan", Value: "free"}})
	c := newClient(t, srv, testConfig(srv))

	echo, err := c.SetTrait(ctx, flagsmith.Trait{Key: "plan", Value: "pro"}, "user123")
	require.NoError(t, err)
	assert.Equal(t, "plan", echo.Key)
	assert.Equal(t, "pro", echo.Value)
	assert.Equal(t, "user123", echo.Identity.Identifier)

	posted := srv.PostedTraits()
	require.Len(t, posted, 1)
	assert.Equal(t, "user123", posted[0].Identity.Identifier)

	_, err = c.SetTrait(ctx, flagsmith.Trait{Key: "age", Value: "42"}, "user123")
	require.NoError(t, err)

	traits, err := c.GetTraits(ctx, "user123")
	require.NoError(t, err)
	assert.ElementsMatch(t, []flagsmith.Trait{{Key: "plan", Value: "pro"}, {Key: "age", Value: "42"}}, traits)

	trait, err := c.GetTrait(ctx, "age", "user123")
	require.NoError(t, err)
	assert.Equal(t, "42", trait.Value)

	_, err = c.GetTrait(ctx, "missing", "user123")
	require.ErrorIs(t, err, flagsmith.ErrTraitNotFound)

	ident, err := c.GetIdentity(ctx, "user123")
	require.NoError(t, err)
	assert.Len(t, ident.Traits, 2)

	srv.Fail(fakeapi.Traits, http.StatusBadGateway)
	_, err = c.SetTrait(ctx, flagsmith.Trait{Key: "plan", Value: "team"}, "user123")
	require.ErrorIs(t, err, flagsmith.ErrAPI)
}

func TestClient_AnalyticsCountsEveryEvaluation(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	srv := fakeapi.New(t, envKey)
	srv.SetIdentity("user123", []flagsmith.Flag{fakeapi.Flag("beta", false)}, nil)
	c, _ := newAnalyticsClient(t, srv, storage.NewMemory())

	for range 2 {
		_, err := c.GetFeatureFlag(ctx, "beta", "user123")
		require.NoError(t, err)
	}
	_, err := c.GetValueForFeature(ctx, "color", "user123")
	require.NoError(t, err)

	srv.Fail(fakeapi.Identities, http.StatusInternalServerError)
	_, err = c.GetFeatureFlag(ctx, "beta", "user123")
	require.NoError(t, err)

	_, err = c.GetFeatureFlag(ctx, "beta", "")
	require.Error(t, err)

	assert.Equal(t, map[string]int{"beta": 3, "color": 1}, map[string]int(c.PendingAnalytics()))
}

func TestClient_ConcurrentEvaluationsLoseNoCounts(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	srv := fakeapi.New(t, envKey)
	srv.SetIdentity("user123", []flagsmith.Flag{fakeapi.Flag("beta", true)}, nil)
	c, _ := newAnalyticsClient(t, srv, storage.NewMemory())

	const n = 2
	var wg sync.WaitGroup
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			on, err := c.GetFeatureFlag(ctx, "beta", "user123")
			assert.NoError(t, err)
			assert.True(t, on)
		}()
	}
	wg.Wait()

	assert.Equal(t, n, c.PendingAnalytics()["beta"])
}

func TestClient_FlushAnalytics(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	srv := fakeapi.New(t, envKey)
	srv.SetIdentity("user123", []flagsmith.Flag{fakeapi.Flag("new_button", true)}, nil)
	reg := prometheus.NewPedanticRegistry()
	c, _ := newAnalyticsClient(t, srv, storage.NewMemory(), flagsmith.WithMetricsRegisterer(reg))

	for range 3 {
		_, err := c.GetFeatureFlag(ctx, "new_button", "user123")
		require.NoError(t, err)
	}

	srv.Fail(fakeapi.Analytics, http.StatusInternalServerError)
	err := c.FlushAnalytics(ctx)
	require.ErrorIs(t, err, flagsmith.ErrAPI)
	assert.Equal(t, 3, c.PendingAnalytics()["new_button"], "failed flush keeps counts")

	srv.Fail(fakeapi.Analytics, 0)
	require.NoError(t, c.FlushAnalytics(ctx))
	assert.Empty(t, c.PendingAnalytics())
	assert.Equal(t, []map[string]int{{"new_button": 3}}, srv.PostedAnalytics())

	require.NoError(t, c.FlushAnalytics(ctx))
	assert.Len(t, srv.PostedAnalytics(), 1, "empty store skips the network")

	count, err := prom_testutil.GatherAndCount(reg, "flagsmith_analytics_events_flushed_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestClient_PeriodicFlush(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	srv := fakeapi.New(t, envKey)
	srv.SetIdentity("user123", []flagsmith.Flag{fakeapi.Flag("beta", true)}, nil)

	mClock := quartz.NewMock(t)
	trap := mClock.Trap().NewTimer("analyticsScheduler", "wait")
	defer trap.Close()

	cfg := testConfig(srv)
	cfg.EnableAnalytics = true
	cfg.AnalyticsFlushPeriod = 5 * time.Second
	c := newClient(t, srv, cfg, flagsmith.WithStorage(storage.NewMemory()), flagsmith.WithClock(mClock))

	call := trap.MustWait(ctx)
	assert.Equal(t, 5*time.Second, call.Duration)
	call.MustRelease(ctx)

	_, err := c.GetFeatureFlag(ctx, "beta", "user123")
	require.NoError(t, err)

	mClock.Advance(5 * time.Second).MustWait(ctx)
	trap.MustWait(ctx).MustRelease(ctx)

	assert.Equal(t, map[string]int{"beta": 1}, srv.AnalyticsTotals())
	assert.Empty(t, c.PendingAnalytics())
}

func TestClient_AnalyticsSurviveRestart(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	srv := fakeapi.New(t, envKey)
	srv.SetIdentity("user123", []flagsmith.Flag{fakeapi.Flag("beta", true)}, nil)
	st := storage.NewMemory()

	first, _ := newAnalyticsClient(t, srv, st)
	for range 3 {
		_, err := first.GetFeatureFlag(ctx, "beta", "user123")
		require.NoError(t, err)
	}
	require.NoError(t, first.Close())
	require.NoError(t, first.Close())
	assert.Empty(t, srv.PostedAnalytics(), "close does not flush")

	// The second client's first cycle pushes what the first one left behind.
	second, _ := newAnalyticsClient(t, srv, st)
	assert.Equal(t, map[string]int{"beta": 3}, srv.AnalyticsTotals())
	assert.Empty(t, second.PendingAnalytics())
}

func TestClient_AnalyticsDisabled(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	srv := fakeapi.New(t, envKey)
	c := newClient(t, srv, testConfig(srv))

	require.ErrorIs(t, c.FlushAnalytics(ctx), flagsmith.ErrAnalyticsDisabled)
	assert.Nil(t, c.PendingAnalytics())
	require.NoError(t, c.Close())
}

func TestClient_ResponseCache(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	srv := fakeapi.New(t, envKey)
	srv.SetIdentity("user123", []flagsmith.Flag{fakeapi.Flag("beta", true)}, nil)
	st := storage.NewMemory()

	cfg := testConfig(srv)
	cfg.Cache.Enabled = true
	c := newClient(t, srv, cfg, flagsmith.WithStorage(st))

	for range 3 {
		on, err := c.GetFeatureFlag(ctx, "beta", "user123")
		require.NoError(t, err)
		assert.True(t, on)
	}
	assert.Equal(t, 1, srv.Hits(fakeapi.Identities))
	assert.Equal(t, 1, st.Len(), "one cached response, no analytics record")

	_, err := c.SetTrait(ctx, flagsmith.Trait{Key: "plan", Value: "pro"}, "user123")
	require.NoError(t, err)
	_, err = c.SetTrait(ctx, flagsmith.Trait{Key: "plan", Value: "pro"}, "user123")
	require.NoError(t, err)
	assert.Equal(t, 2, srv.Hits(fakeapi.Traits), "posts are never cached")
}

func TestClient_Retry(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	srv := fakeapi.New(t, envKey)
	srv.SetFlags(fakeapi.Flag("beta", true))
	srv.Fail(fakeapi.Flags, http.StatusServiceUnavailable)

	cfg := testConfig(srv)
	cfg.Retry = flagsmith.RetryConfig{MaxRetries: 2, InitialInterval: time.Millisecond, MaxInterval: time.Millisecond}
	c := newClient(t, srv, cfg)

	_, err := c.GetFlags(ctx)
	require.ErrorIs(t, err, flagsmith.ErrAPI)
	assert.Equal(t, 3, srv.Hits(fakeapi.Flags))
}

func TestClient_CircuitBreaker(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	srv := fakeapi.New(t, envKey)
	srv.Fail(fakeapi.Flags, http.StatusInternalServerError)

	cfg := testConfig(srv)
	cfg.CircuitBreaker = flagsmith.CircuitBreakerConfig{
		Enabled:          true,
		FailureThreshold: 2,
		SuccessThreshold: 1,
		RecoveryTimeout:  time.Hour,
	}
	c := newClient(t, srv, cfg)

	for range 2 {
		_, err := c.GetFlags(ctx)
		require.ErrorIs(t, err, flagsmith.ErrAPI)
	}

	_, err := c.GetFlags(ctx)
	require.ErrorIs(t, err, flagsmith.ErrGeneric, "an open circuit fails without a request")
	assert.Equal(t, 2, srv.Hits(fakeapi.Flags))
}

func TestClient_WithDataSource(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	ds := &stubSource{err: &flagsmith.GenericError{Message: "offline"}}
	c, err := flagsmith.New(
		flagsmith.Config{
			EnvironmentKey: envKey,
			DefaultFlags:   []flagsmith.DefaultFlag{{Name: "beta", Enabled: true}},
		},
		flagsmith.WithDataSource(ds),
		flagsmith.WithLogger(logger.Discard()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	on, err := c.GetFeatureFlag(ctx, "beta", "user123")
	require.NoError(t, err)
	assert.True(t, on)
	assert.Equal(t, []string{"user123"}, ds.identities)
}

func TestClient_DefaultValueIsCopied(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	blue := "blue"
	c, err := flagsmith.New(
		flagsmith.Config{
			EnvironmentKey: envKey,
			DefaultFlags:   []flagsmith.DefaultFlag{{Name: "color", Enabled: true, Value: &blue}},
		},
		flagsmith.WithDataSource(&stubSource{err: &flagsmith.GenericError{Message: "offline"}}),
		flagsmith.WithLogger(logger.Discard()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	v, err := c.GetValueForFeature(ctx, "color", "user123")
	require.NoError(t, err)
	require.NotNil(t, v)
	*v = "red"

	v, err = c.GetValueForFeature(ctx, "color", "user123")
	require.NoError(t, err)
	require.NotNil(t, v)
	assert.Equal(t, "blue", *v)
}

func TestClient_NilIdentityResult(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	c, err := flagsmith.New(
		flagsmith.Config{EnvironmentKey: envKey},
		flagsmith.WithDataSource(&stubSource{nilResult: true}),
		flagsmith.WithLogger(logger.Discard()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	on, err := c.GetFeatureFlag(ctx, "beta", "user123")
	require.NoError(t, err)
	assert.False(t, on)

	v, err := c.GetValueForFeature(ctx, "beta", "user123")
	require.NoError(t, err)
	assert.Nil(t, v)

	_, err = c.GetTrait(ctx, "plan", "user123")
	require.ErrorIs(t, err, flagsmith.ErrTraitNotFound)
}

type stubSource struct {
	mu         sync.Mutex
	identities []string
	err        error
	nilResult  bool
}

func (s *stubSource) GetIdentityFlagsAndTraits(_ context.Context, identity string) (*flagsmith.IdentityFlagsAndTraits, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.identities = append(s.identities, identity)
	if s.err != nil || s.nilResult {
		return nil, s.err
	}
	return &flagsmith.IdentityFlagsAndTraits{}, nil
}

func (s *stubSource) GetFlags(context.Context) ([]flagsmith.Flag, error) { return nil, s.err }

func (s *stubSource) PostTraits(_ context.Context, t flagsmith.TraitWithIdentity) (*flagsmith.TraitWithIdentity, error) {
	return &t, s.err
}

func (s *stubSource) PostAnalytics(context.Context, map[string]int) error { return s.err }

func TestClient_AnalyticsOnRedis(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	st := redis.NewStorage(rdb, redis.WithKeyPrefix("flagsmith:"))

	srv := fakeapi.New(t, envKey)
	srv.SetIdentity("user123", []flagsmith.Flag{fakeapi.Flag("beta", true)}, nil)
	srv.Fail(fakeapi.Analytics, http.StatusServiceUnavailable)

	c, _ := newAnalyticsClient(t, srv, st)
	for range 2 {
		_, err := c.GetFeatureFlag(ctx, "beta", "user123")
		require.NoError(t, err)
	}
	require.Error(t, c.FlushAnalytics(ctx))

	raw, err := mr.Get("flagsmith:events")
	require.NoError(t, err)
	assert.JSONEq(t, `{"beta":2}`, raw)

	srv.Fail(fakeapi.Analytics, 0)
	require.NoError(t, c.FlushAnalytics(ctx))
	raw, err = mr.Get("flagsmith:events")
	require.NoError(t, err)
	assert.JSONEq(t, `{}`, raw)
}
