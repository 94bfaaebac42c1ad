// Package flagsmith is a client for the Flagsmith feature flag service.
//
// A Client resolves flags for an identity, reads and writes identity traits,
// and optionally counts flag evaluations and reports them to Flagsmith in the
// background.
//
//	client, err := flagsmith.New(flagsmith.Config{
//		EnvironmentKey: "ser.xxxxxxxx",
//		DefaultFlags: []flagsmith.DefaultFlag{
//			{Name: "new_checkout", Enabled: false},
//		},
//	})
//	if err != nil {
//		return err
//	}
//	defer client.Close()
//
//	on, err := client.GetFeatureFlag(ctx, "new_checkout", user.ID)
//
// # Fallback
//
// GetFeatureFlag, HasFeatureFlag and GetValueForFeature never fail because the
// service is unreachable or answered with an error: the default flags are
// evaluated instead and the failure is logged. Only invalid arguments, such as
// an empty identity, are returned. The remaining calls return every failure,
// classified by KindOf as KindAPI, KindGeneric or KindInvalidArgument.
//
// # Analytics
//
// With Config.EnableAnalytics every evaluation increments a per-flag counter,
// defaulted evaluations included. Counters are written through to the Storage
// given with WithStorage, so a restarted process picks up what the previous one
// did not report. A background loop pushes the counters every
// AnalyticsFlushPeriod and subtracts what the service acknowledged; failed
// pushes are retried on the next cycle. FlushAnalytics runs one cycle on demand.
//
// # Resilience
//
// Remote calls go through optional http.RoundTripper decorators, outermost
// first: a response cache (Config.Cache, needs a Storage), retries with
// exponential backoff (Config.Retry) and a circuit breaker
// (Config.CircuitBreaker). See package transport.
//
// # Configuration
//
// LoadConfig reads a Config from FLAGSMITH_* environment variables and .env
// files; DefaultFlagsFile points at a YAML or JSON list of default flags.
package flagsmith
