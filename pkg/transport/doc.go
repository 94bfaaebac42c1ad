// Package transport provides http.RoundTripper decorators for the Flagsmith client.
//
// The remote data source never retries or caches on its own; those policies live
// here and are composed around the base transport:
//
//	rt := remote.NewTransport(remote.DefaultTimeouts())
//	rt = transport.NewCacheTransport(rt, store, transport.WithCacheTTL(time.Minute))
//	rt = transport.NewBreakerTransport(rt, transport.NewCircuitBreaker(5, 2, 30*time.Second, nil))
//	rt = transport.NewRetryTransport(rt, transport.WithMaxRetries(2))
//
// RetryTransport re-sends requests after transport errors, 5xx, 408, 425 and 429,
// waiting per a BackoffStrategy. Requests with a body are only retried when
// GetBody is set, which http.NewRequest does for in-memory bodies.
//
// BreakerTransport fails fast with ErrCircuitOpen after repeated failures and
// probes again after the recovery timeout.
//
// CacheTransport keeps 200 responses to GET requests in an LRU and, when given a
// storage.Storage, in durable records keyed by CacheKey so a restarted process
// starts warm. Records older than the TTL are ignored.
//
// All three take a quartz.Clock so tests control time.
package transport
