// Package redis provides a Redis-backed storage for the Flagsmith client.
//
// It wraps the go-redis client and adds:
//
//   - Connect, which pings until the server answers or attempts run out.
//   - Storage, an implementation of storage.Storage that namespaces keys with a
//     prefix. Cached API responses can be shared between processes; the
//     analytics record is rewritten whole on each evaluation, so give every
//     concurrent process its own prefix or analytics key.
//   - Storage.Ping, for liveness / readiness probes.
//
// Configuration is described by the Config struct whose fields can be populated
// from environment variables via github.com/caarlos0/env.
//
// # Usage
//
//	client, err := redis.Connect(ctx, redis.Config{
//		URL:      "redis://localhost:6379/0",
//		Attempts: 3,
//		Backoff:  time.Second,
//		Timeout:  10 * time.Second,
//	})
//	if err != nil {
//		// handle error
//	}
//	defer client.Close()
//
//	fs, err := flagsmith.New(cfg, flagsmith.WithStorage(redis.NewStorage(client)))
//
// # Errors
//
// Connect and Ping join their sentinel (ErrNotReady, ErrUnreachable, ...) with
// the go-redis error, so both match errors.Is.
package redis
