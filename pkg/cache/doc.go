// Package cache provides a generic, thread-safe LRU cache with optional
// per-entry expiry.
//
// The Flagsmith client uses it as the in-memory front of the HTTP response
// cache: hot responses are served from here, colder ones from durable storage.
//
// # Usage
//
//	c := cache.NewLRUCache[string, []byte](128, cache.WithTTL(time.Minute))
//
//	c.Put("flags", body)
//	if body, ok := c.Get("flags"); ok {
//		// fresh
//	}
//
//	// Per-entry expiry overrides the cache-wide TTL
//	c.PutWithTTL("identity:alice", body, 10*time.Second)
//
// Expired entries are removed lazily when they are read, so Len may include
// entries that already expired but were not touched since.
//
// Time is read from a quartz.Clock, which lets tests move time forward with
// quartz.NewMock instead of sleeping.
package cache
