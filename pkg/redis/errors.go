package redis

import "errors"

var (
	// ErrEmptyURL means Config.URL was not set.
	ErrEmptyURL = errors.New("redis: url is required")
	// ErrInvalidURL wraps the go-redis parse error.
	ErrInvalidURL = errors.New("redis: invalid url")
	// ErrNotReady means every connection attempt failed.
	ErrNotReady = errors.New("redis: server not ready")
	// ErrUnreachable is returned by Storage.Ping.
	ErrUnreachable = errors.New("redis: server unreachable")
)
