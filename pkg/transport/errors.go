package transport

import "errors"

var (
	// ErrCircuitOpen is returned without contacting the server while the breaker is open.
	ErrCircuitOpen = errors.New("flagsmith circuit breaker is open")
	// ErrBodyNotReplayable means a request with a body lacks GetBody and cannot be retried.
	ErrBodyNotReplayable = errors.New("request body cannot be replayed")
	// ErrCacheRecord is returned when a stored response cannot be decoded.
	ErrCacheRecord = errors.New("invalid cached response record")
)

// IsCircuitOpen reports whether err came from an open circuit breaker.
func IsCircuitOpen(err error) bool {
	return errors.Is(err, ErrCircuitOpen)
}
