package transport

import (
	"net/http"
	"sync"
	"time"

	"github.com/coder/quartz"
)

// CircuitState is the current state of a CircuitBreaker.
type CircuitState int

const (
	// CircuitClosed lets requests through.
	CircuitClosed CircuitState = iota
	// CircuitOpen rejects requests until the recovery timeout passes.
	CircuitOpen
	// CircuitHalfOpen lets requests through to probe recovery.
	CircuitHalfOpen
)

func (s CircuitState) String() string {
	switch s {
	case CircuitClosed:
		return "closed"
	case CircuitOpen:
		return "open"
	case CircuitHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// CircuitBreaker stops calling an API that keeps failing. Safe for concurrent use.
type CircuitBreaker struct {
	mu    sync.Mutex
	clock quartz.Clock

	failureThreshold int
	successThreshold int
	recoveryTimeout  time.Duration

	state           CircuitState
	failures        int
	successes       int
	lastFailureTime time.Time
}

// NewCircuitBreaker opens after failureThreshold consecutive failures, probes after
// recoveryTimeout, and closes after successThreshold probe successes.
// Non-positive values select 5, 2 and 30s. A nil clock selects the real clock.
func NewCircuitBreaker(failureThreshold, successThreshold int, recoveryTimeout time.Duration, clock quartz.Clock) *CircuitBreaker {
	if failureThreshold <= 0 {
		failureThreshold = 5
	}
	if successThreshold <= 0 {
		successThreshold = 2
	}
	if recoveryTimeout <= 0 {
		recoveryTimeout = 30 * time.Second
	}
	if clock == nil {
		clock = quartz.NewReal()
	}
	return &CircuitBreaker{
		clock:            clock,
		failureThreshold: failureThreshold,
		successThreshold: successThreshold,
		recoveryTimeout:  recoveryTimeout,
		state:            CircuitClosed,
	}
}

// Allow reports whether a request may proceed, moving open to half-open
// once the recovery timeout has elapsed.
func (cb *CircuitBreaker) Allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case CircuitClosed, CircuitHalfOpen:
		return true
	case CircuitOpen:
		if cb.clock.Since(cb.lastFailureTime) >= cb.recoveryTimeout {
			cb.state = CircuitHalfOpen
			cb.successes = 0
			return true
		}
		return false
	default:
		return false
	}
}

func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case CircuitClosed:
		cb.failures = 0
	case CircuitHalfOpen:
		cb.successes++
		if cb.successes >= cb.successThreshold {
			cb.state = CircuitClosed
			cb.failures = 0
			cb.successes = 0
		}
	}
}

func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.lastFailureTime = cb.clock.Now()

	switch cb.state {
	case CircuitClosed:
		cb.failures++
		if cb.failures >= cb.failureThreshold {
			cb.state = CircuitOpen
		}
	case CircuitHalfOpen:
		cb.state = CircuitOpen
		cb.failures = cb.failureThreshold
		cb.successes = 0
	}
}

// State returns the state Allow would observe.
func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == CircuitOpen && cb.clock.Since(cb.lastFailureTime) >= cb.recoveryTimeout {
		return CircuitHalfOpen
	}
	return cb.state
}

// Reset closes the breaker and forgets all failures.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.state = CircuitClosed
	cb.failures = 0
	cb.successes = 0
	cb.lastFailureTime = time.Time{}
}

// BreakerTransport guards an http.RoundTripper with a CircuitBreaker.
// Transport errors and 5xx responses count as failures; everything else,
// 4xx included, counts as success since the API answered.
type BreakerTransport struct {
	next    http.RoundTripper
	breaker *CircuitBreaker
}

// NewBreakerTransport wraps next. A nil next selects http.DefaultTransport.
func NewBreakerTransport(next http.RoundTripper, cb *CircuitBreaker) *BreakerTransport {
	if next == nil {
		next = http.DefaultTransport
	}
	if cb == nil {
		cb = NewCircuitBreaker(0, 0, 0, nil)
	}
	return &BreakerTransport{next: next, breaker: cb}
}

// Breaker exposes the underlying breaker.
func (t *BreakerTransport) Breaker() *CircuitBreaker { return t.breaker }

func (t *BreakerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if !t.breaker.Allow() {
		drainRequest(req)
		return nil, ErrCircuitOpen
	}

	resp, err := t.next.RoundTrip(req)
	if err != nil || resp.StatusCode >= http.StatusInternalServerError {
		t.breaker.RecordFailure()
	} else {
		t.breaker.RecordSuccess()
	}
	return resp, err
}

// drainRequest closes the body of a request that will never be sent,
// as http.RoundTripper requires.
func drainRequest(req *http.Request) {
	if req.Body != nil {
		_ = req.Body.Close()
	}
}
