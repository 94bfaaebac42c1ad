package transport

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/coder/quartz"

	"github.com/dmitrymomot/flagsmith/pkg/logger"
)

// RetryTransport re-sends requests that failed with a transport error or a
// retryable status. Requests whose body cannot be replayed are sent once.
type RetryTransport struct {
	next       http.RoundTripper
	maxRetries int
	backoff    BackoffStrategy
	clock      quartz.Clock
	logger     *slog.Logger
}

// RetryOption configures a RetryTransport.
type RetryOption func(*RetryTransport)

// WithMaxRetries sets how many times a request is re-sent after the first attempt.
func WithMaxRetries(n int) RetryOption {
	return func(t *RetryTransport) {
		if n >= 0 {
			t.maxRetries = n
		}
	}
}

func WithBackoff(b BackoffStrategy) RetryOption {
	return func(t *RetryTransport) {
		if b != nil {
			t.backoff = b
		}
	}
}

// WithRetryClock sets the clock used to wait between attempts.
func WithRetryClock(c quartz.Clock) RetryOption {
	return func(t *RetryTransport) {
		if c != nil {
			t.clock = c
		}
	}
}

func WithRetryLogger(l *slog.Logger) RetryOption {
	return func(t *RetryTransport) {
		if l != nil {
			t.logger = l
		}
	}
}

// NewRetryTransport wraps next. Defaults: 3 retries, DefaultBackoffStrategy.
// A nil next selects http.DefaultTransport.
func NewRetryTransport(next http.RoundTripper, opts ...RetryOption) *RetryTransport {
	if next == nil {
		next = http.DefaultTransport
	}
	t := &RetryTransport{
		next:       next,
		maxRetries: 3,
		backoff:    DefaultBackoffStrategy(),
		clock:      quartz.NewReal(),
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *RetryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	replayable := req.Body == nil || req.Body == http.NoBody || req.GetBody != nil

	for attempt := 0; ; attempt++ {
		if attempt > 0 {
			if err := t.wait(ctx, attempt); err != nil {
				return nil, err
			}
		}

		attemptReq, err := rewind(req, attempt)
		if err != nil {
			return nil, err
		}

		resp, err := t.next.RoundTrip(attemptReq)
		last := attempt >= t.maxRetries || !replayable
		if last || !shouldRetry(ctx, resp, err) {
			return resp, err
		}

		t.logger.DebugContext(ctx, "retrying flagsmith request",
			logger.Attempt(attempt+1),
			slog.String("path", req.URL.Path),
			logger.Error(err),
			logger.StatusCode(statusOf(resp)),
		)
		if resp != nil {
			_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
			_ = resp.Body.Close()
		}
	}
}

func (t *RetryTransport) wait(ctx context.Context, attempt int) error {
	timer := t.clock.NewTimer(t.backoff.NextInterval(attempt), "transport", "retry")
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// rewind returns the request for the given attempt with a fresh body.
func rewind(req *http.Request, attempt int) (*http.Request, error) {
	if attempt == 0 || req.GetBody == nil {
		return req, nil
	}
	body, err := req.GetBody()
	if err != nil {
		return nil, err
	}
	clone := req.Clone(req.Context())
	clone.Body = body
	return clone, nil
}

// shouldRetry treats transport errors, 5xx and throttling statuses as temporary.
// Other 4xx codes are client mistakes that will not change on retry.
func shouldRetry(ctx context.Context, resp *http.Response, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	if err != nil {
		return !IsCircuitOpen(err)
	}
	return isRetryableStatus(resp.StatusCode)
}

func isRetryableStatus(code int) bool {
	switch code {
	case http.StatusRequestTimeout, http.StatusTooEarly, http.StatusTooManyRequests:
		return true
	}
	return code >= http.StatusInternalServerError
}

func statusOf(resp *http.Response) int {
	if resp == nil {
		return 0
	}
	return resp.StatusCode
}
