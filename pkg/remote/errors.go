package remote

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	// ErrAPI matches every *APIError.
	ErrAPI = errors.New("flagsmith api error")
	// ErrGeneric matches every *GenericError.
	ErrGeneric = errors.New("flagsmith client error")
	// ErrInvalidArgument reports caller or configuration misuse, e.g. a missing identity.
	ErrInvalidArgument = errors.New("invalid argument")
)

// APIError means the service answered with a non-success status.
type APIError struct {
	Message    string
	StatusCode int
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("flagsmith api error: status %d", e.StatusCode)
	}
	return fmt.Sprintf("flagsmith api error: status %d: %s", e.StatusCode, e.Message)
}

func (e *APIError) Is(target error) bool { return target == ErrAPI }

// GenericError covers transport, decoding and any other unexpected failure.
type GenericError struct {
	Message string
	Err     error
}

func (e *GenericError) Error() string {
	return "flagsmith client error: " + e.Message
}

func (e *GenericError) Unwrap() error { return e.Err }

func (e *GenericError) Is(target error) bool { return target == ErrGeneric }

// HTTPError is the raw non-2xx response seen by the data source before classification.
type HTTPError struct {
	StatusCode int
	Status     string
	Body       []byte
}

func (e *HTTPError) Error() string {
	msg := fmt.Sprintf("unexpected response status %d", e.StatusCode)
	if len(e.Body) > 0 {
		// Single line, bounded, so bodies can't break log output.
		body := strings.ReplaceAll(string(e.Body), "\n", " ")
		if len(body) > 200 {
			body = body[:200] + "..."
		}
		msg += ": " + body
	}
	return msg
}

// Message returns the human readable reason: the status text, without the code.
func (e *HTTPError) Message() string {
	if text, ok := strings.CutPrefix(e.Status, fmt.Sprintf("%d ", e.StatusCode)); ok && text != "" {
		return text
	}
	return http.StatusText(e.StatusCode)
}

// Kind is the closed set of failure classes callers switch on.
type Kind int

const (
	KindNone Kind = iota
	KindAPI
	KindGeneric
	KindInvalidArgument
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindAPI:
		return "api"
	case KindGeneric:
		return "generic"
	case KindInvalidArgument:
		return "invalid_argument"
	default:
		return "unknown"
	}
}

// KindOf classifies err. Anything that is neither an API error nor an
// invalid argument is generic.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrInvalidArgument):
		return KindInvalidArgument
	case errors.Is(err, ErrAPI):
		return KindAPI
	default:
		return KindGeneric
	}
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode
	}
	return 0
}
