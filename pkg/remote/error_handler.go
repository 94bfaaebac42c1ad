package remote

import (
	"context"
	"errors"
	"log/slog"

	"github.com/dmitrymomot/flagsmith/pkg/logger"
)

// ErrorHandler turns a raw failure into one of the classified errors.
type ErrorHandler interface {
	Handle(ctx context.Context, err error) error
}

// ErrorHandlerFunc adapts a function to ErrorHandler.
type ErrorHandlerFunc func(ctx context.Context, err error) error

func (f ErrorHandlerFunc) Handle(ctx context.Context, err error) error { return f(ctx, err) }

// DefaultErrorHandler logs the raw failure at Info and classifies it.
type DefaultErrorHandler struct {
	logger *slog.Logger
}

// NewDefaultErrorHandler returns the handler used when none is configured.
// A nil logger falls back to slog.Default().
func NewDefaultErrorHandler(log *slog.Logger) *DefaultErrorHandler {
	if log == nil {
		log = slog.Default()
	}
	return &DefaultErrorHandler{logger: log}
}

func (h *DefaultErrorHandler) Handle(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	h.logger.InfoContext(ctx, "flagsmith request failed", logger.Error(err), logger.StatusCode(StatusCode(err)))
	return Classify(err)
}

// Classify maps err onto the error taxonomy without logging.
// Errors that are already classified pass through unchanged.
func Classify(err error) error {
	if err == nil {
		return nil
	}

	var (
		apiErr  *APIError
		genErr  *GenericError
		httpErr *HTTPError
	)
	switch {
	case errors.Is(err, ErrInvalidArgument):
		return err
	case errors.As(err, &apiErr), errors.As(err, &genErr):
		return err
	case errors.As(err, &httpErr):
		return &APIError{Message: httpErr.Message(), StatusCode: httpErr.StatusCode}
	default:
		return &GenericError{Message: err.Error(), Err: err}
	}
}
