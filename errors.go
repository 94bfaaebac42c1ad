package flagsmith

import (
	"errors"

	"github.com/dmitrymomot/flagsmith/pkg/remote"
)

var (
	// ErrInvalidArgument reports caller or configuration misuse. Never recovered.
	ErrInvalidArgument = remote.ErrInvalidArgument
	// ErrAPI matches every *APIError.
	ErrAPI = remote.ErrAPI
	// ErrGeneric matches every *GenericError.
	ErrGeneric = remote.ErrGeneric

	ErrTraitNotFound     = errors.New("trait not found")
	ErrAnalyticsDisabled = errors.New("analytics is disabled")
)

type (
	// APIError means the service answered with a non-success status.
	APIError = remote.APIError
	// GenericError covers transport, decoding and unexpected failures.
	GenericError = remote.GenericError
	// Kind is the class of an error returned by the client.
	Kind = remote.Kind
)

const (
	KindNone            = remote.KindNone
	KindAPI             = remote.KindAPI
	KindGeneric         = remote.KindGeneric
	KindInvalidArgument = remote.KindInvalidArgument
)

// KindOf classifies an error returned by the client.
func KindOf(err error) Kind { return remote.KindOf(err) }
