// Package remote talks to the Flagsmith REST API.
//
// DataSource exposes the four calls the client needs:
//
//	GET  identities/?identity={id}  -> GetIdentityFlagsAndTraits
//	GET  flags/                     -> GetFlags
//	POST traits/                    -> PostTraits
//	POST analytics/flags/           -> PostAnalytics
//
// Every request carries the X-Environment-Key header and a fresh X-Request-ID
// which also appears in debug logs.
//
// # Errors
//
// Failures leave the package classified. A non-2xx response is first an
// *HTTPError, then the ErrorHandler turns it into an *APIError; anything else
// (network, timeout, decoding) becomes a *GenericError wrapping the cause.
// Missing arguments are reported with ErrInvalidArgument before any request is
// made. KindOf collapses an error to a Kind for exhaustive switches:
//
//	switch remote.KindOf(err) {
//	case remote.KindNone:
//	case remote.KindAPI, remote.KindGeneric:
//		// serve defaults
//	case remote.KindInvalidArgument:
//		return err
//	}
//
// The data source never retries. Retry, caching and circuit breaking are
// http.RoundTripper decorators, see package transport.
package remote
