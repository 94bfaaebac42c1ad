// Package requestid correlates client calls with the Flagsmith API.
//
// Every outgoing request carries an X-Request-ID header. When the caller's
// context already holds an ID (set with WithContext, typically by the caller's
// own HTTP middleware) that ID is forwarded; otherwise Ensure generates a UUID.
// The same ID shows up in client log records through LoggerExtractor:
//
//	log := logger.New(logger.WithContextExtractors(requestid.LoggerExtractor()))
//	ctx := requestid.WithContext(ctx, "checkout-42")
//	on, err := client.GetFeatureFlag(ctx, "new_checkout", userID)
//
// IDs that are empty, longer than 128 characters or contain anything besides
// letters, digits, '-' and '_' are replaced rather than forwarded.
//
// Middleware does the server half and is used by the in-process fake API.
package requestid
