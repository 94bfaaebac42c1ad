// Package logger builds the slog.Logger used throughout the Flagsmith client.
//
// New creates a *slog.Logger configured by functional options: output format
// (text or json), minimum level, output writer, static attributes, and
// ContextExtractor callbacks that inject attributes pulled from the context on
// every record (see requestid.LoggerExtractor).
//
// The defaults suit a library embedded in someone else's process: text format,
// WARN level, written to stderr. Discard returns a logger that drops everything.
//
// # Usage
//
//	log := logger.New(
//		logger.WithLevel(slog.LevelDebug),
//		logger.WithFormat(logger.FormatJSON),
//		logger.WithAttr(logger.Component("flagsmith")),
//	)
//
//	log.WarnContext(ctx, "flag fetch failed, serving defaults",
//		logger.Feature("new_button"),
//		logger.Identity("user123"),
//		logger.Error(err),
//	)
//
// Attribute helpers return an empty slog.Attr for zero inputs (nil error,
// empty identity, zero status code), which slog omits from output.
package logger
