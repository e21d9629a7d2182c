// Package observability provides structured logging, metrics, and tracing
// for channels and models.
//
// Features:
//   - Structured logging via slog (Go stdlib)
//   - Metrics via OpenTelemetry
//   - Tracing via OpenTelemetry
//
// All features are opt-in and have no-op implementations when disabled.
// Every helper accepts a nil logger and does nothing with it.
package observability

import (
	"log/slog"
	"strings"
	"time"
)

// EnrichLogger adds model identity to a logger.
// Returns a new logger with kind and cid fields.
//
// Example:
//
//	enriched := EnrichLogger(logger, "user", "c12")
//	enriched.Debug("attributes set") // includes kind, cid
func EnrichLogger(logger *slog.Logger, kind, cid string) *slog.Logger {
	if logger == nil {
		return nil
	}
	return logger.With(
		slog.String("kind", kind),
		slog.String("cid", cid),
	)
}

// LogMutation logs a completed outermost mutation.
func LogMutation(logger *slog.Logger, changed []string, aggregates int, durationMs float64) {
	if logger == nil {
		return
	}
	logger.Debug("attributes set",
		slog.String("changed", strings.Join(changed, ",")),
		slog.Int("change_events", aggregates),
		slog.Float64("duration_ms", durationMs),
	)
}

// LogInvalid logs a rejected mutation. Validation failures are expected
// and non-fatal, so they are logged at debug level.
func LogInvalid(logger *slog.Logger, err error) {
	if logger == nil {
		return
	}
	logger.Debug("validation failed",
		slog.String("error", err.Error()),
	)
}

// LogListenFailed logs a subscription that a foreign source refused.
func LogListenFailed(logger *slog.Logger, listenID, names string, err error) {
	if logger == nil {
		return
	}
	logger.Warn("listen failed",
		slog.String("listen_id", listenID),
		slog.String("events", names),
		slog.String("error", err.Error()),
	)
}

// LogListeningCleanup logs the destruction of a listening relationship.
func LogListeningCleanup(logger *slog.Logger, listenID, mode string) {
	if logger == nil {
		return
	}
	logger.Debug("listening released",
		slog.String("listen_id", listenID),
		slog.String("mode", mode),
	)
}

// LogDestroy logs model teardown.
func LogDestroy(logger *slog.Logger, waited bool) {
	if logger == nil {
		return
	}
	logger.Debug("model destroyed",
		slog.Bool("waited", waited),
	)
}

// LogPersistError logs a persistence failure (non-fatal for the model).
func LogPersistError(logger *slog.Logger, op string, err error) {
	if logger == nil {
		return
	}
	logger.Warn("persistence failed",
		slog.String("operation", op),
		slog.String("error", err.Error()),
	)
}

// TimedOperation measures the duration of an operation.
// Returns a function that, when called, returns the elapsed time in milliseconds.
//
// Example:
//
//	done := TimedOperation()
//	// ... do work ...
//	durationMs := done()
func TimedOperation() func() float64 {
	start := time.Now()
	return func() float64 {
		return float64(time.Since(start).Microseconds()) / 1000
	}
}
