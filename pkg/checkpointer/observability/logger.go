// Package observability provides logging, metrics, and tracing for
// checkpoint operations.
//
// Features:
//   - Structured logging via slog (Go stdlib)
//   - Metrics via OpenTelemetry
//   - Tracing via OpenTelemetry
//
// All features are opt-in and have no-op implementations when disabled.
// Every logging helper accepts a nil logger and does nothing with it.
package observability

import (
	"log/slog"
)

// EnrichLogger adds checkpoint context to a logger.
// Returns a new logger with the slot field.
func EnrichLogger(logger *slog.Logger, slot string) *slog.Logger {
	if logger == nil {
		return nil
	}
	return logger.With(slog.String("slot", slot))
}

// LogSaved logs a successful save.
func LogSaved(logger *slog.Logger, envelopeID string, fragments, sizeBytes int, durationMs float64) {
	if logger == nil {
		return
	}
	logger.Info("checkpoint saved",
		slog.String("envelope_id", envelopeID),
		slog.Int("fragments", fragments),
		slog.Int("size_bytes", sizeBytes),
		slog.Float64("duration_ms", durationMs),
	)
}

// LogLoaded logs a successfully decoded checkpoint.
func LogLoaded(logger *slog.Logger, envelopeID string, fragments int, durationMs float64) {
	if logger == nil {
		return
	}
	logger.Info("checkpoint loaded",
		slog.String("envelope_id", envelopeID),
		slog.Int("fragments", fragments),
		slog.Float64("duration_ms", durationMs),
	)
}

// LogNoCheckpoint logs the cold-start path.
func LogNoCheckpoint(logger *slog.Logger) {
	if logger == nil {
		return
	}
	logger.Info("no checkpoints found")
}

// LogCorrupted logs a checkpoint that could not be decrypted or decoded.
func LogCorrupted(logger *slog.Logger, err error) {
	if logger == nil {
		return
	}
	logger.Error("corrupted checkpoint",
		slog.String("error", err.Error()),
	)
}

// LogReset logs a reset to defaults.
func LogReset(logger *slog.Logger, kinds int, reason string) {
	if logger == nil {
		return
	}
	logger.Info("checkpoint state reset",
		slog.Int("kinds", kinds),
		slog.String("reason", reason),
	)
}

// LogFragmentError logs a failed produce, apply, or reset callback (non-fatal).
func LogFragmentError(logger *slog.Logger, kind, op string, err error) {
	if logger == nil {
		return
	}
	logger.Error("checkpoint fragment failed",
		slog.String("kind", kind),
		slog.String("operation", op),
		slog.String("error", err.Error()),
	)
}

// LogMissingHandler logs a loaded fragment whose kind is not registered.
func LogMissingHandler(logger *slog.Logger, kind string) {
	if logger == nil {
		return
	}
	logger.Warn("no handler found for checkpoint fragment",
		slog.String("kind", kind),
	)
}

// LogStorageError logs a failed storage read or write.
func LogStorageError(logger *slog.Logger, op string, err error) {
	if logger == nil {
		return
	}
	logger.Error("checkpoint storage failed",
		slog.String("operation", op),
		slog.String("error", err.Error()),
	)
}
