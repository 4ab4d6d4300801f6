package observability

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// captureLogger returns a JSON logger and a function that decodes what it wrote.
func captureLogger() (*slog.Logger, func() []map[string]any) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return logger, func() []map[string]any {
		var records []map[string]any
		for _, line := range bytes.Split(buf.Bytes(), []byte("\n")) {
			if len(line) == 0 {
				continue
			}
			var m map[string]any
			if err := json.Unmarshal(line, &m); err == nil {
				records = append(records, m)
			}
		}
		return records
	}
}

func lastRecord(t *testing.T, records func() []map[string]any) map[string]any {
	t.Helper()
	all := records()
	require.NotEmpty(t, all)
	return all[len(all)-1]
}

func TestEnrichLogger(t *testing.T) {
	t.Run("adds slot", func(t *testing.T) {
		logger, records := captureLogger()
		EnrichLogger(logger, "latest").Info("test message")

		record := lastRecord(t, records)
		assert.Equal(t, "latest", record["slot"])
		assert.Equal(t, "test message", record["msg"])
	})

	t.Run("nil logger returns nil", func(t *testing.T) {
		assert.Nil(t, EnrichLogger(nil, "latest"))
	})
}

func TestLogHelpers(t *testing.T) {
	boom := errors.New("boom")

	tests := []struct {
		name  string
		log   func(*slog.Logger)
		level string
		msg   string
		attrs map[string]any
	}{
		{
			name:  "saved",
			log:   func(l *slog.Logger) { LogSaved(l, "env-1", 3, 120, 1.5) },
			level: "INFO",
			msg:   "checkpoint saved",
			attrs: map[string]any{"envelope_id": "env-1", "fragments": float64(3), "size_bytes": float64(120)},
		},
		{
			name:  "loaded",
			log:   func(l *slog.Logger) { LogLoaded(l, "env-2", 2, 0.5) },
			level: "INFO",
			msg:   "checkpoint loaded",
			attrs: map[string]any{"envelope_id": "env-2", "fragments": float64(2)},
		},
		{
			name:  "no checkpoint",
			log:   LogNoCheckpoint,
			level: "INFO",
			msg:   "no checkpoints found",
		},
		{
			name:  "corrupted",
			log:   func(l *slog.Logger) { LogCorrupted(l, boom) },
			level: "ERROR",
			msg:   "corrupted checkpoint",
			attrs: map[string]any{"error": "boom"},
		},
		{
			name:  "reset",
			log:   func(l *slog.Logger) { LogReset(l, 4, "cold start") },
			level: "INFO",
			msg:   "checkpoint state reset",
			attrs: map[string]any{"kinds": float64(4), "reason": "cold start"},
		},
		{
			name:  "fragment error",
			log:   func(l *slog.Logger) { LogFragmentError(l, "Inventory", "produce", boom) },
			level: "ERROR",
			msg:   "checkpoint fragment failed",
			attrs: map[string]any{"kind": "Inventory", "operation": "produce", "error": "boom"},
		},
		{
			name:  "missing handler",
			log:   func(l *slog.Logger) { LogMissingHandler(l, "Removed") },
			level: "WARN",
			msg:   "no handler found for checkpoint fragment",
			attrs: map[string]any{"kind": "Removed"},
		},
		{
			name:  "storage error",
			log:   func(l *slog.Logger) { LogStorageError(l, "write", boom) },
			level: "ERROR",
			msg:   "checkpoint storage failed",
			attrs: map[string]any{"operation": "write", "error": "boom"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, records := captureLogger()
			tt.log(logger)

			record := lastRecord(t, records)
			assert.Equal(t, tt.level, record["level"])
			assert.Equal(t, tt.msg, record["msg"])
			for k, v := range tt.attrs {
				assert.Equal(t, v, record[k], k)
			}
		})

		t.Run(tt.name+"/nil logger", func(t *testing.T) {
			assert.NotPanics(t, func() { tt.log(nil) })
		})
	}
}
