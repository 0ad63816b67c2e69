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

// captureLogger returns a JSON logger writing to a buffer at debug level.
func captureLogger() (*slog.Logger, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug})), buf
}

func lastRecord(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.NotEmpty(t, lines)
	var m map[string]any
	require.NoError(t, json.Unmarshal(lines[len(lines)-1], &m))
	return m
}

func TestEnrichLogger(t *testing.T) {
	logger, buf := captureLogger()

	EnrichLogger(logger, "run-1", "summarize", 2).Info("working")

	rec := lastRecord(t, buf)
	assert.Equal(t, "run-1", rec["run_id"])
	assert.Equal(t, "summarize", rec["node_id"])
	assert.Equal(t, float64(2), rec["attempt"])
}

func TestEnrichLogger_Nil(t *testing.T) {
	assert.Nil(t, EnrichLogger(nil, "run-1", "node", 1))
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
			name:  "run start",
			log:   func(l *slog.Logger) { LogRunStart(l, "run-1") },
			level: "INFO",
			msg:   "graph run starting",
			attrs: map[string]any{"run_id": "run-1"},
		},
		{
			name:  "run complete",
			log:   func(l *slog.Logger) { LogRunComplete(l, "run-1", 12, 8) },
			level: "INFO",
			msg:   "graph run completed",
			attrs: map[string]any{"nodes_executed": float64(8), "duration_ms": float64(12)},
		},
		{
			name:  "run error",
			log:   func(l *slog.Logger) { LogRunError(l, "run-1", boom, 3, "review") },
			level: "ERROR",
			msg:   "graph run failed",
			attrs: map[string]any{"error": "boom", "last_node": "review"},
		},
		{
			name:  "node start",
			log:   func(l *slog.Logger) { LogNodeStart(l, "fetch") },
			level: "DEBUG",
			msg:   "node starting",
			attrs: map[string]any{"node_id": "fetch"},
		},
		{
			name:  "node complete",
			log:   func(l *slog.Logger) { LogNodeComplete(l, "fetch", 4) },
			level: "DEBUG",
			msg:   "node completed",
			attrs: map[string]any{"node_id": "fetch", "duration_ms": float64(4)},
		},
		{
			name:  "node error",
			log:   func(l *slog.Logger) { LogNodeError(l, "fetch", boom) },
			level: "ERROR",
			msg:   "node failed",
			attrs: map[string]any{"node_id": "fetch", "error": "boom"},
		},
		{
			name:  "checkpoint",
			log:   func(l *slog.Logger) { LogCheckpoint(l, "filter", 512) },
			level: "DEBUG",
			msg:   "checkpoint saved",
			attrs: map[string]any{"size_bytes": float64(512)},
		},
		{
			name:  "checkpoint error",
			log:   func(l *slog.Logger) { LogCheckpointError(l, "filter", "save", boom) },
			level: "WARN",
			msg:   "checkpoint failed",
			attrs: map[string]any{"operation": "save", "error": "boom"},
		},
		{
			name:  "routing fallback",
			log:   func(l *slog.Logger) { LogRoutingFallback(l, "route", "report", boom) },
			level: "WARN",
			msg:   "routing fell back to default",
			attrs: map[string]any{"node_id": "route", "default": "report"},
		},
		{
			name:  "model error",
			log:   func(l *slog.Logger) { LogModelError(l, "summarize", boom) },
			level: "WARN",
			msg:   "model invocation failed, recording error",
			attrs: map[string]any{"node_id": "summarize", "error": "boom"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, buf := captureLogger()
			tt.log(logger)

			rec := lastRecord(t, buf)
			assert.Equal(t, tt.level, rec["level"])
			assert.Equal(t, tt.msg, rec["msg"])
			for k, v := range tt.attrs {
				assert.Equal(t, v, rec[k], k)
			}
		})
	}
}

func TestLogHelpers_NilLogger(t *testing.T) {
	boom := errors.New("boom")
	assert.NotPanics(t, func() {
		LogRunStart(nil, "r")
		LogRunComplete(nil, "r", 1, 1)
		LogRunError(nil, "r", boom, 1, "n")
		LogNodeStart(nil, "n")
		LogNodeComplete(nil, "n", 1)
		LogNodeError(nil, "n", boom)
		LogCheckpoint(nil, "n", 1)
		LogCheckpointError(nil, "n", "save", boom)
		LogRoutingFallback(nil, "n", "d", boom)
		LogModelError(nil, "n", boom)
	})
}
