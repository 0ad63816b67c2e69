package flowgraph

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/randalmurphal/feedgraph/pkg/flowgraph/checkpoint"
	"github.com/randalmurphal/feedgraph/pkg/flowgraph/observability"
)

func TestWithMaxSteps_Valid(t *testing.T) {
	tests := []struct {
		name  string
		value int
	}{
		{"minimum valid", 1},
		{"default value", DefaultMaxSteps},
		{"review loop budget", 40},
		{"large value", 50000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotPanics(t, func() {
				cfg := defaultRunConfig()
				WithMaxSteps(tt.value)(&cfg)
				assert.Equal(t, tt.value, cfg.maxSteps)
			})
		})
	}
}

func TestWithMaxSteps_PanicsOnNonPositive(t *testing.T) {
	for _, n := range []int{0, -1, -100} {
		assert.PanicsWithValue(t, "flowgraph: max steps must be > 0", func() {
			WithMaxSteps(n)
		})
	}
}

func TestDefaultRunConfig(t *testing.T) {
	cfg := defaultRunConfig()

	assert.Equal(t, 25, DefaultMaxSteps)
	assert.Equal(t, DefaultMaxSteps, cfg.maxSteps)
	assert.Equal(t, "flowgraph", cfg.graphName)
	assert.False(t, cfg.tracingEnabled)
	assert.Nil(t, cfg.checkpointStore)
	assert.IsType(t, observability.NoopMetrics{}, cfg.metrics)
}

func TestRunOptions_Apply(t *testing.T) {
	store := checkpoint.NewMemoryStore()
	logger := slog.Default()

	cfg := defaultRunConfig()
	for _, opt := range []RunOption{
		WithGraphName("news"),
		WithGraphName(""),
		WithCheckpointing(store),
		WithCheckpointFailureFatal(true),
		WithRunID("run-1"),
		WithObservabilityLogger(logger),
		WithTracing(true),
	} {
		opt(&cfg)
	}

	assert.Equal(t, "news", cfg.graphName, "empty name keeps the previous one")
	assert.Same(t, store, cfg.checkpointStore)
	assert.True(t, cfg.checkpointFailureFatal)
	assert.Equal(t, "run-1", cfg.runID)
	assert.Same(t, logger, cfg.logger)
	assert.True(t, cfg.tracingEnabled)

	WithTracing(false)(&cfg)
	assert.False(t, cfg.tracingEnabled)
	assert.IsType(t, observability.NoopSpanManager{}, cfg.spans)

	WithMetrics(false)(&cfg)
	assert.IsType(t, observability.NoopMetrics{}, cfg.metrics)
}
