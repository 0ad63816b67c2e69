package flowgraph

import (
	"log/slog"

	"github.com/randalmurphal/feedgraph/pkg/flowgraph/checkpoint"
	"github.com/randalmurphal/feedgraph/pkg/flowgraph/observability"
)

// DefaultMaxSteps is the step cap used when WithMaxSteps is not given.
const DefaultMaxSteps = 25

// runConfig holds configuration for graph execution.
type runConfig struct {
	maxSteps  int
	graphName string

	checkpointStore        checkpoint.Store
	checkpointFailureFatal bool
	runID                  string
	sequence               int

	logger         *slog.Logger
	metrics        observability.MetricsRecorder
	spans          observability.SpanManager
	tracingEnabled bool
}

// defaultRunConfig returns the default execution configuration.
func defaultRunConfig() runConfig {
	return runConfig{
		maxSteps:  DefaultMaxSteps,
		graphName: "flowgraph",
		metrics:   observability.NoopMetrics{},
		spans:     observability.NoopSpanManager{},
	}
}

// RunOption configures execution behavior.
type RunOption func(*runConfig)

// WithMaxSteps sets the maximum number of node executions in one run.
// Default: DefaultMaxSteps.
//
// This guards against review/fix loops that never converge. A run that
// exceeds the cap ends with a RecursionLimitError.
//
// Panics if n <= 0.
func WithMaxSteps(n int) RunOption {
	if n <= 0 {
		panic("flowgraph: max steps must be > 0")
	}
	return func(c *runConfig) {
		c.maxSteps = n
	}
}

// WithGraphName names the graph in spans and checkpoints so that a run can
// be matched to its graph when resumed.
func WithGraphName(name string) RunOption {
	return func(c *runConfig) {
		if name != "" {
			c.graphName = name
		}
	}
}

// WithCheckpointing persists state after every node. Requires WithRunID.
func WithCheckpointing(store checkpoint.Store) RunOption {
	return func(c *runConfig) {
		c.checkpointStore = store
	}
}

// WithCheckpointFailureFatal makes checkpoint save failures abort the run.
// By default they are logged and execution continues.
func WithCheckpointFailureFatal(fatal bool) RunOption {
	return func(c *runConfig) {
		c.checkpointFailureFatal = fatal
	}
}

// WithRunID sets the run identifier used for checkpoints and logs.
func WithRunID(id string) RunOption {
	return func(c *runConfig) {
		c.runID = id
	}
}

// WithObservabilityLogger enables run and node lifecycle logging.
func WithObservabilityLogger(logger *slog.Logger) RunOption {
	return func(c *runConfig) {
		c.logger = logger
	}
}

// WithMetrics enables OpenTelemetry metrics through the global meter provider.
func WithMetrics(enabled bool) RunOption {
	return func(c *runConfig) {
		if enabled {
			c.metrics = observability.NewMetricsRecorder()
		} else {
			c.metrics = observability.NoopMetrics{}
		}
	}
}

// WithTracing enables OpenTelemetry spans through the global tracer provider.
func WithTracing(enabled bool) RunOption {
	return func(c *runConfig) {
		c.tracingEnabled = enabled
		if enabled {
			c.spans = observability.NewSpanManager()
		} else {
			c.spans = observability.NoopSpanManager{}
		}
	}
}
