package pipeline

import (
	"context"
	"fmt"

	"github.com/randalmurphal/feedgraph/pkg/flowgraph"
	"github.com/randalmurphal/feedgraph/pkg/flowgraph/checkpoint"
	"github.com/randalmurphal/feedgraph/pkg/flowgraph/llm"
	"github.com/randalmurphal/feedgraph/pkg/flowgraph/registry"
	"github.com/randalmurphal/feedgraph/pkg/flowgraph/state"
)

// Graph names, recorded in checkpoints.
const (
	GraphNews    = "news"
	GraphWriting = "writing"
)

// Builder compiles a named pipeline. client overrides the run Context's
// model client when non-nil.
type Builder func(cfg Settings, client llm.Client) (*flowgraph.CompiledGraph[state.State], error)

var builders = registry.New[string, Builder]()

func init() {
	builders.Register(GraphNews, func(cfg Settings, client llm.Client) (*flowgraph.CompiledGraph[state.State], error) {
		return NewsGraph(cfg, NewsDeps{Client: client})
	})
	builders.Register(GraphWriting, func(cfg Settings, client llm.Client) (*flowgraph.CompiledGraph[state.State], error) {
		return WritingGraph(cfg, WritingDeps{Client: client})
	})
}

// Build compiles the pipeline registered under name.
func Build(name string, cfg Settings, client llm.Client) (*flowgraph.CompiledGraph[state.State], error) {
	build, err := builders.Lookup(name)
	if err != nil {
		return nil, fmt.Errorf("pipeline %q: %w", name, err)
	}
	return build(cfg, client)
}

// Names lists the registered pipelines.
func Names() []string {
	return registry.SortedKeys(builders)
}

// RunOptions returns the executor options for a run of graph under cfg.
// A nil store disables checkpointing.
func RunOptions(cfg Settings, graph, runID string, store checkpoint.Store) []flowgraph.RunOption {
	opts := []flowgraph.RunOption{
		flowgraph.WithMaxSteps(cfg.MaxSteps),
		flowgraph.WithGraphName(graph),
	}
	if runID != "" {
		opts = append(opts, flowgraph.WithRunID(runID))
	}
	if store != nil {
		opts = append(opts, flowgraph.WithCheckpointing(store))
	}
	return opts
}

// NewClient builds the configured model client with rate limiting and
// retries.
func NewClient(ctx context.Context, cfg Settings) (llm.Client, error) {
	client, err := llm.New(ctx, cfg.LLM)
	if err != nil {
		return nil, err
	}
	// Every attempt, retries included, takes a token.
	if cfg.RateLimit.RequestsPerMinute > 0 {
		client = llm.WithRateLimit(client, llm.NewLimiter(cfg.RateLimit.RequestsPerMinute, cfg.RateLimit.Burst))
	}
	return llm.WithRetry(client, cfg.Retry), nil
}
