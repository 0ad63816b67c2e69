package flowgraph

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/randalmurphal/feedgraph/pkg/flowgraph/checkpoint"
	"github.com/randalmurphal/feedgraph/pkg/flowgraph/observability"
)

// Run executes the graph with the given initial state.
// Returns the final state and any error encountered.
//
// On success, returns the state after the finish node (or the last node
// before END). On error, returns the state at the point of failure; when
// S implements ErrorRecorder the error is recorded on it.
//
// Execution flow:
//  1. Start at the entry point node
//  2. Check the step cap and cancellation
//  3. Execute the current node and merge its update
//  4. Stop if it was the finish node
//  5. Determine the next node (via simple or conditional edge)
//  6. Repeat until END is reached or an error occurs
//
// Example:
//
//	ctx := flowgraph.NewContext(context.Background())
//	result, err := compiled.Run(ctx, initialState, flowgraph.WithMaxSteps(40))
func (cg *CompiledGraph[S]) Run(ctx Context, state S, opts ...RunOption) (result S, runErr error) {
	if ctx == nil {
		return state, ErrNilContext
	}

	cfg := defaultRunConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	if cfg.checkpointStore != nil && cfg.runID == "" {
		return state, ErrRunIDRequired
	}

	return cg.runFrom(ctx, state, cg.entryPoint, &cfg)
}

// runFrom executes the graph starting from a specific node with run-level
// logging, metrics and tracing. Used by Run and Resume.
func (cg *CompiledGraph[S]) runFrom(ctx Context, state S, startNode string, cfg *runConfig) (result S, runErr error) {
	runID := cfg.runID
	if runID == "" {
		runID = ctx.RunID()
	} else if ec, ok := ctx.(*executionContext); ok && ec.runID != runID {
		withRun := *ec
		withRun.runID = runID
		ctx = &withRun
	}

	startTime := time.Now()
	observability.LogRunStart(cfg.logger, runID)

	var tracingCtx context.Context = ctx
	if cfg.tracingEnabled {
		var runSpan trace.Span
		tracingCtx, runSpan = cfg.spans.StartRunSpan(ctx, cfg.graphName, runID)
		defer func() {
			cfg.spans.EndSpanWithError(runSpan, runErr)
		}()
	}

	var nodeCount int
	result, nodeCount, runErr = cg.execute(tracingCtx, ctx, state, startNode, cfg)

	duration := time.Since(startTime)
	cfg.metrics.RecordGraphRun(ctx, runErr == nil, duration)

	if runErr != nil {
		result, runErr = recordAbort(result, runErr)
		observability.LogRunError(cfg.logger, runID, runErr, float64(duration.Milliseconds()), lastNodeOf(runErr))
	} else {
		observability.LogRunComplete(cfg.logger, runID, float64(duration.Milliseconds()), nodeCount)
	}

	return result, runErr
}

// execute is the node loop. tracingCtx carries span context; fgCtx is the
// flowgraph Context. Returns the final state, node count, and any error.
func (cg *CompiledGraph[S]) execute(tracingCtx context.Context, fgCtx Context, state S, startNode string, cfg *runConfig) (S, int, error) {
	current := startNode
	prevNode := ""
	steps := 0

	for current != END {
		steps++
		if steps > cfg.maxSteps {
			return state, steps - 1, &RecursionLimitError{
				Max:        cfg.maxSteps,
				LastNodeID: current,
				State:      state,
			}
		}

		if err := fgCtx.Err(); err != nil {
			return state, steps - 1, &CancellationError{
				NodeID: current,
				State:  state,
				Cause:  err,
			}
		}

		observability.LogNodeStart(cfg.logger, current)

		nodeTracingCtx := tracingCtx
		var nodeSpan trace.Span
		if cfg.tracingEnabled {
			nodeTracingCtx, nodeSpan = cfg.spans.StartNodeSpan(tracingCtx, current)
			nodeSpan.SetAttributes(attribute.String("node.kind", string(cg.kinds[current])))
		}

		nodeStart := time.Now()
		update, nodeErr := cg.executeNode(withTracing(fgCtx, nodeTracingCtx), current, state)
		nodeDuration := time.Since(nodeStart)

		if nodeErr != nil && fgCtx.Err() != nil {
			nodeErr = &CancellationError{
				NodeID:       current,
				State:        state,
				Cause:        fgCtx.Err(),
				WasExecuting: true,
			}
		}

		cfg.metrics.RecordNodeExecution(nodeTracingCtx, current, nodeDuration, nodeErr)
		if cfg.tracingEnabled {
			cfg.spans.EndSpanWithError(nodeSpan, nodeErr)
		}

		if nodeErr != nil {
			observability.LogNodeError(cfg.logger, current, nodeErr)
			return state, steps - 1, nodeErr
		}
		observability.LogNodeComplete(cfg.logger, current, float64(nodeDuration.Milliseconds()))

		if cg.reducer != nil {
			state = cg.reducer(state, update)
		} else {
			state = update
		}

		next := END
		if current != cg.finishPoint {
			var err error
			next, err = cg.nextNode(fgCtx, tracingCtx, state, current, cfg)
			if err != nil {
				return state, steps, err
			}
		}

		if cfg.checkpointStore != nil {
			if err := cg.saveCheckpoint(fgCtx, cfg, current, prevNode, state, next); err != nil {
				return state, steps, err
			}
		}

		prevNode = current
		current = next
	}

	return state, steps, nil
}

// saveCheckpoint persists the state after a node together with the next node.
// Failures are logged unless WithCheckpointFailureFatal was given.
func (cg *CompiledGraph[S]) saveCheckpoint(ctx Context, cfg *runConfig, nodeID, prevNodeID string, state S, nextNode string) error {
	fail := func(op string, err error) error {
		if cfg.checkpointFailureFatal {
			return &CheckpointError{NodeID: nodeID, Op: op, Err: err}
		}
		observability.LogCheckpointError(cfg.logger, nodeID, op, err)
		return nil
	}

	stateBytes, err := json.Marshal(state)
	if err != nil {
		return fail("serialize", err)
	}

	cfg.sequence++
	cp := checkpoint.New(cfg.runID, nodeID, cfg.sequence, stateBytes, nextNode).
		WithGraph(cfg.graphName).
		WithPrevNode(prevNodeID).
		WithAttempt(ctx.Attempt())

	data, err := cp.Marshal()
	if err != nil {
		return fail("marshal", err)
	}

	if err := cfg.checkpointStore.Save(ctx, cfg.runID, nodeID, data); err != nil {
		return fail("save", err)
	}

	observability.LogCheckpoint(cfg.logger, nodeID, len(data))
	cfg.metrics.RecordCheckpoint(ctx, nodeID, int64(len(data)))

	return nil
}

// executeNode executes a single node with panic recovery.
// Returns the node's output (a full state or a partial update).
func (cg *CompiledGraph[S]) executeNode(ctx Context, nodeID string, state S) (result S, err error) {
	fn, exists := cg.nodes[nodeID]
	if !exists {
		return state, &NodeError{
			NodeID: nodeID,
			Op:     "lookup",
			Err:    fmt.Errorf("%w: %s", ErrNodeNotFound, nodeID),
		}
	}

	nodeCtx := ctx
	if ec, ok := ctx.(*executionContext); ok {
		nodeCtx = ec.withNodeID(nodeID)
	}

	defer func() {
		if r := recover(); r != nil {
			result = state
			err = &PanicError{
				NodeID: nodeID,
				Value:  r,
				Stack:  string(debug.Stack()),
			}
		}
	}()

	result, err = fn(nodeCtx, state)
	if err != nil {
		return state, &NodeError{
			NodeID: nodeID,
			Kind:   cg.kinds[nodeID],
			Op:     "execute",
			Err:    err,
		}
	}

	return result, nil
}

// nextNode determines the next node to execute.
// Checks conditional edges first, then simple edges.
func (cg *CompiledGraph[S]) nextNode(ctx Context, tracingCtx context.Context, state S, current string, cfg *runConfig) (string, error) {
	edge, conditional := cg.conditionalEdges[current]
	if !conditional {
		edges := cg.edges[current]
		if len(edges) == 0 {
			return "", &NodeError{
				NodeID: current,
				Kind:   cg.kinds[current],
				Op:     "routing",
				Err:    fmt.Errorf("%w: %s", ErrNoOutgoingEdge, current),
			}
		}
		// Only the first simple edge is followed.
		return edges[0], nil
	}

	routerCtx := ctx
	if ec, ok := ctx.(*executionContext); ok {
		routerCtx = ec.withNodeID(current)
	}

	decision := edge.router(routerCtx, state)

	var routeErr *RoutingError
	switch {
	case decision == "":
		routeErr = &RoutingError{FromNode: current, Returned: decision, Err: ErrEmptyRoute}
	case !cg.isRouteTarget(edge, decision):
		routeErr = &RoutingError{FromNode: current, Returned: decision, Err: ErrRouteTargetUnknown}
	default:
		return decision, nil
	}

	if edge.fallback == "" {
		return "", routeErr
	}

	// An empty decision is the normal way to ask for the default.
	if decision != "" {
		observability.LogRoutingFallback(cfg.logger, current, edge.fallback, routeErr)
		cfg.metrics.RecordRoutingFallback(tracingCtx, current, decision)
		cfg.spans.AddSpanEvent(tracingCtx, "flowgraph.routing.fallback",
			attribute.String("node.id", current),
			attribute.String("route.returned", decision),
			attribute.String("route.default", edge.fallback),
		)
	}
	return edge.fallback, nil
}

// isRouteTarget reports whether a router decision can be followed.
func (cg *CompiledGraph[S]) isRouteTarget(edge *conditionalEdge[S], decision string) bool {
	if edge.targets != nil && !edge.targets[decision] {
		return false
	}
	if decision == END {
		return true
	}
	_, exists := cg.nodes[decision]
	return exists
}

// withTracing hands span context to the node while keeping the flowgraph
// services of fgCtx.
func withTracing(fgCtx Context, tracingCtx context.Context) Context {
	ec, ok := fgCtx.(*executionContext)
	if !ok || tracingCtx == context.Context(fgCtx) {
		return fgCtx
	}
	return ec.withStdContext(tracingCtx)
}

// recordAbort attaches err to the partial state when S supports it.
func recordAbort[S any](state S, err error) (S, error) {
	recorder, ok := any(state).(ErrorRecorder[S])
	if !ok {
		return state, err
	}
	state = recorder.WithError(err)

	var limitErr *RecursionLimitError
	if errors.As(err, &limitErr) {
		limitErr.State = state
	}
	var cancelErr *CancellationError
	if errors.As(err, &cancelErr) {
		cancelErr.State = state
	}
	return state, err
}

// lastNodeOf extracts the failing node from a run error.
func lastNodeOf(err error) string {
	var nodeErr *NodeError
	var panicErr *PanicError
	var limitErr *RecursionLimitError
	var cancelErr *CancellationError
	var routeErr *RoutingError
	switch {
	case errors.As(err, &nodeErr):
		return nodeErr.NodeID
	case errors.As(err, &panicErr):
		return panicErr.NodeID
	case errors.As(err, &limitErr):
		return limitErr.LastNodeID
	case errors.As(err, &cancelErr):
		return cancelErr.NodeID
	case errors.As(err, &routeErr):
		return routeErr.FromNode
	}
	return ""
}
