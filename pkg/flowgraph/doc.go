/*
Package flowgraph runs state-driven workflow graphs of tool and agent steps.

# Overview

A graph is a set of named nodes joined by edges. Each node receives the
current state and returns a new state or, when the graph has a reducer, a
partial update that is merged into the current state. Edges are static
successors or conditional edges whose router inspects the state after the
node has run and names the next node.

Nodes execute one at a time. A run owns its state; a CompiledGraph is
immutable and can serve many runs at once.

# Basic Usage

	graph := flowgraph.NewGraph[state.State]().
	    SetReducer(state.Merge).
	    AddNode("fetch", fetch).
	    AddNode("summarize", summarize, flowgraph.WithKind(flowgraph.KindAgent)).
	    AddEdge("fetch", "summarize").
	    SetEntry("fetch").
	    SetFinish("summarize")

	compiled, err := graph.Compile()
	if err != nil {
	    return err
	}

	ctx := flowgraph.NewContext(context.Background(), flowgraph.WithLLM(client))
	result, err := compiled.Run(ctx, state.New(seed), flowgraph.WithMaxSteps(40))

# Conditional Routing

A conditional edge may enumerate its targets and name a default successor:

	graph.AddConditionalEdge("route", router,
	    flowgraph.WithTargets("planner", "fetch", "filter", "summarize", "report"),
	    flowgraph.WithDefault("report"))

A router that returns "" selects the default. A router that returns a name
outside its targets produces a RoutingError; with a default the error is
logged and the default is used, otherwise the run ends with it.

# Termination

The run ends successfully when the finish node (SetFinish) has executed or
an edge reaches END. Routing loops are bounded by WithMaxSteps
(DefaultMaxSteps when unset); exceeding the cap ends the run with a
RecursionLimitError carrying the partial state.

When the state type implements ErrorRecorder, the state returned with any
run error has the error recorded on it.

# Errors

	*NodeError            a node returned an error
	*PanicError           a node panicked; includes the stack
	*CancellationError    the context was cancelled before or during a node
	*RoutingError         a routing decision could not be followed
	*RecursionLimitError  the step cap was exceeded
	*CheckpointError      a checkpoint could not be saved (only when fatal)

# Checkpointing

With WithCheckpointing and WithRunID, the state is saved after every node
together with the node that runs next. Resume continues a run from its
latest checkpoint; ResumeFrom picks a specific one.

	store, _ := checkpoint.NewSQLiteStore("runs.db")
	result, err := compiled.Run(ctx, st,
	    flowgraph.WithCheckpointing(store),
	    flowgraph.WithRunID(runID))

	// after a crash
	result, err = compiled.Resume(ctx, store, runID)

# Observability

WithObservabilityLogger logs run and node lifecycle events. WithMetrics and
WithTracing emit OpenTelemetry metrics and spans through the global
providers. Nodes get a logger enriched with run_id, node_id and attempt
from ctx.Logger().
*/
package flowgraph
