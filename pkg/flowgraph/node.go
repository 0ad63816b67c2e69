package flowgraph

// END is the terminal node identifier.
// Use this as an edge target to indicate the graph should terminate.
const END = "__end__"

// NodeKind classifies what a node does. It is used for logging and metrics
// only; the executor treats all kinds the same way.
type NodeKind string

// Node kinds.
const (
	// KindTool is a node that transforms state without invoking a model.
	KindTool NodeKind = "tool"
	// KindAgent is a node that renders a prompt and invokes a language model.
	KindAgent NodeKind = "agent"
)

// NodeFunc is the signature for all node functions.
// Nodes receive the execution context and current state and return either
// the new state or, when the graph has a reducer, a partial update that the
// executor merges into the current state.
//
// The state parameter is passed by value. Nodes should return a new value,
// not rely on pointer mutation.
//
// Example:
//
//	func increment(ctx flowgraph.Context, s Counter) (Counter, error) {
//	    s.Value++
//	    return s, nil
//	}
type NodeFunc[S any] func(ctx Context, state S) (S, error)

// RouterFunc determines the next node based on state.
// It is used for conditional edges where the next node depends on runtime state.
//
// The router returns a node ID, END, or an empty string. An empty string
// means "no decision" and selects the edge's default successor.
//
// Example:
//
//	func router(ctx flowgraph.Context, s State) string {
//	    if s.Done {
//	        return flowgraph.END
//	    }
//	    return "process"
//	}
type RouterFunc[S any] func(ctx Context, state S) string

// ReducerFunc merges a node's partial update into the current state.
// Without a reducer the value returned by a node replaces the state.
type ReducerFunc[S any] func(current, update S) S

// ErrorRecorder is implemented by state types that can carry an error
// field. When a run aborts, the executor records the error on the partial
// state it returns.
type ErrorRecorder[S any] interface {
	WithError(err error) S
}

// NodeOption configures a node when it is added to a graph.
type NodeOption func(*nodeSpec)

type nodeSpec struct {
	kind NodeKind
}

// WithKind sets the node kind. Nodes default to KindTool.
func WithKind(kind NodeKind) NodeOption {
	return func(n *nodeSpec) {
		n.kind = kind
	}
}
