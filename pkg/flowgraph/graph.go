package flowgraph

import (
	"fmt"
	"strings"
	"sync"
)

// Graph is a mutable builder for creating execution graphs.
// Use NewGraph to create a new graph, then chain AddNode, AddEdge,
// AddConditionalEdge, SetEntry and SetFinish calls to define the workflow.
//
// Graph is NOT thread-safe during building. Use a single goroutine
// to construct the graph, then call Compile() to create an immutable
// CompiledGraph that can be safely shared.
//
// Example:
//
//	graph := flowgraph.NewGraph[MyState]().
//	    AddNode("fetch", fetchNode).
//	    AddNode("process", processNode).
//	    AddEdge("fetch", "process").
//	    SetEntry("fetch").
//	    SetFinish("process")
//
//	compiled, err := graph.Compile()
type Graph[S any] struct {
	mu               sync.RWMutex
	nodes            map[string]NodeFunc[S]
	kinds            map[string]NodeKind
	edges            map[string][]string
	conditionalEdges map[string]*conditionalEdge[S]
	entryPoint       string
	finishPoint      string
	reducer          ReducerFunc[S]
}

// conditionalEdge is a router plus its enumerated targets and fallback.
type conditionalEdge[S any] struct {
	router   RouterFunc[S]
	targets  map[string]bool
	fallback string
}

// EdgeOption configures a conditional edge.
type EdgeOption func(*edgeSpec)

type edgeSpec struct {
	targets  []string
	fallback string
}

// WithTargets restricts the router to an enumerated set of node IDs.
// Any other value is a RoutingError. Without targets, any existing node
// (or END) is accepted.
func WithTargets(targets ...string) EdgeOption {
	return func(e *edgeSpec) {
		e.targets = append(e.targets, targets...)
	}
}

// WithDefault sets the successor used when the router returns an empty
// decision, and when it returns an unknown target.
func WithDefault(target string) EdgeOption {
	return func(e *edgeSpec) {
		e.fallback = target
	}
}

// NewGraph creates a new graph builder for state type S.
// The type parameter S defines the state that flows through the graph.
func NewGraph[S any]() *Graph[S] {
	return &Graph[S]{
		nodes:            make(map[string]NodeFunc[S]),
		kinds:            make(map[string]NodeKind),
		edges:            make(map[string][]string),
		conditionalEdges: make(map[string]*conditionalEdge[S]),
	}
}

// AddNode adds a named node to the graph.
// Returns the graph for method chaining.
//
// Panics if:
//   - id is empty
//   - id is the reserved word "END" or "__end__" (case-insensitive)
//   - id contains whitespace (space, tab, newline)
//   - fn is nil
//   - id already exists in the graph
func (g *Graph[S]) AddNode(id string, fn NodeFunc[S], opts ...NodeOption) *Graph[S] {
	if id == "" {
		panic("flowgraph: node ID cannot be empty")
	}

	idLower := strings.ToLower(id)
	if idLower == "end" || idLower == "__end__" {
		panic("flowgraph: node ID cannot be reserved word 'END'")
	}

	if strings.ContainsAny(id, " \t\n\r") {
		panic("flowgraph: node ID cannot contain whitespace")
	}

	if fn == nil {
		panic("flowgraph: node function cannot be nil")
	}

	spec := nodeSpec{kind: KindTool}
	for _, opt := range opts {
		opt(&spec)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if _, exists := g.nodes[id]; exists {
		panic(fmt.Sprintf("flowgraph: duplicate node ID: %s", id))
	}

	g.nodes[id] = fn
	g.kinds[id] = spec.kind
	return g
}

// AddEdge adds an unconditional edge from one node to another.
// The target can be a node ID or flowgraph.END.
// Returns the graph for method chaining.
//
// Edge validation happens at Compile() time, not here.
// This allows edges to be added in any order.
func (g *Graph[S]) AddEdge(from, to string) *Graph[S] {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.edges[from] = append(g.edges[from], to)
	return g
}

// AddConditionalEdge adds a conditional edge where a RouterFunc
// determines the next node at runtime based on state.
// Returns the graph for method chaining.
//
// A node can have either simple edges or a conditional edge, not both.
// If both are present, the conditional edge takes precedence.
func (g *Graph[S]) AddConditionalEdge(from string, router RouterFunc[S], opts ...EdgeOption) *Graph[S] {
	if router == nil {
		panic("flowgraph: router function cannot be nil")
	}

	var spec edgeSpec
	for _, opt := range opts {
		opt(&spec)
	}

	edge := &conditionalEdge[S]{
		router:   router,
		fallback: spec.fallback,
	}
	if len(spec.targets) > 0 {
		edge.targets = make(map[string]bool, len(spec.targets))
		for _, t := range spec.targets {
			edge.targets[t] = true
		}
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	g.conditionalEdges[from] = edge
	return g
}

// SetEntry designates the entry point node.
// This must be called before Compile().
// Returns the graph for method chaining.
func (g *Graph[S]) SetEntry(id string) *Graph[S] {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.entryPoint = id
	return g
}

// SetFinish designates the finish node. Executing it ends the run
// successfully, as if it had an edge to END.
func (g *Graph[S]) SetFinish(id string) *Graph[S] {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.finishPoint = id
	return g
}

// SetReducer installs the function that merges node updates into state.
// With a reducer, nodes return partial updates instead of full states.
func (g *Graph[S]) SetReducer(fn ReducerFunc[S]) *Graph[S] {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.reducer = fn
	return g
}
