package flowgraph

import "sort"

// CompiledGraph is an immutable, executable graph.
// It is created by calling Compile() on a Graph builder.
//
// CompiledGraph is thread-safe and can be used concurrently for multiple
// Run() calls. Each run owns its own state.
type CompiledGraph[S any] struct {
	nodes            map[string]NodeFunc[S]
	kinds            map[string]NodeKind
	edges            map[string][]string
	conditionalEdges map[string]*conditionalEdge[S]
	entryPoint       string
	finishPoint      string
	reducer          ReducerFunc[S]

	predecessors map[string][]string
}

// EntryPoint returns the entry node ID.
func (cg *CompiledGraph[S]) EntryPoint() string {
	return cg.entryPoint
}

// FinishPoint returns the finish node ID, or "" if none was set.
func (cg *CompiledGraph[S]) FinishPoint() string {
	return cg.finishPoint
}

// NodeIDs returns all node identifiers in the graph, sorted.
func (cg *CompiledGraph[S]) NodeIDs() []string {
	ids := make([]string, 0, len(cg.nodes))
	for id := range cg.nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// HasNode checks if a node exists in the graph.
func (cg *CompiledGraph[S]) HasNode(id string) bool {
	_, exists := cg.nodes[id]
	return exists
}

// Kind returns the kind of the given node.
func (cg *CompiledGraph[S]) Kind(id string) NodeKind {
	return cg.kinds[id]
}

// Successors returns the node IDs reachable from the given node via
// simple edges. Conditional targets are runtime-determined and not included.
func (cg *CompiledGraph[S]) Successors(id string) []string {
	if id == END {
		return nil
	}
	return cg.edges[id]
}

// Predecessors returns the node IDs that have simple edges to the given node.
func (cg *CompiledGraph[S]) Predecessors(id string) []string {
	return cg.predecessors[id]
}

// IsConditional returns true if the node has a conditional edge.
func (cg *CompiledGraph[S]) IsConditional(id string) bool {
	_, ok := cg.conditionalEdges[id]
	return ok
}

// RoutingTargets returns the enumerated targets of a conditional edge,
// sorted, or nil if the node has no restricted conditional edge.
func (cg *CompiledGraph[S]) RoutingTargets(id string) []string {
	edge, ok := cg.conditionalEdges[id]
	if !ok || edge.targets == nil {
		return nil
	}
	return sortedKeys(edge.targets)
}

// DefaultSuccessor returns the default successor of a conditional edge.
func (cg *CompiledGraph[S]) DefaultSuccessor(id string) string {
	if edge, ok := cg.conditionalEdges[id]; ok {
		return edge.fallback
	}
	return ""
}
