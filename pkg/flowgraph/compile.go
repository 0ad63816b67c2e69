package flowgraph

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
)

// Compile validates the graph and creates an executable CompiledGraph.
// Returns an error if validation fails. Multiple errors are joined together.
//
// Validation checks (in order):
//  1. Entry point must be set and reference an existing node
//  2. Finish point, when set, must reference an existing node
//  3. All edge sources and targets must reference existing nodes or END
//  4. Conditional edge targets and defaults must reference existing nodes or END
//  5. Every node except the finish node must have an outgoing edge
//  6. The entry point must have a path to END or the finish node
//
// Unreachable nodes (not reachable from entry) are logged as warnings
// but do not cause compilation to fail.
func (g *Graph[S]) Compile() (*CompiledGraph[S], error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var errs []error

	if g.entryPoint == "" {
		errs = append(errs, ErrNoEntryPoint)
	} else if _, exists := g.nodes[g.entryPoint]; !exists {
		errs = append(errs, fmt.Errorf("%w: %s", ErrEntryNotFound, g.entryPoint))
	}

	if g.finishPoint != "" {
		if _, exists := g.nodes[g.finishPoint]; !exists {
			errs = append(errs, fmt.Errorf("%w: %s", ErrFinishNotFound, g.finishPoint))
		}
	}

	for _, from := range sortedKeys(g.edges) {
		if _, exists := g.nodes[from]; !exists {
			errs = append(errs, fmt.Errorf("%w: edge source '%s' does not exist", ErrNodeNotFound, from))
		}
		for _, to := range g.edges[from] {
			if !g.isTarget(to) {
				errs = append(errs, fmt.Errorf("%w: edge target '%s' does not exist", ErrNodeNotFound, to))
			}
		}
	}

	for _, from := range sortedKeys(g.conditionalEdges) {
		edge := g.conditionalEdges[from]
		if _, exists := g.nodes[from]; !exists {
			errs = append(errs, fmt.Errorf("%w: conditional edge source '%s' does not exist", ErrNodeNotFound, from))
		}
		for _, to := range sortedKeys(edge.targets) {
			if !g.isTarget(to) {
				errs = append(errs, fmt.Errorf("%w: routing target '%s' does not exist", ErrNodeNotFound, to))
			}
		}
		if edge.fallback != "" && !g.isTarget(edge.fallback) {
			errs = append(errs, fmt.Errorf("%w: default successor '%s' does not exist", ErrNodeNotFound, edge.fallback))
		}
	}

	for _, id := range sortedKeys(g.nodes) {
		if id == g.finishPoint {
			continue
		}
		_, conditional := g.conditionalEdges[id]
		if len(g.edges[id]) == 0 && !conditional {
			errs = append(errs, fmt.Errorf("%w: %s", ErrNoOutgoingEdge, id))
		}
	}

	if g.entryPoint != "" {
		if _, exists := g.nodes[g.entryPoint]; exists && !g.hasPathToEnd() {
			errs = append(errs, ErrNoPathToEnd)
		}
	}

	g.warnUnreachableNodes()

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	return g.buildCompiledGraph(), nil
}

// isTarget reports whether id is a valid edge destination.
func (g *Graph[S]) isTarget(id string) bool {
	if id == END {
		return true
	}
	_, exists := g.nodes[id]
	return exists
}

// hasPathToEnd checks if there's a path from entry to END.
// The finish node counts as reaching END. A conditional edge is assumed to
// reach every target it may return: its enumerated targets and default, or
// END when it is unrestricted.
func (g *Graph[S]) hasPathToEnd() bool {
	canReachEnd := map[string]bool{END: true}
	if g.finishPoint != "" {
		canReachEnd[g.finishPoint] = true
	}

	changed := true
	for changed {
		changed = false

		for from, targets := range g.edges {
			if canReachEnd[from] {
				continue
			}
			for _, to := range targets {
				if canReachEnd[to] {
					canReachEnd[from] = true
					changed = true
					break
				}
			}
		}

		for from, edge := range g.conditionalEdges {
			if canReachEnd[from] {
				continue
			}
			if edge.targets == nil || canReachEnd[edge.fallback] {
				canReachEnd[from] = true
				changed = true
				continue
			}
			for to := range edge.targets {
				if canReachEnd[to] {
					canReachEnd[from] = true
					changed = true
					break
				}
			}
		}
	}

	return canReachEnd[g.entryPoint]
}

// warnUnreachableNodes logs warnings for nodes not reachable from entry.
func (g *Graph[S]) warnUnreachableNodes() {
	if g.entryPoint == "" {
		return
	}

	reachable := g.findReachableNodes()

	for _, nodeID := range sortedKeys(g.nodes) {
		if !reachable[nodeID] {
			slog.Warn("node is unreachable from entry", "node_id", nodeID)
		}
	}
}

// findReachableNodes returns the set of nodes reachable from the entry point.
func (g *Graph[S]) findReachableNodes() map[string]bool {
	reachable := make(map[string]bool)

	if g.entryPoint == "" {
		return reachable
	}

	queue := []string{g.entryPoint}
	reachable[g.entryPoint] = true

	visit := func(target string) {
		if target != END && target != "" && !reachable[target] {
			reachable[target] = true
			queue = append(queue, target)
		}
	}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		for _, target := range g.edges[current] {
			visit(target)
		}

		edge, hasConditional := g.conditionalEdges[current]
		if !hasConditional {
			continue
		}
		if edge.targets == nil {
			// An unrestricted router may return any node.
			for nodeID := range g.nodes {
				visit(nodeID)
			}
			continue
		}
		for target := range edge.targets {
			visit(target)
		}
		visit(edge.fallback)
	}

	return reachable
}

// buildCompiledGraph creates the immutable CompiledGraph from the builder state.
func (g *Graph[S]) buildCompiledGraph() *CompiledGraph[S] {
	nodes := make(map[string]NodeFunc[S], len(g.nodes))
	for id, fn := range g.nodes {
		nodes[id] = fn
	}

	kinds := make(map[string]NodeKind, len(g.kinds))
	for id, kind := range g.kinds {
		kinds[id] = kind
	}

	edges := make(map[string][]string, len(g.edges))
	for from, targets := range g.edges {
		edges[from] = make([]string, len(targets))
		copy(edges[from], targets)
	}

	conditionalEdges := make(map[string]*conditionalEdge[S], len(g.conditionalEdges))
	for from, edge := range g.conditionalEdges {
		cp := &conditionalEdge[S]{router: edge.router, fallback: edge.fallback}
		if edge.targets != nil {
			cp.targets = make(map[string]bool, len(edge.targets))
			for t := range edge.targets {
				cp.targets[t] = true
			}
		}
		conditionalEdges[from] = cp
	}

	predecessors := make(map[string][]string)
	for _, from := range sortedKeys(edges) {
		for _, to := range edges[from] {
			if to != END {
				predecessors[to] = append(predecessors[to], from)
			}
		}
	}

	return &CompiledGraph[S]{
		nodes:            nodes,
		kinds:            kinds,
		edges:            edges,
		conditionalEdges: conditionalEdges,
		entryPoint:       g.entryPoint,
		finishPoint:      g.finishPoint,
		reducer:          g.reducer,
		predecessors:     predecessors,
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
