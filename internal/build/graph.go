package build

import (
	"sort"
	"sync"
)

// DependencyGraph is a directed graph over task IDs. An edge u -> v means u
// must complete before v starts.
//
// Resolution is tracked with a per-node counter of unresolved predecessors.
// Advance decrements counters instead of deleting nodes, so the structure
// only ever grows during construction and is walked once.
type DependencyGraph struct {
	mu sync.RWMutex
	// nodes holds every task ID in insertion order.
	nodes []TaskID
	// index is the node set.
	index map[TaskID]struct{}
	// successors maps a node to the nodes that require it.
	successors map[TaskID][]TaskID
	// predecessors maps a node to the nodes it requires.
	predecessors map[TaskID][]TaskID
	// pending counts unresolved predecessors per node.
	pending map[TaskID]int
	// resolved marks nodes consumed by Advance.
	resolved map[TaskID]bool
	edges    int
}

// NewDependencyGraph builds a graph from requirement pairs. Every task named
// in a requires list must itself appear as a requirement's Task, otherwise an
// *UnknownTaskError is returned. Duplicate edges are collapsed.
func NewDependencyGraph(reqs []Requirement) (*DependencyGraph, error) {
	g := &DependencyGraph{
		index:        make(map[TaskID]struct{}),
		successors:   make(map[TaskID][]TaskID),
		predecessors: make(map[TaskID][]TaskID),
		pending:      make(map[TaskID]int),
		resolved:     make(map[TaskID]bool),
	}

	// First pass: register all tasks as nodes.
	for _, r := range reqs {
		if _, exists := g.index[r.Task]; exists {
			continue
		}
		g.index[r.Task] = struct{}{}
		g.nodes = append(g.nodes, r.Task)
		g.pending[r.Task] = 0
	}

	// Second pass: edges from the requires lists.
	type edge struct{ from, to TaskID }
	seen := make(map[edge]bool)
	for _, r := range reqs {
		for _, dep := range r.Requires {
			if _, exists := g.index[dep]; !exists {
				return nil, &UnknownTaskError{ID: dep, RequiredBy: r.Task}
			}
			e := edge{from: dep, to: r.Task}
			if seen[e] {
				continue
			}
			seen[e] = true
			g.successors[dep] = append(g.successors[dep], r.Task)
			g.predecessors[r.Task] = append(g.predecessors[r.Task], dep)
			g.pending[r.Task]++
			g.edges++
		}
	}

	debugLog("[graph.New] %d nodes, %d edges", len(g.nodes), g.edges)
	return g, nil
}

// Frontier returns the unresolved nodes whose predecessors have all been
// resolved, sorted by ID.
func (g *DependencyGraph) Frontier() []TaskID {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var ready []TaskID
	for _, id := range g.nodes {
		if g.resolved[id] {
			continue
		}
		if g.pending[id] == 0 {
			ready = append(ready, id)
		}
	}
	sortIDs(ready)
	return ready
}

// Advance marks the given nodes resolved and decrements the pending count of
// each of their successors. Nodes that are unknown or already resolved are
// ignored.
func (g *DependencyGraph) Advance(resolved []TaskID) {
	g.mu.Lock()
	defer g.mu.Unlock()

	for _, id := range resolved {
		if _, ok := g.index[id]; !ok || g.resolved[id] {
			continue
		}
		g.resolved[id] = true
		for _, succ := range g.successors[id] {
			g.pending[succ]--
		}
	}
}

// IsEmpty reports whether every node has been resolved.
func (g *DependencyGraph) IsEmpty() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.resolved) == len(g.nodes)
}

// Unresolved returns the nodes not yet consumed by Advance, sorted by ID.
func (g *DependencyGraph) Unresolved() []TaskID {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var out []TaskID
	for _, id := range g.nodes {
		if !g.resolved[id] {
			out = append(out, id)
		}
	}
	sortIDs(out)
	return out
}

// Nodes returns every node in insertion order.
func (g *DependencyGraph) Nodes() []TaskID {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]TaskID, len(g.nodes))
	copy(out, g.nodes)
	return out
}

// Size returns the number of nodes.
func (g *DependencyGraph) Size() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.nodes)
}

// EdgeCount returns the number of distinct edges.
func (g *DependencyGraph) EdgeCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.edges
}

// Predecessors returns the nodes id requires.
func (g *DependencyGraph) Predecessors(id TaskID) []TaskID {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]TaskID, len(g.predecessors[id]))
	copy(out, g.predecessors[id])
	return out
}

// Successors returns the nodes that require id.
func (g *DependencyGraph) Successors(id TaskID) []TaskID {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]TaskID, len(g.successors[id]))
	copy(out, g.successors[id])
	return out
}

// HasCycle returns true if the graph contains a circular dependency.
// Uses depth-first search with coloring to detect back edges. It inspects
// edges only and does not depend on resolution state.
func (g *DependencyGraph) HasCycle() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()

	const (
		white = iota
		gray
		black
	)
	colors := make(map[TaskID]int, len(g.nodes))

	var visit func(id TaskID) bool
	visit = func(id TaskID) bool {
		colors[id] = gray
		for _, next := range g.successors[id] {
			switch colors[next] {
			case gray:
				return true
			case white:
				if visit(next) {
					return true
				}
			}
		}
		colors[id] = black
		return false
	}

	for _, id := range g.nodes {
		if colors[id] == white && visit(id) {
			return true
		}
	}
	return false
}

func sortIDs(ids []TaskID) {
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
}
