package models

import (
	"fmt"
	"sort"
)

// Edge represents a call relationship: From calls To
type Edge struct {
	From int `json:"from"`
	To   int `json:"to"`
}

// String renders the edge as "from->to"
func (e Edge) String() string {
	return fmt.Sprintf("%d->%d", e.From, e.To)
}

// Reversed returns the edge with its direction flipped
func (e Edge) Reversed() Edge {
	return Edge{From: e.To, To: e.From}
}

// Graph is a directed graph over dense node ids 0..NumNodes-1.
// Edge order is significant only for rendering: it is the order in which a
// node's call sites appear in its body.
type Graph struct {
	NumNodes int    `json:"num_nodes"`
	Edges    []Edge `json:"edges"`
}

// NewGraph creates an empty graph with n nodes
func NewGraph(n int) *Graph {
	return &Graph{NumNodes: n, Edges: make([]Edge, 0)}
}

// ValidateEdge checks that e could be added to the graph
func (g *Graph) ValidateEdge(e Edge) error {
	if e.From < 0 || e.From >= g.NumNodes || e.To < 0 || e.To >= g.NumNodes {
		return fmt.Errorf("edge %s references a node outside 0..%d", e, g.NumNodes-1)
	}
	if e.From == e.To {
		return fmt.Errorf("self edge %s is not permitted", e)
	}
	if g.HasEdge(e.From, e.To) {
		return fmt.Errorf("duplicate edge %s", e)
	}
	return nil
}

// AddEdge appends an edge after validating it
func (g *Graph) AddEdge(from, to int) error {
	e := Edge{From: from, To: to}
	if err := g.ValidateEdge(e); err != nil {
		return err
	}
	g.Edges = append(g.Edges, e)
	return nil
}

// RemoveEdge deletes the edge from->to and reports whether it existed
func (g *Graph) RemoveEdge(from, to int) bool {
	for i, e := range g.Edges {
		if e.From == from && e.To == to {
			g.Edges = append(g.Edges[:i], g.Edges[i+1:]...)
			return true
		}
	}
	return false
}

// HasEdge reports whether from->to is present
func (g *Graph) HasEdge(from, to int) bool {
	for _, e := range g.Edges {
		if e.From == from && e.To == to {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the graph
func (g *Graph) Clone() *Graph {
	edges := make([]Edge, len(g.Edges))
	copy(edges, g.Edges)
	return &Graph{NumNodes: g.NumNodes, Edges: edges}
}

// Successors returns the call targets of a node in declaration order
func (g *Graph) Successors(node int) []int {
	var out []int
	for _, e := range g.Edges {
		if e.From == node {
			out = append(out, e.To)
		}
	}
	return out
}

// Predecessors returns the callers of a node in declaration order
func (g *Graph) Predecessors(node int) []int {
	var in []int
	for _, e := range g.Edges {
		if e.To == node {
			in = append(in, e.From)
		}
	}
	return in
}

// OutDegree returns the fan-out of a node
func (g *Graph) OutDegree(node int) int {
	return len(g.Successors(node))
}

// InDegree returns the number of callers of a node
func (g *Graph) InDegree(node int) int {
	return len(g.Predecessors(node))
}

// MaxOutDegree returns the largest fan-out in the graph
func (g *Graph) MaxOutDegree() int {
	max := 0
	for i := 0; i < g.NumNodes; i++ {
		if d := g.OutDegree(i); d > max {
			max = d
		}
	}
	return max
}

// HasPath reports whether dst is reachable from src following edge direction.
// A node always reaches itself.
func (g *Graph) HasPath(src, dst int) bool {
	if src == dst {
		return true
	}
	visited := make(map[int]bool)
	stack := []int{src}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if visited[n] {
			continue
		}
		visited[n] = true
		for _, next := range g.Successors(n) {
			if next == dst {
				return true
			}
			stack = append(stack, next)
		}
	}
	return false
}

// TopologicalOrder returns the nodes in Kahn order (lowest id first among ready
// nodes). ok is false when the graph has a cycle.
func (g *Graph) TopologicalOrder() (order []int, ok bool) {
	inDegree := make([]int, g.NumNodes)
	for _, e := range g.Edges {
		inDegree[e.To]++
	}

	var ready []int
	for i := 0; i < g.NumNodes; i++ {
		if inDegree[i] == 0 {
			ready = append(ready, i)
		}
	}

	for len(ready) > 0 {
		sort.Ints(ready)
		n := ready[0]
		ready = ready[1:]
		order = append(order, n)
		for _, next := range g.Successors(n) {
			inDegree[next]--
			if inDegree[next] == 0 {
				ready = append(ready, next)
			}
		}
	}

	return order, len(order) == g.NumNodes
}

// IsAcyclic reports whether the graph has no directed cycle
func (g *Graph) IsAcyclic() bool {
	_, ok := g.TopologicalOrder()
	return ok
}

// IsWeaklyConnected reports whether the graph is connected when edge
// direction is ignored. A graph with a single node is connected.
func (g *Graph) IsWeaklyConnected() bool {
	if g.NumNodes <= 1 {
		return true
	}
	neighbours := make(map[int][]int)
	for _, e := range g.Edges {
		neighbours[e.From] = append(neighbours[e.From], e.To)
		neighbours[e.To] = append(neighbours[e.To], e.From)
	}
	visited := map[int]bool{0: true}
	queue := []int{0}
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		for _, next := range neighbours[n] {
			if !visited[next] {
				visited[next] = true
				queue = append(queue, next)
			}
		}
	}
	return len(visited) == g.NumNodes
}

// EdgeSet returns the edges as a set
func (g *Graph) EdgeSet() map[Edge]bool {
	set := make(map[Edge]bool, len(g.Edges))
	for _, e := range g.Edges {
		set[e] = true
	}
	return set
}

// SortedEdges returns a copy of the edges ordered by (from, to)
func (g *Graph) SortedEdges() []Edge {
	return SortEdges(g.Edges)
}

// Equal reports whether both graphs have the same node count and edge set.
// Declaration order is ignored.
func (g *Graph) Equal(other *Graph) bool {
	if other == nil || g.NumNodes != other.NumNodes || len(g.Edges) != len(other.Edges) {
		return false
	}
	set := g.EdgeSet()
	for _, e := range other.Edges {
		if !set[e] {
			return false
		}
	}
	return true
}

// Relabel returns a copy of the graph with node i renamed to perm[i]
func (g *Graph) Relabel(perm []int) *Graph {
	out := NewGraph(g.NumNodes)
	for _, e := range g.Edges {
		out.Edges = append(out.Edges, Edge{From: perm[e.From], To: perm[e.To]})
	}
	return out
}

// Adjacency returns the interchange form of the graph
func (g *Graph) Adjacency() Adjacency {
	adj := Adjacency{From: make([]int, 0, len(g.Edges)), To: make([]int, 0, len(g.Edges))}
	for _, e := range g.Edges {
		adj.From = append(adj.From, e.From)
		adj.To = append(adj.To, e.To)
	}
	return adj
}

// SortEdges returns a sorted copy of edges
func SortEdges(edges []Edge) []Edge {
	out := make([]Edge, len(edges))
	copy(out, edges)
	sort.Slice(out, func(i, j int) bool {
		if out[i].From != out[j].From {
			return out[i].From < out[j].From
		}
		return out[i].To < out[j].To
	})
	return out
}
