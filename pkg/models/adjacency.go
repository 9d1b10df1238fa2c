package models

import (
	"encoding/json"
	"fmt"
)

// Adjacency is the interchange form of an edge list: From[i] calls To[i].
// Index order carries no meaning once compared, but the two slices must stay
// aligned.
type Adjacency struct {
	From []int `json:"from"`
	To   []int `json:"to"`
}

// AdjacencyEnvelope is the top-level object models are asked to emit
type AdjacencyEnvelope struct {
	Adjacency Adjacency `json:"adjacency"`
}

// MarshalJSON always emits arrays, never null
func (a Adjacency) MarshalJSON() ([]byte, error) {
	from, to := a.From, a.To
	if from == nil {
		from = []int{}
	}
	if to == nil {
		to = []int{}
	}
	return json.Marshal(struct {
		From []int `json:"from"`
		To   []int `json:"to"`
	}{From: from, To: to})
}

// Len returns the number of index-aligned pairs
func (a Adjacency) Len() int {
	return len(a.From)
}

// Validate checks that both sequences have the same length
func (a Adjacency) Validate() error {
	if len(a.From) != len(a.To) {
		return fmt.Errorf("adjacency 'from' has %d entries but 'to' has %d", len(a.From), len(a.To))
	}
	return nil
}

// Pairs returns the index-aligned edges, preserving order and duplicates
func (a Adjacency) Pairs() []Edge {
	n := len(a.From)
	if len(a.To) < n {
		n = len(a.To)
	}
	pairs := make([]Edge, 0, n)
	for i := 0; i < n; i++ {
		pairs = append(pairs, Edge{From: a.From[i], To: a.To[i]})
	}
	return pairs
}

// AdjacencyFromEdges builds the interchange form from an edge slice
func AdjacencyFromEdges(edges []Edge) Adjacency {
	adj := Adjacency{From: make([]int, 0, len(edges)), To: make([]int, 0, len(edges))}
	for _, e := range edges {
		adj.From = append(adj.From, e.From)
		adj.To = append(adj.To, e.To)
	}
	return adj
}

// GraphFromAdjacency builds a validated graph with n nodes from the
// interchange form. Any malformed pair is an error.
func GraphFromAdjacency(n int, adj Adjacency) (*Graph, error) {
	if err := adj.Validate(); err != nil {
		return nil, err
	}
	g := NewGraph(n)
	for _, e := range adj.Pairs() {
		if err := g.AddEdge(e.From, e.To); err != nil {
			return nil, err
		}
	}
	return g, nil
}

// MarshalEnvelope renders a graph in the interchange format
func MarshalEnvelope(g *Graph) ([]byte, error) {
	return json.Marshal(AdjacencyEnvelope{Adjacency: g.Adjacency()})
}

// UnmarshalEnvelope parses the strict interchange format
func UnmarshalEnvelope(data []byte) (Adjacency, error) {
	var env struct {
		Adjacency *struct {
			From *[]int `json:"from"`
			To   *[]int `json:"to"`
		} `json:"adjacency"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		return Adjacency{}, &AdjacencyParseError{Reason: "invalid JSON", Err: err}
	}
	if env.Adjacency == nil {
		return Adjacency{}, &AdjacencyParseError{Reason: "missing 'adjacency' object"}
	}
	if env.Adjacency.From == nil || env.Adjacency.To == nil {
		return Adjacency{}, &AdjacencyParseError{Reason: "adjacency must have 'from' and 'to' lists"}
	}
	adj := Adjacency{From: *env.Adjacency.From, To: *env.Adjacency.To}
	if err := adj.Validate(); err != nil {
		return Adjacency{}, &AdjacencyParseError{Reason: "misaligned sequences", Err: err}
	}
	return adj, nil
}
