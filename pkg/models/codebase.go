package models

import (
	"regexp"
	"strconv"
)

// NodeKind is the shape of the callable emitted for a node
type NodeKind string

const (
	// KindFunction is a top-level function
	KindFunction NodeKind = "function"
	// KindStruct is a struct type whose Run method holds the node's calls
	KindStruct NodeKind = "struct"
)

// EntryPointName is the sentinel caller emitted into every codebase. It is
// not part of the scored structure.
const EntryPointName = "main"

// Node describes the callable generated for one graph node
type Node struct {
	ID         int      `json:"id"`
	Name       string   `json:"name"`
	Kind       NodeKind `json:"kind"`
	InputType  string   `json:"input_type"`
	OutputType string   `json:"output_type"`
	Variant    int      `json:"variant"` // selects among equivalent transformation bodies
}

// Helper is an extra call-free method on a struct node
type Helper struct {
	Name       string   `json:"name"`
	InputType  string   `json:"input_type"`
	OutputType string   `json:"output_type"`
	Preamble   []string `json:"preamble"`
}

// Fragment holds the per-node decoration that does not affect the call
// structure. It is generated once so that re-rendering after a mutation only
// changes what the mutation touched.
type Fragment struct {
	Preamble []string `json:"preamble"`
	Helpers  []Helper `json:"helpers,omitempty"`
}

// Codebase is a synthesized program plus the gold graph it embeds. The call
// sites in Source for node i are exactly Graph.Successors(i).
type Codebase struct {
	Graph     *Graph         `json:"graph"`
	Nodes     []Node         `json:"nodes"`
	Fragments []Fragment     `json:"fragments"`
	Names     map[string]int `json:"names"`
	Semantic  bool           `json:"semantic"`
	Source    string         `json:"source"`
}

// Clone returns a deep copy
func (c *Codebase) Clone() *Codebase {
	out := &Codebase{
		Graph:     c.Graph.Clone(),
		Nodes:     make([]Node, len(c.Nodes)),
		Fragments: make([]Fragment, len(c.Fragments)),
		Names:     make(map[string]int, len(c.Names)),
		Semantic:  c.Semantic,
		Source:    c.Source,
	}
	copy(out.Nodes, c.Nodes)
	for i, f := range c.Fragments {
		nf := Fragment{Preamble: append([]string(nil), f.Preamble...)}
		for _, h := range f.Helpers {
			h.Preamble = append([]string(nil), h.Preamble...)
			nf.Helpers = append(nf.Helpers, h)
		}
		out.Fragments[i] = nf
	}
	for k, v := range c.Names {
		out.Names[k] = v
	}
	return out
}

// Gold returns the gold adjacency in interchange form
func (c *Codebase) Gold() Adjacency {
	return c.Graph.Adjacency()
}

// NodeNames returns the node names indexed by id
func (c *Codebase) NodeNames() []string {
	names := make([]string, len(c.Nodes))
	for i, n := range c.Nodes {
		names[i] = n.Name
	}
	return names
}

var trailingIndex = regexp.MustCompile(`_(\d+)$`)

// ResolveName maps a callable name to its node id. Exact names win; without
// semantic naming, positional names such as "Function_3" also resolve through
// their numeric suffix.
func (c *Codebase) ResolveName(name string) (int, bool) {
	if id, ok := c.Names[name]; ok {
		return id, true
	}
	if c.Semantic {
		return 0, false
	}
	if m := trailingIndex.FindStringSubmatch(name); m != nil {
		id, err := strconv.Atoi(m[1])
		if err == nil && id >= 0 && id < len(c.Nodes) {
			return id, true
		}
	}
	return 0, false
}

// NodeCount returns the number of graph nodes
func (c *Codebase) NodeCount() int {
	return len(c.Nodes)
}
