// Package topology generates graphs with a requested structural family.
package topology

import (
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/smith-xyz/topobench/pkg/models"
)

// Kind is a structural family of generated graphs
type Kind string

const (
	// Chain is a single path 0->1->...->n-1
	Chain Kind = "chain"
	// Branch is a tree rooted at node 0 with bounded fan-out
	Branch Kind = "branch"
	// Random is a weakly connected DAG with bounded fan-out
	Random Kind = "random"
)

// Kinds lists every supported topology
var Kinds = []Kind{Chain, Branch, Random}

// ParseKind resolves a topology name, case-insensitively
func ParseKind(name string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(name)))
	for _, known := range Kinds {
		if k == known {
			return k, nil
		}
	}
	return "", &models.InvalidTopologyError{Kind: name, Reason: "unrecognized topology kind"}
}

// Options tune generation. The zero value is usable: MaxFanout falls back to
// DefaultMaxFanout and no extra random edges are added.
type Options struct {
	MaxFanout            int
	ExtraEdgeProbability float64
	Seed                 uint64
}

// DefaultMaxFanout bounds fan-out when Options.MaxFanout is unset
const DefaultMaxFanout = 3

// DefaultOptions returns the generator defaults
func DefaultOptions() Options {
	return Options{
		MaxFanout:            DefaultMaxFanout,
		ExtraEdgeProbability: 0.3,
	}
}

// NewRand returns the deterministic source used for a seed
func NewRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// Generate builds a graph of the requested kind. It is a pure function of its
// arguments.
func Generate(kind Kind, numNodes int, opts Options) (*models.Graph, error) {
	if numNodes < 1 {
		return nil, &models.InvalidTopologyError{Kind: string(kind), NumNodes: numNodes, Reason: "num_nodes must be at least 1"}
	}
	if opts.MaxFanout == 0 {
		opts.MaxFanout = DefaultMaxFanout
	}
	if opts.MaxFanout < 1 {
		return nil, &models.InvalidTopologyError{Kind: string(kind), NumNodes: numNodes, Reason: fmt.Sprintf("max_fanout must be positive, got %d", opts.MaxFanout)}
	}
	if opts.ExtraEdgeProbability < 0 || opts.ExtraEdgeProbability > 1 {
		return nil, &models.InvalidTopologyError{Kind: string(kind), NumNodes: numNodes, Reason: "extra edge probability must be within [0, 1]"}
	}

	rng := NewRand(opts.Seed)

	switch kind {
	case Chain:
		return chain(numNodes), nil
	case Branch:
		return branch(numNodes, opts.MaxFanout, rng), nil
	case Random:
		return random(numNodes, opts.MaxFanout, opts.ExtraEdgeProbability, rng), nil
	default:
		return nil, &models.InvalidTopologyError{Kind: string(kind), NumNodes: numNodes, Reason: "unrecognized topology kind"}
	}
}

func chain(n int) *models.Graph {
	g := models.NewGraph(n)
	for i := 0; i+1 < n; i++ {
		g.Edges = append(g.Edges, models.Edge{From: i, To: i + 1})
	}
	return g
}

// branch attaches every node i>=1 under one earlier node that still has
// spare fan-out. Node i-1 always has none used yet, so a parent always exists.
func branch(n, maxFanout int, rng *rand.Rand) *models.Graph {
	g := models.NewGraph(n)
	fanout := make([]int, n)
	for i := 1; i < n; i++ {
		parent := pickWithCapacity(rng, fanout[:i], maxFanout)
		fanout[parent]++
		g.Edges = append(g.Edges, models.Edge{From: parent, To: i})
	}
	return g
}

// random builds a spanning tree over lower->higher edges, then adds extra
// lower->higher edges. Every edge goes from a lower to a higher id, so the
// result is acyclic by construction.
func random(n, maxFanout int, p float64, rng *rand.Rand) *models.Graph {
	g := branch(n, maxFanout, rng)
	if p == 0 {
		return g
	}

	fanout := make([]int, n)
	for _, e := range g.Edges {
		fanout[e.From]++
	}
	for u := 0; u < n; u++ {
		for v := u + 1; v < n; v++ {
			if fanout[u] >= maxFanout {
				break
			}
			if g.HasEdge(u, v) {
				continue
			}
			if rng.Float64() < p {
				g.Edges = append(g.Edges, models.Edge{From: u, To: v})
				fanout[u]++
			}
		}
	}
	return g
}

func pickWithCapacity(rng *rand.Rand, fanout []int, maxFanout int) int {
	candidates := make([]int, 0, len(fanout))
	for node, used := range fanout {
		if used < maxFanout {
			candidates = append(candidates, node)
		}
	}
	return candidates[rng.IntN(len(candidates))]
}
