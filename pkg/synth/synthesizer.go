// Package synth turns a graph into a Go program whose call structure is
// exactly the graph's edge set.
package synth

import (
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"

	"github.com/smith-xyz/topobench/pkg/models"
	"github.com/smith-xyz/topobench/pkg/topology"
)

// Options control the size and shape of generated bodies
type Options struct {
	AvgLength         int     // approximate statements per body
	BranchingFactor   int     // if/else blocks per body
	LoopFactor        int     // for loops per body
	StructProbability float64 // chance a node becomes a struct with a Run method
	Seed              uint64
}

// DefaultOptions returns the synthesizer defaults
func DefaultOptions() Options {
	return Options{
		AvgLength:         10,
		BranchingFactor:   1,
		LoopFactor:        1,
		StructProbability: 0.5,
	}
}

// Synthesizer builds codebases from graphs
type Synthesizer struct {
	opts   Options
	logger *slog.Logger
}

// NewSynthesizer creates a synthesizer. A nil logger discards output.
func NewSynthesizer(opts Options, logger *slog.Logger) *Synthesizer {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if opts.AvgLength < 1 {
		opts.AvgLength = 1
	}
	if opts.BranchingFactor < 0 {
		opts.BranchingFactor = 0
	}
	if opts.LoopFactor < 0 {
		opts.LoopFactor = 0
	}
	return &Synthesizer{opts: opts, logger: logger}
}

// Synthesize emits one callable per node. With useSemantics the callables get
// vocabulary names instead of positional ones; Codebase.Names maps either
// form back to node ids.
func (s *Synthesizer) Synthesize(g *models.Graph, useSemantics bool) (*models.Codebase, error) {
	if g == nil || g.NumNodes < 1 {
		return nil, fmt.Errorf("cannot synthesize an empty graph")
	}
	for _, e := range g.Edges {
		if e.From < 0 || e.From >= g.NumNodes || e.To < 0 || e.To >= g.NumNodes || e.From == e.To {
			return nil, fmt.Errorf("graph contains invalid edge %s", e)
		}
	}

	rng := topology.NewRand(s.opts.Seed)
	types := TypeNames()

	cb := &models.Codebase{
		Graph:     g.Clone(),
		Nodes:     make([]models.Node, g.NumNodes),
		Fragments: make([]models.Fragment, g.NumNodes),
		Names:     make(map[string]int, g.NumNodes),
		Semantic:  useSemantics,
	}

	var semantic []string
	if useSemantics {
		semantic = semanticNames(g.NumNodes, rng)
	}

	for i := 0; i < g.NumNodes; i++ {
		kind := models.KindFunction
		if rng.Float64() < s.opts.StructProbability {
			kind = models.KindStruct
		}
		name := positionalName(kind, i)
		if useSemantics {
			name = semantic[i]
		}
		cb.Nodes[i] = models.Node{
			ID:         i,
			Name:       name,
			Kind:       kind,
			InputType:  types[rng.IntN(len(types))],
			OutputType: types[rng.IntN(len(types))],
			Variant:    rng.IntN(4),
		}
		cb.Names[name] = i
	}

	for i := range cb.Nodes {
		cb.Fragments[i] = s.fragment(cb.Nodes[i], rng, types)
	}

	src, err := Render(cb)
	if err != nil {
		return nil, fmt.Errorf("failed to render codebase: %w", err)
	}
	cb.Source = src

	s.logger.Debug("Synthesized codebase",
		"nodes", g.NumNodes,
		"edges", len(g.Edges),
		"semantic", useSemantics,
		"bytes", len(src))

	return cb, nil
}

// fragment generates the decoration for one node. Struct nodes get one to
// three call-free helper methods besides Run.
func (s *Synthesizer) fragment(node models.Node, rng *rand.Rand, types []string) models.Fragment {
	lines := s.estimatedLines(rng)
	names := newLocalNames(rng)

	if node.Kind == models.KindFunction {
		return models.Fragment{Preamble: s.preamble(lines, names, rng)}
	}

	f := models.Fragment{Preamble: s.preamble(lines/2, names, rng)}
	for h := 0; h < 1+rng.IntN(3); h++ {
		f.Helpers = append(f.Helpers, models.Helper{
			Name:       fmt.Sprintf("Method%d", h),
			InputType:  types[rng.IntN(len(types))],
			OutputType: types[rng.IntN(len(types))],
			Preamble:   s.preamble(lines/3, newLocalNames(rng), rng),
		})
	}
	return f
}

func (s *Synthesizer) estimatedLines(rng *rand.Rand) int {
	avg := float64(s.opts.AvgLength)
	n := int(math.Round(avg + rng.NormFloat64()*avg*0.2))
	if n < 1 {
		n = 1
	}
	return n
}

// preamble builds filler assignments, if/else blocks and loops that do not
// affect the return value
func (s *Synthesizer) preamble(lines int, names *localNames, rng *rand.Rand) []string {
	var out []string

	filler := lines - s.opts.BranchingFactor - s.opts.LoopFactor
	for i := 0; i < filler; i++ {
		v := names.next()
		out = append(out,
			fmt.Sprintf("%s := %d", v, 1+rng.IntN(100)),
			fmt.Sprintf("_ = %s", v))
	}

	for i := 0; i < s.opts.BranchingFactor; i++ {
		v := names.next()
		out = append(out,
			fmt.Sprintf("var %s string", v),
			fmt.Sprintf("if %d > 5 {", rng.IntN(11)),
			fmt.Sprintf("\t%s = %q", v, word(rng.IntN(1000))),
			"} else {",
			fmt.Sprintf("\t%s = %q", v, word(rng.IntN(1000))),
			"}",
			fmt.Sprintf("_ = %s", v))
	}

	for i := 0; i < s.opts.LoopFactor; i++ {
		v := names.next()
		out = append(out,
			fmt.Sprintf("for %s := 0; %s < %d; %s++ {", v, v, 1+rng.IntN(5), v),
			fmt.Sprintf("\t_ = %s", v),
			"}")
	}

	return out
}
