// Package mutate applies structural edits to a synthesized codebase and
// records exactly what changed.
package mutate

import (
	"fmt"
	"log/slog"
	"math/rand/v2"

	"github.com/smith-xyz/topobench/pkg/models"
	"github.com/smith-xyz/topobench/pkg/synth"
	"github.com/smith-xyz/topobench/pkg/topology"
)

// Weights sets the relative frequency of each operation in ApplyN. Operations
// missing from the map are never drawn.
type Weights map[models.Operation]float64

// DefaultWeights draws only safe flips
func DefaultWeights() Weights {
	return Weights{models.OpSafeFlip: 1}
}

// Mutator applies edits. Inputs are never modified: every operation returns a
// fresh codebase with re-rendered source.
type Mutator struct {
	rng    *rand.Rand
	logger *slog.Logger
}

// NewMutator creates a mutator whose random choices derive from seed
func NewMutator(seed uint64, logger *slog.Logger) *Mutator {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Mutator{rng: topology.NewRand(seed), logger: logger}
}

// FlipEdge replaces from->to with to->from. It fails when the edge does not
// exist, when to->from is already present, or when the reversed edge would
// close a cycle.
func (m *Mutator) FlipEdge(cb *models.Codebase, from, to int) (*models.Codebase, *models.MutationRecord, error) {
	if err := checkFlip(cb.Graph, from, to); err != nil {
		return nil, nil, err
	}

	out := cb.Clone()
	out.Graph.RemoveEdge(from, to)
	if err := out.Graph.AddEdge(to, from); err != nil {
		return nil, nil, &models.MutationError{Operation: models.OpFlipEdge, Reason: err.Error()}
	}

	diff := models.EdgeDiff{
		Removed: []models.Edge{{From: from, To: to}},
		Added:   []models.Edge{{From: to, To: from}},
	}
	return m.finish(models.OpFlipEdge, cb, out, diff, nil)
}

func checkFlip(g *models.Graph, from, to int) error {
	if !g.HasEdge(from, to) {
		return &models.MutationError{Operation: models.OpFlipEdge, Reason: fmt.Sprintf("edge %d->%d does not exist", from, to)}
	}
	if g.HasEdge(to, from) {
		return &models.MutationError{Operation: models.OpFlipEdge, Reason: fmt.Sprintf("edge %d->%d already exists", to, from)}
	}
	rest := g.Clone()
	rest.RemoveEdge(from, to)
	if rest.HasPath(from, to) {
		return &models.MutationError{Operation: models.OpFlipEdge, Reason: fmt.Sprintf("flipping %d->%d would create a cycle", from, to)}
	}
	return nil
}

// SafeFlip flips a randomly chosen edge that keeps the graph acyclic
func (m *Mutator) SafeFlip(cb *models.Codebase) (*models.Codebase, *models.MutationRecord, error) {
	edges := append([]models.Edge(nil), cb.Graph.Edges...)
	m.rng.Shuffle(len(edges), func(i, j int) { edges[i], edges[j] = edges[j], edges[i] })

	for _, e := range edges {
		if checkFlip(cb.Graph, e.From, e.To) != nil {
			continue
		}
		out, rec, err := m.FlipEdge(cb, e.From, e.To)
		if err != nil {
			return nil, nil, err
		}
		rec.Operation = models.OpSafeFlip
		return out, rec, nil
	}
	return nil, nil, &models.MutationError{Operation: models.OpSafeFlip, Reason: "no edge can be flipped without creating a cycle"}
}

// RandomFlip flips edges drawn in random order until one reverses without
// closing a cycle. The last rejection is returned when none can.
func (m *Mutator) RandomFlip(cb *models.Codebase) (*models.Codebase, *models.MutationRecord, error) {
	if len(cb.Graph.Edges) == 0 {
		return nil, nil, &models.MutationError{Operation: models.OpFlipEdge, Reason: "graph has no edges"}
	}
	edges := append([]models.Edge(nil), cb.Graph.Edges...)
	m.rng.Shuffle(len(edges), func(i, j int) { edges[i], edges[j] = edges[j], edges[i] })

	var lastErr error
	for _, e := range edges {
		out, rec, err := m.FlipEdge(cb, e.From, e.To)
		if err == nil {
			return out, rec, nil
		}
		m.logger.Debug("Flip rejected, drawing another edge", "edge", e.String(), "error", err)
		lastErr = err
	}
	return nil, nil, lastErr
}

// ChangeOutputType changes the declared return type of one node. The edge set
// is left untouched; the change is reported only in TypeDiff.
func (m *Mutator) ChangeOutputType(cb *models.Codebase, node int, newType string) (*models.Codebase, *models.MutationRecord, error) {
	if node < 0 || node >= len(cb.Nodes) {
		return nil, nil, &models.MutationError{Operation: models.OpChangeOutputType, Reason: fmt.Sprintf("node %d does not exist", node)}
	}
	if !synth.IsValueType(newType) {
		return nil, nil, &models.MutationError{Operation: models.OpChangeOutputType, Reason: fmt.Sprintf("unknown output type %q", newType)}
	}
	old := cb.Nodes[node].OutputType
	if old == newType {
		return nil, nil, &models.MutationError{Operation: models.OpChangeOutputType, Reason: fmt.Sprintf("node %d already returns %s", node, newType)}
	}

	out := cb.Clone()
	out.Nodes[node].OutputType = newType
	change := []models.TypeChange{{Node: node, From: old, To: newType}}
	return m.finish(models.OpChangeOutputType, cb, out, models.EdgeDiff{}, change)
}

// RandomOutputType changes the output type of a random node to a random
// different type
func (m *Mutator) RandomOutputType(cb *models.Codebase) (*models.Codebase, *models.MutationRecord, error) {
	if len(cb.Nodes) == 0 {
		return nil, nil, &models.MutationError{Operation: models.OpChangeOutputType, Reason: "codebase has no nodes"}
	}
	node := m.rng.IntN(len(cb.Nodes))
	var choices []string
	for _, t := range synth.TypeNames() {
		if t != cb.Nodes[node].OutputType {
			choices = append(choices, t)
		}
	}
	return m.ChangeOutputType(cb, node, choices[m.rng.IntN(len(choices))])
}

// RemoveCall deletes the edge from->to and its call site
func (m *Mutator) RemoveCall(cb *models.Codebase, from, to int) (*models.Codebase, *models.MutationRecord, error) {
	if !cb.Graph.HasEdge(from, to) {
		return nil, nil, &models.MutationError{Operation: models.OpRemoveCall, Reason: fmt.Sprintf("edge %d->%d does not exist", from, to)}
	}
	out := cb.Clone()
	out.Graph.RemoveEdge(from, to)
	diff := models.EdgeDiff{Removed: []models.Edge{{From: from, To: to}}}
	return m.finish(models.OpRemoveCall, cb, out, diff, nil)
}

// RandomRemoveCall removes a random edge
func (m *Mutator) RandomRemoveCall(cb *models.Codebase) (*models.Codebase, *models.MutationRecord, error) {
	if len(cb.Graph.Edges) == 0 {
		return nil, nil, &models.MutationError{Operation: models.OpRemoveCall, Reason: "graph has no edges"}
	}
	e := cb.Graph.Edges[m.rng.IntN(len(cb.Graph.Edges))]
	return m.RemoveCall(cb, e.From, e.To)
}

// RetargetCall points the call site from->to at newTo instead, keeping its
// position in the caller's body
func (m *Mutator) RetargetCall(cb *models.Codebase, from, to, newTo int) (*models.Codebase, *models.MutationRecord, error) {
	if err := checkRetarget(cb.Graph, from, to, newTo); err != nil {
		return nil, nil, err
	}

	out := cb.Clone()
	for i, e := range out.Graph.Edges {
		if e.From == from && e.To == to {
			out.Graph.Edges[i].To = newTo
			break
		}
	}
	diff := models.EdgeDiff{
		Removed: []models.Edge{{From: from, To: to}},
		Added:   []models.Edge{{From: from, To: newTo}},
	}
	return m.finish(models.OpRetargetCall, cb, out, diff, nil)
}

func checkRetarget(g *models.Graph, from, to, newTo int) error {
	fail := func(format string, args ...any) error {
		return &models.MutationError{Operation: models.OpRetargetCall, Reason: fmt.Sprintf(format, args...)}
	}
	switch {
	case !g.HasEdge(from, to):
		return fail("edge %d->%d does not exist", from, to)
	case newTo < 0 || newTo >= g.NumNodes:
		return fail("node %d does not exist", newTo)
	case newTo == from || newTo == to:
		return fail("cannot retarget %d->%d to %d", from, to, newTo)
	case g.HasEdge(from, newTo):
		return fail("edge %d->%d already exists", from, newTo)
	case g.HasPath(newTo, from):
		return fail("retargeting %d->%d to %d would create a cycle", from, to, newTo)
	}
	return nil
}

// RandomRetarget retargets a random edge to a random valid node
func (m *Mutator) RandomRetarget(cb *models.Codebase) (*models.Codebase, *models.MutationRecord, error) {
	type candidate struct {
		edge  models.Edge
		newTo int
	}
	var candidates []candidate
	for _, e := range cb.Graph.Edges {
		for n := 0; n < cb.Graph.NumNodes; n++ {
			if checkRetarget(cb.Graph, e.From, e.To, n) == nil {
				candidates = append(candidates, candidate{edge: e, newTo: n})
			}
		}
	}
	if len(candidates) == 0 {
		return nil, nil, &models.MutationError{Operation: models.OpRetargetCall, Reason: "no call can be retargeted without creating a cycle"}
	}
	c := candidates[m.rng.IntN(len(candidates))]
	return m.RetargetCall(cb, c.edge.From, c.edge.To, c.newTo)
}

// Apply runs one randomly parameterized operation
func (m *Mutator) Apply(cb *models.Codebase, op models.Operation) (*models.Codebase, *models.MutationRecord, error) {
	switch op {
	case models.OpSafeFlip:
		return m.SafeFlip(cb)
	case models.OpFlipEdge:
		return m.RandomFlip(cb)
	case models.OpChangeOutputType:
		return m.RandomOutputType(cb)
	case models.OpRemoveCall:
		return m.RandomRemoveCall(cb)
	case models.OpRetargetCall:
		return m.RandomRetarget(cb)
	}
	return nil, nil, &models.MutationError{Operation: op, Reason: "unknown operation"}
}

// ApplyN applies exactly n operations drawn from weights, each to the result
// of the previous one. Any failing step fails the whole call.
func (m *Mutator) ApplyN(cb *models.Codebase, n int, weights Weights) (*models.Codebase, []*models.MutationRecord, error) {
	if n < 0 {
		return nil, nil, &models.MutationError{Reason: fmt.Sprintf("negative change count %d", n)}
	}
	ops, total := weightedOps(weights)
	if n > 0 && total <= 0 {
		return nil, nil, &models.MutationError{Reason: "no operation has a positive weight"}
	}

	current := cb
	records := make([]*models.MutationRecord, 0, n)
	for i := 0; i < n; i++ {
		op := m.draw(ops, weights, total)
		next, rec, err := m.Apply(current, op)
		if err != nil {
			return nil, nil, fmt.Errorf("mutation %d of %d: %w", i+1, n, err)
		}
		records = append(records, rec)
		current = next
	}
	if n == 0 {
		current = cb.Clone()
	}
	return current, records, nil
}

// weightedOps returns the operations with positive weight in a fixed order so
// draws are reproducible
func weightedOps(weights Weights) ([]models.Operation, float64) {
	all := []models.Operation{
		models.OpFlipEdge, models.OpSafeFlip, models.OpChangeOutputType,
		models.OpRemoveCall, models.OpRetargetCall,
	}
	var ops []models.Operation
	total := 0.0
	for _, op := range all {
		if w := weights[op]; w > 0 {
			ops = append(ops, op)
			total += w
		}
	}
	return ops, total
}

func (m *Mutator) draw(ops []models.Operation, weights Weights, total float64) models.Operation {
	r := m.rng.Float64() * total
	for _, op := range ops {
		r -= weights[op]
		if r < 0 {
			return op
		}
	}
	return ops[len(ops)-1]
}

func (m *Mutator) finish(op models.Operation, before, after *models.Codebase, diff models.EdgeDiff, types []models.TypeChange) (*models.Codebase, *models.MutationRecord, error) {
	src, err := synth.Render(after)
	if err != nil {
		return nil, nil, &models.MutationError{Operation: op, Reason: fmt.Sprintf("re-render failed: %v", err)}
	}
	after.Source = src

	rec := &models.MutationRecord{
		Operation: op,
		Before:    before.Graph.Clone(),
		After:     after.Graph.Clone(),
		Diff:      diff,
		TypeDiff:  types,
	}
	m.logger.Debug("Applied mutation",
		"operation", op,
		"added", diff.Added,
		"removed", diff.Removed,
		"type_changes", len(types))
	return after, rec, nil
}
