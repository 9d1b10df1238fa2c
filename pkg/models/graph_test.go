package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildGraph(t *testing.T, n int, edges ...Edge) *Graph {
	t.Helper()
	g := NewGraph(n)
	for _, e := range edges {
		require.NoError(t, g.AddEdge(e.From, e.To))
	}
	return g
}

func TestAddEdgeValidation(t *testing.T) {
	g := NewGraph(3)
	require.NoError(t, g.AddEdge(0, 1))

	assert.Error(t, g.AddEdge(0, 1), "duplicate")
	assert.Error(t, g.AddEdge(2, 2), "self edge")
	assert.Error(t, g.AddEdge(0, 3), "out of range")
	assert.Error(t, g.AddEdge(-1, 0), "negative id")
	assert.Len(t, g.Edges, 1)
}

func TestTopologicalOrderAndCycles(t *testing.T) {
	g := buildGraph(t, 4, Edge{0, 1}, Edge{1, 2}, Edge{0, 3})
	order, ok := g.TopologicalOrder()
	require.True(t, ok)
	assert.Equal(t, []int{0, 1, 2, 3}, order)

	require.NoError(t, g.AddEdge(2, 0))
	assert.False(t, g.IsAcyclic())
}

func TestHasPath(t *testing.T) {
	g := buildGraph(t, 4, Edge{0, 1}, Edge{1, 2})
	assert.True(t, g.HasPath(0, 2))
	assert.False(t, g.HasPath(2, 0))
	assert.False(t, g.HasPath(0, 3))
	assert.True(t, g.HasPath(3, 3))
}

func TestIsWeaklyConnected(t *testing.T) {
	assert.True(t, NewGraph(1).IsWeaklyConnected())
	assert.True(t, buildGraph(t, 3, Edge{1, 0}, Edge{1, 2}).IsWeaklyConnected())
	assert.False(t, buildGraph(t, 3, Edge{0, 1}).IsWeaklyConnected())
}

func TestCloneIsIndependent(t *testing.T) {
	g := buildGraph(t, 3, Edge{0, 1})
	c := g.Clone()
	require.NoError(t, c.AddEdge(1, 2))
	c.RemoveEdge(0, 1)

	assert.Equal(t, []Edge{{0, 1}}, g.Edges)
	assert.Equal(t, []Edge{{1, 2}}, c.Edges)
}

func TestEqualIgnoresOrder(t *testing.T) {
	a := buildGraph(t, 3, Edge{0, 1}, Edge{1, 2})
	b := buildGraph(t, 3, Edge{1, 2}, Edge{0, 1})
	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(buildGraph(t, 3, Edge{0, 1})))
}

func TestEqualUpToPermutation(t *testing.T) {
	chain := buildGraph(t, 4, Edge{0, 1}, Edge{1, 2}, Edge{2, 3})
	renumbered := buildGraph(t, 4, Edge{3, 0}, Edge{0, 2}, Edge{2, 1})
	assert.True(t, chain.EqualUpToPermutation(renumbered))

	perm, ok := renumbered.FindIsomorphism(chain)
	require.True(t, ok)
	assert.True(t, chain.Relabel(perm).Equal(renumbered))

	star := buildGraph(t, 4, Edge{0, 1}, Edge{0, 2}, Edge{0, 3})
	assert.False(t, chain.EqualUpToPermutation(star))

	reversed := buildGraph(t, 4, Edge{1, 0}, Edge{2, 1}, Edge{3, 2})
	assert.True(t, chain.EqualUpToPermutation(reversed), "a reversed path is still a path")
}

func TestEnvelopeRoundTrip(t *testing.T) {
	g := buildGraph(t, 4, Edge{0, 1}, Edge{1, 2}, Edge{2, 3})
	data, err := MarshalEnvelope(g)
	require.NoError(t, err)
	assert.Equal(t, `{"adjacency":{"from":[0,1,2],"to":[1,2,3]}}`, string(data))

	adj, err := UnmarshalEnvelope(data)
	require.NoError(t, err)
	back, err := GraphFromAdjacency(4, adj)
	require.NoError(t, err)
	assert.Equal(t, g.Edges, back.Edges)
}

func TestEnvelopeEmptyGraph(t *testing.T) {
	data, err := MarshalEnvelope(NewGraph(1))
	require.NoError(t, err)
	assert.Equal(t, `{"adjacency":{"from":[],"to":[]}}`, string(data))
}

func TestUnmarshalEnvelopeErrors(t *testing.T) {
	for _, raw := range []string{
		`not json`,
		`{"nodes": []}`,
		`{"adjacency": {"from": [1]}}`,
		`{"adjacency": {"from": [1, 2], "to": [3]}}`,
	} {
		_, err := UnmarshalEnvelope([]byte(raw))
		var parseErr *AdjacencyParseError
		assert.ErrorAs(t, err, &parseErr, raw)
	}
}

func TestEdgeDiffFlipped(t *testing.T) {
	d := EdgeDiff{Removed: []Edge{{1, 2}, {3, 4}}, Added: []Edge{{2, 1}}}
	assert.Equal(t, []Edge{{1, 2}}, d.Flipped())
	assert.False(t, d.IsEmpty())
	assert.True(t, EdgeDiff{}.IsEmpty())
}

func TestResultRowValues(t *testing.T) {
	row := ResultRow{Topology: "chain", NumNodes: 5, PFPrecision: 0.5, CorrectInitialAdj: true}
	values, err := row.Values([]string{"topology", "num_nodes", "correct_initial_adj", "pf_precision"})
	require.NoError(t, err)
	assert.Equal(t, []string{"chain", "5", "true", "0.5"}, values)

	_, err = row.Values([]string{"bogus"})
	assert.Error(t, err)
}

func TestTestReportTally(t *testing.T) {
	r := &TestReport{Outcomes: []TestOutcome{
		{Status: TestPass}, {Status: TestFail}, {Status: TestError}, {Status: TestSkipped}, {Status: TestPass},
	}}
	r.Tally()
	assert.Equal(t, 2, r.Passed)
	assert.Equal(t, 1, r.Failed)
	assert.Equal(t, 1, r.Errored)
	assert.Equal(t, 1, r.Skipped)
	assert.InDelta(t, 0.5, r.PassRatio, 1e-9)
}
