package topology

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smith-xyz/topobench/pkg/models"
)

func TestGenerateChain(t *testing.T) {
	for _, n := range []int{1, 2, 5, 17} {
		g, err := Generate(Chain, n, Options{})
		require.NoError(t, err)

		assert.Len(t, g.Edges, n-1, "chain of %d nodes", n)
		for i, e := range g.Edges {
			assert.Equal(t, models.Edge{From: i, To: i + 1}, e)
		}
		for i := 0; i < n-1; i++ {
			assert.Equal(t, 1, g.OutDegree(i))
		}
		assert.Equal(t, 0, g.OutDegree(n-1))
		assert.True(t, g.HasPath(0, n-1))
	}
}

func TestGenerateChainFiveNodes(t *testing.T) {
	g, err := Generate(Chain, 5, Options{Seed: 99})
	require.NoError(t, err)
	assert.Equal(t, []models.Edge{{From: 0, To: 1}, {From: 1, To: 2}, {From: 2, To: 3}, {From: 3, To: 4}}, g.Edges)
}

func TestGenerateBranchIsTree(t *testing.T) {
	for seed := uint64(0); seed < 50; seed++ {
		for _, fanout := range []int{1, 2, 3} {
			g, err := Generate(Branch, 12, Options{MaxFanout: fanout, Seed: seed})
			require.NoError(t, err)

			assert.Equal(t, 0, g.InDegree(0), "root has no parent")
			for i := 1; i < g.NumNodes; i++ {
				assert.Equal(t, 1, g.InDegree(i), "seed %d node %d", seed, i)
			}
			assert.True(t, g.IsAcyclic())
			assert.LessOrEqual(t, g.MaxOutDegree(), fanout)
		}
	}
}

func TestGenerateRandomIsConnectedDAG(t *testing.T) {
	for seed := uint64(0); seed < 50; seed++ {
		g, err := Generate(Random, 15, Options{MaxFanout: 3, ExtraEdgeProbability: 0.5, Seed: seed})
		require.NoError(t, err)

		assert.True(t, g.IsAcyclic(), "seed %d", seed)
		assert.True(t, g.IsWeaklyConnected(), "seed %d", seed)
		assert.LessOrEqual(t, g.MaxOutDegree(), 3)
		for _, e := range g.Edges {
			assert.Less(t, e.From, e.To, "edges go from lower to higher id")
		}
		for i := 1; i < g.NumNodes; i++ {
			assert.GreaterOrEqual(t, g.InDegree(i), 1)
		}
	}
}

func TestGenerateIsDeterministic(t *testing.T) {
	opts := Options{MaxFanout: 2, ExtraEdgeProbability: 0.4, Seed: 7}
	a, err := Generate(Random, 20, opts)
	require.NoError(t, err)
	b, err := Generate(Random, 20, opts)
	require.NoError(t, err)
	assert.Equal(t, a.Edges, b.Edges)
}

func TestGenerateErrors(t *testing.T) {
	tests := []struct {
		name string
		kind Kind
		n    int
		opts Options
	}{
		{"zero nodes", Chain, 0, Options{}},
		{"negative nodes", Branch, -3, Options{}},
		{"unknown kind", Kind("star"), 4, Options{}},
		{"negative fanout", Random, 4, Options{MaxFanout: -1}},
		{"probability above one", Random, 4, Options{ExtraEdgeProbability: 1.5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Generate(tt.kind, tt.n, tt.opts)
			var topoErr *models.InvalidTopologyError
			assert.True(t, errors.As(err, &topoErr), "got %v", err)
		})
	}
}

func TestParseKind(t *testing.T) {
	k, err := ParseKind(" Branch ")
	require.NoError(t, err)
	assert.Equal(t, Branch, k)

	_, err = ParseKind("mesh")
	var topoErr *models.InvalidTopologyError
	assert.ErrorAs(t, err, &topoErr)
}
