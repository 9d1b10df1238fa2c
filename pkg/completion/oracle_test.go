package completion

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smith-xyz/topobench/pkg/compare"
	"github.com/smith-xyz/topobench/pkg/synth"
	"github.com/smith-xyz/topobench/pkg/topology"
)

func TestOracleAnswersExactly(t *testing.T) {
	for _, semantic := range []bool{false, true} {
		g, err := topology.Generate(topology.Random, 12, topology.Options{MaxFanout: 3, ExtraEdgeProbability: 0.4, Seed: 9})
		require.NoError(t, err)
		opts := synth.DefaultOptions()
		opts.Seed = 9
		cb, err := synth.NewSynthesizer(opts, nil).Synthesize(g, semantic)
		require.NoError(t, err)

		reply, err := NewOracle().Complete(context.Background(), []Message{
			{Role: RoleSystem, Content: "json"},
			{Role: RoleUser, Content: "Describe this:\n\n```go\n" + cb.Source + "```\n"},
		})
		require.NoError(t, err)

		cand, err := compare.ParseCandidate(reply, cb)
		require.NoError(t, err)
		report := compare.ScoreCandidate(cand, cb.Graph, compare.DefaultPolicy())
		assert.True(t, report.Exact, "semantic=%v missing=%v extra=%v", semantic, report.Missing, report.Extra)
		assert.False(t, report.HasAnomalies())
	}
}

func TestOracleWithoutSource(t *testing.T) {
	_, err := NewOracle().Complete(context.Background(), []Message{{Role: RoleUser, Content: "no code here"}})
	require.Error(t, err)
	assert.True(t, IsPermanent(err))
}

func TestLastGoBlockPrefersLatestUserTurn(t *testing.T) {
	src, ok := lastGoBlock([]Message{
		{Role: RoleUser, Content: "```go\nfirst\n```"},
		{Role: RoleAssistant, Content: "```go\nassistant\n```"},
		{Role: RoleUser, Content: "```go\nsecond\n```"},
	})
	require.True(t, ok)
	assert.Equal(t, "second\n", src)
}
