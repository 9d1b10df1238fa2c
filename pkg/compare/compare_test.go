package compare

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smith-xyz/topobench/pkg/models"
)

func chain(n int) *models.Graph {
	g := models.NewGraph(n)
	for i := 0; i+1 < n; i++ {
		_ = g.AddEdge(i, i+1)
	}
	return g
}

func TestCompareGoldAgainstItself(t *testing.T) {
	g := chain(5)
	for _, policy := range []Policy{DefaultPolicy(), {Alignment: AlignPermutation}} {
		r := Compare(g.Adjacency(), g, policy)
		assert.Equal(t, 100.0, r.MatchPercentage)
		assert.Equal(t, 100.0, r.Precision)
		assert.True(t, r.Exact)
		assert.False(t, r.HasAnomalies())
	}
}

func TestCompareEmptyCandidate(t *testing.T) {
	r := Compare(models.Adjacency{From: []int{}, To: []int{}}, chain(4), DefaultPolicy())
	assert.Equal(t, 0.0, r.MatchPercentage)
	assert.Equal(t, 100.0, r.Precision)
	assert.False(t, r.Exact)
	assert.Len(t, r.Missing, 3)
}

func TestUnparsedScoresZero(t *testing.T) {
	r := Unparsed(chain(4), DefaultPolicy())
	assert.Equal(t, 0.0, r.MatchPercentage)
	assert.Equal(t, 0.0, r.Precision)
	assert.False(t, r.Exact)
	assert.Equal(t, 3, r.GoldEdges)
	assert.Len(t, r.Missing, 3)
	assert.Equal(t, string(AlignStrict), r.Alignment)

	assert.False(t, Unparsed(models.NewGraph(1), Policy{Alignment: AlignPermutation}).Exact)
}

func TestCompareBothEmpty(t *testing.T) {
	r := Compare(models.Adjacency{}, models.NewGraph(3), DefaultPolicy())
	assert.Equal(t, 100.0, r.MatchPercentage)
	assert.Equal(t, 100.0, r.Precision)
	assert.True(t, r.Exact)
}

func TestComparePartial(t *testing.T) {
	gold := chain(5)
	cand := models.Adjacency{From: []int{0, 1, 3}, To: []int{1, 2, 0}}

	r := Compare(cand, gold, DefaultPolicy())
	assert.Equal(t, 2, r.Intersection)
	assert.Equal(t, 50.0, r.MatchPercentage)
	assert.InDelta(t, 66.666, r.Precision, 0.01)
	assert.Equal(t, []models.Edge{{From: 2, To: 3}, {From: 3, To: 4}}, r.Missing)
	assert.Equal(t, []models.Edge{{From: 3, To: 0}}, r.Extra)
}

func TestCompareRecordsAnomalies(t *testing.T) {
	gold := chain(3)
	cand := models.Adjacency{
		From: []int{0, 0, 1, 1, 7, SentinelID},
		To:   []int{1, 1, 1, 2, 0, 0},
	}

	r := Compare(cand, gold, DefaultPolicy())
	assert.True(t, r.Exact)
	kinds := map[models.AnomalyKind]int{}
	for _, a := range r.Anomalies {
		kinds[a.Kind]++
	}
	assert.Equal(t, map[models.AnomalyKind]int{
		models.AnomalyDuplicate:   1,
		models.AnomalySelfEdge:    1,
		models.AnomalyUnknownNode: 1,
		models.AnomalyExcluded:    1,
	}, kinds)
}

func TestCompareMisalignedSequences(t *testing.T) {
	r := Compare(models.Adjacency{From: []int{0, 1}, To: []int{1}}, chain(3), DefaultPolicy())
	require.NotEmpty(t, r.Anomalies)
	assert.Equal(t, models.AnomalyMisaligned, r.Anomalies[0].Kind)
	assert.Equal(t, 1, r.CandidateEdges)
}

func TestCompareStrictDoesNotRealign(t *testing.T) {
	gold := chain(3) // 0->1->2
	renumbered := models.Adjacency{From: []int{2, 1}, To: []int{1, 0}}

	strict := Compare(renumbered, gold, DefaultPolicy())
	assert.Equal(t, 0.0, strict.MatchPercentage)
	assert.Equal(t, "strict", strict.Alignment)

	perm := Compare(renumbered, gold, Policy{Alignment: AlignPermutation})
	assert.Equal(t, 100.0, perm.MatchPercentage)
	assert.True(t, perm.Exact)
	assert.Equal(t, []int{2, 1, 0}, perm.Permutation)
}

func TestComparePermutationBestEffort(t *testing.T) {
	gold := chain(4)
	// same chain renumbered plus one wrong edge; no exact relabeling exists
	cand := models.Adjacency{From: []int{3, 2, 1, 0}, To: []int{2, 1, 0, 2}}

	r := Compare(cand, gold, Policy{Alignment: AlignPermutation})
	assert.Equal(t, 3, r.Intersection)
	assert.Equal(t, 100.0, r.MatchPercentage)
	assert.Equal(t, 75.0, r.Precision)
}

func TestComparePermutationLargeGraph(t *testing.T) {
	gold := chain(12)
	perm := []int{11, 10, 9, 8, 7, 6, 5, 4, 3, 2, 1, 0}
	inverse := make([]int, len(perm))
	for i, p := range perm {
		inverse[p] = i
	}
	cand := gold.Relabel(inverse)
	cand.Edges = cand.Edges[1:]

	strict := Compare(cand.Adjacency(), gold, DefaultPolicy())
	r := Compare(cand.Adjacency(), gold, Policy{Alignment: AlignPermutation})
	assert.Equal(t, 0, strict.Intersection)
	assert.Greater(t, r.Intersection, strict.Intersection)
	assert.Equal(t, "permutation", r.Alignment)

	seen := map[int]bool{}
	for _, p := range r.Permutation {
		seen[p] = true
	}
	assert.Len(t, seen, 12)
}

func TestPolicyExclusions(t *testing.T) {
	gold := chain(4)
	policy := Policy{Exclude: []NodePredicate{ExcludeIDs(3)}}

	r := Compare(models.Adjacency{From: []int{0, 1}, To: []int{1, 2}}, gold, policy)
	assert.Equal(t, 2, r.GoldEdges)
	assert.True(t, r.Exact)

	names := map[string]int{"LoadConfig": 2}
	lookup := func(s string) (int, bool) {
		id, ok := names[s]
		return id, ok
	}
	pred := ExcludeNames(lookup, "LoadConfig", "Missing")
	assert.True(t, pred(2))
	assert.False(t, pred(0))
}

func TestParseAlignment(t *testing.T) {
	a, err := ParseAlignment("")
	require.NoError(t, err)
	assert.Equal(t, AlignStrict, a)

	a, err = ParseAlignment(" Permutation ")
	require.NoError(t, err)
	assert.Equal(t, AlignPermutation, a)

	_, err = ParseAlignment("fuzzy")
	assert.Error(t, err)
}

type resolver map[string]int

func (r resolver) ResolveName(name string) (int, bool) {
	id, ok := r[name]
	return id, ok
}

func TestParseCandidateForms(t *testing.T) {
	names := resolver{"ParseOrder": 0, "LoadConfig": 1, "StoreToken": 2}
	want := models.Adjacency{From: []int{0, 1}, To: []int{1, 2}}

	tests := []struct {
		name string
		text string
	}{
		{"envelope", `{"adjacency": {"from": [0, 1], "to": [1, 2]}}`},
		{"bare object", `{"from": [0, 1], "to": [1, 2]}`},
		{"list of pairs", `{"adjacency": [{"from": 0, "to": 1}, {"from": 1, "to": 2}]}`},
		{"top-level list", `[{"from": 0, "to": 1}, {"from": 1, "to": 2}]`},
		{"fenced with prose", "Here you go:\n```json\n{\"adjacency\": {\"from\": [0, 1], \"to\": [1, 2]}}\n```\nDone."},
		{"unfenced with prose", `The graph is {"adjacency": {"from": [0, 1], "to": [1, 2]}} as requested.`},
		{"names", `{"adjacency": {"from": ["ParseOrder", "LoadConfig"], "to": ["LoadConfig", "StoreToken"]}}`},
		{"numeric strings", `{"adjacency": {"from": ["0", "1"], "to": ["1", "2"]}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := ParseCandidate(tt.text, names)
			require.NoError(t, err)
			assert.Equal(t, want, c.Adjacency)
			assert.Empty(t, c.Anomalies)
		})
	}
}

func TestParseCandidateMainAndUnknownNames(t *testing.T) {
	text := `{"adjacency": {"from": ["main", "ParseOrder", "Ghost"], "to": ["ParseOrder", "LoadConfig", "LoadConfig"]},
	"changes": "flipped 1 -> 0", "tests": [{"node": 0, "input": "1", "expected_output": "2"}]}`

	c, err := ParseCandidate(text, resolver{"ParseOrder": 0, "LoadConfig": 1})
	require.NoError(t, err)
	assert.Equal(t, models.Adjacency{From: []int{SentinelID, 0}, To: []int{0, 1}}, c.Adjacency)
	require.Len(t, c.Anomalies, 1)
	assert.Equal(t, models.AnomalyUnresolvable, c.Anomalies[0].Kind)
	assert.Equal(t, "flipped 1 -> 0", c.Explanation)
	assert.JSONEq(t, `[{"node": 0, "input": "1", "expected_output": "2"}]`, string(c.Tests))

	r := ScoreCandidate(c, chain(2), DefaultPolicy())
	assert.True(t, r.Exact)
	assert.Len(t, r.Anomalies, 2)
}

func TestParseCandidateRejectsNonConforming(t *testing.T) {
	for _, text := range []string{
		"I could not determine the graph.",
		`{"adjacency": {"from": [0, 1]}}`,
		`{"edges": 3}`,
		`{"adjacency": [1, 2]}`,
		`{"adjacency": {"from": [0, 1], "to": [1, 2]`,
	} {
		_, err := ParseCandidate(text, nil)
		var parseErr *models.AdjacencyParseError
		assert.True(t, errors.As(err, &parseErr), "text %q: %v", text, err)
	}
}

func TestExplanationMatchRate(t *testing.T) {
	names := resolver{"ParseOrder": 0, "LoadConfig": 1, "StoreToken": 2}
	records := []*models.MutationRecord{
		{Operation: models.OpFlipEdge, Diff: models.EdgeDiff{
			Removed: []models.Edge{{From: 1, To: 2}}, Added: []models.Edge{{From: 2, To: 1}},
		}},
		{Operation: models.OpChangeOutputType, TypeDiff: []models.TypeChange{{Node: 0, From: "int", To: "string"}}},
	}

	assert.Equal(t, 1.0, ExplanationMatchRate(records, "StoreToken calls LoadConfig instead of 1->2; ParseOrder now returns string", names))
	assert.Equal(t, 0.5, ExplanationMatchRate(records, "the edge (2, 1) was reversed", names))
	assert.Equal(t, 0.0, ExplanationMatchRate(records, "nothing changed", names))
	assert.Equal(t, 1.0, ExplanationMatchRate(nil, "", names))
}

func TestMentionedEdgesChains(t *testing.T) {
	got := MentionedEdges("0->1->2 and main -> 3", nil)
	assert.Equal(t, []models.Edge{{From: 0, To: 1}, {From: 1, To: 2}, {From: SentinelID, To: 3}}, got)
}
