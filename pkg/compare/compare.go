package compare

import (
	"fmt"

	"github.com/smith-xyz/topobench/pkg/models"
)

// exhaustiveLimit is the largest node count searched over every permutation
const exhaustiveLimit = 8

// Normalize turns an adjacency into a duplicate-free edge list over 0..n-1.
// Every dropped pair is reported as an anomaly.
func Normalize(adj models.Adjacency, numNodes int, policy Policy) ([]models.Edge, []models.Anomaly) {
	var anomalies []models.Anomaly
	if len(adj.From) != len(adj.To) {
		anomalies = append(anomalies, models.Anomaly{
			Kind:   models.AnomalyMisaligned,
			Detail: fmt.Sprintf("from has %d entries, to has %d; extra entries ignored", len(adj.From), len(adj.To)),
		})
	}

	seen := make(map[models.Edge]bool)
	var edges []models.Edge
	for _, e := range adj.Pairs() {
		switch {
		case policy.excluded(e.From) || policy.excluded(e.To):
			anomalies = append(anomalies, models.Anomaly{Kind: models.AnomalyExcluded, Edge: e})
		case e.From < 0 || e.From >= numNodes || e.To < 0 || e.To >= numNodes:
			anomalies = append(anomalies, models.Anomaly{Kind: models.AnomalyUnknownNode, Edge: e})
		case e.From == e.To:
			anomalies = append(anomalies, models.Anomaly{Kind: models.AnomalySelfEdge, Edge: e})
		case seen[e]:
			anomalies = append(anomalies, models.Anomaly{Kind: models.AnomalyDuplicate, Edge: e})
		default:
			seen[e] = true
			edges = append(edges, e)
		}
	}
	return edges, anomalies
}

// Compare scores a candidate adjacency against gold under the policy.
//
// Match is the share of gold edges found and precision the share of candidate
// edges that are correct, both as percentages. An empty side makes its ratio
// vacuously 100.
func Compare(candidate models.Adjacency, gold *models.Graph, policy Policy) models.ScoreReport {
	cand, anomalies := Normalize(candidate, gold.NumNodes, policy)
	goldEdges, _ := Normalize(gold.Adjacency(), gold.NumNodes, policy)

	report := models.ScoreReport{
		Anomalies: anomalies,
		Alignment: string(AlignStrict),
	}

	if policy.Alignment == AlignPermutation {
		perm := bestPermutation(cand, goldEdges, gold.NumNodes)
		cand = relabel(cand, perm)
		report.Alignment = string(AlignPermutation)
		report.Permutation = perm
	}

	goldSet := make(map[models.Edge]bool, len(goldEdges))
	for _, e := range goldEdges {
		goldSet[e] = true
	}
	candSet := make(map[models.Edge]bool, len(cand))
	for _, e := range cand {
		candSet[e] = true
		if goldSet[e] {
			report.Intersection++
		} else {
			report.Extra = append(report.Extra, e)
		}
	}
	for _, e := range goldEdges {
		if !candSet[e] {
			report.Missing = append(report.Missing, e)
		}
	}
	report.Missing = models.SortEdges(report.Missing)
	report.Extra = models.SortEdges(report.Extra)

	report.CandidateEdges = len(cand)
	report.GoldEdges = len(goldEdges)
	report.MatchPercentage = percentage(report.Intersection, report.GoldEdges)
	report.Precision = percentage(report.Intersection, report.CandidateEdges)
	report.Exact = len(report.Missing) == 0 && len(report.Extra) == 0
	return report
}

// ScoreCandidate compares a parsed candidate, carrying over the anomalies
// found while resolving its names
func ScoreCandidate(c *Candidate, gold *models.Graph, policy Policy) models.ScoreReport {
	report := Compare(c.Adjacency, gold, policy)
	if len(c.Anomalies) > 0 {
		report.Anomalies = append(append([]models.Anomaly(nil), c.Anomalies...), report.Anomalies...)
	}
	return report
}

// Unparsed is the score recorded when the response could not be parsed at
// all: nothing matches, nothing is precise and nothing is exact.
func Unparsed(gold *models.Graph, policy Policy) models.ScoreReport {
	goldEdges, _ := Normalize(gold.Adjacency(), gold.NumNodes, policy)
	alignment := policy.Alignment
	if alignment == "" {
		alignment = AlignStrict
	}
	return models.ScoreReport{
		GoldEdges: len(goldEdges),
		Missing:   models.SortEdges(goldEdges),
		Alignment: string(alignment),
	}
}

func percentage(part, whole int) float64 {
	if whole == 0 {
		return 100
	}
	return 100 * float64(part) / float64(whole)
}

func relabel(edges []models.Edge, perm []int) []models.Edge {
	out := make([]models.Edge, len(edges))
	for i, e := range edges {
		out[i] = models.Edge{From: perm[e.From], To: perm[e.To]}
	}
	return out
}

func overlap(edges []models.Edge, perm []int, gold map[models.Edge]bool) int {
	n := 0
	for _, e := range edges {
		if gold[models.Edge{From: perm[e.From], To: perm[e.To]}] {
			n++
		}
	}
	return n
}

// bestPermutation finds perm mapping candidate ids to gold ids that
// maximizes the shared edges. Ties keep the lexicographically smallest
// permutation, so the identity wins when it is optimal.
func bestPermutation(cand, gold []models.Edge, n int) []int {
	identity := make([]int, n)
	for i := range identity {
		identity[i] = i
	}
	goldSet := make(map[models.Edge]bool, len(gold))
	for _, e := range gold {
		goldSet[e] = true
	}
	if overlap(cand, identity, goldSet) == len(gold) && len(cand) == len(gold) {
		return identity
	}

	goldGraph := &models.Graph{NumNodes: n, Edges: gold}
	candGraph := &models.Graph{NumNodes: n, Edges: cand}
	if perm, ok := goldGraph.FindIsomorphism(candGraph); ok {
		return perm
	}

	if n <= exhaustiveLimit {
		return exhaustive(cand, goldSet, n)
	}
	return hillClimb(cand, goldSet, identity)
}

func exhaustive(cand []models.Edge, gold map[models.Edge]bool, n int) []int {
	perm := make([]int, n)
	used := make([]bool, n)
	best := make([]int, n)
	bestScore := -1

	var place func(pos int)
	place = func(pos int) {
		if pos == n {
			if s := overlap(cand, perm, gold); s > bestScore {
				bestScore = s
				copy(best, perm)
			}
			return
		}
		for v := 0; v < n; v++ {
			if used[v] {
				continue
			}
			used[v] = true
			perm[pos] = v
			place(pos + 1)
			used[v] = false
		}
	}
	place(0)
	return best
}

// hillClimb improves a starting permutation by pairwise swaps until no swap
// increases the overlap
func hillClimb(cand []models.Edge, gold map[models.Edge]bool, start []int) []int {
	perm := append([]int(nil), start...)
	score := overlap(cand, perm, gold)
	for improved := true; improved; {
		improved = false
		for i := 0; i < len(perm); i++ {
			for j := i + 1; j < len(perm); j++ {
				perm[i], perm[j] = perm[j], perm[i]
				if s := overlap(cand, perm, gold); s > score {
					score = s
					improved = true
				} else {
					perm[i], perm[j] = perm[j], perm[i]
				}
			}
		}
	}
	return perm
}
