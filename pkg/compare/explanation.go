package compare

import (
	"regexp"
	"strings"

	"github.com/smith-xyz/topobench/pkg/models"
)

var pairPattern = regexp.MustCompile(`([A-Za-z_][A-Za-z0-9_]*|\d+)\s*(?:->|→|=>|,|\bcalls\b|\bto\b)\s*([A-Za-z_][A-Za-z0-9_]*|\d+)`)

// MentionedEdges returns every node pair an explanation refers to, such as
// "1->2", "(1, 2)" or "ParseOrder calls LoadConfig"
func MentionedEdges(explanation string, names NameResolver) []models.Edge {
	var edges []models.Edge
	for pos := 0; pos < len(explanation); {
		loc := pairPattern.FindStringSubmatchIndex(explanation[pos:])
		if loc == nil {
			break
		}
		a := explanation[pos+loc[2] : pos+loc[3]]
		b := explanation[pos+loc[4] : pos+loc[5]]
		from, errA := resolveToken(a, names)
		to, errB := resolveToken(b, names)
		if errA == nil && errB == nil {
			edges = append(edges, models.Edge{From: from, To: to})
		}
		// Restart at the second token so chains like 0->1->2 yield both pairs.
		pos += loc[4]
	}
	return edges
}

// ExplanationMatchRate is the fraction of mutation records the explanation
// identifies. A structural record counts when any edge it added or removed is
// mentioned in either direction; a type record counts when the node and its
// new type are both named. With no records the rate is 1.
func ExplanationMatchRate(records []*models.MutationRecord, explanation string, names NameResolver) float64 {
	if len(records) == 0 {
		return 1
	}

	mentioned := make(map[models.Edge]bool)
	for _, e := range MentionedEdges(explanation, names) {
		mentioned[e] = true
		mentioned[e.Reversed()] = true
	}
	nodes := mentionedNodes(explanation, names)

	hits := 0
	for _, rec := range records {
		if identifies(rec, mentioned, nodes, explanation) {
			hits++
		}
	}
	return float64(hits) / float64(len(records))
}

func identifies(rec *models.MutationRecord, edges map[models.Edge]bool, nodes map[int]bool, explanation string) bool {
	for _, e := range rec.Diff.Removed {
		if edges[e] {
			return true
		}
	}
	for _, e := range rec.Diff.Added {
		if edges[e] {
			return true
		}
	}
	for _, tc := range rec.TypeDiff {
		if nodes[tc.Node] && strings.Contains(explanation, tc.To) {
			return true
		}
	}
	return false
}

var tokenPattern = regexp.MustCompile(`[A-Za-z_][A-Za-z0-9_]*|\d+`)

func mentionedNodes(explanation string, names NameResolver) map[int]bool {
	nodes := make(map[int]bool)
	for _, tok := range tokenPattern.FindAllString(explanation, -1) {
		if id, err := resolveToken(tok, names); err == nil {
			nodes[id] = true
		}
	}
	return nodes
}
