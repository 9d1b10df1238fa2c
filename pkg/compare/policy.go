// Package compare scores candidate adjacencies against a gold graph.
package compare

import (
	"fmt"
	"strings"
)

// Alignment selects how candidate node ids are matched to gold ids
type Alignment string

const (
	// AlignStrict compares ids exactly as given. A renumbered but otherwise
	// correct answer scores as a mismatch.
	AlignStrict Alignment = "strict"
	// AlignPermutation relabels candidate nodes to maximize overlap first
	AlignPermutation Alignment = "permutation"
)

// SentinelID is the id assigned to the entry point when a candidate names it
const SentinelID = -1

// NodePredicate selects node ids to drop before scoring
type NodePredicate func(id int) bool

// Policy is the normalization contract applied to both sides of a comparison
type Policy struct {
	Alignment Alignment
	Exclude   []NodePredicate
}

// DefaultPolicy uses strict ids and drops the entry point sentinel
func DefaultPolicy() Policy {
	return Policy{
		Alignment: AlignStrict,
		Exclude:   []NodePredicate{ExcludeIDs(SentinelID)},
	}
}

// ParseAlignment validates a configured alignment name
func ParseAlignment(name string) (Alignment, error) {
	switch a := Alignment(strings.ToLower(strings.TrimSpace(name))); a {
	case "", AlignStrict:
		return AlignStrict, nil
	case AlignPermutation:
		return AlignPermutation, nil
	default:
		return "", fmt.Errorf("unknown alignment mode %q (want strict or permutation)", name)
	}
}

// ExcludeIDs drops the listed node ids
func ExcludeIDs(ids ...int) NodePredicate {
	set := make(map[int]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return func(id int) bool { return set[id] }
}

// ExcludeNames drops the nodes the resolver maps the given names to
func ExcludeNames(resolve func(string) (int, bool), names ...string) NodePredicate {
	var ids []int
	for _, name := range names {
		if id, ok := resolve(name); ok {
			ids = append(ids, id)
		}
	}
	return ExcludeIDs(ids...)
}

func (p Policy) excluded(id int) bool {
	for _, pred := range p.Exclude {
		if pred(id) {
			return true
		}
	}
	return false
}
