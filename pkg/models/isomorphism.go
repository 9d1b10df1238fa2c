package models

import "sort"

// EqualUpToPermutation reports whether some relabeling of other's nodes makes
// its edge set equal to g's. It backtracks over nodes ordered by degree
// signature and prunes on edges between already-mapped nodes.
func (g *Graph) EqualUpToPermutation(other *Graph) bool {
	if other == nil || g.NumNodes != other.NumNodes || len(g.EdgeSet()) != len(other.EdgeSet()) {
		return false
	}
	_, ok := g.FindIsomorphism(other)
	return ok
}

// FindIsomorphism returns perm such that other.Relabel(perm) equals g
func (g *Graph) FindIsomorphism(other *Graph) ([]int, bool) {
	n := g.NumNodes
	if other == nil || other.NumNodes != n {
		return nil, false
	}

	type signature struct{ in, out int }
	sig := func(gr *Graph, node int) signature {
		return signature{in: gr.InDegree(node), out: gr.OutDegree(node)}
	}

	gSet := g.EdgeSet()
	oSet := other.EdgeSet()

	// Order other's nodes so the most constrained are placed first.
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		a, b := sig(other, order[i]), sig(other, order[j])
		return a.in+a.out > b.in+b.out
	})

	perm := make([]int, n)
	for i := range perm {
		perm[i] = -1
	}
	used := make([]bool, n)

	consistent := func(src, dst int) bool {
		for _, placed := range order {
			target := perm[placed]
			if target < 0 {
				continue
			}
			if oSet[Edge{From: src, To: placed}] != gSet[Edge{From: dst, To: target}] {
				return false
			}
			if oSet[Edge{From: placed, To: src}] != gSet[Edge{From: target, To: dst}] {
				return false
			}
		}
		return true
	}

	var place func(idx int) bool
	place = func(idx int) bool {
		if idx == n {
			return true
		}
		src := order[idx]
		want := sig(other, src)
		for dst := 0; dst < n; dst++ {
			if used[dst] || sig(g, dst) != want || !consistent(src, dst) {
				continue
			}
			perm[src] = dst
			used[dst] = true
			if place(idx + 1) {
				return true
			}
			perm[src] = -1
			used[dst] = false
		}
		return false
	}

	if !place(0) {
		return nil, false
	}
	return perm, true
}
