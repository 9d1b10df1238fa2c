package models

// Operation names a structural edit applied by the mutator
type Operation string

const (
	OpFlipEdge         Operation = "flip_edge"
	OpSafeFlip         Operation = "safe_flip"
	OpChangeOutputType Operation = "change_output_type"
	OpRemoveCall       Operation = "remove_call"
	OpRetargetCall     Operation = "retarget_call"
)

// EdgeDiff lists the edges a mutation added and removed
type EdgeDiff struct {
	Added   []Edge `json:"added"`
	Removed []Edge `json:"removed"`
}

// IsEmpty reports whether the diff changes no edges
func (d EdgeDiff) IsEmpty() bool {
	return len(d.Added) == 0 && len(d.Removed) == 0
}

// Flipped returns the removed edges whose reverse was added
func (d EdgeDiff) Flipped() []Edge {
	added := make(map[Edge]bool, len(d.Added))
	for _, e := range d.Added {
		added[e] = true
	}
	var flipped []Edge
	for _, e := range d.Removed {
		if added[e.Reversed()] {
			flipped = append(flipped, e)
		}
	}
	return flipped
}

// TypeChange records a changed output type annotation
type TypeChange struct {
	Node int    `json:"node"`
	From string `json:"from"`
	To   string `json:"to"`
}

// MutationRecord is the ground truth for one applied mutation
type MutationRecord struct {
	Operation Operation    `json:"operation"`
	Before    *Graph       `json:"before"`
	After     *Graph       `json:"after"`
	Diff      EdgeDiff     `json:"diff"`
	TypeDiff  []TypeChange `json:"type_diff,omitempty"`
}

// StructuralChanges counts the edge-level changes, treating a flip as one
func (r *MutationRecord) StructuralChanges() int {
	if r.Diff.IsEmpty() {
		return 0
	}
	n := len(r.Diff.Added)
	if len(r.Diff.Removed) > n {
		n = len(r.Diff.Removed)
	}
	return n
}
