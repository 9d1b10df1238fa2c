package models

// AnomalyKind classifies malformed content in a candidate adjacency
type AnomalyKind string

const (
	AnomalySelfEdge     AnomalyKind = "self_edge"
	AnomalyDuplicate    AnomalyKind = "duplicate_edge"
	AnomalyUnknownNode  AnomalyKind = "unknown_node"
	AnomalyExcluded     AnomalyKind = "excluded_node"
	AnomalyMisaligned   AnomalyKind = "misaligned_sequences"
	AnomalyUnresolvable AnomalyKind = "unresolvable_name"
)

// Anomaly records one normalization decision so nothing is dropped silently
type Anomaly struct {
	Kind   AnomalyKind `json:"kind"`
	Edge   Edge        `json:"edge"`
	Detail string      `json:"detail,omitempty"`
}

// ScoreReport is the result of comparing a candidate adjacency with gold.
// MatchPercentage and Precision are percentages in [0, 100].
type ScoreReport struct {
	MatchPercentage    float64   `json:"match_percentage"`
	Precision          float64   `json:"precision"`
	Exact              bool      `json:"exact"`
	Intersection       int       `json:"intersection"`
	CandidateEdges     int       `json:"candidate_edges"`
	GoldEdges          int       `json:"gold_edges"`
	Missing            []Edge    `json:"missing,omitempty"`
	Extra              []Edge    `json:"extra,omitempty"`
	Anomalies          []Anomaly `json:"anomalies,omitempty"`
	Alignment          string    `json:"alignment"`
	Permutation        []int     `json:"permutation,omitempty"`
	ExceptionMatchRate float64   `json:"exception_match_rate"`
}

// HasAnomalies reports whether normalization had to discard anything
func (r *ScoreReport) HasAnomalies() bool {
	return len(r.Anomalies) > 0
}
