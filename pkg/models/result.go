package models

import (
	"fmt"
	"strconv"
	"time"
)

// ResultFields is the canonical column order of the results log
var ResultFields = []string{
	"timestamp",
	"topology",
	"num_nodes",
	"avg_length",
	"input_tokens",
	"num_changes",
	"correct_initial_adj",
	"correct_adj_after_changes",
	"tests_complete",
	"pf_precision",
	"exception_match_rate",
}

// TimestampLayout matches the results log timestamp format
const TimestampLayout = "2006-01-02 15:04:05"

// ResultRow is one experiment iteration in the results log. Rows are built
// once, after scoring, and never modified.
type ResultRow struct {
	Timestamp              time.Time `json:"timestamp"`
	Topology               string    `json:"topology"`
	NumNodes               int       `json:"num_nodes"`
	AvgLength              int       `json:"avg_length"`
	InputTokens            int       `json:"input_tokens"`
	NumChanges             int       `json:"num_changes"`
	CorrectInitialAdj      bool      `json:"correct_initial_adj"`
	CorrectAdjAfterChanges bool      `json:"correct_adj_after_changes"`
	TestsComplete          bool      `json:"tests_complete"`
	PFPrecision            float64   `json:"pf_precision"`
	ExceptionMatchRate     float64   `json:"exception_match_rate"`
}

// Field returns the string value of one column
func (r ResultRow) Field(name string) (string, error) {
	switch name {
	case "timestamp":
		return r.Timestamp.Format(TimestampLayout), nil
	case "topology":
		return r.Topology, nil
	case "num_nodes":
		return strconv.Itoa(r.NumNodes), nil
	case "avg_length":
		return strconv.Itoa(r.AvgLength), nil
	case "input_tokens":
		return strconv.Itoa(r.InputTokens), nil
	case "num_changes":
		return strconv.Itoa(r.NumChanges), nil
	case "correct_initial_adj":
		return strconv.FormatBool(r.CorrectInitialAdj), nil
	case "correct_adj_after_changes":
		return strconv.FormatBool(r.CorrectAdjAfterChanges), nil
	case "tests_complete":
		return strconv.FormatBool(r.TestsComplete), nil
	case "pf_precision":
		return strconv.FormatFloat(r.PFPrecision, 'f', -1, 64), nil
	case "exception_match_rate":
		return strconv.FormatFloat(r.ExceptionMatchRate, 'f', -1, 64), nil
	}
	return "", fmt.Errorf("unknown result field %q", name)
}

// Values returns the row's columns in the given order
func (r ResultRow) Values(fields []string) ([]string, error) {
	values := make([]string, 0, len(fields))
	for _, f := range fields {
		v, err := r.Field(f)
		if err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	return values, nil
}
