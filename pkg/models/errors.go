package models

import "fmt"

// InvalidTopologyError reports bad generator parameters
type InvalidTopologyError struct {
	Kind     string
	NumNodes int
	Reason   string
}

func (e *InvalidTopologyError) Error() string {
	return fmt.Sprintf("invalid topology %q with %d nodes: %s", e.Kind, e.NumNodes, e.Reason)
}

// MutationError reports that no valid mutation could be applied
type MutationError struct {
	Operation Operation
	Reason    string
}

func (e *MutationError) Error() string {
	return fmt.Sprintf("mutation %s failed: %s", e.Operation, e.Reason)
}

// AdjacencyParseError reports a model response that does not conform to the
// adjacency interchange format
type AdjacencyParseError struct {
	Reason string
	Err    error
}

func (e *AdjacencyParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("adjacency parse error: %s: %v", e.Reason, e.Err)
	}
	return "adjacency parse error: " + e.Reason
}

func (e *AdjacencyParseError) Unwrap() error {
	return e.Err
}

// TestExecutionError reports a failure of the test runner itself, as opposed
// to a failing or panicking test
type TestExecutionError struct {
	Stage  string
	Output string
	Err    error
}

func (e *TestExecutionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("test execution failed during %s: %v", e.Stage, e.Err)
	}
	return "test execution failed during " + e.Stage
}

func (e *TestExecutionError) Unwrap() error {
	return e.Err
}
