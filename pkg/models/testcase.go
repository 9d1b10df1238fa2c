package models

// TestStatus is the classification of one executed test
type TestStatus string

const (
	TestPass    TestStatus = "PASS"
	TestFail    TestStatus = "FAIL"
	TestError   TestStatus = "ERROR"
	TestSkipped TestStatus = "SKIPPED"
)

// TestSpec is a model-authored test: call Node with Input and expect
// ExpectedOutput. Input is a Go expression. ExpectPass and PredictedError are
// the model's own prediction of the outcome.
type TestSpec struct {
	Node           int    `json:"node"`
	NodeName       string `json:"node_name,omitempty"`
	Input          string `json:"input"`
	ExpectedOutput string `json:"expected_output"`
	ExpectPass     *bool  `json:"expect_pass,omitempty"`
	PredictedError string `json:"predicted_error,omitempty"`
}

// TestOutcome is the classified result of one TestSpec
type TestOutcome struct {
	Spec         TestSpec   `json:"spec"`
	Status       TestStatus `json:"status"`
	ActualOutput string     `json:"actual_output,omitempty"`
	ErrorType    string     `json:"error_type,omitempty"`
	Reason       string     `json:"reason,omitempty"`
}

// Passed reports whether the test ran and produced the expected output
func (o TestOutcome) Passed() bool {
	return o.Status == TestPass
}

// Ran reports whether the test was executed at all
func (o TestOutcome) Ran() bool {
	return o.Status != TestSkipped
}

// TestReport aggregates the outcomes of a test run
type TestReport struct {
	Outcomes  []TestOutcome `json:"outcomes"`
	Passed    int           `json:"passed"`
	Failed    int           `json:"failed"`
	Errored   int           `json:"errored"`
	Skipped   int           `json:"skipped"`
	PassRatio float64       `json:"pass_ratio"`
	// ExecutionError is set when the runner itself failed
	ExecutionError string `json:"execution_error,omitempty"`
}

// Tally recomputes the counters and pass ratio from Outcomes. The pass ratio
// is over executed tests; with none executed it is 0.
func (r *TestReport) Tally() {
	r.Passed, r.Failed, r.Errored, r.Skipped = 0, 0, 0, 0
	for _, o := range r.Outcomes {
		switch o.Status {
		case TestPass:
			r.Passed++
		case TestFail:
			r.Failed++
		case TestError:
			r.Errored++
		case TestSkipped:
			r.Skipped++
		}
	}
	ran := r.Passed + r.Failed + r.Errored
	if ran == 0 {
		r.PassRatio = 0
		return
	}
	r.PassRatio = float64(r.Passed) / float64(ran)
}
