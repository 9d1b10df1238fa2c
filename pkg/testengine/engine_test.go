package testengine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smith-xyz/topobench/pkg/models"
	"github.com/smith-xyz/topobench/pkg/synth"
)

// fixture is Function_0(int) int returning parameter*2, which calls
// Function_1(string) int returning len(parameter)*2
func fixture(t *testing.T) *models.Codebase {
	t.Helper()
	g := models.NewGraph(2)
	require.NoError(t, g.AddEdge(0, 1))

	opts := synth.DefaultOptions()
	opts.StructProbability = 0
	cb, err := synth.NewSynthesizer(opts, nil).Synthesize(g, false)
	require.NoError(t, err)

	cb.Nodes[0].InputType, cb.Nodes[0].OutputType, cb.Nodes[0].Variant = "int", "int", 0
	cb.Nodes[1].InputType, cb.Nodes[1].OutputType, cb.Nodes[1].Variant = "string", "int", 0
	cb.Source, err = synth.Render(cb)
	require.NoError(t, err)
	return cb
}

func boolPtr(b bool) *bool { return &b }

type stubRunner struct {
	files  map[string][]byte
	stdout string
	err    error
}

func (s *stubRunner) Run(_ context.Context, files map[string][]byte) ([]byte, error) {
	s.files = files
	return []byte(s.stdout), s.err
}

func TestRunClassifiesOutcomes(t *testing.T) {
	cb := fixture(t)
	specs := []models.TestSpec{
		{Node: 0, Input: "3", ExpectedOutput: "6", ExpectPass: boolPtr(true)},
		{Node: 0, Input: "3", ExpectedOutput: "7", ExpectPass: boolPtr(false), PredictedError: MismatchErrorType},
		{Node: 1, Input: `"abc"`, ExpectedOutput: "6", ExpectPass: boolPtr(true)},
		{Node: 9, Input: "1"},
		{Node: 1, Input: "42"},
	}
	runner := &stubRunner{stdout: strings.Join([]string{
		`{"index":0,"status":"PASS","output":"6"}`,
		`{"index":1,"status":"FAIL","output":"6"}`,
		`{"index":2,"status":"ERROR","error_type":"runtime.boundsError","message":"index out of range"}`,
	}, "\n")}

	report, err := NewEngine(runner, nil).Run(context.Background(), cb, specs)
	require.NoError(t, err)

	statuses := make([]models.TestStatus, len(report.Outcomes))
	for i, o := range report.Outcomes {
		statuses[i] = o.Status
	}
	assert.Equal(t, []models.TestStatus{
		models.TestPass, models.TestFail, models.TestError, models.TestSkipped, models.TestSkipped,
	}, statuses)
	assert.Equal(t, "callable missing", report.Outcomes[3].Reason)
	assert.Contains(t, report.Outcomes[4].Reason, "signature mismatch")
	assert.Equal(t, "runtime.boundsError", report.Outcomes[2].ErrorType)
	assert.Equal(t, MismatchErrorType, report.Outcomes[1].ErrorType)

	assert.Equal(t, 1, report.Passed)
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, 1, report.Errored)
	assert.Equal(t, 2, report.Skipped)
	assert.InDelta(t, 1.0/3.0, report.PassRatio, 1e-9)
	assert.Empty(t, report.ExecutionError)

	main := string(runner.files["main.go"])
	assert.NotContains(t, main, "func main()")
	assert.Contains(t, main, "func Function_0(")
	harness := string(runner.files[harnessFile])
	assert.Contains(t, harness, "Function_0(3)")
	assert.Contains(t, harness, `Function_1("abc")`)
	assert.NotContains(t, harness, "42")
}

func TestRunRunnerFailureIsError(t *testing.T) {
	cb := fixture(t)
	specs := []models.TestSpec{
		{Node: 0, Input: "1", ExpectedOutput: "2"},
		{Node: 0, Input: "2", ExpectedOutput: "4"},
	}
	runner := &stubRunner{
		stdout: `{"index":0,"status":"PASS","output":"2"}`,
		err:    errors.New("signal: killed"),
	}

	report, err := NewEngine(runner, nil).Run(context.Background(), cb, specs)
	require.NoError(t, err)
	assert.Equal(t, models.TestPass, report.Outcomes[0].Status)
	assert.Equal(t, models.TestError, report.Outcomes[1].Status)
	assert.Equal(t, "TestExecutionError", report.Outcomes[1].ErrorType)
	assert.Contains(t, report.ExecutionError, "signal: killed")
}

func TestRunWithoutRunnableTestsSkipsRunner(t *testing.T) {
	runner := &stubRunner{}
	report, err := NewEngine(runner, nil).Run(context.Background(), fixture(t), []models.TestSpec{{Node: -1}})
	require.NoError(t, err)
	assert.Nil(t, runner.files)
	assert.Equal(t, 1, report.Skipped)
	assert.Zero(t, report.PassRatio)
}

func TestRunRejectsBrokenCodebase(t *testing.T) {
	cb := fixture(t)
	cb.Source = "package main\nfunc main() { missing() }\n"
	_, err := NewEngine(&stubRunner{}, nil).Run(context.Background(), cb, nil)
	assert.Error(t, err)
}

func TestGoRunnerEndToEnd(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping go run in short mode")
	}
	if _, err := exec.LookPath("go"); err != nil {
		t.Skip("go toolchain not available")
	}

	cb := fixture(t)
	specs := []models.TestSpec{
		{Node: 0, Input: "3", ExpectedOutput: "6", ExpectPass: boolPtr(true)},
		{Node: 0, Input: "3", ExpectedOutput: "7", ExpectPass: boolPtr(false), PredictedError: MismatchErrorType},
		{Node: 1, Input: `func() string { panic("boom") }()`, ExpectedOutput: "0", ExpectPass: boolPtr(false), PredictedError: "string"},
	}

	engine := NewEngine(NewGoRunner("go", 2*time.Minute), nil)
	report, err := engine.Run(context.Background(), cb, specs)
	require.NoError(t, err)
	require.Empty(t, report.ExecutionError)

	assert.Equal(t, models.TestPass, report.Outcomes[0].Status)
	assert.Equal(t, models.TestFail, report.Outcomes[1].Status)
	assert.Equal(t, "6", report.Outcomes[1].ActualOutput)
	assert.Equal(t, models.TestError, report.Outcomes[2].Status)
	assert.Equal(t, "string", report.Outcomes[2].ErrorType)

	assert.Equal(t, 1.0, PassFailPrecision(report))
	assert.Equal(t, 1.0, ExceptionMatchRate(report))
}

func TestModuleFile(t *testing.T) {
	data, err := ModuleFile("topobench.local/harness", "1.22")
	require.NoError(t, err)
	assert.Contains(t, string(data), "module topobench.local/harness")
	assert.Contains(t, string(data), "go 1.22")
}

type names map[string]int

func (n names) ResolveName(name string) (int, bool) {
	id, ok := n[name]
	return id, ok
}

func TestNormalizeTestsForms(t *testing.T) {
	resolver := names{"ParseOrder": 0, "LoadConfig": 1}

	list := `[
		{"node": 0, "input": "3", "expected_output": 6, "result": "pass"},
		{"name": "LoadConfig", "input": "\"x\"", "expected": "2", "result": "fail", "error": "OutputMismatch"},
		"not an object"
	]`
	specs, err := NormalizeTests(json.RawMessage(list), resolver)
	require.NoError(t, err)
	require.Len(t, specs, 2)
	assert.Equal(t, 0, specs[0].Node)
	assert.Equal(t, "6", specs[0].ExpectedOutput)
	require.NotNil(t, specs[0].ExpectPass)
	assert.True(t, *specs[0].ExpectPass)
	assert.Equal(t, 1, specs[1].Node)
	assert.Equal(t, "LoadConfig", specs[1].NodeName)
	assert.Equal(t, `"x"`, specs[1].Input)
	assert.False(t, *specs[1].ExpectPass)
	assert.Equal(t, "OutputMismatch", specs[1].PredictedError)

	columns := `{"target": [0, 1, 1], "input": ["1", "2"], "result": ["pass", "fail", "pass"], "note": "ignored"}`
	specs, err = NormalizeTests(json.RawMessage(columns), resolver)
	require.NoError(t, err)
	require.Len(t, specs, 2)
	assert.Equal(t, 1, specs[1].Node)
	assert.Equal(t, "2", specs[1].Input)

	specs, err = NormalizeTests(json.RawMessage(`[{"node": "Ghost", "input": "1"}]`), resolver)
	require.NoError(t, err)
	assert.Equal(t, -1, specs[0].Node)

	specs, err = NormalizeTests(nil, resolver)
	require.NoError(t, err)
	assert.Empty(t, specs)

	specs, err = NormalizeTests(json.RawMessage(`42`), resolver)
	require.NoError(t, err)
	assert.Empty(t, specs)

	_, err = NormalizeTests(json.RawMessage(`[{`), resolver)
	assert.Error(t, err)
}

func TestStaticCompleteness(t *testing.T) {
	full := func(n int) []models.TestSpec {
		var specs []models.TestSpec
		for i := 0; i < n; i++ {
			specs = append(specs,
				models.TestSpec{Node: i, Input: "1", ExpectPass: boolPtr(true)},
				models.TestSpec{Node: i, Input: "2", ExpectPass: boolPtr(false)})
		}
		return specs
	}

	assert.True(t, StaticCompleteness(full(3), 3))
	assert.False(t, StaticCompleteness(nil, 3))
	assert.False(t, StaticCompleteness(full(2), 3), "node 2 missing")
	assert.False(t, StaticCompleteness(append(full(3), models.TestSpec{Node: 0, Input: "3", ExpectPass: boolPtr(true)}), 3))

	noResult := full(1)
	noResult[0].ExpectPass = nil
	assert.False(t, StaticCompleteness(noResult, 1))
}

func TestPrecisionAndExceptionRate(t *testing.T) {
	outcome := func(status models.TestStatus, expectPass bool, predicted, actual string) models.TestOutcome {
		return models.TestOutcome{
			Spec:      models.TestSpec{ExpectPass: boolPtr(expectPass), PredictedError: predicted},
			Status:    status,
			ErrorType: actual,
		}
	}

	empty := &models.TestReport{}
	assert.Equal(t, 0.0, PassFailPrecision(empty))
	assert.Equal(t, 0.0, ExceptionMatchRate(empty))

	allPass := &models.TestReport{Outcomes: []models.TestOutcome{
		outcome(models.TestPass, true, "", ""),
		outcome(models.TestPass, false, "", ""),
	}}
	assert.Equal(t, 0.5, PassFailPrecision(allPass))
	assert.Equal(t, 1.0, ExceptionMatchRate(allPass))

	mixed := &models.TestReport{Outcomes: []models.TestOutcome{
		outcome(models.TestPass, true, "", ""),
		outcome(models.TestFail, false, "outputmismatch", MismatchErrorType),
		outcome(models.TestError, false, "boundsError", "runtime.boundsError"),
		outcome(models.TestError, true, "", "string"),
		outcome(models.TestSkipped, true, "", ""),
	}}
	assert.Equal(t, 0.75, PassFailPrecision(mixed))
	assert.InDelta(t, 2.0/3.0, ExceptionMatchRate(mixed), 1e-9)
}

func TestSameErrorType(t *testing.T) {
	for _, tc := range []struct {
		predicted, actual string
		want              bool
	}{
		{"", "", true},
		{"string", "string", true},
		{"boundsError", "runtime.boundsError", true},
		{"PathError", "*fs.PathError", true},
		{"", "string", false},
		{"KeyError", "runtime.boundsError", false},
	} {
		assert.Equal(t, tc.want, sameErrorType(tc.predicted, tc.actual), fmt.Sprintf("%q vs %q", tc.predicted, tc.actual))
	}
}
