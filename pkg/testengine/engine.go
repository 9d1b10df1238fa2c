// Package testengine runs model-authored tests against a synthesized
// codebase and classifies each one as PASS, FAIL, ERROR or SKIPPED.
package testengine

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/smith-xyz/topobench/pkg/models"
)

// Engine plans, executes and classifies tests
type Engine struct {
	runner Runner
	logger *slog.Logger
}

// NewEngine creates an engine. A nil logger discards output.
func NewEngine(runner Runner, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Engine{runner: runner, logger: logger}
}

// Run executes specs against cb. Specs naming a missing callable or whose
// input does not fit the callable's parameter are SKIPPED without running.
// If the runner itself fails, every test it did not report on is ERROR and
// the report carries the execution error; Run still returns the report.
// An error is returned only when cb cannot be type-checked.
func (e *Engine) Run(ctx context.Context, cb *models.Codebase, specs []models.TestSpec) (*models.TestReport, error) {
	runnable, skipped, err := plan(cb, specs)
	if err != nil {
		return nil, err
	}

	report := &models.TestReport{Outcomes: make([]models.TestOutcome, len(specs))}
	for i, o := range skipped {
		report.Outcomes[i] = o
	}

	if len(runnable) > 0 {
		lines, execErr := e.execute(ctx, cb, runnable)
		if execErr != nil {
			report.ExecutionError = execErr.Error()
			e.logger.Warn("Test execution failed", "error", execErr, "tests", len(runnable))
		}
		for _, t := range runnable {
			report.Outcomes[t.index] = classify(t, lines, execErr)
		}
	}

	report.Tally()
	e.logger.Debug("Tests completed",
		"passed", report.Passed,
		"failed", report.Failed,
		"errored", report.Errored,
		"skipped", report.Skipped)
	return report, nil
}

func (e *Engine) execute(ctx context.Context, cb *models.Codebase, tests []plannedTest) (map[int]harnessLine, error) {
	body, err := withoutEntryPoint(cb.Source)
	if err != nil {
		return nil, &models.TestExecutionError{Stage: "prepare", Err: err}
	}
	harness, err := renderHarness(tests)
	if err != nil {
		return nil, &models.TestExecutionError{Stage: "prepare", Err: err}
	}

	stdout, runErr := e.runner.Run(ctx, map[string][]byte{
		"main.go":   body,
		harnessFile: harness,
	})

	lines := make(map[int]harnessLine)
	scanner := bufio.NewScanner(bytes.NewReader(stdout))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		var line harnessLine
		if err := json.Unmarshal(scanner.Bytes(), &line); err != nil {
			continue
		}
		lines[line.Index] = line
	}

	if runErr != nil {
		return lines, &models.TestExecutionError{Stage: "run", Output: string(stdout), Err: runErr}
	}
	return lines, nil
}

func classify(t plannedTest, lines map[int]harnessLine, execErr error) models.TestOutcome {
	line, ok := lines[t.index]
	if !ok {
		reason := "no result reported"
		if execErr != nil {
			reason = execErr.Error()
		}
		return models.TestOutcome{Spec: t.spec, Status: models.TestError, ErrorType: "TestExecutionError", Reason: reason}
	}

	switch line.Status {
	case "PASS":
		return models.TestOutcome{Spec: t.spec, Status: models.TestPass, ActualOutput: line.Output}
	case "FAIL":
		return models.TestOutcome{
			Spec:         t.spec,
			Status:       models.TestFail,
			ActualOutput: line.Output,
			ErrorType:    MismatchErrorType,
			Reason:       fmt.Sprintf("expected %q, got %q", t.spec.ExpectedOutput, line.Output),
		}
	default:
		return models.TestOutcome{Spec: t.spec, Status: models.TestError, ErrorType: line.ErrorType, Reason: line.Message}
	}
}
