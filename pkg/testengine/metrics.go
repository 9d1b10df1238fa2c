package testengine

import (
	"strings"

	"github.com/smith-xyz/topobench/pkg/models"
)

// MismatchErrorType is the error type recorded for a wrong output
const MismatchErrorType = "OutputMismatch"

// PassFailPrecision is the share of executed tests whose predicted pass/fail
// verdict matched what happened. Tests without a prediction count as wrong.
// With no executed tests it is 0.
func PassFailPrecision(report *models.TestReport) float64 {
	ran, correct := 0, 0
	for _, o := range report.Outcomes {
		if !o.Ran() {
			continue
		}
		ran++
		if o.Spec.ExpectPass != nil && *o.Spec.ExpectPass == o.Passed() {
			correct++
		}
	}
	if ran == 0 {
		return 0
	}
	return float64(correct) / float64(ran)
}

// ExceptionMatchRate is the share of executed, non-passing tests whose
// predicted error type matches the actual one. It is 1 when every executed
// test passed and 0 when nothing ran.
func ExceptionMatchRate(report *models.TestReport) float64 {
	ran, failing, matched := 0, 0, 0
	for _, o := range report.Outcomes {
		if !o.Ran() {
			continue
		}
		ran++
		if o.Passed() {
			continue
		}
		failing++
		if sameErrorType(o.Spec.PredictedError, o.ErrorType) {
			matched++
		}
	}
	switch {
	case ran == 0:
		return 0
	case failing == 0:
		return 1
	}
	return float64(matched) / float64(failing)
}

// sameErrorType compares case-insensitively and lets a bare name match a
// package-qualified type, so "boundsError" matches "runtime.boundsError"
func sameErrorType(predicted, actual string) bool {
	p := strings.ToLower(strings.TrimSpace(predicted))
	a := strings.ToLower(strings.TrimSpace(actual))
	if p == "" || a == "" {
		return p == a
	}
	return p == a || strings.HasSuffix(a, "."+p) || strings.HasSuffix(a, "*"+p)
}
