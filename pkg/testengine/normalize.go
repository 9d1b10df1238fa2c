package testengine

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/smith-xyz/topobench/pkg/models"
)

// NameResolver maps callable names to node ids
type NameResolver interface {
	ResolveName(name string) (int, bool)
}

// alternative spellings models use for the node key
var altNodeKeys = []string{"name", "target", "id", "function"}

var (
	inputKeys    = []string{"input", "args", "arg", "parameter"}
	expectedKeys = []string{"expected_output", "expected", "output"}
	resultKeys   = []string{"expect_pass", "result", "outcome"}
	errorKeys    = []string{"predicted_error", "error", "exception"}
)

// NormalizeTests turns a model's tests block into specs. It accepts a list
// of objects or an object of parallel columns, which is cut to the shortest
// column. Rows whose node cannot be resolved keep Node = -1 and are skipped
// at run time.
func NormalizeTests(raw json.RawMessage, names NameResolver) ([]models.TestSpec, error) {
	if len(bytes.TrimSpace(raw)) == 0 || string(bytes.TrimSpace(raw)) == "null" {
		return nil, nil
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("tests block is not valid JSON: %w", err)
	}

	var rows []map[string]any
	switch v := doc.(type) {
	case []any:
		for _, item := range v {
			if row, ok := item.(map[string]any); ok {
				rows = append(rows, row)
			}
		}
	case map[string]any:
		rows = transpose(v)
	default:
		return nil, nil
	}

	specs := make([]models.TestSpec, 0, len(rows))
	for _, row := range rows {
		specs = append(specs, specFromRow(repairKeys(row), names))
	}
	return specs, nil
}

// transpose turns {"node": [...], "input": [...]} into rows, ignoring
// non-list columns
func transpose(cols map[string]any) []map[string]any {
	lists := make(map[string][]any)
	n := -1
	for k, v := range cols {
		list, ok := v.([]any)
		if !ok {
			continue
		}
		lists[k] = list
		if n < 0 || len(list) < n {
			n = len(list)
		}
	}
	var rows []map[string]any
	for i := 0; i < n; i++ {
		row := make(map[string]any, len(lists))
		for k, list := range lists {
			row[k] = list[i]
		}
		rows = append(rows, row)
	}
	return rows
}

func repairKeys(row map[string]any) map[string]any {
	if _, ok := row["node"]; ok {
		return row
	}
	for _, alt := range altNodeKeys {
		if v, ok := row[alt]; ok {
			row["node"] = v
			delete(row, alt)
			return row
		}
	}
	return row
}

func specFromRow(row map[string]any, names NameResolver) models.TestSpec {
	spec := models.TestSpec{Node: -1}

	switch v := row["node"].(type) {
	case json.Number:
		if id, err := strconv.Atoi(v.String()); err == nil {
			spec.Node = id
		}
	case string:
		spec.NodeName = v
		if id, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			spec.Node = id
		} else if names != nil {
			if id, ok := names.ResolveName(strings.TrimSpace(v)); ok {
				spec.Node = id
			}
		}
	}

	if v, ok := first(row, inputKeys); ok {
		spec.Input = valueText(v)
	}
	if v, ok := first(row, expectedKeys); ok {
		spec.ExpectedOutput = valueText(v)
	}
	if v, ok := first(row, resultKeys); ok {
		if pass, ok := parseExpectation(v); ok {
			spec.ExpectPass = &pass
		}
	}
	if v, ok := first(row, errorKeys); ok {
		spec.PredictedError = valueText(v)
	}
	return spec
}

func first(row map[string]any, keys []string) (any, bool) {
	for _, k := range keys {
		if v, ok := row[k]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

// valueText renders a JSON value as the text a test compares against.
// Strings are taken verbatim so they can carry Go expressions.
func valueText(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(raw)
}

func parseExpectation(v any) (bool, bool) {
	switch t := v.(type) {
	case bool:
		return t, true
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "pass", "passed", "true", "ok":
			return true, true
		case "fail", "failed", "false", "error":
			return false, true
		}
	}
	return false, false
}

// StaticCompleteness reports whether the specs cover every node exactly
// twice (one passing and one failing case) with all required fields present
func StaticCompleteness(specs []models.TestSpec, numNodes int) bool {
	if len(specs) == 0 {
		return false
	}
	seen := make(map[int]int)
	for _, s := range specs {
		if s.Node < 0 || s.Node >= numNodes || s.Input == "" || s.ExpectPass == nil {
			return false
		}
		seen[s.Node]++
	}
	if len(seen) != numNodes {
		return false
	}
	for _, count := range seen {
		if count != 2 {
			return false
		}
	}
	return true
}
