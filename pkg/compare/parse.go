package compare

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/smith-xyz/topobench/pkg/models"
)

// NameResolver maps callable names to node ids. A nil resolver accepts
// integer ids only.
type NameResolver interface {
	ResolveName(name string) (int, bool)
}

// Candidate is a parsed model response
type Candidate struct {
	Adjacency   models.Adjacency
	Explanation string
	Tests       json.RawMessage
	Anomalies   []models.Anomaly
}

var fencePattern = regexp.MustCompile("(?s)```[a-zA-Z]*\\s*\\n?(.*?)```")

// ParseCandidate extracts an adjacency from a model response. It accepts the
// interchange envelope, a bare {"from", "to"} object, or a list of
// {"from", "to"} objects, optionally wrapped in markdown fences or prose.
// Node references may be ids or callable names; "main" maps to SentinelID.
func ParseCandidate(text string, names NameResolver) (*Candidate, error) {
	payload, err := extractJSON(text)
	if err != nil {
		return nil, err
	}

	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, &models.AdjacencyParseError{Reason: "invalid JSON", Err: err}
	}

	c := &Candidate{}
	body := doc
	if obj, ok := doc.(map[string]any); ok {
		if inner, ok := obj["adjacency"]; ok {
			body = inner
		}
		c.Explanation = explanationOf(obj)
		if tests, ok := obj["tests"]; ok {
			raw, err := json.Marshal(tests)
			if err == nil {
				c.Tests = raw
			}
		}
	}

	var refsFrom, refsTo []any
	switch v := body.(type) {
	case map[string]any:
		from, okFrom := v["from"].([]any)
		to, okTo := v["to"].([]any)
		if !okFrom || !okTo {
			return nil, &models.AdjacencyParseError{Reason: "adjacency must have 'from' and 'to' lists"}
		}
		refsFrom, refsTo = from, to
	case []any:
		for i, item := range v {
			pair, ok := item.(map[string]any)
			if !ok {
				return nil, &models.AdjacencyParseError{Reason: fmt.Sprintf("adjacency entry %d is not an object", i)}
			}
			from, okFrom := pair["from"]
			to, okTo := pair["to"]
			if !okFrom || !okTo {
				return nil, &models.AdjacencyParseError{Reason: fmt.Sprintf("adjacency entry %d lacks 'from' or 'to'", i)}
			}
			refsFrom = append(refsFrom, from)
			refsTo = append(refsTo, to)
		}
	default:
		return nil, &models.AdjacencyParseError{Reason: "response has no adjacency"}
	}

	if len(refsFrom) != len(refsTo) {
		c.Anomalies = append(c.Anomalies, models.Anomaly{
			Kind:   models.AnomalyMisaligned,
			Detail: fmt.Sprintf("from has %d entries, to has %d; extra entries ignored", len(refsFrom), len(refsTo)),
		})
	}
	n := min(len(refsFrom), len(refsTo))
	c.Adjacency = models.Adjacency{From: make([]int, 0, n), To: make([]int, 0, n)}
	for i := 0; i < n; i++ {
		from, errFrom := resolveRef(refsFrom[i], names)
		to, errTo := resolveRef(refsTo[i], names)
		if errFrom != nil || errTo != nil {
			c.Anomalies = append(c.Anomalies, models.Anomaly{
				Kind:   models.AnomalyUnresolvable,
				Detail: fmt.Sprintf("%v -> %v", refsFrom[i], refsTo[i]),
			})
			continue
		}
		c.Adjacency.From = append(c.Adjacency.From, from)
		c.Adjacency.To = append(c.Adjacency.To, to)
	}
	return c, nil
}

// extractJSON returns the first fenced block, or the outermost JSON value
// embedded in surrounding prose
func extractJSON(text string) ([]byte, error) {
	if m := fencePattern.FindStringSubmatch(text); m != nil {
		text = m[1]
	}
	text = strings.TrimSpace(text)
	start := strings.IndexAny(text, "{[")
	if start < 0 {
		return nil, &models.AdjacencyParseError{Reason: "response contains no JSON"}
	}
	closer := "}"
	if text[start] == '[' {
		closer = "]"
	}
	end := strings.LastIndex(text, closer)
	if end < start {
		return nil, &models.AdjacencyParseError{Reason: "response JSON is not terminated"}
	}
	return []byte(text[start : end+1]), nil
}

func explanationOf(obj map[string]any) string {
	for _, key := range []string{"changes", "explanation", "fix"} {
		switch v := obj[key].(type) {
		case string:
			return v
		case nil:
			continue
		default:
			raw, err := json.Marshal(v)
			if err == nil {
				return string(raw)
			}
		}
	}
	return ""
}

func resolveRef(ref any, names NameResolver) (int, error) {
	switch v := ref.(type) {
	case json.Number:
		id, err := strconv.Atoi(v.String())
		if err != nil {
			return 0, fmt.Errorf("node id %s is not an integer", v)
		}
		return id, nil
	case string:
		return resolveToken(v, names)
	}
	return 0, fmt.Errorf("unsupported node reference %v", ref)
}

func resolveToken(token string, names NameResolver) (int, error) {
	token = strings.TrimSpace(token)
	if token == models.EntryPointName {
		return SentinelID, nil
	}
	if id, err := strconv.Atoi(token); err == nil {
		return id, nil
	}
	if names != nil {
		if id, ok := names.ResolveName(token); ok {
			return id, nil
		}
	}
	return 0, fmt.Errorf("unknown callable %q", token)
}
