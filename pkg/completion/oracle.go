package completion

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/smith-xyz/topobench/pkg/callgraph"
)

var goBlock = regexp.MustCompile("(?s)```go\\s*\\n(.*?)```")

// Oracle answers by running the static call graph extractor on the last Go
// block in the conversation. Its answers score as exact, which makes it a
// reference point for the scoring pipeline.
type Oracle struct {
	extractor *callgraph.Extractor
}

// NewOracle creates an oracle backed by the static algorithm
func NewOracle() *Oracle {
	return &Oracle{extractor: callgraph.NewExtractor(false)}
}

// Name implements Completer
func (o *Oracle) Name() string { return "oracle" }

// Complete implements Completer
func (o *Oracle) Complete(ctx context.Context, messages []Message) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	src, ok := lastGoBlock(messages)
	if !ok {
		return "", &PermanentError{Err: fmt.Errorf("oracle: no Go source in conversation")}
	}
	from, to, err := o.extractor.NamedAdjacency(src)
	if err != nil {
		return "", &PermanentError{Err: fmt.Errorf("oracle: %w", err)}
	}
	table, err := callgraph.DeclaredNames(src)
	if err != nil {
		return "", &PermanentError{Err: err}
	}
	nodes := make([]string, table.NodeCount())
	for i := range nodes {
		nodes[i] = table.Name(i)
	}

	reply := struct {
		Nodes     []string `json:"nodes"`
		Adjacency struct {
			From []string `json:"from"`
			To   []string `json:"to"`
		} `json:"adjacency"`
	}{Nodes: nodes}
	reply.Adjacency.From = nonNil(from)
	reply.Adjacency.To = nonNil(to)

	out, err := json.Marshal(reply)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func lastGoBlock(messages []Message) (string, bool) {
	for i := len(messages) - 1; i >= 0; i-- {
		if !strings.EqualFold(messages[i].Role, RoleUser) {
			continue
		}
		matches := goBlock.FindAllStringSubmatch(messages[i].Content, -1)
		if len(matches) > 0 {
			return matches[len(matches)-1][1], true
		}
	}
	return "", false
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
