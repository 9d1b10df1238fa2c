package synth

import (
	"fmt"
	"go/format"
	"strings"

	"github.com/smith-xyz/topobench/pkg/models"
)

const fileHeader = "// Code generated by topobench. DO NOT EDIT.\n\npackage main\n"

// Render produces the gofmt-ed source for a codebase model. It is
// deterministic: the same model always yields the same text.
func Render(cb *models.Codebase) (string, error) {
	var b strings.Builder
	b.WriteString(fileHeader)

	for i, node := range cb.Nodes {
		calls, err := callSites(cb, i)
		if err != nil {
			return "", err
		}
		transform, err := Transformation(node.InputType, node.OutputType, node.Variant)
		if err != nil {
			return "", fmt.Errorf("node %d: %w", i, err)
		}

		b.WriteString("\n")
		switch node.Kind {
		case models.KindStruct:
			fmt.Fprintf(&b, "type %s struct{}\n\n", node.Name)
			fmt.Fprintf(&b, "func (s *%s) Run(parameter %s) %s {\n", node.Name, node.InputType, node.OutputType)
			writeBody(&b, cb.Fragments[i].Preamble, calls, transform)
			for _, h := range cb.Fragments[i].Helpers {
				helperTransform, err := Transformation(h.InputType, h.OutputType, node.Variant)
				if err != nil {
					return "", fmt.Errorf("node %d helper %s: %w", i, h.Name, err)
				}
				fmt.Fprintf(&b, "\nfunc (s *%s) %s(parameter %s) %s {\n", node.Name, h.Name, h.InputType, h.OutputType)
				writeBody(&b, h.Preamble, nil, helperTransform)
			}
		default:
			fmt.Fprintf(&b, "func %s(parameter %s) %s {\n", node.Name, node.InputType, node.OutputType)
			writeBody(&b, cb.Fragments[i].Preamble, calls, transform)
		}
	}

	main, err := entryPoint(cb)
	if err != nil {
		return "", err
	}
	b.WriteString("\n")
	b.WriteString(main)

	formatted, err := format.Source([]byte(b.String()))
	if err != nil {
		return "", fmt.Errorf("generated source does not parse: %w", err)
	}
	return string(formatted), nil
}

func writeBody(b *strings.Builder, preamble, calls []string, transform string) {
	for _, line := range preamble {
		b.WriteString("\t" + line + "\n")
	}
	for _, line := range calls {
		b.WriteString("\t" + line + "\n")
	}
	fmt.Fprintf(b, "\tresult := %s\n", transform)
	b.WriteString("\treturn result\n}\n")
}

// callSites renders one invocation per outgoing edge of node, in edge
// declaration order. The argument is the caller's own parameter when the
// types line up, otherwise a literal of the callee's input type.
func callSites(cb *models.Codebase, node int) ([]string, error) {
	caller := cb.Nodes[node]
	var lines []string
	for k, target := range cb.Graph.Successors(node) {
		callee := cb.Nodes[target]
		arg := "parameter"
		if callee.InputType != caller.InputType {
			lit, err := Literal(callee.InputType, node*31+target)
			if err != nil {
				return nil, fmt.Errorf("call %d->%d: %w", node, target, err)
			}
			arg = lit
		}
		lines = append(lines, invocation(callee, fmt.Sprintf("inst%d", k), arg)...)
	}
	return lines, nil
}

func invocation(callee models.Node, instance, arg string) []string {
	if callee.Kind == models.KindStruct {
		return []string{
			fmt.Sprintf("%s := &%s{}", instance, callee.Name),
			fmt.Sprintf("%s.Run(%s)", instance, arg),
		}
	}
	return []string{fmt.Sprintf("%s(%s)", callee.Name, arg)}
}

// entryPoint renders the sentinel main, which calls every node once in
// topological order
func entryPoint(cb *models.Codebase) (string, error) {
	order, ok := cb.Graph.TopologicalOrder()
	if !ok {
		order = make([]int, len(cb.Nodes))
		for i := range order {
			order[i] = i
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "func %s() {\n", models.EntryPointName)
	for k, id := range order {
		node := cb.Nodes[id]
		lit, err := Literal(node.InputType, id)
		if err != nil {
			return "", fmt.Errorf("entry call to node %d: %w", id, err)
		}
		for _, line := range invocation(node, fmt.Sprintf("inst%d", k), lit) {
			b.WriteString("\t" + line + "\n")
		}
	}
	b.WriteString("}\n")
	return b.String(), nil
}
