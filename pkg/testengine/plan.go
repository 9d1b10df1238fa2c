package testengine

import (
	"fmt"
	"go/ast"
	"go/importer"
	"go/parser"
	"go/token"
	"go/types"

	"github.com/smith-xyz/topobench/pkg/models"
)

// plannedTest is a spec that passed static checks and will be executed
type plannedTest struct {
	index int // position in the original spec list
	call  string
	spec  models.TestSpec
}

// checker type-checks test inputs against the synthesized package
type checker struct {
	fset *token.FileSet
	pkg  *types.Package
}

func newChecker(src string) (*checker, error) {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, "main.go", src, 0)
	if err != nil {
		return nil, fmt.Errorf("codebase does not parse: %w", err)
	}
	conf := types.Config{Importer: importer.Default()}
	pkg, err := conf.Check("main", fset, []*ast.File{file}, nil)
	if err != nil {
		return nil, fmt.Errorf("codebase does not type-check: %w", err)
	}
	return &checker{fset: fset, pkg: pkg}, nil
}

// assignable reports why input cannot be passed as a parameter of type
// paramType, or nil if it can
func (c *checker) assignable(input, paramType string) error {
	if _, err := parser.ParseExpr(input); err != nil {
		return fmt.Errorf("input is not a Go expression: %v", err)
	}
	expr := fmt.Sprintf("func() %s { return %s }", paramType, input)
	if _, err := types.Eval(c.fset, c.pkg, token.NoPos, expr); err != nil {
		return fmt.Errorf("input does not fit parameter type %s: %v", paramType, err)
	}
	return nil
}

// plan splits specs into runnable tests and outcomes that are already
// decided as SKIPPED
func plan(cb *models.Codebase, specs []models.TestSpec) ([]plannedTest, map[int]models.TestOutcome, error) {
	chk, err := newChecker(cb.Source)
	if err != nil {
		return nil, nil, err
	}

	var runnable []plannedTest
	skipped := make(map[int]models.TestOutcome)
	for i, spec := range specs {
		if spec.Node < 0 || spec.Node >= len(cb.Nodes) {
			skipped[i] = models.TestOutcome{Spec: spec, Status: models.TestSkipped, Reason: "callable missing"}
			continue
		}
		node := cb.Nodes[spec.Node]
		if err := chk.assignable(spec.Input, node.InputType); err != nil {
			skipped[i] = models.TestOutcome{Spec: spec, Status: models.TestSkipped, Reason: "signature mismatch: " + err.Error()}
			continue
		}
		runnable = append(runnable, plannedTest{index: i, call: callExpr(node, spec.Input), spec: spec})
	}
	return runnable, skipped, nil
}

func callExpr(node models.Node, input string) string {
	if node.Kind == models.KindStruct {
		return fmt.Sprintf("(&%s{}).Run(%s)", node.Name, input)
	}
	return fmt.Sprintf("%s(%s)", node.Name, input)
}
