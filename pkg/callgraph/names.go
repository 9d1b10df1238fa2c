package callgraph

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"

	"github.com/smith-xyz/topobench/pkg/models"
)

// NameTable numbers the callables declared in a source file in declaration
// order. It lets the extractor run on source whose codebase model is not
// available.
type NameTable struct {
	names []string
	ids   map[string]int
}

// DeclaredNames indexes top-level functions and types, skipping methods and
// the entry point
func DeclaredNames(src string) (*NameTable, error) {
	file, err := parser.ParseFile(token.NewFileSet(), "main.go", src, parser.SkipObjectResolution)
	if err != nil {
		return nil, fmt.Errorf("failed to parse source: %w", err)
	}

	t := &NameTable{ids: make(map[string]int)}
	for _, decl := range file.Decls {
		switch d := decl.(type) {
		case *ast.FuncDecl:
			if d.Recv == nil && d.Name.Name != models.EntryPointName {
				t.add(d.Name.Name)
			}
		case *ast.GenDecl:
			if d.Tok != token.TYPE {
				continue
			}
			for _, spec := range d.Specs {
				t.add(spec.(*ast.TypeSpec).Name.Name)
			}
		}
	}
	return t, nil
}

func (t *NameTable) add(name string) {
	if _, ok := t.ids[name]; ok {
		return
	}
	t.ids[name] = len(t.names)
	t.names = append(t.names, name)
}

// ResolveName implements NodeIndex
func (t *NameTable) ResolveName(name string) (int, bool) {
	id, ok := t.ids[name]
	return id, ok
}

// NodeCount implements NodeIndex
func (t *NameTable) NodeCount() int { return len(t.names) }

// Name returns the callable with the given id
func (t *NameTable) Name(id int) string { return t.names[id] }

// NamedAdjacency extracts the calls in src and reports them by callable name
func (x *Extractor) NamedAdjacency(src string) (from, to []string, err error) {
	table, err := DeclaredNames(src)
	if err != nil {
		return nil, nil, err
	}
	g, err := x.ExtractSource(src, table)
	if err != nil {
		return nil, nil, err
	}
	for _, e := range g.Edges {
		from = append(from, table.Name(e.From))
		to = append(to, table.Name(e.To))
	}
	return from, to, nil
}
