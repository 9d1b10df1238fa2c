package synth

import (
	"go/ast"
	"go/parser"
	"go/token"
	"go/types"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smith-xyz/topobench/pkg/models"
	"github.com/smith-xyz/topobench/pkg/topology"
)

// typeCheck parses and type-checks generated source. Generated programs
// import nothing, so no importer is configured.
func typeCheck(t *testing.T, src string) *ast.File {
	t.Helper()
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, "main.go", src, 0)
	require.NoError(t, err, src)

	conf := types.Config{}
	_, err = conf.Check("main", fset, []*ast.File{file}, nil)
	require.NoError(t, err, src)
	return file
}

func chainGraph(t *testing.T, n int) *models.Graph {
	t.Helper()
	g, err := topology.Generate(topology.Chain, n, topology.DefaultOptions())
	require.NoError(t, err)
	return g
}

func TestSynthesizeProducesValidGo(t *testing.T) {
	for _, kind := range topology.Kinds {
		for seed := uint64(1); seed <= 5; seed++ {
			opts := topology.DefaultOptions()
			opts.Seed = seed
			g, err := topology.Generate(kind, 8, opts)
			require.NoError(t, err)

			for _, semantic := range []bool{false, true} {
				sOpts := DefaultOptions()
				sOpts.Seed = seed
				cb, err := NewSynthesizer(sOpts, nil).Synthesize(g, semantic)
				require.NoError(t, err)
				assert.True(t, strings.HasPrefix(cb.Source, "// Code generated by topobench. DO NOT EDIT."))
				typeCheck(t, cb.Source)
			}
		}
	}
}

func TestSynthesizeNamesAreInvertible(t *testing.T) {
	g := chainGraph(t, 12)
	for _, semantic := range []bool{false, true} {
		cb, err := NewSynthesizer(DefaultOptions(), nil).Synthesize(g, semantic)
		require.NoError(t, err)

		require.Len(t, cb.Names, 12)
		for i, node := range cb.Nodes {
			id, ok := cb.ResolveName(node.Name)
			require.True(t, ok, node.Name)
			assert.Equal(t, i, id)
			assert.NotEqual(t, models.EntryPointName, node.Name)
		}
	}
}

func TestSynthesizePositionalNames(t *testing.T) {
	opts := DefaultOptions()
	opts.StructProbability = 0
	cb, err := NewSynthesizer(opts, nil).Synthesize(chainGraph(t, 3), false)
	require.NoError(t, err)

	assert.Equal(t, []string{"Function_0", "Function_1", "Function_2"}, cb.NodeNames())
	assert.Contains(t, cb.Source, "Function_1(")

	opts.StructProbability = 1
	cb, err = NewSynthesizer(opts, nil).Synthesize(chainGraph(t, 2), false)
	require.NoError(t, err)
	assert.Equal(t, []string{"Struct_0", "Struct_1"}, cb.NodeNames())
	assert.Contains(t, cb.Source, "type Struct_1 struct{}")
	assert.Contains(t, cb.Source, "func (s *Struct_0) Run(")
}

func TestSynthesizeIsDeterministic(t *testing.T) {
	g := chainGraph(t, 6)
	opts := DefaultOptions()
	opts.Seed = 42

	a, err := NewSynthesizer(opts, nil).Synthesize(g, true)
	require.NoError(t, err)
	b, err := NewSynthesizer(opts, nil).Synthesize(g, true)
	require.NoError(t, err)
	assert.Equal(t, a.Source, b.Source)

	again, err := Render(a)
	require.NoError(t, err)
	assert.Equal(t, a.Source, again)
}

func TestSynthesizeEmitsOneCallSitePerEdge(t *testing.T) {
	opts := DefaultOptions()
	opts.StructProbability = 0
	g := models.NewGraph(3)
	require.NoError(t, g.AddEdge(0, 1))
	require.NoError(t, g.AddEdge(0, 2))

	cb, err := NewSynthesizer(opts, nil).Synthesize(g, false)
	require.NoError(t, err)
	file := typeCheck(t, cb.Source)

	calls := map[string][]string{}
	for _, decl := range file.Decls {
		fn, ok := decl.(*ast.FuncDecl)
		if !ok || fn.Name.Name == models.EntryPointName {
			continue
		}
		ast.Inspect(fn.Body, func(n ast.Node) bool {
			if call, ok := n.(*ast.CallExpr); ok {
				if ident, ok := call.Fun.(*ast.Ident); ok && strings.HasPrefix(ident.Name, "Function_") {
					calls[fn.Name.Name] = append(calls[fn.Name.Name], ident.Name)
				}
			}
			return true
		})
	}
	assert.Equal(t, map[string][]string{"Function_0": {"Function_1", "Function_2"}}, calls)
}

func TestSynthesizeRejectsInvalidGraphs(t *testing.T) {
	s := NewSynthesizer(DefaultOptions(), nil)

	_, err := s.Synthesize(nil, false)
	assert.Error(t, err)

	_, err = s.Synthesize(models.NewGraph(0), false)
	assert.Error(t, err)

	bad := &models.Graph{NumNodes: 2, Edges: []models.Edge{{From: 0, To: 5}}}
	_, err = s.Synthesize(bad, false)
	assert.Error(t, err)
}

func TestTransformationCoversEveryPair(t *testing.T) {
	for _, in := range TypeNames() {
		for _, out := range TypeNames() {
			for variant := 0; variant < 2; variant++ {
				lit, err := Literal(in, 3)
				require.NoError(t, err)
				expr, err := Transformation(in, out, variant)
				require.NoError(t, err)

				src := "package main\n\nfunc f(parameter " + in + ") " + out + " {\n\treturn " + expr + "\n}\n\nfunc main() {\n\tf(" + lit + ")\n}\n"
				typeCheck(t, src)
			}
		}
	}

	_, err := Transformation("chan int", "int", 0)
	assert.Error(t, err)
	_, err = Literal("chan int", 0)
	assert.Error(t, err)
}

func TestSemanticNamesAreUnique(t *testing.T) {
	names := semanticNames(600, topology.NewRand(7))
	seen := map[string]bool{}
	for _, n := range names {
		assert.False(t, seen[n], n)
		seen[n] = true
	}
}
