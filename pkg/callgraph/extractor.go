// Package callgraph recovers a node graph from Go source by building SSA and
// running a call graph algorithm over it. It never consults the codebase model's
// edge list, so agreement with the gold graph is an independent check.
package callgraph

import (
	"fmt"
	"go/ast"
	"go/importer"
	"go/parser"
	"go/token"
	"go/types"
	"sort"

	"golang.org/x/tools/go/callgraph"
	"golang.org/x/tools/go/callgraph/cha"
	"golang.org/x/tools/go/callgraph/rta"
	"golang.org/x/tools/go/callgraph/static"
	"golang.org/x/tools/go/callgraph/vta"
	"golang.org/x/tools/go/packages"
	"golang.org/x/tools/go/ssa"
	"golang.org/x/tools/go/ssa/ssautil"

	"github.com/smith-xyz/topobench/pkg/models"
	"github.com/smith-xyz/topobench/pkg/utils"
)

// NodeIndex maps callable names back to node ids
type NodeIndex interface {
	ResolveName(name string) (int, bool)
	NodeCount() int
}

// Extractor rebuilds adjacency from source
type Extractor struct {
	algorithm string
	logger    *utils.VerboseLogger
}

// NewExtractor creates an extractor using the static algorithm
func NewExtractor(verbose bool) *Extractor {
	return &Extractor{
		algorithm: "static",
		logger:    utils.NewVerboseLogger(verbose),
	}
}

// SetAlgorithm sets the call graph algorithm to use
func (x *Extractor) SetAlgorithm(algorithm string) error {
	if algorithm == "" {
		algorithm = "static"
	}

	validAlgorithms := map[string]bool{
		"static": true, // direct calls only, exact for generated code
		"cha":    true, // Class Hierarchy Analysis
		"rta":    true, // Rapid Type Analysis
		"vta":    true, // Variable Type Analysis
	}

	if !validAlgorithms[algorithm] {
		return fmt.Errorf("unsupported call graph algorithm: %s. Supported algorithms: static, cha, rta, vta", algorithm)
	}

	x.algorithm = algorithm
	return nil
}

// GetAlgorithm returns the currently configured call graph algorithm
func (x *Extractor) GetAlgorithm() string {
	return x.algorithm
}

// Extract re-derives the graph embedded in a synthesized codebase
func (x *Extractor) Extract(cb *models.Codebase) (*models.Graph, error) {
	return x.ExtractSource(cb.Source, cb)
}

// ExtractSource type-checks a single-file main package held in memory and
// returns the calls between indexed callables. Calls from or to the entry
// point and to anything the index does not know are ignored.
func (x *Extractor) ExtractSource(src string, index NodeIndex) (*models.Graph, error) {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, "main.go", src, parser.SkipObjectResolution)
	if err != nil {
		return nil, fmt.Errorf("failed to parse source: %w", err)
	}

	pkg := types.NewPackage("main", "main")
	conf := &types.Config{Importer: importer.Default()}
	ssaPkg, _, err := ssautil.BuildPackage(conf, fset, pkg, []*ast.File{file}, ssa.InstantiateGenerics)
	if err != nil {
		return nil, fmt.Errorf("failed to build SSA: %w", err)
	}

	x.logger.Logf("Built SSA for package %s with %d members\n", ssaPkg.Pkg.Path(), len(ssaPkg.Members))
	return x.fromProgram(ssaPkg.Prog, []*ssa.Package{ssaPkg}, index)
}

// ExtractDir loads the main package in dir through go/packages. It is used
// for codebases that have been written out as a module.
func (x *Extractor) ExtractDir(dir string, index NodeIndex) (*models.Graph, error) {
	cfg := &packages.Config{
		Mode: packages.LoadAllSyntax,
		Dir:  dir,
		Fset: token.NewFileSet(),
	}

	x.logger.Logf("Loading packages from: %s\n", dir)
	pkgs, err := packages.Load(cfg, ".")
	if err != nil {
		return nil, fmt.Errorf("failed to load packages: %w", err)
	}
	if packages.PrintErrors(pkgs) > 0 {
		return nil, fmt.Errorf("errors encountered during package loading")
	}

	prog, ssaPkgs := ssautil.AllPackages(pkgs, ssa.InstantiateGenerics)
	prog.Build()

	return x.fromProgram(prog, ssaPkgs, index)
}

func (x *Extractor) fromProgram(prog *ssa.Program, pkgs []*ssa.Package, index NodeIndex) (*models.Graph, error) {
	var mains []*ssa.Function
	targets := make(map[*ssa.Package]bool, len(pkgs))
	for _, pkg := range pkgs {
		if pkg == nil {
			continue
		}
		targets[pkg] = true
		if main := pkg.Func("main"); main != nil {
			mains = append(mains, main)
		}
		if init := pkg.Func("init"); init != nil {
			mains = append(mains, init)
		}
	}

	cg, err := x.generateCallGraphWithAlgorithm(prog, mains)
	if err != nil {
		return nil, fmt.Errorf("failed to generate call graph with %s algorithm: %w", x.algorithm, err)
	}
	x.logger.Logf("Generated call graph with %d nodes\n", len(cg.Nodes))

	type site struct {
		edge models.Edge
		pos  token.Pos
	}
	var sites []site
	for fn, node := range cg.Nodes {
		if fn == nil || node == nil || !targets[fn.Pkg] {
			continue
		}
		caller, ok := nodeID(fn, index)
		if !ok {
			continue
		}
		for _, out := range node.Out {
			if out.Callee == nil || out.Callee.Func == nil {
				continue
			}
			callee, ok := nodeID(out.Callee.Func, index)
			if !ok || callee == caller {
				continue
			}
			var pos token.Pos
			if out.Site != nil {
				pos = out.Site.Pos()
			}
			sites = append(sites, site{edge: models.Edge{From: caller, To: callee}, pos: pos})
		}
	}

	// Edges are emitted per caller in call-site order so the result matches
	// the declaration order the synthesizer used.
	sort.SliceStable(sites, func(i, j int) bool {
		if sites[i].edge.From != sites[j].edge.From {
			return sites[i].edge.From < sites[j].edge.From
		}
		return sites[i].pos < sites[j].pos
	})

	g := models.NewGraph(index.NodeCount())
	for _, s := range sites {
		if g.HasEdge(s.edge.From, s.edge.To) {
			continue
		}
		if err := g.AddEdge(s.edge.From, s.edge.To); err != nil {
			return nil, fmt.Errorf("extracted invalid edge: %w", err)
		}
	}

	x.logger.Logf("Extracted %d edges over %d nodes\n", len(g.Edges), g.NumNodes)
	return g, nil
}

// nodeID maps an SSA function to the node that owns it. Methods belong to
// their receiver's type, closures to their enclosing function, and wrapper
// functions the compiler synthesized to nothing.
func nodeID(fn *ssa.Function, index NodeIndex) (int, bool) {
	for fn.Parent() != nil {
		fn = fn.Parent()
	}
	if fn.Synthetic != "" {
		return 0, false
	}
	if recv := fn.Signature.Recv(); recv != nil {
		return index.ResolveName(receiverName(recv.Type()))
	}
	if fn.Name() == models.EntryPointName {
		return 0, false
	}
	return index.ResolveName(fn.Name())
}

func receiverName(t types.Type) string {
	if ptr, ok := t.(*types.Pointer); ok {
		t = ptr.Elem()
	}
	if named, ok := t.(*types.Named); ok {
		return named.Obj().Name()
	}
	return t.String()
}

// generateCallGraphWithAlgorithm generates a call graph using the configured algorithm
func (x *Extractor) generateCallGraphWithAlgorithm(prog *ssa.Program, mains []*ssa.Function) (*callgraph.Graph, error) {
	x.logger.Logf("Using %s algorithm for call graph generation\n", x.algorithm)

	switch x.algorithm {
	case "static":
		graph := static.CallGraph(prog)
		if graph == nil {
			return nil, fmt.Errorf("static analysis returned nil")
		}
		return graph, nil

	case "cha":
		graph := cha.CallGraph(prog)
		if graph == nil {
			return nil, fmt.Errorf("CHA analysis returned nil")
		}
		return graph, nil

	case "rta":
		if len(mains) == 0 {
			return nil, fmt.Errorf("RTA analysis requires a main or init function")
		}
		result := rta.Analyze(mains, true)
		if result == nil || result.CallGraph == nil {
			return nil, fmt.Errorf("RTA analysis returned nil")
		}
		return result.CallGraph, nil

	case "vta":
		// VTA only resolves calls inside the functions it is given
		result := vta.CallGraph(ssautil.AllFunctions(prog), cha.CallGraph(prog))
		if result == nil {
			return nil, fmt.Errorf("VTA analysis returned nil")
		}
		return result, nil

	default:
		return nil, fmt.Errorf("unsupported algorithm: %s", x.algorithm)
	}
}
