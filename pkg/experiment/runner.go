// Package experiment runs the generate, extract, mutate and repair loop and
// records one result row per scored iteration.
package experiment

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/smith-xyz/topobench/pkg/compare"
	"github.com/smith-xyz/topobench/pkg/completion"
	"github.com/smith-xyz/topobench/pkg/config"
	"github.com/smith-xyz/topobench/pkg/models"
	"github.com/smith-xyz/topobench/pkg/mutate"
	"github.com/smith-xyz/topobench/pkg/results"
	"github.com/smith-xyz/topobench/pkg/synth"
	"github.com/smith-xyz/topobench/pkg/testengine"
	"github.com/smith-xyz/topobench/pkg/topology"
	"github.com/smith-xyz/topobench/pkg/utils"
)

// Iteration phases
const (
	PhaseGenerate = "generate"
	PhaseExtract  = "extract"
	PhaseMutate   = "mutate"
	PhaseRepair   = "repair"
	PhaseTests    = "tests"
)

// Scoring stages
const (
	StageInitial = "initial"
	StageRepair  = "repair"
)

// Params identify one iteration of the grid
type Params struct {
	Topology   topology.Kind
	NumNodes   int
	AvgLength  int
	NumChanges int
	Seed       uint64
}

func (p Params) String() string {
	return fmt.Sprintf("%s/n=%d/len=%d/changes=%d/seed=%d", p.Topology, p.NumNodes, p.AvgLength, p.NumChanges, p.Seed)
}

// Outcome is everything one iteration produced
type Outcome struct {
	ID         string                   `json:"id"`
	Params     Params                   `json:"params"`
	Skipped    bool                     `json:"skipped"`
	SkipReason string                   `json:"skip_reason,omitempty"`
	InputBytes int                      `json:"input_bytes"`
	Initial    models.ScoreReport       `json:"initial"`
	Repaired   models.ScoreReport       `json:"repaired"`
	Records    []*models.MutationRecord `json:"records,omitempty"`
	// ExplanationMatch is the share of mutations the repair response named
	ExplanationMatch float64 `json:"explanation_match"`
	// TestExceptionMatchRate is the share of failing model tests whose
	// predicted error matched; it fills the results log column
	TestExceptionMatchRate float64            `json:"test_exception_match_rate"`
	Tests                  *models.TestReport `json:"tests,omitempty"`
	InitialError           string             `json:"initial_error,omitempty"`
	RepairError            string             `json:"repair_error,omitempty"`
	Row                    *models.ResultRow  `json:"row,omitempty"`
}

// Runner executes iterations against one completion provider
type Runner struct {
	cfg       *config.Config
	completer completion.Completer
	sink      results.Sink
	tests     *testengine.Engine
	metrics   *Metrics
	logger    *slog.Logger
	instr     *utils.Instrumentation
	debug     io.Writer
	alignment compare.Alignment
	weights   mutate.Weights
	now       func() time.Time
}

// NewRunner validates the configuration parts the runner depends on. A nil
// logger discards output.
func NewRunner(cfg *config.Config, completer completion.Completer, sink results.Sink, logger *slog.Logger) (*Runner, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if completer == nil {
		return nil, fmt.Errorf("completer is required")
	}
	if sink == nil {
		return nil, fmt.Errorf("results sink is required")
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	alignment, err := compare.ParseAlignment(cfg.Comparator.Alignment)
	if err != nil {
		return nil, err
	}
	weights, err := ParseWeights(cfg.Mutation.Weights)
	if err != nil {
		return nil, err
	}
	return &Runner{
		cfg:       cfg,
		completer: completer,
		sink:      sink,
		metrics:   NewMetrics(),
		logger:    logger,
		instr:     utils.NewInstrumentation(logger, false),
		alignment: alignment,
		weights:   weights,
		now:       time.Now,
	}, nil
}

// WithTestEngine enables execution of model-authored tests
func (r *Runner) WithTestEngine(e *testengine.Engine) *Runner {
	r.tests = e
	return r
}

// WithMetrics replaces the runner's collectors
func (r *Runner) WithMetrics(m *Metrics) *Runner {
	r.metrics = m
	return r
}

// WithDebugOutput prints gold adjacencies next to raw responses
func (r *Runner) WithDebugOutput(w io.Writer) *Runner {
	r.debug = w
	return r
}

// Metrics returns the runner's collectors
func (r *Runner) Metrics() *Metrics { return r.metrics }

// ParseWeights converts configured operation names to mutator weights
func ParseWeights(raw map[string]float64) (mutate.Weights, error) {
	if len(raw) == 0 {
		return mutate.DefaultWeights(), nil
	}
	known := map[models.Operation]bool{
		models.OpFlipEdge: true, models.OpSafeFlip: true, models.OpChangeOutputType: true,
		models.OpRemoveCall: true, models.OpRetargetCall: true,
	}
	w := make(mutate.Weights, len(raw))
	for name, v := range raw {
		op := models.Operation(strings.ToLower(strings.TrimSpace(name)))
		if !known[op] {
			return nil, fmt.Errorf("unknown mutation operation %q", name)
		}
		w[op] = v
	}
	return w, nil
}

// RunIteration generates a codebase, asks for its adjacency, mutates it, asks
// for the repaired adjacency and tests, then appends the row to the sink.
//
// Generation and mutation errors abort the iteration and are returned.
// Completion and parse failures are scored as non-matches. Nothing is
// written unless scoring finished.
func (r *Runner) RunIteration(ctx context.Context, p Params) (*Outcome, error) {
	out := &Outcome{ID: uuid.NewString(), Params: p}
	topo := string(p.Topology)
	logger := r.logger.With("iteration", out.ID, "topology", topo, "nodes", p.NumNodes, "avg_length", p.AvgLength)

	instr := r.instr.WithAttrs("iteration", out.ID)
	if r.metrics != nil {
		instr = instr.WithObserver(r.metrics.observePhase)
	}
	phases := instr.NewPhaseTracker("iteration " + p.String())
	defer phases.Complete(p.NumNodes)

	fail := func(err error) (*Outcome, error) {
		r.observeIteration(topo, StatusFailed)
		logger.Warn("Iteration aborted", "error", err)
		return out, err
	}

	// generate
	phases.StartPhase(PhaseGenerate)
	cb, err := r.generate(p)
	if err != nil {
		return fail(err)
	}
	out.InputBytes = len(cb.Source)
	if limit := r.cfg.Experiment.MaxInputBytes; limit > 0 && out.InputBytes >= limit {
		out.Skipped = true
		out.SkipReason = fmt.Sprintf("source is %d bytes, limit is %d", out.InputBytes, limit)
		r.observeIteration(topo, StatusSkipped)
		logger.Info("Iteration skipped", "reason", out.SkipReason)
		return out, nil
	}

	// extract
	phases.StartPhase(PhaseExtract)
	conversation := []completion.Message{
		{Role: completion.RoleSystem, Content: r.cfg.Prompts.System},
		{Role: completion.RoleUser, Content: withSource(r.cfg.Prompts.Extract, cb.Source)},
	}
	reply := r.complete(ctx, logger, conversation)
	r.displayDebug(fmt.Sprintf("Initial adjacency - %s | nodes: %d | avg length: %d", strings.ToUpper(topo), p.NumNodes, p.AvgLength), cb.Gold(), reply)

	out.Initial, _, out.InitialError = r.score(reply, cb, cb.Graph)
	r.observeScore(topo, StageInitial, out.Initial, out.InitialError)

	// mutate
	phases.StartPhase(PhaseMutate)
	mutated, records, err := mutate.NewMutator(p.Seed, logger).ApplyN(cb, p.NumChanges, r.weights)
	if err != nil {
		return fail(err)
	}
	out.Records = records

	// repair
	phases.StartPhase(PhaseRepair)
	if reply == "" {
		reply = "{}"
	}
	conversation = append(conversation,
		completion.Message{Role: completion.RoleAssistant, Content: reply},
		completion.Message{Role: completion.RoleUser, Content: withSource(r.cfg.Prompts.Repair, mutated.Source)},
	)
	repairReply := r.complete(ctx, logger, conversation)
	r.displayDebug(fmt.Sprintf("Modified adjacency - %s | nodes: %d | changes: %d", strings.ToUpper(topo), p.NumNodes, len(records)), mutated.Gold(), repairReply)

	var repaired *compare.Candidate
	out.Repaired, repaired, out.RepairError = r.score(repairReply, mutated, mutated.Graph)
	r.observeScore(topo, StageRepair, out.Repaired, out.RepairError)

	// tests
	phases.StartPhase(PhaseTests)
	complete := false
	if repaired != nil {
		out.ExplanationMatch = compare.ExplanationMatchRate(records, repaired.Explanation, mutated)
		out.Repaired.ExceptionMatchRate = out.ExplanationMatch
		specs, err := testengine.NormalizeTests(repaired.Tests, mutated)
		if err != nil {
			logger.Debug("Tests block not usable", "error", err)
		}
		complete = testengine.StaticCompleteness(specs, mutated.NodeCount())
		if r.tests != nil && len(specs) > 0 {
			report, err := r.tests.Run(ctx, mutated, specs)
			if err != nil {
				return fail(fmt.Errorf("running tests: %w", err))
			}
			out.Tests = report
			if r.metrics != nil {
				r.metrics.tests(report)
			}
		}
	}

	row := models.ResultRow{
		Timestamp:              r.now(),
		Topology:               displayName(topo),
		NumNodes:               p.NumNodes,
		AvgLength:              p.AvgLength,
		InputTokens:            out.InputBytes,
		NumChanges:             len(records),
		CorrectInitialAdj:      out.Initial.Exact,
		CorrectAdjAfterChanges: out.Repaired.Exact,
		TestsComplete:          complete,
	}
	if out.Tests != nil {
		row.PFPrecision = testengine.PassFailPrecision(out.Tests)
		out.TestExceptionMatchRate = testengine.ExceptionMatchRate(out.Tests)
		row.ExceptionMatchRate = out.TestExceptionMatchRate
	}

	if err := r.sink.Append(row); err != nil {
		return fail(fmt.Errorf("writing result row: %w", err))
	}
	out.Row = &row
	r.observeIteration(topo, StatusScored)

	logger.Info("Iteration scored",
		"initial_match", out.Initial.MatchPercentage,
		"initial_exact", out.Initial.Exact,
		"repair_match", out.Repaired.MatchPercentage,
		"repair_exact", out.Repaired.Exact,
		"changes", len(records),
		"tests_complete", complete)
	return out, nil
}

func (r *Runner) generate(p Params) (*models.Codebase, error) {
	gen := r.cfg.Generator
	g, err := topology.Generate(p.Topology, p.NumNodes, topology.Options{
		MaxFanout:            gen.MaxFanout,
		ExtraEdgeProbability: gen.ExtraEdgeProbability,
		Seed:                 p.Seed,
	})
	if err != nil {
		return nil, err
	}
	s := synth.NewSynthesizer(synth.Options{
		AvgLength:         p.AvgLength,
		BranchingFactor:   gen.BranchingFactor,
		LoopFactor:        gen.LoopFactor,
		StructProbability: gen.StructProbability,
		Seed:              p.Seed,
	}, r.logger)
	return s.Synthesize(g, r.cfg.Experiment.UseSemantics)
}

// complete returns "" when the provider fails so the response is scored as
// unparseable
func (r *Runner) complete(ctx context.Context, logger *slog.Logger, conversation []completion.Message) string {
	reply, err := r.completer.Complete(ctx, conversation)
	if err != nil {
		logger.Warn("Completion failed", "provider", r.completer.Name(), "error", err)
		if r.metrics != nil {
			r.metrics.completionError(r.completer.Name())
		}
		return ""
	}
	return reply
}

func (r *Runner) policy(cb *models.Codebase) compare.Policy {
	return compare.Policy{
		Alignment: r.alignment,
		Exclude: []compare.NodePredicate{
			compare.ExcludeIDs(compare.SentinelID),
			compare.ExcludeNames(cb.ResolveName, r.cfg.Comparator.ExcludedNames...),
		},
	}
}

func (r *Runner) score(reply string, cb *models.Codebase, gold *models.Graph) (models.ScoreReport, *compare.Candidate, string) {
	policy := r.policy(cb)
	cand, err := compare.ParseCandidate(reply, cb)
	if err != nil {
		return compare.Unparsed(gold, policy), nil, err.Error()
	}
	return compare.ScoreCandidate(cand, gold, policy), cand, ""
}

func (r *Runner) observeIteration(topology, status string) {
	if r.metrics != nil {
		r.metrics.iteration(topology, status)
	}
}

func (r *Runner) observeScore(topology, stage string, report models.ScoreReport, parseErr string) {
	if r.metrics == nil {
		return
	}
	if parseErr != "" {
		r.metrics.parseFailure(stage)
	}
	r.metrics.score(topology, stage, report)
}

func (r *Runner) displayDebug(title string, gold models.Adjacency, response string) {
	if r.debug == nil {
		return
	}
	adj, _ := json.MarshalIndent(gold, "", "  ")
	rule := strings.Repeat("=", 60)
	fmt.Fprintf(r.debug, "\n%s\n%s\nAdjacency:\n%s\n", rule, title, adj)
	if response != "" {
		fmt.Fprintf(r.debug, "\nResponse:\n%s\n", response)
	}
	fmt.Fprintf(r.debug, "%s\n\n", rule)
}

func withSource(prompt, source string) string {
	return strings.TrimRight(prompt, "\n") + "\n\n```go\n" + source + "```\n"
}

func displayName(topology string) string {
	if topology == "" {
		return ""
	}
	return strings.ToUpper(topology[:1]) + topology[1:]
}
