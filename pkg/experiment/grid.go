package experiment

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/smith-xyz/topobench/pkg/topology"
	"github.com/smith-xyz/topobench/pkg/utils"
)

// IterationError ties an aborted iteration to its parameters
type IterationError struct {
	Params Params
	Err    error
}

func (e *IterationError) Error() string {
	return fmt.Sprintf("iteration %s: %v", e.Params, e.Err)
}

func (e *IterationError) Unwrap() error { return e.Err }

// Summary totals a grid run. Outcomes are in grid order; aborted iterations
// leave a nil slot.
type Summary struct {
	Outcomes []*Outcome
	Scored   int
	Skipped  int
	Failed   []*IterationError
}

// Grid expands the configured parameter lists. Iteration i uses seed
// Experiment.Seed + i.
func Grid(e ExperimentParams) ([]Params, error) {
	kinds := make([]topology.Kind, 0, len(e.Topologies))
	for _, name := range e.Topologies {
		k, err := topology.ParseKind(name)
		if err != nil {
			return nil, err
		}
		kinds = append(kinds, k)
	}

	var grid []Params
	for _, length := range e.AvgLengths {
		for _, changes := range e.ChangeCounts {
			for _, kind := range kinds {
				for _, n := range e.NodeCounts {
					grid = append(grid, Params{
						Topology:   kind,
						NumNodes:   n,
						AvgLength:  length,
						NumChanges: changes,
						Seed:       e.Seed + uint64(len(grid)),
					})
				}
			}
		}
	}
	return grid, nil
}

// ExperimentParams is the subset of configuration that shapes the grid
type ExperimentParams struct {
	Topologies   []string
	NodeCounts   []int
	AvgLengths   []int
	ChangeCounts []int
	Seed         uint64
}

// RunGrid runs every configured iteration on a bounded worker pool. A
// failing iteration is recorded in the summary and does not stop the others;
// only cancellation of ctx ends the run early.
func (r *Runner) RunGrid(ctx context.Context) (*Summary, error) {
	e := r.cfg.Experiment
	grid, err := Grid(ExperimentParams{
		Topologies:   e.Topologies,
		NodeCounts:   e.NodeCounts,
		AvgLengths:   e.AvgLengths,
		ChangeCounts: e.ChangeCounts,
		Seed:         e.Seed,
	})
	if err != nil {
		return nil, err
	}
	return r.RunAll(ctx, grid)
}

// RunAll runs the given iterations with Experiment.Workers in parallel
func (r *Runner) RunAll(ctx context.Context, grid []Params) (*Summary, error) {
	workers := r.cfg.Experiment.Workers
	if workers < 1 {
		workers = 1
	}

	summary := &Summary{Outcomes: make([]*Outcome, len(grid))}
	progress := utils.NewInstrumentation(r.logger, true).NewProgressTracker("experiment grid", len(grid))
	r.logger.Info("Starting experiment grid", "iterations", len(grid), "workers", workers, "provider", r.completer.Name())

	var mu sync.Mutex
	var g errgroup.Group
	g.SetLimit(workers)
	for i, p := range grid {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			out, err := r.RunIteration(ctx, p)
			progress.Update(1)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				summary.Failed = append(summary.Failed, &IterationError{Params: p, Err: err})
				return nil
			}
			summary.Outcomes[i] = out
			if out.Skipped {
				summary.Skipped++
			} else {
				summary.Scored++
			}
			return nil
		})
	}
	_ = g.Wait()
	progress.Complete()

	r.logger.Info("Experiment grid finished",
		"scored", summary.Scored,
		"skipped", summary.Skipped,
		"failed", len(summary.Failed))
	return summary, ctx.Err()
}
