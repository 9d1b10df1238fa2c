package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/smith-xyz/topobench/pkg/completion"
	"github.com/smith-xyz/topobench/pkg/experiment"
	"github.com/smith-xyz/topobench/pkg/results"
	"github.com/smith-xyz/topobench/pkg/testengine"
	"github.com/smith-xyz/topobench/pkg/utils"
)

func newRunCmd(c *cli) *cobra.Command {
	var (
		provider    string
		model       string
		workers     int
		resultsPath string
		metricsAddr string
		topologies  string
		nodeCounts  string
		dryRun      bool
		noTests     bool
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the experiment grid against a completion provider",
		Long: `Run every combination of the configured topologies, node counts, average
lengths and change counts. Each iteration appends one row to the results CSV
once it has been scored. Provider keys are read from OPENAI_API_KEY,
GROQ_API_KEY, ANTHROPIC_API_KEY or GEMINI_API_KEY.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := *c.cfg
			if provider != "" {
				cfg.LLM.Provider = provider
			}
			if model != "" {
				cfg.LLM.Model = model
			}
			if workers > 0 {
				cfg.Experiment.Workers = workers
			}
			if resultsPath != "" {
				cfg.Results.Path = resultsPath
			}
			if metricsAddr != "" {
				cfg.Experiment.MetricsAddr = metricsAddr
			}
			if noTests {
				cfg.Tests.Enabled = false
			}
			if topologies != "" {
				cfg.Experiment.Topologies = utils.ParseCommaDelimited(topologies)
			}
			if nodeCounts != "" {
				counts, err := utils.ParseIntList(nodeCounts)
				if err != nil {
					return fmt.Errorf("invalid --node-counts: %w", err)
				}
				cfg.Experiment.NodeCounts = counts
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			if dryRun {
				e := cfg.Experiment
				grid, err := experiment.Grid(experiment.ExperimentParams{
					Topologies:   e.Topologies,
					NodeCounts:   e.NodeCounts,
					AvgLengths:   e.AvgLengths,
					ChangeCounts: e.ChangeCounts,
					Seed:         e.Seed,
				})
				if err != nil {
					return err
				}
				for _, p := range grid {
					fmt.Fprintln(cmd.OutOrStdout(), p.String())
				}
				return nil
			}

			ctx := cmd.Context()
			completer, err := completion.New(ctx, cfg.LLM, c.logger)
			if err != nil {
				return err
			}
			sink, err := results.NewCSVSink(cfg.Results.Path, cfg.Results.Fields)
			if err != nil {
				return err
			}
			runner, err := experiment.NewRunner(&cfg, completer, sink, c.logger)
			if err != nil {
				return err
			}

			if cfg.Tests.Enabled {
				if err := utils.CheckGoAvailable(cfg.Tests.GoBinary, c.verbose); err != nil {
					c.logger.Warn("Model tests disabled", "error", err)
				} else {
					gr := testengine.NewGoRunner(cfg.Tests.GoBinary, cfg.Tests.Timeout.Duration)
					gr.GoVersion = cfg.Tests.GoVersion
					gr.Verbose = c.verbose
					runner.WithTestEngine(testengine.NewEngine(gr, c.logger))
				}
			}
			if c.verbose {
				runner.WithDebugOutput(cmd.ErrOrStderr())
			}
			if addr := cfg.Experiment.MetricsAddr; addr != "" {
				stop := serveMetrics(addr, runner.Metrics(), c.logger)
				defer stop()
			}

			summary, err := runner.RunGrid(ctx)
			if summary != nil {
				for _, f := range summary.Failed {
					c.logger.Warn("Iteration failed", "params", f.Params.String(), "error", f.Err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Scored %d, skipped %d, failed %d. Results in %s\n",
					summary.Scored, summary.Skipped, len(summary.Failed), sink.Path())
			}
			return err
		},
	}
	cmd.Flags().StringVarP(&provider, "provider", "p", "", "Completion provider: "+fmt.Sprint(completion.Providers))
	cmd.Flags().StringVarP(&model, "model", "m", "", "Model name (default from config)")
	cmd.Flags().IntVarP(&workers, "workers", "w", 0, "Parallel iterations (default from config)")
	cmd.Flags().StringVar(&resultsPath, "results", "", "Results CSV path (default from config)")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address, e.g. :9090")
	cmd.Flags().StringVar(&topologies, "topologies", "", "Comma-separated topologies to run (default from config)")
	cmd.Flags().StringVar(&nodeCounts, "node-counts", "", "Comma-separated node counts, e.g. 10,20 (default from config)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "List the iterations without running them")
	cmd.Flags().BoolVar(&noTests, "no-tests", false, "Do not execute model-authored tests")
	return cmd
}

// serveMetrics exposes /metrics until the returned stop function is called
func serveMetrics(addr string, m *experiment.Metrics, logger *slog.Logger) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		logger.Info("Serving metrics", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Metrics server failed", "error", err)
		}
	}()
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}
