package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/smith-xyz/topobench/pkg/experiment"
	"github.com/smith-xyz/topobench/pkg/models"
	"github.com/smith-xyz/topobench/pkg/mutate"
)

func newMutateCmd(c *cli) *cobra.Command {
	var (
		gen     genFlags
		changes int
		op      string
		outDir  string
		asJSON  bool
	)
	cmd := &cobra.Command{
		Use:   "mutate",
		Short: "Synthesize a codebase, apply mutations and print the result",
		Long: `Synthesize a codebase, apply --changes mutations drawn with the configured
weights (or only --op) and print the mutated source. --json prints the mutated
codebase together with one record per mutation; --out writes a module
directory that also holds mutations.json.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			weights, err := experiment.ParseWeights(c.cfg.Mutation.Weights)
			if err != nil {
				return err
			}
			if op != "" {
				weights, err = experiment.ParseWeights(map[string]float64{op: 1})
				if err != nil {
					return err
				}
			}

			cb, err := gen.build(c)
			if err != nil {
				return err
			}
			mutated, records, err := mutate.NewMutator(gen.seed, c.logger).ApplyN(cb, changes, weights)
			if err != nil {
				return err
			}

			result := struct {
				Codebase *models.Codebase         `json:"codebase"`
				Records  []*models.MutationRecord `json:"records"`
			}{mutated, records}

			switch {
			case outDir != "":
				if err := writeModule(outDir, mutated, c.cfg.Tests.GoVersion, map[string]any{"mutations.json": records}); err != nil {
					return err
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "Mutated codebase written to: %s\n", outDir)
				return nil
			case asJSON:
				return writeJSON(cmd.OutOrStdout(), result)
			default:
				for _, r := range records {
					fmt.Fprintf(cmd.ErrOrStderr(), "%s: removed %v added %v\n", r.Operation, r.Diff.Removed, r.Diff.Added)
				}
				_, err := fmt.Fprint(cmd.OutOrStdout(), mutated.Source)
				return err
			}
		},
	}
	gen.register(cmd.Flags())
	cmd.Flags().IntVarP(&changes, "changes", "c", 1, "Number of mutations to apply")
	cmd.Flags().StringVar(&op, "op", "", "Apply only this operation (flip_edge, safe_flip, change_output_type, remove_call, retarget_call)")
	cmd.Flags().StringVarP(&outDir, "out", "o", "", "Write a module directory instead of printing")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the mutated codebase and records as JSON")
	return cmd
}
