package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/smith-xyz/topobench/pkg/compare"
	"github.com/smith-xyz/topobench/pkg/models"
)

// scoreResult is what the score command prints
type scoreResult struct {
	Report           models.ScoreReport `json:"report"`
	ExplanationMatch *float64           `json:"explanation_match,omitempty"`
}

func newScoreCmd(c *cli) *cobra.Command {
	var (
		goldPath      string
		candidatePath string
		mutationsPath string
		alignment     string
	)
	cmd := &cobra.Command{
		Use:   "score",
		Short: "Compare a candidate adjacency against gold",
		Long: `Score a model response against a gold graph. --gold accepts either a
codebase.json (names in the candidate are then resolved) or a plain
{"adjacency": {"from": [...], "to": [...]}} file (integer ids only).
--candidate is the raw response text; "-" reads standard input. With
--mutations the response's explanation is checked against the records.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if goldPath == "" || candidatePath == "" {
				return fmt.Errorf("--gold and --candidate are required")
			}
			gold, names, err := loadGold(goldPath)
			if err != nil {
				return err
			}

			var text []byte
			if candidatePath == "-" {
				text, err = io.ReadAll(cmd.InOrStdin())
			} else {
				text, err = os.ReadFile(candidatePath)
			}
			if err != nil {
				return fmt.Errorf("failed to read candidate: %w", err)
			}

			if alignment == "" {
				alignment = c.cfg.Comparator.Alignment
			}
			policy := compare.DefaultPolicy()
			if policy.Alignment, err = compare.ParseAlignment(alignment); err != nil {
				return err
			}
			if cb, ok := names.(*models.Codebase); ok {
				policy.Exclude = append(policy.Exclude, compare.ExcludeNames(cb.ResolveName, c.cfg.Comparator.ExcludedNames...))
			}

			var result scoreResult
			cand, err := compare.ParseCandidate(string(text), names)
			if err != nil {
				c.logger.Warn("Candidate did not parse", "error", err)
				result.Report = compare.Unparsed(gold, policy)
				return writeJSON(cmd.OutOrStdout(), result)
			}
			result.Report = compare.ScoreCandidate(cand, gold, policy)

			if mutationsPath != "" {
				var records []*models.MutationRecord
				if err := readJSON(mutationsPath, &records); err != nil {
					return err
				}
				rate := compare.ExplanationMatchRate(records, cand.Explanation, names)
				result.Report.ExceptionMatchRate = rate
				result.ExplanationMatch = &rate
			}
			return writeJSON(cmd.OutOrStdout(), result)
		},
	}
	cmd.Flags().StringVar(&goldPath, "gold", "", "Gold codebase.json or adjacency JSON")
	cmd.Flags().StringVar(&candidatePath, "candidate", "", "Candidate response file, or - for stdin")
	cmd.Flags().StringVar(&mutationsPath, "mutations", "", "mutations.json to check the explanation against")
	cmd.Flags().StringVar(&alignment, "alignment", "", "strict or permutation (default from config)")
	return cmd
}

// loadGold reads a codebase model, falling back to a bare adjacency whose
// node count is inferred from the largest id
func loadGold(path string) (*models.Graph, compare.NameResolver, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read gold: %w", err)
	}

	var cb models.Codebase
	if err := json.Unmarshal(data, &cb); err == nil && cb.Graph != nil {
		return cb.Graph, &cb, nil
	}

	adj, err := models.UnmarshalEnvelope(data)
	if err != nil {
		return nil, nil, fmt.Errorf("gold %s is neither a codebase nor an adjacency: %w", path, err)
	}
	n := 0
	for i := range adj.From {
		n = max(n, adj.From[i]+1, adj.To[i]+1)
	}
	g, err := models.GraphFromAdjacency(n, adj)
	if err != nil {
		return nil, nil, err
	}
	return g, nil, nil
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return nil
}
