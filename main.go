package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/smith-xyz/topobench/pkg/config"
	"github.com/smith-xyz/topobench/pkg/utils"
)

// cli carries the persistent flags and what they resolve to
type cli struct {
	configPath string
	envFile    string
	verbose    bool

	cfg    *config.Config
	logger *slog.Logger
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(&cli{}).ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

func newRootCmd(c *cli) *cobra.Command {
	root := &cobra.Command{
		Use:   "topobench",
		Short: "Benchmark call-graph extraction and repair on synthesized Go codebases",
		Long: `topobench generates Go programs whose call graph is known exactly, asks a
model to recover that graph, mutates the program, asks for the repaired graph
and scores both answers.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.setup(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&c.configPath, "config", "", "Path to a TOML config file (default: embedded config plus ./topobench.toml)")
	flags.StringVar(&c.envFile, "env-file", "", "Load provider API keys from this dotenv file (default: .env if present)")
	flags.BoolVarP(&c.verbose, "verbose", "v", false, "Verbose output")

	root.AddCommand(
		newRunCmd(c),
		newGenerateCmd(c),
		newMutateCmd(c),
		newScoreCmd(c),
		newExtractCmd(c),
		newVersionCmd(),
	)
	return root
}

func (c *cli) setup(cmd *cobra.Command) error {
	c.logger = utils.NewLogger(cmd.ErrOrStderr(), c.verbose)

	if c.envFile != "" {
		if err := godotenv.Load(c.envFile); err != nil {
			return fmt.Errorf("failed to load env file %s: %w", c.envFile, err)
		}
	} else if utils.FileExists(".env") {
		if err := godotenv.Load(); err != nil {
			c.logger.Warn("Ignoring unreadable .env", "error", err)
		}
	}

	var err error
	if c.configPath != "" {
		c.cfg, err = config.LoadFromFile(c.configPath)
	} else {
		c.cfg, err = config.DefaultConfig()
	}
	if err != nil {
		return err
	}
	c.logger.Debug("Configuration loaded", "path", c.configPath, "provider", c.cfg.LLM.Provider)
	return nil
}
