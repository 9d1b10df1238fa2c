package testengine

import (
	"context"
	"fmt"
	"os"
	"time"

	"golang.org/x/mod/modfile"

	"github.com/smith-xyz/topobench/pkg/utils"
)

// Runner executes a generated program and returns its standard output.
// Isolation of the process is the runner's concern.
type Runner interface {
	Run(ctx context.Context, files map[string][]byte) ([]byte, error)
}

// GoRunner builds and runs the program with the local go toolchain in a
// throwaway module
type GoRunner struct {
	GoBinary  string
	GoVersion string
	Timeout   time.Duration
	Verbose   bool
}

// NewGoRunner creates a runner with the given per-run timeout
func NewGoRunner(goBinary string, timeout time.Duration) *GoRunner {
	return &GoRunner{GoBinary: goBinary, GoVersion: "1.22", Timeout: timeout}
}

// Run writes files plus a go.mod into a temp directory and runs `go run .`
func (r *GoRunner) Run(ctx context.Context, files map[string][]byte) ([]byte, error) {
	if err := utils.CheckGoAvailable(r.GoBinary, r.Verbose); err != nil {
		return nil, err
	}

	dir, err := os.MkdirTemp("", "topobench-tests-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp module: %w", err)
	}
	defer os.RemoveAll(dir)

	gomod, err := ModuleFile("topobench.local/harness", r.GoVersion)
	if err != nil {
		return nil, err
	}
	all := map[string][]byte{"go.mod": gomod}
	for name, data := range files {
		all[name] = data
	}
	if err := utils.WriteFiles(dir, all); err != nil {
		return nil, err
	}

	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	result := utils.RunGoCommand(ctx, r.GoBinary, dir, r.Verbose, "run", ".")
	if !result.Succeeded() {
		return result.Stdout, fmt.Errorf("go run exited with code %d: %w\n%s", result.ExitCode, result.Error, result.Stderr)
	}
	return result.Stdout, nil
}

// ModuleFile renders a minimal go.mod with no requirements
func ModuleFile(path, goVersion string) ([]byte, error) {
	f := &modfile.File{}
	if err := f.AddModuleStmt(path); err != nil {
		return nil, fmt.Errorf("failed to build go.mod: %w", err)
	}
	if err := f.AddGoStmt(goVersion); err != nil {
		return nil, fmt.Errorf("failed to build go.mod: %w", err)
	}
	data, err := f.Format()
	if err != nil {
		return nil, fmt.Errorf("failed to format go.mod: %w", err)
	}
	return data, nil
}
