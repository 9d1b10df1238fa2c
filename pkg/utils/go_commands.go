package utils

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
)

// CommandResult represents the result of an external command execution
type CommandResult struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
	Error    error
}

// Succeeded reports whether the command ran and exited with status 0
func (r *CommandResult) Succeeded() bool {
	return r.Error == nil && r.ExitCode == 0
}

// CheckGoAvailable checks if the go binary is available in PATH
func CheckGoAvailable(goBinary string, verbose bool) error {
	if goBinary == "" {
		goBinary = "go"
	}
	VerboseLogf(verbose, "Checking availability of %s\n", goBinary)

	if _, err := exec.LookPath(goBinary); err != nil {
		return fmt.Errorf("%s not found in PATH: %w", goBinary, err)
	}

	VerboseLogf(verbose, "%s is available\n", goBinary)
	return nil
}

// RunGoCommand runs the go tool with args in workingDir. Workspace mode is
// disabled so a surrounding go.work never leaks into the temporary module.
func RunGoCommand(ctx context.Context, goBinary, workingDir string, verbose bool, args ...string) *CommandResult {
	if goBinary == "" {
		goBinary = "go"
	}
	VerboseLogf(verbose, "Executing %s %v in %s\n", goBinary, args, workingDir)

	cmd := exec.CommandContext(ctx, goBinary, args...)
	cmd.Dir = workingDir
	cmd.Env = append(os.Environ(), "GOWORK=off", "GOFLAGS=-mod=mod")

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	result := &CommandResult{
		Stdout: stdout.Bytes(),
		Stderr: stderr.Bytes(),
		Error:  err,
	}

	// Extract exit code
	if err != nil {
		var exitError *exec.ExitError
		if errors.As(err, &exitError) {
			result.ExitCode = exitError.ExitCode()
		} else {
			result.ExitCode = -1 // Unknown exit code
		}
	}
	if ctxErr := ctx.Err(); ctxErr != nil && result.Error != nil {
		result.Error = fmt.Errorf("%w: %w", ctxErr, result.Error)
	}

	VerboseLogf(verbose, "%s completed with exit code: %d\n", goBinary, result.ExitCode)
	return result
}
