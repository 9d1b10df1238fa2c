package utils

import (
	"fmt"
	"io"
	"log/slog"
	"os"
)

// VerboseLogger provides consistent verbose logging across packages
type VerboseLogger struct {
	verbose bool
}

// NewVerboseLogger creates a new verbose logger
func NewVerboseLogger(verbose bool) *VerboseLogger {
	return &VerboseLogger{verbose: verbose}
}

// Logf logs a formatted message to stderr if verbose mode is enabled
func (v *VerboseLogger) Logf(format string, args ...interface{}) {
	if v.verbose {
		fmt.Fprintf(os.Stderr, format, args...)
	}
}

// IsVerbose returns whether verbose mode is enabled
func (v *VerboseLogger) IsVerbose() bool {
	return v.verbose
}

// DebugLogf logs a debug message to stderr if verbose mode is enabled (with [DEBUG] prefix)
func (v *VerboseLogger) DebugLogf(format string, args ...interface{}) {
	if v.verbose {
		fmt.Fprintf(os.Stderr, "[DEBUG] "+format, args...)
	}
}

// VerboseLogf is the one-off form of VerboseLogger.Logf
func VerboseLogf(verbose bool, format string, args ...interface{}) {
	if verbose {
		fmt.Fprintf(os.Stderr, format, args...)
	}
}

// NewLogger creates the structured logger shared by all components. Debug
// records are only emitted in verbose mode.
func NewLogger(w io.Writer, verbose bool) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: func() slog.Level {
			if verbose {
				return slog.LevelDebug
			}
			return slog.LevelInfo
		}(),
	}))
}
