package utils

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrimSpaceSlice(t *testing.T) {
	tests := []struct {
		name     string
		input    []string
		expected []string
	}{
		{name: "empty slice", input: []string{}, expected: nil},
		{name: "mixed", input: []string{"  a ", "", "b", "   "}, expected: []string{"a", "b"}},
		{name: "already trimmed", input: []string{"x", "y"}, expected: []string{"x", "y"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, TrimSpaceSlice(tt.input))
		})
	}
}

func TestParseCommaDelimited(t *testing.T) {
	assert.Nil(t, ParseCommaDelimited(""))
	assert.Equal(t, []string{"chain", "branch", "random"}, ParseCommaDelimited(" chain, branch ,,random "))
}

func TestParseIntList(t *testing.T) {
	values, err := ParseIntList("5, 10,20")
	require.NoError(t, err)
	assert.Equal(t, []int{5, 10, 20}, values)

	values, err = ParseIntList("")
	require.NoError(t, err)
	assert.Empty(t, values)

	_, err = ParseIntList("5,ten")
	assert.Error(t, err)
}

func TestVerboseLogger(t *testing.T) {
	verboseLogger := NewVerboseLogger(true)
	assert.True(t, verboseLogger.IsVerbose())
	assert.False(t, NewVerboseLogger(false).IsVerbose())

	// output goes to stderr; these must simply not panic
	verboseLogger.Logf("test %s", "formatted")
	verboseLogger.DebugLogf("debug %s", "message")
	VerboseLogf(false, "should not %s", "appear")
}

func TestNewLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	NewLogger(&buf, false).Debug("hidden")
	assert.Empty(t, buf.String())

	NewLogger(&buf, true).Debug("shown", "key", "value")
	assert.Contains(t, buf.String(), "msg=shown")
	assert.Contains(t, buf.String(), "key=value")
}

func TestSafeAppendFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "results.csv")

	f, empty, err := SafeAppendFile(path)
	require.NoError(t, err)
	assert.True(t, empty)
	_, err = f.WriteString("header\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	f, empty, err = SafeAppendFile(path)
	require.NoError(t, err)
	assert.False(t, empty)
	_, err = f.WriteString("row\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "header\nrow\n", string(data))
	assert.True(t, FileExists(path))
	assert.False(t, FileExists(filepath.Dir(path)))
	assert.False(t, FileExists(""))
}

func TestSafeCreateFileRejectsTraversal(t *testing.T) {
	_, err := SafeCreateFile("../../outside.csv")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "directory traversal")

	_, err = SafeCreateFile("/etc/topobench.csv")
	assert.Error(t, err)
}

func TestWriteFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, WriteFiles(dir, map[string][]byte{"go.mod": []byte("module x\n")}))
	assert.True(t, FileExists(filepath.Join(dir, "go.mod")))

	assert.Error(t, WriteFiles(dir, map[string][]byte{"../escape.go": nil}))
}

func TestPhaseTrackerObserver(t *testing.T) {
	var seen []string
	inst := NewInstrumentation(slog.New(slog.DiscardHandler), false).
		WithAttrs("iteration", "abc").
		WithObserver(func(phase string, d time.Duration) {
			seen = append(seen, phase)
		})

	pt := inst.NewPhaseTracker("iteration")
	pt.StartPhase("generate")
	pt.StartPhase("extract")
	pt.Complete(1)

	assert.Equal(t, []string{"generate", "extract"}, seen)
	durations := pt.Durations()
	assert.Contains(t, durations, "generate")
	assert.Contains(t, durations, "extract")
}

func TestTimedOperation(t *testing.T) {
	inst := NewInstrumentation(slog.New(slog.DiscardHandler), false)
	assert.NoError(t, inst.TimedOperation("ok", func() error { return nil }))

	boom := errors.New("boom")
	assert.ErrorIs(t, inst.TimedOperation("fail", func() error { return boom }), boom)
}

func TestProgressTracker(t *testing.T) {
	inst := NewInstrumentation(slog.New(slog.DiscardHandler), true)
	pt := inst.NewProgressTracker("grid", 20)
	for i := 0; i < 20; i++ {
		pt.Update(1)
	}
	pt.Complete()
	assert.Equal(t, 20, pt.Processed())
}

func TestRunGoCommand(t *testing.T) {
	if _, err := exec.LookPath("go"); err != nil {
		t.Skip("go toolchain not available")
	}
	require.NoError(t, CheckGoAvailable("", false))

	result := RunGoCommand(context.Background(), "go", t.TempDir(), false, "version")
	require.True(t, result.Succeeded(), string(result.Stderr))
	assert.True(t, strings.HasPrefix(string(result.Stdout), "go version"))

	result = RunGoCommand(context.Background(), "go", t.TempDir(), false, "no-such-subcommand")
	assert.False(t, result.Succeeded())
	assert.NotZero(t, result.ExitCode)
}

func TestCheckGoAvailableMissingBinary(t *testing.T) {
	err := CheckGoAvailable("topobench-no-such-binary", false)
	assert.Error(t, err)
}
