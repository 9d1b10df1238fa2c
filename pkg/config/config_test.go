package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddedConfig(t *testing.T) {
	config, err := Embedded()
	require.NoError(t, err)
	require.NoError(t, config.Validate())

	assert.Equal(t, []string{"chain", "branch", "random"}, config.Experiment.Topologies)
	assert.Equal(t, 10, config.Experiment.NodeCounts[0])
	assert.Equal(t, 50, config.Experiment.NodeCounts[len(config.Experiment.NodeCounts)-1])
	assert.Equal(t, []int{5, 7, 9, 11, 13, 15}, config.Experiment.AvgLengths)
	assert.Equal(t, 50000, config.Experiment.MaxInputBytes)
	assert.Equal(t, "strict", config.Comparator.Alignment)
	assert.True(t, config.IsExcludedName("main"))
	assert.False(t, config.IsExcludedName("Function_0"))
	assert.Equal(t, 1.0, config.Mutation.Weights["safe_flip"])
	assert.Equal(t, 120*time.Second, config.LLM.Timeout.Duration)
	assert.Equal(t, 60*time.Second, config.Tests.Timeout.Duration)
	assert.NotEmpty(t, config.Prompts.System)
	assert.NotEmpty(t, config.Prompts.Extract)
	assert.NotEmpty(t, config.Prompts.Repair)
	assert.Equal(t, "timestamp", config.Results.Fields[0])
}

func TestLoadFromFileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custom.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[experiment]
topologies = ["chain"]
workers = 4

[llm]
provider = "openai"
timeout = "5s"

[mutation.weights]
retarget_call = 2.5
`), 0o600))

	config, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"chain"}, config.Experiment.Topologies)
	assert.Equal(t, 4, config.Experiment.Workers)
	assert.Equal(t, "openai", config.LLM.Provider)
	assert.Equal(t, 5*time.Second, config.LLM.Timeout.Duration)
	// untouched keys keep defaults
	assert.Equal(t, []int{5, 7, 9, 11, 13, 15}, config.Experiment.AvgLengths)
	assert.Equal(t, "llama3-70b-8192", config.LLM.Model)
	// map keys merge
	assert.Equal(t, 2.5, config.Mutation.Weights["retarget_call"])
	assert.Equal(t, 1.0, config.Mutation.Weights["safe_flip"])
}

func TestLoadFromFileErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"unknown key", "[experiment]\nworkerz = 2\n", "unknown keys"},
		{"bad duration", "[llm]\ntimeout = \"soon\"\n", "invalid duration"},
		{"syntax", "[experiment\n", "failed to load config"},
		{"no workers", "[experiment]\nworkers = 0\n", "workers"},
		{"no topologies", "[experiment]\ntopologies = []\n", "topologies"},
		{"bad probability", "[generator]\nextra_edge_probability = 1.5\n", "extra_edge_probability"},
		{"negative weight", "[mutation.weights]\nsafe_flip = -1.0\n", "negative"},
		{"bad node count", "[experiment]\nnode_counts = [0]\n", "node_counts"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "bad.toml")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o600))

			_, err := LoadFromFile(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadFromFileMissing(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "absent.toml"))
	require.Error(t, err)
}

func TestDefaultConfigPicksUpLocalOverride(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, LocalConfigName), []byte("[results]\npath = \"local.csv\"\n"), 0o600))
	t.Chdir(dir)

	config, err := DefaultConfig()
	require.NoError(t, err)
	assert.Equal(t, "local.csv", config.Results.Path)
	assert.Equal(t, "groq", config.LLM.Provider)
}

func TestDurationText(t *testing.T) {
	var d Duration
	require.NoError(t, d.UnmarshalText([]byte("1m30s")))
	assert.Equal(t, 90*time.Second, d.Duration)

	text, err := d.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "1m30s", string(text))
}
