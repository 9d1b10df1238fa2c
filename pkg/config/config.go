package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Embedded default configuration. A topobench.toml in the working directory
// (or up to two parents) replaces any keys it sets.
//
//go:embed default_config.toml
var embeddedConfigData []byte

// LocalConfigName is the override file searched for next to the binary
const LocalConfigName = "topobench.toml"

// Config holds the application configuration.
type Config struct {
	Experiment ExperimentConfig `toml:"experiment"`
	Generator  GeneratorConfig  `toml:"generator"`
	Comparator ComparatorConfig `toml:"comparator"`
	Mutation   MutationConfig   `toml:"mutation"`
	LLM        LLMConfig        `toml:"llm"`
	Prompts    PromptConfig     `toml:"prompts"`
	Results    ResultsConfig    `toml:"results"`
	Tests      TestsConfig      `toml:"tests"`
}

// ExperimentConfig describes the parameter grid.
type ExperimentConfig struct {
	Topologies    []string `toml:"topologies"`
	NodeCounts    []int    `toml:"node_counts"`
	AvgLengths    []int    `toml:"avg_lengths"`
	ChangeCounts  []int    `toml:"change_counts"`
	Seed          uint64   `toml:"seed"`
	Workers       int      `toml:"workers"`
	MaxInputBytes int      `toml:"max_input_bytes"`
	UseSemantics  bool     `toml:"use_semantics"`
	MetricsAddr   string   `toml:"metrics_addr"`
}

// GeneratorConfig tunes topology generation and code synthesis.
type GeneratorConfig struct {
	MaxFanout            int     `toml:"max_fanout"`
	ExtraEdgeProbability float64 `toml:"extra_edge_probability"`
	BranchingFactor      int     `toml:"branching_factor"`
	LoopFactor           int     `toml:"loop_factor"`
	StructProbability    float64 `toml:"struct_probability"`
}

// ComparatorConfig selects the alignment mode and excluded callables.
type ComparatorConfig struct {
	Alignment     string   `toml:"alignment"`
	ExcludedNames []string `toml:"excluded_names"`
}

// MutationConfig weights the mutation operations by name.
type MutationConfig struct {
	Weights map[string]float64 `toml:"weights"`
}

// LLMConfig selects the completion provider.
type LLMConfig struct {
	Provider    string   `toml:"provider"`
	Model       string   `toml:"model"`
	BaseURL     string   `toml:"base_url"`
	Timeout     Duration `toml:"timeout"`
	RPS         float64  `toml:"rps"`
	Burst       int      `toml:"burst"`
	Temperature float32  `toml:"temperature"`
	MaxTokens   int      `toml:"max_tokens"`
	JSONMode    bool     `toml:"json_mode"`
}

// PromptConfig holds the instruction text. The codebase source is appended
// to Extract; Repair is sent after the mutated source.
type PromptConfig struct {
	System  string `toml:"system"`
	Extract string `toml:"extract"`
	Repair  string `toml:"repair"`
}

// ResultsConfig locates the results log.
type ResultsConfig struct {
	Path   string   `toml:"path"`
	Fields []string `toml:"fields"`
}

// TestsConfig configures the Go test runner.
type TestsConfig struct {
	GoBinary  string   `toml:"go_binary"`
	GoVersion string   `toml:"go_version"`
	Timeout   Duration `toml:"timeout"`
	Enabled   bool     `toml:"enabled"`
}

// Duration decodes TOML strings such as "90s".
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", text, err)
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// DefaultConfig returns the default configuration with optional local overrides.
// It always starts with the embedded config, then optionally merges with a
// local topobench.toml.
func DefaultConfig() (*Config, error) {
	config, err := Embedded()
	if err != nil {
		return nil, err
	}

	localConfigPaths := []string{
		LocalConfigName,
		filepath.Join("..", LocalConfigName),
		filepath.Join("..", "..", LocalConfigName),
	}

	for _, path := range localConfigPaths {
		if _, err := os.Stat(path); err == nil {
			if err := config.Merge(path); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to load local config %s: %v\n", path, err)
			}
			break
		}
	}

	return config, config.Validate()
}

// Embedded returns the built-in defaults only.
func Embedded() (*Config, error) {
	var config Config
	if err := toml.Unmarshal(embeddedConfigData, &config); err != nil {
		return nil, fmt.Errorf("failed to parse embedded config: %w", err)
	}
	return &config, nil
}

// LoadFromFile loads configuration from a TOML file on top of the embedded
// defaults. Keys absent from the file keep their default values.
func LoadFromFile(filepath string) (*Config, error) {
	config, err := Embedded()
	if err != nil {
		return nil, err
	}
	if err := config.Merge(filepath); err != nil {
		return nil, err
	}
	return config, config.Validate()
}

// Merge decodes a TOML file over the current values. Undecoded keys are
// rejected so typos do not silently fall back to defaults.
func (c *Config) Merge(path string) error {
	md, err := toml.DecodeFile(path, c)
	if err != nil {
		return fmt.Errorf("failed to load config from %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return fmt.Errorf("unknown keys in %s: %s", path, strings.Join(keys, ", "))
	}
	return nil
}

// Validate checks ranges that would otherwise fail deep inside a run.
func (c *Config) Validate() error {
	e := c.Experiment
	if len(e.Topologies) == 0 {
		return fmt.Errorf("experiment.topologies must not be empty")
	}
	for _, n := range e.NodeCounts {
		if n < 1 {
			return fmt.Errorf("experiment.node_counts: %d is not positive", n)
		}
	}
	for _, n := range e.AvgLengths {
		if n < 1 {
			return fmt.Errorf("experiment.avg_lengths: %d is not positive", n)
		}
	}
	for _, n := range e.ChangeCounts {
		if n < 0 {
			return fmt.Errorf("experiment.change_counts: %d is negative", n)
		}
	}
	if e.Workers < 1 {
		return fmt.Errorf("experiment.workers must be at least 1, got %d", e.Workers)
	}
	if p := c.Generator.ExtraEdgeProbability; p < 0 || p > 1 {
		return fmt.Errorf("generator.extra_edge_probability must be within [0, 1], got %g", p)
	}
	if p := c.Generator.StructProbability; p < 0 || p > 1 {
		return fmt.Errorf("generator.struct_probability must be within [0, 1], got %g", p)
	}
	for op, w := range c.Mutation.Weights {
		if w < 0 {
			return fmt.Errorf("mutation.weights.%s is negative", op)
		}
	}
	if c.LLM.RPS < 0 {
		return fmt.Errorf("llm.rps must not be negative")
	}
	if c.Results.Path == "" {
		return fmt.Errorf("results.path must be set")
	}
	return nil
}

// IsExcludedName reports whether a callable name is kept out of scoring.
func (c *Config) IsExcludedName(name string) bool {
	for _, n := range c.Comparator.ExcludedNames {
		if n == name {
			return true
		}
	}
	return false
}
