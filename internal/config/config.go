// Package config provides unified configuration loading for bnet.
// It supports loading from YAML files and environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/mgriffen/bnet/sampling"
	"gopkg.in/yaml.v3"
)

// BnetConfig contains all bnet configuration settings.
type BnetConfig struct {
	// Network points at the default network definition file.
	Network NetworkConfig `json:"network" yaml:"network"`

	// Sampling contains the default estimation settings.
	Sampling SamplingConfig `json:"sampling" yaml:"sampling"`

	// Sweep contains the default convergence sweep range.
	Sweep SweepConfig `json:"sweep" yaml:"sweep"`

	// Store contains run history storage settings.
	Store StoreConfig `json:"store" yaml:"store"`

	// Logging contains settings for operational and run logging.
	Logging LoggingConfig `json:"logging" yaml:"logging"`
}

// NetworkConfig selects the network definition used when a command is
// not given an explicit file.
type NetworkConfig struct {
	// Path is a network definition YAML file. Supports ${VAR} syntax
	// for environment variables. Empty means commands require --network.
	Path string `json:"path,omitempty" yaml:"path,omitempty"`
}

// SamplingConfig holds the default estimation settings.
type SamplingConfig struct {
	// SampleCount is the number of samples drawn per estimate.
	SampleCount int `json:"sample_count" yaml:"sample_count"`

	// Seed fixes the random stream across runs. Zero draws a fresh
	// seed each run.
	Seed uint64 `json:"seed,omitempty" yaml:"seed,omitempty"`

	// Method is the default method for conditional queries:
	// "rejection" or "likelihood".
	Method string `json:"method" yaml:"method"`
}

// SweepConfig holds the default sample count range for sweeps.
type SweepConfig struct {
	Start int `json:"start" yaml:"start"`
	Stop  int `json:"stop" yaml:"stop"`
	Step  int `json:"step" yaml:"step"`
}

// StoreConfig configures the run history store.
type StoreConfig struct {
	// Path is the sqlite database holding recorded runs. Supports
	// ${VAR} syntax for environment variables.
	Path string `json:"path,omitempty" yaml:"path,omitempty"`
}

// LoggingConfig configures bnet's logging behavior.
type LoggingConfig struct {
	// Level sets the log verbosity: "info" (default), "debug", or "trace".
	// "debug" enables run logging to .bnet/runs.jsonl.
	// "trace" additionally includes per-point sweep detail.
	Level string `json:"level" yaml:"level"`
}

// DefaultDir returns the bnet home directory, $HOME/.bnet, or empty
// when the home directory is unknown.
func DefaultDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".bnet")
}

// DefaultStorePath returns the default run store location under
// DefaultDir.
func DefaultStorePath() string {
	dir := DefaultDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "runs.db")
}

// Default returns a BnetConfig with sensible defaults.
func Default() *BnetConfig {
	return &BnetConfig{
		Sampling: SamplingConfig{
			SampleCount: 10000,
			Method:      string(sampling.MethodRejection),
		},
		Sweep: SweepConfig{
			Start: 20,
			Stop:  10000,
			Step:  100,
		},
		Store: StoreConfig{
			Path: DefaultStorePath(),
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load loads configuration from the default locations and environment
// variables. Order: defaults -> $HOME/.bnet/config.yaml -> environment.
func Load() (*BnetConfig, error) {
	config := Default()

	if dir := DefaultDir(); dir != "" {
		configPath := filepath.Join(dir, "config.yaml")
		if _, statErr := os.Stat(configPath); statErr == nil {
			fileConfig, loadErr := LoadFromFile(configPath)
			if loadErr != nil {
				return nil, fmt.Errorf("loading config file: %w", loadErr)
			}
			config = fileConfig
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// LoadFromFile loads configuration from a specific YAML file.
func LoadFromFile(path string) (*BnetConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	config.Network.Path = expandEnvVars(config.Network.Path)
	config.Store.Path = expandEnvVars(config.Store.Path)

	return config, nil
}

// Validate checks that the configuration is valid.
func (c *BnetConfig) Validate() error {
	if c.Sampling.SampleCount <= 0 {
		return fmt.Errorf("sample_count must be positive, got %d", c.Sampling.SampleCount)
	}

	if c.Sampling.Method != "" {
		if _, err := sampling.ParseMethod(c.Sampling.Method); err != nil {
			return fmt.Errorf("invalid method: %s (valid: prior, rejection, likelihood)", c.Sampling.Method)
		}
	}

	if c.Sweep.Start <= 0 {
		return fmt.Errorf("sweep start must be positive, got %d", c.Sweep.Start)
	}
	if c.Sweep.Step <= 0 {
		return fmt.Errorf("sweep step must be positive, got %d", c.Sweep.Step)
	}
	if c.Sweep.Stop <= c.Sweep.Start {
		return fmt.Errorf("sweep stop must be past start, got start=%d stop=%d", c.Sweep.Start, c.Sweep.Stop)
	}

	validLevels := map[string]bool{"info": true, "debug": true, "trace": true}
	if c.Logging.Level != "" && !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s (valid: info, debug, trace, or empty for default)", c.Logging.Level)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides to the config.
func applyEnvOverrides(config *BnetConfig) {
	if v := os.Getenv("BNET_NETWORK"); v != "" {
		config.Network.Path = v
	}

	if v := os.Getenv("BNET_SAMPLE_COUNT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			config.Sampling.SampleCount = n
		}
	}

	if v := os.Getenv("BNET_SEED"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			config.Sampling.Seed = n
		}
	}

	if v := os.Getenv("BNET_METHOD"); v != "" {
		config.Sampling.Method = v
	}

	if v := os.Getenv("BNET_SWEEP_START"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			config.Sweep.Start = n
		}
	}
	if v := os.Getenv("BNET_SWEEP_STOP"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			config.Sweep.Stop = n
		}
	}
	if v := os.Getenv("BNET_SWEEP_STEP"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			config.Sweep.Step = n
		}
	}

	if v := os.Getenv("BNET_STORE_PATH"); v != "" {
		config.Store.Path = v
	}

	if v := os.Getenv("BNET_LOG_LEVEL"); v != "" {
		config.Logging.Level = v
	}
}

// expandEnvVars expands ${VAR} patterns in a string with environment
// variable values.
func expandEnvVars(s string) string {
	if !strings.Contains(s, "${") {
		return s
	}
	return os.Expand(s, os.Getenv)
}
