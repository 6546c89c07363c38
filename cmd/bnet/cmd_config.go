package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/mgriffen/bnet/internal/config"
	"github.com/mgriffen/bnet/sampling"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage bnet configuration",
		Long: `View and modify bnet configuration settings.

Configuration is stored in ~/.bnet/config.yaml.

Examples:
  bnet config list                          # Show all settings
  bnet config get sampling.sample_count     # Get a specific setting
  bnet config set sampling.method likelihood
  bnet config set network.path ~/nets/alarm.yaml`,
	}

	cmd.AddCommand(
		newConfigListCmd(),
		newConfigGetCmd(),
		newConfigSetCmd(),
	)

	return cmd
}

func newConfigListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all configuration settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			out := cmd.OutOrStdout()
			if jsonOut {
				json.NewEncoder(out).Encode(cfg)
				return nil
			}

			fmt.Fprintln(out, "Configuration (~/.bnet/config.yaml):")
			fmt.Fprintln(out)
			fmt.Fprintln(out, "Network Settings:")
			fmt.Fprintf(out, "  network.path:           %s\n", valueOrDefault(cfg.Network.Path, "(not set, built-in fever)"))
			fmt.Fprintln(out)
			fmt.Fprintln(out, "Sampling Settings:")
			fmt.Fprintf(out, "  sampling.sample_count:  %d\n", cfg.Sampling.SampleCount)
			fmt.Fprintf(out, "  sampling.method:        %s\n", valueOrDefault(cfg.Sampling.Method, "(default)"))
			fmt.Fprintf(out, "  sampling.seed:          %d\n", cfg.Sampling.Seed)
			fmt.Fprintln(out)
			fmt.Fprintln(out, "Sweep Settings:")
			fmt.Fprintf(out, "  sweep.start:  %d\n", cfg.Sweep.Start)
			fmt.Fprintf(out, "  sweep.stop:   %d\n", cfg.Sweep.Stop)
			fmt.Fprintf(out, "  sweep.step:   %d\n", cfg.Sweep.Step)
			fmt.Fprintln(out)
			fmt.Fprintln(out, "Store Settings:")
			fmt.Fprintf(out, "  store.path:  %s\n", valueOrDefault(cfg.Store.Path, "(not set, recording disabled)"))
			fmt.Fprintln(out)
			fmt.Fprintln(out, "Logging Settings:")
			fmt.Fprintf(out, "  logging.level:  %s\n", valueOrDefault(cfg.Logging.Level, "(default)"))

			return nil
		},
	}
}

func newConfigGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Get a configuration value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			key := args[0]

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			out := cmd.OutOrStdout()
			value, found := getConfigValue(cfg, key)
			if !found {
				if jsonOut {
					json.NewEncoder(out).Encode(map[string]interface{}{
						"error": "key not found",
						"key":   key,
					})
				} else {
					fmt.Fprintf(out, "Unknown configuration key: %s\n", key)
				}
				return nil
			}

			if jsonOut {
				json.NewEncoder(out).Encode(map[string]interface{}{
					"key":   key,
					"value": value,
				})
			} else {
				fmt.Fprintf(out, "%s = %v\n", key, value)
			}

			return nil
		},
	}
}

func newConfigSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			key := args[0]
			value := args[1]

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			out := cmd.OutOrStdout()
			setErr := setConfigValue(cfg, key, value)
			if setErr == nil {
				// Cross-field checks, such as a sweep stop that no
				// longer clears the start.
				setErr = cfg.Validate()
			}
			if setErr != nil {
				if jsonOut {
					json.NewEncoder(out).Encode(map[string]interface{}{
						"error": setErr.Error(),
						"key":   key,
					})
				} else {
					fmt.Fprintf(out, "Error: %v\n", setErr)
				}
				return nil
			}

			if err := saveConfig(cfg); err != nil {
				return fmt.Errorf("failed to save config: %w", err)
			}

			if jsonOut {
				json.NewEncoder(out).Encode(map[string]interface{}{
					"status": "updated",
					"key":    key,
					"value":  value,
				})
			} else {
				fmt.Fprintf(out, "Set %s = %s\n", key, value)
			}

			return nil
		},
	}
}

// getConfigValue retrieves a configuration value by dot-notation key.
func getConfigValue(cfg *config.BnetConfig, key string) (interface{}, bool) {
	switch key {
	case "network.path":
		return cfg.Network.Path, true
	case "sampling.sample_count":
		return cfg.Sampling.SampleCount, true
	case "sampling.method":
		return cfg.Sampling.Method, true
	case "sampling.seed":
		return cfg.Sampling.Seed, true
	case "sweep.start":
		return cfg.Sweep.Start, true
	case "sweep.stop":
		return cfg.Sweep.Stop, true
	case "sweep.step":
		return cfg.Sweep.Step, true
	case "store.path":
		return cfg.Store.Path, true
	case "logging.level":
		return cfg.Logging.Level, true
	default:
		return nil, false
	}
}

// setConfigValue sets a configuration value by dot-notation key. Method
// names are canonicalized, so "lw" is stored as "likelihood".
func setConfigValue(cfg *config.BnetConfig, key, value string) error {
	switch key {
	case "network.path":
		cfg.Network.Path = value
	case "sampling.sample_count":
		n, err := strconv.Atoi(value)
		if err != nil || n <= 0 {
			return fmt.Errorf("invalid sample count: %s (must be a positive integer)", value)
		}
		cfg.Sampling.SampleCount = n
	case "sampling.method":
		m, err := sampling.ParseMethod(value)
		if err != nil {
			return fmt.Errorf("invalid method: %s (valid: prior, rejection, likelihood)", value)
		}
		cfg.Sampling.Method = string(m)
	case "sampling.seed":
		n, err := strconv.ParseUint(value, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid seed: %s (must be a non-negative integer)", value)
		}
		cfg.Sampling.Seed = n
	case "sweep.start":
		n, err := strconv.Atoi(value)
		if err != nil || n <= 0 {
			return fmt.Errorf("invalid sweep start: %s (must be a positive integer)", value)
		}
		cfg.Sweep.Start = n
	case "sweep.stop":
		n, err := strconv.Atoi(value)
		if err != nil || n <= 0 {
			return fmt.Errorf("invalid sweep stop: %s (must be a positive integer)", value)
		}
		cfg.Sweep.Stop = n
	case "sweep.step":
		n, err := strconv.Atoi(value)
		if err != nil || n <= 0 {
			return fmt.Errorf("invalid sweep step: %s (must be a positive integer)", value)
		}
		cfg.Sweep.Step = n
	case "store.path":
		cfg.Store.Path = value
	case "logging.level":
		validLevels := map[string]bool{"": true, "info": true, "debug": true, "trace": true}
		if !validLevels[value] {
			return fmt.Errorf("invalid log level: %s (valid: info, debug, trace)", value)
		}
		cfg.Logging.Level = value
	default:
		return fmt.Errorf("unknown configuration key: %s", key)
	}
	return nil
}

// saveConfig writes the configuration to ~/.bnet/config.yaml.
func saveConfig(cfg *config.BnetConfig) error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}

	bnetDir := filepath.Join(homeDir, ".bnet")
	if err := os.MkdirAll(bnetDir, 0700); err != nil {
		return fmt.Errorf("failed to create .bnet directory: %w", err)
	}

	configPath := filepath.Join(bnetDir, "config.yaml")
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// valueOrDefault returns the value if non-empty, otherwise the default.
func valueOrDefault(value, defaultValue string) string {
	if value == "" {
		return defaultValue
	}
	return value
}
