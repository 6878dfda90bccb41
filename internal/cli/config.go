// Copyright 2025
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/dsfetch/dsfetch/pkg/dsfetch"
)

// DefaultConfig returns the default configuration. Keys are flag names.
func DefaultConfig() map[string]any {
	d := dsfetch.DefaultSettings()
	return map[string]any{
		"output":         d.OutputDir,
		"all":            false,
		"only":           []string{},
		"timeout":        "",
		"chunk-size":     d.ChunkSize,
		"user-agent":     d.UserAgent,
		"ledger":         "",
		"metrics-file":   "",
		"publish":        "",
		"publish-root":   "",
		"publish-bucket": "",
		"publish-prefix": "",
		"publish-raw":    false,
	}
}

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
	}

	cmd.AddCommand(newConfigInitCmd())
	cmd.AddCommand(newConfigShowCmd())
	cmd.AddCommand(newConfigPathCmd())

	return cmd
}

func newConfigInitCmd() *cobra.Command {
	var (
		force   bool
		useYAML bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a default configuration file",
		Long: `Creates a default configuration file at ~/.config/dsfetch.json (or .yaml)

The configuration file sets default values for command flags.
CLI flags always override config file values.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			candidates := configCandidates()
			configPath := candidates[0]
			if useYAML {
				configPath = candidates[1]
			}

			if _, err := os.Stat(configPath); err == nil && !force {
				return fmt.Errorf("config file already exists: %s\nUse --force to overwrite", configPath)
			}
			if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
				return fmt.Errorf("could not create config directory: %w", err)
			}

			cfg := DefaultConfig()
			var (
				data []byte
				err  error
			)
			if useYAML {
				data, err = yaml.Marshal(cfg)
			} else {
				data, err = json.MarshalIndent(cfg, "", "  ")
			}
			if err != nil {
				return err
			}
			if err := os.WriteFile(configPath, data, 0o644); err != nil {
				return fmt.Errorf("could not write config file: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "✓ Created config file: %s\n", configPath)
			fmt.Fprintln(out)
			fmt.Fprintln(out, "Edit this file to set your defaults, for example the output")
			fmt.Fprintln(out, "directory, a ledger DSN or a publish target.")
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite existing config file")
	cmd.Flags().BoolVar(&useYAML, "yaml", false, "Create YAML config instead of JSON")

	return cmd
}

func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			explicit, _ := cmd.Flags().GetString("config")
			configPath := findConfig(explicit)
			if configPath == "" {
				fmt.Fprintln(out, "No config file found.")
				fmt.Fprintf(out, "Run 'dsfetch config init' to create one at:\n  %s\n", configCandidates()[0])
				return nil
			}

			data, err := os.ReadFile(configPath)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Config file: %s\n\n", configPath)
			fmt.Fprintln(out, string(data))
			return nil
		},
	}
}

func newConfigPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the config file path",
		Run: func(cmd *cobra.Command, args []string) {
			explicit, _ := cmd.Flags().GetString("config")
			configPath := findConfig(explicit)
			if configPath == "" {
				configPath = configCandidates()[0]
			}
			fmt.Fprintln(cmd.OutOrStdout(), configPath)
		},
	}
}
