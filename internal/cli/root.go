// Copyright 2025
// SPDX-License-Identifier: Apache-2.0

// Package cli implements the dsfetch command line.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/dsfetch/dsfetch/internal/logging"
	"github.com/dsfetch/dsfetch/pkg/dsfetch"
)

// RootOpts holds global CLI options.
type RootOpts struct {
	JSONOut   bool
	Quiet     bool
	Config    string
	LogFile   string
	LogLevel  string
	LogFormat string

	closeLog func() error
}

// Execute runs the CLI with the given version string.
func Execute(version string) error {
	ctx, cancel := signalContext(context.Background())
	defer cancel()

	root := newRootCmd(version)
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return err
	}
	return nil
}

func newRootCmd(version string) *cobra.Command {
	ro := &RootOpts{}
	root := &cobra.Command{
		Use:           "dsfetch",
		Short:         "Download, verify and clean benchmark datasets",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			closeFn, err := logging.Setup(ro.LogLevel, ro.LogFormat, ro.LogFile)
			if err != nil {
				return fmt.Errorf("set up logging: %w", err)
			}
			ro.closeLog = closeFn
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if ro.closeLog != nil {
				return ro.closeLog()
			}
			return nil
		},
	}

	root.PersistentFlags().BoolVar(&ro.JSONOut, "json", false, "Emit machine-readable JSON events and results")
	root.PersistentFlags().BoolVarP(&ro.Quiet, "quiet", "q", false, "Plain line-per-event output instead of progress bars")
	root.PersistentFlags().StringVar(&ro.Config, "config", "", "Path to config file (JSON or YAML)")
	root.PersistentFlags().StringVar(&ro.LogFile, "log-file", "", "Write logs to file (in addition to stderr)")
	root.PersistentFlags().StringVar(&ro.LogLevel, "log-level", "info", "Log level: debug, info, warn, error")
	root.PersistentFlags().StringVar(&ro.LogFormat, "log-format", "text", "Log format: text, json")

	runCmd := newRunCmd(ro)
	root.AddCommand(runCmd)
	root.AddCommand(newListCmd(ro))
	root.AddCommand(newVerifyCmd(ro))
	root.AddCommand(newHistoryCmd(ro))
	root.AddCommand(newServeCmd(ro, version))
	root.AddCommand(newConfigCmd())
	root.AddCommand(newVersionCmd(version))

	// run is the default command; its flags are mirrored on the root.
	root.Flags().AddFlagSet(runCmd.Flags())
	root.PreRunE = runCmd.PreRunE
	root.RunE = runCmd.RunE
	root.SetHelpCommand(&cobra.Command{Use: "help", Hidden: true})
	return root
}

func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case <-ch:
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(ch)
	}()
	return ctx, cancel
}

// configCandidates lists the default config locations in lookup order.
func configCandidates() []string {
	home, _ := os.UserHomeDir()
	dir := filepath.Join(home, ".config")
	return []string{
		filepath.Join(dir, "dsfetch.json"),
		filepath.Join(dir, "dsfetch.yaml"),
		filepath.Join(dir, "dsfetch.yml"),
	}
}

// findConfig returns explicit when set, else the first existing default.
func findConfig(explicit string) string {
	if explicit != "" {
		return explicit
	}
	for _, p := range configCandidates() {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

func loadConfig(path string) (map[string]any, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg map[string]any
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return nil, fmt.Errorf("invalid YAML config file: %w", err)
		}
	default:
		if err := json.Unmarshal(b, &cfg); err != nil {
			return nil, fmt.Errorf("invalid JSON config file: %w", err)
		}
	}
	return cfg, nil
}

// applyDefaults fills every flag of cmd that was not set on the command line,
// first from the environment and then from the config file, so the
// precedence is flag > config > env > built-in default.
func applyDefaults(cmd *cobra.Command, ro *RootOpts, env map[string]string) error {
	for flagName, key := range env {
		f := cmd.Flags().Lookup(flagName)
		if v := os.Getenv(key); v != "" && f != nil && !f.Changed {
			if err := setFlag(f, v); err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
		}
	}

	path := findConfig(ro.Config)
	if path == "" {
		return nil
	}
	cfg, err := loadConfig(path)
	if err != nil {
		return err
	}
	for key, v := range cfg {
		f := cmd.Flags().Lookup(key)
		if f == nil || v == nil || f.Changed {
			continue
		}
		if err := setFlag(f, configString(v)); err != nil {
			return fmt.Errorf("config %s: %w", key, err)
		}
	}
	return nil
}

// setFlag assigns a default without marking the flag as changed. Slice
// values are replaced rather than appended to.
func setFlag(f *pflag.Flag, val string) error {
	if sv, ok := f.Value.(pflag.SliceValue); ok {
		return sv.Replace(splitComma(val))
	}
	return f.Value.Set(val)
}

// configString renders a decoded config value in flag syntax.
func configString(v any) string {
	switch x := v.(type) {
	case []any:
		parts := make([]string, 0, len(x))
		for _, e := range x {
			parts = append(parts, fmt.Sprint(e))
		}
		return strings.Join(parts, ",")
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		return fmt.Sprint(x)
	}
}

func splitComma(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// cliProgress returns a simple text-based progress handler.
func cliProgress(w, errw io.Writer) dsfetch.ProgressFunc {
	return func(ev dsfetch.ProgressEvent) {
		switch ev.Event {
		case "record_start":
			fmt.Fprintf(w, "%s:\n", ev.Dataset)
		case "skip":
			fmt.Fprintf(w, "  present: %s\n", ev.Path)
		case "fetch_start":
			fmt.Fprintf(w, "  downloading: %s (%d bytes)\n", ev.URL, ev.Total)
		case "fetch_done":
			fmt.Fprintf(w, "  downloaded: %s\n", ev.Path)
		case "verify_ok":
			fmt.Fprintf(w, "  verified: %s\n", ev.Message)
		case "transform_done":
			fmt.Fprintf(w, "  wrote: %s (%d rows, %d columns)\n", ev.Path, ev.Rows, ev.Cols)
		case "error":
			fmt.Fprintf(errw, "error: %s\n", ev.Message)
		case "done":
			fmt.Fprintln(w, ev.Message)
		}
	}
}

// jsonProgress returns a JSON-lines progress handler.
func jsonProgress(w io.Writer) dsfetch.ProgressFunc {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	var mu sync.Mutex
	return func(ev dsfetch.ProgressEvent) {
		mu.Lock()
		_ = enc.Encode(ev)
		mu.Unlock()
	}
}
