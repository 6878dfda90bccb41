// Copyright 2025
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/dsfetch/dsfetch/internal/ledger"
	"github.com/dsfetch/dsfetch/internal/metrics"
	"github.com/dsfetch/dsfetch/internal/publish"
	"github.com/dsfetch/dsfetch/internal/tui"
	"github.com/dsfetch/dsfetch/pkg/dsfetch"
	"github.com/dsfetch/dsfetch/pkg/transform"
)

// runOpts holds the run command's flags beyond dsfetch.Settings.
type runOpts struct {
	settings    dsfetch.Settings
	ledger      string
	metricsFile string

	publish       string // "", "fs" or "s3"
	publishRoot   string
	publishBucket string
	publishPrefix string
	publishRaw    bool
}

// runEnv maps run flags to the environment variables that can set them.
var runEnv = map[string]string{
	"output": "DSFETCH_OUTPUT",
	"ledger": "DSFETCH_LEDGER",
}

func newRunCmd(ro *RootOpts) *cobra.Command {
	opts := &runOpts{settings: dsfetch.DefaultSettings()}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Download, verify and transform the catalog datasets",
		Long: `Process every selected dataset in catalog order: download the raw
artifact if it is missing, verify its SHA-256 digest, then write the clean
semicolon-delimited table. The first failure stops the run.`,
		Args: cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return applyDefaults(cmd, ro, runEnv)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDatasets(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), ro, opts)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.settings.OutputDir, "output", "o", opts.settings.OutputDir, "Base directory for raw and clean files (env DSFETCH_OUTPUT)")
	f.BoolVar(&opts.settings.All, "all", false, "Include optional datasets (defaultcc, wbc)")
	f.StringSliceVar(&opts.settings.Only, "only", nil, "Comma-separated dataset names to process")
	f.StringVar(&opts.settings.Timeout, "timeout", "", "Per-download timeout, e.g. 10m (default none)")
	f.IntVar(&opts.settings.ChunkSize, "chunk-size", opts.settings.ChunkSize, "Buffer size in bytes for streaming downloads")
	f.StringVar(&opts.settings.UserAgent, "user-agent", opts.settings.UserAgent, "User-Agent header for downloads")
	f.StringVar(&opts.ledger, "ledger", "", "Record the run in this SQLite path or postgres:// DSN (env DSFETCH_LEDGER)")
	f.StringVar(&opts.metricsFile, "metrics-file", "", "Write Prometheus metrics for the run to this textfile")
	f.StringVar(&opts.publish, "publish", "", "Publish clean tables after a successful run: fs or s3")
	f.StringVar(&opts.publishRoot, "publish-root", "", "Target directory for --publish fs")
	f.StringVar(&opts.publishBucket, "publish-bucket", "", "Target bucket for --publish s3 (env DSFETCH_S3_BUCKET)")
	f.StringVar(&opts.publishPrefix, "publish-prefix", "", "Key prefix for published objects")
	f.BoolVar(&opts.publishRaw, "publish-raw", false, "Publish verified raw artifacts as well")
	return cmd
}

func runDatasets(ctx context.Context, out, errw io.Writer, ro *RootOpts, opts *runOpts) error {
	entries, err := dsfetch.Select(opts.settings.All, opts.settings.Only)
	if err != nil {
		return err
	}
	pub, err := newPublisher(ctx, opts)
	if err != nil {
		return err
	}

	var progress dsfetch.ProgressFunc
	switch {
	case ro.JSONOut:
		progress = jsonProgress(out)
	case ro.Quiet:
		progress = cliProgress(out, errw)
	default:
		var ui *tui.LiveRenderer
		if f, ok := out.(*os.File); ok && f == os.Stdout {
			ui = tui.NewLiveRenderer()
		} else {
			ui = tui.NewRenderer(out, false)
		}
		defer ui.Close()
		progress = ui.Handler()
	}

	report, runErr := dsfetch.Prepare(ctx, opts.settings, transform.Default(), progress)
	if report != nil {
		afterRun(ctx, report, runErr, opts)
	}
	if runErr != nil {
		describeFailure(errw, runErr)
		return runErr
	}

	if pub != nil {
		m, err := pub.Publish(ctx, report)
		if err != nil {
			return err
		}
		slog.Info("published", "objects", len(m.Objects), "location", pub.Store.Location(pub.Key()))
	}

	if ro.JSONOut {
		enc := json.NewEncoder(out)
		enc.SetEscapeHTML(false)
		return enc.Encode(report)
	}
	printSummary(out, report, entries)
	return nil
}

// afterRun records the report in the ledger and metrics. Failures here are
// logged and never change the run's outcome.
func afterRun(ctx context.Context, report *dsfetch.Report, runErr error, opts *runOpts) {
	if opts.ledger != "" {
		if err := recordRun(ctx, opts.ledger, report, runErr); err != nil {
			slog.Warn("ledger not updated", "ledger", opts.ledger, "err", err)
		} else {
			slog.Debug("run recorded", "run", report.RunID, "ledger", opts.ledger)
		}
	}
	if opts.metricsFile != "" {
		m := metrics.New()
		m.Observe(report, runErr)
		if err := m.WriteTextfile(opts.metricsFile); err != nil {
			slog.Warn("metrics not written", "path", opts.metricsFile, "err", err)
		}
	}
}

func recordRun(ctx context.Context, dsn string, report *dsfetch.Report, runErr error) error {
	// A cancelled run is still worth recording.
	l, err := ledger.Open(context.WithoutCancel(ctx), dsn)
	if err != nil {
		return err
	}
	defer l.Close()
	return l.Record(context.WithoutCancel(ctx), report, runErr)
}

func newPublisher(ctx context.Context, opts *runOpts) (*publish.Publisher, error) {
	var store publish.Store
	switch strings.ToLower(opts.publish) {
	case "":
		return nil, nil
	case "fs":
		s, err := publish.NewFSStore(opts.publishRoot)
		if err != nil {
			return nil, err
		}
		store = s
	case "s3":
		s, err := publish.NewS3Store(ctx, publish.S3ConfigFromEnv(opts.publishBucket))
		if err != nil {
			return nil, err
		}
		store = s
	default:
		return nil, fmt.Errorf("invalid --publish %q (expected fs or s3)", opts.publish)
	}
	return &publish.Publisher{Store: store, Prefix: opts.publishPrefix, Raw: opts.publishRaw}, nil
}

// describeFailure prints a diagnostic for errors that need more than the
// error string.
func describeFailure(w io.Writer, err error) {
	var ie *dsfetch.IntegrityError
	if !errors.As(err, &ie) {
		return
	}
	fmt.Fprintf(w, "The file hosted at %s for %s has an unexpected hash\n", ie.URL, ie.Name)
	fmt.Fprintf(w, "  expected: %s\n", ie.Expected)
	fmt.Fprintf(w, "  actual:   %s\n", ie.Actual)
	switch {
	case ie.Fresh && ie.Path != "":
		fmt.Fprintf(w, "  the download was kept at %s for inspection\n", ie.Path)
	case !ie.Fresh:
		fmt.Fprintf(w, "  remove %s to download it again\n", ie.Path)
	}
}

func printSummary(w io.Writer, report *dsfetch.Report, entries []dsfetch.Entry) {
	ok := color.New(color.FgGreen)
	fmt.Fprintln(w)
	for _, res := range report.Results {
		ok.Fprint(w, "✓ ")
		fmt.Fprintf(w, "%-12s %6d rows  %3d columns  %s\n", res.Name, res.Rows, res.Cols, res.CleanPath)
	}
	links := dsfetch.Links(entries)
	if len(links) == 0 {
		return
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Dataset references:")
	for _, l := range links {
		fmt.Fprintf(w, "  %s\n", l)
	}
}
