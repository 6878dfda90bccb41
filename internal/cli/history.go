// Copyright 2025
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/dsfetch/dsfetch/internal/ledger"
)

func newHistoryCmd(ro *RootOpts) *cobra.Command {
	var (
		dsn   string
		limit int
	)
	cmd := &cobra.Command{
		Use:   "history [RUN-ID]",
		Short: "Show recorded runs, or the outcomes of one run",
		Args:  cobra.MaximumNArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return applyDefaults(cmd, ro, runEnv)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if dsn == "" {
				return errors.New("no ledger configured (use --ledger or DSFETCH_LEDGER)")
			}
			l, err := ledger.Open(cmd.Context(), dsn)
			if err != nil {
				return err
			}
			defer l.Close()

			out := cmd.OutOrStdout()
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")

			if len(args) == 1 {
				run, outcomes, err := l.Run(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if ro.JSONOut {
					return enc.Encode(map[string]any{"run": run, "outcomes": outcomes})
				}
				fmt.Fprintf(out, "Run %s (%s, %s)\n", run.ID, runResult(run), run.Finished.Sub(run.Started).Round(time.Millisecond))
				if run.Error != "" {
					fmt.Fprintf(out, "  error: %s\n", run.Error)
				}
				tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "DATASET\tSTATE\tDOWNLOADED\tROWS\tCOLS\tDURATION")
				for _, o := range outcomes {
					fmt.Fprintf(tw, "%s\t%s\t%t\t%d\t%d\t%s\n", o.Name, o.State, o.Downloaded, o.Rows, o.Cols,
						time.Duration(o.DurationMS)*time.Millisecond)
				}
				return tw.Flush()
			}

			runs, err := l.Runs(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if ro.JSONOut {
				return enc.Encode(runs)
			}
			if len(runs) == 0 {
				fmt.Fprintln(out, "No runs recorded.")
				return nil
			}
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "RUN\tSTARTED\tRESULT\tDATASETS")
			for _, r := range runs {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\n", r.ID, r.Started.Local().Format(time.DateTime), runResult(r), r.Datasets)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&dsn, "ledger", "", "SQLite path or postgres:// DSN (env DSFETCH_LEDGER)")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of runs to list")
	return cmd
}

func runResult(r ledger.Run) string {
	if r.OK {
		return "ok"
	}
	return "failed"
}
