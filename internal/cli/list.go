// Copyright 2025
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/dsfetch/dsfetch/pkg/dsfetch"
	"github.com/dsfetch/dsfetch/pkg/transform"
)

func newListCmd(ro *RootOpts) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the dataset catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			entries := dsfetch.Catalog(all)
			out := cmd.OutOrStdout()
			if ro.JSONOut {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(entries)
			}
			return printCatalog(out, entries)
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "Include optional datasets")
	return cmd
}

func printCatalog(w io.Writer, entries []dsfetch.Entry) error {
	reg := transform.Default()
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tRAW FILE\tOPTIONAL\tREFERENCE")
	for _, e := range entries {
		name := e.Name
		if _, ok := reg.Lookup(e.Name); !ok {
			name += " (no transform)"
		}
		fmt.Fprintf(tw, "%s\t%s\t%t\t%s\n", name, e.RawFile, e.Optional, e.Reference)
	}
	return tw.Flush()
}

func newVerifyCmd(ro *RootOpts) *cobra.Command {
	var (
		output string
		all    bool
		only   []string
	)
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Check local raw files against their pinned digests without downloading",
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return applyDefaults(cmd, ro, runEnv)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := dsfetch.Select(all, only)
			if err != nil {
				return err
			}
			records, err := dsfetch.Plan(entries, output, transform.Default())
			if err != nil {
				return err
			}
			statuses := make([]dsfetch.Status, 0, len(records))
			mismatched := 0
			for _, rec := range records {
				st, err := rec.Check()
				if err != nil {
					return fmt.Errorf("check %s: %w", rec.Name, err)
				}
				if st.Raw == "mismatch" {
					mismatched++
				}
				statuses = append(statuses, st)
			}

			out := cmd.OutOrStdout()
			if ro.JSONOut {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				if err := enc.Encode(statuses); err != nil {
					return err
				}
			} else {
				printStatuses(out, statuses)
			}
			if mismatched > 0 {
				return fmt.Errorf("%d raw file(s) do not match their pinned digest", mismatched)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "data", "Base directory of the dataset tree (env DSFETCH_OUTPUT)")
	cmd.Flags().BoolVar(&all, "all", false, "Include optional datasets")
	cmd.Flags().StringSliceVar(&only, "only", nil, "Comma-separated dataset names to check")
	return cmd
}

func printStatuses(w io.Writer, statuses []dsfetch.Status) {
	ok := color.New(color.FgGreen)
	bad := color.New(color.FgRed, color.Bold)
	faint := color.New(color.Faint)
	for _, st := range statuses {
		clean := "no clean table"
		if st.Clean {
			clean = "clean table present"
		}
		switch st.Raw {
		case "ok":
			ok.Fprint(w, "✓ ")
		case "mismatch":
			bad.Fprint(w, "× ")
		default:
			faint.Fprint(w, "- ")
		}
		fmt.Fprintf(w, "%-12s raw %-8s %s\n", st.Name, st.Raw, clean)
	}
}
