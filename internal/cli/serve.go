// Copyright 2025
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"github.com/spf13/cobra"

	"github.com/dsfetch/dsfetch/internal/ledger"
	"github.com/dsfetch/dsfetch/internal/metrics"
	"github.com/dsfetch/dsfetch/internal/server"
	"github.com/dsfetch/dsfetch/pkg/transform"
)

func newServeCmd(ro *RootOpts, version string) *cobra.Command {
	cfg := server.DefaultConfig()
	cfg.Version = version
	var dsn string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve a read-only status API for the dataset tree",
		Long: `Start an HTTP server that reports:
  - the catalog with the local state of every dataset (/api/catalog)
  - the recorded run history when a ledger is configured (/api/runs)
  - Prometheus metrics (/metrics)

Example:
  dsfetch serve --port 9100 --output ./data --ledger ./data/ledger.db`,
		Args: cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return applyDefaults(cmd, ro, runEnv)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			var runs server.RunStore
			if dsn != "" {
				l, err := ledger.Open(cmd.Context(), dsn)
				if err != nil {
					return err
				}
				defer l.Close()
				runs = l
			}
			srv := server.New(cfg, transform.Default(), runs, metrics.New())
			return srv.ListenAndServe(cmd.Context())
		},
	}

	cmd.Flags().StringVar(&cfg.Addr, "addr", cfg.Addr, "Address to bind to")
	cmd.Flags().IntVarP(&cfg.Port, "port", "p", cfg.Port, "Port to listen on")
	cmd.Flags().StringVarP(&cfg.OutputDir, "output", "o", cfg.OutputDir, "Base directory of the dataset tree (env DSFETCH_OUTPUT)")
	cmd.Flags().BoolVar(&cfg.All, "all", false, "Include optional datasets")
	cmd.Flags().StringSliceVar(&cfg.AllowedOrigins, "origins", nil, "Allowed CORS origins (default any)")
	cmd.Flags().StringVar(&dsn, "ledger", "", "SQLite path or postgres:// DSN (env DSFETCH_LEDGER)")
	return cmd
}
