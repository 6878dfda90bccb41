// Copyright 2025
// SPDX-License-Identifier: Apache-2.0

package dsfetch

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/google/uuid"
)

// Run processes records sequentially, in order. It stops at the first
// failure and returns the results gathered so far together with that error.
// Records after the failing one are not attempted.
//
// Cancellation: ctx is checked before each record and passed to every
// download.
func Run(ctx context.Context, records []Record, fetcher *Fetcher, progress ProgressFunc) (*Report, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if fetcher == nil {
		fetcher = &Fetcher{}
	}
	report := &Report{
		RunID:   uuid.NewString(),
		Started: time.Now().UTC(),
	}

	for _, rec := range records {
		emit := func(ev ProgressEvent) {
			if progress == nil {
				return
			}
			if ev.Time.IsZero() {
				ev.Time = time.Now().UTC()
			}
			if ev.Dataset == "" {
				ev.Dataset = rec.Name
			}
			if ev.URL == "" {
				ev.URL = rec.URL
			}
			progress(ev)
		}

		if err := ctx.Err(); err != nil {
			report.Finished = time.Now().UTC()
			return report, err
		}

		emit(ProgressEvent{Event: "record_start"})
		res, err := rec.Process(ctx, fetcher, emit)
		report.Results = append(report.Results, res)
		if err != nil {
			emit(ProgressEvent{Level: "error", Event: "error", Message: err.Error()})
			report.Finished = time.Now().UTC()
			return report, err
		}
	}

	report.Finished = time.Now().UTC()
	if progress != nil {
		progress(ProgressEvent{Time: report.Finished, Event: "done", Message: "all datasets prepared"})
	}
	return report, nil
}

// Prepare selects catalog entries per cfg, resolves their transformations
// from reg and runs them.
func Prepare(ctx context.Context, cfg Settings, reg Lookup, progress ProgressFunc) (*Report, error) {
	if reg == nil {
		return nil, errors.New("no transformation registry")
	}
	if cfg.OutputDir == "" {
		cfg.OutputDir = "data"
	}
	entries, err := Select(cfg.All, cfg.Only)
	if err != nil {
		return nil, err
	}
	records, err := Plan(entries, cfg.OutputDir, reg)
	if err != nil {
		return nil, err
	}
	fetcher, err := NewFetcher(cfg)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return nil, err
	}
	return Run(ctx, records, fetcher, progress)
}
