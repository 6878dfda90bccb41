// Copyright 2025
// SPDX-License-Identifier: Apache-2.0

/*
Package dsfetch fetches, verifies and normalizes a fixed catalog of public
tabular datasets into clean, semicolon-delimited tables with a trailing label
column named "y".

# Lifecycle

Every catalog entry becomes a Record. Processing a record walks a small state
machine:

	NotAcquired -> Acquired -> Verified -> Transformed
	                  any failure -> Aborted

  - Acquired: the raw artifact exists at RawPath. A present, non-empty file is
    never downloaded again.
  - Verified: the SHA-256 of the raw artifact equals the pinned digest. This is
    checked after every fresh download and also when the file was already
    present.
  - Transformed: the dataset's Transformer produced a table, the table passed
    validation, and it was written atomically to CleanPath.

Downloads stream into "<RawPath>.part" and are only renamed into place once
their digest matches. A download whose digest does not match is kept as
"<RawPath>.rejected" for inspection.

# Quick Start

	reg := transform.Default()
	cfg := dsfetch.DefaultSettings()
	cfg.OutputDir = "./data"

	report, err := dsfetch.Prepare(ctx, cfg, reg, func(e dsfetch.ProgressEvent) {
		fmt.Printf("[%s] %s %s\n", e.Event, e.Dataset, e.Message)
	})
	if err != nil {
		var ierr *dsfetch.IntegrityError
		if errors.As(err, &ierr) {
			// the pinned digest no longer matches what the host serves
		}
		log.Fatal(err)
	}
	for _, r := range report.Results {
		fmt.Printf("%s: %d rows, %d columns\n", r.Name, r.Rows, r.Cols)
	}

# Progress Events

The ProgressFunc callback receives events throughout a run:

  - record_start: processing of a dataset has begun
  - skip: the raw artifact is already present, no request is made
  - fetch_start: a download has started
  - fetch_progress: periodic byte counts during a download
  - fetch_done: a download completed
  - verify_ok: the raw artifact matches its pinned digest
  - transform_done: the clean table was written
  - error: a dataset failed; the run stops
  - done: every dataset was processed

# Error Handling

Run stops at the first failing dataset and returns the partial Report with
the error. Errors are typed: *AcquisitionError, *IntegrityError and
*TransformationError, each naming the dataset and unwrapping to the cause.
Nothing in this package exits the process.
*/
package dsfetch
