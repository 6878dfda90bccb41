// Copyright 2025
// SPDX-License-Identifier: Apache-2.0

package dsfetch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Record binds a catalog entry to its local paths and transformation.
// Records are plain values; Process never mutates the receiver.
type Record struct {
	Name      string
	URL       string
	SHA256    string
	RawPath   string
	CleanPath string
	Transform Transformer
}

// NewRecord lays out the paths of entry under baseDir:
//
//	<baseDir>/<name>/raw/<rawFile>
//	<baseDir>/<name>/<name>.csv
func NewRecord(entry Entry, baseDir string, t Transformer) (Record, error) {
	if entry.Name == "" || entry.URL == "" || entry.RawFile == "" {
		return Record{}, fmt.Errorf("incomplete catalog entry %q", entry.Name)
	}
	if len(entry.SHA256) != 64 {
		return Record{}, fmt.Errorf("dataset %s: sha256 must be 64 hex characters", entry.Name)
	}
	if t == nil {
		return Record{}, fmt.Errorf("%w: no transformation registered for %s", ErrUnknownDataset, entry.Name)
	}
	if baseDir == "" {
		baseDir = "data"
	}
	dir := filepath.Join(baseDir, entry.Name)
	return Record{
		Name:      entry.Name,
		URL:       entry.URL,
		SHA256:    entry.SHA256,
		RawPath:   filepath.Join(dir, "raw", entry.RawFile),
		CleanPath: filepath.Join(dir, entry.Name+".csv"),
		Transform: t,
	}, nil
}

// Plan builds one record per entry, resolving transformations from reg.
func Plan(entries []Entry, baseDir string, reg Lookup) ([]Record, error) {
	out := make([]Record, 0, len(entries))
	for _, e := range entries {
		t, ok := reg.Lookup(e.Name)
		if !ok {
			return nil, fmt.Errorf("%w: no transformation registered for %s", ErrUnknownDataset, e.Name)
		}
		rec, err := NewRecord(e, baseDir, t)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func (r Record) partPath() string     { return r.RawPath + ".part" }
func (r Record) rejectedPath() string { return r.RawPath + ".rejected" }

// Process drives the record through its lifecycle: acquire the raw artifact
// if absent, verify its digest, transform it, and write the clean table.
//
// A raw artifact that is already present is not requested again. A fresh
// download is only moved to RawPath after it verifies. The clean file is
// written only when verification succeeded.
func (r Record) Process(ctx context.Context, fetcher *Fetcher, emit ProgressFunc) (res Result, err error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if emit == nil {
		emit = func(ProgressEvent) {}
	}
	if fetcher == nil {
		fetcher = &Fetcher{}
	}
	res = Result{
		Name:      r.Name,
		URL:       r.URL,
		RawPath:   r.RawPath,
		CleanPath: r.CleanPath,
		State:     NotAcquired,
		Started:   time.Now(),
	}
	defer func() {
		res.Duration = time.Since(res.Started)
		if err != nil {
			res.State = Aborted
			res.Err = err
		}
	}()

	if err := ctx.Err(); err != nil {
		return res, &AcquisitionError{Name: r.Name, URL: r.URL, Err: err}
	}

	have, err := present(r.RawPath)
	if err != nil {
		return res, &AcquisitionError{Name: r.Name, URL: r.URL, Err: err}
	}

	if have {
		emit(ProgressEvent{Event: "skip", Path: r.RawPath, Message: "raw artifact present"})
		res.State = Acquired
		sum, err := DigestOf(r.RawPath)
		if err != nil {
			return res, &AcquisitionError{Name: r.Name, URL: r.URL, Err: err}
		}
		res.SHA256 = sum
		if !digestEqual(sum, r.SHA256) {
			return res, &IntegrityError{Name: r.Name, URL: r.URL, Path: r.RawPath, Expected: r.SHA256, Actual: sum}
		}
	} else {
		part := r.partPath()
		n, err := fetcher.Fetch(ctx, r.URL, part, emit)
		if err != nil {
			return res, &AcquisitionError{Name: r.Name, URL: r.URL, Err: err}
		}
		res.Downloaded = true
		res.Bytes = n
		res.State = Acquired

		sum, err := DigestOf(part)
		if err != nil {
			os.Remove(part)
			return res, &AcquisitionError{Name: r.Name, URL: r.URL, Err: err}
		}
		res.SHA256 = sum
		if !digestEqual(sum, r.SHA256) {
			rejected := r.rejectedPath()
			if rerr := os.Rename(part, rejected); rerr != nil {
				os.Remove(part)
				rejected = ""
			}
			return res, &IntegrityError{Name: r.Name, URL: r.URL, Path: rejected, Expected: r.SHA256, Actual: sum, Fresh: true}
		}
		if err := os.Rename(part, r.RawPath); err != nil {
			os.Remove(part)
			return res, &AcquisitionError{Name: r.Name, URL: r.URL, Err: err}
		}
	}
	res.State = Verified
	emit(ProgressEvent{Event: "verify_ok", Path: r.RawPath, Message: res.SHA256})

	tbl, err := r.Transform.Transform(r.RawPath)
	if err == nil && tbl == nil {
		err = errors.New("transformation returned no table")
	}
	if err == nil {
		err = tbl.Validate()
	}
	if err == nil {
		err = tbl.WriteFile(r.CleanPath)
	}
	if err != nil {
		return res, &TransformationError{Name: r.Name, Path: r.CleanPath, Err: err}
	}

	res.Rows, res.Cols = tbl.Rows(), tbl.Cols()
	res.State = Transformed
	emit(ProgressEvent{Event: "transform_done", Path: r.CleanPath, Rows: res.Rows, Cols: res.Cols})
	return res, nil
}

// Status describes the local state of a record without touching the network.
type Status struct {
	Name   string `json:"name"`
	Raw    string `json:"raw"` // "missing", "ok" or "mismatch"
	SHA256 string `json:"sha256,omitempty"`
	Clean  bool   `json:"clean"`
}

// Check hashes the raw artifact, if present, and reports whether the clean
// table exists.
func (r Record) Check() (Status, error) {
	st := Status{Name: r.Name, Raw: "missing"}
	have, err := present(r.RawPath)
	if err != nil {
		return st, err
	}
	if have {
		sum, err := DigestOf(r.RawPath)
		if err != nil {
			return st, err
		}
		st.SHA256 = sum
		st.Raw = "mismatch"
		if digestEqual(sum, r.SHA256) {
			st.Raw = "ok"
		}
	}
	if fi, err := os.Stat(r.CleanPath); err == nil && fi.Mode().IsRegular() {
		st.Clean = true
	}
	return st, nil
}
