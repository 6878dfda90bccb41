// Copyright 2025
// SPDX-License-Identifier: Apache-2.0

package dsfetch

import (
	"time"

	"github.com/dsfetch/dsfetch/pkg/tabular"
)

// Settings configures a run.
//
// Example:
//
//	cfg := dsfetch.Settings{
//	    OutputDir: "./data",
//	    Only:      []string{"banknote", "seismic"},
//	}
type Settings struct {
	// OutputDir is the base directory. Datasets are stored as
	// <OutputDir>/<name>/raw/<file> and <OutputDir>/<name>/<name>.csv.
	// If empty, defaults to "data".
	OutputDir string

	// All includes the optional catalog entries.
	All bool

	// Only restricts the run to the named datasets, in catalog order.
	Only []string

	// ChunkSize is the buffer size used when streaming a download to disk.
	// If <= 0, defaults to 32 KiB.
	ChunkSize int

	// Timeout bounds a whole download request, e.g. "10m".
	// Empty or "0" means no timeout.
	Timeout string

	// UserAgent is sent with every request.
	UserAgent string
}

// DefaultSettings returns Settings with defaults filled in.
func DefaultSettings() Settings {
	return Settings{
		OutputDir: "data",
		ChunkSize: 32 << 10,
		UserAgent: "dsfetch/1",
	}
}

// Transformer turns a raw artifact into a clean table. Implementations are
// pure: they read rawPath and return the table; writing it is the record's
// job.
type Transformer interface {
	Transform(rawPath string) (*tabular.Table, error)
}

// TransformFunc adapts a plain function to Transformer.
type TransformFunc func(rawPath string) (*tabular.Table, error)

// Transform calls fn(rawPath).
func (fn TransformFunc) Transform(rawPath string) (*tabular.Table, error) { return fn(rawPath) }

// Lookup resolves the Transformer registered for a dataset name.
type Lookup interface {
	Lookup(name string) (Transformer, bool)
}

// State is a position in the record lifecycle.
type State int

const (
	NotAcquired State = iota
	Acquired
	Verified
	Transformed
	Aborted
)

func (s State) String() string {
	switch s {
	case NotAcquired:
		return "not_acquired"
	case Acquired:
		return "acquired"
	case Verified:
		return "verified"
	case Transformed:
		return "transformed"
	case Aborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// Result is the outcome of processing one record.
type Result struct {
	Name       string        `json:"name"`
	URL        string        `json:"url"`
	RawPath    string        `json:"rawPath"`
	CleanPath  string        `json:"cleanPath"`
	SHA256     string        `json:"sha256,omitempty"`
	Downloaded bool          `json:"downloaded"`
	Bytes      int64         `json:"bytes,omitempty"`
	Rows       int           `json:"rows,omitempty"`
	Cols       int           `json:"cols,omitempty"`
	State      State         `json:"-"`
	Err        error         `json:"-"`
	Started    time.Time     `json:"started"`
	Duration   time.Duration `json:"duration"`
}

// Report collects the results of a run in processing order.
type Report struct {
	RunID    string    `json:"runId"`
	Started  time.Time `json:"started"`
	Finished time.Time `json:"finished"`
	Results  []Result  `json:"results"`
}

// OK reports whether every processed record reached Transformed.
func (r *Report) OK() bool {
	for _, res := range r.Results {
		if res.State != Transformed {
			return false
		}
	}
	return true
}

// ProgressEvent represents a progress update during a run.
type ProgressEvent struct {
	// Time is when the event occurred (UTC).
	Time time.Time `json:"time"`

	// Level is the log level: "debug", "info", "warn", "error".
	// Empty defaults to "info".
	Level string `json:"level,omitempty"`

	// Event is the event type identifier (see package docs).
	Event string `json:"event"`

	// Dataset is the catalog name of the record being processed.
	Dataset string `json:"dataset,omitempty"`

	// URL is the source of the raw artifact.
	URL string `json:"url,omitempty"`

	// Path is the local file the event refers to.
	Path string `json:"path,omitempty"`

	// Downloaded is the cumulative bytes written so far.
	Downloaded int64 `json:"downloaded,omitempty"`

	// Total is the declared size of the download in bytes.
	Total int64 `json:"total,omitempty"`

	// Rows and Cols describe the clean table in "transform_done" events.
	Rows int `json:"rows,omitempty"`
	Cols int `json:"cols,omitempty"`

	// Message contains additional context or error details.
	Message string `json:"message,omitempty"`
}

// ProgressFunc is a callback for receiving progress events. Runs are
// sequential, so it is never called concurrently.
type ProgressFunc func(ProgressEvent)
