// Copyright 2025
// SPDX-License-Identifier: Apache-2.0

package dsfetch

import (
	"errors"
	"fmt"
)

// Common errors returned by the library.
var (
	// ErrMissingContentLength is returned when the server does not declare
	// the size of the payload.
	ErrMissingContentLength = errors.New("response has no Content-Length")

	// ErrShortBody is returned when fewer or more bytes arrive than declared.
	ErrShortBody = errors.New("response body length differs from Content-Length")

	// ErrUnknownDataset is returned for names absent from the catalog or
	// without a registered transformation.
	ErrUnknownDataset = errors.New("unknown dataset")
)

// AcquisitionError wraps a network or filesystem failure while obtaining
// the raw artifact.
type AcquisitionError struct {
	Name string
	URL  string
	Err  error
}

func (e *AcquisitionError) Error() string {
	return fmt.Sprintf("acquire %s from %s: %v", e.Name, e.URL, e.Err)
}

func (e *AcquisitionError) Unwrap() error { return e.Err }

// IntegrityError is returned when the raw artifact's digest differs from the
// pinned one. Fresh is true when the artifact was just downloaded.
type IntegrityError struct {
	Name     string
	URL      string
	Path     string
	Expected string
	Actual   string
	Fresh    bool
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("verification failed for %s (%s): sha256 mismatch (expected %s, got %s)",
		e.Name, e.URL, e.Expected, e.Actual)
}

// TransformationError wraps a failure while producing or writing the clean
// table.
type TransformationError struct {
	Name string
	Path string
	Err  error
}

func (e *TransformationError) Error() string {
	return fmt.Sprintf("transform %s: %v", e.Name, e.Err)
}

func (e *TransformationError) Unwrap() error { return e.Err }
