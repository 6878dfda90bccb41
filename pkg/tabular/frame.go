// Copyright 2025
// SPDX-License-Identifier: Apache-2.0

// Package tabular holds the small table model shared by the dataset
// transformation routines: a string-typed Frame loaded from the raw artifact,
// feature encoding and min-max scaling, and the clean Table written to disk.
package tabular

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// DefaultNA lists the tokens treated as missing values when none are given.
var DefaultNA = []string{"", "NA", "NaN", "nan", "?"}

// Frame is a raw table: named columns over string cells, row-major.
// Columns flagged categorical are one-hot encoded even when their values
// look numeric (ARFF nominal attributes).
type Frame struct {
	names       []string
	rows        [][]string
	categorical map[string]bool
	na          map[string]struct{}
}

// NewFrame builds a frame from column names and rows. Every row must have
// exactly len(names) cells.
func NewFrame(names []string, rows [][]string) (*Frame, error) {
	seen := make(map[string]struct{}, len(names))
	for _, n := range names {
		if _, dup := seen[n]; dup {
			return nil, fmt.Errorf("duplicate column %q", n)
		}
		seen[n] = struct{}{}
	}
	for i, r := range rows {
		if len(r) != len(names) {
			return nil, fmt.Errorf("row %d: %d fields, want %d", i+1, len(r), len(names))
		}
	}
	f := &Frame{
		names:       append([]string(nil), names...),
		rows:        rows,
		categorical: map[string]bool{},
	}
	f.SetNA(DefaultNA...)
	return f, nil
}

// SetNA replaces the set of missing-value tokens.
func (f *Frame) SetNA(tokens ...string) {
	f.na = make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		f.na[t] = struct{}{}
	}
}

// IsNA reports whether a cell value counts as missing.
func (f *Frame) IsNA(v string) bool {
	_, ok := f.na[strings.TrimSpace(v)]
	return ok
}

// Len returns the number of rows.
func (f *Frame) Len() int { return len(f.rows) }

// Names returns a copy of the column names.
func (f *Frame) Names() []string { return append([]string(nil), f.names...) }

// Index returns the position of a column or -1.
func (f *Frame) Index(name string) int {
	for i, n := range f.names {
		if n == name {
			return i
		}
	}
	return -1
}

// MarkCategorical flags columns that must be one-hot encoded.
func (f *Frame) MarkCategorical(names ...string) {
	for _, n := range names {
		f.categorical[n] = true
	}
}

// Column returns the raw cells of a column.
func (f *Frame) Column(name string) ([]string, error) {
	i := f.Index(name)
	if i < 0 {
		return nil, fmt.Errorf("missing column %q", name)
	}
	out := make([]string, len(f.rows))
	for r, row := range f.rows {
		out[r] = row[i]
	}
	return out, nil
}

// Floats parses a column as numbers; missing cells become NaN.
func (f *Frame) Floats(name string) ([]float64, error) {
	col, err := f.Column(name)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(col))
	for r, v := range col {
		if f.IsNA(v) {
			out[r] = math.NaN()
			continue
		}
		x, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return nil, fmt.Errorf("column %q row %d: %w", name, r+1, err)
		}
		out[r] = x
	}
	return out, nil
}

// Drop returns a frame without the named columns. Dropping a column that
// does not exist is an error.
func (f *Frame) Drop(names ...string) (*Frame, error) {
	skip := make(map[int]bool, len(names))
	for _, n := range names {
		i := f.Index(n)
		if i < 0 {
			return nil, fmt.Errorf("missing column %q", n)
		}
		skip[i] = true
	}
	keep := make([]int, 0, len(f.names)-len(skip))
	for i := range f.names {
		if !skip[i] {
			keep = append(keep, i)
		}
	}
	return f.project(keep), nil
}

// Select returns a frame with only the given column positions, in order.
func (f *Frame) Select(idx ...int) (*Frame, error) {
	for _, i := range idx {
		if i < 0 || i >= len(f.names) {
			return nil, fmt.Errorf("column index %d out of range (%d columns)", i, len(f.names))
		}
	}
	return f.project(idx), nil
}

// Rename replaces all column names.
func (f *Frame) Rename(names ...string) error {
	if len(names) != len(f.names) {
		return fmt.Errorf("rename: %d names for %d columns", len(names), len(f.names))
	}
	cat := map[string]bool{}
	for i, old := range f.names {
		if f.categorical[old] {
			cat[names[i]] = true
		}
	}
	f.names = append([]string(nil), names...)
	f.categorical = cat
	return nil
}

// MapNames applies fn to every column name.
func (f *Frame) MapNames(fn func(string) string) {
	out := make([]string, len(f.names))
	for i, n := range f.names {
		out[i] = fn(n)
	}
	_ = f.Rename(out...)
}

func (f *Frame) project(idx []int) *Frame {
	names := make([]string, len(idx))
	for j, i := range idx {
		names[j] = f.names[i]
	}
	rows := make([][]string, len(f.rows))
	for r, row := range f.rows {
		out := make([]string, len(idx))
		for j, i := range idx {
			out[j] = row[i]
		}
		rows[r] = out
	}
	cat := map[string]bool{}
	for _, n := range names {
		if f.categorical[n] {
			cat[n] = true
		}
	}
	na := make(map[string]struct{}, len(f.na))
	for k := range f.na {
		na[k] = struct{}{}
	}
	return &Frame{names: names, rows: rows, categorical: cat, na: na}
}

// numeric reports whether every non-missing cell of column i parses as a float.
func (f *Frame) numeric(i int) bool {
	if f.categorical[f.names[i]] {
		return false
	}
	for _, row := range f.rows {
		v := row[i]
		if f.IsNA(v) {
			continue
		}
		if _, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err != nil {
			return false
		}
	}
	return true
}
