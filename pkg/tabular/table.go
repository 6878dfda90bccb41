// Copyright 2025
// SPDX-License-Identifier: Apache-2.0

package tabular

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
)

// LabelColumn is the name of the trailing label column of every clean table.
const LabelColumn = "y"

// Delimiter separates fields in clean tables.
const Delimiter = ';'

// Table is a clean table: scaled numeric features followed by one integer
// label column. SourceRows is the number of records read from the raw
// artifact and must equal the number of rows.
type Table struct {
	Features   []string
	X          [][]float64
	Y          []int
	SourceRows int
}

// Build imputes missing values to zero, min-max scales X and assembles a
// Table. It is the common tail of every transformation routine.
func Build(names []string, X [][]float64, y []int, sourceRows int) *Table {
	Impute(X, 0)
	MinMaxScale(X)
	return &Table{Features: names, X: X, Y: y, SourceRows: sourceRows}
}

// Rows returns the number of data rows.
func (t *Table) Rows() int { return len(t.X) }

// Cols returns the number of columns including the label.
func (t *Table) Cols() int { return len(t.Features) + 1 }

// Header returns the column names in file order, label last.
func (t *Table) Header() []string {
	h := make([]string, 0, t.Cols())
	h = append(h, t.Features...)
	return append(h, LabelColumn)
}

// Validate checks the clean-table invariants: unique feature names other
// than the label, one label per row, no lost rows, and every feature finite
// and inside [0, 1].
func (t *Table) Validate() error {
	if len(t.Features) == 0 {
		return errors.New("table has no feature columns")
	}
	if len(t.X) == 0 {
		return errors.New("table has no rows")
	}
	seen := make(map[string]struct{}, len(t.Features))
	for _, n := range t.Features {
		if n == LabelColumn {
			return fmt.Errorf("feature column named %q", LabelColumn)
		}
		if _, dup := seen[n]; dup {
			return fmt.Errorf("duplicate feature column %q", n)
		}
		seen[n] = struct{}{}
	}
	if len(t.Y) != len(t.X) {
		return fmt.Errorf("%d labels for %d rows", len(t.Y), len(t.X))
	}
	if t.SourceRows != len(t.X) {
		return fmt.Errorf("row count changed: read %d, produced %d", t.SourceRows, len(t.X))
	}
	for i, row := range t.X {
		if len(row) != len(t.Features) {
			return fmt.Errorf("row %d: %d values for %d features", i+1, len(row), len(t.Features))
		}
		for j, v := range row {
			if math.IsNaN(v) || v < 0 || v > 1 {
				return fmt.Errorf("row %d column %q: value %v outside [0, 1]", i+1, t.Features[j], v)
			}
		}
	}
	return nil
}

// Write encodes the table as delimited text with a header row.
func (t *Table) Write(w io.Writer) error {
	cw := csv.NewWriter(w)
	cw.Comma = Delimiter
	if err := cw.Write(t.Header()); err != nil {
		return err
	}
	rec := make([]string, t.Cols())
	for i, row := range t.X {
		for j, v := range row {
			rec[j] = strconv.FormatFloat(v, 'g', -1, 64)
		}
		rec[len(rec)-1] = strconv.Itoa(t.Y[i])
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteFile writes the table to path atomically: the content goes to a
// temporary file in the same directory which is renamed over path once
// complete.
func (t *Table) WriteFile(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	bw := bufio.NewWriter(tmp)
	if err := t.Write(bw); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := bw.Flush(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Chmod(0o644); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
