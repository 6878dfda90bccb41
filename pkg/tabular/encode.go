// Copyright 2025
// SPDX-License-Identifier: Apache-2.0

package tabular

import (
	"math"
	"sort"
	"strconv"
	"strings"
)

// Encode turns every column of f into numeric features. Numeric columns keep
// their position and name; categorical columns are replaced by one indicator
// column per distinct value, appended after the numeric columns, named
// "<column>_<value>" with values in sorted order. Missing categorical cells
// get all-zero indicators; missing numeric cells stay NaN (see Impute).
func Encode(f *Frame) ([]string, [][]float64) {
	n := f.Len()
	var names []string
	cols := [][]float64{}

	var categorical []int
	for i, name := range f.names {
		if !f.numeric(i) {
			categorical = append(categorical, i)
			continue
		}
		col := make([]float64, n)
		for r, row := range f.rows {
			if f.IsNA(row[i]) {
				col[r] = math.NaN()
				continue
			}
			col[r], _ = strconv.ParseFloat(strings.TrimSpace(row[i]), 64)
		}
		names = append(names, name)
		cols = append(cols, col)
	}

	for _, i := range categorical {
		levels := map[string]struct{}{}
		for _, row := range f.rows {
			if v := strings.TrimSpace(row[i]); !f.IsNA(v) {
				levels[v] = struct{}{}
			}
		}
		sorted := make([]string, 0, len(levels))
		for v := range levels {
			sorted = append(sorted, v)
		}
		sort.Strings(sorted)
		for _, level := range sorted {
			col := make([]float64, n)
			for r, row := range f.rows {
				if strings.TrimSpace(row[i]) == level {
					col[r] = 1
				}
			}
			names = append(names, f.names[i]+"_"+level)
			cols = append(cols, col)
		}
	}

	return names, transpose(cols, n)
}

// Numeric converts every column of f to floats without any encoding; a
// non-numeric cell is an error.
func Numeric(f *Frame) ([]string, [][]float64, error) {
	cols := make([][]float64, len(f.names))
	for i, name := range f.names {
		col, err := f.Floats(name)
		if err != nil {
			return nil, nil, err
		}
		cols[i] = col
	}
	return f.Names(), transpose(cols, f.Len()), nil
}

func transpose(cols [][]float64, n int) [][]float64 {
	X := make([][]float64, n)
	for r := 0; r < n; r++ {
		row := make([]float64, len(cols))
		for c, col := range cols {
			row[c] = col[r]
		}
		X[r] = row
	}
	return X
}
