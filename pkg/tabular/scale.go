// Copyright 2025
// SPDX-License-Identifier: Apache-2.0

package tabular

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// Impute replaces NaN cells with v in place.
func Impute(X [][]float64, v float64) {
	for _, row := range X {
		for j, x := range row {
			if math.IsNaN(x) {
				row[j] = v
			}
		}
	}
}

// MinMaxScale rescales each column of X in place so that its minimum maps to
// 0 and its maximum to 1. A constant column maps to 0. Callers impute NaN
// cells first.
func MinMaxScale(X [][]float64) {
	if len(X) == 0 {
		return
	}
	cols := len(X[0])
	col := make([]float64, len(X))
	for j := 0; j < cols; j++ {
		for i, row := range X {
			col[i] = row[j]
		}
		lo, hi := floats.Min(col), floats.Max(col)
		span := hi - lo
		for _, row := range X {
			if span == 0 {
				row[j] = 0
				continue
			}
			row[j] = (row[j] - lo) / span
		}
	}
}
