// Copyright 2025
// SPDX-License-Identifier: Apache-2.0

package tabular

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// LabelEquals yields 1 where the cell equals positive and 0 elsewhere.
func LabelEquals(col []string, positive string) []int {
	y := make([]int, len(col))
	for i, v := range col {
		if strings.TrimSpace(v) == positive {
			y[i] = 1
		}
	}
	return y
}

// LabelNumberEquals yields 1 where the cell parses to the number positive.
// Cells that do not parse are an error.
func LabelNumberEquals(col []string, positive float64) ([]int, error) {
	return labelNumber(col, func(x float64) bool { return x == positive })
}

// LabelAbove yields 1 where the numeric cell is strictly greater than t.
func LabelAbove(col []string, t float64) ([]int, error) {
	return labelNumber(col, func(x float64) bool { return x > t })
}

// LabelInt passes an integer class column through unchanged.
func LabelInt(col []string) ([]int, error) {
	y := make([]int, len(col))
	for i, v := range col {
		x, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return nil, fmt.Errorf("label row %d: %w", i+1, err)
		}
		if x != float64(int(x)) {
			return nil, fmt.Errorf("label row %d: %q is not an integer class", i+1, v)
		}
		y[i] = int(x)
	}
	return y, nil
}

// LabelEncode maps each distinct value to its index among the sorted
// distinct values. Values are ordered numerically when all of them parse
// as numbers, lexically otherwise.
func LabelEncode(col []string) []int {
	levels := map[string]int{}
	for _, v := range col {
		levels[strings.TrimSpace(v)] = 0
	}
	sorted := make([]string, 0, len(levels))
	numeric := true
	for v := range levels {
		sorted = append(sorted, v)
		if _, err := strconv.ParseFloat(v, 64); err != nil {
			numeric = false
		}
	}
	sort.Slice(sorted, func(i, j int) bool {
		if numeric {
			a, _ := strconv.ParseFloat(sorted[i], 64)
			b, _ := strconv.ParseFloat(sorted[j], 64)
			return a < b
		}
		return sorted[i] < sorted[j]
	})
	for i, v := range sorted {
		levels[v] = i
	}
	y := make([]int, len(col))
	for i, v := range col {
		y[i] = levels[strings.TrimSpace(v)]
	}
	return y
}

func labelNumber(col []string, pred func(float64) bool) ([]int, error) {
	y := make([]int, len(col))
	for i, v := range col {
		x, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return nil, fmt.Errorf("label row %d: %w", i+1, err)
		}
		if pred(x) {
			y[i] = 1
		}
	}
	return y, nil
}
