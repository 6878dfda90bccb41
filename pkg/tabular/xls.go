// Copyright 2025
// SPDX-License-Identifier: Apache-2.0

package tabular

import (
	"fmt"
	"strings"

	"github.com/extrame/xls"
)

// ReadXLS reads the first sheet of a legacy Excel workbook. headerRow is the
// zero-based row holding the column names; rows above it are ignored and
// fully blank rows below it are skipped.
func ReadXLS(path string, headerRow int) (*Frame, error) {
	wb, err := xls.Open(path, "utf-8")
	if err != nil {
		return nil, err
	}
	sheet := wb.GetSheet(0)
	if sheet == nil {
		return nil, fmt.Errorf("%s: workbook has no sheets", path)
	}
	if int(sheet.MaxRow) < headerRow {
		return nil, fmt.Errorf("%s: header row %d beyond last row %d", path, headerRow, sheet.MaxRow)
	}

	hdr := sheet.Row(headerRow)
	if hdr == nil {
		return nil, fmt.Errorf("%s: header row %d is empty", path, headerRow)
	}
	width := hdr.LastCol()
	names := make([]string, width)
	for c := 0; c < width; c++ {
		names[c] = strings.TrimSpace(hdr.Col(c))
	}

	var rows [][]string
	for r := headerRow + 1; r <= int(sheet.MaxRow); r++ {
		row := sheet.Row(r)
		if row == nil {
			continue
		}
		rec := make([]string, width)
		blank := true
		for c := 0; c < width; c++ {
			rec[c] = strings.TrimSpace(row.Col(c))
			if rec[c] != "" {
				blank = false
			}
		}
		if !blank {
			rows = append(rows, rec)
		}
	}
	return NewFrame(names, rows)
}
