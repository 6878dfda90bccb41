// Copyright 2025
// SPDX-License-Identifier: Apache-2.0

package transform

import (
	"fmt"
	"strings"

	"github.com/dsfetch/dsfetch/pkg/tabular"
)

// Abalone reads the headerless abalone file. Sex is one-hot encoded and the
// ring count is the label.
type Abalone struct{}

// Transform implements dsfetch.Transformer.
func (Abalone) Transform(raw string) (*tabular.Table, error) {
	f, err := tabular.ReadCSVFile(raw, tabular.CSVOptions{
		NoHeader: true,
		Names: []string{
			"sex", "length", "diameter", "height", "whole_weight",
			"shucked_weigth", "viscera_weight", "shell_weight", "y",
		},
	})
	if err != nil {
		return nil, err
	}
	col, err := f.Column("y")
	if err != nil {
		return nil, err
	}
	y, err := tabular.LabelInt(col)
	if err != nil {
		return nil, err
	}
	return encodeWithout(f, y, "y")
}

// Absenteeism reads the semicolon-delimited member of the zip archive. The
// label marks any absence; the row id and the hour count are dropped.
type Absenteeism struct{}

func (Absenteeism) Transform(raw string) (*tabular.Table, error) {
	f, err := tabular.ReadZipCSV(raw, "Absenteeism_at_work.csv", tabular.CSVOptions{Comma: ';'})
	if err != nil {
		return nil, err
	}
	col, err := f.Column("Absenteeism time in hours")
	if err != nil {
		return nil, err
	}
	y, err := tabular.LabelAbove(col, 0)
	if err != nil {
		return nil, err
	}
	g, err := f.Drop("ID", "Absenteeism time in hours")
	if err != nil {
		return nil, err
	}
	g.MapNames(func(n string) string {
		return strings.ToLower(strings.NewReplacer(" ", "_", "/", "_").Replace(n))
	})
	return encode(g, y)
}

// Bank reads the full bank marketing table from the zip archive.
type Bank struct{}

func (Bank) Transform(raw string) (*tabular.Table, error) {
	f, err := tabular.ReadZipCSV(raw, "bank-additional/bank-additional-full.csv", tabular.CSVOptions{Comma: ';'})
	if err != nil {
		return nil, err
	}
	col, err := f.Column("y")
	if err != nil {
		return nil, err
	}
	return encodeWithout(f, tabular.LabelEquals(col, "yes"), "y")
}

// Banknote reads the headerless banknote file. Every line is a record.
type Banknote struct{}

func (Banknote) Transform(raw string) (*tabular.Table, error) {
	f, err := tabular.ReadCSVFile(raw, tabular.CSVOptions{
		NoHeader: true,
		Names:    []string{"variance", "skewness", "curtosis", "entropy", "class"},
	})
	if err != nil {
		return nil, err
	}
	col, err := f.Column("class")
	if err != nil {
		return nil, err
	}
	y, err := tabular.LabelNumberEquals(col, 1)
	if err != nil {
		return nil, err
	}
	return encodeWithout(f, y, "class")
}

// DefaultCC reads the credit card default workbook, whose column names are
// on the second row.
type DefaultCC struct{}

func (DefaultCC) Transform(raw string) (*tabular.Table, error) {
	f, err := tabular.ReadXLS(raw, 1)
	if err != nil {
		return nil, err
	}
	col, err := f.Column("default payment next month")
	if err != nil {
		return nil, err
	}
	y, err := tabular.LabelNumberEquals(col, 1)
	if err != nil {
		return nil, err
	}
	return encodeWithout(f, y, "ID", "default payment next month")
}

// Diabetes reads the early-stage diabetes survey; the label is a positive
// diagnosis.
type Diabetes struct{}

func (Diabetes) Transform(raw string) (*tabular.Table, error) {
	f, err := tabular.ReadCSVFile(raw, tabular.CSVOptions{})
	if err != nil {
		return nil, err
	}
	col, err := f.Column("class")
	if err != nil {
		return nil, err
	}
	return encodeWithout(f, tabular.LabelEquals(col, "Positive"), "class")
}

// Epileptic reads the seizure recognition table. The leading segment id
// column is dropped and the class passes through.
type Epileptic struct{}

func (Epileptic) Transform(raw string) (*tabular.Table, error) {
	f, err := tabular.ReadCSVFile(raw, tabular.CSVOptions{})
	if err != nil {
		return nil, err
	}
	if len(f.Names()) < 3 {
		return nil, fmt.Errorf("epileptic: expected id, features and y, got %d columns", len(f.Names()))
	}
	rest := make([]int, 0, len(f.Names())-1)
	for i := 1; i < len(f.Names()); i++ {
		rest = append(rest, i)
	}
	g, err := f.Select(rest...)
	if err != nil {
		return nil, err
	}
	col, err := g.Column("y")
	if err != nil {
		return nil, err
	}
	y, err := tabular.LabelInt(col)
	if err != nil {
		return nil, err
	}
	return encodeWithout(g, y, "y")
}

var happinessNames = []string{
	"city_services", "housing_cost", "school_quality",
	"police_trust", "street_maint", "community_events",
}

// Happiness reads the UTF-16 Somerville survey. D == 1 is the label and the
// six ratings get descriptive names.
type Happiness struct{}

func (Happiness) Transform(raw string) (*tabular.Table, error) {
	f, err := tabular.ReadCSVFile(raw, tabular.CSVOptions{Encoding: tabular.UTF16})
	if err != nil {
		return nil, err
	}
	col, err := f.Column("D")
	if err != nil {
		return nil, err
	}
	y, err := tabular.LabelNumberEquals(col, 1)
	if err != nil {
		return nil, err
	}
	g, err := f.Drop("D")
	if err != nil {
		return nil, err
	}
	if err := g.Rename(happinessNames...); err != nil {
		return nil, err
	}
	return encode(g, y)
}

// Seismic reads the ARFF file. Nominal attributes are one-hot encoded and
// class "1" is the label.
type Seismic struct{}

func (Seismic) Transform(raw string) (*tabular.Table, error) {
	f, err := tabular.ReadARFFFile(raw)
	if err != nil {
		return nil, err
	}
	col, err := f.Column("class")
	if err != nil {
		return nil, err
	}
	return encodeWithout(f, tabular.LabelEquals(col, "1"), "class")
}

var wbcNames = []string{
	"clump_thickness", "uniformity_cell_size", "uniformity_cell_shape",
	"marginal_adhesion", "single_epithelial_cell_size", "bare_nuclei",
	"bland_chromatin", "normal_nucleoli", "mitoses",
}

// WBC reads the original Wisconsin breast cancer file. The sample id is
// dropped, missing nuclei become zero and the class is label encoded.
type WBC struct{}

func (WBC) Transform(raw string) (*tabular.Table, error) {
	f, err := tabular.ReadCSVFile(raw, tabular.CSVOptions{NoHeader: true})
	if err != nil {
		return nil, err
	}
	if len(f.Names()) != 11 {
		return nil, fmt.Errorf("wbc: expected 11 columns, got %d", len(f.Names()))
	}
	col, err := f.Column("10")
	if err != nil {
		return nil, err
	}
	y := tabular.LabelEncode(col)

	g, err := f.Select(1, 2, 3, 4, 5, 6, 7, 8, 9)
	if err != nil {
		return nil, err
	}
	if err := g.Rename(wbcNames...); err != nil {
		return nil, err
	}
	names, X, err := tabular.Numeric(g)
	if err != nil {
		return nil, err
	}
	return tabular.Build(names, X, y, f.Len()), nil
}

// encodeWithout drops the given columns and encodes the rest.
func encodeWithout(f *tabular.Frame, y []int, drop ...string) (*tabular.Table, error) {
	g, err := f.Drop(drop...)
	if err != nil {
		return nil, err
	}
	return encode(g, y)
}

func encode(f *tabular.Frame, y []int) (*tabular.Table, error) {
	if len(y) != f.Len() {
		return nil, fmt.Errorf("%d labels for %d rows", len(y), f.Len())
	}
	names, X := tabular.Encode(f)
	return tabular.Build(names, X, y, f.Len()), nil
}
