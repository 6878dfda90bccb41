// Copyright 2025
// SPDX-License-Identifier: Apache-2.0

package dsfetch

import (
	"fmt"
	"strings"
)

// Entry is one dataset in the catalog.
type Entry struct {
	// Name identifies the dataset and names its directory and clean file.
	Name string `json:"name"`
	// URL is where the raw artifact is published.
	URL string `json:"url"`
	// SHA256 is the pinned hex digest of the raw artifact.
	SHA256 string `json:"sha256"`
	// RawFile is the file name the artifact is stored under.
	RawFile string `json:"rawFile"`
	// Reference is the human-readable description page.
	Reference string `json:"reference"`
	// Optional entries are only processed when explicitly requested.
	Optional bool `json:"optional,omitempty"`
}

const uciData = "https://archive.ics.uci.edu/ml/machine-learning-databases/"
const uciPages = "https://archive.ics.uci.edu/ml/datasets/"

var catalog = []Entry{
	{
		Name:      "abalone",
		URL:       uciData + "abalone/abalone.data",
		SHA256:    "de37cdcdcaaa50c309d514f248f7c2302a5f1f88c168905eba23fe2fbc78449f",
		RawFile:   "abalone.data",
		Reference: uciPages + "Abalone",
	},
	{
		Name:      "absenteeism",
		URL:       uciData + "00445/Absenteeism_at_work_AAA.zip",
		SHA256:    "89ecdfed5f107bb97015c335b1d812d7ecbe86e601a23b56516967d8657e53c4",
		RawFile:   "Absenteeism_at_work_AAA.zip",
		Reference: uciPages + "Absenteeism+at+work",
	},
	{
		Name:      "bank",
		URL:       "http://archive.ics.uci.edu/ml/machine-learning-databases/00222/bank-additional.zip",
		SHA256:    "a607b5edab6c6c75ce09c39142a77702c38123bd5aa7ae89a63503bbe17d65cd",
		RawFile:   "bank-additional.zip",
		Reference: uciPages + "Bank+Marketing",
	},
	{
		Name:      "banknote",
		URL:       uciData + "00267/data_banknote_authentication.txt",
		SHA256:    "d0539aaed2139ba7a587b3e34fb345ce503ff7d5d33dbf9912d8e195ce425cb9",
		RawFile:   "data_banknote_authentication.txt",
		Reference: uciPages + "banknote+authentication",
	},
	{
		Name:      "defaultcc",
		URL:       uciData + "00350/default%20of%20credit%20card%20clients.xls",
		SHA256:    "30c6be3abd8dcfd3e6096c828bad8c2f011238620f5369220bd60cfc82700933",
		RawFile:   "default of credit card clients.xls",
		Reference: uciPages + "default+of+credit+card+clients",
		Optional:  true,
	},
	{
		Name:      "diabetes",
		URL:       uciData + "00529/diabetes_data_upload.csv",
		SHA256:    "7889d9d0beb7dd1ccc58da99f72763f16afb259b5dbbaa086f8195366ff66137",
		RawFile:   "diabetes_data_upload.csv",
		Reference: uciPages + "Early+stage+diabetes+risk+prediction+dataset.",
	},
	{
		Name:      "epileptic",
		URL:       "http://archive.ics.uci.edu/ml/machine-learning-databases/00388/data.csv",
		SHA256:    "4b3f6024ea24a864c0de51b2ba477bf8b9e4974e8cc01a00dcf45bfc59d48deb",
		RawFile:   "data-epileptic.csv",
		Reference: uciPages + "Epileptic+Seizure+Recognition",
	},
	{
		Name:      "happiness",
		URL:       uciData + "00479/SomervilleHappinessSurvey2015.csv",
		SHA256:    "1feffca7dd0b9455b4bb16a72c3c5b33ddd78d8a13ea2c7578894481acb5c538",
		RawFile:   "SomervilleHappinessSurvey2015.csv",
		Reference: uciPages + "Somerville+Happiness+Survey",
	},
	{
		Name:      "seismic",
		URL:       "http://archive.ics.uci.edu/ml/machine-learning-databases/00266/seismic-bumps.arff",
		SHA256:    "aabe512fab65b36d1dfb462650b75cfd8d99d8cc2723e8ecb4e6f5e1caccd5a7",
		RawFile:   "seismic-bumps.arff",
		Reference: uciPages + "seismic-bumps",
	},
	{
		Name:      "wbc",
		URL:       uciData + "breast-cancer-wisconsin/breast-cancer-wisconsin.data",
		SHA256:    "402c585309c399237740f635ef9919dc512cca12cbeb20de5e563a4593f22b64",
		RawFile:   "breast-cancer-wisconsin.data",
		Reference: uciPages + "Breast+Cancer+Wisconsin+%28Diagnostic%29",
		Optional:  true,
	},
}

// Catalog returns the dataset entries in processing order. Optional entries
// are included only when all is true. The returned slice is a copy.
func Catalog(all bool) []Entry {
	out := make([]Entry, 0, len(catalog))
	for _, e := range catalog {
		if e.Optional && !all {
			continue
		}
		out = append(out, e)
	}
	return out
}

// Find returns the catalog entry named name, optional ones included.
func Find(name string) (Entry, bool) {
	for _, e := range catalog {
		if e.Name == name {
			return e, true
		}
	}
	return Entry{}, false
}

// Select returns the entries a run should process. With no names it is
// Catalog(all). Otherwise it returns exactly the named entries in catalog
// order; naming an optional entry selects it regardless of all.
func Select(all bool, names []string) ([]Entry, error) {
	want := make(map[string]bool, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		if _, ok := Find(n); !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownDataset, n)
		}
		want[n] = true
	}
	if len(want) == 0 {
		return Catalog(all), nil
	}
	var out []Entry
	for _, e := range catalog {
		if want[e.Name] {
			out = append(out, e)
		}
	}
	return out, nil
}

// Links returns the reference page of every entry, in order.
func Links(entries []Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Reference
	}
	return out
}
