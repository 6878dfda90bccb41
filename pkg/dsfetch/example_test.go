// Copyright 2025
// SPDX-License-Identifier: Apache-2.0

package dsfetch_test

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/dsfetch/dsfetch/pkg/dsfetch"
	"github.com/dsfetch/dsfetch/pkg/transform"
)

func ExamplePrepare() {
	cfg := dsfetch.DefaultSettings()
	cfg.OutputDir = "./example_data"
	cfg.Only = []string{"banknote"}

	progress := func(e dsfetch.ProgressEvent) {
		switch e.Event {
		case "fetch_start":
			fmt.Printf("Downloading %s...\n", e.Dataset)
		case "transform_done":
			fmt.Printf("Wrote %s (%d rows)\n", e.Path, e.Rows)
		case "done":
			fmt.Println("Complete!")
		}
	}

	_, err := dsfetch.Prepare(context.Background(), cfg, transform.Default(), progress)
	var ierr *dsfetch.IntegrityError
	if errors.As(err, &ierr) {
		fmt.Printf("The file hosted at %s for %s has an unexpected hash\n", ierr.URL, ierr.Name)
	} else if err != nil {
		fmt.Printf("Error: %v\n", err)
	}

	os.RemoveAll("./example_data")
}

func ExampleLinks() {
	for _, link := range dsfetch.Links(dsfetch.Catalog(false)[:3]) {
		fmt.Println(link)
	}
	// Output:
	// https://archive.ics.uci.edu/ml/datasets/Abalone
	// https://archive.ics.uci.edu/ml/datasets/Absenteeism+at+work
	// https://archive.ics.uci.edu/ml/datasets/Bank+Marketing
}
