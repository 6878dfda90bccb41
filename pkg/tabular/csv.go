// Copyright 2025
// SPDX-License-Identifier: Apache-2.0

package tabular

import (
	"archive/zip"
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Encoding names a text encoding of a raw artifact.
type Encoding string

const (
	UTF8  Encoding = "utf-8"
	UTF16 Encoding = "utf-16" // BOM-detected, little endian when absent
)

// CSVOptions controls ReadCSV.
type CSVOptions struct {
	// Comma is the field delimiter; zero means ','.
	Comma rune
	// NoHeader means the first record is data. Columns are then named by
	// position ("0", "1", ...) unless Names is set.
	NoHeader bool
	// Names overrides the column names.
	Names []string
	// NA overrides DefaultNA.
	NA []string
	// Encoding of the input; empty means UTF-8.
	Encoding Encoding
}

// ReadCSV parses delimited text into a Frame.
func ReadCSV(r io.Reader, opts CSVOptions) (*Frame, error) {
	switch opts.Encoding {
	case "", UTF8:
	case UTF16:
		dec := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewDecoder()
		r = transform.NewReader(r, dec)
	default:
		return nil, fmt.Errorf("unsupported encoding %q", opts.Encoding)
	}

	cr := csv.NewReader(bufio.NewReader(r))
	if opts.Comma != 0 {
		cr.Comma = opts.Comma
	}
	cr.LazyQuotes = true

	var header []string
	var rows [][]string
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if header == nil && !opts.NoHeader {
			header = make([]string, len(rec))
			for i, h := range rec {
				header[i] = strings.TrimPrefix(h, "\ufeff")
			}
			continue
		}
		rows = append(rows, append([]string(nil), rec...))
	}

	names := header
	if opts.NoHeader {
		width := 0
		if len(rows) > 0 {
			width = len(rows[0])
		}
		names = make([]string, width)
		for i := range names {
			names[i] = strconv.Itoa(i)
		}
	}
	if opts.Names != nil {
		if len(opts.Names) != len(names) {
			return nil, fmt.Errorf("%d column names for %d columns", len(opts.Names), len(names))
		}
		names = opts.Names
	}
	if names == nil {
		return nil, errors.New("empty input: no header row")
	}

	f, err := NewFrame(names, rows)
	if err != nil {
		return nil, err
	}
	if opts.NA != nil {
		f.SetNA(opts.NA...)
	}
	return f, nil
}

// ReadCSVFile opens path and parses it with ReadCSV.
func ReadCSVFile(path string, opts CSVOptions) (*Frame, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fh.Close()
	return ReadCSV(fh, opts)
}

// ReadZipCSV parses the archive member named member of the zip file at path.
func ReadZipCSV(path, member string, opts CSVOptions) (*Frame, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, err
	}
	defer zr.Close()

	for _, zf := range zr.File {
		if zf.Name != member {
			continue
		}
		rc, err := zf.Open()
		if err != nil {
			return nil, err
		}
		defer rc.Close()
		return ReadCSV(rc, opts)
	}
	return nil, fmt.Errorf("%s: archive has no member %q", path, member)
}
