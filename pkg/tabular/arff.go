// Copyright 2025
// SPDX-License-Identifier: Apache-2.0

package tabular

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// ReadARFF parses a dense attribute-relation file. Nominal attributes
// ({a,b,...}) become categorical columns; string and date attributes are
// kept as text; numeric, real and integer attributes are left to inference.
func ReadARFF(r io.Reader) (*Frame, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 4*1024*1024)

	var names, nominal []string
	var rows [][]string
	inData := false
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "%") {
			continue
		}
		if !inData {
			lower := strings.ToLower(text)
			switch {
			case strings.HasPrefix(lower, "@relation"):
			case strings.HasPrefix(lower, "@attribute"):
				name, typ, err := parseAttribute(text[len("@attribute"):])
				if err != nil {
					return nil, fmt.Errorf("line %d: %w", line, err)
				}
				names = append(names, name)
				if strings.HasPrefix(typ, "{") || strings.EqualFold(typ, "string") {
					nominal = append(nominal, name)
				}
			case strings.HasPrefix(lower, "@data"):
				inData = true
			default:
				return nil, fmt.Errorf("line %d: unexpected header line %q", line, text)
			}
			continue
		}
		if strings.HasPrefix(text, "{") {
			return nil, fmt.Errorf("line %d: sparse instances are not supported", line)
		}
		fields := strings.Split(text, ",")
		if len(fields) != len(names) {
			return nil, fmt.Errorf("line %d: %d values for %d attributes", line, len(fields), len(names))
		}
		for i, v := range fields {
			fields[i] = unquote(strings.TrimSpace(v))
		}
		rows = append(rows, fields)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if !inData {
		return nil, errors.New("no @data section")
	}

	f, err := NewFrame(names, rows)
	if err != nil {
		return nil, err
	}
	f.MarkCategorical(nominal...)
	f.SetNA("?")
	return f, nil
}

// ReadARFFFile opens path and parses it with ReadARFF.
func ReadARFFFile(path string) (*Frame, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fh.Close()
	return ReadARFF(fh)
}

func parseAttribute(rest string) (name, typ string, err error) {
	rest = strings.TrimSpace(rest)
	if rest == "" {
		return "", "", errors.New("empty @attribute")
	}
	if q := rest[0]; q == '\'' || q == '"' {
		end := strings.IndexByte(rest[1:], q)
		if end < 0 {
			return "", "", errors.New("unterminated attribute name")
		}
		name = rest[1 : end+1]
		typ = strings.TrimSpace(rest[end+2:])
	} else {
		i := strings.IndexAny(rest, " \t")
		if i < 0 {
			return "", "", fmt.Errorf("attribute %q has no type", rest)
		}
		name, typ = rest[:i], strings.TrimSpace(rest[i:])
	}
	if typ == "" {
		return "", "", fmt.Errorf("attribute %q has no type", name)
	}
	return name, typ, nil
}

func unquote(v string) string {
	if len(v) >= 2 && (v[0] == '\'' || v[0] == '"') && v[len(v)-1] == v[0] {
		return v[1 : len(v)-1]
	}
	return v
}
