// Copyright 2025
// SPDX-License-Identifier: Apache-2.0

package tui

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/dsfetch/dsfetch/pkg/dsfetch"
)

func TestRendererPlainOutput(t *testing.T) {
	var buf bytes.Buffer
	lr := NewRenderer(&buf, false)
	emit := lr.Handler()

	emit(dsfetch.ProgressEvent{Event: "record_start", Dataset: "banknote", URL: "https://example.org/bn.txt"})
	emit(dsfetch.ProgressEvent{Event: "fetch_start", Total: 2048})
	emit(dsfetch.ProgressEvent{Event: "fetch_progress", Downloaded: 1024, Total: 2048})
	emit(dsfetch.ProgressEvent{Event: "fetch_done", Downloaded: 2048, Total: 2048})
	emit(dsfetch.ProgressEvent{Event: "verify_ok", Message: strings.Repeat("ab", 32)})
	emit(dsfetch.ProgressEvent{Event: "transform_done", Path: "data/banknote/banknote.csv", Rows: 4, Cols: 5})
	emit(dsfetch.ProgressEvent{Event: "done"})
	lr.Close()

	out := buf.String()
	for _, want := range []string{
		"==> banknote",
		"downloading 2.0 KiB",
		"downloaded 2.0 KiB",
		"sha256 abababababababab",
		"data/banknote/banknote.csv (4 rows, 5 columns)",
		"1 datasets prepared",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "\x1b[") {
		t.Error("non-interactive output contains ANSI escapes")
	}
}

func TestRendererError(t *testing.T) {
	var buf bytes.Buffer
	lr := NewRenderer(&buf, false)
	lr.Handler()(dsfetch.ProgressEvent{Event: "error", Message: "boom"})
	if !strings.Contains(buf.String(), "× boom") {
		t.Errorf("output = %q", buf.String())
	}
}

func TestHumanBytes(t *testing.T) {
	cases := map[int64]string{
		0:       "0 B",
		1023:    "1023 B",
		1024:    "1.0 KiB",
		1536:    "1.5 KiB",
		1 << 20: "1.0 MiB",
	}
	for in, want := range cases {
		if got := humanBytes(in); got != want {
			t.Errorf("humanBytes(%d) = %q, want %q", in, got, want)
		}
	}
}

func TestFmtDuration(t *testing.T) {
	if got := fmtDuration(75 * time.Second); got != "01:15" {
		t.Errorf("got %q", got)
	}
	if got := fmtDuration(2*time.Hour + 3*time.Second); got != "02:00:03" {
		t.Errorf("got %q", got)
	}
}
