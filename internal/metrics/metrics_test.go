// Copyright 2025
// SPDX-License-Identifier: Apache-2.0

package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/dsfetch/dsfetch/pkg/dsfetch"
)

func sampleReport() *dsfetch.Report {
	return &dsfetch.Report{
		RunID:    "r",
		Finished: time.Unix(1700000000, 0),
		Results: []dsfetch.Result{
			{Name: "abalone", State: dsfetch.Transformed, Downloaded: true, Bytes: 1000, Rows: 4177, Duration: time.Second},
			{Name: "bank", State: dsfetch.Aborted, Downloaded: true, Bytes: 24},
		},
	}
}

func TestObserve(t *testing.T) {
	m := New()
	m.Observe(sampleReport(), errors.New("sha256 mismatch"))

	if got := testutil.ToFloat64(m.downloaded); got != 1024 {
		t.Errorf("downloaded = %v", got)
	}
	if got := testutil.ToFloat64(m.runs.WithLabelValues("failed")); got != 1 {
		t.Errorf("failed runs = %v", got)
	}
	if got := testutil.ToFloat64(m.rows.WithLabelValues("abalone")); got != 4177 {
		t.Errorf("rows = %v", got)
	}
	if got := testutil.ToFloat64(m.datasets.WithLabelValues("bank", "aborted")); got != 1 {
		t.Errorf("aborted bank = %v", got)
	}
	if got := testutil.ToFloat64(m.lastRun); got != 1700000000 {
		t.Errorf("last run = %v", got)
	}
	m.Observe(nil, nil)
}

func TestObserveStatus(t *testing.T) {
	m := New()
	m.ObserveStatus([]dsfetch.Status{
		{Name: "abalone", Raw: "ok", Clean: true},
		{Name: "bank", Raw: "mismatch"},
	})
	if got := testutil.ToFloat64(m.local.WithLabelValues("abalone", "clean")); got != 1 {
		t.Errorf("abalone clean = %v", got)
	}
	if got := testutil.ToFloat64(m.local.WithLabelValues("bank", "raw")); got != 0 {
		t.Errorf("bank raw = %v", got)
	}
}

func TestWriteTextfile(t *testing.T) {
	m := New()
	m.Observe(sampleReport(), nil)
	path := filepath.Join(t.TempDir(), "textfile", "dsfetch.prom")
	if err := m.WriteTextfile(path); err != nil {
		t.Fatalf("WriteTextfile: %v", err)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(b), `dsfetch_clean_rows{dataset="abalone"} 4177`) {
		t.Errorf("textfile =\n%s", b)
	}
}

func TestHandler(t *testing.T) {
	m := New()
	m.Observe(sampleReport(), nil)
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	if rec.Code != 200 || !strings.Contains(string(body), "dsfetch_downloaded_bytes_total 1024") {
		t.Errorf("status %d body:\n%s", rec.Code, body)
	}
}
