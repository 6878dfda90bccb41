// Copyright 2025
// SPDX-License-Identifier: Apache-2.0

package dsfetch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/dsfetch/dsfetch/pkg/tabular"
)

const samplePayload = "3.6,8.6,0\n4.5,8.1,0\n-1.3,-2.6,1\n-2.0,-6.0,1\n"

func sum(b string) string {
	h := sha256.Sum256([]byte(b))
	return hex.EncodeToString(h[:])
}

// payloadServer serves body at every path and counts requests.
type payloadServer struct {
	*httptest.Server
	hits atomic.Int64
}

func newPayloadServer(t *testing.T, body string) *payloadServer {
	t.Helper()
	ps := &payloadServer{}
	ps.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ps.hits.Add(1)
		w.Header().Set("Content-Length", strconv.Itoa(len(body)))
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(ps.Close)
	return ps
}

func sampleTransform(path string) (*tabular.Table, error) {
	f, err := tabular.ReadCSVFile(path, tabular.CSVOptions{NoHeader: true, Names: []string{"a", "b", "class"}})
	if err != nil {
		return nil, err
	}
	col, err := f.Column("class")
	if err != nil {
		return nil, err
	}
	y, err := tabular.LabelInt(col)
	if err != nil {
		return nil, err
	}
	g, err := f.Drop("class")
	if err != nil {
		return nil, err
	}
	names, X, err := tabular.Numeric(g)
	if err != nil {
		return nil, err
	}
	return tabular.Build(names, X, y, f.Len()), nil
}

func sampleRecord(t *testing.T, base, url, digest string) Record {
	t.Helper()
	rec, err := NewRecord(Entry{Name: "sample", URL: url, SHA256: digest, RawFile: "sample.data"}, base, TransformFunc(sampleTransform))
	if err != nil {
		t.Fatalf("NewRecord: %v", err)
	}
	return rec
}

func TestNewRecordLayout(t *testing.T) {
	rec := sampleRecord(t, "out", "http://example.invalid/x", sum(samplePayload))
	if want := filepath.Join("out", "sample", "raw", "sample.data"); rec.RawPath != want {
		t.Errorf("RawPath = %q, want %q", rec.RawPath, want)
	}
	if want := filepath.Join("out", "sample", "sample.csv"); rec.CleanPath != want {
		t.Errorf("CleanPath = %q, want %q", rec.CleanPath, want)
	}

	if _, err := NewRecord(Entry{Name: "x", URL: "u", SHA256: "abc", RawFile: "f"}, "", TransformFunc(sampleTransform)); err == nil {
		t.Error("short digest should be rejected")
	}
	if _, err := NewRecord(Entry{Name: "x", URL: "u", SHA256: sum(""), RawFile: "f"}, "", nil); !errors.Is(err, ErrUnknownDataset) {
		t.Errorf("missing transform: err = %v", err)
	}
}

func TestProcessDownloadsThenReusesRaw(t *testing.T) {
	srv := newPayloadServer(t, samplePayload)
	rec := sampleRecord(t, t.TempDir(), srv.URL+"/sample.data", sum(samplePayload))

	var events []string
	res, err := rec.Process(context.Background(), &Fetcher{}, func(e ProgressEvent) { events = append(events, e.Event) })
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if res.State != Transformed || !res.Downloaded {
		t.Errorf("state = %v downloaded = %v", res.State, res.Downloaded)
	}
	if res.Rows != 4 || res.Cols != 3 {
		t.Errorf("shape = %dx%d, want 4x3", res.Rows, res.Cols)
	}
	if res.Bytes != int64(len(samplePayload)) {
		t.Errorf("bytes = %d", res.Bytes)
	}
	if !strings.Contains(strings.Join(events, ","), "fetch_start") {
		t.Errorf("events = %v", events)
	}

	first, err := os.ReadFile(rec.CleanPath)
	if err != nil {
		t.Fatal(err)
	}
	if lines := strings.Split(strings.TrimSpace(string(first)), "\n"); len(lines) != 5 || lines[0] != "a;b;y" {
		t.Errorf("clean file =\n%s", first)
	}

	res, err = rec.Process(context.Background(), &Fetcher{}, nil)
	if err != nil {
		t.Fatalf("second Process: %v", err)
	}
	if res.Downloaded {
		t.Error("present raw artifact was downloaded again")
	}
	if got := srv.hits.Load(); got != 1 {
		t.Errorf("requests = %d, want 1", got)
	}
	second, _ := os.ReadFile(rec.CleanPath)
	if string(first) != string(second) {
		t.Error("clean output differs between runs")
	}
	if _, err := os.Stat(rec.RawPath + ".part"); !os.IsNotExist(err) {
		t.Error("part file left behind")
	}
}

func TestProcessRejectsCorruptDownload(t *testing.T) {
	corrupt := []byte(samplePayload)
	corrupt[5] ^= 0x01
	srv := newPayloadServer(t, string(corrupt))
	rec := sampleRecord(t, t.TempDir(), srv.URL, sum(samplePayload))

	res, err := rec.Process(context.Background(), &Fetcher{}, nil)
	var ierr *IntegrityError
	if !errors.As(err, &ierr) {
		t.Fatalf("err = %v, want IntegrityError", err)
	}
	if !ierr.Fresh || ierr.Expected != sum(samplePayload) || ierr.Actual != sum(string(corrupt)) {
		t.Errorf("integrity error = %+v", ierr)
	}
	if res.State != Aborted {
		t.Errorf("state = %v", res.State)
	}
	if _, err := os.Stat(rec.RawPath); !os.IsNotExist(err) {
		t.Error("corrupt artifact must not occupy the raw path")
	}
	if _, err := os.Stat(rec.RawPath + ".rejected"); err != nil {
		t.Errorf("rejected copy missing: %v", err)
	}
	if _, err := os.Stat(rec.CleanPath); !os.IsNotExist(err) {
		t.Error("clean file written for unverified data")
	}
}

func TestProcessPresentMismatch(t *testing.T) {
	srv := newPayloadServer(t, samplePayload)
	rec := sampleRecord(t, t.TempDir(), srv.URL, sum(samplePayload))
	if err := os.MkdirAll(filepath.Dir(rec.RawPath), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(rec.RawPath, []byte("stale"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := rec.Process(context.Background(), &Fetcher{}, nil)
	var ierr *IntegrityError
	if !errors.As(err, &ierr) || ierr.Fresh {
		t.Fatalf("err = %v, want IntegrityError for present file", err)
	}
	if srv.hits.Load() != 0 {
		t.Error("present artifact triggered a request")
	}
	if b, _ := os.ReadFile(rec.RawPath); string(b) != "stale" {
		t.Error("present artifact was modified")
	}
}

func TestProcessEmptyRawIsRefetched(t *testing.T) {
	srv := newPayloadServer(t, samplePayload)
	rec := sampleRecord(t, t.TempDir(), srv.URL, sum(samplePayload))
	_ = os.MkdirAll(filepath.Dir(rec.RawPath), 0o755)
	_ = os.WriteFile(rec.RawPath, nil, 0o644)

	res, err := rec.Process(context.Background(), &Fetcher{}, nil)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if !res.Downloaded || srv.hits.Load() != 1 {
		t.Errorf("downloaded = %v hits = %d", res.Downloaded, srv.hits.Load())
	}
}

func TestProcessTransformFailure(t *testing.T) {
	srv := newPayloadServer(t, samplePayload)
	base := t.TempDir()
	rec, _ := NewRecord(Entry{Name: "sample", URL: srv.URL, SHA256: sum(samplePayload), RawFile: "s"}, base,
		TransformFunc(func(string) (*tabular.Table, error) {
			return tabular.Build([]string{"a"}, [][]float64{{1}}, []int{0}, 2), nil
		}))

	_, err := rec.Process(context.Background(), &Fetcher{}, nil)
	var terr *TransformationError
	if !errors.As(err, &terr) {
		t.Fatalf("err = %v, want TransformationError", err)
	}
	if _, err := os.Stat(rec.CleanPath); !os.IsNotExist(err) {
		t.Error("invalid table was written")
	}
	if _, err := os.Stat(rec.RawPath); err != nil {
		t.Error("verified raw artifact should be kept")
	}
}

func TestFetch(t *testing.T) {
	t.Run("small chunks", func(t *testing.T) {
		srv := newPayloadServer(t, samplePayload)
		dst := filepath.Join(t.TempDir(), "a", "b.part")
		var last ProgressEvent
		n, err := (&Fetcher{ChunkSize: 3}).Fetch(context.Background(), srv.URL, dst, func(e ProgressEvent) { last = e })
		if err != nil {
			t.Fatalf("Fetch: %v", err)
		}
		if n != int64(len(samplePayload)) || last.Event != "fetch_done" {
			t.Errorf("n = %d last = %+v", n, last)
		}
		if ok, _ := Matches(dst, sum(samplePayload)); !ok {
			t.Error("content mismatch")
		}
	})

	t.Run("missing content length", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("partial"))
			w.(http.Flusher).Flush()
			_, _ = w.Write([]byte(" rest"))
		}))
		defer srv.Close()
		dst := filepath.Join(t.TempDir(), "x.part")
		_, err := (&Fetcher{}).Fetch(context.Background(), srv.URL, dst, nil)
		if !errors.Is(err, ErrMissingContentLength) {
			t.Fatalf("err = %v", err)
		}
		if _, err := os.Stat(dst); !os.IsNotExist(err) {
			t.Error("destination created without a size")
		}
	})

	t.Run("bad status", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		defer srv.Close()
		if _, err := (&Fetcher{}).Fetch(context.Background(), srv.URL, filepath.Join(t.TempDir(), "x"), nil); err == nil {
			t.Error("expected error for 404")
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		srv := newPayloadServer(t, samplePayload)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if _, err := (&Fetcher{}).Fetch(ctx, srv.URL, filepath.Join(t.TempDir(), "x"), nil); !errors.Is(err, context.Canceled) {
			t.Errorf("err = %v", err)
		}
	})
}

func TestNewFetcher(t *testing.T) {
	f, err := NewFetcher(Settings{Timeout: "90s", UserAgent: "ua"})
	if err != nil {
		t.Fatalf("NewFetcher: %v", err)
	}
	if f.Client.Timeout.Seconds() != 90 || f.UserAgent != "ua" {
		t.Errorf("fetcher = %+v", f)
	}
	if _, err := NewFetcher(Settings{Timeout: "soon"}); err == nil {
		t.Error("bad timeout accepted")
	}
}

func TestRunStopsAtFirstFailure(t *testing.T) {
	good := newPayloadServer(t, samplePayload)
	bad := newPayloadServer(t, "garbage,1,1\n")
	base := t.TempDir()

	mk := func(name, url string) Record {
		rec, err := NewRecord(Entry{Name: name, URL: url, SHA256: sum(samplePayload), RawFile: name + ".data"}, base, TransformFunc(sampleTransform))
		if err != nil {
			t.Fatal(err)
		}
		return rec
	}
	third := newPayloadServer(t, samplePayload)
	records := []Record{mk("one", good.URL), mk("two", bad.URL), mk("three", third.URL)}

	var datasets []string
	report, err := Run(context.Background(), records, &Fetcher{}, func(e ProgressEvent) {
		if e.Event == "record_start" {
			datasets = append(datasets, e.Dataset)
		}
	})
	var ierr *IntegrityError
	if !errors.As(err, &ierr) || ierr.Name != "two" {
		t.Fatalf("err = %v", err)
	}
	if len(report.Results) != 2 || report.OK() {
		t.Errorf("results = %+v", report.Results)
	}
	if third.hits.Load() != 0 {
		t.Error("record after the failure was attempted")
	}
	if strings.Join(datasets, ",") != "one,two" {
		t.Errorf("started = %v", datasets)
	}
	if report.RunID == "" {
		t.Error("missing run id")
	}
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	rec := sampleRecord(t, t.TempDir(), "http://example.invalid/", sum(samplePayload))
	report, err := Run(ctx, []Record{rec}, nil, nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v", err)
	}
	if len(report.Results) != 0 {
		t.Errorf("results = %v", report.Results)
	}
}

func TestDigest(t *testing.T) {
	path := filepath.Join(t.TempDir(), "abc")
	if err := os.WriteFile(path, []byte("abc"), 0o644); err != nil {
		t.Fatal(err)
	}
	got, err := DigestOf(path)
	if err != nil {
		t.Fatal(err)
	}
	const want = "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"
	if got != want {
		t.Errorf("DigestOf = %s", got)
	}
	for _, exp := range []string{got, strings.ToUpper(got), " " + got + "\n"} {
		if ok, err := Matches(path, exp); !ok || err != nil {
			t.Errorf("Matches(%q) = %v, %v", exp, ok, err)
		}
	}
	if ok, _ := Matches(path, sum("abd")); ok {
		t.Error("different digest matched")
	}
	if _, err := DigestOf(filepath.Join(t.TempDir(), "none")); err == nil {
		t.Error("missing file hashed")
	}
}

func TestRecordCheck(t *testing.T) {
	rec := sampleRecord(t, t.TempDir(), "http://example.invalid/", sum(samplePayload))
	st, err := rec.Check()
	if err != nil || st.Raw != "missing" || st.Clean {
		t.Fatalf("status = %+v, %v", st, err)
	}
	_ = os.MkdirAll(filepath.Dir(rec.RawPath), 0o755)
	_ = os.WriteFile(rec.RawPath, []byte(samplePayload), 0o644)
	if st, _ = rec.Check(); st.Raw != "ok" {
		t.Errorf("status = %+v", st)
	}
	_ = os.WriteFile(rec.RawPath, []byte("x"), 0o644)
	if st, _ = rec.Check(); st.Raw != "mismatch" {
		t.Errorf("status = %+v", st)
	}
}

func TestCatalog(t *testing.T) {
	def := Catalog(false)
	all := Catalog(true)
	if len(def) != 8 || len(all) != 10 {
		t.Fatalf("catalog sizes = %d, %d", len(def), len(all))
	}
	seen := map[string]bool{}
	for _, e := range all {
		if seen[e.Name] {
			t.Errorf("duplicate %s", e.Name)
		}
		seen[e.Name] = true
		if _, err := hex.DecodeString(e.SHA256); err != nil || len(e.SHA256) != 64 {
			t.Errorf("%s: bad digest %q", e.Name, e.SHA256)
		}
		if e.Optional != (e.Name == "defaultcc" || e.Name == "wbc") {
			t.Errorf("%s: optional = %v", e.Name, e.Optional)
		}
	}
	if links := Links(def); len(links) != len(def) || links[0] != def[0].Reference {
		t.Errorf("links = %v", links)
	}

	sel, err := Select(false, []string{"wbc", "abalone"})
	if err != nil || len(sel) != 2 || sel[0].Name != "abalone" || sel[1].Name != "wbc" {
		t.Errorf("Select = %v, %v", sel, err)
	}
	if _, err := Select(false, []string{"iris"}); !errors.Is(err, ErrUnknownDataset) {
		t.Errorf("unknown name: err = %v", err)
	}
}

type mapLookup map[string]Transformer

func (m mapLookup) Lookup(name string) (Transformer, bool) {
	t, ok := m[name]
	return t, ok
}

func TestPlan(t *testing.T) {
	entries := Catalog(false)[:2]
	if _, err := Plan(entries, "d", mapLookup{entries[0].Name: TransformFunc(sampleTransform)}); !errors.Is(err, ErrUnknownDataset) {
		t.Errorf("err = %v", err)
	}
	recs, err := Plan(entries, "d", mapLookup{
		entries[0].Name: TransformFunc(sampleTransform),
		entries[1].Name: TransformFunc(sampleTransform),
	})
	if err != nil || len(recs) != 2 || recs[1].Name != entries[1].Name {
		t.Errorf("Plan = %v, %v", recs, err)
	}
}
