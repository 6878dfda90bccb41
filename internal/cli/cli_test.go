// Copyright 2025
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dsfetch/dsfetch/internal/ledger"
	"github.com/dsfetch/dsfetch/pkg/dsfetch"
)

// execute runs the CLI with an isolated HOME and returns stdout and stderr.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	t.Setenv("DSFETCH_OUTPUT", "")
	t.Setenv("DSFETCH_LEDGER", "")
	root := newRootCmd("1.2.3")
	var out, errb bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errb)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), errb.String(), err
}

// tamperedBanknote writes a raw banknote file whose digest cannot match.
func tamperedBanknote(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	raw := filepath.Join(dir, "banknote", "raw", "data_banknote_authentication.txt")
	if err := os.MkdirAll(filepath.Dir(raw), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(raw, []byte("3.6,8.6,-2.8,-0.4,0\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	return dir
}

func TestVersion(t *testing.T) {
	out, _, err := execute(t, "version", "--short")
	if err != nil || out != "1.2.3\n" {
		t.Errorf("out = %q, err = %v", out, err)
	}
	out, _, _ = execute(t, "version")
	if !strings.HasPrefix(out, "dsfetch 1.2.3\n") {
		t.Errorf("out = %q", out)
	}
}

func TestListJSON(t *testing.T) {
	out, _, err := execute(t, "list", "--all", "--json")
	if err != nil {
		t.Fatal(err)
	}
	var entries []dsfetch.Entry
	if err := json.Unmarshal([]byte(out), &entries); err != nil {
		t.Fatal(err)
	}
	if len(entries) != len(dsfetch.Catalog(true)) || entries[0].Name != "abalone" {
		t.Errorf("entries = %+v", entries)
	}
}

func TestListTable(t *testing.T) {
	out, _, err := execute(t, "list")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "NAME") || !strings.Contains(out, "seismic") || strings.Contains(out, "wbc") {
		t.Errorf("out =\n%s", out)
	}
}

func TestVerify(t *testing.T) {
	dir := tamperedBanknote(t)
	out, _, err := execute(t, "verify", "-o", dir, "--only", "banknote,abalone")
	if err == nil {
		t.Fatal("mismatch not reported")
	}
	if !strings.Contains(out, "banknote") || !strings.Contains(out, "mismatch") || !strings.Contains(out, "missing") {
		t.Errorf("out =\n%s", out)
	}

	if _, _, err := execute(t, "verify", "-o", dir, "--only", "abalone"); err != nil {
		t.Errorf("missing raw treated as failure: %v", err)
	}
}

func TestRunIntegrityFailure(t *testing.T) {
	dir := tamperedBanknote(t)
	db := filepath.Join(dir, "ledger.db")
	prom := filepath.Join(dir, "metrics", "dsfetch.prom")

	out, errOut, err := execute(t, "run", "-q", "-o", dir, "--only", "banknote", "--ledger", db, "--metrics-file", prom)
	var ie *dsfetch.IntegrityError
	if !errors.As(err, &ie) {
		t.Fatalf("err = %v", err)
	}
	if ie.Fresh {
		t.Error("present artifact reported as fresh")
	}
	entry, _ := dsfetch.Find("banknote")
	want := "The file hosted at " + entry.URL + " for banknote has an unexpected hash"
	if !strings.Contains(errOut, want) || !strings.Contains(errOut, entry.SHA256) {
		t.Errorf("stderr =\n%s", errOut)
	}
	if !strings.Contains(out, "present:") {
		t.Errorf("stdout =\n%s", out)
	}
	if _, err := os.Stat(filepath.Join(dir, "banknote", "banknote.csv")); !os.IsNotExist(err) {
		t.Errorf("clean table written: %v", err)
	}

	l, err := ledger.Open(context.Background(), db)
	if err != nil {
		t.Fatal(err)
	}
	defer l.Close()
	runs, err := l.Runs(context.Background(), 5)
	if err != nil || len(runs) != 1 || runs[0].OK {
		t.Errorf("runs = %+v, %v", runs, err)
	}
	if b, err := os.ReadFile(prom); err != nil || !strings.Contains(string(b), `dsfetch_runs_total{result="failed"} 1`) {
		t.Errorf("metrics = %s, %v", b, err)
	}

	out, _, err = execute(t, "history", "--ledger", db)
	if err != nil || !strings.Contains(out, runs[0].ID) || !strings.Contains(out, "failed") {
		t.Errorf("history = %q, %v", out, err)
	}
	out, _, err = execute(t, "history", "--ledger", db, "--json", runs[0].ID)
	if err != nil || !strings.Contains(out, `"state": "aborted"`) {
		t.Errorf("history detail = %q, %v", out, err)
	}
}

func TestRunJSONEvents(t *testing.T) {
	dir := tamperedBanknote(t)
	out, _, err := execute(t, "--json", "-o", dir, "--only", "banknote")
	if err == nil {
		t.Fatal("expected integrity failure")
	}
	var events []string
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		var ev dsfetch.ProgressEvent
		if err := json.Unmarshal([]byte(line), &ev); err != nil {
			t.Fatalf("line %q: %v", line, err)
		}
		events = append(events, ev.Event)
	}
	if strings.Join(events, ",") != "record_start,skip,error" {
		t.Errorf("events = %v", events)
	}
}

func TestRunUnknownDataset(t *testing.T) {
	_, _, err := execute(t, "run", "-o", t.TempDir(), "--only", "iris")
	if !errors.Is(err, dsfetch.ErrUnknownDataset) {
		t.Errorf("err = %v", err)
	}
}

func TestRunInvalidPublish(t *testing.T) {
	_, _, err := execute(t, "run", "-o", t.TempDir(), "--publish", "ftp")
	if err == nil || !strings.Contains(err.Error(), "invalid --publish") {
		t.Errorf("err = %v", err)
	}
}

func TestHistoryRequiresLedger(t *testing.T) {
	if _, _, err := execute(t, "history"); err == nil {
		t.Error("history without ledger succeeded")
	}
}

func TestApplyDefaults(t *testing.T) {
	t.Setenv("DSFETCH_OUTPUT", "/from/env")
	t.Setenv("DSFETCH_LEDGER", "/env/ledger.db")
	cfgPath := filepath.Join(t.TempDir(), "dsfetch.yaml")
	yml := "output: /from/config\nonly: [banknote, seismic]\nchunk-size: 4096\nall: true\n"
	if err := os.WriteFile(cfgPath, []byte(yml), 0o644); err != nil {
		t.Fatal(err)
	}

	ro := &RootOpts{Config: cfgPath}
	cmd := newRunCmd(ro)
	if err := cmd.ParseFlags([]string{"--chunk-size", "1024"}); err != nil {
		t.Fatal(err)
	}
	if err := applyDefaults(cmd, ro, runEnv); err != nil {
		t.Fatalf("applyDefaults: %v", err)
	}

	get := func(name string) string { return cmd.Flags().Lookup(name).Value.String() }
	if got := get("output"); got != "/from/config" {
		t.Errorf("output = %q", got)
	}
	if got := get("ledger"); got != "/env/ledger.db" {
		t.Errorf("ledger = %q", got)
	}
	if got := get("chunk-size"); got != "1024" {
		t.Errorf("chunk-size = %q", got)
	}
	if got, _ := cmd.Flags().GetStringSlice("only"); strings.Join(got, ",") != "banknote,seismic" {
		t.Errorf("only = %v", got)
	}
	if got := get("all"); got != "true" {
		t.Errorf("all = %q", got)
	}
}

func TestApplyDefaultsBadConfig(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "dsfetch.json")
	if err := os.WriteFile(cfgPath, []byte("{"), 0o644); err != nil {
		t.Fatal(err)
	}
	ro := &RootOpts{Config: cfgPath}
	if err := applyDefaults(newRunCmd(ro), ro, nil); err == nil {
		t.Error("invalid JSON accepted")
	}
}

func TestConfigInit(t *testing.T) {
	home := t.TempDir()
	root := func(args ...string) (string, error) {
		t.Setenv("HOME", home)
		cmd := newRootCmd("test")
		var out bytes.Buffer
		cmd.SetOut(&out)
		cmd.SetArgs(args)
		err := cmd.Execute()
		return out.String(), err
	}

	if _, err := root("config", "init", "--yaml"); err != nil {
		t.Fatalf("init: %v", err)
	}
	want := filepath.Join(home, ".config", "dsfetch.yaml")
	if _, err := os.Stat(want); err != nil {
		t.Fatal(err)
	}
	if _, err := root("config", "init", "--yaml"); err == nil {
		t.Error("init overwrote without --force")
	}
	out, err := root("config", "path")
	if err != nil || strings.TrimSpace(out) != want {
		t.Errorf("path = %q, %v", out, err)
	}
	out, err = root("config", "show")
	if err != nil || !strings.Contains(out, "chunk-size: 32768") {
		t.Errorf("show = %q, %v", out, err)
	}
}

func TestDescribeFailure(t *testing.T) {
	var buf bytes.Buffer
	err := &dsfetch.AcquisitionError{Name: "x", Err: errors.New("boom")}
	describeFailure(&buf, err)
	if buf.Len() != 0 {
		t.Errorf("unexpected diagnostic %q", buf.String())
	}

	ie := &dsfetch.IntegrityError{Name: "bank", URL: "http://h/bank.zip", Path: "/d/bank.zip.rejected", Expected: "aa", Actual: "bb", Fresh: true}
	describeFailure(&buf, &dsfetch.AcquisitionError{Name: "bank", Err: ie})
	got := buf.String()
	for _, want := range []string{"The file hosted at http://h/bank.zip for bank has an unexpected hash", "expected: aa", "actual:   bb", "bank.zip.rejected"} {
		if !strings.Contains(got, want) {
			t.Errorf("diagnostic missing %q:\n%s", want, got)
		}
	}
}

func TestPrintSummary(t *testing.T) {
	var buf bytes.Buffer
	report := &dsfetch.Report{Finished: time.Now(), Results: []dsfetch.Result{{Name: "seismic", Rows: 2584, Cols: 25, CleanPath: "data/seismic/seismic.csv"}}}
	entry, _ := dsfetch.Find("seismic")
	printSummary(&buf, report, []dsfetch.Entry{entry})
	if !strings.Contains(buf.String(), "2584 rows") || !strings.Contains(buf.String(), entry.Reference) {
		t.Errorf("summary =\n%s", buf.String())
	}
}

func TestSplitComma(t *testing.T) {
	if got := splitComma(" a, ,b "); strings.Join(got, "|") != "a|b" {
		t.Errorf("splitComma = %q", got)
	}
	if splitComma("") != nil {
		t.Error("empty input")
	}
}
