// Copyright 2025
// SPDX-License-Identifier: Apache-2.0

// Package ledger keeps a history of runs and per-dataset outcomes in SQL.
//
// A DSN starting with postgres:// or postgresql:// is opened with pgx; any
// other value is a SQLite file path (an optional sqlite:// prefix is
// stripped).
package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver
	_ "modernc.org/sqlite"             // pure go sqlite driver

	"github.com/dsfetch/dsfetch/pkg/dsfetch"
)

// ErrNotFound is returned when a run id is unknown.
var ErrNotFound = errors.New("run not found")

// Run is one row of the run history.
type Run struct {
	ID       string    `json:"id"`
	Started  time.Time `json:"started"`
	Finished time.Time `json:"finished"`
	OK       bool      `json:"ok"`
	Error    string    `json:"error,omitempty"`
	Datasets int       `json:"datasets"`
}

// Outcome is the stored result of one dataset within a run.
type Outcome struct {
	Seq        int    `json:"seq"`
	Name       string `json:"name"`
	State      string `json:"state"`
	SHA256     string `json:"sha256,omitempty"`
	Downloaded bool   `json:"downloaded"`
	Bytes      int64  `json:"bytes"`
	Rows       int    `json:"rows"`
	Cols       int    `json:"cols"`
	DurationMS int64  `json:"durationMs"`
	Error      string `json:"error,omitempty"`
}

// Ledger is a SQL-backed run history.
type Ledger struct {
	db       *sql.DB
	postgres bool
}

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	started TEXT NOT NULL,
	finished TEXT NOT NULL,
	ok INTEGER NOT NULL,
	error TEXT NOT NULL DEFAULT ''
);
CREATE TABLE IF NOT EXISTS outcomes (
	run_id TEXT NOT NULL REFERENCES runs(id),
	seq INTEGER NOT NULL,
	name TEXT NOT NULL,
	state TEXT NOT NULL,
	sha256 TEXT NOT NULL DEFAULT '',
	downloaded INTEGER NOT NULL,
	bytes BIGINT NOT NULL,
	rows_out INTEGER NOT NULL,
	cols_out INTEGER NOT NULL,
	duration_ms BIGINT NOT NULL,
	error TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (run_id, seq)
)`

// Open connects to dsn and creates the tables if needed.
func Open(ctx context.Context, dsn string) (*Ledger, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, errors.New("empty ledger DSN")
	}
	l := &Ledger{}
	var err error
	switch {
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		l.postgres = true
		l.db, err = sql.Open("pgx", dsn)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
	default:
		path := strings.TrimPrefix(dsn, "sqlite://")
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("create dirs: %w", err)
		}
		l.db, err = sql.Open("sqlite", path)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		l.db.SetMaxOpenConns(1)
	}
	if err := l.db.PingContext(ctx); err != nil {
		_ = l.db.Close()
		return nil, fmt.Errorf("ping ledger: %w", err)
	}
	for _, stmt := range strings.Split(schema, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := l.db.ExecContext(ctx, stmt); err != nil {
			_ = l.db.Close()
			return nil, fmt.Errorf("create ledger tables: %w", err)
		}
	}
	return l, nil
}

// Close releases the database handle.
func (l *Ledger) Close() error { return l.db.Close() }

// rebind rewrites ? placeholders to $n for postgres.
func (l *Ledger) rebind(q string) string {
	if !l.postgres {
		return q
	}
	var b strings.Builder
	n := 0
	for _, r := range q {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Record stores report and its outcomes in one transaction. runErr is the
// error the run ended with, if any.
func (l *Ledger) Record(ctx context.Context, report *dsfetch.Report, runErr error) (retErr error) {
	if report == nil {
		return errors.New("nil report")
	}
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()

	ok, msg := 1, ""
	if runErr != nil || !report.OK() {
		ok = 0
	}
	if runErr != nil {
		msg = runErr.Error()
	}
	if _, err := tx.ExecContext(ctx, l.rebind(`INSERT INTO runs (id, started, finished, ok, error) VALUES (?, ?, ?, ?, ?)`),
		report.RunID, formatTime(report.Started), formatTime(report.Finished), ok, msg); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	ins := l.rebind(`INSERT INTO outcomes (run_id, seq, name, state, sha256, downloaded, bytes, rows_out, cols_out, duration_ms, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	for i, res := range report.Results {
		errText := ""
		if res.Err != nil {
			errText = res.Err.Error()
		}
		downloaded := 0
		if res.Downloaded {
			downloaded = 1
		}
		if _, err := tx.ExecContext(ctx, ins, report.RunID, i, res.Name, res.State.String(), res.SHA256,
			downloaded, res.Bytes, res.Rows, res.Cols, res.Duration.Milliseconds(), errText); err != nil {
			return fmt.Errorf("insert outcome %s: %w", res.Name, err)
		}
	}
	return tx.Commit()
}

// Runs returns the most recent runs, newest first.
func (l *Ledger) Runs(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := l.db.QueryContext(ctx, l.rebind(`
		SELECT r.id, r.started, r.finished, r.ok, r.error,
			(SELECT COUNT(*) FROM outcomes o WHERE o.run_id = r.id)
		FROM runs r ORDER BY r.started DESC, r.id LIMIT ?`), limit)
	if err != nil {
		return nil, fmt.Errorf("select runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, run)
	}
	return out, rows.Err()
}

// Run returns one run with its outcomes in processing order.
func (l *Ledger) Run(ctx context.Context, id string) (Run, []Outcome, error) {
	row := l.db.QueryRowContext(ctx, l.rebind(`
		SELECT r.id, r.started, r.finished, r.ok, r.error,
			(SELECT COUNT(*) FROM outcomes o WHERE o.run_id = r.id)
		FROM runs r WHERE r.id = ?`), id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, nil, ErrNotFound
	}
	if err != nil {
		return Run{}, nil, err
	}

	rows, err := l.db.QueryContext(ctx, l.rebind(`
		SELECT seq, name, state, sha256, downloaded, bytes, rows_out, cols_out, duration_ms, error
		FROM outcomes WHERE run_id = ? ORDER BY seq`), id)
	if err != nil {
		return run, nil, fmt.Errorf("select outcomes: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var outcomes []Outcome
	for rows.Next() {
		var o Outcome
		var downloaded int
		if err := rows.Scan(&o.Seq, &o.Name, &o.State, &o.SHA256, &downloaded, &o.Bytes, &o.Rows, &o.Cols, &o.DurationMS, &o.Error); err != nil {
			return run, nil, fmt.Errorf("scan outcome: %w", err)
		}
		o.Downloaded = downloaded != 0
		outcomes = append(outcomes, o)
	}
	return run, outcomes, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (Run, error) {
	var r Run
	var started, finished string
	var ok int
	if err := s.Scan(&r.ID, &started, &finished, &ok, &r.Error, &r.Datasets); err != nil {
		return Run{}, err
	}
	r.OK = ok != 0
	r.Started, _ = time.Parse(timeLayout, started)
	r.Finished, _ = time.Parse(timeLayout, finished)
	return r, nil
}

// timeLayout is fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}
