// Copyright 2025
// SPDX-License-Identifier: Apache-2.0

// Package tui renders run progress for humans.
package tui

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/cheggaaa/pb/v3"
	"github.com/fatih/color"
	"golang.org/x/term"

	"github.com/dsfetch/dsfetch/pkg/dsfetch"
)

const barTemplate = `{{string . "prefix"}}{{counters . }} {{bar . "[" "=" ">" " " "]"}} {{percent . }} {{speed . }} {{rtime . "ETA %s"}}`

// LiveRenderer prints a heading per dataset, a byte progress bar while a
// raw artifact downloads, and a one-line outcome per stage.
//
// On a non-interactive writer the bar is replaced by start and finish lines
// and colors are disabled.
type LiveRenderer struct {
	mu          sync.Mutex
	out         io.Writer
	interactive bool
	start       time.Time
	bar         *pb.ProgressBar
	prepared    int

	heading *color.Color
	ok      *color.Color
	skip    *color.Color
	fail    *color.Color
	faint   *color.Color
}

// NewLiveRenderer creates a renderer on stdout, detecting whether it is a
// terminal.
func NewLiveRenderer() *LiveRenderer {
	return NewRenderer(os.Stdout, isInteractive(os.Stdout) && ansiOkay())
}

// NewRenderer creates a renderer on w.
func NewRenderer(w io.Writer, interactive bool) *LiveRenderer {
	lr := &LiveRenderer{
		out:         w,
		interactive: interactive,
		start:       time.Now(),
		heading:     color.New(color.FgCyan, color.Bold),
		ok:          color.New(color.FgGreen),
		skip:        color.New(color.FgBlue),
		fail:        color.New(color.FgRed, color.Bold),
		faint:       color.New(color.Faint),
	}
	if !interactive || os.Getenv("NO_COLOR") != "" {
		for _, c := range []*color.Color{lr.heading, lr.ok, lr.skip, lr.fail, lr.faint} {
			c.DisableColor()
		}
	}
	return lr
}

// Handler returns a ProgressFunc that feeds events to the renderer.
func (lr *LiveRenderer) Handler() dsfetch.ProgressFunc {
	return lr.apply
}

// Close finishes any open bar and prints a summary line.
func (lr *LiveRenderer) Close() {
	lr.mu.Lock()
	defer lr.mu.Unlock()
	lr.finishBar()
}

func (lr *LiveRenderer) apply(ev dsfetch.ProgressEvent) {
	lr.mu.Lock()
	defer lr.mu.Unlock()

	switch ev.Event {
	case "record_start":
		lr.heading.Fprintf(lr.out, "==> %s\n", ev.Dataset)
		lr.faint.Fprintf(lr.out, "    %s\n", ev.URL)
	case "skip":
		lr.skip.Fprintf(lr.out, "    • raw artifact present: %s\n", ev.Path)
	case "fetch_start":
		if !lr.interactive {
			fmt.Fprintf(lr.out, "    downloading %s\n", humanBytes(ev.Total))
			return
		}
		lr.finishBar()
		bar := pb.New64(ev.Total)
		bar.Set(pb.Bytes, true)
		bar.Set("prefix", "    ")
		bar.SetTemplateString(barTemplate)
		bar.SetWriter(lr.out)
		bar.SetRefreshRate(150 * time.Millisecond)
		lr.bar = bar.Start()
	case "fetch_progress":
		if lr.bar != nil {
			lr.bar.SetCurrent(ev.Downloaded)
		}
	case "fetch_done":
		if lr.bar != nil {
			lr.bar.SetCurrent(ev.Downloaded)
			lr.finishBar()
		}
		fmt.Fprintf(lr.out, "    downloaded %s\n", humanBytes(ev.Downloaded))
	case "verify_ok":
		lr.ok.Fprintf(lr.out, "    ✓ sha256 %s\n", shortDigest(ev.Message))
	case "transform_done":
		lr.prepared++
		lr.ok.Fprintf(lr.out, "    ✓ %s (%d rows, %d columns)\n", ev.Path, ev.Rows, ev.Cols)
	case "error":
		lr.finishBar()
		lr.fail.Fprintf(lr.out, "    × %s\n", ev.Message)
	case "done":
		lr.finishBar()
		lr.faint.Fprintf(lr.out, "%d datasets prepared in %s\n", lr.prepared, fmtDuration(time.Since(lr.start)))
	}
}

func (lr *LiveRenderer) finishBar() {
	if lr.bar != nil {
		lr.bar.Finish()
		lr.bar = nil
	}
}

func shortDigest(s string) string {
	if len(s) > 16 {
		return s[:16] + "…"
	}
	return s
}

func humanBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for n/div >= unit && exp < 6 {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

func fmtDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	if h > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}

func isInteractive(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

func ansiOkay() bool {
	return strings.ToLower(os.Getenv("TERM")) != "dumb"
}
