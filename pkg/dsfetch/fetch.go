// Copyright 2025
// SPDX-License-Identifier: Apache-2.0

package dsfetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

const defaultChunkSize = 32 << 10

// progressReader wraps an io.Reader and emits progress events during reads.
type progressReader struct {
	reader     io.Reader
	total      int64
	downloaded int64
	path       string
	emit       func(ProgressEvent)
	lastEmit   time.Time
	interval   time.Duration
}

func newProgressReader(r io.Reader, total int64, path string, emit func(ProgressEvent)) *progressReader {
	return &progressReader{
		reader:   r,
		total:    total,
		path:     path,
		emit:     emit,
		lastEmit: time.Now(),
		interval: 200 * time.Millisecond,
	}
}

func (pr *progressReader) Read(p []byte) (n int, err error) {
	n, err = pr.reader.Read(p)
	if n > 0 {
		pr.downloaded += int64(n)
		if time.Since(pr.lastEmit) >= pr.interval || err == io.EOF || pr.downloaded == pr.total {
			pr.emit(ProgressEvent{
				Event:      "fetch_progress",
				Path:       pr.path,
				Downloaded: pr.downloaded,
				Total:      pr.total,
			})
			pr.lastEmit = time.Now()
		}
	}
	return n, err
}

// Fetcher streams remote artifacts to local files.
type Fetcher struct {
	// Client performs the requests. If nil, a default client is built.
	Client *http.Client

	// UserAgent is sent with every request.
	UserAgent string

	// ChunkSize is the copy buffer size. If <= 0, 32 KiB is used.
	ChunkSize int
}

// NewFetcher builds a Fetcher from run settings.
func NewFetcher(cfg Settings) (*Fetcher, error) {
	httpc := buildHTTPClient()
	if cfg.Timeout != "" && cfg.Timeout != "0" {
		d, err := time.ParseDuration(cfg.Timeout)
		if err != nil {
			return nil, fmt.Errorf("invalid timeout %q: %w", cfg.Timeout, err)
		}
		if d < 0 {
			return nil, fmt.Errorf("invalid timeout %q: must not be negative", cfg.Timeout)
		}
		httpc.Timeout = d
	}
	if cfg.ChunkSize < 0 {
		return nil, fmt.Errorf("invalid chunk size %d", cfg.ChunkSize)
	}
	return &Fetcher{Client: httpc, UserAgent: cfg.UserAgent, ChunkSize: cfg.ChunkSize}, nil
}

// Fetch downloads url into dst, creating parent directories as needed, and
// returns the number of bytes written.
//
// The server must declare Content-Length and deliver exactly that many bytes.
// On any failure dst is removed, so a partial file is never left behind.
func (f *Fetcher) Fetch(ctx context.Context, url, dst string, emit ProgressFunc) (n int64, err error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if emit == nil {
		emit = func(ProgressEvent) {}
	}
	httpc := f.Client
	if httpc == nil {
		httpc = buildHTTPClient()
	}
	chunk := f.ChunkSize
	if chunk <= 0 {
		chunk = defaultChunkSize
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, err
	}
	addHeaders(req, f.UserAgent)

	resp, err := httpc.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return 0, fmt.Errorf("bad status: %s", resp.Status)
	}
	total := resp.ContentLength
	if total < 0 {
		return 0, ErrMissingContentLength
	}

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return 0, err
	}
	out, err := os.Create(dst)
	if err != nil {
		return 0, err
	}
	defer func() {
		if err != nil {
			out.Close()
			os.Remove(dst)
		}
	}()

	emit(ProgressEvent{Event: "fetch_start", URL: url, Path: dst, Total: total})

	pr := newProgressReader(resp.Body, total, dst, emit)
	n, err = copyChunks(out, pr, make([]byte, chunk))
	if err != nil {
		return n, err
	}
	if n != total {
		return n, fmt.Errorf("%w: got %d of %d bytes", ErrShortBody, n, total)
	}
	if err = out.Sync(); err != nil {
		return n, err
	}
	if err = out.Close(); err != nil {
		return n, err
	}

	emit(ProgressEvent{Event: "fetch_done", URL: url, Path: dst, Downloaded: n, Total: total})
	return n, nil
}

// copyChunks moves src to dst through buf only, so memory stays bounded by
// len(buf) regardless of what dst or src implement.
func copyChunks(dst io.Writer, src io.Reader, buf []byte) (int64, error) {
	var written int64
	for {
		nr, rerr := src.Read(buf)
		if nr > 0 {
			nw, werr := dst.Write(buf[:nr])
			written += int64(nw)
			if werr != nil {
				return written, werr
			}
			if nw != nr {
				return written, io.ErrShortWrite
			}
		}
		if errors.Is(rerr, io.EOF) {
			return written, nil
		}
		if rerr != nil {
			return written, rerr
		}
	}
}
