// Copyright 2025
// SPDX-License-Identifier: Apache-2.0

// Package publish copies the clean tables of a finished run to a blob store
// so other machines can pick them up without repeating the acquisition.
package publish

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/dsfetch/dsfetch/pkg/dsfetch"
)

// Store is the minimal blob surface a Publisher needs.
type Store interface {
	// Put writes size bytes from r under key, replacing any existing object.
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	// Location renders key as a human readable address.
	Location(key string) string
}

// Object describes one published file.
type Object struct {
	Dataset  string `json:"dataset"`
	Kind     string `json:"kind"` // "clean" or "raw"
	Key      string `json:"key"`
	Location string `json:"location"`
	Bytes    int64  `json:"bytes"`
	SHA256   string `json:"sha256,omitempty"`
}

// Manifest is written next to the published tables.
type Manifest struct {
	RunID     string    `json:"runId"`
	Published time.Time `json:"published"`
	Objects   []Object  `json:"objects"`
}

// Publisher uploads transformed datasets to a Store.
type Publisher struct {
	Store  Store
	Prefix string
	// Raw also uploads the verified raw artifact of every dataset.
	Raw bool
}

const (
	csvType  = "text/csv"
	jsonType = "application/json"
	rawType  = "application/octet-stream"
)

// Key joins the prefix with the dataset relative name.
func (p *Publisher) Key(parts ...string) string {
	elems := make([]string, 0, len(parts)+1)
	if pre := strings.Trim(p.Prefix, "/"); pre != "" {
		elems = append(elems, pre)
	}
	elems = append(elems, parts...)
	return path.Join(elems...)
}

// Publish uploads every transformed dataset in report followed by a
// manifest.json. Datasets that did not reach the transformed state are
// skipped. The first upload failure ends the publish.
func (p *Publisher) Publish(ctx context.Context, report *dsfetch.Report) (*Manifest, error) {
	if p.Store == nil {
		return nil, errors.New("publish: no store configured")
	}
	if report == nil {
		return nil, errors.New("publish: nil report")
	}
	m := &Manifest{RunID: report.RunID, Published: time.Now().UTC()}
	for _, res := range report.Results {
		if res.State != dsfetch.Transformed {
			continue
		}
		obj, err := p.putFile(ctx, res.Name, "clean", res.CleanPath, p.Key(res.Name, filepath.Base(res.CleanPath)), csvType)
		if err != nil {
			return m, err
		}
		m.Objects = append(m.Objects, obj)

		if p.Raw && res.RawPath != "" {
			obj, err := p.putFile(ctx, res.Name, "raw", res.RawPath, p.Key(res.Name, "raw", filepath.Base(res.RawPath)), rawType)
			if err != nil {
				return m, err
			}
			obj.SHA256 = res.SHA256
			m.Objects = append(m.Objects, obj)
		}
	}

	body, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return m, err
	}
	key := p.Key("manifest.json")
	if err := p.Store.Put(ctx, key, bytes.NewReader(body), int64(len(body)), jsonType); err != nil {
		return m, fmt.Errorf("publish manifest: %w", err)
	}
	return m, nil
}

func (p *Publisher) putFile(ctx context.Context, name, kind, src, key, contentType string) (Object, error) {
	f, err := os.Open(src)
	if err != nil {
		return Object{}, fmt.Errorf("publish %s: %w", name, err)
	}
	defer f.Close()
	fi, err := f.Stat()
	if err != nil {
		return Object{}, fmt.Errorf("publish %s: %w", name, err)
	}
	if err := p.Store.Put(ctx, key, f, fi.Size(), contentType); err != nil {
		return Object{}, fmt.Errorf("publish %s to %s: %w", name, p.Store.Location(key), err)
	}
	return Object{
		Dataset:  name,
		Kind:     kind,
		Key:      key,
		Location: p.Store.Location(key),
		Bytes:    fi.Size(),
	}, nil
}
