// Copyright 2025
// SPDX-License-Identifier: Apache-2.0

// Package metrics exports run outcomes as Prometheus metrics, either as a
// node-exporter textfile after a run or over HTTP from the status server.
package metrics

import (
	"errors"
	"net/http"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dsfetch/dsfetch/pkg/dsfetch"
)

const namespace = "dsfetch"

// Metrics holds the collectors on a private registry.
type Metrics struct {
	reg *prometheus.Registry

	runs       *prometheus.CounterVec
	datasets   *prometheus.CounterVec
	downloaded prometheus.Counter
	rows       *prometheus.GaugeVec
	duration   *prometheus.HistogramVec
	lastRun    prometheus.Gauge
	local      *prometheus.GaugeVec
}

// New registers a fresh set of collectors.
func New() *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Completed runs by result.",
		}, []string{"result"}),
		datasets: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "datasets_total",
			Help:      "Processed datasets by name and final state.",
		}, []string{"dataset", "state"}),
		downloaded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "downloaded_bytes_total",
			Help:      "Bytes of raw artifacts downloaded.",
		}),
		rows: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "clean_rows",
			Help:      "Rows in the most recently written clean table.",
		}, []string{"dataset"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "dataset_duration_seconds",
			Help:      "Time to process one dataset.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 4, 8),
		}, []string{"dataset"}),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last run finished.",
		}),
		local: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "local_artifact",
			Help:      "1 when the artifact of the given kind is present and usable on disk.",
		}, []string{"dataset", "kind"}),
	}
	m.reg.MustRegister(m.runs, m.datasets, m.downloaded, m.rows, m.duration, m.lastRun, m.local)
	return m
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.reg }

// Observe records a finished run.
func (m *Metrics) Observe(report *dsfetch.Report, runErr error) {
	if report == nil {
		return
	}
	result := "ok"
	if runErr != nil || !report.OK() {
		result = "failed"
	}
	m.runs.WithLabelValues(result).Inc()
	for _, res := range report.Results {
		m.datasets.WithLabelValues(res.Name, res.State.String()).Inc()
		m.duration.WithLabelValues(res.Name).Observe(res.Duration.Seconds())
		if res.Downloaded {
			m.downloaded.Add(float64(res.Bytes))
		}
		if res.State == dsfetch.Transformed {
			m.rows.WithLabelValues(res.Name).Set(float64(res.Rows))
		}
	}
	if !report.Finished.IsZero() {
		m.lastRun.Set(float64(report.Finished.Unix()))
	}
}

// ObserveStatus records the on-disk state reported by an offline check.
// A raw artifact counts only when its digest matches.
func (m *Metrics) ObserveStatus(statuses []dsfetch.Status) {
	for _, st := range statuses {
		m.local.WithLabelValues(st.Name, "raw").Set(boolGauge(st.Raw == "ok"))
		m.local.WithLabelValues(st.Name, "clean").Set(boolGauge(st.Clean))
	}
}

func boolGauge(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}

// WriteTextfile writes the registry to path for the node exporter textfile
// collector. The write is atomic.
func (m *Metrics) WriteTextfile(path string) error {
	if path == "" {
		return errors.New("empty metrics path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return prometheus.WriteToTextfile(path, m.reg)
}
