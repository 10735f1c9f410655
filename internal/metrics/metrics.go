// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package metrics exposes conversion counters for the HTTP surface. All
// collectors live on a private registry so tests can create isolated
// instances.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/meshint/convertmd/pkg/types"
)

// Metrics aggregates the instrumentation for conversion batches.
type Metrics struct {
	registry *prometheus.Registry

	conversions   *prometheus.CounterVec
	batches       prometheus.Counter
	batchDuration prometheus.Histogram
	inFlight      prometheus.Gauge
}

// New creates a Metrics with all collectors registered on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		conversions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "convertmd",
			Name:      "conversions_total",
			Help:      "File conversions by status and failure reason.",
		}, []string{"status", "reason"}),
		batches: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "convertmd",
			Name:      "batches_total",
			Help:      "Batch runs completed.",
		}),
		batchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "convertmd",
			Name:      "batch_duration_seconds",
			Help:      "Wall time per batch run.",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12),
		}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "convertmd",
			Name:      "batches_in_flight",
			Help:      "Batch runs currently executing.",
		}),
	}

	m.registry.MustRegister(m.conversions, m.batches, m.batchDuration, m.inFlight)
	return m
}

// Handler returns the scrape endpoint for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// BatchStarted marks a batch as in flight and returns a done func that
// records its report and duration.
func (m *Metrics) BatchStarted() func(types.BatchReport) {
	m.inFlight.Inc()
	start := time.Now()
	return func(report types.BatchReport) {
		m.inFlight.Dec()
		m.batches.Inc()
		m.batchDuration.Observe(time.Since(start).Seconds())
		m.conversions.WithLabelValues("success", "").Add(float64(report.SucceededCount()))
		for _, f := range report.Failed {
			m.conversions.WithLabelValues("failure", string(f.Reason)).Inc()
		}
	}
}
