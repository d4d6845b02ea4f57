// Copyright (c) 2025-2026 Professional Email Services Inc.
// Licensed under BUSL-1.1 — See LICENSE for terms.

// Package metrics exposes Prometheus counters for the domain checker.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Exporter struct {
	registry *prometheus.Registry

	analyses      *prometheus.CounterVec
	duration      prometheus.Histogram
	staleDiscards prometheus.Counter
	rateLimited   prometheus.Counter
}

func NewExporter() *Exporter {
	registry := prometheus.NewRegistry()

	e := &Exporter{
		registry: registry,
		analyses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lea_analyses_total",
			Help: "Domain analyses by outcome (success, invalid_domain, stale, failed).",
		}, []string{"outcome"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "lea_analysis_duration_seconds",
			Help:    "Wall time of completed domain analyses.",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
		}),
		staleDiscards: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lea_stale_results_discarded_total",
			Help: "Results discarded because a newer request superseded them.",
		}),
		rateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lea_rate_limited_total",
			Help: "Analyze requests rejected by the rate limiter.",
		}),
	}

	registry.MustRegister(e.analyses, e.duration, e.staleDiscards, e.rateLimited)
	return e
}

func (e *Exporter) ObserveAnalysis(outcome string, seconds float64) {
	e.analyses.WithLabelValues(outcome).Inc()
	if outcome == "success" {
		e.duration.Observe(seconds)
	}
}

func (e *Exporter) IncStale() { e.staleDiscards.Inc() }

func (e *Exporter) IncRateLimited() { e.rateLimited.Inc() }

func (e *Exporter) Handler() http.Handler {
	return promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{})
}
