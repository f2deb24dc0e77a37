// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package framegraph

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exports scheduling statistics. A nil *Metrics discards
// everything, so graphs without WithMetrics pay nothing.
type Metrics struct {
	computeTotal    *prometheus.CounterVec
	computeDuration *prometheus.HistogramVec
	stuckTotal      *prometheus.CounterVec
	barriersTotal   *prometheus.CounterVec
	scheduledPasses *prometheus.GaugeVec
	checkFailures   *prometheus.CounterVec
}

// NewMetrics creates the collectors, labelled by graph, and registers them
// with reg. A nil reg skips registration.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		computeTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "framegraph_compute_total",
				Help: "Number of Compute calls by graph.",
			},
			[]string{"graph"},
		),
		computeDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "framegraph_compute_duration_seconds",
				Help:    "Time taken to schedule a graph.",
				Buckets: []float64{1e-6, 1e-5, 1e-4, 5e-4, 1e-3, 5e-3, 1e-2},
			},
			[]string{"graph"},
		),
		stuckTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "framegraph_stuck_total",
				Help: "Number of Compute calls that ended with pending passes.",
			},
			[]string{"graph"},
		),
		barriersTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "framegraph_barriers_total",
				Help: "Number of explicit barriers planned.",
			},
			[]string{"graph"},
		),
		scheduledPasses: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "framegraph_scheduled_passes",
				Help: "Number of passes in the last computed schedule.",
			},
			[]string{"graph"},
		),
		checkFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "framegraph_check_failures_total",
				Help: "Number of failed graph validations.",
			},
			[]string{"graph"},
		),
	}
	if reg != nil {
		reg.MustRegister(
			m.computeTotal,
			m.computeDuration,
			m.stuckTotal,
			m.barriersTotal,
			m.scheduledPasses,
			m.checkFailures,
		)
	}
	return m
}

func (m *Metrics) observeCompute(graph string, d time.Duration, passes, barriers int) {
	if m == nil {
		return
	}
	m.computeTotal.WithLabelValues(graph).Inc()
	m.computeDuration.WithLabelValues(graph).Observe(d.Seconds())
	m.barriersTotal.WithLabelValues(graph).Add(float64(barriers))
	m.scheduledPasses.WithLabelValues(graph).Set(float64(passes))
}

func (m *Metrics) observeStuck(graph string) {
	if m == nil {
		return
	}
	m.computeTotal.WithLabelValues(graph).Inc()
	m.stuckTotal.WithLabelValues(graph).Inc()
	m.scheduledPasses.WithLabelValues(graph).Set(0)
}

func (m *Metrics) observeCheckFailure(graph string) {
	if m == nil {
		return
	}
	m.checkFailures.WithLabelValues(graph).Inc()
}
