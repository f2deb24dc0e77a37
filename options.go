// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package framegraph

import "log/slog"

// Option configures a Graph during creation.
//
// Example:
//
//	g := framegraph.New(
//	    framegraph.WithLabel("main"),
//	    framegraph.WithValidation(true),
//	)
type Option func(*options)

type options struct {
	label    string
	logger   *slog.Logger
	metrics  *Metrics
	validate bool
}

func defaultOptions() options {
	return options{label: "framegraph"}
}

// WithLabel names the graph in logs, metrics and diagrams.
func WithLabel(label string) Option {
	return func(o *options) {
		o.label = label
	}
}

// WithLogger overrides the package logger for this graph.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithMetrics reports scheduling statistics to m.
func WithMetrics(m *Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// WithValidation makes Compute run Validate whenever the topology changed
// since the last successful validation. A graph that fails validation is
// not scheduled.
func WithValidation(enabled bool) Option {
	return func(o *options) {
		o.validate = enabled
	}
}
