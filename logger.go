// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package framegraph

import (
	"context"
	"log/slog"
	"sync/atomic"
)

// nopHandler drops every record. Graphs built without WithLogger and
// without SetLogger log through it.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

var loggerPtr atomic.Pointer[slog.Logger]

func init() {
	loggerPtr.Store(slog.New(nopHandler{}))
}

// SetLogger installs the logger shared by framegraph, frame, passes and
// pipeline. A Graph created with WithLogger keeps its own logger instead.
// nil silences logging again.
//
// Compute warns with "framegraph: schedule stuck" and lists the pending
// passes; Check and Validate warn with "framegraph: check failed". Every
// other record is debug level: the computed schedule, each barrier batch
// during Record, each submitted frame, loaded pipelines and compiled
// compute pipelines. Records about a whole graph carry its label as the
// "graph" attribute:
//
//	h := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})
//	framegraph.SetLogger(slog.New(h))
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = slog.New(nopHandler{})
	}
	loggerPtr.Store(l)
}

// Logger returns the logger installed by SetLogger.
func Logger() *slog.Logger {
	return loggerPtr.Load()
}
