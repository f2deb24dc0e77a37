// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package frame

import (
	"time"

	"github.com/gogpu/framegraph"
)

// AcquireFunc runs at the start of every frame, before the graph is
// scheduled. It typically swaps the surface texture via Graph.SetTexture.
type AcquireFunc func(g *framegraph.Graph, frame uint64) error

// Option configures a Driver.
type Option func(*options)

type options struct {
	label   string
	timeout time.Duration
	acquire AcquireFunc
}

func defaultOptions() options {
	return options{
		label:   "frame",
		timeout: 5 * time.Second,
	}
}

// WithLabel sets the debug label of the driver's command encoders.
func WithLabel(label string) Option {
	return func(o *options) {
		o.label = label
	}
}

// WithTimeout bounds how long RenderFrame waits for the GPU.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// WithAcquire installs a per-frame hook.
func WithAcquire(fn AcquireFunc) Option {
	return func(o *options) {
		o.acquire = fn
	}
}
