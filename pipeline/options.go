// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package pipeline

import (
	"github.com/gogpu/framegraph"
	"github.com/gogpu/framegraph/passes"
	"github.com/gogpu/wgpu/hal"
	"github.com/zclconf/go-cty/cty"
)

// Option configures Load.
type Option func(*options)

type options struct {
	vars      map[string]cty.Value
	device    hal.Device
	registry  passes.Registry
	graphOpts []framegraph.Option
}

func defaultOptions() options {
	return options{registry: passes.DefaultRegistry()}
}

// WithVariables exposes vars to expressions as var.<name>.
func WithVariables(vars map[string]cty.Value) Option {
	return func(o *options) {
		o.vars = vars
	}
}

// WithDevice allocates every declared texture and buffer on device.
// Without it all resources stay virtual.
func WithDevice(device hal.Device) Option {
	return func(o *options) {
		o.device = device
	}
}

// WithRegistry replaces the pass kinds available to the file.
func WithRegistry(r passes.Registry) Option {
	return func(o *options) {
		o.registry = r
	}
}

// WithGraphOptions is passed through to framegraph.New.
func WithGraphOptions(opts ...framegraph.Option) Option {
	return func(o *options) {
		o.graphOpts = append(o.graphOpts, opts...)
	}
}
