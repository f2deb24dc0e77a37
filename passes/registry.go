// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package passes

import (
	"fmt"
	"sort"

	"github.com/gogpu/framegraph"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// Recorder is a pass implementation owning GPU objects.
type Recorder interface {
	Record(rc *framegraph.RenderContext) error
	Destroy(device hal.Device)
}

// Config describes a pass to a Factory. Targets are already declared on
// the graph.
type Config struct {
	Name string

	// Inputs are read-only inputs, Outputs are fresh outputs and Rewrites
	// are the new versions produced by in-place rewrites, each in
	// declaration order.
	Inputs   []framegraph.TargetID
	Outputs  []framegraph.TargetID
	Rewrites []framegraph.TargetID

	Color      gputypes.Color
	Shader     string
	EntryPoint string
	Workgroups [3]uint32

	// Width and Height are the extent of the first texture the pass
	// touches, if any.
	Width  uint32
	Height uint32
}

// Factory builds the recorder for one pass. A nil Recorder declares a pass
// that only orders resources.
type Factory func(cfg Config) (Recorder, error)

// Registry maps pass kinds to factories.
type Registry map[string]Factory

// DefaultRegistry returns the kinds provided by this package:
// "clear", "compute", "readback" and "none".
func DefaultRegistry() Registry {
	return Registry{
		"clear":    newClear,
		"compute":  newCompute,
		"readback": newReadback,
		"none":     func(Config) (Recorder, error) { return nil, nil },
	}
}

// Build instantiates kind for cfg.
func (r Registry) Build(kind string, cfg Config) (Recorder, error) {
	f, ok := r[kind]
	if !ok {
		return nil, fmt.Errorf("pass %q: unknown kind %q (known: %v)", cfg.Name, kind, r.Kinds())
	}
	return f(cfg)
}

// Kinds returns the registered kinds, sorted.
func (r Registry) Kinds() []string {
	kinds := make([]string, 0, len(r))
	for k := range r {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

func newClear(cfg Config) (Recorder, error) {
	writes := append(append([]framegraph.TargetID(nil), cfg.Outputs...), cfg.Rewrites...)
	if len(writes) != 1 {
		return nil, fmt.Errorf("pass %q: clear needs exactly one written target, got %d", cfg.Name, len(writes))
	}
	return &Clear{Output: writes[0], Color: cfg.Color}, nil
}

func newCompute(cfg Config) (Recorder, error) {
	if cfg.Shader == "" {
		return nil, fmt.Errorf("pass %q: compute needs a shader", cfg.Name)
	}
	c := &Compute{
		Label:      cfg.Name,
		Source:     cfg.Shader,
		EntryPoint: cfg.EntryPoint,
		Workgroups: cfg.Workgroups,
	}
	for _, t := range cfg.Inputs {
		c.Bindings = append(c.Bindings, Binding{Target: t, ReadOnly: true})
	}
	for _, t := range cfg.Outputs {
		c.Bindings = append(c.Bindings, Binding{Target: t})
	}
	for _, t := range cfg.Rewrites {
		c.Bindings = append(c.Bindings, Binding{Target: t})
	}
	return c, nil
}

func newReadback(cfg Config) (Recorder, error) {
	if len(cfg.Inputs) != 1 || len(cfg.Outputs) != 1 {
		return nil, fmt.Errorf("pass %q: readback needs one input and one output", cfg.Name)
	}
	return &Readback{
		Source: cfg.Inputs[0],
		Dest:   cfg.Outputs[0],
		Width:  cfg.Width,
		Height: cfg.Height,
	}, nil
}
