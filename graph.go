// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package framegraph

import (
	"fmt"
	"log/slog"
)

// Graph owns every pass and target of one frame configuration and computes
// their execution order and barriers.
//
// The topology is built once and may be scheduled any number of times:
// each Compute starts from a fresh schedule, so only a topology change
// (new passes, new targets) requires touching the graph itself.
//
// Graph is NOT safe for concurrent use.
type Graph struct {
	label    string
	logger   *slog.Logger
	metrics  *Metrics
	validate bool

	resources []Resource
	passes    []*Pass
	targets   []*Target

	// version counts topology changes; validated is the version that last
	// passed Validate when WithValidation is on.
	version   uint64
	validated uint64

	sched *schedule
}

// New creates an empty graph.
func New(opts ...Option) *Graph {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Graph{
		label:     o.label,
		logger:    o.logger,
		metrics:   o.metrics,
		validate:  o.validate,
		validated: ^uint64(0),
	}
}

// Label returns the graph label.
func (g *Graph) Label() string { return g.label }

// AddPass allocates a new pass. fn may be nil for passes that only anchor
// resources, e.g. an imported surface.
func (g *Graph) AddPass(name string, fn RecordFunc) *Pass {
	p := &Pass{
		g:      g,
		id:     PassID(len(g.passes)),
		name:   name,
		record: fn,
	}
	g.passes = append(g.passes, p)
	g.version++
	return p
}

// Pass returns the pass with the given id.
func (g *Graph) Pass(id PassID) *Pass {
	if id < 0 || int(id) >= len(g.passes) {
		panic(fmt.Sprintf("framegraph: unknown pass %d", id))
	}
	return g.passes[id]
}

// Passes returns the number of passes in the graph.
func (g *Graph) Passes() int { return len(g.passes) }

// Order returns the last computed schedule, or nil if Compute has not
// succeeded since the last failure or topology change. The slice is a copy.
func (g *Graph) Order() []Step {
	if !g.computed() {
		return nil
	}
	out := make([]Step, len(g.sched.order))
	for i, s := range g.sched.order {
		out[i] = Step{
			Pass:     s.Pass,
			Barriers: append([]Barrier(nil), s.Barriers...),
			Uses:     append([]Use(nil), s.Uses...),
		}
	}
	return out
}

// ResolvedScope returns the scope the last schedule assigned to the
// producer of t. Flex producers report the scope they were resolved to.
func (g *Graph) ResolvedScope(t TargetID) (Scope, error) {
	if !g.computed() {
		return Scope{}, ErrNotComputed
	}
	g.Target(t)
	return g.sched.targets[t].producer, nil
}

// computed reports whether the last schedule matches the current topology.
func (g *Graph) computed() bool {
	return g.sched != nil && g.sched.version == g.version
}

func (g *Graph) log() *slog.Logger {
	if g.logger != nil {
		return g.logger
	}
	return Logger()
}
