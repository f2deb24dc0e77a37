// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package framegraph

import (
	"fmt"
	"time"
)

// Barrier transitions one target from the scope of its previous use to the
// scope the next pass needs.
type Barrier struct {
	Target   TargetID
	Resource ResourceID
	Src      Scope
	Dst      Scope
}

// String formats the barrier as "target: src -> dst".
func (b Barrier) String() string {
	return fmt.Sprintf("target %d: %s -> %s", b.Target, b.Src, b.Dst)
}

// Use is the effective scope a step reads a target with. Flex inputs
// report the scope they were resolved to.
type Use struct {
	Target TargetID
	Scope  Scope
}

// Step is one entry of a computed schedule: a pass and the barriers that
// must be recorded before it.
type Step struct {
	Pass     PassID
	Barriers []Barrier
	Uses     []Use
}

// String formats the step as "pass N (k barriers)".
func (s Step) String() string {
	return fmt.Sprintf("pass %d (%d barriers)", s.Pass, len(s.Barriers))
}

// targetState is the per-schedule view of a target.
type targetState struct {
	available bool
	barriered bool
	current   Scope

	// producer is the producer scope, Flex until a consumer resolves it.
	producer Scope
}

// schedule holds everything Compute derives from the topology. A new one
// is built by every Compute, so nothing leaks between frames.
type schedule struct {
	version  uint64
	done     []bool
	targets  []targetState
	order    []Step
	sweeps   int
	barriers int
}

func newSchedule(g *Graph) *schedule {
	s := &schedule{
		version: g.version,
		done:    make([]bool, len(g.passes)),
		targets: make([]targetState, len(g.targets)),
		order:   make([]Step, 0, len(g.passes)),
	}
	for i, t := range g.targets {
		s.targets[i].producer = t.producer.scope
	}
	return s
}

// Compute schedules every pass of the graph. Passes are swept in
// registration order until a sweep adds nothing; a pass is added once all
// of its inputs are available and, for in-place rewrites, once every other
// reader of the old version has run.
//
// If passes remain pending Compute returns a *StuckError and clears the
// previous schedule, so a partial order is never recorded.
func (g *Graph) Compute() error {
	start := time.Now()

	if g.validate && g.validated != g.version {
		if err := g.Validate(); err != nil {
			g.sched = nil
			g.metrics.observeCheckFailure(g.label)
			return err
		}
		g.validated = g.version
	}

	s := newSchedule(g)
	for {
		progressed := false
		for _, p := range g.passes {
			if s.done[p.id] {
				continue
			}
			if s.tryAdd(g, p) {
				progressed = true
			}
		}
		s.sweeps++
		if !progressed {
			break
		}
	}

	if len(s.order) != len(g.passes) {
		var pending []string
		for _, p := range g.passes {
			if !s.done[p.id] {
				pending = append(pending, p.name)
			}
		}
		g.sched = nil
		g.metrics.observeStuck(g.label)
		g.log().Warn("framegraph: schedule stuck",
			"graph", g.label,
			"scheduled", len(s.order),
			"pending", pending)
		return &StuckError{Pending: pending}
	}

	// Producers nobody resolved keep the shared default.
	for i := range s.targets {
		if s.targets[i].producer.flex {
			s.targets[i].producer = SharedScope
		}
	}

	g.sched = s
	g.metrics.observeCompute(g.label, time.Since(start), len(s.order), s.barriers)
	g.log().Debug("framegraph: computed schedule",
		"graph", g.label,
		"passes", len(s.order),
		"sweeps", s.sweeps,
		"barriers", s.barriers)
	return nil
}

// tryAdd appends p to the order if it is ready and reports whether it did.
func (s *schedule) tryAdd(g *Graph, p *Pass) bool {
	for _, in := range p.inputs {
		if !s.targets[in.target].available {
			return false
		}
		t := g.targets[in.target]
		if t.end != p.id {
			continue
		}
		for _, c := range t.consumers {
			if c.pass != p.id && !s.done[c.pass] {
				return false
			}
		}
	}

	var barriers []Barrier
	uses := make([]Use, 0, len(p.inputs))
	for _, in := range p.inputs {
		t := g.targets[in.target]
		ts := &s.targets[in.target]

		if in.scope.flex {
			use := ts.current
			if !ts.barriered && ts.producer.flex {
				ts.producer = SharedScope
				ts.current = SharedScope
				ts.barriered = true
				use = AnyStageScope
			}
			uses = append(uses, Use{Target: in.target, Scope: use})
			continue
		}

		want := in.scope
		if ts.barriered && p.id != t.end && CoveredBy(ts.current, want) {
			// An earlier sibling already moved the target into a scope
			// covering this read.
			uses = append(uses, Use{Target: in.target, Scope: want})
			continue
		}

		needed := want
		for _, c := range t.consumers {
			if c.pass == p.id || c.pass == t.end || s.done[c.pass] {
				continue
			}
			if c.scope.flex || c.scope.Layout != want.Layout {
				continue
			}
			needed, _ = Widen(needed, c.scope)
		}

		switch {
		case ts.producer.flex && !ts.barriered:
			// The producer has not committed to a scope yet: produce
			// straight into the one the readers need.
			ts.producer = needed
			ts.current = needed
		case p.id != t.end && CoveredBy(ts.current, needed):
			// Produced in a scope that already covers every reader.
		default:
			barriers = append(barriers, Barrier{
				Target:   in.target,
				Resource: t.resource,
				Src:      ts.current,
				Dst:      needed,
			})
			ts.current = needed
		}
		ts.barriered = true
		uses = append(uses, Use{Target: in.target, Scope: want})
	}

	s.done[p.id] = true
	s.barriers += len(barriers)
	s.order = append(s.order, Step{Pass: p.id, Barriers: barriers, Uses: uses})
	for _, out := range p.outputs {
		ts := &s.targets[out]
		ts.available = true
		ts.current = ts.producer
	}
	return true
}
