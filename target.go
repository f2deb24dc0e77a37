// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package framegraph

import "fmt"

// TargetID refers to a target in its owning graph.
type TargetID int

// slot is one end of a producer/consumer edge.
type slot struct {
	pass  PassID
	scope Scope
}

// Target is one version of a physical resource: the value written by its
// producer and read by its consumers. Rewriting the resource in place
// (Pass.AddInOut) ends the version and starts a new Target.
//
// Targets are owned by their Graph and only hold structural data; all
// per-schedule state lives in the schedule built by Compute.
type Target struct {
	id       TargetID
	resource ResourceID
	version  int

	producer  slot
	consumers []slot

	// end is the pass allowed to produce the next version in place, or -1.
	end PassID
}

// ID returns the target id.
func (t *Target) ID() TargetID { return t.id }

// Resource returns the physical resource this target is a version of.
func (t *Target) Resource() ResourceID { return t.resource }

// Version returns the generation of the resource, starting at 0.
func (t *Target) Version() int { return t.version }

// Producer returns the producing pass and its declared scope, which may
// be Flex.
func (t *Target) Producer() (PassID, Scope) { return t.producer.pass, t.producer.scope }

// Consumers returns the consuming passes in registration order. A pass that
// reads the target twice is listed twice.
func (t *Target) Consumers() []PassID {
	out := make([]PassID, len(t.consumers))
	for i, c := range t.consumers {
		out[i] = c.pass
	}
	return out
}

// End returns the pass that rewrites this target in place, if any.
func (t *Target) End() (PassID, bool) {
	return t.end, t.end >= 0
}

// addTarget allocates a new version of res produced by producer.
func (g *Graph) addTarget(res ResourceID, producer PassID, scope Scope) TargetID {
	g.resource(res)
	version := 0
	for _, t := range g.targets {
		if t.resource == res {
			version++
		}
	}
	t := &Target{
		id:       TargetID(len(g.targets)),
		resource: res,
		version:  version,
		producer: slot{pass: producer, scope: scope},
		end:      -1,
	}
	g.targets = append(g.targets, t)
	g.version++
	return t.id
}

// Target returns the target with the given id.
func (g *Graph) Target(id TargetID) *Target {
	if id < 0 || int(id) >= len(g.targets) {
		panic(fmt.Sprintf("framegraph: unknown target %d", id))
	}
	return g.targets[id]
}

// Targets returns the number of targets in the graph.
func (g *Graph) Targets() int { return len(g.targets) }

// TargetName returns "<resource label>#<version>".
func (g *Graph) TargetName(id TargetID) string {
	t := g.Target(id)
	return fmt.Sprintf("%s#%d", g.resources[t.resource].Label, t.version)
}
