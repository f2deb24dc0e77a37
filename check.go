// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package framegraph

import "errors"

// Check reports whether the graph is structurally sound. Failures are
// logged with the offending pass. It is meant to run once after the graph
// is built, not every frame; Compute does not call it unless the graph was
// created WithValidation.
func (g *Graph) Check() bool {
	err := g.Validate()
	if err == nil {
		return true
	}
	g.metrics.observeCheckFailure(g.label)
	var ge *GraphError
	if errors.As(err, &ge) {
		g.log().Warn("framegraph: check failed",
			"graph", g.label,
			"pass", ge.Pass,
			"path", ge.Path,
			"err", ge.Kind)
	} else {
		g.log().Warn("framegraph: check failed", "graph", g.label, "err", err)
	}
	return false
}

// Validate is Check with the reason: a *GraphError wrapping ErrCycle or
// ErrVersionCollision, or nil.
func (g *Graph) Validate() error {
	for _, p := range g.passes {
		if err := g.checkVersions(p); err != nil {
			return err
		}
	}

	// clean holds passes whose forward closure is known to be acyclic;
	// revisiting them cannot find a new cycle.
	clean := make(map[PassID]bool, len(g.passes))
	for _, p := range g.passes {
		if err := g.walk(p.id, map[PassID]bool{}, nil, clean); err != nil {
			return err
		}
	}
	return nil
}

// checkVersions fails if p reads two different versions of one resource.
func (g *Graph) checkVersions(p *Pass) error {
	seen := make(map[ResourceID]TargetID, len(p.inputs))
	for _, in := range p.inputs {
		res := g.targets[in.target].resource
		prev, ok := seen[res]
		if !ok {
			seen[res] = in.target
			continue
		}
		if prev != in.target {
			return &GraphError{
				Kind: ErrVersionCollision,
				Pass: p.name,
				Path: []string{g.TargetName(prev), g.TargetName(in.target)},
			}
		}
	}
	return nil
}

// walk follows producer->consumer edges from id. onPath is copied per call
// so sibling branches do not see each other's visits.
func (g *Graph) walk(id PassID, onPath map[PassID]bool, path []string, clean map[PassID]bool) error {
	p := g.passes[id]
	path = append(path[:len(path):len(path)], p.name)
	if onPath[id] {
		return &GraphError{Kind: ErrCycle, Pass: p.name, Path: path}
	}
	if clean[id] {
		return nil
	}

	next := make(map[PassID]bool, len(onPath)+1)
	for k := range onPath {
		next[k] = true
	}
	next[id] = true

	for _, out := range p.outputs {
		for _, c := range g.targets[out].consumers {
			if err := g.walk(c.pass, next, path, clean); err != nil {
				return err
			}
		}
	}
	clean[id] = true
	return nil
}
