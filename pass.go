// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package framegraph

import "fmt"

// PassID refers to a pass in its owning graph.
type PassID int

// RecordFunc records the commands of one pass. It is called once per
// Graph.Record, after the barriers the pass needs, and must only touch the
// resources the pass declared.
type RecordFunc func(rc *RenderContext) error

// input is one declared read of a pass.
type input struct {
	target TargetID
	scope  Scope
}

// Pass is one schedulable unit of GPU work. Passes are created by
// Graph.AddPass and declare their resource usage with AddIn, AddOut and
// AddInOut.
type Pass struct {
	g      *Graph
	id     PassID
	name   string
	record RecordFunc

	inputs  []input
	outputs []TargetID
}

// ID returns the pass id.
func (p *Pass) ID() PassID { return p.id }

// Name returns the name given to AddPass.
func (p *Pass) Name() string { return p.name }

// Inputs returns the targets the pass reads, in declaration order.
func (p *Pass) Inputs() []TargetID {
	out := make([]TargetID, len(p.inputs))
	for i, in := range p.inputs {
		out[i] = in.target
	}
	return out
}

// Outputs returns the targets the pass produces, in declaration order.
func (p *Pass) Outputs() []TargetID {
	out := make([]TargetID, len(p.outputs))
	copy(out, p.outputs)
	return out
}

// AddIn declares that the pass reads t with the given scope, or Flex.
func (p *Pass) AddIn(t TargetID, scope Scope) {
	tg := p.g.Target(t)
	tg.consumers = append(tg.consumers, slot{pass: p.id, scope: scope})
	p.inputs = append(p.inputs, input{target: t, scope: scope})
	p.g.version++
}

// AddOut declares that the pass produces a new version of res in the given
// scope, or Flex, and returns it.
func (p *Pass) AddOut(scope Scope, res ResourceID) TargetID {
	id := p.g.addTarget(res, p.id, scope)
	p.outputs = append(p.outputs, id)
	return id
}

// AddInOut declares that the pass reads t and rewrites it in place. The
// pass runs only after every other consumer of t, and the returned target
// is the next version of the same resource, produced in the same scope.
//
// A target can be rewritten in place by one pass only; a second call for
// the same target panics.
func (p *Pass) AddInOut(t TargetID, scope Scope) TargetID {
	return p.AddInOutSplit(t, scope, scope)
}

// AddInOutSplit is AddInOut with different scopes for the read (dst) and
// for the new version (src).
func (p *Pass) AddInOutSplit(t TargetID, dst, src Scope) TargetID {
	tg := p.g.Target(t)
	if end, ok := tg.End(); ok {
		panic(fmt.Sprintf("framegraph: target %s already rewritten by pass %q, cannot rewrite in %q",
			p.g.TargetName(t), p.g.passes[end].name, p.name))
	}
	p.AddIn(t, dst)
	tg.end = p.id
	return p.AddOut(src, tg.resource)
}

// SetRecord replaces the pass callback. The topology is unchanged, so a
// computed schedule stays valid.
func (p *Pass) SetRecord(fn RecordFunc) {
	p.record = fn
}
