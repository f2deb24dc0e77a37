// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package framegraph

import (
	"fmt"

	"github.com/gogpu/wgpu/hal"
)

// RenderContext is handed to every RecordFunc during Graph.Record.
type RenderContext struct {
	// Device is the device the encoder belongs to. Passes use it to create
	// views and pipelines lazily.
	Device hal.Device

	// Encoder receives barriers and pass commands. It must be in the
	// encoding state (BeginEncoding called).
	Encoder hal.CommandEncoder

	// Frame is a caller-maintained frame counter.
	Frame uint64

	graph *Graph
	step  *Step
}

// Pass returns the pass currently being recorded, or nil outside Record.
func (rc *RenderContext) Pass() *Pass {
	if rc.graph == nil || rc.step == nil {
		return nil
	}
	return rc.graph.passes[rc.step.Pass]
}

// Graph returns the graph being recorded.
func (rc *RenderContext) Graph() *Graph { return rc.graph }

// Texture returns the texture behind target t.
func (rc *RenderContext) Texture(t TargetID) hal.Texture {
	return rc.graph.resources[rc.graph.Target(t).resource].Texture
}

// Buffer returns the buffer behind target t.
func (rc *RenderContext) Buffer(t TargetID) hal.Buffer {
	return rc.graph.resources[rc.graph.Target(t).resource].Buffer
}

// Range returns the subresource range of the texture behind target t.
func (rc *RenderContext) Range(t TargetID) SubresourceRange {
	return rc.graph.resources[rc.graph.Target(t).resource].Range
}

// Scope returns the scope the current pass uses t with: the effective read
// scope for inputs, or the resolved producer scope for outputs.
func (rc *RenderContext) Scope(t TargetID) Scope {
	if rc.step != nil {
		for _, u := range rc.step.Uses {
			if u.Target == t {
				return u.Scope
			}
		}
	}
	s, _ := rc.graph.ResolvedScope(t)
	return s
}

// BarrierBatch merges the barriers of one step into a single
// synchronization command.
type BarrierBatch struct {
	SrcStages Stage
	DstStages Stage
	Textures  []hal.TextureBarrier
	Buffers   []hal.BufferBarrier

	// Virtual counts barriers on resources without a HAL handle.
	Virtual int
}

// Batch builds the batch for a list of barriers planned by Compute.
func (g *Graph) Batch(barriers []Barrier) BarrierBatch {
	var b BarrierBatch
	for _, br := range barriers {
		b.SrcStages |= br.Src.Stages
		b.DstStages |= br.Dst.Stages
		res := g.resource(br.Resource)
		switch {
		case res.Kind == ResourceTexture && res.Texture != nil:
			b.Textures = append(b.Textures, hal.TextureBarrier{
				Texture: res.Texture,
				Range:   res.Range.textureRange(),
				Usage: hal.TextureUsageTransition{
					OldUsage: br.Src.TextureUsage(),
					NewUsage: br.Dst.TextureUsage(),
				},
			})
		case res.Kind == ResourceBuffer && res.Buffer != nil:
			b.Buffers = append(b.Buffers, hal.BufferBarrier{
				Buffer: res.Buffer,
				Usage: hal.BufferUsageTransition{
					OldUsage: br.Src.BufferUsage(),
					NewUsage: br.Dst.BufferUsage(),
				},
			})
		default:
			b.Virtual++
		}
	}
	return b
}

// Emit records the batch into enc.
func (b *BarrierBatch) Emit(enc hal.CommandEncoder) {
	if len(b.Textures) > 0 {
		enc.TransitionTextures(b.Textures)
	}
	if len(b.Buffers) > 0 {
		enc.TransitionBuffers(b.Buffers)
	}
}

// Record replays the computed order into rc: for each step it emits the
// step's barriers as one batch, then calls the pass's RecordFunc. The first
// callback error aborts recording; the caller should discard the encoder.
func (g *Graph) Record(rc *RenderContext) error {
	if !g.computed() {
		return ErrNotComputed
	}
	if rc == nil || rc.Encoder == nil {
		return ErrNilEncoder
	}

	rc.graph = g
	defer func() { rc.step = nil }()

	for i := range g.sched.order {
		step := &g.sched.order[i]
		rc.step = step
		p := g.passes[step.Pass]

		if len(step.Barriers) > 0 {
			batch := g.Batch(step.Barriers)
			batch.Emit(rc.Encoder)
			g.log().Debug("framegraph: barrier batch",
				"pass", p.name,
				"textures", len(batch.Textures),
				"buffers", len(batch.Buffers),
				"virtual", batch.Virtual,
				"src_stages", batch.SrcStages,
				"dst_stages", batch.DstStages)
		}

		if p.record == nil {
			continue
		}
		if err := p.record(rc); err != nil {
			return fmt.Errorf("framegraph: record pass %q: %w", p.name, err)
		}
	}
	return nil
}
