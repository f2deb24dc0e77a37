// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package pipeline builds a framegraph.Graph from an HCL description.
//
// A pipeline file declares textures, buffers and passes:
//
//	texture "hdr" {
//	  width  = 1280
//	  height = 720
//	}
//
//	pass "gbuffer" {
//	  kind  = "clear"
//	  color = [0, 0, 0, 1]
//	  write "color" {
//	    resource = "hdr"
//	    scope    = "color_output:color_target:color_write"
//	  }
//	}
//
//	pass "bloom" {
//	  enabled = var.bloom
//	  rewrite "color" {
//	    target = "gbuffer.color"
//	    scope  = "compute:storage:shader_read|shader_write"
//	  }
//	}
//
//	pass "present" {
//	  read {
//	    target = "bloom.color"
//	    scope  = "flex"
//	  }
//	}
//
// Targets are addressed as "<pass>.<output>". A disabled pass that
// rewrites a target forwards it unchanged, so readers of "bloom.color"
// above see "gbuffer.color" when bloom is off.
package pipeline

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/gogpu/framegraph"
	"github.com/gogpu/framegraph/passes"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
)

var (
	// ErrUnknownTarget is returned for a "<pass>.<output>" reference that
	// no enabled pass produces.
	ErrUnknownTarget = errors.New("pipeline: unknown target")

	// ErrUnknownResource is returned when a write names an undeclared
	// texture or buffer.
	ErrUnknownResource = errors.New("pipeline: unknown resource")
)

var textureFormats = map[string]gputypes.TextureFormat{
	"rgba8unorm":           gputypes.TextureFormatRGBA8Unorm,
	"bgra8unorm":           gputypes.TextureFormatBGRA8Unorm,
	"r8unorm":              gputypes.TextureFormatR8Unorm,
	"depth24plus_stencil8": gputypes.TextureFormatDepth24PlusStencil8,
}

// Pipeline is a graph built from a pipeline file together with the GPU
// objects allocated for it.
type Pipeline struct {
	Graph *framegraph.Graph

	resources map[string]framegraph.ResourceID
	targets   map[string]framegraph.TargetID
	recorders map[string]passes.Recorder
	passes    []string

	device   hal.Device
	textures []hal.Texture
	buffers  []hal.Buffer
}

// LoadFile reads and loads the pipeline file at path.
func LoadFile(path string, opts ...Option) (*Pipeline, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}
	return Load(src, path, opts...)
}

// Load parses src and builds its graph. filename is only used in
// diagnostics.
func Load(src []byte, filename string, opts ...Option) (*Pipeline, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("pipeline: parse %s: %w", filename, diags)
	}
	var cfg fileConfig
	if diags := gohcl.DecodeBody(file.Body, evalContext(o.vars), &cfg); diags.HasErrors() {
		return nil, fmt.Errorf("pipeline: decode %s: %w", filename, diags)
	}

	p := &Pipeline{
		Graph:     framegraph.New(o.graphOpts...),
		resources: make(map[string]framegraph.ResourceID),
		targets:   make(map[string]framegraph.TargetID),
		recorders: make(map[string]passes.Recorder),
		device:    o.device,
	}
	b := &builder{p: p, cfg: &cfg, registry: o.registry, scopes: make(map[framegraph.ResourceID][]framegraph.Scope)}
	if err := b.build(); err != nil {
		p.Destroy()
		return nil, fmt.Errorf("pipeline: %s: %w", filename, err)
	}

	framegraph.Logger().Debug("pipeline: loaded",
		"file", filename,
		"resources", len(p.resources),
		"passes", p.Graph.Passes(),
		"targets", p.Graph.Targets(),
		"allocated", p.device != nil)
	return p, nil
}

func evalContext(vars map[string]cty.Value) *hcl.EvalContext {
	v := cty.EmptyObjectVal
	if len(vars) > 0 {
		v = cty.ObjectVal(vars)
	}
	return &hcl.EvalContext{Variables: map[string]cty.Value{"var": v}}
}

// Target returns the target addressed as "<pass>.<output>".
func (p *Pipeline) Target(name string) (framegraph.TargetID, error) {
	t, ok := p.targets[name]
	if !ok {
		return 0, fmt.Errorf("%w %q", ErrUnknownTarget, name)
	}
	return t, nil
}

// Resource returns the resource declared under name.
func (p *Pipeline) Resource(name string) (framegraph.ResourceID, bool) {
	r, ok := p.resources[name]
	return r, ok
}

// Recorder returns the recorder built for pass, or nil for passes that
// record nothing.
func (p *Pipeline) Recorder(pass string) passes.Recorder {
	return p.recorders[pass]
}

// Passes returns the names of the enabled passes in file order.
func (p *Pipeline) Passes() []string {
	return append([]string(nil), p.passes...)
}

// Destroy releases pass objects and allocated resources. It is safe to
// call more than once.
func (p *Pipeline) Destroy() {
	if p.device == nil {
		return
	}
	for name, r := range p.recorders {
		if r != nil {
			r.Destroy(p.device)
		}
		delete(p.recorders, name)
	}
	for _, tex := range p.textures {
		p.device.DestroyTexture(tex)
	}
	for _, buf := range p.buffers {
		p.device.DestroyBuffer(buf)
	}
	p.textures = nil
	p.buffers = nil
}

type builder struct {
	p        *Pipeline
	cfg      *fileConfig
	registry passes.Registry

	textures map[framegraph.ResourceID]*textureBlock
	bufs     map[framegraph.ResourceID]*bufferBlock
	nodes    map[string]*framegraph.Pass

	// scopes collects every scope a resource is used with, to derive
	// allocation usage flags.
	scopes map[framegraph.ResourceID][]framegraph.Scope

	// per-pass declarations, in block order
	reads    map[string][]framegraph.TargetID
	writes   map[string][]framegraph.TargetID
	rewrites map[string][]framegraph.TargetID
}

func (b *builder) build() error {
	if err := b.declareResources(); err != nil {
		return err
	}
	if err := b.declarePasses(); err != nil {
		return err
	}
	if err := b.declareWrites(); err != nil {
		return err
	}
	if err := b.declareRewrites(); err != nil {
		return err
	}
	if err := b.declareReads(); err != nil {
		return err
	}
	if err := b.buildRecorders(); err != nil {
		return err
	}
	if b.p.device != nil {
		return b.allocate()
	}
	return nil
}

func (b *builder) declareResources() error {
	g := b.p.Graph
	b.textures = make(map[framegraph.ResourceID]*textureBlock)
	b.bufs = make(map[framegraph.ResourceID]*bufferBlock)

	for _, t := range b.cfg.Textures {
		if _, dup := b.p.resources[t.Name]; dup {
			return fmt.Errorf("resource %q declared twice", t.Name)
		}
		if t.Width <= 0 || t.Height <= 0 {
			return fmt.Errorf("texture %q: width and height must be positive", t.Name)
		}
		if t.Format == "" {
			t.Format = "rgba8unorm"
		}
		if _, ok := textureFormats[t.Format]; !ok {
			return fmt.Errorf("texture %q: unknown format %q", t.Name, t.Format)
		}
		if t.MipLevels <= 0 {
			t.MipLevels = 1
		}
		id := g.ImportTexture(t.Name, nil, framegraph.SubresourceRange{})
		b.p.resources[t.Name] = id
		b.textures[id] = t
	}
	for _, buf := range b.cfg.Buffers {
		if _, dup := b.p.resources[buf.Name]; dup {
			return fmt.Errorf("resource %q declared twice", buf.Name)
		}
		if buf.Size <= 0 {
			return fmt.Errorf("buffer %q: size must be positive", buf.Name)
		}
		id := g.ImportBuffer(buf.Name, nil, uint64(buf.Size))
		b.p.resources[buf.Name] = id
		b.bufs[id] = buf
	}
	return nil
}

func (b *builder) declarePasses() error {
	b.nodes = make(map[string]*framegraph.Pass)
	seen := make(map[string]bool)
	for _, pb := range b.cfg.Passes {
		if seen[pb.Name] {
			return fmt.Errorf("pass %q declared twice", pb.Name)
		}
		seen[pb.Name] = true
		if !pb.enabled() {
			continue
		}
		b.nodes[pb.Name] = b.p.Graph.AddPass(pb.Name, nil)
		b.p.passes = append(b.p.passes, pb.Name)
	}
	return nil
}

func (b *builder) declareWrites() error {
	b.writes = make(map[string][]framegraph.TargetID)
	for _, pb := range b.cfg.Passes {
		node := b.nodes[pb.Name]
		if node == nil {
			continue
		}
		for _, w := range pb.Writes {
			res, ok := b.p.resources[w.Resource]
			if !ok {
				return fmt.Errorf("pass %q: write %q: %w %q", pb.Name, w.Name, ErrUnknownResource, w.Resource)
			}
			scope, err := framegraph.ParseScope(w.Scope)
			if err != nil {
				return fmt.Errorf("pass %q: write %q: %w", pb.Name, w.Name, err)
			}
			name := pb.Name + "." + w.Name
			if _, dup := b.p.targets[name]; dup {
				return fmt.Errorf("pass %q: output %q declared twice", pb.Name, w.Name)
			}
			t := node.AddOut(scope, res)
			b.p.targets[name] = t
			b.writes[pb.Name] = append(b.writes[pb.Name], t)
			b.use(res, scope)
		}
	}
	return nil
}

// declareRewrites resolves rewrite blocks until no more can be resolved,
// since a rewrite may target the output of another rewrite declared later.
func (b *builder) declareRewrites() error {
	b.rewrites = make(map[string][]framegraph.TargetID)

	type pending struct {
		pass *passBlock
		rw   *rewriteBlock
	}
	var todo []pending
	for _, pb := range b.cfg.Passes {
		for _, rw := range pb.Rewrites {
			todo = append(todo, pending{pb, rw})
		}
	}

	for len(todo) > 0 {
		var next []pending
		for _, pr := range todo {
			src, ok := b.p.targets[pr.rw.Target]
			if !ok {
				next = append(next, pr)
				continue
			}
			if err := b.rewrite(pr.pass, pr.rw, src); err != nil {
				return err
			}
		}
		if len(next) == len(todo) {
			pr := next[0]
			return fmt.Errorf("pass %q: rewrite %q: %w %q", pr.pass.Name, pr.rw.Name, ErrUnknownTarget, pr.rw.Target)
		}
		todo = next
	}
	return nil
}

func (b *builder) rewrite(pb *passBlock, rw *rewriteBlock, src framegraph.TargetID) error {
	name := pb.Name + "." + rw.Name
	if _, dup := b.p.targets[name]; dup {
		return fmt.Errorf("pass %q: output %q declared twice", pb.Name, rw.Name)
	}
	node := b.nodes[pb.Name]
	if node == nil {
		// Disabled: forward the input unchanged.
		b.p.targets[name] = src
		return nil
	}

	dst, err := framegraph.ParseScope(rw.Scope)
	if err != nil {
		return fmt.Errorf("pass %q: rewrite %q: %w", pb.Name, rw.Name, err)
	}
	produced := dst
	if rw.SrcScope != "" {
		if produced, err = framegraph.ParseScope(rw.SrcScope); err != nil {
			return fmt.Errorf("pass %q: rewrite %q: %w", pb.Name, rw.Name, err)
		}
	}
	tg := b.p.Graph.Target(src)
	if end, ok := tg.End(); ok {
		return fmt.Errorf("pass %q: rewrite %q: %s is already rewritten by pass %q",
			pb.Name, rw.Name, rw.Target, b.p.Graph.Pass(end).Name())
	}

	t := node.AddInOutSplit(src, dst, produced)
	b.p.targets[name] = t
	b.rewrites[pb.Name] = append(b.rewrites[pb.Name], t)
	b.use(tg.Resource(), dst)
	b.use(tg.Resource(), produced)
	return nil
}

func (b *builder) declareReads() error {
	b.reads = make(map[string][]framegraph.TargetID)
	for _, pb := range b.cfg.Passes {
		node := b.nodes[pb.Name]
		if node == nil {
			continue
		}
		for _, r := range pb.Reads {
			t, ok := b.p.targets[r.Target]
			if !ok {
				return fmt.Errorf("pass %q: read: %w %q", pb.Name, ErrUnknownTarget, r.Target)
			}
			scope, err := framegraph.ParseScope(r.Scope)
			if err != nil {
				return fmt.Errorf("pass %q: read %q: %w", pb.Name, r.Target, err)
			}
			node.AddIn(t, scope)
			b.reads[pb.Name] = append(b.reads[pb.Name], t)
			b.use(b.p.Graph.Target(t).Resource(), scope)
		}
	}
	return nil
}

func (b *builder) buildRecorders() error {
	for _, pb := range b.cfg.Passes {
		node := b.nodes[pb.Name]
		if node == nil {
			continue
		}
		cfg := passes.Config{
			Name:       pb.Name,
			Inputs:     b.reads[pb.Name],
			Outputs:    b.writes[pb.Name],
			Rewrites:   b.rewrites[pb.Name],
			Shader:     pb.Shader,
			EntryPoint: pb.EntryPoint,
		}
		switch len(pb.Color) {
		case 0:
		case 3, 4:
			cfg.Color = gputypes.Color{R: pb.Color[0], G: pb.Color[1], B: pb.Color[2], A: 1}
			if len(pb.Color) == 4 {
				cfg.Color.A = pb.Color[3]
			}
		default:
			return fmt.Errorf("pass %q: color needs 3 or 4 components", pb.Name)
		}
		if len(pb.Workgroups) > 3 {
			return fmt.Errorf("pass %q: workgroups has more than 3 dimensions", pb.Name)
		}
		for i, n := range pb.Workgroups {
			if n < 0 {
				return fmt.Errorf("pass %q: negative workgroup count", pb.Name)
			}
			cfg.Workgroups[i] = uint32(n) //nolint:gosec // checked above
		}
		cfg.Width, cfg.Height = b.extent(cfg)

		kind := pb.Kind
		if kind == "" {
			kind = "none"
		}
		rec, err := b.registry.Build(kind, cfg)
		if err != nil {
			return err
		}
		b.p.recorders[pb.Name] = rec
		if rec != nil {
			node.SetRecord(rec.Record)
		}
	}
	return nil
}

// extent returns the size of the first texture among the pass's targets.
func (b *builder) extent(cfg passes.Config) (uint32, uint32) {
	for _, list := range [][]framegraph.TargetID{cfg.Outputs, cfg.Rewrites, cfg.Inputs} {
		for _, t := range list {
			if tb, ok := b.textures[b.p.Graph.Target(t).Resource()]; ok {
				return uint32(tb.Width), uint32(tb.Height) //nolint:gosec // validated positive
			}
		}
	}
	return 0, 0
}

func (b *builder) use(res framegraph.ResourceID, s framegraph.Scope) {
	if s.IsFlex() {
		s = framegraph.SharedScope
	}
	b.scopes[res] = append(b.scopes[res], s)
}

// allocate creates every declared resource with the union of the usages
// of the scopes it appears in.
func (b *builder) allocate() error {
	device := b.p.device
	g := b.p.Graph
	for _, t := range b.cfg.Textures {
		id := b.p.resources[t.Name]
		var usage gputypes.TextureUsage
		for _, s := range b.scopes[id] {
			usage |= s.TextureUsage()
		}
		if usage == 0 {
			usage = gputypes.TextureUsageRenderAttachment | gputypes.TextureUsageTextureBinding
		}
		tex, err := device.CreateTexture(&hal.TextureDescriptor{
			Label:         t.Name,
			Size:          hal.Extent3D{Width: uint32(t.Width), Height: uint32(t.Height), DepthOrArrayLayers: 1}, //nolint:gosec // validated positive
			MipLevelCount: uint32(t.MipLevels),                                                                  //nolint:gosec // validated positive
			SampleCount:   1,
			Dimension:     gputypes.TextureDimension2D,
			Format:        textureFormats[t.Format],
			Usage:         usage,
		})
		if err != nil {
			return fmt.Errorf("texture %q: create: %w", t.Name, err)
		}
		b.p.textures = append(b.p.textures, tex)
		g.SetTexture(id, tex)
	}
	for _, buf := range b.cfg.Buffers {
		id := b.p.resources[buf.Name]
		var usage gputypes.BufferUsage
		for _, s := range b.scopes[id] {
			usage |= s.BufferUsage()
		}
		if buf.MapRead {
			usage |= gputypes.BufferUsageMapRead
		}
		hb, err := device.CreateBuffer(&hal.BufferDescriptor{
			Label: buf.Name,
			Size:  uint64(buf.Size),
			Usage: usage,
		})
		if err != nil {
			return fmt.Errorf("buffer %q: create: %w", buf.Name, err)
		}
		b.p.buffers = append(b.p.buffers, hb)
		g.SetBuffer(id, hb)
	}
	return nil
}

// String lists the targets of the pipeline, for diagnostics.
func (p *Pipeline) String() string {
	var sb strings.Builder
	for _, name := range p.passes {
		fmt.Fprintf(&sb, "pass %s", name)
		if r := p.recorders[name]; r != nil {
			fmt.Fprintf(&sb, " (%T)", r)
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}
