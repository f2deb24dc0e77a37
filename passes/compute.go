// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package passes

import (
	"encoding/binary"
	"fmt"

	"github.com/gogpu/framegraph"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/naga"
	"github.com/gogpu/wgpu/hal"
)

// Binding places one buffer target at the binding index equal to its
// position in Compute.Bindings.
type Binding struct {
	Target   framegraph.TargetID
	ReadOnly bool
}

// Compute dispatches a WGSL compute shader whose group 0 holds one storage
// buffer per binding. The pipeline is compiled on the first Record.
type Compute struct {
	Label      string
	Source     string
	EntryPoint string
	Workgroups [3]uint32
	Bindings   []Binding

	device     hal.Device
	module     hal.ShaderModule
	bindLayout hal.BindGroupLayout
	pipeLayout hal.PipelineLayout
	pipeline   hal.ComputePipeline

	bindGroup hal.BindGroup
	bound     []hal.Buffer
}

// Record implements framegraph.RecordFunc.
func (c *Compute) Record(rc *framegraph.RenderContext) error {
	buffers := make([]hal.Buffer, len(c.Bindings))
	sizes := make([]uint64, len(c.Bindings))
	for i, b := range c.Bindings {
		res := rc.Graph().Resource(rc.Graph().Target(b.Target).Resource())
		if res.Kind != framegraph.ResourceBuffer {
			return fmt.Errorf("compute %s: binding %d is a %s, want buffer", c.label(rc), i, res.Kind)
		}
		if res.Buffer == nil {
			return nil
		}
		buffers[i] = res.Buffer
		sizes[i] = res.Size
	}

	if c.pipeline == nil {
		if err := c.createPipeline(rc.Device, c.label(rc)); err != nil {
			return err
		}
	}
	if err := c.bind(buffers, sizes); err != nil {
		return fmt.Errorf("compute %s: %w", c.label(rc), err)
	}

	x, y, z := c.Workgroups[0], c.Workgroups[1], c.Workgroups[2]
	if x == 0 {
		x = 1
	}
	if y == 0 {
		y = 1
	}
	if z == 0 {
		z = 1
	}
	cp := rc.Encoder.BeginComputePass(&hal.ComputePassDescriptor{Label: c.label(rc)})
	cp.SetPipeline(c.pipeline)
	cp.SetBindGroup(0, c.bindGroup, nil)
	cp.Dispatch(x, y, z)
	cp.End()
	return nil
}

func (c *Compute) label(rc *framegraph.RenderContext) string {
	if c.Label != "" {
		return c.Label
	}
	return rc.Pass().Name()
}

func (c *Compute) createPipeline(device hal.Device, label string) error {
	if device == nil {
		return fmt.Errorf("compute %s: no device", label)
	}
	spirv, err := compileWGSL(c.Source)
	if err != nil {
		return fmt.Errorf("compute %s: %w", label, err)
	}
	c.device = device

	module, err := device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  label,
		Source: hal.ShaderSource{SPIRV: spirv},
	})
	if err != nil {
		return fmt.Errorf("compute %s: create shader module: %w", label, err)
	}
	c.module = module

	entries := make([]gputypes.BindGroupLayoutEntry, len(c.Bindings))
	for i, b := range c.Bindings {
		typ := gputypes.BufferBindingTypeStorage
		if b.ReadOnly {
			typ = gputypes.BufferBindingTypeReadOnlyStorage
		}
		entries[i] = gputypes.BindGroupLayoutEntry{
			Binding:    uint32(i), //nolint:gosec // binding count is small
			Visibility: gputypes.ShaderStageCompute,
			Buffer:     &gputypes.BufferBindingLayout{Type: typ},
		}
	}
	bindLayout, err := device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label:   label + "_bind_layout",
		Entries: entries,
	})
	if err != nil {
		c.Destroy(device)
		return fmt.Errorf("compute %s: create bind group layout: %w", label, err)
	}
	c.bindLayout = bindLayout

	pipeLayout, err := device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            label + "_pipe_layout",
		BindGroupLayouts: []hal.BindGroupLayout{bindLayout},
	})
	if err != nil {
		c.Destroy(device)
		return fmt.Errorf("compute %s: create pipeline layout: %w", label, err)
	}
	c.pipeLayout = pipeLayout

	entry := c.EntryPoint
	if entry == "" {
		entry = "main"
	}
	pipeline, err := device.CreateComputePipeline(&hal.ComputePipelineDescriptor{
		Label:   label + "_pipeline",
		Layout:  pipeLayout,
		Compute: hal.ComputeState{Module: module, EntryPoint: entry},
	})
	if err != nil {
		c.Destroy(device)
		return fmt.Errorf("compute %s: create compute pipeline: %w", label, err)
	}
	c.pipeline = pipeline

	framegraph.Logger().Debug("passes: compute pipeline created",
		"pass", label,
		"bindings", len(c.Bindings),
		"spirv_words", len(spirv))
	return nil
}

// bind rebuilds the bind group when any bound buffer changed.
func (c *Compute) bind(buffers []hal.Buffer, sizes []uint64) error {
	if c.bindGroup != nil && sameBuffers(c.bound, buffers) {
		return nil
	}
	if c.bindGroup != nil {
		c.device.DestroyBindGroup(c.bindGroup)
		c.bindGroup = nil
	}
	entries := make([]gputypes.BindGroupEntry, len(buffers))
	for i, buf := range buffers {
		entries[i] = gputypes.BindGroupEntry{
			Binding:  uint32(i), //nolint:gosec // binding count is small
			Resource: gputypes.BufferBinding{Buffer: buf.NativeHandle(), Offset: 0, Size: sizes[i]},
		}
	}
	bg, err := c.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:   "compute_bind",
		Layout:  c.bindLayout,
		Entries: entries,
	})
	if err != nil {
		return fmt.Errorf("create bind group: %w", err)
	}
	c.bindGroup = bg
	c.bound = buffers
	return nil
}

// Destroy releases the pipeline objects. The pass recompiles on the next
// Record.
func (c *Compute) Destroy(device hal.Device) {
	if c.bindGroup != nil {
		device.DestroyBindGroup(c.bindGroup)
		c.bindGroup = nil
	}
	if c.pipeline != nil {
		device.DestroyComputePipeline(c.pipeline)
		c.pipeline = nil
	}
	if c.pipeLayout != nil {
		device.DestroyPipelineLayout(c.pipeLayout)
		c.pipeLayout = nil
	}
	if c.bindLayout != nil {
		device.DestroyBindGroupLayout(c.bindLayout)
		c.bindLayout = nil
	}
	if c.module != nil {
		device.DestroyShaderModule(c.module)
		c.module = nil
	}
	c.bound = nil
}

func sameBuffers(a, b []hal.Buffer) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// compileWGSL compiles WGSL to little-endian SPIR-V words.
func compileWGSL(source string) ([]uint32, error) {
	spirvBytes, err := naga.Compile(source)
	if err != nil {
		return nil, fmt.Errorf("compile shader: %w", err)
	}
	words := make([]uint32, len(spirvBytes)/4)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(spirvBytes[i*4:])
	}
	return words, nil
}
