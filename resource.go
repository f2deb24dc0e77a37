// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package framegraph

import (
	"fmt"

	"github.com/gogpu/wgpu/hal"
)

// ResourceKind tells textures from buffers.
type ResourceKind uint8

const (
	// ResourceTexture is a texture subresource range.
	ResourceTexture ResourceKind = iota

	// ResourceBuffer is a whole buffer.
	ResourceBuffer
)

// String returns "texture" or "buffer".
func (k ResourceKind) String() string {
	switch k {
	case ResourceTexture:
		return "texture"
	case ResourceBuffer:
		return "buffer"
	default:
		return fmt.Sprintf("ResourceKind(%d)", k)
	}
}

// SubresourceRange selects mip levels and array layers of a texture.
// A zero count means "all remaining".
type SubresourceRange struct {
	BaseMipLevel    uint32
	MipLevelCount   uint32
	BaseArrayLayer  uint32
	ArrayLayerCount uint32
}

func (r SubresourceRange) textureRange() hal.TextureRange {
	return hal.TextureRange{
		BaseMipLevel:    r.BaseMipLevel,
		MipLevelCount:   r.MipLevelCount,
		BaseArrayLayer:  r.BaseArrayLayer,
		ArrayLayerCount: r.ArrayLayerCount,
	}
}

// Resource is one physical GPU resource known to a graph. Texture or Buffer
// may be nil for virtual resources: those are scheduled like any other but
// no transitions are recorded for them.
type Resource struct {
	Label   string
	Kind    ResourceKind
	Texture hal.Texture
	Buffer  hal.Buffer
	Range   SubresourceRange

	// Size is the buffer size in bytes; zero for textures.
	Size uint64
}

// ResourceID refers to a resource in the graph that imported it.
type ResourceID int

// ImportTexture registers a texture subresource range with the graph.
// Different ranges of one texture are different resources.
func (g *Graph) ImportTexture(label string, tex hal.Texture, rng SubresourceRange) ResourceID {
	g.resources = append(g.resources, Resource{
		Label:   label,
		Kind:    ResourceTexture,
		Texture: tex,
		Range:   rng,
	})
	return ResourceID(len(g.resources) - 1)
}

// ImportBuffer registers a buffer of size bytes with the graph.
func (g *Graph) ImportBuffer(label string, buf hal.Buffer, size uint64) ResourceID {
	g.resources = append(g.resources, Resource{
		Label:  label,
		Kind:   ResourceBuffer,
		Buffer: buf,
		Size:   size,
	})
	return ResourceID(len(g.resources) - 1)
}

// Resource returns the resource registered under id.
func (g *Graph) Resource(id ResourceID) Resource {
	return *g.resource(id)
}

// SetTexture swaps the texture behind a texture resource, e.g. the surface
// image acquired for the current frame. The topology is unchanged.
func (g *Graph) SetTexture(id ResourceID, tex hal.Texture) {
	r := g.resource(id)
	if r.Kind != ResourceTexture {
		panic(fmt.Sprintf("framegraph: SetTexture on %s %q", r.Kind, r.Label))
	}
	r.Texture = tex
}

// SetBuffer swaps the buffer behind a buffer resource.
func (g *Graph) SetBuffer(id ResourceID, buf hal.Buffer) {
	r := g.resource(id)
	if r.Kind != ResourceBuffer {
		panic(fmt.Sprintf("framegraph: SetBuffer on %s %q", r.Kind, r.Label))
	}
	r.Buffer = buf
}

func (g *Graph) resource(id ResourceID) *Resource {
	if id < 0 || int(id) >= len(g.resources) {
		panic(fmt.Sprintf("framegraph: unknown resource %d", id))
	}
	return &g.resources[id]
}
