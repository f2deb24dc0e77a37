// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package pipeline

// fileConfig is the top-level structure of a pipeline file.
type fileConfig struct {
	Textures []*textureBlock `hcl:"texture,block"`
	Buffers  []*bufferBlock  `hcl:"buffer,block"`
	Passes   []*passBlock    `hcl:"pass,block"`
}

// textureBlock declares a 2D texture. Its usage flags are derived from the
// scopes it is used with.
type textureBlock struct {
	Name      string `hcl:"name,label"`
	Format    string `hcl:"format,optional"`
	Width     int    `hcl:"width"`
	Height    int    `hcl:"height"`
	MipLevels int    `hcl:"mip_levels,optional"`
}

// bufferBlock declares a buffer. map_read marks host-visible staging
// buffers.
type bufferBlock struct {
	Name    string `hcl:"name,label"`
	Size    int    `hcl:"size"`
	MapRead bool   `hcl:"map_read,optional"`
}

// passBlock declares one pass. Kind selects the Factory; the remaining
// attributes are handed to it.
type passBlock struct {
	Name       string    `hcl:"name,label"`
	Kind       string    `hcl:"kind,optional"`
	Enabled    *bool     `hcl:"enabled,optional"`
	Color      []float64 `hcl:"color,optional"`
	Shader     string    `hcl:"shader,optional"`
	EntryPoint string    `hcl:"entry_point,optional"`
	Workgroups []int     `hcl:"workgroups,optional"`

	Writes   []*writeBlock   `hcl:"write,block"`
	Rewrites []*rewriteBlock `hcl:"rewrite,block"`
	Reads    []*readBlock    `hcl:"read,block"`
}

// writeBlock produces a new version of resource, addressable as
// "<pass>.<name>".
type writeBlock struct {
	Name     string `hcl:"name,label"`
	Resource string `hcl:"resource"`
	Scope    string `hcl:"scope"`
}

// rewriteBlock consumes target and produces its next version in place.
// src_scope defaults to scope.
type rewriteBlock struct {
	Name     string `hcl:"name,label"`
	Target   string `hcl:"target"`
	Scope    string `hcl:"scope"`
	SrcScope string `hcl:"src_scope,optional"`
}

type readBlock struct {
	Target string `hcl:"target"`
	Scope  string `hcl:"scope"`
}

func (p *passBlock) enabled() bool {
	return p.Enabled == nil || *p.Enabled
}
