// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package framegraph

import (
	"fmt"
	"strings"
)

// Stage is a bitmask of pipeline stages that touch a resource.
type Stage uint32

const (
	// StageVertexInput covers vertex and index buffer fetch.
	StageVertexInput Stage = 1 << iota

	// StageVertexShader covers all pre-rasterization shader stages.
	StageVertexShader

	// StageFragmentShader covers fragment shading.
	StageFragmentShader

	// StageDepthStencil covers early and late depth/stencil tests.
	StageDepthStencil

	// StageColorOutput covers color attachment writes and resolves.
	StageColorOutput

	// StageComputeShader covers compute dispatches.
	StageComputeShader

	// StageCopy covers copy, clear and blit commands.
	StageCopy

	// StageHost covers CPU access through mapped memory.
	StageHost
)

const (
	// StageNone is the empty stage mask.
	StageNone Stage = 0

	// StageAllGraphics is every stage of a render pass.
	StageAllGraphics = StageVertexInput | StageVertexShader | StageFragmentShader |
		StageDepthStencil | StageColorOutput

	// StageAll is every stage, including host access.
	StageAll = StageAllGraphics | StageComputeShader | StageCopy | StageHost
)

var stageNames = []struct {
	s    Stage
	name string
}{
	{StageVertexInput, "vertex_input"},
	{StageVertexShader, "vertex"},
	{StageFragmentShader, "fragment"},
	{StageDepthStencil, "depth_stencil"},
	{StageColorOutput, "color_output"},
	{StageComputeShader, "compute"},
	{StageCopy, "copy"},
	{StageHost, "host"},
}

// String returns the stage names joined by '|'.
func (s Stage) String() string {
	switch s {
	case StageNone:
		return "none"
	case StageAll:
		return "all"
	case StageAllGraphics:
		return "all_graphics"
	}
	var parts []string
	for _, n := range stageNames {
		if s&n.s != 0 {
			parts = append(parts, n.name)
		}
	}
	return strings.Join(parts, "|")
}

// ParseStage parses a '|' separated list of stage names, as produced by
// Stage.String.
func ParseStage(text string) (Stage, error) {
	var s Stage
	for _, part := range strings.Split(text, "|") {
		part = strings.TrimSpace(part)
		switch part {
		case "none", "":
			continue
		case "all":
			s |= StageAll
			continue
		case "all_graphics":
			s |= StageAllGraphics
			continue
		}
		found := false
		for _, n := range stageNames {
			if n.name == part {
				s |= n.s
				found = true
				break
			}
		}
		if !found {
			return 0, fmt.Errorf("framegraph: unknown stage %q", part)
		}
	}
	return s, nil
}

// Layout tags the state a resource must be in. Two scopes with different
// layouts always need a barrier between them.
type Layout uint8

const (
	LayoutUndefined Layout = iota
	LayoutGeneral
	LayoutShaderRead
	LayoutColorTarget
	LayoutDepthTarget
	LayoutDepthRead
	LayoutStorage
	LayoutCopySrc
	LayoutCopyDst
	LayoutPresent
)

var layoutNames = [...]string{
	LayoutUndefined:   "undefined",
	LayoutGeneral:     "general",
	LayoutShaderRead:  "shader_read",
	LayoutColorTarget: "color_target",
	LayoutDepthTarget: "depth_target",
	LayoutDepthRead:   "depth_read",
	LayoutStorage:     "storage",
	LayoutCopySrc:     "copy_src",
	LayoutCopyDst:     "copy_dst",
	LayoutPresent:     "present",
}

// String returns the layout name.
func (l Layout) String() string {
	if int(l) < len(layoutNames) {
		return layoutNames[l]
	}
	return fmt.Sprintf("Layout(%d)", l)
}

// ParseLayout parses a layout name as produced by Layout.String.
func ParseLayout(text string) (Layout, error) {
	text = strings.TrimSpace(text)
	for i, name := range layoutNames {
		if name == text {
			return Layout(i), nil
		}
	}
	return 0, fmt.Errorf("framegraph: unknown layout %q", text)
}

// Access is a bitmask of memory access kinds.
type Access uint32

const (
	AccessVertexRead Access = 1 << iota
	AccessIndexRead
	AccessIndirectRead
	AccessUniformRead
	AccessShaderRead
	AccessShaderWrite
	AccessColorRead
	AccessColorWrite
	AccessDepthRead
	AccessDepthWrite
	AccessCopyRead
	AccessCopyWrite
)

const (
	// AccessNone is the empty access mask.
	AccessNone Access = 0

	// AccessAnyRead is every read access.
	AccessAnyRead = AccessVertexRead | AccessIndexRead | AccessIndirectRead |
		AccessUniformRead | AccessShaderRead | AccessColorRead | AccessDepthRead |
		AccessCopyRead

	// AccessAnyWrite is every write access.
	AccessAnyWrite = AccessShaderWrite | AccessColorWrite | AccessDepthWrite |
		AccessCopyWrite
)

var accessNames = []struct {
	a    Access
	name string
}{
	{AccessVertexRead, "vertex_read"},
	{AccessIndexRead, "index_read"},
	{AccessIndirectRead, "indirect_read"},
	{AccessUniformRead, "uniform_read"},
	{AccessShaderRead, "shader_read"},
	{AccessShaderWrite, "shader_write"},
	{AccessColorRead, "color_read"},
	{AccessColorWrite, "color_write"},
	{AccessDepthRead, "depth_read"},
	{AccessDepthWrite, "depth_write"},
	{AccessCopyRead, "copy_read"},
	{AccessCopyWrite, "copy_write"},
}

// String returns the access names joined by '|'.
func (a Access) String() string {
	switch a {
	case AccessNone:
		return "none"
	case AccessAnyRead | AccessAnyWrite:
		return "any"
	}
	var parts []string
	for _, n := range accessNames {
		if a&n.a != 0 {
			parts = append(parts, n.name)
		}
	}
	return strings.Join(parts, "|")
}

// ParseAccess parses a '|' separated list of access names. The shorthands
// "any_read", "any_write" and "any" are accepted.
func ParseAccess(text string) (Access, error) {
	var a Access
	for _, part := range strings.Split(text, "|") {
		part = strings.TrimSpace(part)
		switch part {
		case "none", "":
			continue
		case "any":
			a |= AccessAnyRead | AccessAnyWrite
			continue
		case "any_read":
			a |= AccessAnyRead
			continue
		case "any_write":
			a |= AccessAnyWrite
			continue
		}
		found := false
		for _, n := range accessNames {
			if n.name == part {
				a |= n.a
				found = true
				break
			}
		}
		if !found {
			return 0, fmt.Errorf("framegraph: unknown access %q", part)
		}
	}
	return a, nil
}

// Scope describes how a pass uses a resource: the stages that touch it,
// the layout it must be in and the kind of memory access performed.
//
// The zero Scope is a concrete scope with no stages and an undefined
// layout. Flex is the only scope that is not concrete.
type Scope struct {
	Stages Stage
	Layout Layout
	Access Access

	flex bool
}

// Flex is the placeholder scope for a side that has no fixed requirement.
// It is resolved while scheduling.
var Flex = Scope{flex: true}

// SharedScope is the concrete scope both ends of a flex-to-flex edge are
// resolved to.
var SharedScope = Scope{
	Stages: StageAllGraphics | StageComputeShader | StageCopy,
	Layout: LayoutGeneral,
	Access: AccessAnyRead | AccessAnyWrite,
}

// AnyStageScope is handed to a flex consumer of a flex producer so that it
// covers whatever the consumer ends up doing.
var AnyStageScope = Scope{
	Stages: StageAll,
	Layout: LayoutGeneral,
	Access: AccessAnyRead | AccessAnyWrite,
}

// NewScope returns a concrete scope.
func NewScope(stages Stage, layout Layout, access Access) Scope {
	return Scope{Stages: stages, Layout: layout, Access: access}
}

// IsFlex reports whether s is the Flex placeholder.
func (s Scope) IsFlex() bool { return s.flex }

// Widen merges b into a. Both scopes must be in the same layout.
func Widen(a, b Scope) (Scope, error) {
	if a.flex || b.flex {
		return Scope{}, fmt.Errorf("%w: cannot widen flex scope", ErrLayoutMismatch)
	}
	if a.Layout != b.Layout {
		return Scope{}, fmt.Errorf("%w: %s vs %s", ErrLayoutMismatch, a.Layout, b.Layout)
	}
	return Scope{
		Stages: a.Stages | b.Stages,
		Layout: a.Layout,
		Access: a.Access | b.Access,
	}, nil
}

// CoveredBy reports whether a resource currently in scope current can be
// used with scope needed without a new barrier.
func CoveredBy(current, needed Scope) bool {
	if current.flex || needed.flex {
		return false
	}
	return current.Layout == needed.Layout &&
		current.Access&needed.Access == needed.Access &&
		current.Stages&needed.Stages == needed.Stages
}

// String formats s as "stages:layout:access", or "flex".
func (s Scope) String() string {
	if s.flex {
		return "flex"
	}
	return s.Stages.String() + ":" + s.Layout.String() + ":" + s.Access.String()
}

// ParseScope parses the format produced by Scope.String.
func ParseScope(text string) (Scope, error) {
	text = strings.TrimSpace(text)
	if text == "flex" {
		return Flex, nil
	}
	parts := strings.Split(text, ":")
	if len(parts) != 3 {
		return Scope{}, fmt.Errorf("framegraph: scope %q: want stages:layout:access", text)
	}
	stages, err := ParseStage(parts[0])
	if err != nil {
		return Scope{}, err
	}
	layout, err := ParseLayout(parts[1])
	if err != nil {
		return Scope{}, err
	}
	access, err := ParseAccess(parts[2])
	if err != nil {
		return Scope{}, err
	}
	return NewScope(stages, layout, access), nil
}
