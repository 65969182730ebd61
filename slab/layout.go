// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package slab

import (
	"fmt"

	"github.com/gogpu/gputypes"
)

// LayoutID identifies an element layout within one allocator.
type LayoutID uint16

// Layout describes the elements stored in a slab. Elements of different
// layouts never share a slab.
type Layout struct {
	ID   LayoutID
	Name string

	// Stride is the element size in bytes.
	Stride uint64

	// Attributes describes vertex elements. Empty for index layouts.
	Attributes []gputypes.VertexAttribute

	// Topology is the primitive topology drawables of this layout use.
	Topology gputypes.PrimitiveTopology

	// IndexFormat is the index width of index layouts. Ignored for vertex
	// layouts.
	IndexFormat gputypes.IndexFormat
}

// Built-in layout IDs.
const (
	LayoutPosColorID LayoutID = iota + 1
	LayoutPosTexColorID
	IndexLayout16ID
	IndexLayout32ID
)

// Vertex sizes of the built-in layouts.
const (
	PosColorStride    = 24 // pos(8) + color(16)
	PosTexColorStride = 32 // pos(8) + uv(8) + color(16)
)

// LayoutPosColor is a 2D position with an RGBA float color.
var LayoutPosColor = Layout{
	ID:     LayoutPosColorID,
	Name:   "pos-color",
	Stride: PosColorStride,
	Attributes: []gputypes.VertexAttribute{
		{Format: gputypes.VertexFormatFloat32x2, Offset: 0, ShaderLocation: 0}, // position
		{Format: gputypes.VertexFormatFloat32x4, Offset: 8, ShaderLocation: 1}, // color
	},
	Topology: gputypes.PrimitiveTopologyTriangleList,
}

// LayoutPosTexColor adds texture coordinates to LayoutPosColor.
var LayoutPosTexColor = Layout{
	ID:     LayoutPosTexColorID,
	Name:   "pos-tex-color",
	Stride: PosTexColorStride,
	Attributes: []gputypes.VertexAttribute{
		{Format: gputypes.VertexFormatFloat32x2, Offset: 0, ShaderLocation: 0},  // position
		{Format: gputypes.VertexFormatFloat32x2, Offset: 8, ShaderLocation: 1},  // uv
		{Format: gputypes.VertexFormatFloat32x4, Offset: 16, ShaderLocation: 2}, // color
	},
	Topology: gputypes.PrimitiveTopologyTriangleList,
}

// IndexLayout16 holds uint16 indices.
var IndexLayout16 = Layout{
	ID:          IndexLayout16ID,
	Name:        "index16",
	Stride:      2,
	Topology:    gputypes.PrimitiveTopologyTriangleList,
	IndexFormat: gputypes.IndexFormatUint16,
}

// IndexLayout32 holds uint32 indices.
var IndexLayout32 = Layout{
	ID:          IndexLayout32ID,
	Name:        "index32",
	Stride:      4,
	Topology:    gputypes.PrimitiveTopologyTriangleList,
	IndexFormat: gputypes.IndexFormatUint32,
}

// IsIndex reports whether l describes index elements.
func (l Layout) IsIndex() bool {
	return len(l.Attributes) == 0
}

// BufferLayout returns the vertex buffer layout for pipeline creation.
func (l Layout) BufferLayout() gputypes.VertexBufferLayout {
	return gputypes.VertexBufferLayout{
		ArrayStride: l.Stride,
		StepMode:    gputypes.VertexStepModeVertex,
		Attributes:  l.Attributes,
	}
}

// PositionAttribute returns the attribute at shader location 0, which by
// convention holds the vertex position.
func (l Layout) PositionAttribute() (gputypes.VertexAttribute, bool) {
	for _, a := range l.Attributes {
		if a.ShaderLocation == 0 {
			return a, true
		}
	}
	return gputypes.VertexAttribute{}, false
}

func (l Layout) validate() error {
	if l.Stride == 0 {
		return fmt.Errorf("%w: layout %d (%s) has zero stride", ErrInvalidLayout, l.ID, l.Name)
	}
	for _, a := range l.Attributes {
		if a.Offset >= l.Stride {
			return fmt.Errorf("%w: layout %d (%s) attribute %d starts past the stride",
				ErrInvalidLayout, l.ID, l.Name, a.ShaderLocation)
		}
	}
	return nil
}

func (l Layout) String() string {
	if l.Name != "" {
		return l.Name
	}
	return fmt.Sprintf("layout(%d)", l.ID)
}
