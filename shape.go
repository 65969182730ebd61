package ggdraw

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/gogpu/ggdraw/gpucore"
	"github.com/gogpu/ggdraw/slab"
)

// Shape produces the vertices of a drawable and issues its draw call.
//
// Fill writes exactly d.VertexCount() vertices of d's layout into dst.
// Render is called with the drawable's slab buffer, program, model-view and
// texture state already bound.
type Shape interface {
	Fill(d *Drawable, dst []byte)
	Render(call DrawCall) error
}

// DrawCall carries what a Shape needs to issue its draw.
type DrawCall struct {
	View     *View
	Device   gpucore.Device
	Shader   *Shader
	Drawable *Drawable
	Layout   slab.Layout

	// First is the slice offset in its slab; Count its vertex count.
	First uint32
	Count uint32

	Matrix mgl32.Mat4
}

// DrawArrays issues a non-indexed draw of the whole slice.
func (c DrawCall) DrawArrays() {
	c.Device.Draw(c.Layout.Topology, c.First, c.Count)
}

// vertexCounter is implemented by shapes that know their vertex count.
type vertexCounter interface {
	VertexCount() uint32
}

// textureSource is implemented by shapes that sample a texture.
type textureSource interface {
	Texture() gpucore.Handle
}

// releaser is implemented by shapes holding GPU resources of their own.
type releaser interface {
	Release()
}

// CustomShape is a Shape built from two functions. A nil RenderFunc draws
// the slice as non-indexed primitives.
type CustomShape struct {
	Count      uint32
	FillFunc   func(d *Drawable, dst []byte)
	RenderFunc func(call DrawCall) error
}

// Fill implements Shape.
func (s *CustomShape) Fill(d *Drawable, dst []byte) {
	if s.FillFunc != nil {
		s.FillFunc(d, dst)
	}
}

// Render implements Shape.
func (s *CustomShape) Render(call DrawCall) error {
	if s.RenderFunc != nil {
		return s.RenderFunc(call)
	}
	call.DrawArrays()
	return nil
}

// VertexCount returns Count.
func (s *CustomShape) VertexCount() uint32 { return s.Count }
