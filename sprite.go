package ggdraw

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/gogpu/ggdraw/gpucore"
)

// Sprite is a textured quad of Width × Height with its top-left corner at
// the local origin.
type Sprite struct {
	texture gpucore.Handle
	width   float32
	height  float32
	// uv is the sampled texture rectangle: u0, v0, u1, v1.
	uv    mgl32.Vec4
	color Color
}

// NewSprite creates a sprite showing the whole of texture.
func NewSprite(texture gpucore.Handle, width, height float32) *Sprite {
	return &Sprite{
		texture: texture,
		width:   width,
		height:  height,
		uv:      mgl32.Vec4{0, 0, 1, 1},
		color:   White,
	}
}

// SetRegion selects the texture rectangle in normalised coordinates.
// Call Drawable.MarkChanged afterwards.
func (s *Sprite) SetRegion(u0, v0, u1, v1 float32) {
	s.uv = mgl32.Vec4{u0, v0, u1, v1}
}

// SetColor sets the tint. Call Drawable.MarkChanged afterwards.
func (s *Sprite) SetColor(c Color) { s.color = c }

// Size returns the quad size.
func (s *Sprite) Size() (w, h float32) { return s.width, s.height }

// Texture returns the sampled texture.
func (s *Sprite) Texture() gpucore.Handle { return s.texture }

// VertexCount returns 6: two triangles.
func (s *Sprite) VertexCount() uint32 { return 6 }

// Fill implements Shape.
func (s *Sprite) Fill(d *Drawable, dst []byte) {
	putQuad(newVertexWriter(d.Layout()), dst, 0,
		mgl32.Vec4{0, 0, s.width, s.height}, s.uv, s.color)
}

// Render implements Shape.
func (s *Sprite) Render(call DrawCall) error {
	call.DrawArrays()
	return nil
}

// putQuad writes two triangles covering rect (x0, y0, x1, y1) with texture
// rectangle uv, starting at vertex first.
func putQuad(w vertexWriter, dst []byte, first int, rect, uv mgl32.Vec4, c Color) {
	corners := [6][2]int{{0, 1}, {2, 1}, {2, 3}, {0, 1}, {2, 3}, {0, 3}}
	for i, k := range corners {
		w.put(dst, first+i,
			mgl32.Vec2{rect[k[0]], rect[k[1]]},
			mgl32.Vec2{uv[k[0]], uv[k[1]]},
			c)
	}
}
