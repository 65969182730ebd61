package ggdraw

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/gogpu/ggdraw/gpucore"
)

// DrawableOption configures a Drawable during creation.
//
// Example:
//
//	d, err := ggdraw.NewDrawable(alloc, slab.LayoutPosTexColorID, sprite,
//	    ggdraw.WithShader(spriteShader))
type DrawableOption func(*drawableOptions)

type drawableOptions struct {
	shader      *Shader
	vertexCount uint32
	hasCount    bool
	texture     gpucore.Handle
	hasTexture  bool
}

// WithShader sets the drawable's own shader. It takes precedence over the
// shader passed to Draw.
func WithShader(s *Shader) DrawableOption {
	return func(o *drawableOptions) {
		o.shader = s
	}
}

// WithVertexCount overrides the vertex count reported by the shape.
func WithVertexCount(n uint32) DrawableOption {
	return func(o *drawableOptions) {
		o.vertexCount = n
		o.hasCount = true
	}
}

// WithTexture makes the drawable textured with texture h. An invalid handle
// makes it untextured.
func WithTexture(h gpucore.Handle) DrawableOption {
	return func(o *drawableOptions) {
		o.texture = h
		o.hasTexture = true
	}
}

// ViewOption configures a View during creation.
type ViewOption func(*View)

// WithProjection installs a fixed projection instead of the automatic
// pixel-space orthographic one.
func WithProjection(m mgl32.Mat4) ViewOption {
	return func(v *View) {
		v.projection = m
		v.customProjection = true
	}
}
