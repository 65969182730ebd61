package ggdraw

import (
	"fmt"
	"log/slog"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/gogpu/ggdraw/gpucore"
	"github.com/gogpu/ggdraw/internal/logging"
	"github.com/gogpu/ggdraw/slab"
)

// Drawable is one renderable shape backed by a slab slice.
//
// Two kinds of staleness are tracked separately. Geometry setters only
// invalidate the cached matrix. SetVertexCount and MarkChanged invalidate the
// vertex data, which is refilled and re-uploaded on the next Draw or
// FillOwnBuffer. A Drawable with no vertices never leases a slice.
//
// A Drawable is not safe for concurrent use.
type Drawable struct {
	alloc  *slab.Allocator
	layout slab.Layout
	shape  Shape
	shader *Shader

	vertexCount uint32
	slice       slab.Slice
	changed     bool

	origin   mgl32.Vec2
	scale    mgl32.Vec2
	position mgl32.Vec2
	z        float32
	angle    float32

	matrix        mgl32.Mat4
	matrixUpdated bool
	customMatrix  bool

	textured bool
	texture  gpucore.Handle

	destroyed bool
}

// NewDrawable creates a drawable of layout drawn by shape.
//
// The vertex count comes from the shape when it reports one, or from
// WithVertexCount. Shapes that sample a texture make the drawable textured.
func NewDrawable(alloc *slab.Allocator, layout slab.LayoutID, shape Shape, opts ...DrawableOption) (*Drawable, error) {
	l, ok := alloc.Layout(layout)
	if !ok {
		return nil, fmt.Errorf("ggdraw: new drawable: %w: %d", slab.ErrUnknownLayout, layout)
	}
	var o drawableOptions
	for _, opt := range opts {
		opt(&o)
	}

	d := &Drawable{
		alloc:   alloc,
		layout:  l,
		shape:   shape,
		shader:  o.shader,
		slice:   slab.Slice{Layout: layout},
		changed: true,
		scale:   mgl32.Vec2{1, 1},
	}
	switch {
	case o.hasCount:
		d.vertexCount = o.vertexCount
	default:
		if vc, ok := shape.(vertexCounter); ok {
			d.vertexCount = vc.VertexCount()
		}
	}
	switch {
	case o.hasTexture:
		d.SetTexture(o.texture)
	default:
		if ts, ok := shape.(textureSource); ok {
			d.SetTexture(ts.Texture())
		}
	}
	return d, nil
}

// Shape returns the drawable's shape.
func (d *Drawable) Shape() Shape { return d.shape }

// Layout returns the vertex layout.
func (d *Drawable) Layout() slab.Layout { return d.layout }

// Shader returns the drawable's own shader, or nil.
func (d *Drawable) Shader() *Shader { return d.shader }

// SetShader sets the drawable's own shader. Nil makes Draw use the caller's.
func (d *Drawable) SetShader(s *Shader) { d.shader = s }

// VertexCount returns the number of vertices.
func (d *Drawable) VertexCount() uint32 { return d.vertexCount }

// Slice returns the current lease. It is unallocated until the first fill
// and may move whenever the vertex count grows.
func (d *Drawable) Slice() slab.Slice { return d.slice }

// Changed reports whether vertex data must be refilled.
func (d *Drawable) Changed() bool { return d.changed }

// Destroyed reports whether Destroy was called.
func (d *Drawable) Destroyed() bool { return d.destroyed }

// Textured reports whether the drawable samples a texture.
func (d *Drawable) Textured() bool { return d.textured }

// Texture returns the sampled texture.
func (d *Drawable) Texture() gpucore.Handle { return d.texture }

// SetTexture sets the sampled texture. An invalid handle disables texturing.
func (d *Drawable) SetTexture(h gpucore.Handle) {
	d.texture = h
	d.textured = h.Valid()
}

// SetVertexCount changes the vertex count and marks vertex data changed when
// it differs.
func (d *Drawable) SetVertexCount(n uint32) {
	if n == d.vertexCount {
		return
	}
	d.vertexCount = n
	d.changed = true
}

// MarkChanged forces a refill on the next draw.
func (d *Drawable) MarkChanged() { d.changed = true }

// Refresh re-reads the shape's vertex count and marks vertex data changed.
// Call it after mutating the shape.
func (d *Drawable) Refresh() {
	if vc, ok := d.shape.(vertexCounter); ok {
		d.SetVertexCount(vc.VertexCount())
	}
	d.changed = true
}

// Origin returns the pivot point in local coordinates.
func (d *Drawable) Origin() mgl32.Vec2 { return d.origin }

// Position returns the position of the origin.
func (d *Drawable) Position() mgl32.Vec2 { return d.position }

// Scale returns the scale factors.
func (d *Drawable) Scale() mgl32.Vec2 { return d.scale }

// Angle returns the rotation in radians.
func (d *Drawable) Angle() float32 { return d.angle }

// Z returns the depth used for ordering.
func (d *Drawable) Z() float32 { return d.z }

// SetOrigin sets the local point that rotation and scaling pivot around and
// that SetPosition places.
func (d *Drawable) SetOrigin(x, y float32) {
	d.origin = mgl32.Vec2{x, y}
	d.matrixUpdated = false
}

// SetScale sets the scale factors.
func (d *Drawable) SetScale(sx, sy float32) {
	d.scale = mgl32.Vec2{sx, sy}
	d.matrixUpdated = false
}

// SetPosition places the origin at (x, y).
func (d *Drawable) SetPosition(x, y float32) {
	d.position = mgl32.Vec2{x, y}
	d.matrixUpdated = false
}

// SetZ sets the depth.
func (d *Drawable) SetZ(z float32) {
	d.z = z
	d.matrixUpdated = false
}

// SetAngle sets the rotation around the z axis in radians.
func (d *Drawable) SetAngle(rad float32) {
	d.angle = rad
	d.matrixUpdated = false
}

// SetMatrix installs a custom model matrix, disabling the automatic one
// until SetMatrix(nil).
func (d *Drawable) SetMatrix(m *mgl32.Mat4) {
	if m == nil {
		d.customMatrix = false
		d.matrixUpdated = false
		return
	}
	d.matrix = *m
	d.customMatrix = true
}

// Matrix returns the model matrix, recomputing it if a geometry setter ran.
//
// The automatic matrix is T(position, z) · R(angle) · S(scale) · T(-origin),
// so origin maps to position and is the pivot of rotation and scaling.
func (d *Drawable) Matrix() mgl32.Mat4 {
	if d.customMatrix || d.matrixUpdated {
		return d.matrix
	}
	d.matrix = mgl32.Translate3D(d.position[0], d.position[1], d.z).
		Mul4(mgl32.HomogRotate3DZ(d.angle)).
		Mul4(mgl32.Scale3D(d.scale[0], d.scale[1], 1)).
		Mul4(mgl32.Translate3D(-d.origin[0], -d.origin[1], 0))
	d.matrixUpdated = true
	return d.matrix
}

// FillOwnBuffer refills and uploads the vertex data if it changed.
//
// On failure the drawable stays changed, so the next draw retries. A failed
// allocation leaves the drawable without a slice and never affects other
// drawables' data.
func (d *Drawable) FillOwnBuffer() error {
	if d.destroyed {
		return ErrDestroyed
	}
	if !d.changed {
		return nil
	}
	if d.vertexCount == 0 {
		d.alloc.Free(&d.slice)
		d.changed = false
		return nil
	}
	if d.slice.Length != d.vertexCount {
		if err := d.alloc.Recreate(&d.slice, d.vertexCount); err != nil {
			return fmt.Errorf("ggdraw: lease %d vertices: %w", d.vertexCount, err)
		}
	}
	dst, err := d.alloc.Staging(d.slice)
	if err != nil {
		return fmt.Errorf("ggdraw: fill: %w", err)
	}
	d.shape.Fill(d, dst)
	if err := d.alloc.Update(d.slice); err != nil {
		return fmt.Errorf("ggdraw: upload: %w", err)
	}
	d.changed = false
	return nil
}

// Draw renders the drawable through view.
//
// The drawable's own shader wins over shader. Vertex data is refilled if it
// changed, the slab buffer, program, model-view and texture state are bound,
// then the shape issues the draw at the slice offset. A drawable with no
// vertices draws nothing.
func (d *Drawable) Draw(view *View, shader *Shader) error {
	if d.destroyed {
		return ErrDestroyed
	}
	if err := d.FillOwnBuffer(); err != nil {
		logging.Logger().Warn("ggdraw: fill failed", slog.Any("err", err))
		return err
	}
	if d.vertexCount == 0 {
		return nil
	}
	eff := d.shader
	if eff == nil {
		eff = shader
	}
	if err := view.UseShader(eff); err != nil {
		return err
	}
	ctx := view.Context()
	if err := d.alloc.Bind(ctx, d.slice); err != nil {
		return fmt.Errorf("ggdraw: bind: %w", err)
	}

	m := d.Matrix()
	view.SetModelView(eff, m)
	view.SetTextureEnabled(eff, d.textured)
	if d.textured {
		view.BindTexture(d.texture)
	}

	return d.shape.Render(DrawCall{
		View:     view,
		Device:   ctx.Device(),
		Shader:   eff,
		Drawable: d,
		Layout:   d.layout,
		First:    d.slice.Offset,
		Count:    d.slice.Length,
		Matrix:   m,
	})
}

// Destroy releases the slice and any resources of the shape. Destroying
// twice is a no-op.
func (d *Drawable) Destroy() {
	if d.destroyed {
		return
	}
	d.alloc.Free(&d.slice)
	if r, ok := d.shape.(releaser); ok {
		r.Release()
	}
	d.destroyed = true
}
