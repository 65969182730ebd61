package ggdraw

import (
	"encoding/binary"
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/gogpu/ggdraw/slab"
)

// Polygon is a convex polygon filled with one color.
//
// Without an index allocator it is drawn as a triangle fan unrolled into a
// triangle list, 3·(n-2) vertices. With UseIndices it stores each point once
// and draws through a fan index list leased from the index allocator.
type Polygon struct {
	points []mgl32.Vec2
	color  Color

	indices   *slab.Allocator
	idxSlice  slab.Slice
	idxLayout slab.LayoutID
	idxFor    int // point count the uploaded indices describe
}

// NewPolygon creates a polygon. Fewer than three points draw nothing.
func NewPolygon(points []mgl32.Vec2, c Color) *Polygon {
	return &Polygon{points: append([]mgl32.Vec2(nil), points...), color: c}
}

// NewRect creates an axis-aligned rectangle with its top-left corner at the
// local origin.
func NewRect(w, h float32, c Color) *Polygon {
	return NewPolygon([]mgl32.Vec2{{0, 0}, {w, 0}, {w, h}, {0, h}}, c)
}

// UseIndices makes the polygon draw indexed, leasing its indices from ia.
func (p *Polygon) UseIndices(ia *slab.Allocator) *Polygon {
	p.indices = ia
	p.idxLayout = indexLayoutFor(len(p.points))
	return p
}

// indexLayoutFor returns the narrowest index layout addressing n points.
func indexLayoutFor(n int) slab.LayoutID {
	if n > 1<<16 {
		return slab.IndexLayout32ID
	}
	return slab.IndexLayout16ID
}

// Indexed reports whether the polygon draws through an index buffer.
func (p *Polygon) Indexed() bool { return p.indices != nil }

// Points returns the polygon's points.
func (p *Polygon) Points() []mgl32.Vec2 { return p.points }

// SetPoints replaces the points. Call Drawable.Refresh afterwards.
func (p *Polygon) SetPoints(points []mgl32.Vec2) {
	p.points = append(p.points[:0], points...)
}

// Color returns the fill color.
func (p *Polygon) Color() Color { return p.color }

// SetColor replaces the fill color. Call Drawable.MarkChanged afterwards.
func (p *Polygon) SetColor(c Color) { p.color = c }

func (p *Polygon) triangles() int {
	if len(p.points) < 3 {
		return 0
	}
	return len(p.points) - 2
}

// VertexCount implements the vertex count query of NewDrawable.
func (p *Polygon) VertexCount() uint32 {
	if p.triangles() == 0 {
		return 0
	}
	if p.Indexed() {
		return uint32(len(p.points))
	}
	return uint32(3 * p.triangles())
}

// Fill implements Shape. Texture coordinates, when the layout has them, map
// the polygon's bounding box to [0,1]².
func (p *Polygon) Fill(d *Drawable, dst []byte) {
	w := newVertexWriter(d.Layout())
	lo, size := p.bounds()
	uv := func(pt mgl32.Vec2) mgl32.Vec2 {
		if !w.hasUV() || size[0] == 0 || size[1] == 0 {
			return mgl32.Vec2{}
		}
		return mgl32.Vec2{(pt[0] - lo[0]) / size[0], (pt[1] - lo[1]) / size[1]}
	}

	if p.Indexed() {
		for i, pt := range p.points {
			w.put(dst, i, pt, uv(pt), p.color)
		}
		return
	}
	v := 0
	for i := 1; i+1 < len(p.points); i++ {
		for _, pt := range [3]mgl32.Vec2{p.points[0], p.points[i], p.points[i+1]} {
			w.put(dst, v, pt, uv(pt), p.color)
			v++
		}
	}
}

func (p *Polygon) bounds() (lo, size mgl32.Vec2) {
	if len(p.points) == 0 {
		return
	}
	lo, hi := p.points[0], p.points[0]
	for _, pt := range p.points[1:] {
		lo = mgl32.Vec2{min(lo[0], pt[0]), min(lo[1], pt[1])}
		hi = mgl32.Vec2{max(hi[0], pt[0]), max(hi[1], pt[1])}
	}
	return lo, hi.Sub(lo)
}

// Render implements Shape.
func (p *Polygon) Render(call DrawCall) error {
	if !p.Indexed() {
		call.DrawArrays()
		return nil
	}
	if err := p.uploadIndices(); err != nil {
		return err
	}
	if err := p.indices.Bind(call.View.Context(), p.idxSlice); err != nil {
		return fmt.Errorf("ggdraw: bind indices: %w", err)
	}
	l, _ := p.indices.Layout(p.idxLayout)
	call.Device.DrawIndexed(call.Layout.Topology, l.IndexFormat, p.idxSlice.Offset, p.idxSlice.Length, int32(call.First))
	return nil
}

// uploadIndices leases and writes the fan index list once per point count.
// The lease moves to the 32-bit layout when the points outgrow 16-bit
// indices, and back when they shrink.
func (p *Polygon) uploadIndices() error {
	if p.idxFor == len(p.points) && p.idxSlice.Allocated() {
		return nil
	}
	if want := indexLayoutFor(len(p.points)); p.idxSlice.Layout != want {
		p.indices.Free(&p.idxSlice)
		p.idxLayout = want
	}
	if !p.idxSlice.Allocated() {
		p.idxSlice = slab.Slice{Layout: p.idxLayout}
	}
	n := uint32(3 * p.triangles())
	if err := p.indices.Recreate(&p.idxSlice, n); err != nil {
		return fmt.Errorf("ggdraw: lease %d indices: %w", n, err)
	}
	dst, err := p.indices.Staging(p.idxSlice)
	if err != nil {
		return err
	}
	l, _ := p.indices.Layout(p.idxLayout)
	put := func(i int, v uint32) {
		if l.Stride == 2 {
			binary.LittleEndian.PutUint16(dst[2*i:], uint16(v))
		} else {
			binary.LittleEndian.PutUint32(dst[4*i:], v)
		}
	}
	for t := range p.triangles() {
		put(3*t, 0)
		put(3*t+1, uint32(t+1))
		put(3*t+2, uint32(t+2))
	}
	if err := p.indices.Update(p.idxSlice); err != nil {
		return err
	}
	p.idxFor = len(p.points)
	return nil
}

// Release frees the index lease.
func (p *Polygon) Release() {
	if p.indices != nil {
		p.indices.Free(&p.idxSlice)
		p.idxFor = 0
	}
}
