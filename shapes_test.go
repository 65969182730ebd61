package ggdraw

import (
	"encoding/binary"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/gogpu/ggdraw/gpucore"
	"github.com/gogpu/ggdraw/slab"
	"github.com/gogpu/gputypes"
)

func TestPolygonVertexCount(t *testing.T) {
	tests := []struct {
		name    string
		points  int
		indexed bool
		want    uint32
	}{
		{"empty", 0, false, 0},
		{"two points", 2, false, 0},
		{"triangle", 3, false, 3},
		{"quad", 4, false, 6},
		{"hexagon", 6, false, 12},
		{"indexed quad", 4, true, 4},
		{"indexed two points", 2, true, 0},
	}
	r := newRig(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewPolygon(make([]mgl32.Vec2, tt.points), White)
			if tt.indexed {
				p.UseIndices(r.indices)
			}
			if got := p.VertexCount(); got != tt.want {
				t.Errorf("VertexCount() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestPolygonFillFan(t *testing.T) {
	r := newRig(t)
	d := r.drawable(t, slab.LayoutPosColorID, NewRect(4, 2, Red))
	if err := d.FillOwnBuffer(); err != nil {
		t.Fatal(err)
	}
	data, err := r.alloc.Staging(d.Slice())
	if err != nil {
		t.Fatal(err)
	}
	want := []mgl32.Vec2{{0, 0}, {4, 0}, {4, 2}, {0, 0}, {4, 2}, {0, 2}}
	stride := int(slab.PosColorStride)
	for i, w := range want {
		v := data[i*stride:]
		if got := getVec2(v); got != w {
			t.Errorf("vertex %d position = %v, want %v", i, got, w)
		}
		if c := getFloat(v[8:]); c != 1 {
			t.Errorf("vertex %d red = %v, want 1", i, c)
		}
	}
}

func TestPolygonTextureCoordinates(t *testing.T) {
	r := newRig(t)
	d := r.drawable(t, slab.LayoutPosTexColorID, NewRect(8, 4, White))
	if err := d.FillOwnBuffer(); err != nil {
		t.Fatal(err)
	}
	data, _ := r.alloc.Staging(d.Slice())
	stride := int(slab.PosTexColorStride)
	// Vertex 2 is the (8, 4) corner.
	if uv := getVec2(data[2*stride+8:]); uv != (mgl32.Vec2{1, 1}) {
		t.Errorf("far corner uv = %v, want (1, 1)", uv)
	}
}

func TestPolygonIndexedDraw(t *testing.T) {
	r := newRig(t)
	// Occupy the start of the slab so the polygon lands at a non-zero offset.
	if _, err := r.alloc.Allocate(slab.LayoutPosColorID, 10); err != nil {
		t.Fatal(err)
	}
	p := NewRect(10, 10, Red).UseIndices(r.indices)
	d := r.drawable(t, slab.LayoutPosColorID, p)
	if d.VertexCount() != 4 {
		t.Fatalf("VertexCount() = %d, want 4", d.VertexCount())
	}

	if err := d.Draw(r.view, r.shader); err != nil {
		t.Fatalf("Draw() error = %v", err)
	}
	if len(r.dev.Draws) != 1 {
		t.Fatalf("draws = %d, want 1", len(r.dev.Draws))
	}
	got := r.dev.Draws[0]
	if !got.Indexed || got.Format != gputypes.IndexFormatUint16 {
		t.Fatalf("draw = %+v, want an indexed uint16 draw", got)
	}
	if got.First != p.idxSlice.Offset || got.Count != 6 || got.BaseVertex != 10 {
		t.Errorf("draw indices [%d,+%d) base %d, want [%d,+6) base 10", got.First, got.Count, got.BaseVertex, p.idxSlice.Offset)
	}
	ib, err := r.indices.Buffer(p.idxSlice)
	if err != nil {
		t.Fatal(err)
	}
	if got.IndexBuffer != ib {
		t.Errorf("index buffer bound = %d, want %d", got.IndexBuffer, ib)
	}

	data := r.dev.BufferData(ib)
	base := int(p.idxSlice.Offset) * 2
	want := []uint16{0, 1, 2, 0, 2, 3}
	for i, w := range want {
		if idx := binary.LittleEndian.Uint16(data[base+2*i:]); idx != w {
			t.Errorf("index %d = %d, want %d", i, idx, w)
		}
	}

	// Indices are uploaded once per point count.
	r.dev.ResetCalls()
	if err := d.Draw(r.view, r.shader); err != nil {
		t.Fatal(err)
	}
	for _, w := range r.dev.Writes {
		if w.Kind == gpucore.KindIndexBuffer {
			t.Errorf("redraw uploaded indices: %+v", w)
		}
	}
}

func TestPolygonIndexWidth(t *testing.T) {
	r := newRig(t)
	p := NewRect(10, 10, Red).UseIndices(r.indices)
	d := r.drawable(t, slab.LayoutPosColorID, p)
	if err := d.Draw(r.view, r.shader); err != nil {
		t.Fatal(err)
	}
	if f := r.dev.Draws[0].Format; f != gputypes.IndexFormatUint16 {
		t.Fatalf("small polygon index format = %v, want uint16", f)
	}

	const n = 70000
	p.SetPoints(make([]mgl32.Vec2, n))
	d.Refresh()
	if err := d.Draw(r.view, r.shader); err != nil {
		t.Fatalf("Draw() after growth error = %v", err)
	}
	got := r.dev.Draws[1]
	if got.Format != gputypes.IndexFormatUint32 || got.Count != 3*(n-2) {
		t.Fatalf("draw = format %v count %d, want uint32 and %d indices", got.Format, got.Count, 3*(n-2))
	}
	if p.idxSlice.Layout != slab.IndexLayout32ID {
		t.Errorf("index lease layout = %d, want %d", p.idxSlice.Layout, slab.IndexLayout32ID)
	}
	ib, err := r.indices.Buffer(p.idxSlice)
	if err != nil {
		t.Fatal(err)
	}
	data := r.dev.BufferData(ib)
	last := (int(p.idxSlice.Offset) + 3*(n-2) - 1) * 4
	if idx := binary.LittleEndian.Uint32(data[last:]); idx != n-1 {
		t.Errorf("last index = %d, want %d", idx, n-1)
	}

	p.SetPoints(make([]mgl32.Vec2, 5))
	d.Refresh()
	if err := d.Draw(r.view, r.shader); err != nil {
		t.Fatal(err)
	}
	if got := r.dev.Draws[2]; got.Format != gputypes.IndexFormatUint16 || got.Count != 9 {
		t.Errorf("draw after shrink = format %v count %d, want uint16 and 9", got.Format, got.Count)
	}
	if p.idxSlice.Layout != slab.IndexLayout16ID {
		t.Errorf("index lease layout after shrink = %d, want %d", p.idxSlice.Layout, slab.IndexLayout16ID)
	}
}

func TestSpriteFill(t *testing.T) {
	r := newRig(t)
	s := NewSprite(gpucore.Handle(77), 16, 8)
	s.SetRegion(0.25, 0.5, 0.75, 1)
	d := r.drawable(t, slab.LayoutPosTexColorID, s)
	if !d.Textured() || d.Texture() != 77 || d.VertexCount() != 6 {
		t.Fatalf("sprite drawable: textured %v, texture %d, vertices %d", d.Textured(), d.Texture(), d.VertexCount())
	}
	if err := d.FillOwnBuffer(); err != nil {
		t.Fatal(err)
	}
	data, _ := r.alloc.Staging(d.Slice())
	stride := int(slab.PosTexColorStride)

	wantPos := []mgl32.Vec2{{0, 0}, {16, 0}, {16, 8}, {0, 0}, {16, 8}, {0, 8}}
	wantUV := []mgl32.Vec2{{0.25, 0.5}, {0.75, 0.5}, {0.75, 1}, {0.25, 0.5}, {0.75, 1}, {0.25, 1}}
	for i := range wantPos {
		v := data[i*stride:]
		if got := getVec2(v); got != wantPos[i] {
			t.Errorf("vertex %d position = %v, want %v", i, got, wantPos[i])
		}
		if got := getVec2(v[8:]); got != wantUV[i] {
			t.Errorf("vertex %d uv = %v, want %v", i, got, wantUV[i])
		}
	}
}

func TestSpriteDrawBindsTexture(t *testing.T) {
	r := newRig(t)
	d := r.drawable(t, slab.LayoutPosTexColorID, NewSprite(gpucore.Handle(77), 16, 8))
	if err := d.Draw(r.view, r.shader); err != nil {
		t.Fatal(err)
	}
	if tex := r.dev.Draws[0].Texture; tex != 77 {
		t.Errorf("draw texture = %d, want 77", tex)
	}
	var flag *int32
	for _, u := range r.dev.Uniforms {
		if u.Slot == gpucore.UniformTextureEnabled {
			flag = &u.Int
		}
	}
	if flag == nil || *flag != 1 {
		t.Errorf("texture-enabled flag = %v, want 1", flag)
	}
}

func TestCustomShapeRender(t *testing.T) {
	r := newRig(t)
	var seen DrawCall
	shape := &CustomShape{
		Count: 3,
		RenderFunc: func(call DrawCall) error {
			seen = call
			call.Device.Draw(gputypes.PrimitiveTopologyTriangleList, call.First, 1)
			return nil
		},
	}
	d := r.drawable(t, slab.LayoutPosColorID, shape)
	if err := d.Draw(r.view, r.shader); err != nil {
		t.Fatal(err)
	}
	if seen.Drawable != d || seen.Shader != r.shader || seen.Count != 3 {
		t.Errorf("render call = %+v", seen)
	}
	if r.dev.Draws[0].Count != 1 {
		t.Errorf("draw count = %d, want the custom 1", r.dev.Draws[0].Count)
	}
}

func TestTextureUploadAndDestroy(t *testing.T) {
	r := newRig(t)
	img := testImage(4, 2)
	h, err := UploadTexture(r.ctx, img)
	if err != nil {
		t.Fatalf("UploadTexture() error = %v", err)
	}
	r.view.BindTexture(h)
	if bound, _ := r.binds.Bound(r.ctx, gpucore.KindTexture); bound != h {
		t.Fatalf("bound texture = %d, want %d", bound, h)
	}

	DestroyTexture(r.ctx, r.binds, h)
	if bound, _ := r.binds.Bound(r.ctx, gpucore.KindTexture); bound == h {
		t.Error("binding cache still holds the destroyed texture")
	}
	if len(r.dev.Destroyed) != 1 || r.dev.Destroyed[0] != h {
		t.Errorf("destroyed = %v, want [%d]", r.dev.Destroyed, h)
	}
	DestroyTexture(r.ctx, r.binds, gpucore.InvalidHandle)
}
