package ggdraw

import (
	"errors"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/gogpu/ggdraw/bindcache"
	"github.com/gogpu/ggdraw/gpucore"
	"github.com/gogpu/ggdraw/gpuctx"
	"github.com/gogpu/ggdraw/internal/gputest"
	"github.com/gogpu/ggdraw/slab"
)

// rig is one context with a recording device, a shared binding cache, a
// vertex and an index allocator and a 640×480 view.
type rig struct {
	dev     *gputest.Device
	ctx     *gpuctx.Context
	binds   *bindcache.Cache
	alloc   *slab.Allocator
	indices *slab.Allocator
	view    *View
	shader  *Shader
}

func newRig(t *testing.T, devOpts ...gputest.Option) *rig {
	t.Helper()
	dev := gputest.New(devOpts...)
	ctx := gpuctx.New(dev, gpuctx.WithLabel("test"))
	binds := bindcache.New()
	binds.Track(ctx)
	r := &rig{
		dev:     dev,
		ctx:     ctx,
		binds:   binds,
		alloc:   slab.New(ctx, binds),
		indices: slab.NewIndex(ctx, binds),
		shader:  NewShader(gpucore.Handle(1000), "flat"),
	}
	r.view = NewView(gpuctx.NewThread(), ctx, binds, NewSizeTarget(640, 480))
	t.Cleanup(func() {
		r.alloc.Close()
		r.indices.Close()
		ctx.Close()
	})
	return r
}

func (r *rig) drawable(t *testing.T, layout slab.LayoutID, shape Shape, opts ...DrawableOption) *Drawable {
	t.Helper()
	d, err := NewDrawable(r.alloc, layout, shape, opts...)
	if err != nil {
		t.Fatalf("NewDrawable() error = %v", err)
	}
	return d
}

// countingShape counts fills and writes a recognisable position per vertex.
func countingShape(n uint32, fills *int) *CustomShape {
	return &CustomShape{
		Count: n,
		FillFunc: func(d *Drawable, dst []byte) {
			*fills++
			w := newVertexWriter(d.Layout())
			for i := range int(d.VertexCount()) {
				w.put(dst, i, mgl32.Vec2{float32(i), 0}, mgl32.Vec2{}, White)
			}
		},
	}
}

func approxVec2(a, b mgl32.Vec2) bool {
	const eps = 1e-4
	return math.Abs(float64(a[0]-b[0])) < eps && math.Abs(float64(a[1]-b[1])) < eps
}

func apply(m mgl32.Mat4, p mgl32.Vec2) mgl32.Vec2 {
	v := m.Mul4x1(mgl32.Vec4{p[0], p[1], 0, 1})
	return mgl32.Vec2{v[0], v[1]}
}

func TestNewDrawableUnknownLayout(t *testing.T) {
	r := newRig(t)
	_, err := NewDrawable(r.alloc, slab.IndexLayout16ID, &CustomShape{Count: 3})
	if !errors.Is(err, slab.ErrUnknownLayout) {
		t.Fatalf("NewDrawable(index layout) error = %v, want ErrUnknownLayout", err)
	}
}

func TestNewDrawableOptions(t *testing.T) {
	r := newRig(t)
	s := NewShader(gpucore.Handle(7), "own")
	d := r.drawable(t, slab.LayoutPosColorID, &CustomShape{Count: 3},
		WithShader(s), WithVertexCount(9), WithTexture(gpucore.Handle(42)))

	if d.Shader() != s {
		t.Errorf("Shader() = %v, want %v", d.Shader(), s)
	}
	if d.VertexCount() != 9 {
		t.Errorf("VertexCount() = %d, want 9 from option", d.VertexCount())
	}
	if !d.Textured() || d.Texture() != 42 {
		t.Errorf("Textured(), Texture() = %v, %d, want true, 42", d.Textured(), d.Texture())
	}
	if d.Slice().Allocated() {
		t.Error("a new drawable leased a slice before its first fill")
	}
	if !d.Changed() {
		t.Error("a new drawable is not marked changed")
	}
}

func TestDrawableMatrixPivot(t *testing.T) {
	d := &Drawable{scale: mgl32.Vec2{1, 1}}

	if m := d.Matrix(); m != mgl32.Ident4() {
		t.Fatalf("default Matrix() = %v, want identity", m)
	}

	d.SetOrigin(10, 10)
	d.SetPosition(100, 50)
	if got := apply(d.Matrix(), mgl32.Vec2{10, 10}); !approxVec2(got, mgl32.Vec2{100, 50}) {
		t.Errorf("origin maps to %v, want position (100, 50)", got)
	}

	d.SetAngle(math.Pi / 2)
	d.SetScale(2, 2)
	if got := apply(d.Matrix(), mgl32.Vec2{10, 10}); !approxVec2(got, mgl32.Vec2{100, 50}) {
		t.Errorf("rotated and scaled origin maps to %v, want (100, 50)", got)
	}
	// One unit right of the pivot, scaled by 2 and rotated a quarter turn.
	if got := apply(d.Matrix(), mgl32.Vec2{11, 10}); !approxVec2(got, mgl32.Vec2{100, 52}) {
		t.Errorf("(11, 10) maps to %v, want (100, 52)", got)
	}

	d.SetZ(3)
	if z := d.Matrix().Col(3)[2]; z != 3 {
		t.Errorf("translation z = %v, want 3", z)
	}
}

func TestDrawableCustomMatrix(t *testing.T) {
	d := &Drawable{scale: mgl32.Vec2{1, 1}}
	custom := mgl32.Scale3D(5, 5, 1)
	d.SetMatrix(&custom)
	d.SetPosition(10, 10)
	if d.Matrix() != custom {
		t.Errorf("Matrix() = %v, want the custom matrix", d.Matrix())
	}
	d.SetMatrix(nil)
	if got := apply(d.Matrix(), mgl32.Vec2{}); !approxVec2(got, mgl32.Vec2{10, 10}) {
		t.Errorf("automatic matrix maps origin to %v, want (10, 10)", got)
	}
}

func TestDrawableLazyFill(t *testing.T) {
	r := newRig(t)
	fills := 0
	d := r.drawable(t, slab.LayoutPosColorID, countingShape(3, &fills))

	if err := d.Draw(r.view, r.shader); err != nil {
		t.Fatalf("first Draw() error = %v", err)
	}
	if fills != 1 || len(r.dev.Writes) != 1 {
		t.Fatalf("first draw: fills = %d, writes = %d, want 1, 1", fills, len(r.dev.Writes))
	}

	// Geometry changes only touch the matrix.
	d.SetPosition(5, 5)
	r.dev.ResetCalls()
	if err := d.Draw(r.view, r.shader); err != nil {
		t.Fatalf("second Draw() error = %v", err)
	}
	if fills != 1 || len(r.dev.Writes) != 0 {
		t.Errorf("second draw: fills = %d, writes = %d, want no refill", fills, len(r.dev.Writes))
	}
	if len(r.dev.Draws) != 1 {
		t.Fatalf("second draw issued %d draws, want 1", len(r.dev.Draws))
	}

	d.MarkChanged()
	if err := d.FillOwnBuffer(); err != nil {
		t.Fatalf("FillOwnBuffer() error = %v", err)
	}
	if fills != 2 || d.Changed() {
		t.Errorf("after MarkChanged: fills = %d, changed = %v", fills, d.Changed())
	}
}

func TestDrawableDrawState(t *testing.T) {
	r := newRig(t)
	d := r.drawable(t, slab.LayoutPosColorID, &CustomShape{Count: 6})
	d.SetPosition(4, 2)

	if err := d.Draw(r.view, r.shader); err != nil {
		t.Fatalf("Draw() error = %v", err)
	}
	buf, err := r.alloc.Buffer(d.Slice())
	if err != nil {
		t.Fatal(err)
	}
	got := r.dev.Draws[0]
	if got.Program != r.shader.Program || got.VertexBuffer != buf {
		t.Errorf("draw bound program %d buffer %d, want %d, %d", got.Program, got.VertexBuffer, r.shader.Program, buf)
	}
	if got.First != d.Slice().Offset || got.Count != 6 || got.Indexed {
		t.Errorf("draw = %+v, want non-indexed [%d,+6)", got, d.Slice().Offset)
	}

	var modelView *gputest.UniformCall
	for i, u := range r.dev.Uniforms {
		if u.Slot == gpucore.UniformModelView {
			modelView = &r.dev.Uniforms[i]
		}
	}
	if modelView == nil || modelView.Mat4 != d.Matrix() {
		t.Errorf("model-view uniform = %+v, want the drawable matrix", modelView)
	}
}

func TestDrawableOwnShaderWins(t *testing.T) {
	r := newRig(t)
	own := NewShader(gpucore.Handle(2000), "own")
	d := r.drawable(t, slab.LayoutPosColorID, &CustomShape{Count: 3}, WithShader(own))

	if err := d.Draw(r.view, r.shader); err != nil {
		t.Fatalf("Draw() error = %v", err)
	}
	if p := r.dev.Draws[0].Program; p != own.Program {
		t.Errorf("drew with program %d, want the drawable's %d", p, own.Program)
	}

	d.SetShader(nil)
	if err := d.Draw(r.view, r.shader); err != nil {
		t.Fatalf("Draw() error = %v", err)
	}
	if p := r.dev.Draws[1].Program; p != r.shader.Program {
		t.Errorf("drew with program %d, want the caller's %d", p, r.shader.Program)
	}
}

func TestDrawableNoShader(t *testing.T) {
	r := newRig(t)
	d := r.drawable(t, slab.LayoutPosColorID, &CustomShape{Count: 3})
	if err := d.Draw(r.view, nil); !errors.Is(err, ErrNoShader) {
		t.Errorf("Draw(nil shader) error = %v, want ErrNoShader", err)
	}
}

func TestDrawableZeroVertices(t *testing.T) {
	r := newRig(t)
	fills := 0
	d := r.drawable(t, slab.LayoutPosColorID, countingShape(0, &fills))

	if err := d.Draw(r.view, r.shader); err != nil {
		t.Fatalf("Draw() error = %v", err)
	}
	if fills != 0 || d.Slice().Allocated() || len(r.dev.Draws) != 0 {
		t.Errorf("empty drawable: fills = %d, slice = %+v, draws = %d", fills, d.Slice(), len(r.dev.Draws))
	}

	d.SetVertexCount(3)
	if err := d.Draw(r.view, r.shader); err != nil {
		t.Fatalf("Draw() error = %v", err)
	}
	d.SetVertexCount(0)
	if err := d.Draw(r.view, r.shader); err != nil {
		t.Fatalf("Draw() error = %v", err)
	}
	if d.Slice().Allocated() {
		t.Error("shrinking to zero vertices kept the lease")
	}
	if len(r.dev.Draws) != 1 {
		t.Errorf("draws = %d, want 1", len(r.dev.Draws))
	}
}

func TestDrawableVertexCountGrowth(t *testing.T) {
	r := newRig(t)
	fills := 0
	a := r.drawable(t, slab.LayoutPosColorID, countingShape(3, &fills))
	b := r.drawable(t, slab.LayoutPosColorID, countingShape(3, &fills))
	for _, d := range []*Drawable{a, b} {
		if err := d.FillOwnBuffer(); err != nil {
			t.Fatal(err)
		}
	}
	before := b.Slice()

	a.SetVertexCount(12)
	if err := a.FillOwnBuffer(); err != nil {
		t.Fatalf("FillOwnBuffer() error = %v", err)
	}
	if a.Slice().Length != 12 || a.Slice().Range().Overlaps(b.Slice().Range()) {
		t.Errorf("grown slice %+v overlaps %+v", a.Slice(), b.Slice())
	}
	if b.Slice() != before {
		t.Errorf("growing a moved b: %+v, want %+v", b.Slice(), before)
	}
}

func TestDrawableFillFailureRetries(t *testing.T) {
	r := newRig(t)
	fills := 0
	d := r.drawable(t, slab.LayoutPosColorID, countingShape(3, &fills))

	r.dev.FailNextCreates(1)
	err := d.Draw(r.view, r.shader)
	if !errors.Is(err, gpucore.ErrOutOfMemory) {
		t.Fatalf("Draw() error = %v, want ErrOutOfMemory", err)
	}
	if !d.Changed() || d.Slice().Allocated() || fills != 0 {
		t.Fatalf("after failure: changed = %v, slice = %+v, fills = %d", d.Changed(), d.Slice(), fills)
	}
	if len(r.dev.Draws) != 0 {
		t.Fatal("a failed fill still drew")
	}

	if err := d.Draw(r.view, r.shader); err != nil {
		t.Fatalf("retry Draw() error = %v", err)
	}
	if d.Changed() || fills != 1 || len(r.dev.Draws) != 1 {
		t.Errorf("after retry: changed = %v, fills = %d, draws = %d", d.Changed(), fills, len(r.dev.Draws))
	}
}

func TestDrawableDestroy(t *testing.T) {
	r := newRig(t)
	released := 0
	p := NewRect(10, 10, Red).UseIndices(r.indices)
	d := r.drawable(t, slab.LayoutPosColorID, p)
	if err := d.Draw(r.view, r.shader); err != nil {
		t.Fatalf("Draw() error = %v", err)
	}
	if !p.idxSlice.Allocated() {
		t.Fatal("indexed polygon drew without an index lease")
	}

	d.Destroy()
	d.Destroy()
	released = len(r.alloc.Ranges(slab.LayoutPosColorID, 0)) + len(r.indices.Ranges(slab.IndexLayout16ID, 0))
	if released != 0 {
		t.Errorf("%d ranges still leased after Destroy", released)
	}
	if !d.Destroyed() {
		t.Error("Destroyed() = false")
	}
	if err := d.Draw(r.view, r.shader); !errors.Is(err, ErrDestroyed) {
		t.Errorf("Draw() after Destroy error = %v, want ErrDestroyed", err)
	}
	if err := d.FillOwnBuffer(); !errors.Is(err, ErrDestroyed) {
		t.Errorf("FillOwnBuffer() after Destroy error = %v, want ErrDestroyed", err)
	}
}

func TestDrawableRefresh(t *testing.T) {
	r := newRig(t)
	p := NewPolygon([]mgl32.Vec2{{0, 0}, {1, 0}, {1, 1}}, Blue)
	d := r.drawable(t, slab.LayoutPosColorID, p)
	if d.VertexCount() != 3 {
		t.Fatalf("VertexCount() = %d, want 3", d.VertexCount())
	}
	if err := d.FillOwnBuffer(); err != nil {
		t.Fatal(err)
	}

	p.SetPoints([]mgl32.Vec2{{0, 0}, {1, 0}, {1, 1}, {0, 1}, {-1, 0}})
	d.Refresh()
	if d.VertexCount() != 9 || !d.Changed() {
		t.Errorf("after Refresh: VertexCount() = %d, Changed() = %v, want 9, true", d.VertexCount(), d.Changed())
	}
}
