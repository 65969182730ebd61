package ggdraw

import (
	"fmt"
	"log/slog"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/gogpu/ggdraw/gpucore"
	"github.com/gogpu/ggdraw/internal/logging"
	"github.com/gogpu/ggdraw/slab"
	"github.com/gogpu/gputypes"
)

// minBatchCapacity is the vertex capacity of a batch's first buffer.
const minBatchCapacity = 64

type batchMember struct {
	d        *Drawable
	first    uint32
	count    uint32
	textured bool
	texture  gpucore.Handle
}

// Batch draws many drawables of one layout from one shared buffer.
//
// Push fills a drawable's vertices straight into the batch buffer, already
// transformed by the drawable's matrix; the drawable's own slice is not
// used. Render uploads only when membership changed since the last upload,
// binds the buffer once and issues one draw per run of consecutive members
// with the same texture state. Members are not owned: clearing or
// destroying the batch leaves them untouched.
//
// Batch layouts carry 2D positions, so batched members are flattened: a
// member's z (SetZ) is dropped and members stack in push order instead.
// Draw a drawable on its own to keep its z in the model-view matrix.
//
// A Batch is not safe for concurrent use.
type Batch struct {
	alloc  *slab.Allocator
	layout slab.Layout
	pos    int

	data     []byte
	capacity uint32
	vertices uint32
	members  []batchMember

	slice     slab.Slice
	dirty     bool
	destroyed bool
}

// NewBatch creates an empty batch for layout. The layout needs a float32x2
// position at shader location 0.
func NewBatch(alloc *slab.Allocator, layout slab.LayoutID) (*Batch, error) {
	l, ok := alloc.Layout(layout)
	if !ok {
		return nil, fmt.Errorf("ggdraw: new batch: %w: %d", slab.ErrUnknownLayout, layout)
	}
	attr, ok := l.PositionAttribute()
	if !ok || attr.Format != gputypes.VertexFormatFloat32x2 {
		return nil, fmt.Errorf("%w: %s has no float32x2 position", ErrUnsupportedLayout, l)
	}
	return &Batch{
		alloc:  alloc,
		layout: l,
		pos:    int(attr.Offset),
		slice:  slab.Slice{Layout: layout},
	}, nil
}

// Len returns the number of members.
func (b *Batch) Len() int { return len(b.members) }

// VertexCount returns the number of vertices filled.
func (b *Batch) VertexCount() uint32 { return b.vertices }

// Capacity returns how many vertices fit before the buffer grows.
func (b *Batch) Capacity() uint32 { return b.capacity }

// Layout returns the batch layout.
func (b *Batch) Layout() slab.Layout { return b.layout }

// Slice returns the GPU lease backing the batch.
func (b *Batch) Slice() slab.Slice { return b.slice }

// reserve grows the CPU buffer by doubling until n vertices fit.
func (b *Batch) reserve(n uint32) {
	if n <= b.capacity {
		return
	}
	c := max(b.capacity, minBatchCapacity)
	for c < n {
		c *= 2
	}
	data := make([]byte, uint64(c)*b.layout.Stride)
	copy(data, b.data[:uint64(b.vertices)*b.layout.Stride])
	b.data = data
	b.capacity = c
}

// Push appends d's vertices to the batch, transformed by d's matrix in the
// z=0 plane.
func (b *Batch) Push(d *Drawable) error {
	if b.destroyed || d.Destroyed() {
		return ErrDestroyed
	}
	if d.Layout().ID != b.layout.ID {
		return fmt.Errorf("%w: drawable %s, batch %s", ErrLayoutMismatch, d.Layout(), b.layout)
	}
	n := d.VertexCount()
	if n == 0 {
		return nil
	}
	b.reserve(b.vertices + n)

	stride := b.layout.Stride
	dst := b.data[uint64(b.vertices)*stride : uint64(b.vertices+n)*stride]
	d.Shape().Fill(d, dst)
	if m := d.Matrix(); m != mgl32.Ident4() {
		transformPositions(dst, stride, b.pos, m)
	}

	b.members = append(b.members, batchMember{
		d:        d,
		first:    b.vertices,
		count:    n,
		textured: d.Textured(),
		texture:  d.Texture(),
	})
	b.vertices += n
	b.dirty = true
	return nil
}

// Clear empties the batch and keeps its capacity.
func (b *Batch) Clear() {
	clear(b.members)
	b.members = b.members[:0]
	b.vertices = 0
	b.dirty = true
}

// upload copies the filled vertices into the batch's slab lease, growing the
// lease to the batch capacity first.
func (b *Batch) upload() error {
	if b.slice.Length < b.capacity {
		if err := b.alloc.Recreate(&b.slice, b.capacity); err != nil {
			return fmt.Errorf("ggdraw: lease batch of %d vertices: %w", b.capacity, err)
		}
	}
	staging, err := b.alloc.Staging(b.slice)
	if err != nil {
		return err
	}
	copy(staging, b.data[:uint64(b.vertices)*b.layout.Stride])
	if err := b.alloc.UpdateRange(b.slice, 0, b.vertices); err != nil {
		return fmt.Errorf("ggdraw: upload batch: %w", err)
	}
	b.dirty = false
	return nil
}

// Render draws every member with shader.
func (b *Batch) Render(view *View, shader *Shader) error {
	if b.destroyed {
		return ErrDestroyed
	}
	if b.vertices == 0 {
		return nil
	}
	if b.dirty {
		if err := b.upload(); err != nil {
			logging.Logger().Warn("ggdraw: batch upload failed", slog.Any("err", err))
			return err
		}
	}
	if err := view.UseShader(shader); err != nil {
		return err
	}
	ctx := view.Context()
	if err := b.alloc.Bind(ctx, b.slice); err != nil {
		return fmt.Errorf("ggdraw: bind batch: %w", err)
	}
	view.SetModelView(shader, mgl32.Ident4())

	dev := ctx.Device()
	for i := 0; i < len(b.members); {
		run := b.members[i]
		count := run.count
		j := i + 1
		for ; j < len(b.members); j++ {
			m := b.members[j]
			if m.textured != run.textured || m.texture != run.texture {
				break
			}
			count += m.count
		}
		view.SetTextureEnabled(shader, run.textured)
		if run.textured {
			view.BindTexture(run.texture)
		}
		dev.Draw(b.layout.Topology, b.slice.Offset+run.first, count)
		i = j
	}
	return nil
}

// Destroy releases the batch's lease. Members are not affected.
func (b *Batch) Destroy() {
	if b.destroyed {
		return
	}
	b.alloc.Free(&b.slice)
	b.members = nil
	b.data = nil
	b.destroyed = true
}
