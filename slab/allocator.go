// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package slab

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/gogpu/ggdraw/bindcache"
	"github.com/gogpu/ggdraw/gpucore"
	"github.com/gogpu/ggdraw/gpuctx"
	"github.com/gogpu/ggdraw/internal/logging"
)

// Errors returned by the allocator.
var (
	// ErrUnknownLayout is returned for a layout ID that was never registered.
	ErrUnknownLayout = errors.New("slab: unknown layout")

	// ErrInvalidLayout is returned by RegisterLayout for malformed layouts.
	ErrInvalidLayout = errors.New("slab: invalid layout")

	// ErrInvalidLength is returned when allocating zero elements.
	ErrInvalidLength = errors.New("slab: invalid length")

	// ErrStaleSlice is returned for a slice whose range is no longer leased.
	ErrStaleSlice = errors.New("slab: stale slice")

	// ErrClosed is returned after Close.
	ErrClosed = errors.New("slab: allocator closed")
)

// DefaultSlabBudget is the byte size new slabs are sized to.
const DefaultSlabBudget = 64 << 10

// GrowPolicy selects what happens when no slab of a layout has room.
type GrowPolicy uint8

const (
	// GrowNewSlab creates another slab. Existing slabs never change size.
	GrowNewSlab GrowPolicy = iota

	// GrowInPlace widens the last slab by recreating its GPU buffer with
	// double the capacity and re-uploading the staged contents. Ranges keep
	// their offsets; only the buffer handle changes.
	GrowInPlace
)

// String returns the string representation of GrowPolicy.
func (p GrowPolicy) String() string {
	switch p {
	case GrowNewSlab:
		return "NewSlab"
	case GrowInPlace:
		return "InPlace"
	default:
		return fmt.Sprintf("GrowPolicy(%d)", int(p))
	}
}

// Slice is a lease of Length contiguous elements at Offset in one slab.
//
// A Slice is a value naming a range, not a pointer into the slab, so slabs
// may change buffers without invalidating it. Its location is unstable
// across Recreate. The zero Length means the slice is unallocated.
type Slice struct {
	Layout LayoutID
	Slab   int
	Offset uint32
	Length uint32
}

// Allocated reports whether the slice holds a lease.
func (s Slice) Allocated() bool { return s.Length > 0 }

// Range returns the leased range.
func (s Slice) Range() Range { return Range{Offset: s.Offset, Length: s.Length} }

// End returns the element index one past the slice.
func (s Slice) End() uint32 { return s.Offset + s.Length }

// Stats describes allocator usage.
type Stats struct {
	Slabs         int
	Capacity      uint64 // elements, all layouts
	Leased        uint64 // elements, all layouts
	Uploads       uint64
	UploadedBytes uint64
	Widenings     uint64
}

// pool is the slab arena of one layout. Slabs are only ever appended.
type pool struct {
	layout Layout
	slabs  []*slab
}

type options struct {
	budget   uint64
	capacity uint32
	policy   GrowPolicy
	layouts  []Layout
}

// Option configures an Allocator.
type Option func(*options)

// WithSlabBudget sizes new slabs to hold as many elements as fit in bytes.
func WithSlabBudget(bytes uint64) Option {
	return func(o *options) { o.budget = bytes }
}

// WithDefaultCapacity sizes new slabs to n elements regardless of stride.
// It takes precedence over WithSlabBudget.
func WithDefaultCapacity(n uint32) Option {
	return func(o *options) { o.capacity = n }
}

// WithGrowPolicy sets the growth policy.
func WithGrowPolicy(p GrowPolicy) Option {
	return func(o *options) { o.policy = p }
}

// WithLayouts registers additional layouts.
func WithLayouts(layouts ...Layout) Option {
	return func(o *options) { o.layouts = append(o.layouts, layouts...) }
}

// Allocator packs leases of many sizes into few GPU buffers.
//
// An Allocator is not safe for concurrent use. All calls must come from the
// goroutine owning its context, or be serialised by the caller.
type Allocator struct {
	ctx   *gpuctx.Context
	binds *bindcache.Cache
	kind  gpucore.Kind
	opts  options
	pools map[LayoutID]*pool

	stats  Stats
	closed bool
}

// New creates a vertex allocator on ctx's device. binds may be shared with
// other allocators and views; nil creates a private cache.
// LayoutPosColor and LayoutPosTexColor are registered.
func New(ctx *gpuctx.Context, binds *bindcache.Cache, opts ...Option) *Allocator {
	base := []Option{
		WithGrowPolicy(GrowNewSlab),
		WithLayouts(LayoutPosColor, LayoutPosTexColor),
	}
	return newAllocator(ctx, binds, gpucore.KindVertexBuffer, append(base, opts...))
}

// NewIndex creates an index allocator. IndexLayout16 and IndexLayout32 are
// registered and slabs grow in place by default.
func NewIndex(ctx *gpuctx.Context, binds *bindcache.Cache, opts ...Option) *Allocator {
	base := []Option{
		WithGrowPolicy(GrowInPlace),
		WithLayouts(IndexLayout16, IndexLayout32),
	}
	return newAllocator(ctx, binds, gpucore.KindIndexBuffer, append(base, opts...))
}

func newAllocator(ctx *gpuctx.Context, binds *bindcache.Cache, kind gpucore.Kind, opts []Option) *Allocator {
	if binds == nil {
		binds = bindcache.New()
	}
	a := &Allocator{
		ctx:   ctx,
		binds: binds,
		kind:  kind,
		opts:  options{budget: DefaultSlabBudget},
		pools: make(map[LayoutID]*pool),
	}
	for _, opt := range opts {
		opt(&a.opts)
	}
	for _, l := range a.opts.layouts {
		if err := a.RegisterLayout(l); err != nil {
			logging.Logger().Warn("slab: layout rejected", slog.String("layout", l.String()), slog.Any("err", err))
		}
	}
	return a
}

// Context returns the context whose device owns the slabs.
func (a *Allocator) Context() *gpuctx.Context { return a.ctx }

// Binds returns the binding cache.
func (a *Allocator) Binds() *bindcache.Cache { return a.binds }

// Kind returns the buffer kind of the slabs.
func (a *Allocator) Kind() gpucore.Kind { return a.kind }

// Policy returns the growth policy.
func (a *Allocator) Policy() GrowPolicy { return a.opts.policy }

// RegisterLayout makes l available for allocation. Registering an identical
// layout twice is a no-op; reusing an ID for a different stride is an error.
func (a *Allocator) RegisterLayout(l Layout) error {
	if err := l.validate(); err != nil {
		return err
	}
	if p, ok := a.pools[l.ID]; ok {
		if p.layout.Stride != l.Stride {
			return fmt.Errorf("%w: layout %d already registered with stride %d", ErrInvalidLayout, l.ID, p.layout.Stride)
		}
		return nil
	}
	a.pools[l.ID] = &pool{layout: l}
	return nil
}

// Layout returns a registered layout.
func (a *Allocator) Layout(id LayoutID) (Layout, bool) {
	p, ok := a.pools[id]
	if !ok {
		return Layout{}, false
	}
	return p.layout, true
}

func (a *Allocator) poolFor(id LayoutID) (*pool, error) {
	if a.closed {
		return nil, ErrClosed
	}
	p, ok := a.pools[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownLayout, id)
	}
	return p, nil
}

// defaultCapacity returns the element count of a fresh slab of l.
func (a *Allocator) defaultCapacity(l Layout) uint32 {
	if a.opts.capacity > 0 {
		return a.opts.capacity
	}
	n := a.opts.budget / l.Stride
	if n == 0 {
		return 1
	}
	if n > 1<<31 {
		return 1 << 31
	}
	return uint32(n)
}

// bufferSize returns the byte size of a buffer holding capacity elements,
// rounded up to the upload alignment so aligned uploads never overrun.
func (a *Allocator) bufferSize(l Layout, capacity uint32) uint64 {
	return alignUp(uint64(capacity)*l.Stride, a.alignment())
}

func (a *Allocator) alignment() uint64 {
	if al := a.ctx.Device().Limits().UploadAlignment; al > 1 {
		return al
	}
	return 1
}

// Allocate leases n contiguous elements of layout.
//
// Slabs are searched in creation order and, within a slab, gaps in offset
// order; the first gap that fits wins. When nothing fits the allocator grows
// according to its policy and places the lease there. A device failure while
// growing is returned wrapped and leaves every existing lease untouched.
func (a *Allocator) Allocate(layout LayoutID, n uint32) (Slice, error) {
	p, err := a.poolFor(layout)
	if err != nil {
		return Slice{}, err
	}
	if n == 0 {
		return Slice{}, fmt.Errorf("%w: zero elements of %s", ErrInvalidLength, p.layout)
	}

	for i, s := range p.slabs {
		if pos, off, ok := s.fit(n); ok {
			s.lease(pos, off, n)
			return Slice{Layout: layout, Slab: i, Offset: off, Length: n}, nil
		}
	}

	var idx int
	if a.opts.policy == GrowInPlace && len(p.slabs) > 0 {
		idx = len(p.slabs) - 1
		if err := a.widen(p, idx, n); err != nil {
			return Slice{}, err
		}
	} else {
		if err := a.addSlab(p, max(n, a.defaultCapacity(p.layout))); err != nil {
			return Slice{}, err
		}
		idx = len(p.slabs) - 1
	}

	s := p.slabs[idx]
	pos, off, ok := s.fit(n)
	if !ok {
		// Growth always leaves room for n.
		panic(fmt.Sprintf("slab: grown slab %d of %s cannot fit %d elements", idx, p.layout, n))
	}
	s.lease(pos, off, n)
	return Slice{Layout: layout, Slab: idx, Offset: off, Length: n}, nil
}

func (a *Allocator) addSlab(p *pool, capacity uint32) error {
	size := a.bufferSize(p.layout, capacity)
	h, err := a.ctx.Device().CreateBuffer(a.kind, size)
	if err != nil {
		return fmt.Errorf("slab: create %s slab of %d elements: %w", p.layout, capacity, err)
	}
	p.slabs = append(p.slabs, newSlab(h, capacity, size))
	a.stats.Slabs++
	a.stats.Capacity += uint64(capacity)
	logging.Logger().Debug("slab: created",
		slog.String("layout", p.layout.String()),
		slog.Int("slab", len(p.slabs)-1),
		slog.Uint64("capacity", uint64(capacity)),
		slog.Uint64("bytes", size))
	return nil
}

// widen replaces the buffer of slab idx with one that has room for n more
// elements after its last range. Staged contents are copied to the new
// buffer so every range keeps its data.
func (a *Allocator) widen(p *pool, idx int, n uint32) error {
	s := p.slabs[idx]
	need := uint64(s.tail()) + uint64(n)
	capacity := uint64(s.capacity) * 2
	if capacity < need {
		capacity = need
	}
	if capacity > 1<<31 {
		return fmt.Errorf("slab: widen %s slab %d to %d elements: %w", p.layout, idx, capacity, gpucore.ErrOutOfMemory)
	}

	dev := a.ctx.Device()
	size := a.bufferSize(p.layout, uint32(capacity))
	h, err := dev.CreateBuffer(a.kind, size)
	if err != nil {
		return fmt.Errorf("slab: widen %s slab %d: %w", p.layout, idx, err)
	}
	staging := make([]byte, size)
	copy(staging, s.staging)

	if used := min(alignUp(uint64(s.tail())*p.layout.Stride, a.alignment()), size); used > 0 {
		if err := dev.WriteBuffer(a.kind, h, 0, staging[:used]); err != nil {
			dev.DestroyBuffer(h)
			return fmt.Errorf("slab: copy %s slab %d: %w", p.layout, idx, err)
		}
		a.stats.Uploads++
		a.stats.UploadedBytes += used
	}

	a.binds.WillDelete(a.kind, s.buffer)
	dev.DestroyBuffer(s.buffer)

	a.stats.Capacity += capacity - uint64(s.capacity)
	a.stats.Widenings++
	logging.Logger().Debug("slab: widened",
		slog.String("layout", p.layout.String()),
		slog.Int("slab", idx),
		slog.Uint64("from", uint64(s.capacity)),
		slog.Uint64("to", capacity))

	s.buffer = h
	s.capacity = uint32(capacity)
	s.staging = staging
	return nil
}

// lookup returns the slab a slice names and the index of its range, or
// ErrStaleSlice when the exact range is not leased.
func (a *Allocator) lookup(sl Slice) (*pool, *slab, error) {
	p, err := a.poolFor(sl.Layout)
	if err != nil {
		return nil, nil, err
	}
	if !sl.Allocated() || sl.Slab < 0 || sl.Slab >= len(p.slabs) {
		return nil, nil, fmt.Errorf("%w: %+v", ErrStaleSlice, sl)
	}
	s := p.slabs[sl.Slab]
	i, ok := s.find(sl.Offset)
	if !ok || s.ranges.Get(i).Length != sl.Length {
		return nil, nil, fmt.Errorf("%w: %+v", ErrStaleSlice, sl)
	}
	return p, s, nil
}

// Validate reports ErrStaleSlice when sl does not name a leased range
// exactly.
func (a *Allocator) Validate(sl Slice) error {
	_, _, err := a.lookup(sl)
	return err
}

// FreeAt releases the range starting at offset in slab. It reports whether a
// range was released; freeing an unknown or already freed range is a no-op.
func (a *Allocator) FreeAt(layout LayoutID, slabIndex int, offset uint32) bool {
	p, err := a.poolFor(layout)
	if err != nil || slabIndex < 0 || slabIndex >= len(p.slabs) {
		return false
	}
	return p.slabs[slabIndex].release(offset)
}

// Free releases sl and resets it to an unallocated slice of the same layout.
// Freeing an unallocated slice is a no-op.
func (a *Allocator) Free(sl *Slice) {
	if sl == nil || !sl.Allocated() {
		return
	}
	a.FreeAt(sl.Layout, sl.Slab, sl.Offset)
	*sl = Slice{Layout: sl.Layout}
}

// Recreate resizes sl to n elements.
//
// Growing frees the old range and allocates again, so the slice may move and
// its staged contents are not carried over. Zero frees the slice. Shrinking
// keeps the offset and trims the range. An unallocated slice is allocated.
// If growing fails the slice is left unallocated.
func (a *Allocator) Recreate(sl *Slice, n uint32) error {
	if a.closed {
		return ErrClosed
	}
	if !sl.Allocated() {
		if n == 0 {
			return nil
		}
		fresh, err := a.Allocate(sl.Layout, n)
		if err != nil {
			return err
		}
		*sl = fresh
		return nil
	}
	_, s, err := a.lookup(*sl)
	if err != nil {
		return err
	}
	switch {
	case n == 0:
		a.Free(sl)
		return nil
	case n <= sl.Length:
		i, _ := s.find(sl.Offset)
		s.ranges.Get(i).Length = n
		sl.Length = n
		return nil
	default:
		layout := sl.Layout
		a.Free(sl)
		fresh, err := a.Allocate(layout, n)
		if err != nil {
			return err
		}
		*sl = fresh
		return nil
	}
}

// Staging returns the CPU-side bytes of sl. Writes become visible to the
// GPU after Update.
func (a *Allocator) Staging(sl Slice) ([]byte, error) {
	p, s, err := a.lookup(sl)
	if err != nil {
		return nil, err
	}
	start := uint64(sl.Offset) * p.layout.Stride
	end := uint64(sl.End()) * p.layout.Stride
	return s.staging[start:end:end], nil
}

// Update uploads the staged bytes of sl, and only those, to the GPU. The
// byte range is widened to the device upload alignment; neighbouring bytes
// are re-sent from staging unchanged.
func (a *Allocator) Update(sl Slice) error {
	return a.UpdateRange(sl, 0, sl.Length)
}

// UpdateRange uploads count elements of sl starting at element first of the
// slice.
func (a *Allocator) UpdateRange(sl Slice, first, count uint32) error {
	p, s, err := a.lookup(sl)
	if err != nil {
		return err
	}
	if uint64(first)+uint64(count) > uint64(sl.Length) {
		return fmt.Errorf("%w: range [%d,+%d) outside slice of %d", ErrInvalidLength, first, count, sl.Length)
	}
	if count == 0 {
		return nil
	}
	al := a.alignment()
	start := uint64(sl.Offset+first) * p.layout.Stride / al * al
	end := min(alignUp(uint64(sl.Offset+first+count)*p.layout.Stride, al), uint64(len(s.staging)))
	if err := a.ctx.Device().WriteBuffer(a.kind, s.buffer, start, s.staging[start:end]); err != nil {
		return fmt.Errorf("slab: upload %s [%d,%d): %w", p.layout, start, end, err)
	}
	a.stats.Uploads++
	a.stats.UploadedBytes += end - start
	return nil
}

// Buffer returns the GPU buffer holding sl.
func (a *Allocator) Buffer(sl Slice) (gpucore.Handle, error) {
	_, s, err := a.lookup(sl)
	if err != nil {
		return gpucore.InvalidHandle, err
	}
	return s.buffer, nil
}

// Bind binds the buffer holding sl on ctx through the binding cache.
// A nil ctx means the allocator's own context.
func (a *Allocator) Bind(ctx *gpuctx.Context, sl Slice) error {
	h, err := a.Buffer(sl)
	if err != nil {
		return err
	}
	if ctx == nil {
		ctx = a.ctx
	}
	a.binds.Bind(ctx, a.kind, h)
	return nil
}

// Ranges returns a copy of the leased ranges of one slab, in offset order.
func (a *Allocator) Ranges(layout LayoutID, slabIndex int) []Range {
	p, ok := a.pools[layout]
	if !ok || slabIndex < 0 || slabIndex >= len(p.slabs) {
		return nil
	}
	return p.slabs[slabIndex].snapshot()
}

// SlabCount returns the number of slabs of layout.
func (a *Allocator) SlabCount(layout LayoutID) int {
	if p, ok := a.pools[layout]; ok {
		return len(p.slabs)
	}
	return 0
}

// SlabCapacity returns the capacity in elements of one slab.
func (a *Allocator) SlabCapacity(layout LayoutID, slabIndex int) uint32 {
	p, ok := a.pools[layout]
	if !ok || slabIndex < 0 || slabIndex >= len(p.slabs) {
		return 0
	}
	return p.slabs[slabIndex].capacity
}

// Stats returns usage counters.
func (a *Allocator) Stats() Stats {
	st := a.stats
	st.Leased = 0
	for _, p := range a.pools {
		for _, s := range p.slabs {
			st.Leased += s.leased()
		}
	}
	return st
}

// Close destroys every slab buffer. Outstanding slices become stale.
// Closing twice is a no-op.
func (a *Allocator) Close() {
	if a.closed {
		return
	}
	a.closed = true
	dev := a.ctx.Device()
	ids := make([]LayoutID, 0, len(a.pools))
	for id := range a.pools {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		p := a.pools[id]
		for _, s := range p.slabs {
			a.binds.WillDelete(a.kind, s.buffer)
			dev.DestroyBuffer(s.buffer)
		}
		p.slabs = nil
	}
	logging.Logger().Debug("slab: closed",
		slog.String("kind", a.kind.String()),
		slog.Int("slabs", a.stats.Slabs))
}

func alignUp(v, a uint64) uint64 {
	if a <= 1 {
		return v
	}
	return (v + a - 1) / a * a
}
