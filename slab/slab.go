// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package slab

import (
	"sort"

	"github.com/gogpu/ggdraw/gpucore"
	"github.com/gogpu/ggdraw/internal/array"
)

// Range is a leased run of elements inside one slab.
type Range struct {
	Offset uint32
	Length uint32
}

// End returns the element index one past the range.
func (r Range) End() uint32 { return r.Offset + r.Length }

// Overlaps reports whether r and o share at least one element.
func (r Range) Overlaps(o Range) bool {
	return r.Offset < o.End() && o.Offset < r.End()
}

// slab is one GPU buffer subdivided into leased ranges.
//
// ranges is sorted by Offset and its entries never overlap. staging mirrors
// the GPU buffer and is what Update uploads from.
type slab struct {
	buffer   gpucore.Handle
	capacity uint32
	ranges   *array.Array[Range]
	staging  []byte
}

func newSlab(buffer gpucore.Handle, capacity uint32, size uint64) *slab {
	return &slab{
		buffer:   buffer,
		capacity: capacity,
		ranges:   array.New[Range](array.WithCapacity[Range](8)),
		staging:  make([]byte, size),
	}
}

// fit finds the first gap of at least n elements, scanning from offset 0
// through the gaps between ranges to the tail. It returns the insertion
// position in ranges and the gap offset.
func (s *slab) fit(n uint32) (pos int, offset uint32, ok bool) {
	var cursor uint32
	rs := s.ranges.Slice()
	for i, r := range rs {
		if r.Offset-cursor >= n {
			return i, cursor, true
		}
		cursor = r.End()
	}
	if s.capacity-cursor >= n {
		return len(rs), cursor, true
	}
	return 0, 0, false
}

// lease records a new range at pos as returned by fit.
func (s *slab) lease(pos int, offset, n uint32) {
	s.ranges.Insert(pos, Range{Offset: offset, Length: n})
}

// find returns the index of the range starting at offset.
func (s *slab) find(offset uint32) (int, bool) {
	rs := s.ranges.Slice()
	i := sort.Search(len(rs), func(i int) bool { return rs[i].Offset >= offset })
	if i < len(rs) && rs[i].Offset == offset {
		return i, true
	}
	return 0, false
}

// release removes the range starting at offset. Missing ranges are ignored.
func (s *slab) release(offset uint32) bool {
	i, ok := s.find(offset)
	if !ok {
		return false
	}
	s.ranges.Delete(i)
	return true
}

// tail returns the end of the last range, or 0 for an empty slab.
func (s *slab) tail() uint32 {
	if r := s.ranges.Get(s.ranges.Len() - 1); r != nil {
		return r.End()
	}
	return 0
}

// leased returns the number of leased elements.
func (s *slab) leased() uint64 {
	var n uint64
	for _, r := range s.ranges.Slice() {
		n += uint64(r.Length)
	}
	return n
}

// snapshot copies the range list.
func (s *slab) snapshot() []Range {
	return append([]Range(nil), s.ranges.Slice()...)
}
