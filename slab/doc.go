// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package slab packs many small vertex and index buffers into few large GPU
// buffers.
//
// An Allocator keeps, per Layout, an append-only list of slabs. Each slab is
// one GPU buffer with a CPU staging copy and a sorted list of leased ranges.
// Allocate is first-fit: slabs in creation order, gaps in offset order. Free
// gaps are never coalesced or compacted, so long sessions with mixed sizes
// can fragment a slab and cause a new slab to be created even though enough
// total space is free.
//
// A Slice names its lease by layout, slab index, offset and length. It stays
// valid while the slab's buffer is replaced by in-place growth, but Recreate
// may move it.
//
//	a := slab.New(ctx, binds)
//	s, err := a.Allocate(slab.LayoutPosColorID, 6)
//	buf, _ := a.Staging(s)
//	// write 6 vertices into buf
//	err = a.Update(s)
//	err = a.Bind(ctx, s)
//	ctx.Device().Draw(gputypes.PrimitiveTopologyTriangleList, s.Offset, s.Length)
package slab
