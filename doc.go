// Package ggdraw renders many small shapes through few GPU buffers.
//
// # Overview
//
// Every Drawable leases a slice of a shared GPU buffer from a slab.Allocator
// sized to its vertex count. Vertex data is produced lazily: the first Draw,
// or the first Draw after MarkChanged or SetVertexCount, fills the slice's
// staging bytes through the drawable's Shape and uploads only that byte
// range. Geometry setters (position, origin, scale, angle, z) only invalidate
// the cached model matrix; they never touch vertex data.
//
// # Quick Start
//
//	dev, _, _ := backend.Default(host)
//	ctx := gpuctx.New(dev)
//	binds := bindcache.New()
//	alloc := slab.New(ctx, binds)
//
//	view := ggdraw.NewView(gpuctx.NewThread(), ctx, binds, ggdraw.NewSizeTarget(800, 600))
//	poly := ggdraw.NewPolygon([]mgl32.Vec2{{0, 0}, {100, 0}, {50, 80}}, ggdraw.Red)
//	d, _ := ggdraw.NewDrawable(alloc, slab.LayoutPosColorID, poly)
//	d.SetPosition(200, 150)
//
//	_ = view.BeginFrame()
//	_ = d.Draw(view, shader)
//	_ = view.Present()
//
// # Batching
//
// A Batch fills many drawables of one layout straight into one buffer,
// transforming their positions on the CPU, and draws them with one bind and
// one draw call per run of members sharing texture state.
//
// # Coordinate System
//
// The default projection maps the target's pixel grid with the origin at the
// top-left corner, X increasing right and Y increasing down. Angles are in
// radians.
//
// # Threading
//
// Drawables, batches, views and allocators are single-writer: calls against
// one context come from one goroutine. Each goroutine issuing GPU calls owns
// a gpuctx.Thread. Only the binding cache is safe for concurrent use.
package ggdraw

// Version is the current version of the library.
const Version = "0.1.0"
