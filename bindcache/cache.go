// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package bindcache elides redundant GPU bind calls.
//
// For every resource kind the cache remembers the last bound handle and the
// identity of the context it was bound under. A bind is skipped only when
// both match, so switching contexts always re-issues the bind. Correctness
// never depends on the cache: a missed elision costs one call, a wrong
// elision would draw from the wrong object.
package bindcache

import (
	"log/slog"
	"sync"

	"github.com/gogpu/ggdraw/gpucore"
	"github.com/gogpu/ggdraw/gpuctx"
	"github.com/gogpu/ggdraw/internal/logging"
)

type entry struct {
	handle gpucore.Handle
	ctxID  uint64
}

// Stats counts bind requests.
type Stats struct {
	// Issued is the number of bind calls forwarded to a device.
	Issued uint64
	// Elided is the number of bind requests skipped as redundant.
	Elided uint64
}

// Cache is a process-wide binding cache.
//
// Cache is safe for concurrent use. Contexts owned by different goroutines
// never share entries because every entry carries its context identity.
type Cache struct {
	mu      sync.Mutex
	entries [gpucore.NumKinds]entry
	stats   Stats
}

// New returns an empty cache.
func New() *Cache {
	return &Cache{}
}

// Bind makes h the bound object of kind on ctx, calling the device only when
// the cache cannot prove the binding is already in place. It reports whether
// a bind call was issued.
func (c *Cache) Bind(ctx *gpuctx.Context, kind gpucore.Kind, h gpucore.Handle) bool {
	if kind >= gpucore.NumKinds {
		// Unknown kinds are never cached.
		ctx.Device().Bind(kind, h)
		return true
	}
	c.mu.Lock()
	e := &c.entries[kind]
	if e.ctxID == ctx.ID() && e.handle == h {
		c.stats.Elided++
		c.mu.Unlock()
		return false
	}
	e.handle = h
	e.ctxID = ctx.ID()
	c.stats.Issued++
	c.mu.Unlock()

	ctx.Device().Bind(kind, h)
	return true
}

// Bound returns the handle the cache believes is bound for kind on ctx.
// It reports false when the last binding happened under another context.
func (c *Cache) Bound(ctx *gpuctx.Context, kind gpucore.Kind) (gpucore.Handle, bool) {
	if kind >= gpucore.NumKinds {
		return gpucore.InvalidHandle, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	e := c.entries[kind]
	if e.ctxID == 0 || e.ctxID != ctx.ID() {
		return gpucore.InvalidHandle, false
	}
	return e.handle, true
}

// WillDelete must be called before h is destroyed. It forgets every entry of
// the handle's namespace that names h, so a later object reusing the same
// handle value is bound again.
func (c *Cache) WillDelete(kind gpucore.Kind, h gpucore.Handle) {
	if !h.Valid() {
		return
	}
	ns := kind.Namespace()
	c.mu.Lock()
	defer c.mu.Unlock()
	for k := range c.entries {
		if gpucore.Kind(k).Namespace() == ns && c.entries[k].handle == h {
			c.entries[k] = entry{}
		}
	}
}

// Invalidate forgets every binding. Use it after device loss or when the
// host changed GPU state behind the cache's back.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = [gpucore.NumKinds]entry{}
}

// Forget drops the bindings recorded under ctx. It is registered as a
// close hook by Track.
func (c *Cache) Forget(ctx *gpuctx.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k := range c.entries {
		if c.entries[k].ctxID == ctx.ID() {
			c.entries[k] = entry{}
		}
	}
}

// Track arranges for ctx's bindings to be forgotten when ctx is closed.
func (c *Cache) Track(ctx *gpuctx.Context) {
	ctx.OnClose(c.Forget)
}

// Stats returns the bind counters.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

// LogStats writes the counters at debug level.
func (c *Cache) LogStats() {
	s := c.Stats()
	logging.Logger().Debug("bindcache: stats",
		slog.Uint64("issued", s.Issued),
		slog.Uint64("elided", s.Elided))
}
