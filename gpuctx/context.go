// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package gpuctx tracks logical connections to a graphics device.
//
// A Context wraps one gpucore.Device together with the host handle it came
// from. Every Context gets a process-unique, monotonically increasing ID at
// creation; other components use the ID purely as a cache-invalidation key
// ("did the active context change?"). The registry does not track which GPU
// resources belong to which context; resource owners do.
//
// A Thread holds the current context of one goroutine. Go has no
// thread-local storage, so each goroutine that issues GPU calls owns its own
// Thread and passes it (or the Context itself) explicitly.
package gpuctx

import (
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/gogpu/ggdraw/gpucore"
	"github.com/gogpu/ggdraw/internal/logging"
)

// ErrClosed is returned when using a context after Close.
var ErrClosed = errors.New("gpuctx: context closed")

// lastID is the identity counter shared by all contexts.
var lastID atomic.Uint64

// Presenter swaps the back buffer of a window-backed context.
// It is supplied by the windowing layer.
type Presenter interface {
	SwapBuffers(ctx *Context) error
}

// PresenterFunc adapts a function to Presenter.
type PresenterFunc func(ctx *Context) error

// SwapBuffers calls f(ctx).
func (f PresenterFunc) SwapBuffers(ctx *Context) error { return f(ctx) }

// Option configures a Context.
type Option func(*Context)

// WithLabel sets a debug label.
func WithLabel(label string) Option {
	return func(c *Context) { c.label = label }
}

// WithDeviceHandle records the host handle the device was created from.
func WithDeviceHandle(h DeviceHandle) Option {
	return func(c *Context) { c.handle = h }
}

// WithPresenter sets the buffer-swap callback.
func WithPresenter(p Presenter) Option {
	return func(c *Context) { c.presenter = p }
}

// WithBackground marks the context as an implicit background context.
func WithBackground() Option {
	return func(c *Context) { c.background = true }
}

// Context is one logical connection to a graphics device.
//
// Calls against one Context must come from one goroutine at a time; the
// context does not serialise GPU calls. Its callback lists are guarded so
// that resize notifications may arrive from the windowing goroutine.
type Context struct {
	id         uint64
	device     gpucore.Device
	handle     DeviceHandle
	presenter  Presenter
	label      string
	background bool
	closed     atomic.Bool

	mu       sync.Mutex
	onResize []func(width, height int)
	onClose  []func(*Context)
}

// New creates a context for device. The context receives the next identity.
func New(device gpucore.Device, opts ...Option) *Context {
	c := &Context{
		id:     lastID.Add(1),
		device: device,
		handle: NullDeviceHandle{},
	}
	for _, opt := range opts {
		opt(c)
	}
	logging.Logger().Info("gpuctx: context created",
		slog.Uint64("id", c.id),
		slog.String("label", c.label),
		slog.Bool("background", c.background))
	return c
}

// ID returns the context identity. IDs are unique for the process lifetime
// and increase with creation order.
func (c *Context) ID() uint64 { return c.id }

// Device returns the device of the context.
func (c *Context) Device() gpucore.Device { return c.device }

// DeviceHandle returns the host handle, or NullDeviceHandle.
func (c *Context) DeviceHandle() DeviceHandle { return c.handle }

// Label returns the debug label.
func (c *Context) Label() string { return c.label }

// Background reports whether the context was created implicitly.
func (c *Context) Background() bool { return c.background }

// Closed reports whether Close was called.
func (c *Context) Closed() bool { return c.closed.Load() }

// SwapBuffers presents the frame through the windowing layer.
// Contexts without a presenter (offscreen, background) do nothing.
func (c *Context) SwapBuffers() error {
	if c.Closed() {
		return ErrClosed
	}
	if c.presenter == nil {
		return nil
	}
	return c.presenter.SwapBuffers(c)
}

// OnResize registers fn to run on every NotifyResize.
func (c *Context) OnResize(fn func(width, height int)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onResize = append(c.onResize, fn)
}

// NotifyResize forwards a surface resize from the windowing layer to every
// registered callback.
func (c *Context) NotifyResize(width, height int) {
	c.mu.Lock()
	fns := append([]func(int, int)(nil), c.onResize...)
	c.mu.Unlock()
	for _, fn := range fns {
		fn(width, height)
	}
}

// OnClose registers fn to run once when the context is closed.
func (c *Context) OnClose(fn func(*Context)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onClose = append(c.onClose, fn)
}

// Close marks the context closed and runs the close callbacks.
// Closing an already-closed context is a no-op.
func (c *Context) Close() {
	if !c.closed.CompareAndSwap(false, true) {
		return
	}
	c.mu.Lock()
	fns := c.onClose
	c.onClose = nil
	c.mu.Unlock()
	for _, fn := range fns {
		fn(c)
	}
	logging.Logger().Debug("gpuctx: context closed", slog.Uint64("id", c.id))
}
