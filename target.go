// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package ggdraw

import (
	"github.com/gogpu/ggdraw/gpuctx"
	"github.com/gogpu/gputypes"
)

// Target defines where a View renders to.
//
// A Target only describes the destination; presenting frames is the job of
// the context's presenter. Implementations:
//   - SizeTarget: a bare size for offscreen and headless rendering
//   - SurfaceTarget: a window surface of the host application
type Target interface {
	// Width returns the target width in pixels.
	Width() int

	// Height returns the target height in pixels.
	Height() int

	// Format returns the pixel format of the target.
	Format() gputypes.TextureFormat
}

// Resizer is implemented by targets whose size follows resize
// notifications.
type Resizer interface {
	Resize(width, height int)
}

// SizeTarget is a target that is only a size.
type SizeTarget struct {
	width  int
	height int
	format gputypes.TextureFormat
}

// NewSizeTarget creates an RGBA8 target of the given size.
func NewSizeTarget(width, height int) *SizeTarget {
	return &SizeTarget{width: width, height: height, format: gputypes.TextureFormatRGBA8Unorm}
}

// Width returns the target width in pixels.
func (t *SizeTarget) Width() int { return t.width }

// Height returns the target height in pixels.
func (t *SizeTarget) Height() int { return t.height }

// Format returns the pixel format.
func (t *SizeTarget) Format() gputypes.TextureFormat { return t.format }

// Resize changes the size.
func (t *SizeTarget) Resize(width, height int) {
	t.width, t.height = width, height
}

// SurfaceTarget wraps a window surface from the host application.
//
// The pixel format comes from the host's device handle, so the view always
// matches what the host presents.
type SurfaceTarget struct {
	handle gpuctx.DeviceHandle
	width  int
	height int
}

// NewSurfaceTarget creates a render target for the host surface behind
// handle.
func NewSurfaceTarget(handle gpuctx.DeviceHandle, width, height int) *SurfaceTarget {
	if handle == nil {
		handle = gpuctx.NullDeviceHandle{}
	}
	return &SurfaceTarget{handle: handle, width: width, height: height}
}

// Width returns the surface width in pixels.
func (t *SurfaceTarget) Width() int { return t.width }

// Height returns the surface height in pixels.
func (t *SurfaceTarget) Height() int { return t.height }

// Format returns the surface pixel format.
func (t *SurfaceTarget) Format() gputypes.TextureFormat {
	return t.handle.SurfaceFormat()
}

// Resize follows a surface resize.
func (t *SurfaceTarget) Resize(width, height int) {
	t.width, t.height = width, height
}

// DeviceHandle returns the host handle.
func (t *SurfaceTarget) DeviceHandle() gpuctx.DeviceHandle { return t.handle }

var (
	_ Target  = (*SizeTarget)(nil)
	_ Resizer = (*SizeTarget)(nil)
	_ Target  = (*SurfaceTarget)(nil)
	_ Resizer = (*SurfaceTarget)(nil)
)
