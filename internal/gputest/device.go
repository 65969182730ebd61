// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package gputest provides a recording gpucore.Device for tests.
//
// Device keeps buffer contents in host memory and records every bind,
// upload, uniform write and draw so tests can assert on the exact GPU
// traffic a component produces.
package gputest

import (
	"fmt"
	"sync"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/gogpu/ggdraw/gpucore"
	"github.com/gogpu/gputypes"
)

// BindCall records one Bind.
type BindCall struct {
	Kind   gpucore.Kind
	Handle gpucore.Handle
}

// WriteCall records one WriteBuffer.
type WriteCall struct {
	Kind   gpucore.Kind
	Handle gpucore.Handle
	Offset uint64
	Size   uint64
}

// DrawCall records one Draw or DrawIndexed.
type DrawCall struct {
	Topology   gputypes.PrimitiveTopology
	Indexed    bool
	Format     gputypes.IndexFormat
	First      uint32
	Count      uint32
	BaseVertex int32

	// Program, VertexBuffer, IndexBuffer and Texture are the objects bound
	// when the draw was issued.
	Program      gpucore.Handle
	VertexBuffer gpucore.Handle
	IndexBuffer  gpucore.Handle
	Texture      gpucore.Handle
}

// UniformCall records one uniform write.
type UniformCall struct {
	Program gpucore.Handle
	Slot    gpucore.UniformSlot
	Mat4    mgl32.Mat4
	Int     int32
	IsInt   bool
}

// Buffer is a host-side buffer.
type Buffer struct {
	Kind gpucore.Kind
	Data []byte
}

// Texture is a host-side texture.
type Texture struct {
	Width, Height int
	Format        gputypes.TextureFormat
	Pixels        []byte
}

// Device is a recording gpucore.Device.
//
// The zero value is not usable; call New.
// Device is safe for concurrent use so it can back contexts owned by
// different goroutines in tests.
type Device struct {
	mu sync.Mutex

	limits   gpucore.Limits
	next     gpucore.Handle
	free     []gpucore.Handle
	reuse    bool
	buffers  map[gpucore.Handle]*Buffer
	textures map[gpucore.Handle]*Texture
	bound    [gpucore.NumKinds]gpucore.Handle

	// failCreate makes the next n buffer creations fail.
	failCreate int
	// budget caps the total bytes of live buffers; 0 means unlimited.
	budget uint64
	used   uint64

	Binds     []BindCall
	Writes    []WriteCall
	Draws     []DrawCall
	Uniforms  []UniformCall
	Created   []gpucore.Handle
	Destroyed []gpucore.Handle
}

// Option configures a Device.
type Option func(*Device)

// WithLimits sets the device limits.
func WithLimits(l gpucore.Limits) Option {
	return func(d *Device) { d.limits = l }
}

// WithHandleReuse makes the device hand out destroyed handles again,
// most recently destroyed first, the way GL name pools behave.
func WithHandleReuse() Option {
	return func(d *Device) { d.reuse = true }
}

// WithBudget caps the total bytes of live buffers. Creations beyond the cap
// fail with gpucore.ErrOutOfMemory.
func WithBudget(bytes uint64) Option {
	return func(d *Device) { d.budget = bytes }
}

// New creates a recording device.
func New(opts ...Option) *Device {
	d := &Device{
		limits:   gpucore.DefaultLimits(),
		next:     1,
		buffers:  make(map[gpucore.Handle]*Buffer),
		textures: make(map[gpucore.Handle]*Texture),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// FailNextCreates makes the next n CreateBuffer calls fail with
// gpucore.ErrOutOfMemory.
func (d *Device) FailNextCreates(n int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.failCreate = n
}

// ResetCalls clears the recorded call logs but keeps all objects.
func (d *Device) ResetCalls() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Binds = nil
	d.Writes = nil
	d.Draws = nil
	d.Uniforms = nil
	d.Created = nil
	d.Destroyed = nil
}

// BindCount returns how many Bind calls targeted kind.
func (d *Device) BindCount(kind gpucore.Kind) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for _, b := range d.Binds {
		if b.Kind == kind {
			n++
		}
	}
	return n
}

// BufferData returns a copy of a live buffer's contents.
func (d *Device) BufferData(h gpucore.Handle) []byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	b, ok := d.buffers[h]
	if !ok {
		return nil
	}
	return append([]byte(nil), b.Data...)
}

// LiveBuffers returns the number of buffers not yet destroyed.
func (d *Device) LiveBuffers() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.buffers)
}

func (d *Device) newHandle() gpucore.Handle {
	if d.reuse && len(d.free) > 0 {
		h := d.free[len(d.free)-1]
		d.free = d.free[:len(d.free)-1]
		return h
	}
	h := d.next
	d.next++
	return h
}

// Limits implements gpucore.Device.
func (d *Device) Limits() gpucore.Limits {
	return d.limits
}

// CreateBuffer implements gpucore.Device.
func (d *Device) CreateBuffer(kind gpucore.Kind, size uint64) (gpucore.Handle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.failCreate > 0 {
		d.failCreate--
		return gpucore.InvalidHandle, fmt.Errorf("gputest: create %v: %w", kind, gpucore.ErrOutOfMemory)
	}
	if d.budget > 0 && d.used+size > d.budget {
		return gpucore.InvalidHandle, fmt.Errorf("gputest: create %v of %d bytes: %w", kind, size, gpucore.ErrOutOfMemory)
	}
	if d.limits.MaxBufferSize > 0 && size > d.limits.MaxBufferSize {
		return gpucore.InvalidHandle, fmt.Errorf("gputest: buffer size %d exceeds limit: %w", size, gpucore.ErrOutOfMemory)
	}
	h := d.newHandle()
	d.buffers[h] = &Buffer{Kind: kind, Data: make([]byte, size)}
	d.used += size
	d.Created = append(d.Created, h)
	return h, nil
}

// DestroyBuffer implements gpucore.Device.
func (d *Device) DestroyBuffer(h gpucore.Handle) {
	d.mu.Lock()
	defer d.mu.Unlock()
	b, ok := d.buffers[h]
	if !ok {
		return
	}
	d.used -= uint64(len(b.Data))
	delete(d.buffers, h)
	d.free = append(d.free, h)
	d.Destroyed = append(d.Destroyed, h)
}

// WriteBuffer implements gpucore.Device.
func (d *Device) WriteBuffer(kind gpucore.Kind, h gpucore.Handle, offset uint64, data []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	b, ok := d.buffers[h]
	if !ok {
		return fmt.Errorf("gputest: write %v %d: %w", kind, h, gpucore.ErrUnknownHandle)
	}
	if a := d.limits.UploadAlignment; a > 1 && (offset%a != 0 || uint64(len(data))%a != 0) {
		return fmt.Errorf("gputest: write [%d,+%d) not aligned to %d", offset, len(data), a)
	}
	end := offset + uint64(len(data))
	if end > uint64(len(b.Data)) {
		return fmt.Errorf("gputest: write [%d,%d) overruns buffer of %d bytes", offset, end, len(b.Data))
	}
	copy(b.Data[offset:end], data)
	d.Writes = append(d.Writes, WriteCall{Kind: kind, Handle: h, Offset: offset, Size: uint64(len(data))})
	return nil
}

// CreateTexture implements gpucore.Device.
func (d *Device) CreateTexture(img gpucore.Image) (gpucore.Handle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	h := d.newHandle()
	d.textures[h] = &Texture{
		Width:  img.Width(),
		Height: img.Height(),
		Format: img.Format(),
		Pixels: append([]byte(nil), img.Pixels()...),
	}
	d.Created = append(d.Created, h)
	return h, nil
}

// DestroyTexture implements gpucore.Device.
func (d *Device) DestroyTexture(h gpucore.Handle) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.textures[h]; !ok {
		return
	}
	delete(d.textures, h)
	d.free = append(d.free, h)
	d.Destroyed = append(d.Destroyed, h)
}

// Bind implements gpucore.Device.
func (d *Device) Bind(kind gpucore.Kind, h gpucore.Handle) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if kind < gpucore.NumKinds {
		d.bound[kind] = h
	}
	d.Binds = append(d.Binds, BindCall{Kind: kind, Handle: h})
}

// Bound returns the object the device itself has bound for kind.
func (d *Device) Bound(kind gpucore.Kind) gpucore.Handle {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.bound[kind]
}

// SetUniformMat4 implements gpucore.Device.
func (d *Device) SetUniformMat4(program gpucore.Handle, slot gpucore.UniformSlot, m mgl32.Mat4) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Uniforms = append(d.Uniforms, UniformCall{Program: program, Slot: slot, Mat4: m})
}

// SetUniformInt implements gpucore.Device.
func (d *Device) SetUniformInt(program gpucore.Handle, slot gpucore.UniformSlot, v int32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Uniforms = append(d.Uniforms, UniformCall{Program: program, Slot: slot, Int: v, IsInt: true})
}

// UniformWrites returns the recorded writes to slot, oldest first.
func (d *Device) UniformWrites(slot gpucore.UniformSlot) []UniformCall {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []UniformCall
	for _, u := range d.Uniforms {
		if u.Slot == slot {
			out = append(out, u)
		}
	}
	return out
}

// Draw implements gpucore.Device.
func (d *Device) Draw(topology gputypes.PrimitiveTopology, first, count uint32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Draws = append(d.Draws, DrawCall{
		Topology:     topology,
		First:        first,
		Count:        count,
		Program:      d.bound[gpucore.KindProgram],
		VertexBuffer: d.bound[gpucore.KindVertexBuffer],
		Texture:      d.bound[gpucore.KindTexture],
	})
}

// DrawIndexed implements gpucore.Device.
func (d *Device) DrawIndexed(topology gputypes.PrimitiveTopology, format gputypes.IndexFormat, firstIndex, count uint32, baseVertex int32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Draws = append(d.Draws, DrawCall{
		Topology:     topology,
		Indexed:      true,
		Format:       format,
		First:        firstIndex,
		Count:        count,
		BaseVertex:   baseVertex,
		Program:      d.bound[gpucore.KindProgram],
		VertexBuffer: d.bound[gpucore.KindVertexBuffer],
		IndexBuffer:  d.bound[gpucore.KindIndexBuffer],
		Texture:      d.bound[gpucore.KindTexture],
	})
}

var _ gpucore.Device = (*Device)(nil)
