package gpucore

import (
	"errors"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/gogpu/gputypes"
)

// Device errors.
var (
	// ErrOutOfMemory is returned (possibly wrapped) when the device cannot
	// allocate a buffer or texture.
	ErrOutOfMemory = errors.New("gpucore: out of device memory")

	// ErrUnknownHandle is returned when a handle does not name a live object.
	ErrUnknownHandle = errors.New("gpucore: unknown handle")

	// ErrDeviceLost is returned after the device has been destroyed.
	ErrDeviceLost = errors.New("gpucore: device lost")
)

// Device is the graphics API the rendering core runs on.
//
// Device models one primary API with bindable buffer, array, texture and
// program objects. Implementations translate each call into backend work;
// see backend/halgpu for the wgpu HAL implementation.
//
// A Device is used by one goroutine at a time. Callers serialise access per
// context; implementations do not lock around GPU calls.
type Device interface {
	// Limits returns the device limits.
	Limits() Limits

	// CreateBuffer creates a buffer of kind with size bytes.
	CreateBuffer(kind Kind, size uint64) (Handle, error)

	// DestroyBuffer releases a buffer. Unknown handles are ignored.
	DestroyBuffer(h Handle)

	// WriteBuffer uploads data into the buffer at byte offset.
	WriteBuffer(kind Kind, h Handle, offset uint64, data []byte) error

	// CreateTexture uploads img into a new sampled texture.
	CreateTexture(img Image) (Handle, error)

	// DestroyTexture releases a texture. Unknown handles are ignored.
	DestroyTexture(h Handle)

	// Bind makes h the current object of kind.
	Bind(kind Kind, h Handle)

	// SetUniformMat4 writes a matrix uniform of program.
	SetUniformMat4(program Handle, slot UniformSlot, m mgl32.Mat4)

	// SetUniformInt writes an integer uniform of program.
	SetUniformInt(program Handle, slot UniformSlot, v int32)

	// Draw issues a non-indexed draw of count vertices starting at first,
	// using the bound vertex buffer and program.
	Draw(topology gputypes.PrimitiveTopology, first, count uint32)

	// DrawIndexed issues an indexed draw of count indices starting at
	// firstIndex in the bound index buffer. baseVertex is added to every
	// index before it is used to fetch a vertex.
	DrawIndexed(topology gputypes.PrimitiveTopology, format gputypes.IndexFormat, firstIndex, count uint32, baseVertex int32)
}
