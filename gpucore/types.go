package gpucore

import (
	"fmt"
	"image"

	"github.com/gogpu/gputypes"
)

// Resource handles
//
// A Handle is an opaque GPU object name. Each Device implementation maintains
// its own mapping between handles and backend resources. Handles are uint64
// to accommodate various backend handle sizes.

// Handle is an opaque handle to a GPU object.
type Handle uint64

// InvalidHandle is the zero value, representing an unset/null resource.
const InvalidHandle Handle = 0

// Valid reports whether h names an object.
func (h Handle) Valid() bool { return h != InvalidHandle }

// Kind identifies a bindable resource kind.
type Kind uint8

// Bindable resource kinds.
const (
	// KindVertexBuffer is a buffer holding vertex data.
	KindVertexBuffer Kind = iota

	// KindIndexBuffer is a buffer holding index data.
	KindIndexBuffer

	// KindVertexArray is a vertex array object (attribute state).
	KindVertexArray

	// KindTexture is a sampled texture.
	KindTexture

	// KindProgram is a linked shader program.
	KindProgram

	// KindPixelPackBuffer is a buffer used for pixel readback.
	KindPixelPackBuffer

	// KindPixelUnpackBuffer is a buffer used as a pixel upload source.
	KindPixelUnpackBuffer

	// KindFramebuffer is a framebuffer object.
	KindFramebuffer

	// KindRenderbuffer is a renderbuffer object.
	KindRenderbuffer

	// NumKinds is the number of resource kinds.
	NumKinds
)

var kindNames = [NumKinds]string{
	KindVertexBuffer:      "VertexBuffer",
	KindIndexBuffer:       "IndexBuffer",
	KindVertexArray:       "VertexArray",
	KindTexture:           "Texture",
	KindProgram:           "Program",
	KindPixelPackBuffer:   "PixelPackBuffer",
	KindPixelUnpackBuffer: "PixelUnpackBuffer",
	KindFramebuffer:       "Framebuffer",
	KindRenderbuffer:      "Renderbuffer",
}

// String returns the string representation of Kind.
func (k Kind) String() string {
	if k < NumKinds {
		return kindNames[k]
	}
	return fmt.Sprintf("Unknown(%d)", int(k))
}

// Namespace groups kinds whose handles come from the same name pool.
// Deleting a handle affects every kind in its namespace.
type Namespace uint8

// Handle namespaces.
const (
	NamespaceBuffer Namespace = iota
	NamespaceVertexArray
	NamespaceTexture
	NamespaceProgram
	NamespaceFramebuffer
	NamespaceRenderbuffer
)

// Namespace returns the handle namespace of k.
func (k Kind) Namespace() Namespace {
	switch k {
	case KindVertexBuffer, KindIndexBuffer, KindPixelPackBuffer, KindPixelUnpackBuffer:
		return NamespaceBuffer
	case KindVertexArray:
		return NamespaceVertexArray
	case KindTexture:
		return NamespaceTexture
	case KindProgram:
		return NamespaceProgram
	case KindFramebuffer:
		return NamespaceFramebuffer
	default:
		return NamespaceRenderbuffer
	}
}

// IsBuffer reports whether k is a buffer kind.
func (k Kind) IsBuffer() bool { return k.Namespace() == NamespaceBuffer }

// BufferUsage returns the gputypes usage flags for a buffer of kind k.
// Every buffer is a copy destination because data arrives by sub-range upload.
func (k Kind) BufferUsage() gputypes.BufferUsage {
	switch k {
	case KindVertexBuffer:
		return gputypes.BufferUsageVertex | gputypes.BufferUsageCopyDst
	case KindIndexBuffer:
		return gputypes.BufferUsageIndex | gputypes.BufferUsageCopyDst
	case KindPixelPackBuffer:
		return gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst
	case KindPixelUnpackBuffer:
		return gputypes.BufferUsageCopySrc | gputypes.BufferUsageCopyDst
	default:
		return gputypes.BufferUsageCopyDst
	}
}

// UniformSlot is a well-known uniform location of a compiled program.
// Custom uniforms are looked up by name and cached by the caller.
type UniformSlot uint8

// Well-known uniform slots.
const (
	// UniformProjection is the projection matrix (mat4).
	UniformProjection UniformSlot = iota

	// UniformModelView is the model-view matrix (mat4).
	UniformModelView

	// UniformTexture is the bound-texture sampler unit (int).
	UniformTexture

	// UniformTextureEnabled toggles texture sampling (int, 0 or 1).
	UniformTextureEnabled

	// NumUniformSlots is the number of well-known slots.
	NumUniformSlots
)

// String returns the string representation of UniformSlot.
func (s UniformSlot) String() string {
	switch s {
	case UniformProjection:
		return "Projection"
	case UniformModelView:
		return "ModelView"
	case UniformTexture:
		return "Texture"
	case UniformTextureEnabled:
		return "TextureEnabled"
	default:
		return fmt.Sprintf("Unknown(%d)", int(s))
	}
}

// Limits describes device properties the allocator honours.
type Limits struct {
	// UploadAlignment is the byte alignment required for the offset and size
	// of WriteBuffer. 1 means unaligned uploads are allowed.
	UploadAlignment uint64

	// MaxBufferSize is the largest buffer the device can create, in bytes.
	// 0 means unknown.
	MaxBufferSize uint64
}

// DefaultLimits returns limits with no alignment constraint and no size cap.
func DefaultLimits() Limits {
	return Limits{UploadAlignment: 1}
}

// Image is a decoded pixel buffer handed over by an external codec.
// The core never decodes images itself; it only uploads them as textures.
type Image interface {
	// Width returns the image width in pixels.
	Width() int

	// Height returns the image height in pixels.
	Height() int

	// Format returns the pixel format of Pixels.
	Format() gputypes.TextureFormat

	// Pixels returns tightly packed pixel rows.
	Pixels() []byte
}

// rgbaImage adapts *image.RGBA to Image.
type rgbaImage struct {
	img *image.RGBA
}

// ImageFromRGBA wraps an *image.RGBA as an Image without copying when the
// image rows are tightly packed.
func ImageFromRGBA(img *image.RGBA) Image {
	return rgbaImage{img: img}
}

func (r rgbaImage) Width() int                     { return r.img.Bounds().Dx() }
func (r rgbaImage) Height() int                    { return r.img.Bounds().Dy() }
func (r rgbaImage) Format() gputypes.TextureFormat { return gputypes.TextureFormatRGBA8Unorm }

func (r rgbaImage) Pixels() []byte {
	w, h := r.Width(), r.Height()
	if r.img.Stride == w*4 && r.img.Rect.Min == (image.Point{}) {
		return r.img.Pix[:w*h*4]
	}
	out := make([]byte, 0, w*h*4)
	for y := range h {
		off := r.img.PixOffset(r.img.Rect.Min.X, r.img.Rect.Min.Y+y)
		out = append(out, r.img.Pix[off:off+w*4]...)
	}
	return out
}
