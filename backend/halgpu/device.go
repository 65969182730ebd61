package halgpu

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/gogpu/ggdraw/backend"
	"github.com/gogpu/ggdraw/gpucore"
	"github.com/gogpu/ggdraw/internal/logging"
	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// copyAlignment is the WebGPU COPY_BUFFER_ALIGNMENT: buffer sizes, write
// offsets and write lengths must be multiples of it.
const copyAlignment = 4

// Device errors.
var (
	// ErrNoPass is returned when a pass operation runs outside BeginPass/EndPass.
	ErrNoPass = errors.New("halgpu: no render pass in progress")

	// ErrPassActive is returned by BeginPass while a pass is recording.
	ErrPassActive = errors.New("halgpu: render pass already in progress")

	// ErrUnsupportedFormat is returned for texture formats other than
	// 8-bit RGBA and BGRA.
	ErrUnsupportedFormat = errors.New("halgpu: unsupported texture format")
)

func init() {
	backend.Register(backend.BackendHAL, func(handle gpucontext.DeviceProvider) (gpucore.Device, error) {
		return New(handle)
	})
}

// halProvider is implemented by hosts that share their HAL device.
type halProvider interface {
	HalDevice() any
	HalQueue() any
}

type buffer struct {
	hal  hal.Buffer
	kind gpucore.Kind
	size uint64
}

type texture struct {
	tex    hal.Texture
	view   hal.TextureView
	width  uint32
	height uint32
	format gputypes.TextureFormat
}

// Option configures a Device.
type Option func(*Device)

// WithTargetFormat sets the color format programs render to. By default the
// host surface format is used, or BGRA8Unorm when the host reports none.
func WithTargetFormat(f gputypes.TextureFormat) Option {
	return func(d *Device) { d.format = f }
}

// WithMaxDraws sets how many draws one pass may record. Default: 1024.
func WithMaxDraws(n int) Option {
	return func(d *Device) {
		if n > 0 {
			d.maxDraws = n
		}
	}
}

// WithMaxBufferSize caps buffer creation. Larger requests fail with
// gpucore.ErrOutOfMemory.
func WithMaxBufferSize(n uint64) Option {
	return func(d *Device) { d.limits.MaxBufferSize = n }
}

// WithFenceTimeout sets how long EndPass waits for the GPU. Default: 5s.
func WithFenceTimeout(t time.Duration) Option {
	return func(d *Device) { d.timeout = t }
}

// Device is a gpucore.Device on a host-provided HAL device and queue.
//
// Binds are recorded as state; Draw and DrawIndexed snapshot the bound
// program's uniforms and encode into the pass opened by BeginPass. The pass
// is submitted by EndPass, which waits for the GPU before returning.
//
// Device never creates or destroys the HAL device itself.
type Device struct {
	mu sync.Mutex

	device hal.Device
	queue  hal.Queue

	format   gputypes.TextureFormat
	limits   gpucore.Limits
	maxDraws int
	timeout  time.Duration

	next     gpucore.Handle
	buffers  map[gpucore.Handle]*buffer
	textures map[gpucore.Handle]*texture
	programs map[gpucore.Handle]*program
	bound    [gpucore.NumKinds]gpucore.Handle

	shared shared
	white  *texture
	frame  *frame
	frames uint64

	lost bool
}

// New opens a Device on the HAL device exposed by provider. Providers that
// do not expose HAL types yield backend.ErrNoDevice.
func New(provider any, opts ...Option) (*Device, error) {
	hp, ok := provider.(halProvider)
	if !ok {
		return nil, fmt.Errorf("halgpu: provider does not expose HAL types: %w", backend.ErrNoDevice)
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok || device == nil {
		return nil, fmt.Errorf("halgpu: provider HalDevice is not hal.Device: %w", backend.ErrNoDevice)
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return nil, fmt.Errorf("halgpu: provider HalQueue is not hal.Queue: %w", backend.ErrNoDevice)
	}

	d := &Device{
		device:   device,
		queue:    queue,
		format:   gputypes.TextureFormatBGRA8Unorm,
		limits:   gpucore.Limits{UploadAlignment: copyAlignment},
		maxDraws: 1024,
		timeout:  5 * time.Second,
		next:     1,
		buffers:  make(map[gpucore.Handle]*buffer),
		textures: make(map[gpucore.Handle]*texture),
		programs: make(map[gpucore.Handle]*program),
	}
	if sp, ok := provider.(interface {
		SurfaceFormat() gputypes.TextureFormat
	}); ok {
		if f := sp.SurfaceFormat(); f != gputypes.TextureFormatUndefined {
			d.format = f
		}
	}
	for _, opt := range opts {
		opt(d)
	}

	if err := d.shared.create(d.device); err != nil {
		d.shared.destroy(d.device)
		return nil, err
	}
	white, err := d.createTexture(1, 1, gputypes.TextureFormatRGBA8Unorm, []byte{255, 255, 255, 255}, "ggdraw_white")
	if err != nil {
		d.shared.destroy(d.device)
		return nil, err
	}
	d.white = white

	logging.Logger().Info("halgpu: device opened",
		slog.String("format", fmt.Sprint(d.format)),
		slog.Int("max_draws", d.maxDraws))
	return d, nil
}

func (d *Device) newHandle() gpucore.Handle {
	h := d.next
	d.next++
	return h
}

// Close releases every object created through the device. Later creations
// fail with gpucore.ErrDeviceLost.
func (d *Device) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.lost {
		return
	}
	if d.frame != nil {
		d.frame.discard(d.device)
		d.frame = nil
	}
	for h, p := range d.programs {
		p.destroy(d.device)
		delete(d.programs, h)
	}
	for h, t := range d.textures {
		d.destroyTexture(t)
		delete(d.textures, h)
	}
	for h, b := range d.buffers {
		d.device.DestroyBuffer(b.hal)
		delete(d.buffers, h)
	}
	if d.white != nil {
		d.destroyTexture(d.white)
		d.white = nil
	}
	d.shared.destroy(d.device)
	d.lost = true
}

// Format returns the color format programs render to.
func (d *Device) Format() gputypes.TextureFormat { return d.format }

// Frames returns the number of passes submitted.
func (d *Device) Frames() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.frames
}

// Limits implements gpucore.Device.
func (d *Device) Limits() gpucore.Limits { return d.limits }

// CreateBuffer implements gpucore.Device. Every creation failure is reported
// as gpucore.ErrOutOfMemory so allocators can fall back.
func (d *Device) CreateBuffer(kind gpucore.Kind, size uint64) (gpucore.Handle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.lost {
		return gpucore.InvalidHandle, gpucore.ErrDeviceLost
	}
	size = alignUp(size, copyAlignment)
	if m := d.limits.MaxBufferSize; m > 0 && size > m {
		return gpucore.InvalidHandle, fmt.Errorf("halgpu: %v buffer of %d bytes exceeds %d: %w", kind, size, m, gpucore.ErrOutOfMemory)
	}
	h := d.newHandle()
	buf, err := d.device.CreateBuffer(&hal.BufferDescriptor{
		Label: fmt.Sprintf("ggdraw_%s_%d", kind, h),
		Size:  size,
		Usage: kind.BufferUsage(),
	})
	if err != nil {
		return gpucore.InvalidHandle, fmt.Errorf("halgpu: create %v buffer of %d bytes: %w: %w", kind, size, gpucore.ErrOutOfMemory, err)
	}
	d.buffers[h] = &buffer{hal: buf, kind: kind, size: size}
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
	delete(d.buffers, h)
	d.unbind(h, gpucore.NamespaceBuffer)
	d.device.DestroyBuffer(b.hal)
}

// WriteBuffer implements gpucore.Device.
func (d *Device) WriteBuffer(kind gpucore.Kind, h gpucore.Handle, offset uint64, data []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.lost {
		return gpucore.ErrDeviceLost
	}
	b, ok := d.buffers[h]
	if !ok {
		return fmt.Errorf("halgpu: write %v %d: %w", kind, h, gpucore.ErrUnknownHandle)
	}
	if offset%copyAlignment != 0 || uint64(len(data))%copyAlignment != 0 {
		return fmt.Errorf("halgpu: write [%d,+%d) not aligned to %d", offset, len(data), copyAlignment)
	}
	if end := offset + uint64(len(data)); end > b.size {
		return fmt.Errorf("halgpu: write [%d,%d) overruns buffer of %d bytes", offset, end, b.size)
	}
	if len(data) == 0 {
		return nil
	}
	d.queue.WriteBuffer(b.hal, offset, data)
	return nil
}

// CreateTexture implements gpucore.Device.
func (d *Device) CreateTexture(img gpucore.Image) (gpucore.Handle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.lost {
		return gpucore.InvalidHandle, gpucore.ErrDeviceLost
	}
	h := d.newHandle()
	t, err := d.createTexture(img.Width(), img.Height(), img.Format(), img.Pixels(), fmt.Sprintf("ggdraw_texture_%d", h))
	if err != nil {
		return gpucore.InvalidHandle, err
	}
	d.textures[h] = t
	return h, nil
}

func (d *Device) createTexture(width, height int, format gputypes.TextureFormat, pixels []byte, label string) (*texture, error) {
	bpp, err := bytesPerPixel(format)
	if err != nil {
		return nil, err
	}
	w, h := uint32(width), uint32(height) //nolint:gosec // image sizes fit uint32
	if w == 0 || h == 0 || len(pixels) < int(w*h*bpp) {
		return nil, fmt.Errorf("halgpu: texture %s: %d bytes for %dx%d", label, len(pixels), w, h)
	}
	size := hal.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1}
	tex, err := d.device.CreateTexture(&hal.TextureDescriptor{
		Label:         label,
		Size:          size,
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        format,
		Usage:         gputypes.TextureUsageTextureBinding | gputypes.TextureUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("halgpu: create texture %s: %w: %w", label, gpucore.ErrOutOfMemory, err)
	}
	view, err := d.device.CreateTextureView(tex, &hal.TextureViewDescriptor{
		Label:         label + "_view",
		Format:        format,
		Dimension:     gputypes.TextureViewDimension2D,
		Aspect:        gputypes.TextureAspectAll,
		MipLevelCount: 1,
	})
	if err != nil {
		d.device.DestroyTexture(tex)
		return nil, fmt.Errorf("halgpu: create view %s: %w", label, err)
	}
	d.queue.WriteTexture(
		&hal.ImageCopyTexture{Texture: tex, MipLevel: 0},
		pixels,
		&hal.ImageDataLayout{Offset: 0, BytesPerRow: w * bpp, RowsPerImage: h},
		&size,
	)
	return &texture{tex: tex, view: view, width: w, height: h, format: format}, nil
}

func (d *Device) destroyTexture(t *texture) {
	if t.view != nil {
		d.device.DestroyTextureView(t.view)
	}
	if t.tex != nil {
		d.device.DestroyTexture(t.tex)
	}
}

// DestroyTexture implements gpucore.Device.
func (d *Device) DestroyTexture(h gpucore.Handle) {
	d.mu.Lock()
	defer d.mu.Unlock()
	t, ok := d.textures[h]
	if !ok {
		return
	}
	delete(d.textures, h)
	d.unbind(h, gpucore.NamespaceTexture)
	d.destroyTexture(t)
}

// Bind implements gpucore.Device.
func (d *Device) Bind(kind gpucore.Kind, h gpucore.Handle) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if kind < gpucore.NumKinds {
		d.bound[kind] = h
	}
}

// unbind clears every binding of h in namespace ns.
func (d *Device) unbind(h gpucore.Handle, ns gpucore.Namespace) {
	for k := range gpucore.NumKinds {
		if k.Namespace() == ns && d.bound[k] == h {
			d.bound[k] = gpucore.InvalidHandle
		}
	}
}

// SetUniformMat4 implements gpucore.Device.
func (d *Device) SetUniformMat4(program gpucore.Handle, slot gpucore.UniformSlot, m mgl32.Mat4) {
	d.mu.Lock()
	defer d.mu.Unlock()
	p, ok := d.programs[program]
	if !ok {
		return
	}
	switch slot {
	case gpucore.UniformProjection:
		p.uniforms.projection = m
	case gpucore.UniformModelView:
		p.uniforms.modelView = m
	}
}

// SetUniformInt implements gpucore.Device. The sampler unit is fixed at
// binding 1, so UniformTexture is accepted and ignored.
func (d *Device) SetUniformInt(program gpucore.Handle, slot gpucore.UniformSlot, v int32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	p, ok := d.programs[program]
	if !ok {
		return
	}
	if slot == gpucore.UniformTextureEnabled {
		p.uniforms.textureEnabled = v
	}
}

func bytesPerPixel(f gputypes.TextureFormat) (uint32, error) {
	switch f {
	case gputypes.TextureFormatRGBA8Unorm, gputypes.TextureFormatBGRA8Unorm:
		return 4, nil
	default:
		return 0, fmt.Errorf("%w: %v", ErrUnsupportedFormat, f)
	}
}

func alignUp(n, a uint64) uint64 {
	return (n + a - 1) / a * a
}

var _ gpucore.Device = (*Device)(nil)
