package halgpu

import (
	"encoding/binary"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/gogpu/ggdraw/backend"
	"github.com/gogpu/ggdraw/gpuctx"
	"github.com/gogpu/gputypes"
)

type nilProvider struct{}

func (nilProvider) HalDevice() any { return nil }
func (nilProvider) HalQueue() any  { return nil }

func TestNewWithoutHAL(t *testing.T) {
	tests := []struct {
		name     string
		provider any
	}{
		{"null handle", gpuctx.NullDeviceHandle{}},
		{"nil HAL objects", nilProvider{}},
		{"nil provider", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.provider)
			if !errors.Is(err, backend.ErrNoDevice) {
				t.Errorf("New() error = %v, want ErrNoDevice", err)
			}
		})
	}
}

func TestRegistered(t *testing.T) {
	if !backend.IsRegistered(backend.BackendHAL) {
		t.Fatalf("backend %q not registered", backend.BackendHAL)
	}
	// Without a HAL device the only backend is skipped.
	_, _, err := backend.Default(gpuctx.NullDeviceHandle{})
	if !errors.Is(err, backend.ErrBackendNotAvailable) {
		t.Errorf("Default() error = %v, want ErrBackendNotAvailable", err)
	}
}

func TestShaderSources(t *testing.T) {
	for name, src := range map[string]string{
		"flat":     FlatShaderSource(),
		"textured": TexturedShaderSource(),
	} {
		for _, want := range []string{"fn vs_main", "fn fs_main", "@group(0) @binding(0)", "texture_enabled"} {
			if !strings.Contains(src, want) {
				t.Errorf("%s shader missing %q", name, want)
			}
		}
	}
	if !strings.Contains(TexturedShaderSource(), "textureSample") {
		t.Error("textured shader does not sample")
	}
}

func TestCompileShaders(t *testing.T) {
	for name, src := range map[string]string{
		"flat":     FlatShaderSource(),
		"textured": TexturedShaderSource(),
	} {
		t.Run(name, func(t *testing.T) {
			words, err := compileSPIRV(src)
			if err != nil {
				errStr := err.Error()
				if strings.Contains(errStr, "not yet implemented") || strings.Contains(errStr, "not supported") {
					t.Skipf("Skipping: naga feature not yet implemented: %v", err)
				}
				t.Fatalf("compileSPIRV() error = %v", err)
			}
			if len(words) == 0 || words[0] != 0x07230203 {
				t.Errorf("SPIR-V magic = %#x, want 0x07230203", words[0])
			}
		})
	}
}

func TestCompileInvalidShader(t *testing.T) {
	if _, err := compileSPIRV("fn broken("); err == nil {
		t.Error("compileSPIRV accepted invalid WGSL")
	}
}

func TestUniformsEncode(t *testing.T) {
	u := uniforms{
		projection:     mgl32.Ortho2D(0, 640, 480, 0),
		modelView:      mgl32.Translate3D(3, 4, 0),
		textureEnabled: 1,
	}
	buf := make([]byte, uniformSize)
	u.encode(buf)

	f := func(off int) float32 { return math.Float32frombits(binary.LittleEndian.Uint32(buf[off:])) }
	if got := f(0); got != u.projection[0] {
		t.Errorf("projection[0] = %v, want %v", got, u.projection[0])
	}
	// Translation lives in column 3 of a column-major matrix.
	if got := f(64 + 12*4); got != 3 {
		t.Errorf("model_view tx = %v, want 3", got)
	}
	if got := f(64 + 13*4); got != 4 {
		t.Errorf("model_view ty = %v, want 4", got)
	}
	if got := binary.LittleEndian.Uint32(buf[128:]); got != 1 {
		t.Errorf("texture_enabled = %d, want 1", got)
	}
	if uniformSize > uniformStride {
		t.Errorf("uniform block %d exceeds stride %d", uniformSize, uniformStride)
	}
}

func TestBytesPerPixel(t *testing.T) {
	tests := []struct {
		format gputypes.TextureFormat
		want   uint32
		err    bool
	}{
		{gputypes.TextureFormatRGBA8Unorm, 4, false},
		{gputypes.TextureFormatBGRA8Unorm, 4, false},
		{gputypes.TextureFormatUndefined, 0, true},
	}
	for _, tt := range tests {
		got, err := bytesPerPixel(tt.format)
		if got != tt.want || (err != nil) != tt.err {
			t.Errorf("bytesPerPixel(%v) = %d, %v", tt.format, got, err)
		}
		if tt.err && !errors.Is(err, ErrUnsupportedFormat) {
			t.Errorf("bytesPerPixel(%v) error = %v, want ErrUnsupportedFormat", tt.format, err)
		}
	}
}

func TestAlignUp(t *testing.T) {
	tests := []struct{ n, a, want uint64 }{
		{0, 4, 0},
		{1, 4, 4},
		{4, 4, 4},
		{145, 256, 256},
		{513, 256, 768},
	}
	for _, tt := range tests {
		if got := alignUp(tt.n, tt.a); got != tt.want {
			t.Errorf("alignUp(%d, %d) = %d, want %d", tt.n, tt.a, got, tt.want)
		}
	}
}
