package halgpu

import (
	_ "embed"
	"encoding/binary"
	"fmt"
	"log/slog"
	"math"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/gogpu/ggdraw/gpucore"
	"github.com/gogpu/ggdraw/internal/logging"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/naga"
	"github.com/gogpu/wgpu/hal"
)

//go:embed shaders/flat.wgsl
var flatShaderSource string

//go:embed shaders/textured.wgsl
var texturedShaderSource string

// FlatShaderSource returns the WGSL of the position+color program.
func FlatShaderSource() string { return flatShaderSource }

// TexturedShaderSource returns the WGSL of the position+uv+color program.
func TexturedShaderSource() string { return texturedShaderSource }

// uniformSize is the byte size of the Uniforms struct shared by all
// programs: projection (mat4x4<f32>) = 64 bytes + model_view (mat4x4<f32>)
// = 64 bytes + texture_enabled (i32) padded to 16 bytes.
const uniformSize = 144

// uniformStride is the distance between per-draw uniform blocks, the
// WebGPU minUniformBufferOffsetAlignment.
const uniformStride = 256

type uniforms struct {
	projection     mgl32.Mat4
	modelView      mgl32.Mat4
	textureEnabled int32
}

// encode writes u into dst in WGSL uniform layout. mgl32 matrices are
// column-major like WGSL's.
func (u *uniforms) encode(dst []byte) {
	for i, f := range u.projection {
		binary.LittleEndian.PutUint32(dst[i*4:], math.Float32bits(f))
	}
	for i, f := range u.modelView {
		binary.LittleEndian.PutUint32(dst[64+i*4:], math.Float32bits(f))
	}
	binary.LittleEndian.PutUint32(dst[128:], uint32(u.textureEnabled)) //nolint:gosec // bit pattern
}

// compileSPIRV compiles WGSL to SPIR-V words.
func compileSPIRV(wgsl string) ([]uint32, error) {
	spirvBytes, err := naga.Compile(wgsl)
	if err != nil {
		return nil, fmt.Errorf("halgpu: compile shader: %w", err)
	}
	// SPIR-V is little-endian 32-bit words.
	words := make([]uint32, len(spirvBytes)/4)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(spirvBytes[i*4:])
	}
	return words, nil
}

// shared holds the objects every program uses: one bind group layout
// (uniforms, texture, sampler), the pipeline layout over it and the sampler.
type shared struct {
	bindLayout hal.BindGroupLayout
	pipeLayout hal.PipelineLayout
	sampler    hal.Sampler
}

func (s *shared) create(device hal.Device) error {
	var err error
	s.bindLayout, err = device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label: "ggdraw_bind_layout",
		Entries: []gputypes.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: gputypes.ShaderStageVertex | gputypes.ShaderStageFragment,
				Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform},
			},
			{
				Binding:    1,
				Visibility: gputypes.ShaderStageFragment,
				Texture: &gputypes.TextureBindingLayout{
					SampleType:    gputypes.TextureSampleTypeFloat,
					ViewDimension: gputypes.TextureViewDimension2D,
				},
			},
			{
				Binding:    2,
				Visibility: gputypes.ShaderStageFragment,
				Sampler:    &gputypes.SamplerBindingLayout{Type: gputypes.SamplerBindingTypeFiltering},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("halgpu: create bind group layout: %w", err)
	}
	s.pipeLayout, err = device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            "ggdraw_pipe_layout",
		BindGroupLayouts: []hal.BindGroupLayout{s.bindLayout},
	})
	if err != nil {
		return fmt.Errorf("halgpu: create pipeline layout: %w", err)
	}
	s.sampler, err = device.CreateSampler(&hal.SamplerDescriptor{
		Label:        "ggdraw_sampler",
		AddressModeU: gputypes.AddressModeClampToEdge,
		AddressModeV: gputypes.AddressModeClampToEdge,
		AddressModeW: gputypes.AddressModeClampToEdge,
		MagFilter:    gputypes.FilterModeLinear,
		MinFilter:    gputypes.FilterModeLinear,
		MipmapFilter: gputypes.FilterModeLinear,
	})
	if err != nil {
		return fmt.Errorf("halgpu: create sampler: %w", err)
	}
	return nil
}

func (s *shared) destroy(device hal.Device) {
	if s.sampler != nil {
		device.DestroySampler(s.sampler)
		s.sampler = nil
	}
	if s.pipeLayout != nil {
		device.DestroyPipelineLayout(s.pipeLayout)
		s.pipeLayout = nil
	}
	if s.bindLayout != nil {
		device.DestroyBindGroupLayout(s.bindLayout)
		s.bindLayout = nil
	}
}

// ProgramDescriptor describes a program to compile.
type ProgramDescriptor struct {
	Label string

	// WGSL must declare vs_main and fs_main and the Uniforms block at
	// group 0 binding 0; see FlatShaderSource.
	WGSL string

	// Vertex is the layout of the vertex buffer the program reads.
	Vertex gputypes.VertexBufferLayout

	Topology gputypes.PrimitiveTopology
}

type program struct {
	label    string
	module   hal.ShaderModule
	pipeline hal.RenderPipeline
	topology gputypes.PrimitiveTopology
	uniforms uniforms
}

func (p *program) destroy(device hal.Device) {
	if p.pipeline != nil {
		device.DestroyRenderPipeline(p.pipeline)
		p.pipeline = nil
	}
	if p.module != nil {
		device.DestroyShaderModule(p.module)
		p.module = nil
	}
}

// CompileProgram compiles desc into a render pipeline and returns its
// program handle. Uniforms start as identity matrices with texturing off.
func (d *Device) CompileProgram(desc ProgramDescriptor) (gpucore.Handle, error) {
	spirv, err := compileSPIRV(desc.WGSL)
	if err != nil {
		return gpucore.InvalidHandle, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.lost {
		return gpucore.InvalidHandle, gpucore.ErrDeviceLost
	}

	module, err := d.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  desc.Label,
		Source: hal.ShaderSource{SPIRV: spirv},
	})
	if err != nil {
		return gpucore.InvalidHandle, fmt.Errorf("halgpu: create shader module %s: %w", desc.Label, err)
	}

	premulBlend := gputypes.BlendStatePremultiplied()
	pipeline, err := d.device.CreateRenderPipeline(&hal.RenderPipelineDescriptor{
		Label:  desc.Label + "_pipeline",
		Layout: d.shared.pipeLayout,
		Vertex: hal.VertexState{
			Module:     module,
			EntryPoint: "vs_main",
			Buffers:    []gputypes.VertexBufferLayout{desc.Vertex},
		},
		Fragment: &hal.FragmentState{
			Module:     module,
			EntryPoint: "fs_main",
			Targets: []gputypes.ColorTargetState{
				{
					Format:    d.format,
					Blend:     &premulBlend,
					WriteMask: gputypes.ColorWriteMaskAll,
				},
			},
		},
		Primitive: gputypes.PrimitiveState{
			Topology: desc.Topology,
			CullMode: gputypes.CullModeNone,
		},
		Multisample: gputypes.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		d.device.DestroyShaderModule(module)
		return gpucore.InvalidHandle, fmt.Errorf("halgpu: create pipeline %s: %w", desc.Label, err)
	}

	h := d.newHandle()
	d.programs[h] = &program{
		label:    desc.Label,
		module:   module,
		pipeline: pipeline,
		topology: desc.Topology,
		uniforms: uniforms{projection: mgl32.Ident4(), modelView: mgl32.Ident4()},
	}
	logging.Logger().Debug("halgpu: program compiled",
		slog.String("label", desc.Label),
		slog.Uint64("handle", uint64(h)),
		slog.Int("spirv_words", len(spirv)))
	return h, nil
}

// DestroyProgram releases a program. Unknown handles are ignored.
func (d *Device) DestroyProgram(h gpucore.Handle) {
	d.mu.Lock()
	defer d.mu.Unlock()
	p, ok := d.programs[h]
	if !ok {
		return
	}
	delete(d.programs, h)
	d.unbind(h, gpucore.NamespaceProgram)
	p.destroy(d.device)
}
