package halgpu

import (
	"fmt"
	"log/slog"

	"github.com/gogpu/ggdraw/gpucore"
	"github.com/gogpu/ggdraw/internal/logging"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// frame is one render pass being recorded.
type frame struct {
	encoder hal.CommandEncoder
	pass    hal.RenderPassEncoder

	// uniformBuf holds one uniform block per draw. The blocks are staged in
	// uniforms and written before submission.
	uniformBuf hal.Buffer
	uniforms   []byte
	draws      int

	groups []hal.BindGroup
}

// discard drops a frame that will not be submitted.
func (f *frame) discard(device hal.Device) {
	f.pass.End()
	f.encoder.DiscardEncoding()
	f.release(device)
}

func (f *frame) release(device hal.Device) {
	for _, g := range f.groups {
		device.DestroyBindGroup(g)
	}
	f.groups = nil
	if f.uniformBuf != nil {
		device.DestroyBuffer(f.uniformBuf)
		f.uniformBuf = nil
	}
}

// BeginPass starts recording a render pass into target, cleared to clear.
// target is usually the current surface texture view of the host.
func (d *Device) BeginPass(target hal.TextureView, clear gputypes.Color) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.lost {
		return gpucore.ErrDeviceLost
	}
	if d.frame != nil {
		return ErrPassActive
	}

	uniformBuf, err := d.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "ggdraw_frame_uniforms",
		Size:  uint64(d.maxDraws) * uniformStride,
		Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("halgpu: create uniform buffer: %w", err)
	}

	encoder, err := d.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{
		Label: "ggdraw_encoder",
	})
	if err != nil {
		d.device.DestroyBuffer(uniformBuf)
		return fmt.Errorf("halgpu: create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding("ggdraw_frame"); err != nil {
		d.device.DestroyBuffer(uniformBuf)
		return fmt.Errorf("halgpu: begin encoding: %w", err)
	}
	pass := encoder.BeginRenderPass(&hal.RenderPassDescriptor{
		Label: "ggdraw_pass",
		ColorAttachments: []hal.RenderPassColorAttachment{
			{
				View:       target,
				LoadOp:     gputypes.LoadOpClear,
				StoreOp:    gputypes.StoreOpStore,
				ClearValue: clear,
			},
		},
	})

	d.frame = &frame{
		encoder:    encoder,
		pass:       pass,
		uniformBuf: uniformBuf,
		uniforms:   make([]byte, d.maxDraws*uniformStride),
	}
	return nil
}

// EndPass ends the pass, submits it and waits for the GPU.
func (d *Device) EndPass() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	f := d.frame
	if f == nil {
		return ErrNoPass
	}
	d.frame = nil
	defer f.release(d.device)

	f.pass.End()
	if f.draws > 0 {
		d.queue.WriteBuffer(f.uniformBuf, 0, f.uniforms[:f.draws*uniformStride])
	}

	cmdBuf, err := f.encoder.EndEncoding()
	if err != nil {
		return fmt.Errorf("halgpu: end encoding: %w", err)
	}
	defer d.device.FreeCommandBuffer(cmdBuf)

	fence, err := d.device.CreateFence()
	if err != nil {
		return fmt.Errorf("halgpu: create fence: %w", err)
	}
	defer d.device.DestroyFence(fence)

	if err := d.queue.Submit([]hal.CommandBuffer{cmdBuf}, fence, 1); err != nil {
		return fmt.Errorf("halgpu: submit: %w", err)
	}
	fenceOK, err := d.device.Wait(fence, 1, d.timeout)
	if err != nil || !fenceOK {
		return fmt.Errorf("halgpu: wait for GPU: ok=%v err=%w", fenceOK, err)
	}
	d.frames++
	logging.Logger().Debug("halgpu: pass submitted",
		slog.Uint64("frame", d.frames),
		slog.Int("draws", f.draws))
	return nil
}

// prepareDraw binds the pipeline, uniforms, texture and vertex buffer of the
// current bind state. It reports false, logging why, when the draw must be
// dropped.
func (d *Device) prepareDraw(topology gputypes.PrimitiveTopology) (*frame, bool) {
	log := logging.Logger()
	f := d.frame
	if f == nil {
		log.Warn("halgpu: draw outside a pass dropped")
		return nil, false
	}
	p, ok := d.programs[d.bound[gpucore.KindProgram]]
	if !ok {
		log.Warn("halgpu: draw without a program dropped")
		return nil, false
	}
	if p.topology != topology {
		log.Warn("halgpu: draw topology does not match program",
			slog.String("program", p.label))
		return nil, false
	}
	vb, ok := d.buffers[d.bound[gpucore.KindVertexBuffer]]
	if !ok {
		log.Warn("halgpu: draw without a vertex buffer dropped")
		return nil, false
	}
	if f.draws >= d.maxDraws {
		log.Warn("halgpu: pass draw limit reached", slog.Int("max_draws", d.maxDraws))
		return nil, false
	}

	tex := d.white
	if t, ok := d.textures[d.bound[gpucore.KindTexture]]; ok {
		tex = t
	}
	off := f.draws * uniformStride
	p.uniforms.encode(f.uniforms[off : off+uniformSize])
	group, err := d.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:  "ggdraw_draw_bind",
		Layout: d.shared.bindLayout,
		Entries: []gputypes.BindGroupEntry{
			{Binding: 0, Resource: gputypes.BufferBinding{
				Buffer: f.uniformBuf.NativeHandle(), Offset: uint64(off), Size: uniformSize,
			}},
			{Binding: 1, Resource: gputypes.TextureViewBinding{TextureView: tex.view.NativeHandle()}},
			{Binding: 2, Resource: gputypes.SamplerBinding{Sampler: d.shared.sampler.NativeHandle()}},
		},
	})
	if err != nil {
		log.Warn("halgpu: create bind group", slog.Any("err", err))
		return nil, false
	}
	f.groups = append(f.groups, group)
	f.draws++

	f.pass.SetPipeline(p.pipeline)
	f.pass.SetBindGroup(0, group, nil)
	f.pass.SetVertexBuffer(0, vb.hal, 0)
	return f, true
}

// Draw implements gpucore.Device.
func (d *Device) Draw(topology gputypes.PrimitiveTopology, first, count uint32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	f, ok := d.prepareDraw(topology)
	if !ok {
		return
	}
	f.pass.Draw(count, 1, first, 0)
}

// DrawIndexed implements gpucore.Device.
func (d *Device) DrawIndexed(topology gputypes.PrimitiveTopology, format gputypes.IndexFormat, firstIndex, count uint32, baseVertex int32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	ib, ok := d.buffers[d.bound[gpucore.KindIndexBuffer]]
	if !ok {
		logging.Logger().Warn("halgpu: indexed draw without an index buffer dropped")
		return
	}
	f, ok := d.prepareDraw(topology)
	if !ok {
		return
	}
	f.pass.SetIndexBuffer(ib.hal, format, 0)
	f.pass.DrawIndexed(count, 1, firstIndex, baseVertex, 0)
}
