// Package halgpu implements gpucore.Device on the gogpu/wgpu HAL.
//
// The host owns the HAL device and queue and shares them through a provider
// exposing HalDevice and HalQueue, the way gogpu windows do. Importing the
// package registers the "hal" backend:
//
//	import _ "github.com/gogpu/ggdraw/backend/halgpu"
//
//	dev, err := backend.Open(backend.BackendHAL, provider)
//
// # Programs
//
// Programs are WGSL compiled to SPIR-V with naga. Every program shares one
// bind group layout:
//
//	@group(0) @binding(0) var<uniform> u: Uniforms;    // projection, model_view, texture_enabled
//	@group(0) @binding(1) var tex: texture_2d<f32>;
//	@group(0) @binding(2) var samp: sampler;
//
// FlatShaderSource and TexturedShaderSource are ready-made programs for the
// slab.LayoutPosColor and slab.LayoutPosTexColor vertex layouts.
//
// # Passes
//
// Draws are recorded between BeginPass and EndPass. Each draw snapshots the
// bound program's uniforms, so uniform changes between draws in one pass
// behave like immediate-mode uniform writes. EndPass submits and blocks on a
// fence until the GPU finishes.
package halgpu
