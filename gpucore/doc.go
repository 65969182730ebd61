// Package gpucore defines the graphics API boundary of ggdraw.
//
// This package defines the [Device] interface, which abstracts over the GPU
// backend so that the slab allocator, the binding cache and the drawable
// pipeline work unchanged with:
//   - gogpu/wgpu HAL (backend/halgpu)
//   - the recording device used in tests (internal/gputest)
//
// # Resource Management
//
// GPU resources are managed via opaque handles ([Handle]). Each handle has a
// [Kind] that says how it is bound; kinds that share a name pool share a
// [Namespace], so deleting a buffer handle invalidates it as a vertex buffer,
// an index buffer and a pixel buffer alike.
//
// # Uniforms
//
// Compiled programs are opaque. The core only writes the well-known slots in
// [UniformSlot]: the projection and model-view matrices, the sampler unit
// and the texture-enabled flag.
//
// # Images
//
// Textures are created from [Image] values produced by external codecs.
// [ImageFromRGBA] adapts the standard library's *image.RGBA.
package gpucore
