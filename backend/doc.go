// Package backend selects the graphics device implementation.
//
// Device backends register a Factory from their init function and are
// selected at runtime, the way database/sql drivers are:
//
//	import _ "github.com/gogpu/ggdraw/backend/halgpu"
//
// # Backend Selection
//
// Use Default to open the best available backend on a host handle, or Open
// to request a specific backend by name:
//
//	dev, name, err := backend.Default(handle)
//
//	// Or request a specific backend
//	dev, err := backend.Open("hal", handle)
//
// # Available Backends
//
//   - "hal": gogpu/wgpu HAL device (backend/halgpu)
package backend
