package backend

import (
	"errors"

	"github.com/gogpu/ggdraw/gpucore"
	"github.com/gogpu/gpucontext"
)

// Common backend errors.
var (
	// ErrBackendNotAvailable is returned when a requested backend is not available.
	ErrBackendNotAvailable = errors.New("backend: not available")

	// ErrNoDevice is returned by a factory when the host handle exposes no
	// device it can use.
	ErrNoDevice = errors.New("backend: host handle has no usable device")
)

// Factory opens a gpucore.Device on the device exposed by a host handle.
//
// Factories must not retain the handle beyond the device's lifetime and must
// return ErrNoDevice (possibly wrapped) when the handle carries nothing they
// understand, so that Default can move on to the next backend.
type Factory func(handle gpucontext.DeviceProvider) (gpucore.Device, error)

// Backend names.
const (
	// BackendHAL is the gogpu/wgpu HAL backend.
	BackendHAL = "hal"
)
