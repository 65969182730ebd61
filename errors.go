package ggdraw

import "errors"

var (
	// ErrDestroyed is returned when using a destroyed drawable or batch.
	ErrDestroyed = errors.New("ggdraw: destroyed")

	// ErrLayoutMismatch is returned when pushing a drawable into a batch of
	// another layout.
	ErrLayoutMismatch = errors.New("ggdraw: layout mismatch")

	// ErrNoContext is returned when a view has no usable context.
	ErrNoContext = errors.New("ggdraw: no current context")

	// ErrNoShader is returned when neither the drawable nor the caller
	// supplies a shader.
	ErrNoShader = errors.New("ggdraw: no shader")

	// ErrUnsupportedLayout is returned for layouts a component cannot
	// process, such as a batch layout without a float32x2 position.
	ErrUnsupportedLayout = errors.New("ggdraw: unsupported layout")
)
