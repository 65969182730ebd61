package ggdraw

import (
	"fmt"

	"github.com/gogpu/ggdraw/gpucore"
)

// Shader is a compiled program with the well-known uniform slots
// (projection, model-view, texture sampler, texture-enabled flag).
//
// Drawables hold shaders by pointer without owning them.
type Shader struct {
	Program gpucore.Handle
	Name    string
}

// NewShader wraps a compiled program handle.
func NewShader(program gpucore.Handle, name string) *Shader {
	return &Shader{Program: program, Name: name}
}

func (s *Shader) String() string {
	if s == nil {
		return "<nil shader>"
	}
	return fmt.Sprintf("%s(%d)", s.Name, s.Program)
}
