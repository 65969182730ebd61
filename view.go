package ggdraw

import (
	"fmt"
	"log/slog"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/gogpu/ggdraw/bindcache"
	"github.com/gogpu/ggdraw/gpucore"
	"github.com/gogpu/ggdraw/gpuctx"
	"github.com/gogpu/ggdraw/internal/logging"
)

// View couples a context, a target and a projection.
//
// Projection state is pushed to a program at most once per view version:
// the version changes on resize and SetProjection, and UseShader only writes
// the projection uniform to programs that have not seen the current version.
type View struct {
	thread *gpuctx.Thread
	ctx    *gpuctx.Context
	binds  *bindcache.Cache
	target Target

	projection       mgl32.Mat4
	customProjection bool
	version          uint64

	// applied maps a program to the view version whose projection it holds.
	applied map[gpucore.Handle]uint64
	// texEnabled is the last texture-enabled flag written per program.
	texEnabled map[gpucore.Handle]bool

	frames uint64
}

// NewView creates a view rendering to target through ctx. A nil ctx makes
// the view use whatever context thread has current, creating a background
// context when none is. A nil binds creates a private cache.
func NewView(thread *gpuctx.Thread, ctx *gpuctx.Context, binds *bindcache.Cache, target Target, opts ...ViewOption) *View {
	if thread == nil {
		thread = gpuctx.NewThread()
	}
	if binds == nil {
		binds = bindcache.New()
	}
	v := &View{
		thread:     thread,
		binds:      binds,
		target:     target,
		version:    1,
		applied:    make(map[gpucore.Handle]uint64),
		texEnabled: make(map[gpucore.Handle]bool),
	}
	for _, opt := range opts {
		opt(v)
	}
	if !v.customProjection {
		v.projection = orthoFor(target)
	}
	if ctx != nil {
		v.attach(ctx)
	}
	return v
}

func (v *View) attach(ctx *gpuctx.Context) {
	v.ctx = ctx
	ctx.OnResize(v.resized)
	// A new context has none of our uniforms.
	clear(v.applied)
	clear(v.texEnabled)
}

// orthoFor maps target pixels to clip space with the origin at the top-left.
func orthoFor(t Target) mgl32.Mat4 {
	if t == nil || t.Width() <= 0 || t.Height() <= 0 {
		return mgl32.Ident4()
	}
	return mgl32.Ortho(0, float32(t.Width()), float32(t.Height()), 0, -1, 1)
}

// MakeCurrent makes the view's context current on its thread. It reports
// whether a usable context is available.
func (v *View) MakeCurrent() bool {
	if v.ctx == nil || v.ctx.Closed() {
		ctx, err := v.thread.Ensure()
		if err != nil {
			logging.Logger().Warn("ggdraw: view has no context", slog.Any("err", err))
			return false
		}
		if ctx != v.ctx {
			v.attach(ctx)
		}
		return true
	}
	v.thread.MakeCurrent(v.ctx)
	return true
}

// Context returns the view's context, or nil before MakeCurrent found one.
func (v *View) Context() *gpuctx.Context { return v.ctx }

// Binds returns the binding cache.
func (v *View) Binds() *bindcache.Cache { return v.binds }

// Target returns the render target.
func (v *View) Target() Target { return v.target }

// Thread returns the thread the view makes its context current on.
func (v *View) Thread() *gpuctx.Thread { return v.thread }

// Projection returns the projection matrix.
func (v *View) Projection() mgl32.Mat4 { return v.projection }

// Version returns the projection version.
func (v *View) Version() uint64 { return v.version }

// Frames returns the number of BeginFrame calls.
func (v *View) Frames() uint64 { return v.frames }

// SetProjection installs a fixed projection. Nil restores the automatic
// projection of the target size.
func (v *View) SetProjection(m *mgl32.Mat4) {
	if m == nil {
		v.customProjection = false
		v.projection = orthoFor(v.target)
	} else {
		v.customProjection = true
		v.projection = *m
	}
	v.version++
}

// Resize reports a new surface size. It goes through the context so every
// resize listener, including this view, sees it.
func (v *View) Resize(width, height int) {
	if v.ctx == nil {
		v.resized(width, height)
		return
	}
	v.ctx.NotifyResize(width, height)
}

func (v *View) resized(width, height int) {
	if r, ok := v.target.(Resizer); ok {
		r.Resize(width, height)
	}
	if !v.customProjection {
		v.projection = orthoFor(v.target)
	}
	v.version++
	logging.Logger().Debug("ggdraw: view resized",
		slog.Int("width", width),
		slog.Int("height", height),
		slog.Uint64("version", v.version))
}

// BeginFrame makes the context current and starts a frame.
func (v *View) BeginFrame() error {
	if !v.MakeCurrent() {
		return ErrNoContext
	}
	v.frames++
	return nil
}

// UseShader binds s and pushes the projection if s has not seen the current
// view version.
func (v *View) UseShader(s *Shader) error {
	if s == nil {
		return ErrNoShader
	}
	if v.ctx == nil && !v.MakeCurrent() {
		return ErrNoContext
	}
	v.binds.Bind(v.ctx, gpucore.KindProgram, s.Program)
	if v.applied[s.Program] != v.version {
		v.ctx.Device().SetUniformMat4(s.Program, gpucore.UniformProjection, v.projection)
		v.applied[s.Program] = v.version
	}
	return nil
}

// SetModelView writes the model-view matrix of s.
func (v *View) SetModelView(s *Shader, m mgl32.Mat4) {
	v.ctx.Device().SetUniformMat4(s.Program, gpucore.UniformModelView, m)
}

// SetTextureEnabled writes the texture-enabled flag of s when it differs
// from the last value written. It reports whether a write happened.
func (v *View) SetTextureEnabled(s *Shader, on bool) bool {
	if last, ok := v.texEnabled[s.Program]; ok && last == on {
		return false
	}
	var flag int32
	if on {
		flag = 1
	}
	v.ctx.Device().SetUniformInt(s.Program, gpucore.UniformTextureEnabled, flag)
	v.texEnabled[s.Program] = on
	return true
}

// BindTexture binds texture h through the binding cache.
func (v *View) BindTexture(h gpucore.Handle) {
	v.binds.Bind(v.ctx, gpucore.KindTexture, h)
}

// Present swaps the context's buffers.
func (v *View) Present() error {
	if v.ctx == nil {
		return ErrNoContext
	}
	if err := v.ctx.SwapBuffers(); err != nil {
		return fmt.Errorf("ggdraw: present: %w", err)
	}
	return nil
}
