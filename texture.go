package ggdraw

import (
	"fmt"
	"log/slog"

	"github.com/gogpu/ggdraw/bindcache"
	"github.com/gogpu/ggdraw/gpucore"
	"github.com/gogpu/ggdraw/gpuctx"
	"github.com/gogpu/ggdraw/internal/logging"
)

// UploadTexture creates a texture from a decoded image.
func UploadTexture(ctx *gpuctx.Context, img gpucore.Image) (gpucore.Handle, error) {
	h, err := ctx.Device().CreateTexture(img)
	if err != nil {
		return gpucore.InvalidHandle, fmt.Errorf("ggdraw: upload %dx%d texture: %w", img.Width(), img.Height(), err)
	}
	logging.Logger().Debug("ggdraw: texture uploaded",
		slog.Uint64("handle", uint64(h)),
		slog.Int("width", img.Width()),
		slog.Int("height", img.Height()))
	return h, nil
}

// DestroyTexture forgets h in the binding cache and destroys it.
func DestroyTexture(ctx *gpuctx.Context, binds *bindcache.Cache, h gpucore.Handle) {
	if !h.Valid() {
		return
	}
	binds.WillDelete(gpucore.KindTexture, h)
	ctx.Device().DestroyTexture(h)
}
