// Command slabdemo renders a few frames of polygons, sprites and text on a
// recording device and reports allocator and binding statistics.
package main

import (
	"flag"
	"image"
	"image/color"
	"log"
	"log/slog"
	"math"
	"os"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/gogpu/ggdraw"
	"github.com/gogpu/ggdraw/bindcache"
	"github.com/gogpu/ggdraw/gpucore"
	"github.com/gogpu/ggdraw/gpuctx"
	"github.com/gogpu/ggdraw/internal/gputest"
	"github.com/gogpu/ggdraw/slab"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

const (
	flatProgram     gpucore.Handle = 1000
	texturedProgram gpucore.Handle = 1001
)

func main() {
	var (
		width   = flag.Int("width", 800, "view width")
		height  = flag.Int("height", 600, "view height")
		frames  = flag.Int("frames", 3, "frames to render")
		sprites = flag.Int("sprites", 64, "sprites in the batch")
		verbose = flag.Bool("v", false, "debug logging")
	)
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	ggdraw.SetLogger(logger)

	dev := gputest.New()
	ctx := gpuctx.New(dev, gpuctx.WithLabel("slabdemo"))
	defer ctx.Close()
	binds := bindcache.New()
	binds.Track(ctx)

	vertices := slab.New(ctx, binds)
	defer vertices.Close()
	indices := slab.NewIndex(ctx, binds)
	defer indices.Close()

	view := ggdraw.NewView(gpuctx.NewThread(), ctx, binds, ggdraw.NewSizeTarget(*width, *height))
	flat := ggdraw.NewShader(flatProgram, "flat")
	textured := ggdraw.NewShader(texturedProgram, "textured")

	atlas, err := fontAtlas(ctx, basicfont.Face7x13)
	if err != nil {
		log.Fatalf("Failed to build font atlas: %v", err)
	}
	defer ggdraw.DestroyTexture(ctx, binds, atlas.Tex)

	shapes, err := buildShapes(vertices, indices)
	if err != nil {
		log.Fatalf("Failed to build shapes: %v", err)
	}
	label, err := ggdraw.NewDrawable(vertices, slab.LayoutPosTexColorID,
		ggdraw.NewText(basicfont.Face7x13, atlas, "slab allocator demo", ggdraw.White),
		ggdraw.WithShader(textured))
	if err != nil {
		log.Fatalf("Failed to build label: %v", err)
	}
	label.SetPosition(10, 10)
	defer label.Destroy()

	batch, err := ggdraw.NewBatch(vertices, slab.LayoutPosTexColorID)
	if err != nil {
		log.Fatalf("Failed to build batch: %v", err)
	}
	defer batch.Destroy()
	sprites, err := buildSprites(vertices, atlas.Tex, *sprites)
	if err != nil {
		log.Fatalf("Failed to build sprites: %v", err)
	}

	for frame := range *frames {
		if err := view.BeginFrame(); err != nil {
			log.Fatalf("Frame %d: %v", frame, err)
		}
		angle := float32(frame) * math.Pi / 16
		for _, d := range shapes {
			d.SetAngle(angle)
			if err := d.Draw(view, flat); err != nil {
				log.Fatalf("Frame %d: draw shape: %v", frame, err)
			}
		}

		batch.Clear()
		for i, s := range sprites {
			s.SetPosition(float32(i%16)*48+float32(frame)*4, 300+float32(i/16)*48)
			if err := batch.Push(s); err != nil {
				log.Fatalf("Frame %d: batch sprite: %v", frame, err)
			}
		}
		if err := batch.Render(view, textured); err != nil {
			log.Fatalf("Frame %d: render batch: %v", frame, err)
		}
		if err := label.Draw(view, nil); err != nil {
			log.Fatalf("Frame %d: draw label: %v", frame, err)
		}
		if err := view.Present(); err != nil {
			log.Fatalf("Frame %d: present: %v", frame, err)
		}
	}

	vs, is, bs := vertices.Stats(), indices.Stats(), binds.Stats()
	logger.Info("slabdemo: done",
		slog.Int("frames", *frames),
		slog.Int("draws", len(dev.Draws)),
		slog.Int("vertex_slabs", vs.Slabs),
		slog.Uint64("vertex_leased", vs.Leased),
		slog.Uint64("vertex_uploads", vs.Uploads),
		slog.Uint64("vertex_uploaded_bytes", vs.UploadedBytes),
		slog.Int("index_slabs", is.Slabs),
		slog.Uint64("index_widenings", is.Widenings),
		slog.Uint64("binds_issued", bs.Issued),
		slog.Uint64("binds_elided", bs.Elided))

	for _, d := range shapes {
		d.Destroy()
	}
	for _, s := range sprites {
		s.Destroy()
	}
}

// buildShapes returns a row of regular polygons, every other one indexed.
func buildShapes(vertices, indices *slab.Allocator) ([]*ggdraw.Drawable, error) {
	var out []*ggdraw.Drawable
	for i, sides := range []int{3, 4, 5, 6, 8, 12} {
		p := ggdraw.NewPolygon(regular(sides, 40), ggdraw.RGB(1-float32(i)/6, 0.3, float32(i)/6))
		if i%2 == 1 {
			p.UseIndices(indices)
		}
		d, err := ggdraw.NewDrawable(vertices, slab.LayoutPosColorID, p)
		if err != nil {
			return nil, err
		}
		d.SetPosition(80+float32(i)*120, 150)
		out = append(out, d)
	}
	return out, nil
}

func buildSprites(vertices *slab.Allocator, tex gpucore.Handle, n int) ([]*ggdraw.Drawable, error) {
	out := make([]*ggdraw.Drawable, 0, n)
	for range n {
		s := ggdraw.NewSprite(tex, 32, 32)
		d, err := ggdraw.NewDrawable(vertices, slab.LayoutPosTexColorID, s)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

func regular(sides int, radius float32) []mgl32.Vec2 {
	pts := make([]mgl32.Vec2, sides)
	for i := range pts {
		a := 2 * math.Pi * float64(i) / float64(sides)
		pts[i] = mgl32.Vec2{radius * float32(math.Cos(a)), radius * float32(math.Sin(a))}
	}
	return pts
}

// fontAtlas rasterizes the printable ASCII range of face into a 16-column
// grid and uploads it.
func fontAtlas(ctx *gpuctx.Context, face *basicfont.Face) (ggdraw.GridAtlas, error) {
	const (
		first   = 32
		count   = 96
		columns = 16
		rows    = count / columns
	)
	cw, ch := face.Advance, face.Height
	img := image.NewRGBA(image.Rect(0, 0, columns*cw, rows*ch))
	drawer := &font.Drawer{Dst: img, Src: image.NewUniform(color.White), Face: face}
	for i := range count {
		col, row := i%columns, i/columns
		drawer.Dot = fixed.P(col*cw, row*ch+face.Ascent)
		drawer.DrawString(string(rune(first + i)))
	}
	tex, err := ggdraw.UploadTexture(ctx, gpucore.ImageFromRGBA(img))
	if err != nil {
		return ggdraw.GridAtlas{}, err
	}
	return ggdraw.GridAtlas{Tex: tex, First: first, Count: count, Columns: columns, Rows: rows}, nil
}
