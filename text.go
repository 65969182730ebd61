package ggdraw

import (
	"unicode"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/gogpu/ggdraw/gpucore"
	"github.com/gogpu/ggdraw/internal/cache"
	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
	"golang.org/x/text/unicode/norm"
)

// GlyphAtlas maps runes to regions of a pre-rendered glyph texture.
// Rasterising the glyphs is up to the caller.
type GlyphAtlas interface {
	Texture() gpucore.Handle
	Region(r rune) (uv mgl32.Vec4, ok bool)
}

// GridAtlas is a GlyphAtlas whose glyphs are laid out in equal cells,
// row-major, starting at rune First.
type GridAtlas struct {
	Tex     gpucore.Handle
	First   rune
	Count   int
	Columns int
	Rows    int
}

// Texture implements GlyphAtlas.
func (a GridAtlas) Texture() gpucore.Handle { return a.Tex }

// Region implements GlyphAtlas.
func (a GridAtlas) Region(r rune) (mgl32.Vec4, bool) {
	i := int(r - a.First)
	if i < 0 || i >= a.Count || a.Columns <= 0 || a.Rows <= 0 {
		return mgl32.Vec4{}, false
	}
	cw, ch := 1/float32(a.Columns), 1/float32(a.Rows)
	u, v := float32(i%a.Columns)*cw, float32(i/a.Columns)*ch
	return mgl32.Vec4{u, v, u + cw, v + ch}, true
}

// DefaultGlyphCacheSize is the number of glyph metrics a Text keeps.
const DefaultGlyphCacheSize = 256

type glyphMetrics struct {
	bounds  fixed.Rectangle26_6
	advance fixed.Int26_6
	ok      bool
}

type placedGlyph struct {
	rect mgl32.Vec4
	uv   mgl32.Vec4
}

// Text is a string laid out with a font.Face and drawn as one textured quad
// per visible glyph. Strings are NFC-normalised before layout, so composed
// and decomposed input look up the same glyphs.
type Text struct {
	face    font.Face
	atlas   GlyphAtlas
	color   Color
	text    string
	metrics *cache.LRU[rune, glyphMetrics]

	glyphs        []placedGlyph
	width, height float32
}

// NewText lays out s. The top-left of the first line is the local origin.
func NewText(face font.Face, atlas GlyphAtlas, s string, c Color) *Text {
	t := &Text{
		face:    face,
		atlas:   atlas,
		color:   c,
		metrics: cache.New[rune, glyphMetrics](DefaultGlyphCacheSize),
	}
	t.SetText(s)
	return t
}

// Text returns the normalised string.
func (t *Text) Text() string { return t.text }

// SetText replaces the string. Call Drawable.Refresh afterwards.
func (t *Text) SetText(s string) {
	t.text = norm.NFC.String(s)
	t.layout()
}

// SetColor sets the text color. Call Drawable.MarkChanged afterwards.
func (t *Text) SetColor(c Color) { t.color = c }

// Size returns the laid-out width and height.
func (t *Text) Size() (w, h float32) { return t.width, t.height }

// Glyphs returns the number of quads drawn.
func (t *Text) Glyphs() int { return len(t.glyphs) }

// CacheStats returns the glyph metric cache counters.
func (t *Text) CacheStats() cache.Stats { return t.metrics.Stats() }

// Texture returns the atlas texture.
func (t *Text) Texture() gpucore.Handle { return t.atlas.Texture() }

// VertexCount returns six vertices per visible glyph.
func (t *Text) VertexCount() uint32 { return uint32(6 * len(t.glyphs)) }

func (t *Text) metric(r rune) glyphMetrics {
	return t.metrics.GetOrCreate(r, func() glyphMetrics {
		b, adv, ok := t.face.GlyphBounds(r)
		return glyphMetrics{bounds: b, advance: adv, ok: ok}
	})
}

func fx(v fixed.Int26_6) float32 { return float32(v) / 64 }

func (t *Text) layout() {
	t.glyphs = t.glyphs[:0]
	m := t.face.Metrics()
	ascent, lineHeight := fx(m.Ascent), fx(m.Height)

	var x fixed.Int26_6
	var y, width float32
	prev := rune(-1)
	for _, r := range t.text {
		if r == '\n' {
			width = max(width, fx(x))
			x, prev = 0, -1
			y += lineHeight
			continue
		}
		if prev >= 0 {
			x += t.face.Kern(prev, r)
		}
		g := t.metric(r)
		if g.ok && !unicode.IsSpace(r) {
			if uv, ok := t.atlas.Region(r); ok {
				base := y + ascent
				t.glyphs = append(t.glyphs, placedGlyph{
					rect: mgl32.Vec4{
						fx(x + g.bounds.Min.X), base + fx(g.bounds.Min.Y),
						fx(x + g.bounds.Max.X), base + fx(g.bounds.Max.Y),
					},
					uv: uv,
				})
			}
		}
		x += g.advance
		prev = r
	}
	t.width = max(width, fx(x))
	t.height = y + lineHeight
}

// Fill implements Shape.
func (t *Text) Fill(d *Drawable, dst []byte) {
	w := newVertexWriter(d.Layout())
	for i, g := range t.glyphs {
		putQuad(w, dst, 6*i, g.rect, g.uv, t.color)
	}
}

// Render implements Shape.
func (t *Text) Render(call DrawCall) error {
	call.DrawArrays()
	return nil
}
