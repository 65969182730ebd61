package ggdraw

import (
	"encoding/binary"
	"math"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/gogpu/ggdraw/slab"
	"github.com/gogpu/gputypes"
)

// vertexWriter writes vertices of one layout, mapping attributes by format:
// float32x2 at location 0 is the position, any other float32x2 the texture
// coordinate, float32x4 the color. Other attributes are left zero.
type vertexWriter struct {
	stride uint64
	pos    int
	uv     int
	color  int
}

func newVertexWriter(l slab.Layout) vertexWriter {
	w := vertexWriter{stride: l.Stride, pos: -1, uv: -1, color: -1}
	for _, a := range l.Attributes {
		switch {
		case a.Format == gputypes.VertexFormatFloat32x2 && a.ShaderLocation == 0:
			w.pos = int(a.Offset)
		case a.Format == gputypes.VertexFormatFloat32x2:
			w.uv = int(a.Offset)
		case a.Format == gputypes.VertexFormatFloat32x4:
			w.color = int(a.Offset)
		}
	}
	return w
}

func (w vertexWriter) hasUV() bool { return w.uv >= 0 }

func (w vertexWriter) put(dst []byte, i int, pos, uv mgl32.Vec2, c Color) {
	v := dst[uint64(i)*w.stride:]
	if w.pos >= 0 {
		putVec2(v[w.pos:], pos)
	}
	if w.uv >= 0 {
		putVec2(v[w.uv:], uv)
	}
	if w.color >= 0 {
		putFloat(v[w.color:], c.R)
		putFloat(v[w.color+4:], c.G)
		putFloat(v[w.color+8:], c.B)
		putFloat(v[w.color+12:], c.A)
	}
}

func putFloat(b []byte, f float32) {
	binary.LittleEndian.PutUint32(b, math.Float32bits(f))
}

func getFloat(b []byte) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(b))
}

func putVec2(b []byte, v mgl32.Vec2) {
	putFloat(b, v[0])
	putFloat(b[4:], v[1])
}

func getVec2(b []byte) mgl32.Vec2 {
	return mgl32.Vec2{getFloat(b), getFloat(b[4:])}
}

// transformPositions applies m to the float32x2 position at byte offset pos
// of every vertex in data. The transformed z is discarded.
func transformPositions(data []byte, stride uint64, pos int, m mgl32.Mat4) {
	for off := uint64(0); off+stride <= uint64(len(data)); off += stride {
		b := data[off+uint64(pos):]
		p := getVec2(b)
		t := m.Mul4x1(mgl32.Vec4{p[0], p[1], 0, 1})
		putVec2(b, mgl32.Vec2{t[0], t[1]})
	}
}
