package ggdraw

import (
	"image/color"
	"testing"
)

func TestHex(t *testing.T) {
	tests := []struct {
		in   string
		want Color
	}{
		{"#fff", White},
		{"f00", Red},
		{"00ff00", Green},
		{"#0000FF", Blue},
		{"00000000", Transparent},
		{"f008", Color{1, 0, 0, float32(0x88) / 255}},
		{"zzz", Black},
		{"12345", Black},
		{"", Black},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := Hex(tt.in); got != tt.want {
				t.Errorf("Hex(%q) = %+v, want %+v", tt.in, got, tt.want)
			}
		})
	}
}

func TestFromColor(t *testing.T) {
	got := FromColor(color.NRGBA{R: 255, G: 0, B: 255, A: 255})
	if got != RGB(1, 0, 1) {
		t.Errorf("FromColor() = %+v", got)
	}
	if v := Red.Vec4(); v[0] != 1 || v[3] != 1 {
		t.Errorf("Vec4() = %v", v)
	}
	if p := RGBA(1, 1, 1, 0.5).Premultiply(); p.R != 0.5 || p.A != 0.5 {
		t.Errorf("Premultiply() = %+v", p)
	}
}
