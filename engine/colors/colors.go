package colors

// Color is a straight (non-premultiplied) RGBA color in [0..1].
type Color [4]float32

var (
	White       = Color{1, 1, 1, 1}
	Red         = Color{1, 0, 0, 1}
	Green       = Color{0, 1, 0, 1}
	Blue        = Color{0, 0, 1, 1}
	Black       = Color{0, 0, 0, 1}
	Yellow      = Color{1, 1, 0, 1}
	Gray        = Color{0.5, 0.5, 0.5, 1}
	DarkGray    = Color{0.08, 0.10, 0.12, 1}
	Transparent = Color{}
)

func (c Color) WithAlpha(a float32) Color {
	c[3] = a
	return c
}

// RGBA8 quantizes c to 8-bit channels in R, G, B, A order.
func (c Color) RGBA8() [4]uint8 {
	var out [4]uint8
	for i, v := range c {
		switch {
		case v <= 0:
			out[i] = 0
		case v >= 1:
			out[i] = 255
		default:
			out[i] = uint8(v*255 + 0.5)
		}
	}
	return out
}

// FromRGBA8 is the inverse of RGBA8.
func FromRGBA8(p [4]uint8) Color {
	return Color{float32(p[0]) / 255, float32(p[1]) / 255, float32(p[2]) / 255, float32(p[3]) / 255}
}
