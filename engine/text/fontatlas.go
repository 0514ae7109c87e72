// Package text rasterizes TrueType/OpenType fonts into an RGBA32 glyph atlas
// that the GUI uploads once as its font texture.
package text

import (
	"fmt"
	"image"
	"image/draw"
	"os"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

// Glyph locates one rune inside the atlas.
type Glyph struct {
	Rune     rune
	Advance  float32 // pixels
	BearingX float32 // left bearing in pixels
	BearingY float32 // distance from baseline to glyph top
	W, H     int     // glyph bitmap size
	U0, V0   float32 // UVs in atlas
	U1, V1   float32
}

// Atlas is a rasterized font: white glyphs with alpha coverage.
type Atlas struct {
	SizePx                   float32
	Ascent, Descent, LineGap float32
	Glyphs                   map[rune]Glyph
	Width, Height            int
	// WhiteUV samples an opaque white texel, used for untextured shapes so a
	// whole frame can be drawn with the font texture bound.
	WhiteUV [2]float32

	pixels []byte
	face   font.Face
}

const (
	atlasPadding = 2
	whiteBlock   = 2
	minAtlasSize = 256
	maxAtlasSize = 4096
)

// Default builds an atlas from the embedded Go Regular face.
func Default(sizePx float32) (*Atlas, error) {
	return NewAtlas(goregular.TTF, sizePx)
}

// LoadTTF reads a font file and builds its atlas.
func LoadTTF(path string, sizePx float32) (*Atlas, error) {
	ttfData, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read font: %w", err)
	}
	return NewAtlas(ttfData, sizePx)
}

// NewAtlas rasterizes Latin-1 (32..255) from ttf at sizePx.
func NewAtlas(ttf []byte, sizePx float32) (*Atlas, error) {
	if sizePx <= 0 {
		return nil, fmt.Errorf("font size %v must be positive", sizePx)
	}
	ft, err := opentype.Parse(ttf)
	if err != nil {
		return nil, fmt.Errorf("parse font: %w", err)
	}
	face, err := opentype.NewFace(ft, &opentype.FaceOptions{
		Size: float64(sizePx), DPI: 72, Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("new face: %w", err)
	}

	m := face.Metrics()
	a := &Atlas{
		SizePx:  sizePx,
		Ascent:  float32(m.Ascent.Round()),
		Descent: float32(-m.Descent.Round()),
		face:    face,
	}
	a.LineGap = float32(m.Height.Round()) - a.Ascent + a.Descent

	measured := measureGlyphs(face)
	size, pos, err := packShelves(measured)
	if err != nil {
		_ = face.Close()
		return nil, err
	}
	a.rasterize(measured, size, pos)
	return a, nil
}

type glyphMetrics struct {
	r      rune
	w, h   int
	adv    float32
	bx, by float32
}

func measureGlyphs(face font.Face) []glyphMetrics {
	out := make([]glyphMetrics, 0, 224)
	for r := rune(32); r <= 255; r++ {
		br, adv, ok := face.GlyphBounds(r)
		if !ok {
			continue
		}
		out = append(out, glyphMetrics{
			r:   r,
			w:   (br.Max.X - br.Min.X).Ceil(),
			h:   (br.Max.Y - br.Min.Y).Ceil(),
			adv: float32(adv.Round()),
			bx:  float32(br.Min.X.Floor()),
			by:  float32(-br.Min.Y.Floor()),
		})
	}
	return out
}

// packShelves places glyphs in rows, doubling the square atlas until they fit.
// The top-left corner is reserved for the white block.
func packShelves(glyphs []glyphMetrics) (int, map[rune]image.Point, error) {
	for size := minAtlasSize; size <= maxAtlasSize; size *= 2 {
		pos := make(map[rune]image.Point, len(glyphs))
		x, y, rowH := atlasPadding*2+whiteBlock, atlasPadding, whiteBlock
		fits := true
		for _, g := range glyphs {
			if g.w == 0 || g.h == 0 {
				continue
			}
			if x+g.w+atlasPadding > size {
				x = atlasPadding
				y += rowH + atlasPadding
				rowH = 0
			}
			if x+g.w+atlasPadding > size || y+g.h+atlasPadding > size {
				fits = false
				break
			}
			pos[g.r] = image.Pt(x, y)
			x += g.w + atlasPadding
			rowH = max(rowH, g.h)
		}
		if fits {
			return size, pos, nil
		}
	}
	return 0, nil, fmt.Errorf("font atlas too large (>%d)", maxAtlasSize)
}

func (a *Atlas) rasterize(glyphs []glyphMetrics, size int, pos map[rune]image.Point) {
	dst := image.NewRGBA(image.Rect(0, 0, size, size))

	white := image.Rect(atlasPadding, atlasPadding, atlasPadding+whiteBlock, atlasPadding+whiteBlock)
	draw.Draw(dst, white, image.White, image.Point{}, draw.Src)
	c := float32(atlasPadding) + whiteBlock/2
	a.WhiteUV = [2]float32{c / float32(size), c / float32(size)}

	drawer := &font.Drawer{Dst: dst, Src: image.White, Face: a.face}
	a.Glyphs = make(map[rune]Glyph, len(glyphs))
	for _, g := range glyphs {
		gl := Glyph{Rune: g.r, Advance: g.adv, BearingX: g.bx, BearingY: g.by, W: g.w, H: g.h}
		if p, ok := pos[g.r]; ok {
			// Drawer expects the dot on the baseline.
			drawer.Dot = fixed.P(p.X-int(g.bx), p.Y+int(g.by))
			drawer.DrawString(string(g.r))
			gl.U0 = float32(p.X) / float32(size)
			gl.V0 = float32(p.Y) / float32(size)
			gl.U1 = float32(p.X+g.w) / float32(size)
			gl.V1 = float32(p.Y+g.h) / float32(size)
		}
		a.Glyphs[g.r] = gl
	}

	a.Width, a.Height = size, size
	a.pixels = dst.Pix
}

// RGBA32 returns the tightly packed atlas pixels.
func (a *Atlas) RGBA32() (pixels []byte, w, h int) { return a.pixels, a.Width, a.Height }

// Kern returns the kerning adjustment between prev and r in pixels.
func (a *Atlas) Kern(prev, r rune) float32 {
	if a.face == nil || prev < 0 {
		return 0
	}
	return float32(a.face.Kern(prev, r)) / 64
}

// LineHeight is the baseline-to-baseline distance.
func (a *Atlas) LineHeight() float32 { return a.Ascent - a.Descent + a.LineGap }

// Measure returns the size of s laid out at the atlas' native size.
func (a *Atlas) Measure(s string) (width, height float32) {
	var lineW float32
	prev := rune(-1)
	height = a.LineHeight()
	for _, r := range s {
		if r == '\n' {
			width = max(width, lineW)
			lineW = 0
			height += a.LineHeight()
			prev = -1
			continue
		}
		g, ok := a.Glyphs[r]
		if !ok {
			g = a.Glyphs[' ']
		}
		lineW += a.Kern(prev, r) + g.Advance
		prev = r
	}
	return max(width, lineW), height
}

// Close releases the font face. The pixels stay valid.
func (a *Atlas) Close() {
	if a != nil && a.face != nil {
		_ = a.face.Close()
		a.face = nil
	}
}
