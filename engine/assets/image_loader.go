// Package assets loads images from disk into the tightly packed RGBA8 form
// the overlay renderer uploads.
package assets

import (
	"fmt"
	"image"
	"image/draw"
	_ "image/png"
	"os"

	_ "golang.org/x/image/bmp"
)

// LoadImage decodes a PNG or BMP file and returns width, height, and tightly
// packed straight-alpha RGBA8 pixels (row-major, top-left origin).
func LoadImage(path string) (w, h int, rgba []byte, err error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, nil, fmt.Errorf("open %q: %w", path, err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return 0, 0, nil, fmt.Errorf("decode %q: %w", path, err)
	}
	w, h, rgba = Pixels(img)
	return w, h, rgba, nil
}

// Pixels repacks img into rows of exactly 4*w bytes.
func Pixels(img image.Image) (w, h int, rgba []byte) {
	src := imageToRGBA(img)
	w, h = src.Bounds().Dx(), src.Bounds().Dy()

	out := make([]byte, w*h*4)
	for y := 0; y < h; y++ {
		copy(out[y*w*4:(y+1)*w*4], src.Pix[y*src.Stride:y*src.Stride+w*4])
	}
	return w, h, out
}

// imageToRGBA converts to non-premultiplied RGBA. image.RGBA is
// premultiplied, so only fully opaque sources could take it directly.
func imageToRGBA(img image.Image) *image.NRGBA {
	if m, ok := img.(*image.NRGBA); ok && m.Rect.Min == (image.Point{}) {
		return m
	}
	b := img.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst
}
