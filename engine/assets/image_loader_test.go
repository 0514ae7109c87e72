package assets

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

func TestLoadImage(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 3, 2))
	img.SetNRGBA(0, 0, color.NRGBA{R: 255, A: 255})
	img.SetNRGBA(2, 1, color.NRGBA{B: 200, A: 128})

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "tex.png")
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}

	w, h, pix, err := LoadImage(path)
	if err != nil {
		t.Fatalf("LoadImage: %v", err)
	}
	if w != 3 || h != 2 || len(pix) != 3*2*4 {
		t.Fatalf("got %dx%d, %d bytes", w, h, len(pix))
	}
	if got := pix[0:4]; !bytes.Equal(got, []byte{255, 0, 0, 255}) {
		t.Errorf("top-left = %v", got)
	}
	// Straight alpha survives the repack.
	if got := pix[(1*3+2)*4:]; !bytes.Equal(got, []byte{0, 0, 200, 128}) {
		t.Errorf("bottom-right = %v", got)
	}
}

func TestLoadImageErrors(t *testing.T) {
	dir := t.TempDir()
	if _, _, _, err := LoadImage(filepath.Join(dir, "missing.png")); err == nil {
		t.Error("missing file: want error")
	}
	bad := filepath.Join(dir, "bad.png")
	if err := os.WriteFile(bad, []byte("not an image"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, _, _, err := LoadImage(bad); err == nil {
		t.Error("garbage: want error")
	}
}

func TestPixelsSubImage(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	img.SetNRGBA(1, 1, color.NRGBA{G: 9, A: 255})
	sub := img.SubImage(image.Rect(1, 1, 3, 3))

	w, h, pix := Pixels(sub)
	if w != 2 || h != 2 {
		t.Fatalf("size = %dx%d", w, h)
	}
	if pix[1] != 9 || pix[3] != 255 {
		t.Errorf("origin pixel = %v", pix[:4])
	}
}
