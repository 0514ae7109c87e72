package uirender

import (
	"errors"
	"sync"
	"testing"

	"github.com/hubastard/overlay/engine/gfx/devicetest"
	"github.com/hubastard/overlay/engine/gui"
	"github.com/hubastard/overlay/engine/text"
)

var errBoom = errors.New("boom")

var testAtlas = sync.OnceValues(func() (*text.Atlas, error) { return text.Default(13) })

var fullClip = [4]float32{0, 0, 800, 600}

// newRenderer returns a renderer on an 800x600 fake device that already has
// host resources bound.
func newRenderer(t *testing.T, opts ...Option) (*Renderer, *devicetest.Device, *gui.Context) {
	t.Helper()
	atlas, err := testAtlas()
	if err != nil {
		t.Fatal(err)
	}
	dev := devicetest.New(800, 600)
	dev.BindHostResources()
	ctx := gui.NewContext(atlas)
	r, err := New(ctx, dev, opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(r.Close)
	return r, dev, ctx
}

func quad(x0, y0, x1, y1 float32, col [4]uint8) []gui.Vertex {
	return []gui.Vertex{
		{Pos: [2]float32{x0, y0}, UV: [2]float32{0, 0}, Col: col},
		{Pos: [2]float32{x1, y0}, UV: [2]float32{1, 0}, Col: col},
		{Pos: [2]float32{x1, y1}, UV: [2]float32{1, 1}, Col: col},
		{Pos: [2]float32{x0, y1}, UV: [2]float32{0, 1}, Col: col},
	}
}

// quadList builds a list of n quads drawn by a single command.
func quadList(n int, tex gui.TextureID, clip [4]float32) *gui.DrawList {
	dl := &gui.DrawList{}
	for i := range n {
		base := gui.Index(len(dl.VtxBuffer))
		x := float32(i * 10)
		dl.VtxBuffer = append(dl.VtxBuffer, quad(x, 0, x+10, 10, [4]uint8{0x11, 0x22, 0x33, 0x44})...)
		dl.IdxBuffer = append(dl.IdxBuffer, base, base+1, base+2, base, base+2, base+3)
	}
	dl.CmdBuffer = []gui.DrawCmd{{ElemCount: uint32(6 * n), ClipRect: clip, TextureID: tex}}
	return dl
}

func frame(lists ...*gui.DrawList) *gui.DrawData {
	return gui.NewDrawData([2]float32{}, [2]float32{800, 600}, [2]float32{1, 1}, lists...)
}

type drawArgs struct {
	Base        int32
	NumVertices uint32
	Start       uint32
	Prims       uint32
}

func argsOf(draws []devicetest.Draw) []drawArgs {
	out := make([]drawArgs, len(draws))
	for i, d := range draws {
		out[i] = drawArgs{Base: d.BaseVertex, NumVertices: d.NumVertices, Start: d.StartIndex, Prims: d.PrimCount}
	}
	return out
}
