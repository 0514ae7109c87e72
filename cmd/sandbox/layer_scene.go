package main

import (
	"encoding/binary"
	"log/slog"
	"math"

	"github.com/hubastard/overlay/engine/colors"
	"github.com/hubastard/overlay/engine/core"
	"github.com/hubastard/overlay/engine/profiler"
)

// SceneLayer stands in for the host application: it draws a spinning quad
// straight on the device with its own render state, which the overlay must
// leave intact.
type SceneLayer struct {
	vb    core.VertexBuffer
	ib    core.IndexBuffer
	angle float32
	off   bool
}

var sceneQuad = [4]struct {
	x, y float32
	col  colors.Color
}{
	{-0.5, -0.5, colors.Red},
	{0.5, -0.5, colors.Green},
	{0.5, 0.5, colors.Blue},
	{-0.5, 0.5, colors.Yellow},
}

func (l *SceneLayer) OnAttach(e *core.Engine) {
	dev := e.Host.Device()
	var err error
	if l.vb, err = dev.CreateVertexBuffer(len(sceneQuad)); err != nil {
		slog.Error("scene: create vertex buffer", "err", err)
		l.off = true
		return
	}
	if l.ib, err = dev.CreateIndexBuffer(6, core.IndexFormat16); err != nil {
		slog.Error("scene: create index buffer", "err", err)
		l.off = true
		return
	}
	if err := l.fill(); err != nil {
		slog.Error("scene: fill buffers", "err", err)
		l.off = true
	}
}

func (l *SceneLayer) fill() error {
	vs, err := l.vb.Lock(len(sceneQuad))
	if err != nil {
		return err
	}
	for i, q := range sceneQuad {
		c := q.col.RGBA8()
		vs[i] = core.Vertex{
			Pos:   [3]float32{q.x, q.y, 0.5},
			Color: uint32(c[3])<<24 | uint32(c[0])<<16 | uint32(c[1])<<8 | uint32(c[2]),
		}
	}
	if err := l.vb.Unlock(); err != nil {
		return err
	}

	raw, err := l.ib.Lock(6)
	if err != nil {
		return err
	}
	for i, idx := range [6]uint16{0, 1, 2, 0, 2, 3} {
		binary.NativeEndian.PutUint16(raw[i*2:], idx)
	}
	return l.ib.Unlock()
}

func (l *SceneLayer) OnDetach(e *core.Engine) {
	if l.vb != nil {
		l.vb.Release()
	}
	if l.ib != nil {
		l.ib.Release()
	}
}

func (l *SceneLayer) OnUpdate(e *core.Engine, dt float64) {
	l.angle += float32(dt)
}

func (l *SceneLayer) OnRender(e *core.Engine, alpha float64) {
	if l.off {
		return
	}
	defer profiler.Start("SceneLayer.OnRender")()

	dev := e.Host.Device()
	w, h := e.Window.FramebufferSize()
	if w < 1 || h < 1 {
		return
	}
	s, c := math.Sincos(float64(l.angle))
	aspect := float32(h) / float32(w)
	world := core.Matrix{
		float32(c) * aspect, float32(s), 0, 0,
		-float32(s) * aspect, float32(c), 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}

	// The scene relies on depth testing and back-face culling being on;
	// the overlay turns both off while it draws.
	steps := []func() error{
		func() error { return dev.SetRenderState(core.RSLighting, core.False) },
		func() error { return dev.SetRenderState(core.RSZEnable, core.True) },
		func() error { return dev.SetRenderState(core.RSCullMode, core.CullCCW) },
		func() error { return dev.SetRenderState(core.RSAlphaBlendEnable, core.False) },
		func() error { return dev.SetRenderState(core.RSScissorTestEnable, core.False) },
		func() error { return dev.SetTexture(0, nil) },
		func() error { return dev.SetTextureStageState(0, core.TSSColorOp, core.TopSelectArg1) },
		func() error { return dev.SetTextureStageState(0, core.TSSColorArg1, core.TADiffuse) },
		func() error { return dev.SetTransform(core.TSWorld, world) },
		func() error { return dev.SetTransform(core.TSView, core.Identity) },
		func() error { return dev.SetTransform(core.TSProjection, core.Identity) },
		func() error {
			return dev.SetStreamSource(0, core.StreamBinding{Buffer: l.vb, Stride: core.VertexSize})
		},
		func() error { return dev.SetIndices(l.ib) },
		func() error { return dev.SetVertexFormat(core.VertexFVF) },
		func() error { return dev.DrawIndexedPrimitive(core.PrimitiveTriangleList, 0, 0, 4, 0, 2) },
	}
	for _, step := range steps {
		if err := step(); err != nil {
			slog.Warn("scene: draw", "err", err)
			return
		}
	}
}

func (l *SceneLayer) OnEvent(e *core.Engine, ev core.Event) bool { return false }
