package uirender

import (
	"fmt"
	"math"

	"github.com/hubastard/overlay/engine/core"
	"github.com/hubastard/overlay/engine/gui"
)

// stateWriter applies a run of device calls and keeps the first failure, so
// setup code reads as a flat list.
type stateWriter struct {
	dev core.Device
	err error
}

func (w *stateWriter) fail(op string, err error) {
	if err != nil && w.err == nil {
		w.err = deviceLost(op, err)
	}
}

func (w *stateWriter) rs(s core.RenderState, v uint32) {
	if w.err == nil {
		w.fail(fmt.Sprintf("set render state %d", s), w.dev.SetRenderState(s, v))
	}
}

func (w *stateWriter) tss(s core.TextureStageState, v uint32) {
	if w.err == nil {
		w.fail(fmt.Sprintf("set stage state %d", s), w.dev.SetTextureStageState(0, s, v))
	}
}

func (w *stateWriter) samp(s core.SamplerState, v uint32) {
	if w.err == nil {
		w.fail(fmt.Sprintf("set sampler state %d", s), w.dev.SetSamplerState(0, s, v))
	}
}

func (w *stateWriter) transform(t core.TransformState, m core.Matrix) {
	if w.err == nil {
		w.fail(fmt.Sprintf("set transform %d", t), w.dev.SetTransform(t, m))
	}
}

// Projection maps display coordinates to clip space: the top-left of the
// display lands at (-1, 1) and y grows downwards. offset shifts the pixel
// grid, 0.5 for devices that sample at integer coordinates.
func Projection(pos, size [2]float32, offset float32) core.Matrix {
	l := pos[0] + offset
	r := pos[0] + size[0] + offset
	t := pos[1] + offset
	b := pos[1] + size[1] + offset
	return core.Matrix{
		2 / (r - l), 0, 0, 0,
		0, 2 / (t - b), 0, 0,
		0, 0, 0.5, 0,
		(l + r) / (l - r), (t + b) / (b - t), 0.5, 1,
	}
}

func pixelOffset(dev core.Device) float32 {
	if pc, ok := dev.(core.PixelCenterer); ok {
		return pc.PixelCenterOffset()
	}
	return 0.5
}

// setupRenderState puts the device in the overlay's fixed-function
// configuration: no shaders, depth or culling, straight alpha blending,
// scissoring on, and texture times vertex color on stage 0.
func (r *Renderer) setupRenderState(dd *gui.DrawData) error {
	fbW, fbH := dd.FramebufferSize()
	if err := r.dev.SetViewport(core.Viewport{Width: uint32(fbW), Height: uint32(fbH), MaxZ: 1}); err != nil {
		return deviceLost("set viewport", err)
	}
	if err := r.dev.SetVertexShader(nil); err != nil {
		return deviceLost("unbind vertex shader", err)
	}
	if err := r.dev.SetPixelShader(nil); err != nil {
		return deviceLost("unbind pixel shader", err)
	}
	if err := r.buffers.Bind(); err != nil {
		return err
	}

	w := stateWriter{dev: r.dev}
	w.rs(core.RSFillMode, core.FillSolid)
	w.rs(core.RSCullMode, core.CullNone)
	w.rs(core.RSLighting, core.False)
	w.rs(core.RSZEnable, core.False)
	w.rs(core.RSAlphaBlendEnable, core.True)
	w.rs(core.RSAlphaTestEnable, core.False)
	w.rs(core.RSBlendOp, core.BlendOpAdd)
	w.rs(core.RSSrcBlend, core.BlendSrcAlpha)
	w.rs(core.RSDestBlend, core.BlendInvSrcAlpha)
	w.rs(core.RSScissorTestEnable, core.True)
	w.rs(core.RSShadeMode, core.ShadeGouraud)
	w.rs(core.RSFogEnable, core.False)

	w.tss(core.TSSColorOp, core.TopModulate)
	w.tss(core.TSSColorArg1, core.TATexture)
	w.tss(core.TSSColorArg2, core.TADiffuse)
	w.tss(core.TSSAlphaOp, core.TopModulate)
	w.tss(core.TSSAlphaArg1, core.TATexture)
	w.tss(core.TSSAlphaArg2, core.TADiffuse)

	w.samp(core.SampMinFilter, core.TexFLinear)
	w.samp(core.SampMagFilter, core.TexFLinear)

	w.transform(core.TSWorld, core.Identity)
	w.transform(core.TSView, core.Identity)
	w.transform(core.TSProjection, Projection(dd.DisplayPos, dd.DisplaySize, pixelOffset(r.dev)))
	if w.err != nil {
		return w.err
	}

	r.binder.Invalidate()
	return nil
}

// ScissorRect converts a command clip rectangle from display coordinates to
// framebuffer pixels, clamped to the framebuffer. Inverted or fully outside
// rectangles come back empty.
func ScissorRect(clip [4]float32, displayPos, scale [2]float32, fbW, fbH float32) core.Rect {
	x0 := (clip[0] - displayPos[0]) * scale[0]
	y0 := (clip[1] - displayPos[1]) * scale[1]
	x1 := (clip[2] - displayPos[0]) * scale[0]
	y1 := (clip[3] - displayPos[1]) * scale[1]

	x0, x1 = clampf(x0, 0, fbW), clampf(x1, 0, fbW)
	y0, y1 = clampf(y0, 0, fbH), clampf(y1, 0, fbH)
	if x1 <= x0 || y1 <= y0 {
		return core.Rect{}
	}
	return core.Rect{
		Left:   int32(x0),
		Top:    int32(y0),
		Right:  int32(x1),
		Bottom: int32(y1),
	}
}

func clampf(v, lo, hi float32) float32 {
	if math.IsNaN(float64(v)) {
		return lo
	}
	return min(max(v, lo), hi)
}

// drawLists issues one indexed draw per element command. Each list's indices
// start at its own base in the shared buffers; VtxOffset moves the base
// vertex further for lists larger than the index type can address.
func (r *Renderer) drawLists(dd *gui.DrawData, bases []listBase) error {
	fbW, fbH := dd.FramebufferSize()
	for li, list := range dd.Lists {
		base := bases[li]
		idxOffset := base.Index
		for ci := range list.CmdBuffer {
			cmd := &list.CmdBuffer[ci]
			r.stats.Commands++

			switch cmd.Kind {
			case gui.CmdResetRenderState:
				if err := r.setupRenderState(dd); err != nil {
					return err
				}
				continue
			case gui.CmdCallback:
				if cmd.Callback != nil {
					cmd.Callback(list, cmd)
				}
				// The callback may have bound anything.
				r.binder.Invalidate()
				r.stats.Callbacks++
				continue
			}

			count := cmd.ElemCount
			if count == 0 {
				continue
			}
			start := idxOffset
			idxOffset += int(count)

			rect := ScissorRect(cmd.ClipRect, dd.DisplayPos, dd.FramebufferScale, fbW, fbH)
			if rect.Empty() {
				r.stats.Clipped++
				continue
			}
			if err := r.dev.SetScissorRect(rect); err != nil {
				return deviceLost("set scissor rect", err)
			}
			if err := r.binder.Bind(cmd.TextureID); err != nil {
				return err
			}

			numVertices := len(list.VtxBuffer) - int(cmd.VtxOffset)
			if err := r.dev.DrawIndexedPrimitive(
				core.PrimitiveTriangleList,
				int32(base.Vertex+int(cmd.VtxOffset)),
				0,
				uint32(max(numVertices, 0)),
				uint32(start),
				count/3,
			); err != nil {
				return deviceLost("draw indexed primitive", err)
			}
			r.stats.DrawCalls++
			r.stats.Triangles += int(count / 3)
		}
	}
	return nil
}
