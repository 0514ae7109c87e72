package main

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/hubastard/overlay/engine/assets"
	"github.com/hubastard/overlay/engine/colors"
	"github.com/hubastard/overlay/engine/core"
	"github.com/hubastard/overlay/engine/gfx/uirender"
	"github.com/hubastard/overlay/engine/gui"
	"github.com/hubastard/overlay/engine/profiler"
	"github.com/hubastard/overlay/engine/text"
)

// OverlayLayer builds a stats panel every frame and draws it with the
// overlay renderer on the host's device.
type OverlayLayer struct {
	cfg     sandboxConfig
	frameMS *float32

	gui     *gui.Context
	r       *uirender.Renderer
	image   gui.TextureID
	imgW    float32
	imgH    float32
	hidden  bool
	tick    int
	runtime profiler.RuntimeStats
	lastErr string
}

func (l *OverlayLayer) OnAttach(e *core.Engine) {
	var (
		atlas *text.Atlas
		err   error
	)
	if l.cfg.Font != "" {
		atlas, err = text.LoadTTF(l.cfg.Font, l.cfg.FontSize)
	} else {
		atlas, err = text.Default(l.cfg.FontSize)
	}
	if err != nil {
		slog.Error("overlay: font", "err", err)
		return
	}
	l.gui = gui.NewContext(atlas)

	l.r, err = uirender.New(l.gui, e.Host.Device(),
		uirender.WithVertexSlack(l.cfg.VertexSlack),
		uirender.WithIndexSlack(l.cfg.IndexSlack),
		uirender.WithIndexValidation(l.cfg.Validate),
	)
	if err != nil {
		slog.Error("overlay: renderer", "err", err)
		l.gui = nil
		return
	}
	slog.Info("overlay: ready", "renderer", l.gui.RendererName(), "flags", l.gui.BackendFlags())

	if l.cfg.Image != "" {
		l.loadImage(l.cfg.Image)
	}
}

func (l *OverlayLayer) loadImage(path string) {
	w, h, pix, err := assets.LoadImage(path)
	if err != nil {
		slog.Warn("overlay: image", "err", err)
		return
	}
	id, err := l.r.CreateTexture(w, h, pix)
	if err != nil {
		slog.Warn("overlay: image texture", "path", path, "err", err)
		return
	}
	l.image, l.imgW, l.imgH = id, float32(w), float32(h)
}

func (l *OverlayLayer) OnDetach(e *core.Engine) {
	if l.r != nil {
		slog.Info("overlay: closing", "last_frame", l.r.Stats())
		l.r.Close()
	}
	if l.gui != nil {
		l.gui.Fonts.Close()
	}
}

func (l *OverlayLayer) OnUpdate(e *core.Engine, dt float64) {
	l.tick++
	if l.tick%30 == 1 {
		l.runtime = profiler.Runtime()
	}
}

func (l *OverlayLayer) OnRender(e *core.Engine, alpha float64) {
	if l.r == nil || l.hidden {
		return
	}
	defer profiler.Start("OverlayLayer.OnRender")()

	w, h := e.Window.FramebufferSize()
	l.gui.NewFrame(float32(w), float32(h), 1, 1)
	l.build(e, l.gui.DrawList())

	if err := l.r.Render(l.gui.Render()); err != nil {
		// One log line per distinct failure; a lost device fails every frame.
		if msg := err.Error(); msg != l.lastErr {
			l.lastErr = msg
			if errors.Is(err, uirender.ErrDeviceLost) {
				slog.Warn("overlay: device lost", "err", err)
			} else {
				slog.Error("overlay: render", "err", err)
			}
		}
		return
	}
	l.lastErr = ""
}

type statLine struct {
	text string
	col  colors.Color
}

func (l *OverlayLayer) build(e *core.Engine, dl *gui.DrawList) {
	st := l.r.Stats()
	ms := *l.frameMS
	fps := float32(0)
	if ms > 0 {
		fps = 1000 / ms
	}
	heading := colors.Yellow
	lines := []statLine{
		{"Frame", heading},
		{fmt.Sprintf("  %d  %.3f ms (%.1f FPS)", l.tick, ms, fps), colors.White},
		{"Overlay", heading},
		{fmt.Sprintf("  Draw calls: %d  Triangles: %d", st.DrawCalls, st.Triangles), colors.White},
		{fmt.Sprintf("  Vertices: %d  Indices: %d", st.Vertices, st.Indices), colors.White},
		{fmt.Sprintf("  Texture binds: %d  Clipped: %d", st.TextureBinds, st.Clipped), colors.White},
		{fmt.Sprintf("  Buffer growths: %d", st.BufferGrowths), colors.White},
		{"Memory", heading},
		{fmt.Sprintf("  Heap: %.2f MB  GCs: %d", float32(l.runtime.HeapAlloc)/(1<<20), l.runtime.NumGC), colors.White},
		{fmt.Sprintf("  Goroutines: %d  CPUs: %d", l.runtime.Goroutines, l.runtime.CPUs), colors.White},
		{"Device", heading},
		{"  " + e.Host.Describe(), colors.White},
	}

	atlas := l.gui.Fonts
	const pad, margin = 12, 16
	lh := atlas.LineHeight()
	var panelW float32
	for _, ln := range lines {
		if tw, _ := atlas.Measure(ln.text); tw > panelW {
			panelW = tw
		}
	}
	panelW += 2 * pad
	panelH := lh*float32(len(lines)) + 2*pad

	x0, y0 := float32(margin), float32(margin)
	dl.AddRectFilled(x0, y0, x0+panelW, y0+panelH, colors.Black.WithAlpha(0.6))

	// Text is clipped to the panel so long adapter names do not spill.
	dl.PushClipRect(x0, y0, x0+panelW, y0+panelH, true)
	y := y0 + pad
	for _, ln := range lines {
		dl.AddText(atlas, x0+pad, y, ln.text, ln.col)
		y += lh
	}
	dl.PopClipRect()

	if l.image != 0 {
		ix := x0 + panelW + margin
		dl.AddImage(l.image, ix, y0, ix+l.imgW, y0+l.imgH, [2]float32{0, 0}, [2]float32{1, 1}, colors.White)
	}
}

func (l *OverlayLayer) OnEvent(e *core.Engine, ev core.Event) bool {
	v, ok := ev.(core.EventKey)
	if !ok || !v.Down {
		return false
	}
	switch {
	case v.Key == core.KeyF1:
		l.hidden = !l.hidden
		return true
	case v.Key == core.KeyP && v.Mods&core.ModCtrl != 0:
		if !profiler.Enabled {
			slog.Info("profiler: rebuild with -tags profile to record scopes")
			return true
		}
		if path, err := profiler.Open(); err != nil {
			slog.Warn("profiler: dump", "err", err)
		} else {
			slog.Info("profiler: speedscope dump", "path", path)
		}
		return true
	}
	return false
}
