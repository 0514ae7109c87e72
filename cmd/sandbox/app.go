package main

import (
	"time"

	"github.com/hubastard/overlay/engine/core"
	"github.com/hubastard/overlay/engine/profiler"
)

// App pushes the host scene and the overlay and tracks frame timing for the
// overlay to display.
type App struct {
	cfg       sandboxConfig
	lastFrame time.Time
	frameMS   float32
	scene     *SceneLayer
	overlay   *OverlayLayer
}

func (a *App) OnStart(e *core.Engine) {
	profiler.Init(1 << 12)

	a.scene = &SceneLayer{}
	e.Layers.Push(a.scene)

	a.overlay = &OverlayLayer{cfg: a.cfg, frameMS: &a.frameMS}
	e.Layers.Push(a.overlay)
}

func (a *App) OnUpdate(e *core.Engine, dt float64) {
	if e.Input.IsKeyDown(core.KeyEscape) {
		e.Window.RequestClose()
	}
}

func (a *App) OnRender(e *core.Engine, alpha float64) {
	now := time.Now()
	if !a.lastFrame.IsZero() {
		a.frameMS = float32(now.Sub(a.lastFrame).Seconds() * 1000)
	}
	a.lastFrame = now
}

func (a *App) OnEvent(e *core.Engine, ev core.Event) {
	if _, ok := ev.(core.EventCloseRequested); ok {
		e.Window.RequestClose()
	}
}

func (a *App) OnShutdown(e *core.Engine) {}
