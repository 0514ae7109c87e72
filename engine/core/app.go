package core

import (
	"time"

	"github.com/hubastard/overlay/engine/colors"
)

// App defines the host application hooks.
type App interface {
	OnStart(e *Engine)                 // called once after window/host init
	OnUpdate(e *Engine, dt float64)    // called at a fixed tick (60Hz by default)
	OnRender(e *Engine, alpha float64) // render with interpolation alpha [0..1]
	OnEvent(e *Engine, ev Event)       // input/window events
	OnShutdown(e *Engine)              // before exit
}

// Engine exposes core services to the App.
type Engine struct {
	Window Window
	Host   Host
	Layers LayerStack
	Input  *Input
	start  time.Time
}

func (e *Engine) Uptime() time.Duration { return time.Since(e.start) }

// Window abstraction.
type Window interface {
	PollEvents()
	SwapBuffers()
	ShouldClose() bool
	RequestClose()
	FramebufferSize() (int, int)
	SetTitle(title string)
	SetEventCallback(cb func(Event))
}

// Host owns the graphics device and frame presentation. The overlay
// renderer borrows Device() and never presents on its own.
type Host interface {
	Device() Device
	Resize(w, h int)
	BeginFrame(clear colors.Color) error
	EndFrame() error
	// Describe returns a short adapter/driver description for diagnostics.
	Describe() string
	Shutdown()
}

// Event model (can expand over time).
type Event interface{ isEvent() }

type EventCloseRequested struct{}

func (EventCloseRequested) isEvent() {}

type EventResize struct{ W, H int }

func (EventResize) isEvent() {}

type EventKey struct {
	Key  Key
	Down bool
	Mods Mod
}

func (EventKey) isEvent() {}

type EventMouseMove struct{ X, Y float64 }

func (EventMouseMove) isEvent() {}

type EventScroll struct{ Xoff, Yoff float64 }

func (EventScroll) isEvent() {}

// Key/mod enums (subset; add as needed).
type Key int

const (
	KeyUnknown Key = iota
	KeyEscape
	KeySpace
	KeyP
	KeyF1
)

type Mod int

const (
	ModNone  Mod = 0
	ModShift Mod = 1 << 0
	ModCtrl  Mod = 1 << 1
	ModAlt   Mod = 1 << 2
	ModSuper Mod = 1 << 3
)

// Config for the engine run.
type Config struct {
	Title      string
	Width      int
	Height     int
	VSync      bool
	ClearColor colors.Color
	// Backend selects the device implementation ("gl" or "d3d9").
	Backend string
}
