package platform

import (
	"fmt"
	"log/slog"

	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/hubastard/overlay/engine/core"
)

// GLFWWindow implements core.Window and pushes events to the app via a handler.
type GLFWWindow struct {
	w     *glfw.Window
	onEv  func(core.Event)
	noAPI bool
}

// NewGLFWWindow opens a window for cfg.Backend. The "gl" backend gets a
// current OpenGL 2.1 context; any other backend gets a bare window for the
// device to attach to. Must be called on the main thread.
func NewGLFWWindow(cfg core.Config) (*GLFWWindow, error) {
	if err := glfw.Init(); err != nil {
		return nil, fmt.Errorf("platform: glfw init: %w", err)
	}

	noAPI := cfg.Backend != "gl"
	if noAPI {
		glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)
	} else {
		// Fixed-function pipeline: compatibility context, no core profile.
		glfw.WindowHint(glfw.ContextVersionMajor, 2)
		glfw.WindowHint(glfw.ContextVersionMinor, 1)
	}
	glfw.WindowHint(glfw.Samples, 0)

	win, err := glfw.CreateWindow(cfg.Width, cfg.Height, cfg.Title, nil, nil)
	if err != nil {
		glfw.Terminate()
		return nil, fmt.Errorf("platform: create window: %w", err)
	}
	if !noAPI {
		win.MakeContextCurrent()
		if cfg.VSync {
			glfw.SwapInterval(1)
		} else {
			glfw.SwapInterval(0)
		}
	}
	slog.Info("platform: window created", "backend", cfg.Backend, "width", cfg.Width, "height", cfg.Height)

	gw := &GLFWWindow{w: win, noAPI: noAPI}

	// Callbacks -> translate to core.Event
	win.SetCloseCallback(func(*glfw.Window) { gw.emit(core.EventCloseRequested{}) })
	win.SetFramebufferSizeCallback(func(_ *glfw.Window, w, h int) {
		gw.emit(core.EventResize{W: w, H: h})
	})
	win.SetCursorPosCallback(func(_ *glfw.Window, x, y float64) {
		gw.emit(core.EventMouseMove{X: x, Y: y})
	})
	win.SetKeyCallback(func(_ *glfw.Window, key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
		if action == glfw.Repeat {
			return
		}
		k := translateKey(key)
		if k == core.KeyUnknown {
			return
		}
		gw.emit(core.EventKey{Key: k, Down: action == glfw.Press, Mods: translateMods(mods)})
	})
	win.SetScrollCallback(func(_ *glfw.Window, xoff, yoff float64) {
		gw.emit(core.EventScroll{Xoff: xoff, Yoff: yoff})
	})

	return gw, nil
}

func (g *GLFWWindow) emit(ev core.Event) {
	if g.onEv != nil {
		g.onEv(ev)
	}
}

// core.Window impl
func (g *GLFWWindow) PollEvents()                          { glfw.PollEvents() }
func (g *GLFWWindow) ShouldClose() bool                    { return g.w.ShouldClose() }
func (g *GLFWWindow) RequestClose()                        { g.w.SetShouldClose(true) }
func (g *GLFWWindow) FramebufferSize() (int, int)          { return g.w.GetFramebufferSize() }
func (g *GLFWWindow) SetTitle(t string)                    { g.w.SetTitle(t) }
func (g *GLFWWindow) SetEventCallback(cb func(core.Event)) { g.onEv = cb }

// SwapBuffers presents the GL back buffer. Windows without a GL context are
// presented by their device instead.
func (g *GLFWWindow) SwapBuffers() {
	if !g.noAPI {
		g.w.SwapBuffers()
	}
}

// Destroy closes the window and shuts GLFW down.
func (g *GLFWWindow) Destroy() {
	g.w.Destroy()
	glfw.Terminate()
}

func translateKey(k glfw.Key) core.Key {
	switch k {
	case glfw.KeyEscape:
		return core.KeyEscape
	case glfw.KeySpace:
		return core.KeySpace
	case glfw.KeyP:
		return core.KeyP
	case glfw.KeyF1:
		return core.KeyF1
	default:
		return core.KeyUnknown
	}
}

func translateMods(m glfw.ModifierKey) core.Mod {
	var out core.Mod
	if m&glfw.ModShift != 0 {
		out |= core.ModShift
	}
	if m&glfw.ModControl != 0 {
		out |= core.ModCtrl
	}
	if m&glfw.ModAlt != 0 {
		out |= core.ModAlt
	}
	if m&glfw.ModSuper != 0 {
		out |= core.ModSuper
	}
	return out
}
