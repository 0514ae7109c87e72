package glbackend

import (
	"fmt"
	"log/slog"

	"github.com/go-gl/gl/v2.1/gl"
	"github.com/hubastard/overlay/engine/colors"
	"github.com/hubastard/overlay/engine/core"
)

// Host presents frames on a GL context made current by the window. The
// window swaps buffers; the host only clears.
type Host struct {
	dev  *Device
	desc string
}

// NewHost loads GL entry points for the current context and wraps it in a
// Device sized to the window.
func NewHost(win core.Window, _ core.Config) (*Host, error) {
	if err := gl.Init(); err != nil {
		return nil, fmt.Errorf("glbackend: load entry points: %w", err)
	}
	h := &Host{
		desc: fmt.Sprintf("OpenGL %s on %s", gl.GoStr(gl.GetString(gl.VERSION)), gl.GoStr(gl.GetString(gl.RENDERER))),
	}
	w, ht := win.FramebufferSize()
	h.dev = NewDevice(w, ht)
	slog.Info("glbackend: device ready", "adapter", h.desc, "width", w, "height", ht)
	return h, nil
}

func (h *Host) Device() core.Device { return h.dev }
func (h *Host) Describe() string    { return h.desc }

func (h *Host) Resize(w, ht int) {
	h.dev.SetFramebufferSize(w, ht)
	h.dev.SetViewport(core.Viewport{Width: uint32(w), Height: uint32(ht), MaxZ: 1})
	h.dev.SetScissorRect(core.Rect{Right: int32(w), Bottom: int32(ht)})
}

func (h *Host) BeginFrame(c colors.Color) error {
	// Clears honour the scissor test in GL.
	if err := h.dev.SetRenderState(core.RSScissorTestEnable, core.False); err != nil {
		return err
	}
	gl.ClearColor(c[0], c[1], c[2], c[3])
	gl.Clear(gl.COLOR_BUFFER_BIT | gl.DEPTH_BUFFER_BIT)
	return glError("clear")
}

func (h *Host) EndFrame() error { return glError("end frame") }

func (h *Host) Shutdown() {
	h.dev.Release()
}

var _ core.Host = (*Host)(nil)
