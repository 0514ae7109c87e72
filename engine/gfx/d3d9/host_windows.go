//go:build windows

package d3d9backend

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/gonutz/d3d9"
	"github.com/hubastard/overlay/engine/colors"
	"github.com/hubastard/overlay/engine/core"
)

// NativeWindow is implemented by windows that expose their HWND.
type NativeWindow interface {
	NativeHandle() uintptr
}

// Host creates a windowed Direct3D 9 device on the window's HWND and
// presents it at the end of each frame.
type Host struct {
	d3d  *d3d9.Direct3D
	dev  *Device
	pp   d3d9.PRESENT_PARAMETERS
	desc string
}

func NewHost(win core.Window, cfg core.Config) (*Host, error) {
	nw, ok := win.(NativeWindow)
	if !ok {
		return nil, fmt.Errorf("d3d9backend: window %T has no native handle", win)
	}
	d3d, err := d3d9.Create(d3d9.SDK_VERSION)
	if err != nil {
		return nil, fmt.Errorf("d3d9backend: create Direct3D9: %w", err)
	}
	h := &Host{d3d: d3d, desc: "Direct3D 9"}
	if id, err := d3d.GetAdapterIdentifier(d3d9.ADAPTER_DEFAULT, 0); err == nil {
		h.desc = fmt.Sprintf("Direct3D 9 on %s", id.Description)
	}

	interval := uint32(d3d9.PRESENT_INTERVAL_IMMEDIATE)
	if cfg.VSync {
		interval = d3d9.PRESENT_INTERVAL_ONE
	}
	h.pp = d3d9.PRESENT_PARAMETERS{
		Windowed:               1,
		SwapEffect:             d3d9.SWAPEFFECT_DISCARD,
		BackBufferFormat:       d3d9.FMT_UNKNOWN,
		EnableAutoDepthStencil: 1,
		AutoDepthStencilFormat: d3d9.FMT_D16,
		PresentationInterval:   interval,
	}
	dev, pp, err := d3d.CreateDevice(
		d3d9.ADAPTER_DEFAULT,
		d3d9.DEVTYPE_HAL,
		d3d9.HWND(nw.NativeHandle()),
		d3d9.CREATE_SOFTWARE_VERTEXPROCESSING,
		h.pp,
	)
	if err != nil {
		d3d.Release()
		return nil, fmt.Errorf("d3d9backend: create device: %w", err)
	}
	h.pp = pp
	// Wrap takes its own reference; drop the creation one.
	h.dev = Wrap(dev)
	dev.Release()
	slog.Info("d3d9backend: device ready", "adapter", h.desc)
	return h, nil
}

func (h *Host) Device() core.Device { return h.dev }
func (h *Host) Describe() string    { return h.desc }

// Resize keeps the back buffer; Present stretches it to the client area.
// Resetting would require every D3DPOOL_DEFAULT resource to be released first.
func (h *Host) Resize(w, ht int) {
	slog.Debug("d3d9backend: window resized", "width", w, "height", ht)
}

func (h *Host) BeginFrame(c colors.Color) error {
	if err := h.dev.dev.TestCooperativeLevel(); err != nil {
		return wrap("test cooperative level", err)
	}
	clear := d3d9.ColorValue(c[0], c[1], c[2], c[3])
	if err := h.dev.dev.Clear(nil, d3d9.CLEAR_TARGET|d3d9.CLEAR_ZBUFFER, clear, 1, 0); err != nil {
		return wrap("clear", err)
	}
	return wrap("begin scene", h.dev.dev.BeginScene())
}

func (h *Host) EndFrame() error {
	err := wrap("end scene", h.dev.dev.EndScene())
	if perr := wrap("present", h.dev.dev.Present(nil, nil, 0, nil)); perr != nil {
		err = errors.Join(err, perr)
	}
	return err
}

func (h *Host) Shutdown() {
	h.dev.Release()
	h.d3d.Release()
}

var _ core.Host = (*Host)(nil)
