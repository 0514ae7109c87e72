// Package uirender draws immediate-mode GUI frames on a fixed-function
// device owned by someone else, typically a game the overlay is injected
// into. Every frame captures the device state it is about to change and puts
// it back afterwards, whether drawing succeeded or not.
package uirender

import (
	"fmt"
	"log/slog"

	"github.com/hubastard/overlay/engine/core"
	"github.com/hubastard/overlay/engine/gui"
	"github.com/hubastard/overlay/engine/profiler"
)

// Stats describes the last rendered frame.
type Stats struct {
	Lists     int
	Vertices  int
	Indices   int
	Commands  int
	DrawCalls int
	Triangles int
	Clipped   int
	Callbacks int
	// TextureBinds counts SetTexture calls that reached the device.
	TextureBinds int
	// BufferGrowths counts reallocations over the renderer's lifetime.
	BufferGrowths int
}

func (s Stats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("lists", s.Lists),
		slog.Int("vertices", s.Vertices),
		slog.Int("indices", s.Indices),
		slog.Int("draws", s.DrawCalls),
		slog.Int("clipped", s.Clipped),
		slog.Int("texture_binds", s.TextureBinds),
	)
}

// Renderer draws gui.DrawData on a core.Device. It holds one reference on the
// device from New until Close. A Renderer must be used from the thread that
// owns the device.
type Renderer struct {
	dev     core.Device
	opts    options
	log     *slog.Logger
	buffers *bufferManager
	font    core.Texture

	textures Textures
	owned    map[gui.TextureID]struct{}
	binder   textureBinder
	stats    Stats
	closed   bool
}

// New creates a renderer for dev and registers it with the GUI context: the
// font atlas is uploaded and published as FontTextureID, and the renderer
// name and capability flags are set. Nothing is created on the device if
// either argument is nil.
func New(ctx gui.Backend, dev core.Device, opts ...Option) (*Renderer, error) {
	if dev == nil {
		return nil, fmt.Errorf("%w: nil device", ErrInitialization)
	}
	if ctx == nil {
		return nil, fmt.Errorf("%w: nil gui context", ErrInitialization)
	}
	atlas := ctx.FontAtlas()
	if atlas == nil {
		return nil, fmt.Errorf("%w: gui context has no font atlas", ErrInitialization)
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	log := o.logger
	if log == nil {
		log = Logger()
	}

	pixels, w, h := atlas.RGBA32()
	font, err := dev.CreateTexture(w, h, pixels)
	if err != nil {
		return nil, fmt.Errorf("%w: font texture %dx%d: %w", ErrInitialization, w, h, err)
	}

	r := &Renderer{
		dev:     dev,
		opts:    o,
		log:     log,
		buffers: newBufferManager(dev, log, o.vertexSlack, o.indexSlack),
		font:    font,
		owned:   map[gui.TextureID]struct{}{},
	}
	if err := r.buffers.EnsureCapacity(0, 0); err != nil {
		r.buffers.Release()
		font.Release()
		return nil, fmt.Errorf("%w: %w", ErrInitialization, err)
	}
	r.binder = textureBinder{dev: dev, textures: &r.textures, font: font}
	dev.AddRef()

	ctx.SetFontTextureID(FontTextureID)
	ctx.SetBackendFlags(gui.BackendHasVtxOffset)
	ctx.SetRendererName(o.name)

	vCap, iCap := r.buffers.Capacity()
	log.Info("uirender: renderer created", "name", o.name, "font", fmt.Sprintf("%dx%d", w, h),
		"vertex_capacity", vCap, "index_capacity", iCap, "index_size", gui.IndexSize)
	return r, nil
}

// Render draws one frame. An empty frame, or one with a zero or negative
// framebuffer size, returns nil without touching the device. Otherwise the
// device state is captured first and restored before returning, on every
// path. When both drawing and restoring fail, the drawing error is returned.
func (r *Renderer) Render(dd *gui.DrawData) (err error) {
	if r.closed {
		return ErrClosed
	}
	if dd.Empty() {
		return nil
	}
	defer profiler.Start("uirender.Render")()

	vertices, indices := 0, 0
	for _, l := range dd.Lists {
		vertices += len(l.VtxBuffer)
		indices += len(l.IdxBuffer)
	}
	r.stats = Stats{Lists: len(dd.Lists), Vertices: vertices, Indices: indices}
	r.binder.binds = 0

	if r.opts.validateIndex {
		for i, l := range dd.Lists {
			if err := l.Validate(); err != nil {
				return fmt.Errorf("%w: list %d: %w", ErrInvalidDrawData, i, err)
			}
		}
	}

	endCapture := profiler.Start("uirender.Capture")
	snap, err := captureState(r.dev, r.log)
	endCapture()
	if err != nil {
		return err
	}
	defer func() {
		r.stats.TextureBinds = r.binder.binds
		r.stats.BufferGrowths = r.buffers.Growths
		endRestore := profiler.Start("uirender.Restore")
		rerr := snap.Restore()
		endRestore()
		if rerr == nil {
			return
		}
		if err != nil {
			r.log.Warn("uirender: restore failed after frame error", "frame_err", err, "err", rerr)
			return
		}
		err = rerr
	}()

	if err := r.buffers.EnsureCapacity(vertices, indices); err != nil {
		return err
	}
	endUpload := profiler.Start("uirender.Upload")
	bases, err := r.buffers.Upload(dd.Lists, vertices, indices)
	endUpload()
	if err != nil {
		return err
	}
	if err := r.setupRenderState(dd); err != nil {
		return err
	}

	endDraw := profiler.Start("uirender.Draw")
	err = r.drawLists(dd, bases)
	endDraw()
	return err
}

// Stats returns counters for the last frame Render drew.
func (r *Renderer) Stats() Stats { return r.stats }

// Textures returns the id registry used to resolve DrawCmd.TextureID. Ids
// inserted directly stay owned by the caller.
func (r *Renderer) Textures() *Textures { return &r.textures }

// CreateTexture uploads RGBA8 pixels and registers them. The renderer owns
// the texture and releases it in DestroyTexture or Close.
func (r *Renderer) CreateTexture(width, height int, rgba []byte) (gui.TextureID, error) {
	if r.closed {
		return 0, ErrClosed
	}
	tex, err := r.dev.CreateTexture(width, height, rgba)
	if err != nil {
		return 0, fmt.Errorf("uirender: create texture %dx%d: %w", width, height, err)
	}
	id := r.textures.Insert(tex)
	r.owned[id] = struct{}{}
	r.log.Debug("uirender: texture created", "id", uintptr(id), "size", fmt.Sprintf("%dx%d", width, height))
	return id, nil
}

// DestroyTexture unregisters id and releases it if the renderer created it.
func (r *Renderer) DestroyTexture(id gui.TextureID) {
	tex, ok := r.textures.Remove(id)
	if !ok {
		return
	}
	if _, own := r.owned[id]; own {
		delete(r.owned, id)
		tex.Release()
	}
	r.binder.Invalidate()
}

// Close releases the buffers, the font texture, textures made by
// CreateTexture and the device reference. Calling it again does nothing.
func (r *Renderer) Close() {
	if r.closed {
		return
	}
	r.closed = true
	for id := range r.owned {
		if tex, ok := r.textures.Remove(id); ok {
			tex.Release()
		}
	}
	clear(r.owned)
	r.buffers.Release()
	r.font.Release()
	r.font = nil
	r.binder = textureBinder{}
	r.dev.Release()
	r.log.Info("uirender: renderer closed", "name", r.opts.name)
}
