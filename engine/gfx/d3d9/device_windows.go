//go:build windows

package d3d9backend

import (
	"errors"
	"fmt"
	"unsafe"

	"github.com/gonutz/d3d9"
	"github.com/hubastard/overlay/engine/core"
)

// wrap tags device-loss HRESULTs with core.ErrDeviceLost.
func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	var hr d3d9.Error
	if errors.As(err, &hr) {
		switch hr.Code() {
		case d3d9.ERR_DEVICELOST, d3d9.ERR_DEVICENOTRESET, d3d9.ERR_DEVICEREMOVED:
			return fmt.Errorf("d3d9backend: %s: %w: %w", op, core.ErrDeviceLost, err)
		}
	}
	return fmt.Errorf("d3d9backend: %s: %w", op, err)
}

// Device is a core.Device over a *d3d9.Device. It does not own the device:
// Release only drops the COM reference it holds.
type Device struct {
	dev *d3d9.Device
}

// Wrap adapts dev, taking a reference on it. This is the entry point for an
// overlay injected into a host that already has a device.
func Wrap(dev *d3d9.Device) *Device {
	dev.AddRef()
	return &Device{dev: dev}
}

// Raw returns the underlying device.
func (d *Device) Raw() *d3d9.Device { return d.dev }

func (d *Device) AddRef() uint32  { return d.dev.AddRef() }
func (d *Device) Release() uint32 { return d.dev.Release() }

func (d *Device) RenderState(s core.RenderState) (uint32, error) {
	v, err := d.dev.GetRenderState(d3d9.RENDERSTATETYPE(s))
	return v, wrap("get render state", err)
}

func (d *Device) SetRenderState(s core.RenderState, v uint32) error {
	return wrap("set render state", d.dev.SetRenderState(d3d9.RENDERSTATETYPE(s), v))
}

func (d *Device) TextureStageState(stage uint32, s core.TextureStageState) (uint32, error) {
	v, err := d.dev.GetTextureStageState(stage, d3d9.TEXTURESTAGESTATETYPE(s))
	return v, wrap("get texture stage state", err)
}

func (d *Device) SetTextureStageState(stage uint32, s core.TextureStageState, v uint32) error {
	return wrap("set texture stage state", d.dev.SetTextureStageState(stage, d3d9.TEXTURESTAGESTATETYPE(s), v))
}

func (d *Device) SamplerState(sampler uint32, s core.SamplerState) (uint32, error) {
	v, err := d.dev.GetSamplerState(sampler, d3d9.SAMPLERSTATETYPE(s))
	return v, wrap("get sampler state", err)
}

func (d *Device) SetSamplerState(sampler uint32, s core.SamplerState, v uint32) error {
	return wrap("set sampler state", d.dev.SetSamplerState(sampler, d3d9.SAMPLERSTATETYPE(s), v))
}

func (d *Device) Transform(t core.TransformState) (core.Matrix, error) {
	m, err := d.dev.GetTransform(d3d9.TRANSFORMSTATETYPE(t))
	return core.Matrix(m), wrap("get transform", err)
}

func (d *Device) SetTransform(t core.TransformState, m core.Matrix) error {
	return wrap("set transform", d.dev.SetTransform(d3d9.TRANSFORMSTATETYPE(t), d3d9.MATRIX(m)))
}

func (d *Device) Viewport() (core.Viewport, error) {
	vp, err := d.dev.GetViewport()
	return core.Viewport{X: vp.X, Y: vp.Y, Width: vp.Width, Height: vp.Height, MinZ: vp.MinZ, MaxZ: vp.MaxZ},
		wrap("get viewport", err)
}

func (d *Device) SetViewport(vp core.Viewport) error {
	return wrap("set viewport", d.dev.SetViewport(d3d9.VIEWPORT{
		X: vp.X, Y: vp.Y, Width: vp.Width, Height: vp.Height, MinZ: vp.MinZ, MaxZ: vp.MaxZ,
	}))
}

func (d *Device) ScissorRect() (core.Rect, error) {
	r, err := d.dev.GetScissorRect()
	return core.Rect{Left: r.Left, Top: r.Top, Right: r.Right, Bottom: r.Bottom}, wrap("get scissor rect", err)
}

func (d *Device) SetScissorRect(r core.Rect) error {
	return wrap("set scissor rect", d.dev.SetScissorRect(d3d9.RECT{Left: r.Left, Top: r.Top, Right: r.Right, Bottom: r.Bottom}))
}

func (d *Device) Material() (core.Material, error) {
	m, err := d.dev.GetMaterial()
	return core.Material{
		Diffuse:  colorValue(m.Diffuse),
		Ambient:  colorValue(m.Ambient),
		Specular: colorValue(m.Specular),
		Emissive: colorValue(m.Emissive),
		Power:    m.Power,
	}, wrap("get material", err)
}

func (d *Device) SetMaterial(m core.Material) error {
	return wrap("set material", d.dev.SetMaterial(d3d9.MATERIAL{
		Diffuse:  d3dColorValue(m.Diffuse),
		Ambient:  d3dColorValue(m.Ambient),
		Specular: d3dColorValue(m.Specular),
		Emissive: d3dColorValue(m.Emissive),
		Power:    m.Power,
	}))
}

func colorValue(c d3d9.COLORVALUE) [4]float32 { return [4]float32{c.R, c.G, c.B, c.A} }

func d3dColorValue(c [4]float32) d3d9.COLORVALUE {
	return d3d9.COLORVALUE{R: c[0], G: c[1], B: c[2], A: c[3]}
}

func (d *Device) VertexShader() (core.Shader, error) {
	s, err := d.dev.GetVertexShader()
	if err != nil || s == nil {
		return nil, wrap("get vertex shader", err)
	}
	return vertexShader{s}, nil
}

func (d *Device) SetVertexShader(s core.Shader) error {
	var raw *d3d9.VertexShader
	if s != nil {
		vs, ok := s.(vertexShader)
		if !ok {
			return fmt.Errorf("d3d9backend: %T is not a vertex shader", s)
		}
		raw = vs.VertexShader
	}
	return wrap("set vertex shader", d.dev.SetVertexShader(raw))
}

func (d *Device) PixelShader() (core.Shader, error) {
	s, err := d.dev.GetPixelShader()
	if err != nil || s == nil {
		return nil, wrap("get pixel shader", err)
	}
	return pixelShader{s}, nil
}

func (d *Device) SetPixelShader(s core.Shader) error {
	var raw *d3d9.PixelShader
	if s != nil {
		ps, ok := s.(pixelShader)
		if !ok {
			return fmt.Errorf("d3d9backend: %T is not a pixel shader", s)
		}
		raw = ps.PixelShader
	}
	return wrap("set pixel shader", d.dev.SetPixelShader(raw))
}

func (d *Device) Texture(stage uint32) (core.Texture, error) {
	t, err := d.dev.GetTexture(stage)
	if err != nil || t == nil {
		return nil, wrap("get texture", err)
	}
	// SetTexture only accepts concrete texture types. Every IDirect3D*Texture9
	// shares the base texture's COM pointer, so the host's binding can be put
	// back through *d3d9.Texture whatever its real kind.
	return &boundTexture{(*d3d9.Texture)(unsafe.Pointer(t))}, nil
}

func (d *Device) SetTexture(stage uint32, t core.Texture) error {
	var err error
	switch t := t.(type) {
	case nil:
		err = d.dev.SetTexture(stage, nil)
	case *Texture:
		err = d.dev.SetTexture(stage, t.tex)
	case *boundTexture:
		err = d.dev.SetTexture(stage, t.tex)
	default:
		return fmt.Errorf("d3d9backend: texture %T not created by this device", t)
	}
	return wrap("set texture", err)
}

func (d *Device) StreamSource(stream uint32) (core.StreamBinding, error) {
	vb, offset, stride, err := d.dev.GetStreamSource(uint(stream))
	if err != nil || vb == nil {
		return core.StreamBinding{}, wrap("get stream source", err)
	}
	return core.StreamBinding{Buffer: &VertexBuffer{vb: vb}, Offset: uint32(offset), Stride: uint32(stride)}, nil
}

func (d *Device) SetStreamSource(stream uint32, b core.StreamBinding) error {
	var raw *d3d9.VertexBuffer
	if b.Buffer != nil {
		vb, ok := b.Buffer.(*VertexBuffer)
		if !ok {
			return fmt.Errorf("d3d9backend: vertex buffer %T not created by this device", b.Buffer)
		}
		raw = vb.vb
	}
	return wrap("set stream source", d.dev.SetStreamSource(uint(stream), raw, uint(b.Offset), uint(b.Stride)))
}

func (d *Device) Indices() (core.IndexBuffer, error) {
	ib, err := d.dev.GetIndices()
	if err != nil || ib == nil {
		return nil, wrap("get indices", err)
	}
	return &IndexBuffer{ib: ib, format: indexFormatOf(ib)}, nil
}

func (d *Device) SetIndices(ib core.IndexBuffer) error {
	var raw *d3d9.IndexBuffer
	if ib != nil {
		b, ok := ib.(*IndexBuffer)
		if !ok {
			return fmt.Errorf("d3d9backend: index buffer %T not created by this device", ib)
		}
		raw = b.ib
	}
	return wrap("set indices", d.dev.SetIndices(raw))
}

// VertexDeclaration returns the bound declaration. The library returns the
// interface pointer inside a VertexDeclaration value; it is read back out here.
func (d *Device) VertexDeclaration() (core.VertexDeclaration, error) {
	v, err := d.dev.GetVertexDeclaration()
	if err != nil {
		return nil, wrap("get vertex declaration", err)
	}
	decl := *(**d3d9.VertexDeclaration)(unsafe.Pointer(&v))
	if decl == nil {
		return nil, nil
	}
	return &VertexDeclaration{decl}, nil
}

func (d *Device) SetVertexDeclaration(v core.VertexDeclaration) error {
	var raw *d3d9.VertexDeclaration
	if v != nil {
		decl, ok := v.(*VertexDeclaration)
		if !ok {
			return fmt.Errorf("d3d9backend: vertex declaration %T not created by this device", v)
		}
		raw = decl.decl
	}
	return wrap("set vertex declaration", d.dev.SetVertexDeclaration(raw))
}

func (d *Device) VertexFormat() (core.VertexFormat, error) {
	f, err := d.dev.GetFVF()
	return core.VertexFormat(f), wrap("get fvf", err)
}

func (d *Device) SetVertexFormat(f core.VertexFormat) error {
	return wrap("set fvf", d.dev.SetFVF(uint32(f)))
}

func (d *Device) CreateVertexBuffer(length int) (core.VertexBuffer, error) {
	vb, err := d.dev.CreateVertexBuffer(
		uint(length*core.VertexSize),
		d3d9.USAGE_DYNAMIC|d3d9.USAGE_WRITEONLY,
		uint32(core.VertexFVF),
		d3d9.POOL_DEFAULT,
		0,
	)
	if err != nil {
		return nil, wrap("create vertex buffer", err)
	}
	return &VertexBuffer{vb: vb, length: length}, nil
}

func (d *Device) CreateIndexBuffer(length int, format core.IndexFormat) (core.IndexBuffer, error) {
	ib, err := d.dev.CreateIndexBuffer(
		uint(length*format.Size()),
		d3d9.USAGE_DYNAMIC|d3d9.USAGE_WRITEONLY,
		d3d9.FORMAT(format),
		d3d9.POOL_DEFAULT,
		0,
	)
	if err != nil {
		return nil, wrap("create index buffer", err)
	}
	return &IndexBuffer{ib: ib, length: length, format: format}, nil
}

// CreateTexture uploads RGBA8 pixels into a managed A8R8G8B8 texture,
// swizzling to the BGRA byte order the format stores.
func (d *Device) CreateTexture(width, height int, rgba []byte) (core.Texture, error) {
	if len(rgba) != width*height*4 {
		return nil, fmt.Errorf("d3d9backend: %d bytes for %dx%d texture", len(rgba), width, height)
	}
	tex, err := d.dev.CreateTexture(uint(width), uint(height), 1, 0, d3d9.FMT_A8R8G8B8, d3d9.POOL_MANAGED, 0)
	if err != nil {
		return nil, wrap("create texture", err)
	}
	// Managed textures may not be locked with LOCK_DISCARD.
	rect, err := tex.LockRect(0, nil, 0)
	if err != nil {
		tex.Release()
		return nil, wrap("lock texture", err)
	}
	bgra := make([]byte, len(rgba))
	for i := 0; i < len(rgba); i += 4 {
		bgra[i+0] = rgba[i+2]
		bgra[i+1] = rgba[i+1]
		bgra[i+2] = rgba[i+0]
		bgra[i+3] = rgba[i+3]
	}
	rect.SetAllBytes(bgra, width*4)
	if err := tex.UnlockRect(0); err != nil {
		tex.Release()
		return nil, wrap("unlock texture", err)
	}
	return &Texture{tex: tex, w: width, h: height}, nil
}

func (d *Device) DrawIndexedPrimitive(pt core.PrimitiveType, baseVertex int32, minIndex, numVertices, startIndex, primCount uint32) error {
	return wrap("draw indexed primitive", d.dev.DrawIndexedPrimitive(
		d3d9.PRIMITIVETYPE(pt),
		int(baseVertex),
		uint(minIndex),
		uint(numVertices),
		uint(startIndex),
		uint(primCount),
	))
}

// memory views a locked region as a byte slice.
func memory(ptr uintptr, n int) []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(ptr)), n)
}

var _ core.Device = (*Device)(nil)
