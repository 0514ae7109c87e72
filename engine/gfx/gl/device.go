// Package glbackend implements core.Device on the OpenGL 2.1 fixed-function
// pipeline, so the overlay can run anywhere GLFW can open a window.
//
// Direct3D 9 state values are shadowed and translated as they are set; the
// getters return the shadow, never querying the driver. Window-space
// rectangles are flipped because GL's origin is bottom-left.
package glbackend

import (
	"errors"
	"fmt"

	"github.com/go-gl/gl/v2.1/gl"
	"github.com/hubastard/overlay/engine/core"
)

type counted interface {
	comparable
	AddRef()
	Release()
}

// rebind stores v in slot, holding a reference on it and dropping the one
// held on the previous value.
func rebind[T counted](slot *T, v T) {
	var zero T
	if v != zero {
		v.AddRef()
	}
	if *slot != zero {
		(*slot).Release()
	}
	*slot = v
}

type stream struct {
	vb     *VertexBuffer
	offset uint32
	stride uint32
}

// Device is a core.Device over the current GL context. It must only be used
// on the thread that owns the context.
type Device struct {
	refCount int32
	fbW, fbH int32

	rs       map[core.RenderState]uint32
	tss      map[core.TextureStageState]uint32
	sampler  map[core.SamplerState]uint32
	world    core.Matrix
	view     core.Matrix
	proj     core.Matrix
	viewport core.Viewport
	scissor  core.Rect
	material core.Material
	vs, ps   *Program
	texture  *Texture
	stream   stream
	indices  *IndexBuffer
	fvf      core.VertexFormat
}

// NewDevice wraps the current context and resets it to Direct3D 9 defaults.
func NewDevice(fbW, fbH int) *Device {
	d := &Device{
		refCount: 1,
		fbW:      int32(fbW),
		fbH:      int32(fbH),
		rs: map[core.RenderState]uint32{
			core.RSZEnable:           core.False,
			core.RSFillMode:          core.FillSolid,
			core.RSShadeMode:         core.ShadeGouraud,
			core.RSAlphaTestEnable:   core.False,
			core.RSSrcBlend:          core.BlendOne,
			core.RSDestBlend:         core.BlendZero,
			core.RSCullMode:          core.CullCCW,
			core.RSAlphaBlendEnable:  core.False,
			core.RSFogEnable:         core.False,
			core.RSLighting:          core.True,
			core.RSBlendOp:           core.BlendOpAdd,
			core.RSScissorTestEnable: core.False,
		},
		tss: map[core.TextureStageState]uint32{
			core.TSSColorOp:   core.TopModulate,
			core.TSSColorArg1: core.TATexture,
			core.TSSColorArg2: core.TACurrent,
			core.TSSAlphaOp:   core.TopSelectArg1,
			core.TSSAlphaArg1: core.TATexture,
			core.TSSAlphaArg2: core.TACurrent,
		},
		sampler: map[core.SamplerState]uint32{
			core.SampMinFilter: core.TexFPoint,
			core.SampMagFilter: core.TexFPoint,
		},
		world:    core.Identity,
		view:     core.Identity,
		proj:     core.Identity,
		viewport: core.Viewport{Width: uint32(fbW), Height: uint32(fbH), MaxZ: 1},
		scissor:  core.Rect{Right: int32(fbW), Bottom: int32(fbH)},
		material: core.Material{Diffuse: [4]float32{1, 1, 1, 1}, Ambient: [4]float32{0, 0, 0, 1}},
		fvf:      core.FVFXYZ,
	}
	for s, v := range d.rs {
		d.applyRenderState(s, v)
	}
	d.applyStage()
	d.applyTransforms()
	d.applyViewport()
	d.applyScissor()
	d.applyMaterial()
	gl.Disable(gl.TEXTURE_2D)
	return d
}

// SetFramebufferSize records the drawable size used to flip rectangles.
func (d *Device) SetFramebufferSize(w, h int) {
	d.fbW, d.fbH = int32(w), int32(h)
	d.applyViewport()
	d.applyScissor()
}

// PixelCenterOffset reports that GL samples at pixel centers already.
func (d *Device) PixelCenterOffset() float32 { return 0 }

func (d *Device) AddRef() uint32 {
	d.refCount++
	return uint32(d.refCount)
}

// Release drops a reference. The last one unbinds every resource the device
// still holds; the GL context itself belongs to the window.
func (d *Device) Release() uint32 {
	if d.refCount > 0 {
		d.refCount--
	}
	if d.refCount == 0 {
		rebind(&d.vs, nil)
		rebind(&d.ps, nil)
		rebind(&d.texture, nil)
		rebind(&d.stream.vb, nil)
		rebind(&d.indices, nil)
	}
	return uint32(d.refCount)
}

func (d *Device) RenderState(s core.RenderState) (uint32, error) { return d.rs[s], nil }

func (d *Device) SetRenderState(s core.RenderState, v uint32) error {
	d.rs[s] = v
	d.applyRenderState(s, v)
	return glError("set render state")
}

func (d *Device) TextureStageState(stage uint32, s core.TextureStageState) (uint32, error) {
	if stage != 0 {
		return 0, errStage(stage)
	}
	return d.tss[s], nil
}

func (d *Device) SetTextureStageState(stage uint32, s core.TextureStageState, v uint32) error {
	if stage != 0 {
		return errStage(stage)
	}
	d.tss[s] = v
	d.applyStage()
	return glError("set texture stage state")
}

func (d *Device) SamplerState(sampler uint32, s core.SamplerState) (uint32, error) {
	if sampler != 0 {
		return 0, errStage(sampler)
	}
	return d.sampler[s], nil
}

func (d *Device) SetSamplerState(sampler uint32, s core.SamplerState, v uint32) error {
	if sampler != 0 {
		return errStage(sampler)
	}
	d.sampler[s] = v
	d.applySampler()
	return glError("set sampler state")
}

func (d *Device) Transform(t core.TransformState) (core.Matrix, error) {
	switch t {
	case core.TSWorld:
		return d.world, nil
	case core.TSView:
		return d.view, nil
	case core.TSProjection:
		return d.proj, nil
	}
	return core.Matrix{}, fmt.Errorf("glbackend: transform %d not supported", t)
}

func (d *Device) SetTransform(t core.TransformState, m core.Matrix) error {
	switch t {
	case core.TSWorld:
		d.world = m
	case core.TSView:
		d.view = m
	case core.TSProjection:
		d.proj = m
	default:
		return fmt.Errorf("glbackend: transform %d not supported", t)
	}
	d.applyTransforms()
	return glError("set transform")
}

func (d *Device) Viewport() (core.Viewport, error) { return d.viewport, nil }

func (d *Device) SetViewport(vp core.Viewport) error {
	d.viewport = vp
	d.applyViewport()
	return glError("set viewport")
}

func (d *Device) ScissorRect() (core.Rect, error) { return d.scissor, nil }

func (d *Device) SetScissorRect(r core.Rect) error {
	d.scissor = r
	d.applyScissor()
	return glError("set scissor rect")
}

func (d *Device) Material() (core.Material, error) { return d.material, nil }

func (d *Device) SetMaterial(m core.Material) error {
	d.material = m
	d.applyMaterial()
	return glError("set material")
}

func (d *Device) VertexShader() (core.Shader, error) { return shaderRef(d.vs), nil }
func (d *Device) PixelShader() (core.Shader, error)  { return shaderRef(d.ps), nil }

func (d *Device) SetVertexShader(s core.Shader) error { return d.setProgram(&d.vs, s) }
func (d *Device) SetPixelShader(s core.Shader) error  { return d.setProgram(&d.ps, s) }

func (d *Device) setProgram(slot **Program, s core.Shader) error {
	p, ok := s.(*Program)
	if s != nil && !ok {
		return fmt.Errorf("glbackend: shader %T not created by this device", s)
	}
	rebind(slot, p)
	var id uint32
	switch {
	case d.vs != nil:
		id = d.vs.id
	case d.ps != nil:
		id = d.ps.id
	}
	gl.UseProgram(id)
	return glError("use program")
}

func (d *Device) Texture(stage uint32) (core.Texture, error) {
	if stage != 0 {
		return nil, errStage(stage)
	}
	if d.texture == nil {
		return nil, nil
	}
	d.texture.AddRef()
	return d.texture, nil
}

func (d *Device) SetTexture(stage uint32, t core.Texture) error {
	if stage != 0 {
		return errStage(stage)
	}
	tex, ok := t.(*Texture)
	if t != nil && !ok {
		return fmt.Errorf("glbackend: texture %T not created by this device", t)
	}
	rebind(&d.texture, tex)
	gl.ActiveTexture(gl.TEXTURE0)
	if tex == nil {
		gl.BindTexture(gl.TEXTURE_2D, 0)
		gl.Disable(gl.TEXTURE_2D)
	} else {
		gl.Enable(gl.TEXTURE_2D)
		gl.BindTexture(gl.TEXTURE_2D, tex.id)
		d.applySampler()
	}
	return glError("bind texture")
}

func (d *Device) StreamSource(n uint32) (core.StreamBinding, error) {
	if n != 0 {
		return core.StreamBinding{}, errStage(n)
	}
	if d.stream.vb == nil {
		return core.StreamBinding{}, nil
	}
	d.stream.vb.AddRef()
	return core.StreamBinding{Buffer: d.stream.vb, Offset: d.stream.offset, Stride: d.stream.stride}, nil
}

func (d *Device) SetStreamSource(n uint32, b core.StreamBinding) error {
	if n != 0 {
		return errStage(n)
	}
	vb, ok := b.Buffer.(*VertexBuffer)
	if b.Buffer != nil && !ok {
		return fmt.Errorf("glbackend: vertex buffer %T not created by this device", b.Buffer)
	}
	rebind(&d.stream.vb, vb)
	d.stream.offset, d.stream.stride = b.Offset, b.Stride
	return nil
}

func (d *Device) Indices() (core.IndexBuffer, error) {
	if d.indices == nil {
		return nil, nil
	}
	d.indices.AddRef()
	return d.indices, nil
}

func (d *Device) SetIndices(ib core.IndexBuffer) error {
	b, ok := ib.(*IndexBuffer)
	if ib != nil && !ok {
		return fmt.Errorf("glbackend: index buffer %T not created by this device", ib)
	}
	rebind(&d.indices, b)
	return nil
}

func (d *Device) VertexFormat() (core.VertexFormat, error) { return d.fvf, nil }

func (d *Device) SetVertexFormat(f core.VertexFormat) error {
	d.fvf = f
	return nil
}

// VertexDeclaration always reports none; input layout comes from the format.
func (d *Device) VertexDeclaration() (core.VertexDeclaration, error) { return nil, nil }

func (d *Device) SetVertexDeclaration(v core.VertexDeclaration) error {
	if v != nil {
		return fmt.Errorf("glbackend: vertex declaration %T not created by this device", v)
	}
	return nil
}

func (d *Device) CreateVertexBuffer(length int) (core.VertexBuffer, error) {
	b, err := newVertexBuffer(length)
	if err != nil {
		return nil, err
	}
	return b, nil
}

func (d *Device) CreateIndexBuffer(length int, format core.IndexFormat) (core.IndexBuffer, error) {
	b, err := newIndexBuffer(length, format)
	if err != nil {
		return nil, err
	}
	return b, nil
}

func (d *Device) CreateTexture(width, height int, rgba []byte) (core.Texture, error) {
	t, err := newTexture(width, height, rgba)
	if err != nil {
		return nil, err
	}
	// Creation binds the new texture; put the shadowed binding back.
	d.rebindTexture()
	return t, nil
}

var errNoStream = errors.New("glbackend: draw without vertex or index buffer")

// DrawIndexedPrimitive draws with client-state vertex arrays sourced from the
// bound buffers. GL 2.1 has no base-vertex draws, so baseVertex moves the
// attribute pointers instead.
func (d *Device) DrawIndexedPrimitive(pt core.PrimitiveType, baseVertex int32, minIndex, numVertices, startIndex, primCount uint32) error {
	if pt != core.PrimitiveTriangleList {
		return fmt.Errorf("glbackend: primitive type %d not supported", pt)
	}
	if d.stream.vb == nil || d.indices == nil {
		return errNoStream
	}
	layout := d.fvf.Layout()
	if layout.Position < 0 {
		return fmt.Errorf("glbackend: vertex format %#x has no position", d.fvf)
	}
	stride := int32(d.stream.stride)
	if stride == 0 {
		stride = int32(layout.Stride)
	}
	base := int(d.stream.offset) + int(baseVertex)*int(stride)

	gl.BindBuffer(gl.ARRAY_BUFFER, d.stream.vb.id)
	gl.EnableClientState(gl.VERTEX_ARRAY)
	gl.VertexPointer(3, gl.FLOAT, stride, gl.PtrOffset(base+layout.Position))
	if layout.Color >= 0 {
		gl.EnableClientState(gl.COLOR_ARRAY)
		// D3DCOLOR is B,G,R,A in memory.
		gl.ColorPointer(gl.BGRA, gl.UNSIGNED_BYTE, stride, gl.PtrOffset(base+layout.Color))
	} else {
		gl.Color4f(1, 1, 1, 1)
	}
	if layout.TexCoord >= 0 {
		gl.EnableClientState(gl.TEXTURE_COORD_ARRAY)
		gl.TexCoordPointer(2, gl.FLOAT, stride, gl.PtrOffset(base+layout.TexCoord))
	}

	gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, d.indices.id)
	typ := uint32(gl.UNSIGNED_SHORT)
	if d.indices.format == core.IndexFormat32 {
		typ = gl.UNSIGNED_INT
	}
	gl.DrawElements(gl.TRIANGLES, int32(primCount*3), typ, gl.PtrOffset(int(startIndex)*d.indices.format.Size()))

	gl.DisableClientState(gl.TEXTURE_COORD_ARRAY)
	gl.DisableClientState(gl.COLOR_ARRAY)
	gl.DisableClientState(gl.VERTEX_ARRAY)
	gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, 0)
	gl.BindBuffer(gl.ARRAY_BUFFER, 0)
	return glError("draw elements")
}

func shaderRef(p *Program) core.Shader {
	if p == nil {
		return nil
	}
	p.AddRef()
	return p
}

func errStage(n uint32) error {
	return fmt.Errorf("glbackend: only stage 0 is supported, got %d", n)
}

var _ core.Device = (*Device)(nil)
var _ core.PixelCenterer = (*Device)(nil)
