// Package devicetest provides an in-memory core.Device that records every
// state change and draw, for testing renderers without a GPU.
package devicetest

import (
	"fmt"
	"maps"

	"github.com/hubastard/overlay/engine/core"
)

type stageKey struct {
	Stage uint32
	State uint32
}

// Draw is one recorded DrawIndexedPrimitive call and the state it ran under.
type Draw struct {
	Prim        core.PrimitiveType
	BaseVertex  int32
	MinIndex    uint32
	NumVertices uint32
	StartIndex  uint32
	PrimCount   uint32

	Scissor core.Rect
	Texture core.Texture
	Stream  core.StreamBinding
	Indices core.IndexBuffer
}

// State is a comparable dump of every piece of device state the fake tracks.
type State struct {
	RenderStates  map[core.RenderState]uint32
	StageStates   map[stageKey]uint32
	SamplerStates map[stageKey]uint32
	Transforms    map[core.TransformState]core.Matrix
	Viewport      core.Viewport
	Scissor       core.Rect
	Material      core.Material
	VertexShader  core.Shader
	PixelShader   core.Shader
	Texture0      core.Texture
	Stream0       core.StreamBinding
	Indices       core.IndexBuffer
	VertexFormat  core.VertexFormat
	Declaration   core.VertexDeclaration
}

type failure struct {
	after int
	err   error
}

// Device is a fake fixed-function device. The zero value is not usable; call New.
type Device struct {
	refs int32

	renderStates  map[core.RenderState]uint32
	stageStates   map[stageKey]uint32
	samplerStates map[stageKey]uint32
	transforms    map[core.TransformState]core.Matrix
	viewport      core.Viewport
	scissor       core.Rect
	material      core.Material
	vs, ps        *Shader
	textures      [8]*Texture
	stream        streamSlot
	indices       *IndexBuffer
	fvf           core.VertexFormat
	decl          *VertexDeclaration

	// Calls lists every mutating call by method name, in order.
	Calls []string
	Draws []Draw

	VertexBuffersCreated int
	IndexBuffersCreated  int
	TexturesCreated      int

	// OnDraw, if set, runs inside DrawIndexedPrimitive.
	OnDraw func(d Draw)

	counts   map[string]int
	failures map[string]failure
	handles  []*handle
}

type streamSlot struct {
	vb             *VertexBuffer
	offset, stride uint32
}

// New returns a device holding one reference, with a host-like initial state
// that differs from what an overlay renderer sets.
func New(width, height uint32) *Device {
	d := &Device{
		refs:          1,
		renderStates:  map[core.RenderState]uint32{},
		stageStates:   map[stageKey]uint32{},
		samplerStates: map[stageKey]uint32{},
		transforms:    map[core.TransformState]core.Matrix{},
		viewport:      core.Viewport{Width: width, Height: height, MaxZ: 1},
		scissor:       core.Rect{Right: int32(width), Bottom: int32(height)},
		fvf:           core.FVFXYZ,
		counts:        map[string]int{},
		failures:      map[string]failure{},
	}
	// Every state starts defined, as on a real device.
	for s, v := range map[core.RenderState]uint32{
		core.RSZEnable:           core.True,
		core.RSLighting:          core.True,
		core.RSFogEnable:         core.True,
		core.RSFillMode:          core.FillSolid,
		core.RSCullMode:          core.CullCCW,
		core.RSShadeMode:         core.ShadeGouraud,
		core.RSAlphaTestEnable:   core.False,
		core.RSAlphaBlendEnable:  core.False,
		core.RSSrcBlend:          core.BlendOne,
		core.RSDestBlend:         core.BlendZero,
		core.RSBlendOp:           core.BlendOpAdd,
		core.RSScissorTestEnable: core.False,
	} {
		d.renderStates[s] = v
	}
	for s, v := range map[core.TextureStageState]uint32{
		core.TSSColorOp:   core.TopSelectArg1,
		core.TSSColorArg1: core.TATexture,
		core.TSSColorArg2: core.TACurrent,
		core.TSSAlphaOp:   core.TopSelectArg1,
		core.TSSAlphaArg1: core.TATexture,
		core.TSSAlphaArg2: core.TACurrent,
	} {
		d.stageStates[stageKey{0, uint32(s)}] = v
	}
	d.samplerStates[stageKey{0, uint32(core.SampMinFilter)}] = core.TexFPoint
	d.samplerStates[stageKey{0, uint32(core.SampMagFilter)}] = core.TexFPoint
	d.transforms[core.TSWorld] = core.Identity
	d.transforms[core.TSView] = core.Identity
	d.transforms[core.TSProjection] = core.Matrix{2, 0, 0, 0, 0, 2, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1}
	d.material = core.Material{Diffuse: [4]float32{1, 1, 1, 1}, Power: 8}
	return d
}

// FailAfter makes the named method fail with err once it has been called n
// times. Buffer locks are named "VertexBuffer.Lock" and "IndexBuffer.Lock".
func (d *Device) FailAfter(method string, n int, err error) {
	d.failures[method] = failure{after: n, err: err}
}

// ClearFailures removes all injected failures.
func (d *Device) ClearFailures() { clear(d.failures) }

// Count returns how many times method was called.
func (d *Device) Count(method string) int { return d.counts[method] }

func (d *Device) call(method string, mutating bool) error {
	d.counts[method]++
	if f, ok := d.failures[method]; ok && d.counts[method] > f.after {
		return fmt.Errorf("devicetest: %s: %w", method, f.err)
	}
	if mutating {
		d.Calls = append(d.Calls, method)
	}
	return nil
}

// Refs returns the device reference count.
func (d *Device) Refs() int32 { return d.refs }

func (d *Device) AddRef() uint32 {
	d.refs++
	return uint32(d.refs)
}

func (d *Device) Release() uint32 {
	if d.refs <= 0 {
		panic("devicetest: device over-released")
	}
	d.refs--
	return uint32(d.refs)
}

// Live returns how many resources created by or handed to this device still
// hold references.
func (d *Device) Live() int {
	n := 0
	for _, h := range d.handles {
		if h.refs > 0 {
			n++
		}
	}
	return n
}

// LiveRefs returns the total outstanding references across resources.
func (d *Device) LiveRefs() int32 {
	var n int32
	for _, h := range d.handles {
		n += h.refs
	}
	return n
}

// State captures the full tracked state.
func (d *Device) State() State {
	s := State{
		RenderStates:  maps.Clone(d.renderStates),
		StageStates:   maps.Clone(d.stageStates),
		SamplerStates: maps.Clone(d.samplerStates),
		Transforms:    maps.Clone(d.transforms),
		Viewport:      d.viewport,
		Scissor:       d.scissor,
		Material:      d.material,
		VertexFormat:  d.fvf,
	}
	if d.vs != nil {
		s.VertexShader = d.vs
	}
	if d.ps != nil {
		s.PixelShader = d.ps
	}
	if d.textures[0] != nil {
		s.Texture0 = d.textures[0]
	}
	if d.stream.vb != nil {
		s.Stream0 = core.StreamBinding{Buffer: d.stream.vb, Offset: d.stream.offset, Stride: d.stream.stride}
	}
	if d.indices != nil {
		s.Indices = d.indices
	}
	if d.decl != nil {
		s.Declaration = d.decl
	}
	return s
}

// BindHostResources binds host-owned shader, texture and buffers the way a
// game would before handing the device to an overlay.
func (d *Device) BindHostResources() {
	vs, ps := d.NewShader("host-vs"), d.NewShader("host-ps")
	tex := d.newTexture(4, 4, nil, "host-tex")
	vb := d.newVertexBuffer(16, "host-vb")
	ib := d.newIndexBuffer(16, core.IndexFormat16, "host-ib")
	bind(&d.vs, vs)
	bind(&d.ps, ps)
	bind(&d.textures[0], tex)
	bind(&d.stream.vb, vb)
	d.stream.offset, d.stream.stride = 0, 32
	bind(&d.indices, ib)
	d.fvf = core.FVFXYZ | core.FVFDiffuse
	// Drop the creation references; the bindings keep them alive.
	vs.Release()
	ps.Release()
	tex.Release()
	vb.Release()
	ib.Release()
}

// BindHostDeclaration binds a host-owned vertex declaration in place of the
// vertex format, as a shader-based game would.
func (d *Device) BindHostDeclaration() *VertexDeclaration {
	decl := &VertexDeclaration{handle: d.track("host-decl")}
	bind(&d.decl, decl)
	d.fvf = 0
	decl.Release()
	return decl
}

// NewShader creates a shader handle holding one reference.
func (d *Device) NewShader(name string) *Shader {
	return &Shader{handle: d.track(name)}
}

func (d *Device) track(name string) *handle {
	h := &handle{refs: 1, name: name}
	d.handles = append(d.handles, h)
	return h
}

func (d *Device) RenderState(s core.RenderState) (uint32, error) {
	if err := d.call("RenderState", false); err != nil {
		return 0, err
	}
	return d.renderStates[s], nil
}

func (d *Device) SetRenderState(s core.RenderState, v uint32) error {
	if err := d.call("SetRenderState", true); err != nil {
		return err
	}
	d.renderStates[s] = v
	return nil
}

func (d *Device) TextureStageState(stage uint32, s core.TextureStageState) (uint32, error) {
	if err := d.call("TextureStageState", false); err != nil {
		return 0, err
	}
	return d.stageStates[stageKey{stage, uint32(s)}], nil
}

func (d *Device) SetTextureStageState(stage uint32, s core.TextureStageState, v uint32) error {
	if err := d.call("SetTextureStageState", true); err != nil {
		return err
	}
	d.stageStates[stageKey{stage, uint32(s)}] = v
	return nil
}

func (d *Device) SamplerState(sampler uint32, s core.SamplerState) (uint32, error) {
	if err := d.call("SamplerState", false); err != nil {
		return 0, err
	}
	return d.samplerStates[stageKey{sampler, uint32(s)}], nil
}

func (d *Device) SetSamplerState(sampler uint32, s core.SamplerState, v uint32) error {
	if err := d.call("SetSamplerState", true); err != nil {
		return err
	}
	d.samplerStates[stageKey{sampler, uint32(s)}] = v
	return nil
}

func (d *Device) Transform(t core.TransformState) (core.Matrix, error) {
	if err := d.call("Transform", false); err != nil {
		return core.Matrix{}, err
	}
	return d.transforms[t], nil
}

func (d *Device) SetTransform(t core.TransformState, m core.Matrix) error {
	if err := d.call("SetTransform", true); err != nil {
		return err
	}
	d.transforms[t] = m
	return nil
}

func (d *Device) Viewport() (core.Viewport, error) {
	if err := d.call("Viewport", false); err != nil {
		return core.Viewport{}, err
	}
	return d.viewport, nil
}

func (d *Device) SetViewport(vp core.Viewport) error {
	if err := d.call("SetViewport", true); err != nil {
		return err
	}
	d.viewport = vp
	return nil
}

func (d *Device) ScissorRect() (core.Rect, error) {
	if err := d.call("ScissorRect", false); err != nil {
		return core.Rect{}, err
	}
	return d.scissor, nil
}

func (d *Device) SetScissorRect(r core.Rect) error {
	if err := d.call("SetScissorRect", true); err != nil {
		return err
	}
	d.scissor = r
	return nil
}

func (d *Device) Material() (core.Material, error) {
	if err := d.call("Material", false); err != nil {
		return core.Material{}, err
	}
	return d.material, nil
}

func (d *Device) SetMaterial(m core.Material) error {
	if err := d.call("SetMaterial", true); err != nil {
		return err
	}
	d.material = m
	return nil
}

func (d *Device) VertexShader() (core.Shader, error) {
	if err := d.call("VertexShader", false); err != nil {
		return nil, err
	}
	if d.vs == nil {
		return nil, nil
	}
	d.vs.AddRef()
	return d.vs, nil
}

func (d *Device) SetVertexShader(s core.Shader) error {
	if err := d.call("SetVertexShader", true); err != nil {
		return err
	}
	bind(&d.vs, asShader(s))
	return nil
}

func (d *Device) PixelShader() (core.Shader, error) {
	if err := d.call("PixelShader", false); err != nil {
		return nil, err
	}
	if d.ps == nil {
		return nil, nil
	}
	d.ps.AddRef()
	return d.ps, nil
}

func (d *Device) SetPixelShader(s core.Shader) error {
	if err := d.call("SetPixelShader", true); err != nil {
		return err
	}
	bind(&d.ps, asShader(s))
	return nil
}

func (d *Device) Texture(stage uint32) (core.Texture, error) {
	if err := d.call("Texture", false); err != nil {
		return nil, err
	}
	t := d.textures[stage]
	if t == nil {
		return nil, nil
	}
	t.AddRef()
	return t, nil
}

func (d *Device) SetTexture(stage uint32, t core.Texture) error {
	if err := d.call("SetTexture", true); err != nil {
		return err
	}
	var tex *Texture
	if t != nil {
		tex = t.(*Texture)
	}
	bind(&d.textures[stage], tex)
	return nil
}

func (d *Device) StreamSource(stream uint32) (core.StreamBinding, error) {
	if err := d.call("StreamSource", false); err != nil {
		return core.StreamBinding{}, err
	}
	if stream != 0 || d.stream.vb == nil {
		return core.StreamBinding{}, nil
	}
	d.stream.vb.AddRef()
	return core.StreamBinding{Buffer: d.stream.vb, Offset: d.stream.offset, Stride: d.stream.stride}, nil
}

func (d *Device) SetStreamSource(stream uint32, b core.StreamBinding) error {
	if err := d.call("SetStreamSource", true); err != nil {
		return err
	}
	if stream != 0 {
		return fmt.Errorf("devicetest: only stream 0 is tracked")
	}
	var vb *VertexBuffer
	if b.Buffer != nil {
		vb = b.Buffer.(*VertexBuffer)
	}
	bind(&d.stream.vb, vb)
	d.stream.offset, d.stream.stride = b.Offset, b.Stride
	return nil
}

func (d *Device) Indices() (core.IndexBuffer, error) {
	if err := d.call("Indices", false); err != nil {
		return nil, err
	}
	if d.indices == nil {
		return nil, nil
	}
	d.indices.AddRef()
	return d.indices, nil
}

func (d *Device) SetIndices(ib core.IndexBuffer) error {
	if err := d.call("SetIndices", true); err != nil {
		return err
	}
	var b *IndexBuffer
	if ib != nil {
		b = ib.(*IndexBuffer)
	}
	bind(&d.indices, b)
	return nil
}

func (d *Device) VertexFormat() (core.VertexFormat, error) {
	if err := d.call("VertexFormat", false); err != nil {
		return 0, err
	}
	return d.fvf, nil
}

func (d *Device) SetVertexFormat(f core.VertexFormat) error {
	if err := d.call("SetVertexFormat", true); err != nil {
		return err
	}
	d.fvf = f
	bind(&d.decl, nil)
	return nil
}

func (d *Device) VertexDeclaration() (core.VertexDeclaration, error) {
	if err := d.call("VertexDeclaration", false); err != nil {
		return nil, err
	}
	if d.decl == nil {
		return nil, nil
	}
	d.decl.AddRef()
	return d.decl, nil
}

// SetVertexDeclaration replaces the vertex format, which then reads back as 0.
func (d *Device) SetVertexDeclaration(v core.VertexDeclaration) error {
	if err := d.call("SetVertexDeclaration", true); err != nil {
		return err
	}
	var decl *VertexDeclaration
	if v != nil {
		decl = v.(*VertexDeclaration)
	}
	bind(&d.decl, decl)
	if decl != nil {
		d.fvf = 0
	}
	return nil
}

func (d *Device) CreateVertexBuffer(length int) (core.VertexBuffer, error) {
	if err := d.call("CreateVertexBuffer", false); err != nil {
		return nil, err
	}
	d.VertexBuffersCreated++
	return d.newVertexBuffer(length, "vb"), nil
}

func (d *Device) CreateIndexBuffer(length int, format core.IndexFormat) (core.IndexBuffer, error) {
	if err := d.call("CreateIndexBuffer", false); err != nil {
		return nil, err
	}
	d.IndexBuffersCreated++
	return d.newIndexBuffer(length, format, "ib"), nil
}

func (d *Device) CreateTexture(width, height int, rgba []byte) (core.Texture, error) {
	if err := d.call("CreateTexture", false); err != nil {
		return nil, err
	}
	if len(rgba) != width*height*4 {
		return nil, fmt.Errorf("devicetest: %d bytes for %dx%d texture", len(rgba), width, height)
	}
	d.TexturesCreated++
	return d.newTexture(width, height, rgba, "tex"), nil
}

func (d *Device) DrawIndexedPrimitive(pt core.PrimitiveType, baseVertex int32, minIndex, numVertices, startIndex, primCount uint32) error {
	if err := d.call("DrawIndexedPrimitive", true); err != nil {
		return err
	}
	dr := Draw{
		Prim: pt, BaseVertex: baseVertex, MinIndex: minIndex, NumVertices: numVertices,
		StartIndex: startIndex, PrimCount: primCount, Scissor: d.scissor,
	}
	if d.textures[0] != nil {
		dr.Texture = d.textures[0]
	}
	if d.stream.vb != nil {
		dr.Stream = core.StreamBinding{Buffer: d.stream.vb, Offset: d.stream.offset, Stride: d.stream.stride}
	}
	if d.indices != nil {
		dr.Indices = d.indices
	}
	d.Draws = append(d.Draws, dr)
	if d.OnDraw != nil {
		d.OnDraw(dr)
	}
	return nil
}

func asShader(s core.Shader) *Shader {
	if s == nil {
		return nil
	}
	return s.(*Shader)
}
