package core

import "errors"

// ErrDeviceLost is wrapped by device implementations when the underlying
// device can no longer be used and must be recreated by the host.
var ErrDeviceLost = errors.New("device lost")

// Device is the fixed-function graphics device the GUI overlay draws with.
//
// The state enums and their values follow Direct3D 9, so a D3D9 device can
// pass them through untouched while other backends translate. Getters that
// return handles (shaders, textures, buffers) return referenced handles that
// the caller must Release, matching the COM convention. Implementations must
// return an untyped nil when nothing is bound.
//
// A Device is not safe for concurrent use.
type Device interface {
	AddRef() uint32
	Release() uint32

	RenderState(s RenderState) (uint32, error)
	SetRenderState(s RenderState, v uint32) error
	TextureStageState(stage uint32, s TextureStageState) (uint32, error)
	SetTextureStageState(stage uint32, s TextureStageState, v uint32) error
	SamplerState(sampler uint32, s SamplerState) (uint32, error)
	SetSamplerState(sampler uint32, s SamplerState, v uint32) error

	Transform(t TransformState) (Matrix, error)
	SetTransform(t TransformState, m Matrix) error
	Viewport() (Viewport, error)
	SetViewport(vp Viewport) error
	ScissorRect() (Rect, error)
	SetScissorRect(r Rect) error
	Material() (Material, error)
	SetMaterial(m Material) error

	VertexShader() (Shader, error)
	SetVertexShader(s Shader) error
	PixelShader() (Shader, error)
	SetPixelShader(s Shader) error

	Texture(stage uint32) (Texture, error)
	SetTexture(stage uint32, t Texture) error
	StreamSource(stream uint32) (StreamBinding, error)
	SetStreamSource(stream uint32, b StreamBinding) error
	Indices() (IndexBuffer, error)
	SetIndices(ib IndexBuffer) error
	VertexFormat() (VertexFormat, error)
	SetVertexFormat(f VertexFormat) error
	// VertexDeclaration returns the bound declaration, or nil when the input
	// layout comes from the vertex format. Setting either one replaces the other.
	VertexDeclaration() (VertexDeclaration, error)
	SetVertexDeclaration(v VertexDeclaration) error

	// CreateVertexBuffer allocates a dynamic, write-only buffer of length vertices.
	CreateVertexBuffer(length int) (VertexBuffer, error)
	// CreateIndexBuffer allocates a dynamic, write-only buffer of length indices.
	CreateIndexBuffer(length int, format IndexFormat) (IndexBuffer, error)
	// CreateTexture uploads tightly packed RGBA8 pixels (row-major, top-left origin).
	CreateTexture(width, height int, rgba []byte) (Texture, error)

	DrawIndexedPrimitive(pt PrimitiveType, baseVertex int32, minIndex, numVertices, startIndex, primCount uint32) error
}

// PixelCenterer is implemented by devices whose pixel centers are not at
// half-integer coordinates. Direct3D 9 samples at integer coordinates and needs
// a 0.5 offset in the projection; devices that do not implement this get it.
type PixelCenterer interface {
	PixelCenterOffset() float32
}

// Resource is a device-owned object released through reference counting.
type Resource interface {
	Release()
}

// VertexBuffer is a GPU vertex buffer holding Len() vertices.
type VertexBuffer interface {
	Resource
	Len() int
	// Lock maps the first count vertices for writing, discarding prior contents.
	Lock(count int) ([]Vertex, error)
	Unlock() error
}

// IndexBuffer is a GPU index buffer holding Len() indices.
type IndexBuffer interface {
	Resource
	Len() int
	Format() IndexFormat
	// Lock maps the first count indices as raw bytes, discarding prior contents.
	Lock(count int) ([]byte, error)
	Unlock() error
}

// Texture is a 2D texture resident on the device.
type Texture interface {
	Resource
	Size() (w, h int)
}

// Shader is an opaque programmable shader binding. The overlay only ever
// unbinds shaders and restores whatever the host had bound.
type Shader interface {
	Resource
}

// VertexDeclaration is an opaque programmable input layout. Like shaders, the
// overlay never creates one; it only puts back what the host had bound.
type VertexDeclaration interface {
	Resource
}

// StreamBinding describes what is bound to a vertex stream.
type StreamBinding struct {
	Buffer VertexBuffer
	Offset uint32
	Stride uint32
}

// Vertex is the device-side vertex, laid out as FVF XYZ|DIFFUSE|TEX1.
// Color is a D3DCOLOR: 0xAARRGGBB in a little-endian uint32.
type Vertex struct {
	Pos   [3]float32
	Color uint32
	UV    [2]float32
}

// VertexSize is the byte size of Vertex.
const VertexSize = 24

// FVF of Vertex.
const VertexFVF = FVFXYZ | FVFDiffuse | FVFTex1

type VertexFormat uint32

const (
	FVFXYZ     VertexFormat = 0x002
	FVFDiffuse VertexFormat = 0x040
	FVFTex1    VertexFormat = 0x100
)

type IndexFormat uint32

const (
	IndexFormat16 IndexFormat = 101
	IndexFormat32 IndexFormat = 102
)

// Size returns the byte size of one index.
func (f IndexFormat) Size() int {
	if f == IndexFormat32 {
		return 4
	}
	return 2
}

type PrimitiveType uint32

const PrimitiveTriangleList PrimitiveType = 4

type RenderState uint32

const (
	RSZEnable           RenderState = 7
	RSFillMode          RenderState = 8
	RSShadeMode         RenderState = 9
	RSAlphaTestEnable   RenderState = 15
	RSSrcBlend          RenderState = 19
	RSDestBlend         RenderState = 20
	RSCullMode          RenderState = 22
	RSAlphaBlendEnable  RenderState = 27
	RSFogEnable         RenderState = 28
	RSLighting          RenderState = 137
	RSBlendOp           RenderState = 171
	RSScissorTestEnable RenderState = 174
)

// Render state values.
const (
	False uint32 = 0
	True  uint32 = 1

	FillPoint     uint32 = 1
	FillWireframe uint32 = 2
	FillSolid     uint32 = 3

	ShadeFlat    uint32 = 1
	ShadeGouraud uint32 = 2

	CullNone uint32 = 1
	CullCW   uint32 = 2
	CullCCW  uint32 = 3

	BlendZero        uint32 = 1
	BlendOne         uint32 = 2
	BlendSrcAlpha    uint32 = 5
	BlendInvSrcAlpha uint32 = 6

	BlendOpAdd uint32 = 1
)

type TextureStageState uint32

const (
	TSSColorOp   TextureStageState = 1
	TSSColorArg1 TextureStageState = 2
	TSSColorArg2 TextureStageState = 3
	TSSAlphaOp   TextureStageState = 4
	TSSAlphaArg1 TextureStageState = 5
	TSSAlphaArg2 TextureStageState = 6
)

// Texture stage values.
const (
	TopDisable    uint32 = 1
	TopSelectArg1 uint32 = 2
	TopSelectArg2 uint32 = 3
	TopModulate   uint32 = 4

	TADiffuse uint32 = 0
	TACurrent uint32 = 1
	TATexture uint32 = 2
)

type SamplerState uint32

const (
	SampMagFilter SamplerState = 5
	SampMinFilter SamplerState = 6
)

// Sampler filter values.
const (
	TexFNone   uint32 = 0
	TexFPoint  uint32 = 1
	TexFLinear uint32 = 2
)

type TransformState uint32

const (
	TSView       TransformState = 2
	TSProjection TransformState = 3
	TSWorld      TransformState = 256
)

// Matrix is a row-major 4x4 matrix applied to row vectors (v' = v*M).
type Matrix [16]float32

// Identity is the identity matrix.
var Identity = Matrix{
	1, 0, 0, 0,
	0, 1, 0, 0,
	0, 0, 1, 0,
	0, 0, 0, 1,
}

type Viewport struct {
	X, Y          uint32
	Width, Height uint32
	MinZ, MaxZ    float32
}

// Rect is a pixel rectangle; Right and Bottom are exclusive.
type Rect struct {
	Left, Top, Right, Bottom int32
}

// Empty reports whether r covers no pixels.
func (r Rect) Empty() bool { return r.Right <= r.Left || r.Bottom <= r.Top }

type Material struct {
	Diffuse, Ambient, Specular, Emissive [4]float32
	Power                                float32
}
