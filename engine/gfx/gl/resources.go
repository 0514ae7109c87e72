package glbackend

import (
	"fmt"

	"github.com/go-gl/gl/v2.1/gl"
	"github.com/hubastard/overlay/engine/core"
)

// refs is an intrusive reference count. free runs when it drops to zero.
type refs struct {
	n    int32
	free func()
}

func (r *refs) AddRef() { r.n++ }

func (r *refs) Release() {
	if r.n <= 0 {
		return
	}
	r.n--
	if r.n == 0 && r.free != nil {
		r.free()
	}
}

// Texture is a GL_TEXTURE_2D object.
type Texture struct {
	refs
	id   uint32
	w, h int
}

func (t *Texture) Size() (int, int) { return t.w, t.h }

func newTexture(w, h int, rgba []byte) (*Texture, error) {
	if w <= 0 || h <= 0 || len(rgba) != w*h*4 {
		return nil, fmt.Errorf("glbackend: texture %dx%d with %d bytes", w, h, len(rgba))
	}
	t := &Texture{w: w, h: h}
	gl.GenTextures(1, &t.id)
	gl.BindTexture(gl.TEXTURE_2D, t.id)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)
	gl.PixelStorei(gl.UNPACK_ALIGNMENT, 1)
	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA8, int32(w), int32(h), 0, gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(rgba))
	t.refs = refs{n: 1, free: func() { gl.DeleteTextures(1, &t.id) }}
	if err := glError("create texture"); err != nil {
		t.Release()
		return nil, err
	}
	return t, nil
}

// Program wraps a linked GLSL program so a host can bind it through the
// device's shader slots. The device treats vertex and pixel slots alike and
// uses whichever is set.
type Program struct {
	refs
	id uint32
}

// WrapProgram takes ownership of a linked program; it is deleted when the
// last reference is released.
func WrapProgram(id uint32) *Program {
	p := &Program{id: id}
	p.refs = refs{n: 1, free: func() { gl.DeleteProgram(p.id) }}
	return p
}

// VertexBuffer is a GL_ARRAY_BUFFER with a client-side staging copy. Unlock
// orphans the old storage and streams the locked range.
type VertexBuffer struct {
	refs
	id     uint32
	data   []core.Vertex
	locked int
}

func newVertexBuffer(length int) (*VertexBuffer, error) {
	if length <= 0 {
		return nil, fmt.Errorf("glbackend: vertex buffer of %d", length)
	}
	b := &VertexBuffer{data: make([]core.Vertex, length), locked: -1}
	gl.GenBuffers(1, &b.id)
	gl.BindBuffer(gl.ARRAY_BUFFER, b.id)
	gl.BufferData(gl.ARRAY_BUFFER, length*core.VertexSize, nil, gl.STREAM_DRAW)
	gl.BindBuffer(gl.ARRAY_BUFFER, 0)
	b.refs = refs{n: 1, free: func() { gl.DeleteBuffers(1, &b.id) }}
	if err := glError("create vertex buffer"); err != nil {
		b.Release()
		return nil, err
	}
	return b, nil
}

func (b *VertexBuffer) Len() int { return len(b.data) }

func (b *VertexBuffer) Lock(count int) ([]core.Vertex, error) {
	if b.locked >= 0 {
		return nil, fmt.Errorf("glbackend: vertex buffer already locked")
	}
	if count < 0 || count > len(b.data) {
		return nil, fmt.Errorf("glbackend: lock %d of %d vertices", count, len(b.data))
	}
	b.locked = count
	return b.data[:count], nil
}

func (b *VertexBuffer) Unlock() error {
	n := b.locked
	if n < 0 {
		return fmt.Errorf("glbackend: vertex buffer not locked")
	}
	b.locked = -1
	if n == 0 {
		return nil
	}
	gl.BindBuffer(gl.ARRAY_BUFFER, b.id)
	gl.BufferData(gl.ARRAY_BUFFER, len(b.data)*core.VertexSize, nil, gl.STREAM_DRAW)
	gl.BufferSubData(gl.ARRAY_BUFFER, 0, n*core.VertexSize, gl.Ptr(&b.data[0]))
	gl.BindBuffer(gl.ARRAY_BUFFER, 0)
	return glError("upload vertices")
}

// IndexBuffer is a GL_ELEMENT_ARRAY_BUFFER, staged the same way.
type IndexBuffer struct {
	refs
	id     uint32
	format core.IndexFormat
	data   []byte
	locked int
}

func newIndexBuffer(length int, format core.IndexFormat) (*IndexBuffer, error) {
	if length <= 0 {
		return nil, fmt.Errorf("glbackend: index buffer of %d", length)
	}
	b := &IndexBuffer{format: format, data: make([]byte, length*format.Size()), locked: -1}
	gl.GenBuffers(1, &b.id)
	gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, b.id)
	gl.BufferData(gl.ELEMENT_ARRAY_BUFFER, len(b.data), nil, gl.STREAM_DRAW)
	gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, 0)
	b.refs = refs{n: 1, free: func() { gl.DeleteBuffers(1, &b.id) }}
	if err := glError("create index buffer"); err != nil {
		b.Release()
		return nil, err
	}
	return b, nil
}

func (b *IndexBuffer) Len() int                 { return len(b.data) / b.format.Size() }
func (b *IndexBuffer) Format() core.IndexFormat { return b.format }

func (b *IndexBuffer) Lock(count int) ([]byte, error) {
	if b.locked >= 0 {
		return nil, fmt.Errorf("glbackend: index buffer already locked")
	}
	n := count * b.format.Size()
	if count < 0 || n > len(b.data) {
		return nil, fmt.Errorf("glbackend: lock %d of %d indices", count, b.Len())
	}
	b.locked = n
	return b.data[:n], nil
}

func (b *IndexBuffer) Unlock() error {
	n := b.locked
	if n < 0 {
		return fmt.Errorf("glbackend: index buffer not locked")
	}
	b.locked = -1
	if n == 0 {
		return nil
	}
	gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, b.id)
	gl.BufferData(gl.ELEMENT_ARRAY_BUFFER, len(b.data), nil, gl.STREAM_DRAW)
	gl.BufferSubData(gl.ELEMENT_ARRAY_BUFFER, 0, n, gl.Ptr(&b.data[0]))
	gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, 0)
	return glError("upload indices")
}

// glContextLost is GL_CONTEXT_LOST from GL 4.5 / KHR_robustness.
const glContextLost = 0x0507

func glError(op string) error {
	switch e := gl.GetError(); e {
	case gl.NO_ERROR:
		return nil
	case glContextLost:
		return fmt.Errorf("glbackend: %s: %w", op, core.ErrDeviceLost)
	default:
		return fmt.Errorf("glbackend: %s: gl error %#x", op, e)
	}
}

var (
	_ core.Texture      = (*Texture)(nil)
	_ core.Shader       = (*Program)(nil)
	_ core.VertexBuffer = (*VertexBuffer)(nil)
	_ core.IndexBuffer  = (*IndexBuffer)(nil)
)
