//go:build windows

package d3d9backend

import (
	"fmt"
	"unsafe"

	"github.com/gonutz/d3d9"
	"github.com/hubastard/overlay/engine/core"
)

type vertexShader struct{ *d3d9.VertexShader }

func (s vertexShader) Release() { s.VertexShader.Release() }

type pixelShader struct{ *d3d9.PixelShader }

func (s pixelShader) Release() { s.PixelShader.Release() }

// Texture is a texture created through Device.CreateTexture.
type Texture struct {
	tex  *d3d9.Texture
	w, h int
}

func (t *Texture) Size() (int, int) { return t.w, t.h }
func (t *Texture) Release()         { t.tex.Release() }

// boundTexture is whatever the host had bound, seen only so it can be put
// back. Its size is not known.
type boundTexture struct{ tex *d3d9.Texture }

func (t *boundTexture) Size() (int, int) { return 0, 0 }
func (t *boundTexture) Release()         { t.tex.Release() }

// VertexDeclaration is a declaration the host bound, held so it can be
// restored.
type VertexDeclaration struct{ decl *d3d9.VertexDeclaration }

func (v *VertexDeclaration) Release() { v.decl.Release() }

type VertexBuffer struct {
	vb     *d3d9.VertexBuffer
	length int
	locked bool
}

func (b *VertexBuffer) Len() int  { return b.length }
func (b *VertexBuffer) Release() { b.vb.Release() }

func (b *VertexBuffer) Lock(count int) ([]core.Vertex, error) {
	if count > b.length {
		return nil, fmt.Errorf("d3d9backend: lock %d of %d vertices", count, b.length)
	}
	mem, err := b.vb.Lock(0, uint(count*core.VertexSize), d3d9.LOCK_DISCARD)
	if err != nil {
		return nil, wrap("lock vertex buffer", err)
	}
	b.locked = true
	if count == 0 {
		return nil, nil
	}
	return unsafe.Slice((*core.Vertex)(unsafe.Pointer(mem.Memory)), count), nil
}

func (b *VertexBuffer) Unlock() error {
	if !b.locked {
		return fmt.Errorf("d3d9backend: vertex buffer not locked")
	}
	b.locked = false
	return wrap("unlock vertex buffer", b.vb.Unlock())
}

type IndexBuffer struct {
	ib     *d3d9.IndexBuffer
	length int
	format core.IndexFormat
	locked bool
}

// indexFormatOf reads the format of a buffer the host created.
func indexFormatOf(ib *d3d9.IndexBuffer) core.IndexFormat {
	desc, err := ib.GetDesc()
	if err != nil {
		return core.IndexFormat16
	}
	return core.IndexFormat(desc.Format)
}

func (b *IndexBuffer) Len() int                 { return b.length }
func (b *IndexBuffer) Format() core.IndexFormat { return b.format }
func (b *IndexBuffer) Release()                 { b.ib.Release() }

func (b *IndexBuffer) Lock(count int) ([]byte, error) {
	if count > b.length {
		return nil, fmt.Errorf("d3d9backend: lock %d of %d indices", count, b.length)
	}
	n := count * b.format.Size()
	mem, err := b.ib.Lock(0, uint(n), d3d9.LOCK_DISCARD)
	if err != nil {
		return nil, wrap("lock index buffer", err)
	}
	b.locked = true
	if n == 0 {
		return nil, nil
	}
	return memory(mem.Memory, n), nil
}

func (b *IndexBuffer) Unlock() error {
	if !b.locked {
		return fmt.Errorf("d3d9backend: index buffer not locked")
	}
	b.locked = false
	return wrap("unlock index buffer", b.ib.Unlock())
}

var (
	_ core.Texture           = (*Texture)(nil)
	_ core.Texture           = (*boundTexture)(nil)
	_ core.VertexDeclaration = (*VertexDeclaration)(nil)
	_ core.Shader            = vertexShader{}
	_ core.Shader            = pixelShader{}
	_ core.VertexBuffer      = (*VertexBuffer)(nil)
	_ core.IndexBuffer       = (*IndexBuffer)(nil)
)
