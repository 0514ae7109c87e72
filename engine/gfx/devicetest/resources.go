package devicetest

import (
	"errors"
	"fmt"

	"github.com/hubastard/overlay/engine/core"
)

type handle struct {
	refs int32
	name string
}

func (h *handle) AddRef() { h.refs++ }

func (h *handle) Release() {
	if h.refs <= 0 {
		panic(fmt.Sprintf("devicetest: %s over-released", h.name))
	}
	h.refs--
}

// Refs returns the outstanding reference count.
func (h *handle) Refs() int32 { return h.refs }

type refCounted interface {
	comparable
	AddRef()
	Release()
}

// bind stores v in slot the way a COM device does: the new binding takes a
// reference and the old one is released.
func bind[T refCounted](slot *T, v T) {
	var zero T
	if v != zero {
		v.AddRef()
	}
	if *slot != zero {
		(*slot).Release()
	}
	*slot = v
}

// Shader is a fake programmable shader.
type Shader struct{ *handle }

// VertexDeclaration is a fake input layout.
type VertexDeclaration struct{ *handle }

// Texture is a fake texture keeping its pixels.
type Texture struct {
	*handle
	W, H   int
	Pixels []byte
}

func (d *Device) newTexture(w, h int, rgba []byte, name string) *Texture {
	return &Texture{handle: d.track(name), W: w, H: h, Pixels: append([]byte(nil), rgba...)}
}

func (t *Texture) Size() (int, int) { return t.W, t.H }

var errLocked = errors.New("devicetest: buffer already locked")

// VertexBuffer is a fake vertex buffer; Data holds what was last written.
type VertexBuffer struct {
	*handle
	dev    *Device
	Data   []core.Vertex
	Locks  int
	locked bool
}

func (d *Device) newVertexBuffer(length int, name string) *VertexBuffer {
	return &VertexBuffer{handle: d.track(name), dev: d, Data: make([]core.Vertex, length)}
}

func (b *VertexBuffer) Len() int { return len(b.Data) }

func (b *VertexBuffer) Lock(count int) ([]core.Vertex, error) {
	if err := b.dev.call("VertexBuffer.Lock", false); err != nil {
		return nil, err
	}
	if b.locked {
		return nil, errLocked
	}
	if count > len(b.Data) {
		return nil, fmt.Errorf("devicetest: lock %d of %d vertices", count, len(b.Data))
	}
	b.locked = true
	b.Locks++
	// Discard: stale contents must never be relied upon.
	clear(b.Data[:count])
	return b.Data[:count], nil
}

// Locked reports whether the buffer is currently mapped.
func (b *VertexBuffer) Locked() bool { return b.locked }

func (b *VertexBuffer) Unlock() error {
	b.locked = false
	return nil
}

// IndexBuffer is a fake index buffer; Data holds raw index bytes.
type IndexBuffer struct {
	*handle
	dev    *Device
	Data   []byte
	Fmt    core.IndexFormat
	Locks  int
	locked bool
}

func (d *Device) newIndexBuffer(length int, format core.IndexFormat, name string) *IndexBuffer {
	return &IndexBuffer{handle: d.track(name), dev: d, Data: make([]byte, length*format.Size()), Fmt: format}
}

func (b *IndexBuffer) Len() int                 { return len(b.Data) / b.Fmt.Size() }
func (b *IndexBuffer) Format() core.IndexFormat { return b.Fmt }

func (b *IndexBuffer) Lock(count int) ([]byte, error) {
	if err := b.dev.call("IndexBuffer.Lock", false); err != nil {
		return nil, err
	}
	if b.locked {
		return nil, errLocked
	}
	n := count * b.Fmt.Size()
	if n > len(b.Data) {
		return nil, fmt.Errorf("devicetest: lock %d of %d indices", count, b.Len())
	}
	b.locked = true
	b.Locks++
	clear(b.Data[:n])
	return b.Data[:n], nil
}

// Locked reports whether the buffer is currently mapped.
func (b *IndexBuffer) Locked() bool { return b.locked }

func (b *IndexBuffer) Unlock() error {
	b.locked = false
	return nil
}

var (
	_ core.Device       = (*Device)(nil)
	_ core.VertexBuffer = (*VertexBuffer)(nil)
	_ core.IndexBuffer  = (*IndexBuffer)(nil)
	_ core.Texture      = (*Texture)(nil)
	_ core.Shader       = (*Shader)(nil)

	_ core.VertexDeclaration = (*VertexDeclaration)(nil)
)
