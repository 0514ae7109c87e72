package uirender

import (
	"errors"
	"fmt"
	"log/slog"
	"unsafe"

	"github.com/hubastard/overlay/engine/core"
	"github.com/hubastard/overlay/engine/gui"
)

// indexFormat matches gui.Index for this build.
var indexFormat = func() core.IndexFormat {
	if gui.IndexSize == 4 {
		return core.IndexFormat32
	}
	return core.IndexFormat16
}()

// listBase is where one draw list landed in the shared buffers.
type listBase struct {
	Vertex int
	Index  int
}

// bufferManager owns the dynamic vertex and index buffers. Capacity only
// grows; each reallocation adds slack so steady-state frames never allocate.
type bufferManager struct {
	dev    core.Device
	log    *slog.Logger
	vb     core.VertexBuffer
	ib     core.IndexBuffer
	vSlack int
	iSlack int

	// Growths counts reallocations over the manager's lifetime.
	Growths int
	bases   []listBase
}

func newBufferManager(dev core.Device, log *slog.Logger, vSlack, iSlack int) *bufferManager {
	return &bufferManager{dev: dev, log: log, vSlack: vSlack, iSlack: iSlack}
}

// Capacity returns the current vertex and index capacities.
func (m *bufferManager) Capacity() (vertices, indices int) {
	if m.vb != nil {
		vertices = m.vb.Len()
	}
	if m.ib != nil {
		indices = m.ib.Len()
	}
	return vertices, indices
}

// EnsureCapacity grows either buffer that is smaller than requested. A failed
// allocation leaves the previous buffer in place.
func (m *bufferManager) EnsureCapacity(vertices, indices int) error {
	if m.vb == nil || m.vb.Len() < vertices {
		n := max(vertices+m.vSlack, 1)
		vb, err := m.dev.CreateVertexBuffer(n)
		if err != nil {
			return bufferErr(fmt.Sprintf("create vertex buffer of %d", n), err)
		}
		if m.vb != nil {
			m.vb.Release()
		}
		m.vb = vb
		m.Growths++
		m.log.Debug("uirender: vertex buffer grown", "capacity", n)
	}
	if m.ib == nil || m.ib.Len() < indices {
		n := max(indices+m.iSlack, 1)
		ib, err := m.dev.CreateIndexBuffer(n, indexFormat)
		if err != nil {
			return bufferErr(fmt.Sprintf("create index buffer of %d", n), err)
		}
		if m.ib != nil {
			m.ib.Release()
		}
		m.ib = ib
		m.Growths++
		m.log.Debug("uirender: index buffer grown", "capacity", n, "format", indexFormat)
	}
	return nil
}

// Upload concatenates every list into the buffers and returns where each list
// starts. vertices and indices are the totals over lists.
func (m *bufferManager) Upload(lists []*gui.DrawList, vertices, indices int) ([]listBase, error) {
	if m.vb == nil || m.ib == nil || m.vb.Len() < vertices || m.ib.Len() < indices {
		return nil, bufferErr("upload", errors.New("buffers smaller than frame"))
	}
	vtx, err := m.vb.Lock(vertices)
	if err != nil {
		return nil, bufferErr("lock vertex buffer", err)
	}
	idx, err := m.ib.Lock(indices)
	if err != nil {
		m.vb.Unlock()
		return nil, bufferErr("lock index buffer", err)
	}

	m.bases = m.bases[:0]
	var vOff, iOff int
	for _, l := range lists {
		m.bases = append(m.bases, listBase{Vertex: vOff, Index: iOff})
		for i, v := range l.VtxBuffer {
			vtx[vOff+i] = deviceVertex(v)
		}
		copy(idx[iOff*gui.IndexSize:], indexBytes(l.IdxBuffer))
		vOff += len(l.VtxBuffer)
		iOff += len(l.IdxBuffer)
	}

	verr := m.vb.Unlock()
	ierr := m.ib.Unlock()
	if err := errors.Join(verr, ierr); err != nil {
		return nil, bufferErr("unlock", err)
	}
	return m.bases, nil
}

// Bind makes the buffers the device's stream 0 and index source.
func (m *bufferManager) Bind() error {
	if err := m.dev.SetStreamSource(0, core.StreamBinding{Buffer: m.vb, Stride: core.VertexSize}); err != nil {
		return deviceLost("bind vertex buffer", err)
	}
	if err := m.dev.SetIndices(m.ib); err != nil {
		return deviceLost("bind index buffer", err)
	}
	if err := m.dev.SetVertexFormat(core.VertexFVF); err != nil {
		return deviceLost("set vertex format", err)
	}
	return nil
}

func (m *bufferManager) Release() {
	if m.vb != nil {
		m.vb.Release()
		m.vb = nil
	}
	if m.ib != nil {
		m.ib.Release()
		m.ib = nil
	}
}

// deviceVertex converts a GUI vertex: z is zero and the color is reordered
// from RGBA bytes to a D3DCOLOR.
func deviceVertex(v gui.Vertex) core.Vertex {
	return core.Vertex{
		Pos:   [3]float32{v.Pos[0], v.Pos[1], 0},
		Color: packColor(v.Col),
		UV:    v.UV,
	}
}

func packColor(c [4]uint8) uint32 {
	return uint32(c[3])<<24 | uint32(c[0])<<16 | uint32(c[1])<<8 | uint32(c[2])
}

// indexBytes views indices as raw bytes in native order.
func indexBytes(idx []gui.Index) []byte {
	if len(idx) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&idx[0])), len(idx)*gui.IndexSize)
}
