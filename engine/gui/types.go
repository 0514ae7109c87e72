// Package gui holds the per-frame draw description an immediate-mode GUI
// hands to a renderer backend, plus a small builder for producing it.
package gui

import (
	"fmt"
	"unsafe"
)

// TextureID is an opaque token naming a texture. Only the renderer that
// handed it out knows what it refers to.
type TextureID uintptr

// IndexSize is the byte size of Index for this build.
const IndexSize = int(unsafe.Sizeof(Index(0)))

// maxListVertices is how many vertices a single VtxOffset window can address.
const maxListVertices = 1 << (8 * unsafe.Sizeof(Index(0)))

// Vertex is the GUI vertex: screen-space position, texture coordinate and a
// straight RGBA color.
type Vertex struct {
	Pos [2]float32
	UV  [2]float32
	Col [4]uint8
}

// CmdKind distinguishes element draws from the special commands.
type CmdKind uint8

const (
	// CmdElements draws ElemCount indices.
	CmdElements CmdKind = iota
	// CmdCallback invokes Callback instead of drawing.
	CmdCallback
	// CmdResetRenderState asks the renderer to re-apply its render state,
	// typically after a callback changed it.
	CmdResetRenderState
)

// DrawCallback runs user rendering in the middle of a draw list.
type DrawCallback func(list *DrawList, cmd *DrawCmd)

// DrawCmd is one sub-range of a list's indices sharing a texture and clip rect.
type DrawCmd struct {
	Kind      CmdKind
	ElemCount uint32
	// ClipRect is left, top, right, bottom in display coordinates.
	ClipRect  [4]float32
	TextureID TextureID
	// VtxOffset is added to every index of the command.
	VtxOffset uint32
	Callback  DrawCallback
	UserData  any
}

// DrawData is everything needed to render one frame. Renderers must not
// retain it after the render call returns.
type DrawData struct {
	DisplayPos       [2]float32
	DisplaySize      [2]float32
	FramebufferScale [2]float32
	Lists            []*DrawList
	TotalVtxCount    int
	TotalIdxCount    int
}

// NewDrawData assembles a frame and computes its totals.
func NewDrawData(pos, size, scale [2]float32, lists ...*DrawList) *DrawData {
	dd := &DrawData{DisplayPos: pos, DisplaySize: size, FramebufferScale: scale, Lists: lists}
	for _, l := range lists {
		dd.TotalVtxCount += len(l.VtxBuffer)
		dd.TotalIdxCount += len(l.IdxBuffer)
	}
	return dd
}

// FramebufferSize is the display size in device pixels.
func (dd *DrawData) FramebufferSize() (w, h float32) {
	return dd.DisplaySize[0] * dd.FramebufferScale[0], dd.DisplaySize[1] * dd.FramebufferScale[1]
}

// Empty reports whether the frame has nothing to draw. It looks at the
// lists themselves, not the cached totals.
func (dd *DrawData) Empty() bool {
	if dd == nil {
		return true
	}
	w, h := dd.FramebufferSize()
	if w <= 0 || h <= 0 {
		return true
	}
	for _, l := range dd.Lists {
		if len(l.VtxBuffer) > 0 && len(l.IdxBuffer) > 0 {
			return false
		}
	}
	return true
}

// BackendFlags advertise renderer capabilities to the GUI.
type BackendFlags uint32

const (
	// BackendHasVtxOffset means the renderer honours DrawCmd.VtxOffset, so
	// lists may exceed the 16-bit index range.
	BackendHasVtxOffset BackendFlags = 1 << iota
)

// IndexRangeError reports an index that points outside its list.
type IndexRangeError struct {
	Cmd, Index int
	Vertex     uint64
	Vertices   int
}

func (e *IndexRangeError) Error() string {
	return fmt.Sprintf("command %d: index %d references vertex %d of %d", e.Cmd, e.Index, e.Vertex, e.Vertices)
}
