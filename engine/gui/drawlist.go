package gui

import (
	"math"

	"github.com/hubastard/overlay/engine/colors"
	"github.com/hubastard/overlay/engine/text"
)

// noClip is the clip rectangle used when nothing has been pushed.
var noClip = [4]float32{-8192, -8192, 8192, 8192}

// DrawList is one batch of vertices, indices and commands sharing a
// coordinate space, typically one per window or layer. Consecutive shapes with
// the same texture and clip rect are merged into a single command.
type DrawList struct {
	CmdBuffer []DrawCmd
	VtxBuffer []Vertex
	IdxBuffer []Index

	clip      [4]float32
	clipStack [][4]float32
	tex       TextureID
	texStack  []TextureID
	vtxOffset uint32
	whiteUV   [2]float32
}

// NewDrawList creates a list whose untextured shapes sample whiteUV of the
// default texture fontTex.
func NewDrawList(fontTex TextureID, whiteUV [2]float32) *DrawList {
	dl := &DrawList{
		VtxBuffer: make([]Vertex, 0, 1024),
		IdxBuffer: make([]Index, 0, 2048),
		CmdBuffer: make([]DrawCmd, 0, 16),
		clipStack: make([][4]float32, 0, 8),
		whiteUV:   whiteUV,
	}
	dl.Reset(fontTex)
	return dl
}

// Reset clears the list for a new frame, keeping its capacity.
func (dl *DrawList) Reset(fontTex TextureID) {
	dl.CmdBuffer = dl.CmdBuffer[:0]
	dl.VtxBuffer = dl.VtxBuffer[:0]
	dl.IdxBuffer = dl.IdxBuffer[:0]
	dl.clipStack = dl.clipStack[:0]
	dl.texStack = dl.texStack[:0]
	dl.clip = noClip
	dl.tex = fontTex
	dl.vtxOffset = 0
}

// PushClipRect restricts subsequent shapes to the given rectangle, optionally
// intersected with the current one.
func (dl *DrawList) PushClipRect(x0, y0, x1, y1 float32, intersect bool) {
	r := [4]float32{x0, y0, x1, y1}
	if intersect {
		r[0], r[1] = max(r[0], dl.clip[0]), max(r[1], dl.clip[1])
		r[2], r[3] = min(r[2], dl.clip[2]), min(r[3], dl.clip[3])
	}
	dl.clipStack = append(dl.clipStack, dl.clip)
	dl.clip = r
}

func (dl *DrawList) PopClipRect() {
	if n := len(dl.clipStack); n > 0 {
		dl.clip = dl.clipStack[n-1]
		dl.clipStack = dl.clipStack[:n-1]
	}
}

// ClipRect returns the current clip rectangle.
func (dl *DrawList) ClipRect() [4]float32 { return dl.clip }

func (dl *DrawList) PushTexture(id TextureID) {
	dl.texStack = append(dl.texStack, dl.tex)
	dl.tex = id
}

func (dl *DrawList) PopTexture() {
	if n := len(dl.texStack); n > 0 {
		dl.tex = dl.texStack[n-1]
		dl.texStack = dl.texStack[:n-1]
	}
}

// AddCallback inserts a user callback between element commands.
func (dl *DrawList) AddCallback(cb DrawCallback, userData any) {
	dl.CmdBuffer = append(dl.CmdBuffer, DrawCmd{
		Kind: CmdCallback, ClipRect: dl.clip, TextureID: dl.tex,
		VtxOffset: dl.vtxOffset, Callback: cb, UserData: userData,
	})
}

// AddResetRenderState asks the renderer to re-apply its state.
func (dl *DrawList) AddResetRenderState() {
	dl.CmdBuffer = append(dl.CmdBuffer, DrawCmd{
		Kind: CmdResetRenderState, ClipRect: dl.clip, TextureID: dl.tex, VtxOffset: dl.vtxOffset,
	})
}

// AddRectFilled draws an axis-aligned solid rectangle.
func (dl *DrawList) AddRectFilled(x0, y0, x1, y1 float32, col colors.Color) {
	uv := dl.whiteUV
	dl.addQuad(
		[4][2]float32{{x0, y0}, {x1, y0}, {x1, y1}, {x0, y1}},
		[4][2]float32{uv, uv, uv, uv},
		col.RGBA8(),
	)
}

// AddImage draws texture id stretched over the rectangle with UVs uv0..uv1.
func (dl *DrawList) AddImage(id TextureID, x0, y0, x1, y1 float32, uv0, uv1 [2]float32, tint colors.Color) {
	dl.PushTexture(id)
	dl.addQuad(
		[4][2]float32{{x0, y0}, {x1, y0}, {x1, y1}, {x0, y1}},
		[4][2]float32{uv0, {uv1[0], uv0[1]}, uv1, {uv0[0], uv1[1]}},
		tint.RGBA8(),
	)
	dl.PopTexture()
}

// AddImageRotated draws sub centered at (cx, cy), rotated by rotationRad.
func (dl *DrawList) AddImageRotated(sub SubImage, cx, cy, w, h, rotationRad float32, tint colors.Color) {
	halfW, halfH := w*0.5, h*0.5
	// Corners TL, TR, BR, BL. Positive Y goes down.
	corners := [4][2]float32{{-halfW, -halfH}, {halfW, -halfH}, {halfW, halfH}, {-halfW, halfH}}
	c, s := float32(math.Cos(float64(rotationRad))), float32(math.Sin(float64(rotationRad)))
	var pos [4][2]float32
	for i, p := range corners {
		pos[i] = [2]float32{p[0]*c - p[1]*s + cx, p[0]*s + p[1]*c + cy}
	}
	dl.PushTexture(sub.Texture)
	dl.addQuad(pos, [4][2]float32{{sub.U0, sub.V0}, {sub.U1, sub.V0}, {sub.U1, sub.V1}, {sub.U0, sub.V1}}, tint.RGBA8())
	dl.PopTexture()
}

// AddText draws s with its top-left corner at (x, y) using the atlas bound
// as the list's default texture.
func (dl *DrawList) AddText(atlas *text.Atlas, x, y float32, s string, col colors.Color) {
	rgba := col.RGBA8()
	penX := x
	baseY := y + atlas.Ascent
	prev := rune(-1)
	for _, r := range s {
		if r == '\n' {
			penX = x
			baseY += atlas.LineHeight()
			prev = -1
			continue
		}
		g, ok := atlas.Glyphs[r]
		if !ok {
			g = atlas.Glyphs[' ']
		}
		penX += atlas.Kern(prev, r)
		if g.W > 0 && g.H > 0 {
			x0 := penX + g.BearingX
			y0 := baseY - g.BearingY
			x1, y1 := x0+float32(g.W), y0+float32(g.H)
			dl.addQuad(
				[4][2]float32{{x0, y0}, {x1, y0}, {x1, y1}, {x0, y1}},
				[4][2]float32{{g.U0, g.V0}, {g.U1, g.V0}, {g.U1, g.V1}, {g.U0, g.V1}},
				rgba,
			)
		}
		penX += g.Advance
		prev = r
	}
}

// addQuad appends four vertices (clockwise from top-left) as two triangles.
func (dl *DrawList) addQuad(pos, uv [4][2]float32, col [4]uint8) {
	base := dl.reserve(6, 4)
	for i := range pos {
		dl.VtxBuffer = append(dl.VtxBuffer, Vertex{Pos: pos[i], UV: uv[i], Col: col})
	}
	dl.IdxBuffer = append(dl.IdxBuffer,
		base+0, base+1, base+2,
		base+0, base+2, base+3,
	)
}

// reserve prepares the current command for idxCount more indices over
// vtxCount new vertices and returns the index of the first new vertex
// relative to the command's VtxOffset.
func (dl *DrawList) reserve(idxCount, vtxCount int) Index {
	if int64(len(dl.VtxBuffer)-int(dl.vtxOffset)+vtxCount) > maxListVertices {
		dl.vtxOffset = uint32(len(dl.VtxBuffer))
	}
	cmd := dl.current()
	cmd.ElemCount += uint32(idxCount)
	return Index(len(dl.VtxBuffer) - int(dl.vtxOffset))
}

func (dl *DrawList) current() *DrawCmd {
	if n := len(dl.CmdBuffer); n > 0 {
		c := &dl.CmdBuffer[n-1]
		if c.Kind == CmdElements {
			if c.ClipRect == dl.clip && c.TextureID == dl.tex && c.VtxOffset == dl.vtxOffset {
				return c
			}
			if c.ElemCount == 0 {
				c.ClipRect, c.TextureID, c.VtxOffset = dl.clip, dl.tex, dl.vtxOffset
				return c
			}
		}
	}
	dl.CmdBuffer = append(dl.CmdBuffer, DrawCmd{ClipRect: dl.clip, TextureID: dl.tex, VtxOffset: dl.vtxOffset})
	return &dl.CmdBuffer[len(dl.CmdBuffer)-1]
}

// Validate checks that commands cover exactly the index buffer and that every
// index stays inside the list's vertices.
func (dl *DrawList) Validate() error {
	idx := 0
	for ci := range dl.CmdBuffer {
		cmd := &dl.CmdBuffer[ci]
		if cmd.Kind != CmdElements {
			continue
		}
		end := idx + int(cmd.ElemCount)
		if end > len(dl.IdxBuffer) {
			return &IndexRangeError{Cmd: ci, Index: end - 1, Vertices: len(dl.VtxBuffer)}
		}
		for i := idx; i < end; i++ {
			v := uint64(dl.IdxBuffer[i]) + uint64(cmd.VtxOffset)
			if v >= uint64(len(dl.VtxBuffer)) {
				return &IndexRangeError{Cmd: ci, Index: i, Vertex: v, Vertices: len(dl.VtxBuffer)}
			}
		}
		idx = end
	}
	return nil
}
